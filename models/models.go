package models

import (
	"time"

	"wagelink-backend/core"
)

// RegisterWorkerRequest represents a worker registration request
type RegisterWorkerRequest struct {
	NationalID string `json:"national_id"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
}

// RegisterWorkerResponse carries the new worker's id
type RegisterWorkerResponse struct {
	WorkerID string `json:"worker_id"`
}

// VerifyWorkerRequest represents a citizen-registry verification request
type VerifyWorkerRequest struct {
	NationalID  string `json:"national_id"`
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	DateOfBirth string `json:"date_of_birth"`
}

// VerifyWorkerResponse represents the verification outcome
type VerifyWorkerResponse struct {
	Verified bool `json:"verified"`
}

// UpdateProfileRequest mutates worker contact fields
type UpdateProfileRequest struct {
	NationalID string `json:"national_id"`
	Name       string `json:"name,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

// SetPayoutAddressRequest provisions a worker payout address
type SetPayoutAddressRequest struct {
	NationalID    string `json:"national_id"`
	PayoutAddress string `json:"payout_address"`
}

// AssignWorkRequest represents a contractor assigning work
type AssignWorkRequest struct {
	NationalID string `json:"national_id"`
	Days       int    `json:"days"`
	Payment    int64  `json:"payment"`
}

// AssignWorkResponse carries the new assignment id
type AssignWorkResponse struct {
	AssignmentID int64 `json:"assignment_id"`
}

// AssignmentsResponse represents an assignment listing
type AssignmentsResponse struct {
	Assignments []core.Assignment `json:"assignments"`
	Total       int               `json:"total"`
}

// ProcessPaymentRequest represents a settlement request
type ProcessPaymentRequest struct {
	AssignmentID int64 `json:"assignment_id"`
}

// PaymentsResponse represents a payment history listing
type PaymentsResponse struct {
	Payments []core.SettlementRecord `json:"payments"`
	Total    int                     `json:"total"`
}

// RaiseDisputeRequest represents a dispute being raised
type RaiseDisputeRequest struct {
	AssignmentID int64  `json:"assignment_id"`
	CallerID     string `json:"caller_id,omitempty"`
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// ErrorResponse represents API error response
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	Code      int    `json:"code,omitempty"`
	Hint      string `json:"hint,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// APIResponse represents a generic API response
type APIResponse struct {
	Success bool                   `json:"success"`
	Data    interface{}            `json:"data,omitempty"`
	Error   *ErrorResponse         `json:"error,omitempty"`
	Meta    map[string]interface{} `json:"meta,omitempty"`
}

// NewSuccessResponse creates a success response
func NewSuccessResponse(data interface{}) *APIResponse {
	return &APIResponse{
		Success: true,
		Data:    data,
	}
}

// NewErrorResponse creates an error response
func NewErrorResponse(error string, code int) *APIResponse {
	return &APIResponse{
		Success: false,
		Error: &ErrorResponse{
			Error:     error,
			Message:   error,
			Code:      code,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}
}

// NewErrorResponseWithHint creates an error response with a hint.
func NewErrorResponseWithHint(error string, code int, hint string) *APIResponse {
	resp := NewErrorResponse(error, code)
	if resp != nil && resp.Error != nil {
		resp.Error.Hint = hint
	}
	return resp
}
