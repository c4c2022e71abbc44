package core

import "time"

// Shared domain types

// AssignmentStatus is the lifecycle state of a work assignment.
// Unpaid is the only non-terminal state.
type AssignmentStatus string

const (
	StatusUnpaid   AssignmentStatus = "unpaid"
	StatusPaid     AssignmentStatus = "paid"
	StatusDisputed AssignmentStatus = "disputed"
)

// Terminal reports whether no further transitions are allowed from s.
func (s AssignmentStatus) Terminal() bool {
	return s == StatusPaid || s == StatusDisputed
}

// WorkerRecord is a registered worker. The raw national ID is never stored;
// IDHash is the sole lookup key.
type WorkerRecord struct {
	WorkerID      string    `json:"worker_id"`
	IDHash        string    `json:"-"`
	DisplayName   string    `json:"name"`
	Phone         string    `json:"phone"`
	PayoutAddress string    `json:"payout_address,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// PlaceholderAddress marks a worker whose payout address has not been
// provisioned yet. Settlement refuses to pay it.
const PlaceholderAddress = "0x0000000000000000000000000000000000000000"

// HasPayoutAddress reports whether the worker can receive a transfer.
func (w WorkerRecord) HasPayoutAddress() bool {
	return w.PayoutAddress != "" && w.PayoutAddress != PlaceholderAddress
}

// Assignment is a unit of contracted work with a fixed wage. Amounts are in
// minor currency units.
type Assignment struct {
	AssignmentID  int64            `json:"assignment_id"`
	ContractorID  string           `json:"contractor_id"`
	WorkerIDHash  string           `json:"worker_id_hash"`
	PaymentAmount int64            `json:"payment_amount"`
	Status        AssignmentStatus `json:"status"`
	CreatedAt     time.Time        `json:"created_at"`
	ExpiresAt     time.Time        `json:"expires_at"`
}

// Expired reports whether the assignment's settlement window has elapsed.
func (a Assignment) Expired(now time.Time) bool {
	return now.After(a.ExpiresAt)
}

// SettlementRecord records a completed wage transfer. At most one exists per
// assignment, and one exists exactly when the assignment is paid.
type SettlementRecord struct {
	AssignmentID      int64     `json:"assignment_id"`
	PayerID           string    `json:"payer_id"`
	PayeeWorkerID     string    `json:"payee_worker_id"`
	Amount            int64     `json:"amount"`
	TransferReference string    `json:"transfer_reference"`
	SettledAt         time.Time `json:"settled_at"`
}

// AssignmentFilter selects assignments for listing. Exactly one of
// ContractorID or WorkerIDHash is normally set. Results are ordered
// newest-created-first.
type AssignmentFilter struct {
	ContractorID string
	WorkerIDHash string
	Status       AssignmentStatus
	Limit        int
	Offset       int
}
