package handlers

import (
	"errors"
	"net/http"
	"strings"

	"wagelink-backend/core"
	"wagelink-backend/middleware"
	"wagelink-backend/models"
	"wagelink-backend/services"
)

// PaymentHandler handles settlement and payment history requests
type PaymentHandler struct {
	*BaseHandler
	settlementService *services.SettlementService
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(settlementService *services.SettlementService) *PaymentHandler {
	return &PaymentHandler{
		BaseHandler:       NewBaseHandler(),
		settlementService: settlementService,
	}
}

// HandleProcessPayment handles a contractor settling an assignment
func (h *PaymentHandler) HandleProcessPayment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	contractorID, ok := middleware.ContractorFromContext(r.Context())
	if !ok {
		h.sendError(w, http.StatusUnauthorized, "Contractor identity required")
		return
	}

	var req models.ProcessPaymentRequest
	if err := h.parseJSON(r, &req); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	settlement, err := h.settlementService.Settle(r.Context(), req.AssignmentID, contractorID)
	middleware.RecordSettlementOutcome(settlementOutcome(err))
	if err != nil {
		h.sendServiceError(w, err)
		return
	}

	h.sendSuccess(w, settlement)
}

// HandlePaymentHistory handles listing a worker's settlements
func (h *PaymentHandler) HandlePaymentHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	nationalID := strings.TrimPrefix(r.URL.Path, "/api/payments/")
	if nationalID == "" || strings.Contains(nationalID, "/") {
		h.sendError(w, http.StatusBadRequest, "National ID required")
		return
	}

	payments, err := h.settlementService.PaymentHistory(r.Context(), nationalID)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}

	h.sendSuccess(w, models.PaymentsResponse{
		Payments: payments,
		Total:    len(payments),
	})
}

func settlementOutcome(err error) string {
	switch {
	case err == nil:
		return "settled"
	case errors.Is(err, core.ErrTransferFailed):
		return "transfer_failed"
	case errors.Is(err, core.ErrTransferIndeterminate):
		return "indeterminate"
	case errors.Is(err, core.ErrPostTransferRecordingFailed):
		return "recording_failed"
	default:
		return "rejected"
	}
}
