package handlers

import (
	"net/http"

	"wagelink-backend/middleware"
	"wagelink-backend/models"
	"wagelink-backend/services"
)

// DisputeHandler handles dispute requests
type DisputeHandler struct {
	*BaseHandler
	disputeService *services.DisputeService
}

// NewDisputeHandler creates a new dispute handler
func NewDisputeHandler(disputeService *services.DisputeService) *DisputeHandler {
	return &DisputeHandler{
		BaseHandler:    NewBaseHandler(),
		disputeService: disputeService,
	}
}

// HandleRaiseDispute handles either party freezing an assignment. An
// authenticated contractor disputes as itself; a worker supplies its worker
// id in the request body.
func (h *DisputeHandler) HandleRaiseDispute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req models.RaiseDisputeRequest
	if err := h.parseJSON(r, &req); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	callerID := req.CallerID
	if contractorID, ok := middleware.ContractorFromContext(r.Context()); ok {
		callerID = contractorID
	}
	if callerID == "" {
		h.sendError(w, http.StatusBadRequest, "Caller identity required")
		return
	}

	assignment, err := h.disputeService.Raise(r.Context(), req.AssignmentID, callerID)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}

	h.sendSuccess(w, assignment)
}
