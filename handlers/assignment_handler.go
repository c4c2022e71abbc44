package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"wagelink-backend/middleware"
	"wagelink-backend/models"
	"wagelink-backend/services"
)

// AssignmentHandler handles work assignment requests
type AssignmentHandler struct {
	*BaseHandler
	ledgerService *services.LedgerService
}

// NewAssignmentHandler creates a new assignment handler
func NewAssignmentHandler(ledgerService *services.LedgerService) *AssignmentHandler {
	return &AssignmentHandler{
		BaseHandler:   NewBaseHandler(),
		ledgerService: ledgerService,
	}
}

// HandleAssignWork handles a contractor opening a new assignment
func (h *AssignmentHandler) HandleAssignWork(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	contractorID, ok := middleware.ContractorFromContext(r.Context())
	if !ok {
		h.sendError(w, http.StatusUnauthorized, "Contractor identity required")
		return
	}

	var req models.AssignWorkRequest
	if err := h.parseJSON(r, &req); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	assignment, err := h.ledgerService.Create(r.Context(), contractorID, req.NationalID, req.Days, req.Payment)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}

	h.sendSuccess(w, models.AssignWorkResponse{AssignmentID: assignment.AssignmentID})
}

// HandleGetAssignment handles fetching a single assignment by id
func (h *AssignmentHandler) HandleGetAssignment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	idStr := strings.TrimPrefix(r.URL.Path, "/api/assignment/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid assignment ID")
		return
	}

	assignment, err := h.ledgerService.Get(r.Context(), id)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}

	h.sendSuccess(w, assignment)
}

// HandleWorkerAssignments handles listing a worker's assignments
func (h *AssignmentHandler) HandleWorkerAssignments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	handle := strings.TrimPrefix(r.URL.Path, "/api/worker-assignments/")
	if handle == "" || strings.Contains(handle, "/") {
		h.sendError(w, http.StatusBadRequest, "Worker identifier required")
		return
	}

	assignments, err := h.ledgerService.ListByWorker(r.Context(), handle)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}

	h.sendSuccess(w, models.AssignmentsResponse{
		Assignments: assignments,
		Total:       len(assignments),
	})
}

// HandleContractorAssignments handles listing the calling contractor's assignments
func (h *AssignmentHandler) HandleContractorAssignments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	contractorID, ok := middleware.ContractorFromContext(r.Context())
	if !ok {
		h.sendError(w, http.StatusUnauthorized, "Contractor identity required")
		return
	}

	assignments, err := h.ledgerService.ListByContractor(r.Context(), contractorID)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}

	h.sendSuccess(w, models.AssignmentsResponse{
		Assignments: assignments,
		Total:       len(assignments),
	})
}
