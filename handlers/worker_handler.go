package handlers

import (
	"net/http"
	"strings"

	"wagelink-backend/models"
	"wagelink-backend/services"
)

// WorkerHandler handles worker registration and profile requests
type WorkerHandler struct {
	*BaseHandler
	identityService *services.IdentityService
}

// NewWorkerHandler creates a new worker handler
func NewWorkerHandler(identityService *services.IdentityService) *WorkerHandler {
	return &WorkerHandler{
		BaseHandler:     NewBaseHandler(),
		identityService: identityService,
	}
}

// HandleRegister handles registering a new worker
func (h *WorkerHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req models.RegisterWorkerRequest
	if err := h.parseJSON(r, &req); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	worker, err := h.identityService.Register(r.Context(), req.NationalID, req.Name, req.Phone)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}

	h.sendSuccess(w, models.RegisterWorkerResponse{WorkerID: worker.WorkerID})
}

// HandleGetWorker handles looking up a worker by national ID
func (h *WorkerHandler) HandleGetWorker(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	nationalID := strings.TrimPrefix(r.URL.Path, "/api/worker/")
	if nationalID == "" || strings.Contains(nationalID, "/") {
		h.sendError(w, http.StatusBadRequest, "National ID required")
		return
	}

	worker, err := h.identityService.Lookup(r.Context(), nationalID)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}

	h.sendSuccess(w, worker)
}

// HandleVerify handles checking registration details against the citizen registry
func (h *WorkerHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req models.VerifyWorkerRequest
	if err := h.parseJSON(r, &req); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	verified, err := h.identityService.ExternalVerify(r.Context(), req.NationalID, req.Name, req.Phone, req.DateOfBirth)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}

	h.sendSuccess(w, models.VerifyWorkerResponse{Verified: verified})
}

// HandleUpdateProfile handles updating a worker's contact fields
func (h *WorkerHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req models.UpdateProfileRequest
	if err := h.parseJSON(r, &req); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	worker, err := h.identityService.UpdateProfile(r.Context(), req.NationalID, req.Name, req.Phone)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}

	h.sendSuccess(w, worker)
}

// HandleSetPayoutAddress handles provisioning a worker's payout address
func (h *WorkerHandler) HandleSetPayoutAddress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req models.SetPayoutAddressRequest
	if err := h.parseJSON(r, &req); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	worker, err := h.identityService.SetPayoutAddress(r.Context(), req.NationalID, req.PayoutAddress)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}

	h.sendSuccess(w, worker)
}
