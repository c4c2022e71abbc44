package handlers

import (
	"errors"
	"net/http"

	"wagelink-backend/core"
)

// httpStatusFor translates service errors into HTTP status codes. Unknown
// errors are treated as internal.
func httpStatusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidIdentity),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidDuration):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrWorkerNotFound),
		errors.Is(err, core.ErrAssignmentNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, core.ErrDuplicateIdentity),
		errors.Is(err, core.ErrAlreadySettled),
		errors.Is(err, core.ErrInvalidState),
		errors.Is(err, core.ErrInvalidTransition),
		errors.Is(err, core.ErrPayeeUnresolved):
		return http.StatusConflict
	case errors.Is(err, core.ErrTransferFailed):
		return http.StatusBadGateway
	case errors.Is(err, core.ErrTransferIndeterminate):
		return http.StatusGatewayTimeout
	case errors.Is(err, core.ErrPostTransferRecordingFailed):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
