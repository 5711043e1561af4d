package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jaekwang-park/project-board/internal/service"
	"github.com/jaekwang-park/project-board/internal/validation"
)

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ValidationResponse is the 422 body: per-field messages plus the submitted
// values so a form can be re-filled.
type ValidationResponse struct {
	Message string            `json:"message"`
	Errors  validation.Errors `json:"errors"`
	Old     any               `json:"old,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
		},
	})
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error, old any) {
	var verrs validation.Errors
	switch {
	case errors.As(err, &verrs):
		WriteJSON(w, http.StatusUnprocessableEntity, ValidationResponse{
			Message: "The given data was invalid.",
			Errors:  verrs,
			Old:     old,
		})
	case errors.Is(err, service.ErrNotFound):
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "resource not found")
	case errors.Is(err, service.ErrInvalidInput):
		WriteError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
	case errors.Is(err, service.ErrForbidden):
		WriteError(w, http.StatusForbidden, "FORBIDDEN", "This action is unauthorized.")
	default:
		slog.ErrorContext(r.Context(), "request failed", "error", err)
		WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
