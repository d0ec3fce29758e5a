// Package handler is the HTTP layer: decode requests, call services,
// translate results and domain errors into the uniform JSON envelope.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/progress-tracker/internal/apperror"
)

// Envelope is the uniform response wrapper used by every endpoint:
//
//	{"success":true,"message":"...","data":{...}}
//	{"success":false,"message":"...","error":[{type,message,path,location}]}
type Envelope struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Data    any           `json:"data,omitempty"`
	Error   []ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail is one entry of the envelope's error list. Path names the
// offending field for validation failures; Location says where the field
// came from (currently always the request body).
type ErrorDetail struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Path     string `json:"path,omitempty"`
	Location string `json:"location,omitempty"`
}

// writeJSON sends a JSON body with the given status. Headers must be set
// before the first Write — once the body starts, they are locked in.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			// Headers are already gone; logging is all that's left.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeSuccess wraps data in the success envelope.
func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, Envelope{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// writeError maps a domain error onto an HTTP status and the failure
// envelope. This is the only place that mapping exists — services return
// apperror sentinels and never see status codes.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errorType = "not_found"
		case errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized
			errorType = "unauthorized"
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
			errorType = "forbidden"
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
			errorType = "conflict"
		}

		detail := ErrorDetail{
			Type:    errorType,
			Message: appErr.Message,
		}
		if appErr.Field != "" {
			detail.Path = appErr.Field
			detail.Location = "body"
		}

		writeJSON(w, status, Envelope{
			Success: false,
			Message: appErr.Message,
			Error:   []ErrorDetail{detail},
		})
		return
	}

	// Unknown error — generic 500. The raw message may contain SQL or
	// file paths, so it never reaches the client.
	writeJSON(w, http.StatusInternalServerError, Envelope{
		Success: false,
		Message: "An internal error occurred",
		Error: []ErrorDetail{{
			Type:    "internal_error",
			Message: "An internal error occurred",
		}},
	})
}

// decodeBody parses a JSON request body into dst, translating parse
// failures into a validation error.
func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.ValidationFailed("body", "invalid JSON body")
	}
	return nil
}
