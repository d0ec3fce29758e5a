package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/progress-tracker/internal/apperror"
	"github.com/sakif/progress-tracker/internal/auth"
	"github.com/sakif/progress-tracker/internal/service"
)

// SessionHandler exposes the session endpoints:
//
//	GET    /api/sessions/      → list the caller's sessions
//	GET    /api/sessions/{id}  → fetch one session
//	DELETE /api/sessions/{id}  → revoke one session
//
// All three require auth; the service enforces that the session belongs
// to the caller.
type SessionHandler struct {
	sessions *service.SessionService
	logger   *slog.Logger
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(sessions *service.SessionService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, logger: logger}
}

// HandleList returns all of the caller's sessions in creation order.
//
// HTTP: GET /api/sessions/
func (h *SessionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	sessions, err := h.sessions.List(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "sessions fetched successfully", sessions)
}

// HandleGet returns one session by ID.
//
// HTTP: GET /api/sessions/{id}
func (h *SessionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	session, err := h.sessions.Get(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "session fetched successfully", session)
}

// HandleDelete revokes one session by ID. Revoking an unknown session is
// a 404, not a server fault.
//
// HTTP: DELETE /api/sessions/{id}
func (h *SessionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	if err := h.sessions.Revoke(r.Context(), userID, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "session deleted successfully", nil)
}
