package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/progress-tracker/internal/apperror"
	"github.com/sakif/progress-tracker/internal/auth"
	"github.com/sakif/progress-tracker/internal/model"
	"github.com/sakif/progress-tracker/internal/service"
)

// UserHandler exposes the profile endpoints:
//
//	GET   /api/users/            → own profile, all relations included
//	GET   /api/users/{username}  → public identity lookup
//	POST  /api/users/onboard     → one-time onboarding survey
//	PATCH /api/users/            → partial profile update
type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(users *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// HandleGetProfile returns the authenticated user's profile with social
// links, preferences and extra info included.
//
// HTTP: GET /api/users/  (auth required)
func (h *UserHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	profile, err := h.users.GetProfile(r.Context(), userID, model.IncludeAll())
	if err != nil {
		// The token can outlive the account; an unknown id here is a real 404.
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "profile fetched successfully", profile)
}

// HandleLookupUsername returns the public identity view for a username.
// No auth required; private profiles answer 404.
//
// HTTP: GET /api/users/{username}
func (h *UserHandler) HandleLookupUsername(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")

	identity, err := h.users.LookupByUsername(r.Context(), username)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "user fetched successfully", identity)
}

// HandleOnboard records the one-time onboarding survey.
//
// HTTP: POST /api/users/onboard  (auth required)
// 201 on create, 400 on validation failure, 409 when already onboarded.
func (h *UserHandler) HandleOnboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	var survey model.OnboardingSurvey
	if err := decodeBody(r, &survey); err != nil {
		writeError(w, err)
		return
	}

	info, err := h.users.Onboard(r.Context(), userID, survey)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, "onboarding completed successfully", info)
}

// HandleUpdateProfile applies a partial profile update and returns the
// full updated profile.
//
// HTTP: PATCH /api/users/  (auth required)
func (h *UserHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	var update model.ProfileUpdate
	if err := decodeBody(r, &update); err != nil {
		writeError(w, err)
		return
	}

	profile, err := h.users.UpdateProfile(r.Context(), userID, update)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "profile updated successfully", profile)
}
