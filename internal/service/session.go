package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sakif/progress-tracker/internal/apperror"
	"github.com/sakif/progress-tracker/internal/model"
	"github.com/sakif/progress-tracker/internal/repository"
)

// SessionService lists, fetches and revokes a user's session records.
//
// Every operation takes the authenticated user's ID and enforces
// ownership: fetching or revoking someone else's session is forbidden,
// regardless of knowing its ID.
type SessionService struct {
	sessions repository.SessionRepository
	logger   *slog.Logger
}

// NewSessionService creates a SessionService.
func NewSessionService(sessions repository.SessionRepository, logger *slog.Logger) *SessionService {
	return &SessionService{
		sessions: sessions,
		logger:   logger,
	}
}

// List returns the user's sessions in creation order. A user with no
// sessions gets an empty list, not an error.
func (s *SessionService) List(ctx context.Context, userID string) ([]model.Session, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperror.ValidationFailed("userId", "user ID is required")
	}

	sessions, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list sessions",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	return sessions, nil
}

// Get fetches one session by ID on behalf of userID.
func (s *SessionService) Get(ctx context.Context, userID, sessionID string) (*model.Session, error) {
	session, err := s.owned(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Revoke deletes one session by ID on behalf of userID. Revoking a
// session that doesn't exist is a not-found, not a server fault.
func (s *SessionService) Revoke(ctx context.Context, userID, sessionID string) error {
	session, err := s.owned(ctx, userID, sessionID)
	if err != nil {
		return err
	}

	if err := s.sessions.Delete(ctx, session.ID); err != nil {
		return err
	}

	s.logger.Info("session revoked",
		slog.String("sessionID", session.ID),
		slog.String("userID", userID),
	)
	return nil
}

// owned loads a session and checks it belongs to userID.
func (s *SessionService) owned(ctx context.Context, userID, sessionID string) (*model.Session, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperror.ValidationFailed("userId", "user ID is required")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, apperror.ValidationFailed("id", "session ID is required")
	}

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, apperror.Forbidden("session belongs to another user")
	}
	return session, nil
}
