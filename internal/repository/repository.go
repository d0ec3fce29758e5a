// Package repository defines the storage interfaces the service layer
// depends on. Services receive these interfaces, never a concrete DB, so
// tests can substitute in-memory fakes and the backend can be swapped
// without touching business logic.
package repository

import (
	"context"

	"github.com/sakif/progress-tracker/internal/model"
)

// UserRepository manages core user rows.
type UserRepository interface {
	// Create inserts a new user, filling in ID and timestamps.
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
	// Update persists name, username, verified flag and updated_at.
	Update(ctx context.Context, user *model.User) error
	// UpsertByGitHubID inserts on first OAuth login and refreshes the
	// account's name/email on subsequent ones, keyed on github_id.
	UpsertByGitHubID(ctx context.Context, user *model.User) error
}

// ProfileRepository manages the three lazily-created side-records owned by
// a user. Get methods return apperror.ErrNotFound when the row does not
// exist yet; Upsert methods insert-or-replace the full record for that
// user (field-level merging is the service's job).
type ProfileRepository interface {
	GetSocialInfo(ctx context.Context, userID string) (*model.SocialInfo, error)
	UpsertSocialInfo(ctx context.Context, info *model.SocialInfo) error

	GetPreference(ctx context.Context, userID string) (*model.UserPreference, error)
	UpsertPreference(ctx context.Context, pref *model.UserPreference) error

	GetExtraInfo(ctx context.Context, userID string) (*model.UserExtraInfo, error)
	// CreateExtraInfo inserts the one-time onboarding record and returns a
	// conflict error if the user already has one.
	CreateExtraInfo(ctx context.Context, info *model.UserExtraInfo) error
	UpsertExtraInfo(ctx context.Context, info *model.UserExtraInfo) error
}

// SessionRepository manages session rows. Sessions are created at login
// and never updated.
type SessionRepository interface {
	Create(ctx context.Context, session *model.Session) error
	GetByID(ctx context.Context, id string) (*model.Session, error)
	// ListByUser returns the user's sessions in creation order.
	ListByUser(ctx context.Context, userID string) ([]model.Session, error)
	// Delete removes a session; apperror.ErrNotFound if no row matched.
	Delete(ctx context.Context, id string) error
}
