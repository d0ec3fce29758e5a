package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/sakif/progress-tracker/internal/apperror"
	"github.com/sakif/progress-tracker/internal/auth"
	"github.com/sakif/progress-tracker/internal/model"
	"github.com/sakif/progress-tracker/internal/repository"
)

// MinPasswordLength is the minimum accepted password length at
// registration. bcrypt's 72-byte ceiling is enforced by PasswordService.
const MinPasswordLength = 8

// AuthService is the session-producing collaborator: it verifies
// credentials, records a session row per login, and issues the JWT that
// references it. It never touches HTTP — cookies are the handler's job.
type AuthService struct {
	users     repository.UserRepository
	sessions  repository.SessionRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all dependencies injected.
func NewAuthService(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		sessions:  sessions,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the authenticated user, the session recorded for
// this login, and the signed token, so the handler can set the cookie and
// respond in one step.
type AuthResult struct {
	User    *model.User
	Session *model.Session
	Token   string
}

// Device carries the request metadata recorded on the session row.
type Device struct {
	IPAddress string
	UserAgent string
}

// Register creates a new account from email/password credentials, records
// the first session, and returns the signed token.
//
// Email and username conflicts surface as conflict errors; the unique
// constraints in the store backstop the pre-checks.
func (s *AuthService) Register(ctx context.Context, name, email, username, password string, device Device) (*AuthResult, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	username = strings.TrimSpace(username)

	if name == "" {
		return nil, apperror.ValidationFailed("name", "name is required")
	}
	if len(name) > MaxNameLength {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("name must be %d characters or less", MaxNameLength))
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperror.ValidationFailed("email", "a valid email address is required")
	}
	if username == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}
	if len(username) > MaxUsernameLength {
		return nil, apperror.ValidationFailed("username",
			fmt.Sprintf("username must be %d characters or less", MaxUsernameLength))
	}
	if len(password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	if err := s.ensureAvailable(ctx, email, username); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		Name:         name,
		Email:        email,
		Username:     username,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating user (email=%s): %w", email, err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)

	return s.startSession(ctx, user, device)
}

// Login verifies email/password credentials and records a new session.
//
// Unknown email, OAuth-only account and wrong password all produce the
// same unauthorized error — the caller can't probe which emails exist.
func (s *AuthService) Login(ctx context.Context, email, password string, device Device) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("invalid email or password")
		}
		return nil, fmt.Errorf("service/auth: looking up user by email: %w", err)
	}

	if user.PasswordHash == "" {
		// OAuth-only account — it has no password to verify.
		return nil, apperror.Unauthorized("invalid email or password")
	}
	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, apperror.Unauthorized("invalid email or password")
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))

	return s.startSession(ctx, user, device)
}

// Logout revokes the session behind the presented token. A session that
// is already gone is fine — logout is idempotent.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("service/auth: revoking session %s: %w", sessionID, err)
	}
	return nil
}

// LoginOrRegisterGitHub completes the OAuth callback: first login creates
// an account from the GitHub profile, later logins refresh name/email.
// OAuth accounts are verified by construction — GitHub owns the email.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser, device Device) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	name := ghUser.Name
	if name == "" {
		name = ghUser.Login
	}
	email := ghUser.Email
	if email == "" {
		// GitHub hides the email when the user opts out; fall back to the
		// noreply form so the unique email column stays satisfiable.
		email = fmt.Sprintf("%s@users.noreply.github.com", ghUser.Login)
	}

	user := &model.User{
		GitHubID:   ghUser.ID,
		Name:       name,
		Email:      email,
		Username:   ghUser.Login,
		IsVerified: true,
	}

	_, err := s.users.GetByGitHubID(ctx, ghUser.ID)
	switch {
	case err == nil:
		// Returning user — refresh the GitHub-sourced fields only.
		if err := s.users.UpsertByGitHubID(ctx, user); err != nil {
			return nil, fmt.Errorf("service/auth: refreshing user (githubID=%d): %w", ghUser.ID, err)
		}
	case errors.Is(err, apperror.ErrNotFound):
		// First login — the GitHub login may clash with an existing
		// username; suffix it rather than fail the whole flow.
		if _, err := s.users.GetByUsername(ctx, user.Username); err == nil {
			user.Username = fmt.Sprintf("%s-gh%d", ghUser.Login, ghUser.ID)
		} else if !errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("service/auth: checking username %s: %w", user.Username, err)
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("service/auth: creating user (githubID=%d): %w", ghUser.ID, err)
		}
	default:
		return nil, fmt.Errorf("service/auth: looking up user by github_id %d: %w", ghUser.ID, err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("login", ghUser.Login),
	)

	return s.startSession(ctx, user, device)
}

// CurrentUser returns the account behind an authenticated request, with
// the password hash cleared.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("no authenticated user")
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

// startSession records the session row for this login and signs the token
// referencing it. Session and token share one expiry.
func (s *AuthService) startSession(ctx context.Context, user *model.User, device Device) (*AuthResult, error) {
	session := &model.Session{
		UserID:    user.ID,
		IPAddress: device.IPAddress,
		UserAgent: device.UserAgent,
		ExpiresAt: time.Now().Add(auth.TokenLifetime),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("service/auth: recording session for user %s: %w", user.ID, err)
	}

	token, err := s.tokens.Generate(user.ID, session.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	user.PasswordHash = ""
	return &AuthResult{
		User:    user,
		Session: session,
		Token:   token,
	}, nil
}

// ensureAvailable rejects registration when the email or username is
// already taken.
func (s *AuthService) ensureAvailable(ctx context.Context, email, username string) error {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return apperror.Conflict("user", "email already registered")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return fmt.Errorf("service/auth: checking email %s: %w", email, err)
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return apperror.Conflict("user", "username already taken")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return fmt.Errorf("service/auth: checking username %s: %w", username, err)
	}
	return nil
}
