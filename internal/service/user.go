// Package service contains the business logic layer.
//
// Handlers parse HTTP and write responses; services validate and enforce
// the domain rules; repositories talk to the database. Services receive
// repository interfaces, return domain errors from apperror, and know
// nothing about HTTP.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/progress-tracker/internal/apperror"
	"github.com/sakif/progress-tracker/internal/model"
	"github.com/sakif/progress-tracker/internal/repository"
)

// Validation limits.
const (
	MaxNameLength     = 100
	MaxUsernameLength = 39
	MaxBioLength      = 1000
	MaxLocationLength = 100

	MinDedicationHours = 1
	MaxDedicationHours = 168 // hours in a week
)

// UserService handles identity resolution, profile assembly, onboarding,
// and partial profile updates.
type UserService struct {
	users    repository.UserRepository
	profiles repository.ProfileRepository
	logger   *slog.Logger
}

// NewUserService creates a UserService with its injected dependencies.
func NewUserService(users repository.UserRepository, profiles repository.ProfileRepository, logger *slog.Logger) *UserService {
	return &UserService{
		users:    users,
		profiles: profiles,
		logger:   logger,
	}
}

// ResolveIdentity looks a user up by exactly one of internal ID or email
// and returns the four-field identity view. It never returns the full
// record — registration and auth flows only need an existence check.
func (s *UserService) ResolveIdentity(ctx context.Context, q model.IdentityQuery) (*model.Identity, error) {
	q.ID = strings.TrimSpace(q.ID)
	q.Email = strings.TrimSpace(q.Email)

	var (
		user *model.User
		err  error
	)
	switch {
	case q.ID != "" && q.Email != "":
		return nil, apperror.ValidationFailed("query", "specify either id or email, not both")
	case q.ID != "":
		user, err = s.users.GetByID(ctx, q.ID)
	case q.Email != "":
		user, err = s.users.GetByEmail(ctx, q.Email)
	default:
		return nil, apperror.ValidationFailed("query", "either id or email is required")
	}
	if err != nil {
		return nil, err
	}

	return &model.Identity{
		ID:         user.ID,
		Email:      user.Email,
		Name:       user.Name,
		IsVerified: user.IsVerified,
	}, nil
}

// LookupByUsername is the public (unauthenticated) username lookup. It
// returns the narrow public view, and hides users whose profile
// visibility preference is private by answering not-found for them —
// indistinguishable from a username that doesn't exist.
func (s *UserService) LookupByUsername(ctx context.Context, username string) (*model.PublicIdentity, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	pref, err := s.profiles.GetPreference(ctx, user.ID)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("looking up user %s: %w", username, err)
	}
	if pref != nil && pref.ProfileVisibility == model.VisibilityPrivate {
		return nil, apperror.NotFound("user", username)
	}

	return &model.PublicIdentity{
		ID:         user.ID,
		Name:       user.Name,
		Username:   user.Username,
		IsVerified: user.IsVerified,
	}, nil
}

// GetProfile fetches the user row plus the requested optional relations.
//
// A relation that wasn't requested stays nil (omitted from JSON, not an
// empty object). A requested relation whose row was never created also
// stays nil — the lazily-created side-records don't exist until the first
// update touches them. The password hash is cleared unconditionally.
func (s *UserService) GetProfile(ctx context.Context, userID string, include model.ProfileInclude) (*model.Profile, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperror.ValidationFailed("userId", "user ID is required")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""

	profile := &model.Profile{User: *user}

	if include.SocialInfo {
		info, err := s.profiles.GetSocialInfo(ctx, userID)
		if err != nil && !errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("assembling profile %s: %w", userID, err)
		}
		profile.SocialInfo = info
	}
	if include.UserPreference {
		pref, err := s.profiles.GetPreference(ctx, userID)
		if err != nil && !errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("assembling profile %s: %w", userID, err)
		}
		profile.UserPreference = pref
	}
	if include.UserExtraInfo {
		extra, err := s.profiles.GetExtraInfo(ctx, userID)
		if err != nil && !errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("assembling profile %s: %w", userID, err)
		}
		profile.UserExtraInfo = extra
	}

	return profile, nil
}

// Onboard records the one-time onboarding survey as the user's extra-info
// row. Values are persisted exactly as trimmed. Re-onboarding returns a
// conflict — survey answers are write-once; bio and location edits go
// through UpdateProfile instead.
func (s *UserService) Onboard(ctx context.Context, userID string, survey model.OnboardingSurvey) (*model.UserExtraInfo, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperror.ValidationFailed("userId", "user ID is required")
	}

	goals, err := trimStringSet("primaryGoals", survey.PrimaryGoals)
	if err != nil {
		return nil, err
	}
	interests, err := trimStringSet("areasOfInterest", survey.AreasOfInterest)
	if err != nil {
		return nil, err
	}

	experience := strings.TrimSpace(survey.ExperienceLevel)
	if experience == "" {
		return nil, apperror.ValidationFailed("experienceLevel", "experience level is required")
	}
	currentRole := strings.TrimSpace(survey.CurrentRole)
	if currentRole == "" {
		return nil, apperror.ValidationFailed("currentRole", "current role is required")
	}
	language := strings.TrimSpace(survey.PrimaryLanguage)
	if language == "" {
		return nil, apperror.ValidationFailed("primaryProgrammingLanguage", "primary programming language is required")
	}
	if survey.DedicationHoursPerWeek < MinDedicationHours {
		return nil, apperror.ValidationFailed("dedicationHoursPerWeek",
			fmt.Sprintf("dedication hours must be at least %d", MinDedicationHours))
	}
	if survey.DedicationHoursPerWeek > MaxDedicationHours {
		return nil, apperror.ValidationFailed("dedicationHoursPerWeek",
			fmt.Sprintf("dedication hours must be at most %d", MaxDedicationHours))
	}

	// The user must exist before we hang a side-record off them.
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	info := &model.UserExtraInfo{
		UserID:                 userID,
		PrimaryGoals:           goals,
		ExperienceLevel:        experience,
		AreasOfInterest:        interests,
		DedicationHoursPerWeek: survey.DedicationHoursPerWeek,
		CurrentRole:            currentRole,
		PrimaryLanguage:        language,
	}

	if err := s.profiles.CreateExtraInfo(ctx, info); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		s.logger.Error("failed to create onboarding record",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("onboarding user %s: %w", userID, err)
	}

	s.logger.Info("user onboarded",
		slog.String("userID", userID),
		slog.String("experienceLevel", experience),
	)
	return info, nil
}

// UpdateProfile applies a partial update: top-level name/username follow
// "update if present, else retain", and each provided sub-record is
// upserted independently — created with defaults when absent, merged
// field-by-field when present. A set pointer overrides the stored value;
// a nil pointer retains it. Relations not mentioned in the update are
// never touched.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, update model.ProfileUpdate) (*model.Profile, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperror.ValidationFailed("userId", "user ID is required")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, apperror.ValidationFailed("name", "name must not be empty")
		}
		if len(name) > MaxNameLength {
			return nil, apperror.ValidationFailed("name",
				fmt.Sprintf("name must be %d characters or less", MaxNameLength))
		}
		user.Name = name
	}
	if update.Username != nil {
		username := strings.TrimSpace(*update.Username)
		if username == "" {
			return nil, apperror.ValidationFailed("username", "username must not be empty")
		}
		if len(username) > MaxUsernameLength {
			return nil, apperror.ValidationFailed("username",
				fmt.Sprintf("username must be %d characters or less", MaxUsernameLength))
		}
		user.Username = username
	}

	// The write happens even when nothing changed — a content no-op, but
	// it refreshes updated_at, matching the store's update semantics.
	if err := s.users.Update(ctx, user); err != nil {
		s.logger.Error("failed to update user",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating user %s: %w", userID, err)
	}

	if update.SocialInfo != nil {
		_, err := upsertRelation(ctx, s.profiles.GetSocialInfo, s.profiles.UpsertSocialInfo, userID,
			func() *model.SocialInfo {
				return &model.SocialInfo{UserID: userID}
			},
			func(info *model.SocialInfo) {
				mergeField(&info.Github, update.SocialInfo.Github)
				mergeField(&info.Linkedin, update.SocialInfo.Linkedin)
				mergeField(&info.Twitter, update.SocialInfo.Twitter)
				mergeField(&info.Instagram, update.SocialInfo.Instagram)
			},
		)
		if err != nil {
			return nil, fmt.Errorf("updating social info for user %s: %w", userID, err)
		}
	}

	if update.UserPreference != nil {
		if err := validatePreferenceUpdate(update.UserPreference); err != nil {
			return nil, err
		}
		_, err := upsertRelation(ctx, s.profiles.GetPreference, s.profiles.UpsertPreference, userID,
			func() *model.UserPreference {
				return &model.UserPreference{
					UserID:             userID,
					Theme:              model.DefaultTheme,
					EmailNotifications: model.DefaultEmailNotification,
					PushNotifications:  model.DefaultPushNotification,
					ProfileVisibility:  model.DefaultVisibility,
				}
			},
			func(pref *model.UserPreference) {
				mergeField(&pref.Theme, update.UserPreference.Theme)
				mergeField(&pref.EmailNotifications, update.UserPreference.EmailNotifications)
				mergeField(&pref.PushNotifications, update.UserPreference.PushNotifications)
				mergeField(&pref.ProfileVisibility, update.UserPreference.ProfileVisibility)
			},
		)
		if err != nil {
			return nil, fmt.Errorf("updating preference for user %s: %w", userID, err)
		}
	}

	if update.UserExtraInfo != nil {
		if err := validateExtraInfoUpdate(update.UserExtraInfo); err != nil {
			return nil, err
		}
		_, err := upsertRelation(ctx, s.profiles.GetExtraInfo, s.profiles.UpsertExtraInfo, userID,
			func() *model.UserExtraInfo {
				return &model.UserExtraInfo{UserID: userID}
			},
			func(info *model.UserExtraInfo) {
				mergeField(&info.Bio, update.UserExtraInfo.Bio)
				mergeField(&info.Location, update.UserExtraInfo.Location)
			},
		)
		if err != nil {
			return nil, fmt.Errorf("updating extra info for user %s: %w", userID, err)
		}
	}

	s.logger.Info("profile updated", slog.String("userID", userID))

	return s.GetProfile(ctx, userID, model.IncludeAll())
}

// upsertRelation is the shared create-with-defaults / merge-then-save
// strategy for one owned sub-record, parameterized over the record type.
// Each relation supplies its own defaults constructor and field merge;
// the load / fall-back / save sequence is written once here.
func upsertRelation[T any](
	ctx context.Context,
	get func(context.Context, string) (*T, error),
	put func(context.Context, *T) error,
	userID string,
	defaults func() *T,
	merge func(*T),
) (*T, error) {
	current, err := get(ctx, userID)
	switch {
	case err == nil:
	case errors.Is(err, apperror.ErrNotFound):
		current = defaults()
	default:
		return nil, err
	}

	merge(current)

	if err := put(ctx, current); err != nil {
		return nil, err
	}
	return current, nil
}

// mergeField implements the right-biased merge for a single field: a set
// pointer overrides the stored value, nil retains it.
func mergeField[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func validatePreferenceUpdate(upd *model.UserPreferenceUpdate) error {
	if upd.Theme != nil {
		switch *upd.Theme {
		case model.ThemeLight, model.ThemeDark:
		default:
			return apperror.ValidationFailed("theme",
				fmt.Sprintf("theme must be %q or %q", model.ThemeLight, model.ThemeDark))
		}
	}
	if upd.ProfileVisibility != nil {
		switch *upd.ProfileVisibility {
		case model.VisibilityPublic, model.VisibilityPrivate:
		default:
			return apperror.ValidationFailed("profileVisibility",
				fmt.Sprintf("profile visibility must be %q or %q", model.VisibilityPublic, model.VisibilityPrivate))
		}
	}
	return nil
}

func validateExtraInfoUpdate(upd *model.UserExtraInfoUpdate) error {
	if upd.Bio != nil && len(*upd.Bio) > MaxBioLength {
		return apperror.ValidationFailed("bio",
			fmt.Sprintf("bio must be %d characters or less", MaxBioLength))
	}
	if upd.Location != nil && len(*upd.Location) > MaxLocationLength {
		return apperror.ValidationFailed("location",
			fmt.Sprintf("location must be %d characters or less", MaxLocationLength))
	}
	return nil
}

// trimStringSet trims every entry of a required string set and rejects
// empty sets and blank entries.
func trimStringSet(field string, values []string) ([]string, error) {
	if len(values) == 0 {
		return nil, apperror.ValidationFailed(field, field+" must not be empty")
	}
	trimmed := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			return nil, apperror.ValidationFailed(field, field+" must not contain blank entries")
		}
		trimmed = append(trimmed, v)
	}
	return trimmed, nil
}
