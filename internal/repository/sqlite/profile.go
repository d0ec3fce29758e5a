package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/sakif/progress-tracker/internal/apperror"
	"github.com/sakif/progress-tracker/internal/model"
	"github.com/sakif/progress-tracker/internal/repository"
)

// compile-time check that *DB implements repository.ProfileRepository
var _ repository.ProfileRepository = (*DB)(nil)

// The side-records are keyed on user_id (one row per user), so every
// upsert is INSERT ... ON CONFLICT(user_id) DO UPDATE. Field-level merge
// semantics live in the service; the rows written here are always the
// full desired state.

// GetSocialInfo returns the user's social links row, or ErrNotFound if it
// was never created.
func (db *DB) GetSocialInfo(ctx context.Context, userID string) (*model.SocialInfo, error) {
	var info model.SocialInfo

	err := db.conn.QueryRowContext(ctx,
		`SELECT user_id, github, linkedin, twitter, instagram
		 FROM social_info WHERE user_id = ?`,
		userID,
	).Scan(&info.UserID, &info.Github, &info.Linkedin, &info.Twitter, &info.Instagram)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("social info", userID)
		}
		return nil, fmt.Errorf("sqlite: getting social info for user %s: %w", userID, err)
	}
	return &info, nil
}

func (db *DB) UpsertSocialInfo(ctx context.Context, info *model.SocialInfo) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO social_info (user_id, github, linkedin, twitter, instagram)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			github    = excluded.github,
			linkedin  = excluded.linkedin,
			twitter   = excluded.twitter,
			instagram = excluded.instagram`,
		info.UserID, info.Github, info.Linkedin, info.Twitter, info.Instagram,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting social info for user %s: %w", info.UserID, err)
	}
	return nil
}

// GetPreference returns the user's preference row, or ErrNotFound if it
// was never created.
func (db *DB) GetPreference(ctx context.Context, userID string) (*model.UserPreference, error) {
	var pref model.UserPreference

	err := db.conn.QueryRowContext(ctx,
		`SELECT user_id, theme, email_notifications, push_notifications, profile_visibility
		 FROM user_preferences WHERE user_id = ?`,
		userID,
	).Scan(&pref.UserID, &pref.Theme, &pref.EmailNotifications, &pref.PushNotifications, &pref.ProfileVisibility)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user preference", userID)
		}
		return nil, fmt.Errorf("sqlite: getting preference for user %s: %w", userID, err)
	}
	return &pref, nil
}

func (db *DB) UpsertPreference(ctx context.Context, pref *model.UserPreference) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO user_preferences (user_id, theme, email_notifications, push_notifications, profile_visibility)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			theme               = excluded.theme,
			email_notifications = excluded.email_notifications,
			push_notifications  = excluded.push_notifications,
			profile_visibility  = excluded.profile_visibility`,
		pref.UserID, pref.Theme, pref.EmailNotifications, pref.PushNotifications, pref.ProfileVisibility,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting preference for user %s: %w", pref.UserID, err)
	}
	return nil
}

// GetExtraInfo returns the user's extra-info row, or ErrNotFound if the
// user never onboarded.
func (db *DB) GetExtraInfo(ctx context.Context, userID string) (*model.UserExtraInfo, error) {
	var info model.UserExtraInfo
	var goalsJSON, interestsJSON string

	err := db.conn.QueryRowContext(ctx,
		`SELECT user_id, bio, location, primary_goals, experience_level,
		        areas_of_interest, dedication_hours, current_role, primary_language
		 FROM user_extra_info WHERE user_id = ?`,
		userID,
	).Scan(
		&info.UserID,
		&info.Bio,
		&info.Location,
		&goalsJSON,
		&info.ExperienceLevel,
		&interestsJSON,
		&info.DedicationHoursPerWeek,
		&info.CurrentRole,
		&info.PrimaryLanguage,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user extra info", userID)
		}
		return nil, fmt.Errorf("sqlite: getting extra info for user %s: %w", userID, err)
	}

	if err := json.Unmarshal([]byte(goalsJSON), &info.PrimaryGoals); err != nil {
		return nil, fmt.Errorf("sqlite: decoding primary goals for user %s: %w", userID, err)
	}
	if err := json.Unmarshal([]byte(interestsJSON), &info.AreasOfInterest); err != nil {
		return nil, fmt.Errorf("sqlite: decoding areas of interest for user %s: %w", userID, err)
	}
	return &info, nil
}

// CreateExtraInfo inserts the one-time onboarding record. A second insert
// for the same user returns a conflict error — re-onboarding must never
// silently duplicate or overwrite survey answers.
func (db *DB) CreateExtraInfo(ctx context.Context, info *model.UserExtraInfo) error {
	var exists int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_extra_info WHERE user_id = ?`, info.UserID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("sqlite: checking extra info for user %s: %w", info.UserID, err)
	}
	if exists > 0 {
		return apperror.Conflict("user extra info", "user has already onboarded")
	}

	goalsJSON, interestsJSON, err := encodeSets(info)
	if err != nil {
		return err
	}

	// The PRIMARY KEY on user_id backstops the existence check above: a
	// racing duplicate insert fails here instead of writing a second row.
	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO user_extra_info
			(user_id, bio, location, primary_goals, experience_level,
			 areas_of_interest, dedication_hours, current_role, primary_language)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		info.UserID,
		info.Bio,
		info.Location,
		goalsJSON,
		info.ExperienceLevel,
		interestsJSON,
		info.DedicationHoursPerWeek,
		info.CurrentRole,
		info.PrimaryLanguage,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting extra info for user %s: %w", info.UserID, err)
	}
	return nil
}

func (db *DB) UpsertExtraInfo(ctx context.Context, info *model.UserExtraInfo) error {
	goalsJSON, interestsJSON, err := encodeSets(info)
	if err != nil {
		return err
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO user_extra_info
			(user_id, bio, location, primary_goals, experience_level,
			 areas_of_interest, dedication_hours, current_role, primary_language)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			bio               = excluded.bio,
			location          = excluded.location,
			primary_goals     = excluded.primary_goals,
			experience_level  = excluded.experience_level,
			areas_of_interest = excluded.areas_of_interest,
			dedication_hours  = excluded.dedication_hours,
			current_role      = excluded.current_role,
			primary_language  = excluded.primary_language`,
		info.UserID,
		info.Bio,
		info.Location,
		goalsJSON,
		info.ExperienceLevel,
		interestsJSON,
		info.DedicationHoursPerWeek,
		info.CurrentRole,
		info.PrimaryLanguage,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting extra info for user %s: %w", info.UserID, err)
	}
	return nil
}

// encodeSets serialises the two string-set survey fields as JSON array
// text. A nil slice is stored as "[]" so reads never see SQL NULL.
func encodeSets(info *model.UserExtraInfo) (goals, interests string, err error) {
	g := info.PrimaryGoals
	if g == nil {
		g = []string{}
	}
	i := info.AreasOfInterest
	if i == nil {
		i = []string{}
	}

	goalsBytes, err := json.Marshal(g)
	if err != nil {
		return "", "", fmt.Errorf("sqlite: encoding primary goals for user %s: %w", info.UserID, err)
	}
	interestBytes, err := json.Marshal(i)
	if err != nil {
		return "", "", fmt.Errorf("sqlite: encoding areas of interest for user %s: %w", info.UserID, err)
	}
	return string(goalsBytes), string(interestBytes), nil
}
