// Package model defines the data structures used throughout the application.
package model

import "time"

// Theme and visibility values accepted by UserPreference.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"

	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

// Defaults applied when a UserPreference row is created lazily on first
// update. They are applied only on the create branch of the upsert — an
// update never resets a field the caller didn't send.
const (
	DefaultTheme             = ThemeDark
	DefaultVisibility        = VisibilityPublic
	DefaultEmailNotification = true
	DefaultPushNotification  = true
)

// User is the core account record.
//
// Email and username are UNIQUE in the store. PasswordHash is never
// serialized (`json:"-"`) and is additionally cleared by the profile
// service before any record leaves the service layer — belt and braces.
//
// GitHubID is zero for accounts that never linked a GitHub login. We keep
// our own xid primary key rather than GitHub's numbering so accounts work
// the same with or without OAuth.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	IsVerified   bool      `json:"isVerified"`
	GitHubID     int64     `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Identity is the four-field view returned by ResolveIdentity.
// Deliberately narrow: registration/auth flows only need an existence
// check, never the full record.
type Identity struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	IsVerified bool   `json:"isVerified"`
}

// PublicIdentity is what the unauthenticated username lookup exposes —
// no email, no role, no side-records.
type PublicIdentity struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Username   string `json:"username"`
	IsVerified bool   `json:"isVerified"`
}

// IdentityQuery selects a user by exactly one of internal ID or email.
type IdentityQuery struct {
	ID    string
	Email string
}

// SocialInfo holds a user's external profile links. All fields are
// optional; the row itself is created lazily on first update.
type SocialInfo struct {
	UserID    string `json:"-"`
	Github    string `json:"github"`
	Linkedin  string `json:"linkedin"`
	Twitter   string `json:"twitter"`
	Instagram string `json:"instagram"`
}

// UserPreference holds display and notification settings.
type UserPreference struct {
	UserID             string `json:"-"`
	Theme              string `json:"theme"`
	EmailNotifications bool   `json:"emailNotifications"`
	PushNotifications  bool   `json:"pushNotifications"`
	ProfileVisibility  string `json:"profileVisibility"`
}

// UserExtraInfo combines free-text profile fields (bio, location) with the
// one-time onboarding survey answers.
type UserExtraInfo struct {
	UserID                 string   `json:"-"`
	Bio                    string   `json:"bio"`
	Location               string   `json:"location"`
	PrimaryGoals           []string `json:"primaryGoals"`
	ExperienceLevel        string   `json:"experienceLevel"`
	AreasOfInterest        []string `json:"areasOfInterest"`
	DedicationHoursPerWeek int      `json:"dedicationHoursPerWeek"`
	CurrentRole            string   `json:"currentRole"`
	PrimaryLanguage        string   `json:"primaryProgrammingLanguage"`
}

// OnboardingSurvey is the validated payload for the one-time onboarding
// flow. Bio and location are not part of the survey — they arrive later
// through profile updates.
type OnboardingSurvey struct {
	PrimaryGoals           []string `json:"primaryGoals"`
	ExperienceLevel        string   `json:"experienceLevel"`
	AreasOfInterest        []string `json:"areasOfInterest"`
	DedicationHoursPerWeek int      `json:"dedicationHoursPerWeek"`
	CurrentRole            string   `json:"currentRole"`
	PrimaryLanguage        string   `json:"primaryProgrammingLanguage"`
}

// Profile is a user record plus the optionally included side-records.
// A relation that wasn't requested is nil and omitted from the JSON
// entirely — not serialized as an empty object.
type Profile struct {
	User
	SocialInfo     *SocialInfo     `json:"socialInfo,omitempty"`
	UserPreference *UserPreference `json:"userPreference,omitempty"`
	UserExtraInfo  *UserExtraInfo  `json:"userExtraInfo,omitempty"`
}

// ProfileInclude selects which side-records GetProfile joins in. Each flag
// independently controls one relation.
type ProfileInclude struct {
	SocialInfo     bool
	UserPreference bool
	UserExtraInfo  bool
}

// IncludeAll requests every optional relation.
func IncludeAll() ProfileInclude {
	return ProfileInclude{SocialInfo: true, UserPreference: true, UserExtraInfo: true}
}

// ProfileUpdate is a partial update. Pointer fields distinguish "set this
// value" from "leave it alone": nil retains the stored value, non-nil
// overrides it. Each non-nil sub-struct is upserted independently.
type ProfileUpdate struct {
	Name           *string               `json:"name"`
	Username       *string               `json:"username"`
	SocialInfo     *SocialInfoUpdate     `json:"socialInfo"`
	UserPreference *UserPreferenceUpdate `json:"userPreference"`
	UserExtraInfo  *UserExtraInfoUpdate  `json:"userExtraInfo"`
}

// SocialInfoUpdate is the partial form of SocialInfo.
type SocialInfoUpdate struct {
	Github    *string `json:"github"`
	Linkedin  *string `json:"linkedin"`
	Twitter   *string `json:"twitter"`
	Instagram *string `json:"instagram"`
}

// UserPreferenceUpdate is the partial form of UserPreference.
type UserPreferenceUpdate struct {
	Theme              *string `json:"theme"`
	EmailNotifications *bool   `json:"emailNotifications"`
	PushNotifications  *bool   `json:"pushNotifications"`
	ProfileVisibility  *string `json:"profileVisibility"`
}

// UserExtraInfoUpdate is the partial form of the updatable extra-info
// fields. Survey answers are write-once via Onboard and not updatable here.
type UserExtraInfoUpdate struct {
	Bio      *string `json:"bio"`
	Location *string `json:"location"`
}
