package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"github.com/sakif/progress-tracker/internal/apperror"
	"github.com/sakif/progress-tracker/internal/model"
)

// mockStore is an in-memory implementation of every repository interface.
// It copies records on the way in and out so tests can't accidentally
// share state with the service through a pointer.
type mockStore struct {
	users        map[string]*model.User
	social       map[string]*model.SocialInfo
	prefs        map[string]*model.UserPreference
	extra        map[string]*model.UserExtraInfo
	sessions     map[string]*model.Session
	sessionOrder []string
	nextID       int
}

func newMockStore() *mockStore {
	return &mockStore{
		users:    make(map[string]*model.User),
		social:   make(map[string]*model.SocialInfo),
		prefs:    make(map[string]*model.UserPreference),
		extra:    make(map[string]*model.UserExtraInfo),
		sessions: make(map[string]*model.Session),
	}
}

func (m *mockStore) genID(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s-%d", prefix, m.nextID)
}

func (m *mockStore) Create(_ context.Context, user *model.User) error {
	now := time.Now()
	user.ID = m.genID("user")
	if user.Role == "" {
		user.Role = "user"
	}
	user.CreatedAt = now
	user.UpdatedAt = now

	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *mockStore) GetByID(_ context.Context, id string) (*model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (m *mockStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (m *mockStore) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (m *mockStore) GetByGitHubID(_ context.Context, githubID int64) (*model.User, error) {
	for _, u := range m.users {
		if u.GitHubID == githubID {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", fmt.Sprintf("github:%d", githubID))
}

func (m *mockStore) Update(_ context.Context, user *model.User) error {
	stored, ok := m.users[user.ID]
	if !ok {
		return apperror.NotFound("user", user.ID)
	}
	stored.Name = user.Name
	stored.Username = user.Username
	stored.IsVerified = user.IsVerified
	stored.UpdatedAt = time.Now()
	return nil
}

func (m *mockStore) UpsertByGitHubID(ctx context.Context, user *model.User) error {
	for _, u := range m.users {
		if u.GitHubID == user.GitHubID {
			u.Name = user.Name
			u.Email = user.Email
			u.UpdatedAt = time.Now()
			*user = *u
			return nil
		}
	}
	return m.Create(ctx, user)
}

func (m *mockStore) GetSocialInfo(_ context.Context, userID string) (*model.SocialInfo, error) {
	info, ok := m.social[userID]
	if !ok {
		return nil, apperror.NotFound("social info", userID)
	}
	copied := *info
	return &copied, nil
}

func (m *mockStore) UpsertSocialInfo(_ context.Context, info *model.SocialInfo) error {
	stored := *info
	m.social[info.UserID] = &stored
	return nil
}

func (m *mockStore) GetPreference(_ context.Context, userID string) (*model.UserPreference, error) {
	pref, ok := m.prefs[userID]
	if !ok {
		return nil, apperror.NotFound("user preference", userID)
	}
	copied := *pref
	return &copied, nil
}

func (m *mockStore) UpsertPreference(_ context.Context, pref *model.UserPreference) error {
	stored := *pref
	m.prefs[pref.UserID] = &stored
	return nil
}

func (m *mockStore) GetExtraInfo(_ context.Context, userID string) (*model.UserExtraInfo, error) {
	info, ok := m.extra[userID]
	if !ok {
		return nil, apperror.NotFound("user extra info", userID)
	}
	copied := *info
	return &copied, nil
}

func (m *mockStore) CreateExtraInfo(_ context.Context, info *model.UserExtraInfo) error {
	if _, ok := m.extra[info.UserID]; ok {
		return apperror.Conflict("user extra info", "user has already onboarded")
	}
	stored := *info
	m.extra[info.UserID] = &stored
	return nil
}

func (m *mockStore) UpsertExtraInfo(_ context.Context, info *model.UserExtraInfo) error {
	stored := *info
	m.extra[info.UserID] = &stored
	return nil
}

func (m *mockStore) CreateSession(_ context.Context, session *model.Session) error {
	session.ID = m.genID("session")
	session.CreatedAt = time.Now()

	stored := *session
	m.sessions[session.ID] = &stored
	m.sessionOrder = append(m.sessionOrder, session.ID)
	return nil
}

func (m *mockStore) GetSessionByID(_ context.Context, id string) (*model.Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, apperror.NotFound("session", id)
	}
	copied := *s
	return &copied, nil
}

func (m *mockStore) ListSessionsByUser(_ context.Context, userID string) ([]model.Session, error) {
	sessions := []model.Session{}
	for _, id := range m.sessionOrder {
		if s, ok := m.sessions[id]; ok && s.UserID == userID {
			sessions = append(sessions, *s)
		}
	}
	return sessions, nil
}

func (m *mockStore) DeleteSession(_ context.Context, id string) error {
	if _, ok := m.sessions[id]; !ok {
		return apperror.NotFound("session", id)
	}
	delete(m.sessions, id)
	return nil
}

// sessionRepo adapts mockStore's session methods to the repository
// interface. The method names clash with the user methods otherwise.
type sessionRepo struct{ *mockStore }

func (r sessionRepo) Create(ctx context.Context, s *model.Session) error {
	return r.CreateSession(ctx, s)
}
func (r sessionRepo) GetByID(ctx context.Context, id string) (*model.Session, error) {
	return r.GetSessionByID(ctx, id)
}
func (r sessionRepo) ListByUser(ctx context.Context, userID string) ([]model.Session, error) {
	return r.ListSessionsByUser(ctx, userID)
}
func (r sessionRepo) Delete(ctx context.Context, id string) error {
	return r.DeleteSession(ctx, id)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func newTestUserService() (*UserService, *mockStore) {
	store := newMockStore()
	return NewUserService(store, store, testLogger()), store
}

func mustCreateUser(t *testing.T, store *mockStore, name, email, username string) *model.User {
	t.Helper()
	u := &model.User{Name: name, Email: email, Username: username, PasswordHash: "stored-hash"}
	if err := store.Create(context.Background(), u); err != nil {
		t.Fatalf("creating user: %v", err)
	}
	return u
}

func validSurvey() model.OnboardingSurvey {
	return model.OnboardingSurvey{
		PrimaryGoals:           []string{"interviews", "contests"},
		ExperienceLevel:        "intermediate",
		AreasOfInterest:        []string{"graphs", "dp"},
		DedicationHoursPerWeek: 10,
		CurrentRole:            "student",
		PrimaryLanguage:        "go",
	}
}

func TestResolveIdentity(t *testing.T) {
	svc, store := newTestUserService()
	ctx := context.Background()
	u := mustCreateUser(t, store, "Ada", "ada@example.com", "ada")

	byID, err := svc.ResolveIdentity(ctx, model.IdentityQuery{ID: u.ID})
	if err != nil {
		t.Fatalf("ResolveIdentity(by id) error = %v", err)
	}
	if byID.ID != u.ID || byID.Email != "ada@example.com" || byID.Name != "Ada" {
		t.Errorf("ResolveIdentity(by id) = %+v", byID)
	}

	byEmail, err := svc.ResolveIdentity(ctx, model.IdentityQuery{Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("ResolveIdentity(by email) error = %v", err)
	}
	if byEmail.ID != u.ID {
		t.Errorf("ResolveIdentity(by email) ID = %q, want %q", byEmail.ID, u.ID)
	}
}

func TestResolveIdentity_QueryValidation(t *testing.T) {
	svc, store := newTestUserService()
	ctx := context.Background()
	u := mustCreateUser(t, store, "Ada", "ada@example.com", "ada")

	if _, err := svc.ResolveIdentity(ctx, model.IdentityQuery{}); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("ResolveIdentity(empty query) error = %v, want ErrValidation", err)
	}

	both := model.IdentityQuery{ID: u.ID, Email: u.Email}
	if _, err := svc.ResolveIdentity(ctx, both); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("ResolveIdentity(both set) error = %v, want ErrValidation", err)
	}

	if _, err := svc.ResolveIdentity(ctx, model.IdentityQuery{ID: "missing"}); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("ResolveIdentity(unknown id) error = %v, want ErrNotFound", err)
	}
}

func TestLookupByUsername(t *testing.T) {
	svc, store := newTestUserService()
	ctx := context.Background()
	u := mustCreateUser(t, store, "Ada", "ada@example.com", "ada")

	// No preference row yet — defaults to visible.
	got, err := svc.LookupByUsername(ctx, "ada")
	if err != nil {
		t.Fatalf("LookupByUsername() error = %v", err)
	}
	if got.ID != u.ID || got.Username != "ada" {
		t.Errorf("LookupByUsername() = %+v", got)
	}

	if _, err := svc.LookupByUsername(ctx, "ghost"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("LookupByUsername(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestLookupByUsername_PrivateProfileHidden(t *testing.T) {
	svc, store := newTestUserService()
	ctx := context.Background()
	u := mustCreateUser(t, store, "Ada", "ada@example.com", "ada")

	store.prefs[u.ID] = &model.UserPreference{
		UserID:            u.ID,
		Theme:             model.DefaultTheme,
		ProfileVisibility: model.VisibilityPrivate,
	}

	// A private profile answers exactly like a missing username.
	if _, err := svc.LookupByUsername(ctx, "ada"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("LookupByUsername(private) error = %v, want ErrNotFound", err)
	}
}

func TestGetProfile_IncludesAreIndependent(t *testing.T) {
	svc, store := newTestUserService()
	ctx := context.Background()
	u := mustCreateUser(t, store, "Ada", "ada@example.com", "ada")

	store.social[u.ID] = &model.SocialInfo{UserID: u.ID, Github: "ada"}
	store.prefs[u.ID] = &model.UserPreference{UserID: u.ID, Theme: model.ThemeLight}

	bare, err := svc.GetProfile(ctx, u.ID, model.ProfileInclude{})
	if err != nil {
		t.Fatalf("GetProfile(no includes) error = %v", err)
	}
	if bare.SocialInfo != nil || bare.UserPreference != nil || bare.UserExtraInfo != nil {
		t.Errorf("GetProfile(no includes) joined relations: %+v", bare)
	}

	full, err := svc.GetProfile(ctx, u.ID, model.IncludeAll())
	if err != nil {
		t.Fatalf("GetProfile(all) error = %v", err)
	}
	if full.SocialInfo == nil || full.SocialInfo.Github != "ada" {
		t.Errorf("GetProfile(all) SocialInfo = %+v", full.SocialInfo)
	}
	if full.UserPreference == nil || full.UserPreference.Theme != model.ThemeLight {
		t.Errorf("GetProfile(all) UserPreference = %+v", full.UserPreference)
	}
	// Requested but never created: stays nil instead of erroring.
	if full.UserExtraInfo != nil {
		t.Errorf("GetProfile(all) UserExtraInfo = %+v, want nil", full.UserExtraInfo)
	}
}

func TestGetProfile_NeverExposesPasswordHash(t *testing.T) {
	svc, store := newTestUserService()
	u := mustCreateUser(t, store, "Ada", "ada@example.com", "ada")

	profile, err := svc.GetProfile(context.Background(), u.ID, model.IncludeAll())
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}
	if profile.PasswordHash != "" {
		t.Error("GetProfile() leaked the password hash")
	}
}

func TestGetProfile_UnknownUser(t *testing.T) {
	svc, _ := newTestUserService()

	if _, err := svc.GetProfile(context.Background(), "missing", model.IncludeAll()); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetProfile(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestOnboard_PersistsTrimmedSurvey(t *testing.T) {
	svc, store := newTestUserService()
	ctx := context.Background()
	u := mustCreateUser(t, store, "Ada", "ada@example.com", "ada")

	survey := model.OnboardingSurvey{
		PrimaryGoals:           []string{"  interviews ", "contests"},
		ExperienceLevel:        "  intermediate  ",
		AreasOfInterest:        []string{" graphs "},
		DedicationHoursPerWeek: 12,
		CurrentRole:            " student ",
		PrimaryLanguage:        " go ",
	}

	info, err := svc.Onboard(ctx, u.ID, survey)
	if err != nil {
		t.Fatalf("Onboard() error = %v", err)
	}

	if !reflect.DeepEqual(info.PrimaryGoals, []string{"interviews", "contests"}) {
		t.Errorf("PrimaryGoals = %v", info.PrimaryGoals)
	}
	if info.ExperienceLevel != "intermediate" || info.CurrentRole != "student" || info.PrimaryLanguage != "go" {
		t.Errorf("survey fields not trimmed: %+v", info)
	}

	stored, err := store.GetExtraInfo(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetExtraInfo() error = %v", err)
	}
	if stored.DedicationHoursPerWeek != 12 || stored.ExperienceLevel != "intermediate" {
		t.Errorf("survey not persisted: %+v", stored)
	}
}

func TestOnboard_Validation(t *testing.T) {
	svc, store := newTestUserService()
	ctx := context.Background()
	u := mustCreateUser(t, store, "Ada", "ada@example.com", "ada")

	tests := []struct {
		name   string
		mutate func(*model.OnboardingSurvey)
	}{
		{"empty goals", func(s *model.OnboardingSurvey) { s.PrimaryGoals = nil }},
		{"blank goal entry", func(s *model.OnboardingSurvey) { s.PrimaryGoals = []string{"interviews", "  "} }},
		{"empty interests", func(s *model.OnboardingSurvey) { s.AreasOfInterest = []string{} }},
		{"missing experience", func(s *model.OnboardingSurvey) { s.ExperienceLevel = " " }},
		{"missing role", func(s *model.OnboardingSurvey) { s.CurrentRole = "" }},
		{"missing language", func(s *model.OnboardingSurvey) { s.PrimaryLanguage = "" }},
		{"zero hours", func(s *model.OnboardingSurvey) { s.DedicationHoursPerWeek = 0 }},
		{"too many hours", func(s *model.OnboardingSurvey) { s.DedicationHoursPerWeek = 169 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			survey := validSurvey()
			tt.mutate(&survey)

			if _, err := svc.Onboard(ctx, u.ID, survey); !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("Onboard() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestOnboard_TwiceConflicts(t *testing.T) {
	svc, store := newTestUserService()
	ctx := context.Background()
	u := mustCreateUser(t, store, "Ada", "ada@example.com", "ada")

	if _, err := svc.Onboard(ctx, u.ID, validSurvey()); err != nil {
		t.Fatalf("Onboard() first: %v", err)
	}
	if _, err := svc.Onboard(ctx, u.ID, validSurvey()); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("Onboard() second error = %v, want ErrConflict", err)
	}
}

func TestOnboard_UnknownUser(t *testing.T) {
	svc, _ := newTestUserService()

	if _, err := svc.Onboard(context.Background(), "missing", validSurvey()); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Onboard(unknown user) error = %v, want ErrNotFound", err)
	}
}

func TestUpdateProfile_EmptyUpdateChangesNothing(t *testing.T) {
	svc, store := newTestUserService()
	ctx := context.Background()
	u := mustCreateUser(t, store, "Ada", "ada@example.com", "ada")

	profile, err := svc.UpdateProfile(ctx, u.ID, model.ProfileUpdate{})
	if err != nil {
		t.Fatalf("UpdateProfile(empty) error = %v", err)
	}

	if profile.Name != "Ada" || profile.Username != "ada" {
		t.Errorf("empty update changed user fields: %+v", profile.User)
	}
	// Untouched relations are never created by an empty update.
	if len(store.social) != 0 || len(store.prefs) != 0 || len(store.extra) != 0 {
		t.Error("empty update created side-records")
	}
}

func TestUpdateProfile_TopLevelFields(t *testing.T) {
	svc, store := newTestUserService()
	ctx := context.Background()
	u := mustCreateUser(t, store, "Ada", "ada@example.com", "ada")

	profile, err := svc.UpdateProfile(ctx, u.ID, model.ProfileUpdate{
		Name: strPtr("  Ada Lovelace  "),
	})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}

	if profile.Name != "Ada Lovelace" {
		t.Errorf("Name = %q, want trimmed %q", profile.Name, "Ada Lovelace")
	}
	// Username wasn't in the update and must be retained.
	if profile.Username != "ada" {
		t.Errorf("Username = %q, want retained %q", profile.Username, "ada")
	}
}

func TestUpdateProfile_FieldValidation(t *testing.T) {
	svc, store := newTestUserService()
	ctx := context.Background()
	u := mustCreateUser(t, store, "Ada", "ada@example.com", "ada")

	long := make([]byte, MaxBioLength+1)
	for i := range long {
		long[i] = 'a'
	}

	tests := []struct {
		name   string
		update model.ProfileUpdate
	}{
		{"blank name", model.ProfileUpdate{Name: strPtr("   ")}},
		{"blank username", model.ProfileUpdate{Username: strPtr("")}},
		{"bad theme", model.ProfileUpdate{UserPreference: &model.UserPreferenceUpdate{Theme: strPtr("solarized")}}},
		{"bad visibility", model.ProfileUpdate{UserPreference: &model.UserPreferenceUpdate{ProfileVisibility: strPtr("friends")}}},
		{"bio too long", model.ProfileUpdate{UserExtraInfo: &model.UserExtraInfoUpdate{Bio: strPtr(string(long))}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.UpdateProfile(ctx, u.ID, tt.update); !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("UpdateProfile() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestUpdateProfile_PreferenceCreatedWithDefaults(t *testing.T) {
	svc, store := newTestUserService()
	ctx := context.Background()
	u := mustCreateUser(t, store, "Ada", "ada@example.com", "ada")

	// First touch sends only one field; the rest come from defaults.
	profile, err := svc.UpdateProfile(ctx, u.ID, model.ProfileUpdate{
		UserPreference: &model.UserPreferenceUpdate{EmailNotifications: boolPtr(false)},
	})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}

	pref := profile.UserPreference
	if pref == nil {
		t.Fatal("UserPreference was not created")
	}
	if pref.EmailNotifications {
		t.Error("EmailNotifications = true, want the sent value false")
	}
	if pref.Theme != model.DefaultTheme {
		t.Errorf("Theme = %q, want default %q", pref.Theme, model.DefaultTheme)
	}
	if pref.ProfileVisibility != model.DefaultVisibility {
		t.Errorf("ProfileVisibility = %q, want default %q", pref.ProfileVisibility, model.DefaultVisibility)
	}
	if !pref.PushNotifications {
		t.Error("PushNotifications = false, want default true")
	}
}

func TestUpdateProfile_MergeRetainsUnsetFields(t *testing.T) {
	svc, store := newTestUserService()
	ctx := context.Background()
	u := mustCreateUser(t, store, "Ada", "ada@example.com", "ada")

	store.social[u.ID] = &model.SocialInfo{UserID: u.ID, Github: "ada", Twitter: "ada_l"}

	profile, err := svc.UpdateProfile(ctx, u.ID, model.ProfileUpdate{
		SocialInfo: &model.SocialInfoUpdate{Linkedin: strPtr("ada-lovelace")},
	})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}

	info := profile.SocialInfo
	if info.Linkedin != "ada-lovelace" {
		t.Errorf("Linkedin = %q, want %q", info.Linkedin, "ada-lovelace")
	}
	if info.Github != "ada" || info.Twitter != "ada_l" {
		t.Errorf("unset fields not retained: %+v", info)
	}
}

func TestUpdateProfile_BioOnlyLeavesSurveyIntact(t *testing.T) {
	svc, store := newTestUserService()
	ctx := context.Background()
	u := mustCreateUser(t, store, "Ada", "ada@example.com", "ada")

	if _, err := svc.Onboard(ctx, u.ID, validSurvey()); err != nil {
		t.Fatalf("Onboard() error = %v", err)
	}

	profile, err := svc.UpdateProfile(ctx, u.ID, model.ProfileUpdate{
		UserExtraInfo: &model.UserExtraInfoUpdate{Bio: strPtr("I like graphs.")},
	})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}

	extra := profile.UserExtraInfo
	if extra.Bio != "I like graphs." {
		t.Errorf("Bio = %q", extra.Bio)
	}
	if extra.ExperienceLevel != "intermediate" || extra.DedicationHoursPerWeek != 10 {
		t.Errorf("survey answers were disturbed: %+v", extra)
	}
	if !reflect.DeepEqual(extra.PrimaryGoals, []string{"interviews", "contests"}) {
		t.Errorf("PrimaryGoals = %v", extra.PrimaryGoals)
	}
}

func TestUpdateProfile_UnknownUser(t *testing.T) {
	svc, _ := newTestUserService()

	_, err := svc.UpdateProfile(context.Background(), "missing", model.ProfileUpdate{Name: strPtr("x")})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpdateProfile(unknown) error = %v, want ErrNotFound", err)
	}
}
