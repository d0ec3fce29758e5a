package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/progress-tracker/internal/auth"
	sqliteRepo "github.com/sakif/progress-tracker/internal/repository/sqlite"
	"github.com/sakif/progress-tracker/internal/service"
)

// testEnv wires the real services and handlers onto a router, backed by a
// throwaway database file. Requests go through the same middleware chain
// as production, so these tests cover routing, auth and the envelope
// format end to end.
type testEnv struct {
	router *chi.Mux
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqliteRepo.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	require.NoError(t, err)
	passwords := auth.NewPasswordServiceForTest(bcrypt.MinCost)

	userService := service.NewUserService(db, db, logger)
	sessionService := service.NewSessionService(db, logger)
	authService := service.NewAuthService(db, db, tokens, passwords, logger)

	userHandler := NewUserHandler(userService, logger)
	sessionHandler := NewSessionHandler(sessionService, logger)
	authHandler := NewAuthHandler(authService, nil, logger)

	r := chi.NewRouter()
	r.Post("/auth/register", authHandler.HandleRegister)
	r.Post("/auth/login", authHandler.HandleLogin)
	r.With(auth.OptionalAuth(tokens)).Post("/auth/logout", authHandler.HandleLogout)

	r.Get("/api/users/{username}", userHandler.HandleLookupUsername)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))

		r.Get("/api/me", authHandler.HandleMe)
		r.Get("/api/users/", userHandler.HandleGetProfile)
		r.Patch("/api/users/", userHandler.HandleUpdateProfile)
		r.Post("/api/users/onboard", userHandler.HandleOnboard)

		r.Get("/api/sessions/", sessionHandler.HandleList)
		r.Get("/api/sessions/{id}", sessionHandler.HandleGet)
		r.Delete("/api/sessions/{id}", sessionHandler.HandleDelete)
	})

	return &testEnv{router: r}
}

// do sends one request through the router. body may be nil, a raw string,
// or anything JSON-marshalable; cookie may be nil for anonymous requests.
func (e *testEnv) do(t *testing.T, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		encoded, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewBuffer(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// register creates an account through the API and returns its token
// cookie for use on protected routes.
func (e *testEnv) register(t *testing.T, name, email, username string) *http.Cookie {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/auth/register", map[string]string{
		"name":     name,
		"email":    email,
		"username": username,
		"password": "hunter2-secure",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, "register failed: %s", rec.Body.String())

	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.CookieName && c.Value != "" {
			return c
		}
	}
	t.Fatal("register did not set the token cookie")
	return nil
}

// login signs an existing account in and returns the fresh token cookie.
func (e *testEnv) login(t *testing.T, email string) *http.Cookie {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": "hunter2-secure",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, "login failed: %s", rec.Body.String())

	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.CookieName && c.Value != "" {
			return c
		}
	}
	t.Fatal("login did not set the token cookie")
	return nil
}

// decodeEnvelope parses a response body into the envelope, with Data left
// raw for the caller to unmarshal into the right shape.
type testEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   []ErrorDetail   `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) testEnvelope {
	t.Helper()

	var env testEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), "body: %s", rec.Body.String())
	return env
}
