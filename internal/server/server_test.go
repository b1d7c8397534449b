package server

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/starminder/internal/auth"
	"github.com/sakif/starminder/internal/config"
	"github.com/sakif/starminder/internal/model"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Port:                8080,
		DBPath:              filepath.Join(t.TempDir(), "nested", "server.db"),
		JWTSecret:           testSecret,
		GitHubClientID:      config.PlaceholderClientID,
		GitHubSecret:        config.PlaceholderSecret,
		GitHubCallbackURL:   "http://localhost:8080/auth/github/callback",
		Fallbacks:           []string{"GITHUB_CLIENT_ID", "GITHUB_SECRET"},
		EmbeddingDimensions: 3072,
		AnalysisWorkers:     1,
		ReminderSize:        5,
		SearchRefresh:       time.Minute,
	}
}

func newTestServer(t *testing.T, cfg *config.Config, logger *slog.Logger) *Server {
	t.Helper()
	s, err := New(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		s.index.Close()
		s.db.Close()
	})
	return s
}

func get(s *Server, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func TestServer_Routes(t *testing.T) {
	var logs bytes.Buffer
	s := newTestServer(t, testConfig(t), slog.New(slog.NewTextHandler(&logs, nil)))

	rr := get(s, "/healthz", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok","searchableStars":0}`, rr.Body.String())

	assert.Equal(t, http.StatusOK, get(s, "/api/tags", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(s, "/api/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(s, "/api/reminders", "not-a-jwt").Code)

	user := &model.User{GitHubID: 9, Login: "octo"}
	require.NoError(t, s.db.Upsert(context.Background(), user))
	tokens, err := auth.NewTokenService(testSecret)
	require.NoError(t, err)
	token, err := tokens.Generate(user.ID)
	require.NoError(t, err)

	rr = get(s, "/api/me", token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"login":"octo"`)

	rr = get(s, "/api/reminders", token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	rr = get(s, "/auth/github/login", "")
	assert.Equal(t, http.StatusTemporaryRedirect, rr.Code)
	assert.Contains(t, rr.Header().Get("Location"), "client_id=dummy_client_id")

	assert.Contains(t, logs.String(), "GitHub login will NOT work")
	assert.Contains(t, logs.String(), "userID="+user.ID, "request log carries the user")
}

func TestServer_StoredSocialAppWins(t *testing.T) {
	cfg := testConfig(t)

	// First boot creates the schema; store real credentials like setup-social-app would.
	s, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	app := &model.SocialApp{Provider: auth.ProviderGitHub, Name: "GitHub", ClientID: "Iv1.stored", Secret: "s"}
	_, err = s.db.UpsertSocialApp(context.Background(), app)
	require.NoError(t, err)
	s.index.Close()
	s.db.Close()

	s2 := newTestServer(t, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	rr := get(s2, "/auth/github/login", "")
	assert.Contains(t, rr.Header().Get("Location"), "client_id=Iv1.stored")
}

func TestServer_AuthDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.JWTSecret = ""
	var logs bytes.Buffer
	s := newTestServer(t, cfg, slog.New(slog.NewTextHandler(&logs, nil)))

	assert.Equal(t, http.StatusOK, get(s, "/api/tags", "").Code)
	assert.Equal(t, http.StatusNotFound, get(s, "/api/me", "").Code)
	assert.Equal(t, http.StatusNotFound, get(s, "/auth/github/login", "").Code)
	assert.True(t, strings.Contains(logs.String(), "JWT_SECRET not set"))
}
