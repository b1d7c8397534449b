package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/sakif/starminder/internal/auth"
	"github.com/sakif/starminder/internal/handler"
	"github.com/sakif/starminder/internal/model"
	"github.com/sakif/starminder/internal/repository/sqlite"
	"github.com/sakif/starminder/internal/search"
	"github.com/sakif/starminder/internal/service"
)

const testUserHeader = "X-Test-User"

// testAPI is the JSON API wired to a real database, with authentication
// replaced by a header so tests can act as any user.
type testAPI struct {
	db       *sqlite.DB
	router   chi.Router
	index    *search.Index
	analyses *service.AnalysisService
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func fakeAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get(testUserHeader); id != "" {
			r = r.WithContext(auth.WithUserID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "handler.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	index, err := search.NewIndex()
	require.NoError(t, err)
	t.Cleanup(func() { index.Close() })

	logger := quietLogger()
	reminders := service.NewReminderService(db, logger)
	staging := service.NewStagingService(db, logger)
	analyses := service.NewAnalysisService(db, 0, logger)
	clusters := service.NewClusterService(db, logger)
	tags := service.NewTagService(db, db, logger)

	rh := handler.NewReminderHandler(reminders, staging, 2, logger)
	th := handler.NewTagHandler(tags, logger)
	sh := handler.NewStarHandler(reminders, analyses, clusters, logger)
	qh := handler.NewSearchHandler(index, logger)

	r := chi.NewRouter()
	r.Use(fakeAuth)
	r.Get("/api/reminders", rh.HandleList)
	r.Get("/api/reminders/{id}", rh.HandleGet)
	r.Get("/api/temp-stars", rh.HandleListTempStars)
	r.Post("/api/temp-stars/promote", rh.HandlePromote)
	r.Get("/api/tags", th.HandleList)
	r.Post("/api/tags", th.HandleCreate)
	r.Get("/api/stars/{id}/analysis", sh.HandleGetAnalysis)
	r.Put("/api/stars/{id}/cluster", sh.HandleAssignCluster)
	r.Get("/api/clusters/{clusterID}", sh.HandleClusterMembers)
	r.Get("/api/search", qh.HandleSearch)

	return &testAPI{db: db, router: r, index: index, analyses: analyses}
}

// do sends a request as userID ("" for anonymous) and returns the recorder.
func (a *testAPI) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(testUserHeader, userID)
	}
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

func (a *testAPI) seedUser(t *testing.T, githubID int64) *model.User {
	t.Helper()
	u := &model.User{GitHubID: githubID, Login: fmt.Sprintf("user%d", githubID)}
	require.NoError(t, a.db.Upsert(context.Background(), u))
	return u
}

// seedReminder creates a reminder for userID holding one star per name.
func (a *testAPI) seedReminder(t *testing.T, userID string, names ...string) []*model.Star {
	t.Helper()
	stars := make([]*model.Star, len(names))
	for i, n := range names {
		stars[i] = &model.Star{StarFields: model.StarFields{
			Provider:    "github",
			ProviderID:  "o/" + n,
			Owner:       "o",
			Name:        n,
			Description: ":sparkles: " + n,
			StarCount:   100 - i,
			RepoURL:     "https://github.com/o/" + n,
		}}
	}
	require.NoError(t, a.db.CreateReminder(context.Background(), &model.Reminder{UserID: userID}, stars))
	return stars
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), "body: %s", rr.Body.String())
	return v
}
