package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/sakif/starminder/internal/apperror"
	"github.com/sakif/starminder/internal/model"
	"github.com/sakif/starminder/internal/repository"
	"github.com/sakif/starminder/internal/repository/sqlite"
)

func seedStarID(t *testing.T, db *sqlite.DB, name string) string {
	t.Helper()
	user := seedUser(t, db, int64(len(name))+1000)
	star := &model.Star{StarFields: fields("o", name, 1)}
	if err := db.CreateReminder(context.Background(), &model.Reminder{UserID: user.ID}, []*model.Star{star}); err != nil {
		t.Fatalf("seeding star: %v", err)
	}
	return star.ID
}

func vector(n int, seed float32) []float32 {
	v := make([]float32, n)
	for i := range v {
		v[i] = seed + float32(i)/float32(n)
	}
	return v
}

func TestRecordFetch_ThenAnalysis_Complete(t *testing.T) {
	db := newTestDB(t)
	svc := NewAnalysisService(db, 8, quietLogger())
	ctx := context.Background()
	starID := seedStarID(t, db, "repo")

	a, err := svc.RecordFetch(ctx, starID, "# Hello", nil)
	if err != nil {
		t.Fatalf("RecordFetch() error = %v", err)
	}
	if a.State() != model.StateFetchAttempted {
		t.Errorf("State() after fetch = %q", a.State())
	}

	commit := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a, err = svc.RecordAnalysis(ctx, starID, AnalysisResult{
		Version:              "text-embedding-3-large",
		ReadmeEmbedding:      vector(8, 1),
		DescriptionEmbedding: vector(8, -1),
		PriorityScore:        0.75,
		HealthScore:          0.9,
		Language:             "Go",
		LastCommitDate:       &commit,
	}, nil)
	if err != nil {
		t.Fatalf("RecordAnalysis() error = %v", err)
	}
	if a.State() != model.StateComplete {
		t.Errorf("State() after analysis = %q, want complete", a.State())
	}

	stored, err := svc.Get(ctx, starID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	readme, desc, err := svc.Embeddings(stored)
	if err != nil {
		t.Fatalf("Embeddings() error = %v", err)
	}
	want := vector(8, 1)
	for i := range want {
		if math.Float32bits(readme[i]) != math.Float32bits(want[i]) {
			t.Fatalf("readme[%d] = %v, want %v", i, readme[i], want[i])
		}
	}
	if len(desc) != 8 {
		t.Errorf("description embedding has %d dims, want 8", len(desc))
	}
	if stored.ReadmeContent == nil || *stored.ReadmeContent != "# Hello" {
		t.Errorf("ReadmeContent = %v", stored.ReadmeContent)
	}
	if stored.LastCommitDate == nil || !stored.LastCommitDate.Equal(commit) {
		t.Errorf("LastCommitDate = %v, want %v", stored.LastCommitDate, commit)
	}
}

func TestRecordFetch_FailureKeepsEvidence(t *testing.T) {
	db := newTestDB(t)
	svc := NewAnalysisService(db, 0, quietLogger())
	ctx := context.Background()
	starID := seedStarID(t, db, "repo")

	if _, err := svc.RecordFetch(ctx, starID, "", errors.New("404 Not Found")); err != nil {
		t.Fatalf("RecordFetch() error = %v", err)
	}
	a, err := svc.RecordAnalysis(ctx, starID, AnalysisResult{Version: "v1"}, errors.New("no readme"))
	if err != nil {
		t.Fatalf("RecordAnalysis() error = %v", err)
	}

	if !a.FetchAttempted || !a.AnalysisAttempted {
		t.Errorf("flags = fetch %v analysis %v, want both true", a.FetchAttempted, a.AnalysisAttempted)
	}
	if !a.Failed() || a.State() == model.StateComplete {
		t.Errorf("analysis with errors reported as %q", a.State())
	}
	if a.AnalysisError == nil || *a.AnalysisError != "no readme" {
		t.Errorf("AnalysisError = %v", a.AnalysisError)
	}
}

func TestRecordAnalysis_Validation(t *testing.T) {
	db := newTestDB(t)
	svc := NewAnalysisService(db, 8, quietLogger())
	starID := seedStarID(t, db, "repo")

	tests := []struct {
		name string
		res  AnalysisResult
	}{
		{"wrong dimensions", AnalysisResult{ReadmeEmbedding: vector(7, 0), HealthScore: 0.5}},
		{"health above one", AnalysisResult{HealthScore: 1.5}},
		{"NaN priority", AnalysisResult{PriorityScore: math.NaN(), HealthScore: 0.5}},
		{"long language", AnalysisResult{Language: string(make([]byte, MaxLanguageLength+1)), HealthScore: 0.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RecordAnalysis(context.Background(), starID, tt.res, nil)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("RecordAnalysis() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestAnalysisListByPriority(t *testing.T) {
	db := newTestDB(t)
	svc := NewAnalysisService(db, 0, quietLogger())
	ctx := context.Background()

	for _, tc := range []struct {
		name  string
		score float64
	}{{"a", 0.1}, {"bb", 0.8}, {"ccc", 0.4}} {
		starID := seedStarID(t, db, tc.name)
		if _, err := svc.RecordAnalysis(ctx, starID, AnalysisResult{PriorityScore: tc.score, HealthScore: 0.5}, nil); err != nil {
			t.Fatalf("RecordAnalysis() error = %v", err)
		}
	}

	list, err := svc.ListByPriority(ctx, repository.ListOptions{})
	if err != nil {
		t.Fatalf("ListByPriority() error = %v", err)
	}
	if len(list) != 3 || list[0].PriorityScore != 0.8 || list[2].PriorityScore != 0.1 {
		t.Errorf("ListByPriority() = %v", list)
	}
}

func TestAnalysisGet_NotFound(t *testing.T) {
	svc := NewAnalysisService(newTestDB(t), 0, quietLogger())
	if _, err := svc.Get(context.Background(), "missing"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}
