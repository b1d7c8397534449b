// Package pipeline runs analysis over stars that have not been analyzed yet.
//
// For each star it fetches the README and records the outcome, embeds the
// README and description, lets an optional Scorer set priority and health,
// and records the analysis outcome. Once every star is done an optional
// Clusterer groups the README vectors and each star's assignment is stored.
//
// A failure on one star is recorded on that star's analysis and the run
// moves on. Only storage failures stop the run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/starminder/internal/apperror"
	"github.com/sakif/starminder/internal/github"
	"github.com/sakif/starminder/internal/model"
	"github.com/sakif/starminder/internal/service"
)

const (
	DefaultWorkers = 4
	DefaultBatch   = 100

	// maxEmbedChars keeps README text comfortably under embedding model
	// input limits.
	maxEmbedChars = 24000
)

// ErrNoReadme is recorded as the fetch error for repositories without a README.
var ErrNoReadme = errors.New("repository has no README")

type StarSource interface {
	ListStarsNeedingAnalysis(ctx context.Context, limit int) ([]model.Star, error)
}

type ReadmeFetcher interface {
	FetchReadme(ctx context.Context, owner, name string) (string, error)
}

// RepoInspector supplies language and last-push time. Optional.
type RepoInspector interface {
	Repository(ctx context.Context, owner, name string) (*github.Repository, error)
}

type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// Scorer sets PriorityScore and HealthScore on an analysis result.
// Scoring policy lives outside this module.
type Scorer interface {
	Score(ctx context.Context, star model.Star, res *service.AnalysisResult) error
}

// Assignment places one star in a cluster.
type Assignment struct {
	ClusterID int
	Distance  float64
}

// Clusterer groups README vectors, keyed by star ID.
type Clusterer interface {
	Cluster(ctx context.Context, vectors map[string][]float32) (map[string]Assignment, error)
}

// Recorder stores fetch and analysis outcomes. Satisfied by *service.AnalysisService.
type Recorder interface {
	RecordFetch(ctx context.Context, starID, readme string, fetchErr error) (*model.StarAnalysis, error)
	RecordAnalysis(ctx context.Context, starID string, res service.AnalysisResult, analysisErr error) (*model.StarAnalysis, error)
}

// Assigner stores cluster assignments. Satisfied by *service.ClusterService.
type Assigner interface {
	Assign(ctx context.Context, starID string, clusterID int, distance float64) (*model.ClusterAssignment, error)
}

// Runner wires the collaborators. Stars, Fetcher, Embedder and Analyses
// are required; the rest may be nil.
type Runner struct {
	Stars     StarSource
	Fetcher   ReadmeFetcher
	Inspector RepoInspector
	Embedder  Embedder
	Scorer    Scorer
	Clusterer Clusterer
	Analyses  Recorder
	Clusters  Assigner

	Workers int
	Logger  *slog.Logger
}

// Stats summarises one Run.
type Stats struct {
	Processed      int64
	FetchFailed    int64
	Analyzed       int64
	AnalysisFailed int64
	Clustered      int64
}

type counters struct {
	processed, fetchFailed, analyzed, analysisFailed, clustered atomic.Int64
}

func (c *counters) stats() Stats {
	return Stats{
		Processed:      c.processed.Load(),
		FetchFailed:    c.fetchFailed.Load(),
		Analyzed:       c.analyzed.Load(),
		AnalysisFailed: c.analysisFailed.Load(),
		Clustered:      c.clustered.Load(),
	}
}

// Run analyzes up to limit stars (DefaultBatch when limit <= 0).
func (r *Runner) Run(ctx context.Context, limit int) (Stats, error) {
	if limit <= 0 {
		limit = DefaultBatch
	}
	workers := r.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	stars, err := r.Stars.ListStarsNeedingAnalysis(ctx, limit)
	if err != nil {
		return Stats{}, fmt.Errorf("pipeline: listing stars: %w", err)
	}
	if len(stars) == 0 {
		r.Logger.InfoContext(ctx, "no stars need analysis")
		return Stats{}, nil
	}
	r.Logger.InfoContext(ctx, "analyzing stars", slog.Int("count", len(stars)), slog.Int("workers", workers))

	var (
		c       counters
		mu      sync.Mutex
		vectors = make(map[string][]float32)
		start   = time.Now()
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, star := range stars {
		g.Go(func() error {
			vec, err := r.analyze(gCtx, star, &c)
			if err != nil {
				return err
			}
			if vec != nil {
				mu.Lock()
				vectors[star.ID] = vec
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return c.stats(), err
	}

	if r.Clusterer != nil && r.Clusters != nil && len(vectors) > 0 {
		if err := r.cluster(ctx, vectors, &c); err != nil {
			return c.stats(), err
		}
	}

	stats := c.stats()
	r.Logger.InfoContext(ctx, "analysis run finished",
		slog.Int64("processed", stats.Processed),
		slog.Int64("fetchFailed", stats.FetchFailed),
		slog.Int64("analyzed", stats.Analyzed),
		slog.Int64("analysisFailed", stats.AnalysisFailed),
		slog.Int64("clustered", stats.Clustered),
		slog.Duration("took", time.Since(start)),
	)
	return stats, nil
}

// analyze handles one star and returns its README vector, if any. The
// returned error is a storage failure and stops the run.
func (r *Runner) analyze(ctx context.Context, star model.Star, c *counters) ([]float32, error) {
	defer c.processed.Add(1)
	log := r.Logger.With(slog.String("starID", star.ID), slog.String("repo", star.FullName()))

	readme, fetchErr := r.Fetcher.FetchReadme(ctx, star.Owner, star.Name)
	if errors.Is(fetchErr, apperror.ErrNotFound) {
		fetchErr = ErrNoReadme
	}
	if fetchErr != nil {
		readme = ""
		c.fetchFailed.Add(1)
	}
	if _, err := r.Analyses.RecordFetch(ctx, star.ID, readme, fetchErr); err != nil {
		return nil, err
	}

	res := service.AnalysisResult{
		Version:     r.Embedder.Model(),
		HealthScore: model.DefaultHealthScore,
	}
	if r.Inspector != nil {
		repo, err := r.Inspector.Repository(ctx, star.Owner, star.Name)
		if err != nil {
			log.WarnContext(ctx, "repository metadata unavailable", slog.String("error", err.Error()))
		} else {
			res.Language = repo.Language
			if !repo.PushedAt.IsZero() {
				pushed := repo.PushedAt.UTC()
				res.LastCommitDate = &pushed
			}
		}
	}

	analysisErr := r.embed(ctx, star, readme, &res)
	if analysisErr == nil && r.Scorer != nil {
		if err := r.Scorer.Score(ctx, star, &res); err != nil {
			analysisErr = fmt.Errorf("scoring: %w", err)
		}
	}

	if _, err := r.Analyses.RecordAnalysis(ctx, star.ID, res, analysisErr); err != nil {
		// A result the service rejects is this star's problem, not the run's.
		if !errors.Is(err, apperror.ErrValidation) {
			return nil, err
		}
		analysisErr = err
		if _, err := r.Analyses.RecordAnalysis(ctx, star.ID, service.AnalysisResult{Version: res.Version}, analysisErr); err != nil {
			return nil, err
		}
	}

	if analysisErr != nil {
		c.analysisFailed.Add(1)
		log.WarnContext(ctx, "analysis failed", slog.String("error", analysisErr.Error()))
		return nil, nil
	}
	c.analyzed.Add(1)
	return res.ReadmeEmbedding, nil
}

// embed fills the result's vectors. The description vector embeds
// "owner/name: description" so repositories without one still get a vector.
func (r *Runner) embed(ctx context.Context, star model.Star, readme string, res *service.AnalysisResult) error {
	texts := []string{star.FullName() + ": " + star.DescriptionPretty()}
	if readme != "" {
		texts = append(texts, truncate(readme, maxEmbedChars))
	}

	vectors, err := r.Embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	if len(vectors) != len(texts) {
		return fmt.Errorf("embedding: got %d vectors for %d texts", len(vectors), len(texts))
	}

	res.DescriptionEmbedding = vectors[0]
	if len(vectors) > 1 {
		res.ReadmeEmbedding = vectors[1]
	}
	return nil
}

func (r *Runner) cluster(ctx context.Context, vectors map[string][]float32, c *counters) error {
	assignments, err := r.Clusterer.Cluster(ctx, vectors)
	if err != nil {
		// Analyses are already stored; clustering can be retried on its own.
		r.Logger.ErrorContext(ctx, "clustering failed", slog.String("error", err.Error()))
		return nil
	}
	for starID, a := range assignments {
		if _, err := r.Clusters.Assign(ctx, starID, a.ClusterID, a.Distance); err != nil {
			if errors.Is(err, apperror.ErrValidation) {
				r.Logger.WarnContext(ctx, "invalid cluster assignment",
					slog.String("starID", starID),
					slog.String("error", err.Error()),
				)
				continue
			}
			return fmt.Errorf("pipeline: assigning %s to cluster %d: %w", starID, a.ClusterID, err)
		}
		c.clustered.Add(1)
	}
	return nil
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
