package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/starminder/internal/apperror"
	"github.com/sakif/starminder/internal/embedding"
	"github.com/sakif/starminder/internal/model"
	"github.com/sakif/starminder/internal/repository"
)

// AnalysisService records what the analysis pipeline did for each star.
//
// It performs no network work itself. The pipeline fetches and embeds;
// this service turns each outcome into attempt flags, error text and
// stored vectors on the star's single StarAnalysis row.
type AnalysisService struct {
	analyses   repository.AnalysisRepository
	dimensions int
	logger     *slog.Logger
	now        func() time.Time
}

// NewAnalysisService stores embeddings of exactly dimensions floats;
// dimensions <= 0 accepts any length.
func NewAnalysisService(analyses repository.AnalysisRepository, dimensions int, logger *slog.Logger) *AnalysisService {
	return &AnalysisService{analyses: analyses, dimensions: dimensions, logger: logger, now: time.Now}
}

// AnalysisResult is the output of one successful analysis run.
type AnalysisResult struct {
	Version              string
	ReadmeEmbedding      []float32
	DescriptionEmbedding []float32
	PriorityScore        float64
	HealthScore          float64
	Language             string
	LastCommitDate       *time.Time
}

// load returns the star's analysis, or a fresh unsaved one.
func (s *AnalysisService) load(ctx context.Context, starID string) (*model.StarAnalysis, error) {
	a, err := s.analyses.GetAnalysisByStar(ctx, starID)
	if errors.Is(err, apperror.ErrNotFound) {
		return model.NewStarAnalysis(starID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("service/analysis: loading analysis for %s: %w", starID, err)
	}
	return a, nil
}

// RecordFetch stores the outcome of a README fetch. fetchErr is the
// fetch's own failure and is recorded, not returned. Only the fetch
// columns are written, so a concurrent RecordAnalysis keeps its results.
func (s *AnalysisService) RecordFetch(ctx context.Context, starID, readme string, fetchErr error) (*model.StarAnalysis, error) {
	a, err := s.load(ctx, starID)
	if err != nil {
		return nil, err
	}
	a.RecordFetch(readme, fetchErr)

	if err := s.analyses.SaveFetch(ctx, a); err != nil {
		return nil, fmt.Errorf("service/analysis: saving fetch for %s: %w", starID, err)
	}
	if fetchErr != nil {
		s.logger.WarnContext(ctx, "readme fetch failed",
			slog.String("starID", starID),
			slog.String("error", fetchErr.Error()),
		)
	}
	return a, nil
}

// RecordAnalysis stores an analysis outcome. When analysisErr is non-nil,
// res is ignored and only the attempt and its error are recorded.
func (s *AnalysisService) RecordAnalysis(ctx context.Context, starID string, res AnalysisResult, analysisErr error) (*model.StarAnalysis, error) {
	if analysisErr == nil {
		if err := s.validateResult(res); err != nil {
			return nil, err
		}
	}

	a, err := s.load(ctx, starID)
	if err != nil {
		return nil, err
	}
	a.RecordAnalysis(s.now().UTC(), res.Version, analysisErr)

	if analysisErr == nil {
		a.ReadmeEmbedding = embedding.Encode(res.ReadmeEmbedding)
		a.DescriptionEmbedding = embedding.Encode(res.DescriptionEmbedding)
		a.PriorityScore = res.PriorityScore
		a.HealthScore = res.HealthScore
		a.LastCommitDate = res.LastCommitDate
		if res.Language != "" {
			lang := res.Language
			a.Language = &lang
		}
	} else {
		s.logger.WarnContext(ctx, "analysis failed",
			slog.String("starID", starID),
			slog.String("error", analysisErr.Error()),
		)
	}

	if err := s.analyses.SaveAnalysisResult(ctx, a); err != nil {
		return nil, fmt.Errorf("service/analysis: saving analysis for %s: %w", starID, err)
	}
	return a, nil
}

func (s *AnalysisService) validateResult(res AnalysisResult) error {
	if len(res.Version) > MaxVersionLength {
		return apperror.ValidationFailed("analysisVersion", fmt.Sprintf("version must be %d characters or less", MaxVersionLength))
	}
	if len(res.Language) > MaxLanguageLength {
		return apperror.ValidationFailed("language", fmt.Sprintf("language must be %d characters or less", MaxLanguageLength))
	}
	if err := validateScore("priorityScore", res.PriorityScore); err != nil {
		return err
	}
	if err := validateScore("healthScore", res.HealthScore); err != nil {
		return err
	}
	if res.HealthScore < 0 || res.HealthScore > 1 {
		return apperror.ValidationFailed("healthScore", "healthScore must be between 0 and 1")
	}
	for field, vec := range map[string][]float32{
		"readmeEmbedding":      res.ReadmeEmbedding,
		"descriptionEmbedding": res.DescriptionEmbedding,
	} {
		if len(vec) > 0 && s.dimensions > 0 && len(vec) != s.dimensions {
			return apperror.ValidationFailed(field, fmt.Sprintf("%s has %d dimensions, want %d", field, len(vec), s.dimensions))
		}
	}
	return nil
}

// Get returns a star's analysis with tags.
func (s *AnalysisService) Get(ctx context.Context, starID string) (*model.StarAnalysis, error) {
	a, err := s.analyses.GetAnalysisByStar(ctx, starID)
	if err != nil {
		return nil, fmt.Errorf("service/analysis: getting analysis for %s: %w", starID, err)
	}
	return a, nil
}

// Embeddings decodes a stored analysis's vectors. Either may be nil; a
// vector of the wrong dimension is an error.
func (s *AnalysisService) Embeddings(a *model.StarAnalysis) (readme, description []float32, err error) {
	if readme, err = s.decode(a.ReadmeEmbedding); err != nil {
		return nil, nil, fmt.Errorf("service/analysis: readme embedding of %s: %w", a.StarID, err)
	}
	if description, err = s.decode(a.DescriptionEmbedding); err != nil {
		return nil, nil, fmt.Errorf("service/analysis: description embedding of %s: %w", a.StarID, err)
	}
	return readme, description, nil
}

func (s *AnalysisService) decode(data []byte) ([]float32, error) {
	if s.dimensions > 0 {
		return embedding.DecodeDim(data, s.dimensions)
	}
	return embedding.Decode(data)
}

// ListByPriority returns analyses with the highest priority first.
func (s *AnalysisService) ListByPriority(ctx context.Context, opts repository.ListOptions) ([]model.StarAnalysis, error) {
	list, err := s.analyses.ListAnalysesByPriority(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("service/analysis: listing: %w", err)
	}
	return list, nil
}
