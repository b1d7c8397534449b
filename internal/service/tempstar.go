package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/starminder/internal/apperror"
	"github.com/sakif/starminder/internal/model"
	"github.com/sakif/starminder/internal/repository"
)

// StagingService manages TempStars: repositories imported from a provider
// and waiting to be promoted into a reminder.
//
// TempStar.PriorityScore belongs to staging. It is never copied to or from
// StarAnalysis.PriorityScore.
type StagingService struct {
	temps  repository.TempStarRepository
	logger *slog.Logger
}

func NewStagingService(temps repository.TempStarRepository, logger *slog.Logger) *StagingService {
	return &StagingService{temps: temps, logger: logger}
}

// StageResult counts what an import did.
type StageResult struct {
	Staged  int `json:"staged"`
	Skipped int `json:"skipped"` // already staged for this user
}

// Stage adds one repository to the user's staging area with priority 0.
func (s *StagingService) Stage(ctx context.Context, userID string, f model.StarFields) (*model.TempStar, error) {
	if err := validateStarFields(f); err != nil {
		return nil, err
	}
	ts := &model.TempStar{UserID: userID, StarFields: f}
	if err := s.temps.CreateTempStar(ctx, ts); err != nil {
		return nil, fmt.Errorf("service/staging: staging %s: %w", f.FullName(), err)
	}
	return ts, nil
}

// StageAll stages every repository, skipping ones the user already has
// staged. Re-running an import is therefore safe.
func (s *StagingService) StageAll(ctx context.Context, userID string, fields []model.StarFields) (StageResult, error) {
	var res StageResult
	for _, f := range fields {
		_, err := s.Stage(ctx, userID, f)
		switch {
		case err == nil:
			res.Staged++
		case errors.Is(err, apperror.ErrDuplicate):
			res.Skipped++
		default:
			return res, err
		}
	}

	s.logger.InfoContext(ctx, "stars staged",
		slog.String("userID", userID),
		slog.Int("staged", res.Staged),
		slog.Int("skipped", res.Skipped),
	)
	return res, nil
}

// List returns the user's staged stars, highest priority first.
func (s *StagingService) List(ctx context.Context, userID string, opts repository.ListOptions) ([]model.TempStar, error) {
	stars, err := s.temps.ListTempStars(ctx, userID, opts)
	if err != nil {
		return nil, fmt.Errorf("service/staging: listing: %w", err)
	}
	return stars, nil
}

// SetPriority records a score produced by an external ranking step.
func (s *StagingService) SetPriority(ctx context.Context, id string, score float64) error {
	if err := validateScore("priorityScore", score); err != nil {
		return err
	}
	if err := s.temps.UpdatePriority(ctx, id, score); err != nil {
		return fmt.Errorf("service/staging: scoring %s: %w", id, err)
	}
	return nil
}

// Promote moves the user's top n staged stars into a new reminder.
// n <= 0 means DefaultReminderSize.
func (s *StagingService) Promote(ctx context.Context, userID string, n int) (*ReminderDetail, error) {
	if n <= 0 {
		n = DefaultReminderSize
	}
	if n > MaxReminderSize {
		return nil, apperror.ValidationFailed("size", fmt.Sprintf("a reminder holds at most %d stars", MaxReminderSize))
	}

	reminder, stars, err := s.temps.PromoteTempStars(ctx, userID, n)
	if err != nil {
		return nil, fmt.Errorf("service/staging: promoting for user %s: %w", userID, err)
	}

	s.logger.InfoContext(ctx, "staged stars promoted",
		slog.String("userID", userID),
		slog.String("reminderID", reminder.ID),
		slog.Int("stars", len(stars)),
	)

	detail := &ReminderDetail{Reminder: *reminder, Title: reminder.Title(), Stars: make([]StarDetail, len(stars))}
	for i, st := range stars {
		detail.Stars[i] = newStarDetail(st)
	}
	return detail, nil
}
