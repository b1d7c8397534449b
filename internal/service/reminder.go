package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/starminder/internal/apperror"
	"github.com/sakif/starminder/internal/model"
	"github.com/sakif/starminder/internal/repository"
)

type ReminderService struct {
	reminders repository.ReminderRepository
	logger    *slog.Logger
}

func NewReminderService(reminders repository.ReminderRepository, logger *slog.Logger) *ReminderService {
	return &ReminderService{reminders: reminders, logger: logger}
}

// ReminderDetail is a reminder with its stars, as shown on the reminder page.
type ReminderDetail struct {
	model.Reminder
	Title string       `json:"title"`
	Stars []StarDetail `json:"stars"`
}

// StarDetail adds the rendered description to a star. The stored
// Description is left in its raw shortcode form.
type StarDetail struct {
	model.Star
	FullName          string `json:"fullName"`
	DescriptionPretty string `json:"descriptionPretty"`
}

func newStarDetail(s model.Star) StarDetail {
	return StarDetail{Star: s, FullName: s.FullName(), DescriptionPretty: s.DescriptionPretty()}
}

// Create stores a reminder for userID holding one star per entry in fields.
// A repository listed twice fails the whole reminder with ErrDuplicate.
func (s *ReminderService) Create(ctx context.Context, userID string, fields []model.StarFields) (*ReminderDetail, error) {
	if userID == "" {
		return nil, apperror.ValidationFailed("userId", "user ID is required")
	}
	stars := make([]*model.Star, len(fields))
	for i, f := range fields {
		if err := validateStarFields(f); err != nil {
			return nil, err
		}
		stars[i] = &model.Star{StarFields: f}
	}

	reminder := &model.Reminder{UserID: userID}
	if err := s.reminders.CreateReminder(ctx, reminder, stars); err != nil {
		return nil, fmt.Errorf("service/reminder: creating reminder: %w", err)
	}

	s.logger.InfoContext(ctx, "reminder created",
		slog.String("reminderID", reminder.ID),
		slog.String("userID", userID),
		slog.Int("stars", len(stars)),
	)

	detail := &ReminderDetail{Reminder: *reminder, Title: reminder.Title(), Stars: make([]StarDetail, len(stars))}
	for i, st := range stars {
		detail.Stars[i] = newStarDetail(*st)
	}
	return detail, nil
}

// List returns the user's reminders, newest first, each with its title and
// stars.
func (s *ReminderService) List(ctx context.Context, userID string, opts repository.ListOptions) ([]ReminderDetail, error) {
	reminders, err := s.reminders.ListReminders(ctx, userID, opts)
	if err != nil {
		return nil, fmt.Errorf("service/reminder: listing reminders: %w", err)
	}
	out := make([]ReminderDetail, len(reminders))
	for i, r := range reminders {
		stars, err := s.reminders.ListStars(ctx, r.ID)
		if err != nil {
			return nil, fmt.Errorf("service/reminder: listing stars of %s: %w", r.ID, err)
		}
		out[i] = newReminderDetail(r, stars)
	}
	return out, nil
}

func newReminderDetail(r model.Reminder, stars []model.Star) ReminderDetail {
	d := ReminderDetail{Reminder: r, Title: r.Title(), Stars: make([]StarDetail, len(stars))}
	for i, st := range stars {
		d.Stars[i] = newStarDetail(st)
	}
	return d
}

// Get loads one of the user's reminders with its stars. Another user's
// reminder is ErrForbidden.
func (s *ReminderService) Get(ctx context.Context, userID, id string) (*ReminderDetail, error) {
	reminder, err := s.reminders.GetReminder(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/reminder: getting reminder %s: %w", id, err)
	}
	if reminder.UserID != userID {
		return nil, apperror.Forbidden("reminder belongs to another user")
	}

	stars, err := s.reminders.ListStars(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/reminder: listing stars of %s: %w", id, err)
	}

	detail := newReminderDetail(*reminder, stars)
	return &detail, nil
}

// GetStar returns a star if it belongs to one of the user's reminders.
func (s *ReminderService) GetStar(ctx context.Context, userID, starID string) (*StarDetail, error) {
	star, err := s.reminders.GetStar(ctx, starID)
	if err != nil {
		return nil, fmt.Errorf("service/reminder: getting star %s: %w", starID, err)
	}
	reminder, err := s.reminders.GetReminder(ctx, star.ReminderID)
	if err != nil {
		return nil, fmt.Errorf("service/reminder: getting reminder of star %s: %w", starID, err)
	}
	if reminder.UserID != userID {
		return nil, apperror.Forbidden("star belongs to another user")
	}
	d := newStarDetail(*star)
	return &d, nil
}
