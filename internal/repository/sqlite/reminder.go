package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/xid"
	"github.com/sakif/starminder/internal/apperror"
	"github.com/sakif/starminder/internal/model"
	"github.com/sakif/starminder/internal/repository"
)

var _ repository.ReminderRepository = (*DB)(nil)

// rowScanner is satisfied by both *sql.Row and *sql.Rows, so one scan
// function serves single-row lookups and list loops alike.
type rowScanner interface {
	Scan(dest ...any) error
}

const starColumns = `s.id, s.reminder_id, s.provider, s.provider_id, s.owner, s.owner_id,
	s.name, s.description, s.star_count, s.repo_url, s.created_at, s.updated_at`

func scanStar(row rowScanner) (model.Star, error) {
	var s model.Star
	err := row.Scan(
		&s.ID, &s.ReminderID, &s.Provider, &s.ProviderID, &s.Owner, &s.OwnerID,
		&s.Name, &s.Description, &s.StarCount, &s.RepoURL, &s.CreatedAt, &s.UpdatedAt,
	)
	return s, err
}

// CreateReminder inserts a reminder and all of its stars atomically.
//
// TRANSACTIONS:
// Either the reminder and every star land, or nothing does. If the third
// star violates a constraint, tx.Rollback (deferred) throws away the
// reminder and the first two stars as well. Rollback after a successful
// Commit is a harmless no-op, which is why it is safe to defer.
func (db *DB) CreateReminder(ctx context.Context, reminder *model.Reminder, stars []*model.Star) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning reminder transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertReminder(ctx, tx, reminder); err != nil {
		return err
	}
	for _, s := range stars {
		s.ReminderID = reminder.ID
		if err := insertStar(ctx, tx, s); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing reminder %s: %w", reminder.ID, err)
	}
	return nil
}

func insertReminder(ctx context.Context, tx *sql.Tx, r *model.Reminder) error {
	r.ID = xid.New().String()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now()
	}
	r.UpdatedAt = r.CreatedAt

	_, err := tx.ExecContext(ctx,
		`INSERT INTO reminders (id, user_id, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		r.ID, r.UserID, r.CreatedAt.UTC(), r.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting reminder for user %s: %w", r.UserID, err)
	}
	return nil
}

func insertStar(ctx context.Context, tx *sql.Tx, s *model.Star) error {
	s.ID = xid.New().String()
	ts := now()
	s.CreatedAt = ts
	s.UpdatedAt = ts

	_, err := tx.ExecContext(ctx,
		`INSERT INTO stars (id, reminder_id, provider, provider_id, owner, owner_id,
		                    name, description, star_count, repo_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.ReminderID, s.Provider, s.ProviderID, s.Owner, s.OwnerID,
		s.Name, s.Description, s.StarCount, s.RepoURL, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		key := s.Provider + ":" + s.ProviderID
		return fmt.Errorf("sqlite: inserting star %s: %w", s.FullName(), uniqueErr(err, "star", key))
	}
	return nil
}

// GetReminder returns apperror.ErrNotFound if the reminder does not exist.
func (db *DB) GetReminder(ctx context.Context, id string) (*model.Reminder, error) {
	var r model.Reminder
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, updated_at FROM reminders WHERE id = ?`, id,
	).Scan(&r.ID, &r.UserID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("reminder", id)
		}
		return nil, fmt.Errorf("sqlite: getting reminder %s: %w", id, err)
	}
	return &r, nil
}

// ListReminders returns the user's reminders, newest first.
func (db *DB) ListReminders(ctx context.Context, userID string, opts repository.ListOptions) ([]model.Reminder, error) {
	limit, offset := pageBounds(opts)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, created_at, updated_at
		 FROM reminders
		 WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing reminders for user %s: %w", userID, err)
	}
	defer rows.Close()

	reminders := make([]model.Reminder, 0, limit)
	for rows.Next() {
		var r model.Reminder
		if err := rows.Scan(&r.ID, &r.UserID, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning reminder row: %w", err)
		}
		reminders = append(reminders, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating reminders: %w", err)
	}
	return reminders, nil
}

// ListStars returns every star in the reminder, most-starred first.
func (db *DB) ListStars(ctx context.Context, reminderID string) ([]model.Star, error) {
	return db.queryStars(ctx,
		`SELECT `+starColumns+`
		 FROM stars s
		 WHERE s.reminder_id = ?
		 ORDER BY s.star_count DESC, s.owner, s.name`,
		reminderID,
	)
}

// GetStar returns apperror.ErrNotFound if the star does not exist.
func (db *DB) GetStar(ctx context.Context, id string) (*model.Star, error) {
	s, err := scanStar(db.conn.QueryRowContext(ctx,
		`SELECT `+starColumns+` FROM stars s WHERE s.id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("star", id)
		}
		return nil, fmt.Errorf("sqlite: getting star %s: %w", id, err)
	}
	return &s, nil
}

// ListStarsNeedingAnalysis returns stars whose analysis row is missing or
// has never reached the analysis stage, oldest first.
func (db *DB) ListStarsNeedingAnalysis(ctx context.Context, limit int) ([]model.Star, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	return db.queryStars(ctx,
		`SELECT `+starColumns+`
		 FROM stars s
		 LEFT JOIN star_analyses a ON a.star_id = s.id
		 WHERE a.id IS NULL OR a.analysis_attempted = 0
		 ORDER BY s.created_at, s.id
		 LIMIT ?`,
		limit,
	)
}

func (db *DB) queryStars(ctx context.Context, query string, args ...any) ([]model.Star, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing stars: %w", err)
	}
	defer rows.Close()

	var stars []model.Star
	for rows.Next() {
		s, err := scanStar(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning star row: %w", err)
		}
		stars = append(stars, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating stars: %w", err)
	}
	return stars, nil
}

// Page size bounds shared by every List method.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// pageBounds applies defaults and caps to caller-supplied paging options.
func pageBounds(opts repository.ListOptions) (limit, offset int) {
	limit = opts.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	offset = max(opts.Offset, 0)
	return limit, offset
}

// ListSearchableStars joins each star with its reminder's user and any
// fetched README.
func (db *DB) ListSearchableStars(ctx context.Context) ([]model.SearchableStar, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+starColumns+`, r.user_id, COALESCE(a.readme_content, '')
		 FROM stars s
		 JOIN reminders r ON r.id = s.reminder_id
		 LEFT JOIN star_analyses a ON a.star_id = s.id
		 ORDER BY s.created_at, s.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing searchable stars: %w", err)
	}
	defer rows.Close()

	var out []model.SearchableStar
	for rows.Next() {
		var ss model.SearchableStar
		s := &ss.Star
		if err := rows.Scan(
			&s.ID, &s.ReminderID, &s.Provider, &s.ProviderID, &s.Owner, &s.OwnerID,
			&s.Name, &s.Description, &s.StarCount, &s.RepoURL, &s.CreatedAt, &s.UpdatedAt,
			&ss.UserID, &ss.Readme,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning searchable star: %w", err)
		}
		out = append(out, ss)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating searchable stars: %w", err)
	}
	return out, nil
}
