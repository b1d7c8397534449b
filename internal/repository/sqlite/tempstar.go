package sqlite

import (
	"context"
	"fmt"

	"github.com/rs/xid"
	"github.com/sakif/starminder/internal/apperror"
	"github.com/sakif/starminder/internal/model"
	"github.com/sakif/starminder/internal/repository"
)

var _ repository.TempStarRepository = (*DB)(nil)

const tempStarColumns = `id, user_id, provider, provider_id, owner, owner_id,
	name, description, star_count, repo_url, priority_score, created_at, updated_at`

func scanTempStar(row rowScanner) (model.TempStar, error) {
	var t model.TempStar
	err := row.Scan(
		&t.ID, &t.UserID, &t.Provider, &t.ProviderID, &t.Owner, &t.OwnerID,
		&t.Name, &t.Description, &t.StarCount, &t.RepoURL, &t.PriorityScore,
		&t.CreatedAt, &t.UpdatedAt,
	)
	return t, err
}

// CreateTempStar stages a star for the user. Staging the same
// (provider, provider_id) twice for one user returns apperror.ErrDuplicate.
func (db *DB) CreateTempStar(ctx context.Context, ts *model.TempStar) error {
	ts.ID = xid.New().String()
	t := now()
	ts.CreatedAt = t
	ts.UpdatedAt = t

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO temp_stars (id, user_id, provider, provider_id, owner, owner_id,
		                         name, description, star_count, repo_url, priority_score,
		                         created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ts.ID, ts.UserID, ts.Provider, ts.ProviderID, ts.Owner, ts.OwnerID,
		ts.Name, ts.Description, ts.StarCount, ts.RepoURL, ts.PriorityScore,
		ts.CreatedAt, ts.UpdatedAt,
	)
	if err != nil {
		key := ts.Provider + ":" + ts.ProviderID
		return fmt.Errorf("sqlite: staging star %s: %w", ts.FullName(), uniqueErr(err, "temp star", key))
	}
	return nil
}

// ListTempStars returns the user's staged stars, highest priority first.
// Ties fall back to star count and then name so the order is stable.
func (db *DB) ListTempStars(ctx context.Context, userID string, opts repository.ListOptions) ([]model.TempStar, error) {
	limit, offset := pageBounds(opts)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+tempStarColumns+`
		 FROM temp_stars
		 WHERE user_id = ?
		 ORDER BY priority_score DESC, star_count DESC, owner, name
		 LIMIT ? OFFSET ?`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing temp stars for user %s: %w", userID, err)
	}
	defer rows.Close()

	stars := make([]model.TempStar, 0, limit)
	for rows.Next() {
		t, err := scanTempStar(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning temp star row: %w", err)
		}
		stars = append(stars, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating temp stars: %w", err)
	}
	return stars, nil
}

// UpdatePriority overwrites the staged star's priority score.
func (db *DB) UpdatePriority(ctx context.Context, id string, score float64) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE temp_stars SET priority_score = ?, updated_at = ? WHERE id = ?`,
		score, now(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating priority of temp star %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("temp star", id)
	}
	return nil
}

// PromoteTempStars turns the user's top `limit` staged stars into a new
// reminder and removes them from staging, all in one transaction.
// It returns apperror.ErrNotFound when the user has nothing staged.
func (db *DB) PromoteTempStars(ctx context.Context, userID string, limit int) (*model.Reminder, []model.Star, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite: beginning promote transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT `+tempStarColumns+`
		 FROM temp_stars
		 WHERE user_id = ?
		 ORDER BY priority_score DESC, star_count DESC, owner, name
		 LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite: selecting temp stars to promote: %w", err)
	}
	var staged []model.TempStar
	for rows.Next() {
		t, err := scanTempStar(rows)
		if err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("sqlite: scanning temp star row: %w", err)
		}
		staged = append(staged, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("sqlite: iterating temp stars: %w", err)
	}
	if len(staged) == 0 {
		return nil, nil, apperror.NotFound("temp stars for user", userID)
	}

	reminder := &model.Reminder{UserID: userID}
	if err := insertReminder(ctx, tx, reminder); err != nil {
		return nil, nil, err
	}

	stars := make([]model.Star, 0, len(staged))
	for _, t := range staged {
		s := &model.Star{ReminderID: reminder.ID, StarFields: t.Fields()}
		if err := insertStar(ctx, tx, s); err != nil {
			return nil, nil, err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM temp_stars WHERE id = ?`, t.ID); err != nil {
			return nil, nil, fmt.Errorf("sqlite: removing promoted temp star %s: %w", t.ID, err)
		}
		stars = append(stars, *s)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("sqlite: committing promotion for user %s: %w", userID, err)
	}
	return reminder, stars, nil
}
