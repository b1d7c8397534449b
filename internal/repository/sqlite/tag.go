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

var _ repository.TagRepository = (*DB)(nil)

const tagColumns = `t.id, t.name, t.category, t.usage_count, t.created_at, t.updated_at`

func scanTag(row rowScanner) (model.Tag, error) {
	var t model.Tag
	err := row.Scan(&t.ID, &t.Name, &t.Category, &t.UsageCount, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// CreateTag inserts a new tag. A name that already exists returns
// apperror.ErrDuplicate regardless of category; category is not identity.
func (db *DB) CreateTag(ctx context.Context, tag *model.Tag) error {
	tag.ID = xid.New().String()
	ts := now()
	tag.CreatedAt = ts
	tag.UpdatedAt = ts

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO tags (id, name, category, usage_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		tag.ID, tag.Name, string(tag.Category), tag.UsageCount, tag.CreatedAt, tag.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating tag %q: %w", tag.Name, uniqueErr(err, "tag", tag.Name))
	}
	return nil
}

// GetTagByName returns apperror.ErrNotFound if no tag has that name.
func (db *DB) GetTagByName(ctx context.Context, name string) (*model.Tag, error) {
	t, err := scanTag(db.conn.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags t WHERE t.name = ?`, name,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("tag", name)
		}
		return nil, fmt.Errorf("sqlite: getting tag %q: %w", name, err)
	}
	return &t, nil
}

// ListTags returns tags by usage_count descending, then name ascending.
// The name tie-break keeps equal counts in a deterministic order.
func (db *DB) ListTags(ctx context.Context, opts repository.ListOptions) ([]model.Tag, error) {
	limit, offset := pageBounds(opts)
	return db.queryTags(ctx,
		`SELECT `+tagColumns+`
		 FROM tags t
		 ORDER BY t.usage_count DESC, t.name ASC
		 LIMIT ? OFFSET ?`,
		limit, offset,
	)
}

func (db *DB) queryTags(ctx context.Context, query string, args ...any) ([]model.Tag, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing tags: %w", err)
	}
	defer rows.Close()

	tags := []model.Tag{}
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning tag row: %w", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating tags: %w", err)
	}
	return tags, nil
}
