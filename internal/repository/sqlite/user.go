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

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// Upsert inserts or updates a user based on their GitHub ID.
//
// A user who logs in again keeps their internal ID and CreatedAt; only the
// profile fields (login, email, avatar) are refreshed. The single
// INSERT … ON CONFLICT statement means two concurrent first logins for the
// same GitHub account still produce exactly one row.
func (db *DB) Upsert(ctx context.Context, user *model.User) error {
	ts := now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, github_id, login, email, avatar_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(github_id) DO UPDATE SET
		     login = excluded.login,
		     email = excluded.email,
		     avatar_url = excluded.avatar_url,
		     updated_at = excluded.updated_at`,
		xid.New().String(),
		user.GitHubID,
		user.Login,
		user.Email,
		user.AvatarURL,
		ts,
		ts,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting user (githubID=%d): %w", user.GitHubID, err)
	}

	// Read back the canonical ID and timestamps: on the update path they
	// belong to the existing row, not the values we just generated.
	err = db.conn.QueryRowContext(ctx,
		`SELECT id, created_at, updated_at FROM users WHERE github_id = ?`,
		user.GitHubID,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: reading back user (githubID=%d): %w", user.GitHubID, err)
	}

	return nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx, "id = ?", id)
}

// GetUserByLogin finds a user by GitHub username, ignoring case. GitHub
// usernames can be renamed and reused, so the most recently updated row
// wins.
func (db *DB) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	return db.getUser(ctx, "login = ? COLLATE NOCASE ORDER BY updated_at DESC LIMIT 1", login)
}

func (db *DB) getUser(ctx context.Context, where, arg string) (*model.User, error) {
	var u model.User

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, github_id, login, email, avatar_url, created_at, updated_at
		 FROM users WHERE `+where,
		arg,
	).Scan(
		&u.ID,
		&u.GitHubID,
		&u.Login,
		&u.Email,
		&u.AvatarURL,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", arg)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", arg, err)
	}

	return &u, nil
}
