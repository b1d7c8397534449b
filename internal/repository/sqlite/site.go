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

var _ repository.SiteRepository = (*DB)(nil)

// currentSiteID is the row the initial migration seeds. The deployment
// only ever has one site, so "current" is always this id.
const currentSiteID = 1

func (db *DB) GetCurrentSite(ctx context.Context) (*model.Site, error) {
	var s model.Site
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, domain, name FROM sites WHERE id = ?`, currentSiteID,
	).Scan(&s.ID, &s.Domain, &s.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("site", "current")
		}
		return nil, fmt.Errorf("sqlite: getting current site: %w", err)
	}
	return &s, nil
}

// SaveSite overwrites the current site's domain and name.
// site.ID is set to the current site's id.
func (db *DB) SaveSite(ctx context.Context, site *model.Site) error {
	site.ID = currentSiteID
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO sites (id, domain, name) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET domain = excluded.domain, name = excluded.name`,
		site.ID, site.Domain, site.Name,
	)
	if err != nil {
		return fmt.Errorf("sqlite: saving site: %w", err)
	}
	return nil
}

// UpsertSocialApp creates the provider's app or refreshes its credentials.
// The lookup and the write share one transaction, and transactions take the
// write lock at BEGIN, so concurrent setups cannot both report created.
func (db *DB) UpsertSocialApp(ctx context.Context, app *model.SocialApp) (bool, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("sqlite: beginning social app transaction: %w", err)
	}
	defer tx.Rollback()

	var existingID string
	var createdAt sql.NullTime
	err = tx.QueryRowContext(ctx,
		`SELECT id, created_at FROM social_apps WHERE provider = ?`, app.Provider,
	).Scan(&existingID, &createdAt)

	ts := now()
	created := false
	switch {
	case errors.Is(err, sql.ErrNoRows):
		created = true
		app.ID = xid.New().String()
		app.CreatedAt = ts
		app.UpdatedAt = ts
		_, err = tx.ExecContext(ctx,
			`INSERT INTO social_apps (id, provider, name, client_id, secret, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			app.ID, app.Provider, app.Name, app.ClientID, app.Secret, app.CreatedAt, app.UpdatedAt,
		)
	case err != nil:
		return false, fmt.Errorf("sqlite: looking up %s social app: %w", app.Provider, err)
	default:
		app.ID = existingID
		app.CreatedAt = createdAt.Time
		app.UpdatedAt = ts
		_, err = tx.ExecContext(ctx,
			`UPDATE social_apps SET name = ?, client_id = ?, secret = ?, updated_at = ? WHERE id = ?`,
			app.Name, app.ClientID, app.Secret, app.UpdatedAt, app.ID,
		)
	}
	if err != nil {
		return false, fmt.Errorf("sqlite: writing %s social app: %w", app.Provider, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("sqlite: committing %s social app: %w", app.Provider, err)
	}
	return created, nil
}

// LinkSocialAppSite attaches an app to a site. Linking twice is a no-op.
func (db *DB) LinkSocialAppSite(ctx context.Context, appID string, siteID int) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO social_app_sites (social_app_id, site_id) VALUES (?, ?)`,
		appID, siteID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: linking social app %s to site %d: %w", appID, siteID, err)
	}
	return nil
}

// GetSocialApp returns the provider's app with its linked site ids.
func (db *DB) GetSocialApp(ctx context.Context, provider string) (*model.SocialApp, error) {
	var app model.SocialApp
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, provider, name, client_id, secret, created_at, updated_at
		 FROM social_apps WHERE provider = ?`, provider,
	).Scan(&app.ID, &app.Provider, &app.Name, &app.ClientID, &app.Secret, &app.CreatedAt, &app.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("social app", provider)
		}
		return nil, fmt.Errorf("sqlite: getting %s social app: %w", provider, err)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT site_id FROM social_app_sites WHERE social_app_id = ? ORDER BY site_id`, app.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing sites for %s social app: %w", provider, err)
	}
	defer rows.Close()

	app.SiteIDs = []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scanning site id: %w", err)
		}
		app.SiteIDs = append(app.SiteIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating site ids: %w", err)
	}
	return &app, nil
}
