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

var _ repository.AnalysisRepository = (*DB)(nil)

const analysisColumns = `id, star_id, readme_content, readme_embedding, description_embedding,
	analysis_date, analysis_version, priority_score, last_commit_date, language, health_score,
	fetch_attempted, fetch_error, analysis_attempted, analysis_error, created_at, updated_at`

func scanAnalysis(row rowScanner) (model.StarAnalysis, error) {
	var (
		a                                    model.StarAnalysis
		readme, language, fetchErr, analyErr sql.NullString
		analysisDate, lastCommit             sql.NullTime
	)
	err := row.Scan(
		&a.ID, &a.StarID, &readme, &a.ReadmeEmbedding, &a.DescriptionEmbedding,
		&analysisDate, &a.AnalysisVersion, &a.PriorityScore, &lastCommit, &language, &a.HealthScore,
		&a.FetchAttempted, &fetchErr, &a.AnalysisAttempted, &analyErr, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return a, err
	}
	a.ReadmeContent = stringPtr(readme)
	a.Language = stringPtr(language)
	a.FetchError = stringPtr(fetchErr)
	a.AnalysisError = stringPtr(analyErr)
	a.AnalysisDate = timePtr(analysisDate)
	a.LastCommitDate = timePtr(lastCommit)
	return a, nil
}

// CreateAnalysis inserts the first analysis row for a star.
//
// ONE ROW PER STAR:
// star_id is UNIQUE in the schema. A second CreateAnalysis for the same
// star, even from a concurrent goroutine, fails with apperror.ErrDuplicate.
// Callers that want "create or update" use SaveAnalysis instead.
func (db *DB) CreateAnalysis(ctx context.Context, a *model.StarAnalysis) error {
	a.ID = xid.New().String()
	ts := now()
	a.CreatedAt = ts
	a.UpdatedAt = ts

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO star_analyses (`+analysisColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		analysisArgs(a)...,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating analysis for star %s: %w", a.StarID, uniqueErr(err, "analysis", a.StarID))
	}
	return nil
}

// SaveAnalysis writes the star's analysis, inserting it on first use and
// updating the existing row afterwards.
//
// MONOTONIC FLAGS:
// fetch_attempted and analysis_attempted are OR-ed with the stored value,
// so a caller holding a stale copy can never flip an attempt back to false.
// After the write, the stored row is read back into a.
func (db *DB) SaveAnalysis(ctx context.Context, a *model.StarAnalysis) error {
	return db.upsertAnalysis(ctx, a, "saving analysis", fetchSet+`,
		`+resultSet)
}

// SaveFetch writes only the README fetch columns: readme_content,
// fetch_attempted and fetch_error. Embeddings and scores already stored
// for the star are left alone.
func (db *DB) SaveFetch(ctx context.Context, a *model.StarAnalysis) error {
	return db.upsertAnalysis(ctx, a, "saving fetch", fetchSet)
}

// SaveAnalysisResult writes only the analysis columns (embeddings, scores,
// language, version and the analysis attempt). The README stored by a
// fetch is left alone.
func (db *DB) SaveAnalysisResult(ctx context.Context, a *model.StarAnalysis) error {
	return db.upsertAnalysis(ctx, a, "saving analysis result", resultSet)
}

const fetchSet = `readme_content        = excluded.readme_content,
		     fetch_attempted       = star_analyses.fetch_attempted OR excluded.fetch_attempted,
		     fetch_error           = excluded.fetch_error`

const resultSet = `readme_embedding      = excluded.readme_embedding,
		     description_embedding = excluded.description_embedding,
		     analysis_date         = excluded.analysis_date,
		     analysis_version      = excluded.analysis_version,
		     priority_score        = excluded.priority_score,
		     last_commit_date      = excluded.last_commit_date,
		     language              = excluded.language,
		     health_score          = excluded.health_score,
		     analysis_attempted    = star_analyses.analysis_attempted OR excluded.analysis_attempted,
		     analysis_error        = excluded.analysis_error`

// upsertAnalysis inserts a's full row for a new star, or applies set to the
// existing row, then reads the stored row back into a.
func (db *DB) upsertAnalysis(ctx context.Context, a *model.StarAnalysis, op, set string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning analysis transaction: %w", err)
	}
	defer tx.Rollback()

	// The candidate row always gets a fresh id; on conflict the stored id wins.
	candidate := *a
	candidate.ID = xid.New().String()
	ts := now()
	candidate.CreatedAt = ts
	candidate.UpdatedAt = ts

	_, err = tx.ExecContext(ctx,
		`INSERT INTO star_analyses (`+analysisColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(star_id) DO UPDATE SET
		     `+set+`,
		     updated_at            = excluded.updated_at`,
		analysisArgs(&candidate)...,
	)
	if err != nil {
		return fmt.Errorf("sqlite: %s for star %s: %w", op, a.StarID, err)
	}

	stored, err := scanAnalysis(tx.QueryRowContext(ctx,
		`SELECT `+analysisColumns+` FROM star_analyses WHERE star_id = ?`, a.StarID,
	))
	if err != nil {
		return fmt.Errorf("sqlite: reading back analysis for star %s: %w", a.StarID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing analysis for star %s: %w", a.StarID, err)
	}

	stored.Tags = a.Tags
	*a = stored
	return nil
}

func analysisArgs(a *model.StarAnalysis) []any {
	return []any{
		a.ID, a.StarID, nullString(a.ReadmeContent), nullBytes(a.ReadmeEmbedding), nullBytes(a.DescriptionEmbedding),
		nullTime(a.AnalysisDate), a.AnalysisVersion, a.PriorityScore, nullTime(a.LastCommitDate),
		nullString(a.Language), a.HealthScore,
		a.FetchAttempted, nullString(a.FetchError), a.AnalysisAttempted, nullString(a.AnalysisError),
		a.CreatedAt, a.UpdatedAt,
	}
}

// GetAnalysisByStar returns the star's analysis with its tags loaded, or
// apperror.ErrNotFound if the star has never been analysed.
func (db *DB) GetAnalysisByStar(ctx context.Context, starID string) (*model.StarAnalysis, error) {
	a, err := scanAnalysis(db.conn.QueryRowContext(ctx,
		`SELECT `+analysisColumns+` FROM star_analyses WHERE star_id = ?`, starID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("analysis for star", starID)
		}
		return nil, fmt.Errorf("sqlite: getting analysis for star %s: %w", starID, err)
	}

	a.Tags, err = db.ListAnalysisTags(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAnalysesByPriority returns analyses by priority_score descending.
// Tags are not loaded.
func (db *DB) ListAnalysesByPriority(ctx context.Context, opts repository.ListOptions) ([]model.StarAnalysis, error) {
	limit, offset := pageBounds(opts)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+analysisColumns+`
		 FROM star_analyses
		 ORDER BY priority_score DESC, star_id
		 LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing analyses: %w", err)
	}
	defer rows.Close()

	analyses := make([]model.StarAnalysis, 0, limit)
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning analysis row: %w", err)
		}
		analyses = append(analyses, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating analyses: %w", err)
	}
	return analyses, nil
}

// AddTags links tags to an analysis. Links that already exist are skipped;
// every new link increments the tag's usage_count in the same transaction,
// so the counter always equals the number of analyses carrying the tag.
// It returns how many links were added.
func (db *DB) AddTags(ctx context.Context, analysisID string, tagIDs []string) (int, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: beginning tag transaction: %w", err)
	}
	defer tx.Rollback()

	added := 0
	ts := now()
	for _, tagID := range tagIDs {
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO star_analysis_tags (analysis_id, tag_id) VALUES (?, ?)`,
			analysisID, tagID,
		)
		if err != nil {
			return 0, fmt.Errorf("sqlite: linking tag %s to analysis %s: %w", tagID, analysisID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		if n == 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE tags SET usage_count = usage_count + 1, updated_at = ? WHERE id = ?`,
			ts, tagID,
		); err != nil {
			return 0, fmt.Errorf("sqlite: bumping usage of tag %s: %w", tagID, err)
		}
		added++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: committing tags for analysis %s: %w", analysisID, err)
	}
	return added, nil
}

// ListAnalysisTags returns the analysis's tags in the registry's default order.
func (db *DB) ListAnalysisTags(ctx context.Context, analysisID string) ([]model.Tag, error) {
	return db.queryTags(ctx,
		`SELECT `+tagColumns+`
		 FROM tags t
		 JOIN star_analysis_tags sat ON sat.tag_id = t.id
		 WHERE sat.analysis_id = ?
		 ORDER BY t.usage_count DESC, t.name ASC`,
		analysisID,
	)
}
