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

var _ repository.ClusterRepository = (*DB)(nil)

const clusterColumns = `id, cluster_id, star_id, centroid_distance, generated_at`

func scanAssignment(row rowScanner) (model.ClusterAssignment, error) {
	var ca model.ClusterAssignment
	err := row.Scan(&ca.ID, &ca.ClusterID, &ca.StarID, &ca.CentroidDistance, &ca.GeneratedAt)
	return ca, err
}

// CreateAssignment places a star in a cluster for the first time.
// A star that already has an assignment yields apperror.ErrDuplicate.
func (db *DB) CreateAssignment(ctx context.Context, ca *model.ClusterAssignment) error {
	ca.ID = xid.New().String()
	if ca.GeneratedAt.IsZero() {
		ca.GeneratedAt = now()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO cluster_assignments (`+clusterColumns+`) VALUES (?, ?, ?, ?, ?)`,
		ca.ID, ca.ClusterID, ca.StarID, ca.CentroidDistance, ca.GeneratedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: assigning star %s: %w", ca.StarID, uniqueErr(err, "cluster assignment", ca.StarID))
	}
	return nil
}

// Assign moves a star into ca.ClusterID, replacing any previous assignment.
//
// ONE STATEMENT, NO WINDOW:
// "delete old, insert new" as two statements leaves a moment where the star
// has no cluster, and two concurrent re-clusterings could both insert.
// The upsert below swaps the row in place, so readers see either the old
// assignment or the new one and the star never holds two.
func (db *DB) Assign(ctx context.Context, ca *model.ClusterAssignment) error {
	ca.GeneratedAt = now()

	err := db.conn.QueryRowContext(ctx,
		`INSERT INTO cluster_assignments (`+clusterColumns+`) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(star_id) DO UPDATE SET
		     cluster_id        = excluded.cluster_id,
		     centroid_distance = excluded.centroid_distance,
		     generated_at      = excluded.generated_at
		 RETURNING id`,
		xid.New().String(), ca.ClusterID, ca.StarID, ca.CentroidDistance, ca.GeneratedAt,
	).Scan(&ca.ID)
	if err != nil {
		return fmt.Errorf("sqlite: reassigning star %s to cluster %d: %w", ca.StarID, ca.ClusterID, err)
	}
	return nil
}

func (db *DB) GetAssignment(ctx context.Context, starID string) (*model.ClusterAssignment, error) {
	ca, err := scanAssignment(db.conn.QueryRowContext(ctx,
		`SELECT `+clusterColumns+` FROM cluster_assignments WHERE star_id = ?`, starID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("cluster assignment for star", starID)
		}
		return nil, fmt.Errorf("sqlite: getting assignment for star %s: %w", starID, err)
	}
	return &ca, nil
}

// ClusterMembers lists a cluster's assignments, closest to the centre first.
// An unknown cluster is an empty list, not an error.
func (db *DB) ClusterMembers(ctx context.Context, clusterID int) ([]model.ClusterAssignment, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+clusterColumns+`
		 FROM cluster_assignments
		 WHERE cluster_id = ?
		 ORDER BY centroid_distance ASC, star_id`,
		clusterID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing cluster %d: %w", clusterID, err)
	}
	defer rows.Close()

	members := []model.ClusterAssignment{}
	for rows.Next() {
		ca, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning assignment row: %w", err)
		}
		members = append(members, ca)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating cluster members: %w", err)
	}
	return members, nil
}
