package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/starminder/internal/apperror"
	"github.com/sakif/starminder/internal/model"
	"github.com/sakif/starminder/internal/repository"
)

// ClusterService stores cluster memberships computed elsewhere.
// Each star is in at most one cluster at a time.
type ClusterService struct {
	clusters repository.ClusterRepository
	logger   *slog.Logger
}

func NewClusterService(clusters repository.ClusterRepository, logger *slog.Logger) *ClusterService {
	return &ClusterService{clusters: clusters, logger: logger}
}

func validateAssignment(starID string, clusterID int, distance float64) error {
	if starID == "" {
		return apperror.ValidationFailed("starId", "star ID is required")
	}
	if clusterID < 0 {
		return apperror.ValidationFailed("clusterId", "clusterId must not be negative")
	}
	if err := validateScore("centroidDistance", distance); err != nil {
		return err
	}
	if distance < 0 {
		return apperror.ValidationFailed("centroidDistance", "centroidDistance must not be negative")
	}
	return nil
}

// Assign places the star in clusterID, replacing any previous cluster.
func (s *ClusterService) Assign(ctx context.Context, starID string, clusterID int, distance float64) (*model.ClusterAssignment, error) {
	if err := validateAssignment(starID, clusterID, distance); err != nil {
		return nil, err
	}

	ca := &model.ClusterAssignment{ClusterID: clusterID, StarID: starID, CentroidDistance: distance}
	if err := s.clusters.Assign(ctx, ca); err != nil {
		return nil, fmt.Errorf("service/cluster: assigning %s: %w", starID, err)
	}

	s.logger.DebugContext(ctx, "star clustered",
		slog.String("starID", starID),
		slog.Int("clusterID", clusterID),
		slog.Float64("distance", distance),
	)
	return ca, nil
}

// Create assigns a star that must not be clustered yet; an existing
// assignment is ErrDuplicate.
func (s *ClusterService) Create(ctx context.Context, starID string, clusterID int, distance float64) (*model.ClusterAssignment, error) {
	if err := validateAssignment(starID, clusterID, distance); err != nil {
		return nil, err
	}

	ca := &model.ClusterAssignment{ClusterID: clusterID, StarID: starID, CentroidDistance: distance}
	if err := s.clusters.CreateAssignment(ctx, ca); err != nil {
		return nil, fmt.Errorf("service/cluster: creating assignment for %s: %w", starID, err)
	}
	return ca, nil
}

// Get returns the star's current cluster.
func (s *ClusterService) Get(ctx context.Context, starID string) (*model.ClusterAssignment, error) {
	ca, err := s.clusters.GetAssignment(ctx, starID)
	if err != nil {
		return nil, fmt.Errorf("service/cluster: getting assignment for %s: %w", starID, err)
	}
	return ca, nil
}

// Members lists a cluster, closest to the centroid first.
func (s *ClusterService) Members(ctx context.Context, clusterID int) ([]model.ClusterAssignment, error) {
	members, err := s.clusters.ClusterMembers(ctx, clusterID)
	if err != nil {
		return nil, fmt.Errorf("service/cluster: listing cluster %d: %w", clusterID, err)
	}
	return members, nil
}
