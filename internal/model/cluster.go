package model

import "time"

// ClusterAssignment places a star in exactly one cluster.
// A star has at most one assignment; re-clustering replaces it.
type ClusterAssignment struct {
	ID               string    `json:"id"`
	ClusterID        int       `json:"clusterId"`
	StarID           string    `json:"starId"`
	CentroidDistance float64   `json:"centroidDistance"` // lower = closer to the cluster's centre
	GeneratedAt      time.Time `json:"generatedAt"`
}
