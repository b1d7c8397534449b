package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/starminder/internal/apperror"
	"github.com/sakif/starminder/internal/model"
	"github.com/sakif/starminder/internal/service"
)

// StarHandler serves per-star analysis and cluster data. A star is only
// visible to the user whose reminder holds it.
type StarHandler struct {
	reminders *service.ReminderService
	analyses  *service.AnalysisService
	clusters  *service.ClusterService
	logger    *slog.Logger
}

func NewStarHandler(reminders *service.ReminderService, analyses *service.AnalysisService, clusters *service.ClusterService, logger *slog.Logger) *StarHandler {
	return &StarHandler{reminders: reminders, analyses: analyses, clusters: clusters, logger: logger}
}

// AnalysisResponse is a StarAnalysis plus its derived state and vector sizes.
// The vectors themselves are too large to be useful over JSON.
type AnalysisResponse struct {
	*model.StarAnalysis
	State                    model.AnalysisState `json:"state"`
	ReadmeEmbeddingDims      int                 `json:"readmeEmbeddingDims"`
	DescriptionEmbeddingDims int                 `json:"descriptionEmbeddingDims"`
}

// HandleGetAnalysis returns the star's analysis, or 404 if it has none yet.
//
// HTTP: GET /api/stars/{id}/analysis
func (h *StarHandler) HandleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	starID := chi.URLParam(r, "id")
	if _, err := h.reminders.GetStar(r.Context(), userID, starID); err != nil {
		writeError(w, err)
		return
	}

	a, err := h.analyses.Get(r.Context(), starID)
	if err != nil {
		writeError(w, err)
		return
	}
	readme, description, err := h.analyses.Embeddings(a)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "decoding embeddings", slog.String("starID", starID), slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, AnalysisResponse{
		StarAnalysis:             a,
		State:                    a.State(),
		ReadmeEmbeddingDims:      len(readme),
		DescriptionEmbeddingDims: len(description),
	})
}

type assignClusterRequest struct {
	ClusterID        int     `json:"clusterId"`
	CentroidDistance float64 `json:"centroidDistance"`
}

// HandleAssignCluster puts the star in a cluster, replacing any earlier
// assignment.
//
// HTTP: PUT /api/stars/{id}/cluster  {"clusterId": 3, "centroidDistance": 0.12}
func (h *StarHandler) HandleAssignCluster(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	starID := chi.URLParam(r, "id")
	if _, err := h.reminders.GetStar(r.Context(), userID, starID); err != nil {
		writeError(w, err)
		return
	}

	var req assignClusterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	ca, err := h.clusters.Assign(r.Context(), starID, req.ClusterID, req.CentroidDistance)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ca)
}

// ClusterMember is one star in a cluster listing.
type ClusterMember struct {
	model.ClusterAssignment
	Star service.StarDetail `json:"star"`
}

// HandleClusterMembers lists the user's stars in a cluster, closest to the
// centre first. Other users' stars in the same cluster are left out.
//
// HTTP: GET /api/clusters/{clusterID}
func (h *StarHandler) HandleClusterMembers(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	clusterID, err := intParam("clusterID", chi.URLParam(r, "clusterID"))
	if err != nil {
		writeError(w, err)
		return
	}

	members, err := h.clusters.Members(r.Context(), clusterID)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]ClusterMember, 0, len(members))
	for _, m := range members {
		star, err := h.reminders.GetStar(r.Context(), userID, m.StarID)
		if errors.Is(err, apperror.ErrForbidden) {
			continue
		}
		if err != nil {
			writeError(w, err)
			return
		}
		out = append(out, ClusterMember{ClusterAssignment: m, Star: *star})
	}
	writeJSON(w, http.StatusOK, out)
}
