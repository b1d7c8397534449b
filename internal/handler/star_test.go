package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/starminder/internal/handler"
	"github.com/sakif/starminder/internal/model"
	"github.com/sakif/starminder/internal/service"
)

func TestStarHandler_Analysis(t *testing.T) {
	api := newTestAPI(t)
	alice := api.seedUser(t, 1)
	bob := api.seedUser(t, 2)
	stars := api.seedReminder(t, alice.ID, "cobra")
	ctx := context.Background()
	path := "/api/stars/" + stars[0].ID + "/analysis"

	rr := api.do(t, http.MethodGet, path, alice.ID, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code, "no analysis yet")

	_, err := api.analyses.RecordFetch(ctx, stars[0].ID, "# Cobra", nil)
	require.NoError(t, err)
	_, err = api.analyses.RecordAnalysis(ctx, stars[0].ID, service.AnalysisResult{
		Version:         "m",
		ReadmeEmbedding: []float32{1, 2, 3},
		HealthScore:     0.7,
	}, nil)
	require.NoError(t, err)

	rr = api.do(t, http.MethodGet, path, alice.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	got := decode[handler.AnalysisResponse](t, rr)
	assert.Equal(t, model.StateComplete, got.State)
	assert.Equal(t, 3, got.ReadmeEmbeddingDims)
	assert.Equal(t, 0, got.DescriptionEmbeddingDims)
	assert.Equal(t, 0.7, got.HealthScore)

	rr = api.do(t, http.MethodGet, path, bob.ID, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestStarHandler_Clusters(t *testing.T) {
	api := newTestAPI(t)
	alice := api.seedUser(t, 1)
	bob := api.seedUser(t, 2)
	aliceStars := api.seedReminder(t, alice.ID, "near", "far")
	bobStars := api.seedReminder(t, bob.ID, "other")

	assign := func(userID, starID string, cluster int, dist float64) int {
		return api.do(t, http.MethodPut, "/api/stars/"+starID+"/cluster", userID,
			map[string]any{"clusterId": cluster, "centroidDistance": dist}).Code
	}
	require.Equal(t, http.StatusOK, assign(alice.ID, aliceStars[1].ID, 3, 0.9))
	require.Equal(t, http.StatusOK, assign(alice.ID, aliceStars[0].ID, 3, 0.1))
	require.Equal(t, http.StatusOK, assign(bob.ID, bobStars[0].ID, 3, 0.5))

	// Reassigning replaces rather than duplicates.
	require.Equal(t, http.StatusOK, assign(alice.ID, aliceStars[1].ID, 3, 0.8))

	assert.Equal(t, http.StatusForbidden, assign(bob.ID, aliceStars[0].ID, 1, 0.1))
	assert.Equal(t, http.StatusBadRequest, assign(alice.ID, aliceStars[0].ID, -1, 0.1))

	rr := api.do(t, http.MethodGet, "/api/clusters/3", alice.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	members := decode[[]handler.ClusterMember](t, rr)
	require.Len(t, members, 2, "bob's star is hidden")
	assert.Equal(t, "near", members[0].Star.Name)
	assert.Equal(t, "far", members[1].Star.Name)
	assert.Equal(t, 0.8, members[1].CentroidDistance)

	rr = api.do(t, http.MethodGet, "/api/clusters/abc", alice.ID, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
