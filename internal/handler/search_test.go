package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/starminder/internal/search"
)

func TestSearchHandler(t *testing.T) {
	api := newTestAPI(t)
	alice := api.seedUser(t, 1)
	bob := api.seedUser(t, 2)
	api.seedReminder(t, alice.ID, "cobra", "viper")
	api.seedReminder(t, bob.ID, "cobra")

	_, err := api.index.Rebuild(context.Background(), api.db)
	require.NoError(t, err)

	rr := api.do(t, http.MethodGet, "/api/search?q=cobra", alice.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	results := decode[[]search.Result](t, rr)
	require.Len(t, results, 1)
	assert.Equal(t, "o/cobra", results[0].FullName)

	rr = api.do(t, http.MethodGet, "/api/search", alice.ID, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
