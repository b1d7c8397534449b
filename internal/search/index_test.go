package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/starminder/internal/model"
)

type fakeSource struct {
	stars []model.SearchableStar
	err   error
}

func (f fakeSource) ListSearchableStars(context.Context) ([]model.SearchableStar, error) {
	return f.stars, f.err
}

func star(id, userID, owner, name, description, readme string) model.SearchableStar {
	return model.SearchableStar{
		Star: model.Star{
			ID: id,
			StarFields: model.StarFields{
				Provider:    "github",
				ProviderID:  owner + "/" + name,
				Owner:       owner,
				Name:        name,
				Description: description,
				RepoURL:     "https://github.com/" + owner + "/" + name,
			},
		},
		UserID: userID,
		Readme: readme,
	}
}

func newTestIndex(t *testing.T, stars ...model.SearchableStar) *Index {
	t.Helper()
	idx, err := NewIndex()
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	n, err := idx.Rebuild(context.Background(), fakeSource{stars: stars})
	require.NoError(t, err)
	require.Equal(t, len(stars), n)
	return idx
}

func TestSearch_ScopedToUser(t *testing.T) {
	idx := newTestIndex(t,
		star("s1", "alice", "spf13", "cobra", "A Commander for modern Go CLI interactions", ""),
		star("s2", "bob", "spf13", "cobra", "A Commander for modern Go CLI interactions", ""),
		star("s3", "alice", "go-chi", "chi", "lightweight router", ""),
	)

	results, err := idx.Search("alice", "commander", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "s1", results[0].StarID)
	assert.Equal(t, "spf13/cobra", results[0].FullName)
	assert.Equal(t, "https://github.com/spf13/cobra", results[0].RepoURL)

	results, err = idx.Search("carol", "commander", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_MatchesReadme(t *testing.T) {
	idx := newTestIndex(t,
		star("s1", "alice", "modernc", "sqlite", "", "A pure Go port of SQLite, no cgo required."),
		star("s2", "alice", "mattn", "go-sqlite3", "sqlite3 driver", "Requires cgo."),
	)

	results, err := idx.Search("alice", "port", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "s1", results[0].StarID)
	assert.NotEmpty(t, results[0].Fragments["Readme"])
}

func TestSearch_RendersEmojiBeforeIndexing(t *testing.T) {
	idx := newTestIndex(t, star("s1", "alice", "o", "n", ":rocket: blazing fast", ""))

	results, err := idx.Search("alice", "blazing", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Fragments["Description"][0], "🚀")
}

func TestRebuild_ReplacesContents(t *testing.T) {
	idx := newTestIndex(t, star("s1", "alice", "o", "old", "removed later", ""))

	_, err := idx.Rebuild(context.Background(), fakeSource{stars: []model.SearchableStar{
		star("s2", "alice", "o", "new", "fresh entry", ""),
	}})
	require.NoError(t, err)

	count, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	results, err := idx.Search("alice", "removed", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRebuild_ErrorKeepsIndex(t *testing.T) {
	idx := newTestIndex(t, star("s1", "alice", "o", "n", "still here", ""))

	_, err := idx.Rebuild(context.Background(), fakeSource{err: errors.New("db down")})
	require.Error(t, err)

	results, err := idx.Search("alice", "still", 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}
