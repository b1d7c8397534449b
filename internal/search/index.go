// Package search is full-text search over a user's starred repositories.
//
// The index lives in memory and is rebuilt from the database rather than
// updated row by row: the analysis pipeline usually runs in a separate
// process, and a bleve index on disk can only be opened by one process at
// a time. Rebuild builds a fresh index off to the side and swaps it in, so
// searches never see a half-built index.
package search

import (
	"context"
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/sakif/starminder/internal/model"
)

// DefaultLimit caps results when the caller asks for none.
const DefaultLimit = 20

// maxReadmeLen bounds how much README text goes into the index.
const maxReadmeLen = 16 * 1024

// Source supplies the stars to index.
type Source interface {
	ListSearchableStars(ctx context.Context) ([]model.SearchableStar, error)
}

// document is what bleve stores for each star.
type document struct {
	UserID      string
	FullName    string
	Owner       string
	Name        string
	Description string
	Readme      string
	RepoURL     string
	StarCount   float64
}

// Result is one search hit.
type Result struct {
	StarID    string              `json:"starId"`
	FullName  string              `json:"fullName"`
	RepoURL   string              `json:"repoUrl"`
	Score     float64             `json:"score"`
	Fragments map[string][]string `json:"fragments,omitempty"`
}

// Index is safe for concurrent use.
type Index struct {
	mu    sync.RWMutex
	index bleve.Index
}

// NewIndex returns an empty in-memory index.
func NewIndex() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("search: creating index: %w", err)
	}
	return &Index{index: idx}, nil
}

// buildIndexMapping indexes UserID and RepoURL verbatim and keeps them out
// of the _all field, so free-text queries only see the prose fields.
func buildIndexMapping() mapping.IndexMapping {
	exact := bleve.NewTextFieldMapping()
	exact.Analyzer = keyword.Name
	exact.IncludeInAll = false

	// Queries without a field hit _all with the standard analyzer; the
	// prose fields use the same one so stems line up.
	prose := bleve.NewTextFieldMapping()
	name := bleve.NewTextFieldMapping()

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("UserID", exact)
	docMapping.AddFieldMappingsAt("FullName", name)
	docMapping.AddFieldMappingsAt("Owner", name)
	docMapping.AddFieldMappingsAt("Name", name)
	docMapping.AddFieldMappingsAt("Description", prose)
	docMapping.AddFieldMappingsAt("Readme", prose)
	docMapping.AddFieldMappingsAt("RepoURL", exact)
	docMapping.AddFieldMappingsAt("StarCount", bleve.NewNumericFieldMapping())

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

func newDocument(s model.SearchableStar) document {
	readme := s.Readme
	if len(readme) > maxReadmeLen {
		readme = readme[:maxReadmeLen]
	}
	return document{
		UserID:      s.UserID,
		FullName:    s.FullName(),
		Owner:       s.Owner,
		Name:        s.Name,
		Description: s.DescriptionPretty(),
		Readme:      readme,
		RepoURL:     s.RepoURL,
		StarCount:   float64(s.StarCount),
	}
}

// Rebuild replaces the whole index with the stars in src and returns how
// many were indexed. On error the current index is left untouched.
func (i *Index) Rebuild(ctx context.Context, src Source) (int, error) {
	stars, err := src.ListSearchableStars(ctx)
	if err != nil {
		return 0, fmt.Errorf("search: loading stars: %w", err)
	}

	fresh, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return 0, fmt.Errorf("search: creating index: %w", err)
	}
	batch := fresh.NewBatch()
	for _, s := range stars {
		if err := batch.Index(s.ID, newDocument(s)); err != nil {
			fresh.Close()
			return 0, fmt.Errorf("search: batch index %s: %w", s.ID, err)
		}
	}
	if err := fresh.Batch(batch); err != nil {
		fresh.Close()
		return 0, fmt.Errorf("search: committing batch: %w", err)
	}

	i.mu.Lock()
	old := i.index
	i.index = fresh
	i.mu.Unlock()
	old.Close()

	return len(stars), nil
}

// Search runs a query-string query (quotes, +/-, field:value and fuzzy ~
// all work) restricted to userID's stars.
func (i *Index) Search(userID, queryStr string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	owner := bleve.NewTermQuery(userID)
	owner.SetField("UserID")
	q := bleve.NewConjunctionQuery([]query.Query{owner, bleve.NewQueryStringQuery(queryStr)}...)

	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	req.Highlight = bleve.NewHighlight()
	req.Highlight.AddField("Description")
	req.Highlight.AddField("Readme")
	req.Fields = []string{"FullName", "RepoURL"}

	i.mu.RLock()
	res, err := i.index.Search(req)
	i.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	results := make([]Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		r := Result{StarID: hit.ID, Score: hit.Score, Fragments: hit.Fragments}
		if v, ok := hit.Fields["FullName"].(string); ok {
			r.FullName = v
		}
		if v, ok := hit.Fields["RepoURL"].(string); ok {
			r.RepoURL = v
		}
		results = append(results, r)
	}
	return results, nil
}

// Count returns the number of indexed stars.
func (i *Index) Count() (uint64, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.index.DocCount()
}

func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.index.Close()
}
