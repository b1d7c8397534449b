package model

import "time"

// DefaultHealthScore is the neutral health of a repository we know nothing about.
// Health runs from 0 (stale) to 1 (very active).
const DefaultHealthScore = 0.5

// AnalysisState is the lifecycle position of a StarAnalysis, derived from its flags.
type AnalysisState string

const (
	StateUnanalyzed        AnalysisState = "unanalyzed"
	StateFetchAttempted    AnalysisState = "fetch_attempted"
	StateAnalysisAttempted AnalysisState = "analysis_attempted"
	StateComplete          AnalysisState = "complete"
)

// StarAnalysis is the enrichment attached 1:1 to a Star.
//
// NULLABLE COLUMNS AS POINTERS:
// ReadmeContent, Language and the error fields can be NULL in the database.
// A *string distinguishes "never set" (nil) from "set to empty" (""), which
// matters for the error fields: FetchError == nil means the fetch succeeded
// (or was never tried; check FetchAttempted).
//
// Embeddings are stored as raw little-endian float32 buffers; use
// embedding.Decode to read them back.
type StarAnalysis struct {
	ID     string `json:"id"`
	StarID string `json:"starId"`

	ReadmeContent        *string `json:"readmeContent,omitempty"`
	ReadmeEmbedding      []byte  `json:"-"`
	DescriptionEmbedding []byte  `json:"-"`

	AnalysisDate    *time.Time `json:"analysisDate,omitempty"`
	AnalysisVersion string     `json:"analysisVersion"` // e.g. "text-embedding-3-large"
	PriorityScore   float64    `json:"priorityScore"`

	LastCommitDate *time.Time `json:"lastCommitDate,omitempty"`
	Language       *string    `json:"language,omitempty"`
	HealthScore    float64    `json:"healthScore"`

	FetchAttempted    bool    `json:"fetchAttempted"`
	FetchError        *string `json:"fetchError,omitempty"`
	AnalysisAttempted bool    `json:"analysisAttempted"`
	AnalysisError     *string `json:"analysisError,omitempty"`

	Tags []Tag `json:"tags"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewStarAnalysis returns an empty analysis for starID with column defaults applied.
func NewStarAnalysis(starID string) *StarAnalysis {
	return &StarAnalysis{
		StarID:      starID,
		HealthScore: DefaultHealthScore,
	}
}

// State derives the lifecycle state from the attempt flags.
func (a *StarAnalysis) State() AnalysisState {
	switch {
	case a.AnalysisAttempted && a.FetchAttempted && !a.Failed():
		return StateComplete
	case a.AnalysisAttempted:
		return StateAnalysisAttempted
	case a.FetchAttempted:
		return StateFetchAttempted
	}
	return StateUnanalyzed
}

// Failed reports whether any recorded attempt left an error behind.
func (a *StarAnalysis) Failed() bool {
	return a.FetchError != nil || a.AnalysisError != nil
}

// RecordFetch marks the README fetch as attempted. A successful fetch clears
// the error left by an earlier attempt and stores the README.
func (a *StarAnalysis) RecordFetch(readme string, err error) {
	a.FetchAttempted = true
	if err != nil {
		msg := err.Error()
		a.FetchError = &msg
		return
	}
	a.FetchError = nil
	a.ReadmeContent = &readme
}

// RecordAnalysis marks analysis as attempted and stores the error text, if any.
func (a *StarAnalysis) RecordAnalysis(at time.Time, version string, err error) {
	a.AnalysisAttempted = true
	a.AnalysisDate = &at
	a.AnalysisVersion = version
	if err != nil {
		msg := err.Error()
		a.AnalysisError = &msg
		return
	}
	a.AnalysisError = nil
}
