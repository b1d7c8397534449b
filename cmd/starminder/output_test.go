package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/starminder/internal/model"
	"github.com/sakif/starminder/internal/pipeline"
	"github.com/sakif/starminder/internal/search"
	"github.com/sakif/starminder/internal/service"
)

func init() {
	color.NoColor = true
}

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "short", truncateText("short", 10))
	assert.Equal(t, "abcd…", truncateText("abcdefgh", 5))
	assert.Equal(t, "日本…", truncateText("日本語です", 3))
}

func TestPrintReminder(t *testing.T) {
	detail := &service.ReminderDetail{
		Reminder: model.Reminder{ID: "r1", CreatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		Title:    "Reminder from March 1, 2024",
		Stars: []service.StarDetail{{
			Star:              model.Star{StarFields: model.StarFields{Owner: "go-chi", Name: "chi", StarCount: 18000}},
			FullName:          "go-chi/chi",
			DescriptionPretty: "lightweight router 🚀",
		}},
	}

	var buf bytes.Buffer
	require.NoError(t, printReminder(&buf, detail))
	out := buf.String()
	assert.Contains(t, out, "Reminder from March 1, 2024")
	assert.Contains(t, out, "go-chi/chi")
	assert.Contains(t, out, "18000")
}

func TestPrintReminders_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printReminders(&buf, nil))
	assert.Equal(t, "no reminders yet\n", buf.String())
}

func TestPrintSearchResults(t *testing.T) {
	var buf bytes.Buffer
	err := printSearchResults(&buf, []search.Result{
		{StarID: "s1", FullName: "blevesearch/bleve", RepoURL: "https://github.com/blevesearch/bleve", Score: 1.23456},
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "blevesearch/bleve")
	assert.Contains(t, buf.String(), "1.235")
}

func TestPrintStats(t *testing.T) {
	var buf bytes.Buffer
	printStats(&buf, pipeline.Stats{Processed: 3, Analyzed: 2, AnalysisFailed: 1})
	assert.Contains(t, buf.String(), "Processed:       3")
	assert.Contains(t, buf.String(), "Analysis failed: 1")
}

func TestPrintSetupResult_Placeholders(t *testing.T) {
	var buf bytes.Buffer
	printSetupResult(&buf, &service.SetupResult{
		Site:               model.Site{Domain: "127.0.0.1:8000", Name: "Starminder Local"},
		App:                model.SocialApp{Name: "GitHub", ClientID: "dummy_client_id"},
		Created:            true,
		UsingPlaceholders:  true,
		PlaceholderSources: []string{"GITHUB_CLIENT_ID"},
	})
	assert.Contains(t, buf.String(), "created social app")
	assert.Contains(t, buf.String(), "GitHub login will NOT work")
}

func TestPrintAnalyses(t *testing.T) {
	lang := "Go"
	done := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	complete := model.NewStarAnalysis("star-1")
	complete.Language = &lang
	complete.PriorityScore = 0.9
	complete.RecordFetch("# readme", nil)
	complete.RecordAnalysis(done, "text-embedding-3-large", nil)

	var buf bytes.Buffer
	require.NoError(t, printAnalyses(&buf, []model.StarAnalysis{*complete, *model.NewStarAnalysis("star-2")}))
	out := buf.String()
	assert.Contains(t, out, "star-1")
	assert.Contains(t, out, "complete")
	assert.Contains(t, out, "0.90")
	assert.Contains(t, out, "unanalyzed")
}
