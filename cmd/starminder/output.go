package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/sakif/starminder/internal/model"
	"github.com/sakif/starminder/internal/pipeline"
	"github.com/sakif/starminder/internal/search"
	"github.com/sakif/starminder/internal/service"
)

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	warnColor = color.New(color.FgYellow, color.Bold)
	failColor = color.New(color.FgRed)
	dimColor  = color.New(color.FgHiBlack)
)

// maxDescriptionWidth keeps table rows on one terminal line.
const maxDescriptionWidth = 60

func okMark() string { return okColor.Sprint("✓") }

func truncateText(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func printSetupResult(w io.Writer, res *service.SetupResult) {
	verb := "updated"
	if res.Created {
		verb = "created"
	}
	fmt.Fprintf(w, "%s site %q (%s)\n", okMark(), res.Site.Name, res.Site.Domain)
	fmt.Fprintf(w, "%s %s social app %q (client id %s)\n", okMark(), verb, res.App.Name, res.App.ClientID)
	if res.UsingPlaceholders {
		fmt.Fprintf(w, "%s placeholder credentials for %s; GitHub login will NOT work\n",
			warnColor.Sprint("!"), strings.Join(res.PlaceholderSources, ", "))
	}
}

func printReminder(w io.Writer, detail *service.ReminderDetail) error {
	fmt.Fprintf(w, "%s %s\n\n", okMark(), detail.Title)

	table := tablewriter.NewWriter(w)
	table.Header([]string{"#", "Repository", "Stars", "Description"})

	var data [][]string
	for i, s := range detail.Stars {
		data = append(data, []string{
			strconv.Itoa(i + 1),
			s.FullName,
			strconv.Itoa(s.StarCount),
			truncateText(s.DescriptionPretty, maxDescriptionWidth),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func printReminders(w io.Writer, reminders []service.ReminderDetail) error {
	if len(reminders) == 0 {
		fmt.Fprintln(w, dimColor.Sprint("no reminders yet"))
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"ID", "Title"})

	var data [][]string
	for _, r := range reminders {
		data = append(data, []string{r.ID, r.Title})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func printSearchResults(w io.Writer, results []search.Result) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Rank", "Repository", "Score", "URL"})

	var data [][]string
	for i, r := range results {
		data = append(data, []string{
			strconv.Itoa(i + 1),
			r.FullName,
			strconv.FormatFloat(r.Score, 'f', 3, 64),
			r.RepoURL,
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func stateLabel(a *model.StarAnalysis) string {
	state := string(a.State())
	switch {
	case a.Failed():
		return failColor.Sprint(state)
	case a.State() == model.StateComplete:
		return okColor.Sprint(state)
	default:
		return dimColor.Sprint(state)
	}
}

func printAnalyses(w io.Writer, list []model.StarAnalysis) error {
	if len(list) == 0 {
		fmt.Fprintln(w, dimColor.Sprint("no analyses yet"))
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Star", "State", "Priority", "Health", "Language", "Model"})

	var data [][]string
	for i := range list {
		a := &list[i]
		lang := ""
		if a.Language != nil {
			lang = *a.Language
		}
		data = append(data, []string{
			a.StarID,
			stateLabel(a),
			strconv.FormatFloat(a.PriorityScore, 'f', 2, 64),
			strconv.FormatFloat(a.HealthScore, 'f', 2, 64),
			lang,
			a.AnalysisVersion,
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func printStats(w io.Writer, s pipeline.Stats) {
	failed := func(n int64) string {
		if n == 0 {
			return "0"
		}
		return failColor.Sprint(n)
	}
	fmt.Fprintf(w, "Processed:       %d\n", s.Processed)
	fmt.Fprintf(w, "Analyzed:        %s\n", okColor.Sprint(s.Analyzed))
	fmt.Fprintf(w, "Fetch failed:    %s\n", failed(s.FetchFailed))
	fmt.Fprintf(w, "Analysis failed: %s\n", failed(s.AnalysisFailed))
	fmt.Fprintf(w, "Clustered:       %d\n", s.Clustered)
}
