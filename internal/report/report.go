// Package report turns the run's accumulated important items into a
// deliverable: sorted rows for the PDF renderer and a Slack mrkdwn summary.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/linnemanlabs/hermes/internal/classify"
	"github.com/linnemanlabs/hermes/internal/enrich"
)

// Item is one accumulated important entry awaiting reporting.
type Item struct {
	Title     string
	Link      string
	Published string
	Source    string
	Analysis  enrich.Result
}

// Row is a report line with its derived presentation fields.
type Row struct {
	Item
	Critical bool

	// sortKey is the parsed deadline; unusable deadlines get the max key so
	// they sort after every dated row.
	sortKey time.Time
}

// Report is the built deliverable for one run.
type Report struct {
	Rows        []Row
	Summary     string
	Total       int
	Critical    int
	NonCritical int
}

// unusableDeadline sorts after any real calendar date.
var unusableDeadline = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// Build filters, sorts, and summarizes the items. Items kept are those with
// a valid future deadline plus degraded results needing manual review, so
// analysis failures surface instead of vanishing. Degraded and otherwise
// undatable rows sort last. An empty Rows slice means nothing to report.
func Build(items []Item, now time.Time) Report {
	var rows []Row
	for _, it := range items {
		if !classify.Reportable(it.Analysis, now) && !it.Analysis.NeedsReview {
			continue
		}
		key := unusableDeadline
		if d, err := time.Parse(classify.DeadlineLayout, it.Analysis.Deadline); err == nil {
			key = d
		}
		rows = append(rows, Row{
			Item:     it,
			Critical: classify.Critical(it.Analysis),
			sortKey:  key,
		})
	}
	if len(rows) == 0 {
		return Report{}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].sortKey.Before(rows[j].sortKey)
	})

	r := Report{Rows: rows, Total: len(rows)}
	for _, row := range rows {
		if row.Critical {
			r.Critical++
		} else {
			r.NonCritical++
		}
	}
	r.Summary = summarize(r)
	return r
}

// summarize renders the Slack mrkdwn body: header counts, then one bullet
// per row with a siren marker for critical items.
func summarize(r Report) string {
	var b strings.Builder
	b.WriteString("*Hermes Feed Analysis Report*\n\n")
	b.WriteString("*Event Summary:*\n")
	fmt.Fprintf(&b, "• Total Events: %d\n", r.Total)
	fmt.Fprintf(&b, "• Critical Events: %d\n", r.Critical)
	fmt.Fprintf(&b, "• Non-Critical Events: %d\n\n", r.NonCritical)
	b.WriteString("*Important Updates:*\n")

	for _, row := range r.Rows {
		marker := ""
		if row.Critical {
			marker = " 🚨"
		}
		fmt.Fprintf(&b, "• *%s*%s\n", row.Title, marker)
		fmt.Fprintf(&b, "  Summary: %s\n", orDefault(row.Analysis.Summary, "No summary available"))
		fmt.Fprintf(&b, "  Deadline: %s\n", orDefault(row.Analysis.Deadline, classify.NoDeadline))
		fmt.Fprintf(&b, "  Impact: %s\n", orDefault(row.Analysis.Impact, "Unknown"))
		fmt.Fprintf(&b, "  Feed: %s\n", orDefault(row.Source, "Unknown Feed"))
		if len(row.Analysis.Actions) > 0 {
			b.WriteString("  Actions:\n")
			for _, a := range row.Analysis.Actions {
				fmt.Fprintf(&b, "    - %s\n", a)
			}
		}
		fmt.Fprintf(&b, "  <%s|Read more>\n\n", row.Link)
	}
	return b.String()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
