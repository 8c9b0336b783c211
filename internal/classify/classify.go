// Package classify holds the pure decision rules applied to entries and
// their analysis results: keyword relevance, reportability, and criticality.
package classify

import (
	"strings"
	"time"

	"github.com/linnemanlabs/hermes/internal/enrich"
	"github.com/linnemanlabs/hermes/internal/feed"
)

// DeadlineLayout is the calendar form analysis deadlines must take.
const DeadlineLayout = "2006-01-02"

// NoDeadline is the literal the analysis contract uses for undated changes.
const NoDeadline = "No deadline"

// criticalMarkers flag a result as needing urgent attention when present in
// its impact or actions.
var criticalMarkers = []string{"critical", "urgent", "immediate"}

// Relevant reports whether the entry matches any configured keyword,
// case-insensitive, across title, summary, and content. An empty keyword
// list passes every entry.
func Relevant(e feed.Entry, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	haystack := strings.ToLower(e.Title + " " + e.Summary + " " + e.Content)
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// Reportable reports whether the result carries a valid deadline that has
// not yet passed. Unparseable deadlines fail closed: a result we cannot date
// is not reportable on its own (degraded results surface through the
// manual-review path instead).
func Reportable(res enrich.Result, now time.Time) bool {
	if res.Empty {
		return false
	}
	if res.Deadline == "" || res.Deadline == NoDeadline {
		return false
	}
	d, err := time.Parse(DeadlineLayout, res.Deadline)
	if err != nil {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return !d.Before(today)
}

// Critical reports whether the result's impact or actions carry an urgency
// marker.
func Critical(res enrich.Result) bool {
	text := strings.ToLower(res.Impact + " " + strings.Join(res.Actions, " "))
	for _, m := range criticalMarkers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}
