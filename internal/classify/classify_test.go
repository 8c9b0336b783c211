package classify

import (
	"testing"
	"time"

	"github.com/linnemanlabs/hermes/internal/enrich"
	"github.com/linnemanlabs/hermes/internal/feed"
)

func TestRelevant(t *testing.T) {
	t.Parallel()

	e := feed.Entry{
		Title:   "Kubernetes 1.33 released",
		Summary: "Removes long-deprecated flags",
		Content: "The kubelet drops --docker-endpoint.",
	}

	tests := []struct {
		name     string
		keywords []string
		want     bool
	}{
		{"no keywords passes everything", nil, true},
		{"match in title case-insensitive", []string{"KUBERNETES"}, true},
		{"match in summary", []string{"deprecated"}, true},
		{"match in content", []string{"kubelet"}, true},
		{"no match", []string{"terraform", "ansible"}, false},
		{"blank keywords ignored", []string{"  ", ""}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Relevant(e, tt.keywords); got != tt.want {
				t.Errorf("Relevant = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReportable(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		res  enrich.Result
		want bool
	}{
		{"future deadline", enrich.Result{Deadline: "2026-06-01"}, true},
		{"deadline today counts", enrich.Result{Deadline: "2026-03-15"}, true},
		{"past deadline", enrich.Result{Deadline: "2026-01-01"}, false},
		{"no deadline literal", enrich.Result{Deadline: NoDeadline}, false},
		{"empty deadline", enrich.Result{}, false},
		{"unparseable fails closed", enrich.Result{Deadline: "next Tuesday"}, false},
		{"wrong layout fails closed", enrich.Result{Deadline: "06/01/2026"}, false},
		{"not-relevant result", enrich.Result{Deadline: "2026-06-01", Empty: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Reportable(tt.res, now); got != tt.want {
				t.Errorf("Reportable = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCritical(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		res  enrich.Result
		want bool
	}{
		{"critical in impact", enrich.Result{Impact: "CRITICAL breakage for all users"}, true},
		{"urgent in actions", enrich.Result{Actions: []string{"Urgent: rotate keys"}}, true},
		{"immediate in actions", enrich.Result{Actions: []string{"requires immediate action"}}, true},
		{"plain result", enrich.Result{Impact: "minor", Actions: []string{"review changelog"}}, false},
		{"zero result", enrich.Result{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Critical(tt.res); got != tt.want {
				t.Errorf("Critical = %v, want %v", got, tt.want)
			}
		})
	}
}
