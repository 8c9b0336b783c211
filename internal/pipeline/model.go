package pipeline

import "time"

// Status tracks where a run is in its lifecycle.
type Status string

const (
	// StatusPending means created, not yet started
	StatusPending Status = "pending"

	// StatusInProgress means currently scanning feeds
	StatusInProgress Status = "in_progress"

	// StatusComplete means finished (individual sources may still have failed)
	StatusComplete Status = "complete"

	// StatusFailed means every configured source failed
	StatusFailed Status = "failed"
)

// SourceStats is the per-feed outcome of one run.
type SourceStats struct {
	URL       string `json:"url"`
	Entries   int    `json:"entries"`
	New       int    `json:"new"`
	Important int    `json:"important"`
	Error     string `json:"error,omitempty"`
}

// Run is the record of one pipeline execution.
type Run struct {
	ID               string        `json:"id"`
	Status           Status        `json:"status"`
	StartedAt        time.Time     `json:"started_at"`
	CompletedAt      time.Time     `json:"completed_at,omitempty"`
	Duration         float64       `json:"duration_seconds,omitempty"`
	Sources          []SourceStats `json:"sources,omitempty"`
	TotalEntries     int           `json:"total_entries"`
	NewEntries       int           `json:"new_entries"`
	ImportantEntries int           `json:"important_entries"`
	ReportSent       bool          `json:"report_sent"`
	ReportPath       string        `json:"report_path,omitempty"`
}
