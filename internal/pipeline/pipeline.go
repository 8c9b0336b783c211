// Package pipeline orchestrates ingestion runs: concurrent feed fetch,
// dedup, keyword filtering, enrichment, persistence, and report delivery.
package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/hermes/internal/classify"
	"github.com/linnemanlabs/hermes/internal/enrich"
	"github.com/linnemanlabs/hermes/internal/feed"
	"github.com/linnemanlabs/hermes/internal/report"
	"github.com/oklog/ulid/v2"
)

// maxRuns bounds the in-memory run history kept for API inspection.
const maxRuns = 50

// ErrRunActive is returned by Trigger while a run is still executing.
var ErrRunActive = errors.New("pipeline: a run is already active")

// Fetcher retrieves entries for one feed source.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]feed.Entry, error)
}

// Analyzer produces the structured analysis for an entry.
type Analyzer interface {
	Analyze(ctx context.Context, e feed.Entry) enrich.Result
}

// Ledger is the dedup and persistence boundary.
type Ledger interface {
	IsProcessed(ctx context.Context, fingerprint string) bool
	Record(ctx context.Context, fingerprint string, e feed.Entry, res enrich.Result, source string) error
}

// Renderer writes the report artifact and returns its path.
type Renderer interface {
	Render(rep report.Report, generatedAt time.Time) (string, error)
}

// Notifier delivers the report summary and attachment.
type Notifier interface {
	Send(ctx context.Context, summary, attachmentPath string) error
}

// Config scopes what a run scans for.
type Config struct {
	Sources  []string
	Keywords []string
}

// Deps are the collaborators a Service orchestrates.
type Deps struct {
	Fetcher  Fetcher
	Analyzer Analyzer
	Ledger   Ledger
	Renderer Renderer
	Notifier Notifier
	Metrics  *Metrics
	Logger   log.Logger
}

// Service runs the pipeline and keeps a bounded history of runs.
type Service struct {
	sources  []string
	keywords []string

	fetcher  Fetcher
	analyzer Analyzer
	ledger   Ledger
	renderer Renderer
	notifier Notifier
	metrics  *Metrics
	logger   log.Logger

	now func() time.Time

	mu     sync.Mutex
	active bool
	runs   []*Run
}

// NewService creates a pipeline service.
func NewService(cfg Config, d Deps) *Service {
	return &Service{
		sources:  cfg.Sources,
		keywords: cfg.Keywords,
		fetcher:  d.Fetcher,
		analyzer: d.Analyzer,
		ledger:   d.Ledger,
		renderer: d.Renderer,
		notifier: d.Notifier,
		metrics:  d.Metrics,
		logger:   d.Logger,
		now:      time.Now,
	}
}

// Trigger starts a run asynchronously and returns its initial state. Only one
// run executes at a time; a second trigger returns ErrRunActive.
func (s *Service) Trigger(ctx context.Context) (Run, error) {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return Run{}, ErrRunActive
	}
	run := &Run{ID: ulid.Make().String(), Status: StatusPending}
	s.active = true
	s.runs = append(s.runs, run)
	if len(s.runs) > maxRuns {
		s.runs = s.runs[len(s.runs)-maxRuns:]
	}
	snapshot := *run
	s.mu.Unlock()

	// detach from the caller's request lifetime
	go s.execute(context.WithoutCancel(ctx), snapshot.ID)

	return snapshot, nil
}

// Get returns a copy of the run with the given ID.
func (s *Service) Get(id string) (Run, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.runs {
		if r.ID == id {
			return *r, true
		}
	}
	return Run{}, false
}

// List returns copies of known runs, newest first.
func (s *Service) List() []Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Run, 0, len(s.runs))
	for i := len(s.runs) - 1; i >= 0; i-- {
		out = append(out, *s.runs[i])
	}
	return out
}

// Active reports whether a run is currently executing.
func (s *Service) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *Service) update(id string, fn func(*Run)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.runs {
		if r.ID == id {
			fn(r)
			return
		}
	}
}

func (s *Service) execute(ctx context.Context, id string) {
	defer func() {
		s.mu.Lock()
		s.active = false
		s.mu.Unlock()
	}()

	start := s.now()
	L := s.logger.With("run_id", id)
	s.update(id, func(r *Run) {
		r.Status = StatusInProgress
		r.StartedAt = start
	})
	L.Info(ctx, "run started", "sources", len(s.sources))

	acc := &accumulator{}
	stats := make([]SourceStats, len(s.sources))
	var wg sync.WaitGroup
	for i, url := range s.sources {
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			stats[i] = s.processSource(ctx, L, url, acc)
		}(i, url)
	}
	wg.Wait()

	// the buffer empties once per run, delivered or not
	items := acc.drain()

	var total, fresh, important, failedSources int
	for _, st := range stats {
		total += st.Entries
		fresh += st.New
		important += st.Important
		if st.Error != "" {
			failedSources++
		}
	}

	reportSent, reportPath := s.deliver(ctx, L, items)

	status := StatusComplete
	if len(s.sources) > 0 && failedSources == len(s.sources) {
		status = StatusFailed
	}
	end := s.now()
	duration := end.Sub(start).Seconds()
	s.update(id, func(r *Run) {
		r.Status = status
		r.CompletedAt = end
		r.Duration = duration
		r.Sources = stats
		r.TotalEntries = total
		r.NewEntries = fresh
		r.ImportantEntries = important
		r.ReportSent = reportSent
		r.ReportPath = reportPath
	})
	s.metrics.RunsTotal.WithLabelValues(string(status)).Inc()
	s.metrics.RunDuration.Observe(duration)

	L.Info(ctx, "run complete",
		"status", string(status),
		"entries", total,
		"new", fresh,
		"important", important,
		"report_sent", reportSent,
	)
}

// processSource fetches one feed and walks its entries sequentially so a
// throttled analysis call stalls only this source's slot. Errors are
// contained: a failed fetch fails the source, a failed entry skips the entry.
func (s *Service) processSource(ctx context.Context, L log.Logger, url string, acc *accumulator) SourceStats {
	st := SourceStats{URL: url}

	entries, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		L.Error(ctx, err, "feed fetch failed", "url", url)
		s.metrics.FetchesTotal.WithLabelValues("error").Inc()
		st.Error = err.Error()
		return st
	}
	s.metrics.FetchesTotal.WithLabelValues("success").Inc()
	st.Entries = len(entries)

	for _, e := range entries {
		s.metrics.EntriesSeen.Inc()

		fp := feed.Fingerprint(e)
		if s.ledger.IsProcessed(ctx, fp) {
			continue
		}
		if !classify.Relevant(e, s.keywords) {
			continue
		}

		res := s.analyzer.Analyze(ctx, e)
		switch {
		case res.Empty:
			s.metrics.EnrichmentsTotal.WithLabelValues("empty").Inc()
		case res.NeedsReview:
			s.metrics.EnrichmentsTotal.WithLabelValues("degraded").Inc()
		default:
			s.metrics.EnrichmentsTotal.WithLabelValues("ok").Inc()
		}

		if err := s.ledger.Record(ctx, fp, e, res, url); err != nil {
			L.Error(ctx, err, "ledger record failed", "url", url, "entry", e.Title)
		}
		st.New++
		s.metrics.EntriesNew.Inc()

		if !res.Empty && (res.Important || res.NeedsReview) {
			acc.add(report.Item{
				Title:     e.Title,
				Link:      e.Link,
				Published: e.Published,
				Source:    url,
				Analysis:  res,
			})
			st.Important++
		}
	}
	return st
}

// deliver builds, renders, and sends the report for the accumulated items.
// A render failure still posts the summary; a delivery failure is logged and
// the run continues.
func (s *Service) deliver(ctx context.Context, L log.Logger, items []report.Item) (sent bool, path string) {
	if len(items) == 0 {
		return false, ""
	}

	rep := report.Build(items, s.now())
	if len(rep.Rows) == 0 {
		L.Info(ctx, "no reportable items after filtering", "accumulated", len(items))
		s.metrics.ReportsTotal.WithLabelValues("skipped").Inc()
		return false, ""
	}

	path, err := s.renderer.Render(rep, s.now())
	if err != nil {
		L.Error(ctx, err, "report render failed")
		s.metrics.ReportsTotal.WithLabelValues("render_error").Inc()
		path = ""
	}

	if err := s.notifier.Send(ctx, rep.Summary, path); err != nil {
		L.Error(ctx, err, "report delivery failed")
		s.metrics.ReportsTotal.WithLabelValues("send_error").Inc()
		return false, path
	}
	s.metrics.ReportsTotal.WithLabelValues("sent").Inc()
	L.Info(ctx, "report delivered", "rows", len(rep.Rows), "path", path)
	return true, path
}

// accumulator collects important items across source goroutines.
type accumulator struct {
	mu    sync.Mutex
	items []report.Item
}

func (a *accumulator) add(it report.Item) {
	a.mu.Lock()
	a.items = append(a.items, it)
	a.mu.Unlock()
}

// drain returns the collected items and clears the buffer.
func (a *accumulator) drain() []report.Item {
	a.mu.Lock()
	defer a.mu.Unlock()
	items := a.items
	a.items = nil
	return items
}
