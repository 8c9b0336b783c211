// Package runapi exposes pipeline runs over HTTP: trigger a run, inspect a
// run, list recent runs.
package runapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"
	"github.com/linnemanlabs/hermes/internal/pipeline"
)

// PipelineService defines the business operations runapi needs.
type PipelineService interface {
	Trigger(ctx context.Context) (pipeline.Run, error)
	Get(id string) (pipeline.Run, bool)
	List() []pipeline.Run
}

// LedgerReader exposes the processed-entry ledger for inspection.
type LedgerReader interface {
	Processed(ctx context.Context) ([]string, error)
	Lookup(ctx context.Context, fingerprint string) (map[string]string, bool, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	svc    PipelineService
	ledger LedgerReader
}

// New creates a new API handler.
func New(logger log.Logger, svc PipelineService, ledger LedgerReader) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("pipeline service is required"))
	}
	if ledger == nil {
		panic(xerrors.New("ledger is required"))
	}
	return &API{
		logger: logger,
		svc:    svc,
		ledger: ledger,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/runs", a.handleTriggerRun)
		r.Get("/runs", a.handleListRuns)
		r.Get("/runs/{id}", a.handleGetRun)
		r.Get("/entries", a.handleListEntries)
		r.Get("/entries/{fingerprint}", a.handleGetEntry)
	})
}

func (a *API) handleTriggerRun(w http.ResponseWriter, r *http.Request) {
	run, err := a.svc.Trigger(r.Context())
	if err != nil {
		if errors.Is(err, pipeline.ErrRunActive) {
			http.Error(w, `{"error":"a run is already active"}`, http.StatusConflict)
			return
		}
		a.logger.Error(r.Context(), err, "failed to trigger run")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("hermes.run.id", run.ID))

	a.logger.Info(r.Context(), "run triggered", "run_id", run.ID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(run)
}

func (a *API) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("hermes.run.id", id))

	run, ok := a.svc.Get(id)
	if !ok {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	span.SetAttributes(attribute.String("hermes.run.status", string(run.Status)))

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(run)
}

func (a *API) handleListRuns(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"runs": a.svc.List(),
	})
}

func (a *API) handleListEntries(w http.ResponseWriter, r *http.Request) {
	fingerprints, err := a.ledger.Processed(r.Context())
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to list processed entries")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if fingerprints == nil {
		fingerprints = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"fingerprints": fingerprints,
	})
}

func (a *API) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	fingerprint := chi.URLParam(r, "fingerprint")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("hermes.entry.fingerprint", fingerprint))

	fields, ok, err := a.ledger.Lookup(r.Context(), fingerprint)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to look up entry", "fingerprint", fingerprint)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(fields)
}
