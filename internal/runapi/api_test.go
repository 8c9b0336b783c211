package runapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/hermes/internal/pipeline"
)

type fakeService struct {
	runs       []pipeline.Run
	triggerErr error
	triggered  int
}

func (f *fakeService) Trigger(context.Context) (pipeline.Run, error) {
	if f.triggerErr != nil {
		return pipeline.Run{}, f.triggerErr
	}
	f.triggered++
	run := pipeline.Run{ID: "01JN0000000000000000000000", Status: pipeline.StatusPending}
	f.runs = append(f.runs, run)
	return run, nil
}

func (f *fakeService) Get(id string) (pipeline.Run, bool) {
	for _, r := range f.runs {
		if r.ID == id {
			return r, true
		}
	}
	return pipeline.Run{}, false
}

func (f *fakeService) List() []pipeline.Run { return f.runs }

type fakeLedger struct {
	records map[string]map[string]string
	err     error
}

func (f *fakeLedger) Processed(context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	fingerprints := make([]string, 0, len(f.records))
	for fp := range f.records {
		fingerprints = append(fingerprints, fp)
	}
	return fingerprints, nil
}

func (f *fakeLedger) Lookup(_ context.Context, fingerprint string) (map[string]string, bool, error) {
	if f.err != nil {
		return nil, false, f.err
	}
	fields, ok := f.records[fingerprint]
	return fields, ok, nil
}

func newTestRouter(svc *fakeService, ldg *fakeLedger) chi.Router {
	if ldg == nil {
		ldg = &fakeLedger{}
	}
	api := New(log.Nop(), svc, ldg)
	r := chi.NewRouter()
	api.RegisterRoutes(r)
	return r
}

func TestNewNilService_Panics(t *testing.T) {
	t.Parallel()

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("New did not panic; expected panic for nil service")
		}
	}()
	New(nil, nil, &fakeLedger{})
}

func TestNewNilLedger_Panics(t *testing.T) {
	t.Parallel()

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("New did not panic; expected panic for nil ledger")
		}
	}()
	New(nil, &fakeService{}, nil)
}

func TestTriggerRun(t *testing.T) {
	t.Parallel()

	svc := &fakeService{}
	r := newTestRouter(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	var run pipeline.Run
	if err := json.NewDecoder(rec.Body).Decode(&run); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if run.ID == "" || run.Status != pipeline.StatusPending {
		t.Errorf("run = %+v", run)
	}
	if svc.triggered != 1 {
		t.Errorf("triggered = %d, want 1", svc.triggered)
	}
}

func TestTriggerRunConflict(t *testing.T) {
	t.Parallel()

	svc := &fakeService{triggerErr: pipeline.ErrRunActive}
	r := newTestRouter(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "already active") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestGetRun(t *testing.T) {
	t.Parallel()

	svc := &fakeService{runs: []pipeline.Run{{
		ID:         "01JN0000000000000000000001",
		Status:     pipeline.StatusComplete,
		NewEntries: 3,
	}}}
	r := newTestRouter(svc, nil)

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{"found", "/api/v1/runs/01JN0000000000000000000001", http.StatusOK},
		{"not found", "/api/v1/runs/unknown", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestListRuns(t *testing.T) {
	t.Parallel()

	svc := &fakeService{runs: []pipeline.Run{
		{ID: "01JN0000000000000000000001", Status: pipeline.StatusComplete},
		{ID: "01JN0000000000000000000002", Status: pipeline.StatusInProgress},
	}}
	r := newTestRouter(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Runs []pipeline.Run `json:"runs"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Runs) != 2 {
		t.Errorf("runs = %d, want 2", len(body.Runs))
	}
}

func TestListEntries(t *testing.T) {
	t.Parallel()

	ldg := &fakeLedger{records: map[string]map[string]string{
		"abc123": {"title": "Go 1.26 released"},
	}}
	r := newTestRouter(&fakeService{}, ldg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/entries", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Fingerprints []string `json:"fingerprints"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Fingerprints) != 1 || body.Fingerprints[0] != "abc123" {
		t.Errorf("fingerprints = %v, want [abc123]", body.Fingerprints)
	}
}

func TestListEntriesEmpty(t *testing.T) {
	t.Parallel()

	r := newTestRouter(&fakeService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/entries", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"fingerprints":[]`) {
		t.Errorf("body = %q, want empty fingerprints array", rec.Body.String())
	}
}

func TestGetEntry(t *testing.T) {
	t.Parallel()

	ldg := &fakeLedger{records: map[string]map[string]string{
		"abc123": {
			"title":     "Go 1.26 released",
			"link":      "https://go.dev/blog/go1.26",
			"feed_name": "https://go.dev/blog/feed.atom",
		},
	}}
	r := newTestRouter(&fakeService{}, ldg)

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{"found", "/api/v1/entries/abc123", http.StatusOK},
		{"not found", "/api/v1/entries/deadbeef", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var fields map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&fields); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if fields["title"] != "Go 1.26 released" {
				t.Errorf("title = %q", fields["title"])
			}
		})
	}
}

func TestGetEntryStoreError(t *testing.T) {
	t.Parallel()

	ldg := &fakeLedger{err: errors.New("store down")}
	r := newTestRouter(&fakeService{}, ldg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/entries/abc123", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	t.Parallel()

	r := newTestRouter(&fakeService{}, nil)

	for _, method := range []string{http.MethodPut, http.MethodDelete, http.MethodPatch} {
		req := httptest.NewRequest(method, "/api/v1/runs", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s /api/v1/runs = %d, want 405", method, rec.Code)
		}
	}
}
