// Package ledger tracks which feed entries have already been through
// enrichment. The membership set is the single source of truth for "seen";
// the policy here (fail-open reads, record-before-mark writes) is what the
// rest of the pipeline relies on.
//
// Entries are never expired: the set grows for the lifetime of the store.
// Pruning is left to out-of-band operator tooling.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/hermes/internal/enrich"
	"github.com/linnemanlabs/hermes/internal/feed"
)

const (
	// ProcessedSet is the membership set of processed entry fingerprints.
	ProcessedSet = "processed_entries"

	recordKeyPrefix = "entry:"
)

// Store is the persistence interface the ledger runs on. Implementations
// live in memstore, redisstore, and pgstore.
type Store interface {
	Exists(ctx context.Context, set, key string) (bool, error)
	WriteRecord(ctx context.Context, key string, fields map[string]string) error
	AddToSet(ctx context.Context, set, key string) error
	ReadSet(ctx context.Context, set string) ([]string, error)
	ReadRecord(ctx context.Context, key string) (map[string]string, error)
}

// Ledger applies dedup policy on top of a Store.
type Ledger struct {
	store  Store
	logger log.Logger
}

// New creates a Ledger backed by the given store.
func New(store Store, logger log.Logger) *Ledger {
	if logger == nil {
		logger = log.Nop()
	}
	return &Ledger{store: store, logger: logger}
}

// RecordKey returns the storage key for an entry fingerprint.
func RecordKey(fingerprint string) string {
	return recordKeyPrefix + fingerprint
}

// IsProcessed reports whether the fingerprint is in the membership set.
// A store failure fails open: the entry is treated as unseen, trading a
// possible duplicate enrichment call for never silently dropping an item.
func (l *Ledger) IsProcessed(ctx context.Context, fingerprint string) bool {
	seen, err := l.store.Exists(ctx, ProcessedSet, fingerprint)
	if err != nil {
		l.logger.Error(ctx, err, "ledger membership check failed, treating entry as unseen",
			"fingerprint", fingerprint)
		return false
	}
	return seen
}

// Record persists the full entry record and then marks the fingerprint as
// processed. The membership mark is added only after the record body is
// written, so a partial failure never leaves a fingerprint marked processed
// without its record.
func (l *Ledger) Record(ctx context.Context, fingerprint string, e feed.Entry, res enrich.Result, source string) error {
	analysis, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}

	fields := map[string]string{
		"title":     e.Title,
		"link":      e.Link,
		"published": e.Published,
		"summary":   e.Summary,
		"content":   e.Content,
		"hash":      fingerprint,
		"feed_name": source,
		"analysis":  string(analysis),
	}

	if err := l.store.WriteRecord(ctx, RecordKey(fingerprint), fields); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	if err := l.store.AddToSet(ctx, ProcessedSet, fingerprint); err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	return nil
}

// Processed returns all fingerprints in the membership set.
func (l *Ledger) Processed(ctx context.Context) ([]string, error) {
	return l.store.ReadSet(ctx, ProcessedSet)
}

// Lookup fetches the stored record for a fingerprint. A missing record
// returns ok=false.
func (l *Ledger) Lookup(ctx context.Context, fingerprint string) (map[string]string, bool, error) {
	fields, err := l.store.ReadRecord(ctx, RecordKey(fingerprint))
	if err != nil {
		return nil, false, err
	}
	if len(fields) == 0 {
		return nil, false, nil
	}
	return fields, true, nil
}
