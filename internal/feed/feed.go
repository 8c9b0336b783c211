// Package feed defines the entry model and the fetcher that retrieves and
// parses RSS/Atom feeds into entries.
package feed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
)

const fetchTimeout = 30 * time.Second

// Entry is a single item pulled from a feed. Published is kept as the raw
// string the feed carried; formats vary too much across publishers to
// normalize at this layer.
type Entry struct {
	Title     string `json:"title"`
	Link      string `json:"link"`
	Published string `json:"published"`
	Summary   string `json:"summary"`
	Content   string `json:"content"`
}

// Fingerprint derives the dedup/storage key for an entry: hex SHA-256 over
// the (title, link, published) triple. Identical triples always produce the
// same fingerprint.
func Fingerprint(e Entry) string {
	sum := sha256.Sum256([]byte(e.Title + e.Link + e.Published))
	return hex.EncodeToString(sum[:])
}

// Fetcher retrieves feeds over HTTP and parses them into entries.
type Fetcher struct {
	parser *gofeed.Parser
}

// NewFetcher creates a Fetcher with a bounded HTTP timeout.
func NewFetcher() *Fetcher {
	p := gofeed.NewParser()
	p.Client = &http.Client{Timeout: fetchTimeout}
	return &Fetcher{parser: p}
}

// Fetch downloads and parses the feed at url. A feed that parses but carries
// zero entries is treated as a fetch failure so the caller can log it per
// source.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]Entry, error) {
	parsed, err := f.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", url, err)
	}
	if len(parsed.Items) == 0 {
		return nil, fmt.Errorf("no entries in feed %s", url)
	}

	entries := make([]Entry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		entries = append(entries, Entry{
			Title:     item.Title,
			Link:      item.Link,
			Published: item.Published,
			Summary:   item.Description,
			Content:   item.Content,
		})
	}
	return entries, nil
}
