package filing

import (
	"context"
	"errors"
	"time"
)

// ErrDuplicate is returned by Store.Insert when the accession id already
// holds a row.
var ErrDuplicate = errors.New("duplicate accession id")

// Store persists processed filings and the dedup ledger.
type Store interface {
	// Exists reports whether a processed record already holds the accession id.
	Exists(ctx context.Context, accessionID string) (bool, error)
	// Insert appends a processed record and returns its row id. Duplicate
	// accession ids must be rejected by a uniqueness constraint.
	Insert(ctx context.Context, rec Record) (int64, error)
	// LedgerInsert marks accession ids as seen.
	LedgerInsert(ctx context.Context, accessionIDs []string, seenAt time.Time) error
	// LedgerContainsAny returns the subset of ids already present in the ledger.
	LedgerContainsAny(ctx context.Context, accessionIDs []string) (map[string]struct{}, error)
}

// Broadcaster fans events out to local subscribers. Publish must never block
// the pipeline; slow or dead subscribers are dropped.
type Broadcaster interface {
	Publish(evt Event)
}

// Publisher pushes new-filing payloads to an external topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// BlobStore archives raw document bytes and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Downloader fetches a URL under the global EDGAR rate limit.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// Classifier produces an impact assessment for one filing.
type Classifier interface {
	Classify(ctx context.Context, req ClassifyRequest) (Classification, error)
}

// ClassifyRequest carries everything the generative classifier needs.
type ClassifyRequest struct {
	FormType string
	Segment  Segment
	Company  string
	Ticker   string
	Fields   map[string]any
	Text     string
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
