// Package archive provides raw-document retention. Processed filings can have
// their primary document bytes written to a blob store for later audit; the
// pipeline treats archival as best-effort and never fails a filing over it.
package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/secpulse/secpulse/internal/filing"
)

// ObjectPath builds the blob path for a filing document, partitioned by
// filing date for cheap pruning.
func ObjectPath(prefix string, f filing.Filing, fallback time.Time) string {
	ts := f.FiledAt
	if ts.IsZero() {
		ts = fallback
	}
	return fmt.Sprintf("%s/%s/%s.htm", prefix, ts.UTC().Format("2006/01/02"), f.AccessionID)
}

// Noop discards archive writes. It is the default provider.
type Noop struct{}

var _ filing.BlobStore = Noop{}

// PutObject drops the data and returns an empty URI.
func (Noop) PutObject(_ context.Context, _ string, _ string, _ []byte) (string, error) {
	return "", nil
}
