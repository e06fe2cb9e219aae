// Package history is the read path over persisted samples.
package history

import (
	"context"
	"fmt"

	"sysscope/internal/models"
)

// DefaultLimit is the window size used when the caller does not ask for one.
const DefaultLimit = 100

// Reader is the read side of the persistence layer.
type Reader interface {
	Recent(ctx context.Context, limit int) ([]models.StoredRecord, error)
}

// Query returns the recent window of samples. It never writes.
type Query struct {
	reader       Reader
	defaultLimit int
	maxLimit     int
}

// NewQuery builds a query with the given default and maximum window sizes.
// Non-positive values fall back to DefaultLimit and no maximum respectively.
func NewQuery(reader Reader, defaultLimit, maxLimit int) *Query {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	return &Query{reader: reader, defaultLimit: defaultLimit, maxLimit: maxLimit}
}

// History returns up to limit samples, oldest first. limit <= 0 selects the
// default window; values above the maximum are clamped. An empty store yields
// an empty slice.
func (q *Query) History(ctx context.Context, limit int) ([]models.Sample, error) {
	limit = q.Limit(limit)
	records, err := q.reader.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	samples := make([]models.Sample, len(records))
	for i, rec := range records {
		samples[i] = rec.Sample
	}
	return samples, nil
}

// Limit resolves a requested window size.
func (q *Query) Limit(requested int) int {
	if requested <= 0 {
		return q.defaultLimit
	}
	if q.maxLimit > 0 && requested > q.maxLimit {
		return q.maxLimit
	}
	return requested
}
