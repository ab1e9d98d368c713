package ledger

import (
	"context"
)

// Store defines the write/read surface of the ledger. There is deliberately
// no update or delete operation: the ledger only ever grows.
type Store interface {
	// Append writes a batch of entries atomically: either every entry is
	// durably recorded or none is. Callers must not assume partial success
	// on error. Implementations reject batches that would drive any
	// balance partition negative.
	Append(ctx context.Context, entries []Entry) error

	// Query returns committed entries matching the filter, ordered by
	// creation. Read-only; used for audit, export and projection rebuild.
	Query(ctx context.Context, filter Filter) ([]Entry, error)
}
