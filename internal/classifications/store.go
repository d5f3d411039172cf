package classifications

import "context"

// Store is the transaction-bound view of persisted classifications the
// merge engine reads and writes. Implementations never commit; the caller
// owns the transaction boundary.
type Store interface {
	// FindByID returns the classification with the given identifier.
	FindByID(ctx context.Context, id string) (Classification, bool, error)
	// FindByKey returns the classification with the given key in domain.
	FindByKey(ctx context.Context, key, domain string) (Classification, bool, error)
	// ListByDomain returns every classification of domain ordered by key.
	// An unknown domain yields an empty slice.
	ListByDomain(ctx context.Context, domain string) ([]Classification, error)
	// Upsert inserts c or replaces the stored classification with the same ID.
	Upsert(ctx context.Context, c Classification) (string, error)
}
