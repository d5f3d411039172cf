package classifications

import (
	"context"

	"github.com/BerndBr/taskana/pkg/pagination"
)

// System defines the public contract for classification domain operations.
type System interface {
	Handler(maxUploadSize int64) *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Classification], error)

	Find(ctx context.Context, id string) (*Classification, error)
	FindByKey(ctx context.Context, key, domain string) (*Classification, error)

	// Export returns every classification of domain, or of all domains when
	// domain is blank. An unknown domain yields an empty export.
	Export(ctx context.Context, domain string) (*Export, error)

	// Import applies batch atomically. With opts.DryRun the merge runs in a
	// transaction that is rolled back and only the result is returned.
	Import(ctx context.Context, batch []Record, opts ImportOptions) (*Result, error)
}
