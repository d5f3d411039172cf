package accessitems

import (
	"context"

	"github.com/BerndBr/taskana/pkg/pagination"
)

// System defines the public contract for workbasket access item operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[AccessItem], error)

	// DeleteByAccessID removes every access item of a user and returns the
	// number removed. Group access ids are rejected.
	DeleteByAccessID(ctx context.Context, accessID string) (int64, error)
}
