package accessitems

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/BerndBr/taskana/pkg/pagination"
	"github.com/BerndBr/taskana/pkg/query"
	"github.com/BerndBr/taskana/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates an access item repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "accessitems"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[AccessItem], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort...).
		WhereSearch(page.Search, "AccessID", "AccessName", "WorkbasketKey")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(mapSort(page.Sort))
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count access items: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanAccessItem)
	if err != nil {
		return nil, fmt.Errorf("query access items: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) DeleteByAccessID(ctx context.Context, accessID string) (int64, error) {
	if accessID == "" {
		return 0, fmt.Errorf("%w: access-id is required", ErrInvalidParams)
	}
	if IsGroup(accessID) {
		return 0, fmt.Errorf("%w: %s", ErrGroupAccessID, accessID)
	}

	removed, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (int64, error) {
		res, err := tx.ExecContext(ctx,
			"DELETE FROM workbasket_access_items WHERE access_id = $1",
			accessID,
		)
		if err != nil {
			return 0, err
		}
		return res.RowsAffected()
	})
	if err != nil {
		return 0, fmt.Errorf("delete access items: %w", err)
	}

	r.logger.Info("access items deleted", "access_id", accessID, "removed", removed)
	return removed, nil
}
