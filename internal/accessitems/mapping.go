package accessitems

import (
	"fmt"
	"net/url"
	"slices"

	"github.com/BerndBr/taskana/pkg/pagination"
	"github.com/BerndBr/taskana/pkg/query"
	"github.com/BerndBr/taskana/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "workbasket_access_items", "a").
	Project("id", "ID").
	Project("workbasket_id", "WorkbasketID").
	Project("workbasket_key", "WorkbasketKey").
	Project("access_id", "AccessID").
	Project("access_name", "AccessName").
	Project("perm_read", "PermRead").
	Project("perm_open", "PermOpen").
	Project("perm_append", "PermAppend").
	Project("perm_transfer", "PermTransfer").
	Project("perm_distribute", "PermDistribute")

var defaultSort = []query.SortField{
	{Field: "WorkbasketKey"},
	{Field: "AccessID"},
}

// sortFields maps sort-by parameter values to projection view names.
var sortFields = map[string]string{
	"workbasket-key": "WorkbasketKey",
	"access-id":      "AccessID",
}

// filterParams lists the filter query parameters FiltersFromQuery reads.
var filterParams = []string{"access-id", "access-ids", "workbasket-key"}

// Filters contains optional filtering criteria for access item queries.
// Each non-empty slice restricts results to the listed values.
type Filters struct {
	AccessIDs      []string `json:"access_ids,omitempty"`
	WorkbasketKeys []string `json:"workbasket_keys,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereIn("AccessID", query.Values(f.AccessIDs)).
		WhereIn("WorkbasketKey", query.Values(f.WorkbasketKeys))
}

// FiltersFromQuery extracts filter values from URL query parameters.
// access-id and access-ids are both accepted and may repeat.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	for _, p := range []string{"access-id", "access-ids"} {
		for _, v := range values[p] {
			if v != "" {
				f.AccessIDs = append(f.AccessIDs, v)
			}
		}
	}

	for _, v := range values["workbasket-key"] {
		if v != "" {
			f.WorkbasketKeys = append(f.WorkbasketKeys, v)
		}
	}

	return f
}

// ValidateQuery rejects unknown parameters and sort fields. Order values
// must be asc or desc.
func ValidateQuery(values url.Values) error {
	var unknown []string
	for name := range values {
		if !slices.Contains(filterParams, name) && !slices.Contains(pagination.QueryParams, name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		return fmt.Errorf("%w: unknown request parameters found: %v", ErrInvalidParams, unknown)
	}

	for _, by := range values["sort-by"] {
		if _, ok := sortFields[by]; !ok {
			return fmt.Errorf("%w: unknown sort-by value %q", ErrInvalidParams, by)
		}
	}
	for _, f := range query.ParseSortFields(values.Get("sort")) {
		if !sortable(f.Field) {
			return fmt.Errorf("%w: unknown sort field %q", ErrInvalidParams, f.Field)
		}
	}
	if err := pagination.ValidateOrder(values); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	return nil
}

// sortable accepts parameter names and their view names.
func sortable(field string) bool {
	if _, ok := sortFields[field]; ok {
		return true
	}
	for _, view := range sortFields {
		if view == field {
			return true
		}
	}
	return false
}

// mapSort translates sort-by parameter names into projection view names.
// Names already in view form pass through.
func mapSort(fields []query.SortField) []query.SortField {
	out := make([]query.SortField, 0, len(fields))
	for _, f := range fields {
		if view, ok := sortFields[f.Field]; ok {
			f.Field = view
		}
		out = append(out, f)
	}
	return out
}

func scanAccessItem(s repository.Scanner) (AccessItem, error) {
	var a AccessItem
	err := s.Scan(
		&a.ID,
		&a.WorkbasketID,
		&a.WorkbasketKey,
		&a.AccessID,
		&a.AccessName,
		&a.PermRead,
		&a.PermOpen,
		&a.PermAppend,
		&a.PermTransfer,
		&a.PermDistribute,
	)
	return a, err
}
