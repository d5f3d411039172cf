// Package pagination turns list requests into bounded pages and wraps
// query results with page metadata.
package pagination

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/BerndBr/taskana/pkg/query"
)

// SortFields decodes from either "key,-name" or an array of
// {"Field","Descending"} objects.
type SortFields []query.SortField

func (s *SortFields) UnmarshalJSON(data []byte) error {
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte(`"`)) {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*s = query.ParseSortFields(raw)
		return nil
	}
	return json.Unmarshal(data, (*[]query.SortField)(s))
}

// PageRequest selects one page of a listing, with optional free-text
// search and ordering.
type PageRequest struct {
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
	Search   *string    `json:"search,omitempty"`
	Sort     SortFields `json:"sort,omitempty"`
}

// Normalize clamps the request into cfg's bounds. Page counts from 1.
func (r *PageRequest) Normalize(cfg Config) {
	r.Page = max(r.Page, 1)
	if r.PageSize < 1 {
		r.PageSize = cfg.DefaultPageSize
	}
	r.PageSize = min(r.PageSize, cfg.MaxPageSize)
}

func (r *PageRequest) Offset() int {
	return (r.Page - 1) * r.PageSize
}

// QueryParams are the query parameters PageRequestFromQuery consumes.
// Handlers that reject unknown parameters must allow these.
var QueryParams = []string{"page", "page_size", "page-size", "search", "sort", "sort-by", "order"}

// ErrInvalidOrder reports an order parameter other than asc or desc.
var ErrInvalidOrder = errors.New("order must be asc or desc")

// ValidateOrder checks every order value, ignoring case.
func ValidateOrder(values url.Values) error {
	for _, o := range values["order"] {
		switch strings.ToLower(o) {
		case "asc", "desc":
		default:
			return fmt.Errorf("%w, got %q", ErrInvalidOrder, o)
		}
	}
	return nil
}

// PageRequestFromQuery reads a normalized PageRequest from URL values.
// Ordering comes from "sort" ("key,-name") when present, otherwise from
// repeated sort-by/order pairs.
func PageRequestFromQuery(values url.Values, cfg Config) PageRequest {
	var req PageRequest
	req.Page, _ = strconv.Atoi(values.Get("page"))
	req.PageSize, _ = strconv.Atoi(firstOf(values, "page_size", "page-size"))
	if s := values.Get("search"); s != "" {
		req.Search = &s
	}

	req.Sort = query.ParseSortFields(values.Get("sort"))
	if len(req.Sort) == 0 {
		req.Sort = pairSortBy(values["sort-by"], values["order"])
	}

	req.Normalize(cfg)
	return req
}

func firstOf(values url.Values, keys ...string) string {
	for _, k := range keys {
		if v := values.Get(k); v != "" {
			return v
		}
	}
	return ""
}

// pairSortBy matches the nth sort-by with the nth order. A missing order
// sorts ascending. Callers reject other values with ValidateOrder.
func pairSortBy(by, order []string) SortFields {
	var fields SortFields
	for i, field := range by {
		if field == "" {
			continue
		}
		fields = append(fields, query.SortField{
			Field:      field,
			Descending: i < len(order) && strings.EqualFold(order[i], "desc"),
		})
	}
	return fields
}

// PageResult is one page of T plus the totals a client needs to page on.
type PageResult[T any] struct {
	Data       []T `json:"data"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}

// NewPageResult reports at least one page, and never a nil Data slice.
func NewPageResult[T any](data []T, total, page, pageSize int) PageResult[T] {
	if data == nil {
		data = []T{}
	}
	return PageResult[T]{
		Data:       data,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: max(1, (total+pageSize-1)/pageSize),
	}
}
