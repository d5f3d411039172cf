package query

import (
	"reflect"
	"strconv"
	"strings"
)

// SortField is one ORDER BY term on a logical field.
type SortField struct {
	Field      string
	Descending bool
}

// ParseSortFields reads "name,-created" into ascending name, descending
// created. Blank entries are skipped and empty input yields nil.
func ParseSortFields(s string) []SortField {
	if s == "" {
		return nil
	}

	var fields []SortField
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, desc := strings.CutPrefix(part, "-")
		fields = append(fields, SortField{Field: name, Descending: desc})
	}
	return fields
}

// placeholder hands out $n for each bound argument in order.
type placeholder struct {
	args []any
}

func (p *placeholder) bind(v any) string {
	p.args = append(p.args, v)
	return "$" + strconv.Itoa(len(p.args))
}

// predicate renders one WHERE term, binding its arguments as it goes.
type predicate func(p *placeholder) string

// Builder accumulates predicates and ordering for a projection. Predicates
// are joined with AND; placeholders are numbered when a statement is built.
type Builder struct {
	projection  *ProjectionMap
	predicates  []predicate
	sort        []SortField
	defaultSort []SortField
}

func NewBuilder(projection *ProjectionMap, defaultSort ...SortField) *Builder {
	return &Builder{projection: projection, defaultSort: defaultSort}
}

// WhereEquals adds field = value. A nil value, including a typed nil
// pointer, adds nothing.
func (b *Builder) WhereEquals(field string, value any) *Builder {
	if isNil(value) {
		return b
	}
	col := b.projection.Column(field)
	b.predicates = append(b.predicates, func(p *placeholder) string {
		return col + " = " + p.bind(value)
	})
	return b
}

// WhereIn adds field IN (...). An empty list adds nothing.
func (b *Builder) WhereIn(field string, values []any) *Builder {
	if len(values) == 0 {
		return b
	}
	col := b.projection.Column(field)
	b.predicates = append(b.predicates, func(p *placeholder) string {
		marks := make([]string, len(values))
		for i, v := range values {
			marks[i] = p.bind(v)
		}
		return col + " IN (" + strings.Join(marks, ", ") + ")"
	})
	return b
}

// WhereSearch matches search case-insensitively as a substring of any of
// fields. A nil or empty search adds nothing.
func (b *Builder) WhereSearch(search *string, fields ...string) *Builder {
	if search == nil || *search == "" || len(fields) == 0 {
		return b
	}
	pattern := "%" + *search + "%"
	b.predicates = append(b.predicates, func(p *placeholder) string {
		terms := make([]string, len(fields))
		for i, f := range fields {
			terms[i] = b.projection.Column(f) + " ILIKE " + p.bind(pattern)
		}
		return "(" + strings.Join(terms, " OR ") + ")"
	})
	return b
}

// OrderByFields replaces the default ordering. Unmapped fields are dropped
// when the statement is built.
func (b *Builder) OrderByFields(fields []SortField) *Builder {
	b.sort = fields
	return b
}

// Build returns the ordered SELECT.
func (b *Builder) Build() (string, []any) {
	var sb strings.Builder
	args := b.selectFrom(&sb)
	b.writeOrderBy(&sb)
	return sb.String(), args
}

// BuildCount returns the COUNT(*) over the same predicates.
func (b *Builder) BuildCount() (string, []any) {
	var sb strings.Builder
	sb.WriteString("SELECT COUNT(*) FROM ")
	sb.WriteString(b.projection.Table())
	args := b.writeWhere(&sb)
	return sb.String(), args
}

// BuildPage returns the ordered SELECT limited to one 1-based page.
func (b *Builder) BuildPage(page, pageSize int) (string, []any) {
	var sb strings.Builder
	args := b.selectFrom(&sb)
	b.writeOrderBy(&sb)
	sb.WriteString(" LIMIT " + strconv.Itoa(pageSize))
	sb.WriteString(" OFFSET " + strconv.Itoa((page-1)*pageSize))
	return sb.String(), args
}

// BuildSingle selects the row whose field equals id, ignoring any
// accumulated predicates.
func (b *Builder) BuildSingle(field string, id any) (string, []any) {
	return "SELECT " + b.projection.Columns() + " FROM " + b.projection.Table() +
		" WHERE " + b.projection.Column(field) + " = $1", []any{id}
}

// BuildSingleOrNull selects at most one row matching the predicates.
func (b *Builder) BuildSingleOrNull() (string, []any) {
	var sb strings.Builder
	args := b.selectFrom(&sb)
	sb.WriteString(" LIMIT 1")
	return sb.String(), args
}

func (b *Builder) selectFrom(sb *strings.Builder) []any {
	sb.WriteString("SELECT ")
	sb.WriteString(b.projection.Columns())
	sb.WriteString(" FROM ")
	sb.WriteString(b.projection.Table())
	return b.writeWhere(sb)
}

func (b *Builder) writeWhere(sb *strings.Builder) []any {
	if len(b.predicates) == 0 {
		return nil
	}
	p := &placeholder{}
	for i, pred := range b.predicates {
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		sb.WriteString(pred(p))
	}
	return p.args
}

func (b *Builder) writeOrderBy(sb *strings.Builder) {
	fields := b.sort
	if len(fields) == 0 {
		fields = b.defaultSort
	}

	first := true
	for _, f := range fields {
		if !b.projection.Has(f.Field) {
			continue
		}
		if first {
			sb.WriteString(" ORDER BY ")
			first = false
		} else {
			sb.WriteString(", ")
		}
		sb.WriteString(b.projection.Column(f.Field))
		if f.Descending {
			sb.WriteString(" DESC")
		} else {
			sb.WriteString(" ASC")
		}
	}
}

// Values widens a typed slice for WhereIn.
func Values[T any](vs []T) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	switch v := reflect.ValueOf(value); v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return v.IsNil()
	}
	return false
}
