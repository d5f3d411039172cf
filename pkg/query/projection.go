// Package query builds parameterized PostgreSQL SELECT statements over a
// projection of logical field names onto table columns.
package query

import "strings"

// ProjectionMap maps logical field names to columns of one aliased table.
// Only mapped fields may appear in an ORDER BY.
type ProjectionMap struct {
	table   string
	columns map[string]string
	order   []string
}

// NewProjectionMap starts a projection over schema.table with the given alias.
func NewProjectionMap(schema, table, alias string) *ProjectionMap {
	return &ProjectionMap{
		table:   schema + "." + table + " " + alias,
		columns: map[string]string{},
	}
}

// Project maps field onto column, qualified by the table alias. Columns
// are selected in the order they are projected.
func (p *ProjectionMap) Project(column, field string) *ProjectionMap {
	alias := p.table[strings.LastIndexByte(p.table, ' ')+1:]
	qualified := alias + "." + column
	p.columns[field] = qualified
	p.order = append(p.order, qualified)
	return p
}

// Table returns "schema.table alias".
func (p *ProjectionMap) Table() string {
	return p.table
}

// Column resolves field to its qualified column. Unmapped names pass
// through unchanged.
func (p *ProjectionMap) Column(field string) string {
	if col, ok := p.columns[field]; ok {
		return col
	}
	return field
}

// Has reports whether field is mapped.
func (p *ProjectionMap) Has(field string) bool {
	_, ok := p.columns[field]
	return ok
}

// Columns returns the select list.
func (p *ProjectionMap) Columns() string {
	return strings.Join(p.order, ", ")
}
