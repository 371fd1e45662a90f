package query

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Definition describes how one entity surface maps API fields onto SQL. The
// field maps double as whitelists: a filter or sort key absent from them
// never reaches the database.
type Definition struct {
	Table         string
	SelectColumns []string

	// FuzzyFields compile to case-insensitive substring matches.
	FuzzyFields map[string]string
	// ExactFields compile to equality; used for enumerated values such as
	// the user role, which must never be fuzzy-wrapped.
	ExactFields map[string]string

	// SortFields maps orderBy values onto columns. An unrecognized orderBy
	// falls back to DefaultSortColumn.
	SortFields        map[string]string
	DefaultSortColumn string

	// FixedOrder, when set, overrides sort resolution entirely (the user
	// surface always sorts first_name ASC, last_name ASC).
	FixedOrder string
}

// Scope is a mandatory predicate merged into every query of a surface.
// Caller-supplied filters can never override it.
type Scope struct {
	Column string
	Value  interface{}
}

// Result is the pagination envelope: one page of rows plus the total match
// count across all pages and the echoed paging parameters.
type Result[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Engine executes filtered pagination queries for one entity surface.
type Engine[T any] struct {
	db  *sqlx.DB
	def Definition
}

// NewEngine constructs an engine for the given definition.
func NewEngine[T any](db *sqlx.DB, def Definition) *Engine[T] {
	return &Engine[T]{db: db, def: def}
}

// List runs one fetch and one count with the same compiled predicate and
// wraps the results into the pagination envelope. Rows sharing the same sort
// key have no guaranteed relative order between calls.
func (e *Engine[T]) List(ctx context.Context, spec Spec, scopes ...Scope) (*Result[T], error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	conditions := []string{"1=1"}
	var args []interface{}

	for _, scope := range scopes {
		conditions = append(conditions, fmt.Sprintf("%s = $%d", scope.Column, len(args)+1))
		args = append(args, scope.Value)
	}

	for _, field := range sortedFields(spec.Filters) {
		value := spec.Filters[field]
		if column, ok := e.def.ExactFields[field]; ok {
			conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)+1))
			args = append(args, value)
			continue
		}
		column, ok := e.def.FuzzyFields[field]
		if !ok {
			continue
		}
		conditions = append(conditions, fmt.Sprintf("LOWER(%s) LIKE $%d", column, len(args)+1))
		args = append(args, "%"+strings.ToLower(value)+"%")
	}

	where := strings.Join(conditions, " AND ")
	offset := (spec.Page - 1) * spec.Limit

	listQuery := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s LIMIT %d OFFSET %d",
		strings.Join(e.def.SelectColumns, ", "), e.def.Table, where, e.orderClause(spec), spec.Limit, offset)

	rows := make([]T, 0, spec.Limit)
	if err := e.db.SelectContext(ctx, &rows, listQuery, args...); err != nil {
		return nil, fmt.Errorf("list %s: %w", e.def.Table, err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", e.def.Table, where)
	var total int
	if err := e.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, fmt.Errorf("count %s: %w", e.def.Table, err)
	}

	return &Result[T]{Data: rows, Total: total, Page: spec.Page, Limit: spec.Limit}, nil
}

func (e *Engine[T]) orderClause(spec Spec) string {
	if e.def.FixedOrder != "" {
		return e.def.FixedOrder
	}
	column, ok := e.def.SortFields[spec.OrderBy]
	if !ok {
		column = e.def.DefaultSortColumn
	}
	return column + " " + spec.Direction()
}

func sortedFields(filters map[string]string) []string {
	fields := make([]string, 0, len(filters))
	for field := range filters {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}
