package repository

import (
	"sort"
	"strings"

	"github.com/huykn/inspector"
	"github.com/huykn/inspector/models"
)

// ExactPrefix marks a filter value that must match the column exactly.
const ExactPrefix = "__EXACT__"

// Pagination bounds.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// ListParams selects one page of registros.
type ListParams struct {
	Filters map[string]string
	SortBy  string
	SortDir string
	Limit   int
	Offset  int
}

// Normalize clamps pagination into range and fills sort defaults.
func (p ListParams) Normalize() ListParams {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.SortBy == "" {
		p.SortBy = "id"
	}
	if strings.ToLower(p.SortDir) == "desc" {
		p.SortDir = "desc"
	} else {
		p.SortDir = "asc"
	}
	return p
}

// whereClause builds the WHERE clause for registro filters.
// Empty values are ignored. A value starting with ExactPrefix matches the column's
// text form exactly; any other value is a case-insensitive substring match.
// When more than one filter is set and all share the same value the filters are
// OR'd, which is how a global search is expressed; otherwise they are AND'd.
func whereClause(filters map[string]string) (string, []any, error) {
	cols := make([]string, 0, len(filters))
	for col, v := range filters {
		if v == "" {
			continue
		}
		if !models.IsRegistroColumn(col) {
			return "", nil, inspector.NewValidationError(col, "columna no válida para filtrar")
		}
		cols = append(cols, col)
	}
	if len(cols) == 0 {
		return "", nil, nil
	}
	sort.Strings(cols)

	sameValue := len(cols) > 1
	for _, col := range cols[1:] {
		if filters[col] != filters[cols[0]] {
			sameValue = false
			break
		}
	}

	conds := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols))
	for _, col := range cols {
		v := filters[col]
		if exact, ok := strings.CutPrefix(v, ExactPrefix); ok {
			conds = append(conds, "CAST("+col+" AS TEXT) = ?")
			args = append(args, exact)
			continue
		}
		conds = append(conds, "LOWER(CAST("+col+" AS TEXT)) LIKE LOWER(?)")
		args = append(args, "%"+v+"%")
	}

	joiner := " AND "
	if sameValue {
		joiner = " OR "
	}
	return " WHERE (" + strings.Join(conds, joiner) + ")", args, nil
}

// orderClause returns the ORDER BY clause. Unknown columns fall back to id ascending.
func orderClause(sortBy, sortDir string) string {
	if !models.IsRegistroColumn(sortBy) {
		return " ORDER BY id ASC"
	}
	dir := " ASC"
	if sortDir == "desc" {
		dir = " DESC"
	}
	if sortBy == "id" {
		return " ORDER BY id" + dir
	}
	return " ORDER BY " + sortBy + dir + ", id ASC"
}
