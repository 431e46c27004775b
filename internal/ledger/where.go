package ledger

import (
	"fmt"
	"strings"
)

// where accumulates AND-ed SQL conditions with positional arguments.
type where struct {
	conds []string
	args  []any
}

// add appends cond, replacing every "?" with the next placeholder bound to arg.
func (w *where) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(w.args))))
}

// addIn appends "column = ANY($n)" for a non-empty list.
func (w *where) addIn(column string, values []string) {
	if len(values) == 0 {
		return
	}
	w.add(column+" = ANY(?)", values)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(w.conds, " AND ")
}

// page appends LIMIT/OFFSET placeholders and returns the clause.
func (w *where) page(limit, offset int) string {
	w.args = append(w.args, limit, offset)
	n := len(w.args)
	return fmt.Sprintf("LIMIT $%d OFFSET $%d", n-1, n)
}

func orderBy(columns map[string]string, field, order, fallback string) string {
	dir := "DESC"
	if strings.EqualFold(order, "ASC") {
		dir = "ASC"
	}
	column, ok := columns[strings.ToLower(field)]
	if !ok {
		column = fallback
	}
	return fmt.Sprintf("ORDER BY %s %s, id ASC", column, dir)
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
