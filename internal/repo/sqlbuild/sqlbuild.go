// Package sqlbuild renders entity.TaskQuery into SQL shared by the
// Postgres and SQLite stores.
package sqlbuild

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/KarpovAlexandrGo/taskmaster/internal/entity"
)

// Columns is the select list every task query returns, in scan order.
const Columns = `id, title, description, status, priority, due_date, due_time, reminder, completed_at, created_at, updated_at`

// Placeholder renders the n-th (1-based) bind parameter.
type Placeholder func(n int) string

func Dollar(n int) string { return "$" + strconv.Itoa(n) }

func Question(int) string { return "?" }

// Select renders a full SELECT over the tasks table for q.
func Select(q entity.TaskQuery, ph Placeholder) (string, []any, error) {
	where, args := Where(q.Filter, ph)
	order, err := OrderBy(q.Sort)
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(Columns)
	b.WriteString(" FROM tasks")
	if where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(where)
	}
	if order != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(order)
	}
	return b.String(), args, nil
}

func Where(f entity.TaskFilter, ph Placeholder) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, string(f.Status))
		conds = append(conds, "status = "+ph(len(args)))
	}
	if f.NotStatus != "" {
		args = append(args, string(f.NotStatus))
		conds = append(conds, "status <> "+ph(len(args)))
	}
	if f.HasReminder {
		conds = append(conds, "reminder IS NOT NULL")
	}
	return strings.Join(conds, " AND "), args
}

// OrderBy renders sort keys with explicit NULLS placement: absent values
// order first ascending and last descending.
func OrderBy(sorts []entity.SortOrder) (string, error) {
	parts := make([]string, 0, len(sorts))
	for _, s := range sorts {
		if !s.Field.Valid() {
			return "", fmt.Errorf("unsupported sort field %q", s.Field)
		}
		if s.Desc {
			parts = append(parts, string(s.Field)+" DESC NULLS LAST")
		} else {
			parts = append(parts, string(s.Field)+" ASC NULLS FIRST")
		}
	}
	return strings.Join(parts, ", "), nil
}
