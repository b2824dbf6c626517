package database

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
)

// casUpdate describes a compare-and-swap UPDATE against one row.
//
// The row is matched by id and by guardColumn = expected (when guardColumn is
// set). extraGuard is appended to the WHERE clause verbatim and may reference
// the positional arguments in guardArgs, numbered after the SET values.
// Values in set may be sqlExpr to write a SQL expression instead of a bound value.
type casUpdate struct {
	table       string
	id          interface{}
	guardColumn string
	expected    interface{}
	set         map[string]interface{}
	extraGuard  string
	guardArgs   []interface{}
}

var placeholderPattern = regexp.MustCompile(`\$\d+`)

// sqlExpr is a raw SQL fragment used as a SET value. $n placeholders are not allowed.
type sqlExpr string

// compareAndSwap executes u and reports whether exactly one row changed.
// It is the only write path for booking status and listing seat counts.
func compareAndSwap(ctx context.Context, q sqlx.ExtContext, u casUpdate) (bool, error) {
	query, args := u.build()

	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update %s: %w", u.table, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected on %s: %w", u.table, err)
	}
	return rows == 1, nil
}

func (u casUpdate) build() (string, []interface{}) {
	// Sorted so the generated SQL is stable for logging and tests
	columns := make([]string, 0, len(u.set))
	for col := range u.set {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	args := []interface{}{u.id}
	assignments := make([]string, 0, len(columns)+1)
	for _, col := range columns {
		if expr, ok := u.set[col].(sqlExpr); ok {
			assignments = append(assignments, fmt.Sprintf("%s = %s", col, expr))
			continue
		}
		args = append(args, u.set[col])
		assignments = append(assignments, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	assignments = append(assignments, "updated_at = NOW()")

	where := []string{"id = $1"}
	if u.guardColumn != "" {
		args = append(args, u.expected)
		where = append(where, fmt.Sprintf("%s = $%d", u.guardColumn, len(args)))
	}
	if u.extraGuard != "" {
		// Renumber $1..$n in extraGuard to follow the arguments already bound
		offset := len(args)
		extra := placeholderPattern.ReplaceAllStringFunc(u.extraGuard, func(p string) string {
			n, _ := strconv.Atoi(p[1:])
			return fmt.Sprintf("$%d", n+offset)
		})
		args = append(args, u.guardArgs...)
		where = append(where, "("+extra+")")
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		u.table, strings.Join(assignments, ", "), strings.Join(where, " AND "))
	return query, args
}
