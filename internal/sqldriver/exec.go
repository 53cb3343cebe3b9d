package sqldriver

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Exec runs the driver's script against its database, writing each result
// row to w as a tuple. On the first failing statement it writes an
// "SQL Error" line to w and returns the error.
func Exec(ctx context.Context, d Driver, w io.Writer) error {
	db, err := sql.Open("sqlite", d.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	for _, stmt := range Split(d.Script) {
		if err := execStatement(ctx, db, stmt, w); err != nil {
			fmt.Fprintf(w, "SQL Error: %v\n", err)
			return err
		}
	}
	return nil
}

// execStatement runs stmt as a query so any statement that yields columns,
// RETURNING clauses included, has its rows printed. Statements without
// columns are stepped to completion.
func execStatement(ctx context.Context, db *sql.DB, stmt string, w io.Writer) error {
	rows, err := db.QueryContext(ctx, stmt)
	if err != nil {
		return err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	if len(cols) == 0 {
		for rows.Next() {
		}
		return rows.Err()
	}

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		fmt.Fprintln(w, formatRow(values))
	}
	return rows.Err()
}

// formatRow renders a row like a Python tuple, the shape users of the
// interactive console expect.
func formatRow(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = formatValue(v)
	}
	if len(parts) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "None"
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		if x {
			return "1"
		}
		return "0"
	case []byte:
		return quote(string(x))
	case string:
		return quote(x)
	case time.Time:
		return quote(x.Format(time.RFC3339))
	default:
		return fmt.Sprint(x)
	}
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}
