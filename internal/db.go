package internal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"rdw-inventory-api/internal/storage/postgres"
)

// querier is the subset of *sql.DB / *sql.Tx the catalog handlers use.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Server) db() querier {
	return s.DB
}

// nullIfEmpty trims s and maps blank strings to NULL.
func nullIfEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func isUniqueViolation(err error) bool {
	return postgres.IsUniqueViolation(err, "")
}

// updateSet collects "col = $n" assignments for a partial UPDATE.
type updateSet struct {
	cols []string
	args []any
}

func (u *updateSet) add(col string, val any) {
	u.args = append(u.args, val)
	u.cols = append(u.cols, fmt.Sprintf("%s = $%d", col, len(u.args)))
}

func (u *updateSet) empty() bool { return len(u.cols) == 0 }

// build renders the UPDATE statement, bumping updated_at when touch is set.
func (u *updateSet) build(table, idCol string, id int64, touch bool, returning string) (string, []any) {
	cols := u.cols
	if touch {
		cols = append(cols[:len(cols):len(cols)], "updated_at = now()")
	}
	args := append(u.args[:len(u.args):len(u.args)], id)
	q := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d RETURNING %s",
		table, strings.Join(cols, ", "), idCol, len(args), returning)
	return q, args
}
