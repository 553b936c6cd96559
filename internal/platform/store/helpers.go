package store

import (
	"context"

	perr "msgstats/internal/platform/errors"
)

// ExecOne runs a write and asserts exactly one row was affected; zero rows is NotFound
func ExecOne(ctx context.Context, q RowQuerier, sql string, args ...any) error {
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	switch n := tag.RowsAffected(); n {
	case 1:
		return nil
	case 0:
		return perr.NotFoundf("no row affected")
	default:
		return perr.Newf(perr.ErrorCodeUnknown, "expected exactly one row affected, got %d", n)
	}
}

// Many maps every row with scan; no rows is an empty, non nil slice
func Many[T any](ctx context.Context, q RowQuerier, scan func(Row) (T, error), sql string, args ...any) ([]T, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}
