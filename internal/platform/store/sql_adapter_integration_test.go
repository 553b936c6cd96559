//go:build integration_pg

package store

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	perr "msgstats/internal/platform/errors"
	"msgstats/internal/platform/store/pg/pgtest"

	"github.com/rs/zerolog"
)

func openTestPG(t *testing.T) *pgAdapter {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	s := &Store{Log: zerolog.New(io.Discard)}
	txr, err := openPG(ctx, Config{PG: PGConfig{URL: pgtest.Start(t), MaxConns: 2, LogSQL: true}}, s)
	if err != nil {
		t.Fatalf("openPG: %v", err)
	}
	a, ok := txr.(*pgAdapter)
	if !ok {
		t.Fatalf("openPG returned %T", txr)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestSQLAdapterQueriesAndHelpers(t *testing.T) {
	a := openTestPG(t)
	ctx := context.Background()

	if _, err := a.Exec(ctx, `CREATE TABLE tallies (user_id TEXT PRIMARY KEY, messages BIGINT NOT NULL)`); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := ExecOne(ctx, a, `INSERT INTO tallies VALUES ($1, $2)`, "u1", 3); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := ExecOne(ctx, a, `INSERT INTO tallies VALUES ($1, $2)`, "u2", 5); err != nil {
		t.Fatalf("insert: %v", err)
	}

	var total int64
	if err := a.QueryRow(ctx, `SELECT SUM(messages)::bigint FROM tallies`).Scan(&total); err != nil || total != 8 {
		t.Fatalf("sum = %d, %v", total, err)
	}

	type tally struct {
		UserID   string
		Messages int64
	}
	got, err := Many(ctx, a, func(r Row) (tally, error) {
		var row tally
		return row, r.Scan(&row.UserID, &row.Messages)
	}, `SELECT user_id, messages FROM tallies ORDER BY user_id`)
	if err != nil {
		t.Fatalf("Many: %v", err)
	}
	if len(got) != 2 || got[1].UserID != "u2" || got[1].Messages != 5 {
		t.Fatalf("unexpected rows %+v", got)
	}

	err = ExecOne(ctx, a, `UPDATE tallies SET messages = 0 WHERE user_id = 'nobody'`)
	if !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("ExecOne on no rows = %v", err)
	}
}

func TestSQLAdapterTxRollsBack(t *testing.T) {
	a := openTestPG(t)
	ctx := context.Background()

	if _, err := a.Exec(ctx, `CREATE TABLE tx_rollback (val INT NOT NULL)`); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := a.Tx(ctx, func(q RowQuerier) error {
		_, err := q.Exec(ctx, `INSERT INTO tx_rollback VALUES (10)`)
		return err
	}); err != nil {
		t.Fatalf("commit: %v", err)
	}

	boom := errors.New("rollback")
	err := a.Tx(ctx, func(q RowQuerier) error {
		if _, err := q.Exec(ctx, `INSERT INTO tx_rollback VALUES (20)`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Tx error = %v", err)
	}

	n, err := Scalar[int64](ctx, a, `SELECT COUNT(*) FROM tx_rollback`)
	if err != nil || n != 1 {
		t.Fatalf("count = %d, %v", n, err)
	}
}
