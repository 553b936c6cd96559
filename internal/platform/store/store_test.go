package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"msgstats/internal/platform/config"
	"msgstats/internal/platform/store/ch"
)

type fakeCH struct {
	table   string
	rows    [][]any
	pingErr error
	closed  bool
}

func (f *fakeCH) Insert(_ context.Context, table string, rows [][]any) error {
	f.table, f.rows = table, rows
	return nil
}

func (f *fakeCH) Exec(context.Context, string, ...any) error { return nil }

func (f *fakeCH) Query(context.Context, string, ...any) (ch.Rows, error) {
	return nil, errors.New("no reads")
}

func (f *fakeCH) Ping(context.Context) error { return f.pingErr }
func (f *fakeCH) Close() error               { f.closed = true; return nil }

func TestCHAdapterInsertShape(t *testing.T) {
	inner := &fakeCH{}
	a := newCHAdapter(inner)

	err := a.Insert(context.Background(), "daily_message_stats", [][]any{{"g", "u", 1}})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if inner.table != "daily_message_stats" || len(inner.rows) != 1 {
		t.Fatalf("inner got %q %v", inner.table, inner.rows)
	}

	if err := a.Insert(context.Background(), "t", []string{"nope"}); err == nil {
		t.Fatalf("wrong shape should fail")
	}
}

func TestGuardJoinsFailures(t *testing.T) {
	s := &Store{CH: newCHAdapter(&fakeCH{pingErr: errors.New("down")})}
	err := s.Guard(context.Background())
	if err == nil || !strings.Contains(err.Error(), "ch: down") {
		t.Fatalf("Guard = %v", err)
	}

	var nilStore *Store
	if nilStore.Guard(context.Background()) == nil {
		t.Fatalf("nil store should fail Guard")
	}
	if (&Store{}).Guard(context.Background()) != nil {
		t.Fatalf("empty store has nothing to ping")
	}
}

func TestCloseClosesCH(t *testing.T) {
	inner := &fakeCH{}
	s := &Store{CH: newCHAdapter(inner)}
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !inner.closed {
		t.Fatalf("ch not closed")
	}
}

func TestOpenWithNothingEnabled(t *testing.T) {
	s, err := Open(context.Background(), Config{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if s.PG != nil || s.CH != nil {
		t.Fatalf("backends should stay nil")
	}
}

func TestFromConfigClickhouseIsOptIn(t *testing.T) {
	t.Setenv("SERVICE_PGSQL_DBURL", "postgres://localhost/msgstats")
	t.Setenv("SERVICE_PGSQL_MAX_CONNS", "8")

	cfg := FromConfig(config.New(), "api")
	if !cfg.PG.Enabled || cfg.PG.MaxConns != 8 || cfg.PG.URL != "postgres://localhost/msgstats" {
		t.Fatalf("pg config = %+v", cfg.PG)
	}
	if cfg.CH.Enabled {
		t.Fatalf("clickhouse enabled without SERVICE_CLICKHOUSE_ENABLED")
	}

	t.Setenv("SERVICE_CLICKHOUSE_ENABLED", "true")
	t.Setenv("SERVICE_CLICKHOUSE_DBURL", "clickhouse://localhost:9000/default")
	cfg = FromConfig(config.New(), "collect")
	if !cfg.CH.Enabled || cfg.CH.ClientTag != "collect" {
		t.Fatalf("ch config = %+v", cfg.CH)
	}
}
