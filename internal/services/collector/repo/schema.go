package repo

import (
	"context"
	"embed"
	"fmt"
	"strings"

	"msgstats/internal/modkit/repokit"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// statements splits an embedded file on ';' and drops empty pieces
func statements(name string) ([]string, error) {
	b, err := schemaFS.ReadFile("schema/" + name)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, s := range strings.Split(string(b), ";") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// MigratePG creates the postgres tables when missing, in one transaction
func MigratePG(ctx context.Context, db repokit.TxRunner) error {
	stmts, err := statements("pg.sql")
	if err != nil {
		return err
	}
	return db.Tx(ctx, func(q repokit.Queryer) error {
		for i, s := range stmts {
			if _, err := q.Exec(ctx, s); err != nil {
				return fmt.Errorf("migrate pg stmt %d: %w", i, err)
			}
		}
		return nil
	})
}

// MigrateCH creates the rollup table when missing
func MigrateCH(ctx context.Context, ch interface {
	Exec(ctx context.Context, sql string, args ...any) error
},
) error {
	stmts, err := statements("ch.sql")
	if err != nil {
		return err
	}
	for i, s := range stmts {
		if err := ch.Exec(ctx, s); err != nil {
			return fmt.Errorf("migrate ch stmt %d: %w", i, err)
		}
	}
	return nil
}
