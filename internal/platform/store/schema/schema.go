// Package schema carries the embedded DDL and applies it
package schema

import (
	"context"
	_ "embed"
	"strings"

	perr "repertoire/internal/platform/errors"
	"repertoire/internal/platform/store"
)

//go:embed schema.sql
var pgDDL string

//go:embed clickhouse.sql
var chDDL string

// Statements splits a DDL script into single statements, dropping comments
func Statements(script string) []string {
	var (
		out []string
		cur strings.Builder
	)
	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		cur.WriteString(line)
		cur.WriteByte('\n')
		if strings.HasSuffix(trimmed, ";") {
			out = append(out, strings.TrimSuffix(strings.TrimSpace(cur.String()), ";"))
			cur.Reset()
		}
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		out = append(out, s)
	}
	return out
}

// Postgres returns the postgres statements in apply order
func Postgres() []string { return Statements(pgDDL) }

// Clickhouse returns the clickhouse statements in apply order
func Clickhouse() []string { return Statements(chDDL) }

// Apply creates every postgres table in one transaction
func Apply(ctx context.Context, tx store.TxRunner) error {
	return tx.Tx(ctx, func(q store.RowQuerier) error {
		for i, stmt := range Postgres() {
			if _, err := q.Exec(ctx, stmt); err != nil {
				return perr.Wrapf(err, perr.ErrorCodeDB, "schema: statement %d", i+1)
			}
		}
		return nil
	})
}

// ApplyCH creates the analytics tables; a nil client is a no-op
func ApplyCH(ctx context.Context, ch store.Clickhouse) error {
	if ch == nil {
		return nil
	}
	for i, stmt := range Clickhouse() {
		if err := ch.Exec(ctx, stmt); err != nil {
			return perr.Wrapf(err, perr.ErrorCodeDB, "schema: clickhouse statement %d", i+1)
		}
	}
	return nil
}
