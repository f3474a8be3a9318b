//go:build integration_pg

package schema_test

import (
	"context"
	"errors"
	"testing"
	"time"

	perr "repertoire/internal/platform/errors"
	"repertoire/internal/platform/store"
	"repertoire/internal/platform/store/pgtest"
)

func TestSchema_Integration_TxAndConstraintMapping(t *testing.T) {
	st := pgtest.Open(t)

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	if err := st.PG.Tx(ctx, func(q store.RowQuerier) error {
		_, err := q.Exec(ctx, `INSERT INTO subjects (identifier) VALUES ($1)`, "P1")
		return err
	}); err != nil {
		t.Fatalf("commit: %v", err)
	}

	abort := errors.New("abort")
	if err := st.PG.Tx(ctx, func(q store.RowQuerier) error {
		if _, err := q.Exec(ctx, `INSERT INTO subjects (identifier) VALUES ($1)`, "P2"); err != nil {
			return err
		}
		return abort
	}); !errors.Is(err, abort) {
		t.Fatalf("rollback err = %v", err)
	}

	rs, err := st.PG.Query(ctx, `SELECT id, identifier FROM subjects ORDER BY identifier`)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if cols := rs.Columns(); len(cols) != 2 || cols[1] != "identifier" {
		t.Fatalf("columns = %v", cols)
	}
	var names []string
	for rs.Next() {
		var (
			id   int64
			name string
		)
		if err := rs.Scan(&id, &name); err != nil {
			t.Fatalf("scan: %v", err)
		}
		names = append(names, name)
	}
	rs.Close()
	if len(names) != 1 || names[0] != "P1" {
		t.Fatalf("subjects = %v", names)
	}

	_, err = st.PG.Exec(ctx, `INSERT INTO subjects (identifier) VALUES ('P1')`)
	if code := perr.CodeOf(perr.FromPostgres(err, "subjects")); code != perr.ErrorCodeDuplicateKey {
		t.Fatalf("duplicate subject code = %v (%v)", code, err)
	}

	_, err = st.PG.Exec(ctx, `INSERT INTO samples (name, subject_id) VALUES ('S1', 999)`)
	if code := perr.CodeOf(perr.FromPostgres(err, "samples")); code != perr.ErrorCodeConsistency {
		t.Fatalf("orphan sample code = %v (%v)", code, err)
	}
	if perr.IsRetryable(err) {
		t.Fatalf("constraint violations are not retryable")
	}
}
