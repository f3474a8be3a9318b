package repo_test

import (
	"context"
	"strings"
	"testing"

	"repertoire/internal/core/cluster"
	perr "repertoire/internal/platform/errors"
	"repertoire/internal/platform/store"
	"repertoire/internal/platform/store/storetest"
	"repertoire/internal/services/clones/domain"
	"repertoire/internal/services/clones/repo"

	"github.com/jackc/pgx/v5/pgconn"
)

type failRow struct{ err error }

func (r failRow) Scan(...any) error { return r.err }

var p1 = domain.Scope{SubjectID: 4, Subject: "P1", Locus: "IGH"}

func newClone(parent int64, depth int) domain.NewClone {
	return domain.NewClone{
		Clone: cluster.Clone{
			Key:     cluster.Key{Subject: "P1", Locus: "IGH", V: "IGHV3-23", J: "IGHJ4", CDR3Len: 30},
			CDR3NT:  "TGTGCGAGAGATCGGGGCTACTTTGACTAC",
			Members: []int64{11, 12},
		},
		Mode:     cluster.ModeLineage,
		Level:    cluster.LevelAA,
		ParentID: parent,
		Depth:    depth,
	}
}

func TestDeleteScope_RemovesDependentsBeforeClones(t *testing.T) {
	tx := &storetest.Tx{}
	if _, err := repo.DeleteScope(context.Background(), tx, 4, "IGH"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	execs := tx.Execs()
	if len(execs) != 4 {
		t.Fatalf("statements = %d", len(execs))
	}
	for i, table := range []string{"clone_trees", "clone_stats", "clone_members", "clones "} {
		if !strings.Contains(execs[i], "DELETE FROM "+table) {
			t.Fatalf("statement %d = %q, want %s", i, execs[i], table)
		}
	}
}

func TestInsertClone_ReturnsIDAndLinksMembers(t *testing.T) {
	var parent any
	tx := &storetest.Tx{Row: func(_ string, args ...any) store.Row {
		parent = args[10]
		return storetest.Values{int64(42)}
	}}
	q := repo.NewPG().Bind(tx)

	id, err := q.InsertClone(context.Background(), p1, newClone(7, 1))
	if err != nil || id != 42 {
		t.Fatalf("insert = %d, %v", id, err)
	}
	if p, ok := parent.(*int64); !ok || *p != 7 {
		t.Fatalf("parent arg = %#v", parent)
	}
	execs := tx.Execs()
	if len(execs) != 2 || !strings.Contains(execs[1], "clone_members") {
		t.Fatalf("execs = %q", execs)
	}

	if _, err := q.InsertClone(context.Background(), p1, newClone(0, 0)); err != nil {
		t.Fatalf("root insert: %v", err)
	}
	if p, ok := parent.(*int64); !ok || p != nil {
		t.Fatalf("root clone should have a nil parent, got %#v", parent)
	}
}

func TestInsertClone_MapsStoreErrors(t *testing.T) {
	tx := &storetest.Tx{Row: func(string, ...any) store.Row {
		return failRow{&pgconn.PgError{Code: "40P01", Message: "deadlock detected"}}
	}}
	_, err := repo.NewPG().Bind(tx).InsertClone(context.Background(), p1, newClone(0, 0))
	if perr.CodeOf(err) != perr.ErrorCodeDB || !perr.IsRetryable(err) {
		t.Fatalf("err = %v (%v)", err, perr.CodeOf(err))
	}
	if !strings.Contains(err.Error(), "insert lineage clone at depth 0") {
		t.Fatalf("message = %q", err.Error())
	}
}
