package service_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"repertoire/internal/core/cluster"
	"repertoire/internal/core/dna"
	"repertoire/internal/core/germline"
	"repertoire/internal/core/lineage"
	"repertoire/internal/modkit/repokit"
	perr "repertoire/internal/platform/errors"
	"repertoire/internal/platform/store/storetest"
	"repertoire/internal/services/clones/domain"
	"repertoire/internal/services/clones/guardrails"
	"repertoire/internal/services/clones/service"

	"github.com/jackc/pgx/v5/pgconn"
)

const cdr3A = "TGTGCGAGAGATCGGGGCTACTTTGACTAC"

func withBase(s string, i int, b byte) string {
	out := []byte(s)
	out[i] = b
	return string(out)
}

func seq(id int64, cdr3 string, copies map[string]int) cluster.Seq {
	total := 0
	for _, n := range copies {
		total += n
	}
	return cluster.Seq{
		ID:           id,
		Subject:      "P1",
		Locus:        "IGH",
		VTies:        germline.NewTies("IGHV1-2*02"),
		JTies:        germline.NewTies("IGHJ4*02"),
		CDR3NT:       cdr3,
		CDR3AA:       dna.Translate(cdr3),
		Text:         "ACGT" + cdr3,
		Germline:     "ACGT" + cdr3,
		Copies:       total,
		SampleCopies: copies,
		VIdentity:    1,
	}
}

type inserted struct {
	id    int64
	clone domain.NewClone
	stats []domain.Stat
}

type fakeRepo struct {
	mu      sync.Mutex
	scopes  []domain.Scope
	pending map[int64]int
	seqs    map[string][]cluster.Seq
	has     map[string]bool
	deleted []string
	clones  []*inserted

	// insertErrs are returned by the next InsertClone calls, one each
	insertErrs []error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{pending: map[int64]int{}, seqs: map[string][]cluster.Seq{}, has: map[string]bool{}}
}

func (f *fakeRepo) binder() repokit.Binder[domain.StorageRepo] {
	return repokit.BindFunc[domain.StorageRepo](func(repokit.Queryer) domain.StorageRepo { return f })
}

func (f *fakeRepo) Scopes(_ context.Context, subjects []string, locus string) ([]domain.Scope, error) {
	var out []domain.Scope
	for _, s := range f.scopes {
		if (len(subjects) == 0 || slices.Contains(subjects, s.Subject)) && (locus == "" || locus == s.Locus) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeRepo) PendingSamples(_ context.Context, id int64) (int, error) {
	return f.pending[id], nil
}

func (f *fakeRepo) HasClones(_ context.Context, sc domain.Scope) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.has[sc.String()], nil
}

func (f *fakeRepo) DeleteScope(_ context.Context, sc domain.Scope) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, sc.String())
	f.has[sc.String()] = false
	n := int64(len(f.clones))
	f.clones = nil
	return n, nil
}

func (f *fakeRepo) Sequences(_ context.Context, sc domain.Scope) ([]cluster.Seq, error) {
	return f.seqs[sc.String()], nil
}

func (f *fakeRepo) InsertClone(_ context.Context, sc domain.Scope, c domain.NewClone) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.insertErrs) > 0 {
		err := f.insertErrs[0]
		f.insertErrs = f.insertErrs[1:]
		return 0, err
	}
	id := int64(len(f.clones) + 1)
	f.clones = append(f.clones, &inserted{id: id, clone: c})
	f.has[sc.String()] = true
	return id, nil
}

func (f *fakeRepo) InsertStats(_ context.Context, cloneID int64, stats []domain.Stat) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clones[cloneID-1].stats = stats
	return nil
}

type memSink struct {
	mu   sync.Mutex
	rows []domain.StatRow
	err  error
}

func (m *memSink) WriteStats(_ context.Context, rows []domain.StatRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, rows...)
	return m.err
}

var p1 = domain.Scope{SubjectID: 1, Subject: "P1", Locus: "IGH"}

func seeded() *fakeRepo {
	f := newFakeRepo()
	f.scopes = []domain.Scope{p1}
	f.seqs[p1.String()] = []cluster.Seq{
		seq(1, cdr3A, map[string]int{"10": 3, "11": 2}),
		seq(2, withBase(cdr3A, 12, 'A'), map[string]int{"10": 1}),
		seq(3, "TGTGCAAAATTTGGGCCCTACTTTGACTAC", map[string]int{"11": 4}),
	}
	return f
}

func similarity(threshold float64) domain.RunInput {
	return domain.RunInput{
		Mode:       cluster.ModeSimilarity,
		Filters:    cluster.DefaultFilters(),
		Similarity: cluster.SimilarityConfig{Level: cluster.LevelNT, MinSimilarity: threshold},
		Lineage:    cluster.DefaultLineageConfig(),
	}
}

func TestRun_SimilarityStoresClonesAndStats(t *testing.T) {
	repo := seeded()
	sink := &memSink{}
	svc := service.New(&storetest.Tx{}, repo.binder(), service.Config{Workers: 2, Sink: sink})

	sum, err := svc.Run(context.Background(), similarity(0.85))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Count("scopes") != 1 || sum.Count("buckets") != 1 || sum.Count("clones") != 2 || sum.Failed() != 0 {
		t.Fatalf("summary: %v %+v", sum.Counts(), sum.Failures())
	}
	first := repo.clones[0]
	if !slices.Equal(first.clone.Members, []int64{1, 2}) || first.clone.Mode != cluster.ModeSimilarity {
		t.Fatalf("first clone: %+v", first.clone)
	}
	want := []domain.Stat{
		{SampleID: 0, Unique: 2, Total: 6},
		{SampleID: 10, Unique: 2, Total: 4},
		{SampleID: 11, Unique: 1, Total: 2},
	}
	if !slices.Equal(first.stats, want) {
		t.Fatalf("stats = %+v", first.stats)
	}
	if len(sink.rows) != 5 || sink.rows[0].RunID == "" || sink.rows[0].Subject != "P1" {
		t.Fatalf("sink rows: %+v", sink.rows)
	}
}

func TestRun_SkipsClusteredScopeUnlessRegen(t *testing.T) {
	repo := seeded()
	svc := service.New(&storetest.Tx{}, repo.binder(), service.Config{})

	if _, err := svc.Run(context.Background(), similarity(0.85)); err != nil {
		t.Fatalf("first run: %v", err)
	}
	sum, err := svc.Run(context.Background(), similarity(0.85))
	if err != nil || sum.Count("skipped") != 1 || len(repo.clones) != 2 {
		t.Fatalf("second run should skip: %v %v clones=%d", err, sum.Counts(), len(repo.clones))
	}

	in := similarity(0.99)
	in.Regen = true
	sum, err = svc.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("regen: %v", err)
	}
	if !slices.Equal(repo.deleted, []string{"P1/IGH"}) || sum.Count("deleted_clones") != 2 || len(repo.clones) != 3 {
		t.Fatalf("regen should replace clones: deleted=%v counts=%v clones=%d", repo.deleted, sum.Counts(), len(repo.clones))
	}
}

func TestRun_ScopeFailures(t *testing.T) {
	repo := seeded()
	repo.pending[1] = 1
	svc := service.New(&storetest.Tx{}, repo.binder(), service.Config{})

	in := similarity(0.85)
	in.Filters.Subjects = []string{"P1", "P9"}
	sum, err := svc.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("consistency failures stay per scope, got %v", err)
	}
	fails := sum.Failures()
	if len(fails) != 2 {
		t.Fatalf("want missing subject and pending scope, got %+v", fails)
	}
	for _, f := range fails {
		if f.Code != perr.ErrorCodeConsistency {
			t.Fatalf("unexpected failure %+v", f)
		}
	}
	if len(repo.clones) != 0 {
		t.Fatalf("pending scope must not cluster")
	}
}

func TestRun_LeaseHeldElsewhere(t *testing.T) {
	repo := seeded()
	held := guardrails.Lease(func(context.Context, domain.Scope, func(context.Context) error) error {
		return guardrails.ErrLeaseHeld
	})
	svc := service.New(&storetest.Tx{}, repo.binder(), service.Config{Lease: held})
	sum, err := svc.Run(context.Background(), similarity(0.85))
	if err != nil || sum.Count("leased_elsewhere") != 1 || len(repo.clones) != 0 {
		t.Fatalf("held lease: %v %v", err, sum.Counts())
	}
}

func TestRun_InvalidConfigAborts(t *testing.T) {
	svc := service.New(&storetest.Tx{}, seeded().binder(), service.Config{})
	in := similarity(1.5)
	if _, err := svc.Run(context.Background(), in); !perr.IsCode(err, perr.ErrorCodeConfiguration) {
		t.Fatalf("want configuration error, got %v", err)
	}
	in = similarity(0.85)
	in.Mode = cluster.ModeLineage
	if _, err := svc.Run(context.Background(), in); !perr.IsCode(err, perr.ErrorCodeConfiguration) {
		t.Fatalf("lineage without builder: %v", err)
	}
}

func lineageRepo() *fakeRepo {
	f := newFakeRepo()
	f.scopes = []domain.Scope{p1}
	mk := func(id int64, text string, copies int) cluster.Seq {
		s := seq(id, cdr3A, map[string]int{"10": copies})
		s.Text = text
		s.Germline = "AAAAAAAAAA"
		return s
	}
	f.seqs[p1.String()] = []cluster.Seq{
		mk(1, "AAAAAAAACC", 3),
		mk(2, "AAAAAAAACG", 1),
		mk(3, "TTAAAAAAAA", 2),
	}
	return f
}

func TestRun_LineageSubclonesLinkToParent(t *testing.T) {
	repo := lineageRepo()
	svc := service.New(&storetest.Tx{}, repo.binder(), service.Config{Builder: lineage.NJ{}})

	in := similarity(0.85)
	in.Mode = cluster.ModeLineage
	in.Lineage.MutCutoff = 6
	in.Lineage.Subclones = true
	sum, err := svc.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Count("clones") != 1 || sum.Count("subclones") < 2 {
		t.Fatalf("counts: %v %+v", sum.Counts(), sum.Failures())
	}
	top := repo.clones[0]
	if top.clone.Depth != 0 || top.clone.ParentID != 0 || top.clone.Level != cluster.LevelNT {
		t.Fatalf("top clone: %+v", top.clone)
	}
	children := 0
	for _, sub := range repo.clones[1:] {
		switch {
		case sub.clone.Depth == 1 && sub.clone.ParentID == top.id:
			children++
		case sub.clone.Depth < 1 || sub.clone.ParentID == 0 || sub.clone.ParentID >= sub.id:
			t.Fatalf("subclone link: %+v", sub.clone)
		}
	}
	if children != 2 {
		t.Fatalf("want two direct subclones, got %d", children)
	}
}

func TestRun_TreeFailureFailsBucketOnly(t *testing.T) {
	repo := lineageRepo()
	failing := lineage.BuilderFunc(func(context.Context, []lineage.Taxon) (*lineage.Tree, error) {
		return nil, errors.New("tool crashed")
	})
	svc := service.New(&storetest.Tx{}, repo.binder(), service.Config{Builder: failing})

	in := similarity(0.85)
	in.Mode = cluster.ModeLineage
	sum, err := svc.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("tool failures stay per bucket, got %v", err)
	}
	fails := sum.Failures()
	if len(fails) != 1 || fails[0].Scope != "bucket" || fails[0].Code != perr.ErrorCodeExternalTool {
		t.Fatalf("failures: %+v", fails)
	}
	if sum.Count("scopes") != 1 {
		t.Fatalf("scope should still complete: %v", sum.Counts())
	}
}

func pgErr(code, msg string) error {
	return perr.FromPostgres(&pgconn.PgError{Code: code, Message: msg}, "clones: insert")
}

func TestRun_RetriesContendedBucket(t *testing.T) {
	repo := seeded()
	repo.insertErrs = []error{pgErr("40P01", "deadlock detected")}
	tx := &storetest.Tx{}
	svc := service.New(tx, repo.binder(), service.Config{Workers: 1})

	sum, err := svc.Run(context.Background(), similarity(0.85))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Failed() != 0 || sum.Count("clones") != 2 || len(repo.clones) != 2 {
		t.Fatalf("summary: %v %+v", sum.Counts(), sum.Failures())
	}
}

func TestRun_DuplicateKeyIsNotRetried(t *testing.T) {
	repo := seeded()
	dup := pgErr("23505", "duplicate key value violates unique constraint")
	repo.insertErrs = []error{dup, dup, dup}
	svc := service.New(&storetest.Tx{}, repo.binder(), service.Config{Workers: 1})

	sum, _ := svc.Run(context.Background(), similarity(0.85))
	fails := sum.Failures()
	if len(fails) != 1 || fails[0].Code != perr.ErrorCodeDuplicateKey {
		t.Fatalf("failures: %+v", fails)
	}
	if len(repo.insertErrs) != 2 {
		t.Fatalf("duplicate key must fail on first attempt, %d errors left", len(repo.insertErrs))
	}
}

func TestCloneStats_BadSampleKey(t *testing.T) {
	s := seq(1, cdr3A, map[string]int{"s1": 1})
	_, err := service.CloneStats(cluster.Clone{Members: []int64{1}}, map[int64]cluster.Seq{1: s})
	if !perr.IsCode(err, perr.ErrorCodeConsistency) {
		t.Fatalf("want consistency error, got %v", err)
	}
}
