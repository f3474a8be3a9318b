package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"repertoire/internal/core/lineage"
	"repertoire/internal/modkit/repokit"
	perr "repertoire/internal/platform/errors"
	"repertoire/internal/platform/store/storetest"
	"repertoire/internal/services/trees/domain"
	"repertoire/internal/services/trees/service"
)

type fakeRepo struct {
	mu     sync.Mutex
	inputs map[int64]lineage.RenderInput
	stored map[int64]*lineage.Rendered
	saves  int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		inputs: map[int64]lineage.RenderInput{
			1: {CloneID: 1, Germline: "AAAAAAAAAA", CDR3Len: 3, Members: []lineage.Taxon{
				{ID: 10, Seq: "AAAAAAAACC", Copies: 3, Samples: []string{"s1", "s2"}},
				{ID: 11, Seq: "TTAAAAAAAA", Copies: 1, Samples: []string{"s1"}},
			}},
			2: {CloneID: 2, Germline: "AAAAAAAAAA", CDR3Len: 3, Members: []lineage.Taxon{
				{ID: 20, Seq: "AAAAAAAAAC", Copies: 2, Samples: []string{"s1"}},
			}},
		},
		stored: map[int64]*lineage.Rendered{},
	}
}

func (f *fakeRepo) binder() repokit.Binder[domain.StorageRepo] {
	return repokit.BindFunc[domain.StorageRepo](func(repokit.Queryer) domain.StorageRepo { return f })
}

func (f *fakeRepo) CloneInput(_ context.Context, id int64) (lineage.RenderInput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	in, ok := f.inputs[id]
	if !ok {
		return in, perr.ErrNotFound
	}
	in.Members = append([]lineage.Taxon(nil), in.Members...)
	return in, nil
}

func (f *fakeRepo) StoredTree(_ context.Context, id int64) (*lineage.Rendered, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.stored[id]
	if !ok {
		return nil, perr.ErrNotFound
	}
	return t, nil
}

func (f *fakeRepo) SaveTree(_ context.Context, t *lineage.Rendered) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stored[t.CloneID] = t
	f.saves++
	return nil
}

func (f *fakeRepo) CloneIDs(context.Context, []string, string) ([]int64, error) {
	return []int64{1, 2}, nil
}

// countingNJ wraps neighbor joining and counts builds
type countingNJ struct {
	builds atomic.Int32
	gate   chan struct{}
}

func (c *countingNJ) Build(ctx context.Context, taxa []lineage.Taxon) (*lineage.Tree, error) {
	c.builds.Add(1)
	if c.gate != nil {
		<-c.gate
	}
	return lineage.NJ{}.Build(ctx, taxa)
}

func TestRender_CachesByMembershipAndFilters(t *testing.T) {
	repo := newFakeRepo()
	nj := &countingNJ{}
	svc := service.New(&storetest.Tx{}, repo.binder(), service.Config{Builder: nj})
	ctx := context.Background()

	first, err := svc.Render(ctx, 1, lineage.Filters{}, false)
	if err != nil || first.Cached || first.Tree.Root == nil || first.Tree.Newick == "" {
		t.Fatalf("first render: %+v %v", first, err)
	}
	again, err := svc.Render(ctx, 1, lineage.Filters{}, false)
	if err != nil || !again.Cached || nj.builds.Load() != 1 {
		t.Fatalf("second render should hit the cache: cached=%v builds=%d err=%v", again.Cached, nj.builds.Load(), err)
	}

	if res, _ := svc.Render(ctx, 1, lineage.Filters{}, true); res.Cached {
		t.Fatalf("force must rebuild")
	}
	if res, _ := svc.Render(ctx, 1, lineage.Filters{MinMutCopies: 2}, false); res.Cached {
		t.Fatalf("changed filters must rebuild")
	}

	repo.mu.Lock()
	in := repo.inputs[1]
	in.Members[1].Copies = 5
	repo.mu.Unlock()
	if res, _ := svc.Render(ctx, 1, lineage.Filters{MinMutCopies: 2}, false); res.Cached {
		t.Fatalf("changed membership must rebuild")
	}
	if repo.saves != 4 {
		t.Fatalf("saves = %d", repo.saves)
	}
}

func TestRender_ConcurrentCallsShareOneBuild(t *testing.T) {
	repo := newFakeRepo()
	nj := &countingNJ{gate: make(chan struct{})}
	svc := service.New(&storetest.Tx{}, repo.binder(), service.Config{Builder: nj})

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Render(context.Background(), 1, lineage.Filters{}, false)
			errs <- err
		}()
	}
	close(nj.gate)
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("render: %v", err)
		}
	}
	if n := nj.builds.Load(); n != 1 {
		t.Fatalf("builds = %d, want 1", n)
	}
}

func TestRender_Errors(t *testing.T) {
	svc := service.New(&storetest.Tx{}, newFakeRepo().binder(), service.Config{})
	if _, err := svc.Render(context.Background(), 99, lineage.Filters{}, false); !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("want not found, got %v", err)
	}
	if _, err := svc.Render(context.Background(), 1, lineage.Filters{MinSeqCopies: -1}, false); !perr.IsCode(err, perr.ErrorCodeConfiguration) {
		t.Fatalf("want configuration error, got %v", err)
	}
}

func TestRenderAll_CountsAndFailures(t *testing.T) {
	repo := newFakeRepo()
	tx := &storetest.Tx{}
	svc := service.New(tx, repo.binder(), service.Config{Workers: 2})

	sum, err := svc.RenderAll(context.Background(), domain.RenderAllInput{})
	if err != nil || sum.Count("rendered") != 2 {
		t.Fatalf("first batch: %v %v", sum.Counts(), err)
	}
	sum, err = svc.RenderAll(context.Background(), domain.RenderAllInput{CloneIDs: []int64{1, 2, 7}})
	if err != nil {
		t.Fatalf("second batch: %v", err)
	}
	if sum.Count("cached") != 2 || sum.Failed() != 1 {
		t.Fatalf("second batch: %v failed=%d", sum.Counts(), sum.Failed())
	}
}

func TestRender_SharedBuildOutlivesFirstCaller(t *testing.T) {
	repo := newFakeRepo()
	nj := &countingNJ{gate: make(chan struct{})}
	svc := service.New(&storetest.Tx{}, repo.binder(), service.Config{Builder: nj, TreeTimeout: time.Minute})

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.Render(first, 1, lineage.Filters{}, false)
		firstErr <- err
	}()
	for nj.builds.Load() == 0 {
		time.Sleep(time.Millisecond)
	}

	type result struct {
		res *domain.Result
		err error
	}
	second := make(chan result, 1)
	go func() {
		res, err := svc.Render(context.Background(), 1, lineage.Filters{}, false)
		second <- result{res, err}
	}()
	// let the second caller join the build still held at the gate
	time.Sleep(50 * time.Millisecond)

	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller should return its ctx error, got %v", err)
	}

	close(nj.gate)
	got := <-second
	if got.err != nil || got.res == nil || got.res.Tree == nil {
		t.Fatalf("waiting caller lost the shared build: %+v %v", got.res, got.err)
	}
	if n := nj.builds.Load(); n != 1 {
		t.Fatalf("builds = %d", n)
	}
}
