package service

import (
	"bytes"
	"context"
	"io"
	"testing"

	"repertoire/internal/core/lineage"
	"repertoire/internal/modkit/repokit"
	perr "repertoire/internal/platform/errors"
	"repertoire/internal/platform/report"
	"repertoire/internal/platform/store/storetest"
	"repertoire/internal/services/api/clones/domain"
	"repertoire/internal/services/api/clones/repo"
	exdom "repertoire/internal/services/exchange/domain"
	treesdom "repertoire/internal/services/trees/domain"
)

type fakeRepo struct {
	filter repo.Filter
}

func (f *fakeRepo) List(_ context.Context, flt repo.Filter) ([]domain.Clone, int, error) {
	f.filter = flt
	return nil, 0, nil
}

func (f *fakeRepo) Get(_ context.Context, id int64) (domain.CloneDetail, error) {
	if id != 7 {
		return domain.CloneDetail{}, perr.NotFoundf("clone %d not found", id)
	}
	return domain.CloneDetail{Clone: domain.Clone{ID: 7, Locus: "IGH"}, Germline: "CAGGTG"}, nil
}

func (f *fakeRepo) Stats(context.Context, int64) ([]domain.SampleStat, error) {
	return []domain.SampleStat{{SampleID: 1, Sample: "s1", UniqueSeqs: 2, TotalCopies: 5}}, nil
}

func (f *fakeRepo) Members(context.Context, int64) ([]domain.Member, error) {
	return []domain.Member{{SeqID: 10, Copies: 3}, {SeqID: 11, Copies: 2}}, nil
}

func (f *fakeRepo) Subclones(context.Context, int64) ([]int64, error) { return []int64{8}, nil }

type fakeBinder struct{ r *fakeRepo }

func (b fakeBinder) Bind(repokit.Queryer) repo.Repo { return b.r }

type fakeRenderer struct {
	filters lineage.Filters
	force   bool
}

func (f *fakeRenderer) Render(_ context.Context, id int64, flt lineage.Filters, force bool) (*treesdom.Result, error) {
	f.filters, f.force = flt, force
	return &treesdom.Result{Tree: &lineage.Rendered{CloneID: id, Filters: flt}}, nil
}

func (f *fakeRenderer) RenderAll(context.Context, treesdom.RenderAllInput) (*report.Summary, error) {
	return report.New("test", 0), nil
}

type fakeExchange struct{ sel exdom.Selection }

func (f *fakeExchange) Export(_ context.Context, w io.Writer, sel exdom.Selection) (int, error) {
	f.sel = sel
	_, err := io.WriteString(w, "seq_id\tclone_id\n10\t7\n")
	return 1, err
}

func (f *fakeExchange) Import(context.Context, io.Reader, exdom.ImportInput) (*report.Summary, error) {
	return report.New("test", 0), nil
}

func newSvc(fr *fakeRepo, rend *fakeRenderer, ex *fakeExchange) *Svc {
	return New(&storetest.Tx{}, fakeBinder{fr}, Options{
		Renderer: rend,
		Exchange: ex,
		Filters:  lineage.Filters{MinSeqCopies: 2, ExcludeStops: true},
	})
}

func TestList_DefaultLimitAndEmptyItems(t *testing.T) {
	fr := &fakeRepo{}
	page, err := newSvc(fr, &fakeRenderer{}, &fakeExchange{}).List(context.Background(), domain.ListInput{Locus: "IGH"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if fr.filter.Limit != defaultLimit || fr.filter.Locus != "IGH" {
		t.Fatalf("filter = %+v", fr.filter)
	}
	if page.Items == nil {
		t.Fatalf("items should be an empty slice, not nil")
	}
}

func TestGet_AssemblesDetail(t *testing.T) {
	d, err := newSvc(&fakeRepo{}, &fakeRenderer{}, &fakeExchange{}).Get(context.Background(), 7)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if d.Germline != "CAGGTG" || len(d.Samples) != 1 || len(d.Members) != 2 || len(d.Subclones) != 1 {
		t.Fatalf("detail = %+v", d)
	}

	_, err = newSvc(&fakeRepo{}, &fakeRenderer{}, &fakeExchange{}).Get(context.Background(), 3)
	if !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestTree_OverlaysDefaults(t *testing.T) {
	rend := &fakeRenderer{}
	s := newSvc(&fakeRepo{}, rend, &fakeExchange{})

	three, no := 3, false
	_, err := s.Tree(context.Background(), 7, domain.TreeInput{MinMutCopies: &three, ExcludeStops: &no, Force: true})
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}
	want := lineage.Filters{MinMutCopies: 3, MinSeqCopies: 2, ExcludeStops: false}
	if rend.filters != want || !rend.force {
		t.Fatalf("filters = %+v force=%v", rend.filters, rend.force)
	}
}

func TestExport_SelectsOneClone(t *testing.T) {
	ex := &fakeExchange{}
	s := newSvc(&fakeRepo{}, &fakeRenderer{}, ex)

	var buf bytes.Buffer
	n, err := s.Export(context.Background(), &buf, 7)
	if err != nil || n != 1 {
		t.Fatalf("Export = %d, %v", n, err)
	}
	if len(ex.sel.CloneIDs) != 1 || ex.sel.CloneIDs[0] != 7 {
		t.Fatalf("selection = %+v", ex.sel)
	}

	if _, err := s.Export(context.Background(), &buf, 3); !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("err = %v", err)
	}
}
