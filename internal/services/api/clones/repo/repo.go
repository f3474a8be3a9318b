// Package repo provides postgres reads for the clones API
package repo

import (
	"context"

	"repertoire/internal/modkit/repokit"
	perr "repertoire/internal/platform/errors"
	"repertoire/internal/platform/store"
	"repertoire/internal/services/api/clones/domain"
)

// Repo defines the repository contract for clone reads
type Repo interface {
	List(ctx context.Context, f Filter) ([]domain.Clone, int, error)
	Get(ctx context.Context, id int64) (domain.CloneDetail, error)
	Stats(ctx context.Context, id int64) ([]domain.SampleStat, error)
	Members(ctx context.Context, id int64) ([]domain.Member, error)
	Subclones(ctx context.Context, id int64) ([]int64, error)
}

// Filter narrows List; empty strings match everything
type Filter struct {
	Subject   string
	Locus     string
	Mode      string
	VGene     string
	MinCopies int
	Subclones bool
	Limit     int
	Offset    int
}

type (
	// PG implements the Repo interface using Postgres
	PG struct{}

	// queries holds the database query methods
	queries struct{ q repokit.Queryer }
)

// NewPG creates a new Postgres repository binder
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind binds a Postgres queryer to the Repo implementation
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

const cloneCols = `c.id, s.identifier, c.locus, c.v_ties, c.j_ties, c.cdr3_len, c.cdr3_nt, c.cdr3_aa, c.mode, c.level,
coalesce(c.parent_id, 0), c.depth, coalesce(st.unique_cnt, 0), coalesce(st.total_cnt, 0), c.created_at::text`

const cloneFrom = `
from clones c
join subjects s on s.id = c.subject_id
left join clone_stats st on st.clone_id = c.id and st.sample_id is null`

func scanClone(row store.Row, c *domain.Clone, extra ...any) error {
	dest := []any{&c.ID, &c.Subject, &c.Locus, &c.VTies, &c.JTies, &c.CDR3Len, &c.CDR3NT, &c.CDR3AA,
		&c.Mode, &c.Level, &c.ParentID, &c.Depth, &c.UniqueSeqs, &c.TotalCopies, &c.CreatedAt}
	return row.Scan(append(dest, extra...)...)
}

func (r *queries) List(ctx context.Context, f Filter) ([]domain.Clone, int, error) {
	sql := `select ` + cloneCols + `, count(*) over ()` + cloneFrom + `
where ($1 = '' or s.identifier = $1)
and ($2 = '' or c.locus = $2)
and ($3 = '' or c.mode = $3)
and ($4 = '' or position($4 in c.v_ties) > 0)
and coalesce(st.total_cnt, 0) >= $5
and ($6 or c.depth = 0)
order by coalesce(st.total_cnt, 0) desc, c.id
limit $7 offset $8`

	total := 0
	out, err := store.Many(ctx, r.q, func(row store.Row) (domain.Clone, error) {
		var c domain.Clone
		err := scanClone(row, &c, &total)
		return c, err
	}, sql, f.Subject, f.Locus, f.Mode, f.VGene, f.MinCopies, f.Subclones, f.Limit, f.Offset)
	if err != nil {
		return nil, 0, perr.Wrap(err, perr.ErrorCodeDB, "list clones")
	}
	return out, total, nil
}

func (r *queries) Get(ctx context.Context, id int64) (domain.CloneDetail, error) {
	sql := `select ` + cloneCols + `, c.germline` + cloneFrom + `
where c.id = $1`
	d, err := store.One(ctx, r.q, func(row store.Row) (domain.CloneDetail, error) {
		var d domain.CloneDetail
		err := scanClone(row, &d.Clone, &d.Germline)
		return d, err
	}, sql, id)
	if perr.IsCode(err, perr.ErrorCodeNotFound) {
		return d, perr.NotFoundf("clone %d not found", id)
	}
	if err != nil {
		return d, perr.Wrapf(err, perr.ErrorCodeDB, "get clone %d", id)
	}
	return d, nil
}

func (r *queries) Stats(ctx context.Context, id int64) ([]domain.SampleStat, error) {
	const sql = `
select st.sample_id, smp.name, st.unique_cnt, st.total_cnt
from clone_stats st
join samples smp on smp.id = st.sample_id
where st.clone_id = $1
order by st.total_cnt desc, st.sample_id`
	out, err := store.Many(ctx, r.q, func(row store.Row) (domain.SampleStat, error) {
		var s domain.SampleStat
		err := row.Scan(&s.SampleID, &s.Sample, &s.UniqueSeqs, &s.TotalCopies)
		return s, err
	}, sql, id)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeDB, "clone %d stats", id)
	}
	return out, nil
}

func (r *queries) Members(ctx context.Context, id int64) ([]domain.Member, error) {
	const sql = `
select col.id, col.copies, col.cdr3_aa, col.v_identity, col.stop
from clone_members cm
join collapsed col on col.id = cm.collapsed_id
where cm.clone_id = $1
order by col.copies desc, col.id`
	out, err := store.Many(ctx, r.q, func(row store.Row) (domain.Member, error) {
		var m domain.Member
		err := row.Scan(&m.SeqID, &m.Copies, &m.CDR3AA, &m.VIdentity, &m.Stop)
		return m, err
	}, sql, id)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeDB, "clone %d members", id)
	}
	return out, nil
}

func (r *queries) Subclones(ctx context.Context, id int64) ([]int64, error) {
	out, err := store.Many(ctx, r.q, func(row store.Row) (int64, error) {
		var v int64
		err := row.Scan(&v)
		return v, err
	}, `select id from clones where parent_id = $1 order by id`, id)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeDB, "clone %d subclones", id)
	}
	return out, nil
}
