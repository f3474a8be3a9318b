// Package repo provides postgres access for samples
package repo

import (
	"context"

	"repertoire/internal/modkit/repokit"
	perr "repertoire/internal/platform/errors"
	"repertoire/internal/platform/store"
)

// Repo defines the repository contract for samples
type Repo interface {
	List(ctx context.Context, subject string, limit, offset int) ([]RowSample, int, error)
	Exists(ctx context.Context, sampleID int64) (bool, error)
	Sequences(ctx context.Context, sampleID int64, status string, functional bool, limit, offset int) ([]RowSequence, int, error)
}

// RowSample represents a sample row from the database
type RowSample struct {
	ID           int64
	Name         string
	Subject      string
	Metadata     []byte
	ReadsTotal   int
	ReadsFailed  int
	IdentifiedAt string
	CollapsedAt  string
}

// RowSequence represents a sequence row from the database
type RowSequence struct {
	ID               int64
	ReadIDs          []string
	Status           string
	Reason           string
	Locus            string
	VTies            string
	JTies            string
	CDR3NT           string
	CDR3AA           string
	Similarity       float64
	Copies           int
	Stop             bool
	InFrame          bool
	Functional       bool
	MutationFraction float64
	Sequence         string
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

func (r *queries) List(ctx context.Context, subject string, limit, offset int) ([]RowSample, int, error) {
	const sql = `
select s.id, s.name, sub.identifier, s.metadata::text, s.reads_total, s.reads_failed,
coalesce(s.identified_at::text, ''), coalesce(s.collapsed_at::text, ''), count(*) over ()
from samples s
join subjects sub on sub.id = s.subject_id
where ($1 = '' or sub.identifier = $1)
order by s.id
limit $2 offset $3
`
	total := 0
	out, err := store.Many(ctx, r.q, func(row store.Row) (RowSample, error) {
		var rr RowSample
		var meta string
		err := row.Scan(&rr.ID, &rr.Name, &rr.Subject, &meta, &rr.ReadsTotal, &rr.ReadsFailed,
			&rr.IdentifiedAt, &rr.CollapsedAt, &total)
		rr.Metadata = []byte(meta)
		return rr, err
	}, sql, subject, limit, offset)
	if err != nil {
		return nil, 0, perr.Wrap(err, perr.ErrorCodeDB, "list samples")
	}
	return out, total, nil
}

func (r *queries) Exists(ctx context.Context, sampleID int64) (bool, error) {
	ok, err := store.Scalar[bool](ctx, r.q, `select exists (select 1 from samples where id = $1)`, sampleID)
	if err != nil {
		return false, perr.Wrap(err, perr.ErrorCodeDB, "sample exists")
	}
	return ok, nil
}

func (r *queries) Sequences(ctx context.Context, sampleID int64, status string, functional bool, limit, offset int) ([]RowSequence, int, error) {
	const sql = `
select id, read_ids, status, coalesce(reason, ''), coalesce(locus, ''), coalesce(v_ties, ''), coalesce(j_ties, ''),
coalesce(cdr3_nt, ''), coalesce(cdr3_aa, ''), similarity, copies, stop, in_frame, functional,
mutation_fraction, coalesce(sequence, ''), count(*) over ()
from sequences
where sample_id = $1
and ($2 = '' or status = $2)
and (not $3 or functional)
order by id
limit $4 offset $5
`
	total := 0
	out, err := store.Many(ctx, r.q, func(row store.Row) (RowSequence, error) {
		var rr RowSequence
		err := row.Scan(&rr.ID, &rr.ReadIDs, &rr.Status, &rr.Reason, &rr.Locus, &rr.VTies, &rr.JTies,
			&rr.CDR3NT, &rr.CDR3AA, &rr.Similarity, &rr.Copies, &rr.Stop, &rr.InFrame, &rr.Functional,
			&rr.MutationFraction, &rr.Sequence, &total)
		return rr, err
	}, sql, sampleID, status, functional, limit, offset)
	if err != nil {
		return nil, 0, perr.Wrap(err, perr.ErrorCodeDB, "list sequences")
	}
	return out, total, nil
}
