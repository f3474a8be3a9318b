// Package repo provides postgres access for the collapse stage
package repo

import (
	"context"
	"encoding/json"

	"repertoire/internal/core/collapse"
	"repertoire/internal/modkit/repokit"
	perr "repertoire/internal/platform/errors"
	"repertoire/internal/platform/store"
	clonesrepo "repertoire/internal/services/clones/repo"
	"repertoire/internal/services/collapse/domain"
)

type (
	// PG is a Postgres binder for domain.StorageRepo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a Postgres binder for domain.StorageRepo
func NewPG() repokit.Binder[domain.StorageRepo] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) domain.StorageRepo { return &queries{q: q} }

func (r *queries) Samples(ctx context.Context, names []string, force bool) ([]domain.SampleRef, error) {
	if names == nil {
		names = []string{}
	}
	return store.Many(ctx, r.q, func(row store.Row) (domain.SampleRef, error) {
		var s domain.SampleRef
		err := row.Scan(&s.ID, &s.Name, &s.SubjectID, &s.Subject)
		return s, err
	}, `
		SELECT s.id, s.name, s.subject_id, sub.identifier
		  FROM samples s
		  JOIN subjects sub ON sub.id = s.subject_id
		 WHERE s.identified_at IS NOT NULL
		   AND (cardinality($1::text[]) = 0 OR s.name = ANY($1::text[]))
		   AND ($2 OR s.collapsed_at IS NULL)
		 ORDER BY s.id
	`, names, force)
}

func scanMember(row store.Row) (domain.Member, error) {
	var m domain.Member
	err := row.Scan(
		&m.ID, &m.SampleID, &m.Text, &m.Copies,
		&m.Locus, &m.VTies, &m.JTies, &m.CDR3NT, &m.CDR3AA, &m.Germline,
		&m.VIdentity, &m.Padding, &m.Partial, &m.Stop,
	)
	return m, err
}

func (r *queries) SampleMembers(ctx context.Context, sampleID int64) ([]domain.Member, error) {
	return store.Many(ctx, r.q, scanMember, `
		SELECT id, sample_id, sequence, copies,
		       locus, v_ties, j_ties, cdr3_nt, cdr3_aa, germline,
		       similarity, padding, status = 'partial', stop
		  FROM sequences
		 WHERE sample_id = $1 AND status <> 'failed'
		 ORDER BY id
	`, sampleID)
}

func (r *queries) SubjectMembers(ctx context.Context, subjectID int64) ([]domain.Member, error) {
	return store.Many(ctx, r.q, scanMember, `
		SELECT id, sample_id, text, copies,
		       locus, v_ties, j_ties, cdr3_nt, cdr3_aa, germline,
		       v_identity, padding, partial, stop
		  FROM collapsed
		 WHERE scope = 'sample' AND subject_id = $1
		 ORDER BY id
	`, subjectID)
}

func (r *queries) ReplaceSampleGroups(ctx context.Context, s domain.SampleRef, rows []domain.Row) error {
	if _, err := r.q.Exec(ctx, `
		DELETE FROM collapsed_refs
		 WHERE collapsed_id IN (SELECT id FROM collapsed WHERE scope = 'sample' AND sample_id = $1)
	`, s.ID); err != nil {
		return perr.FromPostgresf(err, "collapse: clear refs of sample %d", s.ID)
	}
	if _, err := r.q.Exec(ctx, `DELETE FROM collapsed WHERE scope = 'sample' AND sample_id = $1`, s.ID); err != nil {
		return perr.FromPostgresf(err, "collapse: clear sample %d", s.ID)
	}
	for _, row := range rows {
		if _, err := r.insert(ctx, s.SubjectID, &s.ID, row); err != nil {
			return err
		}
	}
	_, err := r.q.Exec(ctx, `UPDATE samples SET collapsed_at = now() WHERE id = $1`, s.ID)
	return perr.FromPostgresf(err, "collapse: mark sample %d", s.ID)
}

func (r *queries) Subjects(ctx context.Context, identifiers []string) ([]domain.SubjectRef, error) {
	if identifiers == nil {
		identifiers = []string{}
	}
	return store.Many(ctx, r.q, func(row store.Row) (domain.SubjectRef, error) {
		var s domain.SubjectRef
		err := row.Scan(&s.ID, &s.Identifier)
		return s, err
	}, `
		SELECT id, identifier
		  FROM subjects
		 WHERE cardinality($1::text[]) = 0 OR identifier = ANY($1::text[])
		 ORDER BY identifier
	`, identifiers)
}

func (r *queries) PendingSamples(ctx context.Context, subjectID int64) (int, error) {
	return store.Scalar[int](ctx, r.q, `
		SELECT count(*)::int
		  FROM samples
		 WHERE subject_id = $1 AND collapsed_at IS NULL
	`, subjectID)
}

func (r *queries) HasClones(ctx context.Context, subjectID int64) (bool, error) {
	return store.Scalar[bool](ctx, r.q, `SELECT EXISTS (SELECT 1 FROM clones WHERE subject_id = $1)`, subjectID)
}

func (r *queries) ClearClones(ctx context.Context, subjectID int64) error {
	_, err := clonesrepo.DeleteScope(ctx, r.q, subjectID, "")
	return err
}

func (r *queries) ReplaceSubjectGroups(ctx context.Context, subjectID int64, rows []domain.Row) error {
	for _, sql := range []string{
		`UPDATE collapsed SET collapse_to = NULL WHERE scope = 'subject' AND subject_id = $1`,
		`DELETE FROM collapsed_refs
		  WHERE collapsed_id IN (SELECT id FROM collapsed WHERE scope = 'subject' AND subject_id = $1)`,
		`DELETE FROM collapsed WHERE scope = 'subject' AND subject_id = $1`,
	} {
		if _, err := r.q.Exec(ctx, sql, subjectID); err != nil {
			return perr.FromPostgresf(err, "collapse: clear subject %d", subjectID)
		}
	}

	ids := make(map[string]int64, len(rows))
	for _, row := range rows {
		id, err := r.insert(ctx, subjectID, nil, row)
		if err != nil {
			return err
		}
		ids[row.Text] = id
	}
	for _, row := range rows {
		if row.CollapseTo == "" {
			continue
		}
		to, ok := ids[row.CollapseTo]
		if !ok {
			return perr.Consistencyf("collapse: absorbing sequence missing for subject %d", subjectID)
		}
		if _, err := r.q.Exec(ctx, `UPDATE collapsed SET collapse_to = $2 WHERE id = $1`, ids[row.Text], to); err != nil {
			return perr.FromPostgresf(err, "collapse: link subject %d", subjectID)
		}
	}
	return nil
}

func (r *queries) insert(ctx context.Context, subjectID int64, sampleID *int64, row domain.Row) (int64, error) {
	copies, err := json.Marshal(row.SampleCopies)
	if err != nil {
		return 0, perr.Wrap(err, perr.ErrorCodeJSON, "encode sample copies")
	}
	scope := collapse.ScopeSubject
	if sampleID != nil {
		scope = collapse.ScopeSample
	}
	var id int64
	if err := r.q.QueryRow(ctx, `
		INSERT INTO collapsed (
			scope, subject_id, sample_id, text, copies, sample_copies,
			locus, v_ties, j_ties, cdr3_nt, cdr3_aa, germline, v_identity, padding, partial, stop
		) VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id
	`,
		string(scope), subjectID, sampleID, row.Text, row.Copies, string(copies),
		row.Locus, row.VTies, row.JTies, row.CDR3NT, row.CDR3AA, row.Germline,
		row.VIdentity, row.Padding, row.Partial, row.Stop,
	).Scan(&id); err != nil {
		return 0, perr.FromPostgresf(err, "collapse: insert %s row", scope)
	}
	if _, err := r.q.Exec(ctx, `
		INSERT INTO collapsed_refs (collapsed_id, ref_id)
		SELECT $1, unnest($2::bigint[])
	`, id, row.Refs); err != nil {
		return 0, perr.FromPostgresf(err, "collapse: refs of %d", id)
	}
	return id, nil
}
