// Package repo provides postgres and clickhouse access for clonal clustering
package repo

import (
	"context"
	"encoding/json"

	"repertoire/internal/core/cluster"
	"repertoire/internal/core/germline"
	"repertoire/internal/modkit/repokit"
	perr "repertoire/internal/platform/errors"
	"repertoire/internal/platform/store"
	"repertoire/internal/services/clones/domain"
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

// DeleteScope removes the clones of a subject, limited to locus when it is
// not empty, together with their trees, stats and memberships. It returns
// how many clones went away. Collapse calls it when a subject is regenerated
func DeleteScope(ctx context.Context, q repokit.Queryer, subjectID int64, locus string) (int64, error) {
	const owned = `(SELECT id FROM clones WHERE subject_id = $1 AND ($2 = '' OR locus = $2))`
	for _, sql := range []string{
		`DELETE FROM clone_trees WHERE clone_id IN ` + owned,
		`DELETE FROM clone_stats WHERE clone_id IN ` + owned,
		`DELETE FROM clone_members WHERE clone_id IN ` + owned,
	} {
		if _, err := q.Exec(ctx, sql, subjectID, locus); err != nil {
			return 0, perr.FromPostgres(err, "clones: delete scope")
		}
	}
	// parent_id is checked at statement end, so one statement takes the whole hierarchy
	tag, err := q.Exec(ctx, `DELETE FROM clones WHERE subject_id = $1 AND ($2 = '' OR locus = $2)`, subjectID, locus)
	if err != nil {
		return 0, perr.FromPostgres(err, "clones: delete scope")
	}
	return tag.RowsAffected(), nil
}

func (r *queries) Scopes(ctx context.Context, subjects []string, locus string) ([]domain.Scope, error) {
	if subjects == nil {
		subjects = []string{}
	}
	return store.Many(ctx, r.q, func(row store.Row) (domain.Scope, error) {
		var s domain.Scope
		err := row.Scan(&s.SubjectID, &s.Subject, &s.Locus)
		return s, err
	}, `
		SELECT DISTINCT c.subject_id, s.identifier, c.locus
		  FROM collapsed c
		  JOIN subjects s ON s.id = c.subject_id
		 WHERE c.scope = 'subject'
		   AND (cardinality($1::text[]) = 0 OR s.identifier = ANY($1::text[]))
		   AND ($2 = '' OR c.locus = $2)
		 ORDER BY s.identifier, c.locus
	`, subjects, locus)
}

func (r *queries) PendingSamples(ctx context.Context, subjectID int64) (int, error) {
	return store.Scalar[int](ctx, r.q, `
		SELECT count(*)::int
		  FROM samples
		 WHERE subject_id = $1 AND collapsed_at IS NULL
	`, subjectID)
}

func (r *queries) HasClones(ctx context.Context, sc domain.Scope) (bool, error) {
	return store.Scalar[bool](ctx, r.q, `
		SELECT EXISTS (SELECT 1 FROM clones WHERE subject_id = $1 AND locus = $2)
	`, sc.SubjectID, sc.Locus)
}

func (r *queries) DeleteScope(ctx context.Context, sc domain.Scope) (int64, error) {
	return DeleteScope(ctx, r.q, sc.SubjectID, sc.Locus)
}

func (r *queries) Sequences(ctx context.Context, sc domain.Scope) ([]cluster.Seq, error) {
	return store.Many(ctx, r.q, func(row store.Row) (cluster.Seq, error) {
		var (
			s            cluster.Seq
			vTies, jTies string
			copies       string
		)
		if err := row.Scan(
			&s.ID, &s.Locus, &vTies, &jTies, &s.CDR3NT, &s.CDR3AA, &s.Text, &s.Germline,
			&s.Copies, &copies, &s.VIdentity, &s.Padding, &s.Partial, &s.Stop, &s.CollapseTo,
		); err != nil {
			return s, err
		}
		s.Subject = sc.Subject
		s.VTies = germline.ParseTies(vTies)
		s.JTies = germline.ParseTies(jTies)
		if err := json.Unmarshal([]byte(copies), &s.SampleCopies); err != nil {
			return s, perr.Wrapf(err, perr.ErrorCodeJSON, "clones: sample copies of %d", s.ID)
		}
		return s, nil
	}, `
		SELECT id, locus, v_ties, j_ties, cdr3_nt, cdr3_aa, text, germline,
		       copies, sample_copies::text, v_identity, padding, partial, stop,
		       COALESCE(collapse_to, 0)
		  FROM collapsed
		 WHERE scope = 'subject' AND subject_id = $1 AND locus = $2
		 ORDER BY id
	`, sc.SubjectID, sc.Locus)
}

func (r *queries) InsertClone(ctx context.Context, sc domain.Scope, c domain.NewClone) (int64, error) {
	var parent *int64
	if c.ParentID != 0 {
		parent = &c.ParentID
	}
	var id int64
	if err := r.q.QueryRow(ctx, `
		INSERT INTO clones (
			subject_id, locus, v_ties, j_ties, cdr3_len, cdr3_nt, cdr3_aa, germline,
			mode, level, parent_id, depth
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`,
		sc.SubjectID, sc.Locus, c.Key.V, c.Key.J, c.Key.CDR3Len, c.CDR3NT, c.CDR3AA, c.Germline,
		string(c.Mode), string(c.Level), parent, c.Depth,
	).Scan(&id); err != nil {
		return 0, perr.FromPostgresf(err, "clones: insert %s clone at depth %d", c.Mode, c.Depth)
	}
	if _, err := r.q.Exec(ctx, `
		INSERT INTO clone_members (clone_id, collapsed_id, depth)
		SELECT $1, unnest($2::bigint[]), $3
	`, id, c.Members, c.Depth); err != nil {
		return 0, perr.FromPostgresf(err, "clones: members of %d", id)
	}
	return id, nil
}

func (r *queries) InsertStats(ctx context.Context, cloneID int64, stats []domain.Stat) error {
	for _, s := range stats {
		if _, err := r.q.Exec(ctx, `
			INSERT INTO clone_stats (clone_id, sample_id, unique_cnt, total_cnt)
			VALUES ($1, NULLIF($2, 0), $3, $4)
		`, cloneID, s.SampleID, s.Unique, s.Total); err != nil {
			return perr.FromPostgresf(err, "clones: stats of %d", cloneID)
		}
	}
	return nil
}
