// Package repo provides postgres access for clone association exchange
package repo

import (
	"context"
	"encoding/json"

	"repertoire/internal/core/germline"
	"repertoire/internal/modkit/repokit"
	perr "repertoire/internal/platform/errors"
	"repertoire/internal/platform/store"
	"repertoire/internal/services/exchange/domain"
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

func (r *queries) Associations(ctx context.Context, sel domain.Selection) ([]domain.Assoc, error) {
	subjects := sel.Subjects
	if subjects == nil {
		subjects = []string{}
	}
	clones := sel.CloneIDs
	if clones == nil {
		clones = []int64{}
	}
	return store.Many(ctx, r.q, func(row store.Row) (domain.Assoc, error) {
		var a domain.Assoc
		err := row.Scan(&a.SeqID, &a.CloneID)
		return a, err
	}, `
		SELECT m.collapsed_id, m.clone_id
		  FROM clone_members m
		  JOIN clones c ON c.id = m.clone_id
		  JOIN subjects s ON s.id = c.subject_id
		 WHERE c.depth = 0
		   AND (cardinality($1::bigint[]) = 0 OR c.id = ANY($1::bigint[]))
		   AND (cardinality($2::text[]) = 0 OR s.identifier = ANY($2::text[]))
		   AND ($3 = '' OR c.locus = $3)
		 ORDER BY m.clone_id, m.collapsed_id
	`, clones, subjects, sel.Locus)
}

func (r *queries) Located(ctx context.Context, ids []int64) ([]domain.Located, error) {
	if ids == nil {
		ids = []int64{}
	}
	return store.Many(ctx, r.q, func(row store.Row) (domain.Located, error) {
		var (
			l            domain.Located
			vTies, jTies string
			copies       string
		)
		s := &l.Seq
		if err := row.Scan(
			&l.Scope.SubjectID, &l.Scope.Subject,
			&s.ID, &s.Locus, &vTies, &jTies, &s.CDR3NT, &s.CDR3AA, &s.Text, &s.Germline,
			&s.Copies, &copies, &s.VIdentity, &s.Padding, &s.Partial, &s.Stop, &s.CollapseTo,
		); err != nil {
			return l, err
		}
		l.Scope.Locus = s.Locus
		s.Subject = l.Scope.Subject
		s.VTies = germline.ParseTies(vTies)
		s.JTies = germline.ParseTies(jTies)
		if err := json.Unmarshal([]byte(copies), &s.SampleCopies); err != nil {
			return l, perr.Wrapf(err, perr.ErrorCodeJSON, "exchange: sample copies of %d", s.ID)
		}
		return l, nil
	}, `
		SELECT c.subject_id, sub.identifier,
		       c.id, c.locus, c.v_ties, c.j_ties, c.cdr3_nt, c.cdr3_aa, c.text, c.germline,
		       c.copies, c.sample_copies::text, c.v_identity, c.padding, c.partial, c.stop,
		       COALESCE(c.collapse_to, 0)
		  FROM collapsed c
		  JOIN subjects sub ON sub.id = c.subject_id
		 WHERE c.scope = 'subject' AND c.id = ANY($1::bigint[])
		 ORDER BY c.id
	`, ids)
}
