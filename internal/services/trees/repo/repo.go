// Package repo provides postgres access for lineage tree rendering
package repo

import (
	"context"
	"encoding/json"

	"repertoire/internal/core/lineage"
	"repertoire/internal/modkit/repokit"
	perr "repertoire/internal/platform/errors"
	"repertoire/internal/platform/store"
	"repertoire/internal/services/trees/domain"
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

func (r *queries) CloneInput(ctx context.Context, cloneID int64) (lineage.RenderInput, error) {
	in, err := store.One(ctx, r.q, func(row store.Row) (lineage.RenderInput, error) {
		in := lineage.RenderInput{CloneID: cloneID}
		err := row.Scan(&in.Germline, &in.CDR3Len)
		return in, err
	}, `SELECT germline, cdr3_len FROM clones WHERE id = $1`, cloneID)
	if err != nil {
		return in, perr.WithOp(err, "trees.CloneInput")
	}
	// samples are named so the rendered tree is readable without a lookup
	in.Members, err = store.Many(ctx, r.q, func(row store.Row) (lineage.Taxon, error) {
		var t lineage.Taxon
		err := row.Scan(&t.ID, &t.Seq, &t.Copies, &t.Stop, &t.Samples)
		return t, err
	}, `
		SELECT c.id, c.text, c.copies, c.stop,
		       ARRAY(
		         SELECT s.name
		           FROM jsonb_object_keys(c.sample_copies) AS k(key)
		           JOIN samples s ON s.id = k.key::bigint
		          ORDER BY s.name
		       )
		  FROM clone_members m
		  JOIN collapsed c ON c.id = m.collapsed_id
		 WHERE m.clone_id = $1
		 ORDER BY c.id
	`, cloneID)
	return in, err
}

func (r *queries) StoredTree(ctx context.Context, cloneID int64) (*lineage.Rendered, error) {
	body, err := store.One(ctx, r.q, func(row store.Row) (string, error) {
		var s string
		err := row.Scan(&s)
		return s, err
	}, `SELECT tree::text FROM clone_trees WHERE clone_id = $1`, cloneID)
	if err != nil {
		return nil, err
	}
	var t lineage.Rendered
	if err := json.Unmarshal([]byte(body), &t); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeJSON, "trees: stored tree of %d", cloneID)
	}
	return &t, nil
}

func (r *queries) SaveTree(ctx context.Context, t *lineage.Rendered) error {
	tree, err := json.Marshal(t)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, "trees: encode tree")
	}
	filters, err := json.Marshal(t.Filters)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, "trees: encode filters")
	}
	_, err = r.q.Exec(ctx, `
		INSERT INTO clone_trees (clone_id, membership_hash, filters, tree, newick, updated_at)
		VALUES ($1, $2, $3::jsonb, $4::jsonb, $5, now())
		ON CONFLICT (clone_id) DO UPDATE
		   SET membership_hash = EXCLUDED.membership_hash,
		       filters = EXCLUDED.filters,
		       tree = EXCLUDED.tree,
		       newick = EXCLUDED.newick,
		       updated_at = now()
	`, t.CloneID, t.MembershipHash, string(filters), string(tree), t.Newick)
	return perr.FromPostgresf(err, "trees: save tree of %d", t.CloneID)
}

func (r *queries) CloneIDs(ctx context.Context, subjects []string, locus string) ([]int64, error) {
	if subjects == nil {
		subjects = []string{}
	}
	return store.Many(ctx, r.q, func(row store.Row) (int64, error) {
		var id int64
		err := row.Scan(&id)
		return id, err
	}, `
		SELECT c.id
		  FROM clones c
		  JOIN subjects s ON s.id = c.subject_id
		 WHERE (cardinality($1::text[]) = 0 OR s.identifier = ANY($1::text[]))
		   AND ($2 = '' OR c.locus = $2)
		 ORDER BY c.id
	`, subjects, locus)
}
