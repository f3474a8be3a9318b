// Package repo provides postgres access for the identify stage
package repo

import (
	"context"
	"encoding/json"

	"repertoire/internal/modkit/repokit"
	perr "repertoire/internal/platform/errors"
	"repertoire/internal/services/identify/domain"
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

func (r *queries) UpsertSubject(ctx context.Context, identifier string) (int64, error) {
	var id int64
	err := r.q.QueryRow(ctx, `
		INSERT INTO subjects (identifier) VALUES ($1)
		ON CONFLICT (identifier) DO UPDATE SET identifier = EXCLUDED.identifier
		RETURNING id
	`, identifier).Scan(&id)
	return id, perr.FromPostgresf(err, "identify: upsert subject %s", identifier)
}

func (r *queries) SampleState(ctx context.Context, name string) (int64, bool, error) {
	rows, err := r.q.Query(ctx, `SELECT id, identified_at IS NOT NULL FROM samples WHERE name = $1`, name)
	if err != nil {
		return 0, false, err
	}
	defer rows.Close()
	var (
		id         int64
		identified bool
	)
	if rows.Next() {
		if err := rows.Scan(&id, &identified); err != nil {
			return 0, false, err
		}
	}
	return id, identified, rows.Err()
}

func (r *queries) UpsertSample(ctx context.Context, subjectID int64, s domain.Sample) (int64, error) {
	meta, err := json.Marshal(s.Metadata)
	if err != nil {
		return 0, perr.Wrap(err, perr.ErrorCodeJSON, "encode sample metadata")
	}
	var id int64
	err = r.q.QueryRow(ctx, `
		INSERT INTO samples (name, subject_id, metadata)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (name) DO UPDATE
		SET subject_id = EXCLUDED.subject_id, metadata = EXCLUDED.metadata
		RETURNING id
	`, s.Name, subjectID, string(meta)).Scan(&id)
	return id, perr.FromPostgresf(err, "identify: upsert sample %s", s.Name)
}

func (r *queries) ClearSample(ctx context.Context, sampleID int64) error {
	var collapsed bool
	if err := r.q.QueryRow(ctx,
		`SELECT collapsed_at IS NOT NULL FROM samples WHERE id = $1`, sampleID,
	).Scan(&collapsed); err != nil {
		return err
	}
	if collapsed {
		return perr.Consistencyf("identify: sample %d is already collapsed", sampleID)
	}
	_, err := r.q.Exec(ctx, `DELETE FROM sequences WHERE sample_id = $1`, sampleID)
	return perr.FromPostgresf(err, "identify: clear sample %d", sampleID)
}

func (r *queries) InsertSequences(ctx context.Context, sampleID int64, seqs []domain.Sequence) (int, error) {
	const insertSQL = `
		INSERT INTO sequences (
			sample_id, read_ids, status, reason, locus, v_ties, j_ties, cdr3_nt, cdr3_aa,
			similarity, padding, insertions, deletions, reversed, sequence, germline,
			copies, stop, in_frame, functional, mutation_fraction
		) VALUES (
			$1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''),
			$10, $11, $12, $13, $14, NULLIF($15, ''), NULLIF($16, ''),
			$17, $18, $19, $20, $21
		)`
	n := 0
	for _, s := range seqs {
		_, err := r.q.Exec(ctx, insertSQL,
			sampleID, s.ReadIDs, string(s.Status), s.Reason(), s.Locus, s.VTies.Key(), s.JTies.Key(),
			s.CDR3NT, s.CDR3AA, s.Similarity, s.Padding, s.Insertions, s.Deletions, s.Reversed,
			s.Result.Sequence, s.Germline, s.Copies, s.Stop, s.InFrame, s.Functional, s.MutationFraction,
		)
		if err != nil {
			return n, perr.FromPostgresf(err, "identify: insert sequence %d of sample %d", n, sampleID)
		}
		n++
	}
	return n, nil
}

func (r *queries) FinishSample(ctx context.Context, sampleID int64, c domain.Counts) error {
	_, err := r.q.Exec(ctx, `
		UPDATE samples
		   SET reads_total = $2, reads_failed = $3, identified_at = now()
		 WHERE id = $1
	`, sampleID, c.Reads, c.Failed)
	return perr.FromPostgresf(err, "identify: finish sample %d", sampleID)
}
