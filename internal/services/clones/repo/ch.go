package repo

import (
	"context"

	"repertoire/internal/platform/store"
	"repertoire/internal/services/clones/domain"
)

// CHStats appends clone statistics to the clickhouse clone_stats table
type CHStats struct{ ch store.Clickhouse }

var _ domain.StatsSink = (*CHStats)(nil)

// NewCHStats returns a sink over ch, or nil when clickhouse is not configured
func NewCHStats(ch store.Clickhouse) domain.StatsSink {
	if ch == nil {
		return nil
	}
	return &CHStats{ch: ch}
}

// WriteStats inserts rows in one batch
func (s *CHStats) WriteStats(ctx context.Context, rows []domain.StatRow) error {
	if len(rows) == 0 {
		return nil
	}
	batch := make([][]any, 0, len(rows))
	for _, r := range rows {
		batch = append(batch, []any{
			r.RunID, r.CloneID, r.Subject, r.Locus, r.SampleID, uint32(r.Unique), uint64(r.Total),
		})
	}
	return s.ch.Insert(ctx, "clone_stats (run_id, clone_id, subject, locus, sample_id, unique_cnt, total_cnt)", batch)
}
