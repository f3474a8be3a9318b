// Package service runs clonal clustering. Each (subject, locus) scope is
// clustered under a lease; buckets within a scope commit one at a time so a
// failed bucket never rolls back its neighbours
package service

import (
	"context"
	"errors"
	"maps"
	"slices"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"repertoire/internal/core/cluster"
	"repertoire/internal/core/lineage"
	"repertoire/internal/modkit/repokit"
	"repertoire/internal/platform/config"
	perr "repertoire/internal/platform/errors"
	"repertoire/internal/platform/logger"
	"repertoire/internal/platform/metrics"
	"repertoire/internal/platform/report"
	"repertoire/internal/platform/runlog"
	"repertoire/internal/platform/store"
	"repertoire/internal/services/clones/domain"
	"repertoire/internal/services/clones/guardrails"
)

// Config controls concurrency, tree building and the optional collaborators
type Config struct {
	Workers int

	// Builder builds lineage trees; lineage mode requires it
	Builder lineage.Builder

	// Lease guards a scope against concurrent runs; nil runs unguarded
	Lease guardrails.Lease

	Timeouts guardrails.Timeouts

	// Sink receives clone statistics after each bucket commits; optional
	Sink domain.StatsSink
}

// Service wires TxRunner + Binder into clustering
type Service struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[domain.StorageRepo]
	Cfg    Config
}

var _ domain.RunnerPort = (*Service)(nil)

// bucketAttempts bounds commits of one bucket when postgres reports contention
const bucketAttempts = 3

// errSkip marks a scope that already has clones and was not regenerated
var errSkip = errors.New("clones: scope already clustered")

// New constructs the clustering service
func New(db repokit.TxRunner, binder repokit.Binder[domain.StorageRepo], cfg Config) *Service {
	if db == nil {
		panic("clones.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("clones.Service requires a non nil Repo binder")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Service{DB: db, Binder: binder, Cfg: cfg}
}

// Validate checks the run input before any scope is touched
func (s *Service) Validate(in domain.RunInput) error {
	if err := in.Filters.Validate(); err != nil {
		return err
	}
	switch in.Mode {
	case cluster.ModeSimilarity:
		return config.Validate(in.Similarity)
	case cluster.ModeLineage:
		if s.Cfg.Builder == nil {
			return perr.Configf("clones: lineage mode needs a tree builder")
		}
		return config.Validate(in.Lineage)
	default:
		return perr.Configf("clones: unknown mode %q", in.Mode)
	}
}

// Run clusters every scope selected by in.Filters
func (s *Service) Run(ctx context.Context, in domain.RunInput) (*report.Summary, error) {
	sum := report.New("cluster", 0)
	if err := s.Validate(in); err != nil {
		return sum, err
	}
	if _, ok := store.RunID(ctx); !ok {
		ctx, _ = runlog.NewRunID(ctx)
	}

	var scopes []domain.Scope
	if err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		scopes, err = s.Binder.Bind(q).Scopes(ctx, in.Filters.Subjects, in.Filters.Gene)
		return err
	}); err != nil {
		return sum, err
	}
	found := make(map[string]bool, len(scopes))
	for _, sc := range scopes {
		found[sc.Subject] = true
	}
	for _, subj := range in.Filters.Subjects {
		if !found[subj] {
			sum.Fail("subject", subj, perr.Consistencyf("clones: subject %s has no collapsed sequences", subj))
		}
	}

	lease := s.Cfg.Lease
	if lease == nil {
		lease = func(ctx context.Context, _ domain.Scope, do func(context.Context) error) error { return do(ctx) }
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.Cfg.Workers)
	for _, sc := range scopes {
		g.Go(func() error {
			err := lease(gctx, sc, func(lctx context.Context) error {
				return s.clusterScope(lctx, in, sc, sum)
			})
			switch {
			case err == nil:
				sum.Add("scopes", 1)
			case errors.Is(err, errSkip):
				sum.Add("skipped", 1)
			case errors.Is(err, guardrails.ErrLeaseHeld):
				sum.Add("leased_elsewhere", 1)
			case fatal(err):
				return err
			default:
				sum.Fail("scope", sc.String(), err)
			}
			return nil
		})
	}
	err := g.Wait()

	s.record(ctx, runlog.ActionCluster, map[string]any{
		"mode":     in.Mode,
		"level":    in.Level(),
		"regen":    in.Regen,
		"counts":   sum.Counts(),
		"failures": sum.Failures(),
	})
	if n := sum.Count("deleted_clones"); n > 0 {
		s.record(ctx, runlog.ActionRegen, map[string]any{"deleted_clones": n})
	}
	return sum, err
}

func (s *Service) clusterScope(ctx context.Context, in domain.RunInput, sc domain.Scope, sum *report.Summary) error {
	ctx, cancel := guardrails.WithScope(ctx, s.Cfg.Timeouts)
	defer cancel()
	start := time.Now()
	defer func() { metrics.GroupDuration.WithLabelValues("cluster_scope").Observe(time.Since(start).Seconds()) }()

	var seqs []cluster.Seq
	if err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		repo := s.Binder.Bind(q)
		pending, err := repo.PendingSamples(ctx, sc.SubjectID)
		if err != nil {
			return err
		}
		if pending > 0 {
			return perr.Consistencyf("clones: subject %s has %d samples not yet collapsed", sc.Subject, pending)
		}
		clustered, err := repo.HasClones(ctx, sc)
		if err != nil {
			return err
		}
		if clustered {
			if !in.Regen {
				return errSkip
			}
			n, err := repo.DeleteScope(ctx, sc)
			if err != nil {
				return err
			}
			sum.Add("deleted_clones", int(n))
		}
		seqs, err = repo.Sequences(ctx, sc)
		return err
	}); err != nil {
		return err
	}

	buckets, err := cluster.Buckets(seqs, in.Filters, in.Level())
	if err != nil {
		return err
	}
	byID := make(map[int64]cluster.Seq, len(seqs))
	for _, sq := range seqs {
		byID[sq.ID] = sq
	}

	runID, _ := store.RunID(ctx)
	for _, b := range buckets {
		if err := ctx.Err(); err != nil {
			return err
		}
		rows, err := s.clusterBucket(ctx, in, sc, b, byID, sum)
		if err != nil {
			if fatal(err) {
				return err
			}
			sum.Fail("bucket", b.Key.String(), err)
			continue
		}
		sum.Add("buckets", 1)
		s.sink(ctx, runID, sc, rows, sum)
	}
	logger.C(ctx).Debug().Str("mod", "clones").Str("scope", sc.String()).
		Int("seqs", len(seqs)).Int("buckets", len(buckets)).Msg("clones: scope done")
	return nil
}

// clusterBucket computes and commits one bucket, returning its stats
func (s *Service) clusterBucket(ctx context.Context, in domain.RunInput, sc domain.Scope, b cluster.Bucket,
	byID map[int64]cluster.Seq, sum *report.Summary) ([]domain.StatRow, error) {
	start := time.Now()
	defer func() { metrics.GroupDuration.WithLabelValues("cluster_bucket").Observe(time.Since(start).Seconds()) }()

	clones, err := s.compute(ctx, in, b)
	if err != nil {
		return nil, err
	}

	dbctx, cancel := guardrails.ForDB(ctx, s.Cfg.Timeouts)
	defer cancel()
	var w writer
	for attempt := 1; ; attempt++ {
		err = s.DB.Tx(dbctx, func(q repokit.Queryer) error {
			w = writer{repo: s.Binder.Bind(q), sc: sc, in: in, byID: byID}
			return w.insert(dbctx, clones, 0, 0)
		})
		if err == nil || attempt == bucketAttempts || !perr.IsRetryable(err) {
			break
		}
		logger.C(ctx).Warn().Err(err).Int("attempt", attempt).Str("subject", sc.Subject).
			Msg("clones: bucket write contended, retrying")
	}
	if err != nil {
		return nil, err
	}
	sum.Add("clones", w.clones)
	sum.Add("subclones", w.subclones)
	return w.rows, nil
}

func (s *Service) compute(ctx context.Context, in domain.RunInput, b cluster.Bucket) ([]cluster.Clone, error) {
	if in.Mode == cluster.ModeSimilarity {
		return cluster.Similarity(b, in.Similarity), nil
	}
	tctx, cancel := guardrails.ForTree(ctx, s.Cfg.Timeouts)
	defer cancel()
	clones, err := cluster.Lineage(tctx, b, s.Cfg.Builder, in.Lineage)
	if err != nil {
		metrics.TreeBuilds.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.TreeBuilds.WithLabelValues("ok").Inc()
	return clones, nil
}

// writer inserts a clone hierarchy depth first so subclones can point at
// their parent
type writer struct {
	repo domain.StorageRepo
	sc   domain.Scope
	in   domain.RunInput
	byID map[int64]cluster.Seq

	rows      []domain.StatRow
	clones    int
	subclones int
}

func (w *writer) insert(ctx context.Context, clones []cluster.Clone, parent int64, depth int) error {
	for _, c := range clones {
		id, err := w.repo.InsertClone(ctx, w.sc, domain.NewClone{
			Clone:    c,
			Mode:     w.in.Mode,
			Level:    w.in.Level(),
			ParentID: parent,
			Depth:    depth,
		})
		if err != nil {
			return err
		}
		stats, err := CloneStats(c, w.byID)
		if err != nil {
			return err
		}
		if err := w.repo.InsertStats(ctx, id, stats); err != nil {
			return err
		}
		for _, st := range stats {
			w.rows = append(w.rows, domain.StatRow{CloneID: id, Subject: w.sc.Subject, Locus: w.sc.Locus, Stat: st})
		}
		if depth == 0 {
			w.clones++
		} else {
			w.subclones++
		}
		if err := w.insert(ctx, c.Subclones, id, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// CloneStats counts a clone's members per sample. Unique is how many members
// the sample holds, Total their copies there. The SampleID 0 row carries the
// totals over every sample
func CloneStats(c cluster.Clone, byID map[int64]cluster.Seq) ([]domain.Stat, error) {
	total := domain.Stat{}
	per := map[int64]*domain.Stat{}
	for _, id := range c.Members {
		sq, ok := byID[id]
		if !ok {
			return nil, perr.Consistencyf("clones: member %d not loaded", id)
		}
		total.Unique++
		total.Total += sq.Copies
		for key, n := range sq.SampleCopies {
			if n <= 0 {
				continue
			}
			sampleID, err := strconv.ParseInt(key, 10, 64)
			if err != nil || sampleID <= 0 {
				return nil, perr.Consistencyf("clones: member %d has bad sample key %q", id, key)
			}
			st, ok := per[sampleID]
			if !ok {
				st = &domain.Stat{SampleID: sampleID}
				per[sampleID] = st
			}
			st.Unique++
			st.Total += n
		}
	}
	out := make([]domain.Stat, 0, len(per)+1)
	out = append(out, total)
	for _, id := range slices.Sorted(maps.Keys(per)) {
		out = append(out, *per[id])
	}
	return out, nil
}

// sink forwards rows to the analytics store. Failures only cost analytics
func (s *Service) sink(ctx context.Context, runID string, sc domain.Scope, rows []domain.StatRow, sum *report.Summary) {
	if s.Cfg.Sink == nil || len(rows) == 0 {
		return
	}
	for i := range rows {
		rows[i].RunID = runID
	}
	if err := s.Cfg.Sink.WriteStats(ctx, rows); err != nil {
		sum.Add("sink_errors", 1)
		logger.C(ctx).Warn().Err(err).Str("scope", sc.String()).Msg("clones: stats sink write failed")
	}
}

func (s *Service) record(ctx context.Context, action string, info map[string]any) {
	if err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		_, e := runlog.Record(ctx, q, action, info)
		return e
	}); err != nil {
		logger.C(ctx).Warn().Err(err).Msg("clones: run log not written")
	}
}

func fatal(err error) bool {
	return perr.IsFatal(err) || errors.Is(err, context.Canceled)
}
