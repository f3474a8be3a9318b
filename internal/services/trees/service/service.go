// Package service renders lineage trees for stored clones and caches them by
// membership hash and filters
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"repertoire/internal/core/lineage"
	"repertoire/internal/modkit/repokit"
	"repertoire/internal/platform/config"
	perr "repertoire/internal/platform/errors"
	"repertoire/internal/platform/logger"
	"repertoire/internal/platform/metrics"
	"repertoire/internal/platform/report"
	"repertoire/internal/platform/runlog"
	"repertoire/internal/services/trees/domain"
)

// Config controls the builder and batch concurrency
type Config struct {
	Workers int
	Builder lineage.Builder

	// TreeTimeout bounds one build; zero leaves it to the caller's context
	TreeTimeout time.Duration
}

// Service wires TxRunner + Binder into rendering
type Service struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[domain.StorageRepo]
	Cfg    Config

	flight singleflight.Group
}

var _ domain.RendererPort = (*Service)(nil)

// New constructs the tree service
func New(db repokit.TxRunner, binder repokit.Binder[domain.StorageRepo], cfg Config) *Service {
	if db == nil {
		panic("trees.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("trees.Service requires a non nil Repo binder")
	}
	if cfg.Builder == nil {
		cfg.Builder = lineage.NJ{}
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Service{DB: db, Binder: binder, Cfg: cfg}
}

// Render returns the clone's tree. Concurrent calls for the same clone and
// filters share one build, which keeps running when the caller that started
// it goes away; each caller still returns when its own ctx ends
func (s *Service) Render(ctx context.Context, cloneID int64, f lineage.Filters, force bool) (*domain.Result, error) {
	if err := config.Validate(f); err != nil {
		return nil, err
	}
	key := fmt.Sprintf("%d/%t/%+v", cloneID, force, f)
	ch := s.flight.DoChan(key, func() (any, error) {
		bctx, cancel := s.shared(ctx)
		defer cancel()
		return s.render(bctx, cloneID, f, force)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*domain.Result), nil
	}
}

// shared detaches a build from the caller's cancellation, keeping its values,
// and bounds it by TreeTimeout
func (s *Service) shared(ctx context.Context) (context.Context, context.CancelFunc) {
	bctx := context.WithoutCancel(ctx)
	if s.Cfg.TreeTimeout > 0 {
		return context.WithTimeout(bctx, s.Cfg.TreeTimeout)
	}
	return context.WithCancel(bctx)
}

func (s *Service) render(ctx context.Context, cloneID int64, f lineage.Filters, force bool) (*domain.Result, error) {
	var (
		in     lineage.RenderInput
		stored *lineage.Rendered
	)
	if err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		repo := s.Binder.Bind(q)
		var err error
		if in, err = repo.CloneInput(ctx, cloneID); err != nil {
			return err
		}
		stored, err = repo.StoredTree(ctx, cloneID)
		if perr.IsCode(err, perr.ErrorCodeNotFound) {
			stored, err = nil, nil
		}
		return err
	}); err != nil {
		return nil, err
	}

	if !force && stored != nil && stored.Filters == f && stored.MembershipHash == lineage.MembershipHash(in.Members) {
		metrics.TreeCache.WithLabelValues("hit").Inc()
		return &domain.Result{Tree: stored, Cached: true}, nil
	}
	metrics.TreeCache.WithLabelValues("miss").Inc()

	tctx, cancel := ctx, context.CancelFunc(func() {})
	if s.Cfg.TreeTimeout > 0 {
		tctx, cancel = context.WithTimeout(ctx, s.Cfg.TreeTimeout)
	}
	defer cancel()
	start := time.Now()
	tree, err := lineage.Render(tctx, s.Cfg.Builder, in, f)
	metrics.GroupDuration.WithLabelValues("render_tree").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.TreeBuilds.WithLabelValues("error").Inc()
		if perr.CodeOf(err) == perr.ErrorCodeUnknown {
			err = perr.Wrapf(err, perr.ErrorCodeExternalTool, "trees: clone %d", cloneID)
		}
		return nil, err
	}
	metrics.TreeBuilds.WithLabelValues("ok").Inc()

	if err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		return s.Binder.Bind(q).SaveTree(ctx, tree)
	}); err != nil {
		return nil, err
	}
	return &domain.Result{Tree: tree}, nil
}

// RenderAll renders one clone per worker. A clone that fails is reported and
// the batch continues
func (s *Service) RenderAll(ctx context.Context, in domain.RenderAllInput) (*report.Summary, error) {
	sum := report.New("trees", 0)
	if err := config.Validate(in.Filters); err != nil {
		return sum, err
	}

	ids := in.CloneIDs
	if len(ids) == 0 {
		if err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
			var err error
			ids, err = s.Binder.Bind(q).CloneIDs(ctx, in.Subjects, in.Locus)
			return err
		}); err != nil {
			return sum, err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.Cfg.Workers)
	for _, id := range ids {
		g.Go(func() error {
			res, err := s.Render(gctx, id, in.Filters, in.Force)
			switch {
			case err == nil && res.Cached:
				sum.Add("cached", 1)
			case err == nil:
				sum.Add("rendered", 1)
			case perr.IsFatal(err) || errors.Is(err, context.Canceled):
				return err
			default:
				sum.Fail("clone", fmt.Sprint(id), err)
			}
			return nil
		})
	}
	err := g.Wait()

	if rerr := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		_, e := runlog.Record(ctx, q, runlog.ActionTrees, map[string]any{
			"filters":  in.Filters,
			"force":    in.Force,
			"counts":   sum.Counts(),
			"failures": sum.Failures(),
		})
		return e
	}); rerr != nil {
		logger.C(ctx).Warn().Err(rerr).Msg("trees: run log not written")
	}
	return sum, err
}
