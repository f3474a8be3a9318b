// Package service runs the identify stage: germline alignment of every read of a sample
package service

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"repertoire/internal/core/align"
	"repertoire/internal/core/germline"
	"repertoire/internal/modkit/repokit"
	perr "repertoire/internal/platform/errors"
	"repertoire/internal/platform/logger"
	"repertoire/internal/platform/metrics"
	"repertoire/internal/platform/report"
	"repertoire/internal/platform/runlog"
	"repertoire/internal/services/identify/domain"
)

// Config controls concurrency and re-runs
type Config struct {
	// Workers is how many samples are identified at once
	Workers int

	// Force re-identifies samples that already have sequences
	Force bool
}

// Service wires TxRunner + Binder + Aligner into the identify operations
type Service struct {
	DB      repokit.TxRunner
	Binder  repokit.Binder[domain.StorageRepo]
	Aligner *align.Aligner
	Cfg     Config
}

// New constructs the identify service
func New(db repokit.TxRunner, binder repokit.Binder[domain.StorageRepo], aligner *align.Aligner, cfg Config) *Service {
	if db == nil {
		panic("identify.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("identify.Service requires a non nil Repo binder")
	}
	if aligner == nil {
		panic("identify.Service requires a non nil Aligner")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Service{DB: db, Binder: binder, Aligner: aligner, Cfg: cfg}
}

// IdentifySample aligns one sample and stores it in one transaction
func (s *Service) IdentifySample(ctx context.Context, smp domain.Sample) (domain.Counts, error) {
	return s.identify(ctx, smp, nil)
}

// IdentifyAll identifies samples on a bounded worker pool
func (s *Service) IdentifyAll(ctx context.Context, samples []domain.Sample) (*report.Summary, error) {
	sum := report.New("identify", 0)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.Cfg.Workers)
	for _, smp := range samples {
		g.Go(func() error {
			c, err := s.identify(gctx, smp, sum)
			switch {
			case err == nil:
			case perr.IsFatal(err), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				return err
			default:
				sum.Fail("sample", smp.Name, err)
				return nil
			}
			if c.Skipped {
				sum.Add("skipped", 1)
				return nil
			}
			sum.Add("samples", 1)
			sum.Add("reads", c.Reads)
			sum.Add("unique", c.Unique)
			sum.Add("failed_reads", c.Failed)
			return nil
		})
	}
	err := g.Wait()

	if logErr := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		_, e := runlog.Record(ctx, q, runlog.ActionIdentify, map[string]any{
			"counts":   sum.Counts(),
			"failures": sum.Failures(),
		})
		return e
	}); logErr != nil {
		logger.C(ctx).Warn().Err(logErr).Msg("identify: run log not written")
	}
	return sum, err
}

func (s *Service) identify(ctx context.Context, smp domain.Sample, sum *report.Summary) (domain.Counts, error) {
	l := logger.C(ctx).With().Str("mod", "identify").Str("sample", smp.Name).Logger()
	start := time.Now()
	defer func() { metrics.GroupDuration.WithLabelValues("identify").Observe(time.Since(start).Seconds()) }()

	var (
		sampleID   int64
		identified bool
	)
	if err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		sampleID, identified, err = s.Binder.Bind(q).SampleState(ctx, smp.Name)
		return err
	}); err != nil {
		return domain.Counts{}, err
	}
	if identified && !s.Cfg.Force {
		l.Info().Msg("identify: sample already identified; skip")
		return domain.Counts{Skipped: true}, nil
	}

	reads, total, err := readSample(ctx, smp.Path)
	if err != nil {
		return domain.Counts{}, err
	}
	seqs, counts := s.alignAll(ctx, smp, reads, sum)
	if err := ctx.Err(); err != nil {
		return counts, err
	}
	counts.Reads = total

	err = s.DB.Tx(ctx, func(q repokit.Queryer) error {
		repo := s.Binder.Bind(q)
		subjectID, err := repo.UpsertSubject(ctx, smp.Subject)
		if err != nil {
			return err
		}
		if sampleID, err = repo.UpsertSample(ctx, subjectID, smp); err != nil {
			return err
		}
		if identified {
			if err := repo.ClearSample(ctx, sampleID); err != nil {
				return err
			}
		}
		if _, err := repo.InsertSequences(ctx, sampleID, seqs); err != nil {
			return err
		}
		return repo.FinishSample(ctx, sampleID, counts)
	})
	if err != nil {
		l.Error().Err(err).Msg("identify: sample write failed")
		return counts, err
	}

	l.Info().
		Int("reads", counts.Reads).
		Int("unique", counts.Unique).
		Int("failed", counts.Failed).
		Dur("took", time.Since(start)).
		Msg("identify: sample done")
	return counts, nil
}

// alignAll runs the aligner over every distinct read. Failed reads are kept
// so the sample records why they were rejected
func (s *Service) alignAll(ctx context.Context, smp domain.Sample, reads []uniqueRead, sum *report.Summary) ([]domain.Sequence, domain.Counts) {
	counts := domain.Counts{Unique: len(reads), ByStatus: map[string]int{}}
	out := make([]domain.Sequence, 0, len(reads))
	for i, rd := range reads {
		if i%1024 == 0 && ctx.Err() != nil {
			break
		}
		res := s.Aligner.Identify(rd.Read)
		n := len(rd.IDs)
		counts.ByStatus[string(res.Status)] += n
		metrics.Reads.WithLabelValues(string(res.Status)).Add(float64(n))

		seq := domain.Sequence{ReadIDs: rd.IDs, Result: res}
		if res.Failed() {
			counts.Failed += n
			if sum != nil {
				sum.Fail(smp.Name, rd.ID, res.Err)
			}
		} else if len(res.VTies) > 0 {
			seq.Locus = germline.LocusOf(res.VTies[0])
		}
		out = append(out, seq)
	}
	return out, counts
}
