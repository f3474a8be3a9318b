// Package service runs the collapse stage: identical sequences merge first
// within a sample, then across a subject's samples
package service

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"repertoire/internal/core/collapse"
	"repertoire/internal/modkit/repokit"
	perr "repertoire/internal/platform/errors"
	"repertoire/internal/platform/logger"
	"repertoire/internal/platform/metrics"
	"repertoire/internal/platform/report"
	"repertoire/internal/platform/runlog"
	"repertoire/internal/services/collapse/domain"
)

// Config controls concurrency and re-runs
type Config struct {
	Workers int

	// Force re-collapses samples that were collapsed before
	Force bool

	// Regen lets a subject re-collapse by first deleting its clones
	Regen bool
}

// Service wires TxRunner + Binder into the collapse operations
type Service struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[domain.StorageRepo]
	Cfg    Config
}

// New constructs the collapse service
func New(db repokit.TxRunner, binder repokit.Binder[domain.StorageRepo], cfg Config) *Service {
	if db == nil {
		panic("collapse.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("collapse.Service requires a non nil Repo binder")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Service{DB: db, Binder: binder, Cfg: cfg}
}

// Run collapses the named samples and then every subject they belong to plus
// any subject named explicitly
func (s *Service) Run(ctx context.Context, samples, subjects []string) (*report.Summary, error) {
	sum, touched, err := s.CollapseSamples(ctx, samples)
	if err != nil {
		return sum, err
	}
	targets := append(slices.Clone(touched), subjects...)
	slices.Sort(targets)
	targets = slices.Compact(targets)
	if len(targets) == 0 {
		return sum, nil
	}
	subSum, err := s.CollapseSubjects(ctx, targets)
	sum.Merge(subSum)
	return sum, err
}

// CollapseSamples collapses one sample per worker, each in its own transaction
func (s *Service) CollapseSamples(ctx context.Context, names []string) (*report.Summary, []string, error) {
	sum := report.New("collapse", 0)

	var refs []domain.SampleRef
	if err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		refs, err = s.Binder.Bind(q).Samples(ctx, names, s.Cfg.Force)
		return err
	}); err != nil {
		return sum, nil, err
	}

	var (
		mu      sync.Mutex
		touched = map[string]bool{}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.Cfg.Workers)
	for _, ref := range refs {
		g.Go(func() error {
			n, err := s.collapseSample(gctx, ref)
			if err != nil {
				if fatal(err) {
					return err
				}
				sum.Fail("sample", ref.Name, err)
				return nil
			}
			sum.Add("samples", 1)
			sum.Add("sample_groups", n)
			mu.Lock()
			touched[ref.Subject] = true
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()
	s.record(ctx, runlog.ActionCollapseSamples, sum)
	return sum, sortedKeys(touched), err
}

func (s *Service) collapseSample(ctx context.Context, ref domain.SampleRef) (int, error) {
	start := time.Now()
	defer func() { metrics.GroupDuration.WithLabelValues("collapse_sample").Observe(time.Since(start).Seconds()) }()

	var n int
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		repo := s.Binder.Bind(q)
		// subject rows and clones refer to the sample rows about to be replaced
		if err := s.releaseClones(ctx, repo, ref.SubjectID, ref.Subject); err != nil {
			return err
		}
		members, err := repo.SampleMembers(ctx, ref.ID)
		if err != nil {
			return err
		}
		rows := SampleRows(ref.ID, members)
		n = len(rows)
		return repo.ReplaceSampleGroups(ctx, ref, rows)
	})
	if err == nil {
		logger.C(ctx).Debug().Str("mod", "collapse").Str("sample", ref.Name).Int("groups", n).Msg("collapse: sample done")
	}
	return n, err
}

// CollapseSubjects merges sample groups of one subject per worker
func (s *Service) CollapseSubjects(ctx context.Context, identifiers []string) (*report.Summary, error) {
	sum := report.New("collapse", 0)

	var subjects []domain.SubjectRef
	if err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		subjects, err = s.Binder.Bind(q).Subjects(ctx, identifiers)
		return err
	}); err != nil {
		return sum, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.Cfg.Workers)
	for _, subj := range subjects {
		g.Go(func() error {
			n, err := s.collapseSubject(gctx, subj)
			if err != nil {
				if fatal(err) {
					return err
				}
				sum.Fail("subject", subj.Identifier, err)
				return nil
			}
			sum.Add("subjects", 1)
			sum.Add("subject_groups", n)
			return nil
		})
	}
	err := g.Wait()
	s.record(ctx, runlog.ActionCollapseSubjects, sum)
	return sum, err
}

func (s *Service) collapseSubject(ctx context.Context, subj domain.SubjectRef) (int, error) {
	start := time.Now()
	defer func() { metrics.GroupDuration.WithLabelValues("collapse_subject").Observe(time.Since(start).Seconds()) }()

	var n int
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		repo := s.Binder.Bind(q)
		pending, err := repo.PendingSamples(ctx, subj.ID)
		if err != nil {
			return err
		}
		if pending > 0 {
			return perr.Consistencyf("collapse: subject %s has %d samples not yet collapsed", subj.Identifier, pending)
		}
		if err := s.releaseClones(ctx, repo, subj.ID, subj.Identifier); err != nil {
			return err
		}
		members, err := repo.SubjectMembers(ctx, subj.ID)
		if err != nil {
			return err
		}
		rows := SubjectRows(members)
		n = len(rows)
		return repo.ReplaceSubjectGroups(ctx, subj.ID, rows)
	})
	if err == nil {
		logger.C(ctx).Debug().Str("mod", "collapse").Str("subject", subj.Identifier).Int("groups", n).Msg("collapse: subject done")
	}
	return n, err
}

// releaseClones refuses to touch a clustered subject unless Regen is set, in
// which case its clones are deleted inside the caller's transaction
func (s *Service) releaseClones(ctx context.Context, repo domain.StorageRepo, subjectID int64, subject string) error {
	clustered, err := repo.HasClones(ctx, subjectID)
	if err != nil || !clustered {
		return err
	}
	if !s.Cfg.Regen {
		return perr.Consistencyf("collapse: subject %s already has clones; regen to re-collapse", subject)
	}
	return repo.ClearClones(ctx, subjectID)
}

// SampleRows groups a sample's identified sequences by text. Copies are keyed
// by the decimal sample id
func SampleRows(sampleID int64, members []domain.Member) []domain.Row {
	sample := strconv.FormatInt(sampleID, 10)
	items := make([]collapse.Item, 0, len(members))
	for _, m := range members {
		items = append(items, collapse.Item{Ref: m.ID, Sample: sample, Text: m.Text, Copies: m.Copies})
	}
	return withAttrs(collapse.Samples(items), members)
}

// SubjectRows merges sample scope rows by text and resolves partial absorption
func SubjectRows(members []domain.Member) []domain.Row {
	in := make([]collapse.SubjectInput, 0, len(members))
	for _, m := range members {
		in = append(in, collapse.SubjectInput{Ref: m.ID, Group: collapse.Group{
			Text:         m.Text,
			Copies:       m.Copies,
			SampleCopies: map[string]int{strconv.FormatInt(m.SampleID, 10): m.Copies},
		}})
	}
	return withAttrs(collapse.Subject(in), members)
}

// withAttrs takes each group's identification from its representative: the
// referenced member with the most copies, then the smallest id
func withAttrs(groups []collapse.Group, members []domain.Member) []domain.Row {
	byID := make(map[int64]domain.Member, len(members))
	for _, m := range members {
		byID[m.ID] = m
	}
	rows := make([]domain.Row, 0, len(groups))
	for _, g := range groups {
		var rep domain.Member
		found := false
		for _, ref := range g.Refs {
			m := byID[ref]
			if !found || m.Copies > rep.Copies || (m.Copies == rep.Copies && m.ID < rep.ID) {
				rep, found = m, true
			}
		}
		rows = append(rows, domain.Row{Group: g, Attrs: rep.Attrs})
	}
	return rows
}

func (s *Service) record(ctx context.Context, action string, sum *report.Summary) {
	if err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		_, e := runlog.Record(ctx, q, action, map[string]any{
			"counts":   sum.Counts(),
			"failures": sum.Failures(),
		})
		return e
	}); err != nil {
		logger.C(ctx).Warn().Err(err).Msg("collapse: run log not written")
	}
}

func fatal(err error) bool {
	return perr.IsFatal(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
