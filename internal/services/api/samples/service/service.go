// Package service contains samples workflows
package service

import (
	"context"
	"encoding/json"

	"repertoire/internal/modkit/repokit"
	perr "repertoire/internal/platform/errors"
	"repertoire/internal/services/api/samples/domain"
	"repertoire/internal/services/api/samples/repo"
)

const (
	defaultSampleLimit   = 50
	defaultSequenceLimit = 100
)

// Service defines the service contract for samples
type Service interface{ domain.ServicePort }

// Svc implements the Service interface
type Svc struct {
	Repo   repo.Repo
	binder repokit.Binder[repo.Repo]
	db     repokit.TxRunner
}

// New creates a new samples service
func New(db repokit.TxRunner, binder repokit.Binder[repo.Repo]) *Svc {
	if db == nil {
		panic("samples.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("samples.Service requires a non nil Repo binder")
	}
	return &Svc{Repo: binder.Bind(db), binder: binder, db: db}
}

// List pages through samples, optionally of one subject
func (s *Svc) List(ctx context.Context, in domain.ListInput) (domain.Page[domain.Sample], error) {
	limit := orDefault(in.Limit, defaultSampleLimit)
	rows, total, err := s.Repo.List(ctx, in.Subject, limit, in.Offset)
	if err != nil {
		return domain.Page[domain.Sample]{}, err
	}
	out := make([]domain.Sample, 0, len(rows))
	for _, r := range rows {
		smp := domain.Sample{
			ID:           r.ID,
			Name:         r.Name,
			Subject:      r.Subject,
			ReadsTotal:   r.ReadsTotal,
			ReadsFailed:  r.ReadsFailed,
			IdentifiedAt: r.IdentifiedAt,
			CollapsedAt:  r.CollapsedAt,
		}
		if len(r.Metadata) > 0 && json.Valid(r.Metadata) {
			smp.Metadata = json.RawMessage(r.Metadata)
		}
		out = append(out, smp)
	}
	return domain.Page[domain.Sample]{Items: out, Total: total, Limit: limit, Offset: in.Offset}, nil
}

// Sequences pages through the identified reads of one sample
func (s *Svc) Sequences(ctx context.Context, sampleID int64, in domain.SequencesInput) (domain.Page[domain.Sequence], error) {
	var page domain.Page[domain.Sequence]
	ok, err := s.Repo.Exists(ctx, sampleID)
	if err != nil {
		return page, err
	}
	if !ok {
		return page, perr.Newf(perr.ErrorCodeNotFound, "sample %d not found", sampleID)
	}

	limit := orDefault(in.Limit, defaultSequenceLimit)
	rows, total, err := s.Repo.Sequences(ctx, sampleID, in.Status, in.Functional, limit, in.Offset)
	if err != nil {
		return page, err
	}
	out := make([]domain.Sequence, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Sequence(r))
	}
	return domain.Page[domain.Sequence]{Items: out, Total: total, Limit: limit, Offset: in.Offset}, nil
}

func orDefault(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}
