// Package service contains the clone read workflows
package service

import (
	"context"
	"io"
	"strings"

	"repertoire/internal/core/lineage"
	"repertoire/internal/modkit/repokit"
	"repertoire/internal/services/api/clones/domain"
	"repertoire/internal/services/api/clones/repo"
	exdom "repertoire/internal/services/exchange/domain"
	treesdom "repertoire/internal/services/trees/domain"
)

const defaultLimit = 50

// Service defines the service contract for clones
type Service interface{ domain.ServicePort }

// Options carries the ports the clone endpoints delegate to
type Options struct {
	Renderer treesdom.RendererPort
	Exchange exdom.ExchangePort
	Filters  lineage.Filters
}

// Svc implements the Service interface
type Svc struct {
	Repo   repo.Repo
	binder repokit.Binder[repo.Repo]
	db     repokit.TxRunner
	opts   Options
}

// New creates a new clones service
func New(db repokit.TxRunner, binder repokit.Binder[repo.Repo], opts Options) *Svc {
	if db == nil {
		panic("clones.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("clones.Service requires a non nil Repo binder")
	}
	if opts.Renderer == nil || opts.Exchange == nil {
		panic("clones.Service requires Renderer and Exchange ports")
	}
	return &Svc{Repo: binder.Bind(db), binder: binder, db: db, opts: opts}
}

// List pages through clones, largest first
func (s *Svc) List(ctx context.Context, in domain.ListInput) (domain.Page, error) {
	limit := in.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	rows, total, err := s.Repo.List(ctx, repo.Filter{
		Subject:   in.Subject,
		Locus:     strings.ToUpper(in.Locus),
		Mode:      in.Mode,
		VGene:     in.VGene,
		MinCopies: in.MinCopies,
		Subclones: in.Subclones,
		Limit:     limit,
		Offset:    in.Offset,
	})
	if err != nil {
		return domain.Page{}, err
	}
	if rows == nil {
		rows = []domain.Clone{}
	}
	return domain.Page{Items: rows, Total: total, Limit: limit, Offset: in.Offset}, nil
}

// Get loads one clone with its stats, members and subclones from a single snapshot
func (s *Svc) Get(ctx context.Context, id int64) (domain.CloneDetail, error) {
	var d domain.CloneDetail
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		r := s.binder.Bind(q)
		var err error
		if d, err = r.Get(ctx, id); err != nil {
			return err
		}
		if d.Samples, err = r.Stats(ctx, id); err != nil {
			return err
		}
		if d.Members, err = r.Members(ctx, id); err != nil {
			return err
		}
		d.Subclones, err = r.Subclones(ctx, id)
		return err
	})
	return d, err
}

// Tree renders a clone's lineage tree with the defaults overlaid by the request
func (s *Svc) Tree(ctx context.Context, id int64, in domain.TreeInput) (*treesdom.Result, error) {
	return s.opts.Renderer.Render(ctx, id, in.Overlay(s.opts.Filters), in.Force)
}

// Export writes the sequence associations of one clone
func (s *Svc) Export(ctx context.Context, w io.Writer, id int64) (int, error) {
	if _, err := s.Repo.Get(ctx, id); err != nil {
		return 0, err
	}
	return s.opts.Exchange.Export(ctx, w, exdom.Selection{CloneIDs: []int64{id}})
}
