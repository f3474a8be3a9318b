// Package service exports clone memberships to a delimited file and imports
// memberships produced elsewhere as clones
package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"

	"repertoire/internal/core/cluster"
	"repertoire/internal/core/dna"
	"repertoire/internal/modkit/repokit"
	perr "repertoire/internal/platform/errors"
	"repertoire/internal/platform/logger"
	"repertoire/internal/platform/report"
	"repertoire/internal/platform/runlog"
	clonesdom "repertoire/internal/services/clones/domain"
	"repertoire/internal/services/clones/guardrails"
	clonesservice "repertoire/internal/services/clones/service"
	"repertoire/internal/services/exchange/codec"
	"repertoire/internal/services/exchange/domain"
)

// Config holds the default delimiter and the scope claim
type Config struct {
	Delimiter rune

	// Lease claims each scope before it is replaced so a clustering pass
	// cannot run alongside; nil skips the claim
	Lease guardrails.Lease
}

// Service wires TxRunner + Binders into exchange. Clone writes go through
// the clones repo so imported clones look like clustered ones
type Service struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[domain.StorageRepo]
	Clones repokit.Binder[clonesdom.StorageRepo]
	Cfg    Config
}

var _ domain.ExchangePort = (*Service)(nil)

// New constructs the exchange service
func New(db repokit.TxRunner, binder repokit.Binder[domain.StorageRepo], clones repokit.Binder[clonesdom.StorageRepo], cfg Config) *Service {
	if db == nil {
		panic("exchange.Service requires a non nil TxRunner")
	}
	if binder == nil || clones == nil {
		panic("exchange.Service requires non nil Repo binders")
	}
	return &Service{DB: db, Binder: binder, Clones: clones, Cfg: cfg}
}

// Export writes the header and one line per membership
func (s *Service) Export(ctx context.Context, w io.Writer, sel domain.Selection) (int, error) {
	var assocs []domain.Assoc
	if err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		assocs, err = s.Binder.Bind(q).Associations(ctx, sel)
		return err
	}); err != nil {
		return 0, err
	}
	cw, err := codec.NewWriter(w, s.Cfg.Delimiter)
	if err != nil {
		return 0, err
	}
	for _, a := range assocs {
		if err := cw.Write(a); err != nil {
			return 0, err
		}
	}
	return len(assocs), cw.Flush()
}

// group is one clone label of an import file
type group struct {
	label int64
	ids   []int64
	scope clonesdom.Scope
	seqs  []cluster.Seq
}

// Import reads associations and stores each label as a clone. Every scope
// the file touches is replaced as a whole; a scope with clones needs Regen
func (s *Service) Import(ctx context.Context, r io.Reader, in domain.ImportInput) (*report.Summary, error) {
	sum := report.New("import", 0)
	delim := in.Delimiter
	if delim == 0 {
		delim = s.Cfg.Delimiter
	}
	assocs, err := codec.Read(r, delim)
	if err != nil {
		return sum, err
	}
	groups, err := groupAssocs(assocs)
	if err != nil {
		return sum, err
	}

	var located []domain.Located
	if err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		ids := make([]int64, 0, len(assocs))
		for _, a := range assocs {
			ids = append(ids, a.SeqID)
		}
		var err error
		located, err = s.Binder.Bind(q).Located(ctx, ids)
		return err
	}); err != nil {
		return sum, err
	}
	byID := make(map[int64]domain.Located, len(located))
	seqs := make(map[int64]cluster.Seq, len(located))
	for _, l := range located {
		byID[l.Seq.ID] = l
		seqs[l.Seq.ID] = l.Seq
	}

	scopes := map[string][]*group{}
	for _, g := range groups {
		if err := g.resolve(byID); err != nil {
			sum.Fail("clone", fmt.Sprint(g.label), err)
			continue
		}
		scopes[g.scope.String()] = append(scopes[g.scope.String()], g)
	}

	for _, key := range slices.Sorted(maps.Keys(scopes)) {
		gs := scopes[key]
		sc := gs[0].scope
		err := s.claim(ctx, sc, func(ctx context.Context) error {
			return s.DB.Tx(ctx, func(q repokit.Queryer) error {
				return s.replaceScope(ctx, q, sc, gs, seqs, in.Regen, sum)
			})
		})
		if errors.Is(err, guardrails.ErrLeaseHeld) {
			sum.Add("leased_elsewhere", 1)
			logger.C(ctx).Warn().Str("scope", key).Msg("exchange: scope is being clustered, skipped")
			continue
		}
		if err != nil {
			if perr.IsFatal(err) {
				return sum, err
			}
			sum.Fail("scope", key, err)
			continue
		}
		sum.Add("scopes", 1)
		sum.Add("clones", len(gs))
		for _, g := range gs {
			sum.Add("sequences", len(g.ids))
		}
	}

	if rerr := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		_, e := runlog.Record(ctx, q, runlog.ActionImport, map[string]any{
			"regen":    in.Regen,
			"counts":   sum.Counts(),
			"failures": sum.Failures(),
		})
		return e
	}); rerr != nil {
		logger.C(ctx).Warn().Err(rerr).Msg("exchange: run log not written")
	}
	return sum, nil
}

func (s *Service) claim(ctx context.Context, sc clonesdom.Scope, do func(context.Context) error) error {
	if s.Cfg.Lease == nil {
		return do(ctx)
	}
	return s.Cfg.Lease(ctx, sc, do)
}

// replaceScope stores the scope's labels as clones, clearing existing ones
// first when regen is set
func (s *Service) replaceScope(ctx context.Context, q repokit.Queryer, sc clonesdom.Scope, gs []*group, seqs map[int64]cluster.Seq, regen bool, sum *report.Summary) error {
	repo := s.Clones.Bind(q)
	has, err := repo.HasClones(ctx, sc)
	if err != nil {
		return err
	}
	if has {
		if !regen {
			return perr.Consistencyf("exchange: scope %s already has clones; regen to replace", sc)
		}
		n, err := repo.DeleteScope(ctx, sc)
		if err != nil {
			return err
		}
		sum.Add("deleted_clones", int(n))
	}
	for _, g := range gs {
		c := g.clone()
		id, err := repo.InsertClone(ctx, sc, clonesdom.NewClone{Clone: c, Mode: cluster.ModeImport, Level: cluster.LevelNT})
		if err != nil {
			return err
		}
		stats, err := clonesservice.CloneStats(c, seqs)
		if err != nil {
			return err
		}
		if err := repo.InsertStats(ctx, id, stats); err != nil {
			return err
		}
	}
	return nil
}

// groupAssocs groups rows by label in first appearance order. A sequence
// may belong to one label only
func groupAssocs(assocs []domain.Assoc) ([]*group, error) {
	owner := make(map[int64]int64, len(assocs))
	byLabel := map[int64]*group{}
	var out []*group
	for _, a := range assocs {
		if prev, ok := owner[a.SeqID]; ok {
			if prev != a.CloneID {
				return nil, perr.Consistencyf("exchange: sequence %d listed under clones %d and %d", a.SeqID, prev, a.CloneID)
			}
			continue
		}
		owner[a.SeqID] = a.CloneID
		g, ok := byLabel[a.CloneID]
		if !ok {
			g = &group{label: a.CloneID}
			byLabel[a.CloneID] = g
			out = append(out, g)
		}
		g.ids = append(g.ids, a.SeqID)
	}
	return out, nil
}

// resolve loads the group's sequences and checks they could form one clone:
// same scope, V and J ties and CDR3 length
func (g *group) resolve(byID map[int64]domain.Located) error {
	for i, id := range g.ids {
		l, ok := byID[id]
		if !ok {
			return perr.Consistencyf("exchange: clone %d: unknown sequence %d", g.label, id)
		}
		if i == 0 {
			g.scope = l.Scope
		} else {
			first := g.seqs[0]
			if l.Scope != g.scope || l.Seq.VTies.Key() != first.VTies.Key() ||
				l.Seq.JTies.Key() != first.JTies.Key() || len(l.Seq.CDR3NT) != len(first.CDR3NT) {
				return perr.Consistencyf("exchange: clone %d: sequence %d does not share its bucket", g.label, id)
			}
		}
		g.seqs = append(g.seqs, l.Seq)
	}
	return nil
}

// clone builds the stored clone. The germline comes from the member with the
// most copies, then the smallest id
func (g *group) clone() cluster.Clone {
	first := g.seqs[0]
	c := cluster.Clone{Key: cluster.Key{
		Subject: first.Subject,
		Locus:   first.Locus,
		V:       first.VTies.Key(),
		J:       first.JTies.Key(),
		CDR3Len: len(first.CDR3NT),
		Level:   cluster.LevelNT,
	}}
	rep := first
	cdr3s := make([]string, 0, len(g.seqs))
	for _, sq := range g.seqs {
		cdr3s = append(cdr3s, sq.CDR3NT)
		c.Members = append(c.Members, sq.ID)
		if cmp.Or(cmp.Compare(sq.Copies, rep.Copies), cmp.Compare(rep.ID, sq.ID)) > 0 {
			rep = sq
		}
	}
	slices.Sort(c.Members)
	c.Germline = rep.Germline
	c.CDR3NT = dna.Consensus(cdr3s)
	c.CDR3AA = dna.Translate(c.CDR3NT)
	return c
}
