package cluster

import (
	"context"
	"errors"
	"maps"
	"slices"

	"repertoire/internal/core/lineage"
	perr "repertoire/internal/platform/errors"
)

// LineageConfig configures lineage mode
type LineageConfig struct {
	MutCutoff        int  `conf:"mut_cutoff" validate:"gte=0"`
	MinMutOccurrence int  `conf:"min_mut_occurrence" validate:"gte=1"`
	MinMutSamples    int  `conf:"min_mut_samples" validate:"gte=0"`
	MinSeqInstances  int  `conf:"min_seq_instances" validate:"gte=1"`
	Subclones        bool `conf:"subclones"`
	// MaxDepth bounds subclone nesting below the top level clone
	MaxDepth int `conf:"max_depth" validate:"gte=1"`
}

// DefaultLineageConfig mirrors the CLI defaults
func DefaultLineageConfig() LineageConfig {
	return LineageConfig{MutCutoff: 4, MinMutOccurrence: 1, MinMutSamples: 1, MinSeqInstances: 1, MaxDepth: 4}
}

// Component is one piece of a cut tree
type Component struct {
	// Root is the sequence of the node the component hangs from
	Root string
	Taxa []*lineage.Taxon
}

// Cut walks the rooted tree and cuts every edge that would take the count of
// kept mutations from the component's root past cutoff. The child of a cut
// edge starts a new component with a count of zero. Components without taxa
// are dropped
func Cut(root *lineage.Node, keep func(lineage.Mutation) bool, cutoff int) []Component {
	comps := []Component{{Root: root.Seq}}
	var walk func(n *lineage.Node, ci, total int)
	walk = func(n *lineage.Node, ci, total int) {
		if n.Taxon != nil && !n.Taxon.Germline {
			comps[ci].Taxa = append(comps[ci].Taxa, n.Taxon)
		}
		for _, ch := range n.Children {
			m := lineage.Count(ch.Mutations, keep)
			if total+m > cutoff {
				comps = append(comps, Component{Root: ch.Seq})
				walk(ch, len(comps)-1, 0)
				continue
			}
			walk(ch, ci, total+m)
		}
	}
	walk(root, 0, 0)

	out := comps[:0]
	for _, c := range comps {
		if len(c.Taxa) > 0 {
			out = append(out, c)
		}
	}
	return out
}

// Lineage builds a tree over the bucket's sequences with at least
// MinSeqInstances copies, rooted at the germline, and turns every component of
// the cut into a clone. With Subclones each component is rebuilt from its own
// root and recut at the same cutoff until it no longer splits or MaxDepth is
// reached
func Lineage(ctx context.Context, b Bucket, builder lineage.Builder, cfg LineageConfig) ([]Clone, error) {
	var entries []Seq
	for _, s := range b.Seqs {
		if s.Copies >= cfg.MinSeqInstances {
			entries = append(entries, s)
		}
	}
	if len(entries) == 0 {
		return nil, nil
	}
	germ := entries[0].Germline
	if len(entries) == 1 {
		return []Clone{newClone(b, entries, germ)}, nil
	}

	byID := make(map[int64]Seq, len(entries))
	taxa := make([]lineage.Taxon, 0, len(entries))
	for _, s := range entries {
		byID[s.ID] = s
		taxa = append(taxa, lineage.Taxon{
			ID:      s.ID,
			Seq:     s.Text,
			Copies:  s.Copies,
			Samples: slices.Sorted(maps.Keys(s.SampleCopies)),
			Stop:    s.Stop,
		})
	}
	l := &lineageRun{b: b, builder: builder, cfg: cfg, byID: byID}
	return l.split(ctx, germ, taxa, cfg.MutCutoff, 0)
}

type lineageRun struct {
	b       Bucket
	builder lineage.Builder
	cfg     LineageConfig
	byID    map[int64]Seq
}

func (l *lineageRun) split(ctx context.Context, rootSeq string, members []lineage.Taxon, cutoff, depth int) ([]Clone, error) {
	comps, err := l.cut(ctx, rootSeq, members, cutoff)
	if err != nil {
		return nil, err
	}
	out := make([]Clone, 0, len(comps))
	for _, c := range comps {
		seqs := make([]Seq, 0, len(c.Taxa))
		sub := make([]lineage.Taxon, 0, len(c.Taxa))
		for _, t := range c.Taxa {
			seqs = append(seqs, l.byID[t.ID])
			sub = append(sub, *t)
		}
		slices.SortFunc(seqs, processingOrder)
		clone := newClone(l.b, seqs, c.Root)
		// below the top level a recut that did not split ends the nesting
		if l.cfg.Subclones && depth < l.cfg.MaxDepth && len(sub) > 1 && (depth == 0 || len(comps) > 1) {
			nested, err := l.split(ctx, c.Root, sub, cutoff, depth+1)
			if err != nil {
				return nil, err
			}
			if len(nested) > 1 {
				clone.Subclones = nested
			}
		}
		out = append(out, clone)
	}
	return out, nil
}

// cut builds and roots one tree, then cuts it with mutations filtered over members
func (l *lineageRun) cut(ctx context.Context, rootSeq string, members []lineage.Taxon, cutoff int) ([]Component, error) {
	taxa := make([]lineage.Taxon, 0, len(members)+1)
	taxa = append(taxa, lineage.Taxon{Seq: rootSeq, Germline: true})
	taxa = append(taxa, members...)

	tree, err := l.builder.Build(ctx, taxa)
	if err != nil {
		if errors.Is(err, lineage.ErrDegenerate) || perr.CodeOf(err) == perr.ErrorCodeExternalTool {
			return nil, err
		}
		return nil, perr.Wrapf(err, perr.ErrorCodeExternalTool, "cluster: tree for %s", l.b.Key)
	}
	root, err := lineage.Root(tree, taxa, 0)
	if err != nil {
		return nil, err
	}
	lineage.Infer(root)

	ptrs := make([]*lineage.Taxon, 0, len(members))
	for i := 1; i < len(taxa); i++ {
		ptrs = append(ptrs, &taxa[i])
	}
	keep := lineage.NewStats(ptrs).Threshold(l.cfg.MinMutOccurrence, 0, l.cfg.MinMutSamples)
	return Cut(root, keep, cutoff), nil
}
