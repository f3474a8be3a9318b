package lineage

import "repertoire/internal/core/dna"

// Mutation is a base change on the edge into a node, in gapped coordinates
type Mutation struct {
	Pos  int
	From byte
	To   byte
}

const bases = "ACGT"

func baseIdx(b byte) int {
	switch b {
	case 'A':
		return 0
	case 'C':
		return 1
	case 'G':
		return 2
	case 'T':
		return 3
	}
	return -1
}

type baseCounts [][4]int32

// Infer assigns a sequence to every inferred node and records the mutations
// on every edge. An inferred base is the majority of the taxa below the node;
// when the parent's base is among the majority it is kept
func Infer(root *Node) {
	below := make(map[*Node]baseCounts)
	var count func(n *Node) baseCounts
	count = func(n *Node) baseCounts {
		var acc baseCounts
		add := func(c baseCounts) {
			if len(c) > len(acc) {
				grown := make(baseCounts, len(c))
				copy(grown, acc)
				acc = grown
			}
			for i := range c {
				for k := range 4 {
					acc[i][k] += c[i][k]
				}
			}
		}
		for _, ch := range n.Children {
			add(count(ch))
		}
		if n.Taxon != nil {
			own := make(baseCounts, len(n.Seq))
			for i := 0; i < len(n.Seq); i++ {
				if k := baseIdx(n.Seq[i]); k >= 0 {
					own[i][k]++
				}
			}
			add(own)
		}
		below[n] = acc
		return acc
	}
	count(root)

	var assign func(n *Node, parent string)
	assign = func(n *Node, parent string) {
		if n.Taxon == nil {
			c := below[n]
			seq := make([]byte, max(len(c), len(parent)))
			for i := range seq {
				var pb byte = dna.Unknown
				if i < len(parent) {
					pb = parent[i]
				}
				seq[i] = majority(c, i, pb)
			}
			n.Seq = string(seq)
		}
		n.Mutations = diff(parent, n.Seq)
		for _, ch := range n.Children {
			assign(ch, n.Seq)
		}
	}
	assign(root, "")
}

func majority(c baseCounts, i int, parent byte) byte {
	if i >= len(c) {
		return parent
	}
	top := int32(0)
	for k := range 4 {
		top = max(top, c[i][k])
	}
	if top == 0 {
		return parent
	}
	if k := baseIdx(parent); k >= 0 && c[i][k] == top {
		return parent
	}
	for k := range 4 {
		if c[i][k] == top {
			return bases[k]
		}
	}
	return parent
}

// diff lists the columns where both sequences carry a base and disagree
func diff(parent, child string) []Mutation {
	var out []Mutation
	n := min(len(parent), len(child))
	for i := 0; i < n; i++ {
		p, c := parent[i], child[i]
		if p != c && dna.Informative(p) && dna.Informative(c) {
			out = append(out, Mutation{Pos: i, From: p, To: c})
		}
	}
	return out
}

// MutationStat counts the taxa carrying one base at one column
type MutationStat struct {
	Seqs    int
	Copies  int
	Samples map[string]struct{}
}

type mutKey struct {
	pos  int
	base byte
}

// Stats indexes, for every column and base, which taxa carry it
type Stats map[mutKey]*MutationStat

// NewStats builds Stats over the non germline taxa
func NewStats(taxa []*Taxon) Stats {
	s := make(Stats)
	for _, t := range taxa {
		if t.Germline {
			continue
		}
		for i := 0; i < len(t.Seq); i++ {
			if baseIdx(t.Seq[i]) < 0 {
				continue
			}
			k := mutKey{i, t.Seq[i]}
			st, ok := s[k]
			if !ok {
				st = &MutationStat{Samples: map[string]struct{}{}}
				s[k] = st
			}
			st.Seqs++
			st.Copies += max(t.Copies, 1)
			for _, sm := range t.Samples {
				st.Samples[sm] = struct{}{}
			}
		}
	}
	return s
}

// Of returns the stat of a mutation's target base, or an empty stat
func (s Stats) Of(m Mutation) MutationStat {
	if st, ok := s[mutKey{m.Pos, m.To}]; ok {
		return *st
	}
	return MutationStat{}
}

// Threshold keeps mutations seen in at least minSeqs taxa, minCopies copies and minSamples samples
func (s Stats) Threshold(minSeqs, minCopies, minSamples int) func(Mutation) bool {
	return func(m Mutation) bool {
		st := s.Of(m)
		return st.Seqs >= minSeqs && st.Copies >= minCopies && len(st.Samples) >= minSamples
	}
}

// Count is the number of mutations that pass keep
func Count(muts []Mutation, keep func(Mutation) bool) int {
	n := 0
	for _, m := range muts {
		if keep == nil || keep(m) {
			n++
		}
	}
	return n
}
