package cluster

import "repertoire/internal/core/dna"

// SimilarityConfig configures similarity mode
type SimilarityConfig struct {
	Level         Level   `conf:"level" validate:"oneof=nt aa"`
	MinSimilarity float64 `conf:"min_similarity" validate:"gte=0,lte=1"`
}

// Similarity merges every pair of bucket sequences whose CDR3 similarity is at
// least minSimilarity and returns the connected components. Pairs are visited
// in processing order and each component is rooted at its earliest sequence,
// so clone order and membership depend only on the input set
func Similarity(b Bucket, cfg SimilarityConfig) []Clone {
	n := len(b.Seqs)
	if n == 0 {
		return nil
	}
	cdr3 := func(s Seq) string {
		if cfg.Level == LevelAA {
			return s.CDR3AA
		}
		return s.CDR3NT
	}

	uf := newUnionFind(n)
	for i := 0; i < n; i++ {
		a := cdr3(b.Seqs[i])
		for j := i + 1; j < n; j++ {
			if uf.find(i) == uf.find(j) {
				continue
			}
			c := cdr3(b.Seqs[j])
			if len(a) == len(c) && dna.Similarity(a, c) >= cfg.MinSimilarity {
				uf.union(i, j)
			}
		}
	}

	groups := make(map[int][]Seq)
	var roots []int
	for i, s := range b.Seqs {
		r := uf.find(i)
		if _, ok := groups[r]; !ok {
			roots = append(roots, r)
		}
		groups[r] = append(groups[r], s)
	}
	out := make([]Clone, 0, len(roots))
	for _, r := range roots {
		out = append(out, newClone(b, groups[r], b.Seqs[r].Germline))
	}
	return out
}

// unionFind keeps the smallest index as the root of every set
type unionFind struct{ parent []int }

func newUnionFind(n int) *unionFind {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return &unionFind{parent: p}
}

func (u *unionFind) find(i int) int {
	for u.parent[i] != i {
		u.parent[i] = u.parent[u.parent[i]]
		i = u.parent[i]
	}
	return i
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	switch {
	case ra < rb:
		u.parent[rb] = ra
	case rb < ra:
		u.parent[ra] = rb
	}
}
