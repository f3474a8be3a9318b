package lineage

import (
	"context"

	"repertoire/internal/core/dna"
)

// NJ is the in-process neighbor joining builder
type NJ struct{}

var _ Builder = NJ{}

// Build joins taxa by pairwise differences over columns both sequences know.
// Ties pick the earliest pair so equal input gives an equal tree
func (NJ) Build(ctx context.Context, taxa []Taxon) (*Tree, error) {
	n := len(taxa)
	if n < 2 {
		return nil, ErrDegenerate
	}
	total := 2*n - 1
	t := &Tree{Leaf: make([]int, n, total)}
	d := make([][]float64, total)
	for i := range d {
		d[i] = make([]float64, total)
	}
	for i := 0; i < n; i++ {
		t.Leaf[i] = i
		for j := 0; j < i; j++ {
			v := float64(differences(taxa[i].Seq, taxa[j].Seq))
			d[i][j], d[j][i] = v, v
		}
	}

	active := make([]int, n)
	for i := range active {
		active[i] = i
	}
	for len(active) > 2 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r := float64(len(active))
		sums := make([]float64, len(active))
		for a, i := range active {
			for _, k := range active {
				sums[a] += d[i][k]
			}
		}
		bi, bj := 0, 1
		best := 0.0
		first := true
		for a := 0; a < len(active); a++ {
			for b := a + 1; b < len(active); b++ {
				q := (r-2)*d[active[a]][active[b]] - sums[a] - sums[b]
				if first || q < best-1e-9 {
					best, bi, bj, first = q, a, b, false
				}
			}
		}

		i, j := active[bi], active[bj]
		u := len(t.Leaf)
		t.Leaf = append(t.Leaf, -1)
		t.Edges = append(t.Edges, [2]int{u, i}, [2]int{u, j})
		for _, k := range active {
			if k == i || k == j {
				continue
			}
			v := (d[i][k] + d[j][k] - d[i][j]) / 2
			d[u][k], d[k][u] = v, v
		}

		next := active[:0:0]
		for a, k := range active {
			if a != bi && a != bj {
				next = append(next, k)
			}
		}
		active = append(next, u)
	}
	t.Edges = append(t.Edges, [2]int{active[0], active[1]})
	return t, nil
}

// differences counts columns where both sequences carry a base and disagree
func differences(a, b string) int {
	n := min(len(a), len(b))
	diff := 0
	for i := 0; i < n; i++ {
		if dna.Informative(a[i]) && dna.Informative(b[i]) && a[i] != b[i] {
			diff++
		}
	}
	return diff
}
