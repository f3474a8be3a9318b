// Package lineage builds, roots and annotates lineage trees over aligned
// sequences. Tree construction sits behind Builder so an in-process
// neighbor joining builder and an external executable are interchangeable
package lineage

import (
	"context"
	"errors"
	"slices"

	perr "repertoire/internal/platform/errors"
)

// ErrDegenerate is returned by builders for inputs that cannot form a tree
var ErrDegenerate = errors.New("lineage: fewer than two taxa")

// Taxon is one distinct sequence weighted by its copy number
type Taxon struct {
	ID       int64
	Seq      string
	Copies   int
	Samples  []string
	Stop     bool
	Germline bool
}

// Tree is an unrooted tree. Leaf[i] is the taxon index of node i, or -1 for
// inferred nodes
type Tree struct {
	Leaf  []int
	Edges [][2]int
}

// Builder builds an unrooted tree whose leaves are exactly the given taxa
type Builder interface {
	Build(ctx context.Context, taxa []Taxon) (*Tree, error)
}

// BuilderFunc adapts a function to Builder
type BuilderFunc func(ctx context.Context, taxa []Taxon) (*Tree, error)

// Build calls f
func (f BuilderFunc) Build(ctx context.Context, taxa []Taxon) (*Tree, error) { return f(ctx, taxa) }

// Node is a rooted tree node. Mutations describe the edge from the parent
type Node struct {
	Taxon     *Taxon
	Seq       string
	Mutations []Mutation
	Children  []*Node
}

// Walk visits n and its descendants in preorder
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Taxa returns every non germline taxon at or below n in preorder
func (n *Node) Taxa() []*Taxon {
	var out []*Taxon
	n.Walk(func(x *Node) {
		if x.Taxon != nil && !x.Taxon.Germline {
			out = append(out, x.Taxon)
		}
	})
	return out
}

// Root hangs the tree from the node holding taxon index root. Children keep
// the order of their taxon index, inferred nodes after taxa
func Root(t *Tree, taxa []Taxon, root int) (*Node, error) {
	if t == nil || len(t.Leaf) == 0 {
		return nil, perr.Consistencyf("lineage: empty tree")
	}
	adj := make([][]int, len(t.Leaf))
	for _, e := range t.Edges {
		a, b := e[0], e[1]
		if a < 0 || b < 0 || a >= len(adj) || b >= len(adj) {
			return nil, perr.Consistencyf("lineage: edge %v out of range", e)
		}
		adj[a] = append(adj[a], b)
		adj[b] = append(adj[b], a)
	}
	start := -1
	for i, l := range t.Leaf {
		if l == root {
			start = i
		}
	}
	if start < 0 {
		return nil, perr.Consistencyf("lineage: root taxon %d not in tree", root)
	}

	seen := make([]bool, len(adj))
	var build func(i int) *Node
	build = func(i int) *Node {
		seen[i] = true
		n := &Node{}
		if l := t.Leaf[i]; l >= 0 {
			n.Taxon = &taxa[l]
			n.Seq = taxa[l].Seq
		}
		next := slices.Clone(adj[i])
		slices.SortFunc(next, func(a, b int) int { return order(t.Leaf[a], a) - order(t.Leaf[b], b) })
		for _, j := range next {
			if !seen[j] {
				n.Children = append(n.Children, build(j))
			}
		}
		return n
	}
	rootNode := build(start)
	for i, s := range seen {
		if !s {
			return nil, perr.Consistencyf("lineage: node %d unreachable from root", i)
		}
	}
	return rootNode, nil
}

func order(leaf, node int) int {
	if leaf >= 0 {
		return leaf
	}
	return 1<<20 + node
}
