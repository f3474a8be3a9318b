package lineage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strconv"

	"repertoire/internal/core/dna"
	"repertoire/internal/core/germline"
)

// Filters decide which members and mutations a rendered tree shows
type Filters struct {
	MinMutCopies  int  `json:"min_mut_copies" conf:"min_mut_copies" validate:"gte=0"`
	MinMutSamples int  `json:"min_mut_samples" conf:"min_mut_samples" validate:"gte=0"`
	MinSeqCopies  int  `json:"min_seq_copies" conf:"min_seq_copies" validate:"gte=0"`
	MinSeqSamples int  `json:"min_seq_samples" conf:"min_seq_samples" validate:"gte=0"`
	ExcludeStops  bool `json:"exclude_stops" conf:"exclude_stops"`
}

// Keep reports whether a member passes the sequence filters
func (f Filters) Keep(t Taxon) bool {
	if f.ExcludeStops && t.Stop {
		return false
	}
	return max(t.Copies, 1) >= f.MinSeqCopies && len(t.Samples) >= f.MinSeqSamples
}

// RenderInput is a clone's fixed membership
type RenderInput struct {
	CloneID  int64
	Germline string
	CDR3Len  int
	Members  []Taxon
}

// RenderedMutation is one visible mutation
type RenderedMutation struct {
	Pos    int    `json:"pos"`
	From   string `json:"from"`
	To     string `json:"to"`
	Region string `json:"region"`
	FromAA string `json:"from_aa"`
	ToAA   string `json:"to_aa"`
}

// RenderedNode is a node of the serialized tree
type RenderedNode struct {
	SeqIDs    []int64            `json:"seq_ids,omitempty"`
	Germline  bool               `json:"germline,omitempty"`
	Copies    int                `json:"copies"`
	Samples   []string           `json:"samples,omitempty"`
	Stop      bool               `json:"stop,omitempty"`
	Mutations []RenderedMutation `json:"mutations,omitempty"`
	Children  []*RenderedNode    `json:"children,omitempty"`
}

// Rendered is a LineageTree ready to store
type Rendered struct {
	CloneID        int64         `json:"clone_id"`
	Filters        Filters       `json:"filters"`
	MembershipHash string        `json:"membership_hash"`
	Root           *RenderedNode `json:"root"`
	Newick         string        `json:"newick"`
}

// MembershipHash fingerprints a membership independent of member order
func MembershipHash(members []Taxon) string {
	keys := make([]string, 0, len(members))
	for _, m := range members {
		keys = append(keys, strconv.FormatInt(m.ID, 10)+":"+strconv.Itoa(m.Copies))
	}
	slices.Sort(keys)
	h := sha256.New()
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Render builds the clone's tree over the members passing f. Inferred nodes
// without a visible mutation are folded into their parent
func Render(ctx context.Context, b Builder, in RenderInput, f Filters) (*Rendered, error) {
	out := &Rendered{CloneID: in.CloneID, Filters: f, MembershipHash: MembershipHash(in.Members)}

	taxa := []Taxon{{Seq: in.Germline, Germline: true}}
	for _, m := range in.Members {
		if f.Keep(m) {
			taxa = append(taxa, m)
		}
	}
	var root *Node
	switch len(taxa) {
	case 1:
		root = &Node{Taxon: &taxa[0], Seq: in.Germline}
	default:
		tree, err := build(ctx, b, taxa)
		if err != nil {
			return nil, err
		}
		if root, err = Root(tree, taxa, 0); err != nil {
			return nil, err
		}
	}
	Infer(root)

	members := make([]*Taxon, 0, len(taxa)-1)
	for i := 1; i < len(taxa); i++ {
		members = append(members, &taxa[i])
	}
	visible := NewStats(members).Threshold(1, f.MinMutCopies, f.MinMutSamples)

	out.Root = renderNode(root, visible, in.CDR3Len)
	out.Newick = Newick(root, func(n *Node) string {
		switch {
		case n.Taxon == nil:
			return ""
		case n.Taxon.Germline:
			return "germline"
		}
		return strconv.FormatInt(n.Taxon.ID, 10)
	})
	return out, nil
}

// build skips the builder for a single member, which always hangs off the root
func build(ctx context.Context, b Builder, taxa []Taxon) (*Tree, error) {
	if len(taxa) == 2 {
		return &Tree{Leaf: []int{0, 1}, Edges: [][2]int{{0, 1}}}, nil
	}
	return b.Build(ctx, taxa)
}

func renderNode(n *Node, visible func(Mutation) bool, cdr3Len int) *RenderedNode {
	rn := &RenderedNode{}
	if t := n.Taxon; t != nil {
		rn.Germline = t.Germline
		if !t.Germline {
			rn.SeqIDs = []int64{t.ID}
			rn.Copies = max(t.Copies, 1)
			rn.Samples = slices.Clone(t.Samples)
			rn.Stop = t.Stop
		}
	}
	for _, m := range n.Mutations {
		if visible(m) {
			rn.Mutations = append(rn.Mutations, annotate(m, n.Seq, cdr3Len))
		}
	}
	for _, c := range n.Children {
		rc := renderNode(c, visible, cdr3Len)
		if c.Taxon == nil && len(rc.Mutations) == 0 {
			rn.Children = append(rn.Children, rc.Children...)
			continue
		}
		rn.Children = append(rn.Children, rc)
	}
	return rn
}

func annotate(m Mutation, seq string, cdr3Len int) RenderedMutation {
	rm := RenderedMutation{
		Pos:    m.Pos,
		From:   string(m.From),
		To:     string(m.To),
		Region: germline.Region(m.Pos, cdr3Len),
	}
	start := m.Pos - m.Pos%3
	if start+3 <= len(seq) {
		codon := []byte(seq[start : start+3])
		rm.ToAA = dna.Translate(string(codon))
		codon[m.Pos-start] = m.From
		rm.FromAA = dna.Translate(string(codon))
	}
	return rm
}
