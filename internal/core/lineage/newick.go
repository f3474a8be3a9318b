package lineage

import (
	"strings"

	perr "repertoire/internal/platform/errors"
)

// ParseNewick reads a Newick tree. Leaf labels are resolved through index;
// internal labels and branch lengths are ignored
func ParseNewick(s string, index map[string]int) (*Tree, error) {
	p := &newickParser{s: strings.TrimSpace(s), index: index, t: &Tree{}}
	if _, err := p.subtree(); err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos >= len(p.s) || p.s[p.pos] != ';' {
		return nil, perr.ExternalToolf("newick: missing ';' at %d", p.pos)
	}
	return p.t, nil
}

type newickParser struct {
	s     string
	pos   int
	index map[string]int
	t     *Tree
}

func (p *newickParser) skipSpace() {
	for p.pos < len(p.s) && strings.IndexByte(" \t\r\n", p.s[p.pos]) >= 0 {
		p.pos++
	}
}

func (p *newickParser) node(leaf int) int {
	p.t.Leaf = append(p.t.Leaf, leaf)
	return len(p.t.Leaf) - 1
}

func (p *newickParser) subtree() (int, error) {
	p.skipSpace()
	if p.pos < len(p.s) && p.s[p.pos] == '(' {
		p.pos++
		id := p.node(-1)
		for {
			child, err := p.subtree()
			if err != nil {
				return 0, err
			}
			p.t.Edges = append(p.t.Edges, [2]int{id, child})
			p.skipSpace()
			if p.pos >= len(p.s) {
				return 0, perr.ExternalToolf("newick: unexpected end")
			}
			if p.s[p.pos] == ',' {
				p.pos++
				continue
			}
			if p.s[p.pos] != ')' {
				return 0, perr.ExternalToolf("newick: unexpected %q at %d", p.s[p.pos], p.pos)
			}
			p.pos++
			break
		}
		p.label()
		p.length()
		return id, nil
	}
	name := p.label()
	if name == "" {
		return 0, perr.ExternalToolf("newick: empty leaf label at %d", p.pos)
	}
	leaf, ok := p.index[name]
	if !ok {
		return 0, perr.ExternalToolf("newick: unknown leaf %q", name)
	}
	p.length()
	return p.node(leaf), nil
}

func (p *newickParser) label() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.s) && strings.IndexByte("(),:;", p.s[p.pos]) < 0 {
		p.pos++
	}
	return strings.TrimSpace(p.s[start:p.pos])
}

func (p *newickParser) length() {
	p.skipSpace()
	if p.pos < len(p.s) && p.s[p.pos] == ':' {
		p.pos++
		for p.pos < len(p.s) && strings.IndexByte("(),;", p.s[p.pos]) < 0 {
			p.pos++
		}
	}
}

// Newick writes a rooted tree using label for every node. Empty labels are omitted
func Newick(n *Node, label func(*Node) string) string {
	var sb strings.Builder
	writeNewick(&sb, n, label)
	sb.WriteByte(';')
	return sb.String()
}

func writeNewick(sb *strings.Builder, n *Node, label func(*Node) string) {
	if len(n.Children) > 0 {
		sb.WriteByte('(')
		for i, c := range n.Children {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeNewick(sb, c, label)
		}
		sb.WriteByte(')')
	}
	sb.WriteString(label(n))
}
