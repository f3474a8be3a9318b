package germline

// anchorScanner is a multi-pattern exact matcher over the ACGT alphabet.
// Any other symbol (N, gaps) resets the scan to the root, so anchors never
// match across ambiguous bases
type anchorScanner struct {
	nodes []scanNode
}

type scanNode struct {
	next [4]int32 // -1 when absent
	fail int32
	out  []int // anchor indices ending here
}

func baseIndex(b byte) int {
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

func newScanner() *anchorScanner {
	return &anchorScanner{nodes: []scanNode{{next: [4]int32{-1, -1, -1, -1}}}}
}

// add inserts pat under id. Patterns with non ACGT symbols are ignored
func (a *anchorScanner) add(pat string, id int) {
	if pat == "" {
		return
	}
	state := int32(0)
	for i := 0; i < len(pat); i++ {
		bi := baseIndex(pat[i])
		if bi < 0 {
			return
		}
		nxt := a.nodes[state].next[bi]
		if nxt == -1 {
			nxt = int32(len(a.nodes))
			a.nodes[state].next[bi] = nxt
			a.nodes = append(a.nodes, scanNode{next: [4]int32{-1, -1, -1, -1}})
		}
		state = nxt
	}
	a.nodes[state].out = append(a.nodes[state].out, id)
}

// build wires failure links breadth first and merges outputs along them
func (a *anchorScanner) build() {
	q := make([]int32, 0, len(a.nodes))
	for _, s := range a.nodes[0].next {
		if s != -1 {
			a.nodes[s].fail = 0
			q = append(q, s)
		}
	}
	for qi := 0; qi < len(q); qi++ {
		r := q[qi]
		for bi := 0; bi < 4; bi++ {
			s := a.nodes[r].next[bi]
			if s == -1 {
				continue
			}
			q = append(q, s)
			f := a.nodes[r].fail
			for f != 0 && a.nodes[f].next[bi] == -1 {
				f = a.nodes[f].fail
			}
			if nxt := a.nodes[f].next[bi]; nxt != -1 && nxt != s {
				a.nodes[s].fail = nxt
			} else {
				a.nodes[s].fail = 0
			}
			a.nodes[s].out = append(a.nodes[s].out, a.nodes[a.nodes[s].fail].out...)
		}
	}
}

// scan reports every (end, id) occurrence in text; end is exclusive
func (a *anchorScanner) scan(text string, cb func(end, id int)) {
	state := int32(0)
	for i := 0; i < len(text); i++ {
		bi := baseIndex(text[i])
		if bi < 0 {
			state = 0
			continue
		}
		for state != 0 && a.nodes[state].next[bi] == -1 {
			state = a.nodes[state].fail
		}
		if nxt := a.nodes[state].next[bi]; nxt != -1 {
			state = nxt
		}
		for _, id := range a.nodes[state].out {
			cb(i+1, id)
		}
	}
}
