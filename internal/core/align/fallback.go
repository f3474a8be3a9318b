package align

import (
	"repertoire/internal/core/dna"
	"repertoire/internal/core/germline"
	perr "repertoire/internal/platform/errors"
)

const (
	scoreMatch    = 1
	scoreMismatch = -1
	scoreGap      = -2

	// minGappedScore keeps short suffix alignments of unrelated reads out
	minGappedScore = 60
)

// anchorMatch is a full J anchor found with at most a few mismatches
type anchorMatch struct {
	anchor     germline.Anchor
	pos        int
	mismatches int
}

// Realign is the fallback for rejected reads. It tolerates J anchor mismatches
// and aligns candidate V genes with gaps, accepting the read only when both
// insertion and deletion block counts stay within budget
func (a *Aligner) Realign(read Read) Result {
	seq := normalize(read.Seq)
	reversed := false
	m, ok := a.findAnchorMismatched(seq)
	if !ok {
		rc := dna.RevComp(seq)
		if m, ok = a.findAnchorMismatched(rc); ok {
			seq, reversed = rc, true
		}
	}
	if !ok {
		return reject(read, perr.Rejectedf("no J anchor within %d mismatches", a.cfg.AnchorMismatches))
	}

	jEnd := m.pos + len(m.anchor.Seq)
	cdr3End := jEnd - a.ref.J.Config().UpstreamOfCDR3
	hi := cdr3End - a.cfg.MinCDR3
	if hi <= 0 {
		return reject(read, perr.Rejectedf("read too short for V region"))
	}
	lo := cdr3End - a.cfg.MaxCDR3
	region := seq[:hi]

	var (
		best     gapped
		bestGene *germline.VGene
	)
	for _, name := range a.ref.V.Candidates(region, a.cfg.Candidates) {
		v, _ := a.ref.V.Get(name)
		g := glocal(v.Ungapped[:v.CDR3StartU], region, lo)
		if g.ok && (bestGene == nil || g.score > best.score) {
			best, bestGene = g, v
		}
	}
	if bestGene == nil || best.score < minGappedScore {
		return reject(read, perr.Rejectedf("no gapped V alignment"))
	}
	if best.insertions > a.cfg.MaxInsertions || best.deletions > a.cfg.MaxDeletions {
		return reject(read, perr.Rejectedf("indel blocks %d/%d exceed %d/%d",
			best.insertions, best.deletions, a.cfg.MaxInsertions, a.cfg.MaxDeletions))
	}

	// rebuild the read as if it had no indels: projected V, then everything after it
	virtual := best.projected + seq[best.end:]
	vLen := len(best.projected)
	pl := placement{
		gene:      bestGene,
		cdr3Start: vLen,
		cdr3End:   vLen + (cdr3End - best.end),
		jEnd:      vLen + (jEnd - best.end),
		jTies:     a.ref.J.SingleTie(m.anchor.Gene, len(m.anchor.Seq)),
	}
	res := a.finish(read, virtual, pl, best.insertions, best.deletions)
	res.Reversed = reversed
	return res
}

// findAnchorMismatched scans full anchors allowing mismatches. Fewest
// mismatches wins, then the rightmost position, then anchor priority
func (a *Aligner) findAnchorMismatched(seq string) (anchorMatch, bool) {
	var (
		best  anchorMatch
		found bool
	)
	for _, an := range a.ref.J.Anchors() {
		if an.Trim != 0 {
			continue
		}
		for _, h := range findMatches(seq, an.Seq, a.cfg.AnchorMismatches) {
			if !found || h.mismatches < best.mismatches ||
				(h.mismatches == best.mismatches && h.pos > best.pos) {
				best = anchorMatch{anchor: an, pos: h.pos, mismatches: h.mismatches}
				found = true
			}
		}
	}
	return best, found
}

type hit struct{ pos, mismatches int }

// findMatches returns every window of seq within maxMM mismatches of pat; N never matches
func findMatches(seq, pat string, maxMM int) []hit {
	pl := len(pat)
	if pl == 0 || len(seq) < pl {
		return nil
	}
	var out []hit
window:
	for pos := 0; pos <= len(seq)-pl; pos++ {
		mm := 0
		for j := 0; j < pl; j++ {
			if b := seq[pos+j]; b != pat[j] || b == dna.Unknown {
				mm++
				if mm > maxMM {
					continue window
				}
			}
		}
		out = append(out, hit{pos: pos, mismatches: mm})
	}
	return out
}

// gapped is the outcome of one glocal alignment
type gapped struct {
	ok         bool
	score      int
	end        int // read position just past the last V base
	insertions int // read bases without a germline base, counted in blocks
	deletions  int // germline bases without a read base, counted in blocks
	projected  string
}

const (
	opStop byte = iota
	opDiag
	opUp   // deletion
	opLeft // insertion
)

// glocal aligns germline g against read r. Both starts are free, the germline
// must be consumed to its end, and the read end is free within [minEnd, len(r)].
// Gaps cost linearly; N scores zero
func glocal(g, r string, minEnd int) gapped {
	m, n := len(g), len(r)
	if m == 0 || n == 0 {
		return gapped{}
	}
	w := n + 1
	h := make([]int32, (m+1)*w)
	tr := make([]byte, (m+1)*w)

	for i := 1; i <= m; i++ {
		gi := g[i-1]
		for j := 1; j <= n; j++ {
			rj := r[j-1]
			s := int32(scoreMismatch)
			switch {
			case gi == dna.Unknown || rj == dna.Unknown:
				s = 0
			case gi == rj:
				s = scoreMatch
			}
			diag := h[(i-1)*w+j-1] + s
			up := h[(i-1)*w+j] + scoreGap
			left := h[i*w+j-1] + scoreGap
			best, op := diag, opDiag
			if up > best {
				best, op = up, opUp
			}
			if left > best {
				best, op = left, opLeft
			}
			h[i*w+j], tr[i*w+j] = best, op
		}
	}

	endJ, found := 0, false
	var top int32
	for j := max(minEnd, 1); j <= n; j++ {
		if v := h[m*w+j]; !found || v > top {
			top, endJ, found = v, j, true
		}
	}
	if !found {
		return gapped{}
	}

	proj := make([]byte, m)
	for k := range proj {
		proj[k] = dna.Unknown
	}
	var ins, dels int
	prev := opStop
	i, j := m, endJ
	for i > 0 && j > 0 {
		op := tr[i*w+j]
		switch op {
		case opDiag:
			proj[i-1] = r[j-1]
			i--
			j--
		case opUp:
			if prev != opUp {
				dels++
			}
			i--
		case opLeft:
			if prev != opLeft {
				ins++
			}
			j--
		}
		prev = op
	}
	return gapped{
		ok:         true,
		score:      int(top),
		end:        endJ,
		insertions: ins,
		deletions:  dels,
		projected:  string(proj),
	}
}
