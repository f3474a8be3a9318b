// Package align places reads into gapped germline coordinates.
//
// The anchored path seeds on an exact J anchor and searches CDR3 lengths for
// the V placement with the most matching bases. Reads it rejects may be
// retried once by Realign, a bounded gapped alignment that tolerates a few
// insertion or deletion blocks. Both paths finish through the same projection
// and tie scoring so their results compare directly
package align

import (
	"strings"

	"repertoire/internal/core/dna"
	"repertoire/internal/core/germline"
	perr "repertoire/internal/platform/errors"
)

// Status of an identified read
type Status string

const (
	StatusAligned Status = "aligned"
	StatusIndel   Status = "indel"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// Read is one input sequence with its upstream copy count
type Read struct {
	ID     string
	Seq    string
	Copies int
}

// Result is an identified read. Sequence and Germline share gapped germline
// coordinates: V columns [0, CDR3Offset), then the CDR3, then the J remainder
type Result struct {
	ReadID string
	Copies int
	Status Status
	Err    error

	VTies germline.Ties
	JTies germline.Ties

	Sequence string
	Germline string
	CDR3NT   string
	CDR3AA   string

	Similarity       float64
	Padding          int
	Insertions       int
	Deletions        int
	Reversed         bool
	Stop             bool
	InFrame          bool
	Functional       bool
	MutationFraction float64
}

// Failed reports whether the read was rejected
func (r Result) Failed() bool { return r.Status == StatusFailed }

// Reason is the rejection message, empty when accepted
func (r Result) Reason() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// CDR3Len is the CDR3 length in nucleotides
func (r Result) CDR3Len() int { return len(r.CDR3NT) }

// Aligner is immutable after New and safe for concurrent use
type Aligner struct {
	ref *germline.Reference
	cfg Config
}

// New validates cfg and binds it to ref
func New(ref *germline.Reference, cfg Config) (*Aligner, error) {
	if ref == nil || ref.V == nil || ref.J == nil {
		return nil, perr.Configf("align: germline reference is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Aligner{ref: ref, cfg: cfg}, nil
}

// Config returns the bound configuration
func (a *Aligner) Config() Config { return a.cfg }

// Identify runs the anchored aligner and retries rejects through Realign once
func (a *Aligner) Identify(read Read) Result {
	res := a.Align(read)
	if !res.Failed() {
		return res
	}
	if re := a.Realign(read); !re.Failed() {
		return re
	}
	return res
}

// placement fixes where the read sits relative to the germlines
type placement struct {
	gene      *germline.VGene
	cdr3Start int
	cdr3End   int
	jEnd      int
	jTies     germline.Ties
}

// Align is the anchored aligner; a pure function of read, reference and config
func (a *Aligner) Align(read Read) Result {
	seq := normalize(read.Seq)
	reversed := false
	hit, ok := a.ref.J.FindAnchor(seq)
	if !ok {
		rc := dna.RevComp(seq)
		if hit, ok = a.ref.J.FindAnchor(rc); ok {
			seq, reversed = rc, true
		}
	}
	if !ok {
		return reject(read, perr.Rejectedf("no J anchor"))
	}

	jEnd := hit.End + hit.Trim
	cdr3End := jEnd - a.ref.J.Config().UpstreamOfCDR3
	pl, ok := a.place(seq, cdr3End)
	if !ok {
		return reject(read, perr.Rejectedf("no V placement"))
	}
	pl.jEnd = jEnd
	pl.jTies = a.ref.J.SingleTie(hit.Gene, len(hit.Seq))

	res := a.finish(read, seq, pl, 0, 0)
	res.Reversed = reversed
	return res
}

// place searches candidate genes and CDR3 lengths for the most matching bases.
// Ties keep the earlier candidate and then the shorter CDR3
func (a *Aligner) place(seq string, cdr3End int) (placement, bool) {
	if cdr3End <= a.cfg.MinCDR3 || cdr3End > len(seq) {
		return placement{}, false
	}
	cands := a.ref.V.Candidates(seq[:cdr3End], a.cfg.Candidates)
	best := 0
	var pl placement
	for _, name := range cands {
		v, _ := a.ref.V.Get(name)
		for l := a.cfg.MinCDR3; l <= a.cfg.MaxCDR3; l++ {
			start := cdr3End - l
			if start <= 0 {
				break
			}
			if s := a.placementScore(seq, v, start); s > best {
				best = s
				pl = placement{gene: v, cdr3Start: start, cdr3End: cdr3End}
			}
		}
	}
	return pl, best > 0
}

func (a *Aligner) placementScore(seq string, v *germline.VGene, cdr3Start int) int {
	matches := 0
	off := cdr3Start - v.CDR3StartU
	for u := max(0, -off); u < v.CDR3StartU; u++ {
		r := off + u
		if r >= len(seq) {
			break
		}
		if v.GappedAt(u) < a.cfg.TrimTo {
			continue
		}
		if b := seq[r]; b == v.Ungapped[u] && b != dna.Unknown {
			matches++
		}
	}
	return matches
}

// project lays the V part of seq into gapped columns [0, CDR3Offset)
func (a *Aligner) project(seq string, pl placement) []byte {
	v := pl.gene
	out := make([]byte, germline.CDR3Offset)
	for col := range out {
		if col < len(v.Gapped) && v.Gapped[col] == dna.Gap {
			out[col] = dna.Gap
		} else {
			out[col] = dna.Unknown
		}
	}
	off := pl.cdr3Start - v.CDR3StartU
	for u := max(0, -off); u < v.CDR3StartU; u++ {
		if r := off + u; r < len(seq) {
			out[v.GappedAt(u)] = seq[r]
		}
	}
	for col := 0; col < a.cfg.TrimTo && col < len(out); col++ {
		if out[col] != dna.Gap {
			out[col] = dna.Unknown
		}
	}
	return out
}

// scoreV counts informative columns and matches of proj against a gapped germline
func scoreV(proj []byte, gapped string) (matches, compared int) {
	n := min(len(proj), len(gapped))
	for col := 0; col < n; col++ {
		b, g := proj[col], gapped[col]
		if !dna.Informative(b) || !dna.Informative(g) {
			continue
		}
		compared++
		if b == g {
			matches++
		}
	}
	return matches, compared
}

// scoreTies scores every V gene on one projection. Genes sharing the best
// match count form the tie set; compared comes from the first tied gene
func (a *Aligner) scoreTies(proj []byte) (germline.Ties, int, int) {
	best, bestCompared := -1, 0
	var tied []string
	for _, name := range a.ref.V.Names() {
		v, _ := a.ref.V.Get(name)
		m, c := scoreV(proj, v.Gapped)
		if c == 0 {
			continue
		}
		switch {
		case m > best:
			best, bestCompared = m, c
			tied = append(tied[:0], name)
		case m == best:
			tied = append(tied, name)
		}
	}
	return germline.NewTies(tied...), max(best, 0), bestCompared
}

// finish projects seq, scores ties and applies the rejection thresholds
func (a *Aligner) finish(read Read, seq string, pl placement, ins, dels int) Result {
	proj := a.project(seq, pl)
	ties, matches, compared := a.scoreTies(proj)
	if len(ties) == 0 || compared == 0 {
		return reject(read, perr.Rejectedf("no informative V bases"))
	}

	cdr3 := window(seq, pl.cdr3Start, pl.cdr3End)
	fr4 := window(seq, pl.cdr3End, pl.jEnd)

	var sb strings.Builder
	sb.Grow(len(proj) + len(cdr3) + len(fr4))
	sb.Write(proj)
	sb.WriteString(cdr3)
	sb.WriteString(fr4)

	res := Result{
		ReadID:     read.ID,
		Copies:     max(read.Copies, 1),
		VTies:      ties,
		JTies:      pl.jTies,
		Sequence:   sb.String(),
		CDR3NT:     cdr3,
		CDR3AA:     dna.Translate(cdr3),
		Similarity: float64(matches) / float64(compared),
		Padding:    leadingPadding(proj),
		Insertions: ins,
		Deletions:  dels,
		InFrame:    len(cdr3)%3 == 0,
	}
	res.Germline = a.germlineFor(ties, pl.jTies, len(cdr3))
	res.Stop = dna.HasStop(res.Sequence)
	res.Functional = res.InFrame && !res.Stop
	res.MutationFraction = mutationFraction(proj, res.Germline)

	switch {
	case res.Similarity < a.cfg.MinSimilarity:
		res.Err = perr.Rejectedf("V similarity %.3f below %.3f", res.Similarity, a.cfg.MinSimilarity)
	case res.Padding > a.cfg.MaxPadding:
		res.Err = perr.Rejectedf("padding %d exceeds %d", res.Padding, a.cfg.MaxPadding)
	case len(ties) > a.cfg.MaxVTies:
		res.Err = perr.Rejectedf("too many V ties (%d > %d)", len(ties), a.cfg.MaxVTies)
	}

	switch {
	case res.Err != nil:
		res.Status = StatusFailed
	case ins+dels > 0:
		res.Status = StatusIndel
	case res.Padding > a.cfg.TrimTo:
		res.Status = StatusPartial
	default:
		res.Status = StatusAligned
	}
	return res
}

// germlineFor is the tie consensus V, gaps over the CDR3, then the first J's FR4
func (a *Aligner) germlineFor(ties, jTies germline.Ties, cdr3Len int) string {
	v := a.ref.V.CommonSeq(ties)
	if len(v) > germline.CDR3Offset {
		v = v[:germline.CDR3Offset]
	}
	for len(v) < germline.CDR3Offset {
		v += string(dna.Unknown)
	}
	var fr4 string
	if len(jTies) > 0 {
		if j, ok := a.ref.J.Get(jTies[0]); ok {
			up := a.ref.J.Config().UpstreamOfCDR3
			fr4 = j.Gapped[len(j.Gapped)-up:]
		}
	}
	return v + strings.Repeat(string(dna.Gap), cdr3Len) + fr4
}

func reject(read Read, err error) Result {
	return Result{ReadID: read.ID, Copies: max(read.Copies, 1), Status: StatusFailed, Err: err}
}

// window returns seq[lo:hi] with out of range positions filled with N
func window(seq string, lo, hi int) string {
	if hi <= lo {
		return ""
	}
	b := make([]byte, hi-lo)
	for i := range b {
		p := lo + i
		if p >= 0 && p < len(seq) {
			b[i] = seq[p]
		} else {
			b[i] = dna.Unknown
		}
	}
	return string(b)
}

func leadingPadding(proj []byte) int {
	for i, b := range proj {
		if dna.Informative(b) {
			return i
		}
	}
	return len(proj)
}

func mutationFraction(proj []byte, germ string) float64 {
	m, c := scoreV(proj, germ)
	if c == 0 {
		return 0
	}
	return float64(c-m) / float64(c)
}

// normalize uppercases and maps anything outside ACGTN to N
func normalize(s string) string {
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		switch c {
		case 'A', 'C', 'G', 'T', 'N':
		case ' ', '\t', '\r', '\n':
			continue
		default:
			c = dna.Unknown
		}
		b = append(b, c)
	}
	return string(b)
}
