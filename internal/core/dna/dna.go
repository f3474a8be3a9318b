// Package dna holds small nucleotide helpers shared by alignment, clustering and rendering
package dna

import "strings"

// Gap and unknown symbols as they appear in gapped germline coordinates
const (
	Gap     = '-'
	Unknown = 'N'
)

var complement = [256]byte{}

func init() {
	for i := range complement {
		complement[i] = 'N'
	}
	pairs := []string{"AT", "TA", "CG", "GC", "RY", "YR", "SS", "WW", "KM", "MK", "BV", "VB", "DH", "HD", "NN", "--"}
	for _, p := range pairs {
		complement[p[0]] = p[1]
	}
}

// RevComp returns the reverse complement of seq; unknown symbols become N
func RevComp(seq string) string {
	n := len(seq)
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = complement[seq[n-1-i]]
	}
	return string(out)
}

var codons = map[string]byte{}

func init() {
	// standard table, bases in TCAG order
	const aas = "FFLLSSSSYY**CC*WLLLLPPPPHHQQRRRRIIIMTTTTNNKKSSRRVVVVAAAADDEEGGGG"
	const b = "TCAG"
	i := 0
	for _, x := range b {
		for _, y := range b {
			for _, z := range b {
				codons[string([]rune{x, y, z})] = aas[i]
				i++
			}
		}
	}
}

// Translate converts nt to amino acids codon by codon. Incomplete or ambiguous codons become X
func Translate(nt string) string {
	var sb strings.Builder
	sb.Grow(len(nt)/3 + 1)
	for i := 0; i+3 <= len(nt); i += 3 {
		if aa, ok := codons[nt[i:i+3]]; ok {
			sb.WriteByte(aa)
		} else {
			sb.WriteByte('X')
		}
	}
	if len(nt)%3 != 0 {
		sb.WriteByte('X')
	}
	return sb.String()
}

// HasStop reports whether the in-frame translation of nt contains a stop codon
func HasStop(nt string) bool {
	for i := 0; i+3 <= len(nt); i += 3 {
		if codons[nt[i:i+3]] == '*' {
			return true
		}
	}
	return false
}

// Hamming counts positions where a and b differ; both must be the same length
func Hamming(a, b string) int {
	if len(a) != len(b) {
		panic("dna: hamming over unequal lengths")
	}
	d := 0
	for i := 0; i < len(a); i++ {
		if a[i] != b[i] {
			d++
		}
	}
	return d
}

// Similarity is 1 - hamming/len; empty inputs are identical
func Similarity(a, b string) float64 {
	if len(a) == 0 {
		return 1
	}
	return 1 - float64(Hamming(a, b))/float64(len(a))
}

// Informative reports whether b carries base information (not gap or N)
func Informative(b byte) bool { return b != Gap && b != Unknown && b != '.' }

// Ungap strips alignment gaps
func Ungap(s string) string {
	return strings.Map(func(r rune) rune {
		if r == Gap || r == '.' {
			return -1
		}
		return r
	}, s)
}

// Consensus returns the per-column majority of equal-length strings.
// Ties resolve to the smallest byte; shorter strings do not vote past their end
func Consensus(seqs []string) string {
	if len(seqs) == 0 {
		return ""
	}
	width := 0
	for _, s := range seqs {
		width = max(width, len(s))
	}
	out := make([]byte, width)
	var counts [256]int
	for i := 0; i < width; i++ {
		counts = [256]int{}
		for _, s := range seqs {
			if i < len(s) {
				counts[s[i]]++
			}
		}
		best := 0
		for c := 1; c < 256; c++ {
			if counts[c] > counts[best] {
				best = c
			}
		}
		out[i] = byte(best)
	}
	return string(out)
}
