// Package collapse groups identified sequences by normalized text.
//
// Grouping runs twice: within a sample, then across a subject's sample level
// groups. Both passes depend only on content, so the result is the same for
// any input order or any partition of the work across workers
package collapse

import (
	"maps"
	"slices"
	"strings"

	"repertoire/internal/core/dna"
)

// Scope of a collapsed group
type Scope string

const (
	ScopeSample  Scope = "sample"
	ScopeSubject Scope = "subject"
)

// Item is one identified sequence entering the sample pass
type Item struct {
	Ref    int64
	Sample string
	Text   string
	Copies int
}

// Group is a CollapsedSequence. Refs are the sorted back-references of the
// previous level: identified sequence ids for sample groups, sample group ids
// for subject groups
type Group struct {
	Text         string
	Scope        Scope
	Copies       int
	Refs         []int64
	SampleCopies map[string]int
	// CollapseTo is the text of the full sequence a padded group was absorbed into
	CollapseTo string
}

// Padded reports whether the group carries unknown positions
func (g Group) Padded() bool { return strings.IndexByte(g.Text, dna.Unknown) >= 0 }

// Normalize uppercases text and maps padding and anything outside the
// nucleotide and gap alphabet to N
func Normalize(text string) string {
	b := []byte(strings.ToUpper(text))
	for i, c := range b {
		switch c {
		case 'A', 'C', 'G', 'T', dna.Gap:
		default:
			b[i] = dna.Unknown
		}
	}
	return string(b)
}

// Samples groups one sample's items by normalized text. Items with no copies count once
func Samples(items []Item) []Group {
	byText := make(map[string]*Group)
	for _, it := range items {
		text := Normalize(it.Text)
		g, ok := byText[text]
		if !ok {
			g = &Group{Text: text, Scope: ScopeSample, SampleCopies: map[string]int{}}
			byText[text] = g
		}
		c := max(it.Copies, 1)
		g.Copies += c
		g.Refs = append(g.Refs, it.Ref)
		g.SampleCopies[it.Sample] += c
	}
	return flatten(byText)
}

// SubjectInput is a persisted sample level group
type SubjectInput struct {
	Ref   int64
	Group Group
}

// Subject merges sample level groups of one subject by text, keeping a copy count per sample
func Subject(in []SubjectInput) []Group {
	byText := make(map[string]*Group)
	for _, s := range in {
		text := Normalize(s.Group.Text)
		g, ok := byText[text]
		if !ok {
			g = &Group{Text: text, Scope: ScopeSubject, SampleCopies: map[string]int{}}
			byText[text] = g
		}
		g.Copies += s.Group.Copies
		g.Refs = append(g.Refs, s.Ref)
		for sample, c := range s.Group.SampleCopies {
			g.SampleCopies[sample] += c
		}
	}
	return Absorb(flatten(byText))
}

// Absorb points every padded group at the full group that agrees with it on
// all known positions. The full group with the most copies wins, then the
// smallest text. Groups must be unique by text
func Absorb(groups []Group) []Group {
	var full []int
	for i, g := range groups {
		if !g.Padded() {
			full = append(full, i)
		}
	}
	for i := range groups {
		g := &groups[i]
		g.CollapseTo = ""
		if !g.Padded() {
			continue
		}
		best := -1
		for _, j := range full {
			f := groups[j]
			if !covers(f.Text, g.Text) {
				continue
			}
			if best < 0 || f.Copies > groups[best].Copies ||
				(f.Copies == groups[best].Copies && f.Text < groups[best].Text) {
				best = j
			}
		}
		if best >= 0 {
			g.CollapseTo = groups[best].Text
		}
	}
	return groups
}

// covers reports whether full equals padded at every position padded knows
func covers(full, padded string) bool {
	if len(full) != len(padded) {
		return false
	}
	for i := 0; i < len(padded); i++ {
		if p := padded[i]; p != dna.Unknown && p != full[i] {
			return false
		}
	}
	return true
}

func flatten(byText map[string]*Group) []Group {
	out := make([]Group, 0, len(byText))
	for _, text := range slices.Sorted(maps.Keys(byText)) {
		g := byText[text]
		slices.Sort(g.Refs)
		out = append(out, *g)
	}
	return out
}
