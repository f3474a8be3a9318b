// Package cluster groups subject level sequences into clones.
//
// Sequences are first split into buckets that share subject, locus, V tie
// set, J tie set and CDR3 length. Similarity mode merges CDR3s within a
// bucket by transitive closure; lineage mode cuts a tree built over the
// bucket. Buckets are independent so callers may commit them one at a time
package cluster

import (
	"cmp"
	"fmt"
	"maps"
	"slices"

	"repertoire/internal/core/dna"
	"repertoire/internal/core/germline"
	"repertoire/internal/platform/config"
	perr "repertoire/internal/platform/errors"
)

// Level is the CDR3 comparison level
type Level string

const (
	LevelNT Level = "nt"
	LevelAA Level = "aa"
)

// Mode selects the clustering algorithm
type Mode string

const (
	ModeSimilarity Mode = "similarity"
	ModeLineage    Mode = "lineage"
	// ModeImport marks clones read from an association file
	ModeImport Mode = "import"
)

// Seq is a subject level collapsed sequence with its identification
type Seq struct {
	ID           int64
	Subject      string
	Locus        string
	VTies        germline.Ties
	JTies        germline.Ties
	CDR3NT       string
	CDR3AA       string
	Text         string
	Germline     string
	Copies       int
	SampleCopies map[string]int
	VIdentity    float64
	Padding      int
	Partial      bool
	Stop         bool
	// CollapseTo is the id of the full sequence a padded sequence was absorbed into
	CollapseTo int64
}

// Filters select which sequences enter bucketing
type Filters struct {
	MinVIdentity float64 `conf:"min_v_identity" validate:"gte=0,lte=1"`
	MinCopies    int     `conf:"min_copies" validate:"gte=0"`
	// MaxPadding below zero disables the padding filter
	MaxPadding      int      `conf:"max_padding" validate:"gte=-1"`
	Gene            string   `conf:"gene"`
	Subjects        []string `conf:"subjects"`
	ExcludePartials bool     `conf:"exclude_partials"`
}

// DefaultFilters lets everything through
func DefaultFilters() Filters { return Filters{MaxPadding: -1} }

// Validate checks filter ranges
func (f Filters) Validate() error { return config.Validate(f) }

// Key identifies a bucket
type Key struct {
	Subject string
	Locus   string
	V       string
	J       string
	CDR3Len int
	Level   Level
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s/%s/%d/%s", k.Subject, k.Locus, k.V, k.J, k.CDR3Len, k.Level)
}

func compareKeys(a, b Key) int {
	return cmp.Or(
		cmp.Compare(a.Subject, b.Subject),
		cmp.Compare(a.Locus, b.Locus),
		cmp.Compare(a.V, b.V),
		cmp.Compare(a.J, b.J),
		cmp.Compare(a.CDR3Len, b.CDR3Len),
		cmp.Compare(a.Level, b.Level),
	)
}

// Bucket holds the sequences of one key in processing order: copies
// descending, then text, then id. Followers are absorbed partials keyed by
// the id of the sequence they follow
type Bucket struct {
	Key       Key
	Seqs      []Seq
	Followers map[int64][]Seq
}

// Clone is one clustering result. Members hold sequence ids in ascending order
type Clone struct {
	Key       Key
	CDR3NT    string
	CDR3AA    string
	Germline  string
	Members   []int64
	Subclones []Clone
}

// Size is the number of members, followers included
func (c Clone) Size() int { return len(c.Members) }

// Buckets filters seqs and groups them by key. Sequences absorbed into a full
// sequence skip the filters and join their target's bucket; a target missing
// from seqs is a consistency error
func Buckets(seqs []Seq, f Filters, level Level) ([]Bucket, error) {
	byID := make(map[int64]Seq, len(seqs))
	for _, s := range seqs {
		byID[s.ID] = s
	}
	subjects := make(map[string]bool, len(f.Subjects))
	for _, s := range f.Subjects {
		subjects[s] = true
	}

	buckets := make(map[Key]*Bucket)
	where := make(map[int64]Key)
	var followers []Seq
	for _, s := range seqs {
		if len(subjects) > 0 && !subjects[s.Subject] {
			continue
		}
		if f.Gene != "" && s.Locus != f.Gene {
			continue
		}
		if s.CollapseTo != 0 {
			if _, ok := byID[s.CollapseTo]; !ok {
				return nil, perr.Consistencyf("cluster: sequence %d collapses into unknown sequence %d", s.ID, s.CollapseTo)
			}
			followers = append(followers, s)
			continue
		}
		if !f.eligible(s) {
			continue
		}
		k := keyOf(s, level)
		b, ok := buckets[k]
		if !ok {
			b = &Bucket{Key: k, Followers: map[int64][]Seq{}}
			buckets[k] = b
		}
		b.Seqs = append(b.Seqs, s)
		where[s.ID] = k
	}
	for _, s := range followers {
		k, ok := where[s.CollapseTo]
		if !ok {
			continue
		}
		b := buckets[k]
		b.Followers[s.CollapseTo] = append(b.Followers[s.CollapseTo], s)
	}

	out := make([]Bucket, 0, len(buckets))
	for _, k := range slices.SortedFunc(maps.Keys(buckets), compareKeys) {
		b := buckets[k]
		slices.SortFunc(b.Seqs, processingOrder)
		for id := range b.Followers {
			slices.SortFunc(b.Followers[id], func(x, y Seq) int { return cmp.Compare(x.ID, y.ID) })
		}
		out = append(out, *b)
	}
	return out, nil
}

func (f Filters) eligible(s Seq) bool {
	switch {
	case s.VIdentity < f.MinVIdentity:
		return false
	case s.Copies < f.MinCopies:
		return false
	case f.MaxPadding >= 0 && s.Padding > f.MaxPadding:
		return false
	case f.ExcludePartials && s.Partial:
		return false
	}
	return true
}

func keyOf(s Seq, level Level) Key {
	return Key{
		Subject: s.Subject,
		Locus:   s.Locus,
		V:       s.VTies.Key(),
		J:       s.JTies.Key(),
		CDR3Len: len(s.CDR3NT),
		Level:   level,
	}
}

func processingOrder(a, b Seq) int {
	return cmp.Or(
		cmp.Compare(b.Copies, a.Copies),
		cmp.Compare(a.Text, b.Text),
		cmp.Compare(a.ID, b.ID),
	)
}

// newClone fills the representative CDR3 and attaches followers of every member
func newClone(b Bucket, members []Seq, germ string) Clone {
	c := Clone{Key: b.Key, Germline: germ}
	cdr3s := make([]string, 0, len(members))
	for _, m := range members {
		cdr3s = append(cdr3s, m.CDR3NT)
		c.Members = append(c.Members, m.ID)
		for _, fl := range b.Followers[m.ID] {
			c.Members = append(c.Members, fl.ID)
		}
	}
	slices.Sort(c.Members)
	c.CDR3NT = dna.Consensus(cdr3s)
	c.CDR3AA = dna.Translate(c.CDR3NT)
	return c
}
