package germline

import (
	"sort"
	"strings"
)

// Ties is a sorted, duplicate free set of gene names that aligned equally well.
// Comparisons and bucketing always use the full set; only Display truncates
type Ties []string

// NewTies normalizes names into a Ties set
func NewTies(names ...string) Ties {
	if len(names) == 0 {
		return nil
	}
	cp := append([]string(nil), names...)
	sort.Strings(cp)
	out := cp[:1]
	for _, n := range cp[1:] {
		if n != out[len(out)-1] {
			out = append(out, n)
		}
	}
	return Ties(out)
}

// ParseTies is the inverse of Key
func ParseTies(key string) Ties {
	if key == "" {
		return nil
	}
	return NewTies(strings.Split(key, "|")...)
}

// Key is the canonical, untruncated identity of the set
func (t Ties) Key() string { return strings.Join(t, "|") }

// Contains reports membership
func (t Ties) Contains(name string) bool {
	i := sort.SearchStrings(t, name)
	return i < len(t) && t[i] == name
}

// Display formats the set with alleles stripped, cut to at most limit bytes.
// limit <= 0 disables truncation
func (t Ties) Display(limit int) string {
	s := FormatTies(t, true)
	if limit <= 0 || len(s) <= limit {
		return s
	}
	const more = "|..."
	if limit <= len(more) {
		return s[:limit]
	}
	cut := strings.LastIndexByte(s[:limit-len(more)+1], '|')
	if cut <= 0 {
		cut = limit - len(more)
	}
	return s[:cut] + more
}

// FormatTies joins names with '|', optionally stripping allele suffixes (*01)
func FormatTies(names []string, stripAlleles bool) string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if stripAlleles {
			n, _, _ = strings.Cut(n, "*")
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return strings.Join(out, "|")
}

// Region names in gapped order
const (
	RegionFW1  = "FW1"
	RegionCDR1 = "CDR1"
	RegionFW2  = "FW2"
	RegionCDR2 = "CDR2"
	RegionFW3  = "FW3"
	RegionCDR3 = "CDR3"
	RegionFW4  = "FW4"
)

var (
	regionNames = []string{RegionFW1, RegionCDR1, RegionFW2, RegionCDR2, RegionFW3}
	regionLens  = []int{78, 36, 51, 30, 114}
)

// Region returns the region of gapped position pos for a sequence with the given CDR3 length
func Region(pos, cdr3Len int) string {
	end := 0
	for i, l := range regionLens {
		end += l
		if pos < end {
			return regionNames[i]
		}
	}
	if pos < CDR3Offset+cdr3Len {
		return RegionCDR3
	}
	return RegionFW4
}

// Regions splits a gapped sequence into its named regions in order
func Regions(seq string, cdr3Len int) map[string]string {
	out := make(map[string]string, 7)
	start := 0
	take := func(name string, n int) {
		end := min(start+n, len(seq))
		if start < end {
			out[name] = seq[start:end]
		}
		start = end
	}
	for i, l := range regionLens {
		take(regionNames[i], l)
	}
	take(RegionCDR3, cdr3Len)
	take(RegionFW4, len(seq))
	return out
}
