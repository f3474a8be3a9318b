package germline

import "sort"

const kmerSize = 8

// kmerIndex maps ungapped V k-mers to the genes containing them
type kmerIndex struct {
	k     int
	names []string
	posts map[string][]int
}

func newKmerIndex(x *VIndex, k int) *kmerIndex {
	ki := &kmerIndex{k: k, names: x.names, posts: make(map[string][]int)}
	for gi, name := range x.names {
		seq := x.genes[name].Ungapped
		seen := make(map[string]struct{})
		for i := 0; i+k <= len(seq); i++ {
			km := seq[i : i+k]
			if _, ok := seen[km]; ok {
				continue
			}
			seen[km] = struct{}{}
			ki.posts[km] = append(ki.posts[km], gi)
		}
	}
	return ki
}

// top ranks genes by distinct shared k-mers; ties keep name order
func (ki *kmerIndex) top(read string, n int) []string {
	counts := make([]int, len(ki.names))
	seen := make(map[string]struct{})
	for i := 0; i+ki.k <= len(read); i++ {
		km := read[i : i+ki.k]
		if _, ok := seen[km]; ok {
			continue
		}
		seen[km] = struct{}{}
		for _, gi := range ki.posts[km] {
			counts[gi]++
		}
	}
	order := make([]int, 0, len(counts))
	for gi, c := range counts {
		if c > 0 {
			order = append(order, gi)
		}
	}
	sort.SliceStable(order, func(a, b int) bool { return counts[order[a]] > counts[order[b]] })
	if n > 0 && len(order) > n {
		order = order[:n]
	}
	out := make([]string, len(order))
	for i, gi := range order {
		out[i] = ki.names[gi]
	}
	return out
}
