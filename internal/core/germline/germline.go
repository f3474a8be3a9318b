// Package germline indexes V and J germline genes for alignment.
//
// V genes are stored gapped in IMGT numbering so every aligned sequence shares
// one coordinate system; the CDR3 starts at CDR3Offset in that system.
// J genes are stored ungapped and contribute the anchors that seed alignment
package germline

import (
	"io"
	"sort"
	"strings"

	"repertoire/internal/core/dna"
	"repertoire/internal/core/fasta"
	perr "repertoire/internal/platform/errors"
)

// CDR3Offset is the gapped position where the CDR3 begins in IMGT numbering
const CDR3Offset = 309

// Gene is one germline segment
type Gene struct {
	Name   string
	Gapped string
	Locus  string
}

// VGene is a V germline plus precomputed coordinates
type VGene struct {
	Gene
	Ungapped string
	// CDR3StartU is the number of germline bases before CDR3Offset
	CDR3StartU int
	// gappedAt maps ungapped index to gapped index
	gappedAt []int
}

// GappedAt returns the gapped column of ungapped base u
func (v *VGene) GappedAt(u int) int { return v.gappedAt[u] }

// VIndex is an immutable V germline index; safe for concurrent reads
type VIndex struct {
	genes map[string]*VGene
	names []string
	kmers *kmerIndex
}

// LoadV reads gapped V germlines. IMGT style headers (acc|name|...) use the
// second field as the gene name. '.' gaps are normalized to '-'
func LoadV(r io.Reader) (*VIndex, error) {
	recs, err := fasta.ReadAll(r)
	if err != nil {
		return nil, err
	}
	genes := make([]Gene, 0, len(recs))
	for _, rec := range recs {
		name := recordName(rec.ID)
		seq := strings.ReplaceAll(rec.Seq, ".", "-")
		if !onlyIn(seq, "ACGTN-") {
			continue
		}
		genes = append(genes, Gene{Name: name, Gapped: seq, Locus: LocusOf(name)})
	}
	return NewVIndex(genes)
}

// NewVIndex builds an index over genes; duplicate names are a configuration error
func NewVIndex(genes []Gene) (*VIndex, error) {
	if len(genes) == 0 {
		return nil, perr.Configf("germline: no usable V genes")
	}
	idx := &VIndex{genes: make(map[string]*VGene, len(genes))}
	for _, g := range genes {
		if _, dup := idx.genes[g.Name]; dup {
			return nil, perr.Configf("germline: duplicate V gene %s", g.Name)
		}
		if g.Locus == "" {
			g.Locus = LocusOf(g.Name)
		}
		v := &VGene{Gene: g}
		var sb strings.Builder
		for i := 0; i < len(g.Gapped); i++ {
			if g.Gapped[i] == dna.Gap {
				continue
			}
			if i < CDR3Offset {
				v.CDR3StartU++
			}
			v.gappedAt = append(v.gappedAt, i)
			sb.WriteByte(g.Gapped[i])
		}
		v.Ungapped = sb.String()
		idx.genes[g.Name] = v
		idx.names = append(idx.names, g.Name)
	}
	sort.Strings(idx.names)
	idx.kmers = newKmerIndex(idx, kmerSize)
	return idx, nil
}

// Names returns gene names in sorted order
func (x *VIndex) Names() []string { return x.names }

// Get returns one gene
func (x *VIndex) Get(name string) (*VGene, bool) {
	v, ok := x.genes[name]
	return v, ok
}

// Len is the number of genes
func (x *VIndex) Len() int { return len(x.names) }

// CommonSeq returns the gapped consensus of the named genes with N wherever
// they disagree or a gene is shorter than the others
func (x *VIndex) CommonSeq(names []string) string {
	var seqs []string
	for _, n := range names {
		if v, ok := x.genes[n]; ok {
			seqs = append(seqs, v.Gapped)
		}
	}
	if len(seqs) == 0 {
		return ""
	}
	width := 0
	for _, s := range seqs {
		width = max(width, len(s))
	}
	out := []byte(seqs[0])
	for len(out) < width {
		out = append(out, dna.Unknown)
	}
	for _, s := range seqs[1:] {
		for i := range out {
			if i >= len(s) || s[i] != out[i] {
				out[i] = dna.Unknown
			}
		}
	}
	return string(out)
}

// Candidates returns up to k gene names sharing the most k-mers with read
func (x *VIndex) Candidates(read string, k int) []string {
	return x.kmers.top(read, k)
}

// JGene is a J germline
type JGene struct {
	Gene
}

// JConfig controls anchor extraction
type JConfig struct {
	AnchorLen      int
	MinAnchorLen   int
	UpstreamOfCDR3 int
}

// Anchor is a gap-free 3' J subsequence used to seed alignment.
// Trim is how many bases were dropped from the 3' end of the full anchor
type Anchor struct {
	Seq  string
	Gene string
	Trim int
}

// JIndex is an immutable J germline index with an anchor scanner
type JIndex struct {
	cfg     JConfig
	genes   map[string]*JGene
	names   []string
	anchors []Anchor
	scanner *anchorScanner
	minLen  int
}

// LoadJ reads ungapped J germlines. Records with symbols other than ACGT are skipped
func LoadJ(r io.Reader, cfg JConfig) (*JIndex, error) {
	recs, err := fasta.ReadAll(r)
	if err != nil {
		return nil, err
	}
	genes := make([]Gene, 0, len(recs))
	for _, rec := range recs {
		if !onlyIn(rec.Seq, "ACGT") {
			continue
		}
		name := recordName(rec.ID)
		genes = append(genes, Gene{Name: name, Gapped: rec.Seq, Locus: LocusOf(name)})
	}
	return NewJIndex(genes, cfg)
}

// NewJIndex builds anchors for genes. Full anchors come first, then anchors
// trimmed 3 bases at a time from the 3' end while at least MinAnchorLen long
func NewJIndex(genes []Gene, cfg JConfig) (*JIndex, error) {
	if len(genes) == 0 {
		return nil, perr.Configf("germline: no usable J genes")
	}
	if cfg.AnchorLen <= 0 || cfg.MinAnchorLen <= 0 || cfg.MinAnchorLen > cfg.AnchorLen {
		return nil, perr.Configf("germline: invalid anchor lengths %d/%d", cfg.AnchorLen, cfg.MinAnchorLen)
	}
	idx := &JIndex{cfg: cfg, genes: make(map[string]*JGene, len(genes)), scanner: newScanner()}
	for _, g := range genes {
		if _, dup := idx.genes[g.Name]; dup {
			return nil, perr.Configf("germline: duplicate J gene %s", g.Name)
		}
		if len(g.Gapped) < cfg.AnchorLen || len(g.Gapped) <= cfg.UpstreamOfCDR3 {
			return nil, perr.Configf("germline: J gene %s shorter than anchor or FR4", g.Name)
		}
		if g.Locus == "" {
			g.Locus = LocusOf(g.Name)
		}
		idx.genes[g.Name] = &JGene{Gene: g}
		idx.names = append(idx.names, g.Name)
		if idx.minLen == 0 || len(g.Gapped) < idx.minLen {
			idx.minLen = len(g.Gapped)
		}
	}
	sort.Strings(idx.names)

	for trim := 0; cfg.AnchorLen-trim >= cfg.MinAnchorLen; trim += 3 {
		for _, name := range idx.names {
			full := idx.FullAnchor(name)
			idx.anchors = append(idx.anchors, Anchor{Seq: full[:len(full)-trim], Gene: name, Trim: trim})
		}
	}
	for i, a := range idx.anchors {
		idx.scanner.add(a.Seq, i)
	}
	idx.scanner.build()
	return idx, nil
}

// Config returns the anchor configuration
func (x *JIndex) Config() JConfig { return x.cfg }

// Names returns gene names in sorted order
func (x *JIndex) Names() []string { return x.names }

// Get returns one gene
func (x *JIndex) Get(name string) (*JGene, bool) {
	j, ok := x.genes[name]
	return j, ok
}

// Anchors returns every anchor in priority order
func (x *JIndex) Anchors() []Anchor { return x.anchors }

// FullAnchor is the last AnchorLen bases of the gene
func (x *JIndex) FullAnchor(gene string) string {
	s := x.genes[gene].Gapped
	return s[len(s)-x.cfg.AnchorLen:]
}

// InCDR3 is the part of the J gene inside the CDR3
func (x *JIndex) InCDR3(gene string) string {
	s := x.genes[gene].Gapped
	return s[:len(s)-x.cfg.UpstreamOfCDR3]
}

// SingleTie returns every J gene whose anchor shares the first matchLen bases with gene's anchor
func (x *JIndex) SingleTie(gene string, matchLen int) Ties {
	seq := x.FullAnchor(gene)
	if matchLen < len(seq) {
		seq = seq[:matchLen]
	}
	tied := []string{gene}
	for _, name := range x.names {
		if name != gene && strings.HasPrefix(x.FullAnchor(name), seq) {
			tied = append(tied, name)
		}
	}
	return NewTies(tied...)
}

// AnchorHit is an anchor located in a read; End is exclusive
type AnchorHit struct {
	Anchor
	End int
}

// FindAnchor locates the highest priority anchor in read. Among occurrences
// of that anchor the rightmost wins
func (x *JIndex) FindAnchor(read string) (AnchorHit, bool) {
	best, bestEnd := -1, -1
	x.scanner.scan(read, func(end, id int) {
		if best == -1 || id < best || (id == best && end > bestEnd) {
			best, bestEnd = id, end
		}
	})
	if best < 0 {
		return AnchorHit{}, false
	}
	return AnchorHit{Anchor: x.anchors[best], End: bestEnd}, true
}

// Reference bundles both indexes for one locus
type Reference struct {
	V *VIndex
	J *JIndex
}

// LocusOf derives the locus from an IMGT gene name, e.g. IGHV1-2*02 -> IGH
func LocusOf(name string) string {
	if len(name) >= 3 {
		return name[:3]
	}
	return name
}

func recordName(id string) string {
	if parts := strings.Split(id, "|"); len(parts) > 1 && parts[1] != "" {
		return parts[1]
	}
	return id
}

func onlyIn(s, alphabet string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(alphabet, s[i]) < 0 {
			return false
		}
	}
	return true
}

// LoadFiles reads a V and a J germline file into one Reference
func LoadFiles(vPath, jPath string, cfg JConfig) (*Reference, error) {
	vr, err := fasta.Open(vPath)
	if err != nil {
		return nil, perr.WithOp(err, "germline.LoadFiles")
	}
	defer func() { _ = vr.Close() }()
	v, err := LoadV(vr)
	if err != nil {
		return nil, err
	}

	jr, err := fasta.Open(jPath)
	if err != nil {
		return nil, perr.WithOp(err, "germline.LoadFiles")
	}
	defer func() { _ = jr.Close() }()
	j, err := LoadJ(jr, cfg)
	if err != nil {
		return nil, err
	}
	return &Reference{V: v, J: j}, nil
}
