// Package germlinetest builds a small deterministic germline reference for tests
package germlinetest

import (
	"os"
	"path/filepath"
	"strings"

	"repertoire/internal/core/fasta"
	"repertoire/internal/core/germline"
)

// J genes (IMGT human IGHJ4*01, IGHJ4*02, IGHJ6*02)
const (
	J4_01 = "ACTACTTTGACTACTGGGGCCAAGGAACCCTGGTCACCGTCTCCTCAG"
	J4_02 = "ACTACTTTGACTACTGGGGCCAGGGAACCCTGGTCACCGTCTCCTCAG"
	J6_02 = "ATTACTACTACTACTACGGTATGGACGTCTGGGGGCAAGGGACCACGGTCACCGTCTCCTCAG"
)

// JConfig matches the defaults used across tests
var JConfig = germline.JConfig{AnchorLen: 18, MinAnchorLen: 12, UpstreamOfCDR3: 31}

// gap columns carved out of the V coordinate system, all before the CDR3
var gapCols = map[int]bool{30: true, 31: true, 32: true, 100: true, 101: true, 102: true, 103: true, 104: true, 105: true}

// vTail is the germline part extending past CDR3Offset
const vTail = "TGTGCGAGAGA"

// pseudo random ACGT stream so fixtures are stable
func bases(seed uint32, n int) []byte {
	const alpha = "ACGT"
	out := make([]byte, n)
	x := seed
	for i := range out {
		x ^= x << 13
		x ^= x >> 17
		x ^= x << 5
		out[i] = alpha[x%4]
	}
	return out
}

func gapped(body []byte) string {
	var sb strings.Builder
	k := 0
	for col := 0; col < germline.CDR3Offset; col++ {
		if gapCols[col] {
			sb.WriteByte('-')
			continue
		}
		sb.WriteByte(body[k])
		k++
	}
	sb.WriteString(vTail)
	return sb.String()
}

// VBody returns the ungapped pre-CDR3 bases for a named fixture gene
func VBody(name string) []byte {
	n := germline.CDR3Offset - len(gapCols)
	switch name {
	case "IGHV1-2*02":
		return bases(0x9e3779b9, n)
	case "IGHV1-2*04":
		// one substitution near the 3' end of FW3
		b := bases(0x9e3779b9, n)
		b[n-20] = flip(b[n-20])
		return b
	case "IGHV3-23*01":
		return bases(0x7f4a7c15, n)
	}
	panic("germlinetest: unknown V " + name)
}

func flip(b byte) byte {
	switch b {
	case 'A':
		return 'C'
	case 'C':
		return 'G'
	case 'G':
		return 'T'
	}
	return 'A'
}

// VGenes returns the fixture V genes
func VGenes() []germline.Gene {
	names := []string{"IGHV1-2*02", "IGHV1-2*04", "IGHV3-23*01"}
	out := make([]germline.Gene, 0, len(names))
	for _, n := range names {
		out = append(out, germline.Gene{Name: n, Gapped: gapped(VBody(n)), Locus: "IGH"})
	}
	return out
}

// JGenes returns the fixture J genes
func JGenes() []germline.Gene {
	return []germline.Gene{
		{Name: "IGHJ4*01", Gapped: J4_01, Locus: "IGH"},
		{Name: "IGHJ4*02", Gapped: J4_02, Locus: "IGH"},
		{Name: "IGHJ6*02", Gapped: J6_02, Locus: "IGH"},
	}
}

// Reference builds the fixture reference or panics
func Reference() *germline.Reference {
	v, err := germline.NewVIndex(VGenes())
	if err != nil {
		panic(err)
	}
	j, err := germline.NewJIndex(JGenes(), JConfig)
	if err != nil {
		panic(err)
	}
	return &germline.Reference{V: v, J: j}
}

// Read assembles a read from a V body (already mutated as desired), a CDR3
// and the FR4 of the named J gene. The CDR3 should end with the J part inside it
func Read(vBody []byte, cdr3 string, j string) string {
	return string(vBody) + cdr3 + fr4(j)
}

// CDR3 builds a junction from a V tail, a non-templated insert and the J part inside the CDR3
func CDR3(insert string, j string) string {
	js := jSeq(j)
	return vTail + insert + js[:len(js)-JConfig.UpstreamOfCDR3]
}

func fr4(j string) string {
	js := jSeq(j)
	return js[len(js)-JConfig.UpstreamOfCDR3:]
}

func jSeq(j string) string {
	switch j {
	case "IGHJ4*01":
		return J4_01
	case "IGHJ4*02":
		return J4_02
	case "IGHJ6*02":
		return J6_02
	}
	panic("germlinetest: unknown J " + j)
}

// WriteFiles writes the fixture genes as FASTA files under dir
func WriteFiles(dir string) (vPath, jPath string, err error) {
	write := func(name string, genes []germline.Gene) (string, error) {
		recs := make([]fasta.Record, 0, len(genes))
		for _, g := range genes {
			recs = append(recs, fasta.Record{ID: g.Name, Seq: g.Gapped})
		}
		p := filepath.Join(dir, name)
		fh, err := os.Create(p)
		if err != nil {
			return "", err
		}
		if err := fasta.Write(fh, 60, recs...); err != nil {
			_ = fh.Close()
			return "", err
		}
		return p, fh.Close()
	}
	if vPath, err = write("v.fasta", VGenes()); err != nil {
		return "", "", err
	}
	jPath, err = write("j.fasta", JGenes())
	return vPath, jPath, err
}
