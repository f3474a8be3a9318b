package dna

import (
	"testing"

	"repertoire/internal/platform/testkit"
)

func TestRevComp(t *testing.T) {
	if got := RevComp("ACGTNR"); got != "YNACGT" {
		t.Fatalf("RevComp = %q", got)
	}
	if got := RevComp(RevComp("GATTACA")); got != "GATTACA" {
		t.Fatalf("double revcomp = %q", got)
	}
}

func TestTranslate(t *testing.T) {
	cases := map[string]string{
		"ATGTGGTAA": "MW*",
		"TGTGC":     "CX",
		"TGNGCG":    "XA",
		"":          "",
	}
	for in, want := range cases {
		if got := Translate(in); got != want {
			t.Fatalf("Translate(%q) = %q want %q", in, got, want)
		}
	}
	if !HasStop("ATGTAGTGG") || HasStop("ATGTGG") {
		t.Fatalf("HasStop mismatch")
	}
}

func TestHammingAndSimilarity(t *testing.T) {
	a := "TGTGCGAGAGATCGGGGGTACTACTTTGAC"
	b := "TGTGCGAGAGATCGGGGGTACTACTTTGAT"
	if Hamming(a, b) != 1 {
		t.Fatalf("hamming = %d", Hamming(a, b))
	}
	s := Similarity(a, b)
	if s < 0.966 || s > 0.967 {
		t.Fatalf("similarity = %f", s)
	}
	testkit.MustPanic(t, func() { Hamming("A", "AC") })
}

func TestConsensus(t *testing.T) {
	got := Consensus([]string{"ACGT", "ACCT", "AGCA"})
	if got != "ACCT" {
		t.Fatalf("Consensus = %q", got)
	}
	// tie at column 0 resolves to smallest byte
	if got := Consensus([]string{"G", "C"}); got != "C" {
		t.Fatalf("tie break = %q", got)
	}
}

func TestUngapInformative(t *testing.T) {
	if Ungap("AC-G..T") != "ACGT" {
		t.Fatalf("Ungap")
	}
	if Informative('N') || Informative('-') || !Informative('A') {
		t.Fatalf("Informative")
	}
}
