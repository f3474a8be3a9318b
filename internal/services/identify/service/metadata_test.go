package service

import (
	"os"
	"path/filepath"
	"testing"

	perr "repertoire/internal/platform/errors"
)

const meta = `
all:
  subject: P1
  tissue: blood
s1.fasta:
  date: "2019-03-01"
s2.fasta.gz:
  sample_name: second
  subject: P2
`

func TestParseMetadata_MergesDefaults(t *testing.T) {
	got, err := ParseMetadata([]byte(meta))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("the defaults block is not a sample: %v", got)
	}
	s1 := got["s1.fasta"]
	if s1["subject"] != "P1" || s1["tissue"] != "blood" || s1["date"] != "2019-03-01" || s1["sample_name"] != "s1" {
		t.Fatalf("s1: %v", s1)
	}
	s2 := got["s2.fasta.gz"]
	if s2["subject"] != "P2" || s2["sample_name"] != "second" || s2["tissue"] != "blood" {
		t.Fatalf("s2: %v", s2)
	}
}

func TestParseMetadata_BadYAML(t *testing.T) {
	if _, err := ParseMetadata([]byte("all: [1, 2")); !perr.IsCode(err, perr.ErrorCodeConfiguration) {
		t.Fatalf("want configuration error, got %v", err)
	}
}

func TestSamplesFromDir(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []string{"s1.fasta", "s2.fasta.gz"} {
		if err := os.WriteFile(filepath.Join(dir, f), nil, 0o600); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "metadata.yaml"), []byte(meta), 0o600); err != nil {
		t.Fatal(err)
	}

	samples, err := SamplesFromDir(dir, "")
	if err != nil {
		t.Fatalf("samples: %v", err)
	}
	if len(samples) != 2 || samples[0].Name != "s1" || samples[1].Name != "second" {
		t.Fatalf("samples: %+v", samples)
	}
	if samples[0].Metadata["tissue"] != "blood" {
		t.Fatalf("metadata not carried: %v", samples[0].Metadata)
	}
	if _, ok := samples[0].Metadata["subject"]; ok {
		t.Fatalf("subject should be lifted out of metadata")
	}
}

func TestSamplesFromDir_ConfigurationErrors(t *testing.T) {
	dir := t.TempDir()
	write := func(doc string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, "metadata.yaml"), []byte(doc), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	write("s1.fasta:\n  tissue: blood\n")
	if _, err := SamplesFromDir(dir, ""); !perr.IsCode(err, perr.ErrorCodeConfiguration) {
		t.Fatalf("missing subject: want configuration error, got %v", err)
	}

	write("s1.fasta:\n  subject: P1\n")
	if _, err := SamplesFromDir(dir, ""); !perr.IsCode(err, perr.ErrorCodeConfiguration) {
		t.Fatalf("missing file: want configuration error, got %v", err)
	}
}
