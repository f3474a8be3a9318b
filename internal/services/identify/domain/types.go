package domain

import "repertoire/internal/core/align"

// Sample is one input file with its merged metadata
type Sample struct {
	Name     string
	Subject  string
	Path     string
	Metadata map[string]string
}

// Sequence is one distinct read after alignment. ReadIDs lists every raw
// read that shared the sequence
type Sequence struct {
	ReadIDs []string
	Locus   string
	align.Result
}

// Counts summarizes one sample
type Counts struct {
	Reads    int            `json:"reads"`
	Unique   int            `json:"unique"`
	Failed   int            `json:"failed"`
	Skipped  bool           `json:"skipped,omitempty"`
	ByStatus map[string]int `json:"by_status"`
}
