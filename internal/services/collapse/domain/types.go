package domain

import "repertoire/internal/core/collapse"

// SampleRef names a sample and its subject
type SampleRef struct {
	ID        int64
	Name      string
	SubjectID int64
	Subject   string
}

// SubjectRef names a subject
type SubjectRef struct {
	ID         int64
	Identifier string
}

// Attrs are the identification fields a collapsed row takes from its representative
type Attrs struct {
	Locus     string
	VTies     string
	JTies     string
	CDR3NT    string
	CDR3AA    string
	Germline  string
	VIdentity float64
	Padding   int
	Partial   bool
	Stop      bool
}

// Member is one row entering a collapse pass: an identified sequence for the
// sample pass, a sample scope row for the subject pass
type Member struct {
	ID       int64
	SampleID int64
	Text     string
	Copies   int
	Attrs
}

// Row is a collapsed group ready to store
type Row struct {
	collapse.Group
	Attrs
}
