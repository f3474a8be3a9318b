package domain

import (
	"repertoire/internal/core/cluster"
	clonesdom "repertoire/internal/services/clones/domain"
)

// Assoc ties a subject level sequence to a clone. On import CloneID is only
// a label grouping the file's rows
type Assoc struct {
	SeqID   int64
	CloneID int64
}

// Selection narrows an export; empty fields select everything
type Selection struct {
	CloneIDs []int64
	Subjects []string
	Locus    string
}

// ImportInput controls how an association file is applied
type ImportInput struct {
	// Delimiter separates fields; zero means tab
	Delimiter rune

	// Regen replaces scopes that already have clones
	Regen bool
}

// Located is a sequence with the scope it belongs to
type Located struct {
	Scope clonesdom.Scope
	Seq   cluster.Seq
}
