package domain

import "repertoire/internal/core/lineage"

// Result is a rendered tree and whether it came from the store
type Result struct {
	Tree   *lineage.Rendered
	Cached bool
}

// RenderAllInput selects clones for a batch render
type RenderAllInput struct {
	CloneIDs []int64
	Subjects []string
	Locus    string
	Filters  lineage.Filters
	Force    bool
}
