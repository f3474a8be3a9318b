package domain

import (
	"fmt"

	"repertoire/internal/core/cluster"
)

// RunInput selects the algorithm and its thresholds
type RunInput struct {
	Mode       cluster.Mode
	Filters    cluster.Filters
	Similarity cluster.SimilarityConfig
	Lineage    cluster.LineageConfig

	// Regen deletes a scope's clones before recomputing it
	Regen bool
}

// Level is the CDR3 level buckets are keyed on
func (in RunInput) Level() cluster.Level {
	if in.Mode == cluster.ModeSimilarity && in.Similarity.Level != "" {
		return in.Similarity.Level
	}
	return cluster.LevelNT
}

// Scope is the unit a lease covers
type Scope struct {
	SubjectID int64
	Subject   string
	Locus     string
}

func (s Scope) String() string { return fmt.Sprintf("%s/%s", s.Subject, s.Locus) }

// NewClone is a clone about to be stored
type NewClone struct {
	cluster.Clone
	Mode     cluster.Mode
	Level    cluster.Level
	ParentID int64
	Depth    int
}

// Stat is one clone's presence in a sample. SampleID 0 holds clone wide totals
type Stat struct {
	SampleID int64
	Unique   int
	Total    int
}

// StatRow is a Stat flattened for the analytics sink
type StatRow struct {
	RunID   string
	CloneID int64
	Subject string
	Locus   string
	Stat
}
