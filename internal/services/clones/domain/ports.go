// Package domain defines the clonal clustering ports and types
package domain

import (
	"context"

	"repertoire/internal/core/cluster"
	"repertoire/internal/platform/report"
)

// RunnerPort is what the CLI drives
type RunnerPort interface {
	// Run clusters every (subject, locus) scope the filters select
	Run(ctx context.Context, in RunInput) (*report.Summary, error)
}

// StorageRepo is every read and write clustering performs
type StorageRepo interface {
	// Scopes lists subject and locus pairs with subject scope sequences
	Scopes(ctx context.Context, subjects []string, locus string) ([]Scope, error)

	// PendingSamples counts a subject's samples that are not collapsed yet
	PendingSamples(ctx context.Context, subjectID int64) (int, error)

	// HasClones reports whether the scope already has clones
	HasClones(ctx context.Context, sc Scope) (bool, error)

	// DeleteScope removes the scope's clones and everything they own
	DeleteScope(ctx context.Context, sc Scope) (int64, error)

	// Sequences loads the scope's subject level sequences
	Sequences(ctx context.Context, sc Scope) ([]cluster.Seq, error)

	// InsertClone stores one clone with its members at depth and returns its id
	InsertClone(ctx context.Context, sc Scope, c NewClone) (int64, error)

	// InsertStats stores per sample statistics of a clone
	InsertStats(ctx context.Context, cloneID int64, stats []Stat) error
}

// StatsSink receives clone statistics for analytics; optional
type StatsSink interface {
	WriteStats(ctx context.Context, rows []StatRow) error
}
