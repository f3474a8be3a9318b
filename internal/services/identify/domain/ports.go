// Package domain defines the identify stage ports and types
package domain

import (
	"context"

	"repertoire/internal/platform/report"
)

// RunnerPort is what the CLI drives
type RunnerPort interface {
	// IdentifySample aligns one sample's reads and stores them in one transaction
	IdentifySample(ctx context.Context, s Sample) (Counts, error)

	// IdentifyAll runs samples concurrently. Per sample failures land in the
	// summary; only configuration errors are returned
	IdentifyAll(ctx context.Context, samples []Sample) (*report.Summary, error)
}

// StorageRepo is every write the identify stage performs
type StorageRepo interface {
	// UpsertSubject returns the id for identifier, creating it when missing
	UpsertSubject(ctx context.Context, identifier string) (int64, error)

	// SampleState returns the sample id (0 when missing) and whether it was identified
	SampleState(ctx context.Context, name string) (id int64, identified bool, err error)

	// UpsertSample creates or updates the sample row
	UpsertSample(ctx context.Context, subjectID int64, s Sample) (int64, error)

	// ClearSample drops a sample's sequences; collapsed samples are a consistency error
	ClearSample(ctx context.Context, sampleID int64) error

	// InsertSequences stores identified sequences and returns how many were written
	InsertSequences(ctx context.Context, sampleID int64, seqs []Sequence) (int, error)

	// FinishSample stamps read totals and identified_at
	FinishSample(ctx context.Context, sampleID int64, c Counts) error
}
