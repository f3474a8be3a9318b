// Package domain defines the collapse stage ports and types
package domain

import (
	"context"

	"repertoire/internal/platform/report"
)

// RunnerPort is what the CLI drives
type RunnerPort interface {
	// CollapseSamples collapses each named sample, or every pending sample when
	// names is empty, and returns the subjects it touched in the summary
	CollapseSamples(ctx context.Context, names []string) (*report.Summary, []string, error)

	// CollapseSubjects merges each subject's sample groups
	CollapseSubjects(ctx context.Context, subjects []string) (*report.Summary, error)
}

// StorageRepo is every read and write the collapse stage performs
type StorageRepo interface {
	// Samples lists identified samples; names narrows the list, force
	// includes samples that were collapsed before
	Samples(ctx context.Context, names []string, force bool) ([]SampleRef, error)

	// SampleMembers returns the accepted identified sequences of a sample
	SampleMembers(ctx context.Context, sampleID int64) ([]Member, error)

	// ReplaceSampleGroups swaps the sample scope rows of a sample and stamps collapsed_at
	ReplaceSampleGroups(ctx context.Context, s SampleRef, rows []Row) error

	// Subjects resolves subject identifiers; an empty list means every subject
	Subjects(ctx context.Context, identifiers []string) ([]SubjectRef, error)

	// PendingSamples counts samples of a subject not yet collapsed
	PendingSamples(ctx context.Context, subjectID int64) (int, error)

	// HasClones reports whether any clone references the subject
	HasClones(ctx context.Context, subjectID int64) (bool, error)

	// ClearClones removes the subject's clones and everything they own
	ClearClones(ctx context.Context, subjectID int64) error

	// SubjectMembers returns the sample scope rows of a subject
	SubjectMembers(ctx context.Context, subjectID int64) ([]Member, error)

	// ReplaceSubjectGroups swaps the subject scope rows of a subject
	ReplaceSubjectGroups(ctx context.Context, subjectID int64, rows []Row) error
}
