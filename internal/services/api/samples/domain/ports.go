package domain

import "context"

// ServicePort defines the service contract for samples
type ServicePort interface {
	List(ctx context.Context, in ListInput) (Page[Sample], error)
	Sequences(ctx context.Context, sampleID int64, in SequencesInput) (Page[Sequence], error)
}
