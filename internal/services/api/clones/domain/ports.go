package domain

import (
	"context"
	"io"

	"repertoire/internal/core/lineage"
	treesdom "repertoire/internal/services/trees/domain"
)

// ServicePort defines the read contract the clones endpoints serve
type ServicePort interface {
	List(ctx context.Context, in ListInput) (Page, error)
	Get(ctx context.Context, id int64) (CloneDetail, error)
	Tree(ctx context.Context, id int64, in TreeInput) (*treesdom.Result, error)
	Export(ctx context.Context, w io.Writer, id int64) (int, error)
}

// Overlay applies the present overrides to base
func (in TreeInput) Overlay(base lineage.Filters) lineage.Filters {
	if in.MinMutCopies != nil {
		base.MinMutCopies = *in.MinMutCopies
	}
	if in.MinMutSamples != nil {
		base.MinMutSamples = *in.MinMutSamples
	}
	if in.MinSeqCopies != nil {
		base.MinSeqCopies = *in.MinSeqCopies
	}
	if in.MinSeqSamples != nil {
		base.MinSeqSamples = *in.MinSeqSamples
	}
	if in.ExcludeStops != nil {
		base.ExcludeStops = *in.ExcludeStops
	}
	return base
}
