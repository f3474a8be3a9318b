// Package domain defines the lineage tree rendering ports and types
package domain

import (
	"context"

	"repertoire/internal/core/lineage"
	"repertoire/internal/platform/report"
)

// RendererPort renders and caches lineage trees
type RendererPort interface {
	// Render returns the tree of one clone, reusing the stored one when its
	// membership and filters still match unless force is set
	Render(ctx context.Context, cloneID int64, f lineage.Filters, force bool) (*Result, error)

	// RenderAll renders every clone the input selects
	RenderAll(ctx context.Context, in RenderAllInput) (*report.Summary, error)
}

// StorageRepo is every read and write rendering performs
type StorageRepo interface {
	// CloneInput loads a clone's germline and fixed membership
	CloneInput(ctx context.Context, cloneID int64) (lineage.RenderInput, error)

	// StoredTree returns the cached tree of a clone, or perr.ErrNotFound
	StoredTree(ctx context.Context, cloneID int64) (*lineage.Rendered, error)

	// SaveTree upserts a clone's tree
	SaveTree(ctx context.Context, t *lineage.Rendered) error

	// CloneIDs lists clones of the subjects and locus, all when empty
	CloneIDs(ctx context.Context, subjects []string, locus string) ([]int64, error)
}
