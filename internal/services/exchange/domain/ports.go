// Package domain defines clone association import and export
package domain

import (
	"context"
	"io"

	"repertoire/internal/platform/report"
)

// ExchangePort moves (sequence id, clone id) associations in and out
type ExchangePort interface {
	// Export writes the associations of the selected top level clones
	Export(ctx context.Context, w io.Writer, sel Selection) (int, error)

	// Import replaces the clones of every scope the file touches
	Import(ctx context.Context, r io.Reader, in ImportInput) (*report.Summary, error)
}

// StorageRepo is the reads exchange needs beyond the clones repo
type StorageRepo interface {
	// Associations lists top level memberships in clone, then sequence order
	Associations(ctx context.Context, sel Selection) ([]Assoc, error)

	// Located loads subject level sequences by id with their scope
	Located(ctx context.Context, ids []int64) ([]Located, error)
}
