package store

import "context"

type runIDKey struct{}

// WithRunID attaches a pipeline run id to the context
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunID retrieves a non empty run id from context
func RunID(ctx context.Context) (string, bool) {
	s, _ := ctx.Value(runIDKey{}).(string)
	return s, s != ""
}
