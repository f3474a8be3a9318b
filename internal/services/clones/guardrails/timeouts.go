package guardrails

import (
	"context"
	"fmt"
	"time"

	"repertoire/internal/modkit/repokit"
)

// Timeouts is an optional budget bundle for one scope.
// Zero values mean no extra timeout at that level
type Timeouts struct {
	// Scope is the overall budget for one (subject, locus) pass
	Scope time.Duration

	// Tree caps one bucket's tree builds in lineage mode
	Tree time.Duration

	// DB caps one bucket's write transaction
	DB time.Duration
}

// WithScope returns a context limited by the scope budget without extending any parent deadline
func WithScope(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Scope)
}

// ForTree returns a sub context for tree building bounded by Tree and any remaining parent budget
func ForTree(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Tree)
}

// ForDB returns a sub context for the write phase bounded by DB and any remaining parent budget
func ForDB(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.DB)
}

// Remaining returns the time until the deadline on ctx or zero when none is set or already expired
func Remaining(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		d := time.Until(dl)
		if d > 0 {
			return d
		}
	}
	return 0
}

// withChildTimeout chooses the tighter of the requested duration and any parent remainder.
// Never extends the parent deadline
func withChildTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	if rem := Remaining(parent); rem > 0 && rem < d {
		return context.WithTimeout(parent, rem)
	}
	return context.WithTimeout(parent, d)
}

// LockTimeout makes row lock waits inside a transaction fail after d, 0 leaves the server default
func LockTimeout(d time.Duration) repokit.BeginHook {
	return func(ctx context.Context, q repokit.Queryer) error {
		if d <= 0 {
			return nil
		}
		_, err := q.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = %d", d.Milliseconds()))
		return err
	}
}
