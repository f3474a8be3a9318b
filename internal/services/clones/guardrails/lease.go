// Package guardrails provides the scope lease and timeout budgets for clustering
package guardrails

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"repertoire/internal/platform/store"
	"repertoire/internal/services/clones/domain"
)

// ErrLeaseHeld signals another worker is clustering the scope
var ErrLeaseHeld = fmt.Errorf("clones: scope lease already held")

// Lease runs do while holding the scope
type Lease func(ctx context.Context, sc domain.Scope, do func(context.Context) error) error

// MakeScopeLease claims a cluster_leases row per (subject, locus). Expired
// claims are taken over, so do runs on a context that ends no later than
// the claim does. The claim is released when do returns
func MakeScopeLease(db store.TxRunner, owner string, ttl time.Duration) Lease {
	owner = fmt.Sprintf("%s:%d", owner, os.Getpid())

	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	toInterval := func(d time.Duration) string { return fmt.Sprintf("%d seconds", int64(d/time.Second)) }

	return func(ctx context.Context, sc domain.Scope, do func(context.Context) error) error {
		start := time.Now()
		var claimed bool
		if err := db.Tx(ctx, func(q store.RowQuerier) error {
			row := q.QueryRow(ctx, `
				INSERT INTO cluster_leases (subject_id, locus, lease_owner, lease_claimed_at, lease_expires_at)
				VALUES ($1, $2, $3, now(), now() + ($4)::interval)
				ON CONFLICT (subject_id, locus) DO UPDATE
				   SET lease_owner = EXCLUDED.lease_owner,
				       lease_claimed_at = EXCLUDED.lease_claimed_at,
				       lease_expires_at = EXCLUDED.lease_expires_at
				 WHERE cluster_leases.lease_claimed_at IS NULL
				    OR cluster_leases.lease_expires_at <= now()
				RETURNING true
			`, sc.SubjectID, sc.Locus, owner, toInterval(ttl))
			err := row.Scan(&claimed)
			if errors.Is(err, store.ErrNoRows) {
				return nil
			}
			return err
		}); err != nil {
			return err
		}
		if !claimed {
			return ErrLeaseHeld
		}

		defer func() {
			// release on a fresh context so a cancelled run still frees the scope
			rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			_ = db.Tx(rctx, func(q store.RowQuerier) error {
				_, err := q.Exec(rctx, `
					UPDATE cluster_leases
					   SET lease_owner = NULL, lease_claimed_at = NULL, lease_expires_at = NULL
					 WHERE subject_id = $1 AND locus = $2 AND lease_owner = $3
				`, sc.SubjectID, sc.Locus, owner)
				return err
			})
		}()
		wctx, cancel := context.WithDeadline(ctx, start.Add(ttl))
		defer cancel()
		return do(wctx)
	}
}
