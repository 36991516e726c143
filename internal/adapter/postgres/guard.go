package postgres

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/heartmarshall/modix-backend/internal/metrics"
)

// Guard is an exclusive critical section owned by one repository, used
// where "no two active rows share a key" cannot be expressed as a unique
// index. It is reentrant along a context chain: fn may call Do again with
// the context it was given.
//
// Lock order is Guard first, then Coordinator role. Entering a Guard from
// a context that holds an open Transaction fails with ErrLockOrder.
type Guard struct {
	repository string
	sem        *semaphore.Weighted
	metrics    *metrics.Ledger
}

type guardCtxKey struct{ g *Guard }

// NewGuard creates a Guard. repository labels logs and metrics.
func NewGuard(repository string, m *metrics.Ledger) *Guard {
	return &Guard{
		repository: repository,
		sem:        semaphore.NewWeighted(1),
		metrics:    m,
	}
}

// Do runs fn while holding the guard.
func (g *Guard) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(guardCtxKey{g}) != nil {
		return fn(ctx)
	}
	if holdsHandle(ctx) {
		return fmt.Errorf("%s guard: %w", g.repository, ErrLockOrder)
	}

	start := time.Now()
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%s guard: %w", g.repository, err)
	}
	defer g.sem.Release(1)
	g.metrics.ObserveLockWait(g.repository, "guard", time.Since(start))

	return fn(context.WithValue(ctx, guardCtxKey{g}, struct{}{}))
}

// CreateIfAbsent runs exists and, only if it reports no match, create, with
// both calls inside g. It returns nil when a match already existed.
//
// create must commit before returning for the guarantee to hold across
// callers; inside an enclosing transaction uniqueness is only as strong as
// that transaction's isolation.
func CreateIfAbsent(
	ctx context.Context,
	g *Guard,
	exists func(ctx context.Context) (bool, error),
	create func(ctx context.Context) (int64, error),
) (*int64, error) {
	var created *int64

	err := g.Do(ctx, func(ctx context.Context) error {
		found, err := exists(ctx)
		if err != nil {
			return fmt.Errorf("check existing: %w", err)
		}
		if found {
			return nil
		}

		id, err := create(ctx)
		if err != nil {
			return err
		}
		created = &id
		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}
