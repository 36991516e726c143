package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/semaphore"

	"github.com/heartmarshall/modix-backend/internal/metrics"
)

// Coordinator hands out transaction handles for the write roles of one
// repository. At most one handle per role is in flight; further callers
// wait for it to be closed or for their context to be cancelled.
type Coordinator struct {
	db         DB
	repository string
	metrics    *metrics.Ledger

	mu    sync.Mutex
	roles map[string]*semaphore.Weighted
}

// NewCoordinator creates a Coordinator. repository labels logs and metrics.
func NewCoordinator(db DB, repository string, m *metrics.Ledger) *Coordinator {
	return &Coordinator{
		db:         db,
		repository: repository,
		metrics:    m,
		roles:      make(map[string]*semaphore.Weighted),
	}
}

func (c *Coordinator) role(name string) *semaphore.Weighted {
	c.mu.Lock()
	defer c.mu.Unlock()

	sem, ok := c.roles[name]
	if !ok {
		sem = semaphore.NewWeighted(1)
		c.roles[name] = sem
	}
	return sem
}

// BeginTransaction waits for role to be free and returns a handle owning it.
// When ctx already carries a transaction the handle joins it: Commit and
// Close then leave the enclosing transaction to its owner.
//
// The handle must be closed. Closing an uncommitted handle rolls back.
func (c *Coordinator) BeginTransaction(ctx context.Context, role string) (*Transaction, error) {
	sem := c.role(role)

	start := time.Now()
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%s: wait for %s: %w", c.repository, role, err)
	}
	c.metrics.ObserveLockWait(c.repository, "role:"+role, time.Since(start))

	t := &Transaction{release: func() { sem.Release(1) }}

	if state, ok := txFromCtx(ctx); ok {
		t.state = state
		t.ctx = context.WithValue(ctx, handleCtxKey{}, t)
		return t, nil
	}

	tx, err := c.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		sem.Release(1)
		return nil, fmt.Errorf("begin transaction: %w", err)
	}

	txCtx, state := withTx(ctx, tx)
	t.state = state
	t.owned = true
	t.ctx = context.WithValue(txCtx, handleCtxKey{}, t)
	return t, nil
}

// Run begins a transaction for role, calls fn with its context and commits
// when fn succeeds. The handle is always closed, so any failure rolls back.
func (c *Coordinator) Run(ctx context.Context, role string, fn func(ctx context.Context) error) (err error) {
	t, err := c.BeginTransaction(ctx, role)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := t.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := fn(t.Context()); err != nil {
		return err
	}
	return t.Commit(ctx)
}

type handleCtxKey struct{}

// holdsHandle reports whether ctx was derived from an open Transaction.
func holdsHandle(ctx context.Context) bool {
	t, ok := ctx.Value(handleCtxKey{}).(*Transaction)
	if !ok {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.closed
}

// Transaction is a role-scoped handle returned by Coordinator.BeginTransaction.
type Transaction struct {
	ctx     context.Context
	state   *txState
	owned   bool
	release func()

	mu        sync.Mutex
	committed bool
	closed    bool
}

// Context returns the context statements of this transaction must run with.
func (t *Transaction) Context() context.Context { return t.ctx }

// Querier returns the underlying transaction.
func (t *Transaction) Querier() Querier { return t.state.tx }

// AfterCommit registers fn to run once the outermost transaction commits.
func (t *Transaction) AfterCommit(fn func(context.Context)) {
	t.state.onCommit(fn)
}

// Commit commits an owned transaction and runs its AfterCommit callbacks.
// On a joined transaction it only marks the handle as committed.
func (t *Transaction) Commit(ctx context.Context) error {
	t.mu.Lock()

	if t.closed {
		t.mu.Unlock()
		return ErrTransactionClosed
	}
	if t.committed {
		t.mu.Unlock()
		return nil
	}

	if t.owned {
		if err := t.state.tx.Commit(ctx); err != nil {
			t.mu.Unlock()
			return fmt.Errorf("commit transaction: %w", err)
		}
	}
	t.committed = true
	t.mu.Unlock()

	if t.owned {
		t.state.committed(ctx)
	}
	return nil
}

// Close releases the role. An owned transaction that was not committed is
// rolled back, even if ctx is already cancelled. Close is idempotent.
func (t *Transaction) Close(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	defer t.release()

	if !t.owned || t.committed {
		return nil
	}

	err := t.state.tx.Rollback(context.WithoutCancel(ctx))
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("rollback transaction: %w", err)
	}
	return nil
}
