package postgres

import (
	"context"
	"sync"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the common interface implemented by both *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// DB is a Querier that can also open transactions. *pgxpool.Pool implements it.
type DB interface {
	Querier
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// psql builds PostgreSQL statements with $n placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Builder returns the statement builder shared by all repositories.
func Builder() sq.StatementBuilderType { return psql }

// txState is the transaction carried in a context, together with the
// callbacks to run once it commits.
type txState struct {
	tx pgx.Tx

	mu          sync.Mutex
	afterCommit []func(context.Context)
}

func (s *txState) onCommit(fn func(context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.afterCommit = append(s.afterCommit, fn)
}

func (s *txState) committed(ctx context.Context) {
	s.mu.Lock()
	hooks := s.afterCommit
	s.afterCommit = nil
	s.mu.Unlock()

	for _, fn := range hooks {
		fn(ctx)
	}
}

// unexported context key type for storing tx
type txCtxKey struct{}

// withTx puts a transaction into the context.
func withTx(ctx context.Context, tx pgx.Tx) (context.Context, *txState) {
	state := &txState{tx: tx}
	return context.WithValue(ctx, txCtxKey{}, state), state
}

func txFromCtx(ctx context.Context) (*txState, bool) {
	state, ok := ctx.Value(txCtxKey{}).(*txState)
	return state, ok
}

// QuerierFromCtx returns the transaction from context if present,
// otherwise returns the fallback (normally the pool).
func QuerierFromCtx(ctx context.Context, fallback Querier) Querier {
	if state, ok := txFromCtx(ctx); ok {
		return state.tx
	}
	return fallback
}

// AfterCommit registers fn to run after the transaction in ctx commits.
// Without a transaction in ctx, fn runs immediately.
func AfterCommit(ctx context.Context, fn func(context.Context)) {
	if state, ok := txFromCtx(ctx); ok {
		state.onCommit(fn)
		return
	}
	fn(ctx)
}
