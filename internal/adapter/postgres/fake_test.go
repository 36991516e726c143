package postgres

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"
)

// fakeTx records how a transaction ended. Statement methods are not
// implemented and panic through the embedded nil interface.
type fakeTx struct {
	pgx.Tx

	mu        sync.Mutex
	commits   int
	rollbacks int
	commitErr error
}

func (t *fakeTx) Commit(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.commitErr != nil {
		return t.commitErr
	}
	t.commits++
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.commits > 0 {
		return pgx.ErrTxClosed
	}
	t.rollbacks++
	return nil
}

func (t *fakeTx) ended() (commits, rollbacks int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.commits, t.rollbacks
}

type fakeDB struct {
	DB

	mu   sync.Mutex
	txs  []*fakeTx
	opts []pgx.TxOptions
}

func (d *fakeDB) BeginTx(_ context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	tx := &fakeTx{}
	d.txs = append(d.txs, tx)
	d.opts = append(d.opts, opts)
	return tx, nil
}

func (d *fakeDB) begun() []*fakeTx {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*fakeTx(nil), d.txs...)
}
