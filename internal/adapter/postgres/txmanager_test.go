package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/modix-backend/internal/adapter/postgres"
	"github.com/heartmarshall/modix-backend/internal/adapter/postgres/testhelper"
)

const insertTagAction = `INSERT INTO tag_actions (guild_id, type, created, created_by_id)
	 VALUES ($1, 'TAG_CREATED', now(), 1)`

// actionCount returns the number of tag actions recorded for guildID.
func actionCount(t *testing.T, pool *pgxpool.Pool, guildID uint64) int {
	t.Helper()
	return testhelper.CountRows(t, pool, "tag_actions", guildID)
}

func TestRunInTx_Commit(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	tm := postgres.NewTxManager(pool)
	guildID := testhelper.NewSnowflake()

	committed := false
	err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
		postgres.AfterCommit(ctx, func(context.Context) { committed = true })
		_, err := postgres.QuerierFromCtx(ctx, pool).Exec(ctx, insertTagAction, guildID)
		return err
	})
	if err != nil {
		t.Fatalf("RunInTx returned error: %v", err)
	}

	if got := actionCount(t, pool, guildID); got != 1 {
		t.Fatalf("expected 1 action after committed transaction, got %d", got)
	}
	if !committed {
		t.Fatal("expected AfterCommit callback to run")
	}
}

func TestRunInTx_RollbackOnError(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	tm := postgres.NewTxManager(pool)
	guildID := testhelper.NewSnowflake()
	sentinel := errors.New("business logic error")

	committed := false
	err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
		postgres.AfterCommit(ctx, func(context.Context) { committed = true })
		if _, err := postgres.QuerierFromCtx(ctx, pool).Exec(ctx, insertTagAction, guildID); err != nil {
			t.Fatalf("insert inside tx failed: %v", err)
		}
		return sentinel
	})

	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got: %v", err)
	}
	if got := actionCount(t, pool, guildID); got != 0 {
		t.Fatalf("expected no actions after rolled-back transaction, got %d", got)
	}
	if committed {
		t.Fatal("AfterCommit callback must not run on rollback")
	}
}

func TestRunInTx_RollbackOnPanic(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	tm := postgres.NewTxManager(pool)
	guildID := testhelper.NewSnowflake()

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic to be re-raised")
		}
		if r != "test panic" {
			t.Fatalf("expected panic value %q, got %v", "test panic", r)
		}

		if got := actionCount(t, pool, guildID); got != 0 {
			t.Fatalf("expected no actions after panic-rolled-back transaction, got %d", got)
		}
	}()

	_ = tm.RunInTx(context.Background(), func(ctx context.Context) error {
		if _, err := postgres.QuerierFromCtx(ctx, pool).Exec(ctx, insertTagAction, guildID); err != nil {
			t.Fatalf("insert inside tx failed: %v", err)
		}
		panic("test panic")
	})
}

func TestRunInTx_NestedJoinsOuter(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	tm := postgres.NewTxManager(pool)
	guildID := testhelper.NewSnowflake()
	sentinel := errors.New("outer failure")

	err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
		inner := tm.RunInTx(ctx, func(ctx context.Context) error {
			_, err := postgres.QuerierFromCtx(ctx, pool).Exec(ctx, insertTagAction, guildID)
			return err
		})
		if inner != nil {
			t.Fatalf("inner RunInTx returned error: %v", inner)
		}
		return sentinel
	})

	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got: %v", err)
	}
	if got := actionCount(t, pool, guildID); got != 0 {
		t.Fatalf("inner write must roll back with the outer transaction, got %d actions", got)
	}
}

func TestRunInSnapshot_StableReads(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	tm := postgres.NewTxManager(pool)
	guildID := testhelper.NewSnowflake()
	ctx := context.Background()

	err := tm.RunInSnapshot(ctx, func(ctx context.Context) error {
		q := tm.Querier(ctx)

		var before int
		if err := q.QueryRow(ctx, `SELECT count(*) FROM tag_actions WHERE guild_id = $1`, guildID).Scan(&before); err != nil {
			return err
		}

		// A concurrent commit outside the snapshot.
		if _, err := pool.Exec(ctx, insertTagAction, guildID); err != nil {
			return err
		}

		var after int
		if err := q.QueryRow(ctx, `SELECT count(*) FROM tag_actions WHERE guild_id = $1`, guildID).Scan(&after); err != nil {
			return err
		}
		if before != after {
			t.Errorf("snapshot read changed from %d to %d", before, after)
		}

		if _, err := q.Exec(ctx, insertTagAction, guildID); err == nil {
			t.Error("expected write in read-only snapshot to fail")
		}
		return nil
	})
	if err == nil {
		t.Fatal("expected snapshot to end in error after failed write")
	}

	if got := actionCount(t, pool, guildID); got != 1 {
		t.Fatalf("expected only the outside insert, got %d", got)
	}
}

func TestCoordinator_CommitAndRollback(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	coord := postgres.NewCoordinator(pool, "tags", nil)
	guildID := testhelper.NewSnowflake()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Closed without commit: rolled back.
	tx, err := coord.BeginTransaction(ctx, "create")
	if err != nil {
		t.Fatalf("BeginTransaction: %v", err)
	}
	if _, err := tx.Querier().Exec(tx.Context(), insertTagAction, guildID); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := tx.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := actionCount(t, pool, guildID); got != 0 {
		t.Fatalf("expected rollback on close, got %d actions", got)
	}

	// Committed through Run.
	err = coord.Run(ctx, "create", func(ctx context.Context) error {
		_, err := postgres.QuerierFromCtx(ctx, pool).Exec(ctx, insertTagAction, guildID)
		return err
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := actionCount(t, pool, guildID); got != 1 {
		t.Fatalf("expected 1 action after Run, got %d", got)
	}
}
