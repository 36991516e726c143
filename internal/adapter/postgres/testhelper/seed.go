package testhelper

import (
	"context"
	"encoding/binary"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/modix-backend/internal/adapter/postgres"
	"github.com/heartmarshall/modix-backend/internal/domain"
)

// NewSnowflake returns a random positive id. Tests share one database, so
// every test scopes its rows to a fresh guild id.
func NewSnowflake() uint64 {
	id := uuid.New()
	return binary.BigEndian.Uint64(id[:8]) >> 1
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }

// Deps returns repository dependencies backed by pool that record every
// published event in rec.
func Deps(pool *pgxpool.Pool, rec *Recorder) postgres.Deps {
	d := postgres.Deps{
		DB:          pool,
		MaxPageSize: 10,
	}
	if rec != nil {
		d.Publisher = rec
	}
	return d.WithDefaults()
}

// Recorder is a postgres.Publisher that keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []domain.ActionCreated
}

func (r *Recorder) Publish(_ context.Context, ev domain.ActionCreated) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []domain.ActionCreated {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ActionCreated(nil), r.events...)
}

// CountRows returns the number of rows of table whose guild_id is guildID.
func CountRows(t *testing.T, pool *pgxpool.Pool, table string, guildID uint64) int {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var n int
	err := pool.QueryRow(ctx, `SELECT count(*) FROM `+table+` WHERE guild_id = $1`, guildID).Scan(&n)
	if err != nil {
		t.Fatalf("testhelper: count %s: %v", table, err)
	}
	return n
}
