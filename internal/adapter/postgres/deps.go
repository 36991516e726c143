package postgres

import (
	"log/slog"
	"time"

	"github.com/heartmarshall/modix-backend/internal/domain"
	"github.com/heartmarshall/modix-backend/internal/metrics"
)

// Deps is what every repository is constructed from. Each repository
// builds its own Coordinator and Guard from it, so lock state belongs to
// the repository instance.
type Deps struct {
	DB          DB
	Tx          *TxManager
	Publisher   Publisher
	Metrics     *metrics.Ledger
	Log         *slog.Logger
	Now         func() time.Time
	MaxPageSize int
}

// WithDefaults fills the optional fields.
func (d Deps) WithDefaults() Deps {
	if d.Tx == nil {
		d.Tx = NewTxManager(d.DB)
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.MaxPageSize <= 0 {
		d.MaxPageSize = domain.DefaultMaxPageSize
	}
	return d
}

// Clock returns the current time at the precision PostgreSQL stores.
func (d Deps) Clock() time.Time {
	return d.Now().UTC().Truncate(time.Microsecond)
}
