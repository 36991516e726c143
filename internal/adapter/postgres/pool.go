package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/modix-backend/internal/config"
)

// ApplicationName tags ledger sessions in pg_stat_activity unless the DSN
// already names one. Row locks taken by AppendTerminal and the guard show up
// under it when diagnosing lock waits.
const ApplicationName = "modix-ledger"

// NewPool opens the pool every ledger repository, the coordinator and the
// migrator share. The database is pinged before returning so the bot refuses
// to start against an unreachable ledger.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := ledgerPoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open ledger pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping ledger database: %w", err)
	}

	return pool, nil
}

// ledgerPoolConfig maps DatabaseConfig onto pgxpool settings.
func ledgerPoolConfig(cfg config.DatabaseConfig) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse ledger DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime

	params := poolCfg.ConnConfig.RuntimeParams
	if params["application_name"] == "" {
		params["application_name"] = ApplicationName
	}

	return poolCfg, nil
}
