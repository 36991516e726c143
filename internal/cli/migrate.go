package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/heartmarshall/modix-backend/internal/adapter/postgres"
	"github.com/heartmarshall/modix-backend/internal/config"
	"github.com/heartmarshall/modix-backend/migrations"
)

// MigrateOptions holds flags for the migrate command.
type MigrateOptions struct {
	*RootOptions
	Down bool
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MigrateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded schema migrations",
		Long: `Apply every pending migration, or roll back the latest one with --down.

Examples:
  modix migrate
  modix migrate --down`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return runMigrate(cmd.Context(), cmd.OutOrStdout(), cfg.Database, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Down, "down", false, "roll back the most recent migration")

	return cmd
}

func runMigrate(ctx context.Context, out io.Writer, dbCfg config.DatabaseConfig, opts *MigrateOptions) error {
	pool, err := postgres.NewPool(ctx, dbCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("goose new provider: %w", err)
	}

	var results []*goose.MigrationResult
	if opts.Down {
		res, err := provider.Down(ctx)
		if err != nil {
			return fmt.Errorf("goose down: %w", err)
		}
		if res != nil {
			results = append(results, res)
		}
	} else {
		results, err = provider.Up(ctx)
		if err != nil {
			return fmt.Errorf("goose up: %w", err)
		}
	}

	return writeMigrations(out, opts.Format, results)
}
