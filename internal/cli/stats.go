package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/heartmarshall/modix-backend/internal/adapter/postgres"
	"github.com/heartmarshall/modix-backend/internal/adapter/postgres/stats"
	"github.com/heartmarshall/modix-backend/internal/config"
)

// StatsOptions holds flags for the stats command.
type StatsOptions struct {
	*RootOptions
	GuildID uint64
	Since   time.Duration
	Top     int
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print a moderation report for one guild",
		Long: `Print infraction counts, the most active moderators and open activity
for a guild over a trailing window.

Examples:
  modix stats --guild 1234567890 --since 720h
  modix stats --guild 1234567890 --top 10 --format json`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			pool, err := postgres.NewPool(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer pool.Close()

			report, err := stats.New(pool).Report(ctx, opts.GuildID, time.Now().Add(-opts.Since), opts.Top)
			if err != nil {
				return err
			}
			return writeReport(cmd.OutOrStdout(), opts.Format, report)
		},
	}

	cmd.Flags().Uint64Var(&opts.GuildID, "guild", 0, "guild id (required)")
	cmd.Flags().DurationVar(&opts.Since, "since", 30*24*time.Hour, "report window")
	cmd.Flags().IntVar(&opts.Top, "top", 5, "number of moderators to list")
	_ = cmd.MarkFlagRequired("guild")

	return cmd
}

func (o *StatsOptions) validate() error {
	if o.GuildID == 0 {
		return fmt.Errorf("--guild must be a non-zero guild id")
	}
	if o.Since <= 0 {
		return fmt.Errorf("--since must be positive, got %s", o.Since)
	}
	if o.Top < 0 {
		return fmt.Errorf("--top must not be negative, got %d", o.Top)
	}
	return nil
}
