package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/heartmarshall/modix-backend/internal/domain"
)

type migrationOutput struct {
	Version   int64  `json:"version"`
	Source    string `json:"source"`
	Direction string `json:"direction"`
	Duration  string `json:"duration"`
}

func writeMigrations(out io.Writer, format string, results []*goose.MigrationResult) error {
	rows := make([]migrationOutput, 0, len(results))
	for _, r := range results {
		row := migrationOutput{Direction: r.Direction, Duration: r.Duration.Round(time.Millisecond).String()}
		if r.Source != nil {
			row.Version = r.Source.Version
			row.Source = r.Source.Path
		}
		rows = append(rows, row)
	}

	if format == "json" {
		return writeJSON(out, rows)
	}

	if len(rows) == 0 {
		_, err := fmt.Fprintln(out, "no migrations applied")
		return err
	}
	for _, r := range rows {
		if _, err := fmt.Fprintf(out, "%-4s %05d %s (%s)\n", r.Direction, r.Version, r.Source, r.Duration); err != nil {
			return err
		}
	}
	return nil
}

type reportOutput struct {
	GuildID       uint64                    `json:"guild_id"`
	Since         time.Time                 `json:"since"`
	Infractions   map[string]int            `json:"infractions"`
	TopModerators []moderatorActivityOutput `json:"top_moderators"`
	ActiveTags    int                       `json:"active_tags"`
	OpenCampaigns int                       `json:"open_campaigns"`
}

type moderatorActivityOutput struct {
	UserID      uint64    `json:"user_id"`
	ActionCount int       `json:"action_count"`
	LastAction  time.Time `json:"last_action"`
}

func writeReport(out io.Writer, format string, r domain.GuildReport) error {
	if format == "json" {
		o := reportOutput{
			GuildID:       r.GuildID,
			Since:         r.Since,
			Infractions:   make(map[string]int, len(r.Infractions)),
			TopModerators: make([]moderatorActivityOutput, 0, len(r.TopModerators)),
			ActiveTags:    r.ActiveTags,
			OpenCampaigns: r.OpenCampaigns,
		}
		for t, n := range r.Infractions {
			o.Infractions[string(t)] = n
		}
		for _, m := range r.TopModerators {
			o.TopModerators = append(o.TopModerators, moderatorActivityOutput(m))
		}
		return writeJSON(out, o)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Guild\t%d\n", r.GuildID)
	fmt.Fprintf(tw, "Since\t%s\n", r.Since.Format(time.RFC3339))
	fmt.Fprintf(tw, "Active tags\t%d\n", r.ActiveTags)
	fmt.Fprintf(tw, "Open campaigns\t%d\n", r.OpenCampaigns)

	types := make([]string, 0, len(r.Infractions))
	for t := range r.Infractions {
		types = append(types, string(t))
	}
	slices.Sort(types)
	fmt.Fprintln(tw, "\nInfractions")
	if len(types) == 0 {
		fmt.Fprintln(tw, "  none")
	}
	for _, t := range types {
		fmt.Fprintf(tw, "  %s\t%d\n", strings.ToLower(t), r.Infractions[domain.InfractionType(t)])
	}

	fmt.Fprintln(tw, "\nTop moderators")
	if len(r.TopModerators) == 0 {
		fmt.Fprintln(tw, "  none")
	}
	for _, m := range r.TopModerators {
		fmt.Fprintf(tw, "  %d\t%d actions\tlast %s\n", m.UserID, m.ActionCount, m.LastAction.Format(time.RFC3339))
	}

	return tw.Flush()
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
