// Package stats implements read-only reports over the action ledgers.
// The queries are not transactional with writes.
package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/modix-backend/internal/domain"
)

// Repo runs report queries against the pool.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new stats repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const infractionCountsSQL = `
SELECT i.type, count(*)
FROM infractions i
JOIN moderation_actions ca ON ca.id = i.create_action_id
WHERE i.guild_id = $1
  AND ca.created >= $2
  AND i.delete_action_id IS NULL
GROUP BY i.type`

// InfractionCounts returns the number of undeleted infractions per type
// created in guildID since since.
func (r *Repo) InfractionCounts(ctx context.Context, guildID uint64, since time.Time) (map[domain.InfractionType]int, error) {
	rows, err := r.pool.Query(ctx, infractionCountsSQL, guildID, since)
	if err != nil {
		return nil, fmt.Errorf("infraction counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.InfractionType]int)
	for rows.Next() {
		var (
			tp string
			n  int
		)
		if err := rows.Scan(&tp, &n); err != nil {
			return nil, fmt.Errorf("scan infraction count: %w", err)
		}
		counts[domain.InfractionType(tp)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("infraction counts: %w", err)
	}
	return counts, nil
}

const topModeratorsSQL = `
SELECT created_by_id, count(*), max(created)
FROM moderation_actions
WHERE guild_id = $1 AND created >= $2
GROUP BY created_by_id
ORDER BY count(*) DESC, created_by_id
LIMIT $3`

// TopModerators returns the staff members with the most moderation actions
// in guildID since since, most active first.
func (r *Repo) TopModerators(ctx context.Context, guildID uint64, since time.Time, limit int) ([]domain.ModeratorActivity, error) {
	if limit <= 0 {
		return []domain.ModeratorActivity{}, nil
	}

	rows, err := r.pool.Query(ctx, topModeratorsSQL, guildID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("top moderators: %w", err)
	}
	defer rows.Close()

	out := []domain.ModeratorActivity{}
	for rows.Next() {
		var a domain.ModeratorActivity
		if err := rows.Scan(&a.UserID, &a.ActionCount, &a.LastAction); err != nil {
			return nil, fmt.Errorf("scan moderator: %w", err)
		}
		a.LastAction = a.LastAction.UTC()
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("top moderators: %w", err)
	}
	return out, nil
}

const activityCountsSQL = `
SELECT
    (SELECT count(*) FROM tags WHERE guild_id = $1 AND delete_action_id IS NULL),
    (SELECT count(*) FROM promotion_campaigns WHERE guild_id = $1 AND close_action_id IS NULL)`

// Report assembles the guild report.
func (r *Repo) Report(ctx context.Context, guildID uint64, since time.Time, top int) (domain.GuildReport, error) {
	report := domain.GuildReport{GuildID: guildID, Since: since.UTC()}

	var err error
	if report.Infractions, err = r.InfractionCounts(ctx, guildID, since); err != nil {
		return report, err
	}
	if report.TopModerators, err = r.TopModerators(ctx, guildID, since, top); err != nil {
		return report, err
	}
	if err := r.pool.QueryRow(ctx, activityCountsSQL, guildID).Scan(&report.ActiveTags, &report.OpenCampaigns); err != nil {
		return report, fmt.Errorf("activity counts: %w", err)
	}
	return report, nil
}
