// Package infraction implements the infraction repository and its
// moderation action ledger using PostgreSQL.
package infraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	postgres "github.com/heartmarshall/modix-backend/internal/adapter/postgres"
	"github.com/heartmarshall/modix-backend/internal/domain"
)

const (
	roleCreate = "create"
	roleUpdate = "update"
	roleDelete = "delete"
)

const expiresExpr = "(ca.created + i.duration_ms * interval '1 millisecond')"

// Repo provides infraction persistence backed by PostgreSQL.
type Repo struct {
	deps    postgres.Deps
	coord   *postgres.Coordinator
	actions *postgres.Ledger[domain.ModerationActionType]
	log     *slog.Logger
}

// New creates a new infraction repository.
func New(deps postgres.Deps) *Repo {
	deps = deps.WithDefaults()
	return &Repo{
		deps:    deps,
		coord:   postgres.NewCoordinator(deps.DB, "infraction", deps.Metrics),
		actions: postgres.NewLedger(postgres.ModerationFamily, deps),
		log:     deps.Log.With("repository", "infraction"),
	}
}

// Actions returns the moderation action ledger.
func (r *Repo) Actions() *postgres.Ledger[domain.ModerationActionType] { return r.actions }

// ---------------------------------------------------------------------------
// Write operations
// ---------------------------------------------------------------------------

// Create records a new infraction together with its creation action.
func (r *Repo) Create(ctx context.Context, data *domain.InfractionCreationData) (int64, error) {
	if data == nil {
		return 0, domain.NewValidationError("data", "required")
	}
	if err := data.Validate(); err != nil {
		return 0, err
	}

	var id int64
	err := r.coord.Run(ctx, roleCreate, func(ctx context.Context) error {
		e, err := r.actions.AppendCreate(ctx, domain.ModerationAction{
			GuildID:     data.GuildID,
			Type:        domain.ModerationActionInfractionCreated,
			CreatedByID: data.CreatedByID,
		}, func(ctx context.Context, q postgres.Querier, actionID int64) (int64, error) {
			return insert(ctx, q, data, actionID)
		})
		if err != nil {
			return err
		}
		id = *e.TargetID
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("create infraction: %w", err)
	}

	r.log.InfoContext(ctx, "infraction created",
		slog.Int64("infraction_id", id),
		slog.String("type", data.Type.String()),
	)
	return id, nil
}

func insert(ctx context.Context, q postgres.Querier, data *domain.InfractionCreationData, actionID int64) (int64, error) {
	query, args, err := postgres.Builder().
		Insert("infractions").
		Columns("guild_id", "type", "reason", "duration_ms", "subject_id", "create_action_id").
		Values(data.GuildID, string(data.Type), data.Reason, postgres.MillisFromDuration(data.Duration), data.SubjectID, actionID).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}

	var id int64
	if err := q.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, postgres.MapError(err, "infraction", data.SubjectID)
	}
	return id, nil
}

// TryRescind marks an infraction as rescinded. It returns false when the
// infraction does not exist, was already rescinded or has been deleted.
func (r *Repo) TryRescind(ctx context.Context, id int64, rescindedByID uint64) (bool, error) {
	return r.terminate(ctx, roleUpdate, id, rescindedByID, domain.ModerationActionInfractionRescinded,
		postgres.Terminal{Table: "infractions", Column: "rescind_action_id", ID: id, Active: []string{"delete_action_id"}})
}

// TryDelete marks an infraction as deleted. It returns false when the
// infraction does not exist or was already deleted.
func (r *Repo) TryDelete(ctx context.Context, id int64, deletedByID uint64) (bool, error) {
	return r.terminate(ctx, roleDelete, id, deletedByID, domain.ModerationActionInfractionDeleted,
		postgres.Terminal{Table: "infractions", Column: "delete_action_id", ID: id})
}

func (r *Repo) terminate(ctx context.Context, role string, id int64, actorID uint64, tp domain.ModerationActionType, t postgres.Terminal) (bool, error) {
	var done bool
	err := r.coord.Run(ctx, role, func(ctx context.Context) error {
		e, err := r.actions.AppendTerminal(ctx, domain.ModerationAction{
			Type:        tp,
			CreatedByID: actorID,
		}, t)
		if err != nil {
			return err
		}
		done = e != nil
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%s infraction %d: %w", tp, id, err)
	}
	if done {
		r.log.InfoContext(ctx, "infraction transitioned",
			slog.Int64("infraction_id", id),
			slog.String("action", tp.String()),
		)
	}
	return done, nil
}

// TryUpdate edits the reason and duration of an active infraction. update
// receives the current values and modifies them in place. It returns false
// when the infraction does not exist or is rescinded or deleted.
func (r *Repo) TryUpdate(ctx context.Context, id int64, updatedByID uint64, update func(*domain.InfractionMutationData)) (bool, error) {
	if update == nil {
		return false, domain.NewValidationError("update", "required")
	}

	var done bool
	err := r.coord.Run(ctx, roleUpdate, func(ctx context.Context) error {
		q := r.deps.Tx.Querier(ctx)

		var (
			guildID    uint64
			durationMs *int64
			data       domain.InfractionMutationData
		)
		err := q.QueryRow(ctx, `
			SELECT guild_id, reason, duration_ms
			FROM infractions
			WHERE id = $1 AND rescind_action_id IS NULL AND delete_action_id IS NULL
			FOR UPDATE`, id,
		).Scan(&guildID, &data.Reason, &durationMs)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return postgres.MapError(err, "infraction", id)
		}
		data.Duration = postgres.DurationFromMillis(durationMs)

		update(&data)
		if err := data.Validate(); err != nil {
			return err
		}

		if _, err := q.Exec(ctx,
			`UPDATE infractions SET reason = $2, duration_ms = $3 WHERE id = $1`,
			id, data.Reason, postgres.MillisFromDuration(data.Duration),
		); err != nil {
			return postgres.MapError(err, "infraction", id)
		}

		if _, err := r.actions.Append(ctx, domain.ModerationAction{
			GuildID:     guildID,
			Type:        domain.ModerationActionInfractionUpdated,
			CreatedByID: updatedByID,
			TargetID:    &id,
		}); err != nil {
			return err
		}
		done = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("update infraction %d: %w", id, err)
	}
	return done, nil
}

// ---------------------------------------------------------------------------
// Read operations
// ---------------------------------------------------------------------------

var sortable = map[string]string{
	"id":          "i.id",
	"type":        "i.type",
	"subjectid":   "i.subject_id",
	"created":     "ca.created",
	"createdbyid": "ca.created_by_id",
	"expires":     expiresExpr,
}

func baseQuery() sq.SelectBuilder {
	cols := []string{"i.id", "i.guild_id", "i.type", "i.reason", "i.duration_ms", "i.subject_id"}
	cols = append(cols, postgres.BriefColumns("ca")...)
	cols = append(cols, postgres.BriefColumns("ra")...)
	cols = append(cols, postgres.BriefColumns("da")...)

	return postgres.Builder().
		Select(cols...).
		From("infractions i").
		Join("moderation_actions ca ON ca.id = i.create_action_id").
		LeftJoin("moderation_actions ra ON ra.id = i.rescind_action_id").
		LeftJoin("moderation_actions da ON da.id = i.delete_action_id")
}

// Compile translates criteria into a filter over the summary query.
func Compile(c domain.InfractionSearchCriteria) sq.Sqlizer {
	var crit postgres.Criteria
	postgres.Eq(&crit, "i.guild_id", c.GuildID)
	postgres.In(&crit, "i.type", postgres.Strings(c.Types))
	postgres.Eq(&crit, "i.subject_id", c.SubjectID)
	postgres.Range(&crit, "ca.created", c.CreatedRange)
	postgres.Eq(&crit, "ca.created_by_id", c.CreatedByID)
	postgres.Range(&crit, expiresExpr, c.ExpiresRange)
	postgres.Terminal(&crit, "i.rescind_action_id", c.IsRescinded)
	postgres.Terminal(&crit, "i.delete_action_id", c.IsDeleted)
	postgres.Contains(&crit, "i.reason", c.ReasonContains)
	return crit.Sqlizer()
}

func searchQuery(c domain.InfractionSearchCriteria) postgres.Query {
	return postgres.Query{Base: baseQuery(), Filter: Compile(c), Sortable: sortable, Key: "i.id"}
}

func (r *Repo) scan(row pgx.Row) (domain.InfractionSummary, error) {
	var (
		s          domain.InfractionSummary
		tp         string
		durationMs *int64
		rescind    postgres.NullBrief
		del        postgres.NullBrief
	)
	dest := []any{
		&s.ID, &s.GuildID, &tp, &s.Reason, &durationMs, &s.SubjectID,
		&s.CreateAction.ID, &s.CreateAction.Created, &s.CreateAction.CreatedByID,
	}
	dest = append(dest, rescind.Dest()...)
	dest = append(dest, del.Dest()...)
	if err := row.Scan(dest...); err != nil {
		return s, err
	}

	s.Type = domain.InfractionType(tp)
	s.Duration = postgres.DurationFromMillis(durationMs)
	s.CreateAction.Created = s.CreateAction.Created.UTC()
	s.RescindAction = rescind.Brief()
	s.DeleteAction = del.Brief()
	s.Derive(r.deps.Now())
	return s, nil
}

// ReadSummary returns the summary of one infraction.
func (r *Repo) ReadSummary(ctx context.Context, id int64) (*domain.InfractionSummary, error) {
	query, args, err := baseQuery().Where(sq.Eq{"i.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build read: %w", err)
	}

	s, err := r.scan(r.deps.Tx.Querier(ctx).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, postgres.MapError(err, "infraction", id)
	}
	return &s, nil
}

// SearchSummaries returns every infraction matching criteria.
func (r *Repo) SearchSummaries(ctx context.Context, criteria domain.InfractionSearchCriteria, sorting []domain.SortingCriteria) ([]domain.InfractionSummary, error) {
	out, err := postgres.Select(ctx, r.deps.Tx.Querier(ctx), searchQuery(criteria), sorting, r.scan)
	if err != nil {
		return nil, fmt.Errorf("search infractions: %w", err)
	}
	return out, nil
}

// SearchSummariesPaged returns one window of the infractions matching criteria.
func (r *Repo) SearchSummariesPaged(
	ctx context.Context,
	criteria domain.InfractionSearchCriteria,
	sorting []domain.SortingCriteria,
	paging domain.PagingCriteria,
) (domain.RecordsPage[domain.InfractionSummary], error) {
	page, err := postgres.Paginate(ctx, r.deps.Tx, searchQuery(criteria), sorting, paging, r.deps.MaxPageSize, r.scan)
	if err != nil {
		return page, fmt.Errorf("search infractions paged: %w", err)
	}
	return page, nil
}

// Any reports whether any infraction matches criteria.
func (r *Repo) Any(ctx context.Context, criteria domain.InfractionSearchCriteria) (bool, error) {
	found, err := postgres.Exists(ctx, r.deps.Tx.Querier(ctx), searchQuery(criteria))
	if err != nil {
		return false, fmt.Errorf("any infraction: %w", err)
	}
	return found, nil
}

// CountByType returns the number of matching infractions per type. Types
// without matches are absent from the map.
func (r *Repo) CountByType(ctx context.Context, criteria domain.InfractionSearchCriteria) (map[domain.InfractionType]int, error) {
	b := baseQuery().RemoveColumns().Columns("i.type", "count(*)").GroupBy("i.type")
	if f := Compile(criteria); f != nil {
		b = b.Where(f)
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build count: %w", err)
	}

	rows, err := r.deps.Tx.Querier(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count infractions: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.InfractionType]int)
	for rows.Next() {
		var (
			tp string
			n  int
		)
		if err := rows.Scan(&tp, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[domain.InfractionType(tp)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count infractions: %w", err)
	}
	return counts, nil
}
