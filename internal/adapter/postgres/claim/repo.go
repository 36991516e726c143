// Package claim implements the authorization claim mapping repository
// using PostgreSQL.
package claim

import (
	"context"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	postgres "github.com/heartmarshall/modix-backend/internal/adapter/postgres"
	"github.com/heartmarshall/modix-backend/internal/domain"
)

const (
	roleCreate = "create"
	roleDelete = "delete"
)

// Repo provides claim mapping persistence backed by PostgreSQL.
type Repo struct {
	deps    postgres.Deps
	coord   *postgres.Coordinator
	guard   *postgres.Guard
	actions *postgres.Ledger[domain.ConfigurationActionType]
	log     *slog.Logger
}

// New creates a new claim mapping repository.
func New(deps postgres.Deps) *Repo {
	deps = deps.WithDefaults()
	return &Repo{
		deps:    deps,
		coord:   postgres.NewCoordinator(deps.DB, "claim_mapping", deps.Metrics),
		guard:   postgres.NewGuard("claim_mapping", deps.Metrics),
		actions: postgres.NewLedger(postgres.ConfigurationFamily, deps),
		log:     deps.Log.With("repository", "claim_mapping"),
	}
}

// ---------------------------------------------------------------------------
// Write operations
// ---------------------------------------------------------------------------

// Create records a new claim mapping. It does not check for duplicates;
// use CreateIfAbsent for that.
func (r *Repo) Create(ctx context.Context, data *domain.ClaimMappingCreationData) (int64, error) {
	if data == nil {
		return 0, domain.NewValidationError("data", "required")
	}
	if err := data.Validate(); err != nil {
		return 0, err
	}
	return r.create(ctx, data)
}

// CreateIfAbsent records data unless a mapping matching criteria already
// exists. The check and the insert happen inside the repository guard, so
// concurrent callers with the same criteria create at most one mapping.
// It returns nil when a match existed.
func (r *Repo) CreateIfAbsent(ctx context.Context, data *domain.ClaimMappingCreationData, criteria domain.ClaimMappingSearchCriteria) (*int64, error) {
	if data == nil {
		return nil, domain.NewValidationError("data", "required")
	}
	if err := data.Validate(); err != nil {
		return nil, err
	}

	return postgres.CreateIfAbsent(ctx, r.guard,
		func(ctx context.Context) (bool, error) { return r.Any(ctx, criteria) },
		func(ctx context.Context) (int64, error) { return r.create(ctx, data) },
	)
}

func (r *Repo) create(ctx context.Context, data *domain.ClaimMappingCreationData) (int64, error) {
	var id int64
	err := r.coord.Run(ctx, roleCreate, func(ctx context.Context) error {
		e, err := r.actions.AppendCreate(ctx, domain.ConfigurationAction{
			GuildID:     data.GuildID,
			Type:        domain.ConfigurationActionClaimMappingCreated,
			CreatedByID: data.CreatedByID,
		}, func(ctx context.Context, q postgres.Querier, actionID int64) (int64, error) {
			var id int64
			err := q.QueryRow(ctx, `
				INSERT INTO claim_mappings (guild_id, type, role_id, user_id, claim, create_action_id)
				VALUES ($1, $2, $3, $4, $5, $6)
				RETURNING id`,
				data.GuildID, string(data.Type), data.RoleID, data.UserID, string(data.Claim), actionID,
			).Scan(&id)
			if err != nil {
				return 0, postgres.MapError(err, "claim_mapping", data.Claim)
			}
			return id, nil
		})
		if err != nil {
			return err
		}
		id = *e.TargetID
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("create claim mapping: %w", err)
	}

	r.log.InfoContext(ctx, "claim mapping created",
		slog.Int64("claim_mapping_id", id),
		slog.String("claim", data.Claim.String()),
	)
	return id, nil
}

// TryDelete marks a mapping as deleted. It returns false when the mapping
// does not exist or was already deleted.
func (r *Repo) TryDelete(ctx context.Context, id int64, deletedByID uint64) (bool, error) {
	var done bool
	err := r.coord.Run(ctx, roleDelete, func(ctx context.Context) error {
		e, err := r.actions.AppendTerminal(ctx, domain.ConfigurationAction{
			Type:        domain.ConfigurationActionClaimMappingDeleted,
			CreatedByID: deletedByID,
		}, postgres.Terminal{Table: "claim_mappings", Column: "delete_action_id", ID: id})
		if err != nil {
			return err
		}
		done = e != nil
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete claim mapping %d: %w", id, err)
	}
	return done, nil
}

// ---------------------------------------------------------------------------
// Read operations
// ---------------------------------------------------------------------------

var sortable = map[string]string{
	"id":      "m.id",
	"claim":   "m.claim",
	"type":    "m.type",
	"created": "ca.created",
}

func baseQuery() sq.SelectBuilder {
	cols := []string{"m.id", "m.type", "m.guild_id", "m.role_id", "m.user_id", "m.claim"}
	cols = append(cols, postgres.BriefColumns("ca")...)
	cols = append(cols, postgres.BriefColumns("da")...)

	return postgres.Builder().
		Select(cols...).
		From("claim_mappings m").
		Join("configuration_actions ca ON ca.id = m.create_action_id").
		LeftJoin("configuration_actions da ON da.id = m.delete_action_id")
}

// Compile translates criteria into a filter over the summary query.
// RoleIDs and UserID form one alternative when both are present.
func Compile(c domain.ClaimMappingSearchCriteria) sq.Sqlizer {
	var crit postgres.Criteria
	postgres.In(&crit, "m.type", postgres.Strings(c.Types))
	postgres.Eq(&crit, "m.guild_id", c.GuildID)

	if len(c.RoleIDs) > 0 && c.UserID != nil {
		crit.FilterBy(sq.Or{
			sq.Eq{"m.role_id": c.RoleIDs},
			sq.Eq{"m.user_id": *c.UserID},
		}, true)
	} else {
		postgres.In(&crit, "m.role_id", c.RoleIDs)
		postgres.Eq(&crit, "m.user_id", c.UserID)
	}

	postgres.In(&crit, "m.claim", postgres.Strings(c.Claims))
	postgres.Range(&crit, "ca.created", c.CreatedRange)
	postgres.Eq(&crit, "ca.created_by_id", c.CreatedByID)
	postgres.Terminal(&crit, "m.delete_action_id", c.IsDeleted)
	return crit.Sqlizer()
}

func searchQuery(c domain.ClaimMappingSearchCriteria) postgres.Query {
	return postgres.Query{Base: baseQuery(), Filter: Compile(c), Sortable: sortable, Key: "m.id"}
}

func scanSummary(row pgx.Row) (domain.ClaimMappingSummary, error) {
	var (
		s          domain.ClaimMappingSummary
		tp, claim  string
		deleteInfo postgres.NullBrief
	)
	dest := []any{
		&s.ID, &tp, &s.GuildID, &s.RoleID, &s.UserID, &claim,
		&s.CreateAction.ID, &s.CreateAction.Created, &s.CreateAction.CreatedByID,
	}
	dest = append(dest, deleteInfo.Dest()...)
	if err := row.Scan(dest...); err != nil {
		return s, err
	}

	s.Type = domain.ClaimMappingType(tp)
	s.Claim = domain.AuthorizationClaim(claim)
	s.CreateAction.Created = s.CreateAction.Created.UTC()
	s.DeleteAction = deleteInfo.Brief()
	return s, nil
}

// ReadSummary returns the summary of one mapping.
func (r *Repo) ReadSummary(ctx context.Context, id int64) (*domain.ClaimMappingSummary, error) {
	query, args, err := baseQuery().Where(sq.Eq{"m.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build read: %w", err)
	}

	s, err := scanSummary(r.deps.Tx.Querier(ctx).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, postgres.MapError(err, "claim_mapping", id)
	}
	return &s, nil
}

// SearchBriefs returns the mappings matching criteria.
func (r *Repo) SearchBriefs(ctx context.Context, criteria domain.ClaimMappingSearchCriteria) ([]domain.ClaimMappingBrief, error) {
	summaries, err := postgres.Select(ctx, r.deps.Tx.Querier(ctx), searchQuery(criteria), nil, scanSummary)
	if err != nil {
		return nil, fmt.Errorf("search claim mappings: %w", err)
	}

	briefs := make([]domain.ClaimMappingBrief, len(summaries))
	for i, s := range summaries {
		briefs[i] = domain.ClaimMappingBrief{ID: s.ID, Type: s.Type, RoleID: s.RoleID, UserID: s.UserID, Claim: s.Claim}
	}
	return briefs, nil
}

// SearchIDs returns the ids of the mappings matching criteria in id order.
func (r *Repo) SearchIDs(ctx context.Context, criteria domain.ClaimMappingSearchCriteria) ([]int64, error) {
	q := searchQuery(criteria)
	q.Base = q.Base.RemoveColumns().Columns("m.id")

	ids, err := postgres.Select(ctx, r.deps.Tx.Querier(ctx), q, nil, func(row pgx.Row) (int64, error) {
		var id int64
		err := row.Scan(&id)
		return id, err
	})
	if err != nil {
		return nil, fmt.Errorf("search claim mapping ids: %w", err)
	}
	return ids, nil
}

// Any reports whether any mapping matches criteria.
func (r *Repo) Any(ctx context.Context, criteria domain.ClaimMappingSearchCriteria) (bool, error) {
	found, err := postgres.Exists(ctx, r.deps.Tx.Querier(ctx), searchQuery(criteria))
	if err != nil {
		return false, fmt.Errorf("any claim mapping: %w", err)
	}
	return found, nil
}
