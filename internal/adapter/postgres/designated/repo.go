// Package designated implements the repositories of channels and roles
// designated for a purpose within a guild.
package designated

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

// Kind describes the storage of one designated resource family.
type Kind[K domain.DesignationType] struct {
	Name           string
	Table          string
	ResourceColumn string
	Created        domain.ConfigurationActionType
	Deleted        domain.ConfigurationActionType
}

var (
	ChannelKind = Kind[domain.DesignatedChannelType]{
		Name:           "designated_channel_mapping",
		Table:          "designated_channel_mappings",
		ResourceColumn: "channel_id",
		Created:        domain.ConfigurationActionDesignatedChannelMappingCreated,
		Deleted:        domain.ConfigurationActionDesignatedChannelMappingDeleted,
	}
	RoleKind = Kind[domain.DesignatedRoleType]{
		Name:           "designated_role_mapping",
		Table:          "designated_role_mappings",
		ResourceColumn: "role_id",
		Created:        domain.ConfigurationActionDesignatedRoleMappingCreated,
		Deleted:        domain.ConfigurationActionDesignatedRoleMappingDeleted,
	}
)

// Repo provides designated mapping persistence for one kind.
type Repo[K domain.DesignationType] struct {
	kind    Kind[K]
	deps    postgres.Deps
	coord   *postgres.Coordinator
	actions *postgres.Ledger[domain.ConfigurationActionType]
	log     *slog.Logger
}

// New creates a repository for kind.
func New[K domain.DesignationType](kind Kind[K], deps postgres.Deps) *Repo[K] {
	deps = deps.WithDefaults()
	return &Repo[K]{
		kind:    kind,
		deps:    deps,
		coord:   postgres.NewCoordinator(deps.DB, kind.Name, deps.Metrics),
		actions: postgres.NewLedger(postgres.ConfigurationFamily, deps),
		log:     deps.Log.With("repository", kind.Name),
	}
}

// NewChannels creates the designated channel repository. Log channels are
// channel designations of the *_LOG types.
func NewChannels(deps postgres.Deps) *Repo[domain.DesignatedChannelType] {
	return New(ChannelKind, deps)
}

// NewRoles creates the designated role repository. The mute role is the
// role designated MODERATION_MUTE.
func NewRoles(deps postgres.Deps) *Repo[domain.DesignatedRoleType] {
	return New(RoleKind, deps)
}

// ---------------------------------------------------------------------------
// Write operations
// ---------------------------------------------------------------------------

// Create designates a resource.
func (r *Repo[K]) Create(ctx context.Context, data *domain.DesignatedMappingCreationData[K]) (int64, error) {
	if data == nil {
		return 0, domain.NewValidationError("data", "required")
	}
	if err := data.Validate(); err != nil {
		return 0, err
	}

	var id int64
	err := r.coord.Run(ctx, roleCreate, func(ctx context.Context) error {
		e, err := r.actions.AppendCreate(ctx, domain.ConfigurationAction{
			GuildID:     data.GuildID,
			Type:        r.kind.Created,
			CreatedByID: data.CreatedByID,
		}, func(ctx context.Context, q postgres.Querier, actionID int64) (int64, error) {
			query, args, err := postgres.Builder().
				Insert(r.kind.Table).
				Columns("guild_id", r.kind.ResourceColumn, "type", "create_action_id").
				Values(data.GuildID, data.ResourceID, string(data.Type), actionID).
				Suffix("RETURNING id").
				ToSql()
			if err != nil {
				return 0, fmt.Errorf("build insert: %w", err)
			}
			var id int64
			if err := q.QueryRow(ctx, query, args...).Scan(&id); err != nil {
				return 0, postgres.MapError(err, r.kind.Name, data.ResourceID)
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
		return 0, fmt.Errorf("create %s: %w", r.kind.Name, err)
	}

	r.log.InfoContext(ctx, "designation created",
		slog.Int64("id", id),
		slog.String("type", string(data.Type)),
	)
	return id, nil
}

// TryDelete removes a designation. It returns false when the mapping does
// not exist or was already deleted.
func (r *Repo[K]) TryDelete(ctx context.Context, id int64, deletedByID uint64) (bool, error) {
	var done bool
	err := r.coord.Run(ctx, roleDelete, func(ctx context.Context) error {
		e, err := r.actions.AppendTerminal(ctx, domain.ConfigurationAction{
			Type:        r.kind.Deleted,
			CreatedByID: deletedByID,
		}, postgres.Terminal{Table: r.kind.Table, Column: "delete_action_id", ID: id})
		if err != nil {
			return err
		}
		done = e != nil
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete %s %d: %w", r.kind.Name, id, err)
	}
	return done, nil
}

// ---------------------------------------------------------------------------
// Read operations
// ---------------------------------------------------------------------------

func (r *Repo[K]) baseQuery() sq.SelectBuilder {
	cols := []string{"m.id", "m.guild_id", "m." + r.kind.ResourceColumn, "m.type"}
	cols = append(cols, postgres.BriefColumns("ca")...)
	cols = append(cols, postgres.BriefColumns("da")...)

	return postgres.Builder().
		Select(cols...).
		From(r.kind.Table + " m").
		Join("configuration_actions ca ON ca.id = m.create_action_id").
		LeftJoin("configuration_actions da ON da.id = m.delete_action_id")
}

func (r *Repo[K]) searchQuery(c domain.DesignatedMappingSearchCriteria[K]) postgres.Query {
	var crit postgres.Criteria
	postgres.Eq(&crit, "m.id", c.ID)
	postgres.Eq(&crit, "m.guild_id", c.GuildID)
	postgres.Eq(&crit, "m."+r.kind.ResourceColumn, c.ResourceID)
	if c.Type != nil {
		crit.FilterBy(sq.Eq{"m.type": string(*c.Type)}, true)
	}
	postgres.Eq(&crit, "ca.created_by_id", c.CreatedByID)
	postgres.Terminal(&crit, "m.delete_action_id", c.IsDeleted)

	return postgres.Query{
		Base:     r.baseQuery(),
		Filter:   crit.Sqlizer(),
		Sortable: map[string]string{"id": "m.id", "type": "m.type", "created": "ca.created"},
		Key:      "m.id",
	}
}

func scanSummary[K domain.DesignationType](row pgx.Row) (domain.DesignatedMappingSummary[K], error) {
	var (
		s          domain.DesignatedMappingSummary[K]
		tp         string
		deleteInfo postgres.NullBrief
	)
	dest := []any{
		&s.ID, &s.GuildID, &s.ResourceID, &tp,
		&s.CreateAction.ID, &s.CreateAction.Created, &s.CreateAction.CreatedByID,
	}
	dest = append(dest, deleteInfo.Dest()...)
	if err := row.Scan(dest...); err != nil {
		return s, err
	}

	s.Type = K(tp)
	s.CreateAction.Created = s.CreateAction.Created.UTC()
	s.DeleteAction = deleteInfo.Brief()
	return s, nil
}

// ReadSummary returns the summary of one designation.
func (r *Repo[K]) ReadSummary(ctx context.Context, id int64) (*domain.DesignatedMappingSummary[K], error) {
	query, args, err := r.baseQuery().Where(sq.Eq{"m.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build read: %w", err)
	}

	s, err := scanSummary[K](r.deps.Tx.Querier(ctx).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, postgres.MapError(err, r.kind.Name, id)
	}
	return &s, nil
}

// SearchBriefs returns the designations matching criteria.
func (r *Repo[K]) SearchBriefs(ctx context.Context, criteria domain.DesignatedMappingSearchCriteria[K]) ([]domain.DesignatedMappingBrief[K], error) {
	summaries, err := postgres.Select(ctx, r.deps.Tx.Querier(ctx), r.searchQuery(criteria), nil, scanSummary[K])
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", r.kind.Name, err)
	}

	briefs := make([]domain.DesignatedMappingBrief[K], len(summaries))
	for i, s := range summaries {
		briefs[i] = domain.DesignatedMappingBrief[K]{ID: s.ID, ResourceID: s.ResourceID, Type: s.Type}
	}
	return briefs, nil
}

// Any reports whether any designation matches criteria.
func (r *Repo[K]) Any(ctx context.Context, criteria domain.DesignatedMappingSearchCriteria[K]) (bool, error) {
	found, err := postgres.Exists(ctx, r.deps.Tx.Querier(ctx), r.searchQuery(criteria))
	if err != nil {
		return false, fmt.Errorf("any %s: %w", r.kind.Name, err)
	}
	return found, nil
}
