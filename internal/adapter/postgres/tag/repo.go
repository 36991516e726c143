// Package tag implements the guild tag repository using PostgreSQL. Tag
// edits are copy-on-write: the edited row is retired and a new row
// carries the new content.
package tag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	postgres "github.com/heartmarshall/modix-backend/internal/adapter/postgres"
	"github.com/heartmarshall/modix-backend/internal/domain"
)

const (
	roleCreate = "create"
	roleModify = "modify"
	roleDelete = "delete"
)

// Repo provides tag persistence backed by PostgreSQL.
type Repo struct {
	deps    postgres.Deps
	coord   *postgres.Coordinator
	actions *postgres.Ledger[domain.TagActionType]
	log     *slog.Logger
}

// New creates a new tag repository.
func New(deps postgres.Deps) *Repo {
	deps = deps.WithDefaults()
	return &Repo{
		deps:    deps,
		coord:   postgres.NewCoordinator(deps.DB, "tag", deps.Metrics),
		actions: postgres.NewLedger(postgres.TagFamily, deps),
		log:     deps.Log.With("repository", "tag"),
	}
}

// Actions returns the tag action ledger.
func (r *Repo) Actions() *postgres.Ledger[domain.TagActionType] { return r.actions }

// ---------------------------------------------------------------------------
// Write operations
// ---------------------------------------------------------------------------

// Create records a new tag. An active tag in the guild whose name folds to
// the same key (see domain.FoldTagName) yields domain.ErrAlreadyExists.
func (r *Repo) Create(ctx context.Context, data *domain.TagCreationData) (int64, error) {
	if data == nil {
		return 0, domain.NewValidationError("data", "required")
	}
	if err := data.Validate(); err != nil {
		return 0, err
	}

	name := strings.TrimSpace(data.Name)
	var id int64
	err := r.coord.Run(ctx, roleCreate, func(ctx context.Context) error {
		e, err := r.actions.AppendCreate(ctx, domain.TagAction{
			GuildID:     data.GuildID,
			Type:        domain.TagActionCreated,
			CreatedByID: data.CreatedByID,
		}, func(ctx context.Context, q postgres.Querier, actionID int64) (int64, error) {
			var id int64
			err := q.QueryRow(ctx, `
				INSERT INTO tags (guild_id, name, name_key, content, owner_user_id, owner_role_id, create_action_id)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				RETURNING id`,
				data.GuildID, name, domain.FoldTagName(name), strings.TrimSpace(data.Content),
				data.OwnerUserID, data.OwnerRoleID, actionID,
			).Scan(&id)
			if err != nil {
				return 0, postgres.MapError(err, "tag", name)
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
		return 0, fmt.Errorf("create tag: %w", err)
	}

	r.log.InfoContext(ctx, "tag created", slog.Int64("tag_id", id), slog.String("name", name))
	return id, nil
}

// TryModify replaces the content of an active tag. The current row is
// retired and a new row with the modified content takes its place, keeping
// name, owner and use count. It returns the new row id, or nil when the
// tag does not exist or is no longer active.
func (r *Repo) TryModify(ctx context.Context, id int64, modifiedByID uint64, update func(*domain.TagMutationData)) (*int64, error) {
	if update == nil {
		return nil, domain.NewValidationError("update", "required")
	}

	var newID *int64
	err := r.coord.Run(ctx, roleModify, func(ctx context.Context) error {
		e, err := r.actions.AppendSupersede(ctx, domain.TagAction{
			Type:        domain.TagActionModified,
			CreatedByID: modifiedByID,
		}, postgres.Supersede{
			Table:  "tags",
			Column: "delete_action_id",
			ID:     id,
			Copy: func(ctx context.Context, q postgres.Querier, actionID int64) (int64, error) {
				var data domain.TagMutationData
				if err := q.QueryRow(ctx, `SELECT content FROM tags WHERE id = $1`, id).Scan(&data.Content); err != nil {
					return 0, postgres.MapError(err, "tag", id)
				}
				update(&data)
				if err := data.Validate(); err != nil {
					return 0, err
				}

				var created int64
				err := q.QueryRow(ctx, `
					INSERT INTO tags (guild_id, name, name_key, content, uses, owner_user_id, owner_role_id, create_action_id)
					SELECT guild_id, name, name_key, $2, uses, owner_user_id, owner_role_id, $3
					FROM tags WHERE id = $1
					RETURNING id`,
					id, strings.TrimSpace(data.Content), actionID,
				).Scan(&created)
				if err != nil {
					return 0, postgres.MapError(err, "tag", id)
				}
				return created, nil
			},
		})
		if err != nil {
			return err
		}
		if e != nil {
			newID = e.TargetID
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("modify tag %d: %w", id, err)
	}
	return newID, nil
}

// TryDelete retires a tag. It returns false when the tag does not exist or
// is no longer active.
func (r *Repo) TryDelete(ctx context.Context, id int64, deletedByID uint64) (bool, error) {
	var done bool
	err := r.coord.Run(ctx, roleDelete, func(ctx context.Context) error {
		e, err := r.actions.AppendTerminal(ctx, domain.TagAction{
			Type:        domain.TagActionDeleted,
			CreatedByID: deletedByID,
		}, postgres.Terminal{Table: "tags", Column: "delete_action_id", ID: id})
		if err != nil {
			return err
		}
		done = e != nil
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete tag %d: %w", id, err)
	}
	return done, nil
}

// TryIncrementUses bumps the use counter of an active tag. Uses are not
// recorded in the ledger.
func (r *Repo) TryIncrementUses(ctx context.Context, id int64) (bool, error) {
	tag, err := r.deps.Tx.Querier(ctx).Exec(ctx,
		`UPDATE tags SET uses = uses + 1 WHERE id = $1 AND delete_action_id IS NULL`, id)
	if err != nil {
		return false, postgres.MapError(err, "tag", id)
	}
	return tag.RowsAffected() == 1, nil
}

// ---------------------------------------------------------------------------
// Read operations
// ---------------------------------------------------------------------------

var sortable = map[string]string{
	"id":      "t.id",
	"name":    "t.name_key",
	"uses":    "t.uses",
	"created": "ca.created",
}

func baseQuery() sq.SelectBuilder {
	cols := []string{"t.id", "t.guild_id", "t.name", "t.content", "t.uses", "t.owner_user_id", "t.owner_role_id"}
	cols = append(cols, postgres.BriefColumns("ca")...)
	cols = append(cols, postgres.BriefColumns("da")...)

	return postgres.Builder().
		Select(cols...).
		From("tags t").
		Join("tag_actions ca ON ca.id = t.create_action_id").
		LeftJoin("tag_actions da ON da.id = t.delete_action_id")
}

// Compile translates criteria into a filter over the summary query.
func Compile(c domain.TagSearchCriteria) sq.Sqlizer {
	var crit postgres.Criteria
	postgres.Eq(&crit, "t.guild_id", c.GuildID)
	postgres.EqualFold(&crit, "t.name_key", c.Name, domain.FoldTagName)
	postgres.Contains(&crit, "t.name", c.NameContains)
	postgres.Contains(&crit, "t.content", c.ContentContains)
	postgres.Eq(&crit, "ca.created_by_id", c.CreatedByID)
	postgres.Eq(&crit, "t.owner_user_id", c.OwnerUserID)
	postgres.Eq(&crit, "t.owner_role_id", c.OwnerRoleID)
	postgres.Terminal(&crit, "t.delete_action_id", c.IsDeleted)
	return crit.Sqlizer()
}

func searchQuery(c domain.TagSearchCriteria) postgres.Query {
	return postgres.Query{Base: baseQuery(), Filter: Compile(c), Sortable: sortable, Key: "t.id"}
}

func scanSummary(row pgx.Row) (domain.TagSummary, error) {
	var (
		s          domain.TagSummary
		deleteInfo postgres.NullBrief
	)
	dest := []any{
		&s.ID, &s.GuildID, &s.Name, &s.Content, &s.Uses, &s.OwnerUserID, &s.OwnerRoleID,
		&s.CreateAction.ID, &s.CreateAction.Created, &s.CreateAction.CreatedByID,
	}
	dest = append(dest, deleteInfo.Dest()...)
	if err := row.Scan(dest...); err != nil {
		return s, err
	}

	s.CreateAction.Created = s.CreateAction.Created.UTC()
	s.DeleteAction = deleteInfo.Brief()
	return s, nil
}

// ReadSummary returns one tag row, active or retired.
func (r *Repo) ReadSummary(ctx context.Context, id int64) (*domain.TagSummary, error) {
	query, args, err := baseQuery().Where(sq.Eq{"t.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build read: %w", err)
	}

	s, err := scanSummary(r.deps.Tx.Querier(ctx).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, postgres.MapError(err, "tag", id)
	}
	return &s, nil
}

// SearchSummaries returns every tag matching criteria.
func (r *Repo) SearchSummaries(ctx context.Context, criteria domain.TagSearchCriteria, sorting []domain.SortingCriteria) ([]domain.TagSummary, error) {
	out, err := postgres.Select(ctx, r.deps.Tx.Querier(ctx), searchQuery(criteria), sorting, scanSummary)
	if err != nil {
		return nil, fmt.Errorf("search tags: %w", err)
	}
	return out, nil
}

// SearchSummariesPaged returns one window of the tags matching criteria.
func (r *Repo) SearchSummariesPaged(
	ctx context.Context,
	criteria domain.TagSearchCriteria,
	sorting []domain.SortingCriteria,
	paging domain.PagingCriteria,
) (domain.RecordsPage[domain.TagSummary], error) {
	page, err := postgres.Paginate(ctx, r.deps.Tx, searchQuery(criteria), sorting, paging, r.deps.MaxPageSize, scanSummary)
	if err != nil {
		return page, fmt.Errorf("search tags paged: %w", err)
	}
	return page, nil
}
