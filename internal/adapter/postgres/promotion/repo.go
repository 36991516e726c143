// Package promotion implements the promotion campaign and comment
// repository using PostgreSQL.
package promotion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	postgres "github.com/heartmarshall/modix-backend/internal/adapter/postgres"
	"github.com/heartmarshall/modix-backend/internal/domain"
)

const (
	roleCreateCampaign = "create_campaign"
	roleCloseCampaign  = "close_campaign"
	roleCreateComment  = "create_comment"
	roleModifyComment  = "modify_comment"
)

// Repo provides promotion persistence backed by PostgreSQL.
type Repo struct {
	deps    postgres.Deps
	coord   *postgres.Coordinator
	guard   *postgres.Guard
	actions *postgres.Ledger[domain.PromotionActionType]
	log     *slog.Logger
}

// New creates a new promotion repository.
func New(deps postgres.Deps) *Repo {
	deps = deps.WithDefaults()
	return &Repo{
		deps:    deps,
		coord:   postgres.NewCoordinator(deps.DB, "promotion", deps.Metrics),
		guard:   postgres.NewGuard("promotion", deps.Metrics),
		actions: postgres.NewLedger(postgres.PromotionFamily, deps),
		log:     deps.Log.With("repository", "promotion"),
	}
}

// Actions returns the promotion action ledger.
func (r *Repo) Actions() *postgres.Ledger[domain.PromotionActionType] { return r.actions }

// ---------------------------------------------------------------------------
// Campaigns
// ---------------------------------------------------------------------------

// CreateCampaign opens a campaign unless the subject already has an open
// one in the guild, in which case it returns nil.
func (r *Repo) CreateCampaign(ctx context.Context, data *domain.PromotionCampaignCreationData) (*int64, error) {
	if data == nil {
		return nil, domain.NewValidationError("data", "required")
	}
	if err := data.Validate(); err != nil {
		return nil, err
	}

	id, err := postgres.CreateIfAbsent(ctx, r.guard,
		func(ctx context.Context) (bool, error) {
			return postgres.Exists(ctx, r.deps.Tx.Querier(ctx), campaignQuery(data.UniquenessCriteria()))
		},
		func(ctx context.Context) (int64, error) { return r.createCampaign(ctx, data) },
	)
	if err != nil {
		return nil, fmt.Errorf("create campaign: %w", err)
	}
	return id, nil
}

func (r *Repo) createCampaign(ctx context.Context, data *domain.PromotionCampaignCreationData) (int64, error) {
	var id int64
	err := r.coord.Run(ctx, roleCreateCampaign, func(ctx context.Context) error {
		e, err := r.actions.AppendCreate(ctx, domain.PromotionAction{
			GuildID:     data.GuildID,
			Type:        domain.PromotionActionCampaignCreated,
			CreatedByID: data.CreatedByID,
		}, func(ctx context.Context, q postgres.Querier, actionID int64) (int64, error) {
			var id int64
			err := q.QueryRow(ctx, `
				INSERT INTO promotion_campaigns (guild_id, subject_id, target_role_id, create_action_id)
				VALUES ($1, $2, $3, $4)
				RETURNING id`,
				data.GuildID, data.SubjectID, data.TargetRoleID, actionID,
			).Scan(&id)
			if err != nil {
				return 0, postgres.MapError(err, "promotion_campaign", data.SubjectID)
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
		return 0, err
	}

	r.log.InfoContext(ctx, "campaign created", slog.Int64("campaign_id", id))
	return id, nil
}

// TryCloseCampaign closes an open campaign with outcome. It returns false
// when the campaign does not exist or is already closed.
func (r *Repo) TryCloseCampaign(ctx context.Context, id int64, closedByID uint64, outcome domain.CampaignOutcome) (bool, error) {
	if !outcome.IsValid() {
		return false, domain.NewValidationError("outcome", "unknown outcome")
	}

	var done bool
	err := r.coord.Run(ctx, roleCloseCampaign, func(ctx context.Context) error {
		e, err := r.actions.AppendTerminal(ctx, domain.PromotionAction{
			Type:        domain.PromotionActionCampaignClosed,
			CreatedByID: closedByID,
		}, postgres.Terminal{
			Table:  "promotion_campaigns",
			Column: "close_action_id",
			ID:     id,
			Set:    map[string]any{"outcome": string(outcome)},
		})
		if err != nil {
			return err
		}
		done = e != nil
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("close campaign %d: %w", id, err)
	}
	return done, nil
}

var campaignSortable = map[string]string{
	"id":        "p.id",
	"subjectid": "p.subject_id",
	"created":   "ca.created",
	"closed":    "cl.created",
}

func campaignBase() sq.SelectBuilder {
	cols := []string{"p.id", "p.guild_id", "p.subject_id", "p.target_role_id", "p.outcome"}
	cols = append(cols, postgres.BriefColumns("ca")...)
	cols = append(cols, postgres.BriefColumns("cl")...)
	cols = append(cols, "tally.approve", "tally.abstain", "tally.oppose")

	return postgres.Builder().
		Select(cols...).
		From("promotion_campaigns p").
		Join("promotion_actions ca ON ca.id = p.create_action_id").
		LeftJoin("promotion_actions cl ON cl.id = p.close_action_id").
		JoinClause(`CROSS JOIN LATERAL (
			SELECT count(*) FILTER (WHERE c.sentiment = 'APPROVE') AS approve,
			       count(*) FILTER (WHERE c.sentiment = 'ABSTAIN') AS abstain,
			       count(*) FILTER (WHERE c.sentiment = 'OPPOSE') AS oppose
			FROM promotion_comments c
			WHERE c.campaign_id = p.id AND c.modify_action_id IS NULL
		) tally`)
}

// CompileCampaign translates criteria into a filter over the campaign query.
func CompileCampaign(c domain.PromotionCampaignSearchCriteria) sq.Sqlizer {
	var crit postgres.Criteria
	postgres.Eq(&crit, "p.id", c.ID)
	postgres.Eq(&crit, "p.guild_id", c.GuildID)
	postgres.Eq(&crit, "p.subject_id", c.SubjectID)
	postgres.Eq(&crit, "p.target_role_id", c.TargetRoleID)
	if c.Outcome != nil {
		crit.FilterBy(sq.Eq{"p.outcome": string(*c.Outcome)}, true)
	}
	postgres.Range(&crit, "ca.created", c.CreatedRange)
	postgres.Eq(&crit, "ca.created_by_id", c.CreatedByID)
	postgres.Terminal(&crit, "p.close_action_id", c.IsClosed)
	postgres.Range(&crit, "cl.created", c.ClosedRange)
	return crit.Sqlizer()
}

func campaignQuery(c domain.PromotionCampaignSearchCriteria) postgres.Query {
	return postgres.Query{Base: campaignBase(), Filter: CompileCampaign(c), Sortable: campaignSortable, Key: "p.id"}
}

func scanCampaign(row pgx.Row) (domain.PromotionCampaignSummary, error) {
	var (
		s       domain.PromotionCampaignSummary
		outcome *string
		closed  postgres.NullBrief
	)
	dest := []any{
		&s.ID, &s.GuildID, &s.SubjectID, &s.TargetRoleID, &outcome,
		&s.CreateAction.ID, &s.CreateAction.Created, &s.CreateAction.CreatedByID,
	}
	dest = append(dest, closed.Dest()...)
	dest = append(dest, &s.ApproveCount, &s.AbstainCount, &s.OpposeCount)
	if err := row.Scan(dest...); err != nil {
		return s, err
	}

	if outcome != nil {
		o := domain.CampaignOutcome(*outcome)
		s.Outcome = &o
	}
	s.CreateAction.Created = s.CreateAction.Created.UTC()
	s.CloseAction = closed.Brief()
	return s, nil
}

// ReadCampaignSummary returns one campaign with its tally of active comments.
func (r *Repo) ReadCampaignSummary(ctx context.Context, id int64) (*domain.PromotionCampaignSummary, error) {
	query, args, err := campaignBase().Where(sq.Eq{"p.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build read: %w", err)
	}

	s, err := scanCampaign(r.deps.Tx.Querier(ctx).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, postgres.MapError(err, "promotion_campaign", id)
	}
	return &s, nil
}

// SearchCampaignSummaries returns every campaign matching criteria.
func (r *Repo) SearchCampaignSummaries(
	ctx context.Context,
	criteria domain.PromotionCampaignSearchCriteria,
	sorting []domain.SortingCriteria,
) ([]domain.PromotionCampaignSummary, error) {
	out, err := postgres.Select(ctx, r.deps.Tx.Querier(ctx), campaignQuery(criteria), sorting, scanCampaign)
	if err != nil {
		return nil, fmt.Errorf("search campaigns: %w", err)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Comments
// ---------------------------------------------------------------------------

// AddComment records a comment on an open campaign. Each staff member has
// at most one active comment per campaign; a second one yields
// domain.ErrAlreadyExists. A closed campaign yields domain.ErrConflict and
// a missing one domain.ErrNotFound.
func (r *Repo) AddComment(ctx context.Context, data *domain.PromotionCommentCreationData) (int64, error) {
	if data == nil {
		return 0, domain.NewValidationError("data", "required")
	}
	if err := data.Validate(); err != nil {
		return 0, err
	}

	var id int64
	err := r.guard.Do(ctx, func(ctx context.Context) error {
		return r.coord.Run(ctx, roleCreateComment, func(ctx context.Context) error {
			q := r.deps.Tx.Querier(ctx)

			var open bool
			err := q.QueryRow(ctx,
				`SELECT close_action_id IS NULL FROM promotion_campaigns WHERE id = $1 AND guild_id = $2 FOR SHARE`,
				data.CampaignID, data.GuildID,
			).Scan(&open)
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("promotion_campaign %d: %w", data.CampaignID, domain.ErrNotFound)
			}
			if err != nil {
				return postgres.MapError(err, "promotion_campaign", data.CampaignID)
			}
			if !open {
				return fmt.Errorf("promotion_campaign %d is closed: %w", data.CampaignID, domain.ErrConflict)
			}

			commented, err := postgres.Exists(ctx, q, commentQuery(domain.PromotionCommentSearchCriteria{
				CampaignID:  &data.CampaignID,
				CreatedByID: &data.CreatedByID,
				IsModified:  new(bool),
			}))
			if err != nil {
				return err
			}
			if commented {
				return fmt.Errorf("comment by %d on campaign %d: %w", data.CreatedByID, data.CampaignID, domain.ErrAlreadyExists)
			}

			e, err := r.actions.AppendCreate(ctx, domain.PromotionAction{
				GuildID:     data.GuildID,
				Type:        domain.PromotionActionCommentCreated,
				CreatedByID: data.CreatedByID,
			}, func(ctx context.Context, q postgres.Querier, actionID int64) (int64, error) {
				var id int64
				err := q.QueryRow(ctx, `
					INSERT INTO promotion_comments (campaign_id, guild_id, sentiment, content, create_action_id)
					VALUES ($1, $2, $3, $4, $5)
					RETURNING id`,
					data.CampaignID, data.GuildID, string(data.Sentiment), strings.TrimSpace(data.Content), actionID,
				).Scan(&id)
				if err != nil {
					return 0, postgres.MapError(err, "promotion_comment", data.CampaignID)
				}
				return id, nil
			})
			if err != nil {
				return err
			}
			id = *e.TargetID
			return nil
		})
	})
	if err != nil {
		return 0, fmt.Errorf("add comment: %w", err)
	}
	return id, nil
}

// TryModifyComment replaces an active comment on an open campaign with an
// edited copy and returns the new comment id. It returns nil when the
// comment does not exist or was already replaced.
func (r *Repo) TryModifyComment(
	ctx context.Context,
	id int64,
	modifiedByID uint64,
	update func(*domain.PromotionCommentMutationData),
) (*int64, error) {
	if update == nil {
		return nil, domain.NewValidationError("update", "required")
	}

	var newID *int64
	err := r.coord.Run(ctx, roleModifyComment, func(ctx context.Context) error {
		e, err := r.actions.AppendSupersede(ctx, domain.PromotionAction{
			Type:        domain.PromotionActionCommentModified,
			CreatedByID: modifiedByID,
		}, postgres.Supersede{
			Table:  "promotion_comments",
			Column: "modify_action_id",
			ID:     id,
			Copy: func(ctx context.Context, q postgres.Querier, actionID int64) (int64, error) {
				var (
					data      domain.PromotionCommentMutationData
					sentiment string
					open      bool
				)
				err := q.QueryRow(ctx, `
					SELECT c.sentiment, c.content, p.close_action_id IS NULL
					FROM promotion_comments c
					JOIN promotion_campaigns p ON p.id = c.campaign_id
					WHERE c.id = $1`, id,
				).Scan(&sentiment, &data.Content, &open)
				if err != nil {
					return 0, postgres.MapError(err, "promotion_comment", id)
				}
				if !open {
					return 0, fmt.Errorf("promotion_comment %d: campaign is closed: %w", id, domain.ErrConflict)
				}
				data.Sentiment = domain.PromotionSentiment(sentiment)

				update(&data)
				if err := data.Validate(); err != nil {
					return 0, err
				}

				var created int64
				err = q.QueryRow(ctx, `
					INSERT INTO promotion_comments (campaign_id, guild_id, sentiment, content, create_action_id)
					SELECT campaign_id, guild_id, $2, $3, $4
					FROM promotion_comments WHERE id = $1
					RETURNING id`,
					id, string(data.Sentiment), strings.TrimSpace(data.Content), actionID,
				).Scan(&created)
				if err != nil {
					return 0, postgres.MapError(err, "promotion_comment", id)
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
		return nil, fmt.Errorf("modify comment %d: %w", id, err)
	}
	return newID, nil
}

func commentBase() sq.SelectBuilder {
	cols := []string{"c.id", "c.campaign_id", "c.sentiment", "c.content"}
	cols = append(cols, postgres.BriefColumns("ca")...)
	cols = append(cols, postgres.BriefColumns("ma")...)

	return postgres.Builder().
		Select(cols...).
		From("promotion_comments c").
		Join("promotion_actions ca ON ca.id = c.create_action_id").
		LeftJoin("promotion_actions ma ON ma.id = c.modify_action_id")
}

// CompileComment translates criteria into a filter over the comment query.
func CompileComment(c domain.PromotionCommentSearchCriteria) sq.Sqlizer {
	var crit postgres.Criteria
	postgres.Eq(&crit, "c.campaign_id", c.CampaignID)
	postgres.Eq(&crit, "c.guild_id", c.GuildID)
	if c.Sentiment != nil {
		crit.FilterBy(sq.Eq{"c.sentiment": string(*c.Sentiment)}, true)
	}
	postgres.Eq(&crit, "ca.created_by_id", c.CreatedByID)
	postgres.Terminal(&crit, "c.modify_action_id", c.IsModified)
	return crit.Sqlizer()
}

func commentQuery(c domain.PromotionCommentSearchCriteria) postgres.Query {
	return postgres.Query{
		Base:     commentBase(),
		Filter:   CompileComment(c),
		Sortable: map[string]string{"id": "c.id", "created": "ca.created"},
		Key:      "c.id",
	}
}

func scanComment(row pgx.Row) (domain.PromotionCommentSummary, error) {
	var (
		s         domain.PromotionCommentSummary
		sentiment string
		modified  postgres.NullBrief
	)
	dest := []any{
		&s.ID, &s.CampaignID, &sentiment, &s.Content,
		&s.CreateAction.ID, &s.CreateAction.Created, &s.CreateAction.CreatedByID,
	}
	dest = append(dest, modified.Dest()...)
	if err := row.Scan(dest...); err != nil {
		return s, err
	}

	s.Sentiment = domain.PromotionSentiment(sentiment)
	s.CreateAction.Created = s.CreateAction.Created.UTC()
	s.ModifyAction = modified.Brief()
	return s, nil
}

// SearchComments returns the comments matching criteria, oldest first.
func (r *Repo) SearchComments(ctx context.Context, criteria domain.PromotionCommentSearchCriteria) ([]domain.PromotionCommentSummary, error) {
	out, err := postgres.Select(ctx, r.deps.Tx.Querier(ctx), commentQuery(criteria), nil, scanComment)
	if err != nil {
		return nil, fmt.Errorf("search comments: %w", err)
	}
	return out, nil
}
