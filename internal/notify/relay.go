package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/heartmarshall/modix-backend/internal/domain"
)

// ChannelFinder looks up designated channels.
type ChannelFinder interface {
	SearchBriefs(ctx context.Context, criteria domain.DesignatedChannelMappingSearchCriteria) ([]domain.DesignatedChannelMappingBrief, error)
}

// LogRelay routes committed actions to the guild's designated log channels.
// Until a chat client is attached the relay only logs the routing decision.
type LogRelay struct {
	channels ChannelFinder
	log      *slog.Logger
}

func NewLogRelay(channels ChannelFinder, log *slog.Logger) *LogRelay {
	if log == nil {
		log = slog.Default()
	}
	return &LogRelay{channels: channels, log: log.With("component", "log_relay")}
}

// Designation returns the channel designation that receives actions of
// family, or false when the family is not relayed.
func Designation(family domain.ActionFamily) (domain.DesignatedChannelType, bool) {
	switch family {
	case domain.ActionFamilyModeration:
		return domain.DesignatedChannelModerationLog, true
	case domain.ActionFamilyPromotion:
		return domain.DesignatedChannelPromotionLog, true
	default:
		return "", false
	}
}

// Targets returns the channel ids ev is routed to.
func (r *LogRelay) Targets(ctx context.Context, ev domain.ActionCreated) ([]uint64, error) {
	designation, ok := Designation(ev.Family)
	if !ok {
		return nil, nil
	}

	deleted := false
	briefs, err := r.channels.SearchBriefs(ctx, domain.DesignatedChannelMappingSearchCriteria{
		GuildID:   &ev.GuildID,
		Type:      &designation,
		IsDeleted: &deleted,
	})
	if err != nil {
		return nil, fmt.Errorf("find %s channels: %w", designation, err)
	}

	ids := make([]uint64, len(briefs))
	for i, b := range briefs {
		ids[i] = b.ResourceID
	}
	return ids, nil
}

// Handle is a Handler.
func (r *LogRelay) Handle(ctx context.Context, ev domain.ActionCreated) error {
	ids, err := r.Targets(ctx, ev)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	r.log.InfoContext(ctx, "action relayed",
		slog.String("family", ev.Family.String()),
		slog.String("type", ev.Type),
		slog.Int64("action_id", ev.ActionID),
		slog.Uint64("guild_id", ev.GuildID),
		slog.Any("channels", ids),
	)
	return nil
}
