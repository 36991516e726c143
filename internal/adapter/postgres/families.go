package postgres

import "github.com/heartmarshall/modix-backend/internal/domain"

// ModerationFamily is the moderation action ledger. Every moderation action
// targets one infraction.
var ModerationFamily = Family[domain.ModerationActionType]{
	Table:         "moderation_actions",
	TargetColumns: []string{"infraction_id"},
	TargetOf:      func(domain.ModerationActionType) string { return "infraction_id" },
}

// ConfigurationFamily records claim and designated mapping changes.
var ConfigurationFamily = Family[domain.ConfigurationActionType]{
	Table:         "configuration_actions",
	TargetColumns: []string{"claim_mapping_id", "designated_channel_mapping_id", "designated_role_mapping_id"},
	TargetOf: func(t domain.ConfigurationActionType) string {
		switch t {
		case domain.ConfigurationActionDesignatedChannelMappingCreated, domain.ConfigurationActionDesignatedChannelMappingDeleted:
			return "designated_channel_mapping_id"
		case domain.ConfigurationActionDesignatedRoleMappingCreated, domain.ConfigurationActionDesignatedRoleMappingDeleted:
			return "designated_role_mapping_id"
		default:
			return "claim_mapping_id"
		}
	},
}

// PromotionFamily records campaign and comment changes. A modified comment
// is referenced as old_comment_id, its replacement as new_comment_id.
var PromotionFamily = Family[domain.PromotionActionType]{
	Table:         "promotion_actions",
	TargetColumns: []string{"campaign_id", "new_comment_id"},
	TargetOf: func(t domain.PromotionActionType) string {
		switch t {
		case domain.PromotionActionCommentCreated, domain.PromotionActionCommentModified:
			return "new_comment_id"
		default:
			return "campaign_id"
		}
	},
	SupersededColumn: "old_comment_id",
	SupersedeTypes:   []domain.PromotionActionType{domain.PromotionActionCommentModified},
}

// TagFamily records tag changes. A deleted tag is referenced as old_tag_id.
var TagFamily = Family[domain.TagActionType]{
	Table:         "tag_actions",
	TargetColumns: []string{"new_tag_id", "old_tag_id"},
	TargetOf: func(t domain.TagActionType) string {
		if t == domain.TagActionDeleted {
			return "old_tag_id"
		}
		return "new_tag_id"
	},
	SupersededColumn: "old_tag_id",
	SupersedeTypes:   []domain.TagActionType{domain.TagActionModified},
}
