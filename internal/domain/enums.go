package domain

// ActionFamily names one of the parallel action ledgers.
type ActionFamily string

const (
	ActionFamilyModeration    ActionFamily = "MODERATION"
	ActionFamilyConfiguration ActionFamily = "CONFIGURATION"
	ActionFamilyPromotion     ActionFamily = "PROMOTION"
	ActionFamilyTag           ActionFamily = "TAG"
)

func (f ActionFamily) String() string { return string(f) }

// ModerationActionType enumerates staff actions recorded against infractions.
type ModerationActionType string

const (
	ModerationActionInfractionCreated   ModerationActionType = "INFRACTION_CREATED"
	ModerationActionInfractionUpdated   ModerationActionType = "INFRACTION_UPDATED"
	ModerationActionInfractionRescinded ModerationActionType = "INFRACTION_RESCINDED"
	ModerationActionInfractionDeleted   ModerationActionType = "INFRACTION_DELETED"
)

func (t ModerationActionType) String() string { return string(t) }

func (t ModerationActionType) IsValid() bool {
	switch t {
	case ModerationActionInfractionCreated, ModerationActionInfractionUpdated,
		ModerationActionInfractionRescinded, ModerationActionInfractionDeleted:
		return true
	}
	return false
}

func (ModerationActionType) Family() ActionFamily { return ActionFamilyModeration }

// ConfigurationActionType enumerates changes to guild configuration mappings.
type ConfigurationActionType string

const (
	ConfigurationActionClaimMappingCreated             ConfigurationActionType = "CLAIM_MAPPING_CREATED"
	ConfigurationActionClaimMappingDeleted             ConfigurationActionType = "CLAIM_MAPPING_DELETED"
	ConfigurationActionDesignatedChannelMappingCreated ConfigurationActionType = "DESIGNATED_CHANNEL_MAPPING_CREATED"
	ConfigurationActionDesignatedChannelMappingDeleted ConfigurationActionType = "DESIGNATED_CHANNEL_MAPPING_DELETED"
	ConfigurationActionDesignatedRoleMappingCreated    ConfigurationActionType = "DESIGNATED_ROLE_MAPPING_CREATED"
	ConfigurationActionDesignatedRoleMappingDeleted    ConfigurationActionType = "DESIGNATED_ROLE_MAPPING_DELETED"
)

func (t ConfigurationActionType) String() string { return string(t) }

func (t ConfigurationActionType) IsValid() bool {
	switch t {
	case ConfigurationActionClaimMappingCreated, ConfigurationActionClaimMappingDeleted,
		ConfigurationActionDesignatedChannelMappingCreated, ConfigurationActionDesignatedChannelMappingDeleted,
		ConfigurationActionDesignatedRoleMappingCreated, ConfigurationActionDesignatedRoleMappingDeleted:
		return true
	}
	return false
}

func (ConfigurationActionType) Family() ActionFamily { return ActionFamilyConfiguration }

// PromotionActionType enumerates actions taken on promotion campaigns and comments.
type PromotionActionType string

const (
	PromotionActionCampaignCreated PromotionActionType = "CAMPAIGN_CREATED"
	PromotionActionCampaignClosed  PromotionActionType = "CAMPAIGN_CLOSED"
	PromotionActionCommentCreated  PromotionActionType = "COMMENT_CREATED"
	PromotionActionCommentModified PromotionActionType = "COMMENT_MODIFIED"
)

func (t PromotionActionType) String() string { return string(t) }

func (t PromotionActionType) IsValid() bool {
	switch t {
	case PromotionActionCampaignCreated, PromotionActionCampaignClosed,
		PromotionActionCommentCreated, PromotionActionCommentModified:
		return true
	}
	return false
}

func (PromotionActionType) Family() ActionFamily { return ActionFamilyPromotion }

// TagActionType enumerates actions taken on tags.
type TagActionType string

const (
	TagActionCreated  TagActionType = "TAG_CREATED"
	TagActionModified TagActionType = "TAG_MODIFIED"
	TagActionDeleted  TagActionType = "TAG_DELETED"
)

func (t TagActionType) String() string { return string(t) }

func (t TagActionType) IsValid() bool {
	switch t {
	case TagActionCreated, TagActionModified, TagActionDeleted:
		return true
	}
	return false
}

func (TagActionType) Family() ActionFamily { return ActionFamilyTag }

// InfractionType is the severity class of an infraction.
type InfractionType string

const (
	InfractionTypeNotice  InfractionType = "NOTICE"
	InfractionTypeWarning InfractionType = "WARNING"
	InfractionTypeMute    InfractionType = "MUTE"
	InfractionTypeBan     InfractionType = "BAN"
)

func (t InfractionType) String() string { return string(t) }

func (t InfractionType) IsValid() bool {
	switch t {
	case InfractionTypeNotice, InfractionTypeWarning, InfractionTypeMute, InfractionTypeBan:
		return true
	}
	return false
}

// ClaimMappingType says whether a mapping grants or denies a claim.
type ClaimMappingType string

const (
	ClaimMappingTypeGranted ClaimMappingType = "GRANTED"
	ClaimMappingTypeDenied  ClaimMappingType = "DENIED"
)

func (t ClaimMappingType) String() string { return string(t) }

func (t ClaimMappingType) IsValid() bool {
	return t == ClaimMappingTypeGranted || t == ClaimMappingTypeDenied
}

// DesignatedChannelType is the purpose a channel is designated for.
// ModerationLog and MessageLog mappings are the guild's log channels.
type DesignatedChannelType string

const (
	DesignatedChannelMessageLog    DesignatedChannelType = "MESSAGE_LOG"
	DesignatedChannelModerationLog DesignatedChannelType = "MODERATION_LOG"
	DesignatedChannelPromotionLog  DesignatedChannelType = "PROMOTION_LOG"
	DesignatedChannelUnmoderated   DesignatedChannelType = "UNMODERATED"
	DesignatedChannelStarboard     DesignatedChannelType = "STARBOARD"
)

func (t DesignatedChannelType) String() string { return string(t) }

func (t DesignatedChannelType) IsValid() bool {
	switch t {
	case DesignatedChannelMessageLog, DesignatedChannelModerationLog, DesignatedChannelPromotionLog,
		DesignatedChannelUnmoderated, DesignatedChannelStarboard:
		return true
	}
	return false
}

// DesignatedRoleType is the purpose a role is designated for.
// ModerationMute mappings are the guild's mute roles.
type DesignatedRoleType string

const (
	DesignatedRoleRank           DesignatedRoleType = "RANK"
	DesignatedRoleModerationMute DesignatedRoleType = "MODERATION_MUTE"
	DesignatedRolePingable       DesignatedRoleType = "PINGABLE"
)

func (t DesignatedRoleType) String() string { return string(t) }

func (t DesignatedRoleType) IsValid() bool {
	switch t {
	case DesignatedRoleRank, DesignatedRoleModerationMute, DesignatedRolePingable:
		return true
	}
	return false
}

// PromotionSentiment is a commenter's stance on a campaign.
type PromotionSentiment string

const (
	PromotionSentimentApprove PromotionSentiment = "APPROVE"
	PromotionSentimentAbstain PromotionSentiment = "ABSTAIN"
	PromotionSentimentOppose  PromotionSentiment = "OPPOSE"
)

func (s PromotionSentiment) String() string { return string(s) }

func (s PromotionSentiment) IsValid() bool {
	switch s {
	case PromotionSentimentApprove, PromotionSentimentAbstain, PromotionSentimentOppose:
		return true
	}
	return false
}

// CampaignOutcome records how a closed campaign ended.
type CampaignOutcome string

const (
	CampaignOutcomeAccepted CampaignOutcome = "ACCEPTED"
	CampaignOutcomeRejected CampaignOutcome = "REJECTED"
	CampaignOutcomeFailed   CampaignOutcome = "FAILED"
)

func (o CampaignOutcome) String() string { return string(o) }

func (o CampaignOutcome) IsValid() bool {
	switch o {
	case CampaignOutcomeAccepted, CampaignOutcomeRejected, CampaignOutcomeFailed:
		return true
	}
	return false
}
