package domain

import "strings"

const maxCommentLength = 1000

// PromotionCampaignCreationData nominates a member for a role.
type PromotionCampaignCreationData struct {
	GuildID      uint64
	SubjectID    uint64
	TargetRoleID uint64
	CreatedByID  uint64
}

// Validate checks all fields and collects all errors.
func (d PromotionCampaignCreationData) Validate() error {
	var errs []FieldError
	if d.GuildID == 0 {
		errs = append(errs, FieldError{Field: "guild_id", Message: "required"})
	}
	if d.SubjectID == 0 {
		errs = append(errs, FieldError{Field: "subject_id", Message: "required"})
	}
	if d.TargetRoleID == 0 {
		errs = append(errs, FieldError{Field: "target_role_id", Message: "required"})
	}
	if d.SubjectID != 0 && d.SubjectID == d.CreatedByID {
		errs = append(errs, FieldError{Field: "subject_id", Message: "cannot nominate yourself"})
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// UniquenessCriteria matches any open campaign for the same subject.
func (d PromotionCampaignCreationData) UniquenessCriteria() PromotionCampaignSearchCriteria {
	guildID, subjectID, open := d.GuildID, d.SubjectID, false
	return PromotionCampaignSearchCriteria{
		GuildID:   &guildID,
		SubjectID: &subjectID,
		IsClosed:  &open,
	}
}

// PromotionCampaignSummary is the read projection of a campaign with its
// comment tally over active comments.
type PromotionCampaignSummary struct {
	ID           int64
	GuildID      uint64
	SubjectID    uint64
	TargetRoleID uint64
	Outcome      *CampaignOutcome

	CreateAction ActionBrief
	CloseAction  *ActionBrief

	ApproveCount int
	AbstainCount int
	OpposeCount  int
}

func (s PromotionCampaignSummary) IsClosed() bool { return s.CloseAction != nil }

func (s PromotionCampaignSummary) State() EntityState {
	return StateOf(TerminalRef{ActionID: briefID(s.CloseAction), State: EntityStateClosed})
}

// PromotionCampaignSearchCriteria filters campaigns.
type PromotionCampaignSearchCriteria struct {
	ID           *int64
	GuildID      *uint64
	SubjectID    *uint64
	TargetRoleID *uint64
	Outcome      *CampaignOutcome
	CreatedRange *DateTimeRange
	CreatedByID  *uint64
	IsClosed     *bool
	ClosedRange  *DateTimeRange
}

// PromotionCommentCreationData is a staff member's comment on a campaign.
type PromotionCommentCreationData struct {
	CampaignID  int64
	GuildID     uint64
	Sentiment   PromotionSentiment
	Content     string
	CreatedByID uint64
}

// Validate checks all fields and collects all errors.
func (d PromotionCommentCreationData) Validate() error {
	var errs []FieldError
	if d.CampaignID == 0 {
		errs = append(errs, FieldError{Field: "campaign_id", Message: "required"})
	}
	if d.GuildID == 0 {
		errs = append(errs, FieldError{Field: "guild_id", Message: "required"})
	}
	errs = append(errs, validateComment(d.Sentiment, d.Content)...)
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// PromotionCommentMutationData holds the editable fields of a comment.
type PromotionCommentMutationData struct {
	Sentiment PromotionSentiment
	Content   string
}

func (d PromotionCommentMutationData) Validate() error {
	if errs := validateComment(d.Sentiment, d.Content); len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

func validateComment(sentiment PromotionSentiment, content string) []FieldError {
	var errs []FieldError
	if !sentiment.IsValid() {
		errs = append(errs, FieldError{Field: "sentiment", Message: "unknown sentiment"})
	}
	content = strings.TrimSpace(content)
	if content == "" {
		errs = append(errs, FieldError{Field: "content", Message: "required"})
	}
	if len(content) > maxCommentLength {
		errs = append(errs, FieldError{Field: "content", Message: "max 1000 characters"})
	}
	return errs
}

// PromotionCommentSummary is the read projection of one comment row.
type PromotionCommentSummary struct {
	ID         int64
	CampaignID int64
	Sentiment  PromotionSentiment
	Content    string

	CreateAction ActionBrief
	ModifyAction *ActionBrief
}

func (s PromotionCommentSummary) IsModified() bool { return s.ModifyAction != nil }

func (s PromotionCommentSummary) State() EntityState {
	return StateOf(TerminalRef{ActionID: briefID(s.ModifyAction), State: EntityStateSuperseded})
}

// PromotionCommentSearchCriteria filters comments.
type PromotionCommentSearchCriteria struct {
	CampaignID  *int64
	GuildID     *uint64
	Sentiment   *PromotionSentiment
	CreatedByID *uint64
	IsModified  *bool
}
