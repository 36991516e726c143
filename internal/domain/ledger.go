package domain

import "time"

// ActionType is the closed enum of one action family.
type ActionType interface {
	~string
	IsValid() bool
	Family() ActionFamily
}

// LedgerEntry is one immutable fact recorded in an action ledger.
//
// TargetID references the managed entity the action created or acted on.
// SupersededID is set only by copy-on-write edits and references the row
// the action made terminal; TargetID then references its replacement.
type LedgerEntry[T ActionType] struct {
	ID           int64
	GuildID      uint64
	Type         T
	Created      time.Time
	CreatedByID  uint64
	TargetID     *int64
	SupersededID *int64
}

type (
	ModerationAction    = LedgerEntry[ModerationActionType]
	ConfigurationAction = LedgerEntry[ConfigurationActionType]
	PromotionAction     = LedgerEntry[PromotionActionType]
	TagAction           = LedgerEntry[TagActionType]
)

// ActionBrief is the part of an action shown inside entity summaries.
type ActionBrief struct {
	ID          int64
	Created     time.Time
	CreatedByID uint64
}

// ActionCreated is published after a transaction that appended an action commits.
type ActionCreated struct {
	EventID     string
	RequestID   string
	Family      ActionFamily
	Type        string
	ActionID    int64
	GuildID     uint64
	CreatedByID uint64
	TargetID    *int64
	Created     time.Time
}

// NewActionCreated builds the notification for a committed ledger entry.
func NewActionCreated[T ActionType](e LedgerEntry[T]) ActionCreated {
	return ActionCreated{
		Family:      e.Type.Family(),
		Type:        string(e.Type),
		ActionID:    e.ID,
		GuildID:     e.GuildID,
		CreatedByID: e.CreatedByID,
		TargetID:    e.TargetID,
		Created:     e.Created,
	}
}

// ActionSearchCriteria filters the actions of one family.
type ActionSearchCriteria[T ActionType] struct {
	GuildID      *uint64
	Types        []T
	CreatedRange *DateTimeRange
	CreatedByID  *uint64
	TargetID     *int64
}
