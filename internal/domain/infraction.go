package domain

import (
	"strings"
	"time"
)

const maxInfractionReasonLength = 1000

// InfractionCreationData describes an infraction issued by a staff member.
type InfractionCreationData struct {
	GuildID     uint64
	Type        InfractionType
	Reason      string
	Duration    *time.Duration
	SubjectID   uint64
	CreatedByID uint64
}

// Validate checks all fields and collects all errors.
func (d InfractionCreationData) Validate() error {
	var errs []FieldError

	if d.GuildID == 0 {
		errs = append(errs, FieldError{Field: "guild_id", Message: "required"})
	}
	if !d.Type.IsValid() {
		errs = append(errs, FieldError{Field: "type", Message: "unknown infraction type"})
	}
	errs = append(errs, validateReason(d.Reason)...)
	if d.Duration != nil && *d.Duration <= 0 {
		errs = append(errs, FieldError{Field: "duration", Message: "must be positive"})
	}
	if d.SubjectID == 0 {
		errs = append(errs, FieldError{Field: "subject_id", Message: "required"})
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// InfractionMutationData holds the editable fields of an active infraction.
// An update delegate receives it pre-filled with the current values.
type InfractionMutationData struct {
	Reason   string
	Duration *time.Duration
}

// Validate checks the mutated values.
func (d InfractionMutationData) Validate() error {
	errs := validateReason(d.Reason)
	if d.Duration != nil && *d.Duration <= 0 {
		errs = append(errs, FieldError{Field: "duration", Message: "must be positive"})
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

func validateReason(reason string) []FieldError {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return []FieldError{{Field: "reason", Message: "required"}}
	}
	if len(reason) > maxInfractionReasonLength {
		return []FieldError{{Field: "reason", Message: "max 1000 characters"}}
	}
	return nil
}

// InfractionSummary is the read projection of an infraction and its actions.
// ExpiresAt and IsExpired are derived by Derive on every read.
type InfractionSummary struct {
	ID        int64
	GuildID   uint64
	Type      InfractionType
	Reason    string
	Duration  *time.Duration
	SubjectID uint64

	CreateAction  ActionBrief
	RescindAction *ActionBrief
	DeleteAction  *ActionBrief

	ExpiresAt *time.Time
	IsExpired bool
}

// Derive computes the expiry fields relative to now.
func (s *InfractionSummary) Derive(now time.Time) {
	s.ExpiresAt = nil
	s.IsExpired = false
	if s.Duration == nil {
		return
	}
	expires := s.CreateAction.Created.Add(*s.Duration)
	s.ExpiresAt = &expires
	s.IsExpired = !now.Before(expires)
}

func (s InfractionSummary) IsRescinded() bool { return s.RescindAction != nil }

func (s InfractionSummary) IsDeleted() bool { return s.DeleteAction != nil }

// State reports deletion ahead of rescission.
func (s InfractionSummary) State() EntityState {
	return StateOf(
		TerminalRef{ActionID: briefID(s.DeleteAction), State: EntityStateDeleted},
		TerminalRef{ActionID: briefID(s.RescindAction), State: EntityStateRescinded},
	)
}

// InfractionSearchCriteria filters infractions. Nil fields do not constrain.
type InfractionSearchCriteria struct {
	GuildID        *uint64
	Types          []InfractionType
	SubjectID      *uint64
	CreatedRange   *DateTimeRange
	CreatedByID    *uint64
	ExpiresRange   *DateTimeRange
	IsRescinded    *bool
	IsDeleted      *bool
	ReasonContains *string
}

func briefID(b *ActionBrief) *int64 {
	if b == nil {
		return nil
	}
	return &b.ID
}
