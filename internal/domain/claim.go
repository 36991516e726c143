package domain

import "strings"

// AuthorizationClaim names a permission that can be granted to roles or users.
type AuthorizationClaim string

func (c AuthorizationClaim) String() string { return string(c) }

// ClaimMappingCreationData grants or denies a claim to exactly one role or user.
type ClaimMappingCreationData struct {
	Type        ClaimMappingType
	GuildID     uint64
	RoleID      *uint64
	UserID      *uint64
	Claim       AuthorizationClaim
	CreatedByID uint64
}

// Validate checks all fields and collects all errors.
func (d ClaimMappingCreationData) Validate() error {
	var errs []FieldError

	if !d.Type.IsValid() {
		errs = append(errs, FieldError{Field: "type", Message: "unknown mapping type"})
	}
	if d.GuildID == 0 {
		errs = append(errs, FieldError{Field: "guild_id", Message: "required"})
	}
	if (d.RoleID == nil) == (d.UserID == nil) {
		errs = append(errs, FieldError{Field: "role_id", Message: "exactly one of role_id and user_id is required"})
	}
	if strings.TrimSpace(string(d.Claim)) == "" {
		errs = append(errs, FieldError{Field: "claim", Message: "required"})
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// ClaimMappingBrief is the compact projection used by authorization lookups.
type ClaimMappingBrief struct {
	ID     int64
	Type   ClaimMappingType
	RoleID *uint64
	UserID *uint64
	Claim  AuthorizationClaim
}

// ClaimMappingSummary is the full read projection of a claim mapping.
type ClaimMappingSummary struct {
	ID      int64
	Type    ClaimMappingType
	GuildID uint64
	RoleID  *uint64
	UserID  *uint64
	Claim   AuthorizationClaim

	CreateAction ActionBrief
	DeleteAction *ActionBrief
}

func (s ClaimMappingSummary) IsDeleted() bool { return s.DeleteAction != nil }

func (s ClaimMappingSummary) State() EntityState {
	return StateOf(TerminalRef{ActionID: briefID(s.DeleteAction), State: EntityStateDeleted})
}

// ClaimMappingSearchCriteria filters claim mappings.
//
// RoleIDs and UserID are alternatives: when both are present a mapping
// matches if it belongs to one of the roles OR to the user, which is how a
// member's effective claims are resolved.
type ClaimMappingSearchCriteria struct {
	Types        []ClaimMappingType
	GuildID      *uint64
	RoleIDs      []uint64
	UserID       *uint64
	Claims       []AuthorizationClaim
	CreatedRange *DateTimeRange
	CreatedByID  *uint64
	IsDeleted    *bool
}

// UniquenessCriteria returns the criteria that must match nothing before d
// may be inserted: an active mapping of the same claim for the same principal.
func (d ClaimMappingCreationData) UniquenessCriteria() ClaimMappingSearchCriteria {
	notDeleted := false
	guildID := d.GuildID
	c := ClaimMappingSearchCriteria{
		GuildID:   &guildID,
		Claims:    []AuthorizationClaim{d.Claim},
		IsDeleted: &notDeleted,
	}
	if d.RoleID != nil {
		c.RoleIDs = []uint64{*d.RoleID}
	}
	if d.UserID != nil {
		userID := *d.UserID
		c.UserID = &userID
	}
	return c
}
