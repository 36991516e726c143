package domain

// DesignationType is the purpose enum of a designated-resource family.
type DesignationType interface {
	~string
	IsValid() bool
}

// DesignatedMappingCreationData designates a channel or role for a purpose.
// ResourceID is the channel id for channel mappings and the role id for
// role mappings.
type DesignatedMappingCreationData[K DesignationType] struct {
	GuildID     uint64
	ResourceID  uint64
	Type        K
	CreatedByID uint64
}

// Validate checks all fields and collects all errors.
func (d DesignatedMappingCreationData[K]) Validate() error {
	var errs []FieldError
	if d.GuildID == 0 {
		errs = append(errs, FieldError{Field: "guild_id", Message: "required"})
	}
	if d.ResourceID == 0 {
		errs = append(errs, FieldError{Field: "resource_id", Message: "required"})
	}
	if !d.Type.IsValid() {
		errs = append(errs, FieldError{Field: "type", Message: "unknown designation"})
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// DesignatedMappingBrief is the compact projection of a designation.
type DesignatedMappingBrief[K DesignationType] struct {
	ID         int64
	ResourceID uint64
	Type       K
}

// DesignatedMappingSummary is the full read projection of a designation.
type DesignatedMappingSummary[K DesignationType] struct {
	ID         int64
	GuildID    uint64
	ResourceID uint64
	Type       K

	CreateAction ActionBrief
	DeleteAction *ActionBrief
}

func (s DesignatedMappingSummary[K]) IsDeleted() bool { return s.DeleteAction != nil }

// DesignatedMappingSearchCriteria filters designations of one family.
type DesignatedMappingSearchCriteria[K DesignationType] struct {
	ID          *int64
	GuildID     *uint64
	ResourceID  *uint64
	Type        *K
	CreatedByID *uint64
	IsDeleted   *bool
}

type (
	DesignatedChannelMappingCreationData   = DesignatedMappingCreationData[DesignatedChannelType]
	DesignatedChannelMappingBrief          = DesignatedMappingBrief[DesignatedChannelType]
	DesignatedChannelMappingSummary        = DesignatedMappingSummary[DesignatedChannelType]
	DesignatedChannelMappingSearchCriteria = DesignatedMappingSearchCriteria[DesignatedChannelType]

	DesignatedRoleMappingCreationData   = DesignatedMappingCreationData[DesignatedRoleType]
	DesignatedRoleMappingBrief          = DesignatedMappingBrief[DesignatedRoleType]
	DesignatedRoleMappingSummary        = DesignatedMappingSummary[DesignatedRoleType]
	DesignatedRoleMappingSearchCriteria = DesignatedMappingSearchCriteria[DesignatedRoleType]
)
