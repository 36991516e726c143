package domain

import (
	"strings"

	"golang.org/x/text/cases"
)

const (
	maxTagNameLength    = 50
	maxTagContentLength = 2000
)

// TagCreationData describes a new guild tag.
type TagCreationData struct {
	GuildID     uint64
	Name        string
	Content     string
	OwnerUserID *uint64
	OwnerRoleID *uint64
	CreatedByID uint64
}

// Validate checks all fields and collects all errors.
func (d TagCreationData) Validate() error {
	var errs []FieldError
	if d.GuildID == 0 {
		errs = append(errs, FieldError{Field: "guild_id", Message: "required"})
	}
	name := strings.TrimSpace(d.Name)
	switch {
	case name == "":
		errs = append(errs, FieldError{Field: "name", Message: "required"})
	case len(name) > maxTagNameLength:
		errs = append(errs, FieldError{Field: "name", Message: "max 50 characters"})
	case strings.ContainsAny(name, " \t\n"):
		errs = append(errs, FieldError{Field: "name", Message: "must be a single word"})
	}
	errs = append(errs, validateTagContent(d.Content)...)
	if d.OwnerUserID != nil && d.OwnerRoleID != nil {
		errs = append(errs, FieldError{Field: "owner", Message: "a tag is owned by a user or a role, not both"})
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// FoldTagName returns the key tag names are matched and kept unique by.
// It applies Unicode case folding in Go, so "Straße" and "STRASSE" share a
// key regardless of the database collation.
func FoldTagName(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// TagMutationData holds the editable fields of a tag.
type TagMutationData struct {
	Content string
}

func (d TagMutationData) Validate() error {
	if errs := validateTagContent(d.Content); len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

func validateTagContent(content string) []FieldError {
	content = strings.TrimSpace(content)
	if content == "" {
		return []FieldError{{Field: "content", Message: "required"}}
	}
	if len(content) > maxTagContentLength {
		return []FieldError{{Field: "content", Message: "max 2000 characters"}}
	}
	return nil
}

// TagSummary is the read projection of one tag row. A modified tag leaves
// behind a superseded row whose DeleteAction is the modify action.
type TagSummary struct {
	ID          int64
	GuildID     uint64
	Name        string
	Content     string
	Uses        int
	OwnerUserID *uint64
	OwnerRoleID *uint64

	CreateAction ActionBrief
	DeleteAction *ActionBrief
}

func (s TagSummary) IsDeleted() bool { return s.DeleteAction != nil }

// TagSearchCriteria filters tags. Name matches the FoldTagName key as a whole;
// NameContains and ContentContains are ordinal substring matches.
type TagSearchCriteria struct {
	GuildID         *uint64
	Name            *string
	NameContains    *string
	ContentContains *string
	CreatedByID     *uint64
	OwnerUserID     *uint64
	OwnerRoleID     *uint64
	IsDeleted       *bool
}
