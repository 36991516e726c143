package domain

import (
	"strings"
	"time"
)

// DateTimeRange is an optionally bounded, inclusive time range.
// A nil bound leaves that side of the range open.
type DateTimeRange struct {
	From *time.Time
	To   *time.Time
}

// IsEmpty reports whether neither bound is set.
func (r *DateTimeRange) IsEmpty() bool {
	return r == nil || (r.From == nil && r.To == nil)
}

// Contains reports whether t lies within the range.
func (r *DateTimeRange) Contains(t time.Time) bool {
	if r == nil {
		return true
	}
	if r.From != nil && t.Before(*r.From) {
		return false
	}
	if r.To != nil && t.After(*r.To) {
		return false
	}
	return true
}

// SortDirection is the order of a sort key.
type SortDirection string

const (
	SortAscending  SortDirection = "ASC"
	SortDescending SortDirection = "DESC"
)

// SortingCriteria orders results by a named property.
// Unknown property names are ignored by the repositories.
type SortingCriteria struct {
	PropertyName string
	Direction    SortDirection
}

// IsBlank reports whether s is nil or contains only whitespace.
func IsBlank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}
