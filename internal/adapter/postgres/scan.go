package postgres

import (
	"time"

	"github.com/heartmarshall/modix-backend/internal/domain"
)

// NullBrief collects the columns of an optionally joined action row.
type NullBrief struct {
	ID          *int64
	Created     *time.Time
	CreatedByID *uint64
}

// Dest returns the scan destinations in id, created, created_by_id order.
func (b *NullBrief) Dest() []any {
	return []any{&b.ID, &b.Created, &b.CreatedByID}
}

// Brief returns nil when the join found no action.
func (b NullBrief) Brief() *domain.ActionBrief {
	if b.ID == nil {
		return nil
	}
	out := &domain.ActionBrief{ID: *b.ID}
	if b.Created != nil {
		out.Created = b.Created.UTC()
	}
	if b.CreatedByID != nil {
		out.CreatedByID = *b.CreatedByID
	}
	return out
}

// BriefColumns returns the brief projection of the action table aliased as alias.
func BriefColumns(alias string) []string {
	return []string{alias + ".id", alias + ".created", alias + ".created_by_id"}
}

// DurationFromMillis converts a nullable millisecond column.
func DurationFromMillis(ms *int64) *time.Duration {
	if ms == nil {
		return nil
	}
	d := time.Duration(*ms) * time.Millisecond
	return &d
}

// MillisFromDuration is the inverse of DurationFromMillis.
func MillisFromDuration(d *time.Duration) *int64 {
	if d == nil {
		return nil
	}
	ms := d.Milliseconds()
	return &ms
}
