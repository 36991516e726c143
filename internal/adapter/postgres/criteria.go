package postgres

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/heartmarshall/modix-backend/internal/domain"
)

// Criteria compiles the present fields of a search criteria value into one
// conjunction. Each helper inspects its field on its own and adds nothing
// when the field is absent, so a nil value is never compared against.
type Criteria struct {
	preds sq.And
}

// FilterBy adds pred when present is true. pred must not have been built
// from the dereferenced value of an absent field.
func (c *Criteria) FilterBy(pred sq.Sqlizer, present bool) {
	if present {
		c.preds = append(c.preds, pred)
	}
}

// Len returns the number of predicates added so far.
func (c *Criteria) Len() int { return len(c.preds) }

// Sqlizer returns the conjunction, or nil when no field was present.
func (c *Criteria) Sqlizer() sq.Sqlizer {
	if len(c.preds) == 0 {
		return nil
	}
	return c.preds
}

// Apply adds the conjunction to b.
func (c *Criteria) Apply(b sq.SelectBuilder) sq.SelectBuilder {
	if s := c.Sqlizer(); s != nil {
		return b.Where(s)
	}
	return b
}

// Eq adds column = *v.
func Eq[V any](c *Criteria, column string, v *V) {
	if v == nil {
		return
	}
	c.FilterBy(sq.Eq{column: *v}, true)
}

// In adds column IN (vs...). An empty slice is treated as absent.
func In[V any](c *Criteria, column string, vs []V) {
	if len(vs) == 0 {
		return
	}
	c.FilterBy(sq.Eq{column: vs}, true)
}

// NullIf adds column IS NULL when *isNull is true and column IS NOT NULL
// when it is false. It backs the IsDeleted / IsRescinded / IsClosed flags.
func NullIf(c *Criteria, column string, isNull *bool) {
	if isNull == nil {
		return
	}
	if *isNull {
		c.FilterBy(sq.Eq{column: nil}, true)
		return
	}
	c.FilterBy(sq.NotEq{column: nil}, true)
}

// Terminal is NullIf with the flag read the natural way round:
// *terminal == true keeps rows whose terminal reference is set.
func Terminal(c *Criteria, column string, terminal *bool) {
	if terminal == nil {
		return
	}
	active := !*terminal
	NullIf(c, column, &active)
}

// Range adds expr >= From and expr <= To for whichever bounds are set.
func Range(c *Criteria, expr string, r *domain.DateTimeRange) {
	if r == nil {
		return
	}
	if r.From != nil {
		c.FilterBy(sq.GtOrEq{expr: *r.From}, true)
	}
	if r.To != nil {
		c.FilterBy(sq.LtOrEq{expr: *r.To}, true)
	}
}

// Contains adds an ordinal substring match of *s in expr. strpos compares
// bytes, so the result does not depend on the database collation. Blank
// strings are treated as absent.
func Contains(c *Criteria, expr string, s *string) {
	if domain.IsBlank(s) {
		return
	}
	c.FilterBy(sq.Expr("strpos("+expr+", ?) > 0", *s), true)
}

// EqualFold matches *s against keyColumn, a column holding names already
// folded by fold. Folding happens in Go so the match does not depend on the
// database collation. Blank strings are treated as absent.
func EqualFold(c *Criteria, keyColumn string, s *string, fold func(string) string) {
	if domain.IsBlank(s) {
		return
	}
	c.FilterBy(sq.Eq{keyColumn: fold(*s)}, true)
}

// Strings converts a slice of string enums for use as query arguments.
func Strings[T ~string](ts []T) []string {
	if len(ts) == 0 {
		return nil
	}
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = string(t)
	}
	return out
}
