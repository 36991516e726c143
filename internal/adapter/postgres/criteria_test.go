package postgres

import (
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/modix-backend/internal/domain"
)

func where(t *testing.T, c *Criteria) (string, []any) {
	t.Helper()
	s := c.Sqlizer()
	require.NotNil(t, s)
	sql, args, err := s.ToSql()
	require.NoError(t, err)
	return sql, args
}

func TestCriteria_EmptyIsNil(t *testing.T) {
	var c Criteria
	Eq[int64](&c, "id", nil)
	In[uint64](&c, "guild_id", nil)
	NullIf(&c, "deleted", nil)
	Terminal(&c, "closed", nil)
	Range(&c, "created", nil)
	Contains(&c, "reason", nil)
	Contains(&c, "reason", ptr("   "))
	EqualFold(&c, "name_key", ptr(""), domain.FoldTagName)

	assert.Equal(t, 0, c.Len())
	assert.Nil(t, c.Sqlizer())

	b := c.Apply(psql.Select("*").From("t"))
	sql, _, err := b.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM t", sql)
}

func TestCriteria_PresentFields(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(time.Hour)

	var c Criteria
	Eq(&c, "i.id", ptr(int64(5)))
	In(&c, "i.type", []string{"BAN", "MUTE"})
	Range(&c, "ca.created", &domain.DateTimeRange{From: &from, To: &to})

	sql, args := where(t, &c)
	assert.Equal(t, "(i.id = ? AND i.type IN (?,?) AND ca.created >= ? AND ca.created <= ?)", sql)
	assert.Equal(t, []any{int64(5), "BAN", "MUTE", from, to}, args)
}

func TestCriteria_HalfOpenRange(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	var c Criteria
	Range(&c, "ca.created", &domain.DateTimeRange{From: &from})

	sql, args := where(t, &c)
	assert.Equal(t, "(ca.created >= ?)", sql)
	assert.Equal(t, []any{from}, args)
}

func TestCriteria_NullFlags(t *testing.T) {
	tests := []struct {
		name string
		add  func(c *Criteria)
		want string
	}{
		{"null if true", func(c *Criteria) { NullIf(c, "x", ptr(true)) }, "(x IS NULL)"},
		{"null if false", func(c *Criteria) { NullIf(c, "x", ptr(false)) }, "(x IS NOT NULL)"},
		{"terminal true", func(c *Criteria) { Terminal(c, "x", ptr(true)) }, "(x IS NOT NULL)"},
		{"terminal false", func(c *Criteria) { Terminal(c, "x", ptr(false)) }, "(x IS NULL)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Criteria
			tt.add(&c)
			sql, _ := where(t, &c)
			assert.Equal(t, tt.want, sql)
		})
	}
}

func TestCriteria_Text(t *testing.T) {
	var c Criteria
	Contains(&c, "i.reason", ptr("spam"))
	EqualFold(&c, "t.name_key", ptr("  Straße "), domain.FoldTagName)

	sql, args := where(t, &c)
	assert.Equal(t, "(strpos(i.reason, ?) > 0 AND t.name_key = ?)", sql)
	assert.Equal(t, []any{"spam", "strasse"}, args)
}

func TestCriteria_FilterByAbsent(t *testing.T) {
	var c Criteria
	c.FilterBy(sq.Eq{"a": 1}, false)
	c.FilterBy(sq.Eq{"b": 2}, true)

	sql, args := where(t, &c)
	assert.Equal(t, "(b = ?)", sql)
	assert.Equal(t, []any{2}, args)
}

func TestStrings(t *testing.T) {
	assert.Nil(t, Strings[domain.InfractionType](nil))
	assert.Equal(t, []string{"BAN", "MUTE"},
		Strings([]domain.InfractionType{domain.InfractionTypeBan, domain.InfractionTypeMute}))
}

func ptr[T any](v T) *T { return &v }
