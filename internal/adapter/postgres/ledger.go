package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/heartmarshall/modix-backend/internal/domain"
)

// Publisher receives one event per committed ledger entry.
type Publisher interface {
	Publish(ctx context.Context, ev domain.ActionCreated)
}

// Family describes the table backing one action family.
type Family[T domain.ActionType] struct {
	Table string
	// TargetColumns lists the target reference columns in the order they
	// are coalesced when reading an entry's TargetID.
	TargetColumns []string
	// TargetOf names the column an action type references its target by.
	TargetOf func(T) string
	// SupersededColumn references the row a copy-on-write edit made
	// terminal. Empty when the family has no such edits.
	SupersededColumn string
	// SupersedeTypes are the action types that set SupersededColumn.
	SupersedeTypes []T
}

func (f Family[T]) targetExpr() string {
	cols := make([]string, len(f.TargetColumns))
	for i, c := range f.TargetColumns {
		cols[i] = "a." + c
	}
	if len(cols) == 1 {
		return cols[0]
	}
	return "COALESCE(" + strings.Join(cols, ", ") + ")"
}

func (f Family[T]) supersededExpr() sq.Sqlizer {
	if f.SupersededColumn == "" || len(f.SupersedeTypes) == 0 {
		return sq.Expr("NULL::bigint")
	}
	types := make([]string, len(f.SupersedeTypes))
	for i, t := range f.SupersedeTypes {
		types[i] = string(t)
	}
	return sq.Expr("CASE WHEN a.type = ANY(?) THEN a."+f.SupersededColumn+" END", types)
}

// Terminal locates the column an AppendTerminal call sets.
type Terminal struct {
	Table  string
	Column string
	ID     int64
	// Active lists further terminal columns that must also be NULL for
	// the transition to apply.
	Active []string
	// Set holds extra columns written in the same UPDATE.
	Set map[string]any
}

// Supersede locates the row a copy-on-write edit replaces.
type Supersede struct {
	Table  string
	Column string
	ID     int64
	// Copy inserts the replacement row created by actionID and returns its id.
	Copy func(ctx context.Context, q Querier, actionID int64) (int64, error)
}

// Ledger appends to and reads one action family. Appends must run inside
// a transaction carried by ctx; notifications and metrics for an entry are
// emitted only once that transaction commits.
type Ledger[T domain.ActionType] struct {
	family Family[T]
	deps   Deps
	log    *slog.Logger
}

// NewLedger creates a Ledger for family.
func NewLedger[T domain.ActionType](family Family[T], deps Deps) *Ledger[T] {
	deps = deps.WithDefaults()
	return &Ledger[T]{
		family: family,
		deps:   deps,
		log:    deps.Log.With("ledger", family.Table),
	}
}

// ---------------------------------------------------------------------------
// Writes
// ---------------------------------------------------------------------------

// Append records e as is. It is used for actions that neither create nor
// terminate their target.
func (l *Ledger[T]) Append(ctx context.Context, e domain.LedgerEntry[T]) (domain.LedgerEntry[T], error) {
	e, err := l.insert(ctx, e)
	if err != nil {
		return e, err
	}
	l.announce(ctx, e)
	return e, nil
}

// AppendCreate records a create action and the entity it creates as one
// unit: the action is inserted without a target, insertEntity inserts the
// entity referencing the action, and the action is then pointed at the
// entity. Nothing is visible to other readers until the transaction in
// ctx commits.
func (l *Ledger[T]) AppendCreate(
	ctx context.Context,
	e domain.LedgerEntry[T],
	insertEntity func(ctx context.Context, q Querier, actionID int64) (int64, error),
) (domain.LedgerEntry[T], error) {
	e.TargetID = nil
	e, err := l.insert(ctx, e)
	if err != nil {
		return e, err
	}

	entityID, err := insertEntity(ctx, l.deps.Tx.Querier(ctx), e.ID)
	if err != nil {
		return e, err
	}

	if err := l.setTarget(ctx, e, entityID); err != nil {
		return e, err
	}
	e.TargetID = &entityID

	l.announce(ctx, e)
	return e, nil
}

// AppendTerminal records e against the row t locates and sets its terminal
// column. It returns nil, without error, when the row does not exist or
// is already terminal. The row is locked before the check so concurrent
// transitions of one entity serialize and exactly one of them applies.
func (l *Ledger[T]) AppendTerminal(ctx context.Context, e domain.LedgerEntry[T], t Terminal) (*domain.LedgerEntry[T], error) {
	guildID, ok, err := l.lockActive(ctx, t.Table, t.ID, append([]string{t.Column}, t.Active...))
	if err != nil || !ok {
		return nil, err
	}

	e.GuildID = guildID
	e.TargetID = &t.ID
	e, err = l.insert(ctx, e)
	if err != nil {
		return nil, err
	}

	set := map[string]any{t.Column: e.ID}
	for k, v := range t.Set {
		set[k] = v
	}
	query, args, err := psql.Update(t.Table).SetMap(set).Where(sq.Eq{"id": t.ID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build terminal update: %w", err)
	}
	if _, err := l.deps.Tx.Querier(ctx).Exec(ctx, query, args...); err != nil {
		return nil, MapError(err, t.Table, t.ID)
	}

	l.announce(ctx, e)
	return &e, nil
}

// AppendSupersede performs a copy-on-write edit. The old row is made
// terminal by e before its replacement is inserted, so both rows are never
// active together. e references the old row through SupersededID and the
// replacement through TargetID. It returns nil when the old row does not
// exist or is already terminal.
func (l *Ledger[T]) AppendSupersede(ctx context.Context, e domain.LedgerEntry[T], s Supersede) (*domain.LedgerEntry[T], error) {
	guildID, ok, err := l.lockActive(ctx, s.Table, s.ID, []string{s.Column})
	if err != nil || !ok {
		return nil, err
	}

	e.GuildID = guildID
	e.TargetID = nil
	e.SupersededID = &s.ID
	e, err = l.insert(ctx, e)
	if err != nil {
		return nil, err
	}

	q := l.deps.Tx.Querier(ctx)
	query, args, err := psql.Update(s.Table).Set(s.Column, e.ID).Where(sq.Eq{"id": s.ID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build supersede update: %w", err)
	}
	if _, err := q.Exec(ctx, query, args...); err != nil {
		return nil, MapError(err, s.Table, s.ID)
	}

	newID, err := s.Copy(ctx, q, e.ID)
	if err != nil {
		return nil, err
	}
	if err := l.setTarget(ctx, e, newID); err != nil {
		return nil, err
	}
	e.TargetID = &newID

	l.announce(ctx, e)
	return &e, nil
}

func (l *Ledger[T]) lockActive(ctx context.Context, table string, id int64, nullColumns []string) (uint64, bool, error) {
	where := sq.And{sq.Eq{"id": id}}
	for _, c := range nullColumns {
		where = append(where, sq.Eq{c: nil})
	}
	query, args, err := psql.Select("guild_id").From(table).Where(where).Suffix("FOR UPDATE").ToSql()
	if err != nil {
		return 0, false, fmt.Errorf("build lock: %w", err)
	}

	var guildID uint64
	err = l.deps.Tx.Querier(ctx).QueryRow(ctx, query, args...).Scan(&guildID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, MapError(err, table, id)
	}
	return guildID, true, nil
}

func (l *Ledger[T]) insert(ctx context.Context, e domain.LedgerEntry[T]) (domain.LedgerEntry[T], error) {
	if !e.Type.IsValid() {
		return e, domain.NewValidationError("type", fmt.Sprintf("unknown %s action %q", e.Type.Family(), string(e.Type)))
	}
	if _, ok := txFromCtx(ctx); !ok {
		return e, fmt.Errorf("append %s: no transaction in context", e.Type)
	}

	e.Created = l.deps.Clock()
	cols := map[string]any{
		"guild_id":      e.GuildID,
		"type":          string(e.Type),
		"created":       e.Created,
		"created_by_id": e.CreatedByID,
	}
	if e.TargetID != nil {
		cols[l.family.TargetOf(e.Type)] = *e.TargetID
	}
	if e.SupersededID != nil && l.family.SupersededColumn != "" {
		cols[l.family.SupersededColumn] = *e.SupersededID
	}

	query, args, err := psql.Insert(l.family.Table).SetMap(cols).Suffix("RETURNING id").ToSql()
	if err != nil {
		return e, fmt.Errorf("build action insert: %w", err)
	}
	if err := l.deps.Tx.Querier(ctx).QueryRow(ctx, query, args...).Scan(&e.ID); err != nil {
		return e, MapError(err, l.family.Table, e.Type)
	}
	return e, nil
}

func (l *Ledger[T]) setTarget(ctx context.Context, e domain.LedgerEntry[T], targetID int64) error {
	query, args, err := psql.Update(l.family.Table).
		Set(l.family.TargetOf(e.Type), targetID).
		Where(sq.Eq{"id": e.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build target backfill: %w", err)
	}
	if _, err := l.deps.Tx.Querier(ctx).Exec(ctx, query, args...); err != nil {
		return MapError(err, l.family.Table, e.ID)
	}
	return nil
}

func (l *Ledger[T]) announce(ctx context.Context, e domain.LedgerEntry[T]) {
	AfterCommit(ctx, func(ctx context.Context) {
		l.deps.Metrics.ActionCommitted(e.Type.Family(), string(e.Type))
		l.log.DebugContext(ctx, "action committed",
			slog.Int64("action_id", e.ID),
			slog.String("type", string(e.Type)),
		)
		if l.deps.Publisher != nil {
			l.deps.Publisher.Publish(ctx, domain.NewActionCreated(e))
		}
	})
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

var actionSortable = map[string]string{
	"id":          "a.id",
	"created":     "a.created",
	"type":        "a.type",
	"createdbyid": "a.created_by_id",
}

func (l *Ledger[T]) query(c domain.ActionSearchCriteria[T]) Query {
	base := psql.Select("a.id", "a.guild_id", "a.type", "a.created", "a.created_by_id", l.family.targetExpr()).
		Column(l.family.supersededExpr()).
		From(l.family.Table + " a")

	var crit Criteria
	Eq(&crit, "a.guild_id", c.GuildID)
	In(&crit, "a.type", Strings(c.Types))
	Range(&crit, "a.created", c.CreatedRange)
	Eq(&crit, "a.created_by_id", c.CreatedByID)
	if c.TargetID != nil {
		targets := make(sq.Or, 0, len(l.family.TargetColumns))
		for _, col := range l.family.TargetColumns {
			targets = append(targets, sq.Eq{"a." + col: *c.TargetID})
		}
		crit.FilterBy(targets, true)
	}

	return Query{Base: base, Filter: crit.Sqlizer(), Sortable: actionSortable, Key: "a.id"}
}

func scanEntry[T domain.ActionType](row pgx.Row) (domain.LedgerEntry[T], error) {
	var (
		e  domain.LedgerEntry[T]
		tp string
	)
	if err := row.Scan(&e.ID, &e.GuildID, &tp, &e.Created, &e.CreatedByID, &e.TargetID, &e.SupersededID); err != nil {
		return e, err
	}
	e.Type = T(tp)
	e.Created = e.Created.UTC()
	return e, nil
}

// Read returns one entry.
func (l *Ledger[T]) Read(ctx context.Context, id int64) (domain.LedgerEntry[T], error) {
	query, args, err := l.query(domain.ActionSearchCriteria[T]{}).Base.Where(sq.Eq{"a.id": id}).ToSql()
	if err != nil {
		return domain.LedgerEntry[T]{}, fmt.Errorf("build read: %w", err)
	}
	e, err := scanEntry[T](l.deps.Tx.Querier(ctx).QueryRow(ctx, query, args...))
	if err != nil {
		return e, MapError(err, l.family.Table, id)
	}
	return e, nil
}

// Search returns the entries matching c, oldest first unless sorting says otherwise.
func (l *Ledger[T]) Search(ctx context.Context, c domain.ActionSearchCriteria[T], sorting []domain.SortingCriteria) ([]domain.LedgerEntry[T], error) {
	return Select(ctx, l.deps.Tx.Querier(ctx), l.query(c), sorting, scanEntry[T])
}

// SearchPaged returns one window of the entries matching c.
func (l *Ledger[T]) SearchPaged(
	ctx context.Context,
	c domain.ActionSearchCriteria[T],
	sorting []domain.SortingCriteria,
	paging domain.PagingCriteria,
) (domain.RecordsPage[domain.LedgerEntry[T]], error) {
	return Paginate(ctx, l.deps.Tx, l.query(c), sorting, paging, l.deps.MaxPageSize, scanEntry[T])
}
