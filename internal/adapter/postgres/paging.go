package postgres

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/heartmarshall/modix-backend/internal/domain"
)

// Query is a compiled read: the unfiltered base select, the criteria
// filter, and the sort columns callers may order by.
type Query struct {
	// Base selects the projection columns with all joins and no WHERE.
	Base sq.SelectBuilder
	// Filter is the compiled criteria; nil means no filter.
	Filter sq.Sqlizer
	// Sortable maps SortingCriteria property names to column expressions.
	Sortable map[string]string
	// Key is the unique column appended to every ordering as a tiebreaker.
	Key string
}

func (q Query) filtered() sq.SelectBuilder {
	if q.Filter == nil {
		return q.Base
	}
	return q.Base.Where(q.Filter)
}

// OrderBy resolves sorting against q.Sortable. The key column is always
// appended so that windows over equal sort values are stable.
func (q Query) OrderBy(sorting []domain.SortingCriteria) []string {
	clauses := make([]string, 0, len(sorting)+1)
	keyed := false
	for _, s := range sorting {
		col, ok := q.Sortable[strings.ToLower(s.PropertyName)]
		if !ok {
			continue
		}
		dir := "ASC"
		if s.Direction == domain.SortDescending {
			dir = "DESC"
		}
		clauses = append(clauses, col+" "+dir)
		if col == q.Key {
			keyed = true
		}
	}
	if !keyed {
		clauses = append(clauses, q.Key+" ASC")
	}
	return clauses
}

// Select runs the filtered, ordered query and scans every row.
func Select[T any](ctx context.Context, querier Querier, q Query, sorting []domain.SortingCriteria, scan func(pgx.Row) (T, error)) ([]T, error) {
	return selectRows(ctx, querier, q.filtered().OrderBy(q.OrderBy(sorting)...), scan)
}

// Exists reports whether the filtered query matches any row.
func Exists(ctx context.Context, querier Querier, q Query) (bool, error) {
	inner, args, err := q.filtered().RemoveColumns().Columns("1").ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists: %w", err)
	}

	var exists bool
	if err := querier.QueryRow(ctx, "SELECT EXISTS("+inner+")", args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("exists: %w", err)
	}
	return exists, nil
}

// Paginate returns one window of the filtered, ordered query together with
// the unfiltered and filtered counts. The three statements share one
// snapshot. The window is clamped to maxPageSize.
func Paginate[T any](
	ctx context.Context,
	tm *TxManager,
	q Query,
	sorting []domain.SortingCriteria,
	paging domain.PagingCriteria,
	maxPageSize int,
	scan func(pgx.Row) (T, error),
) (domain.RecordsPage[T], error) {
	window := paging.Window(maxPageSize)

	var page domain.RecordsPage[T]
	err := tm.RunInSnapshot(ctx, func(ctx context.Context) error {
		querier := tm.Querier(ctx)

		total, err := count(ctx, querier, q.Base)
		if err != nil {
			return fmt.Errorf("count total: %w", err)
		}
		filtered, err := count(ctx, querier, q.filtered())
		if err != nil {
			return fmt.Errorf("count filtered: %w", err)
		}

		records := []T{}
		if window.Size > 0 && int64(window.First) < filtered {
			b := q.filtered().
				OrderBy(q.OrderBy(sorting)...).
				Offset(uint64(window.First)).
				Limit(uint64(window.Size))
			records, err = selectRows(ctx, querier, b, scan)
			if err != nil {
				return err
			}
		}

		page = domain.RecordsPage[T]{
			TotalRecordCount:    total,
			FilteredRecordCount: filtered,
			Records:             records,
		}
		return nil
	})
	if err != nil {
		return domain.RecordsPage[T]{}, err
	}

	return page, nil
}

func count(ctx context.Context, querier Querier, b sq.SelectBuilder) (int64, error) {
	query, args, err := b.RemoveColumns().Columns("count(*)").ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}

	var n int64
	if err := querier.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func selectRows[T any](ctx context.Context, querier Querier, b sq.SelectBuilder, scan func(pgx.Row) (T, error)) ([]T, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := querier.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	defer rows.Close()

	result := []T{}
	for rows.Next() {
		rec, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select rows: %w", err)
	}

	return result, nil
}
