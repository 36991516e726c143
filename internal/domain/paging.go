package domain

// DefaultMaxPageSize applies when a repository is configured without a limit.
const DefaultMaxPageSize = 100

// PagingCriteria selects a window of an ordered result set.
// LastRecordIndex and PageSize are alternative ways of sizing the window;
// PageSize wins when both are set.
type PagingCriteria struct {
	FirstRecordIndex *int
	LastRecordIndex  *int
	PageSize         *int
}

// PageWindow is a resolved, clamped paging window.
type PageWindow struct {
	First int
	Size  int
}

// Last is the index of the last record the window may contain.
func (w PageWindow) Last() int { return w.First + w.Size - 1 }

// Window resolves the criteria against maxPageSize. Oversized requests are
// clamped down to maxPageSize, never rejected. Missing size information
// yields a full page.
func (p PagingCriteria) Window(maxPageSize int) PageWindow {
	if maxPageSize <= 0 {
		maxPageSize = DefaultMaxPageSize
	}

	first := 0
	if p.FirstRecordIndex != nil && *p.FirstRecordIndex > 0 {
		first = *p.FirstRecordIndex
	}

	size := maxPageSize
	switch {
	case p.PageSize != nil:
		size = *p.PageSize
	case p.LastRecordIndex != nil:
		size = *p.LastRecordIndex - first + 1
	}

	if size < 0 {
		size = 0
	}
	size = min(size, maxPageSize)

	return PageWindow{First: first, Size: size}
}

// RecordsPage is one window of a filtered result set together with the
// counts it was cut from.
type RecordsPage[T any] struct {
	TotalRecordCount    int64
	FilteredRecordCount int64
	Records             []T
}
