package domain

import "testing"

func intPtr(v int) *int { return &v }

func TestPagingCriteria_Window(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		paging PagingCriteria
		max    int
		want   PageWindow
	}{
		{"empty is full first page", PagingCriteria{}, 10, PageWindow{First: 0, Size: 10}},
		{"page size within limit", PagingCriteria{FirstRecordIndex: intPtr(20), PageSize: intPtr(5)}, 10, PageWindow{First: 20, Size: 5}},
		{"oversized page is clamped", PagingCriteria{FirstRecordIndex: intPtr(0), PageSize: intPtr(500)}, 100, PageWindow{First: 0, Size: 100}},
		{"last index", PagingCriteria{FirstRecordIndex: intPtr(10), LastRecordIndex: intPtr(14)}, 10, PageWindow{First: 10, Size: 5}},
		{"last index clamped", PagingCriteria{FirstRecordIndex: intPtr(0), LastRecordIndex: intPtr(999)}, 10, PageWindow{First: 0, Size: 10}},
		{"page size wins over last index", PagingCriteria{PageSize: intPtr(3), LastRecordIndex: intPtr(50)}, 10, PageWindow{First: 0, Size: 3}},
		{"last before first is empty", PagingCriteria{FirstRecordIndex: intPtr(10), LastRecordIndex: intPtr(5)}, 10, PageWindow{First: 10, Size: 0}},
		{"negative first is zero", PagingCriteria{FirstRecordIndex: intPtr(-4), PageSize: intPtr(2)}, 10, PageWindow{First: 0, Size: 2}},
		{"zero max uses default", PagingCriteria{}, 0, PageWindow{First: 0, Size: DefaultMaxPageSize}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.paging.Window(tt.max); got != tt.want {
				t.Errorf("Window(%d) = %+v, want %+v", tt.max, got, tt.want)
			}
		})
	}
}

func TestPageWindow_Last(t *testing.T) {
	t.Parallel()
	if got := (PageWindow{First: 10, Size: 5}).Last(); got != 14 {
		t.Errorf("Last() = %d, want 14", got)
	}
}
