package repository

import (
	"math"
	"testing"
)

func TestPageRequestBeyond(t *testing.T) {
	tests := []struct {
		name  string
		page  PageRequest
		total int64
		want  bool
	}{
		{name: "first page", page: PageRequest{Page: 0, Size: 2}, total: 5, want: false},
		{name: "last partial page", page: PageRequest{Page: 2, Size: 2}, total: 5, want: false},
		{name: "one past the end", page: PageRequest{Page: 3, Size: 2}, total: 5, want: true},
		{name: "exact fit has no extra page", page: PageRequest{Page: 2, Size: 2}, total: 4, want: true},
		{name: "empty listing", page: PageRequest{Page: 0, Size: 10}, total: 0, want: true},
		{name: "offset would overflow", page: PageRequest{Page: math.MaxInt64/2 + 1, Size: 2}, total: 2, want: true},
		{name: "max page and size", page: PageRequest{Page: math.MaxInt64, Size: math.MaxInt64}, total: 2, want: true},
		{name: "zero size", page: PageRequest{Page: 0, Size: 0}, total: 2, want: true},
		{name: "negative page", page: PageRequest{Page: -1, Size: 2}, total: 2, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.page.Beyond(tt.total); got != tt.want {
				t.Fatalf("Beyond(%d) = %v, want %v", tt.total, got, tt.want)
			}
		})
	}
}

func TestPageRequestOffset(t *testing.T) {
	if got := (PageRequest{Page: 3, Size: 25}).Offset(); got != 75 {
		t.Fatalf("expected offset 75, got %d", got)
	}
}
