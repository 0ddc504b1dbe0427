package journal

import (
	"fmt"
	"testing"
)

func TestNormalizeLimit(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, DefaultListLimit},
		{-5, DefaultListLimit},
		{1, 1},
		{100, 100},
		{101, MaxListLimit},
	}
	for _, tt := range tests {
		if got := NormalizeLimit(tt.in); got != tt.want {
			t.Errorf("NormalizeLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestNewList(t *testing.T) {
	rows := make([]*Exchange, 0, 4)
	for i := range 4 {
		rows = append(rows, &Exchange{ID: fmt.Sprintf("x%d", i)})
	}

	page := NewList(rows, 3)
	if !page.HasMore {
		t.Error("expected HasMore with limit+1 rows")
	}
	if len(page.Data) != 3 || page.FirstID != "x0" || page.LastID != "x2" {
		t.Errorf("page = %+v", page)
	}

	page = NewList(rows[:2], 3)
	if page.HasMore || len(page.Data) != 2 {
		t.Errorf("page = %+v", page)
	}

	page = NewList(nil, 3)
	if page.Data == nil || len(page.Data) != 0 || page.FirstID != "" {
		t.Errorf("empty page = %+v", page)
	}
	if page.Object != "list" {
		t.Errorf("Object = %q", page.Object)
	}
}
