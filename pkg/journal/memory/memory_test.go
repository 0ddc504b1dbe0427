package memory

import (
	"context"
	"testing"

	"github.com/sandbox-llm/orch/pkg/journal"
	"github.com/sandbox-llm/orch/pkg/journal/journaltest"
)

func TestStore(t *testing.T) {
	journaltest.Run(t, func(t *testing.T) journal.Store { return New() })
}

func TestRecordCopiesExchange(t *testing.T) {
	s := New()
	ctx := context.Background()

	x := journaltest.MakeExchange("xchg_copy", 0)
	if err := s.Record(ctx, x); err != nil {
		t.Fatalf("Record: %v", err)
	}
	x.Response = "mutated"

	got, err := s.Get(ctx, "xchg_copy")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Response == "mutated" {
		t.Error("store shares memory with the caller's exchange")
	}

	got.Message = "also mutated"
	again, _ := s.Get(ctx, "xchg_copy")
	if again.Message == "also mutated" {
		t.Error("Get returns the stored exchange instead of a copy")
	}
}

func TestListBreaksTiesByInsertionOrder(t *testing.T) {
	s := New()
	ctx := context.Background()

	first := journaltest.MakeExchange("xchg_first", 0)
	second := journaltest.MakeExchange("xchg_second", 0)
	for _, x := range []*journal.Exchange{first, second} {
		if err := s.Record(ctx, x); err != nil {
			t.Fatal(err)
		}
	}

	page, err := s.List(ctx, journal.ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if page.Data[0].ID != "xchg_second" || page.Data[1].ID != "xchg_first" {
		t.Errorf("order = %s, %s", page.Data[0].ID, page.Data[1].ID)
	}
}
