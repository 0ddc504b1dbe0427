// Package journaltest holds the behavioral tests every journal.Store
// backend must pass.
package journaltest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/sandbox-llm/orch/pkg/journal"
)

// baseTime is microsecond aligned so every backend stores it exactly.
var baseTime = time.Date(2026, 3, 14, 15, 9, 26, 535000000, time.UTC)

// MakeExchange returns a completed exchange created n seconds after a
// fixed base time.
func MakeExchange(id string, n int) *journal.Exchange {
	return &journal.Exchange{
		ID:          id,
		Subject:     "alice",
		Message:     "What is in the notes?",
		ResourceURI: "file:///data/notes.txt",
		Prompt:      "Please respond.\n\nUser: What is in the notes?\nAssistant:",
		Response:    "They are about testing.",
		Usage:       json.RawMessage(`{"prompt_tokens":12,"completion_tokens":5}`),
		Status:      journal.StatusCompleted,
		Duration:    1500 * time.Millisecond,
		CreatedAt:   baseTime.Add(time.Duration(n) * time.Second),
	}
}

// Run exercises a store produced by newStore. Each subtest gets a fresh,
// empty store.
func Run(t *testing.T, newStore func(t *testing.T) journal.Store) {
	t.Run("RecordAndGet", func(t *testing.T) { testRecordAndGet(t, newStore(t)) })
	t.Run("RecordFailed", func(t *testing.T) { testRecordFailed(t, newStore(t)) })
	t.Run("GetNotFound", func(t *testing.T) { testGetNotFound(t, newStore(t)) })
	t.Run("Conflict", func(t *testing.T) { testConflict(t, newStore(t)) })
	t.Run("ListNewestFirst", func(t *testing.T) { testListNewestFirst(t, newStore(t)) })
	t.Run("ListPagination", func(t *testing.T) { testListPagination(t, newStore(t)) })
	t.Run("ListUnknownCursor", func(t *testing.T) { testListUnknownCursor(t, newStore(t)) })
	t.Run("ListEmpty", func(t *testing.T) { testListEmpty(t, newStore(t)) })
	t.Run("TenantScoping", func(t *testing.T) { testTenantScoping(t, newStore(t)) })
	t.Run("HealthCheck", func(t *testing.T) {
		if err := newStore(t).HealthCheck(context.Background()); err != nil {
			t.Errorf("HealthCheck: %v", err)
		}
	})
}

func record(t *testing.T, s journal.Store, ctx context.Context, x *journal.Exchange) {
	t.Helper()
	if err := s.Record(ctx, x); err != nil {
		t.Fatalf("Record(%s): %v", x.ID, err)
	}
}

func testRecordAndGet(t *testing.T, s journal.Store) {
	ctx := context.Background()
	want := MakeExchange("xchg_get", 0)
	record(t, s, ctx, want)

	got, err := s.Get(ctx, "xchg_get")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if got.ID != want.ID || got.Subject != want.Subject || got.Message != want.Message ||
		got.ResourceURI != want.ResourceURI || got.Prompt != want.Prompt ||
		got.Response != want.Response || got.Status != want.Status {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if got.Duration != want.Duration {
		t.Errorf("Duration = %v, want %v", got.Duration, want.Duration)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, want.CreatedAt)
	}
	if !sameJSON(t, got.Usage, want.Usage) {
		t.Errorf("Usage = %s, want %s", got.Usage, want.Usage)
	}
}

func testRecordFailed(t *testing.T, s journal.Store) {
	ctx := context.Background()
	x := MakeExchange("xchg_failed", 0)
	x.Response = ""
	x.Usage = nil
	x.Status = journal.StatusFailed
	x.ErrorType = "upstream_unavailable"
	x.ErrorMessage = "Could not connect to the LLM service at localhost:8001. Is it running?"
	record(t, s, ctx, x)

	got, err := s.Get(ctx, x.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != journal.StatusFailed || got.ErrorType != x.ErrorType || got.ErrorMessage != x.ErrorMessage {
		t.Errorf("got %+v", got)
	}
	if len(got.Usage) != 0 {
		t.Errorf("Usage = %s, want empty", got.Usage)
	}
}

func testGetNotFound(t *testing.T, s journal.Store) {
	_, err := s.Get(context.Background(), "xchg_missing")
	if !errors.Is(err, journal.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func testConflict(t *testing.T, s journal.Store) {
	ctx := context.Background()
	record(t, s, ctx, MakeExchange("xchg_dup", 0))

	err := s.Record(ctx, MakeExchange("xchg_dup", 1))
	if !errors.Is(err, journal.ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
}

func testListNewestFirst(t *testing.T, s journal.Store) {
	ctx := context.Background()
	// Recorded out of order on purpose.
	for _, n := range []int{2, 0, 3, 1} {
		record(t, s, ctx, MakeExchange(fmt.Sprintf("xchg_%d", n), n))
	}

	page, err := s.List(ctx, journal.ListOptions{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"xchg_3", "xchg_2", "xchg_1", "xchg_0"}
	if got := ids(page); !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
	if page.HasMore {
		t.Error("HasMore should be false")
	}
	if page.FirstID != "xchg_3" || page.LastID != "xchg_0" {
		t.Errorf("FirstID/LastID = %s/%s", page.FirstID, page.LastID)
	}
}

func testListPagination(t *testing.T, s journal.Store) {
	ctx := context.Background()
	for n := range 5 {
		record(t, s, ctx, MakeExchange(fmt.Sprintf("xchg_%d", n), n))
	}

	var pages [][]string
	after := ""
	for range 5 {
		page, err := s.List(ctx, journal.ListOptions{Limit: 2, After: after})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		pages = append(pages, ids(page))
		if !page.HasMore {
			break
		}
		after = page.LastID
	}

	want := [][]string{{"xchg_4", "xchg_3"}, {"xchg_2", "xchg_1"}, {"xchg_0"}}
	if !reflect.DeepEqual(pages, want) {
		t.Errorf("pages = %v, want %v", pages, want)
	}
}

func testListUnknownCursor(t *testing.T, s journal.Store) {
	ctx := context.Background()
	record(t, s, ctx, MakeExchange("xchg_0", 0))

	page, err := s.List(ctx, journal.ListOptions{After: "xchg_nope"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page.Data) != 0 || page.HasMore {
		t.Errorf("page = %+v, want empty", page)
	}
}

func testListEmpty(t *testing.T, s journal.Store) {
	page, err := s.List(context.Background(), journal.ListOptions{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Data == nil || len(page.Data) != 0 {
		t.Errorf("Data = %v, want empty non-nil slice", page.Data)
	}
}

func testTenantScoping(t *testing.T, s journal.Store) {
	ctxA := journal.SetTenant(context.Background(), "tenant-a")
	ctxB := journal.SetTenant(context.Background(), "tenant-b")

	record(t, s, ctxA, MakeExchange("xchg_a", 0))
	record(t, s, ctxB, MakeExchange("xchg_b", 1))

	if _, err := s.Get(ctxA, "xchg_b"); !errors.Is(err, journal.ErrNotFound) {
		t.Errorf("tenant-a read tenant-b exchange: err = %v", err)
	}
	got, err := s.Get(ctxB, "xchg_b")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Tenant != "tenant-b" {
		t.Errorf("Tenant = %q, want tenant-b", got.Tenant)
	}

	page, err := s.List(ctxA, journal.ListOptions{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got := ids(page); !reflect.DeepEqual(got, []string{"xchg_a"}) {
		t.Errorf("tenant-a list = %v", got)
	}

	page, err = s.List(context.Background(), journal.ListOptions{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page.Data) != 2 {
		t.Errorf("unscoped list has %d exchanges, want 2", len(page.Data))
	}
}

func ids(page *journal.ExchangeList) []string {
	out := make([]string, 0, len(page.Data))
	for _, x := range page.Data {
		out = append(out, x.ID)
	}
	return out
}

func sameJSON(t *testing.T, a, b json.RawMessage) bool {
	t.Helper()
	var va, vb any
	if err := json.Unmarshal(a, &va); err != nil {
		t.Fatalf("unmarshal %s: %v", a, err)
	}
	if err := json.Unmarshal(b, &vb); err != nil {
		t.Fatalf("unmarshal %s: %v", b, err)
	}
	return reflect.DeepEqual(va, vb)
}
