package ticket

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/unibot-io/unibot/pkg/protocol"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.DB().Close() })
	return s
}

func openTicket(id, owner string) *protocol.Ticket {
	return &protocol.Ticket{
		ID:         id,
		Owner:      owner,
		Question:   "Where do I collect my ID card?",
		Status:     protocol.TicketOpen,
		Department: "General Inquiry",
		CreatedAt:  time.Now().Truncate(time.Second),
	}
}

func TestSaveAndGet(t *testing.T) {
	s := newTestStore(t)

	tk := openTicket("TKT-AB12CD", "Alex Johnson")
	if err := s.Save(tk); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.Get("TKT-AB12CD")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Owner != "Alex Johnson" {
		t.Errorf("expected owner 'Alex Johnson', got %q", got.Owner)
	}
	if got.Status != protocol.TicketOpen {
		t.Errorf("expected status open, got %q", got.Status)
	}
	if got.ResolvedAt != nil {
		t.Errorf("open ticket must not carry resolved_at, got %v", got.ResolvedAt)
	}
	if got.Response != "" {
		t.Errorf("open ticket must not carry a response, got %q", got.Response)
	}
}

func TestGetNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Get("TKT-MISSING"); err == nil {
		t.Error("expected error for unknown id")
	}
}

func TestResolve(t *testing.T) {
	s := newTestStore(t)
	s.Save(openTicket("TKT-1", "Alex"))

	at := time.Now().Truncate(time.Second)
	got, err := s.Resolve("TKT-1", "Collect it from room 12.", at)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Status != protocol.TicketResolved {
		t.Errorf("expected resolved, got %q", got.Status)
	}
	if got.ResolvedAt == nil || !got.ResolvedAt.Equal(at) {
		t.Errorf("expected resolved_at %v, got %v", at, got.ResolvedAt)
	}
	if got.Response != "Collect it from room 12." {
		t.Errorf("unexpected response %q", got.Response)
	}
}

func TestResolveNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Resolve("TKT-NONE", "resp", time.Now()); err == nil {
		t.Error("expected error resolving unknown id")
	}
}

func TestResolveLastWriteWins(t *testing.T) {
	s := newTestStore(t)
	s.Save(openTicket("TKT-2", "Alex"))

	first := time.Now().Add(-time.Hour).Truncate(time.Second)
	if _, err := s.Resolve("TKT-2", "first answer", first); err != nil {
		t.Fatalf("first resolve: %v", err)
	}

	second := time.Now().Truncate(time.Second)
	got, err := s.Resolve("TKT-2", "second answer", second)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if got.Status != protocol.TicketResolved {
		t.Errorf("expected resolved, got %q", got.Status)
	}
	if got.Response != "second answer" {
		t.Errorf("expected latest response, got %q", got.Response)
	}
	if got.ResolvedAt == nil || !got.ResolvedAt.Equal(second) {
		t.Errorf("expected resolved_at of latest call, got %v", got.ResolvedAt)
	}
}

func TestConcurrentResolvesDistinctIDs(t *testing.T) {
	s := newTestStore(t)
	const n = 8
	for i := 0; i < n; i++ {
		s.Save(openTicket(fmt.Sprintf("TKT-%d", i), "Alex"))
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Resolve(fmt.Sprintf("TKT-%d", i), fmt.Sprintf("answer %d", i), time.Now())
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		got, err := s.Get(fmt.Sprintf("TKT-%d", i))
		if err != nil {
			t.Fatalf("get %d: %v", i, err)
		}
		if got.Status != protocol.TicketResolved {
			t.Errorf("ticket %d: expected resolved, got %q", i, got.Status)
		}
		if got.Response != fmt.Sprintf("answer %d", i) {
			t.Errorf("ticket %d: clobbered response %q", i, got.Response)
		}
	}
}

func TestUpdateStatus(t *testing.T) {
	s := newTestStore(t)
	s.Save(openTicket("TKT-3", "Alex"))

	if err := s.UpdateStatus("TKT-3", protocol.TicketInProgress); err != nil {
		t.Fatalf("update status: %v", err)
	}
	got, _ := s.Get("TKT-3")
	if got.Status != protocol.TicketInProgress {
		t.Errorf("expected in-progress, got %q", got.Status)
	}

	// Resolved is terminal and only reachable via Resolve.
	if err := s.UpdateStatus("TKT-3", protocol.TicketResolved); err == nil {
		t.Error("expected error setting resolved via UpdateStatus")
	}
	s.Resolve("TKT-3", "done", time.Now())
	if err := s.UpdateStatus("TKT-3", protocol.TicketOpen); err == nil {
		t.Error("expected error reopening a resolved ticket")
	}
}

func TestListAndCountFilters(t *testing.T) {
	s := newTestStore(t)
	a := openTicket("TKT-A", "Alex")
	a.Department = "Housing Office"
	b := openTicket("TKT-B", "Sam")
	c := openTicket("TKT-C", "Alex")
	s.Save(a)
	s.Save(b)
	s.Save(c)
	s.Resolve("TKT-C", "done", time.Now())

	open := protocol.TicketOpen
	got, err := s.List(Filter{Status: &open})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 open tickets, got %d", len(got))
	}

	byOwner, _ := s.List(Filter{Owner: "Alex"})
	if len(byOwner) != 2 {
		t.Errorf("expected 2 tickets for Alex, got %d", len(byOwner))
	}

	byDept, _ := s.List(Filter{Department: "Housing Office"})
	if len(byDept) != 1 || byDept[0].ID != "TKT-A" {
		t.Errorf("expected TKT-A for Housing Office, got %v", byDept)
	}

	count, err := s.Count(Filter{Status: &open})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Errorf("expected count 2, got %d", count)
	}
}

func TestListOpenedBefore(t *testing.T) {
	s := newTestStore(t)

	old := openTicket("TKT-OLD", "Alex")
	old.CreatedAt = time.Now().Add(-72 * time.Hour)
	s.Save(old)
	s.Save(openTicket("TKT-NEW", "Alex"))

	got, err := s.List(Filter{OpenedBefore: time.Now().Add(-48 * time.Hour)})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ID != "TKT-OLD" {
		t.Errorf("expected only TKT-OLD, got %v", got)
	}
}
