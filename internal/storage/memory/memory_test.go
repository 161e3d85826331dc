package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"expensemanager/internal/core"
	"expensemanager/internal/ports"
)

func expense(date, cat, pay string) core.Expense {
	return core.Expense{
		ExpenseDate:   date,
		Category:      cat,
		PaymentMethod: pay,
		Amount:        decimal.NewNullDecimal(decimal.NewFromInt(10)),
		Description:   core.DefaultDescription,
	}
}

func TestMemoryStoreInsertAndGet(t *testing.T) {
	s := New()
	ctx := context.Background()

	got, err := s.Insert(ctx, expense("2024-05-01", "Travel", "Card"))
	if err != nil || got.ID != "EXP-0001" {
		t.Fatalf("unexpected insert: id=%q err=%v", got.ID, err)
	}
	if got.Creation.IsZero() {
		t.Fatalf("creation should be set")
	}

	back, err := s.Get(ctx, "EXP-0001")
	if err != nil || back.Category != "Travel" {
		t.Fatalf("unexpected get: %+v err=%v", back, err)
	}
	if _, err := s.Get(ctx, "EXP-0099"); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreListFiltersAndPages(t *testing.T) {
	s := New()
	ctx := context.Background()
	for i := 1; i <= 12; i++ {
		date := time.Date(2024, 1, i, 0, 0, 0, 0, time.UTC).Format(core.DateLayout)
		if _, err := s.Insert(ctx, expense(date, "Travel", "Card")); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	if _, err := s.Insert(ctx, expense("2024-01-05", "Food", "Cash")); err != nil {
		t.Fatalf("insert: %v", err)
	}

	page, err := s.List(ctx, core.ListFilter{Category: "Travel"}, 5, 5)
	if err != nil || len(page) != 5 {
		t.Fatalf("unexpected page: %d err=%v", len(page), err)
	}
	if page[0].ID != "EXP-0006" || page[4].ID != "EXP-0010" {
		t.Fatalf("unexpected page bounds %s..%s", page[0].ID, page[4].ID)
	}

	ranged, _ := s.List(ctx, core.ListFilter{From: "2024-01-01", To: "2024-01-10"}, 0, 100)
	if len(ranged) != 11 {
		t.Fatalf("expected 11 in range, got %d", len(ranged))
	}
	upTo, _ := s.List(ctx, core.ListFilter{To: "2024-01-03"}, 0, 100)
	if len(upTo) != 3 {
		t.Fatalf("expected 3 up to date, got %d", len(upTo))
	}
}

func TestMemoryStoreCreatedSince(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)

	s.SetClock(func() time.Time { return now.Add(-72 * time.Hour) })
	_, _ = s.Insert(ctx, expense("2024-04-29", "Old", "Card"))
	s.SetClock(func() time.Time { return now })
	_, _ = s.Insert(ctx, expense("2024-05-02", "New", "Card"))

	got, err := s.CreatedSince(ctx, core.SummaryWindowStart(now))
	if err != nil || len(got) != 1 || got[0].Category != "New" {
		t.Fatalf("unexpected window: %+v err=%v", got, err)
	}
}

func TestMemoryStoreUsersSessionsErrors(t *testing.T) {
	s := New()
	ctx := context.Background()

	_ = s.SaveUser(ctx, core.User{Username: "b", Enabled: true, Roles: []core.Role{core.SystemManager}})
	_ = s.SaveUser(ctx, core.User{Username: "a", Enabled: false, Roles: []core.Role{core.SystemManager}})
	_ = s.SaveUser(ctx, core.User{Username: "c", Enabled: true})

	managers, err := s.ListUsersWithRole(ctx, core.SystemManager)
	if err != nil || len(managers) != 2 || managers[0].Username != "a" {
		t.Fatalf("unexpected managers: %+v err=%v", managers, err)
	}

	if err := s.CreateSession(ctx, core.Session{SID: "sid-1", Username: "b"}); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if sess, err := s.GetSession(ctx, "sid-1"); err != nil || sess.Username != "b" {
		t.Fatalf("unexpected session: %+v err=%v", sess, err)
	}
	_ = s.DeleteSession(ctx, "sid-1")
	if _, err := s.GetSession(ctx, "sid-1"); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	_ = s.Record(ctx, "get_expenses", "boom")
	if errs := s.Errors(); len(errs) != 1 || errs[0].Title != "get_expenses" {
		t.Fatalf("unexpected error log: %+v", errs)
	}
}
