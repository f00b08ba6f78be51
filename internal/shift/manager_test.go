package shift

import (
	"context"
	"errors"
	"testing"

	"tokoledger/internal/cache"
	"tokoledger/internal/domain"
	"tokoledger/internal/store"
	"tokoledger/internal/store/memory"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(memory.New(), cache.NoopShiftCache{}, "")
}

func TestOpenShiftFallsBackToDefaultStore(t *testing.T) {
	m := NewManager(memory.New(), cache.NoopShiftCache{}, "main-store")

	opened, err := m.Open(context.Background(), domain.ShiftOpenRequest{
		OperatorID:   "op-1",
		OpeningCents: 1000,
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if opened.StoreID != "main-store" {
		t.Fatalf("expected default store, got %q", opened.StoreID)
	}

	// Lookups without a store resolve to the same shift.
	current, err := m.Current(context.Background(), "op-1", "")
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if current.ID != opened.ID {
		t.Fatalf("expected shift %s, got %s", opened.ID, current.ID)
	}
}

func TestOpenShift(t *testing.T) {
	m := newTestManager(t)

	opened, err := m.Open(context.Background(), domain.ShiftOpenRequest{
		OperatorID:   "op-1",
		StoreID:      "store-1",
		OpeningCents: 50000,
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if opened.Status != domain.ShiftStatusOpen {
		t.Fatalf("expected open status, got %s", opened.Status)
	}
	if opened.OpeningCents != 50000 {
		t.Fatalf("expected opening 50000, got %d", opened.OpeningCents)
	}
	if opened.ID == "" {
		t.Fatalf("expected shift ID")
	}
}

func TestOpenShiftTwiceRejected(t *testing.T) {
	m := newTestManager(t)

	if _, err := m.Open(context.Background(), domain.ShiftOpenRequest{
		OperatorID: "op-1", StoreID: "store-1",
	}); err != nil {
		t.Fatalf("first open: %v", err)
	}
	_, err := m.Open(context.Background(), domain.ShiftOpenRequest{
		OperatorID: "op-1", StoreID: "store-1",
	})
	if !errors.Is(err, store.ErrShiftAlreadyOpen) {
		t.Fatalf("expected ErrShiftAlreadyOpen, got %v", err)
	}
}

func TestOpenShiftPerOperatorIndependent(t *testing.T) {
	m := newTestManager(t)

	if _, err := m.Open(context.Background(), domain.ShiftOpenRequest{
		OperatorID: "op-1", StoreID: "store-1",
	}); err != nil {
		t.Fatalf("open op-1: %v", err)
	}
	if _, err := m.Open(context.Background(), domain.ShiftOpenRequest{
		OperatorID: "op-2", StoreID: "store-1",
	}); err != nil {
		t.Fatalf("open op-2 should be independent: %v", err)
	}
	if _, err := m.Open(context.Background(), domain.ShiftOpenRequest{
		OperatorID: "op-1", StoreID: "store-2",
	}); err != nil {
		t.Fatalf("open op-1 at another store should be independent: %v", err)
	}
}

func TestOpenShiftNegativeOpeningRejected(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Open(context.Background(), domain.ShiftOpenRequest{
		OperatorID: "op-1", StoreID: "store-1", OpeningCents: -1,
	})
	if !errors.Is(err, store.ErrInvalidSale) {
		t.Fatalf("expected ErrInvalidSale, got %v", err)
	}
}

func TestCloseWithoutOpenShift(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Close(context.Background(), domain.ShiftCloseRequest{
		OperatorID: "op-1", StoreID: "store-1",
	})
	if !errors.Is(err, store.ErrNoOpenShift) {
		t.Fatalf("expected ErrNoOpenShift, got %v", err)
	}
}

func TestCloseThenReopen(t *testing.T) {
	m := newTestManager(t)

	if _, err := m.Open(context.Background(), domain.ShiftOpenRequest{
		OperatorID: "op-1", StoreID: "store-1",
	}); err != nil {
		t.Fatalf("open: %v", err)
	}
	closed, err := m.Close(context.Background(), domain.ShiftCloseRequest{
		OperatorID: "op-1", StoreID: "store-1", ClosingCents: 0,
	})
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.ClosedAt == nil {
		t.Fatalf("expected closed_at set")
	}
	if _, err := m.Open(context.Background(), domain.ShiftOpenRequest{
		OperatorID: "op-1", StoreID: "store-1",
	}); err != nil {
		t.Fatalf("reopen after close: %v", err)
	}
}

func TestCurrentReturnsOpenShift(t *testing.T) {
	m := newTestManager(t)

	opened, err := m.Open(context.Background(), domain.ShiftOpenRequest{
		OperatorID: "op-1", StoreID: "store-1", OpeningCents: 1000,
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	current, err := m.Current(context.Background(), "op-1", "store-1")
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if current.ID != opened.ID {
		t.Fatalf("expected shift %s, got %s", opened.ID, current.ID)
	}
}

func TestRecordExpenseRequiresOpenShift(t *testing.T) {
	m := newTestManager(t)

	_, err := m.RecordExpense(context.Background(), domain.ExpenseRequest{
		OperatorID: "op-1", StoreID: "store-1", AmountCents: 100,
	})
	if !errors.Is(err, store.ErrNoOpenShift) {
		t.Fatalf("expected ErrNoOpenShift, got %v", err)
	}
}

func TestRecordExpenseAccumulates(t *testing.T) {
	m := newTestManager(t)

	if _, err := m.Open(context.Background(), domain.ShiftOpenRequest{
		OperatorID: "op-1", StoreID: "store-1", OpeningCents: 1000,
	}); err != nil {
		t.Fatalf("open: %v", err)
	}
	for _, amount := range []int64{100, 250} {
		if _, err := m.RecordExpense(context.Background(), domain.ExpenseRequest{
			OperatorID: "op-1", StoreID: "store-1", AmountCents: amount,
		}); err != nil {
			t.Fatalf("record expense %d: %v", amount, err)
		}
	}

	current, err := m.Current(context.Background(), "op-1", "store-1")
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if current.TotalExpensesCents != 350 {
		t.Fatalf("expected expenses 350, got %d", current.TotalExpensesCents)
	}

	closed, err := m.Close(context.Background(), domain.ShiftCloseRequest{
		OperatorID: "op-1", StoreID: "store-1", ClosingCents: 650,
	})
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.ExpectedCents != 650 || closed.DifferenceCents != 0 {
		t.Fatalf("expected 650/0, got %d/%d", closed.ExpectedCents, closed.DifferenceCents)
	}
}

func TestRecordExpenseRejectsNonPositiveAmount(t *testing.T) {
	m := newTestManager(t)

	if _, err := m.Open(context.Background(), domain.ShiftOpenRequest{
		OperatorID: "op-1", StoreID: "store-1",
	}); err != nil {
		t.Fatalf("open: %v", err)
	}
	_, err := m.RecordExpense(context.Background(), domain.ExpenseRequest{
		OperatorID: "op-1", StoreID: "store-1", AmountCents: 0,
	})
	if !errors.Is(err, store.ErrInvalidSale) {
		t.Fatalf("expected ErrInvalidSale, got %v", err)
	}
}
