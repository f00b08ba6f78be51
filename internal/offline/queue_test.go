package offline

import (
	"context"
	"errors"
	"testing"

	"tokoledger/internal/cache"
	"tokoledger/internal/domain"
	"tokoledger/internal/inventory"
	"tokoledger/internal/ledger"
	"tokoledger/internal/payment"
	"tokoledger/internal/shift"
	"tokoledger/internal/store/memory"
)

func newTestQueue(t *testing.T) (*Queue, *shift.Manager, *memory.Store) {
	t.Helper()
	repo := memory.New()
	repo.PutProduct(domain.Product{SKU: "SKU-A", Name: "Item A", PriceCents: 100, StockQty: 50, Active: true})
	repo.PutPaymentMethod(domain.PaymentMethod{ID: "pm-cash", Name: "Tunai", Kind: domain.PaymentKindCash, Active: true})

	shifts := shift.NewManager(repo, cache.NoopShiftCache{}, "")
	l := ledger.New(repo, shifts, inventory.NewAdjuster(repo), payment.NewClassifier(nil), ledger.Config{})
	return NewQueue(NewMemoryStore(), l), shifts, repo
}

func saleReq() domain.SaleRequest {
	return domain.SaleRequest{
		OperatorID:      "op-1",
		StoreID:         "store-1",
		PaymentMethodID: "pm-cash",
		Items:           []domain.SaleItem{{SKU: "SKU-A", Qty: 1}},
	}
}

func TestCaptureRequiresOfflineMode(t *testing.T) {
	q, _, _ := newTestQueue(t)

	_, err := q.Capture(context.Background(), saleReq())
	if !errors.Is(err, ErrOfflineDisabled) {
		t.Fatalf("expected ErrOfflineDisabled, got %v", err)
	}
}

func TestSyncRequiresOnlineMode(t *testing.T) {
	q, _, _ := newTestQueue(t)
	if err := q.SetOfflineMode(context.Background(), true); err != nil {
		t.Fatalf("enable offline: %v", err)
	}

	_, err := q.Sync(context.Background())
	if !errors.Is(err, ErrOfflineEnabled) {
		t.Fatalf("expected ErrOfflineEnabled, got %v", err)
	}
}

func TestToggleOfflineMode(t *testing.T) {
	q, _, _ := newTestQueue(t)

	enabled, err := q.ToggleOfflineMode(context.Background())
	if err != nil || !enabled {
		t.Fatalf("expected toggle on, got %v %v", enabled, err)
	}
	enabled, err = q.ToggleOfflineMode(context.Background())
	if err != nil || enabled {
		t.Fatalf("expected toggle off, got %v %v", enabled, err)
	}
}

func TestSyncReplaysThroughLedger(t *testing.T) {
	q, shifts, repo := newTestQueue(t)
	if _, err := shifts.Open(context.Background(), domain.ShiftOpenRequest{
		OperatorID: "op-1", StoreID: "store-1",
	}); err != nil {
		t.Fatalf("open shift: %v", err)
	}

	if err := q.SetOfflineMode(context.Background(), true); err != nil {
		t.Fatalf("enable offline: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := q.Capture(context.Background(), saleReq()); err != nil {
			t.Fatalf("capture %d: %v", i, err)
		}
	}
	if err := q.SetOfflineMode(context.Background(), false); err != nil {
		t.Fatalf("disable offline: %v", err)
	}

	report, err := q.Sync(context.Background())
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if report.Attempted != 3 || report.Synced != 3 || report.Failed != 0 {
		t.Fatalf("unexpected report: attempted=%d synced=%d failed=%d",
			report.Attempted, report.Synced, report.Failed)
	}

	current, err := shifts.Current(context.Background(), "op-1", "store-1")
	if err != nil {
		t.Fatalf("current shift: %v", err)
	}
	if current.TotalSalesCents != 300 || current.TransactionsCount != 3 {
		t.Fatalf("replay did not reach ledger: total=%d count=%d",
			current.TotalSalesCents, current.TransactionsCount)
	}

	product, err := repo.GetProductBySKU(context.Background(), "SKU-A")
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if product.StockQty != 47 {
		t.Fatalf("replay did not decrement stock: got %d", product.StockQty)
	}

	status, err := q.Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.PendingCount != 0 {
		t.Fatalf("expected empty queue after sync, got %d", status.PendingCount)
	}
	if status.LastSyncAt == nil {
		t.Fatalf("expected last sync time recorded")
	}
}

func TestSyncFailureKeepsEntryQueued(t *testing.T) {
	q, _, _ := newTestQueue(t)
	// No open shift: replay fails, entry must stay.
	if err := q.SetOfflineMode(context.Background(), true); err != nil {
		t.Fatalf("enable offline: %v", err)
	}
	if _, err := q.Capture(context.Background(), saleReq()); err != nil {
		t.Fatalf("capture: %v", err)
	}
	if err := q.SetOfflineMode(context.Background(), false); err != nil {
		t.Fatalf("disable offline: %v", err)
	}

	report, err := q.Sync(context.Background())
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if report.Failed != 1 || report.Synced != 0 {
		t.Fatalf("expected one failure, got synced=%d failed=%d", report.Synced, report.Failed)
	}

	status, err := q.Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.PendingCount != 1 {
		t.Fatalf("expected failed entry retained, got %d pending", status.PendingCount)
	}
}

func TestSyncReplayIsIdempotent(t *testing.T) {
	q, shifts, _ := newTestQueue(t)
	if _, err := shifts.Open(context.Background(), domain.ShiftOpenRequest{
		OperatorID: "op-1", StoreID: "store-1",
	}); err != nil {
		t.Fatalf("open shift: %v", err)
	}

	if err := q.SetOfflineMode(context.Background(), true); err != nil {
		t.Fatalf("enable offline: %v", err)
	}
	entry, err := q.Capture(context.Background(), saleReq())
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if err := q.SetOfflineMode(context.Background(), false); err != nil {
		t.Fatalf("disable offline: %v", err)
	}

	if _, err := q.Sync(context.Background()); err != nil {
		t.Fatalf("first sync: %v", err)
	}

	// Simulate a crash between the ledger write and entry removal: the
	// same entry is back in the queue and replayed again.
	if err := q.store.Append(context.Background(), *entry); err != nil {
		t.Fatalf("re-append entry: %v", err)
	}
	report, err := q.Sync(context.Background())
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if report.Duplicate != 1 {
		t.Fatalf("expected replay flagged duplicate, got %+v", report)
	}

	current, err := shifts.Current(context.Background(), "op-1", "store-1")
	if err != nil {
		t.Fatalf("current shift: %v", err)
	}
	if current.TotalSalesCents != 100 || current.TransactionsCount != 1 {
		t.Fatalf("replay double-counted: total=%d count=%d",
			current.TotalSalesCents, current.TransactionsCount)
	}
}

func TestClearDropsQueue(t *testing.T) {
	q, _, _ := newTestQueue(t)
	if err := q.SetOfflineMode(context.Background(), true); err != nil {
		t.Fatalf("enable offline: %v", err)
	}
	if _, err := q.Capture(context.Background(), saleReq()); err != nil {
		t.Fatalf("capture: %v", err)
	}

	if err := q.Clear(context.Background()); err != nil {
		t.Fatalf("clear: %v", err)
	}
	status, err := q.Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.PendingCount != 0 {
		t.Fatalf("expected empty queue, got %d", status.PendingCount)
	}
	if status.Enabled {
		t.Fatalf("expected offline mode reset after clear")
	}
	if status.LastSyncAt != nil {
		t.Fatalf("expected last sync reset after clear, got %v", status.LastSyncAt)
	}
}
