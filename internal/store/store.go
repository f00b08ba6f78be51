package store

import (
	"context"
	"errors"
	"time"

	"tokoledger/internal/domain"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidSale      = errors.New("invalid sale")
	ErrShiftAlreadyOpen = errors.New("shift already open")
	ErrNoOpenShift      = errors.New("no open shift")
)

// Repository is the persistence contract shared by the in-memory and
// Postgres implementations. Aggregate updates (shift totals, stock
// levels, invoice counters) are performed as single guarded mutations
// inside the store so concurrent callers never lose increments.
type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProductBySKU(ctx context.Context, sku string) (*domain.Product, error)
	// AdjustStock changes a product's stock by delta and clamps the
	// result at zero. It returns the stock level after the change.
	AdjustStock(ctx context.Context, sku string, delta int) (int, error)

	ListPaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error)
	GetPaymentMethod(ctx context.Context, id string) (*domain.PaymentMethod, error)

	// CreateShift fails with ErrShiftAlreadyOpen when the operator
	// already has an open shift at the same store.
	CreateShift(ctx context.Context, shift domain.Shift) (*domain.Shift, error)
	GetOpenShift(ctx context.Context, operatorID, storeID string) (*domain.Shift, error)
	GetShiftByID(ctx context.Context, id string) (*domain.Shift, error)
	// CloseShift computes the expected drawer and drawer difference
	// from the persisted aggregates and marks the shift closed.
	CloseShift(ctx context.Context, operatorID, storeID string, closingCents int64, notes string, closedAt time.Time) (*domain.Shift, error)
	// RecordExpense stores the expense and adds its amount to the
	// shift's expense aggregate in the same operation.
	RecordExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error)

	// NextInvoiceSeq returns a monotonically increasing sequence for
	// the store and day, starting at 1. The counter is persisted, so
	// a sequence value is never handed out twice.
	NextInvoiceSeq(ctx context.Context, storeID, day string) (int64, error)

	// CreateSale persists the sale header and lines. When a sale with
	// the same idempotency key already exists the stored sale is
	// returned unchanged.
	CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	GetSaleByIdempotencyKey(ctx context.Context, key string) (*domain.Sale, error)
	GetSaleByInvoice(ctx context.Context, invoiceNumber string) (*domain.Sale, error)
	ListSalesByShift(ctx context.Context, shiftID string) ([]domain.Sale, error)

	// ApplySaleStock decrements stock for every sale line, clamping
	// each product at zero, and marks the sale's stock step done. A
	// sale whose stock step already ran is left untouched. Returned
	// shortfalls describe lines where the clamp absorbed part of the
	// decrement.
	ApplySaleStock(ctx context.Context, saleID string) ([]domain.StockShortfall, error)
	// ApplySaleToShift adds the sale's total to the shift aggregates
	// for its payment bucket and marks the sale's shift step done. A
	// sale whose shift step already ran is left untouched.
	ApplySaleToShift(ctx context.Context, saleID string) error

	CreateReconciliationTask(ctx context.Context, task domain.ReconciliationTask) error
	ListReconciliationTasks(ctx context.Context, limit int) ([]domain.ReconciliationTask, error)
}
