package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"tokoledger/internal/domain"
	"tokoledger/internal/inventory"
	"tokoledger/internal/metrics"
	"tokoledger/internal/payment"
	"tokoledger/internal/shift"
	"tokoledger/internal/store"
)

var (
	ErrEmptyCart           = errors.New("empty cart")
	ErrInsufficientPayment = errors.New("insufficient payment")
)

// SagaError reports a sale that was persisted but whose follow-up
// steps did not all complete. The invoice number lets the caller
// retry: replaying the same request resumes the remaining steps.
type SagaError struct {
	InvoiceNumber string
	Step          string
	Err           error
}

func (e *SagaError) Error() string {
	return fmt.Sprintf("sale %s: step %s failed: %v", e.InvoiceNumber, e.Step, e.Err)
}

func (e *SagaError) Unwrap() error {
	return e.Err
}

type Config struct {
	TaxEnabled     bool
	TaxRatePercent float64
}

// Ledger records sales against the open shift. Each sale runs a
// three-step sequence: persist the header and lines, apply stock
// decrements, then fold the total into the shift aggregates. Every
// step is idempotent per sale, so a replayed request finishes whatever
// an earlier attempt left undone.
type Ledger struct {
	repo       store.Repository
	shifts     *shift.Manager
	inventory  *inventory.Adjuster
	classifier *payment.Classifier
	taxEnabled bool
	taxRate    float64
}

func New(repo store.Repository, shifts *shift.Manager, adjuster *inventory.Adjuster, classifier *payment.Classifier, cfg Config) *Ledger {
	return &Ledger{
		repo:       repo,
		shifts:     shifts,
		inventory:  adjuster,
		classifier: classifier,
		taxEnabled: cfg.TaxEnabled,
		taxRate:    cfg.TaxRatePercent,
	}
}

func (l *Ledger) CreateSale(ctx context.Context, req domain.SaleRequest) (*domain.SaleReceipt, error) {
	operatorID := strings.TrimSpace(req.OperatorID)
	storeID := l.shifts.ResolveStore(req.StoreID)
	if operatorID == "" || storeID == "" {
		return nil, store.ErrInvalidSale
	}
	items, err := normalizeItems(req.Items)
	if err != nil {
		return nil, err
	}
	if req.AmountPaidCents < 0 {
		return nil, store.ErrInvalidSale
	}

	openShift, err := l.shifts.Current(ctx, operatorID, storeID)
	if err != nil {
		return nil, err
	}

	idemKey := strings.TrimSpace(req.IdempotencyKey)
	if idemKey != "" {
		existing, err := l.repo.GetSaleByIdempotencyKey(ctx, idemKey)
		if err == nil {
			return l.finish(ctx, existing, true)
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}

	method, err := l.repo.GetPaymentMethod(ctx, strings.TrimSpace(req.PaymentMethodID))
	if err != nil {
		return nil, err
	}
	if !method.Active {
		return nil, store.ErrInvalidSale
	}
	bucket := l.classifier.Classify(method.Kind)

	lines, subtotal, discount, err := l.priceItems(ctx, items)
	if err != nil {
		return nil, err
	}
	taxBase := subtotal - discount
	var tax int64
	if l.taxEnabled {
		tax = int64(math.Round(float64(taxBase) * l.taxRate / 100))
	}
	total := taxBase + tax

	paid := req.AmountPaidCents
	if paid == 0 {
		paid = total
	}
	if paid < total {
		return nil, fmt.Errorf("%w: paid %d of %d", ErrInsufficientPayment, paid, total)
	}
	change := paid - total

	now := time.Now().UTC()
	day := now.Format("20060102")
	seq, err := l.repo.NextInvoiceSeq(ctx, storeID, day)
	if err != nil {
		return nil, err
	}
	invoiceNumber := fmt.Sprintf("INV-%s-%s-%04d", storeID, day, seq)

	sale := domain.Sale{
		InvoiceNumber:    invoiceNumber,
		IdempotencyKey:   idemKey,
		ShiftID:          openShift.ID,
		OperatorID:       operatorID,
		StoreID:          storeID,
		SubtotalCents:    subtotal,
		DiscountCents:    discount,
		TaxCents:         tax,
		TotalCents:       total,
		AmountPaidCents:  paid,
		ChangeCents:      change,
		PaymentMethodID:  method.ID,
		PaymentKind:      method.Kind,
		PaymentBucket:    bucket,
		PaymentReference: strings.TrimSpace(req.PaymentReference),
		CustomerName:     strings.TrimSpace(req.CustomerName),
		CustomerPhone:    strings.TrimSpace(req.CustomerPhone),
		Status:           domain.SaleStatusCompleted,
		CreatedAt:        now,
		Lines:            lines,
	}

	created, err := l.repo.CreateSale(ctx, sale)
	if err != nil {
		return nil, &SagaError{InvoiceNumber: invoiceNumber, Step: domain.SagaStepPersist, Err: err}
	}
	// A concurrent request with the same idempotency key may have won
	// the insert. The stored sale is authoritative either way.
	duplicate := created.InvoiceNumber != invoiceNumber
	return l.finish(ctx, created, duplicate)
}

// finish runs (or resumes) the stock and shift steps for a persisted
// sale, then builds the receipt. Steps already applied are skipped by
// the store.
func (l *Ledger) finish(ctx context.Context, sale *domain.Sale, duplicate bool) (*domain.SaleReceipt, error) {
	if !sale.StockApplied {
		if err := l.inventory.ApplySale(ctx, sale.ID, sale.InvoiceNumber); err != nil {
			return nil, l.sagaFailure(ctx, sale, domain.SagaStepStock, err)
		}
		sale.StockApplied = true
	}
	if !sale.ShiftApplied {
		if err := l.repo.ApplySaleToShift(ctx, sale.ID); err != nil {
			return nil, l.sagaFailure(ctx, sale, domain.SagaStepShift, err)
		}
		sale.ShiftApplied = true
		l.shifts.Invalidate(ctx, sale.OperatorID, sale.StoreID)
	}

	if !duplicate {
		metrics.SalesCreated.Inc()
		metrics.SaleCents.Add(float64(sale.TotalCents))
	}
	receipt := &domain.SaleReceipt{
		SaleID:          sale.ID,
		InvoiceNumber:   sale.InvoiceNumber,
		ShiftID:         sale.ShiftID,
		SubtotalCents:   sale.SubtotalCents,
		DiscountCents:   sale.DiscountCents,
		TaxCents:        sale.TaxCents,
		TotalCents:      sale.TotalCents,
		AmountPaidCents: sale.AmountPaidCents,
		ChangeCents:     sale.ChangeCents,
		PaymentBucket:   sale.PaymentBucket,
		ItemCount:       len(sale.Lines),
		Duplicate:       duplicate,
		CreatedAt:       sale.CreatedAt.Format(time.RFC3339),
		Lines:           sale.Lines,
	}
	return receipt, nil
}

func (l *Ledger) sagaFailure(ctx context.Context, sale *domain.Sale, step string, err error) error {
	metrics.SagaFailures.WithLabelValues(step).Inc()
	log.Printf("[ledger] WARN: sale %s step %s failed: %v", sale.InvoiceNumber, step, err)
	if taskErr := l.repo.CreateReconciliationTask(ctx, domain.ReconciliationTask{
		InvoiceNumber: sale.InvoiceNumber,
		Step:          step,
		Detail:        err.Error(),
	}); taskErr != nil {
		log.Printf("[ledger] WARN: failed to queue reconciliation for %s: %v", sale.InvoiceNumber, taskErr)
	}
	return &SagaError{InvoiceNumber: sale.InvoiceNumber, Step: step, Err: err}
}

func (l *Ledger) priceItems(ctx context.Context, items []domain.SaleItem) ([]domain.SaleLine, int64, int64, error) {
	lines := make([]domain.SaleLine, 0, len(items))
	var subtotal, discount int64
	for _, item := range items {
		product, err := l.repo.GetProductBySKU(ctx, item.SKU)
		if err != nil {
			return nil, 0, 0, err
		}
		if !product.Active {
			return nil, 0, 0, store.ErrInvalidSale
		}
		if item.DiscountCents > product.PriceCents {
			return nil, 0, 0, store.ErrInvalidSale
		}
		lineSubtotal := product.PriceCents * int64(item.Qty)
		lineDiscount := item.DiscountCents * int64(item.Qty)
		// Line totals are pre-discount so they always sum to the sale
		// subtotal; discounts live in DiscountCents.
		lines = append(lines, domain.SaleLine{
			SKU:            product.SKU,
			ProductName:    product.Name,
			Qty:            item.Qty,
			UnitPriceCents: product.PriceCents,
			DiscountCents:  item.DiscountCents,
			TotalCents:     lineSubtotal,
		})
		subtotal += lineSubtotal
		discount += lineDiscount
	}
	return lines, subtotal, discount, nil
}

// ListSalesByShift returns the sales recorded under a shift, oldest
// first.
func (l *Ledger) ListSalesByShift(ctx context.Context, shiftID string) ([]domain.Sale, error) {
	shiftID = strings.TrimSpace(shiftID)
	if shiftID == "" {
		return nil, store.ErrInvalidSale
	}
	if _, err := l.repo.GetShiftByID(ctx, shiftID); err != nil {
		return nil, err
	}
	return l.repo.ListSalesByShift(ctx, shiftID)
}

func normalizeItems(items []domain.SaleItem) ([]domain.SaleItem, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	merged := map[string]domain.SaleItem{}
	order := []string{}
	for _, item := range items {
		sku := strings.TrimSpace(item.SKU)
		if sku == "" || item.Qty <= 0 || item.DiscountCents < 0 {
			return nil, store.ErrInvalidSale
		}
		if existing, ok := merged[sku]; ok {
			existing.Qty += item.Qty
			merged[sku] = existing
			continue
		}
		merged[sku] = domain.SaleItem{SKU: sku, Qty: item.Qty, DiscountCents: item.DiscountCents}
		order = append(order, sku)
	}
	out := make([]domain.SaleItem, 0, len(order))
	for _, sku := range order {
		out = append(out, merged[sku])
	}
	return out, nil
}
