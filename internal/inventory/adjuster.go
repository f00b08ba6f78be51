package inventory

import (
	"context"
	"fmt"
	"log"
	"strings"

	"tokoledger/internal/domain"
	"tokoledger/internal/store"
)

// Adjuster applies stock movements. Oversold lines are clamped at zero
// in the store and surfaced as reconciliation tasks instead of failing
// the sale.
type Adjuster struct {
	repo store.Repository
}

func NewAdjuster(repo store.Repository) *Adjuster {
	return &Adjuster{repo: repo}
}

// Decrement removes qty units from a product's stock, clamping at
// zero, and returns the stock level after the change.
func (a *Adjuster) Decrement(ctx context.Context, sku string, qty int) (int, error) {
	if qty <= 0 {
		return 0, store.ErrInvalidSale
	}
	return a.repo.AdjustStock(ctx, sku, -qty)
}

// ApplySale runs the stock step of a sale. Shortfalls from the zero
// clamp are logged and queued for manual reconciliation.
func (a *Adjuster) ApplySale(ctx context.Context, saleID, invoiceNumber string) error {
	shortfalls, err := a.repo.ApplySaleStock(ctx, saleID)
	if err != nil {
		return err
	}
	if len(shortfalls) == 0 {
		return nil
	}
	details := make([]string, 0, len(shortfalls))
	for _, sf := range shortfalls {
		details = append(details, fmt.Sprintf("%s requested %d applied %d", sf.SKU, sf.Requested, sf.Applied))
	}
	detail := strings.Join(details, "; ")
	log.Printf("[inventory] WARN: oversell on %s: %s", invoiceNumber, detail)
	if err := a.repo.CreateReconciliationTask(ctx, domain.ReconciliationTask{
		InvoiceNumber: invoiceNumber,
		Step:          domain.SagaStepStock,
		Detail:        detail,
	}); err != nil {
		log.Printf("[inventory] WARN: failed to queue reconciliation for %s: %v", invoiceNumber, err)
	}
	return nil
}
