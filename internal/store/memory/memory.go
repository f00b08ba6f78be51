package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"tokoledger/internal/domain"
	"tokoledger/internal/store"
	"tokoledger/internal/xid"
)

type Store struct {
	mu             sync.RWMutex
	products       map[string]domain.Product
	paymentMethods map[string]domain.PaymentMethod
	shiftsByID     map[string]domain.Shift
	openShiftByKey map[string]string
	salesByID      map[string]domain.Sale
	saleIDByIdem   map[string]string
	saleIDByInv    map[string]string
	expensesByID   map[string]domain.Expense
	invoiceSeq     map[string]int64
	tasks          []domain.ReconciliationTask
}

func New() *Store {
	return &Store{
		products:       map[string]domain.Product{},
		paymentMethods: map[string]domain.PaymentMethod{},
		shiftsByID:     map[string]domain.Shift{},
		openShiftByKey: map[string]string{},
		salesByID:      map[string]domain.Sale{},
		saleIDByIdem:   map[string]string{},
		saleIDByInv:    map[string]string{},
		expensesByID:   map[string]domain.Expense{},
		invoiceSeq:     map[string]int64{},
	}
}

func NewSeeded() *Store {
	s := New()
	products := []domain.Product{
		{SKU: "SKU-MIE-01", Name: "Mie Goreng Instan", PriceCents: 3500, StockQty: 120, Active: true},
		{SKU: "SKU-TELUR-01", Name: "Telur 10 Butir", PriceCents: 26500, StockQty: 40, Active: true},
		{SKU: "SKU-SUSU-01", Name: "Susu UHT 1L", PriceCents: 18900, StockQty: 36, Active: true},
		{SKU: "SKU-ROTI-01", Name: "Roti Tawar", PriceCents: 17800, StockQty: 24, Active: true},
		{SKU: "SKU-KOPI-01", Name: "Kopi Sachet", PriceCents: 2600, StockQty: 200, Active: true},
		{SKU: "SKU-GULA-01", Name: "Gula 1kg", PriceCents: 17400, StockQty: 50, Active: true},
		{SKU: "SKU-TEH-01", Name: "Teh Celup", PriceCents: 9800, StockQty: 60, Active: true},
		{SKU: "SKU-AIR-01", Name: "Air Mineral 600ml", PriceCents: 3900, StockQty: 150, Active: true},
		{SKU: "SKU-KERIPIK-01", Name: "Keripik Singkong", PriceCents: 12800, StockQty: 45, Active: true},
		{SKU: "SKU-SABUN-01", Name: "Sabun Mandi", PriceCents: 7400, StockQty: 80, Active: true},
	}
	for _, p := range products {
		s.products[p.SKU] = p
	}
	methods := []domain.PaymentMethod{
		{ID: "pm-cash", Name: "Tunai", Kind: domain.PaymentKindCash, Active: true},
		{ID: "pm-debit", Name: "Kartu Debit", Kind: domain.PaymentKindDebit, Active: true},
		{ID: "pm-credit", Name: "Kartu Kredit", Kind: domain.PaymentKindCard, Active: true},
		{ID: "pm-qris", Name: "QRIS", Kind: domain.PaymentKindQRIS, Active: true},
		{ID: "pm-transfer", Name: "Transfer Bank", Kind: domain.PaymentKindTransfer, Active: true},
	}
	for _, m := range methods {
		s.paymentMethods[m.ID] = m
	}
	return s
}

// PutProduct inserts or replaces a product. Used by seeding and by
// tests that need exact prices and stock levels.
func (s *Store) PutProduct(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.SKU] = p
}

// PutPaymentMethod inserts or replaces a payment method.
func (s *Store) PutPaymentMethod(m domain.PaymentMethod) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paymentMethods[m.ID] = m
}

func shiftKey(operatorID, storeID string) string {
	return operatorID + "::" + storeID
}

func invoiceKey(storeID, day string) string {
	return storeID + "::" + day
}

func cmpString(a, b string) int {
	return strings.Compare(a, b)
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b domain.Product) int {
		return cmpString(a.SKU, b.SKU)
	})
	return out, nil
}

func (s *Store) GetProductBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[sku]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := p
	return &out, nil
}

func (s *Store) AdjustStock(ctx context.Context, sku string, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[sku]
	if !ok {
		return 0, store.ErrNotFound
	}
	next := p.StockQty + delta
	if next < 0 {
		next = 0
	}
	p.StockQty = next
	s.products[sku] = p
	return next, nil
}

func (s *Store) ListPaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.PaymentMethod, 0, len(s.paymentMethods))
	for _, m := range s.paymentMethods {
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b domain.PaymentMethod) int {
		return cmpString(a.ID, b.ID)
	})
	return out, nil
}

func (s *Store) GetPaymentMethod(ctx context.Context, id string) (*domain.PaymentMethod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.paymentMethods[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := m
	return &out, nil
}

func (s *Store) CreateShift(ctx context.Context, shift domain.Shift) (*domain.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := shiftKey(shift.OperatorID, shift.StoreID)
	if _, ok := s.openShiftByKey[key]; ok {
		return nil, store.ErrShiftAlreadyOpen
	}
	if shift.ID == "" {
		shift.ID = xid.New("shf")
	}
	if shift.OpenedAt.IsZero() {
		shift.OpenedAt = time.Now().UTC()
	}
	shift.Status = domain.ShiftStatusOpen
	s.shiftsByID[shift.ID] = shift
	s.openShiftByKey[key] = shift.ID
	out := shift
	return &out, nil
}

func (s *Store) GetOpenShift(ctx context.Context, operatorID, storeID string) (*domain.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.openShiftByKey[shiftKey(operatorID, storeID)]
	if !ok {
		return nil, store.ErrNoOpenShift
	}
	shift := s.shiftsByID[id]
	out := shift
	return &out, nil
}

func (s *Store) GetShiftByID(ctx context.Context, id string) (*domain.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	shift, ok := s.shiftsByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := shift
	return &out, nil
}

func (s *Store) CloseShift(ctx context.Context, operatorID, storeID string, closingCents int64, notes string, closedAt time.Time) (*domain.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := shiftKey(operatorID, storeID)
	id, ok := s.openShiftByKey[key]
	if !ok {
		return nil, store.ErrNoOpenShift
	}
	shift := s.shiftsByID[id]
	shift.Status = domain.ShiftStatusClosed
	shift.ClosingCents = closingCents
	shift.ExpectedCents = shift.OpeningCents + shift.CashSalesCents - shift.TotalExpensesCents
	shift.DifferenceCents = closingCents - shift.ExpectedCents
	if notes != "" {
		shift.Notes = notes
	}
	at := closedAt.UTC()
	shift.ClosedAt = &at
	s.shiftsByID[id] = shift
	delete(s.openShiftByKey, key)
	out := shift
	return &out, nil
}

func (s *Store) RecordExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	shift, ok := s.shiftsByID[expense.ShiftID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if expense.ID == "" {
		expense.ID = xid.New("exp")
	}
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = time.Now().UTC()
	}
	s.expensesByID[expense.ID] = expense
	shift.TotalExpensesCents += expense.AmountCents
	s.shiftsByID[shift.ID] = shift
	out := expense
	return &out, nil
}

func (s *Store) NextInvoiceSeq(ctx context.Context, storeID, day string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := invoiceKey(storeID, day)
	s.invoiceSeq[key]++
	return s.invoiceSeq[key], nil
}

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sale.IdempotencyKey != "" {
		if existingID, ok := s.saleIDByIdem[sale.IdempotencyKey]; ok {
			existing := cloneSale(s.salesByID[existingID])
			return &existing, nil
		}
	}
	if sale.ID == "" {
		sale.ID = xid.New("sal")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}
	s.salesByID[sale.ID] = cloneSale(sale)
	if sale.IdempotencyKey != "" {
		s.saleIDByIdem[sale.IdempotencyKey] = sale.ID
	}
	s.saleIDByInv[sale.InvoiceNumber] = sale.ID
	out := cloneSale(sale)
	return &out, nil
}

func (s *Store) GetSaleByIdempotencyKey(ctx context.Context, key string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.saleIDByIdem[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := cloneSale(s.salesByID[id])
	return &out, nil
}

func (s *Store) GetSaleByInvoice(ctx context.Context, invoiceNumber string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.saleIDByInv[invoiceNumber]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := cloneSale(s.salesByID[id])
	return &out, nil
}

func (s *Store) ListSalesByShift(ctx context.Context, shiftID string) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.Sale{}
	for _, sale := range s.salesByID {
		if sale.ShiftID == shiftID {
			out = append(out, cloneSale(sale))
		}
	}
	slices.SortFunc(out, func(a, b domain.Sale) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(a.ID, b.ID)
		}
		if a.CreatedAt.Before(b.CreatedAt) {
			return -1
		}
		return 1
	})
	return out, nil
}

func (s *Store) ApplySaleStock(ctx context.Context, saleID string) ([]domain.StockShortfall, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sale, ok := s.salesByID[saleID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if sale.StockApplied {
		return nil, nil
	}
	var shortfalls []domain.StockShortfall
	for _, line := range sale.Lines {
		p, ok := s.products[line.SKU]
		if !ok {
			shortfalls = append(shortfalls, domain.StockShortfall{SKU: line.SKU, Requested: line.Qty, Applied: 0})
			continue
		}
		applied := line.Qty
		if p.StockQty < line.Qty {
			applied = p.StockQty
			shortfalls = append(shortfalls, domain.StockShortfall{SKU: line.SKU, Requested: line.Qty, Applied: applied})
		}
		p.StockQty -= applied
		s.products[line.SKU] = p
	}
	sale.StockApplied = true
	s.salesByID[saleID] = sale
	return shortfalls, nil
}

func (s *Store) ApplySaleToShift(ctx context.Context, saleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sale, ok := s.salesByID[saleID]
	if !ok {
		return store.ErrNotFound
	}
	if sale.ShiftApplied {
		return nil
	}
	shift, ok := s.shiftsByID[sale.ShiftID]
	if !ok {
		return store.ErrNotFound
	}
	if shift.Status != domain.ShiftStatusOpen {
		// The shift closed between the sale being persisted and this
		// step; its totals are final and must not move.
		return store.ErrNoOpenShift
	}
	shift.TotalSalesCents += sale.TotalCents
	shift.TransactionsCount++
	switch sale.PaymentBucket {
	case domain.BucketCash:
		shift.CashSalesCents += sale.TotalCents
	case domain.BucketCard:
		shift.CardSalesCents += sale.TotalCents
	default:
		shift.OtherSalesCents += sale.TotalCents
	}
	s.shiftsByID[shift.ID] = shift
	sale.ShiftApplied = true
	s.salesByID[saleID] = sale
	return nil
}

func (s *Store) CreateReconciliationTask(ctx context.Context, task domain.ReconciliationTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if task.ID == "" {
		task.ID = xid.New("rec")
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}
	s.tasks = append(s.tasks, task)
	return nil
}

func (s *Store) ListReconciliationTasks(ctx context.Context, limit int) ([]domain.ReconciliationTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ReconciliationTask, len(s.tasks))
	copy(out, s.tasks)
	slices.SortFunc(out, func(a, b domain.ReconciliationTask) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(a.ID, b.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func cloneSale(sale domain.Sale) domain.Sale {
	out := sale
	out.Lines = make([]domain.SaleLine, len(sale.Lines))
	copy(out.Lines, sale.Lines)
	return out
}
