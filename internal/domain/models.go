package domain

import "time"

type Product struct {
	SKU        string `json:"sku"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	StockQty   int    `json:"stock_qty"`
	Active     bool   `json:"active"`
}

type PaymentMethod struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Active bool   `json:"active"`
}

type Shift struct {
	ID                 string     `json:"id"`
	OperatorID         string     `json:"operator_id"`
	StoreID            string     `json:"store_id"`
	OpeningCents       int64      `json:"opening_cents"`
	ClosingCents       int64      `json:"closing_cents,omitempty"`
	ExpectedCents      int64      `json:"expected_cents,omitempty"`
	DifferenceCents    int64      `json:"difference_cents,omitempty"`
	TotalSalesCents    int64      `json:"total_sales_cents"`
	TotalExpensesCents int64      `json:"total_expenses_cents"`
	CashSalesCents     int64      `json:"cash_sales_cents"`
	CardSalesCents     int64      `json:"card_sales_cents"`
	OtherSalesCents    int64      `json:"other_sales_cents"`
	TransactionsCount  int64      `json:"transactions_count"`
	Status             string     `json:"status"`
	Notes              string     `json:"notes,omitempty"`
	OpenedAt           time.Time  `json:"opened_at"`
	ClosedAt           *time.Time `json:"closed_at,omitempty"`
}

type ShiftOpenRequest struct {
	OperatorID   string `json:"operator_id"`
	StoreID      string `json:"store_id"`
	OpeningCents int64  `json:"opening_cents"`
	Notes        string `json:"notes"`
}

type ShiftCloseRequest struct {
	OperatorID   string `json:"operator_id"`
	StoreID      string `json:"store_id"`
	ClosingCents int64  `json:"closing_cents"`
	Notes        string `json:"notes"`
}

type ShiftResponse struct {
	Shift Shift `json:"shift"`
}

type Expense struct {
	ID          string    `json:"id"`
	ShiftID     string    `json:"shift_id"`
	AmountCents int64     `json:"amount_cents"`
	Note        string    `json:"note"`
	CreatedAt   time.Time `json:"created_at"`
}

type ExpenseRequest struct {
	OperatorID  string `json:"operator_id"`
	StoreID     string `json:"store_id"`
	AmountCents int64  `json:"amount_cents"`
	Note        string `json:"note"`
}

type SaleItem struct {
	SKU           string `json:"sku"`
	Qty           int    `json:"qty"`
	DiscountCents int64  `json:"discount_cents"`
}

type SaleRequest struct {
	OperatorID       string     `json:"operator_id"`
	StoreID          string     `json:"store_id"`
	IdempotencyKey   string     `json:"idempotency_key"`
	PaymentMethodID  string     `json:"payment_method_id"`
	PaymentReference string     `json:"payment_reference,omitempty"`
	AmountPaidCents  int64      `json:"amount_paid_cents"`
	CustomerName     string     `json:"customer_name,omitempty"`
	CustomerPhone    string     `json:"customer_phone,omitempty"`
	Items            []SaleItem `json:"items"`
}

type SaleLine struct {
	SKU            string `json:"sku"`
	ProductName    string `json:"product_name"`
	Qty            int    `json:"qty"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	DiscountCents  int64  `json:"discount_cents"`
	TotalCents     int64  `json:"total_cents"`
}

type Sale struct {
	ID               string     `json:"id"`
	InvoiceNumber    string     `json:"invoice_number"`
	IdempotencyKey   string     `json:"idempotency_key"`
	ShiftID          string     `json:"shift_id"`
	OperatorID       string     `json:"operator_id"`
	StoreID          string     `json:"store_id"`
	SubtotalCents    int64      `json:"subtotal_cents"`
	DiscountCents    int64      `json:"discount_cents"`
	TaxCents         int64      `json:"tax_cents"`
	TotalCents       int64      `json:"total_cents"`
	AmountPaidCents  int64      `json:"amount_paid_cents"`
	ChangeCents      int64      `json:"change_cents"`
	PaymentMethodID  string     `json:"payment_method_id"`
	PaymentKind      string     `json:"payment_kind"`
	PaymentBucket    string     `json:"payment_bucket"`
	PaymentReference string     `json:"payment_reference,omitempty"`
	CustomerName     string     `json:"customer_name,omitempty"`
	CustomerPhone    string     `json:"customer_phone,omitempty"`
	Status           string     `json:"status"`
	StockApplied     bool       `json:"stock_applied"`
	ShiftApplied     bool       `json:"shift_applied"`
	CreatedAt        time.Time  `json:"created_at"`
	Lines            []SaleLine `json:"lines"`
}

type SaleReceipt struct {
	SaleID          string     `json:"sale_id"`
	InvoiceNumber   string     `json:"invoice_number"`
	ShiftID         string     `json:"shift_id"`
	SubtotalCents   int64      `json:"subtotal_cents"`
	DiscountCents   int64      `json:"discount_cents"`
	TaxCents        int64      `json:"tax_cents"`
	TotalCents      int64      `json:"total_cents"`
	AmountPaidCents int64      `json:"amount_paid_cents"`
	ChangeCents     int64      `json:"change_cents"`
	PaymentBucket   string     `json:"payment_bucket"`
	ItemCount       int        `json:"item_count"`
	Duplicate       bool       `json:"duplicate"`
	CreatedAt       string     `json:"created_at"`
	Lines           []SaleLine `json:"lines"`
}

type StockShortfall struct {
	SKU       string `json:"sku"`
	Requested int    `json:"requested"`
	Applied   int    `json:"applied"`
}

type ReconciliationTask struct {
	ID            string    `json:"id"`
	InvoiceNumber string    `json:"invoice_number"`
	Step          string    `json:"step"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

type OfflineEntry struct {
	ID         string      `json:"id"`
	Request    SaleRequest `json:"request"`
	CapturedAt time.Time   `json:"captured_at"`
}

type SyncResult struct {
	EntryID       string `json:"entry_id"`
	Status        string `json:"status"`
	InvoiceNumber string `json:"invoice_number,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

type SyncReport struct {
	Attempted int          `json:"attempted"`
	Synced    int          `json:"synced"`
	Duplicate int          `json:"duplicate"`
	Failed    int          `json:"failed"`
	SyncedAt  string       `json:"synced_at"`
	Results   []SyncResult `json:"results"`
}

type OfflineStatus struct {
	Enabled      bool       `json:"enabled"`
	PendingCount int        `json:"pending_count"`
	LastSyncAt   *time.Time `json:"last_sync_at,omitempty"`
}

const (
	ShiftStatusOpen   = "open"
	ShiftStatusClosed = "closed"
)

const SaleStatusCompleted = "completed"

const (
	PaymentKindCash     = "cash"
	PaymentKindCard     = "card"
	PaymentKindDebit    = "debit"
	PaymentKindQRIS     = "qris"
	PaymentKindEwallet  = "ewallet"
	PaymentKindTransfer = "transfer"
)

const (
	BucketCash  = "cash"
	BucketCard  = "card"
	BucketOther = "other"
)

const (
	SyncStatusSynced    = "synced"
	SyncStatusDuplicate = "duplicate"
	SyncStatusFailed    = "failed"
)

const (
	SagaStepPersist = "persist"
	SagaStepStock   = "stock"
	SagaStepShift   = "shift"
)
