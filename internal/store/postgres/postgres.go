package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"tokoledger/internal/domain"
	"tokoledger/internal/store"
	"tokoledger/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS products (
	sku         TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	price_cents BIGINT NOT NULL,
	stock_qty   INTEGER NOT NULL DEFAULT 0,
	active      BOOLEAN NOT NULL DEFAULT TRUE
);
CREATE TABLE IF NOT EXISTS payment_methods (
	id     TEXT PRIMARY KEY,
	name   TEXT NOT NULL,
	kind   TEXT NOT NULL,
	active BOOLEAN NOT NULL DEFAULT TRUE
);
CREATE TABLE IF NOT EXISTS shifts (
	id                   TEXT PRIMARY KEY,
	operator_id          TEXT NOT NULL,
	store_id             TEXT NOT NULL,
	opening_cents        BIGINT NOT NULL,
	closing_cents        BIGINT,
	expected_cents       BIGINT,
	difference_cents     BIGINT,
	total_sales_cents    BIGINT NOT NULL DEFAULT 0,
	total_expenses_cents BIGINT NOT NULL DEFAULT 0,
	cash_sales_cents     BIGINT NOT NULL DEFAULT 0,
	card_sales_cents     BIGINT NOT NULL DEFAULT 0,
	other_sales_cents    BIGINT NOT NULL DEFAULT 0,
	transactions_count   BIGINT NOT NULL DEFAULT 0,
	status               TEXT NOT NULL,
	notes                TEXT,
	opened_at            TIMESTAMPTZ NOT NULL,
	closed_at            TIMESTAMPTZ
);
CREATE UNIQUE INDEX IF NOT EXISTS shifts_one_open_per_operator
	ON shifts (operator_id, store_id) WHERE status = 'open';
CREATE TABLE IF NOT EXISTS expenses (
	id           TEXT PRIMARY KEY,
	shift_id     TEXT NOT NULL REFERENCES shifts (id),
	amount_cents BIGINT NOT NULL,
	note         TEXT,
	created_at   TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS invoice_counters (
	store_id TEXT NOT NULL,
	day      TEXT NOT NULL,
	seq      BIGINT NOT NULL DEFAULT 0,
	PRIMARY KEY (store_id, day)
);
CREATE TABLE IF NOT EXISTS sales (
	id                TEXT PRIMARY KEY,
	invoice_number    TEXT NOT NULL UNIQUE,
	idempotency_key   TEXT UNIQUE,
	shift_id          TEXT NOT NULL REFERENCES shifts (id),
	operator_id       TEXT NOT NULL,
	store_id          TEXT NOT NULL,
	subtotal_cents    BIGINT NOT NULL,
	discount_cents    BIGINT NOT NULL,
	tax_cents         BIGINT NOT NULL,
	total_cents       BIGINT NOT NULL,
	amount_paid_cents BIGINT NOT NULL,
	change_cents      BIGINT NOT NULL,
	payment_method_id TEXT NOT NULL,
	payment_kind      TEXT NOT NULL,
	payment_bucket    TEXT NOT NULL,
	payment_reference TEXT,
	customer_name     TEXT,
	customer_phone    TEXT,
	status            TEXT NOT NULL,
	stock_applied     BOOLEAN NOT NULL DEFAULT FALSE,
	shift_applied     BOOLEAN NOT NULL DEFAULT FALSE,
	created_at        TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS sale_lines (
	sale_id          TEXT NOT NULL REFERENCES sales (id),
	line_no          INTEGER NOT NULL,
	sku              TEXT NOT NULL,
	product_name     TEXT NOT NULL,
	qty              INTEGER NOT NULL,
	unit_price_cents BIGINT NOT NULL,
	discount_cents   BIGINT NOT NULL,
	total_cents      BIGINT NOT NULL,
	PRIMARY KEY (sale_id, line_no)
);
CREATE INDEX IF NOT EXISTS sales_by_shift ON sales (shift_id, created_at);
CREATE TABLE IF NOT EXISTS reconciliation_tasks (
	id             TEXT PRIMARY KEY,
	invoice_number TEXT NOT NULL,
	step           TEXT NOT NULL,
	detail         TEXT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL
);`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sku, name, price_cents, stock_qty, active
		FROM products
		WHERE active = true
		ORDER BY sku
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.SKU, &p.Name, &p.PriceCents, &p.StockQty, &p.Active); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetProductBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT sku, name, price_cents, stock_qty, active
		FROM products
		WHERE sku = $1
	`, sku).Scan(&p.SKU, &p.Name, &p.PriceCents, &p.StockQty, &p.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) AdjustStock(ctx context.Context, sku string, delta int) (int, error) {
	var qty int
	err := s.db.QueryRowContext(ctx, `
		UPDATE products
		SET stock_qty = GREATEST(0, stock_qty + $1)
		WHERE sku = $2
		RETURNING stock_qty
	`, delta, sku).Scan(&qty)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, store.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return qty, nil
}

func (s *Store) ListPaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, kind, active
		FROM payment_methods
		WHERE active = true
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PaymentMethod
	for rows.Next() {
		var m domain.PaymentMethod
		if err := rows.Scan(&m.ID, &m.Name, &m.Kind, &m.Active); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) GetPaymentMethod(ctx context.Context, id string) (*domain.PaymentMethod, error) {
	var m domain.PaymentMethod
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, kind, active
		FROM payment_methods
		WHERE id = $1
	`, id).Scan(&m.ID, &m.Name, &m.Kind, &m.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

const shiftColumns = `
	id, operator_id, store_id, opening_cents, closing_cents, expected_cents,
	difference_cents, total_sales_cents, total_expenses_cents, cash_sales_cents,
	card_sales_cents, other_sales_cents, transactions_count, status, notes,
	opened_at, closed_at`

func scanShift(row interface{ Scan(dest ...any) error }) (*domain.Shift, error) {
	var shift domain.Shift
	var closing, expected, difference sql.NullInt64
	var notes sql.NullString
	var closedAt sql.NullTime
	err := row.Scan(
		&shift.ID, &shift.OperatorID, &shift.StoreID, &shift.OpeningCents,
		&closing, &expected, &difference, &shift.TotalSalesCents,
		&shift.TotalExpensesCents, &shift.CashSalesCents, &shift.CardSalesCents,
		&shift.OtherSalesCents, &shift.TransactionsCount, &shift.Status, &notes,
		&shift.OpenedAt, &closedAt,
	)
	if err != nil {
		return nil, err
	}
	shift.ClosingCents = closing.Int64
	shift.ExpectedCents = expected.Int64
	shift.DifferenceCents = difference.Int64
	shift.Notes = notes.String
	shift.OpenedAt = shift.OpenedAt.UTC()
	if closedAt.Valid {
		at := closedAt.Time.UTC()
		shift.ClosedAt = &at
	}
	return &shift, nil
}

func (s *Store) CreateShift(ctx context.Context, shift domain.Shift) (*domain.Shift, error) {
	if shift.ID == "" {
		shift.ID = xid.New("shf")
	}
	if shift.OpenedAt.IsZero() {
		shift.OpenedAt = time.Now().UTC()
	}
	shift.Status = domain.ShiftStatusOpen

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shifts (id, operator_id, store_id, opening_cents, status, notes, opened_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, shift.ID, shift.OperatorID, shift.StoreID, shift.OpeningCents, shift.Status,
		nullIfEmpty(shift.Notes), shift.OpenedAt)
	if isUniqueViolation(err) {
		return nil, store.ErrShiftAlreadyOpen
	}
	if err != nil {
		return nil, err
	}
	out := shift
	return &out, nil
}

func (s *Store) GetOpenShift(ctx context.Context, operatorID, storeID string) (*domain.Shift, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+shiftColumns+`
		FROM shifts
		WHERE operator_id = $1 AND store_id = $2 AND status = 'open'
	`, operatorID, storeID)
	shift, err := scanShift(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNoOpenShift
	}
	if err != nil {
		return nil, err
	}
	return shift, nil
}

func (s *Store) GetShiftByID(ctx context.Context, id string) (*domain.Shift, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+shiftColumns+`
		FROM shifts
		WHERE id = $1
	`, id)
	shift, err := scanShift(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return shift, nil
}

func (s *Store) CloseShift(ctx context.Context, operatorID, storeID string, closingCents int64, notes string, closedAt time.Time) (*domain.Shift, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE shifts
		SET status = 'closed',
			closing_cents = $1,
			expected_cents = opening_cents + cash_sales_cents - total_expenses_cents,
			difference_cents = $1 - (opening_cents + cash_sales_cents - total_expenses_cents),
			notes = COALESCE(NULLIF($2, ''), notes),
			closed_at = $3
		WHERE operator_id = $4 AND store_id = $5 AND status = 'open'
		RETURNING `+shiftColumns+`
	`, closingCents, notes, closedAt.UTC(), operatorID, storeID)
	shift, err := scanShift(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNoOpenShift
	}
	if err != nil {
		return nil, err
	}
	return shift, nil
}

func (s *Store) RecordExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error) {
	if expense.ID == "" {
		expense.ID = xid.New("exp")
	}
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE shifts
		SET total_expenses_cents = total_expenses_cents + $1
		WHERE id = $2
	`, expense.AmountCents, expense.ShiftID)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO expenses (id, shift_id, amount_cents, note, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, expense.ID, expense.ShiftID, expense.AmountCents, nullIfEmpty(expense.Note), expense.CreatedAt); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	out := expense
	return &out, nil
}

func (s *Store) NextInvoiceSeq(ctx context.Context, storeID, day string) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO invoice_counters (store_id, day, seq)
		VALUES ($1, $2, 1)
		ON CONFLICT (store_id, day) DO UPDATE SET seq = invoice_counters.seq + 1
		RETURNING seq
	`, storeID, day).Scan(&seq)
	if err != nil {
		return 0, err
	}
	return seq, nil
}

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if sale.ID == "" {
		sale.ID = xid.New("sal")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (
			id, invoice_number, idempotency_key, shift_id, operator_id, store_id,
			subtotal_cents, discount_cents, tax_cents, total_cents,
			amount_paid_cents, change_cents, payment_method_id, payment_kind,
			payment_bucket, payment_reference, customer_name, customer_phone,
			status, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20
		)
	`, sale.ID, sale.InvoiceNumber, nullIfEmpty(sale.IdempotencyKey), sale.ShiftID,
		sale.OperatorID, sale.StoreID, sale.SubtotalCents, sale.DiscountCents,
		sale.TaxCents, sale.TotalCents, sale.AmountPaidCents, sale.ChangeCents,
		sale.PaymentMethodID, sale.PaymentKind, sale.PaymentBucket,
		nullIfEmpty(sale.PaymentReference), nullIfEmpty(sale.CustomerName),
		nullIfEmpty(sale.CustomerPhone), sale.Status, sale.CreatedAt)
	if isUniqueViolation(err) {
		// A concurrent request with the same idempotency key already
		// persisted this sale. Hand back the stored row.
		_ = tx.Rollback()
		if sale.IdempotencyKey != "" {
			return s.GetSaleByIdempotencyKey(ctx, sale.IdempotencyKey)
		}
		return nil, store.ErrInvalidSale
	}
	if err != nil {
		return nil, err
	}

	for i, line := range sale.Lines {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sale_lines (sale_id, line_no, sku, product_name, qty, unit_price_cents, discount_cents, total_cents)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, sale.ID, i+1, line.SKU, line.ProductName, line.Qty, line.UnitPriceCents,
			line.DiscountCents, line.TotalCents); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	out := sale
	return &out, nil
}

const saleColumns = `
	id, invoice_number, COALESCE(idempotency_key, ''), shift_id, operator_id,
	store_id, subtotal_cents, discount_cents, tax_cents, total_cents,
	amount_paid_cents, change_cents, payment_method_id, payment_kind,
	payment_bucket, COALESCE(payment_reference, ''), COALESCE(customer_name, ''),
	COALESCE(customer_phone, ''), status, stock_applied, shift_applied, created_at`

func scanSale(row interface{ Scan(dest ...any) error }) (*domain.Sale, error) {
	var sale domain.Sale
	err := row.Scan(
		&sale.ID, &sale.InvoiceNumber, &sale.IdempotencyKey, &sale.ShiftID,
		&sale.OperatorID, &sale.StoreID, &sale.SubtotalCents, &sale.DiscountCents,
		&sale.TaxCents, &sale.TotalCents, &sale.AmountPaidCents, &sale.ChangeCents,
		&sale.PaymentMethodID, &sale.PaymentKind, &sale.PaymentBucket,
		&sale.PaymentReference, &sale.CustomerName, &sale.CustomerPhone,
		&sale.Status, &sale.StockApplied, &sale.ShiftApplied, &sale.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	sale.CreatedAt = sale.CreatedAt.UTC()
	return &sale, nil
}

func (s *Store) loadLines(ctx context.Context, saleID string) ([]domain.SaleLine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sku, product_name, qty, unit_price_cents, discount_cents, total_cents
		FROM sale_lines
		WHERE sale_id = $1
		ORDER BY line_no
	`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SaleLine
	for rows.Next() {
		var line domain.SaleLine
		if err := rows.Scan(&line.SKU, &line.ProductName, &line.Qty,
			&line.UnitPriceCents, &line.DiscountCents, &line.TotalCents); err != nil {
			return nil, err
		}
		out = append(out, line)
	}
	return out, rows.Err()
}

func (s *Store) getSaleWhere(ctx context.Context, where string, arg any) (*domain.Sale, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+saleColumns+` FROM sales WHERE `+where, arg)
	sale, err := scanSale(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	lines, err := s.loadLines(ctx, sale.ID)
	if err != nil {
		return nil, err
	}
	sale.Lines = lines
	return sale, nil
}

func (s *Store) GetSaleByIdempotencyKey(ctx context.Context, key string) (*domain.Sale, error) {
	return s.getSaleWhere(ctx, `idempotency_key = $1`, key)
}

func (s *Store) GetSaleByInvoice(ctx context.Context, invoiceNumber string) (*domain.Sale, error) {
	return s.getSaleWhere(ctx, `invoice_number = $1`, invoiceNumber)
}

func (s *Store) ListSalesByShift(ctx context.Context, shiftID string) ([]domain.Sale, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+saleColumns+`
		FROM sales
		WHERE shift_id = $1
		ORDER BY created_at, id
	`, shiftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		lines, err := s.loadLines(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Lines = lines
	}
	return out, nil
}

func (s *Store) ApplySaleStock(ctx context.Context, saleID string) ([]domain.StockShortfall, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var applied bool
	err = tx.QueryRowContext(ctx, `
		SELECT stock_applied FROM sales WHERE id = $1 FOR UPDATE
	`, saleID).Scan(&applied)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if applied {
		return nil, tx.Commit()
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT sku, qty FROM sale_lines WHERE sale_id = $1 ORDER BY line_no
	`, saleID)
	if err != nil {
		return nil, err
	}
	type lineQty struct {
		sku string
		qty int
	}
	var lines []lineQty
	for rows.Next() {
		var l lineQty
		if err := rows.Scan(&l.sku, &l.qty); err != nil {
			rows.Close()
			return nil, err
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var shortfalls []domain.StockShortfall
	for _, line := range lines {
		var before int
		err := tx.QueryRowContext(ctx, `
			SELECT stock_qty FROM products WHERE sku = $1 FOR UPDATE
		`, line.sku).Scan(&before)
		if errors.Is(err, sql.ErrNoRows) {
			shortfalls = append(shortfalls, domain.StockShortfall{SKU: line.sku, Requested: line.qty, Applied: 0})
			continue
		}
		if err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE products SET stock_qty = GREATEST(0, stock_qty - $1) WHERE sku = $2
		`, line.qty, line.sku); err != nil {
			return nil, err
		}
		if before < line.qty {
			shortfalls = append(shortfalls, domain.StockShortfall{SKU: line.sku, Requested: line.qty, Applied: before})
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE sales SET stock_applied = true WHERE id = $1
	`, saleID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return shortfalls, nil
}

func (s *Store) ApplySaleToShift(ctx context.Context, saleID string) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var shiftID, bucket string
	var total int64
	var applied bool
	err = tx.QueryRowContext(ctx, `
		SELECT shift_id, payment_bucket, total_cents, shift_applied
		FROM sales WHERE id = $1 FOR UPDATE
	`, saleID).Scan(&shiftID, &bucket, &total, &applied)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return err
	}
	if applied {
		return tx.Commit()
	}

	bucketColumn := "other_sales_cents"
	switch bucket {
	case domain.BucketCash:
		bucketColumn = "cash_sales_cents"
	case domain.BucketCard:
		bucketColumn = "card_sales_cents"
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE shifts
		SET total_sales_cents = total_sales_cents + $1,
			transactions_count = transactions_count + 1,
			`+bucketColumn+` = `+bucketColumn+` + $1
		WHERE id = $2 AND status = $3
	`, total, shiftID, domain.ShiftStatusOpen)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// The sale row references the shift, so the shift exists; it
		// closed before this step and its totals are final.
		return store.ErrNoOpenShift
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE sales SET shift_applied = true WHERE id = $1
	`, saleID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) CreateReconciliationTask(ctx context.Context, task domain.ReconciliationTask) error {
	if task.ID == "" {
		task.ID = xid.New("rec")
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reconciliation_tasks (id, invoice_number, step, detail, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, task.ID, task.InvoiceNumber, task.Step, task.Detail, task.CreatedAt)
	return err
}

func (s *Store) ListReconciliationTasks(ctx context.Context, limit int) ([]domain.ReconciliationTask, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, invoice_number, step, detail, created_at
		FROM reconciliation_tasks
		ORDER BY created_at DESC, id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ReconciliationTask
	for rows.Next() {
		var task domain.ReconciliationTask
		if err := rows.Scan(&task.ID, &task.InvoiceNumber, &task.Step, &task.Detail, &task.CreatedAt); err != nil {
			return nil, err
		}
		task.CreatedAt = task.CreatedAt.UTC()
		out = append(out, task)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}
