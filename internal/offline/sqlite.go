package offline

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"tokoledger/internal/domain"
)

// SQLiteStore keeps the offline queue in a local SQLite file so
// captured sales survive a terminal restart.
type SQLiteStore struct {
	db *sqlx.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open offline db: %w", err)
	}
	// The queue is single-writer; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) ensureSchema() error {
	schema := `
CREATE TABLE IF NOT EXISTS offline_entries (
    id          TEXT PRIMARY KEY,
    payload     TEXT NOT NULL,
    captured_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS offline_state (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("ensure offline schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Append(ctx context.Context, entry domain.OfflineEntry) error {
	payload, err := json.Marshal(entry.Request)
	if err != nil {
		return fmt.Errorf("encode offline entry: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO offline_entries (id, payload, captured_at) VALUES (?, ?, ?)`,
		entry.ID, string(payload), entry.CapturedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("append offline entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]domain.OfflineEntry, error) {
	type row struct {
		ID         string `db:"id"`
		Payload    string `db:"payload"`
		CapturedAt string `db:"captured_at"`
	}
	var rows []row
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT id, payload, captured_at FROM offline_entries ORDER BY captured_at, id`); err != nil {
		return nil, fmt.Errorf("list offline entries: %w", err)
	}

	out := make([]domain.OfflineEntry, 0, len(rows))
	for _, r := range rows {
		var req domain.SaleRequest
		if err := json.Unmarshal([]byte(r.Payload), &req); err != nil {
			return nil, fmt.Errorf("decode offline entry %s: %w", r.ID, err)
		}
		capturedAt, err := time.Parse(time.RFC3339Nano, r.CapturedAt)
		if err != nil {
			return nil, fmt.Errorf("decode offline entry %s: %w", r.ID, err)
		}
		out = append(out, domain.OfflineEntry{ID: r.ID, Request: req, CapturedAt: capturedAt})
	}
	return out, nil
}

func (s *SQLiteStore) Remove(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM offline_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("remove offline entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM offline_entries`); err != nil {
		return 0, fmt.Errorf("count offline entries: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM offline_entries`); err != nil {
		return fmt.Errorf("clear offline entries: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM offline_state`); err != nil {
		return fmt.Errorf("clear offline state: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetState(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.GetContext(ctx, &value, `SELECT value FROM offline_state WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get offline state: %w", err)
	}
	return value, true, nil
}

func (s *SQLiteStore) SetState(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO offline_state (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("set offline state: %w", err)
	}
	return nil
}
