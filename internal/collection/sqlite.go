package collection

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS collection_items (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	collection    TEXT NOT NULL,
	payload_json  TEXT NOT NULL,
	updated_at_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS collection_items_by_collection ON collection_items (collection, id);`

// SQLite stores items in a single SQLite table as JSON text
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the database at path
func NewSQLite(path string) (*SQLite, error) {
	if path == "" {
		path = "resources.db"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer at a time; also keeps ":memory:" on a single connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create collection_items table: %w", err)
	}

	log.Info().Str("path", path).Msg("sqlite collection store opened")
	return &SQLite{db: db}, nil
}

func (s *SQLite) List(ctx context.Context, coll string, after Cursor, limit int) (*Page, error) {
	limit = clampLimit(limit)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, payload_json
		FROM collection_items
		WHERE collection = ? AND id > ?
		ORDER BY id
		LIMIT ?`, coll, after.After, limit)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", coll, err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]map[string]any, 0, limit)
	var last int64
	for rows.Next() {
		var id int64
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan %s: %w", coll, err)
		}
		item, err := decodePayload(raw, id)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		last = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", coll, err)
	}
	return finishPage(items, last, limit), nil
}

func (s *SQLite) Get(ctx context.Context, coll string, id int64) (map[string]any, error) {
	return s.get(ctx, s.db, coll, id)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLite) get(ctx context.Context, q queryer, coll string, id int64) (map[string]any, error) {
	var raw []byte
	err := q.QueryRowContext(ctx,
		`SELECT payload_json FROM collection_items WHERE collection = ? AND id = ?`,
		coll, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%d: %w", coll, id, err)
	}
	return decodePayload(raw, id)
}

func (s *SQLite) Create(ctx context.Context, coll string, attrs map[string]any) (map[string]any, error) {
	p := payload(attrs)
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO collection_items (collection, payload_json, updated_at_ms) VALUES (?, ?, ?)`,
		coll, string(raw), time.Now().UTC().UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("create in %s: %w", coll, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create in %s: %w", coll, err)
	}
	return withID(p, id), nil
}

func (s *SQLite) Replace(ctx context.Context, coll string, id int64, attrs map[string]any) (map[string]any, error) {
	p := payload(attrs)
	if err := s.write(ctx, s.db, coll, id, p); err != nil {
		return nil, err
	}
	return withID(p, id), nil
}

func (s *SQLite) Merge(ctx context.Context, coll string, id int64, attrs map[string]any) (result map[string]any, retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	current, err := s.get(ctx, tx, coll, id)
	if err != nil {
		return nil, err
	}
	merged := payload(current)
	for k, v := range payload(attrs) {
		merged[k] = v
	}
	if err := s.write(ctx, tx, coll, id, merged); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("merge %s/%d: %w", coll, id, err)
	}
	return withID(merged, id), nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLite) write(ctx context.Context, e execer, coll string, id int64, p map[string]any) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	res, err := e.ExecContext(ctx,
		`UPDATE collection_items SET payload_json = ?, updated_at_ms = ? WHERE collection = ? AND id = ?`,
		string(raw), time.Now().UTC().UnixMilli(), coll, id)
	if err != nil {
		return fmt.Errorf("update %s/%d: %w", coll, id, err)
	}
	return checkAffected(res)
}

func (s *SQLite) Delete(ctx context.Context, coll string, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM collection_items WHERE collection = ? AND id = ?`, coll, id)
	if err != nil {
		return fmt.Errorf("delete %s/%d: %w", coll, id, err)
	}
	return checkAffected(res)
}

func (s *SQLite) Close() error { return s.db.Close() }

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func decodePayload(raw []byte, id int64) (map[string]any, error) {
	var p map[string]any
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode payload %d: %w", id, err)
	}
	return withID(p, id), nil
}
