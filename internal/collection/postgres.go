package collection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Postgres stores items in the collection_items table (see db.Migrate)
type Postgres struct {
	DB *pgxpool.Pool
}

// NewPostgres wraps an open pool. Close closes the pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{DB: pool}
}

func (s *Postgres) List(ctx context.Context, coll string, after Cursor, limit int) (*Page, error) {
	logger := log.With().Str("collection", coll).Logger()
	limit = clampLimit(limit)

	// ordered by id for deterministic pagination
	rows, err := s.DB.Query(ctx, `
		SELECT id, payload_json
		FROM collection_items
		WHERE collection = $1
		  AND id > $2
		ORDER BY id
		LIMIT $3
	`, coll, after.After, limit)
	if err != nil {
		logger.Error().Err(err).Msg("failed to query items")
		return nil, err
	}
	defer rows.Close()

	items := make([]map[string]any, 0, limit)
	var last int64
	for rows.Next() {
		var id int64
		var p map[string]any
		if err := rows.Scan(&id, &p); err != nil {
			logger.Error().Err(err).Msg("failed to scan item row")
			return nil, err
		}
		items = append(items, withID(p, id))
		last = id
	}
	if err := rows.Err(); err != nil {
		logger.Error().Err(err).Msg("row iteration error")
		return nil, err
	}

	return finishPage(items, last, limit), nil
}

func (s *Postgres) Get(ctx context.Context, coll string, id int64) (map[string]any, error) {
	var p map[string]any
	err := s.DB.QueryRow(ctx,
		`SELECT payload_json FROM collection_items WHERE collection = $1 AND id = $2`,
		coll, id).Scan(&p)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%d: %w", coll, id, err)
	}
	return withID(p, id), nil
}

func (s *Postgres) Create(ctx context.Context, coll string, attrs map[string]any) (map[string]any, error) {
	p := payload(attrs)
	payloadJSON, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	var id int64
	err = s.DB.QueryRow(ctx, `
		INSERT INTO collection_items (collection, payload_json, updated_at_ms)
		VALUES ($1, $2, $3)
		RETURNING id
	`, coll, payloadJSON, nowMs()).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("create in %s: %w", coll, err)
	}
	return withID(p, id), nil
}

func (s *Postgres) Replace(ctx context.Context, coll string, id int64, attrs map[string]any) (map[string]any, error) {
	p := payload(attrs)
	payloadJSON, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	tag, err := s.DB.Exec(ctx, `
		UPDATE collection_items
		SET payload_json = $3, updated_at_ms = $4
		WHERE collection = $1 AND id = $2
	`, coll, id, payloadJSON, nowMs())
	if err != nil {
		return nil, fmt.Errorf("replace %s/%d: %w", coll, id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return withID(p, id), nil
}

func (s *Postgres) Merge(ctx context.Context, coll string, id int64, attrs map[string]any) (map[string]any, error) {
	payloadJSON, err := json.Marshal(payload(attrs))
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	// jsonb || overlays top-level keys, matching the in-memory merge
	var merged map[string]any
	err = s.DB.QueryRow(ctx, `
		UPDATE collection_items
		SET payload_json = payload_json || $3::jsonb, updated_at_ms = $4
		WHERE collection = $1 AND id = $2
		RETURNING payload_json
	`, coll, id, payloadJSON, nowMs()).Scan(&merged)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("merge %s/%d: %w", coll, id, err)
	}
	return withID(merged, id), nil
}

func (s *Postgres) Delete(ctx context.Context, coll string, id int64) error {
	tag, err := s.DB.Exec(ctx,
		`DELETE FROM collection_items WHERE collection = $1 AND id = $2`, coll, id)
	if err != nil {
		return fmt.Errorf("delete %s/%d: %w", coll, id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) Close() error {
	s.DB.Close()
	return nil
}

func nowMs() int64 {
	return time.Now().UTC().UnixMilli()
}
