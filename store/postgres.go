package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps the document in a jsonb column.
type PostgresStore struct {
	pool *pgxpool.Pool
	key  string
}

func NewPostgresStore(ctx context.Context, dsn, key string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("PG_DSN is required for the postgres backend")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	cfg.MaxConns = 2

	initCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(initCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if _, err := pool.Exec(initCtx, `CREATE TABLE IF NOT EXISTS bot_state (
		key TEXT PRIMARY KEY,
		doc JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &PostgresStore{pool: pool, key: key}, nil
}

func (s *PostgresStore) Name() string { return BackendPostgres + ":" + s.key }

func (s *PostgresStore) Load(ctx context.Context) (*Document, error) {
	var raw string
	err := s.pool.QueryRow(ctx, "SELECT doc::text FROM bot_state WHERE key = $1", s.key).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query state: %w", err)
	}
	return Decode([]byte(raw))
}

func (s *PostgresStore) Save(ctx context.Context, doc *Document) error {
	data, err := Encode(doc)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO bot_state (key, doc) VALUES ($1, $2::jsonb)
		ON CONFLICT (key) DO UPDATE SET doc = excluded.doc, updated_at = now()
	`, s.key, string(data))
	if err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
