package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/spigell/cv-screener/internal/screening"
)

const DefaultSQLitePath = "cv-screener.db"

// SQLite keeps each state document as a row of the state table.
type SQLite struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLite opens (or creates) the database at path and ensures the state table exists.
func NewSQLite(ctx context.Context, path string, logger *zap.Logger) (*SQLite, error) {
	if path == "" {
		path = DefaultSQLitePath
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// A single connection serialises writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	createTable := `CREATE TABLE IF NOT EXISTS state (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	)`
	if _, err := db.ExecContext(ctx, createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating state table: %w", err)
	}

	return &SQLite{db: db, logger: logger}, nil
}

func (s *SQLite) LoadJobSpec(ctx context.Context) (screening.JobSpec, error) {
	data, err := s.get(ctx, keyJobSpec)
	if err != nil {
		return screening.JobSpec{}, err
	}
	return decodeJobSpec(data, "sqlite:"+keyJobSpec, s.logger), nil
}

func (s *SQLite) SaveJobSpec(ctx context.Context, job screening.JobSpec) error {
	return s.put(ctx, keyJobSpec, job)
}

func (s *SQLite) LoadResults(ctx context.Context) (screening.ResultSet, error) {
	data, err := s.get(ctx, keyResults)
	if err != nil {
		return nil, err
	}
	return decodeResults(data, "sqlite:"+keyResults, s.logger), nil
}

func (s *SQLite) SaveResults(ctx context.Context, results screening.ResultSet) error {
	return s.put(ctx, keyResults, normalize(results))
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM state WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return []byte(value), nil
}

func (s *SQLite) put(ctx context.Context, key string, v any) error {
	data, err := encode(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}
