package prefs

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Querier is the subset of pgxpool.Pool used by PostgresStore.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore reads preferences from a two-column (key, value) table.
type PostgresStore struct {
	db    Querier
	query string
}

// NewPostgresStore returns a store reading from table.
func NewPostgresStore(db Querier, table string) *PostgresStore {
	return &PostgresStore{
		db:    db,
		query: fmt.Sprintf("SELECT value FROM %s WHERE key = $1", pgx.Identifier{table}.Sanitize()),
	}
}

// Get returns the value for key.
func (s *PostgresStore) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRow(ctx, s.query, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("query preference: %w", err)
	}
	return v, nil
}
