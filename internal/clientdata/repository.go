// Package clientdata provides persistent caching for market data fetched from
// external providers. Series are stored as msgpack blobs with expiration
// timestamps for cache-first behavior.
package clientdata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Series is a cached monthly return series.
type Series struct {
	Returns   []float64 `msgpack:"r"`
	FetchedAt int64     `msgpack:"f"` // unix seconds
}

// Repository provides cache operations on the monthly_returns table.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository creates a new client data repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// Store saves a series with expiration = now + ttl.
// Uses INSERT OR REPLACE to upsert data.
func (r *Repository) Store(ctx context.Context, symbol, period string, series Series, ttl time.Duration) error {
	blob, err := msgpack.Marshal(&series)
	if err != nil {
		return fmt.Errorf("failed to marshal series: %w", err)
	}

	expiresAt := r.now().Add(ttl).Unix()
	_, err = r.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO monthly_returns (symbol, period, data, expires_at) VALUES (?, ?, ?, ?)",
		symbol, period, blob, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store %s/%s: %w", symbol, period, err)
	}
	return nil
}

// GetIfFresh returns the series only if expires_at > now.
// Returns nil, nil if the key doesn't exist or data is expired.
func (r *Repository) GetIfFresh(ctx context.Context, symbol, period string) (*Series, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT data FROM monthly_returns WHERE symbol = ? AND period = ? AND expires_at > ?",
		symbol, period, r.now().Unix(),
	)
	return scanSeries(row, symbol)
}

// Get returns the series stored for (symbol, period) regardless of
// expiration. Use this as a fallback when the provider fails.
// Returns nil, nil if nothing is stored.
func (r *Repository) Get(ctx context.Context, symbol, period string) (*Series, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT data FROM monthly_returns WHERE symbol = ? AND period = ?",
		symbol, period,
	)
	return scanSeries(row, symbol)
}

func scanSeries(row *sql.Row, symbol string) (*Series, error) {
	var blob []byte
	err := row.Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get series for %s: %w", symbol, err)
	}

	var series Series
	if err := msgpack.Unmarshal(blob, &series); err != nil {
		return nil, fmt.Errorf("failed to decode series for %s: %w", symbol, err)
	}
	return &series, nil
}

// Delete removes every period stored for symbol.
func (r *Repository) Delete(ctx context.Context, symbol string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM monthly_returns WHERE symbol = ?", symbol); err != nil {
		return fmt.Errorf("failed to delete %s: %w", symbol, err)
	}
	return nil
}

// DeleteExpired removes all rows where expires_at < now.
// Returns the number of rows deleted.
func (r *Repository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM monthly_returns WHERE expires_at < ?", r.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired series: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}
