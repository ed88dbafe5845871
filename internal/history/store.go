package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/optiondesk/marketdata/internal/config"
	"github.com/optiondesk/marketdata/internal/model"
)

// ErrNoCandles indicates no history rows exist for the instrument.
var ErrNoCandles = errors.New("no candles for instrument")

// Store reads daily candles from Postgres.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Connect creates the pool, verifies connectivity, and returns a Store.
func Connect(ctx context.Context, cfg config.DBConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	poolCfg, err := pgxpool.ParseConfig(BuildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("history database connected", "host", cfg.Host, "database", cfg.Name)
	return &Store{pool: pool, logger: logger}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping verifies the connection is healthy.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// LastDailyClose returns the close of the most recent daily candle for
// the instrument. Returns ErrNoCandles when no history exists.
func (s *Store) LastDailyClose(ctx context.Context, instrumentToken int64) (float64, error) {
	const query = `
		SELECT close
		FROM daily_candles
		WHERE instrument_token = $1
		ORDER BY day DESC
		LIMIT 1`

	var closePrice float64
	err := s.pool.QueryRow(ctx, query, instrumentToken).Scan(&closePrice)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNoCandles
	}
	if err != nil {
		return 0, fmt.Errorf("query last daily close: %w", err)
	}
	return closePrice, nil
}

// RecentCandles returns up to limit daily candles for the instrument,
// newest first.
func (s *Store) RecentCandles(ctx context.Context, instrumentToken int64, limit int) ([]model.Candle, error) {
	const query = `
		SELECT day, open, high, low, close, volume
		FROM daily_candles
		WHERE instrument_token = $1
		ORDER BY day DESC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, instrumentToken, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent candles: %w", err)
	}
	defer rows.Close()

	var candles []model.Candle
	for rows.Next() {
		var c model.Candle
		if err := rows.Scan(&c.Day, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		candles = append(candles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candles: %w", err)
	}
	return candles, nil
}
