package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/efreitasn/matchengine/internal/domain"
)

const tradesSchema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id      TEXT PRIMARY KEY,
	symbol        TEXT NOT NULL,
	price         BIGINT NOT NULL,
	quantity      BIGINT NOT NULL,
	buy_order_id  TEXT NOT NULL,
	sell_order_id TEXT NOT NULL,
	buyer_id      TEXT NOT NULL,
	seller_id     TEXT NOT NULL,
	taker_side    TEXT NOT NULL,
	sequence      BIGINT NOT NULL,
	executed_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS trades_symbol_executed_idx
	ON trades (symbol, executed_at DESC, sequence DESC);`

const insertTrade = `
INSERT INTO trades (trade_id, symbol, price, quantity, buy_order_id, sell_order_id,
	buyer_id, seller_id, taker_side, sequence, executed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (trade_id) DO NOTHING`

const selectTrades = `
SELECT trade_id, symbol, price, quantity, buy_order_id, sell_order_id,
	buyer_id, seller_id, taker_side, sequence, executed_at
FROM trades
WHERE symbol = $1
ORDER BY executed_at DESC, sequence DESC
LIMIT $2`

// PostgresTradeStore keeps trades in an append-only PostgreSQL table.
type PostgresTradeStore struct {
	db *sql.DB
}

// OpenPostgresTradeStore connects to dsn and verifies the connection.
func OpenPostgresTradeStore(ctx context.Context, dsn string) (*PostgresTradeStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &PostgresTradeStore{db: db}, nil
}

// NewPostgresTradeStore wraps an existing connection pool.
func NewPostgresTradeStore(db *sql.DB) *PostgresTradeStore {
	return &PostgresTradeStore{db: db}
}

// EnsureSchema creates the trades table and its index if missing.
func (s *PostgresTradeStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, tradesSchema); err != nil {
		return fmt.Errorf("creating trades schema: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *PostgresTradeStore) Close() error {
	return s.db.Close()
}

// AppendTrades inserts trades in a single transaction. Rows whose trade id
// already exists are skipped.
func (s *PostgresTradeStore) AppendTrades(ctx context.Context, trades []domain.Trade) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertTrade)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range trades {
		_, err := stmt.ExecContext(ctx,
			t.TradeID, t.Symbol, t.Price, t.Quantity,
			t.BuyOrderID, t.SellOrderID, t.BuyerID, t.SellerID,
			string(t.TakerSide), int64(t.Sequence), t.ExecutedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("inserting trade %s: %w", t.TradeID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing %d trades: %w", len(trades), err)
	}
	return nil
}

// TradesBySymbol returns up to limit trades for symbol, newest first.
func (s *PostgresTradeStore) TradesBySymbol(ctx context.Context, symbol string, limit int) ([]domain.Trade, error) {
	result := []domain.Trade{}
	if limit <= 0 {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx, selectTrades, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("querying trades: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			t    domain.Trade
			side string
			seq  int64
		)
		if err := rows.Scan(
			&t.TradeID, &t.Symbol, &t.Price, &t.Quantity,
			&t.BuyOrderID, &t.SellOrderID, &t.BuyerID, &t.SellerID,
			&side, &seq, &t.ExecutedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning trade: %w", err)
		}
		t.TakerSide = domain.OrderSide(side)
		t.Sequence = uint64(seq)
		t.ExecutedAt = t.ExecutedAt.UTC()
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
