package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/efreitasn/matchengine/internal/domain"
)

// PebbleTradeStore keeps trades in an embedded Pebble database. Keys sort
// by symbol, execution time and sequence, so a reverse scan over a symbol
// prefix yields trades newest first.
//
//	trade/<symbol>/<unixnano:20>/<sequence:20>/<trade_id> → JSON record
type PebbleTradeStore struct {
	db *pebble.DB
}

// OpenPebbleTradeStore opens (or creates) a store under dir. A nil fs uses
// the real filesystem.
func OpenPebbleTradeStore(dir string, fs vfs.FS) (*PebbleTradeStore, error) {
	opts := &pebble.Options{}
	if fs != nil {
		opts.FS = fs
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("opening pebble at %s: %w", dir, err)
	}
	return &PebbleTradeStore{db: db}, nil
}

// Close flushes and closes the database.
func (s *PebbleTradeStore) Close() error {
	return s.db.Close()
}

// AppendTrades writes trades in one synced batch. A trade maps to a single
// key, so writing it again overwrites identical bytes.
func (s *PebbleTradeStore) AppendTrades(ctx context.Context, trades []domain.Trade) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b := s.db.NewBatch()
	defer b.Close()

	for _, t := range trades {
		val, err := json.Marshal(toRecord(t))
		if err != nil {
			return fmt.Errorf("encoding trade %s: %w", t.TradeID, err)
		}
		if err := b.Set(tradeKey(t), val, nil); err != nil {
			return fmt.Errorf("staging trade %s: %w", t.TradeID, err)
		}
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("committing %d trades: %w", len(trades), err)
	}
	return nil
}

// TradesBySymbol returns up to limit trades for symbol, newest first.
func (s *PebbleTradeStore) TradesBySymbol(ctx context.Context, symbol string, limit int) ([]domain.Trade, error) {
	result := []domain.Trade{}
	if limit <= 0 {
		return result, nil
	}

	prefix := symbolPrefix(symbol)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixEnd(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	for iter.Last(); iter.Valid() && len(result) < limit; iter.Prev() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var rec tradeRecord
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", iter.Key(), err)
		}
		result = append(result, rec.trade())
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return result, nil
}

func symbolPrefix(symbol string) []byte {
	return []byte("trade/" + symbol + "/")
}

func tradeKey(t domain.Trade) []byte {
	nanos := max(t.ExecutedAt.UnixNano(), 0)
	return fmt.Appendf(symbolPrefix(t.Symbol), "%020d/%020d/%s", nanos, t.Sequence, t.TradeID)
}

// prefixEnd returns the smallest key greater than every key with prefix.
func prefixEnd(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
