// Package candlestore implements C1: a per-(symbol, timeframe) bounded,
// strictly-ordered OHLCV buffer. It is the sole owner of candle buffers;
// writers are the aggregator (higher timeframes) and the ingestion adapter
// (M1), readers are the analytics packages. Buffers evict their oldest
// element on overflow, so callers must address candles by position within
// a returned window, never by an absolute index that survives eviction.
package candlestore

import (
	"sync"

	"github.com/evdnx/ictengine/types"
)

type key struct {
	symbol    string
	timeframe types.Timeframe
}

// Store is a bounded ring buffer per (symbol, timeframe).
type Store struct {
	mu      sync.RWMutex
	maxSize int
	buffers map[key][]types.Candle
}

// New creates a Store whose buffers hold at most maxSize candles each
// (spec §3 default 1000). maxSize <= 0 is treated as the spec default.
func New(maxSize int) *Store {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &Store{maxSize: maxSize, buffers: make(map[key][]types.Candle)}
}

// Append adds a candle to its (symbol, timeframe) buffer. It fails with
// *types.OutOfOrderError if the new timestamp does not strictly advance
// past the last stored timestamp (spec §4.1).
func (s *Store) Append(symbol string, tf types.Timeframe, c types.Candle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{symbol, tf}
	buf := s.buffers[k]
	if len(buf) > 0 {
		last := buf[len(buf)-1]
		if !c.Timestamp.After(last.Timestamp) {
			return &types.OutOfOrderError{
				Symbol:    symbol,
				Timeframe: tf,
				Last:      last.Timestamp.Unix(),
				Got:       c.Timestamp.Unix(),
			}
		}
	}
	buf = append(buf, c)
	if len(buf) > s.maxSize {
		buf = buf[len(buf)-s.maxSize:]
	}
	s.buffers[k] = buf
	return nil
}

// Latest returns the last n candles, oldest-first, for (symbol, timeframe).
// If fewer than n are stored, all of them are returned.
func (s *Store) Latest(symbol string, tf types.Timeframe, n int) []types.Candle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	buf := s.buffers[key{symbol, tf}]
	if n <= 0 || n > len(buf) {
		n = len(buf)
	}
	out := make([]types.Candle, n)
	copy(out, buf[len(buf)-n:])
	return out
}

// LatestOne returns the most recent candle for (symbol, timeframe), and
// whether one exists.
func (s *Store) LatestOne(symbol string, tf types.Timeframe) (types.Candle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	buf := s.buffers[key{symbol, tf}]
	if len(buf) == 0 {
		return types.Candle{}, false
	}
	return buf[len(buf)-1], true
}

// Len returns the number of candles currently buffered for (symbol, tf).
func (s *Store) Len(symbol string, tf types.Timeframe) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.buffers[key{symbol, tf}])
}

// Clear resets every buffer for symbol, or every buffer in the store when
// symbol is empty. The scheduler calls Clear("") at the start of each
// replay run to guarantee state isolation (spec §4.10).
func (s *Store) Clear(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if symbol == "" {
		s.buffers = make(map[key][]types.Candle)
		return
	}
	for k := range s.buffers {
		if k.symbol == symbol {
			delete(s.buffers, k)
		}
	}
}
