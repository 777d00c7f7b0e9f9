package persistence

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/evdnx/ictengine/types"
)

// CSVHistoricalSource implements HistoricalSource by reading one file per
// (symbol, timeframe) containing the columns
// timestamp,open,high,low,close,volume (spec §6: "a file-based CSV reader").
// timestamp is RFC3339 or unix seconds.
type CSVHistoricalSource struct {
	// PathFor resolves a (symbol, timeframe) pair to a file path. Callers
	// supply this since the on-disk layout is deployment-specific.
	PathFor func(symbol string, tf types.Timeframe) string
}

// NewCSVHistoricalSource builds a source rooted at dir, using
// "<dir>/<symbol>_<timeframe>.csv" as the naming convention.
func NewCSVHistoricalSource(dir string) *CSVHistoricalSource {
	return &CSVHistoricalSource{
		PathFor: func(symbol string, tf types.Timeframe) string {
			return fmt.Sprintf("%s/%s_%s.csv", dir, symbol, tf)
		},
	}
}

func (s *CSVHistoricalSource) LoadCandles(ctx context.Context, symbol string, from, to time.Time, tf types.Timeframe) ([]types.Candle, error) {
	path := s.PathFor(symbol, tf)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open candle file %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 6

	var out []types.Candle
	var lastTs time.Time
	first := true
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read candle row: %w", err)
		}
		ts, err := parseTimestamp(rec[0])
		if err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", rec[0], err)
		}
		if !first && !ts.After(lastTs) {
			return nil, fmt.Errorf("out-of-order candle at %s: %s not after %s", path, ts, lastTs)
		}
		first = false
		lastTs = ts
		if ts.Before(from) || ts.After(to) {
			continue
		}
		o, err1 := strconv.ParseFloat(rec[1], 64)
		h, err2 := strconv.ParseFloat(rec[2], 64)
		l, err3 := strconv.ParseFloat(rec[3], 64)
		c, err4 := strconv.ParseFloat(rec[4], 64)
		v, err5 := strconv.ParseFloat(rec[5], 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
			return nil, fmt.Errorf("parse OHLCV row at %s: %v %v %v %v %v", ts, err1, err2, err3, err4, err5)
		}
		out = append(out, types.Candle{
			Symbol: symbol, Timeframe: tf, Timestamp: ts,
			Open: o, High: h, Low: l, Close: c, Volume: v,
		})
	}
	return out, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	if sec, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(sec, 0).UTC(), nil
	}
	return time.Parse(time.RFC3339, raw)
}

// InMemoryHistoricalSource serves pre-loaded candles; the persistence and
// scheduler tests use it in place of CSV files.
type InMemoryHistoricalSource struct {
	Candles map[string][]types.Candle // keyed by symbol+"|"+timeframe
}

func candleKey(symbol string, tf types.Timeframe) string { return symbol + "|" + string(tf) }

func (s *InMemoryHistoricalSource) Put(symbol string, tf types.Timeframe, candles []types.Candle) {
	if s.Candles == nil {
		s.Candles = make(map[string][]types.Candle)
	}
	s.Candles[candleKey(symbol, tf)] = candles
}

func (s *InMemoryHistoricalSource) LoadCandles(ctx context.Context, symbol string, from, to time.Time, tf types.Timeframe) ([]types.Candle, error) {
	all := s.Candles[candleKey(symbol, tf)]
	var out []types.Candle
	for _, c := range all {
		if c.Timestamp.Before(from) || c.Timestamp.After(to) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}
