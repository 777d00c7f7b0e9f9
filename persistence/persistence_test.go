package persistence

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/evdnx/ictengine/types"
)

func TestInMemorySinkRecordsInOrder(t *testing.T) {
	s := &InMemorySink{}
	s.Record(DecisionRecord{Symbol: "A", Decision: types.DecisionSkip})
	s.Record(DecisionRecord{Symbol: "B", Decision: types.DecisionTrade})
	if len(s.Records) != 2 || s.Records[0].Symbol != "A" || s.Records[1].Symbol != "B" {
		t.Fatalf("unexpected records: %+v", s.Records)
	}
}

func TestJSONLSinkWritesRecordsToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "decisions.jsonl")
	sink, err := NewJSONLSink(path, nil)
	if err != nil {
		t.Fatalf("unexpected error opening sink: %v", err)
	}
	sink.Record(DecisionRecord{Symbol: "XAUUSD", Decision: types.DecisionTrade, Timestamp: time.Unix(0, 0)})
	sink.Record(DecisionRecord{Symbol: "EURUSD", Decision: types.DecisionSkip, Timestamp: time.Unix(1, 0)})
	if err := sink.Close(); err != nil {
		t.Fatalf("unexpected error closing sink: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("unexpected error reading log file: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty decision log")
	}
}

func TestCSVHistoricalSourceLoadsAscendingRange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "XAUUSD_M1.csv")
	content := "1704067200,2000,2005,1995,2002,10\n1704067260,2002,2006,1998,2003,12\n1704067320,2003,2010,2001,2008,15\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("unexpected error writing fixture: %v", err)
	}

	src := NewCSVHistoricalSource(dir)
	from := time.Unix(1704067200, 0).UTC()
	to := time.Unix(1704067260, 0).UTC()
	candles, err := src.LoadCandles(context.Background(), "XAUUSD", from, to, types.M1)
	if err != nil {
		t.Fatalf("unexpected error loading candles: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("expected 2 candles in range, got %d", len(candles))
	}
	if candles[0].Close != 2002 || candles[1].Close != 2003 {
		t.Fatalf("unexpected candle values: %+v", candles)
	}
}

func TestCSVHistoricalSourceRejectsOutOfOrder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "XAUUSD_M1.csv")
	content := "1704067260,2002,2006,1998,2003,12\n1704067200,2000,2005,1995,2002,10\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("unexpected error writing fixture: %v", err)
	}

	src := NewCSVHistoricalSource(dir)
	_, err := src.LoadCandles(context.Background(), "XAUUSD", time.Unix(0, 0), time.Unix(1<<32, 0), types.M1)
	if err == nil {
		t.Fatal("expected error on out-of-order candle file")
	}
}

func TestInMemoryHistoricalSourceFiltersByRange(t *testing.T) {
	src := &InMemoryHistoricalSource{}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	src.Put("XAUUSD", types.M1, []types.Candle{
		{Symbol: "XAUUSD", Timeframe: types.M1, Timestamp: base},
		{Symbol: "XAUUSD", Timeframe: types.M1, Timestamp: base.Add(time.Minute)},
		{Symbol: "XAUUSD", Timeframe: types.M1, Timestamp: base.Add(2 * time.Minute)},
	})
	out, err := src.LoadCandles(context.Background(), "XAUUSD", base, base.Add(time.Minute), types.M1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 candles in range, got %d", len(out))
	}
}
