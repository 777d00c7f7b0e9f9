package candlestore

import (
	"testing"
	"time"

	"github.com/evdnx/ictengine/types"
)

func candleAt(sym string, minute int) types.Candle {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return types.Candle{
		Symbol: sym, Timeframe: types.M1,
		Timestamp: base.Add(time.Duration(minute) * time.Minute),
		Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 10,
	}
}

func TestAppendAndLatestOrdering(t *testing.T) {
	s := New(10)
	for i := 0; i < 5; i++ {
		if err := s.Append("XAUUSD", types.M1, candleAt("XAUUSD", i)); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	got := s.Latest("XAUUSD", types.M1, 3)
	if len(got) != 3 {
		t.Fatalf("expected 3 candles, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if !got[i].Timestamp.After(got[i-1].Timestamp) {
			t.Fatal("expected strictly increasing timestamps")
		}
	}
}

func TestAppendOutOfOrder(t *testing.T) {
	s := New(10)
	if err := s.Append("XAUUSD", types.M1, candleAt("XAUUSD", 5)); err != nil {
		t.Fatal(err)
	}
	err := s.Append("XAUUSD", types.M1, candleAt("XAUUSD", 5))
	if err == nil {
		t.Fatal("expected OutOfOrderError for non-advancing timestamp")
	}
	if _, ok := err.(*types.OutOfOrderError); !ok {
		t.Fatalf("expected *types.OutOfOrderError, got %T", err)
	}
}

func TestBufferEvictsOldest(t *testing.T) {
	s := New(3)
	for i := 0; i < 10; i++ {
		if err := s.Append("EURUSD", types.M1, candleAt("EURUSD", i)); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	if got := s.Len("EURUSD", types.M1); got != 3 {
		t.Fatalf("expected buffer capped at 3, got %d", got)
	}
	last, ok := s.LatestOne("EURUSD", types.M1)
	if !ok {
		t.Fatal("expected a latest candle")
	}
	want := candleAt("EURUSD", 9).Timestamp
	if !last.Timestamp.Equal(want) {
		t.Fatalf("expected latest timestamp %v, got %v", want, last.Timestamp)
	}
}

func TestClearSymbolScoped(t *testing.T) {
	s := New(10)
	_ = s.Append("A", types.M1, candleAt("A", 0))
	_ = s.Append("B", types.M1, candleAt("B", 0))
	s.Clear("A")
	if s.Len("A", types.M1) != 0 {
		t.Fatal("expected A cleared")
	}
	if s.Len("B", types.M1) != 1 {
		t.Fatal("expected B untouched")
	}
	s.Clear("")
	if s.Len("B", types.M1) != 0 {
		t.Fatal("expected full clear to reset B too")
	}
}
