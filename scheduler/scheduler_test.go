package scheduler

import (
	"testing"
	"time"

	"github.com/evdnx/ictengine/types"
)

func tc(symbol string, minute int) types.Candle {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return types.Candle{Symbol: symbol, Timeframe: types.M1, Timestamp: base.Add(time.Duration(minute) * time.Minute), Open: 100, High: 101, Low: 99, Close: 100, Volume: 1}
}

func TestMergeGlobalOrderSortsByTimestampThenSymbol(t *testing.T) {
	by := map[string][]types.Candle{
		"EURUSD": {tc("EURUSD", 0), tc("EURUSD", 1)},
		"XAUUSD": {tc("XAUUSD", 0), tc("XAUUSD", 1)},
	}
	ticks := mergeGlobalOrder(by)
	if len(ticks) != 4 {
		t.Fatalf("expected 4 merged ticks, got %d", len(ticks))
	}
	// Minute 0: EURUSD before XAUUSD (lexicographic tiebreak).
	if ticks[0].symbol != "EURUSD" || ticks[1].symbol != "XAUUSD" {
		t.Fatalf("expected EURUSD before XAUUSD at minute 0, got %s then %s", ticks[0].symbol, ticks[1].symbol)
	}
	// Minute 1: same tiebreak again.
	if ticks[2].symbol != "EURUSD" || ticks[3].symbol != "XAUUSD" {
		t.Fatalf("expected EURUSD before XAUUSD at minute 1, got %s then %s", ticks[2].symbol, ticks[3].symbol)
	}
	for i := 1; i < len(ticks); i++ {
		if ticks[i].candle.Timestamp.Before(ticks[i-1].candle.Timestamp) {
			t.Fatal("expected non-decreasing global timestamp order")
		}
	}
}

func TestMergeGlobalOrderHandlesEmptyInput(t *testing.T) {
	ticks := mergeGlobalOrder(map[string][]types.Candle{})
	if len(ticks) != 0 {
		t.Fatalf("expected no ticks for empty input, got %d", len(ticks))
	}
}
