package aggregator

import (
	"testing"
	"time"

	"github.com/evdnx/ictengine/candlestore"
	"github.com/evdnx/ictengine/types"
)

func m1(base time.Time, minute int, o, h, l, c, v float64) types.Candle {
	return types.Candle{
		Symbol: "XAUUSD", Timeframe: types.M1,
		Timestamp: base.Add(time.Duration(minute) * time.Minute),
		Open: o, High: h, Low: l, Close: c, Volume: v,
	}
}

func TestH4BucketAlignment(t *testing.T) {
	if got := BucketStart(time.Date(2024, 1, 1, 5, 37, 0, 0, time.UTC), types.H4); got.Hour() != 4 {
		t.Fatalf("expected bucket hour 4, got %d", got.Hour())
	}
	if got := BucketStart(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), types.H4); got.Hour() != 0 {
		t.Fatalf("expected bucket hour 0, got %d", got.Hour())
	}
}

func TestAggregatorRollsFullH4Bucket(t *testing.T) {
	store := candlestore.New(100)
	agg := New(store, []types.Timeframe{types.H4})
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	candles := []types.Candle{
		m1(base, 0, 100, 102, 99, 101, 5),
		m1(base, 1, 101, 103, 100, 102, 3),
		m1(base, 2, 102, 104, 101, 100, 4),
	}
	for _, c := range candles {
		if err := agg.OnM1("XAUUSD", c); err != nil {
			t.Fatalf("OnM1: %v", err)
		}
		if err := store.Append("XAUUSD", types.M1, c); err != nil {
			t.Fatalf("append m1: %v", err)
		}
	}
	// The H4 bucket hasn't closed yet (still minute 2 of 240).
	if store.Len("XAUUSD", types.H4) != 0 {
		t.Fatal("expected no H4 candle before bucket closes")
	}

	// Advance into the next H4 bucket: this must close and flush the first.
	next := m1(base, 240, 200, 201, 199, 200, 1)
	if err := agg.OnM1("XAUUSD", next); err != nil {
		t.Fatalf("OnM1 boundary: %v", err)
	}
	if store.Len("XAUUSD", types.H4) != 1 {
		t.Fatalf("expected exactly one closed H4 candle, got %d", store.Len("XAUUSD", types.H4))
	}
	h4, _ := store.LatestOne("XAUUSD", types.H4)
	if h4.Open != 100 {
		t.Fatalf("expected open=first M1 open (100), got %v", h4.Open)
	}
	if h4.Close != 100 {
		t.Fatalf("expected close=last M1 close (100), got %v", h4.Close)
	}
	if h4.High != 104 {
		t.Fatalf("expected high=max (104), got %v", h4.High)
	}
	if h4.Low != 99 {
		t.Fatalf("expected low=min (99), got %v", h4.Low)
	}
	if h4.Volume != 12 {
		t.Fatalf("expected volume=sum (12), got %v", h4.Volume)
	}
}

func TestHigherTFClosesBeforeM1AppendIsVisible(t *testing.T) {
	// Regression for spec §4.2: the aggregator must close the prior bucket
	// using only the M1 candles that belong to it; appending the boundary
	// M1 candle to the M1 store must not happen before OnM1 has already
	// closed the H4 bucket, so analytics never see a half-formed H4 candle
	// that includes a candle from the new bucket.
	store := candlestore.New(100)
	agg := New(store, []types.Timeframe{types.H4})
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	first := m1(base, 0, 10, 11, 9, 10, 1)
	_ = agg.OnM1("XAUUSD", first)
	_ = store.Append("XAUUSD", types.M1, first)

	boundary := m1(base, 240, 50, 51, 49, 50, 1)
	if err := agg.OnM1("XAUUSD", boundary); err != nil {
		t.Fatalf("OnM1: %v", err)
	}
	h4, ok := store.LatestOne("XAUUSD", types.H4)
	if !ok {
		t.Fatal("expected closed H4 candle")
	}
	if h4.High != 11 || h4.Low != 9 {
		t.Fatalf("boundary candle leaked into prior H4 bucket: got high=%v low=%v", h4.High, h4.Low)
	}
}
