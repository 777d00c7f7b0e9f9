package structure

import (
	"testing"
	"time"

	"github.com/evdnx/ictengine/types"
)

func cndl(minute int, o, h, l, c float64) types.Candle {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return types.Candle{Timestamp: base.Add(time.Duration(minute) * time.Minute), Open: o, High: h, Low: l, Close: c, Volume: 1}
}

func TestBOSStrictCloseRequiresCloseBeyondSwing(t *testing.T) {
	e := New(true)
	candles := []types.Candle{
		cndl(0, 100, 105, 95, 100), // index 0: swing high confirmed here at 105
		cndl(1, 100, 101, 99, 100),
		cndl(2, 100, 104, 99, 100), // wick above 105? no, below; not a break
		cndl(3, 100, 110, 100, 106), // closes above 105: BOS
	}
	swings := []types.Swing{{Index: 0, Kind: types.SwingHigh, Price: 105, Timestamp: candles[0].Timestamp}}
	events := e.Process(candles, swings, 1)
	if len(events) != 1 {
		t.Fatalf("expected exactly 1 BOS, got %d: %+v", len(events), events)
	}
	ev := events[0]
	if ev.Kind != types.BOS || ev.Direction != types.Bullish {
		t.Fatalf("expected bullish BOS, got %+v", ev)
	}
	if !ev.Timestamp.After(candles[0].Timestamp) {
		t.Fatal("expected BOS candle timestamp to be after the broken swing's timestamp")
	}
	if candles[ev.CandleIndex].Close <= 105 {
		t.Fatal("expected breaking candle's close to be strictly beyond the swing price")
	}
}

func TestOneCandleProducesAtMostOneBOS(t *testing.T) {
	e := New(true)
	candles := []types.Candle{
		cndl(0, 100, 105, 95, 100),
		cndl(1, 100, 101, 90, 100), // swing low at 90
		cndl(2, 100, 101, 99, 100),
		cndl(3, 100, 120, 80, 110), // breaks both the high (105) and the low (90) in one candle
	}
	swings := []types.Swing{
		{Index: 0, Kind: types.SwingHigh, Price: 105, Timestamp: candles[0].Timestamp},
		{Index: 1, Kind: types.SwingLow, Price: 90, Timestamp: candles[1].Timestamp},
	}
	events := e.Process(candles, swings, 2)
	if len(events) != 1 {
		t.Fatalf("expected dedupe to one event per candle, got %d: %+v", len(events), events)
	}
}

func TestCHoCHFlipsBiasOnAnchorBreak(t *testing.T) {
	e := New(true)
	// Build: bullish BOS establishes bullish bias with anchor = most recent
	// low before the BOS candle. Then price breaks that anchor low with a
	// bearish BOS, which must be reported as a CHoCH and flip bias.
	candles := []types.Candle{
		cndl(0, 100, 100, 95, 98), // low candidate @95
		cndl(1, 98, 106, 97, 105), // breaks high 105? set swing high before this
		cndl(2, 105, 107, 100, 103),
		cndl(3, 103, 104, 80, 82), // breaks anchor low (95): CHoCH
	}
	swings := []types.Swing{
		{Index: 0, Kind: types.SwingLow, Price: 95, Timestamp: candles[0].Timestamp},
		{Index: 1, Kind: types.SwingHigh, Price: 105, Timestamp: candles[1].Timestamp},
	}
	// First pass: establish bullish bias via a BOS breaking the 105 high at
	// candle index 2 is not a break (104 < 105); use candle with close above.
	candles[2] = cndl(2, 105, 108, 100, 106) // closes above 105 -> bullish BOS

	events := e.Process(candles, swings, 1)
	if len(events) < 2 {
		t.Fatalf("expected at least 2 events (BOS then CHoCH), got %d: %+v", len(events), events)
	}
	first := events[0]
	if first.Kind != types.BOS || first.Direction != types.Bullish {
		t.Fatalf("expected first event to be bullish BOS, got %+v", first)
	}
	// The bias right after the first BOS is read from a separate engine run
	// over the candles up to and including the BOS candle (index 2).
	pre := New(true)
	pre.Process(candles[:3], swings, 1)
	if pre.Bias().Bias != types.BiasBullish {
		t.Fatalf("expected bullish bias after first BOS, got %v", pre.Bias().Bias)
	}
	last := events[len(events)-1]
	if last.Kind != types.CHoCH {
		t.Fatalf("expected CHoCH on anchor break, got %+v", last)
	}
	if last.Direction != types.Bearish {
		t.Fatalf("expected CHoCH direction bearish, got %v", last.Direction)
	}
	if e.Bias().Bias != types.BiasBearish {
		t.Fatalf("expected bias flipped to bearish, got %v", e.Bias().Bias)
	}
}

func TestCHoCHOnlyFiresWhenOppositePolarityToBias(t *testing.T) {
	// An ordinary same-direction BOS while bias is already bullish must
	// never be reported as a CHoCH, even if it breaks some swing.
	e := New(true)
	candles := []types.Candle{
		cndl(0, 100, 100, 90, 95),
		cndl(1, 95, 106, 94, 105), // bullish BOS vs high@105 -> sets bias bullish
		cndl(2, 105, 115, 104, 112), // another bullish BOS vs a later high
	}
	swings := []types.Swing{
		{Index: 0, Kind: types.SwingLow, Price: 90, Timestamp: candles[0].Timestamp},
		{Index: 1, Kind: types.SwingHigh, Price: 105, Timestamp: candles[1].Timestamp},
	}
	_ = candles[2]
	swings = append(swings, types.Swing{Index: 1, Kind: types.SwingHigh, Price: 108, Timestamp: candles[1].Timestamp})
	events := e.Process(candles, swings, 1)
	for _, ev := range events {
		if ev.Kind == types.CHoCH {
			t.Fatalf("did not expect CHoCH while bias polarity matches BOS direction: %+v", ev)
		}
	}
}
