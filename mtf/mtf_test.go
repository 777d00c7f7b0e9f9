package mtf

import (
	"testing"
	"time"

	"github.com/evdnx/ictengine/types"
)

func candle(minute int, o, h, l, c float64) types.Candle {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return types.Candle{
		Timestamp: base.Add(time.Duration(minute) * time.Minute),
		Open:      o, High: h, Low: l, Close: c, Volume: 1,
	}
}

func testParams() Params {
	return Params{
		StrictClose:          true,
		PivotWidth:           1,
		MinPairs:             1,
		RollingLookback:      5,
		MinWickRatio:         0.1,
		MinFVGSize:           0,
		DisplacementBodyMult: 1.2,
		DisplacementATRMult:  1.0,
		SweepTolerance:       0.1,
		TrendLookback:        1,
		BOSWindow:            5,
		PDNeutralTol:         0.05,
	}
}

func TestBuildAssemblesFullContext(t *testing.T) {
	candles := []types.Candle{
		candle(0, 100, 101, 95, 100),
		candle(1, 100, 106, 99, 100),  // pivot high @106 confirmed by neighbors
		candle(2, 100, 102, 90, 100),  // pivot low @90 confirmed by neighbors
		candle(3, 100, 103, 99, 100),
		candle(4, 100, 112, 100, 110), // breaks the 106 high: bullish BOS
	}
	ctx := Build(types.M15, candles, testParams(), 100)

	if ctx.Timeframe != types.M15 {
		t.Fatalf("expected timeframe M15, got %v", ctx.Timeframe)
	}
	if len(ctx.Swings) == 0 {
		t.Fatal("expected at least one confirmed swing")
	}
	if len(ctx.Events) == 0 {
		t.Fatal("expected at least one structure event (BOS) from the breakout candle")
	}
	if ctx.Bias.Bias != types.BiasBullish {
		t.Fatalf("expected bullish bias after the breakout, got %v", ctx.Bias.Bias)
	}
}

func TestBuildSkipsPDWhenCurrentPriceZero(t *testing.T) {
	candles := []types.Candle{
		candle(0, 100, 101, 95, 100),
		candle(1, 100, 106, 99, 100),
		candle(2, 100, 102, 90, 100),
	}
	ctx := Build(types.M1, candles, testParams(), 0)
	if ctx.PD != types.Neutral {
		t.Fatalf("expected Neutral PD when currentPrice is 0, got %v", ctx.PD)
	}
}

func TestBuildSnapshotAssignsTimeframesCorrectly(t *testing.T) {
	h4 := []types.Candle{candle(0, 100, 110, 90, 105)}
	m15 := []types.Candle{candle(0, 100, 108, 92, 103)}
	m1 := []types.Candle{candle(0, 100, 101, 99, 100)}

	p := testParams()
	snap := BuildSnapshot("XAUUSD", h4, m15, m1, p, p, p, 100)

	if snap.Symbol != "XAUUSD" {
		t.Fatalf("unexpected symbol: %s", snap.Symbol)
	}
	if snap.HTF.Timeframe != types.H4 {
		t.Fatalf("expected HTF timeframe H4, got %v", snap.HTF.Timeframe)
	}
	if snap.ITF.Timeframe != types.M15 {
		t.Fatalf("expected ITF timeframe M15, got %v", snap.ITF.Timeframe)
	}
	if snap.LTF.Timeframe != types.M1 {
		t.Fatalf("expected LTF timeframe M1, got %v", snap.LTF.Timeframe)
	}
}

func TestRecentSwingRangeUsesLatestOfEachKind(t *testing.T) {
	swings := []types.Swing{
		{Index: 0, Kind: types.SwingLow, Price: 90},
		{Index: 1, Kind: types.SwingHigh, Price: 110},
		{Index: 2, Kind: types.SwingLow, Price: 95},
	}
	lo, hi, ok := recentSwingRange(swings)
	if !ok {
		t.Fatal("expected ok=true with both kinds present")
	}
	if lo != 95 || hi != 110 {
		t.Fatalf("expected latest low 95 and latest high 110, got lo=%v hi=%v", lo, hi)
	}
}

func TestRecentSwingRangeFalseWhenOnlyOneKindPresent(t *testing.T) {
	swings := []types.Swing{{Index: 0, Kind: types.SwingLow, Price: 90}}
	if _, _, ok := recentSwingRange(swings); ok {
		t.Fatal("expected ok=false when only one swing kind is present")
	}
}
