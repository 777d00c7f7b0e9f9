package trend

import (
	"testing"

	"github.com/evdnx/ictengine/types"
)

func sw(kind types.SwingKind, price float64) types.Swing {
	return types.Swing{Kind: kind, Price: price}
}

func TestClassifyBullishHHHL(t *testing.T) {
	swings := []types.Swing{
		sw(types.SwingLow, 100), sw(types.SwingHigh, 110),
		sw(types.SwingLow, 105), sw(types.SwingHigh, 115),
	}
	got := Classify(swings, nil, 2, 5)
	if got != types.TrendBullish {
		t.Fatalf("expected bullish trend, got %v", got)
	}
}

func TestClassifySidewaysWithNoFallback(t *testing.T) {
	swings := []types.Swing{
		sw(types.SwingLow, 95), sw(types.SwingHigh, 110),
		sw(types.SwingLow, 100), sw(types.SwingHigh, 105),
	}
	got := Classify(swings, nil, 2, 5)
	if got != types.TrendSideways {
		t.Fatalf("expected sideways trend, got %v", got)
	}
}

func TestClassifySidewaysFallsBackToRecentCHoCH(t *testing.T) {
	swings := []types.Swing{
		sw(types.SwingLow, 95), sw(types.SwingHigh, 110),
		sw(types.SwingLow, 100), sw(types.SwingHigh, 105),
	}
	events := []types.StructureEvent{{Kind: types.CHoCH, Direction: types.Bearish}}
	got := Classify(swings, events, 2, 5)
	if got != types.TrendBearish {
		t.Fatalf("expected bearish fallback from CHoCH, got %v", got)
	}
}

func TestClassifySidewaysFallsBackToBOSMajority(t *testing.T) {
	swings := []types.Swing{
		sw(types.SwingLow, 95), sw(types.SwingHigh, 110),
		sw(types.SwingLow, 100), sw(types.SwingHigh, 105),
	}
	events := []types.StructureEvent{
		{Kind: types.BOS, Direction: types.Bullish},
		{Kind: types.BOS, Direction: types.Bullish},
		{Kind: types.BOS, Direction: types.Bullish},
		{Kind: types.BOS, Direction: types.Bearish},
	}
	got := Classify(swings, events, 2, 5)
	if got != types.TrendBullish {
		t.Fatalf("expected bullish fallback from BOS majority, got %v", got)
	}
}

func TestClassifySidewaysWhenBOSNotClearMajority(t *testing.T) {
	swings := []types.Swing{
		sw(types.SwingLow, 95), sw(types.SwingHigh, 110),
		sw(types.SwingLow, 100), sw(types.SwingHigh, 105),
	}
	events := []types.StructureEvent{
		{Kind: types.BOS, Direction: types.Bullish},
		{Kind: types.BOS, Direction: types.Bearish},
	}
	got := Classify(swings, events, 2, 5)
	if got != types.TrendSideways {
		t.Fatalf("expected sideways when BOS split evenly, got %v", got)
	}
}

func TestPremiumDiscount(t *testing.T) {
	if got := PremiumDiscount(101, 100, 110, 0.01); got != types.Discount {
		t.Fatalf("expected discount, got %v", got)
	}
	if got := PremiumDiscount(109, 100, 110, 0.01); got != types.Premium {
		t.Fatalf("expected premium, got %v", got)
	}
	if got := PremiumDiscount(105, 100, 110, 0.01); got != types.Neutral {
		t.Fatalf("expected neutral at midpoint, got %v", got)
	}
}
