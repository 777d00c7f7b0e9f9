// Package trend implements C5: the formal HH/HL trend classifier and the
// premium/discount position within the active swing range (spec §4.5).
package trend

import (
	"github.com/evdnx/ictengine/types"
)

// Classify derives the formal trend from the most recent k confirmed
// swing highs and k confirmed swing lows (ascending order, oldest-first).
// If neither a strictly-ascending nor strictly-descending pattern holds, it
// falls back to the most recent CHoCH direction, then to a clear majority
// (difference >= 2) among the last N BOS events, and otherwise returns
// Sideways (spec §4.5).
func Classify(swings []types.Swing, events []types.StructureEvent, k, bosWindow int) types.Trend {
	highs := lastKOfKind(swings, types.SwingHigh, k)
	lows := lastKOfKind(swings, types.SwingLow, k)

	if len(highs) == k && len(lows) == k && strictlyAscending(highs) && strictlyAscending(lows) {
		return types.TrendBullish
	}
	if len(highs) == k && len(lows) == k && strictlyDescending(highs) && strictlyDescending(lows) {
		return types.TrendBearish
	}

	if dir, ok := lastChochDirection(events); ok {
		return trendFromDirection(dir)
	}
	if dir, ok := bosMajority(events, bosWindow); ok {
		return trendFromDirection(dir)
	}
	return types.TrendSideways
}

func trendFromDirection(d types.Direction) types.Trend {
	if d == types.Bullish {
		return types.TrendBullish
	}
	return types.TrendBearish
}

func lastKOfKind(swings []types.Swing, kind types.SwingKind, k int) []float64 {
	var prices []float64
	for _, s := range swings {
		if s.Kind == kind {
			prices = append(prices, s.Price)
		}
	}
	if len(prices) < k {
		return nil
	}
	return prices[len(prices)-k:]
}

func strictlyAscending(vals []float64) bool {
	for i := 1; i < len(vals); i++ {
		if vals[i] <= vals[i-1] {
			return false
		}
	}
	return true
}

func strictlyDescending(vals []float64) bool {
	for i := 1; i < len(vals); i++ {
		if vals[i] >= vals[i-1] {
			return false
		}
	}
	return true
}

func lastChochDirection(events []types.StructureEvent) (types.Direction, bool) {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Kind == types.CHoCH {
			return events[i].Direction, true
		}
	}
	return "", false
}

func bosMajority(events []types.StructureEvent, window int) (types.Direction, bool) {
	var bos []types.StructureEvent
	for _, ev := range events {
		if ev.Kind == types.BOS {
			bos = append(bos, ev)
		}
	}
	if len(bos) > window {
		bos = bos[len(bos)-window:]
	}
	var bull, bear int
	for _, ev := range bos {
		if ev.Direction == types.Bullish {
			bull++
		} else {
			bear++
		}
	}
	diff := bull - bear
	if diff < 0 {
		diff = -diff
	}
	if diff < 2 {
		return "", false
	}
	if bull > bear {
		return types.Bullish, true
	}
	return types.Bearish, true
}

// PremiumDiscount returns the premium/discount classification of price
// within [swingLow, swingHigh] (spec §4.5). neutralTol is the tolerance
// around exactly 0.5 treated as Neutral (blocks both buys and sells).
func PremiumDiscount(price, swingLow, swingHigh, neutralTol float64) types.PDPosition {
	if swingHigh <= swingLow {
		return types.Neutral
	}
	pos := (price - swingLow) / (swingHigh - swingLow)
	if diff := pos - 0.5; diff < neutralTol && diff > -neutralTol {
		return types.Neutral
	}
	if pos <= 0.5 {
		return types.Discount
	}
	return types.Premium
}
