package zones

import "github.com/evdnx/ictengine/types"

// atr computes a simple rolling average true range over the last period
// candles ending at index i (inclusive), using candles[i-1] as the prior
// close for true-range. It is hand-rolled rather than routed through the
// goti indicator suite: goti's suite owns its own internal buffer and is
// fed incrementally bar-by-bar, which cannot be addressed by the detector's
// relative-window indices or re-evaluated deterministically over an
// arbitrary replay slice (see DESIGN.md). Returns 0 if there is not enough
// history.
func atr(candles []types.Candle, i, period int) float64 {
	if i-period+1 < 1 {
		return 0
	}
	sum := 0.0
	for j := i - period + 1; j <= i; j++ {
		sum += trueRange(candles, j)
	}
	return sum / float64(period)
}

func trueRange(candles []types.Candle, i int) float64 {
	c := candles[i]
	if i == 0 {
		return c.High - c.Low
	}
	prevClose := candles[i-1].Close
	hl := c.High - c.Low
	hc := absF(c.High - prevClose)
	lc := absF(c.Low - prevClose)
	m := hl
	if hc > m {
		m = hc
	}
	if lc > m {
		m = lc
	}
	return m
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
