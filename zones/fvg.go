package zones

import "github.com/evdnx/ictengine/types"

// DetectFVGs scans every valid 3-candle triple, INCLUDING the final one
// (spec §3/§8 item 9: the source's loop excludes i=len-2, which is a bug;
// this implementation deliberately loops through len(candles)-2 inclusive).
func DetectFVGs(candles []types.Candle, minSize float64) []types.FairValueGap {
	var out []types.FairValueGap
	n := len(candles)
	for i := 1; i <= n-2; i++ {
		prev, next := candles[i-1], candles[i+1]
		if prev.High < next.Low {
			gap := next.Low - prev.High
			if gap >= minSize {
				out = append(out, types.FairValueGap{
					Direction: types.Bullish, Low: prev.High, High: next.Low,
					MiddleCandleIndex: i,
				})
			}
		} else if prev.Low > next.High {
			gap := prev.Low - next.High
			if gap >= minSize {
				out = append(out, types.FairValueGap{
					Direction: types.Bearish, Low: next.High, High: prev.Low,
					MiddleCandleIndex: i,
				})
			}
		}
	}
	return out
}

// MarkResolved flips Resolved=true on any FVG whose gap has since been
// fully traded through.
func MarkResolved(gaps []types.FairValueGap, candles []types.Candle) []types.FairValueGap {
	out := make([]types.FairValueGap, len(gaps))
	copy(out, gaps)
	for i := range out {
		g := &out[i]
		for j := g.MiddleCandleIndex + 2; j < len(candles); j++ {
			c := candles[j]
			if g.Direction == types.Bullish && c.Close < g.Low {
				g.Resolved = true
				break
			}
			if g.Direction == types.Bearish && c.Close > g.High {
				g.Resolved = true
				break
			}
		}
	}
	return out
}
