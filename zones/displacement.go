package zones

import "github.com/evdnx/ictengine/types"

const atrPeriod = 14

// DetectDisplacements returns a DisplacementEvent for every candle whose
// body exceeds both the previous candle's body by bodyMult and the rolling
// ATR(14) by atrMult (spec §4.6).
func DetectDisplacements(candles []types.Candle, bodyMult, atrMult float64) []types.DisplacementEvent {
	var out []types.DisplacementEvent
	for i := 1; i < len(candles); i++ {
		body := candles[i].Body()
		prevBody := candles[i-1].Body()
		a := atr(candles, i, atrPeriod)
		if a == 0 {
			continue
		}
		if body > prevBody*bodyMult && body >= a*atrMult {
			dir := types.Bullish
			if candles[i].Bearish() {
				dir = types.Bearish
			}
			out = append(out, types.DisplacementEvent{
				CandleIndex: i,
				Direction:   dir,
				ATRMultiple: body / a,
			})
		}
	}
	return out
}
