package zones

import "github.com/evdnx/ictengine/types"

// DetectLiquiditySweeps returns a LiquiditySweep for every candle whose
// extreme crosses a prior swing (within tolerance) but whose close returns
// back inside it (spec §4.6).
func DetectLiquiditySweeps(candles []types.Candle, swings []types.Swing, tolerance float64) []types.LiquiditySweep {
	var out []types.LiquiditySweep
	for i, c := range candles {
		for _, s := range swings {
			if s.Index >= i {
				continue
			}
			switch s.Kind {
			case types.SwingHigh:
				if c.High >= s.Price-tolerance && c.Close < s.Price {
					out = append(out, types.LiquiditySweep{
						Direction: types.Bearish, SweptLevelPrice: s.Price,
						CandleIndex: i, ReversalConfirmed: true,
					})
				}
			case types.SwingLow:
				if c.Low <= s.Price+tolerance && c.Close > s.Price {
					out = append(out, types.LiquiditySweep{
						Direction: types.Bullish, SweptLevelPrice: s.Price,
						CandleIndex: i, ReversalConfirmed: true,
					})
				}
			}
		}
	}
	return out
}
