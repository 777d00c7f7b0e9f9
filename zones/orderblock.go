// Package zones implements C6: order-block, fair-value-gap, displacement
// and liquidity-sweep detection (spec §4.6). Two documented source bugs are
// deliberately corrected here and pinned by regression tests: the bearish
// order block's wick ratio must use high-close (not high-open), and the
// FVG scan must include the final valid triple.
package zones

import "github.com/evdnx/ictengine/types"

// DetectOrderBlocks scans candles oldest-first and returns one OrderBlock
// candidate per bullish/bearish BOS event whose origin candle passes the
// wick-to-body ratio gate (spec §4.6).
func DetectOrderBlocks(candles []types.Candle, events []types.StructureEvent, minWickRatio float64) []types.OrderBlock {
	var obs []types.OrderBlock
	for _, ev := range events {
		if ev.Kind != types.BOS && ev.Kind != types.CHoCH {
			continue
		}
		origin, ok := lastOppositeCandle(candles, ev.CandleIndex, ev.Direction)
		if !ok {
			continue
		}
		c := candles[origin]
		if !passesWickRatio(c, ev.Direction, minWickRatio) {
			continue
		}
		obs = append(obs, types.OrderBlock{
			Direction:         ev.Direction,
			Low:               c.Low,
			High:              c.High,
			OriginCandleIndex: origin,
		})
	}
	return obs
}

// lastOppositeCandle returns the index of the last candle, before
// breakCandleIndex, whose polarity is opposite to dir (spec §4.6: "the
// last bearish candle preceding a bullish BOS", mirrored for bearish).
func lastOppositeCandle(candles []types.Candle, breakCandleIndex int, dir types.Direction) (int, bool) {
	for i := breakCandleIndex - 1; i >= 0; i-- {
		c := candles[i]
		if dir == types.Bullish && c.Bearish() {
			return i, true
		}
		if dir == types.Bearish && c.Bullish() {
			return i, true
		}
	}
	return 0, false
}

// passesWickRatio gates the order block's origin candle by wick-to-body
// ratio. For a bullish-source candle (bearish OB mirror omitted here —
// this gates the OB's ORIGIN candle, whose polarity is opposite the BOS):
// lower_wick = open - low for a bullish candle; upper_wick = high - close
// for a bearish candle. The source computes the bearish case as
// high - open, which is wrong whenever the candle has a nonzero body below
// its close; this implementation uses the corrected high - close formula
// (spec §4.6, §8 item 10, §9 open question).
func passesWickRatio(c types.Candle, breakDir types.Direction, minRatio float64) bool {
	body := c.Body()
	if body == 0 {
		return false
	}
	var wick float64
	if breakDir == types.Bullish {
		// Bullish OB: origin candle is bearish -> bearish-source formula,
		// upper_wick = high - close (corrected; not high - open).
		wick = c.High - c.Close
	} else {
		// Bearish OB: origin candle is bullish -> bullish-source formula,
		// lower_wick = open - low.
		wick = c.Open - c.Low
	}
	if wick < 0 {
		wick = 0
	}
	return wick/body >= minRatio
}

// MarkMitigated flips Mitigated=true on any order block whose zone has
// since been traded through from the opposite side (spec §4.6).
func MarkMitigated(obs []types.OrderBlock, candles []types.Candle) []types.OrderBlock {
	out := make([]types.OrderBlock, len(obs))
	copy(out, obs)
	for i := range out {
		ob := &out[i]
		for j := ob.OriginCandleIndex + 1; j < len(candles); j++ {
			c := candles[j]
			if ob.Direction == types.Bullish && c.Close < ob.Low {
				ob.Mitigated = true
				break
			}
			if ob.Direction == types.Bearish && c.Close > ob.High {
				ob.Mitigated = true
				break
			}
		}
	}
	return out
}
