// Package swing implements C3: a pivot/fractal detector supplemented by a
// rolling-extreme fallback, combined as the "hybrid" policy of spec §4.3.
// A pivot swing at index i is confirmed only once pivotLeft/pivotRight
// subsequent candles exist, and is never repainted after confirmation.
package swing

import (
	"github.com/evdnx/ictengine/types"
)

// Detector runs the hybrid pivot+rolling swing detection over a candle
// window for one (symbol, timeframe).
type Detector struct {
	PivotLeft   int
	PivotRight  int
	MinPairs    int // minimum pivot-confirmed count before rolling supplements
	RollingLookback int
}

// New builds a Detector with symmetric pivot width (pivotLeft == pivotRight,
// per spec §4.3: HTF 5, ITF 3, LTF 2).
func New(pivotWidth, minPairs, rollingLookback int) *Detector {
	if minPairs <= 0 {
		minPairs = 4
	}
	if rollingLookback <= 0 {
		rollingLookback = 20
	}
	return &Detector{
		PivotLeft:       pivotWidth,
		PivotRight:      pivotWidth,
		MinPairs:        minPairs,
		RollingLookback: rollingLookback,
	}
}

// Detect scans candles (oldest-first, as returned by candlestore.Latest)
// and returns every confirmed swing in ascending index order. candles[i]'s
// Index field in the returned swings is i (position within this window).
func (d *Detector) Detect(candles []types.Candle) []types.Swing {
	pivots := d.detectPivots(candles)
	if len(pivots) >= d.MinPairs {
		return pivots
	}
	rolling := d.detectRolling(candles)
	return mergePreferPivot(pivots, rolling)
}

func (d *Detector) detectPivots(candles []types.Candle) []types.Swing {
	var out []types.Swing
	n := len(candles)
	for i := d.PivotLeft; i < n-d.PivotRight; i++ {
		if d.isPivotHigh(candles, i) {
			out = append(out, types.Swing{
				Index: i, Timestamp: candles[i].Timestamp, Price: candles[i].High,
				Kind: types.SwingHigh, Strength: d.PivotLeft,
			})
		}
		if d.isPivotLow(candles, i) {
			out = append(out, types.Swing{
				Index: i, Timestamp: candles[i].Timestamp, Price: candles[i].Low,
				Kind: types.SwingLow, Strength: d.PivotLeft,
			})
		}
	}
	return out
}

func (d *Detector) isPivotHigh(candles []types.Candle, i int) bool {
	h := candles[i].High
	for j := i - d.PivotLeft; j < i; j++ {
		if candles[j].High >= h {
			return false
		}
	}
	for j := i + 1; j <= i+d.PivotRight; j++ {
		if candles[j].High >= h {
			return false
		}
	}
	return true
}

func (d *Detector) isPivotLow(candles []types.Candle, i int) bool {
	l := candles[i].Low
	for j := i - d.PivotLeft; j < i; j++ {
		if candles[j].Low <= l {
			return false
		}
	}
	for j := i + 1; j <= i+d.PivotRight; j++ {
		if candles[j].Low <= l {
			return false
		}
	}
	return true
}

// detectRolling records the provisional extreme within each non-overlapping
// lookback window; used only as a fallback when too few pivots exist.
func (d *Detector) detectRolling(candles []types.Candle) []types.Swing {
	var out []types.Swing
	n := len(candles)
	for start := 0; start < n; start += d.RollingLookback {
		end := start + d.RollingLookback
		if end > n {
			end = n
		}
		if end-start < 2 {
			continue
		}
		hiIdx, loIdx := start, start
		for i := start; i < end; i++ {
			if candles[i].High > candles[hiIdx].High {
				hiIdx = i
			}
			if candles[i].Low < candles[loIdx].Low {
				loIdx = i
			}
		}
		out = append(out, types.Swing{
			Index: hiIdx, Timestamp: candles[hiIdx].Timestamp, Price: candles[hiIdx].High,
			Kind: types.SwingHigh, Rolling: true,
		})
		out = append(out, types.Swing{
			Index: loIdx, Timestamp: candles[loIdx].Timestamp, Price: candles[loIdx].Low,
			Kind: types.SwingLow, Rolling: true,
		})
	}
	return out
}

// mergePreferPivot combines pivot and rolling swings, keeping both sets but
// resolving same-index ties in favor of the pivot-confirmed swing (spec
// §4.3 tie-break rule).
func mergePreferPivot(pivots, rolling []types.Swing) []types.Swing {
	byIndexKind := make(map[[2]int]bool, len(pivots))
	for _, p := range pivots {
		byIndexKind[[2]int{p.Index, kindTag(p.Kind)}] = true
	}
	out := make([]types.Swing, len(pivots))
	copy(out, pivots)
	for _, r := range rolling {
		if byIndexKind[[2]int{r.Index, kindTag(r.Kind)}] {
			continue // pivot wins the tie
		}
		out = append(out, r)
	}
	// Stable sort by index to keep ascending time order.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Index < out[j-1].Index; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func kindTag(k types.SwingKind) int {
	if k == types.SwingHigh {
		return 0
	}
	return 1
}
