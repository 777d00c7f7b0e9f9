// Package scheduler implements C10: the deterministic replay scheduler and
// a thin live-mode driver sharing the same per-tick pipeline (spec §4.10).
// Replay is the hard part — a single-threaded cooperative loop over a
// globally, deterministically ordered candle stream, grounded on the
// single-worker ordering discipline of spec §5 and on the teacher's
// candle-by-candle PaperExecutor bookkeeping (now folded into
// broker.Simulated).
package scheduler

import (
	"sort"
	"time"

	"github.com/evdnx/ictengine/config"
	"github.com/evdnx/ictengine/mtf"
	"github.com/evdnx/ictengine/types"
)

// Feeder is implemented by strategies that need every LTF candle pushed to
// them before Evaluate is called (strategy.LegacyConfluence). The ICT
// pipeline does not implement it since it is a pure function of the
// mtf.Snapshot.
type Feeder interface {
	Feed(c types.Candle) error
}

// tick is one globally-ordered unit of replay work.
type tick struct {
	symbol string
	candle types.Candle
}

// mergeGlobalOrder merges per-symbol candle slices (each already strictly
// ascending in time) into the single sequence spec §4.10 requires: sorted
// by timestamp ascending, then by symbol lexicographically. Every input
// slice is already time-sorted by the historical source's own contract, so
// this is a stable merge-sort over a fixed key, never an iteration over an
// unordered map (spec §9 "floating-point determinism" / no hashing-order
// dependence).
func mergeGlobalOrder(bySymbol map[string][]types.Candle) []tick {
	symbols := make([]string, 0, len(bySymbol))
	for s := range bySymbol {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	total := 0
	for _, s := range symbols {
		total += len(bySymbol[s])
	}
	ticks := make([]tick, 0, total)
	for _, s := range symbols {
		for _, c := range bySymbol[s] {
			ticks = append(ticks, tick{symbol: s, candle: c})
		}
	}
	sort.SliceStable(ticks, func(i, j int) bool {
		ti, tj := ticks[i], ticks[j]
		if !ti.candle.Timestamp.Equal(tj.candle.Timestamp) {
			return ti.candle.Timestamp.Before(tj.candle.Timestamp)
		}
		return ti.symbol < tj.symbol
	})
	return ticks
}

// paramsFor derives the three per-timeframe mtf.Params from one
// config.AnalyticParams, varying only the pivot width per spec §6 ("pivot
// widths per TF").
func paramsFor(a config.AnalyticParams) (htf, itf, ltf mtf.Params) {
	base := mtf.Params{
		StrictClose:          a.StrictClose,
		MinPairs:             a.SwingMinPairs,
		RollingLookback:      a.RollingLookback,
		MinWickRatio:         0, // per-symbol OBWickRatio is applied by the caller via SymbolRule
		MinFVGSize:           0, // per-symbol MinFVGSize is applied by the caller via SymbolRule
		DisplacementBodyMult: a.DisplacementBodyMult,
		DisplacementATRMult:  1.5,
		SweepTolerance:       0,
		TrendLookback:        a.TrendSwingWindow,
		BOSWindow:            a.TrendSwingWindow,
		PDNeutralTol:         0.1,
	}
	htf, itf, ltf = base, base, base
	htf.PivotWidth = a.PivotWidthHTF
	itf.PivotWidth = a.PivotWidthITF
	ltf.PivotWidth = a.PivotWidthLTF
	return
}

// withSymbolTuning overlays the symbol-specific detector tunables from
// config.SymbolRule onto the three base Params (spec §6: FVG min-size, OB
// wick ratio are per-symbol rule fields, not global analytics knobs).
func withSymbolTuning(p mtf.Params, rule config.SymbolRule) mtf.Params {
	p.MinWickRatio = rule.OBWickRatio
	p.MinFVGSize = rule.MinFVGSize
	return p
}

// EquitySample is one timestamped point on the replay equity curve (spec
// §4.10 step 5 / §6 "equity").
type EquitySample struct {
	Timestamp time.Time
	Equity    float64
}

// Summary aggregates the outcome of one replay run (spec §6 "summary").
type Summary struct {
	TicksProcessed int
	TradesOpened   int
	TradesClosed   int
	Cancelled      bool
	FinalEquity    float64
}

// Result is everything a replay run produces (spec §6 "a directory
// containing summary, trades, equity, decisions").
type Result struct {
	Summary   Summary
	Decisions []types.Decision
	Trades    []types.Position
	Equity    []EquitySample
}
