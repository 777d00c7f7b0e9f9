// Package mtf implements C7: multi-timeframe context assembly (spec §4.7).
// It stitches the per-timeframe analytics packages (swing, structure, trend,
// zones) together into a single snapshot for a symbol at a point in replay
// time, without owning any state of its own — callers supply the candle
// history, and every call is a pure recomputation so the result never
// repaints and never depends on call order.
package mtf

import (
	"github.com/evdnx/ictengine/structure"
	"github.com/evdnx/ictengine/swing"
	"github.com/evdnx/ictengine/trend"
	"github.com/evdnx/ictengine/types"
	"github.com/evdnx/ictengine/zones"
)

// Params configures the per-timeframe analytics used when assembling a
// Context. They are derived from config.AnalyticParams by the caller.
type Params struct {
	StrictClose          bool
	PivotWidth           int
	MinPairs             int
	RollingLookback      int
	MinWickRatio         float64
	MinFVGSize           float64
	DisplacementBodyMult float64
	DisplacementATRMult  float64
	SweepTolerance       float64
	TrendLookback        int
	BOSWindow            int
	PDNeutralTol         float64
}

// Context is the fully-computed analytics snapshot for one timeframe at one
// point in replay time (spec §4.7: "confirmed swings, BOS/CHoCH lists,
// current bias, current trend, PD position, detected zones").
type Context struct {
	Timeframe       types.Timeframe
	Candles         []types.Candle
	Swings          []types.Swing
	Events          []types.StructureEvent
	Bias            types.BiasState
	Trend           types.Trend
	PD              types.PDPosition
	OrderBlocks     []types.OrderBlock
	FVGs            []types.FairValueGap
	Displacements   []types.DisplacementEvent
	Sweeps          []types.LiquiditySweep
}

// Snapshot bundles the three registries C8 reads from (spec §4.7: "{ HTF:
// ctx4, ITF: ctx15, LTF: ctx1 }"). Times are aligned by construction: every
// Context is built strictly from candles whose buckets had already closed
// at or before the evaluation tick (the candlestore/aggregator ordering
// contract guarantees no half-formed higher-TF bucket is ever visible).
type Snapshot struct {
	Symbol string
	HTF    Context
	ITF    Context
	LTF    Context
}

// Build assembles a Context for one timeframe's candle history. currentPrice
// is used only for PD-position classification against the most recent swing
// range; pass 0 to skip PD classification (result is types.Neutral).
func Build(tf types.Timeframe, candles []types.Candle, p Params, currentPrice float64) Context {
	det := swing.New(p.PivotWidth, p.MinPairs, p.RollingLookback)
	swings := det.Detect(candles)

	eng := structure.New(p.StrictClose)
	events := eng.Process(candles, swings, 0)
	bias := eng.Bias()

	tr := trend.Classify(swings, events, p.TrendLookback, p.BOSWindow)

	pd := types.Neutral
	if currentPrice != 0 {
		if lo, hi, ok := recentSwingRange(swings); ok {
			pd = trend.PremiumDiscount(currentPrice, lo, hi, p.PDNeutralTol)
		}
	}

	obs := zones.DetectOrderBlocks(candles, events, p.MinWickRatio)
	obs = zones.MarkMitigated(obs, candles)
	fvgs := zones.DetectFVGs(candles, p.MinFVGSize)
	fvgs = zones.MarkResolved(fvgs, candles)
	disps := zones.DetectDisplacements(candles, p.DisplacementBodyMult, p.DisplacementATRMult)
	sweeps := zones.DetectLiquiditySweeps(candles, swings, p.SweepTolerance)

	return Context{
		Timeframe:     tf,
		Candles:       candles,
		Swings:        swings,
		Events:        events,
		Bias:          bias,
		Trend:         tr,
		PD:            pd,
		OrderBlocks:   obs,
		FVGs:          fvgs,
		Displacements: disps,
		Sweeps:        sweeps,
	}
}

// recentSwingRange returns the most recent confirmed swing-low/swing-high
// pair (in encounter order, not necessarily adjacent) used as the reference
// range for premium/discount classification.
func recentSwingRange(swings []types.Swing) (lo, hi float64, ok bool) {
	var lastLow, lastHigh *types.Swing
	for i := range swings {
		s := &swings[i]
		switch s.Kind {
		case types.SwingLow:
			lastLow = s
		case types.SwingHigh:
			lastHigh = s
		}
	}
	if lastLow == nil || lastHigh == nil {
		return 0, 0, false
	}
	return lastLow.Price, lastHigh.Price, true
}

// BuildSnapshot assembles the HTF/ITF/LTF Contexts for a symbol from three
// already-aligned candle histories (H4, M15, M1), each with its own Params
// (pivot width in particular differs per timeframe, spec §6 "pivot widths
// per TF"). Callers are responsible for slicing each history to candles
// whose bucket had closed at or before the evaluation timestamp;
// candlestore.Latest combined with the aggregator's close-before-append
// ordering guarantees this holds for scheduler-driven calls.
func BuildSnapshot(symbol string, htf, itf, ltf []types.Candle, pHTF, pITF, pLTF Params, currentPrice float64) Snapshot {
	return Snapshot{
		Symbol: symbol,
		HTF:    Build(types.H4, htf, pHTF, currentPrice),
		ITF:    Build(types.M15, itf, pITF, currentPrice),
		LTF:    Build(types.M1, ltf, pLTF, currentPrice),
	}
}
