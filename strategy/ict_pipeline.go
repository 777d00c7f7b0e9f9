package strategy

import (
	"time"

	"github.com/evdnx/ictengine/types"
)

// ICTPipeline implements C8's primary strategy: the eight-step H4→M15→M1
// structural cascade of spec §4.8. It holds no state of its own — every
// Evaluate call is a pure function of the supplied mtf.Snapshot, so two
// calls with identical inputs always produce identical decisions (spec
// §4.10 determinism contract).
type ICTPipeline struct {
	now func() time.Time
}

// NewICTPipeline builds a pipeline. nowFn supplies the Decision timestamp;
// the scheduler always passes the candle's own timestamp, never wall-clock
// time (spec §4.10: "no use of wall-clock time").
func NewICTPipeline(nowFn func() time.Time) *ICTPipeline {
	return &ICTPipeline{now: nowFn}
}

// SetNow overrides the clock used to stamp decisions, implementing
// strategy.TimeAware. The scheduler calls this with the current candle's
// own timestamp before every Evaluate.
func (p *ICTPipeline) SetNow(t time.Time) {
	p.now = func() time.Time { return t }
}

func (p *ICTPipeline) ts() time.Time {
	if p.now != nil {
		return p.now()
	}
	return time.Time{}
}

// Evaluate runs the eight steps of spec §4.8 in order, short-circuiting to
// a NoSignal the moment a step cannot be satisfied.
func (p *ICTPipeline) Evaluate(ctx EvalContext) types.Decision {
	ts := p.ts()
	sym := ctx.Symbol

	// Step 1 — H4 bias.
	bias := ctx.Snapshot.HTF.Bias.Bias
	if bias != types.BiasBullish && bias != types.BiasBearish {
		return types.NoSignal(sym, ts, types.ReasonHTFSideways)
	}
	dir := types.Bullish
	if bias == types.BiasBearish {
		dir = types.Bearish
	}

	// Step 2 — M15 setup zone.
	zone, flags, ok := findSetupZone(ctx, dir)
	if !ok {
		return types.NoSignal(sym, ts, types.ReasonNoM15Setup)
	}

	// Step 3 — return-to-zone gate.
	bufferFrac := ctx.Analytics.ZoneBufferFrac
	if !zone.Contains(ctx.CurrentPrice, bufferFrac) {
		return types.NoSignal(sym, ts, types.ReasonPriceNotInZone)
	}

	// Step 4 — M1 entry refinement.
	refinedOB, hasRefinedOB, refinementOK := m1Refinement(ctx, dir)
	if !refinementOK {
		return types.NoSignal(sym, ts, types.ReasonNoM1Refinement)
	}
	entry := selectEntry(ctx, zone, refinedOB, hasRefinedOB, dir)

	// Step 5 — stop loss.
	sl, slOK := selectStopLoss(ctx, zone, refinedOB, hasRefinedOB, dir, entry)
	if !slOK {
		return types.NoSignal(sym, ts, types.ReasonInvalidSL)
	}

	// Step 6 — take profit.
	reward := ctx.StrategyRule.RewardMultiple
	if reward <= 0 {
		reward = 3.0
	}
	risk := entry - sl
	if risk < 0 {
		risk = -risk
	}
	var tp float64
	if dir == types.Bullish {
		tp = entry + reward*risk
	} else {
		tp = entry - reward*risk
	}

	// Step 7 — order kind selection.
	kind := selectOrderKind(dir, entry, ctx.Bid, ctx.Ask, ctx.Analytics.EntryEpsilonFrac)

	// Step 8 — confluence score.
	score := confluenceScore(ctx, zone, dir, hasRefinedOB)

	proposal := types.TradeProposal{
		Symbol:          sym,
		Direction:       dir,
		Entry:           entry,
		StopLoss:        sl,
		TakeProfit:      tp,
		OrderKind:       kind,
		ConfluenceScore: score,
		HTFTrend:        ctx.Snapshot.HTF.Trend,
		PDPosition:      ctx.Snapshot.HTF.PD,
		HasBOS:          flags.hasBOS,
		HasSweep:        flags.hasSweep,
		HasDisplacement: flags.hasDisplacement,
		HasFVG:          flags.hasFVG,
	}
	return types.Trade(sym, ts, proposal)
}

// setupFlags records which structural elements the M15 setup zone was
// actually built from, so the execution filter's per-flag gates (spec §4.9
// items 4 and 6) can check real presence instead of re-deriving it from the
// confluence score.
type setupFlags struct {
	hasBOS          bool
	hasSweep        bool
	hasDisplacement bool
	hasFVG          bool
}

// findSetupZone searches the M15 context for the most recent valid setup
// aligned with dir (spec §4.8 step 2).
func findSetupZone(ctx EvalContext, dir types.Direction) (types.SetupZone, setupFlags, bool) {
	itf := ctx.Snapshot.ITF
	window := ctx.Analytics.M15SetupWindow
	if window <= 0 {
		window = 20
	}
	lastIdx := len(itf.Candles) - 1
	if lastIdx < 0 {
		return types.SetupZone{}, setupFlags{}, false
	}
	minIdx := lastIdx - window
	if minIdx < 0 {
		minIdx = 0
	}

	// Find the most recent qualifying CHoCH/BOS in dir within the window.
	var anchorEvent *types.StructureEvent
	for i := len(itf.Events) - 1; i >= 0; i-- {
		ev := itf.Events[i]
		if ev.CandleIndex < minIdx {
			break
		}
		if ev.Direction != dir {
			continue
		}
		if ev.Kind == types.CHoCH || ev.Kind == types.BOS {
			e := ev
			anchorEvent = &e
			break
		}
	}
	if anchorEvent == nil {
		return types.SetupZone{}, setupFlags{}, false
	}

	// Displacement at or after the anchor event.
	var disp *types.DisplacementEvent
	for i := range itf.Displacements {
		d := itf.Displacements[i]
		if d.CandleIndex >= anchorEvent.CandleIndex && d.Direction == dir {
			disp = &d
			break
		}
	}
	if disp == nil {
		return types.SetupZone{}, setupFlags{}, false
	}

	// FVG created during the displacement leg, same direction as bias.
	var fvg *types.FairValueGap
	for i := range itf.FVGs {
		g := itf.FVGs[i]
		if g.Direction != dir || g.Resolved {
			continue
		}
		if g.MiddleCandleIndex >= anchorEvent.CandleIndex && g.MiddleCandleIndex <= disp.CandleIndex+1 {
			fvg = &g
			break
		}
	}

	// Order block just before the displacement, unmitigated.
	var ob *types.OrderBlock
	for i := len(itf.OrderBlocks) - 1; i >= 0; i-- {
		o := itf.OrderBlocks[i]
		if o.Direction != dir || o.Mitigated {
			continue
		}
		if o.OriginCandleIndex <= disp.CandleIndex {
			ob = &o
			break
		}
	}

	if fvg == nil && ob == nil {
		return types.SetupZone{}, setupFlags{}, false
	}

	var zone types.SetupZone
	switch {
	case fvg != nil && ob != nil && overlaps(fvg.Low, fvg.High, ob.Low, ob.High):
		lo, hi := intersect(fvg.Low, fvg.High, ob.Low, ob.High)
		zone = types.SetupZone{Direction: dir, ZoneLow: lo, ZoneHigh: hi, Source: types.SourceFVGAndOB}
	case fvg != nil:
		zone = types.SetupZone{Direction: dir, ZoneLow: fvg.Low, ZoneHigh: fvg.High, Source: types.SourceFVG}
	default:
		zone = types.SetupZone{Direction: dir, ZoneLow: ob.Low, ZoneHigh: ob.High, Source: types.SourceOB}
	}
	if !zone.Valid() {
		return types.SetupZone{}, setupFlags{}, false
	}

	hasSweep := false
	for _, sw := range itf.Sweeps {
		if sw.Direction == dir && sw.CandleIndex >= anchorEvent.CandleIndex {
			hasSweep = true
			break
		}
	}

	flags := setupFlags{
		hasBOS:          anchorEvent.Kind == types.BOS,
		hasSweep:        hasSweep,
		hasDisplacement: true, // disp != nil is required above to reach here
		hasFVG:          fvg != nil,
	}
	return zone, flags, true
}

func overlaps(aLo, aHi, bLo, bHi float64) bool {
	return aLo < bHi && bLo < aHi
}

func intersect(aLo, aHi, bLo, bHi float64) (float64, float64) {
	lo := aLo
	if bLo > lo {
		lo = bLo
	}
	hi := aHi
	if bHi < hi {
		hi = bHi
	}
	return lo, hi
}

// m1Refinement requires a recent M1 BOS/CHoCH in dir within the last L
// candles, and optionally locates a refined M1 order block inside the
// setup zone (spec §4.8 step 4).
func m1Refinement(ctx EvalContext, dir types.Direction) (types.OrderBlock, bool, bool) {
	ltf := ctx.Snapshot.LTF
	window := ctx.Analytics.M1RefinementWindow
	if window <= 0 {
		window = 10
	}
	lastIdx := len(ltf.Candles) - 1
	if lastIdx < 0 {
		return types.OrderBlock{}, false, false
	}
	minIdx := lastIdx - window
	if minIdx < 0 {
		minIdx = 0
	}

	found := false
	for _, ev := range ltf.Events {
		if ev.CandleIndex < minIdx {
			continue
		}
		if ev.Direction == dir && (ev.Kind == types.BOS || ev.Kind == types.CHoCH) {
			found = true
			break
		}
	}
	if !found {
		return types.OrderBlock{}, false, false
	}

	for i := len(ltf.OrderBlocks) - 1; i >= 0; i-- {
		ob := ltf.OrderBlocks[i]
		if ob.Direction == dir && !ob.Mitigated && ob.OriginCandleIndex >= minIdx {
			return ob, true, true
		}
	}
	return types.OrderBlock{}, false, true
}

// selectEntry implements spec §4.8 step 4's priority: refined M1 OB edge,
// else 50% of the M15 FVG, else M15 OB edge, else zone midpoint.
func selectEntry(ctx EvalContext, zone types.SetupZone, ob types.OrderBlock, hasOB bool, dir types.Direction) float64 {
	itf := ctx.Snapshot.ITF
	if hasOB {
		if dir == types.Bullish {
			return ob.Low
		}
		return ob.High
	}
	if zone.Source == types.SourceFVG || zone.Source == types.SourceFVGAndOB {
		for i := len(itf.FVGs) - 1; i >= 0; i-- {
			g := itf.FVGs[i]
			if g.Direction == dir && g.Low == zone.ZoneLow && g.High == zone.ZoneHigh {
				return (g.Low + g.High) / 2
			}
		}
	}
	if zone.Source == types.SourceOB {
		if dir == types.Bullish {
			return zone.ZoneHigh
		}
		return zone.ZoneLow
	}
	return (zone.ZoneLow + zone.ZoneHigh) / 2
}

// selectStopLoss implements spec §4.8 step 5: preferred beyond the refined
// M1 OB's far side, fallback to the nearest structural M15 swing beyond the
// zone, last resort zone edge — each validated against risk-side,
// min-distance and sanity-cap invariants.
func selectStopLoss(ctx EvalContext, zone types.SetupZone, ob types.OrderBlock, hasOB bool, dir types.Direction, entry float64) (float64, bool) {
	buf := ctx.SymbolRule.SLBuffer
	minDist := ctx.SymbolRule.MinRiskDistance
	maxPct := ctx.SymbolRule.MaxRiskDistancePct
	if maxPct <= 0 {
		maxPct = 0.02
	}

	var sl float64
	switch {
	case hasOB:
		if dir == types.Bullish {
			sl = ob.Low - buf
		} else {
			sl = ob.High + buf
		}
	default:
		if swing, ok := nearestStructuralSwing(ctx.Snapshot.ITF.Swings, zone, dir); ok {
			if dir == types.Bullish {
				sl = swing - buf
			} else {
				sl = swing + buf
			}
		} else {
			if dir == types.Bullish {
				sl = zone.ZoneLow - buf
			} else {
				sl = zone.ZoneHigh + buf
			}
		}
	}

	risk := entry - sl
	if risk < 0 {
		risk = -risk
	}
	if dir == types.Bullish && sl >= entry {
		return 0, false
	}
	if dir == types.Bearish && sl <= entry {
		return 0, false
	}
	if minDist > 0 && risk < minDist {
		return 0, false
	}
	if entry != 0 && risk > maxPct*entry {
		return 0, false
	}
	return sl, true
}

// nearestStructuralSwing returns, for buys, the highest M15 swing-low
// below zone.ZoneLow; for sells, the lowest M15 swing-high above zone.ZoneHigh.
func nearestStructuralSwing(swings []types.Swing, zone types.SetupZone, dir types.Direction) (float64, bool) {
	found := false
	var best float64
	for _, s := range swings {
		if dir == types.Bullish {
			if s.Kind != types.SwingLow || s.Price >= zone.ZoneLow {
				continue
			}
			if !found || s.Price > best {
				best, found = s.Price, true
			}
		} else {
			if s.Kind != types.SwingHigh || s.Price <= zone.ZoneHigh {
				continue
			}
			if !found || s.Price < best {
				best, found = s.Price, true
			}
		}
	}
	return best, found
}

// selectOrderKind implements spec §4.8 step 7: compares entry to the
// current market price within a small epsilon band to decide between a
// resting limit/stop order and an immediate market order.
func selectOrderKind(dir types.Direction, entry, bid, ask, epsilonFrac float64) types.OrderKind {
	if epsilonFrac <= 0 {
		epsilonFrac = 0.0005
	}
	mid := (bid + ask) / 2
	if mid == 0 {
		mid = entry
	}
	eps := epsilonFrac * mid

	if dir == types.Bullish {
		switch {
		case entry < bid-eps:
			return types.OrderBuyLimit
		case entry > ask+eps:
			return types.OrderBuyStop
		default:
			return types.OrderMarket
		}
	}
	switch {
	case entry > ask+eps:
		return types.OrderSellLimit
	case entry < bid-eps:
		return types.OrderSellStop
	default:
		return types.OrderMarket
	}
}

func confluenceScore(ctx EvalContext, zone types.SetupZone, dir types.Direction, hasRefinedOB bool) int {
	score := 0
	const weight = 100 / 10
	if ctx.Snapshot.HTF.Bias.Bias != types.BiasUnknown {
		score += weight
	}
	pd := ctx.Snapshot.HTF.PD
	if (dir == types.Bullish && pd == types.Discount) || (dir == types.Bearish && pd == types.Premium) {
		score += weight
	}
	if ctx.Snapshot.ITF.Bias.Bias == ctx.Snapshot.HTF.Bias.Bias {
		score += weight
	}
	if len(ctx.Snapshot.ITF.Displacements) > 0 {
		score += weight
	}
	if len(ctx.Snapshot.ITF.Sweeps) > 0 {
		score += weight
	}
	if zone.Source == types.SourceFVG || zone.Source == types.SourceFVGAndOB {
		score += weight
	}
	if zone.Source == types.SourceOB || zone.Source == types.SourceFVGAndOB {
		score += weight
	}
	if hasRefinedOB {
		score += weight
	}
	score += weight // session/spread checks deferred to C9; strategy assumes valid here
	score += weight
	if score > 100 {
		score = 100
	}
	return score
}
