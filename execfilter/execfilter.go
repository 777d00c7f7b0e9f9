// Package execfilter implements C9: the ordered, short-circuiting
// 14-gate execution filter of spec §4.9. Every gate is a pure function of
// an ExecutionContext; the chain stops submitting a Trade at the first
// failing gate but keeps evaluating every remaining gate so Decision.Skip
// carries every applicable reason, not just the first (spec §4.9: "first
// failure produces Skip(reasonCodes) but continues collecting reasons for
// observability").
package execfilter

import (
	"time"

	"github.com/evdnx/ictengine/config"
	"github.com/evdnx/ictengine/types"
)

// RecentDecision is the minimal shape the Frequency/cooldown gate needs
// from the decision history.
type RecentDecision struct {
	Symbol    string
	Timestamp time.Time
	WasTrade  bool
}

// ExecutionContext bundles everything a gate needs (spec §4.9): current
// time, recent prices/spread, today's realized PnL, open positions, recent
// decisions, the symbol's configured rules, and the proposal under review.
type ExecutionContext struct {
	Now              time.Time
	Symbol           string
	Spread           float64
	TodayHigh        float64
	TodayLow         float64
	TodayRealizedPnL float64
	OpenPositions    []types.Position
	RecentDecisions  []RecentDecision
	Rule             config.SymbolRule
	GlobalMaxConcurrent int
	GlobalMaxExposure   float64
	Proposal         types.TradeProposal

	// HTFTrend and PDPosition are the HTF trend/premium-discount reading at
	// evaluation time (spec §4.9 items 3 and 5), populated by the caller
	// from the same mtf.Snapshot the proposal was built against.
	HTFTrend   types.Trend
	PDPosition types.PDPosition
}

// gate is one named pure check. ok=false means the gate failed; reason is
// only read when ok is false.
type gate struct {
	name string
	run  func(ctx ExecutionContext) (ok bool, reason types.ReasonCode)
}

// Evaluate runs all 14 gates in spec order, returning Trade(proposal) only
// if every gate passes, else Skip with every failing gate's reason.
func Evaluate(ctx ExecutionContext) types.Decision {
	var reasons []types.ReasonCode
	for _, g := range gates() {
		if ok, reason := g.run(ctx); !ok {
			reasons = append(reasons, reason)
		}
	}
	if len(reasons) > 0 {
		return types.Skip(ctx.Symbol, ctx.Now, reasons...)
	}
	return types.Trade(ctx.Symbol, ctx.Now, ctx.Proposal)
}

func gates() []gate {
	return []gate{
		{"symbol_enabled", gateSymbolEnabled},
		{"direction_allowed", gateDirectionAllowed},
		{"htf_alignment", gateHTFAlignment},
		{"structural_confirm", gateStructuralConfirm},
		{"premium_discount", gatePremiumDiscount},
		{"fvg_present", gateFVGPresent},
		{"session_window", gateSessionWindow},
		{"spread_check", gateSpreadCheck},
		{"distance_from_extremes", gateDistanceFromExtremes},
		{"frequency", gateFrequency},
		{"concurrency", gateConcurrency},
		{"global_concurrency", gateGlobalConcurrency},
		{"exposure_risk", gateExposureRisk},
		{"confluence_score", gateConfluenceScore},
	}
}

// 1. SymbolEnabled.
func gateSymbolEnabled(ctx ExecutionContext) (bool, types.ReasonCode) {
	if !ctx.Rule.Enabled {
		return false, types.ReasonSymbolDisabled
	}
	return true, types.ReasonCode{}
}

// 2. DirectionAllowed.
func gateDirectionAllowed(ctx ExecutionContext) (bool, types.ReasonCode) {
	if len(ctx.Rule.AllowedDirections) == 0 {
		return true, types.ReasonCode{}
	}
	for _, d := range ctx.Rule.AllowedDirections {
		if d == ctx.Proposal.Direction {
			return true, types.ReasonCode{}
		}
	}
	return false, types.ReasonDirectionBlocked
}

// 3. HTFAlignment — reject if the HTF trend observed at evaluation time is
// not in the symbol's allowed set (spec §4.9 item 3). An empty allow-list
// disables the gate.
func gateHTFAlignment(ctx ExecutionContext) (bool, types.ReasonCode) {
	if len(ctx.Rule.AllowedHTFTrends) == 0 {
		return true, types.ReasonCode{}
	}
	for _, t := range ctx.Rule.AllowedHTFTrends {
		if t == ctx.HTFTrend {
			return true, types.ReasonCode{}
		}
	}
	return false, types.ReasonHTFAlignment
}

// 4. StructuralConfirm — each required structural element (BOS, sweep,
// displacement) is checked independently against what the proposal's
// setup actually contained, not re-derived from the confluence score.
func gateStructuralConfirm(ctx ExecutionContext) (bool, types.ReasonCode) {
	if ctx.Rule.RequireBOS && !ctx.Proposal.HasBOS {
		return false, types.ReasonStructuralConfirm
	}
	if ctx.Rule.RequireSweep && !ctx.Proposal.HasSweep {
		return false, types.ReasonStructuralConfirm
	}
	if ctx.Rule.RequireDisplacement && !ctx.Proposal.HasDisplacement {
		return false, types.ReasonStructuralConfirm
	}
	return true, types.ReasonCode{}
}

// 5. PremiumDiscount — buys must set up in discount, sells in premium
// (spec §4.9 item 5), checked against the PD reading the proposal carries.
func gatePremiumDiscount(ctx ExecutionContext) (bool, types.ReasonCode) {
	if !ctx.Rule.EnforcePremiumDiscount {
		return true, types.ReasonCode{}
	}
	switch ctx.Proposal.Direction {
	case types.Bullish:
		if ctx.PDPosition != types.Discount {
			return false, types.ReasonPremiumDiscount
		}
	case types.Bearish:
		if ctx.PDPosition != types.Premium {
			return false, types.ReasonPremiumDiscount
		}
	}
	return true, types.ReasonCode{}
}

// 6. FVGPresent — a fair value gap must actually be present in the
// proposal's setup, not merely implied by a sufficient confluence score.
func gateFVGPresent(ctx ExecutionContext) (bool, types.ReasonCode) {
	if !ctx.Rule.RequireFVG {
		return true, types.ReasonCode{}
	}
	if !ctx.Proposal.HasFVG {
		return false, types.ReasonFVGRequired
	}
	return true, types.ReasonCode{}
}

// 7. SessionWindow — current time must fall in at least one configured
// window; an empty window list disables the gate.
func gateSessionWindow(ctx ExecutionContext) (bool, types.ReasonCode) {
	if len(ctx.Rule.Sessions) == 0 {
		return true, types.ReasonCode{}
	}
	minuteOfDay := ctx.Now.UTC().Hour()*60 + ctx.Now.UTC().Minute()
	for _, w := range ctx.Rule.Sessions {
		if w.Contains(minuteOfDay) {
			return true, types.ReasonCode{}
		}
	}
	return false, types.ReasonSessionWindow
}

// 8. SpreadCheck.
func gateSpreadCheck(ctx ExecutionContext) (bool, types.ReasonCode) {
	if ctx.Rule.MaxSpread <= 0 {
		return true, types.ReasonCode{}
	}
	if ctx.Spread > ctx.Rule.MaxSpread {
		return false, types.ReasonSpreadExceeded(ctx.Spread, ctx.Rule.MaxSpread)
	}
	return true, types.ReasonCode{}
}

// 9. DistanceFromDailyExtremes — entry sufficiently far from today's
// high/low, buffered by Rule.DailyExtremeBuffer.
func gateDistanceFromExtremes(ctx ExecutionContext) (bool, types.ReasonCode) {
	if ctx.Rule.DailyExtremeBuffer <= 0 {
		return true, types.ReasonCode{}
	}
	distHigh := ctx.TodayHigh - ctx.Proposal.Entry
	if distHigh < 0 {
		distHigh = -distHigh
	}
	distLow := ctx.Proposal.Entry - ctx.TodayLow
	if distLow < 0 {
		distLow = -distLow
	}
	minDist := distHigh
	if distLow < minDist {
		minDist = distLow
	}
	if minDist < ctx.Rule.DailyExtremeBuffer {
		return false, types.ReasonDistanceFromExtremes(minDist, ctx.Rule.DailyExtremeBuffer)
	}
	return true, types.ReasonCode{}
}

// 10. Frequency — trades-today for symbol below daily cap; minutes since
// last trade at or above cooldown.
func gateFrequency(ctx ExecutionContext) (bool, types.ReasonCode) {
	tradesToday := 0
	var lastTradeAt time.Time
	for _, d := range ctx.RecentDecisions {
		if d.Symbol != ctx.Symbol || !d.WasTrade {
			continue
		}
		if sameUTCDay(d.Timestamp, ctx.Now) {
			tradesToday++
		}
		if d.Timestamp.After(lastTradeAt) {
			lastTradeAt = d.Timestamp
		}
	}
	if ctx.Rule.MaxTradesPerDay > 0 && tradesToday >= ctx.Rule.MaxTradesPerDay {
		return false, types.ReasonDailyCap
	}
	if ctx.Rule.CooldownMinutes > 0 && !lastTradeAt.IsZero() {
		elapsed := ctx.Now.Sub(lastTradeAt).Minutes()
		if elapsed < float64(ctx.Rule.CooldownMinutes) {
			return false, types.ReasonCooldown
		}
	}
	return true, types.ReasonCode{}
}

func sameUTCDay(a, b time.Time) bool {
	a, b = a.UTC(), b.UTC()
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// 11. Concurrency — open trades for (symbol) and (symbol, direction)
// below caps.
func gateConcurrency(ctx ExecutionContext) (bool, types.ReasonCode) {
	symbolCount, dirCount := 0, 0
	for _, pos := range ctx.OpenPositions {
		if pos.Symbol != ctx.Symbol || !pos.Open() {
			continue
		}
		symbolCount++
		if pos.Direction == ctx.Proposal.Direction {
			dirCount++
		}
	}
	if ctx.Rule.MaxConcurrentSymbol > 0 && symbolCount >= ctx.Rule.MaxConcurrentSymbol {
		return false, types.ReasonConcurrencySymbol
	}
	if ctx.Rule.MaxConcurrentPerDir > 0 && dirCount >= ctx.Rule.MaxConcurrentPerDir {
		return false, types.ReasonConcurrencyDir
	}
	return true, types.ReasonCode{}
}

// 12. GlobalConcurrency — open trades across all symbols below the global
// cap.
func gateGlobalConcurrency(ctx ExecutionContext) (bool, types.ReasonCode) {
	if ctx.GlobalMaxConcurrent <= 0 {
		return true, types.ReasonCode{}
	}
	total := 0
	for _, pos := range ctx.OpenPositions {
		if pos.Open() {
			total++
		}
	}
	if total >= ctx.GlobalMaxConcurrent {
		return false, types.ReasonConcurrencyGlobal
	}
	return true, types.ReasonCode{}
}

// 13. ExposureRisk — sum of estimated per-trade risk across all open
// positions plus the candidate proposal, checked against the global cap
// ctx.GlobalMaxExposure (0 disables the gate). There is no per-symbol
// exposure cap. An open position's risk is lots * |entry - stopLoss| *
// contract_value; the candidate's lots are not known at this gate, so its
// risk is |entry - stopLoss| * contract_value (one lot).
func gateExposureRisk(ctx ExecutionContext) (bool, types.ReasonCode) {
	if ctx.GlobalMaxExposure <= 0 {
		return true, types.ReasonCode{}
	}
	total := 0.0
	for _, pos := range ctx.OpenPositions {
		if !pos.Open() {
			continue
		}
		dist := pos.Entry - pos.SL
		if dist < 0 {
			dist = -dist
		}
		total += pos.Lots * dist * ctx.Rule.ContractValue
	}
	candidateRisk := ctx.Proposal.RiskDistance() * ctx.Rule.ContractValue
	total += candidateRisk
	if total > ctx.GlobalMaxExposure {
		return false, types.ReasonExposureRisk(total, ctx.GlobalMaxExposure)
	}
	return true, types.ReasonCode{}
}

// 14. ConfluenceScore — score >= configured minimum.
func gateConfluenceScore(ctx ExecutionContext) (bool, types.ReasonCode) {
	if ctx.Proposal.ConfluenceScore < ctx.Rule.MinConfluence {
		return false, types.ReasonConfluenceTooLow(float64(ctx.Proposal.ConfluenceScore), float64(ctx.Rule.MinConfluence))
	}
	return true, types.ReasonCode{}
}
