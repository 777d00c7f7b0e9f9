// Package risk sizes positions for a risk-percent-of-equity trade (spec
// §4.9 gate 13 / §6 "risk per trade %"), adapted from the teacher's
// fixed-2-decimal CalcQty into a symbol-aware sizer: the broker's lot step
// and minimum size differ per instrument, so the rounding rule is now a
// parameter instead of a hardcoded 2dp.
package risk

import "math"

// SizingRule carries the broker-side lot constraints for one symbol (spec
// §6 SymbolRule fields LotStepSize/LotPrecision/MinLotSize). A zero-value
// SizingRule disables every constraint: no step snapping, no precision
// truncation, no minimum-size rejection.
type SizingRule struct {
	StepSize  float64 // smallest lot increment the broker accepts, 0 disables snapping
	Precision int     // decimal places to truncate to after snapping, <=0 disables truncation
	MinQty    float64 // lots below this are rejected outright
}

// CalcQty returns the lot size for a trade risking equity*riskPct, with a
// stop-loss riskFrac of price away from entry: dollar risk divided by
// stop-loss distance in price terms, snapped down to the sizing rule's lot
// step and precision, then floored to zero if the result is below the
// symbol's minimum tradable size.
func CalcQty(equity, riskPct, riskFrac, price float64, sizing SizingRule) float64 {
	riskAmt := equity * riskPct
	slDist := price * riskFrac
	if slDist == 0 {
		return 0
	}
	qty := riskAmt / slDist

	if sizing.StepSize > 0 {
		qty = math.Floor(qty/sizing.StepSize) * sizing.StepSize
	}
	if sizing.Precision > 0 {
		scale := math.Pow(10, float64(sizing.Precision))
		qty = math.Floor(qty*scale) / scale
	}
	if qty < sizing.MinQty {
		return 0
	}
	return qty
}

// AdjustForGuardMode halves the configured risk-per-trade percentage under
// a "reduced" news-guardrail verdict (spec §6 open question: reduced mode
// shrinks position size rather than blocking outright). Centralizing this
// here keeps the replay and live drivers from each hardcoding the same
// halving rule.
func AdjustForGuardMode(riskPct float64, reduced bool) float64 {
	if reduced {
		return riskPct / 2
	}
	return riskPct
}
