package types

// OrderKind is the execution style selected for a proposal (spec §4.8 step
// 7).
type OrderKind string

const (
	OrderMarket    OrderKind = "market"
	OrderBuyLimit  OrderKind = "buy_limit"
	OrderSellLimit OrderKind = "sell_limit"
	OrderBuyStop   OrderKind = "buy_stop"
	OrderSellStop  OrderKind = "sell_stop"
)

// TradeProposal is the strategy layer's output for a single evaluation
// tick. It is immutable once constructed; the execution filter never
// mutates it, only wraps it in a Decision.
type TradeProposal struct {
	Symbol          string
	Direction       Direction
	Entry           float64
	StopLoss        float64
	TakeProfit      float64
	OrderKind       OrderKind
	ConfluenceScore int // 0..100
	ReasonCodes     []ReasonCode

	// HTFTrend and PDPosition are the HTF trend/premium-discount reading the
	// proposal was built against, carried through so the execution filter
	// can independently re-check them (spec §4.9 items 3 and 5) without
	// reaching back into the mtf.Snapshot.
	HTFTrend   Trend
	PDPosition PDPosition

	// HasBOS, HasSweep, HasDisplacement and HasFVG record which structural
	// elements were actually present when the proposal was built, so the
	// execution filter's StructuralConfirm/FVGPresent gates (spec §4.9
	// items 4 and 6) check real presence rather than re-deriving it from
	// the confluence score.
	HasBOS          bool
	HasSweep        bool
	HasDisplacement bool
	HasFVG          bool
}

// RiskDistance returns |entry - stopLoss|.
func (p TradeProposal) RiskDistance() float64 {
	d := p.Entry - p.StopLoss
	if d < 0 {
		return -d
	}
	return d
}

// RewardDistance returns |entry - takeProfit|.
func (p TradeProposal) RewardDistance() float64 {
	d := p.TakeProfit - p.Entry
	if d < 0 {
		return -d
	}
	return d
}

// Valid checks the proposal invariants from spec §3/§8: SL on the risk
// side, TP on the reward side, nonzero risk, and reward multiple within
// tolerance of want.
func (p TradeProposal) Valid(wantRewardMultiple, tol float64) bool {
	switch p.Direction {
	case Bullish:
		if !(p.StopLoss < p.Entry && p.Entry < p.TakeProfit) {
			return false
		}
	case Bearish:
		if !(p.TakeProfit < p.Entry && p.Entry < p.StopLoss) {
			return false
		}
	default:
		return false
	}
	risk := p.RiskDistance()
	if risk <= 0 {
		return false
	}
	ratio := p.RewardDistance() / risk
	diff := ratio - wantRewardMultiple
	if diff < 0 {
		diff = -diff
	}
	return diff <= tol
}
