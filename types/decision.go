package types

import "time"

// DecisionKind tags the Decision union (spec §3 "Decision").
type DecisionKind string

const (
	DecisionTrade    DecisionKind = "trade"
	DecisionSkip     DecisionKind = "skip"
	DecisionNoSignal DecisionKind = "no_signal"
)

// Decision is a tagged union: exactly one of Proposal (for Trade) is set;
// Skip and NoSignal carry reason codes instead. Every evaluation tick
// produces exactly one Decision.
type Decision struct {
	Kind        DecisionKind
	Symbol      string
	Timestamp   time.Time
	Proposal    *TradeProposal
	ReasonCodes []ReasonCode
}

// Trade constructs a Trade decision.
func Trade(symbol string, ts time.Time, p TradeProposal) Decision {
	return Decision{Kind: DecisionTrade, Symbol: symbol, Timestamp: ts, Proposal: &p}
}

// Skip constructs a Skip decision with one or more reasons.
func Skip(symbol string, ts time.Time, reasons ...ReasonCode) Decision {
	return Decision{Kind: DecisionSkip, Symbol: symbol, Timestamp: ts, ReasonCodes: reasons}
}

// NoSignal constructs a NoSignal decision with a single reason.
func NoSignal(symbol string, ts time.Time, reason ReasonCode) Decision {
	return Decision{Kind: DecisionNoSignal, Symbol: symbol, Timestamp: ts, ReasonCodes: []ReasonCode{reason}}
}
