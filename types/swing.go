package types

import "time"

// SwingKind distinguishes a structural high from a structural low.
type SwingKind string

const (
	SwingHigh SwingKind = "high"
	SwingLow  SwingKind = "low"
)

// Swing is a confirmed structural pivot. Index is the position of the
// pivot candle within the underlying per-(symbol,timeframe) sequence that
// produced it (not an absolute offset into a bounded, evicting buffer —
// callers must translate to the buffer's current relative window).
type Swing struct {
	Index     int
	Timestamp time.Time
	Price     float64
	Kind      SwingKind
	Strength  int // pivot width (pivotLeft == pivotRight) that confirmed it
	Rolling   bool
}

// BOSKind distinguishes an ordinary break of structure from a change of
// character.
type BOSKind string

const (
	BOS   BOSKind = "bos"
	CHoCH BOSKind = "choch"
)

// StructureEvent is a confirmed BOS or CHoCH.
type StructureEvent struct {
	Kind             BOSKind
	Direction        Direction
	BrokenSwingIndex int
	CandleIndex      int
	Timestamp        time.Time
}

// BiasState is the per-(symbol,timeframe) structural bias state machine
// described in spec §3/§4.4. AnchorSwing is nil until one is assigned.
type BiasState struct {
	Bias        Bias
	AnchorSwing *Swing
}
