// Package structure implements C4: break-of-structure (BOS) and
// change-of-character (CHoCH) detection driven by an anchor-swing bias
// state machine (spec §4.4). The engine never repaints: once a swing is
// broken it stays broken, and the emitted event stream for a given input
// prefix is a stable prefix of the stream for any longer extension of the
// same candles.
package structure

import (
	"github.com/evdnx/ictengine/types"
)

// Engine advances a single (symbol, timeframe) bias state machine in
// strictly ascending time order. It is not safe for concurrent use; the
// scheduler serializes access per spec §5.
type Engine struct {
	strictClose bool
	state       types.BiasState

	unbrokenHighs []types.Swing
	unbrokenLows  []types.Swing
	pending       *pendingBreak
}

type pendingBreak struct {
	swing       types.Swing
	direction   types.Direction
	candleIndex int
}

// New creates a fresh Engine. strictClose selects the BOS confirmation
// mode (spec §4.4 step 2; USE_STRICT_CLOSE toggle).
func New(strictClose bool) *Engine {
	return &Engine{strictClose: strictClose, state: types.BiasState{Bias: types.BiasUnknown}}
}

// Bias returns the engine's current bias state.
func (e *Engine) Bias() types.BiasState { return e.state }

// Reset clears all state, used at scheduler run() entry (spec §4.10).
func (e *Engine) Reset() {
	e.state = types.BiasState{Bias: types.BiasUnknown}
	e.unbrokenHighs = nil
	e.unbrokenLows = nil
	e.pending = nil
}

// Process advances the engine over candles starting at fromCandleIndex
// (inclusive) and returns every BOS/CHoCH event produced. swings must be
// sorted ascending by Index. Each call admits, as c advances, every swing
// with Index < c into the unbroken sets, starting again from the first
// swing; it does not record which swings an earlier call admitted or
// broke, so a second call on the same Engine admits them again (mtf.Build
// makes one call per fresh Engine).
func (e *Engine) Process(candles []types.Candle, swings []types.Swing, fromCandleIndex int) []types.StructureEvent {
	var events []types.StructureEvent
	swingIdx := 0
	// Admit swings with Index < c as c advances.
	for c := fromCandleIndex; c < len(candles); c++ {
		for swingIdx < len(swings) && swings[swingIdx].Index < c {
			e.admit(swings[swingIdx])
			swingIdx++
		}
		if ev, ok := e.processCandle(candles, c); ok {
			events = append(events, ev)
		}
	}
	return events
}

func (e *Engine) admit(s types.Swing) {
	sw := s
	switch sw.Kind {
	case types.SwingHigh:
		e.unbrokenHighs = append(e.unbrokenHighs, sw)
	case types.SwingLow:
		e.unbrokenLows = append(e.unbrokenLows, sw)
	}
}

// processCandle evaluates candle index c for a BOS/CHoCH, applying at most
// one event per candle (spec §4.4 dedupe rule).
func (e *Engine) processCandle(candles []types.Candle, c int) (types.StructureEvent, bool) {
	candle := candles[c]

	if e.pending != nil && c == e.pending.candleIndex+1 {
		p := e.pending
		e.pending = nil
		if confirmsBreak(candle, p.swing, p.direction) {
			return e.fireBOS(candles, p.swing, p.direction, c)
		}
		// Wick break not confirmed by the following close: the swing stays
		// unbroken and is eligible again on a later candle.
	}

	if bullHigh, ok := e.mostRecentUnbroken(types.SwingHigh); ok {
		if e.strictClose {
			if candle.Close > bullHigh.Price {
				return e.fireBOS(candles, bullHigh, types.Bullish, c)
			}
		} else if candle.High > bullHigh.Price {
			if candle.Close > bullHigh.Price {
				return e.fireBOS(candles, bullHigh, types.Bullish, c)
			}
			e.pending = &pendingBreak{swing: bullHigh, direction: types.Bullish, candleIndex: c}
			return types.StructureEvent{}, false
		}
	}
	if bearLow, ok := e.mostRecentUnbroken(types.SwingLow); ok {
		if e.strictClose {
			if candle.Close < bearLow.Price {
				return e.fireBOS(candles, bearLow, types.Bearish, c)
			}
		} else if candle.Low < bearLow.Price {
			if candle.Close < bearLow.Price {
				return e.fireBOS(candles, bearLow, types.Bearish, c)
			}
			e.pending = &pendingBreak{swing: bearLow, direction: types.Bearish, candleIndex: c}
			return types.StructureEvent{}, false
		}
	}
	return types.StructureEvent{}, false
}

func confirmsBreak(candle types.Candle, swing types.Swing, dir types.Direction) bool {
	if dir == types.Bullish {
		return candle.Close > swing.Price
	}
	return candle.Close < swing.Price
}

// mostRecentUnbroken returns the most-recent (highest index) unbroken swing
// of the given kind, per spec §4.4's "most-recent unbroken opposite-type
// swing" tie-break.
func (e *Engine) mostRecentUnbroken(kind types.SwingKind) (types.Swing, bool) {
	var set []types.Swing
	if kind == types.SwingHigh {
		set = e.unbrokenHighs
	} else {
		set = e.unbrokenLows
	}
	if len(set) == 0 {
		return types.Swing{}, false
	}
	best := set[0]
	for _, s := range set[1:] {
		if s.Index > best.Index {
			best = s
		}
	}
	return best, true
}

func (e *Engine) markBroken(s types.Swing) {
	if s.Kind == types.SwingHigh {
		e.unbrokenHighs = removeSwing(e.unbrokenHighs, s)
	} else {
		e.unbrokenLows = removeSwing(e.unbrokenLows, s)
	}
}

func removeSwing(set []types.Swing, s types.Swing) []types.Swing {
	out := set[:0]
	for _, v := range set {
		if v.Index == s.Index && v.Kind == s.Kind {
			continue
		}
		out = append(out, v)
	}
	return out
}

// fireBOS applies the BOS/CHoCH and bias-transition rules of spec §4.4
// steps 2-6 and returns the resulting event.
func (e *Engine) fireBOS(candles []types.Candle, broken types.Swing, dir types.Direction, candleIndex int) (types.StructureEvent, bool) {
	e.markBroken(broken)
	candle := candles[candleIndex]

	kind := types.BOS
	isChoch := e.state.Bias != types.BiasUnknown &&
		e.oppositeOfBias(dir) &&
		e.state.AnchorSwing != nil &&
		e.state.AnchorSwing.Index == broken.Index &&
		e.state.AnchorSwing.Kind == broken.Kind

	switch {
	case isChoch:
		kind = types.CHoCH
		e.flipBias(dir, candles, candleIndex)
	case e.state.Bias == types.BiasUnknown:
		e.state.Bias = biasFor(dir)
		e.state.AnchorSwing = e.mostRecentAnchorCandidate(dir, candles, candleIndex)
	case e.sameBiasPolarity(dir):
		e.state.AnchorSwing = e.mostRecentAnchorCandidate(dir, candles, candleIndex)
	default:
		// Opposite-direction BOS while bias is defined, but it did not
		// break the current anchor: bias holds, anchor is untouched.
	}

	return types.StructureEvent{
		Kind:             kind,
		Direction:        dir,
		BrokenSwingIndex: broken.Index,
		CandleIndex:      candleIndex,
		Timestamp:        candle.Timestamp,
	}, true
}

func biasFor(dir types.Direction) types.Bias {
	if dir == types.Bullish {
		return types.BiasBullish
	}
	return types.BiasBearish
}

func (e *Engine) oppositeOfBias(dir types.Direction) bool {
	return (e.state.Bias == types.BiasBullish && dir == types.Bearish) ||
		(e.state.Bias == types.BiasBearish && dir == types.Bullish)
}

func (e *Engine) sameBiasPolarity(dir types.Direction) bool {
	return (e.state.Bias == types.BiasBullish && dir == types.Bullish) ||
		(e.state.Bias == types.BiasBearish && dir == types.Bearish)
}

func (e *Engine) flipBias(newDir types.Direction, candles []types.Candle, candleIndex int) {
	e.state.Bias = biasFor(newDir)
	e.state.AnchorSwing = e.mostRecentAnchorCandidate(newDir, candles, candleIndex)
}

// mostRecentAnchorCandidate returns the most-recent higher-low (for a
// bullish bias) or lower-high (for a bearish bias) among swings already
// admitted, at or before candleIndex. Returns nil if none exists yet —
// callers must tolerate a nil anchor until one is confirmed (spec §4.4
// step 6 "delay anchor assignment").
func (e *Engine) mostRecentAnchorCandidate(dir types.Direction, candles []types.Candle, candleIndex int) *types.Swing {
	var set []types.Swing
	if dir == types.Bullish {
		set = e.unbrokenLows // anchor for bullish bias is a low (HL)
	} else {
		set = e.unbrokenHighs // anchor for bearish bias is a high (LH)
	}
	var best *types.Swing
	for i := range set {
		s := set[i]
		if s.Index >= candleIndex {
			continue
		}
		if best == nil || s.Index > best.Index {
			sc := s
			best = &sc
		}
	}
	return best
}
