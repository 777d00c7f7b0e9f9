// Package strategy implements C8: signal generation. Two strategies share
// a common interface — strategy.ICTPipeline, the primary structural
// pipeline of spec §4.8, and strategy.LegacyConfluence, an oscillator-based
// strategy kept for REQUIRE_ICT_PIPELINE=false runs, adapted from the
// teacher's goti-driven confluence strategies (TrendComposite et al.) to
// emit a types.Decision instead of submitting orders directly.
package strategy

import (
	"time"

	"github.com/evdnx/ictengine/config"
	"github.com/evdnx/ictengine/mtf"
	"github.com/evdnx/ictengine/types"
)

// EvalContext is everything a Strategy needs to evaluate one LTF candle
// close for one symbol (spec §4.8: "Evaluated on every LTF candle close").
type EvalContext struct {
	Symbol       string
	Snapshot     mtf.Snapshot
	SymbolRule   config.SymbolRule
	StrategyRule config.StrategyRule
	Analytics    config.AnalyticParams

	CurrentPrice float64
	Bid          float64
	Ask          float64
}

// Strategy produces at most one Decision per evaluation tick.
type Strategy interface {
	Evaluate(ctx EvalContext) types.Decision
}

// TimeAware is implemented by strategies whose Decision timestamp is not a
// pure function of EvalContext (both ICTPipeline and LegacyConfluence stamp
// decisions from an internally-held clock rather than reading it off the
// context). The scheduler calls SetNow with the current candle's own
// timestamp before every Evaluate, alongside the Feeder hook, so replayed
// decisions never carry wall-clock time (spec §4.10).
type TimeAware interface {
	SetNow(t time.Time)
}
