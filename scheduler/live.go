package scheduler

import (
	"context"
	"fmt"
	"math"

	"github.com/evdnx/ictengine/aggregator"
	"github.com/evdnx/ictengine/broker"
	"github.com/evdnx/ictengine/candlestore"
	"github.com/evdnx/ictengine/config"
	"github.com/evdnx/ictengine/execfilter"
	"github.com/evdnx/ictengine/logger"
	"github.com/evdnx/ictengine/metrics"
	"github.com/evdnx/ictengine/mtf"
	"github.com/evdnx/ictengine/newsguard"
	"github.com/evdnx/ictengine/persistence"
	"github.com/evdnx/ictengine/risk"
	"github.com/evdnx/ictengine/strategy"
	"github.com/evdnx/ictengine/types"
)

// LiveDriver is the thin live-mode counterpart of Replay (spec §4.10:
// "not the hard part; specified only for contract parity"). It shares the
// same C7->C8->C9 evaluation as Replay but, instead of a simulated broker,
// forwards Trade decisions to a real broker.Adapter and sources open
// positions from it rather than from in-memory fill bookkeeping. Unlike
// Replay it is not single-use: OnCandleClose is called once per M1 close
// of a subscribed symbol for the life of the process.
type LiveDriver struct {
	Config      config.Config
	NewStrategy StrategyFactory
	StrategyTag string
	Guard       newsguard.Guard
	Adapter     broker.Adapter
	Sink        persistence.DecisionSink
	Log         logger.Logger

	store      *candlestore.Store
	agg        *aggregator.Aggregator
	strategies map[string]strategy.Strategy
	extremes   *dailyExtremes
	recent     []execfilter.RecentDecision
}

// NewLiveDriver constructs a LiveDriver with its own candle store and
// aggregator, isolated from any other scheduler instance (spec §5: "owned
// by exactly one scheduler instance"). guard may be nil, wrapped the same
// fail-safe way as Replay. adapter may be nil, defaulting to broker.Disabled
// so a misconfigured live driver fails closed on every order rather than
// panicking.
func NewLiveDriver(cfg config.Config, newStrategy StrategyFactory, guard newsguard.Guard, adapter broker.Adapter, sink persistence.DecisionSink, log logger.Logger) *LiveDriver {
	tag := "legacy"
	if cfg.RequireICTPipeline {
		tag = "ict"
	}
	if sink == nil {
		sink = persistence.NullSink{}
	}
	if adapter == nil {
		adapter = broker.NewDisabled()
	}
	store := candlestore.New(cfg.Analytics.CandleBufferSize)
	return &LiveDriver{
		Config:      cfg,
		NewStrategy: newStrategy,
		StrategyTag: tag,
		Guard:       newsguard.NewFailSafe(guard, log),
		Adapter:     adapter,
		Sink:        sink,
		Log:         log,
		store:       store,
		agg:         aggregator.New(store, []types.Timeframe{types.M15, types.H4}),
		strategies:  make(map[string]strategy.Strategy),
		extremes:    newDailyExtremes(),
	}
}

// OnCandleClose processes one M1 close for symbol (spec §4.10 live mode:
// "on each M1 close of each subscribed symbol, invoke C7->C8->C9; on
// Trade, forward to broker adapter").
func (l *LiveDriver) OnCandleClose(ctx context.Context, symbol string, c types.Candle) (types.Decision, error) {
	rule := l.Config.SymbolRuleFor(symbol)

	strat, ok := l.strategies[symbol]
	if !ok {
		s, err := l.NewStrategy(symbol)
		if err != nil {
			return types.Decision{}, fmt.Errorf("live: build strategy for %s: %w", symbol, err)
		}
		strat = s
		l.strategies[symbol] = strat
	}

	if err := l.agg.OnM1(symbol, c); err != nil {
		return types.Decision{}, fmt.Errorf("live: invariant violation in aggregator for %s: %w", symbol, err)
	}
	if err := l.store.Append(symbol, types.M1, c); err != nil {
		return types.Decision{}, fmt.Errorf("live: invariant violation appending M1 for %s: %w", symbol, err)
	}
	if ta, ok := strat.(strategy.TimeAware); ok {
		ta.SetNow(c.Timestamp)
	}
	if feeder, ok := strat.(Feeder); ok {
		if err := feeder.Feed(c); err != nil && l.Log != nil {
			l.Log.Warn("strategy feed failed", logger.String("symbol", symbol), logger.Err(err))
		}
	}

	high, low := l.extremes.update(symbol, c)

	positions, err := l.Adapter.ListOpenPositions(ctx)
	if err != nil {
		if l.Log != nil {
			l.Log.Warn("broker unreachable listing positions, proceeding with empty set", logger.String("symbol", symbol), logger.Err(err))
		}
		positions = nil
	}

	bid, ask := c.Close, c.Close
	if quote, qErr := l.Adapter.LatestPrice(ctx, symbol); qErr == nil {
		bid, ask = quote.Bid, quote.Ask
	}

	decision, guardMode := l.evaluateLive(ctx, strat, symbol, rule, c, bid, ask, positions, high, low)

	if decision.Kind == types.DecisionTrade {
		if slErr := validSLOrReject(&decision); slErr == nil {
			riskFrac := decision.Proposal.RiskDistance() / decision.Proposal.Entry
			riskPct := risk.AdjustForGuardMode(l.Config.Strategy.RiskPerTradePct, guardMode == newsguard.Reduced)
			sizing := risk.SizingRule{StepSize: rule.LotStepSize, Precision: rule.LotPrecision, MinQty: rule.MinLotSize}
			lots := risk.CalcQty(l.Config.Scheduler.InitialBalance, riskPct, riskFrac, decision.Proposal.Entry, sizing)
			if lots > 0 {
				_, placeErr := l.Adapter.PlaceOrder(ctx, broker.OrderRequest{
					Symbol:     symbol,
					Direction:  decision.Proposal.Direction,
					Lots:       lots,
					Entry:      decision.Proposal.Entry,
					StopLoss:   decision.Proposal.StopLoss,
					TakeProfit: decision.Proposal.TakeProfit,
					OrderKind:  decision.Proposal.OrderKind,
				})
				if placeErr != nil {
					if l.Log != nil {
						l.Log.Error("broker rejected order", logger.String("symbol", symbol), logger.Err(placeErr))
					}
					// Broker-unreachable: logged as Skip(BROKER_DOWN), never
					// retried silently (spec §7).
					decision = types.Skip(symbol, c.Timestamp, types.ReasonBrokerDown)
				}
			}
		}
	}

	l.recent = append(l.recent, execfilter.RecentDecision{Symbol: symbol, Timestamp: c.Timestamp, WasTrade: decision.Kind == types.DecisionTrade})
	l.Sink.Record(toDecisionRecord(decision))
	metrics.DecisionsTotal.WithLabelValues(string(decision.Kind), symbol).Inc()
	metrics.TicksProcessed.WithLabelValues(symbol).Inc()

	return decision, nil
}

// validSLOrReject enforces spec §6's mandatory-SL contract: "a trade
// request without a finite, correctly-sided sl must be rejected by the
// core before submission." On violation it mutates decision into a Skip
// and returns a non-nil error so the caller skips order submission.
func validSLOrReject(decision *types.Decision) error {
	p := decision.Proposal
	if p == nil || math.IsNaN(p.StopLoss) || math.IsInf(p.StopLoss, 0) {
		*decision = types.Skip(decision.Symbol, decision.Timestamp, types.ReasonInvalidSL)
		return fmt.Errorf("invalid stop loss")
	}
	switch p.Direction {
	case types.Bullish:
		if !(p.StopLoss < p.Entry) {
			*decision = types.Skip(decision.Symbol, decision.Timestamp, types.ReasonInvalidSL)
			return fmt.Errorf("stop loss on wrong side for bullish trade")
		}
	case types.Bearish:
		if !(p.StopLoss > p.Entry) {
			*decision = types.Skip(decision.Symbol, decision.Timestamp, types.ReasonInvalidSL)
			return fmt.Errorf("stop loss on wrong side for bearish trade")
		}
	default:
		*decision = types.Skip(decision.Symbol, decision.Timestamp, types.ReasonInvalidSL)
		return fmt.Errorf("unresolved direction")
	}
	return nil
}

// evaluateLive mirrors Replay.evaluateTick (C7->C8->C9) but reads current
// open positions from the broker adapter instead of a simulated broker,
// and uses the adapter's live bid/ask instead of a flat spread model.
func (l *LiveDriver) evaluateLive(
	ctx context.Context,
	strat strategy.Strategy,
	sym string,
	rule config.SymbolRule,
	c types.Candle,
	bid, ask float64,
	positions []types.Position,
	todayHigh, todayLow float64,
) (types.Decision, newsguard.Mode) {
	a := l.Config.Analytics
	htfCandles := l.store.Latest(sym, types.H4, a.CandleBufferSize)
	itfCandles := l.store.Latest(sym, types.M15, a.CandleBufferSize)
	ltfCandles := l.store.Latest(sym, types.M1, a.CandleBufferSize)

	if len(htfCandles) < a.MinHTFCandles || len(itfCandles) < a.MinITFCandles || len(ltfCandles) < a.MinLTFCandles {
		return types.NoSignal(sym, c.Timestamp, types.ReasonSwingUnderflow), newsguard.Normal
	}

	htfBase, itfBase, ltfBase := paramsFor(a)
	snap := mtf.BuildSnapshot(sym, htfCandles, itfCandles, ltfCandles,
		withSymbolTuning(htfBase, rule), withSymbolTuning(itfBase, rule), withSymbolTuning(ltfBase, rule), c.Close)

	evalCtx := strategy.EvalContext{
		Symbol:       sym,
		Snapshot:     snap,
		SymbolRule:   rule,
		StrategyRule: l.Config.Strategy,
		Analytics:    a,
		CurrentPrice: c.Close,
		Bid:          bid,
		Ask:          ask,
	}
	decision := strat.Evaluate(evalCtx)

	if l.Config.AvoidHTFSideways && snap.HTF.Trend == types.TrendSideways {
		decision = types.NoSignal(sym, c.Timestamp, types.ReasonHTFSideways)
	}

	if decision.Kind != types.DecisionTrade {
		return decision, newsguard.Normal
	}

	verdict, _ := l.Guard.CanTradeNow(ctx, l.StrategyTag)
	if verdict.Mode == newsguard.Blocked {
		return types.Skip(sym, c.Timestamp, types.ReasonGuardrailBlocked), newsguard.Blocked
	}

	effectiveRule := rule
	if l.Config.RelaxedFilters {
		effectiveRule.RequireBOS = false
		effectiveRule.RequireSweep = false
		effectiveRule.RequireDisplacement = false
		effectiveRule.RequireFVG = false
		effectiveRule.EnforcePremiumDiscount = false
		effectiveRule.AllowedHTFTrends = nil
	}

	fc := execfilter.ExecutionContext{
		Now:                 c.Timestamp,
		Symbol:              sym,
		Spread:              ask - bid,
		TodayHigh:           todayHigh,
		TodayLow:            todayLow,
		OpenPositions:       positions,
		RecentDecisions:     l.recent,
		Rule:                effectiveRule,
		GlobalMaxConcurrent: l.Config.Scheduler.GlobalMaxConcurrent,
		GlobalMaxExposure:   l.Config.Scheduler.GlobalMaxExposure,
		Proposal:            *decision.Proposal,
		HTFTrend:            snap.HTF.Trend,
		PDPosition:          snap.HTF.PD,
	}
	filtered := execfilter.Evaluate(fc)
	if filtered.Kind == types.DecisionSkip && verdict.Mode == newsguard.Reduced {
		filtered.ReasonCodes = append(filtered.ReasonCodes, types.ReasonGuardrailReduced)
	}
	return filtered, verdict.Mode
}
