package scheduler

import (
	"context"
	"fmt"
	"time"

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

// StrategyFactory builds one Strategy instance per symbol. LegacyConfluence
// is stateful per symbol (its own goti.IndicatorSuite), so the scheduler
// must construct and retain exactly one instance per symbol for the whole
// run, never share one across symbols or rebuild it mid-run.
type StrategyFactory func(symbol string) (strategy.Strategy, error)

// Replay drives the deterministic replay loop of spec §4.10. A Replay
// value is single-use: construct one per run via NewReplay, call Run once.
type Replay struct {
	Symbols     []string
	From, To    time.Time
	Source      persistence.HistoricalSource
	Config      config.Config
	NewStrategy StrategyFactory
	StrategyTag string // "ict" or "legacy", passed to the guardrail query
	Guard       newsguard.Guard
	Sink        persistence.DecisionSink
	Log         logger.Logger
}

// NewReplay constructs a Replay. guard may be nil; a nil guard is wrapped
// in newsguard.NewFailSafe(nil, ...) so every tick fails closed rather than
// silently allowing trades, per spec §6 fail-safe policy. sink may be nil,
// in which case persistence.NullSink discards every record.
func NewReplay(symbols []string, from, to time.Time, source persistence.HistoricalSource, cfg config.Config, newStrategy StrategyFactory, guard newsguard.Guard, sink persistence.DecisionSink, log logger.Logger) *Replay {
	tag := "legacy"
	if cfg.RequireICTPipeline {
		tag = "ict"
	}
	if sink == nil {
		sink = persistence.NullSink{}
	}
	return &Replay{
		Symbols:     symbols,
		From:        from,
		To:          to,
		Source:      source,
		Config:      cfg,
		NewStrategy: newStrategy,
		StrategyTag: tag,
		Guard:       newsguard.NewFailSafe(guard, log),
		Sink:        sink,
		Log:         log,
	}
}

// dailyExtremes tracks the running today-high/today-low per symbol,
// resetting at each UTC midnight boundary (spec §4.9 gate 9).
type dailyExtremes struct {
	day  map[string]time.Time
	high map[string]float64
	low  map[string]float64
}

func newDailyExtremes() *dailyExtremes {
	return &dailyExtremes{day: map[string]time.Time{}, high: map[string]float64{}, low: map[string]float64{}}
}

func (d *dailyExtremes) update(symbol string, c types.Candle) (high, low float64) {
	dayStart := time.Date(c.Timestamp.Year(), c.Timestamp.Month(), c.Timestamp.Day(), 0, 0, 0, 0, time.UTC)
	if existing, ok := d.day[symbol]; !ok || !existing.Equal(dayStart) {
		d.day[symbol] = dayStart
		d.high[symbol] = c.High
		d.low[symbol] = c.Low
	} else {
		if c.High > d.high[symbol] {
			d.high[symbol] = c.High
		}
		if c.Low < d.low[symbol] {
			d.low[symbol] = c.Low
		}
	}
	return d.high[symbol], d.low[symbol]
}

// Run executes the replay. It returns a *Result with whatever was produced
// even when ctx is cancelled mid-run (spec §4.10: "stops at the current
// tick boundary and reports partial results").
func (r *Replay) Run(ctx context.Context) (*Result, error) {
	if len(r.Symbols) == 0 {
		return nil, fmt.Errorf("replay: no symbols configured")
	}
	if err := r.Config.ValidateEngine(); err != nil {
		return nil, fmt.Errorf("replay: invalid config: %w", err)
	}

	bySymbol := make(map[string][]types.Candle, len(r.Symbols))
	for _, sym := range r.Symbols {
		candles, err := r.Source.LoadCandles(ctx, sym, r.From, r.To, types.M1)
		if err != nil {
			return nil, fmt.Errorf("replay: load candles for %s: %w", sym, err)
		}
		bySymbol[sym] = candles
	}
	ticks := mergeGlobalOrder(bySymbol)

	// State isolation (spec §4.10): fresh store/aggregator/broker every run.
	store := candlestore.New(r.Config.Analytics.CandleBufferSize)
	agg := aggregator.New(store, []types.Timeframe{types.M15, types.H4})
	store.Clear("")
	agg.Reset()

	fees := make(map[string]broker.SymbolFees, len(r.Symbols))
	for sym, rule := range r.Config.Symbols {
		fees[sym] = broker.SymbolFees{
			ContractValue: rule.ContractValue,
			Commission:    rule.Commission,
			Swap:          rule.Swap,
			SpreadHalf:    r.Config.Scheduler.DefaultSpreadHalf,
		}
	}
	brk := broker.NewSimulated(r.Config.Scheduler.InitialBalance, fees)

	strategies := make(map[string]strategy.Strategy, len(r.Symbols))
	extremes := newDailyExtremes()
	htfBase, itfBase, ltfBase := paramsFor(r.Config.Analytics)

	var decisions []types.Decision
	var equity []EquitySample
	var closedTrades []types.Position
	lastPrice := make(map[string]float64, len(r.Symbols))
	var recent []execfilter.RecentDecision
	cancelled := false
	tradesOpened, tradesClosed := 0, 0

	for _, tk := range ticks {
		select {
		case <-ctx.Done():
			cancelled = true
		default:
		}
		if cancelled {
			break
		}

		sym, c := tk.symbol, tk.candle
		rule := r.Config.SymbolRuleFor(sym)

		strat, ok := strategies[sym]
		if !ok {
			s, err := r.NewStrategy(sym)
			if err != nil {
				return nil, fmt.Errorf("replay: build strategy for %s: %w", sym, err)
			}
			strat = s
			strategies[sym] = strat
		}

		// Step 1: C2 closes any completed higher-TF bucket BEFORE the M1
		// candle that began it is itself appended (aggregator contract).
		if err := agg.OnM1(sym, c); err != nil {
			return nil, fmt.Errorf("replay: invariant violation in aggregator for %s: %w", sym, err)
		}
		if err := store.Append(sym, types.M1, c); err != nil {
			return nil, fmt.Errorf("replay: invariant violation appending M1 for %s: %w", sym, err)
		}
		if ta, ok := strat.(strategy.TimeAware); ok {
			ta.SetNow(c.Timestamp)
		}
		if feeder, ok := strat.(Feeder); ok {
			if err := feeder.Feed(c); err != nil && r.Log != nil {
				r.Log.Warn("strategy feed failed", logger.String("symbol", sym), logger.Err(err))
			}
		}

		// Step 2: resolve intrabar SL/TP, fill pending orders against this candle.
		fills, closed := brk.ProcessCandle(sym, c)
		tradesOpened += len(fills)
		tradesClosed += len(closed)
		closedTrades = append(closedTrades, closed...)
		lastPrice[sym] = c.Close

		high, low := extremes.update(sym, c)

		decision, guardMode := r.evaluateTick(ctx, strat, sym, rule, c, htfBase, itfBase, ltfBase, store, brk, recent, high, low)

		decisions = append(decisions, decision)
		r.Sink.Record(toDecisionRecord(decision))
		recent = append(recent, execfilter.RecentDecision{Symbol: sym, Timestamp: c.Timestamp, WasTrade: decision.Kind == types.DecisionTrade})
		metrics.DecisionsTotal.WithLabelValues(string(decision.Kind), sym).Inc()
		metrics.TicksProcessed.WithLabelValues(sym).Inc()

		if decision.Kind == types.DecisionTrade {
			p := decision.Proposal
			riskFrac := p.RiskDistance() / p.Entry
			riskPct := risk.AdjustForGuardMode(r.Config.Strategy.RiskPerTradePct, guardMode == newsguard.Reduced)
			sizing := risk.SizingRule{StepSize: rule.LotStepSize, Precision: rule.LotPrecision, MinQty: rule.MinLotSize}
			lots := risk.CalcQty(brk.Balance(), riskPct, riskFrac, p.Entry, sizing)
			if lots > 0 {
				brk.Submit(sym, p.Direction, lots, p.Entry, p.StopLoss, p.TakeProfit, p.OrderKind, c.Timestamp)
			}
		}

		metrics.PositionsOpen.WithLabelValues(sym).Set(float64(countOpenForSymbol(brk.OpenPositions(), sym)))
		eq := brk.Equity(lastPrice)
		equity = append(equity, EquitySample{Timestamp: c.Timestamp, Equity: eq})
		metrics.EquityGauge.Set(eq)
	}

	finalEquity := r.Config.Scheduler.InitialBalance
	if len(equity) > 0 {
		finalEquity = equity[len(equity)-1].Equity
	}

	return &Result{
		Summary: Summary{
			TicksProcessed: len(decisions),
			TradesOpened:   tradesOpened,
			TradesClosed:   tradesClosed,
			Cancelled:      cancelled,
			FinalEquity:    finalEquity,
		},
		Decisions: decisions,
		Trades:    closedTrades,
		Equity:    equity,
	}, nil
}

// evaluateTick runs C7->C8->C9 for one tick: builds the multi-timeframe
// snapshot, evaluates the strategy, applies the AvoidHTFSideways and
// guardrail policies, then runs the execution filter.
func (r *Replay) evaluateTick(
	ctx context.Context,
	strat strategy.Strategy,
	sym string,
	rule config.SymbolRule,
	c types.Candle,
	htfBase, itfBase, ltfBase mtf.Params,
	store *candlestore.Store,
	brk *broker.Simulated,
	recent []execfilter.RecentDecision,
	todayHigh, todayLow float64,
) (types.Decision, newsguard.Mode) {
	a := r.Config.Analytics
	htfCandles := store.Latest(sym, types.H4, a.CandleBufferSize)
	itfCandles := store.Latest(sym, types.M15, a.CandleBufferSize)
	ltfCandles := store.Latest(sym, types.M1, a.CandleBufferSize)

	if len(htfCandles) < a.MinHTFCandles || len(itfCandles) < a.MinITFCandles || len(ltfCandles) < a.MinLTFCandles {
		return types.NoSignal(sym, c.Timestamp, types.ReasonSwingUnderflow), newsguard.Normal
	}

	snap := mtf.BuildSnapshot(sym, htfCandles, itfCandles, ltfCandles,
		withSymbolTuning(htfBase, rule), withSymbolTuning(itfBase, rule), withSymbolTuning(ltfBase, rule), c.Close)

	spreadHalf := r.Config.Scheduler.DefaultSpreadHalf
	evalCtx := strategy.EvalContext{
		Symbol:       sym,
		Snapshot:     snap,
		SymbolRule:   rule,
		StrategyRule: r.Config.Strategy,
		Analytics:    a,
		CurrentPrice: c.Close,
		Bid:          c.Close - spreadHalf,
		Ask:          c.Close + spreadHalf,
	}
	decision := strat.Evaluate(evalCtx)

	if r.Config.AvoidHTFSideways && snap.HTF.Trend == types.TrendSideways {
		decision = types.NoSignal(sym, c.Timestamp, types.ReasonHTFSideways)
	}

	if decision.Kind != types.DecisionTrade {
		return decision, newsguard.Normal
	}

	verdict, _ := r.Guard.CanTradeNow(ctx, r.StrategyTag)
	if verdict.Mode == newsguard.Blocked {
		return types.Skip(sym, c.Timestamp, types.ReasonGuardrailBlocked), newsguard.Blocked
	}

	effectiveRule := rule
	if r.Config.RelaxedFilters {
		effectiveRule.RequireBOS = false
		effectiveRule.RequireSweep = false
		effectiveRule.RequireDisplacement = false
		effectiveRule.RequireFVG = false
		effectiveRule.EnforcePremiumDiscount = false
		effectiveRule.AllowedHTFTrends = nil
	}

	spread := 2 * spreadHalf
	fc := execfilter.ExecutionContext{
		Now:                 c.Timestamp,
		Symbol:              sym,
		Spread:              spread,
		TodayHigh:           todayHigh,
		TodayLow:            todayLow,
		OpenPositions:       brk.OpenPositions(),
		RecentDecisions:     recent,
		Rule:                effectiveRule,
		GlobalMaxConcurrent: r.Config.Scheduler.GlobalMaxConcurrent,
		GlobalMaxExposure:   r.Config.Scheduler.GlobalMaxExposure,
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

func countOpenForSymbol(positions []types.Position, symbol string) int {
	n := 0
	for _, p := range positions {
		if p.Symbol == symbol && p.Open() {
			n++
		}
	}
	return n
}

func toDecisionRecord(d types.Decision) persistence.DecisionRecord {
	reasons := make([]string, len(d.ReasonCodes))
	for i, rc := range d.ReasonCodes {
		reasons[i] = rc.String()
	}
	return persistence.DecisionRecord{
		Timestamp: d.Timestamp,
		Symbol:    d.Symbol,
		Decision:  d.Kind,
		Reasons:   reasons,
		Proposal:  d.Proposal,
	}
}
