package strategy

import (
	"time"

	"github.com/evdnx/goti"
	"github.com/evdnx/ictengine/config"
	"github.com/evdnx/ictengine/logger"
	"github.com/evdnx/ictengine/types"
)

// LegacyConfluence is the REQUIRE_ICT_PIPELINE=false fallback strategy,
// adapted from the teacher's oscillator-confluence strategies
// (TrendComposite, DivergenceSwing): it drives a goti.IndicatorSuite fed
// bar-by-bar from the LTF candle stream and requires the Hull Moving
// Average, Adaptive Momentum Divergence Oscillator and Adaptive Trend
// Strength Oscillator to agree on direction. Unlike the teacher version it
// never submits orders itself — it returns a types.Decision so C9 can
// still gate it, matching the ICT pipeline's contract.
type LegacyConfluence struct {
	suite  *goti.IndicatorSuite
	cfg    config.StrategyConfig
	symbol string
	log    logger.Logger
	fed    int
	now    func() time.Time
}

// NewLegacyConfluence builds the suite once up front (spec: "the legacy
// confluence strategy reuses goti exactly as the teacher's TrendComposite
// does").
func NewLegacyConfluence(symbol string, cfg config.StrategyConfig, log logger.Logger, nowFn func() time.Time) (*LegacyConfluence, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	indCfg := goti.DefaultConfig()
	indCfg.RSIOverbought = cfg.RSIOverbought
	indCfg.RSIOversold = cfg.RSIOversold
	indCfg.MFIOverbought = cfg.MFIOverbought
	indCfg.MFIOversold = cfg.MFIOversold
	indCfg.VWAOStrongTrend = cfg.VWAOStrongTrend
	indCfg.ATSEMAperiod = cfg.ATSEMAperiod

	suite, err := goti.NewIndicatorSuiteWithConfig(indCfg)
	if err != nil {
		return nil, err
	}
	return &LegacyConfluence{suite: suite, cfg: cfg, symbol: symbol, log: log, now: nowFn}, nil
}

// Feed pushes one closed LTF candle into the indicator suite. The strategy
// owns no candle history of its own — the scheduler is the single source
// of truth for what has closed, so Feed must be called exactly once per
// LTF candle close before Evaluate.
func (l *LegacyConfluence) Feed(c types.Candle) error {
	if err := l.suite.Add(c.High, c.Low, c.Close, c.Volume); err != nil {
		if l.log != nil {
			l.log.Warn("legacy_confluence_feed_failed", logger.String("symbol", l.symbol), logger.Err(err))
		}
		return err
	}
	l.fed++
	return nil
}

// SetNow overrides the clock used to stamp decisions, implementing
// strategy.TimeAware. The scheduler calls this with the current candle's
// own timestamp before every Evaluate.
func (l *LegacyConfluence) SetNow(t time.Time) {
	l.now = func() time.Time { return t }
}

func (l *LegacyConfluence) ts() time.Time {
	if l.now != nil {
		return l.now()
	}
	return time.Time{}
}

// Evaluate mirrors TrendComposite.ProcessBar's direction logic but returns
// a Decision instead of submitting an order: HMA, AMDO and ATSO crossovers
// and raw-value signs must all agree.
func (l *LegacyConfluence) Evaluate(ctx EvalContext) types.Decision {
	ts := l.ts()
	if l.fed == 0 {
		return types.NoSignal(ctx.Symbol, ts, types.ReasonBufferEmpty)
	}

	hBull, _ := l.suite.GetHMA().IsBullishCrossover()
	hBear, _ := l.suite.GetHMA().IsBearishCrossover()
	aBull, _ := l.suite.GetAMDO().IsBullishCrossover()
	aBear, _ := l.suite.GetAMDO().IsBearishCrossover()
	atBull := l.suite.GetATSO().IsBullishCrossover()
	atBear := l.suite.GetATSO().IsBearishCrossover()
	admoVal, _ := l.suite.GetAMDO().Calculate()
	atsoVal, _ := l.suite.GetATSO().Calculate()

	longCond := hBull && aBull && atBull && admoVal > 0 && atsoVal > 0
	shortCond := hBear && aBear && atBear && admoVal < 0 && atsoVal < 0

	var dir types.Direction
	switch {
	case longCond:
		dir = types.Bullish
	case shortCond:
		dir = types.Bearish
	default:
		return types.NoSignal(ctx.Symbol, ts, types.ReasonHTFSideways)
	}

	entry := ctx.CurrentPrice
	risk := entry * l.cfg.StopLossPct
	if risk <= 0 {
		return types.NoSignal(ctx.Symbol, ts, types.ReasonInvalidSL)
	}
	reward := ctx.StrategyRule.RewardMultiple
	if reward <= 0 {
		reward = 3.0
	}

	var sl, tp float64
	if dir == types.Bullish {
		sl = entry - risk
		tp = entry + reward*risk
	} else {
		sl = entry + risk
		tp = entry - reward*risk
	}

	// HasBOS/HasSweep/HasDisplacement/HasFVG are left at their zero value:
	// this strategy never inspects market structure, so a symbol rule that
	// requires any of them is incompatible with REQUIRE_ICT_PIPELINE=false
	// and will reject every legacy trade by design.
	proposal := types.TradeProposal{
		Symbol:          ctx.Symbol,
		Direction:       dir,
		Entry:           entry,
		StopLoss:        sl,
		TakeProfit:      tp,
		OrderKind:       types.OrderMarket,
		ConfluenceScore: 60,
		HTFTrend:        ctx.Snapshot.HTF.Trend,
		PDPosition:      ctx.Snapshot.HTF.PD,
	}
	return types.Trade(ctx.Symbol, ts, proposal)
}
