package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/evdnx/ictengine/broker"
	"github.com/evdnx/ictengine/config"
	"github.com/evdnx/ictengine/newsguard"
	"github.com/evdnx/ictengine/persistence"
	"github.com/evdnx/ictengine/strategy"
	"github.com/evdnx/ictengine/types"
)

// alwaysTradeStrategy emits a fixed, valid Trade proposal every tick, so
// live-driver order-forwarding mechanics can be tested independently of
// real structural detection.
type alwaysTradeStrategy struct{}

func (alwaysTradeStrategy) Evaluate(ctx strategy.EvalContext) types.Decision {
	return types.Trade(ctx.Symbol, time.Time{}, types.TradeProposal{
		Symbol:          ctx.Symbol,
		Direction:       types.Bullish,
		Entry:           100,
		StopLoss:        95,
		TakeProfit:      115,
		OrderKind:       types.OrderMarket,
		ConfluenceScore: 80,
	})
}

func newAlwaysTradeStrategy(symbol string) (strategy.Strategy, error) { return alwaysTradeStrategy{}, nil }

type stubAdapter struct {
	positions   []types.Position
	listErr     error
	placeErr    error
	placedCount int
	quote       broker.Quote
	quoteErr    error
}

func (s *stubAdapter) PlaceOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderResponse, error) {
	if s.placeErr != nil {
		return broker.OrderResponse{}, s.placeErr
	}
	s.placedCount++
	return broker.OrderResponse{BrokerOrderID: "ord-1", Status: "filled"}, nil
}
func (s *stubAdapter) ModifyOrder(ctx context.Context, brokerOrderID string, sl, tp *float64) error {
	return nil
}
func (s *stubAdapter) CancelOrder(ctx context.Context, brokerOrderID string) error { return nil }
func (s *stubAdapter) ListOpenPositions(ctx context.Context) ([]types.Position, error) {
	return s.positions, s.listErr
}
func (s *stubAdapter) LatestPrice(ctx context.Context, symbol string) (broker.Quote, error) {
	return s.quote, s.quoteErr
}

type alwaysNormalGuard struct{}

func (alwaysNormalGuard) CanTradeNow(ctx context.Context, strategyTag string) (newsguard.Verdict, error) {
	return newsguard.Verdict{Mode: newsguard.Normal}, nil
}

func liveTestConfig(symbol string) config.Config {
	c := config.DefaultEngine()
	c.Symbols = map[string]config.SymbolRule{
		symbol: {Symbol: symbol, Enabled: true, ContractValue: 100, MaxSpread: 10},
	}
	// Zeroed so a single M1 tick is enough to exercise strategy dispatch:
	// in a short test sequence no H4/M15 bucket ever closes (they roll up
	// on wall-clock boundaries), so a nonzero minimum would always bounce
	// off ReasonSwingUnderflow before reaching the strategy.
	c.Analytics.MinHTFCandles = 0
	c.Analytics.MinITFCandles = 0
	c.Analytics.MinLTFCandles = 0
	c.Analytics.CandleBufferSize = 100
	c.Scheduler.InitialBalance = 10000
	c.Scheduler.GlobalMaxConcurrent = 10
	c.Scheduler.GlobalMaxExposure = 1_000_000
	return c
}

func liveCandle(symbol string, minute int) types.Candle {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return types.Candle{
		Symbol: symbol, Timeframe: types.M1,
		Timestamp: base.Add(time.Duration(minute) * time.Minute),
		Open: 100, High: 101, Low: 99, Close: 100, Volume: 1,
	}
}

func TestLiveDriverForwardsTradeToAdapter(t *testing.T) {
	symbol := "XAUUSD"
	cfg := liveTestConfig(symbol)
	adapter := &stubAdapter{quote: broker.Quote{Bid: 99.5, Ask: 100.5}}
	sink := &persistence.InMemorySink{}

	l := NewLiveDriver(cfg, newAlwaysTradeStrategy, alwaysNormalGuard{}, adapter, sink, nil)

	var last types.Decision
	for i := 0; i < 3; i++ {
		d, err := l.OnCandleClose(context.Background(), symbol, liveCandle(symbol, i))
		if err != nil {
			t.Fatalf("unexpected error on tick %d: %v", i, err)
		}
		last = d
	}

	if last.Kind != types.DecisionTrade {
		t.Fatalf("expected a Trade decision, got %+v", last)
	}
	if adapter.placedCount != 3 {
		t.Fatalf("expected one order placed per tick, got %d", adapter.placedCount)
	}
	if len(sink.Records) != 3 {
		t.Fatalf("expected 3 recorded decisions, got %d", len(sink.Records))
	}
}

func TestLiveDriverSkipsOnBrokerPlaceOrderFailure(t *testing.T) {
	symbol := "XAUUSD"
	cfg := liveTestConfig(symbol)
	adapter := &stubAdapter{quote: broker.Quote{Bid: 99.5, Ask: 100.5}, placeErr: errBrokerDown}

	l := NewLiveDriver(cfg, newAlwaysTradeStrategy, alwaysNormalGuard{}, adapter, nil, nil)

	var last types.Decision
	for i := 0; i < 3; i++ {
		d, err := l.OnCandleClose(context.Background(), symbol, liveCandle(symbol, i))
		if err != nil {
			t.Fatalf("unexpected error on tick %d: %v", i, err)
		}
		last = d
	}

	if last.Kind != types.DecisionSkip {
		t.Fatalf("expected Skip when the broker rejects the order, got %+v", last)
	}
	found := false
	for _, rc := range last.ReasonCodes {
		if rc == types.ReasonBrokerDown {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected BROKER_DOWN reason code, got %+v", last.ReasonCodes)
	}
}

func TestLiveDriverToleratesListOpenPositionsFailure(t *testing.T) {
	symbol := "XAUUSD"
	cfg := liveTestConfig(symbol)
	adapter := &stubAdapter{quote: broker.Quote{Bid: 99.5, Ask: 100.5}, listErr: errBrokerDown}

	l := NewLiveDriver(cfg, newAlwaysTradeStrategy, alwaysNormalGuard{}, adapter, nil, nil)

	if _, err := l.OnCandleClose(context.Background(), symbol, liveCandle(symbol, 0)); err != nil {
		t.Fatalf("expected ListOpenPositions failure to degrade gracefully, got error: %v", err)
	}
}

var errBrokerDown = &stubErr{"broker unreachable"}

type stubErr struct{ msg string }

func (e *stubErr) Error() string { return e.msg }
