package strategy

import (
	"testing"
	"time"

	"github.com/evdnx/ictengine/config"
	"github.com/evdnx/ictengine/mtf"
	"github.com/evdnx/ictengine/types"
)

func fixedNow() time.Time {
	return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

func TestICTPipelineNoSignalWhenHTFSideways(t *testing.T) {
	p := NewICTPipeline(fixedNow)
	ctx := EvalContext{
		Symbol: "XAUUSD",
		Snapshot: mtf.Snapshot{
			HTF: mtf.Context{Bias: types.BiasState{Bias: types.BiasUnknown}},
		},
		Analytics: config.AnalyticParams{ZoneBufferFrac: 0.1},
	}
	d := p.Evaluate(ctx)
	if d.Kind != types.DecisionNoSignal {
		t.Fatalf("expected NoSignal, got %+v", d)
	}
	if d.ReasonCodes[0].Tag != types.ReasonHTFSideways.Tag {
		t.Fatalf("expected HTF_SIDEWAYS reason, got %+v", d.ReasonCodes)
	}
}

func TestICTPipelineNoSignalWhenNoM15Setup(t *testing.T) {
	p := NewICTPipeline(fixedNow)
	ctx := EvalContext{
		Symbol: "XAUUSD",
		Snapshot: mtf.Snapshot{
			HTF: mtf.Context{Bias: types.BiasState{Bias: types.BiasBullish}},
			ITF: mtf.Context{Candles: []types.Candle{{Close: 100}}},
		},
		Analytics: config.AnalyticParams{ZoneBufferFrac: 0.1, M15SetupWindow: 20},
	}
	d := p.Evaluate(ctx)
	if d.Kind != types.DecisionNoSignal {
		t.Fatalf("expected NoSignal, got %+v", d)
	}
	if d.ReasonCodes[0].Tag != types.ReasonNoM15Setup.Tag {
		t.Fatalf("expected NO_M15_SETUP reason, got %+v", d.ReasonCodes)
	}
}

func TestICTPipelineFullTradeEmitsProposal(t *testing.T) {
	p := NewICTPipeline(fixedNow)

	itfCandles := make([]types.Candle, 6)
	for i := range itfCandles {
		itfCandles[i] = types.Candle{Open: 100, High: 101, Low: 99, Close: 100}
	}
	event := types.StructureEvent{Kind: types.BOS, Direction: types.Bullish, CandleIndex: 3}
	disp := types.DisplacementEvent{CandleIndex: 3, Direction: types.Bullish}
	fvg := types.FairValueGap{Direction: types.Bullish, Low: 99.0, High: 100.0, MiddleCandleIndex: 3}
	ob := types.OrderBlock{Direction: types.Bullish, Low: 98.0, High: 99.0, OriginCandleIndex: 2}

	ltfCandles := make([]types.Candle, 12)
	for i := range ltfCandles {
		ltfCandles[i] = types.Candle{Open: 100, High: 101, Low: 99, Close: 100}
	}
	ltfEvent := types.StructureEvent{Kind: types.BOS, Direction: types.Bullish, CandleIndex: 10}

	ctx := EvalContext{
		Symbol: "XAUUSD",
		Snapshot: mtf.Snapshot{
			HTF: mtf.Context{Bias: types.BiasState{Bias: types.BiasBullish}, PD: types.Discount},
			ITF: mtf.Context{
				Candles:       itfCandles,
				Bias:          types.BiasState{Bias: types.BiasBullish},
				Events:        []types.StructureEvent{event},
				Displacements: []types.DisplacementEvent{disp},
				FVGs:          []types.FairValueGap{fvg},
				OrderBlocks:   []types.OrderBlock{ob},
				Swings: []types.Swing{
					{Index: 0, Kind: types.SwingLow, Price: 95},
				},
			},
			LTF: mtf.Context{
				Candles:     ltfCandles,
				Events:      []types.StructureEvent{ltfEvent},
				OrderBlocks: nil,
			},
		},
		SymbolRule: config.SymbolRule{
			SLBuffer:           0.1,
			MinRiskDistance:    0.1,
			MaxRiskDistancePct: 0.1,
		},
		StrategyRule: config.StrategyRule{RewardMultiple: 3.0},
		Analytics: config.AnalyticParams{
			ZoneBufferFrac:     0.5,
			M15SetupWindow:     20,
			M1RefinementWindow: 20,
			EntryEpsilonFrac:   0.0005,
		},
		CurrentPrice: 99.5,
		Bid:          99.4,
		Ask:          99.6,
	}

	d := p.Evaluate(ctx)
	if d.Kind != types.DecisionTrade {
		t.Fatalf("expected Trade, got %+v", d)
	}
	if d.Proposal.Direction != types.Bullish {
		t.Fatalf("expected bullish proposal, got %+v", d.Proposal)
	}
	if !d.Proposal.Valid(3.0, 0.05) {
		t.Fatalf("expected a valid reward-multiple proposal, got %+v", d.Proposal)
	}
}

func TestSetupZoneFromFVGAndOBTakesIntersection(t *testing.T) {
	fvg := types.FairValueGap{Low: 98, High: 102}
	ob := types.OrderBlock{Low: 100, High: 104}
	if !overlaps(fvg.Low, fvg.High, ob.Low, ob.High) {
		t.Fatal("expected overlap between the two zones")
	}
	lo, hi := intersect(fvg.Low, fvg.High, ob.Low, ob.High)
	if lo != 100 || hi != 102 {
		t.Fatalf("expected intersection [100,102], got [%v,%v]", lo, hi)
	}
}

func TestSelectOrderKindPicksLimitBelowBid(t *testing.T) {
	kind := selectOrderKind(types.Bullish, 95, 100, 100.1, 0.0005)
	if kind != types.OrderBuyLimit {
		t.Fatalf("expected buy_limit when entry is well below bid, got %v", kind)
	}
}

func TestSelectOrderKindPicksMarketNearBid(t *testing.T) {
	kind := selectOrderKind(types.Bullish, 100.02, 100, 100.1, 0.0005)
	if kind != types.OrderMarket {
		t.Fatalf("expected market order near current price, got %v", kind)
	}
}
