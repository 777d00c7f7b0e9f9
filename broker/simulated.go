package broker

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/evdnx/ictengine/types"
)

// PendingOrder is an order submitted by C10 that has not yet filled. Market
// orders fill on the next candle's open; limit/stop orders fill only if
// the next candle's range contains the limit price.
type PendingOrder struct {
	ID         string
	Symbol     string
	Direction  types.Direction
	Lots       float64
	Entry      float64
	StopLoss   float64
	TakeProfit float64
	Kind       types.OrderKind
	SubmittedAt time.Time
}

// Fill is the realized entry of a pending order.
type Fill struct {
	Order     PendingOrder
	FillPrice float64
	FilledAt  time.Time
}

// SymbolFees holds the per-symbol cost model used by PnL accounting.
type SymbolFees struct {
	ContractValue float64
	Commission    float64
	Swap          float64
	SpreadHalf    float64 // half-spread applied to market fills, direction-dependent
}

// Simulated is the replay broker of spec §4.11. It is mutex-protected
// because the live-mode thin driver may eventually share it across
// goroutines, but the scheduler itself drives it single-threaded per the
// determinism contract (spec §4.10/§5).
type Simulated struct {
	mu        sync.Mutex
	balance   float64
	positions map[string]*types.Position // keyed by Position.ID
	pending   map[string][]PendingOrder  // keyed by symbol
	fees      map[string]SymbolFees
	nextID    int
}

// NewSimulated creates a broker seeded with the given starting balance
// (spec §4.10/§6 Scheduler.InitialBalance).
func NewSimulated(initialBalance float64, fees map[string]SymbolFees) *Simulated {
	return &Simulated{
		balance:   initialBalance,
		positions: make(map[string]*types.Position),
		pending:   make(map[string][]PendingOrder),
		fees:      fees,
	}
}

// Reset clears all state, used at scheduler run() entry (spec §4.10 "State
// isolation").
func (s *Simulated) Reset(initialBalance float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balance = initialBalance
	s.positions = make(map[string]*types.Position)
	s.pending = make(map[string][]PendingOrder)
	s.nextID = 0
}

// Submit queues an order for fill on the next candle of its symbol (spec
// §4.10 step 3: "submit to the simulated broker (open at next-candle open
// or at configured fill model)").
func (s *Simulated) Submit(symbol string, direction types.Direction, lots, entry, sl, tp float64, kind types.OrderKind, at time.Time) PendingOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	o := PendingOrder{
		ID:          fmt.Sprintf("ord-%d", s.nextID),
		Symbol:      symbol,
		Direction:   direction,
		Lots:        lots,
		Entry:       entry,
		StopLoss:    sl,
		TakeProfit:  tp,
		Kind:        kind,
		SubmittedAt: at,
	}
	s.pending[symbol] = append(s.pending[symbol], o)
	return o
}

// ProcessCandle advances one symbol's broker state for the next closed
// candle: first resolves intrabar SL/TP on open positions (spec §4.11
// step 2 of the per-tick sequence), then attempts to fill any pending
// orders for this candle (step 3). Returns every Fill and closed Position
// produced this tick.
func (s *Simulated) ProcessCandle(symbol string, c types.Candle) ([]Fill, []types.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var closed []types.Position
	fees := s.fees[symbol]

	ids := make([]string, 0, len(s.positions))
	for id := range s.positions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		pos := s.positions[id]
		if pos.Symbol != symbol || !pos.Open() {
			continue
		}
		if exit, reason, ok := resolveIntrabar(*pos, c); ok {
			s.closePosition(pos, exit, reason, c.Timestamp, fees)
			closed = append(closed, *pos)
			delete(s.positions, id)
		}
	}

	var fills []Fill
	remaining := s.pending[symbol][:0]
	for _, o := range s.pending[symbol] {
		price, ok := resolveFill(o, c, fees)
		if !ok {
			remaining = append(remaining, o)
			continue
		}
		pos := &types.Position{
			ID:        o.ID,
			Symbol:    o.Symbol,
			Direction: o.Direction,
			Entry:     price,
			SL:        o.StopLoss,
			TP:        o.TakeProfit,
			Lots:      o.Lots,
			OpenedAt:  c.Timestamp,
		}
		s.positions[o.ID] = pos
		fills = append(fills, Fill{Order: o, FillPrice: price, FilledAt: c.Timestamp})
	}
	s.pending[symbol] = remaining

	return fills, closed
}

// resolveFill implements spec §4.11's fill model: market fills at next
// open plus/minus half-spread; limit/stop fills only if the candle's
// [low,high] range contains the limit price, at the limit price plus
// half-spread (pessimistic).
func resolveFill(o PendingOrder, c types.Candle, fees SymbolFees) (float64, bool) {
	switch o.Kind {
	case types.OrderMarket:
		if o.Direction == types.Bullish {
			return c.Open + fees.SpreadHalf, true
		}
		return c.Open - fees.SpreadHalf, true
	default:
		if o.Entry < c.Low || o.Entry > c.High {
			return 0, false
		}
		if o.Direction == types.Bullish {
			return o.Entry + fees.SpreadHalf, true
		}
		return o.Entry - fees.SpreadHalf, true
	}
}

// resolveIntrabar implements spec §4.11's pessimistic SL-first rule: if
// both SL and TP lie within the candle's [low,high] range, SL wins. This
// is part of the determinism contract (spec §4.10/§4.11) and is
// regression-tested explicitly.
func resolveIntrabar(pos types.Position, c types.Candle) (float64, types.ExitReason, bool) {
	slInRange := inRange(pos.SL, c.Low, c.High)
	tpInRange := inRange(pos.TP, c.Low, c.High)

	switch {
	case slInRange && tpInRange:
		return pos.SL, types.ExitSL, true
	case slInRange:
		return pos.SL, types.ExitSL, true
	case tpInRange:
		return pos.TP, types.ExitTP, true
	default:
		return 0, "", false
	}
}

func inRange(price, low, high float64) bool {
	return price >= low && price <= high
}

// closePosition finalizes a position's exit and PnL (spec §4.11: "PnL per
// close = (exit - entry) * direction_sign * lots * contract_value -
// commission - swap").
func (s *Simulated) closePosition(pos *types.Position, exitPrice float64, reason types.ExitReason, at time.Time, fees SymbolFees) {
	sign := 1.0
	if pos.Direction == types.Bearish {
		sign = -1.0
	}
	pnl := (exitPrice-pos.Entry)*sign*pos.Lots*fees.ContractValue - fees.Commission - fees.Swap
	closedAt := at
	pos.ClosedAt = &closedAt
	pos.ExitPrice = &exitPrice
	pos.ExitReason = &reason
	pos.PnL = &pnl
	s.balance += pnl
}

// Balance returns the current cash balance (realized PnL only).
func (s *Simulated) Balance() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance
}

// OpenPositions returns a snapshot of every currently-open position across
// all symbols, sorted by symbol then open timestamp then ID so that replay
// output stays byte-identical across runs (spec §4.10/§9 determinism
// contract): Go map iteration order is randomized per-process and must
// never leak into anything that gets logged or compared.
func (s *Simulated) OpenPositions() []types.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.Position
	for _, pos := range s.positions {
		if pos.Open() {
			out = append(out, *pos)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Symbol != out[j].Symbol {
			return out[i].Symbol < out[j].Symbol
		}
		if !out[i].OpenedAt.Equal(out[j].OpenedAt) {
			return out[i].OpenedAt.Before(out[j].OpenedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Equity returns balance plus the mark-to-market value of every open
// position at the given per-symbol last prices (spec §4.10 step 5).
func (s *Simulated) Equity(lastPrice map[string]float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	eq := s.balance
	for _, pos := range s.positions {
		if !pos.Open() {
			continue
		}
		price, ok := lastPrice[pos.Symbol]
		if !ok {
			continue
		}
		fees := s.fees[pos.Symbol]
		sign := 1.0
		if pos.Direction == types.Bearish {
			sign = -1.0
		}
		eq += (price - pos.Entry) * sign * pos.Lots * fees.ContractValue
	}
	return eq
}
