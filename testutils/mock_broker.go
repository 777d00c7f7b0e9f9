package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/evdnx/ictengine/broker"
	"github.com/evdnx/ictengine/types"
)

// MockBroker implements broker.Adapter in-memory for tests that exercise
// the live-mode driver without a real brokerage connection. It replaces
// the teacher's order/position paper-trading mock (MockExecutor) with the
// spec §6 adapter shape: openTrade/modifyTrade/closeTrade/listOpenPositions/
// latestPrice.
type MockBroker struct {
	mu sync.Mutex

	positions []types.Position
	orders    []broker.OrderRequest
	quotes    map[string]broker.Quote

	placeErr    error
	modifyErr   error
	cancelErr   error
	listErr     error
	latestErr   error
	nextOrderID int
}

// NewMockBroker returns a MockBroker with no open positions and no quotes.
func NewMockBroker() *MockBroker {
	return &MockBroker{quotes: make(map[string]broker.Quote)}
}

// SetQuote fixes the quote returned by LatestPrice for symbol.
func (m *MockBroker) SetQuote(symbol string, q broker.Quote) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotes[symbol] = q
}

// SetPositions replaces the set ListOpenPositions returns.
func (m *MockBroker) SetPositions(positions []types.Position) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions = positions
}

// FailPlaceOrder makes the next and all subsequent PlaceOrder calls return err.
func (m *MockBroker) FailPlaceOrder(err error) { m.placeErr = err }

// FailListOpenPositions makes ListOpenPositions return err.
func (m *MockBroker) FailListOpenPositions(err error) { m.listErr = err }

// FailLatestPrice makes LatestPrice return err.
func (m *MockBroker) FailLatestPrice(err error) { m.latestErr = err }

// Orders returns every OrderRequest passed to PlaceOrder, in call order.
func (m *MockBroker) Orders() []broker.OrderRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]broker.OrderRequest, len(m.orders))
	copy(out, m.orders)
	return out
}

func (m *MockBroker) PlaceOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.placeErr != nil {
		return broker.OrderResponse{}, m.placeErr
	}
	m.nextOrderID++
	m.orders = append(m.orders, req)
	return broker.OrderResponse{BrokerOrderID: orderID(m.nextOrderID), Status: "accepted"}, nil
}

func (m *MockBroker) ModifyOrder(ctx context.Context, brokerOrderID string, sl, tp *float64) error {
	return m.modifyErr
}

func (m *MockBroker) CancelOrder(ctx context.Context, brokerOrderID string) error {
	return m.cancelErr
}

func (m *MockBroker) ListOpenPositions(ctx context.Context) ([]types.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]types.Position, len(m.positions))
	copy(out, m.positions)
	return out, nil
}

func (m *MockBroker) LatestPrice(ctx context.Context, symbol string) (broker.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.latestErr != nil {
		return broker.Quote{}, m.latestErr
	}
	q, ok := m.quotes[symbol]
	if !ok {
		return broker.Quote{}, errors.New("mock broker: no quote set for " + symbol)
	}
	return q, nil
}

func orderID(n int) string {
	const digits = "0123456789"
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = digits[n%10]
		n /= 10
	}
	return "ord-" + string(buf[i:])
}
