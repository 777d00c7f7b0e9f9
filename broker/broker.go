// Package broker implements C11: the external broker adapter boundary and
// the simulated (replay) broker (spec §4.11). Adapter is grounded on
// abdulloh5007-tradepl/internal/broker's Adapter/DisabledAdapter pair —
// the same shape, generalized to carry a resolved TradeProposal instead of
// the original's string-typed wire fields. Simulated absorbs the teacher's
// PaperExecutor in-memory fill/PnL bookkeeping (from the now-removed
// executor package), adapted to the candle-driven fill models and
// intrabar SL/TP resolution the spec requires.
package broker

import (
	"context"
	"errors"
	"time"

	"github.com/evdnx/ictengine/types"
)

// OrderRequest is what the engine hands to an external broker adapter.
type OrderRequest struct {
	ClientOrderID string
	Symbol        string
	Direction     types.Direction
	Lots          float64
	Entry         float64
	StopLoss      float64
	TakeProfit    float64
	OrderKind     types.OrderKind
}

// OrderResponse is the adapter's acknowledgement.
type OrderResponse struct {
	BrokerOrderID string
	Status        string
}

// Quote is a broker's latest bid/ask for a symbol (spec §6 "latestPrice").
type Quote struct {
	Bid, Ask  float64
	Timestamp time.Time
}

// Adapter is the external-broker boundary (spec §1: "declared external
// collaborator"). Implementations talk to a real brokerage API; Disabled
// is the fail-safe default when none is configured. Operations mirror
// spec §6 exactly: openTrade/modifyTrade/closeTrade/listOpenPositions/
// latestPrice.
type Adapter interface {
	PlaceOrder(ctx context.Context, req OrderRequest) (OrderResponse, error)
	ModifyOrder(ctx context.Context, brokerOrderID string, sl, tp *float64) error
	CancelOrder(ctx context.Context, brokerOrderID string) error
	ListOpenPositions(ctx context.Context) ([]types.Position, error)
	LatestPrice(ctx context.Context, symbol string) (Quote, error)
}

// Disabled is the zero-configuration Adapter: every call fails closed
// rather than silently no-opping, matching the teacher's DisabledAdapter.
type Disabled struct{}

// NewDisabled returns a Disabled adapter.
func NewDisabled() *Disabled { return &Disabled{} }

var errAdapterNotConfigured = errors.New("broker adapter not configured")

func (d *Disabled) PlaceOrder(ctx context.Context, req OrderRequest) (OrderResponse, error) {
	return OrderResponse{}, errAdapterNotConfigured
}

func (d *Disabled) ModifyOrder(ctx context.Context, brokerOrderID string, sl, tp *float64) error {
	return errAdapterNotConfigured
}

func (d *Disabled) CancelOrder(ctx context.Context, brokerOrderID string) error {
	return errAdapterNotConfigured
}

func (d *Disabled) ListOpenPositions(ctx context.Context) ([]types.Position, error) {
	return nil, errAdapterNotConfigured
}

func (d *Disabled) LatestPrice(ctx context.Context, symbol string) (Quote, error) {
	return Quote{}, errAdapterNotConfigured
}
