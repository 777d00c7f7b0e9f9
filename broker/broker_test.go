package broker

import (
	"context"
	"testing"
)

func TestDisabledFailsClosedOnEveryOperation(t *testing.T) {
	d := NewDisabled()
	ctx := context.Background()

	if _, err := d.PlaceOrder(ctx, OrderRequest{Symbol: "XAUUSD"}); err == nil {
		t.Fatal("expected PlaceOrder to fail on a disabled adapter")
	}
	sl := 100.0
	if err := d.ModifyOrder(ctx, "ord-1", &sl, nil); err == nil {
		t.Fatal("expected ModifyOrder to fail on a disabled adapter")
	}
	if err := d.CancelOrder(ctx, "ord-1"); err == nil {
		t.Fatal("expected CancelOrder to fail on a disabled adapter")
	}
	if _, err := d.ListOpenPositions(ctx); err == nil {
		t.Fatal("expected ListOpenPositions to fail on a disabled adapter")
	}
	if _, err := d.LatestPrice(ctx, "XAUUSD"); err == nil {
		t.Fatal("expected LatestPrice to fail on a disabled adapter")
	}
}
