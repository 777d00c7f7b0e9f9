package testutils

import (
	"context"

	"github.com/evdnx/ictengine/newsguard"
)

// MockNewsGuard implements newsguard.Guard with a fixed, settable verdict,
// for tests exercising the scheduler/live driver without a real news feed.
type MockNewsGuard struct {
	Verdict newsguard.Verdict
	Err     error
}

// NewMockNewsGuard returns a guard that reports Normal with no error.
func NewMockNewsGuard() *MockNewsGuard {
	return &MockNewsGuard{Verdict: newsguard.Verdict{Mode: newsguard.Normal}}
}

func (m *MockNewsGuard) CanTradeNow(ctx context.Context, strategyTag string) (newsguard.Verdict, error) {
	return m.Verdict, m.Err
}
