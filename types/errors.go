package types

import "fmt"

// InvariantError marks a bug-class failure per spec §7: timestamps going
// backward inside a buffer, bias outside its enum, SL on the wrong side,
// and similar. The scheduler aborts the run when it sees one; it is never
// produced as a per-tick Decision.
type InvariantError struct {
	Component string
	Detail    string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violated in %s: %s", e.Component, e.Detail)
}

// NewInvariantError constructs an InvariantError.
func NewInvariantError(component, detail string) *InvariantError {
	return &InvariantError{Component: component, Detail: detail}
}

// OutOfOrderError is returned by the candle store when an append's
// timestamp does not strictly advance past the last stored timestamp for
// that (symbol, timeframe).
type OutOfOrderError struct {
	Symbol    string
	Timeframe Timeframe
	Last      int64 // unix seconds
	Got       int64
}

func (e *OutOfOrderError) Error() string {
	return fmt.Sprintf("out-of-order candle for %s/%s: last=%d got=%d", e.Symbol, e.Timeframe, e.Last, e.Got)
}
