// Package newsguard implements the news/guardrail adapter boundary of spec
// §6: canTradeNow(strategy) -> {mode, reasons}. It is a declared external
// collaborator, so only the contract and a fail-safe wrapper live here — no
// concrete news-feed client. Grounded on the teacher's event-driven overlay
// idea (a toggleable external condition gating trade permission) and on
// broker.Adapter's Disabled-fails-closed pattern in this repo.
package newsguard

import (
	"context"
	"errors"

	"github.com/evdnx/ictengine/logger"
)

// Mode is the guardrail's closed enumeration of trading permission states
// (spec §6).
type Mode string

const (
	Normal  Mode = "normal"
	Reduced Mode = "reduced"
	Blocked Mode = "blocked"
)

// Verdict is the result of a canTradeNow query.
type Verdict struct {
	Mode    Mode
	Reasons []string
}

// Guard is the news/guardrail adapter contract.
type Guard interface {
	CanTradeNow(ctx context.Context, strategy string) (Verdict, error)
}

// FailSafe wraps a Guard so that any error (including context deadline or
// the adapter being unreachable) is treated as Blocked rather than
// propagated, per spec §6: "If the adapter is unreachable, the core
// treats mode as blocked (fail-safe)."
type FailSafe struct {
	inner Guard
	log   logger.Logger
}

// NewFailSafe wraps inner with the blocked-on-error policy. inner may be
// nil, in which case every query returns Blocked without attempting a call.
func NewFailSafe(inner Guard, log logger.Logger) *FailSafe {
	return &FailSafe{inner: inner, log: log}
}

func (f *FailSafe) CanTradeNow(ctx context.Context, strategy string) (Verdict, error) {
	if f.inner == nil {
		return Verdict{Mode: Blocked, Reasons: []string{"guardrail adapter not configured"}}, nil
	}
	v, err := f.inner.CanTradeNow(ctx, strategy)
	if err != nil {
		if f.log != nil {
			f.log.Warn("guardrail unreachable, failing closed", logger.String("strategy", strategy), logger.Err(err))
		}
		return Verdict{Mode: Blocked, Reasons: []string{"news adapter unreachable: " + err.Error()}}, nil
	}
	return v, nil
}

// Unconfigured is a Guard that always errors, used as the zero-value
// adapter before one is wired; FailSafe turns its error into Blocked.
type Unconfigured struct{}

func (Unconfigured) CanTradeNow(ctx context.Context, strategy string) (Verdict, error) {
	return Verdict{}, errors.New("news guardrail not configured")
}
