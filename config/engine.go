// Engine-wide configuration: the per-symbol rules, strategy rules,
// analytic parameters and scheduler options described in spec §6, plus the
// one-time translation of the recognized environment-style toggles into an
// immutable Config value (spec §9 "module-level / global mutable state").
// Nothing downstream of FromEnv reads os.Getenv; everything takes Config by
// value.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/evdnx/ictengine/types"
)

// SessionWindow is a [start,end) engine-time-of-day window, expressed in
// minutes since UTC midnight, used by the SessionWindow execution gate.
type SessionWindow struct {
	Name     string
	StartMin int
	EndMin   int
}

// Contains reports whether minuteOfDay falls within the window.
func (w SessionWindow) Contains(minuteOfDay int) bool {
	return minuteOfDay >= w.StartMin && minuteOfDay < w.EndMin
}

// SymbolRule holds the per-symbol execution and detector tuning described
// in spec §6 "Configuration surface".
type SymbolRule struct {
	Symbol                 string
	Enabled                bool
	AllowedDirections      []types.Direction
	MinConfluence          int
	RequireBOS             bool
	RequireSweep           bool
	RequireDisplacement    bool
	RequireFVG             bool
	EnforcePremiumDiscount bool
	AllowedHTFTrends       []types.Trend
	Sessions               []SessionWindow
	CooldownMinutes        int
	MaxTradesPerDay        int
	MaxConcurrentSymbol    int
	MaxConcurrentPerDir    int
	MaxSpread              float64
	MinFVGSize             float64
	OBWickRatio            float64
	DisplacementATRMult    float64
	MinRiskDistance        float64
	MaxRiskDistancePct     float64 // e.g. 0.02 == 2% of entry
	SLBuffer               float64
	DailyExtremeBuffer     float64
	ContractValue          float64
	Commission             float64
	Swap                   float64

	// Lot-sizing constraints passed through to risk.CalcQty (spec §6): the
	// broker's smallest tradable increment, the decimal precision to
	// truncate to, and the minimum tradable size. Zero values disable the
	// corresponding constraint.
	LotStepSize float64
	LotPrecision int
	MinLotSize   float64
}

// StrategyRule holds per-strategy risk and reward tuning (spec §6).
type StrategyRule struct {
	RiskPerTradePct float64
	DailyLossCapPct float64
	MaxTradesPerDay int
	RewardMultiple  float64
	AllowedSessions []SessionWindow
}

// AnalyticParams holds aggregator/analytic-wide parameters (spec §6).
type AnalyticParams struct {
	StrictClose        bool
	SwingMinPairs      int
	RollingLookback    int
	TrendSwingWindow   int
	M15SetupWindow     int     // W in spec §4.8 step 2
	M1RefinementWindow int     // L in spec §4.8 step 4
	ZoneBufferFrac     float64 // default 0.10
	EntryEpsilonFrac   float64 // ε in spec §4.8 step 7
	MinHTFCandles      int
	MinITFCandles      int
	MinLTFCandles      int

	PivotWidthHTF int // default 5
	PivotWidthITF int // default 3
	PivotWidthLTF int // default 2

	DisplacementBodyMult float64 // body > prev_body * k, default 1.5

	CandleBufferSize int // per (symbol,timeframe), default 1000
}

// SchedulerOptions holds replay/live scheduler-wide options (spec §6).
type SchedulerOptions struct {
	InitialBalance      float64
	GlobalMaxConcurrent int     // gate 12 cap across all symbols, spec §4.9
	GlobalMaxExposure   float64 // gate 13 cap across all symbols, spec §4.9
	DefaultSpreadHalf   float64 // flat half-spread used by the simulated broker's fill model absent per-symbol spread feed
}

// Config is the fully-resolved, immutable configuration for one run.
type Config struct {
	AvoidHTFSideways   bool
	RelaxedFilters     bool
	RequireICTPipeline bool

	Symbols   map[string]SymbolRule
	Strategy  StrategyRule
	Analytics AnalyticParams
	Scheduler SchedulerOptions
}

// SymbolRuleFor returns the rule for symbol, or a disabled zero-value rule
// if none is configured — callers must check Enabled.
func (c Config) SymbolRuleFor(symbol string) SymbolRule {
	if r, ok := c.Symbols[symbol]; ok {
		return r
	}
	return SymbolRule{Symbol: symbol, Enabled: false}
}

// ValidateEngine checks the structural bounds of the engine-wide Config
// before a run starts (distinct from StrategyConfig.Validate, which guards
// the legacy goti-based strategy's own tunables).
func (c Config) ValidateEngine() error {
	if c.Strategy.RewardMultiple <= 0 {
		return fmt.Errorf("RewardMultiple must be positive, got %v", c.Strategy.RewardMultiple)
	}
	if c.Analytics.SwingMinPairs <= 0 {
		return fmt.Errorf("SwingMinPairs must be positive")
	}
	if c.Analytics.ZoneBufferFrac < 0 {
		return fmt.Errorf("ZoneBufferFrac cannot be negative")
	}
	if c.Analytics.CandleBufferSize <= 0 {
		return fmt.Errorf("CandleBufferSize must be positive")
	}
	for sym, rule := range c.Symbols {
		if rule.MaxSpread < 0 {
			return fmt.Errorf("symbol %s: MaxSpread cannot be negative", sym)
		}
		if rule.ContractValue <= 0 {
			return fmt.Errorf("symbol %s: ContractValue must be positive", sym)
		}
	}
	return nil
}

func envToggle(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return fallback
	}
}

func envFloat(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// DefaultEngine returns a Config with the spec's documented defaults,
// before any environment-style overrides are applied.
func DefaultEngine() Config {
	return Config{
		AvoidHTFSideways:   false,
		RelaxedFilters:     false,
		RequireICTPipeline: true,
		Symbols:            map[string]SymbolRule{},
		Strategy: StrategyRule{
			RiskPerTradePct: 0.01,
			DailyLossCapPct: 0.05,
			MaxTradesPerDay: 10,
			RewardMultiple:  3.0,
		},
		Analytics: AnalyticParams{
			StrictClose:          true,
			SwingMinPairs:        4,
			RollingLookback:      20,
			TrendSwingWindow:     2,
			M15SetupWindow:       20,
			M1RefinementWindow:   10,
			ZoneBufferFrac:       0.10,
			EntryEpsilonFrac:     0.0005,
			MinHTFCandles:        30,
			MinITFCandles:        30,
			MinLTFCandles:        30,
			PivotWidthHTF:        5,
			PivotWidthITF:        3,
			PivotWidthLTF:        2,
			DisplacementBodyMult: 1.5,
			CandleBufferSize:     1000,
		},
		Scheduler: SchedulerOptions{
			InitialBalance: 10_000,
		},
	}
}

// FromEnv resolves the spec §6 recognized toggles on top of base, returning
// a new, fully-resolved Config. It performs the ONE-TIME translation from
// environment-style toggles into the immutable struct; nothing else in the
// engine reads os.Getenv.
func FromEnv(base Config) Config {
	c := base
	c.AvoidHTFSideways = envToggle("AVOID_HTF_SIDEWAYS", c.AvoidHTFSideways)
	c.RelaxedFilters = envToggle("RELAXED_FILTERS", c.RelaxedFilters)
	c.RequireICTPipeline = envToggle("REQUIRE_ICT_PIPELINE", c.RequireICTPipeline)
	c.Analytics.StrictClose = envToggle("USE_STRICT_CLOSE", c.Analytics.StrictClose)
	c.Strategy.RewardMultiple = envFloat("REWARD_MULTIPLE", c.Strategy.RewardMultiple)
	c.Analytics.MinHTFCandles = envInt("MIN_HTF_CANDLES", c.Analytics.MinHTFCandles)
	c.Analytics.MinITFCandles = envInt("MIN_ITF_CANDLES", c.Analytics.MinITFCandles)
	c.Analytics.MinLTFCandles = envInt("MIN_LTF_CANDLES", c.Analytics.MinLTFCandles)
	return c
}

// NewYorkSession and LondonSession are the default §4.9 session windows.
func NewYorkSession() SessionWindow {
	return SessionWindow{Name: "newyork", StartMin: 8 * 60, EndMin: 16 * 60}
}
func LondonSession() SessionWindow {
	return SessionWindow{Name: "london", StartMin: 3 * 60, EndMin: 11 * 60}
}

// NormalizeSessionName maps recognized aliases (spec §4.9: "ny"→"newyork")
// to their canonical form.
func NormalizeSessionName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "ny" {
		return "newyork"
	}
	return n
}
