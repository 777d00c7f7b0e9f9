// Command replay is the thin CLI entry point for C10 replay mode (spec
// §4.10). Flag parsing stays stdlib-minimal by design (spec's explicit
// out-of-scope note on CLI tooling); everything else — config resolution,
// candle loading, the scheduler loop — is delegated to the engine
// packages. Exit codes follow spec §6:
//
//	0 success
//	1 configuration error
//	2 data loading error
//	3 replay cancelled
//	4 internal invariant violation
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/evdnx/ictengine/config"
	"github.com/evdnx/ictengine/logger"
	"github.com/evdnx/ictengine/newsguard"
	"github.com/evdnx/ictengine/persistence"
	"github.com/evdnx/ictengine/scheduler"
	"github.com/evdnx/ictengine/strategy"
	"github.com/evdnx/ictengine/types"
)

const timeLayout = time.RFC3339

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("replay", flag.ContinueOnError)
	symbolsFlag := fs.String("symbols", "", "comma-separated list of symbols to replay, e.g. XAUUSD,EURUSD")
	dataDir := fs.String("data-dir", "./data", "directory of <symbol>_<timeframe>.csv M1 candle files")
	fromFlag := fs.String("from", "", "replay start, RFC3339 (e.g. 2024-01-01T00:00:00Z)")
	toFlag := fs.String("to", "", "replay end, RFC3339")
	decisionLog := fs.String("decision-log", "", "optional path to write a JSONL decision log (empty disables it)")
	initialBalance := fs.Float64("initial-balance", 10_000, "starting simulated account balance")
	defaultSpreadHalf := fs.Float64("spread-half", 0, "flat half-spread used by the simulated fill model")
	globalMaxConcurrent := fs.Int("global-max-concurrent", 0, "cap on open positions across all symbols (0 = unbounded)")
	globalMaxExposure := fs.Float64("global-max-exposure", 0, "cap on total risk exposure across all symbols (0 = unbounded)")
	legacy := fs.Bool("legacy-strategy", false, "use the legacy confluence strategy instead of the ICT pipeline")
	bypassGuardrail := fs.Bool("bypass-guardrail", false, "skip the news guardrail entirely (no real news adapter is wired into this CLI; spec's fail-safe default blocks every trade absent one)")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	symbols := splitSymbols(*symbolsFlag)
	if len(symbols) == 0 {
		fmt.Fprintln(os.Stderr, "replay: at least one symbol is required (-symbols)")
		return 1
	}
	from, err := time.Parse(timeLayout, *fromFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: invalid -from: %v\n", err)
		return 1
	}
	to, err := time.Parse(timeLayout, *toFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: invalid -to: %v\n", err)
		return 1
	}
	if !to.After(from) {
		fmt.Fprintln(os.Stderr, "replay: -to must be after -from")
		return 1
	}

	log, err := logger.NewZapLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: failed to build logger: %v\n", err)
		return 1
	}

	cfg := config.FromEnv(config.DefaultEngine())
	cfg.Scheduler.InitialBalance = *initialBalance
	cfg.Scheduler.DefaultSpreadHalf = *defaultSpreadHalf
	cfg.Scheduler.GlobalMaxConcurrent = *globalMaxConcurrent
	cfg.Scheduler.GlobalMaxExposure = *globalMaxExposure
	cfg.RequireICTPipeline = !*legacy
	for _, sym := range symbols {
		rule := cfg.SymbolRuleFor(sym)
		rule.Symbol = sym
		rule.Enabled = true
		if rule.ContractValue == 0 {
			rule.ContractValue = 1
		}
		cfg.Symbols[sym] = rule
	}
	if err := cfg.ValidateEngine(); err != nil {
		log.Error("invalid configuration", logger.Err(err))
		return 1
	}

	source := persistence.NewCSVHistoricalSource(*dataDir)

	var sink persistence.DecisionSink = persistence.NullSink{}
	if *decisionLog != "" {
		jsonlSink, err := persistence.NewJSONLSink(*decisionLog, log)
		if err != nil {
			log.Error("failed to open decision log", logger.Err(err))
			return 1
		}
		defer jsonlSink.Close()
		sink = jsonlSink
	}

	// nowFn is a placeholder at construction time; the scheduler overrides
	// it every tick via strategy.TimeAware.SetNow with the candle's own
	// timestamp, so the zero time here is never actually observed.
	zeroNow := func() time.Time { return time.Time{} }
	newStrategy := func(symbol string) (strategy.Strategy, error) {
		if cfg.RequireICTPipeline {
			return strategy.NewICTPipeline(zeroNow), nil
		}
		return strategy.NewLegacyConfluence(symbol, config.DefaultStrategyConfig(), log, zeroNow)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Warn("signal received, cancelling at the next tick boundary")
		cancel()
	}()
	defer cancel()

	var guard newsguard.Guard = newsguard.Unconfigured{}
	if *bypassGuardrail {
		guard = alwaysNormalGuard{}
	}
	r := scheduler.NewReplay(symbols, from, to, source, cfg, newStrategy, guard, sink, log)
	result, err := r.Run(ctx)
	if err != nil {
		log.Error("replay failed", logger.Err(err))
		var outOfOrder *types.OutOfOrderError
		var invariant *types.InvariantError
		if errors.As(err, &outOfOrder) || errors.As(err, &invariant) {
			return 4
		}
		return 2
	}

	if result.Summary.Cancelled {
		log.Warn("replay cancelled", logger.Int("ticks_processed", result.Summary.TicksProcessed))
		printSummary(result.Summary)
		return 3
	}

	printSummary(result.Summary)
	return 0
}

func splitSymbols(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// alwaysNormalGuard is a local stand-in for -bypass-guardrail: no real
// news adapter is wired into this CLI (spec §1 treats it as an external
// collaborator), so this is the explicit opt-in to skip fail-safe blocking
// during a backtest rather than the engine silently doing so.
type alwaysNormalGuard struct{}

func (alwaysNormalGuard) CanTradeNow(ctx context.Context, strategyTag string) (newsguard.Verdict, error) {
	return newsguard.Verdict{Mode: newsguard.Normal}, nil
}

func printSummary(s scheduler.Summary) {
	fmt.Printf("ticks=%d trades_opened=%d trades_closed=%d final_equity=%.2f cancelled=%t\n",
		s.TicksProcessed, s.TradesOpened, s.TradesClosed, s.FinalEquity, s.Cancelled)
}
