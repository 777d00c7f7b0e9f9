package config

import (
	"os"
	"testing"
)

func TestDefaultEngineValidates(t *testing.T) {
	cfg := DefaultEngine()
	cfg.Symbols["XAUUSD"] = SymbolRule{Symbol: "XAUUSD", Enabled: true, MaxSpread: 0.5, ContractValue: 100}
	if err := cfg.ValidateEngine(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidateEngineRejectsBadRewardMultiple(t *testing.T) {
	cfg := DefaultEngine()
	cfg.Strategy.RewardMultiple = 0
	if err := cfg.ValidateEngine(); err == nil {
		t.Fatal("expected error for zero RewardMultiple")
	}
}

func TestFromEnvOverridesToggles(t *testing.T) {
	t.Setenv("REWARD_MULTIPLE", "2.5")
	t.Setenv("AVOID_HTF_SIDEWAYS", "true")
	t.Setenv("USE_STRICT_CLOSE", "false")
	t.Setenv("MIN_HTF_CANDLES", "50")

	cfg := FromEnv(DefaultEngine())
	if cfg.Strategy.RewardMultiple != 2.5 {
		t.Fatalf("expected RewardMultiple=2.5, got %v", cfg.Strategy.RewardMultiple)
	}
	if !cfg.AvoidHTFSideways {
		t.Fatal("expected AvoidHTFSideways=true")
	}
	if cfg.Analytics.StrictClose {
		t.Fatal("expected StrictClose=false")
	}
	if cfg.Analytics.MinHTFCandles != 50 {
		t.Fatalf("expected MinHTFCandles=50, got %d", cfg.Analytics.MinHTFCandles)
	}
}

func TestFromEnvKeepsDefaultsWhenUnset(t *testing.T) {
	os.Unsetenv("REWARD_MULTIPLE")
	base := DefaultEngine()
	cfg := FromEnv(base)
	if cfg.Strategy.RewardMultiple != base.Strategy.RewardMultiple {
		t.Fatalf("expected default RewardMultiple preserved, got %v", cfg.Strategy.RewardMultiple)
	}
}

func TestNormalizeSessionNameAliasesNY(t *testing.T) {
	if got := NormalizeSessionName("NY"); got != "newyork" {
		t.Fatalf("expected newyork, got %s", got)
	}
	if got := NormalizeSessionName("London"); got != "london" {
		t.Fatalf("expected london, got %s", got)
	}
}

func TestSessionWindowContains(t *testing.T) {
	w := NewYorkSession()
	if !w.Contains(9 * 60) {
		t.Fatal("expected 09:00 to be within NY session")
	}
	if w.Contains(20 * 60) {
		t.Fatal("expected 20:00 to be outside NY session")
	}
}
