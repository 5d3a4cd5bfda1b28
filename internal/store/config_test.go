package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const minimalConfig = `
mode: DRY_RUN
universe:
  symbols: [AAPL, TSLA]
  companies:
    apple: AAPL
    tesla: TSLA
risk:
  initial_capital: 100000
  max_position_pct: 0.10
`

func TestLoadConfigAppliesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Expected load to succeed, got %v", err)
	}

	if cfg.Resolver.FuzzyThreshold != 0.85 {
		t.Errorf("Expected default fuzzy threshold 0.85, got %v", cfg.Resolver.FuzzyThreshold)
	}
	if cfg.News.MaxArticles != 10 {
		t.Errorf("Expected default max articles 10, got %d", cfg.News.MaxArticles)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("Expected default model, got %s", cfg.LLM.Model)
	}
	if cfg.Risk.ChaseThresholdPct != 5.0 || cfg.Risk.ChaseWindowDays != 5 {
		t.Errorf("Expected default chase guard 5%% over 5 days, got %v over %d",
			cfg.Risk.ChaseThresholdPct, cfg.Risk.ChaseWindowDays)
	}
	if cfg.Orders.PollIntervalSeconds != 2 || cfg.Orders.FillTimeoutSeconds != 60 {
		t.Errorf("Expected default order polling, got %+v", cfg.Orders)
	}
	if cfg.State.Dir != "data" {
		t.Errorf("Expected default state dir, got %s", cfg.State.Dir)
	}
}

func TestLoadConfigInvalidMode(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, strings.Replace(minimalConfig, "DRY_RUN", "PAPER", 1)))
	if err == nil {
		t.Fatal("Expected validation error for unknown mode")
	}
}

func TestLoadConfigEmptyUniverse(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
mode: DRY_RUN
universe:
  symbols: []
risk:
  initial_capital: 100000
  max_position_pct: 0.10
`))
	if err == nil {
		t.Fatal("Expected validation error for empty universe")
	}
}

func TestLoadConfigBadPositionPct(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, strings.Replace(minimalConfig, "0.10", "1.5", 1)))
	if err == nil {
		t.Fatal("Expected validation error for max_position_pct > 1")
	}
}

func TestLoadConfigNewsProvider(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Expected load to succeed, got %v", err)
	}
	if cfg.News.Provider != "NEWSAPI" {
		t.Errorf("Expected default news provider NEWSAPI, got %s", cfg.News.Provider)
	}

	cfg, err = LoadConfig(writeConfig(t, minimalConfig+"\nnews:\n  provider: googlenews\n"))
	if err != nil {
		t.Fatalf("Expected lowercase provider to be accepted, got %v", err)
	}
	if cfg.News.Provider != "GOOGLENEWS" {
		t.Errorf("Expected provider normalized to GOOGLENEWS, got %s", cfg.News.Provider)
	}

	_, err = LoadConfig(writeConfig(t, minimalConfig+"\nnews:\n  provider: RSS\n"))
	if err == nil {
		t.Fatal("Expected validation error for unknown news provider")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Expected error for missing config file")
	}
}
