package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"news-trading-bot/internal/broker/alpaca"
	"news-trading-bot/internal/broker/brokerobs"
	"news-trading-bot/internal/broker/paper"
	"news-trading-bot/internal/engine"
	"news-trading-bot/internal/engine/engineobs"
	"news-trading-bot/internal/interfaces"
	"news-trading-bot/internal/llm/llmobs"
	"news-trading-bot/internal/llm/noop"
	"news-trading-bot/internal/llm/openai"
	"news-trading-bot/internal/logger"
	"news-trading-bot/internal/news"
	"news-trading-bot/internal/portfolio"
	"news-trading-bot/internal/queue"
	"news-trading-bot/internal/sentiment"
	"news-trading-bot/internal/store"
	"news-trading-bot/internal/symbols"
	"news-trading-bot/internal/trace"
	"news-trading-bot/internal/tradelog"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// initializeSystem initializes environment, logger and tracer
func initializeSystem() error {
	// Load environment variables
	_ = godotenv.Load()

	// Initialize logger
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Initialize tracer
	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}

	return nil
}

// loadConfig loads and returns the configuration
func loadConfig(ctx context.Context, path string) (*store.Config, error) {
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}

	// Trade and decision history live under the same state directory as
	// the snapshot, the queue and the cycle artifacts.
	tradelog.SetDir(cfg.State.Dir)

	return cfg, nil
}

// compressOldLogs compresses old tradelog files if retention is configured
func compressOldLogs(ctx context.Context) {
	if v := os.Getenv("TRADER_LOG_RETENTION_DAYS"); v != "" {
		var n int
		fmt.Sscanf(v, "%d", &n)
		if err := tradelog.CompressOlder(n); err != nil {
			logger.Warn(ctx, "Failed to compress old logs", "error", err)
		}
	}
}

// initializeBroker initializes and returns the broker instance with observability
func initializeBroker(ctx context.Context, cfg *store.Config) interfaces.Broker {
	var brk interfaces.Broker
	if cfg.Mode == "DRY_RUN" {
		logger.Warn(ctx, "Running in DRY_RUN mode - orders will be simulated")
		brk = paper.New(decimal.NewFromFloat(cfg.Risk.InitialCapital))
	} else {
		logger.Info(ctx, "Using LIVE Alpaca brokerage")
		brk = alpaca.New(cfg.Risk.ChaseWindowDays)
	}

	// Wrap with observability middleware
	return brokerobs.Wrap(brk)
}

// initializeCompleter initializes and returns the LLM completer with observability
func initializeCompleter(ctx context.Context, cfg *store.Config) interfaces.Completer {
	var llm interfaces.Completer

	switch cfg.LLM.Provider {
	case "OPENAI":
		llm = openai.NewOpenAICompleter(cfg)
	default:
		llm = noop.NewNoopCompleter()
		logger.Warn(ctx, "No LLM provider configured - using Noop completer (always Neutral)")
	}

	// Wrap with observability middleware
	return llmobs.Wrap(llm)
}

// initializeEngine assembles the cycle orchestrator with observability
func initializeEngine(cfg *store.Config, brk interfaces.Broker, llm interfaces.Completer) interfaces.Engine {
	var newsSvc interfaces.NewsProvider
	switch cfg.News.Provider {
	case "GOOGLENEWS":
		newsSvc = news.NewGoogleNewsService(cfg.News.MaxArticles)
	default:
		newsSvc = news.NewService(cfg.News.MaxArticles, cfg.News.GoogleNewsFallback)
	}
	classifier := sentiment.NewClassifier(llm, cfg.LLM.System)
	resolver := symbols.NewResolver(cfg.Universe.Companies, cfg.Universe.Aliases, cfg.Resolver.FuzzyThreshold)
	tracker := portfolio.NewTracker(cfg.State.Dir)
	q := queue.New(cfg.State.Dir, time.Duration(cfg.Queue.MaxAgeHours)*time.Hour)

	eng := engine.New(cfg, brk, newsSvc, classifier, resolver, tracker, q)

	// Wrap with observability middleware
	return engineobs.Wrap(eng)
}
