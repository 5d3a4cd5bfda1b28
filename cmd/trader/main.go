package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"news-trading-bot/internal/interfaces"
	"news-trading-bot/internal/logger"
	"news-trading-bot/internal/portfolio"
	"news-trading-bot/internal/trace"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "path to config file")
		once       = flag.Bool("once", false, "run a single cycle and exit")
		interval   = flag.Duration("interval", 15*time.Minute, "time between cycles")
	)
	flag.Parse()

	if err := initializeSystem(); err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer func() {
		_ = trace.Shutdown(context.Background())
	}()

	cfg, err := loadConfig(ctx, *configPath)
	if err != nil {
		os.Exit(1)
	}

	compressOldLogs(ctx)

	brk := initializeBroker(ctx, cfg)
	llm := initializeCompleter(ctx, cfg)
	eng := initializeEngine(cfg, brk, llm)

	if *once {
		if _, err := eng.RunCycle(ctx); err != nil {
			logger.ErrorWithErr(ctx, "Cycle failed", err)
			os.Exit(1)
		}
		return
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	logger.Info(ctx, "Trader started", "mode", cfg.Mode, "interval", interval.String())

	tick := time.NewTicker(*interval)
	defer tick.Stop()

	runCycle(ctx, eng)
	for {
		select {
		case <-tick.C:
			runCycle(ctx, eng)
		case <-sigc:
			logger.Info(ctx, "Shutting down...")
			return
		case <-ctx.Done():
			return
		}
	}
}

func runCycle(ctx context.Context, eng interfaces.Engine) {
	if _, err := eng.RunCycle(ctx); err != nil {
		if errors.Is(err, portfolio.ErrCycleRunning) {
			logger.Warn(ctx, "Previous cycle still running, skipping")
			return
		}
		logger.ErrorWithErr(ctx, "Cycle failed", err)
	}
}
