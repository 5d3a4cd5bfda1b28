package noop

import (
	"context"

	"news-trading-bot/internal/logger"
)

// NoopCompleter is the fallback used when no LLM provider is configured.
// Every response parses to a Neutral judgment with no companies, so the
// engine holds everything.
type NoopCompleter struct{}

func NewNoopCompleter() *NoopCompleter {
	return &NoopCompleter{}
}

func (c *NoopCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	logger.Debug(ctx, "Noop completer called - always returns Neutral")
	return `{"sentiment": "Neutral", "related_companies": []}`, nil
}
