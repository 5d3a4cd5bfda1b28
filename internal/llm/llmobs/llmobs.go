package llmobs

import (
	"context"
	"time"

	"news-trading-bot/internal/interfaces"
	"news-trading-bot/internal/logger"
	"news-trading-bot/internal/trace"
)

// observableCompleter wraps a Completer with observability (logging & tracing)
type observableCompleter struct {
	llm interfaces.Completer
}

// Compile-time interface check
var _ interfaces.Completer = (*observableCompleter)(nil)

// Wrap wraps a completer with observability middleware
func Wrap(llm interfaces.Completer) interfaces.Completer {
	return &observableCompleter{
		llm: llm,
	}
}

func (oc *observableCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	ctx, span := trace.StartSpan(ctx, "llm.Complete")
	defer span.End()

	logger.Debug(ctx, "Requesting completion", "prompt_len", len(user))

	start := time.Now()
	resp, err := oc.llm.Complete(ctx, system, user)
	if err != nil {
		logger.ErrorWithErr(ctx, "Completion failed", err, "duration_ms", time.Since(start).Milliseconds())
		return "", err
	}

	logger.Debug(ctx, "Completion received",
		"response_len", len(resp),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return resp, nil
}
