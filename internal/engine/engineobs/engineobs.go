package engineobs

import (
	"context"
	"time"

	"news-trading-bot/internal/interfaces"
	"news-trading-bot/internal/logger"
	"news-trading-bot/internal/trace"
	"news-trading-bot/internal/types"
)

type observableEngine struct {
	engine interfaces.Engine
}

var _ interfaces.Engine = (*observableEngine)(nil)

func Wrap(eng interfaces.Engine) interfaces.Engine {
	return &observableEngine{
		engine: eng,
	}
}

func (oe *observableEngine) RunCycle(ctx context.Context) (*types.CycleResult, error) {
	ctx, span := trace.StartSpan(ctx, "engine.RunCycle")
	defer span.End()

	start := time.Now()

	logger.Info(ctx, "Starting trading cycle")

	result, err := oe.engine.RunCycle(ctx)
	if err != nil {
		logger.ErrorWithErr(ctx, "Trading cycle failed", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return result, err
	}

	logger.Info(ctx, "Trading cycle completed",
		"articles", result.Articles,
		"outcomes", len(result.Outcomes),
		"unresolved", len(result.Unresolved),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return result, nil
}
