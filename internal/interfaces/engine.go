package interfaces

import (
	"context"

	"news-trading-bot/internal/types"
)

// Engine runs one full pass over the symbol universe. This is the single
// entry point the external scheduler invokes.
type Engine interface {
	RunCycle(ctx context.Context) (*types.CycleResult, error)
}
