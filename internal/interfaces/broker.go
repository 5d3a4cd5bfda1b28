package interfaces

import (
	"context"

	"news-trading-bot/internal/types"
)

// Broker is the narrow brokerage contract the engine depends on.
type Broker interface {
	GetAccount(ctx context.Context) (types.Account, error)
	GetPositions(ctx context.Context) ([]types.Position, error)
	GetQuote(ctx context.Context, symbol string) (types.Quote, error)
	SubmitOrder(ctx context.Context, symbol string, side types.Side, qty int64) (types.Order, error)
	GetOrder(ctx context.Context, orderID string) (types.Order, error)
	CancelOrder(ctx context.Context, orderID string) error
	Clock(ctx context.Context) (types.MarketClock, error)
}
