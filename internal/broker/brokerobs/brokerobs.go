package brokerobs

import (
	"context"
	"time"

	"news-trading-bot/internal/interfaces"
	"news-trading-bot/internal/logger"
	"news-trading-bot/internal/trace"
	"news-trading-bot/internal/types"
)

// observableBroker wraps a Broker with observability (logging & tracing)
type observableBroker struct {
	broker interfaces.Broker
}

// Compile-time interface check
var _ interfaces.Broker = (*observableBroker)(nil)

// Wrap wraps a broker with observability middleware
func Wrap(broker interfaces.Broker) interfaces.Broker {
	return &observableBroker{
		broker: broker,
	}
}

func (ob *observableBroker) GetAccount(ctx context.Context) (types.Account, error) {
	ctx, span := trace.StartSpan(ctx, "broker.GetAccount")
	defer span.End()

	logger.Debug(ctx, "Fetching account")

	acct, err := ob.broker.GetAccount(ctx)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to fetch account", err)
		return types.Account{}, err
	}

	logger.Debug(ctx, "Account fetched", "cash", acct.Cash.String())
	return acct, nil
}

func (ob *observableBroker) GetPositions(ctx context.Context) ([]types.Position, error) {
	ctx, span := trace.StartSpan(ctx, "broker.GetPositions")
	defer span.End()

	positions, err := ob.broker.GetPositions(ctx)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to fetch positions", err)
		return nil, err
	}

	logger.Debug(ctx, "Positions fetched", "count", len(positions))
	return positions, nil
}

func (ob *observableBroker) GetQuote(ctx context.Context, symbol string) (types.Quote, error) {
	ctx, span := trace.StartSpan(ctx, "broker.GetQuote")
	defer span.End()

	logger.Debug(ctx, "Fetching quote", "symbol", symbol)

	quote, err := ob.broker.GetQuote(ctx, symbol)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to fetch quote", err, "symbol", symbol)
		return types.Quote{}, err
	}

	logger.Debug(ctx, "Quote fetched", "symbol", symbol, "price", quote.Price.String())
	return quote, nil
}

func (ob *observableBroker) SubmitOrder(ctx context.Context, symbol string, side types.Side, qty int64) (types.Order, error) {
	ctx, span := trace.StartSpan(ctx, "broker.SubmitOrder")
	defer span.End()

	logger.Info(ctx, "Submitting order",
		"symbol", symbol,
		"side", side,
		"qty", qty,
	)

	order, err := ob.broker.SubmitOrder(ctx, symbol, side, qty)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to submit order", err,
			"symbol", symbol,
			"side", side,
			"qty", qty,
		)
		return types.Order{}, err
	}

	logger.Info(ctx, "Order submitted",
		"symbol", symbol,
		"order_id", order.ID,
		"status", order.Status,
	)
	return order, nil
}

func (ob *observableBroker) GetOrder(ctx context.Context, orderID string) (types.Order, error) {
	ctx, span := trace.StartSpan(ctx, "broker.GetOrder")
	defer span.End()

	order, err := ob.broker.GetOrder(ctx, orderID)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to fetch order", err, "order_id", orderID)
		return types.Order{}, err
	}

	logger.Debug(ctx, "Order fetched", "order_id", orderID, "status", order.Status)
	return order, nil
}

func (ob *observableBroker) CancelOrder(ctx context.Context, orderID string) error {
	ctx, span := trace.StartSpan(ctx, "broker.CancelOrder")
	defer span.End()

	logger.Info(ctx, "Canceling order", "order_id", orderID)

	if err := ob.broker.CancelOrder(ctx, orderID); err != nil {
		logger.ErrorWithErr(ctx, "Failed to cancel order", err, "order_id", orderID)
		return err
	}

	logger.Info(ctx, "Order canceled", "order_id", orderID)
	return nil
}

func (ob *observableBroker) Clock(ctx context.Context) (types.MarketClock, error) {
	ctx, span := trace.StartSpan(ctx, "broker.Clock")
	defer span.End()

	clock, err := ob.broker.Clock(ctx)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to fetch market clock", err)
		return types.MarketClock{}, err
	}

	logger.Debug(ctx, "Market clock fetched",
		"is_open", clock.IsOpen,
		"next_open", clock.NextOpen.Format(time.RFC3339),
	)
	return clock, nil
}
