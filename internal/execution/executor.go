package execution

import (
	"context"
	"errors"
	"time"

	"news-trading-bot/internal/interfaces"
	"news-trading-bot/internal/logger"
	"news-trading-bot/internal/trace"
	"news-trading-bot/internal/types"
)

var (
	// ErrRejected means the brokerage refused the order; no state mutation.
	ErrRejected = errors.New("order rejected by brokerage")
	// ErrTimeout means the fill deadline passed with no terminal state; the
	// order is canceled locally and the symbol must be reconciled against
	// the brokerage before the next cycle.
	ErrTimeout = errors.New("order fill timed out")
)

// maxPollFailures bounds consecutive GetOrder failures before the executor
// gives up and takes the timeout path.
const maxPollFailures = 5

// Executor drives one order from submission to a terminal state:
// submitted -> filled | rejected | canceled. A partial fill is in-flight
// and keeps being polled; it becomes a result only when the fill timeout
// cancels the working remainder.
type Executor struct {
	brk          interfaces.Broker
	pollInterval time.Duration
	maxBackoff   time.Duration
	fillTimeout  time.Duration
}

func New(brk interfaces.Broker, pollInterval, maxBackoff, fillTimeout time.Duration) *Executor {
	return &Executor{
		brk:          brk,
		pollInterval: pollInterval,
		maxBackoff:   maxBackoff,
		fillTimeout:  fillTimeout,
	}
}

// Execute submits a market order and polls until it reaches a terminal
// state or the fill timeout expires. The returned order always carries a
// terminal status; an order is never abandoned as merely submitted.
func (e *Executor) Execute(ctx context.Context, symbol string, side types.Side, qty int64) (types.Order, error) {
	ctx, span := trace.StartSpan(ctx, "execute-order")
	defer span.End()

	order, err := e.brk.SubmitOrder(ctx, symbol, side, qty)
	if err != nil {
		return types.Order{Symbol: symbol, Side: side, Qty: qty, Status: OrderStatusFromError(err)}, err
	}

	logger.Info(ctx, "Order submitted", "symbol", symbol, "side", side, "qty", qty, "order_id", order.ID)

	if order.Status.Terminal() {
		return e.finish(ctx, order)
	}

	deadline := time.Now().Add(e.fillTimeout)
	wait := e.pollInterval
	failures := 0

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return e.abort(ctx, order, ctx.Err())
		case <-time.After(wait):
		}

		// Capped exponential backoff between polls.
		wait *= 2
		if wait > e.maxBackoff {
			wait = e.maxBackoff
		}

		polled, perr := e.brk.GetOrder(ctx, order.ID)
		if perr != nil {
			failures++
			logger.Warn(ctx, "Order status poll failed", "order_id", order.ID, "failures", failures, "error", perr)
			if failures >= maxPollFailures {
				return e.abort(ctx, order, perr)
			}
			continue
		}
		failures = 0
		order = polled

		if order.Status.Terminal() {
			return e.finish(ctx, order)
		}
		logger.Debug(ctx, "Order not yet terminal", "order_id", order.ID,
			"status", order.Status, "filled_qty", order.FilledQty)
	}

	return e.abort(ctx, order, ErrTimeout)
}

// finish maps a terminal brokerage status onto the executor's result.
func (e *Executor) finish(ctx context.Context, order types.Order) (types.Order, error) {
	switch order.Status {
	case types.OrderRejected:
		logger.Warn(ctx, "Order rejected", "order_id", order.ID, "symbol", order.Symbol, "reason", order.Reason)
		return order, ErrRejected
	case types.OrderFilled:
		logger.Info(ctx, "Order filled", "order_id", order.ID,
			"filled_qty", order.FilledQty, "fill_price", order.FillPrice.String())
		return order, nil
	default: // canceled remotely
		logger.Warn(ctx, "Order canceled by brokerage", "order_id", order.ID)
		return order, nil
	}
}

// abort handles the timeout/cancellation path: best-effort remote cancel,
// one final authoritative poll, then a local canceled status if the
// brokerage still reports nothing terminal. A fill landed by then is
// recorded; a partial fill still returns ErrTimeout so the caller flags
// the symbol for reconciliation.
func (e *Executor) abort(ctx context.Context, order types.Order, cause error) (types.Order, error) {
	logger.Warn(ctx, "Order fill deadline reached, canceling", "order_id", order.ID, "cause", cause)

	// Use a fresh context: the cycle's context may already be canceled and
	// the remote order must still be resolved before we exit.
	cancelCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := e.brk.CancelOrder(cancelCtx, order.ID); err != nil {
		logger.ErrorWithErr(cancelCtx, "Remote cancel failed", err, "order_id", order.ID)
	}

	if polled, err := e.brk.GetOrder(cancelCtx, order.ID); err == nil {
		order = polled
	}

	switch {
	case order.Status == types.OrderFilled:
		// The whole order filled before the cancel landed.
		return e.finish(cancelCtx, order)
	case order.Status == types.OrderRejected:
		return e.finish(cancelCtx, order)
	case order.FilledQty > 0:
		// Part of the order filled; the remainder is canceled (or unknown
		// until reconciliation). Record the filled part.
		order.Status = types.OrderPartiallyFilled
		order.Reason = "fill timeout, remainder canceled"
		logger.Warn(cancelCtx, "Order partially filled at timeout", "order_id", order.ID,
			"filled_qty", order.FilledQty, "qty", order.Qty)
		return order, ErrTimeout
	case order.Status == types.OrderCanceled:
		return order, ErrTimeout
	default:
		// Local record only; brokerage state is unknown until the next
		// cycle reconciles it.
		order.Status = types.OrderCanceled
		order.Reason = "fill timeout, canceled locally"
		return order, ErrTimeout
	}
}

// OrderStatusFromError maps a submit failure onto a local terminal status.
func OrderStatusFromError(err error) types.OrderStatus {
	if errors.Is(err, ErrRejected) {
		return types.OrderRejected
	}
	return types.OrderCanceled
}
