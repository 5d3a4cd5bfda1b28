package paper

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"news-trading-bot/internal/interfaces"
	"news-trading-bot/internal/types"
)

// Broker is the DRY_RUN brokerage: an in-memory account with simulated
// quotes and fills. Orders stay submitted for a couple of polls before
// filling so the executor's poll loop runs the same code path as LIVE.
type Broker struct {
	mu        sync.Mutex
	cash      decimal.Decimal
	positions map[string]types.Position
	orders    map[string]*simOrder
	nextID    int
	rng       *rand.Rand
}

type simOrder struct {
	order     types.Order
	pollsLeft int
}

var _ interfaces.Broker = (*Broker)(nil)

func New(initialCapital decimal.Decimal) *Broker {
	return &Broker{
		cash:      initialCapital,
		positions: map[string]types.Position{},
		orders:    map[string]*simOrder{},
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (b *Broker) GetAccount(ctx context.Context) (types.Account, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return types.Account{Cash: b.cash, BuyingPower: b.cash}, nil
}

func (b *Broker) GetPositions(ctx context.Context) ([]types.Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]types.Position, 0, len(b.positions))
	for _, p := range b.positions {
		out = append(out, p)
	}
	return out, nil
}

// GetQuote synthesizes a stable per-symbol base price with a small jitter.
func (b *Broker) GetQuote(ctx context.Context, symbol string) (types.Quote, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	price := b.priceLocked(symbol)
	changePct := decimal.NewFromFloat((b.rng.Float64() - 0.5) * 8) // -4%..+4%

	return types.Quote{
		Symbol:    symbol,
		Price:     price,
		ChangePct: changePct,
		AsOf:      time.Now().UTC(),
	}, nil
}

func (b *Broker) priceLocked(symbol string) decimal.Decimal {
	base := 20.0
	for _, c := range symbol {
		base += float64(c)
	}
	jitter := (b.rng.Float64() - 0.5) * 2
	return decimal.NewFromFloat(base + jitter).Round(2)
}

func (b *Broker) SubmitOrder(ctx context.Context, symbol string, side types.Side, qty int64) (types.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	order := types.Order{
		ID:          fmt.Sprintf("paper-%d", b.nextID),
		Symbol:      symbol,
		Side:        side,
		Qty:         qty,
		Status:      types.OrderSubmitted,
		SubmittedAt: time.Now().UTC(),
	}

	if side == types.SideSell {
		pos, ok := b.positions[symbol]
		if !ok || pos.Qty < qty {
			order.Status = types.OrderRejected
			order.Reason = "insufficient position"
			b.orders[order.ID] = &simOrder{order: order}
			return order, nil
		}
	}

	b.orders[order.ID] = &simOrder{order: order, pollsLeft: 2}
	return order, nil
}

func (b *Broker) GetOrder(ctx context.Context, orderID string) (types.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	so, ok := b.orders[orderID]
	if !ok {
		return types.Order{}, fmt.Errorf("unknown order %s", orderID)
	}

	if so.order.Status == types.OrderSubmitted {
		so.pollsLeft--
		if so.pollsLeft <= 0 {
			b.fillLocked(so)
		}
	}

	return so.order, nil
}

func (b *Broker) fillLocked(so *simOrder) {
	price := b.priceLocked(so.order.Symbol)
	cost := price.Mul(decimal.NewFromInt(so.order.Qty))

	switch so.order.Side {
	case types.SideBuy:
		if cost.GreaterThan(b.cash) {
			so.order.Status = types.OrderRejected
			so.order.Reason = "insufficient cash"
			return
		}
		b.cash = b.cash.Sub(cost)
		pos := b.positions[so.order.Symbol]
		pos.Symbol = so.order.Symbol
		oldCost := pos.AvgEntryPrice.Mul(decimal.NewFromInt(pos.Qty))
		pos.Qty += so.order.Qty
		pos.AvgEntryPrice = oldCost.Add(cost).Div(decimal.NewFromInt(pos.Qty))
		b.positions[so.order.Symbol] = pos

	case types.SideSell:
		b.cash = b.cash.Add(cost)
		pos := b.positions[so.order.Symbol]
		pos.Qty -= so.order.Qty
		if pos.Qty <= 0 {
			delete(b.positions, so.order.Symbol)
		} else {
			b.positions[so.order.Symbol] = pos
		}
	}

	so.order.Status = types.OrderFilled
	so.order.FilledQty = so.order.Qty
	so.order.FillPrice = price
}

func (b *Broker) CancelOrder(ctx context.Context, orderID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	so, ok := b.orders[orderID]
	if !ok {
		return fmt.Errorf("unknown order %s", orderID)
	}
	if !so.order.Status.Terminal() {
		so.order.Status = types.OrderCanceled
	}
	return nil
}

func (b *Broker) Clock(ctx context.Context) (types.MarketClock, error) {
	return types.MarketClock{IsOpen: true}, nil
}
