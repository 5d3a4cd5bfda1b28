package alpaca

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"

	"news-trading-bot/internal/interfaces"
	"news-trading-bot/internal/types"
)

// Broker implements the engine's brokerage contract against Alpaca.
// Credentials come from the standard APCA_* environment variables, which
// the SDK clients read on construction.
type Broker struct {
	tradeClient     *alpaca.Client
	mdClient        *marketdata.Client
	chaseWindowDays int
}

var _ interfaces.Broker = (*Broker)(nil)

func New(chaseWindowDays int) *Broker {
	return &Broker{
		tradeClient:     alpaca.NewClient(alpaca.ClientOpts{}),
		mdClient:        marketdata.NewClient(marketdata.ClientOpts{}),
		chaseWindowDays: chaseWindowDays,
	}
}

func (b *Broker) GetAccount(ctx context.Context) (types.Account, error) {
	acct, err := b.tradeClient.GetAccount()
	if err != nil {
		return types.Account{}, fmt.Errorf("alpaca account: %w", err)
	}
	return types.Account{
		Cash:        acct.Cash,
		BuyingPower: acct.BuyingPower,
	}, nil
}

func (b *Broker) GetPositions(ctx context.Context) ([]types.Position, error) {
	alpacaPositions, err := b.tradeClient.GetPositions()
	if err != nil {
		return nil, fmt.Errorf("alpaca positions: %w", err)
	}

	positions := make([]types.Position, 0, len(alpacaPositions))
	for _, p := range alpacaPositions {
		unrealized := decimal.Zero
		if p.UnrealizedPL != nil {
			unrealized = *p.UnrealizedPL
		}
		positions = append(positions, types.Position{
			Symbol:        p.Symbol,
			Qty:           p.Qty.IntPart(),
			AvgEntryPrice: p.AvgEntryPrice,
			UnrealizedPL:  unrealized,
		})
	}
	return positions, nil
}

// GetQuote returns the latest trade price plus the trailing change over the
// chase window, computed from daily bars.
func (b *Broker) GetQuote(ctx context.Context, symbol string) (types.Quote, error) {
	trade, err := b.mdClient.GetLatestTrade(symbol, marketdata.GetLatestTradeRequest{})
	if err != nil {
		return types.Quote{}, fmt.Errorf("alpaca latest trade %s: %w", symbol, err)
	}
	if trade == nil {
		return types.Quote{}, fmt.Errorf("no trade data for %s", symbol)
	}

	quote := types.Quote{
		Symbol: symbol,
		Price:  decimal.NewFromFloat(trade.Price),
		AsOf:   time.Now().UTC(),
	}

	start := time.Now().AddDate(0, 0, -(b.chaseWindowDays + 3)) // pad for weekends
	bars, err := b.mdClient.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     start,
	})
	if err != nil {
		return types.Quote{}, fmt.Errorf("alpaca bars %s: %w", symbol, err)
	}
	if len(bars) > b.chaseWindowDays {
		bars = bars[len(bars)-b.chaseWindowDays:]
	}
	if len(bars) > 1 {
		first := decimal.NewFromFloat(bars[0].Close)
		last := decimal.NewFromFloat(bars[len(bars)-1].Close)
		if first.IsPositive() {
			quote.ChangePct = last.Sub(first).Div(first).Mul(decimal.NewFromInt(100))
		}
	}

	return quote, nil
}

func (b *Broker) SubmitOrder(ctx context.Context, symbol string, side types.Side, qty int64) (types.Order, error) {
	q := decimal.NewFromInt(qty)
	o, err := b.tradeClient.PlaceOrder(alpaca.PlaceOrderRequest{
		Symbol:      symbol,
		Qty:         &q,
		Side:        alpaca.Side(side),
		Type:        alpaca.Market,
		TimeInForce: alpaca.Day,
	})
	if err != nil {
		return types.Order{}, fmt.Errorf("alpaca place order %s: %w", symbol, err)
	}
	return mapOrder(o), nil
}

func (b *Broker) GetOrder(ctx context.Context, orderID string) (types.Order, error) {
	o, err := b.tradeClient.GetOrder(orderID)
	if err != nil {
		return types.Order{}, fmt.Errorf("alpaca get order %s: %w", orderID, err)
	}
	return mapOrder(o), nil
}

func (b *Broker) CancelOrder(ctx context.Context, orderID string) error {
	return b.tradeClient.CancelOrder(orderID)
}

func (b *Broker) Clock(ctx context.Context) (types.MarketClock, error) {
	c, err := b.tradeClient.GetClock()
	if err != nil {
		return types.MarketClock{}, fmt.Errorf("alpaca clock: %w", err)
	}
	return types.MarketClock{IsOpen: c.IsOpen, NextOpen: c.NextOpen}, nil
}

func mapOrder(o *alpaca.Order) types.Order {
	if o == nil {
		return types.Order{}
	}

	var qty int64
	if o.Qty != nil {
		qty = o.Qty.IntPart()
	}
	fillPrice := decimal.Zero
	if o.FilledAvgPrice != nil {
		fillPrice = *o.FilledAvgPrice
	}

	return types.Order{
		ID:          o.ID,
		Symbol:      o.Symbol,
		Side:        types.Side(o.Side),
		Qty:         qty,
		FilledQty:   o.FilledQty.IntPart(),
		FillPrice:   fillPrice,
		Status:      mapStatus(string(o.Status)),
		SubmittedAt: o.CreatedAt,
	}
}

// mapStatus folds Alpaca's order statuses onto the engine's state machine.
func mapStatus(s string) types.OrderStatus {
	switch s {
	case "filled":
		return types.OrderFilled
	case "partially_filled":
		return types.OrderPartiallyFilled
	case "rejected", "denied":
		return types.OrderRejected
	case "canceled", "expired", "done_for_day":
		return types.OrderCanceled
	default: // new, accepted, pending_new, ...
		return types.OrderSubmitted
	}
}
