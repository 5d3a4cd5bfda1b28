package execution

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"news-trading-bot/internal/types"
)

// fakeBroker scripts order lifecycle behavior for the executor.
type fakeBroker struct {
	submitStatus  types.OrderStatus
	pollsToFill   int
	neverFills    bool
	fillAfterStop bool
	partialQty    int64
	completeAfter int
	pollErr       error

	polls     int
	canceled  bool
	lastOrder types.Order
}

func (f *fakeBroker) GetAccount(ctx context.Context) (types.Account, error) {
	return types.Account{}, nil
}

func (f *fakeBroker) GetPositions(ctx context.Context) ([]types.Position, error) {
	return nil, nil
}

func (f *fakeBroker) GetQuote(ctx context.Context, symbol string) (types.Quote, error) {
	return types.Quote{}, nil
}

func (f *fakeBroker) SubmitOrder(ctx context.Context, symbol string, side types.Side, qty int64) (types.Order, error) {
	status := f.submitStatus
	if status == "" {
		status = types.OrderSubmitted
	}
	f.lastOrder = types.Order{
		ID:     "o-1",
		Symbol: symbol,
		Side:   side,
		Qty:    qty,
		Status: status,
	}
	if status == types.OrderRejected {
		f.lastOrder.Reason = "rejected at submit"
	}
	return f.lastOrder, nil
}

func (f *fakeBroker) GetOrder(ctx context.Context, orderID string) (types.Order, error) {
	if f.pollErr != nil {
		return types.Order{}, f.pollErr
	}
	f.polls++

	if f.partialQty > 0 {
		if f.completeAfter > 0 && f.polls >= f.completeAfter {
			f.fill()
		} else {
			f.lastOrder.Status = types.OrderPartiallyFilled
			f.lastOrder.FilledQty = f.partialQty
			f.lastOrder.FillPrice = decimal.NewFromInt(100)
		}
		return f.lastOrder, nil
	}

	if f.fillAfterStop && f.canceled {
		f.fill()
		return f.lastOrder, nil
	}
	if !f.neverFills && !f.fillAfterStop && f.polls >= f.pollsToFill {
		f.fill()
	}
	return f.lastOrder, nil
}

func (f *fakeBroker) fill() {
	f.lastOrder.Status = types.OrderFilled
	f.lastOrder.FilledQty = f.lastOrder.Qty
	f.lastOrder.FillPrice = decimal.NewFromInt(100)
}

func (f *fakeBroker) CancelOrder(ctx context.Context, orderID string) error {
	f.canceled = true
	return nil
}

func (f *fakeBroker) Clock(ctx context.Context) (types.MarketClock, error) {
	return types.MarketClock{IsOpen: true}, nil
}

func newTestExecutor(brk *fakeBroker) *Executor {
	return New(brk, time.Millisecond, 4*time.Millisecond, 200*time.Millisecond)
}

func TestExecuteFillsAfterPolling(t *testing.T) {
	brk := &fakeBroker{pollsToFill: 3}
	ex := newTestExecutor(brk)

	order, err := ex.Execute(context.Background(), "AAPL", types.SideBuy, 20)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if order.Status != types.OrderFilled {
		t.Errorf("Expected filled, got %s", order.Status)
	}
	if order.FilledQty != 20 {
		t.Errorf("Expected filled qty 20, got %d", order.FilledQty)
	}
	if brk.polls < 3 {
		t.Errorf("Expected at least 3 polls, got %d", brk.polls)
	}
}

func TestExecuteRejectedAtSubmit(t *testing.T) {
	brk := &fakeBroker{submitStatus: types.OrderRejected}
	ex := newTestExecutor(brk)

	order, err := ex.Execute(context.Background(), "AAPL", types.SideBuy, 20)
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("Expected ErrRejected, got %v", err)
	}
	if order.Status != types.OrderRejected {
		t.Errorf("Expected rejected, got %s", order.Status)
	}
	if brk.polls != 0 {
		t.Errorf("Expected no polling for an order rejected at submit, got %d polls", brk.polls)
	}
}

func TestExecuteTimeoutCancelsLocally(t *testing.T) {
	brk := &fakeBroker{neverFills: true}
	ex := newTestExecutor(brk)

	order, err := ex.Execute(context.Background(), "AAPL", types.SideBuy, 20)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Expected ErrTimeout, got %v", err)
	}
	if !brk.canceled {
		t.Error("Expected a best-effort remote cancel")
	}
	if !order.Status.Terminal() {
		t.Errorf("Expected a terminal status after timeout, got %s", order.Status)
	}
}

func TestExecuteLateFillDuringAbortIsHonored(t *testing.T) {
	brk := &fakeBroker{fillAfterStop: true}
	ex := newTestExecutor(brk)

	order, err := ex.Execute(context.Background(), "AAPL", types.SideBuy, 20)
	if err != nil {
		t.Fatalf("Expected late fill to clear the error, got %v", err)
	}
	if order.Status != types.OrderFilled {
		t.Errorf("Expected filled via final poll, got %s", order.Status)
	}
}

func TestExecuteContextCancellationResolvesOrder(t *testing.T) {
	brk := &fakeBroker{neverFills: true}
	ex := New(brk, 10*time.Millisecond, 20*time.Millisecond, 10*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	order, err := ex.Execute(ctx, "AAPL", types.SideSell, 5)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Expected ErrTimeout on canceled context, got %v", err)
	}
	if !brk.canceled {
		t.Error("Expected remote cancel despite canceled cycle context")
	}
	if order.Status == types.OrderSubmitted {
		t.Error("Expected order not to be abandoned as submitted")
	}
}

func TestExecutePartialFillKeepsPolling(t *testing.T) {
	brk := &fakeBroker{partialQty: 3, completeAfter: 3}
	ex := newTestExecutor(brk)

	order, err := ex.Execute(context.Background(), "AAPL", types.SideBuy, 10)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if order.Status != types.OrderFilled {
		t.Fatalf("Expected polling through the partial to the full fill, got %s", order.Status)
	}
	if order.FilledQty != 10 {
		t.Errorf("Expected all 10 shares filled, got %d", order.FilledQty)
	}
	if brk.polls < 3 {
		t.Errorf("Expected polling to continue past the partial report, got %d polls", brk.polls)
	}
	if brk.canceled {
		t.Error("Expected no cancel for an order that completes in time")
	}
}

func TestExecutePartialFillTimeoutCancelsRemainder(t *testing.T) {
	brk := &fakeBroker{partialQty: 3}
	ex := newTestExecutor(brk)

	order, err := ex.Execute(context.Background(), "AAPL", types.SideBuy, 10)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Expected ErrTimeout for a never-completing partial, got %v", err)
	}
	if brk.polls < 2 {
		t.Errorf("Expected repeated polling before the deadline, got %d polls", brk.polls)
	}
	if !brk.canceled {
		t.Error("Expected the working remainder canceled at the deadline")
	}
	if order.Status != types.OrderPartiallyFilled {
		t.Errorf("Expected partially_filled recorded, got %s", order.Status)
	}
	if order.FilledQty != 3 {
		t.Errorf("Expected the filled 3 shares recorded, got %d", order.FilledQty)
	}
}

func TestExecuteRepeatedPollFailures(t *testing.T) {
	brk := &fakeBroker{pollErr: errors.New("api down")}
	ex := New(brk, time.Millisecond, 2*time.Millisecond, 10*time.Second)

	order, err := ex.Execute(context.Background(), "AAPL", types.SideBuy, 20)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Expected ErrTimeout after repeated poll failures, got %v", err)
	}
	if order.Status != types.OrderCanceled {
		t.Errorf("Expected local canceled status, got %s", order.Status)
	}
}
