package portfolio

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"news-trading-bot/internal/types"
)

func fillOrder(side types.Side, qty int64, price int64) types.Order {
	return types.Order{
		ID:        "o-1",
		Symbol:    "AAPL",
		Side:      side,
		Qty:       qty,
		FilledQty: qty,
		FillPrice: decimal.NewFromInt(price),
		Status:    types.OrderFilled,
	}
}

func TestLoadMissingFile(t *testing.T) {
	tr := NewTracker(t.TempDir())

	_, err := tr.Load()
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected os.ErrNotExist for missing snapshot, got %v", err)
	}
}

func TestPersistLoadRoundTrip(t *testing.T) {
	tr := NewTracker(t.TempDir())

	snap := &types.PortfolioSnapshot{
		Cash: decimal.RequireFromString("10000.55"),
		Positions: map[string]types.Position{
			"AAPL": {Symbol: "AAPL", Qty: 20, AvgEntryPrice: decimal.RequireFromString("50.25")},
		},
		RealizedPL:    decimal.RequireFromString("-12.30"),
		AsOf:          time.Now().UTC().Truncate(time.Second),
		PendingReview: []string{"TSLA"},
	}

	if err := tr.Persist(snap); err != nil {
		t.Fatalf("Expected persist to succeed, got %v", err)
	}

	loaded, err := tr.Load()
	if err != nil {
		t.Fatalf("Expected load to succeed, got %v", err)
	}

	if !loaded.Cash.Equal(snap.Cash) {
		t.Errorf("Expected cash %s, got %s", snap.Cash, loaded.Cash)
	}
	if !loaded.RealizedPL.Equal(snap.RealizedPL) {
		t.Errorf("Expected realized PL %s, got %s", snap.RealizedPL, loaded.RealizedPL)
	}
	pos, ok := loaded.Positions["AAPL"]
	if !ok {
		t.Fatal("Expected AAPL position to survive the round trip")
	}
	if pos.Qty != 20 || !pos.AvgEntryPrice.Equal(decimal.RequireFromString("50.25")) {
		t.Errorf("Expected 20 @ 50.25, got %d @ %s", pos.Qty, pos.AvgEntryPrice)
	}
	if len(loaded.PendingReview) != 1 || loaded.PendingReview[0] != "TSLA" {
		t.Errorf("Expected pending review [TSLA], got %v", loaded.PendingReview)
	}
}

func TestApplyBuyWeightedAverage(t *testing.T) {
	tr := NewTracker(t.TempDir())
	snap := &types.PortfolioSnapshot{Cash: decimal.NewFromInt(10000), Positions: map[string]types.Position{}}

	tr.Apply(snap, fillOrder(types.SideBuy, 10, 50))
	tr.Apply(snap, fillOrder(types.SideBuy, 10, 70))

	pos := snap.Positions["AAPL"]
	if pos.Qty != 20 {
		t.Errorf("Expected 20 shares, got %d", pos.Qty)
	}
	if !pos.AvgEntryPrice.Equal(decimal.NewFromInt(60)) {
		t.Errorf("Expected weighted average entry 60, got %s", pos.AvgEntryPrice)
	}
	if !snap.Cash.Equal(decimal.NewFromInt(8800)) {
		t.Errorf("Expected cash 8800, got %s", snap.Cash)
	}
}

func TestApplySellRealizesPL(t *testing.T) {
	tr := NewTracker(t.TempDir())
	snap := &types.PortfolioSnapshot{
		Cash: decimal.NewFromInt(1000),
		Positions: map[string]types.Position{
			"AAPL": {Symbol: "AAPL", Qty: 10, AvgEntryPrice: decimal.NewFromInt(50)},
		},
	}

	tr.Apply(snap, fillOrder(types.SideSell, 10, 65))

	if _, ok := snap.Positions["AAPL"]; ok {
		t.Error("Expected emptied position to be removed")
	}
	if !snap.Cash.Equal(decimal.NewFromInt(1650)) {
		t.Errorf("Expected cash 1650 after selling 10 @ 65, got %s", snap.Cash)
	}
	if !snap.RealizedPL.Equal(decimal.NewFromInt(150)) {
		t.Errorf("Expected realized PL 150, got %s", snap.RealizedPL)
	}
}

func TestApplyPartialFillUsesFilledQty(t *testing.T) {
	tr := NewTracker(t.TempDir())
	snap := &types.PortfolioSnapshot{Cash: decimal.NewFromInt(10000), Positions: map[string]types.Position{}}

	order := types.Order{
		ID:        "o-1",
		Symbol:    "AAPL",
		Side:      types.SideBuy,
		Qty:       20,
		FilledQty: 7,
		FillPrice: decimal.NewFromInt(50),
		Status:    types.OrderPartiallyFilled,
	}
	tr.Apply(snap, order)

	pos := snap.Positions["AAPL"]
	if pos.Qty != 7 {
		t.Errorf("Expected only the filled 7 shares recorded, got %d", pos.Qty)
	}
	if !snap.Cash.Equal(decimal.NewFromInt(9650)) {
		t.Errorf("Expected cash 9650, got %s", snap.Cash)
	}
}

func TestApplyIgnoresUnfilledOrders(t *testing.T) {
	tr := NewTracker(t.TempDir())
	snap := &types.PortfolioSnapshot{Cash: decimal.NewFromInt(10000), Positions: map[string]types.Position{}}

	for _, status := range []types.OrderStatus{types.OrderRejected, types.OrderCanceled, types.OrderSubmitted} {
		order := fillOrder(types.SideBuy, 10, 50)
		order.Status = status
		order.FilledQty = 0
		tr.Apply(snap, order)
	}

	if len(snap.Positions) != 0 {
		t.Errorf("Expected no positions, got %v", snap.Positions)
	}
	if !snap.Cash.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("Expected cash untouched, got %s", snap.Cash)
	}
}

func TestFlagForReviewDeduplicates(t *testing.T) {
	snap := &types.PortfolioSnapshot{}

	FlagForReview(snap, "AAPL")
	FlagForReview(snap, "AAPL")
	FlagForReview(snap, "TSLA")

	if len(snap.PendingReview) != 2 {
		t.Errorf("Expected 2 flagged symbols, got %v", snap.PendingReview)
	}

	ClearReview(snap)
	if snap.PendingReview != nil {
		t.Errorf("Expected cleared review list, got %v", snap.PendingReview)
	}
}

func TestCycleLockExcludesSecondAcquire(t *testing.T) {
	dir := t.TempDir()

	first := NewCycleLock(dir)
	if err := first.Acquire(); err != nil {
		t.Fatalf("Expected first acquire to succeed, got %v", err)
	}

	second := NewCycleLock(dir)
	if err := second.Acquire(); !errors.Is(err, ErrCycleRunning) {
		t.Errorf("Expected ErrCycleRunning, got %v", err)
	}

	if err := first.Release(); err != nil {
		t.Fatalf("Expected release to succeed, got %v", err)
	}
	if err := second.Acquire(); err != nil {
		t.Errorf("Expected acquire after release to succeed, got %v", err)
	}
	_ = second.Release()
}
