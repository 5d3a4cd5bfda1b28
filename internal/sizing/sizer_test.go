package sizing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"news-trading-bot/internal/types"
)

func snapshot(cash int64) *types.PortfolioSnapshot {
	return &types.PortfolioSnapshot{Cash: decimal.NewFromInt(cash)}
}

func buyDecision() types.Decision {
	return types.Decision{Symbol: "AAPL", Action: types.ActionBuy, Sentiment: types.Bullish}
}

func TestSizeBuyFloors(t *testing.T) {
	s := NewSizer(snapshot(10000), decimal.NewFromFloat(0.10))

	qty, err := s.Size(buyDecision(), nil, decimal.NewFromInt(50))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if qty != 20 {
		t.Errorf("Expected 20 shares from a 1000 budget at 50, got %d", qty)
	}
	if !s.Reserved().Equal(decimal.NewFromInt(1000)) {
		t.Errorf("Expected 1000 reserved, got %s", s.Reserved())
	}
}

func TestSizeBuyFractionalFloor(t *testing.T) {
	s := NewSizer(snapshot(10000), decimal.NewFromFloat(0.10))

	qty, err := s.Size(buyDecision(), nil, decimal.NewFromInt(333))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if qty != 3 {
		t.Errorf("Expected floor(1000/333)=3 shares, got %d", qty)
	}
}

func TestSizeMultipleBuysNeverOvercommit(t *testing.T) {
	s := NewSizer(snapshot(10000), decimal.NewFromFloat(0.10))
	price := decimal.NewFromInt(50)

	total := decimal.Zero
	for i := 0; i < 5; i++ {
		qty, err := s.Size(buyDecision(), nil, price)
		if err != nil {
			t.Fatalf("Buy %d: unexpected error %v", i, err)
		}
		total = total.Add(price.Mul(decimal.NewFromInt(qty)))
	}

	cap := decimal.NewFromInt(10000)
	if total.GreaterThan(cap) {
		t.Errorf("Expected total buy cost within cash at start, got %s", total)
	}
	if !s.Reserved().Equal(total) {
		t.Errorf("Expected reserved %s, got %s", total, s.Reserved())
	}

	// Each later budget shrinks as reservations accumulate.
	first, _ := NewSizer(snapshot(10000), decimal.NewFromFloat(0.10)).Size(buyDecision(), nil, price)
	if total.LessThanOrEqual(price.Mul(decimal.NewFromInt(first))) {
		t.Error("Expected later buys to reserve additional cash")
	}
}

func TestSizeBuyInfeasible(t *testing.T) {
	s := NewSizer(snapshot(100), decimal.NewFromFloat(0.10))

	_, err := s.Size(buyDecision(), nil, decimal.NewFromInt(50))
	if !errors.Is(err, ErrInfeasible) {
		t.Errorf("Expected ErrInfeasible for 10 budget at price 50, got %v", err)
	}
}

func TestSizeBuyZeroPrice(t *testing.T) {
	s := NewSizer(snapshot(10000), decimal.NewFromFloat(0.10))

	_, err := s.Size(buyDecision(), nil, decimal.Zero)
	if !errors.Is(err, ErrInfeasible) {
		t.Errorf("Expected ErrInfeasible for zero price, got %v", err)
	}
}

func TestSizeSellFullPosition(t *testing.T) {
	s := NewSizer(snapshot(0), decimal.NewFromFloat(0.10))
	pos := &types.Position{Symbol: "AAPL", Qty: 42}

	qty, err := s.Size(types.Decision{Action: types.ActionSell}, pos, decimal.NewFromInt(50))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if qty != 42 {
		t.Errorf("Expected full exit of 42 shares, got %d", qty)
	}
}

func TestSizeSellWithoutPosition(t *testing.T) {
	s := NewSizer(snapshot(1000), decimal.NewFromFloat(0.10))

	_, err := s.Size(types.Decision{Action: types.ActionSell}, nil, decimal.NewFromInt(50))
	if !errors.Is(err, ErrInfeasible) {
		t.Errorf("Expected ErrInfeasible selling with no position, got %v", err)
	}
}

func TestSizeHoldIsZero(t *testing.T) {
	s := NewSizer(snapshot(10000), decimal.NewFromFloat(0.10))

	qty, err := s.Size(types.Decision{Action: types.ActionHold}, nil, decimal.NewFromInt(50))
	if err != nil || qty != 0 {
		t.Errorf("Expected 0, nil for hold, got %d, %v", qty, err)
	}
}

func TestReleaseRestoresBudget(t *testing.T) {
	s := NewSizer(snapshot(10000), decimal.NewFromFloat(0.10))
	price := decimal.NewFromInt(50)

	qty, _ := s.Size(buyDecision(), nil, price)
	cost := price.Mul(decimal.NewFromInt(qty))

	s.Release(cost)
	if !s.Reserved().IsZero() {
		t.Errorf("Expected zero reserved after release, got %s", s.Reserved())
	}

	again, _ := s.Size(buyDecision(), nil, price)
	if again != qty {
		t.Errorf("Expected released budget to restore sizing, got %d then %d", qty, again)
	}
}

func TestReleaseNeverGoesNegative(t *testing.T) {
	s := NewSizer(snapshot(10000), decimal.NewFromFloat(0.10))
	s.Release(decimal.NewFromInt(500))
	if !s.Reserved().IsZero() {
		t.Errorf("Expected reserved clamped at zero, got %s", s.Reserved())
	}
}
