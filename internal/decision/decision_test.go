package decision

import (
	"testing"

	"github.com/shopspring/decimal"

	"news-trading-bot/internal/types"
)

var chaseThreshold = decimal.NewFromFloat(5.0)

func quote(changePct float64) *types.Quote {
	return &types.Quote{
		Symbol:    "AAPL",
		Price:     decimal.NewFromInt(100),
		ChangePct: decimal.NewFromFloat(changePct),
	}
}

func held(qty int64) *types.Position {
	return &types.Position{Symbol: "AAPL", Qty: qty, AvgEntryPrice: decimal.NewFromInt(90)}
}

func TestDecideBullishNoPosition(t *testing.T) {
	d := Decide("AAPL", types.Bullish, nil, quote(2.0), chaseThreshold)
	if d.Action != types.ActionBuy {
		t.Errorf("Expected BUY, got %s (%s)", d.Action, d.Rationale)
	}
}

func TestDecideBullishHeldBelowThreshold(t *testing.T) {
	d := Decide("AAPL", types.Bullish, held(10), quote(3.5), chaseThreshold)
	if d.Action != types.ActionBuy {
		t.Errorf("Expected BUY when run-up below threshold, got %s (%s)", d.Action, d.Rationale)
	}
}

func TestDecideBullishHeldAtThresholdAvoidsChasing(t *testing.T) {
	d := Decide("AAPL", types.Bullish, held(10), quote(5.0), chaseThreshold)
	if d.Action != types.ActionHold {
		t.Errorf("Expected HOLD at threshold, got %s (%s)", d.Action, d.Rationale)
	}

	d = Decide("AAPL", types.Bullish, held(10), quote(8.2), chaseThreshold)
	if d.Action != types.ActionHold {
		t.Errorf("Expected HOLD above threshold, got %s (%s)", d.Action, d.Rationale)
	}
}

func TestDecideBullishHeldNilQuoteFailsSafe(t *testing.T) {
	d := Decide("AAPL", types.Bullish, held(10), nil, chaseThreshold)
	if d.Action != types.ActionHold {
		t.Errorf("Expected HOLD when quote unavailable, got %s", d.Action)
	}
}

func TestDecideBearishHeldSells(t *testing.T) {
	d := Decide("AAPL", types.Bearish, held(10), quote(-2.0), chaseThreshold)
	if d.Action != types.ActionSell {
		t.Errorf("Expected SELL, got %s (%s)", d.Action, d.Rationale)
	}
}

func TestDecideBearishNoPositionHolds(t *testing.T) {
	d := Decide("AAPL", types.Bearish, nil, quote(-2.0), chaseThreshold)
	if d.Action != types.ActionHold {
		t.Errorf("Expected HOLD with nothing to exit, got %s", d.Action)
	}
}

func TestDecideNeutralAlwaysHolds(t *testing.T) {
	for _, pos := range []*types.Position{nil, held(10)} {
		d := Decide("AAPL", types.Neutral, pos, quote(0), chaseThreshold)
		if d.Action != types.ActionHold {
			t.Errorf("Expected HOLD for neutral, got %s", d.Action)
		}
	}
}

func TestDecideZeroQtyPositionTreatedAsFlat(t *testing.T) {
	d := Decide("AAPL", types.Bullish, held(0), quote(9.0), chaseThreshold)
	if d.Action != types.ActionBuy {
		t.Errorf("Expected BUY for zero-qty position, got %s", d.Action)
	}
}

func TestDecideDeterministic(t *testing.T) {
	first := Decide("AAPL", types.Bullish, held(10), quote(3.5), chaseThreshold)
	for i := 0; i < 5; i++ {
		again := Decide("AAPL", types.Bullish, held(10), quote(3.5), chaseThreshold)
		if again != first {
			t.Fatalf("Expected identical decision on replay, got %+v then %+v", first, again)
		}
	}
}
