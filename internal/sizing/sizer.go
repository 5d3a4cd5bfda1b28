package sizing

import (
	"errors"

	"github.com/shopspring/decimal"

	"news-trading-bot/internal/types"
)

// ErrInfeasible means the cash budget rounds down to zero shares. The
// decision is downgraded to HOLD and reported, not executed.
var ErrInfeasible = errors.New("computed quantity is zero")

// Sizer converts decisions into share quantities bounded by the portfolio
// risk limit. One Sizer serves one cycle: buy budgets are computed against
// cash at cycle start minus amounts already reserved by earlier buys, so
// multiple buy decisions in one pass cannot over-commit cash.
type Sizer struct {
	cashAtStart    decimal.Decimal
	reserved       decimal.Decimal
	maxPositionPct decimal.Decimal
}

func NewSizer(snapshot *types.PortfolioSnapshot, maxPositionPct decimal.Decimal) *Sizer {
	return &Sizer{
		cashAtStart:    snapshot.Cash,
		reserved:       decimal.Zero,
		maxPositionPct: maxPositionPct,
	}
}

// Size returns the share quantity for a decision. Buys reserve their cost;
// sells always return the full held quantity.
func (s *Sizer) Size(d types.Decision, pos *types.Position, price decimal.Decimal) (int64, error) {
	switch d.Action {
	case types.ActionBuy:
		return s.sizeBuy(price)
	case types.ActionSell:
		if pos == nil || pos.Qty <= 0 {
			return 0, ErrInfeasible
		}
		return pos.Qty, nil
	default:
		return 0, nil
	}
}

func (s *Sizer) sizeBuy(price decimal.Decimal) (int64, error) {
	if price.LessThanOrEqual(decimal.Zero) {
		return 0, ErrInfeasible
	}

	available := s.cashAtStart.Sub(s.reserved)
	if available.LessThanOrEqual(decimal.Zero) {
		return 0, ErrInfeasible
	}

	budget := available.Mul(s.maxPositionPct)
	qty := budget.Div(price).Floor().IntPart()
	if qty <= 0 {
		return 0, ErrInfeasible
	}

	s.reserved = s.reserved.Add(price.Mul(decimal.NewFromInt(qty)))
	return qty, nil
}

// Release returns a reservation after an order was rejected or canceled
// without spending the cash.
func (s *Sizer) Release(cost decimal.Decimal) {
	s.reserved = s.reserved.Sub(cost)
	if s.reserved.IsNegative() {
		s.reserved = decimal.Zero
	}
}

// Reserved reports the cash currently committed to unfilled buys.
func (s *Sizer) Reserved() decimal.Decimal {
	return s.reserved
}
