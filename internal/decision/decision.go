package decision

import (
	"fmt"

	"github.com/shopspring/decimal"

	"news-trading-bot/internal/types"
)

// Decide implements the sentiment/position policy table as a pure function
// of its inputs, so a cycle's decisions replay identically for a fixed
// article set and snapshot.
//
// Bullish, no position            -> BUY
// Bullish, held, run-up below thr -> BUY (add)
// Bullish, held, run-up at/above  -> HOLD (avoid chasing)
// Bearish, held                   -> SELL (full exit)
// Bearish, no position            -> HOLD
// Neutral                         -> HOLD
//
// The chase guard needs a quote; a nil quote on that branch fails safe to
// HOLD rather than guessing.
func Decide(symbol string, sentiment types.Sentiment, pos *types.Position, quote *types.Quote, chaseThresholdPct decimal.Decimal) types.Decision {
	d := types.Decision{
		Symbol:    symbol,
		Action:    types.ActionHold,
		Sentiment: sentiment,
	}

	held := pos != nil && pos.Qty > 0

	switch sentiment {
	case types.Bullish:
		if !held {
			d.Action = types.ActionBuy
			d.Rationale = "bullish sentiment, no current position"
			return d
		}
		if quote == nil {
			d.Rationale = "bullish sentiment but quote unavailable, holding"
			return d
		}
		if quote.ChangePct.GreaterThanOrEqual(chaseThresholdPct) {
			d.Rationale = fmt.Sprintf("bullish sentiment but already up %s%% (threshold %s%%), avoid chasing",
				quote.ChangePct.StringFixed(2), chaseThresholdPct.StringFixed(2))
			return d
		}
		d.Action = types.ActionBuy
		d.Rationale = fmt.Sprintf("bullish sentiment, run-up %s%% below threshold %s%%, adding",
			quote.ChangePct.StringFixed(2), chaseThresholdPct.StringFixed(2))
		return d

	case types.Bearish:
		if held {
			d.Action = types.ActionSell
			d.Rationale = "bearish sentiment, exiting position"
			return d
		}
		d.Rationale = "bearish sentiment, no position to exit"
		return d

	default:
		d.Rationale = "neutral sentiment"
		return d
	}
}
