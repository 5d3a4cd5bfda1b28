package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sentiment is the coarse market-impact judgment inferred from an article.
type Sentiment string

const (
	Bullish Sentiment = "Bullish"
	Bearish Sentiment = "Bearish"
	Neutral Sentiment = "Neutral"
)

// Action is the trading decision for one symbol in one cycle.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Side is the order side submitted to the brokerage.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderStatus tracks an order through the executor state machine. Only
// Filled, Rejected and Canceled are terminal; PartiallyFilled is an
// in-flight state with a working remainder and must keep being polled.
type OrderStatus string

const (
	OrderSubmitted       OrderStatus = "submitted"
	OrderFilled          OrderStatus = "filled"
	OrderPartiallyFilled OrderStatus = "partially_filled"
	OrderRejected        OrderStatus = "rejected"
	OrderCanceled        OrderStatus = "canceled"
)

// Terminal reports whether the status ends the order lifecycle.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderFilled, OrderRejected, OrderCanceled:
		return true
	}
	return false
}

// ResolutionMethod records how a company mention was mapped to a ticker.
type ResolutionMethod string

const (
	ResolveExact      ResolutionMethod = "exact"
	ResolveAlias      ResolutionMethod = "alias"
	ResolveFuzzy      ResolutionMethod = "fuzzy"
	ResolveUnresolved ResolutionMethod = "unresolved"
)

// Article is one news item as fetched from the provider. Immutable once
// created; discarded after the cycle.
type Article struct {
	ID          string    `json:"id"`
	Headline    string    `json:"headline"`
	Body        string    `json:"body"`
	URL         string    `json:"url,omitempty"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
}

// SentimentJudgment is the parsed model output for one article.
type SentimentJudgment struct {
	ArticleID  string    `json:"article_id"`
	Sentiment  Sentiment `json:"sentiment"`
	Companies  []string  `json:"companies"`
	Confidence float64   `json:"confidence,omitempty"`
}

// ResolvedSymbol maps a free-text company name to a tradable ticker.
// Method == ResolveUnresolved means the name matched nothing and the
// mention is dropped from decisioning.
type ResolvedSymbol struct {
	CompanyName string           `json:"company_name"`
	Ticker      string           `json:"ticker,omitempty"`
	Method      ResolutionMethod `json:"method"`
}

// Position is one holding in the portfolio. Owned by the tracker; mutated
// only after a confirmed fill.
type Position struct {
	Symbol        string          `json:"symbol"`
	Qty           int64           `json:"qty"`
	AvgEntryPrice decimal.Decimal `json:"avg_entry_price"`
	UnrealizedPL  decimal.Decimal `json:"unrealized_pl"`
}

// Decision is the per-symbol action for a cycle, with the sentiment that
// produced it and a human-readable rationale.
type Decision struct {
	Symbol    string    `json:"symbol"`
	Action    Action    `json:"action"`
	Sentiment Sentiment `json:"sentiment"`
	Rationale string    `json:"rationale"`
}

// Order is one brokerage order as tracked locally.
type Order struct {
	ID          string          `json:"id"`
	Symbol      string          `json:"symbol"`
	Side        Side            `json:"side"`
	Qty         int64           `json:"qty"`
	FilledQty   int64           `json:"filled_qty"`
	FillPrice   decimal.Decimal `json:"fill_price"`
	Status      OrderStatus     `json:"status"`
	Reason      string          `json:"reason,omitempty"`
	SubmittedAt time.Time       `json:"submitted_at"`
}

// Quote is a point-in-time market quote. ChangePct is the trailing move
// over the configured chase window, in percent.
type Quote struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	ChangePct decimal.Decimal `json:"change_pct"`
	AsOf      time.Time       `json:"as_of"`
}

// Account mirrors the narrow brokerage account contract.
type Account struct {
	Cash        decimal.Decimal `json:"cash"`
	BuyingPower decimal.Decimal `json:"buying_power"`
}

// MarketClock reports whether the venue is open for trading.
type MarketClock struct {
	IsOpen   bool      `json:"is_open"`
	NextOpen time.Time `json:"next_open"`
}

// PortfolioSnapshot is the durable record of truth for cash, positions and
// realized P/L. PendingReview lists symbols whose local order state timed
// out and must be reconciled against the brokerage before the next cycle.
type PortfolioSnapshot struct {
	Cash          decimal.Decimal     `json:"cash"`
	Positions     map[string]Position `json:"positions"`
	RealizedPL    decimal.Decimal     `json:"realized_pl"`
	AsOf          time.Time           `json:"as_of"`
	PendingReview []string            `json:"pending_review,omitempty"`
}

// Position returns the held position for symbol, or nil.
func (s *PortfolioSnapshot) Position(symbol string) *Position {
	if s == nil || s.Positions == nil {
		return nil
	}
	if p, ok := s.Positions[symbol]; ok {
		return &p
	}
	return nil
}

// SymbolOutcome is one symbol's result within a cycle. A decision, an
// order or a skip reason explains what happened; silent skips are
// forbidden.
type SymbolOutcome struct {
	Symbol           string    `json:"symbol"`
	Decision         *Decision `json:"decision,omitempty"`
	Order            *Order    `json:"order,omitempty"`
	SkipReason       string    `json:"skip_reason,omitempty"`
	Queued           bool      `json:"queued,omitempty"`
	FlaggedForReview bool      `json:"flagged_for_review,omitempty"`
}

// CycleResult is the structured artifact produced by every cycle.
type CycleResult struct {
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Articles   int             `json:"articles"`
	Outcomes   []SymbolOutcome `json:"outcomes"`
	Unresolved []string        `json:"unresolved,omitempty"`
	Errors     []string        `json:"errors,omitempty"`
}
