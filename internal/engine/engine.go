package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"news-trading-bot/internal/decision"
	"news-trading-bot/internal/execution"
	"news-trading-bot/internal/interfaces"
	"news-trading-bot/internal/logger"
	"news-trading-bot/internal/portfolio"
	"news-trading-bot/internal/queue"
	"news-trading-bot/internal/sentiment"
	"news-trading-bot/internal/sizing"
	"news-trading-bot/internal/store"
	"news-trading-bot/internal/symbols"
	"news-trading-bot/internal/tradelog"
	"news-trading-bot/internal/types"
)

// Engine runs one full news-to-orders trading cycle at a time. A cycle is
// guarded by an exclusive lock file so overlapping invocations refuse to
// run instead of racing on portfolio state.
type Engine struct {
	cfg        *store.Config
	brk        interfaces.Broker
	news       interfaces.NewsProvider
	classifier *sentiment.Classifier
	resolver   *symbols.Resolver
	tracker    *portfolio.Tracker
	queue      *queue.Queue
	exec       *execution.Executor

	maxPositionPct decimal.Decimal
	chaseThreshold decimal.Decimal
}

var _ interfaces.Engine = (*Engine)(nil)

func New(cfg *store.Config, brk interfaces.Broker, news interfaces.NewsProvider, classifier *sentiment.Classifier, resolver *symbols.Resolver, tracker *portfolio.Tracker, q *queue.Queue) *Engine {
	return &Engine{
		cfg:        cfg,
		brk:        brk,
		news:       news,
		classifier: classifier,
		resolver:   resolver,
		tracker:    tracker,
		queue:      q,
		exec: execution.New(brk,
			time.Duration(cfg.Orders.PollIntervalSeconds)*time.Second,
			time.Duration(cfg.Orders.MaxPollBackoffSeconds)*time.Second,
			time.Duration(cfg.Orders.FillTimeoutSeconds)*time.Second,
		),
		maxPositionPct: decimal.NewFromFloat(cfg.Risk.MaxPositionPct),
		chaseThreshold: decimal.NewFromFloat(cfg.Risk.ChaseThresholdPct),
	}
}

func (e *Engine) RunCycle(ctx context.Context) (*types.CycleResult, error) {
	lock := portfolio.NewCycleLock(e.cfg.State.Dir)
	if err := lock.Acquire(); err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn(ctx, "Failed to release cycle lock", "error", err.Error())
		}
	}()

	result := &types.CycleResult{StartedAt: time.Now().UTC()}

	snap, err := e.loadOrSeed(ctx)
	if err != nil {
		return nil, err
	}

	if len(snap.PendingReview) > 0 {
		e.reconcile(ctx, snap)
	}

	clock, err := e.brk.Clock(ctx)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to fetch market clock, treating market as closed", err)
		result.Errors = append(result.Errors, fmt.Sprintf("market clock: %v", err))
	}

	sizer := sizing.NewSizer(snap, e.maxPositionPct)

	if clock.IsOpen && e.cfg.Queue.Enabled {
		e.drainQueue(ctx, snap, sizer, result)
	}

	bySymbol, unresolved := e.gatherSentiment(ctx, result)
	result.Unresolved = unresolved

	for _, symbol := range e.cfg.Universe.Symbols {
		outcome := e.processSymbol(ctx, snap, sizer, symbol, bySymbol[symbol], clock.IsOpen)
		result.Outcomes = append(result.Outcomes, outcome)
	}

	if err := e.tracker.Persist(snap); err != nil {
		logger.ErrorWithErr(ctx, "Failed to persist portfolio snapshot", err)
		result.Errors = append(result.Errors, fmt.Sprintf("persist: %v", err))
		result.FinishedAt = time.Now().UTC()
		e.writeArtifact(ctx, result)
		return result, err
	}

	result.FinishedAt = time.Now().UTC()
	e.writeArtifact(ctx, result)

	logger.Info(ctx, "Cycle complete",
		"articles", result.Articles,
		"symbols", len(result.Outcomes),
		"unresolved", len(result.Unresolved),
		"errors", len(result.Errors),
		"cash", snap.Cash.String(),
	)
	return result, nil
}

// loadOrSeed loads the durable snapshot, or seeds a fresh one from the
// brokerage on first run.
func (e *Engine) loadOrSeed(ctx context.Context) (*types.PortfolioSnapshot, error) {
	snap, err := e.tracker.Load()
	if err == nil {
		return snap, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	logger.Info(ctx, "No portfolio snapshot found, seeding from brokerage")

	acct, err := e.brk.GetAccount(ctx)
	if err != nil {
		return nil, fmt.Errorf("seed account: %w", err)
	}
	positions, err := e.brk.GetPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("seed positions: %w", err)
	}

	snap = &types.PortfolioSnapshot{
		Cash:      acct.Cash,
		Positions: map[string]types.Position{},
		AsOf:      time.Now().UTC(),
	}
	for _, p := range positions {
		snap.Positions[p.Symbol] = p
	}
	return snap, nil
}

// reconcile replaces locally tracked state for flagged symbols with the
// brokerage's authoritative view, then clears the review list.
func (e *Engine) reconcile(ctx context.Context, snap *types.PortfolioSnapshot) {
	logger.Warn(ctx, "Reconciling flagged symbols against brokerage", "symbols", snap.PendingReview)

	acct, err := e.brk.GetAccount(ctx)
	if err != nil {
		logger.ErrorWithErr(ctx, "Reconciliation failed, keeping review flags", err)
		return
	}
	positions, err := e.brk.GetPositions(ctx)
	if err != nil {
		logger.ErrorWithErr(ctx, "Reconciliation failed, keeping review flags", err)
		return
	}

	held := map[string]types.Position{}
	for _, p := range positions {
		held[p.Symbol] = p
	}

	for _, symbol := range snap.PendingReview {
		if p, ok := held[symbol]; ok {
			snap.Positions[symbol] = p
		} else {
			delete(snap.Positions, symbol)
		}
		logger.Info(ctx, "Symbol reconciled", "symbol", symbol)
	}
	snap.Cash = acct.Cash
	portfolio.ClearReview(snap)
}

// drainQueue executes pending trades queued while the market was closed.
// Stale entries expire rather than execute.
func (e *Engine) drainQueue(ctx context.Context, snap *types.PortfolioSnapshot, sizer *sizing.Sizer, result *types.CycleResult) {
	ready, expired, err := e.queue.Drain(time.Now().UTC())
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to drain pending trade queue", err)
		result.Errors = append(result.Errors, fmt.Sprintf("queue drain: %v", err))
		return
	}

	for _, t := range expired {
		logger.Warn(ctx, "Queued trade expired", "symbol", t.Symbol, "action", t.Action, "queued_at", t.QueuedAt)
		result.Errors = append(result.Errors, fmt.Sprintf("queued %s %s expired", t.Action, t.Symbol))
	}

	for _, t := range ready {
		logger.Info(ctx, "Executing queued trade", "symbol", t.Symbol, "action", t.Action, "queued_at", t.QueuedAt)
		d := types.Decision{
			Symbol:    t.Symbol,
			Action:    t.Action,
			Sentiment: t.Sentiment,
			Rationale: t.Rationale,
		}
		outcome := e.executeDecision(ctx, snap, sizer, d)
		result.Outcomes = append(result.Outcomes, outcome)
	}
}

// gatherSentiment fetches news, classifies each article oldest to newest
// and resolves company mentions, returning the latest judgment per ticker.
// A failed fetch degrades to an empty article set.
func (e *Engine) gatherSentiment(ctx context.Context, result *types.CycleResult) (map[string]types.Sentiment, []string) {
	since := time.Now().UTC().Add(-time.Duration(e.cfg.News.LookbackHours) * time.Hour)

	articles, err := e.news.Search(ctx, e.cfg.Universe.Symbols, since)
	if err != nil {
		logger.ErrorWithErr(ctx, "News fetch failed, proceeding with no articles", err)
		result.Errors = append(result.Errors, fmt.Sprintf("news: %v", err))
		articles = nil
	}
	result.Articles = len(articles)

	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].PublishedAt.Before(articles[j].PublishedAt)
	})

	bySymbol := map[string]types.Sentiment{}
	seen := map[string]bool{}
	var unresolved []string

	for _, a := range articles {
		judgment := e.classifier.Classify(ctx, a)
		logger.Debug(ctx, "Article classified",
			"article_id", a.ID,
			"sentiment", judgment.Sentiment,
			"companies", judgment.Companies,
		)

		for _, name := range judgment.Companies {
			resolved := e.resolver.Resolve(name)
			if resolved.Method == types.ResolveUnresolved {
				if !seen[name] {
					seen[name] = true
					unresolved = append(unresolved, name)
				}
				logger.Warn(ctx, "Company mention unresolved", "company", name)
				continue
			}
			// Later articles overwrite earlier judgments for the same ticker.
			bySymbol[resolved.Ticker] = judgment.Sentiment
			logger.Debug(ctx, "Company resolved",
				"company", name,
				"ticker", resolved.Ticker,
				"method", resolved.Method,
			)
		}
	}
	return bySymbol, unresolved
}

// processSymbol derives and carries out the decision for one universe
// symbol. Every symbol gets an outcome; failures never abort the cycle.
func (e *Engine) processSymbol(ctx context.Context, snap *types.PortfolioSnapshot, sizer *sizing.Sizer, symbol string, sent types.Sentiment, marketOpen bool) types.SymbolOutcome {
	if sent == "" {
		sent = types.Neutral
	}
	pos := snap.Position(symbol)

	var quote *types.Quote
	q, err := e.brk.GetQuote(ctx, symbol)
	if err != nil {
		logger.ErrorWithErr(ctx, "Quote fetch failed", err, "symbol", symbol)
	} else {
		quote = &q
	}

	d := decision.Decide(symbol, sent, pos, quote, e.chaseThreshold)

	price := ""
	if quote != nil {
		price = quote.Price.String()
	}
	logger.Decision(ctx, symbol, string(d.Action), string(d.Sentiment), d.Rationale)
	_ = tradelog.AppendDecision(tradelog.DecisionEntry{
		Symbol:    symbol,
		Action:    string(d.Action),
		Sentiment: string(d.Sentiment),
		Rationale: d.Rationale,
		Price:     price,
	})

	if d.Action == types.ActionHold {
		return types.SymbolOutcome{Symbol: symbol, Decision: &d}
	}

	if !marketOpen {
		if e.cfg.Queue.Enabled {
			err := e.queue.Add(queue.PendingTrade{
				Symbol:    symbol,
				Action:    d.Action,
				Sentiment: d.Sentiment,
				Rationale: d.Rationale,
				QueuedAt:  time.Now().UTC(),
			})
			if err != nil {
				logger.ErrorWithErr(ctx, "Failed to queue trade", err, "symbol", symbol)
				return types.SymbolOutcome{Symbol: symbol, Decision: &d, SkipReason: fmt.Sprintf("queue: %v", err)}
			}
			logger.Info(ctx, "Market closed, trade queued", "symbol", symbol, "action", d.Action)
			return types.SymbolOutcome{Symbol: symbol, Decision: &d, Queued: true}
		}
		return types.SymbolOutcome{Symbol: symbol, Decision: &d, SkipReason: "market closed"}
	}

	return e.executeDecision(ctx, snap, sizer, d)
}

// executeDecision sizes a non-hold decision and walks the order through the
// executor, applying any fill to the in-memory snapshot.
func (e *Engine) executeDecision(ctx context.Context, snap *types.PortfolioSnapshot, sizer *sizing.Sizer, d types.Decision) types.SymbolOutcome {
	pos := snap.Position(d.Symbol)

	quote, err := e.brk.GetQuote(ctx, d.Symbol)
	if err != nil {
		logger.ErrorWithErr(ctx, "Quote fetch failed, cannot size order", err, "symbol", d.Symbol)
		return types.SymbolOutcome{Symbol: d.Symbol, Decision: &d, SkipReason: fmt.Sprintf("quote: %v", err)}
	}

	qty, err := sizer.Size(d, pos, quote.Price)
	if err != nil {
		if errors.Is(err, sizing.ErrInfeasible) {
			logger.Risk(ctx, d.Symbol, "SIZING_INFEASIBLE", "action", d.Action, "price", quote.Price.String())
			return types.SymbolOutcome{Symbol: d.Symbol, Decision: &d, SkipReason: "sizing infeasible"}
		}
		return types.SymbolOutcome{Symbol: d.Symbol, Decision: &d, SkipReason: fmt.Sprintf("sizing: %v", err)}
	}

	side := types.SideBuy
	if d.Action == types.ActionSell {
		side = types.SideSell
	}
	reserved := decimal.Zero
	if side == types.SideBuy {
		reserved = quote.Price.Mul(decimal.NewFromInt(qty))
	}

	order, err := e.exec.Execute(ctx, d.Symbol, side, qty)
	switch {
	case errors.Is(err, execution.ErrRejected):
		sizer.Release(reserved)
		logger.Warn(ctx, "Order rejected", "symbol", d.Symbol, "reason", order.Reason)
		return types.SymbolOutcome{Symbol: d.Symbol, Decision: &d, Order: &order}

	case errors.Is(err, execution.ErrTimeout):
		portfolio.FlagForReview(snap, d.Symbol)
		e.applyFill(ctx, snap, sizer, d, order, reserved, quote.Price)
		logger.Risk(ctx, d.Symbol, "FILL_TIMEOUT", "order_id", order.ID, "status", order.Status)
		return types.SymbolOutcome{Symbol: d.Symbol, Decision: &d, Order: &order, FlaggedForReview: true}

	case err != nil:
		sizer.Release(reserved)
		logger.ErrorWithErr(ctx, "Order execution failed", err, "symbol", d.Symbol)
		return types.SymbolOutcome{Symbol: d.Symbol, Decision: &d, SkipReason: fmt.Sprintf("execute: %v", err)}
	}

	e.applyFill(ctx, snap, sizer, d, order, reserved, quote.Price)
	return types.SymbolOutcome{Symbol: d.Symbol, Decision: &d, Order: &order}
}

// applyFill records whatever quantity actually filled and returns the
// unfilled part of a buy reservation to the sizer.
func (e *Engine) applyFill(ctx context.Context, snap *types.PortfolioSnapshot, sizer *sizing.Sizer, d types.Decision, order types.Order, reserved, estPrice decimal.Decimal) {
	if order.Side == types.SideBuy && order.FilledQty < order.Qty {
		unfilled := estPrice.Mul(decimal.NewFromInt(order.Qty - order.FilledQty))
		if unfilled.GreaterThan(reserved) {
			unfilled = reserved
		}
		sizer.Release(unfilled)
	}

	if order.FilledQty == 0 {
		return
	}

	e.tracker.Apply(snap, order)
	logger.Trade(ctx, order.Symbol, string(order.Side), order.FilledQty, order.FillPrice.String(), order.ID)
	_ = tradelog.Append(tradelog.Entry{
		Symbol:    order.Symbol,
		Side:      string(order.Side),
		Qty:       order.FilledQty,
		Price:     order.FillPrice.String(),
		OrderID:   order.ID,
		Status:    string(order.Status),
		Rationale: d.Rationale,
		Sentiment: string(d.Sentiment),
	})
}

// writeArtifact saves the structured cycle result for later inspection.
func (e *Engine) writeArtifact(ctx context.Context, result *types.CycleResult) {
	dir := filepath.Join(e.cfg.State.Dir, "cycles")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.ErrorWithErr(ctx, "Failed to create cycle artifact dir", err)
		return
	}

	path := filepath.Join(dir, result.StartedAt.Format("20060102T150405Z")+".json")
	b, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to marshal cycle result", err)
		return
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		logger.ErrorWithErr(ctx, "Failed to write cycle artifact", err, "path", path)
	}
}
