package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"news-trading-bot/internal/types"
)

const queueFile = "pending_trades.json"

// PendingTrade is a decision made while the market was closed, held for
// execution at the next market-open cycle.
type PendingTrade struct {
	Symbol       string          `json:"symbol"`
	Action       types.Action    `json:"action"`
	Sentiment    types.Sentiment `json:"sentiment"`
	Rationale    string          `json:"rationale"`
	NewsHeadline string          `json:"news_headline,omitempty"`
	QueuedAt     time.Time       `json:"queued_at"`
}

// Queue is the durable pending-trade list. Entries older than maxAge
// expire at drain time: stale intent dies, fresh cycles re-derive it from
// fresh news.
type Queue struct {
	path   string
	maxAge time.Duration
	mu     sync.Mutex
}

func New(dir string, maxAge time.Duration) *Queue {
	return &Queue{
		path:   filepath.Join(dir, queueFile),
		maxAge: maxAge,
	}
}

// Add appends a pending trade. A queued trade for the same symbol is
// replaced: the newer decision supersedes the older one.
func (q *Queue) Add(t PendingTrade) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	pending, err := q.load()
	if err != nil {
		return err
	}

	kept := pending[:0]
	for _, p := range pending {
		if p.Symbol != t.Symbol {
			kept = append(kept, p)
		}
	}
	kept = append(kept, t)

	return q.save(kept)
}

// Drain removes and returns all queued trades, split into still-fresh and
// expired entries.
func (q *Queue) Drain(now time.Time) (ready, expired []PendingTrade, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	pending, err := q.load()
	if err != nil {
		return nil, nil, err
	}
	if len(pending) == 0 {
		return nil, nil, nil
	}

	for _, p := range pending {
		if now.Sub(p.QueuedAt) > q.maxAge {
			expired = append(expired, p)
		} else {
			ready = append(ready, p)
		}
	}

	if err := q.save(nil); err != nil {
		return nil, nil, err
	}
	return ready, expired, nil
}

// Len reports the number of queued trades.
func (q *Queue) Len() (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	pending, err := q.load()
	if err != nil {
		return 0, err
	}
	return len(pending), nil
}

func (q *Queue) load() ([]PendingTrade, error) {
	b, err := os.ReadFile(q.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var pending []PendingTrade
	if err := json.Unmarshal(b, &pending); err != nil {
		return nil, err
	}
	return pending, nil
}

// save uses the same write-temp-then-rename pattern as the portfolio
// tracker so a crash never leaves a truncated queue.
func (q *Queue) save(pending []PendingTrade) error {
	if pending == nil {
		pending = []PendingTrade{}
	}
	b, err := json.MarshalIndent(pending, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(q.path), 0o755); err != nil {
		return err
	}

	tmp := q.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, q.path)
}
