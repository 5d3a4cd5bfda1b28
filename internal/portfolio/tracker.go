package portfolio

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"news-trading-bot/internal/types"
)

// ErrPersist marks a failed durable write. A cycle must not report success
// when final state could not be persisted.
var ErrPersist = errors.New("portfolio persistence failed")

const snapshotFile = "portfolio_state.json"

// Tracker owns the durable PortfolioSnapshot. It is the only writer;
// other components read a snapshot at cycle start and submit fills.
type Tracker struct {
	dir string
	mu  sync.Mutex
}

func NewTracker(dir string) *Tracker {
	return &Tracker{dir: dir}
}

func (t *Tracker) path() string {
	return filepath.Join(t.dir, snapshotFile)
}

// Load reads the snapshot from disk. A missing file surfaces
// os.ErrNotExist so the caller can seed from the brokerage.
func (t *Tracker) Load() (*types.PortfolioSnapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	b, err := os.ReadFile(t.path())
	if err != nil {
		return nil, err
	}

	var snap types.PortfolioSnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Positions == nil {
		snap.Positions = map[string]types.Position{}
	}
	return &snap, nil
}

// Apply folds a confirmed terminal fill into the snapshot: weighted-average
// entry price on buys, cash and realized P/L on sells. Orders that did not
// fill mutate nothing.
func (t *Tracker) Apply(snap *types.PortfolioSnapshot, order types.Order) {
	if order.FilledQty <= 0 {
		return
	}
	switch order.Status {
	case types.OrderFilled, types.OrderPartiallyFilled:
	default:
		return
	}

	if snap.Positions == nil {
		snap.Positions = map[string]types.Position{}
	}

	qty := decimal.NewFromInt(order.FilledQty)
	gross := order.FillPrice.Mul(qty)

	switch order.Side {
	case types.SideBuy:
		snap.Cash = snap.Cash.Sub(gross)

		pos := snap.Positions[order.Symbol]
		pos.Symbol = order.Symbol
		oldCost := pos.AvgEntryPrice.Mul(decimal.NewFromInt(pos.Qty))
		pos.Qty += order.FilledQty
		pos.AvgEntryPrice = oldCost.Add(gross).Div(decimal.NewFromInt(pos.Qty))
		snap.Positions[order.Symbol] = pos

	case types.SideSell:
		snap.Cash = snap.Cash.Add(gross)

		pos, ok := snap.Positions[order.Symbol]
		if !ok {
			return
		}
		realized := order.FillPrice.Sub(pos.AvgEntryPrice).Mul(qty)
		snap.RealizedPL = snap.RealizedPL.Add(realized)
		pos.Qty -= order.FilledQty
		if pos.Qty <= 0 {
			delete(snap.Positions, order.Symbol)
		} else {
			snap.Positions[order.Symbol] = pos
		}
	}

	snap.AsOf = time.Now().UTC()
}

// Persist writes the snapshot atomically: temp file, fsync, rename. A
// partial write is never visible to a concurrent reader.
func (t *Tracker) Persist(snap *types.PortfolioSnapshot) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", ErrPersist, err)
	}

	if err := os.MkdirAll(t.dir, 0o755); err != nil {
		return fmt.Errorf("%w: mkdir: %v", ErrPersist, err)
	}

	tmp := t.path() + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("%w: create temp: %v", ErrPersist, err)
	}

	if _, err := f.Write(b); err != nil {
		f.Close()
		return fmt.Errorf("%w: write: %v", ErrPersist, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("%w: sync: %v", ErrPersist, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close: %v", ErrPersist, err)
	}

	if err := os.Rename(tmp, t.path()); err != nil {
		return fmt.Errorf("%w: rename: %v", ErrPersist, err)
	}
	return nil
}

// FlagForReview marks a symbol whose local order outcome diverged from the
// brokerage (order timeout). Reconciliation consumes the flag at the next
// cycle start.
func FlagForReview(snap *types.PortfolioSnapshot, symbol string) {
	for _, s := range snap.PendingReview {
		if s == symbol {
			return
		}
	}
	snap.PendingReview = append(snap.PendingReview, symbol)
}

// ClearReview removes all reconciliation flags.
func ClearReview(snap *types.PortfolioSnapshot) {
	snap.PendingReview = nil
}
