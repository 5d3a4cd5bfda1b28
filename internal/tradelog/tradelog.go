package tradelog

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	mu  sync.Mutex
	dir string
)

// SetDir points the history files at the configured state directory so
// trade and decision logs land next to the portfolio snapshot. The
// TRADER_LOG_DIR environment variable still takes precedence.
func SetDir(d string) {
	mu.Lock()
	defer mu.Unlock()
	dir = d
}

// Entry is one executed trade in the append-only history.
type Entry struct {
	Time      string         `json:"time"`
	Symbol    string         `json:"symbol"`
	Side      string         `json:"side"`
	Qty       int64          `json:"qty"`
	Price     string         `json:"price"`
	OrderID   string         `json:"order_id"`
	Status    string         `json:"status"`
	Rationale string         `json:"rationale,omitempty"`
	Sentiment string         `json:"sentiment,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// DecisionEntry is one per-symbol decision, recorded whether or not it
// produced an order.
type DecisionEntry struct {
	Time      string `json:"time"`
	Symbol    string `json:"symbol"`
	Action    string `json:"action"`
	Sentiment string `json:"sentiment"`
	Rationale string `json:"rationale"`
	Price     string `json:"price,omitempty"`
}

// Market timestamps use US Eastern, the venue's clock.
var eastern = func() *time.Location {
	if loc, err := time.LoadLocation("America/New_York"); err == nil {
		return loc
	}
	return time.FixedZone("EST", -5*3600)
}()

func logDir() string {
	if v := os.Getenv("TRADER_LOG_DIR"); v != "" {
		return v
	}
	if dir != "" {
		return dir
	}
	return "data"
}

func tradesFilepath(t time.Time) string {
	d := t.In(eastern).Format("2006-01-02")
	return filepath.Join(logDir(), "trades", d+".jsonl")
}

func decisionsFilepath(t time.Time) string {
	d := t.In(eastern).Format("2006-01-02")
	return filepath.Join(logDir(), "decisions", d+".jsonl")
}

// Append adds a trade record to today's history file.
func Append(e Entry) error {
	mu.Lock()
	defer mu.Unlock()
	now := time.Now().In(eastern)
	e.Time = now.Format("2006-01-02 15:04:05")
	return appendLine(tradesFilepath(now), e)
}

// AppendDecision adds a decision record to today's decision file.
func AppendDecision(e DecisionEntry) error {
	mu.Lock()
	defer mu.Unlock()
	now := time.Now().In(eastern)
	e.Time = now.Format("2006-01-02 15:04:05")
	return appendLine(decisionsFilepath(now), e)
}

func appendLine(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	b, _ := json.Marshal(v)
	_, err = fmt.Fprintln(f, string(b))
	return err
}

// CompressOlder gzips history files older than retentionDays.
func CompressOlder(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	root := logDir()
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	return filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(p) != ".jsonl" {
			return nil
		}
		info, er := os.Stat(p)
		if er != nil || !info.ModTime().Before(cutoff) {
			return nil
		}

		gz := p + ".gz"
		if _, e2 := os.Stat(gz); e2 == nil {
			_ = os.Remove(p)
			return nil
		}

		in, e3 := os.Open(p)
		if e3 != nil {
			return nil
		}
		defer in.Close()

		out, e4 := os.OpenFile(gz, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if e4 != nil {
			return nil
		}
		zw := gzip.NewWriter(out)
		if _, e5 := io.Copy(zw, in); e5 != nil {
			zw.Close()
			out.Close()
			_ = os.Remove(gz)
			return nil
		}
		zw.Close()
		out.Close()
		_ = os.Remove(p)
		return nil
	})
}
