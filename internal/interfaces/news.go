package interfaces

import (
	"context"
	"time"

	"news-trading-bot/internal/types"
)

// NewsProvider fetches recent articles matching the symbol universe.
type NewsProvider interface {
	Search(ctx context.Context, symbols []string, since time.Time) ([]types.Article, error)
}
