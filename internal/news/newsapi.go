package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"news-trading-bot/internal/logger"
	"news-trading-bot/internal/types"
)

// ErrProviderUnavailable marks news fetch failures the orchestrator treats
// as an empty result for the cycle, not a fatal error.
var ErrProviderUnavailable = errors.New("news provider unavailable")

// Client fetches articles from the NewsAPI "everything" endpoint.
type Client struct {
	http        *resty.Client
	maxArticles int
}

// NewClient creates a NewsAPI client. The API key is read from the
// NEWS_API_KEY environment variable at request time so a missing key
// degrades rather than panics at startup.
func NewClient(maxArticles int) *Client {
	c := resty.New()
	c.SetBaseURL("https://newsapi.org/v2")
	c.SetTimeout(30 * time.Second)

	return &Client{
		http:        c,
		maxArticles: maxArticles,
	}
}

type newsAPIResponse struct {
	Status   string `json:"status"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Content     string `json:"content"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

// Search queries recent articles mentioning any of the given symbols.
// Only the top five symbols are used in the query to keep it within the
// provider's query-length limits.
func (c *Client) Search(ctx context.Context, symbols []string, since time.Time) ([]types.Article, error) {
	apiKey := os.Getenv("NEWS_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("%w: NEWS_API_KEY missing", ErrProviderUnavailable)
	}

	queried := symbols
	if len(queried) > 5 {
		queried = queried[:5]
	}
	query := strings.Join(queried, " OR ")

	logger.Info(ctx, "Fetching news", "query", query, "since", since.Format(time.RFC3339))

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":        query,
			"language": "en",
			"sortBy":   "publishedAt",
			"pageSize": fmt.Sprintf("%d", c.maxArticles),
			"from":     since.UTC().Format(time.RFC3339),
			"apiKey":   apiKey,
		}).
		Get("/everything")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("%w: http %d: %s", ErrProviderUnavailable, resp.StatusCode(), resp.String())
	}

	var parsed newsAPIResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrProviderUnavailable, err)
	}

	articles := make([]types.Article, 0, len(parsed.Articles))
	for i, a := range parsed.Articles {
		body := a.Content
		if body == "" {
			body = a.Description
		}
		if a.Title == "" && body == "" {
			continue
		}

		publishedAt, _ := time.Parse(time.RFC3339, a.PublishedAt)

		id := a.URL
		if id == "" {
			id = fmt.Sprintf("newsapi-%d-%d", since.Unix(), i)
		}

		articles = append(articles, types.Article{
			ID:          id,
			Headline:    a.Title,
			Body:        body,
			URL:         a.URL,
			Source:      a.Source.Name,
			PublishedAt: publishedAt,
		})
	}

	logger.Info(ctx, "News fetched", "articles", len(articles))
	return articles, nil
}
