package news

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"news-trading-bot/internal/logger"
	"news-trading-bot/internal/types"
)

// GoogleNewsScraper is the fallback article source used when the primary
// provider returns nothing for a cycle.
type GoogleNewsScraper struct {
	timeout time.Duration
}

func NewGoogleNewsScraper(timeout time.Duration) *GoogleNewsScraper {
	return &GoogleNewsScraper{timeout: timeout}
}

// ScrapeGoogleNews searches Google News for stock headlines. Only headline
// and URL are available from the listing page; the classifier handles
// body-less articles.
func (s *GoogleNewsScraper) ScrapeGoogleNews(ctx context.Context, query string, maxArticles int) ([]types.Article, error) {
	articles := []types.Article{}

	c := colly.NewCollector(
		colly.AllowedDomains("news.google.com", "www.google.com"),
	)
	c.SetRequestTimeout(s.timeout)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	})

	c.OnHTML("article", func(e *colly.HTMLElement) {
		if len(articles) >= maxArticles {
			return
		}

		title := e.ChildText("h3, h4")
		link := e.ChildAttr("a", "href")
		if title == "" || link == "" {
			return
		}

		if strings.HasPrefix(link, "./articles/") {
			link = "https://news.google.com" + link[1:]
		}

		articles = append(articles, types.Article{
			ID:          link,
			Headline:    title,
			URL:         link,
			Source:      "GoogleNews",
			PublishedAt: time.Now().UTC(),
		})
	})

	searchQuery := url.QueryEscape(query + " stock news")
	searchURL := fmt.Sprintf("https://news.google.com/search?q=%s&hl=en-US&gl=US&ceid=US:en", searchQuery)

	if err := c.Visit(searchURL); err != nil {
		return nil, fmt.Errorf("%w: google news: %v", ErrProviderUnavailable, err)
	}
	c.Wait()

	logger.Info(ctx, "Google News scraping completed", "query", query, "articles", len(articles))
	return articles, nil
}
