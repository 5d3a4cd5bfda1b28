package news

import (
	"context"
	"time"

	"news-trading-bot/internal/logger"
	"news-trading-bot/internal/types"
)

// Service is the News Fetcher: primary NewsAPI lookup with an optional
// Google News fallback when the primary source comes back empty.
type Service struct {
	client      *Client
	scraper     *GoogleNewsScraper
	useFallback bool
	maxArticles int
}

func NewService(maxArticles int, useFallback bool) *Service {
	return &Service{
		client:      NewClient(maxArticles),
		scraper:     NewGoogleNewsScraper(30 * time.Second),
		useFallback: useFallback,
		maxArticles: maxArticles,
	}
}

func (s *Service) Search(ctx context.Context, symbols []string, since time.Time) ([]types.Article, error) {
	articles, err := s.client.Search(ctx, symbols, since)
	if err != nil {
		return nil, err
	}

	if len(articles) == 0 && s.useFallback {
		logger.Info(ctx, "No articles from primary source, trying Google News")
		articles = scrapeAll(ctx, s.scraper, symbols, s.maxArticles)
	}

	return articles, nil
}

// GoogleNewsService is the scraper-only provider. It needs no API key
// and is selected with news.provider GOOGLENEWS.
type GoogleNewsService struct {
	scraper     *GoogleNewsScraper
	maxArticles int
}

func NewGoogleNewsService(maxArticles int) *GoogleNewsService {
	return &GoogleNewsService{
		scraper:     NewGoogleNewsScraper(30 * time.Second),
		maxArticles: maxArticles,
	}
}

func (s *GoogleNewsService) Search(ctx context.Context, symbols []string, since time.Time) ([]types.Article, error) {
	return scrapeAll(ctx, s.scraper, symbols, s.maxArticles), nil
}

func scrapeAll(ctx context.Context, scraper *GoogleNewsScraper, symbols []string, max int) []types.Article {
	var articles []types.Article
	for _, sym := range symbols {
		if len(articles) >= max {
			break
		}
		scraped, err := scraper.ScrapeGoogleNews(ctx, sym, max-len(articles))
		if err != nil {
			logger.ErrorWithErr(ctx, "Google News scrape failed", err, "symbol", sym)
			continue
		}
		articles = append(articles, scraped...)
	}
	return articles
}
