package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"news-trading-bot/internal/interfaces"
	"news-trading-bot/internal/logger"
	"news-trading-bot/internal/trace"
	"news-trading-bot/internal/types"
)

const promptTemplate = `You are a financial trading assistant. Given a news article, return a JSON object with:

1. Market sentiment: Bullish, Bearish, or Neutral
2. A list of up to 3 major publicly traded companies affected. Return exact company names, not ticker symbols.
   IMPORTANT: Only include companies that are publicly traded on stock exchanges.

Format:
{
  "sentiment": "Bullish",
  "related_companies": ["Apple", "Tesla"]
}

Article:
%s`

// Classifier turns one article into a SentimentJudgment. Model output is an
// untrusted boundary: anything that cannot be parsed fails closed to a
// Neutral judgment with no companies, and the cycle continues.
type Classifier struct {
	llm    interfaces.Completer
	system string
}

func NewClassifier(llm interfaces.Completer, system string) *Classifier {
	return &Classifier{llm: llm, system: system}
}

// Classify never returns an error; provider failures degrade to Neutral.
func (c *Classifier) Classify(ctx context.Context, article types.Article) types.SentimentJudgment {
	ctx, span := trace.StartSpan(ctx, "classify-article")
	defer span.End()

	neutral := types.SentimentJudgment{
		ArticleID: article.ID,
		Sentiment: types.Neutral,
		Companies: []string{},
	}

	text := strings.TrimSpace(article.Headline + " " + article.Body)
	if text == "" {
		return neutral
	}

	raw, err := c.llm.Complete(ctx, c.system, fmt.Sprintf(promptTemplate, text))
	if err != nil {
		logger.ErrorWithErr(ctx, "Sentiment classification degraded to Neutral", err,
			"article_id", article.ID, "headline", article.Headline)
		return neutral
	}

	label, companies, confidence := parseResponse(raw)
	return types.SentimentJudgment{
		ArticleID:  article.ID,
		Sentiment:  label,
		Companies:  companies,
		Confidence: confidence,
	}
}

type modelAnswer struct {
	Sentiment        string   `json:"sentiment"`
	RelatedCompanies []string `json:"related_companies"`
	Confidence       float64  `json:"confidence"`
}

// parseResponse applies the strict parsing rules: a JSON blob if one is
// present, otherwise a substring label scan plus a delimited company list.
func parseResponse(raw string) (types.Sentiment, []string, float64) {
	if start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); start >= 0 && end > start {
		var ans modelAnswer
		if err := json.Unmarshal([]byte(raw[start:end+1]), &ans); err == nil {
			return normalizeLabel(ans.Sentiment), cleanCompanies(ans.RelatedCompanies), ans.Confidence
		}
	}

	return scanLabel(raw), scanCompanies(raw), 0
}

// normalizeLabel maps a free-text label onto the fixed vocabulary,
// defaulting to Neutral for anything outside it.
func normalizeLabel(s string) types.Sentiment {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bullish":
		return types.Bullish
	case "bearish":
		return types.Bearish
	case "neutral":
		return types.Neutral
	}
	return types.Neutral
}

// scanLabel finds the earliest case-insensitive occurrence of a vocabulary
// word in the response; first match wins, Neutral when none is found.
func scanLabel(raw string) types.Sentiment {
	lower := strings.ToLower(raw)

	best := types.Neutral
	bestIdx := -1
	for _, cand := range []types.Sentiment{types.Bullish, types.Bearish, types.Neutral} {
		idx := strings.Index(lower, strings.ToLower(string(cand)))
		if idx >= 0 && (bestIdx == -1 || idx < bestIdx) {
			best = cand
			bestIdx = idx
		}
	}
	return best
}

// scanCompanies extracts a comma/line-delimited company list from a
// non-JSON response. It looks for a "companies" marker and takes the rest
// of that line.
func scanCompanies(raw string) []string {
	for _, line := range strings.Split(raw, "\n") {
		lower := strings.ToLower(line)
		if !strings.Contains(lower, "companies") {
			continue
		}
		if _, after, ok := strings.Cut(line, ":"); ok {
			return cleanCompanies(strings.Split(after, ","))
		}
	}
	return []string{}
}

func cleanCompanies(in []string) []string {
	out := make([]string, 0, len(in))
	for _, c := range in {
		c = strings.Trim(strings.TrimSpace(c), `"'[]`)
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}
