package store

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Mode     string `yaml:"mode"` // DRY_RUN or LIVE
	Universe struct {
		Symbols   []string          `yaml:"symbols"`
		Companies map[string]string `yaml:"companies"` // canonical company name -> ticker
		Aliases   map[string]string `yaml:"aliases"`   // literal common-name alias -> ticker
	} `yaml:"universe"`
	Resolver struct {
		FuzzyThreshold float64 `yaml:"fuzzy_threshold"`
	} `yaml:"resolver"`
	News struct {
		Provider           string `yaml:"provider"` // NEWSAPI or GOOGLENEWS
		MaxArticles        int    `yaml:"max_articles"`
		LookbackHours      int    `yaml:"lookback_hours"`
		GoogleNewsFallback bool   `yaml:"google_news_fallback"`
	} `yaml:"news"`
	LLM struct {
		Provider    string  `yaml:"provider"`
		Model       string  `yaml:"model"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float32 `yaml:"temperature"`
		System      string  `yaml:"system"`
	} `yaml:"llm"`
	Risk struct {
		InitialCapital    float64 `yaml:"initial_capital"`
		MaxPositionPct    float64 `yaml:"max_position_pct"`
		ChaseThresholdPct float64 `yaml:"chase_threshold_pct"`
		ChaseWindowDays   int     `yaml:"chase_window_days"`
	} `yaml:"risk"`
	Orders struct {
		PollIntervalSeconds   int `yaml:"poll_interval_seconds"`
		MaxPollBackoffSeconds int `yaml:"max_poll_backoff_seconds"`
		FillTimeoutSeconds    int `yaml:"fill_timeout_seconds"`
	} `yaml:"orders"`
	Queue struct {
		Enabled     bool `yaml:"enabled"`
		MaxAgeHours int  `yaml:"max_age_hours"`
	} `yaml:"queue"`
	State struct {
		Dir string `yaml:"dir"`
	} `yaml:"state"`
}

func (c *Config) Validate() error {
	if c.Mode != "DRY_RUN" && c.Mode != "LIVE" {
		return fmt.Errorf("invalid mode '%s': must be 'DRY_RUN' or 'LIVE'", c.Mode)
	}
	if len(c.Universe.Symbols) == 0 {
		return errors.New("universe.symbols cannot be empty")
	}
	if c.Risk.MaxPositionPct <= 0 || c.Risk.MaxPositionPct > 1 {
		return fmt.Errorf("risk.max_position_pct must be in (0,1], got %.3f", c.Risk.MaxPositionPct)
	}
	if c.Risk.InitialCapital <= 0 {
		return fmt.Errorf("risk.initial_capital must be positive, got %.2f", c.Risk.InitialCapital)
	}
	if c.Resolver.FuzzyThreshold < 0 || c.Resolver.FuzzyThreshold > 1 {
		return fmt.Errorf("resolver.fuzzy_threshold must be in [0,1], got %.2f", c.Resolver.FuzzyThreshold)
	}
	if c.News.Provider != "NEWSAPI" && c.News.Provider != "GOOGLENEWS" {
		return fmt.Errorf("invalid news.provider '%s': must be 'NEWSAPI' or 'GOOGLENEWS'", c.News.Provider)
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	applyDefaults(&c)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}

func applyDefaults(c *Config) {
	if c.Resolver.FuzzyThreshold == 0 {
		c.Resolver.FuzzyThreshold = 0.85
	}
	c.News.Provider = strings.ToUpper(c.News.Provider)
	if c.News.Provider == "" {
		c.News.Provider = "NEWSAPI"
	}
	if c.News.MaxArticles == 0 {
		c.News.MaxArticles = 10
	}
	if c.News.LookbackHours == 0 {
		c.News.LookbackHours = 24
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o-mini"
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 256
	}
	if c.LLM.System == "" {
		c.LLM.System = "You are a market-savvy financial assistant."
	}
	if c.Risk.ChaseThresholdPct == 0 {
		c.Risk.ChaseThresholdPct = 5.0
	}
	if c.Risk.ChaseWindowDays == 0 {
		c.Risk.ChaseWindowDays = 5
	}
	if c.Orders.PollIntervalSeconds == 0 {
		c.Orders.PollIntervalSeconds = 2
	}
	if c.Orders.MaxPollBackoffSeconds == 0 {
		c.Orders.MaxPollBackoffSeconds = 16
	}
	if c.Orders.FillTimeoutSeconds == 0 {
		c.Orders.FillTimeoutSeconds = 60
	}
	if c.Queue.MaxAgeHours == 0 {
		c.Queue.MaxAgeHours = 24
	}
	if c.State.Dir == "" {
		c.State.Dir = "data"
	}
}
