package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Data source providers.
const (
	ProviderYahoo    = "yahoo"
	ProviderYFinance = "yfinance"
	ProviderVsTrader = "vstrader"
	ProviderMock     = "mock" // synthetic prices for offline runs
)

// Year coordinate sources for metric densification.
const (
	YearSourceCalendar = "calendar"
	YearSourceFiscal   = "fiscal"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	DataSource struct {
		Provider      string `yaml:"provider"`
		BaseURL       string `yaml:"base_url"`
		APIKey        string `yaml:"api_key"`
		StatementsDir string `yaml:"statements_dir"`
	} `yaml:"data_source"`
	Universe struct {
		CSVPath      string  `yaml:"csv_path"`
		Industry     string  `yaml:"industry"`
		MinMarketCap float64 `yaml:"min_market_cap"`
	} `yaml:"universe"`
	Analysis struct {
		LookbackDays    int     `yaml:"lookback_days"`
		ProminenceRatio float64 `yaml:"prominence_ratio"`
		MinExtrema      int     `yaml:"min_extrema"`
		MaxSamples      int     `yaml:"max_samples"`
		Workers         int     `yaml:"workers"`
		YearSource      string  `yaml:"year_source"`
	} `yaml:"analysis"`
	Schedule struct {
		Cron string `yaml:"cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Cache struct {
		Dir string        `yaml:"dir"`
		TTL time.Duration `yaml:"ttl"`
	} `yaml:"cache"`
	Export struct {
		XLSXPath string `yaml:"xlsx_path"`
	} `yaml:"export"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file is not an error; defaults fill every unset field.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("DATA_PROVIDER"); v != "" {
		c.DataSource.Provider = v
	}
	if v := os.Getenv("VSTRADER_BASE_URL"); v != "" {
		c.DataSource.BaseURL = v
	}
	if v := os.Getenv("VSTRADER_API_KEY"); v != "" {
		c.DataSource.APIKey = v
	}
	if v := os.Getenv("STATEMENTS_DIR"); v != "" {
		c.DataSource.StatementsDir = v
	}
	if v := os.Getenv("UNIVERSE_CSV"); v != "" {
		c.Universe.CSVPath = v
	}
	if v := os.Getenv("ANALYSIS_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Analysis.Workers = n
		}
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("CRON_SCHEDULE"); v != "" {
		c.Schedule.Cron = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

func (c *Config) applyDefaults() {
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = ProviderYahoo
	}
	if c.DataSource.StatementsDir == "" {
		c.DataSource.StatementsDir = "data/statements"
	}
	if c.Universe.CSVPath == "" {
		c.Universe.CSVPath = "data/bank_tickers.csv"
	}
	if c.Universe.Industry == "" {
		c.Universe.Industry = "Major Banks"
	}
	if c.Universe.MinMarketCap == 0 {
		c.Universe.MinMarketCap = 1
	}
	if c.Analysis.LookbackDays == 0 {
		c.Analysis.LookbackDays = 1258
	}
	if c.Analysis.ProminenceRatio == 0 {
		c.Analysis.ProminenceRatio = 0.15
	}
	if c.Analysis.MinExtrema == 0 {
		c.Analysis.MinExtrema = 2
	}
	if c.Analysis.MaxSamples == 0 {
		c.Analysis.MaxSamples = 5
	}
	if c.Analysis.Workers == 0 {
		c.Analysis.Workers = 4
	}
	if c.Analysis.YearSource == "" {
		c.Analysis.YearSource = YearSourceCalendar
	}
	if c.Schedule.Cron == "" {
		c.Schedule.Cron = "0 30 6 * * 1-5"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/rallyscope.db"
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = "data/cache"
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 24 * time.Hour
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks that all fields hold usable values.
func (c *Config) Validate() error {
	switch c.DataSource.Provider {
	case ProviderYahoo, ProviderYFinance, ProviderMock:
	case ProviderVsTrader:
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for provider %q", ProviderVsTrader)
		}
	default:
		return fmt.Errorf("data_source.provider %q is not supported", c.DataSource.Provider)
	}
	if c.Analysis.LookbackDays <= 0 {
		return fmt.Errorf("analysis.lookback_days must be positive")
	}
	if c.Analysis.ProminenceRatio <= 0 || c.Analysis.ProminenceRatio > 1 {
		return fmt.Errorf("analysis.prominence_ratio must be in (0, 1]")
	}
	if c.Analysis.MinExtrema < 1 {
		return fmt.Errorf("analysis.min_extrema must be at least 1")
	}
	if c.Analysis.MaxSamples < 2 {
		return fmt.Errorf("analysis.max_samples must be at least 2")
	}
	if c.Analysis.Workers < 1 {
		return fmt.Errorf("analysis.workers must be at least 1")
	}
	if c.Analysis.YearSource != YearSourceCalendar && c.Analysis.YearSource != YearSourceFiscal {
		return fmt.Errorf("analysis.year_source must be %q or %q", YearSourceCalendar, YearSourceFiscal)
	}
	return nil
}

// TelegramEnabled reports whether both bot token and chat id are set.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
