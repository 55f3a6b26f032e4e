package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"MinerviniScreener/internal/model"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Screening struct {
		MinPrice        float64 `yaml:"min_price" validate:"gte=0"`
		MinVolumeRatio  float64 `yaml:"min_volume_ratio" validate:"gte=0"`
		MinRewardToRisk float64 `yaml:"min_crv" validate:"gte=0"`
		EMA10Filter     string  `yaml:"ema10_filter" validate:"omitempty,oneof=disabled off none above below"`
		EMA20Filter     string  `yaml:"ema20_filter" validate:"omitempty,oneof=disabled off none above below"`
		PortfolioSize   float64 `yaml:"portfolio_size" validate:"gt=0"`
		RiskPerTrade    float64 `yaml:"risk_per_trade" validate:"gt=0,lte=1"`
		NearHighPct     float64 `yaml:"near_high_pct" validate:"gte=0,lt=1"`
		EntryBuffer     float64 `yaml:"entry_buffer" validate:"gte=0,lt=1"`
		StopBelowSMA    float64 `yaml:"stop_below_sma" validate:"gte=0,lt=1"`
		MaxStopPct      float64 `yaml:"max_stop_pct" validate:"gt=0,lt=1"`
		MinTargetPct    float64 `yaml:"min_target_pct" validate:"gte=0"`
	} `yaml:"screening"`
	Universe struct {
		Index   string              `yaml:"index" validate:"required"`
		Limit   int                 `yaml:"limit" validate:"gte=0"`
		Sources map[string]string   `yaml:"sources"`
		Static  map[string][]string `yaml:"static"`
	} `yaml:"universe"`
	DataSource struct {
		Provider          string        `yaml:"provider" validate:"oneof=yahoo rest mock"`
		BaseURL           string        `yaml:"base_url" validate:"required_if=Provider rest"`
		APIKey            string        `yaml:"api_key"`
		RequestsPerSecond float64       `yaml:"requests_per_second" validate:"gte=0"`
		LookbackDays      int           `yaml:"lookback_days" validate:"gte=0"`
		FetchTimeout      time.Duration `yaml:"fetch_timeout" validate:"gte=0"`
		Concurrency       int           `yaml:"concurrency" validate:"gte=0,lte=32"`
	} `yaml:"data_source"`
	Cache struct {
		TTL           time.Duration `yaml:"ttl" validate:"gte=0"`
		RedisAddr     string        `yaml:"redis_addr"`
		RedisPassword string        `yaml:"redis_password"`
		RedisDB       int           `yaml:"redis_db" validate:"gte=0"`
	} `yaml:"cache"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
		TopN     int    `yaml:"top_n" validate:"gte=0"`
	} `yaml:"telegram"`
	Schedule struct {
		ScreeningCron string `yaml:"screening_cron" validate:"required"`
	} `yaml:"schedule"`
	Journal struct {
		Backend  string `yaml:"backend" validate:"oneof=file sqlite"`
		FilePath string `yaml:"file_path"`
	} `yaml:"journal"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Log struct {
		Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

var validate = validator.New()

// Load reads config from a YAML file and a .env file, then applies
// environment variable overrides and defaults. Numeric defaults are set
// before decoding, so an explicit 0 in the file or environment is kept.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	_ = godotenv.Load()
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setFloat := func(key string, dst *float64) {
		if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
			*dst = v
		}
	}

	setString("TELEGRAM_BOT_TOKEN", &c.Telegram.BotToken)
	setString("TELEGRAM_CHAT_ID", &c.Telegram.ChatID)
	setString("HTTPS_PROXY", &c.Proxy)
	setString("SQLITE_PATH", &c.Database.SQLitePath)
	setString("REDIS_ADDR", &c.Cache.RedisAddr)
	setString("REDIS_PASSWORD", &c.Cache.RedisPassword)
	setString("SCREENER_PROVIDER", &c.DataSource.Provider)
	setString("SCREENER_BASE_URL", &c.DataSource.BaseURL)
	setString("SCREENER_API_KEY", &c.DataSource.APIKey)
	setString("SCREENER_INDEX", &c.Universe.Index)
	setString("SCREENER_CRON", &c.Schedule.ScreeningCron)
	setString("SCREENER_JOURNAL_BACKEND", &c.Journal.Backend)
	setString("SCREENER_JOURNAL_FILE", &c.Journal.FilePath)
	setString("SCREENER_METRICS_ADDR", &c.Metrics.Addr)
	setString("SCREENER_EMA10_FILTER", &c.Screening.EMA10Filter)
	setString("SCREENER_EMA20_FILTER", &c.Screening.EMA20Filter)
	setString("LOG_LEVEL", &c.Log.Level)
	setFloat("SCREENER_MIN_PRICE", &c.Screening.MinPrice)
	setFloat("SCREENER_MIN_VOLUME_RATIO", &c.Screening.MinVolumeRatio)
	setFloat("SCREENER_MIN_CRV", &c.Screening.MinRewardToRisk)
	setFloat("SCREENER_PORTFOLIO_SIZE", &c.Screening.PortfolioSize)
	setFloat("SCREENER_RISK_PER_TRADE", &c.Screening.RiskPerTrade)
	setInt("SCREENER_LIMIT", &c.Universe.Limit)
	setInt("SCREENER_CONCURRENCY", &c.DataSource.Concurrency)
}

func defaultConfig() *Config {
	c := &Config{}
	def := model.DefaultScreeningConfig()
	s := &c.Screening
	s.MinPrice = def.MinPrice
	s.MinVolumeRatio = def.MinVolumeRatio
	s.MinRewardToRisk = def.MinRewardToRisk
	s.PortfolioSize = def.PortfolioSize
	s.RiskPerTrade = def.RiskPerTrade
	s.NearHighPct = def.NearHighPct
	s.EntryBuffer = def.EntryBuffer
	s.StopBelowSMA = def.StopBelowSMA
	s.MaxStopPct = def.MaxStopPct
	s.MinTargetPct = def.MinTargetPct

	c.DataSource.RequestsPerSecond = 2
	c.DataSource.LookbackDays = 300
	c.DataSource.FetchTimeout = 20 * time.Second
	c.DataSource.Concurrency = 4
	c.Cache.TTL = time.Hour
	c.Telegram.TopN = 10
	return c
}

// applyDefaults fills settings where empty is never a valid choice.
func (c *Config) applyDefaults() {
	if c.Universe.Index == "" {
		c.Universe.Index = "sp500"
	}
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = "yahoo"
	}
	if c.Schedule.ScreeningCron == "" {
		// weekdays after the US close (server time)
		c.Schedule.ScreeningCron = "0 30 22 * * 1-5"
	}
	if c.Journal.Backend == "" {
		c.Journal.Backend = "file"
	}
	if c.Journal.FilePath == "" {
		c.Journal.FilePath = "data/journal.json"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/screener.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks field ranges and required settings.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.ScreeningConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// RequireTelegram checks the settings needed to send reports.
func (c *Config) RequireTelegram() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required")
	}
	return nil
}

// ScreeningConfig builds the parameter set for a screening run.
func (c *Config) ScreeningConfig() (model.ScreeningConfig, error) {
	out := model.DefaultScreeningConfig()
	s := c.Screening
	ema10, err := model.ParseEMAFilter(s.EMA10Filter)
	if err != nil {
		return out, err
	}
	ema20, err := model.ParseEMAFilter(s.EMA20Filter)
	if err != nil {
		return out, err
	}
	out.MinPrice = s.MinPrice
	out.MinVolumeRatio = s.MinVolumeRatio
	out.MinRewardToRisk = s.MinRewardToRisk
	out.EMA10Filter = ema10
	out.EMA20Filter = ema20
	out.PortfolioSize = s.PortfolioSize
	out.RiskPerTrade = s.RiskPerTrade
	out.NearHighPct = s.NearHighPct
	out.EntryBuffer = s.EntryBuffer
	out.StopBelowSMA = s.StopBelowSMA
	out.MaxStopPct = s.MaxStopPct
	out.MinTargetPct = s.MinTargetPct
	return out, out.Validate()
}

// StaticUniverse returns the configured ticker lists keyed by lowercase index.
func (c *Config) StaticUniverse() map[string][]model.Symbol {
	out := make(map[string][]model.Symbol, len(c.Universe.Static))
	for index, tickers := range c.Universe.Static {
		syms := make([]model.Symbol, 0, len(tickers))
		for _, t := range tickers {
			syms = append(syms, model.Symbol{Ticker: strings.ToUpper(strings.TrimSpace(t))})
		}
		out[strings.ToLower(index)] = syms
	}
	return out
}
