package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"finbrief/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Logging     logging.Config    `mapstructure:"logging"`
	Newsletter  NewsletterConfig  `mapstructure:"newsletter"`
	Market      MarketConfig      `mapstructure:"market"`
	Economic    EconomicConfig    `mapstructure:"economic"`
	Crypto      CryptoConfig      `mapstructure:"crypto"`
	News        NewsConfig        `mapstructure:"news"`
	OpenAI      OpenAIConfig      `mapstructure:"openai"`
	Email       EmailConfig       `mapstructure:"email"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler"`
	Subscribers SubscribersConfig `mapstructure:"subscribers"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// NewsletterConfig controls title and output location.
type NewsletterConfig struct {
	Title     string `mapstructure:"title"`
	OutputDir string `mapstructure:"output_dir"`
	Chart     bool   `mapstructure:"chart"`
}

// MarketConfig covers the Finnhub-backed market data source.
type MarketConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	Indices        []string      `mapstructure:"indices"`
	Stocks         []string      `mapstructure:"stocks"`
	LookbackDays   int           `mapstructure:"lookback_days"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// EconomicConfig covers FRED and Alpha Vantage connectivity.
type EconomicConfig struct {
	FREDAPIKey         string        `mapstructure:"fred_api_key"`
	FREDBaseURL        string        `mapstructure:"fred_base_url"`
	AlphaVantageAPIKey string        `mapstructure:"alpha_vantage_api_key"`
	AlphaVantageURL    string        `mapstructure:"alpha_vantage_url"`
	LookbackDays       int           `mapstructure:"lookback_days"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
}

// CryptoConfig covers CoinGecko connectivity.
type CryptoConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	TopN           int           `mapstructure:"top_n"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// NewsConfig governs headline collection.
type NewsConfig struct {
	MaxHeadlines   int           `mapstructure:"max_headlines"`
	YahooURL       string        `mapstructure:"yahoo_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// OpenAIConfig parameterises narrative generation.
type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
}

// EmailConfig covers SendGrid delivery.
type EmailConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"`
	Sender         string        `mapstructure:"sender"`
	SenderName     string        `mapstructure:"sender_name"`
	BatchSize      int           `mapstructure:"batch_size"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// SchedulerConfig governs the weekly send cadence.
type SchedulerConfig struct {
	SendDay  string `mapstructure:"send_day"`
	SendTime string `mapstructure:"send_time"`
}

// SubscribersConfig locates the subscriber file.
type SubscribersConfig struct {
	File string `mapstructure:"file"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FINBRIEF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "finbrief")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("newsletter.title", "Weekly Financial Insights")
	v.SetDefault("newsletter.output_dir", "newsletters")
	v.SetDefault("newsletter.chart", true)

	v.SetDefault("market.indices", []string{"^GSPC", "^DJI", "^IXIC", "^RUT", "^VIX", "^FTSE", "^N225"})
	v.SetDefault("market.stocks", []string{"AAPL", "MSFT", "GOOGL", "AMZN", "META", "TSLA", "NVDA", "JPM", "V", "WMT"})
	v.SetDefault("market.lookback_days", 30)
	v.SetDefault("market.request_timeout", "15s")

	v.SetDefault("economic.fred_base_url", "https://api.stlouisfed.org/fred")
	v.SetDefault("economic.alpha_vantage_url", "https://www.alphavantage.co/query")
	v.SetDefault("economic.lookback_days", 365)
	v.SetDefault("economic.request_timeout", "15s")

	v.SetDefault("crypto.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("crypto.top_n", 10)
	v.SetDefault("crypto.request_timeout", "15s")

	v.SetDefault("news.max_headlines", 10)
	v.SetDefault("news.yahoo_url", "https://finance.yahoo.com/news/")
	v.SetDefault("news.request_timeout", "10s")
	v.SetDefault("news.user_agent", "finbrief/1.0")

	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.temperature", 0.7)

	v.SetDefault("email.base_url", "https://api.sendgrid.com")
	v.SetDefault("email.sender_name", "Financial Newsletter")
	v.SetDefault("email.batch_size", 100)
	v.SetDefault("email.request_timeout", "30s")

	v.SetDefault("scheduler.send_day", "monday")
	v.SetDefault("scheduler.send_time", "08:00")

	v.SetDefault("subscribers.file", "subscribers.json")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Newsletter.Title == "" {
		return fmt.Errorf("newsletter.title must not be empty")
	}
	if c.Market.LookbackDays <= 0 {
		return fmt.Errorf("market.lookback_days must be greater than zero")
	}
	if c.Crypto.TopN <= 0 {
		return fmt.Errorf("crypto.top_n must be greater than zero")
	}
	if c.News.MaxHeadlines <= 0 {
		return fmt.Errorf("news.max_headlines must be greater than zero")
	}
	if c.Email.BatchSize <= 0 {
		return fmt.Errorf("email.batch_size must be greater than zero")
	}
	if _, ok := weekdays[strings.ToLower(c.Scheduler.SendDay)]; !ok {
		return fmt.Errorf("scheduler.send_day %q is not a weekday", c.Scheduler.SendDay)
	}
	if _, err := time.Parse("15:04", c.Scheduler.SendTime); err != nil {
		return fmt.Errorf("scheduler.send_time must be HH:MM: %w", err)
	}
	if c.Subscribers.File == "" {
		return fmt.Errorf("subscribers.file must not be empty")
	}
	return nil
}

// SendWeekday resolves the configured send day to a time.Weekday.
func (c *Config) SendWeekday() time.Weekday {
	return weekdays[strings.ToLower(c.Scheduler.SendDay)]
}
