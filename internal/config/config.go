package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/appleyytsai/Dashboard/internal/model"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Ratio series sources.
const (
	SourceLive  = "live"
	SourceCache = "cache"
)

// DefaultTickers is the ticker list used when none is configured.
var DefaultTickers = []string{"AAPL", "MSFT", "GOOGL", "AMZN", "META", "TSLA", "NVDA"}

// AnnotationConfig is a dated marker drawn on the volume chart.
type AnnotationConfig struct {
	Date  string `yaml:"date"`
	Label string `yaml:"label"`
}

// Config holds all application configuration.
type Config struct {
	Ratio struct {
		Tickers     []string `yaml:"tickers"`
		Source      string   `yaml:"source"`
		WindowSize  int      `yaml:"window_size"`
		Persist     bool     `yaml:"persist"`
		BaseURL     string   `yaml:"base_url"`
		APIKey      string   `yaml:"api_key"`
		IncomeLimit int      `yaml:"income_limit"`
		RateLimit   float64  `yaml:"rate_limit"`
	} `yaml:"ratio"`
	Volume struct {
		Symbol      string             `yaml:"symbol"`
		Period      string             `yaml:"period"`
		Window      int                `yaml:"window"`
		Annotations []AnnotationConfig `yaml:"annotations"`
	} `yaml:"volume"`
	Cache struct {
		Dir string `yaml:"dir"`
	} `yaml:"cache"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	HTTP struct {
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"http"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Schedule struct {
		RefreshCron string `yaml:"refresh_cron"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// env lists the variables that may override the file. Secrets only ever come from here
// or from the file; none are compiled in.
type env struct {
	FMPAPIKey     string `envconfig:"FMP_API_KEY"`
	FMPBaseURL    string `envconfig:"FMP_BASE_URL"`
	Tickers       string `envconfig:"RATIO_TICKERS"`
	RatioSource   string `envconfig:"RATIO_SOURCE"`
	VolumeSymbol  string `envconfig:"VOLUME_SYMBOL"`
	CacheDir      string `envconfig:"CACHE_DIR"`
	SQLitePath    string `envconfig:"SQLITE_PATH"`
	ServerAddr    string `envconfig:"SERVER_ADDR"`
	RefreshCron   string `envconfig:"CRON_REFRESH"`
	TelegramToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChat  string `envconfig:"TELEGRAM_CHAT_ID"`
	LogLevel      string `envconfig:"LOG_LEVEL"`
	Proxy         string `envconfig:"HTTPS_PROXY"`
}

// Load reads config from a YAML file, then applies environment variable overrides
// and defaults. A missing file is not an error.
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

	var e env
	if err := envconfig.Process("", &e); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	cfg.applyEnv(&e)
	cfg.applyDefaults()

	return cfg, nil
}

func (c *Config) applyEnv(e *env) {
	if e.FMPAPIKey != "" {
		c.Ratio.APIKey = e.FMPAPIKey
	}
	if e.FMPBaseURL != "" {
		c.Ratio.BaseURL = e.FMPBaseURL
	}
	if e.Tickers != "" {
		c.Ratio.Tickers = splitList(e.Tickers)
	}
	if e.RatioSource != "" {
		c.Ratio.Source = e.RatioSource
	}
	if e.VolumeSymbol != "" {
		c.Volume.Symbol = e.VolumeSymbol
	}
	if e.CacheDir != "" {
		c.Cache.Dir = e.CacheDir
	}
	if e.SQLitePath != "" {
		c.Database.SQLitePath = e.SQLitePath
	}
	if e.ServerAddr != "" {
		c.Server.Addr = e.ServerAddr
	}
	if e.RefreshCron != "" {
		c.Schedule.RefreshCron = e.RefreshCron
	}
	if e.TelegramToken != "" {
		c.Telegram.BotToken = e.TelegramToken
	}
	if e.TelegramChat != "" {
		c.Telegram.ChatID = e.TelegramChat
	}
	if e.LogLevel != "" {
		c.Log.Level = e.LogLevel
	}
	if e.Proxy != "" {
		c.Proxy = e.Proxy
	}
}

func (c *Config) applyDefaults() {
	if len(c.Ratio.Tickers) == 0 {
		c.Ratio.Tickers = append([]string(nil), DefaultTickers...)
	}
	if c.Ratio.Source == "" {
		c.Ratio.Source = SourceLive
	}
	if c.Ratio.WindowSize == 0 {
		c.Ratio.WindowSize = 20
	}
	if c.Ratio.BaseURL == "" {
		c.Ratio.BaseURL = "https://financialmodelingprep.com"
	}
	if c.Ratio.IncomeLimit == 0 {
		c.Ratio.IncomeLimit = 5
	}
	if c.Ratio.RateLimit == 0 {
		c.Ratio.RateLimit = 4
	}
	if c.Volume.Symbol == "" {
		c.Volume.Symbol = "9988.HK"
	}
	if c.Volume.Period == "" {
		c.Volume.Period = "3mo"
	}
	if c.Volume.Window == 0 {
		c.Volume.Window = 5
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = "ev_ebitda_data"
	}
	if c.HTTP.Timeout == 0 {
		c.HTTP.Timeout = 15 * time.Second
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8501"
	}
	if c.Schedule.RefreshCron == "" {
		c.Schedule.RefreshCron = "0 0 6 * * *"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	switch c.Ratio.Source {
	case SourceLive, SourceCache:
	default:
		return fmt.Errorf("ratio.source must be %q or %q, got %q", SourceLive, SourceCache, c.Ratio.Source)
	}
	if c.Ratio.Source == SourceLive && c.Ratio.APIKey == "" {
		return fmt.Errorf("ratio.api_key (or FMP_API_KEY) is required for live source")
	}
	if c.Ratio.WindowSize <= 0 {
		return fmt.Errorf("ratio.window_size must be positive")
	}
	if c.Volume.Window <= 0 {
		return fmt.Errorf("volume.window must be positive")
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be positive")
	}
	if _, err := c.Annotations(); err != nil {
		return err
	}
	return nil
}

// Annotations parses the configured volume chart markers.
func (c *Config) Annotations() ([]model.Annotation, error) {
	out := make([]model.Annotation, 0, len(c.Volume.Annotations))
	for i, a := range c.Volume.Annotations {
		d, err := time.Parse(model.DateLayout, a.Date)
		if err != nil {
			return nil, fmt.Errorf("volume.annotations[%d].date: %w", i, err)
		}
		out = append(out, model.Annotation{Date: d, Label: a.Label})
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.ToUpper(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
