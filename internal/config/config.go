// Package config provides configuration management for the report generator.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Analysis      AnalysisConfig     `mapstructure:"analysis"`
	LLM           LLMConfig          `mapstructure:"llm"`
	News          NewsConfig         `mapstructure:"news"`
	WhatsApp      WhatsAppConfig     `mapstructure:"whatsapp"`
	Cache         CacheConfig        `mapstructure:"cache"`
	Server        ServerConfig       `mapstructure:"server"`
	Logging       LoggingConfig      `mapstructure:"logging"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Credentials   Credentials        `mapstructure:"-"` // Loaded separately

	// Dir is the directory the files were loaded from.
	Dir string `mapstructure:"-"`
}

// AnalysisConfig holds analysis pipeline configuration.
type AnalysisConfig struct {
	Timeframe    string  `mapstructure:"timeframe" validate:"oneof=daily weekly monthly"`
	CacheMinutes int     `mapstructure:"cache_minutes" validate:"gte=0"`
	ChartDir     string  `mapstructure:"chart_dir" validate:"required"`
	ChartBars    int     `mapstructure:"chart_bars" validate:"gte=20"`
	USDIDRRate   float64 `mapstructure:"usd_idr_rate" validate:"gt=0"`
	RiskMethod   string  `mapstructure:"risk_method" validate:"oneof=conservative aggressive"`
	FibLookback  int     `mapstructure:"fib_lookback" validate:"gte=10"`
}

// LLMConfig holds language model configuration.
type LLMConfig struct {
	Model       string        `mapstructure:"model" validate:"required"`
	BaseURL     string        `mapstructure:"base_url" validate:"omitempty,url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Temperature float32       `mapstructure:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int           `mapstructure:"max_tokens" validate:"gte=0"`
}

// NewsConfig holds news search configuration.
type NewsConfig struct {
	MaxItems int           `mapstructure:"max_items" validate:"gte=1,lte=20"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Retries  int           `mapstructure:"retries" validate:"gte=1,lte=5"`
}

// WhatsAppConfig holds bridge configuration.
type WhatsAppConfig struct {
	ServiceURL       string        `mapstructure:"service_url" validate:"required,url"`
	DefaultPhone     string        `mapstructure:"default_phone"`
	Timeout          time.Duration `mapstructure:"timeout"`
	DeleteChartAfter bool          `mapstructure:"delete_chart_after_send"`
}

// CacheConfig holds report cache configuration.
type CacheConfig struct {
	Backend     string `mapstructure:"backend" validate:"oneof=sqlite redis"`
	DBPath      string `mapstructure:"db_path"`
	RedisAddr   string `mapstructure:"redis_addr"`
	RedisDB     int    `mapstructure:"redis_db"`
	RedisPrefix string `mapstructure:"redis_prefix"`
}

// ServerConfig holds HTTP API configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port" validate:"gte=1,lte=65535"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	File  bool   `mapstructure:"file"`
}

// NotificationConfig holds extra notification channels.
type NotificationConfig struct {
	Webhook WebhookConfig `mapstructure:"webhook"`
}

// WebhookConfig holds webhook notification configuration.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url" validate:"omitempty,url"`
}

// Credentials holds API credentials.
type Credentials struct {
	Google GoogleCredentials `mapstructure:"google"`
	Serper SerperCredentials `mapstructure:"serper"`
	GoAPI  GoAPICredentials  `mapstructure:"goapi"`
}

// GoogleCredentials holds the Gemini API key.
type GoogleCredentials struct {
	APIKey string `mapstructure:"api_key"`
}

// SerperCredentials holds the Serper search API key.
type SerperCredentials struct {
	APIKey string `mapstructure:"api_key"`
}

// GoAPICredentials holds the GoAPI IDX data key.
type GoAPICredentials struct {
	APIKey string `mapstructure:"api_key"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/stocksignal"
	}
	return filepath.Join(home, ".config", "stocksignal")
}

// Default returns a configuration populated with defaults only.
func Default() *Config {
	cfg := &Config{Dir: DefaultConfigDir()}
	v := viper.New()
	setDefaults(v, cfg.Dir)
	_ = v.Unmarshal(cfg)
	return cfg
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. A .env file in
// the working directory is read first; environment variables win over files.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{Dir: configDir}

	if err := loadConfigFile(configDir, cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("analysis.timeframe", "daily")
	v.SetDefault("analysis.cache_minutes", 120)
	v.SetDefault("analysis.chart_dir", "charts")
	v.SetDefault("analysis.chart_bars", 120)
	v.SetDefault("analysis.usd_idr_rate", 16200.0)
	v.SetDefault("analysis.risk_method", "conservative")
	v.SetDefault("analysis.fib_lookback", 120)

	v.SetDefault("llm.model", "gemini-1.5-flash")
	v.SetDefault("llm.base_url", "https://generativelanguage.googleapis.com/v1beta/openai/")
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("llm.temperature", 0.4)
	v.SetDefault("llm.max_tokens", 2048)

	v.SetDefault("news.max_items", 5)
	v.SetDefault("news.timeout", "15s")
	v.SetDefault("news.retries", 2)

	v.SetDefault("whatsapp.service_url", "http://localhost:3000")
	v.SetDefault("whatsapp.timeout", "60s")
	v.SetDefault("whatsapp.delete_chart_after_send", true)

	v.SetDefault("cache.backend", "sqlite")
	v.SetDefault("cache.db_path", filepath.Join(configDir, "stock_data.db"))
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_prefix", "stocksignal:report:")

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", true)
}

func loadConfigFile(configDir string, cfg *Config) error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v, configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		// First run: leave a template behind and continue on defaults.
		if err := createTemplateConfig(configDir); err != nil {
			return err
		}
	}

	return v.Unmarshal(cfg)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		return createTemplateCredentials(configDir)
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GOOGLE_API_KEY"); v != "" {
		cfg.Credentials.Google.APIKey = v
	}
	if v := os.Getenv("SERPER_API_KEY"); v != "" {
		cfg.Credentials.Serper.APIKey = v
	}
	if v := os.Getenv("GOAPI_API_KEY"); v != "" {
		cfg.Credentials.GoAPI.APIKey = v
	}
	if v := os.Getenv("TARGET_PHONE"); v != "" {
		cfg.WhatsApp.DefaultPhone = v
	}
	if v := os.Getenv("AI_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("WHATSAPP_SERVICE_URL"); v != "" {
		cfg.WhatsApp.ServiceURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("STOCKSIGNAL_REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
		cfg.Cache.Backend = "redis"
	}
}

var validate = validator.New()

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Cache.Backend == "redis" && c.Cache.RedisAddr == "" {
		return fmt.Errorf("cache.redis_addr is required for the redis backend")
	}
	if c.Cache.Backend == "sqlite" && c.Cache.DBPath == "" {
		return fmt.Errorf("cache.db_path is required for the sqlite backend")
	}
	return nil
}

// CacheTTL returns how long a finished analysis stays valid.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Analysis.CacheMinutes) * time.Minute
}

// HasLLM reports whether a Gemini key is configured.
func (c *Config) HasLLM() bool {
	return c.Credentials.Google.APIKey != ""
}
