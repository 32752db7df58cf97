package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"SignalDesk/internal/alert"
	"SignalDesk/internal/crossover"
	"SignalDesk/internal/model"
	"SignalDesk/internal/strategy"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config holds all application configuration.
type Config struct {
	Analysis struct {
		Workers         int           `yaml:"workers"`
		FetchTimeout    time.Duration `yaml:"fetch_timeout"`
		ExportDir       string        `yaml:"export_dir"`
		DefaultStrategy string        `yaml:"default_strategy"`
	} `yaml:"analysis"`
	Crossover  crossover.Settings `yaml:"crossover"`
	DataSource struct {
		Provider  string `yaml:"provider"`
		BaseURL   string `yaml:"base_url"`
		APIKey    string `yaml:"api_key"`
		APISecret string `yaml:"api_secret"`
	} `yaml:"data_source"`
	Groups   []model.Group `yaml:"groups"`
	Schedule struct {
		DefaultCron string `yaml:"default_cron"`
		RunOnStart  bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
	Database struct {
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"database"`
	Redis struct {
		Addr     string        `yaml:"addr"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		Channel  string        `yaml:"channel"`
		TTL      time.Duration `yaml:"ttl"`
	} `yaml:"redis"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	API struct {
		Addr      string `yaml:"addr"`
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"api"`
	Alerts alert.Settings `yaml:"alerts"`
	// Rules are extra rule strategies evaluated next to the built-in library.
	Rules []strategy.RuleStrategy `yaml:"rules"`
	Proxy string                  `yaml:"proxy"`
}

// envOverrides are the environment variables that take precedence over the file.
// Empty values leave the file setting alone.
type envOverrides struct {
	TelegramBotToken string        `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   string        `envconfig:"TELEGRAM_CHAT_ID"`
	Provider         string        `envconfig:"DATA_PROVIDER"`
	DataBaseURL      string        `envconfig:"DATA_BASE_URL"`
	DataAPIKey       string        `envconfig:"DATA_API_KEY"`
	DataAPISecret    string        `envconfig:"DATA_API_SECRET"`
	AlpacaAPIKey     string        `envconfig:"ALPACA_API_KEY"`
	AlpacaAPISecret  string        `envconfig:"ALPACA_API_SECRET"`
	Proxy            string        `envconfig:"HTTPS_PROXY"`
	Workers          int           `envconfig:"ANALYSIS_WORKERS"`
	FetchTimeout     time.Duration `envconfig:"FETCH_TIMEOUT"`
	ExportDir        string        `envconfig:"EXPORT_DIR"`
	DefaultStrategy  string        `envconfig:"DEFAULT_STRATEGY"`
	DefaultCron      string        `envconfig:"CRON_DEFAULT"`
	RunOnStart       string        `envconfig:"RUN_ON_START"`
	DBDriver         string        `envconfig:"DB_DRIVER"`
	DatabaseURL      string        `envconfig:"DATABASE_URL"`
	SQLitePath       string        `envconfig:"SQLITE_PATH"`
	RedisAddr        string        `envconfig:"REDIS_ADDR"`
	RedisPassword    string        `envconfig:"REDIS_PASSWORD"`
	RedisDB          string        `envconfig:"REDIS_DB"`
	APIAddr          string        `envconfig:"API_ADDR"`
	JWTSecret        string        `envconfig:"JWT_SECRET"`
}

// Load reads .env, then the YAML file at path, then environment overrides, and
// finally fills defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.Crossover = crossover.DefaultSettings()
	cfg.Alerts = alert.DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.apply(env); err != nil {
		return nil, err
	}

	cfg.setDefaults()
	return cfg, nil
}

func (c *Config) apply(env envOverrides) error {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.Telegram.BotToken, env.TelegramBotToken)
	set(&c.Telegram.ChatID, env.TelegramChatID)
	set(&c.DataSource.Provider, env.Provider)
	set(&c.DataSource.BaseURL, env.DataBaseURL)
	set(&c.DataSource.APIKey, env.AlpacaAPIKey)
	set(&c.DataSource.APISecret, env.AlpacaAPISecret)
	set(&c.DataSource.APIKey, env.DataAPIKey)
	set(&c.DataSource.APISecret, env.DataAPISecret)
	set(&c.Proxy, env.Proxy)
	set(&c.Analysis.ExportDir, env.ExportDir)
	set(&c.Analysis.DefaultStrategy, env.DefaultStrategy)
	set(&c.Schedule.DefaultCron, env.DefaultCron)
	set(&c.Database.Driver, env.DBDriver)
	set(&c.Redis.Addr, env.RedisAddr)
	set(&c.Redis.Password, env.RedisPassword)
	set(&c.API.Addr, env.APIAddr)
	set(&c.API.JWTSecret, env.JWTSecret)

	if env.SQLitePath != "" {
		c.Database.Driver = "sqlite"
		c.Database.DSN = env.SQLitePath
	}
	if env.DatabaseURL != "" {
		c.Database.DSN = env.DatabaseURL
		if strings.HasPrefix(env.DatabaseURL, "postgres") {
			c.Database.Driver = "postgres"
		}
	}
	if env.Workers > 0 {
		c.Analysis.Workers = env.Workers
	}
	if env.FetchTimeout > 0 {
		c.Analysis.FetchTimeout = env.FetchTimeout
	}
	if env.RunOnStart != "" {
		v, err := strconv.ParseBool(env.RunOnStart)
		if err != nil {
			return fmt.Errorf("RUN_ON_START: %w", err)
		}
		c.Schedule.RunOnStart = v
	}
	if env.RedisDB != "" {
		db, err := strconv.Atoi(env.RedisDB)
		if err != nil {
			return fmt.Errorf("REDIS_DB: %w", err)
		}
		c.Redis.DB = db
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Analysis.Workers == 0 {
		c.Analysis.Workers = 5
	}
	if c.Analysis.FetchTimeout == 0 {
		c.Analysis.FetchTimeout = 30 * time.Second
	}
	if c.Analysis.DefaultStrategy == "" {
		c.Analysis.DefaultStrategy = strategy.DefaultName
	}
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = "yahoo"
	}
	if c.Schedule.DefaultCron == "" {
		c.Schedule.DefaultCron = "0 0 22 * * 1-5"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.DSN == "" && c.Database.Driver == "sqlite" {
		c.Database.DSN = "data/signaldesk.db"
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = "signaldesk:results"
	}
	if c.Redis.TTL == 0 {
		c.Redis.TTL = 24 * time.Hour
	}
	if c.API.Addr == "" {
		c.API.Addr = ":8080"
	}
	for i := range c.Groups {
		g := &c.Groups[i]
		if g.Name == "" {
			g.Name = g.ID
		}
		for j := range g.Symbols {
			s := &g.Symbols[j]
			if s.Timeframe == "" {
				s.Timeframe = "1d"
			}
			if s.Period == "" {
				s.Period = "1y"
			}
			if s.AssetType == "" {
				s.AssetType = model.AssetStocks
			}
		}
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Analysis.Workers <= 0 {
		return fmt.Errorf("%w: analysis.workers must be positive", ErrInvalid)
	}
	if c.Analysis.FetchTimeout < 0 {
		return fmt.Errorf("%w: analysis.fetch_timeout must not be negative", ErrInvalid)
	}
	if reg := strategy.NewRegistry(); !reg.Has(c.Analysis.DefaultStrategy) {
		return fmt.Errorf("%w: unknown analysis.default_strategy %q (available: %s)",
			ErrInvalid, c.Analysis.DefaultStrategy, strings.Join(reg.Names(), ", "))
	}
	switch c.DataSource.Provider {
	case "yahoo", "mock":
	case "rest":
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("%w: data_source.base_url is required for the rest provider", ErrInvalid)
		}
	case "alpaca":
		if c.DataSource.APIKey == "" || c.DataSource.APISecret == "" {
			return fmt.Errorf("%w: data_source.api_key and api_secret are required for alpaca", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown data_source.provider %q", ErrInvalid, c.DataSource.Provider)
	}
	switch c.Database.Driver {
	case "sqlite", "postgres", "none":
	default:
		return fmt.Errorf("%w: unknown database.driver %q", ErrInvalid, c.Database.Driver)
	}
	if c.Database.Driver == "postgres" && c.Database.DSN == "" {
		return fmt.Errorf("%w: database.dsn is required for postgres", ErrInvalid)
	}
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == "" {
		return fmt.Errorf("%w: telegram.chat_id is required when bot_token is set", ErrInvalid)
	}

	seen := make(map[string]bool, len(c.Groups))
	for i, g := range c.Groups {
		if g.ID == "" {
			return fmt.Errorf("%w: groups[%d].id is required", ErrInvalid, i)
		}
		if seen[g.ID] {
			return fmt.Errorf("%w: duplicate group id %q", ErrInvalid, g.ID)
		}
		seen[g.ID] = true
		if g.Enabled && len(g.EnabledSymbols()) == 0 {
			return fmt.Errorf("%w: group %q has no enabled symbols", ErrInvalid, g.ID)
		}
		for j, s := range g.Symbols {
			if strings.TrimSpace(s.Symbol) == "" {
				return fmt.Errorf("%w: group %q symbols[%d].symbol is required", ErrInvalid, g.ID, j)
			}
		}
	}
	for i, r := range c.Rules {
		if r.Name == "" {
			return fmt.Errorf("%w: rules[%d].name is required", ErrInvalid, i)
		}
	}
	return nil
}

// Group returns the group with id.
func (c *Config) Group(id string) (model.Group, bool) {
	for _, g := range c.Groups {
		if g.ID == id {
			return g, true
		}
	}
	return model.Group{}, false
}

// RuleStrategies returns the built-in rule library followed by the configured rules.
func (c *Config) RuleStrategies() []strategy.RuleStrategy {
	return append(strategy.Library(), c.Rules...)
}
