package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"RegimeDash/pkg/util"
)

const (
	DefaultSettleDelay        = 1500 * time.Millisecond
	MaxSettleDelay            = 10 * time.Second
	DefaultTradingDaysPerYear = 252
	DefaultPersona            = "Balanced"
	DefaultTimelineWindow     = 300
	DefaultBackendTimeout     = 5 * time.Second
)

type Config struct {
	Environment string `yaml:"environment"`
	Log         struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
		// Aggregated error logs are shipped to kafka.log_topic when kafka is enabled.
		CollectInterval  time.Duration `yaml:"collect_interval"`
		CollectThreshold int           `yaml:"collect_threshold"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		SlowThreshold   time.Duration `yaml:"slow_threshold"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Backend struct {
		BaseURL       string        `yaml:"base_url"`
		Timeout       time.Duration `yaml:"timeout"`
		RetryAttempts int           `yaml:"retry_attempts"`
		RetryBackoff  time.Duration `yaml:"retry_backoff"`
		GuidancePath  string        `yaml:"guidance_path"`
		TimelinePath  string        `yaml:"timeline_path"`
		QuotePath     string        `yaml:"quote_path"`
		Breaker       struct {
			MaxFailures uint32        `yaml:"max_failures"`
			OpenTimeout time.Duration `yaml:"open_timeout"`
		} `yaml:"breaker"`
	} `yaml:"backend"`
	Session struct {
		SettleDelay        time.Duration `yaml:"settle_delay"`
		TradingDaysPerYear int           `yaml:"trading_days_per_year"`
		Persona            string        `yaml:"persona"`
		TimelineWindow     int           `yaml:"timeline_window"`
		FetchTimeout       time.Duration `yaml:"fetch_timeout"`
		QuoteTimeout       time.Duration `yaml:"quote_timeout"`
	} `yaml:"session"`
	Cache struct {
		MemoryMaxSize int           `yaml:"memory_max_size"`
		TimelineTTL   time.Duration `yaml:"timeline_ttl"`
		ChartTTL      time.Duration `yaml:"chart_ttl"`
		Redis         struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`

			// Ready snapshots kept in the Redis history list.
			HistorySize int64 `yaml:"history_size"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Kafka struct {
		Enabled       bool     `yaml:"enabled"`
		Brokers       []string `yaml:"brokers"`
		SnapshotTopic string   `yaml:"snapshot_topic"`
		LogTopic      string   `yaml:"log_topic"`
		RequiredAcks  int      `yaml:"required_acks"`
		Compression   string   `yaml:"compression"`
		Producer      struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			Async        bool          `yaml:"async"`
			AutoCreate   bool          `yaml:"auto_create_topics"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	Pipeline struct {
		BufferSize int           `yaml:"buffer_size"`
		MaxRetries int           `yaml:"max_retries"`
		Backoff    time.Duration `yaml:"backoff"`
	} `yaml:"pipeline"`
	RateLimit struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"ratelimit"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML, fills defaults and validates.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyDefaults()

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("REGIMEDASH_BACKEND_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := getenv("REGIMEDASH_SETTLE_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("REGIMEDASH_SETTLE_DELAY: %w", err)
		}
		c.Session.SettleDelay = d
	}
	if v := getenv("REGIMEDASH_TRADING_DAYS"); v != "" {
		c.Session.TradingDaysPerYear = util.ParseIntDefault(v, c.Session.TradingDaysPerYear)
	}
	if v := getenv("REGIMEDASH_PERSONA"); v != "" {
		c.Session.Persona = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
		c.Cache.Redis.Enabled = true
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}
	if c.Log.CollectInterval <= 0 {
		c.Log.CollectInterval = 30 * time.Second
	}
	if c.Log.CollectThreshold <= 0 {
		c.Log.CollectThreshold = 100
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout <= 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout <= 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Backend.Timeout <= 0 {
		c.Backend.Timeout = DefaultBackendTimeout
	}
	if c.Backend.RetryAttempts <= 0 {
		c.Backend.RetryAttempts = 1
	}
	if c.Backend.RetryBackoff <= 0 {
		c.Backend.RetryBackoff = 200 * time.Millisecond
	}
	if c.Backend.GuidancePath == "" {
		c.Backend.GuidancePath = "/investor-guidance"
	}
	if c.Backend.TimelinePath == "" {
		c.Backend.TimelinePath = "/regime-timeline"
	}
	if c.Backend.QuotePath == "" {
		c.Backend.QuotePath = "/random-quote"
	}
	if c.Backend.Breaker.MaxFailures == 0 {
		c.Backend.Breaker.MaxFailures = 5
	}
	if c.Backend.Breaker.OpenTimeout <= 0 {
		c.Backend.Breaker.OpenTimeout = 30 * time.Second
	}
	if c.Session.SettleDelay == 0 {
		c.Session.SettleDelay = DefaultSettleDelay
	}
	if c.Session.TradingDaysPerYear == 0 {
		c.Session.TradingDaysPerYear = DefaultTradingDaysPerYear
	}
	if c.Session.Persona == "" {
		c.Session.Persona = DefaultPersona
	}
	if c.Session.TimelineWindow == 0 {
		c.Session.TimelineWindow = DefaultTimelineWindow
	}
	if c.Session.FetchTimeout <= 0 {
		c.Session.FetchTimeout = 2 * c.Backend.Timeout
	}
	if c.Session.QuoteTimeout <= 0 {
		c.Session.QuoteTimeout = time.Second
	}
	if c.Cache.MemoryMaxSize <= 0 {
		c.Cache.MemoryMaxSize = 256
	}
	if c.Cache.TimelineTTL <= 0 {
		c.Cache.TimelineTTL = time.Hour
	}
	if c.Cache.ChartTTL <= 0 {
		c.Cache.ChartTTL = 10 * time.Minute
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "regimedash"
	}
	if c.Cache.Redis.HistorySize <= 0 {
		c.Cache.Redis.HistorySize = 500
	}
	if c.Kafka.SnapshotTopic == "" {
		c.Kafka.SnapshotTopic = "regimedash.snapshots"
	}
	if c.Kafka.LogTopic == "" {
		c.Kafka.LogTopic = "regimedash.logs"
	}
	if c.Kafka.Compression == "" {
		c.Kafka.Compression = "snappy"
	}
	if c.Kafka.RequiredAcks == 0 {
		c.Kafka.RequiredAcks = 1
	}
	if c.Kafka.Producer.MaxAttempts <= 0 {
		c.Kafka.Producer.MaxAttempts = 3
	}
	if c.Kafka.Producer.Linger <= 0 {
		c.Kafka.Producer.Linger = 200 * time.Millisecond
	}
	if c.Kafka.Producer.WriteTimeout <= 0 {
		c.Kafka.Producer.WriteTimeout = 10 * time.Second
	}
	if c.Pipeline.BufferSize <= 0 {
		c.Pipeline.BufferSize = 256
	}
	if c.Pipeline.MaxRetries < 0 {
		c.Pipeline.MaxRetries = 0
	}
	if c.Pipeline.Backoff <= 0 {
		c.Pipeline.Backoff = 100 * time.Millisecond
	}
	if c.RateLimit.RPS <= 0 {
		c.RateLimit.RPS = 5
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 10
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	if !strings.HasPrefix(c.Backend.BaseURL, "http://") && !strings.HasPrefix(c.Backend.BaseURL, "https://") {
		return fmt.Errorf("backend.base_url must be an http(s) URL, got '%s'", c.Backend.BaseURL)
	}
	if c.Session.SettleDelay < 0 || c.Session.SettleDelay > MaxSettleDelay {
		return fmt.Errorf("session.settle_delay must be within 0..%s, got %s", MaxSettleDelay, c.Session.SettleDelay)
	}
	if c.Session.TradingDaysPerYear <= 0 {
		return fmt.Errorf("session.trading_days_per_year must be positive, got %d", c.Session.TradingDaysPerYear)
	}
	switch c.Session.Persona {
	case "Conservative", "Balanced", "Aggressive":
	default:
		return fmt.Errorf("session.persona must be 'Conservative', 'Balanced' or 'Aggressive', got '%s'", c.Session.Persona)
	}
	if c.Session.TimelineWindow < 0 {
		return fmt.Errorf("session.timeline_window cannot be negative")
	}
	if c.Cache.Redis.Enabled && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("cache.redis.addr is required when redis is enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}
