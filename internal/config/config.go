package config

import "time"

// Config is the root configuration for a polydash instance.
type Config struct {
	Instance InstanceConfig `yaml:"instance"`
	API      APIConfig      `yaml:"api"`
	Markets  MarketsConfig  `yaml:"markets"`
	Assets   []AssetConfig  `yaml:"assets"`
	Poller   PollerConfig   `yaml:"poller"`
	Writers  WritersConfig  `yaml:"writers"`
	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
	Server   ServerConfig   `yaml:"server"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// InstanceConfig identifies this instance.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// APIConfig holds upstream Polymarket API settings.
type APIConfig struct {
	GammaURL   string        `yaml:"gamma_url"` // Markets metadata API
	CLOBURL    string        `yaml:"clob_url"`  // Order book REST API
	WSURL      string        `yaml:"ws_url"`    // Market channel WebSocket
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// MarketsConfig holds the market list refresh settings.
type MarketsConfig struct {
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	RefreshTimeout  time.Duration `yaml:"refresh_timeout"`
	Limit           int           `yaml:"limit"` // Markets fetched per refresh
}

// AssetConfig names one tracked order book asset (CLOB token).
type AssetConfig struct {
	TokenID    string `yaml:"token_id"`
	EventTitle string `yaml:"event_title"`
	Outcome    string `yaml:"outcome"`
}

// PollerConfig holds book re-sync poller settings.
type PollerConfig struct {
	Interval    time.Duration `yaml:"interval"`
	Concurrency int           `yaml:"concurrency"`
	Timeout     time.Duration `yaml:"timeout"`
}

// WritersConfig holds batch writer settings.
type WritersConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// DatabaseConfig holds the history database connection. History
// persistence is enabled when a host is configured.
type DatabaseConfig struct {
	Postgres DBConfig `yaml:"postgres"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// CacheConfig holds Redis cache settings. Caching is enabled when a URL
// is configured.
type CacheConfig struct {
	RedisURL string        `yaml:"redis_url"`
	TTL      time.Duration `yaml:"ttl"`
}

// ServerConfig holds HTTP API server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Path string `yaml:"path"`
}

// HistoryEnabled reports whether history persistence is configured.
func (c *Config) HistoryEnabled() bool {
	return c.Database.Postgres.Host != ""
}

// CacheEnabled reports whether the Redis cache is configured.
func (c *Config) CacheEnabled() bool {
	return c.Cache.RedisURL != ""
}
