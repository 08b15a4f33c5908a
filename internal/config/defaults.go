package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultGammaURL        = "https://gamma-api.polymarket.com"
	DefaultCLOBURL         = "https://clob.polymarket.com"
	DefaultWSURL           = "wss://ws-subscriptions-clob.polymarket.com/ws/market"
	DefaultAPITimeout      = 30 * time.Second
	DefaultMaxRetries      = 3
	DefaultRefreshInterval = 30 * time.Second
	DefaultRefreshTimeout  = 20 * time.Second
	DefaultMarketsLimit    = 100
	DefaultDBPort          = 5432
	DefaultDBSSLMode       = "prefer"
	DefaultMaxConns        = 10
	DefaultMinConns        = 2
	DefaultBatchSize       = 500
	DefaultFlushInterval   = 5 * time.Second
	DefaultBufferSize      = 1024
	DefaultPollInterval    = 5 * time.Minute
	DefaultPollConcurrency = 10
	DefaultPollTimeout     = 10 * time.Second
	DefaultCacheTTL        = 60 * time.Second
	DefaultServerPort      = 8080
	DefaultMetricsPath     = "/metrics"
)

func (c *Config) applyDefaults() {
	// API defaults
	if c.API.GammaURL == "" {
		c.API.GammaURL = DefaultGammaURL
	}
	if c.API.CLOBURL == "" {
		c.API.CLOBURL = DefaultCLOBURL
	}
	if c.API.WSURL == "" {
		c.API.WSURL = DefaultWSURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}

	// Markets defaults
	if c.Markets.RefreshInterval == 0 {
		c.Markets.RefreshInterval = DefaultRefreshInterval
	}
	if c.Markets.RefreshTimeout == 0 {
		c.Markets.RefreshTimeout = DefaultRefreshTimeout
	}
	if c.Markets.Limit == 0 {
		c.Markets.Limit = DefaultMarketsLimit
	}

	// Database defaults (only when history is configured)
	if c.HistoryEnabled() {
		applyDBDefaults(&c.Database.Postgres)
	}

	// Writers defaults
	if c.Writers.BatchSize == 0 {
		c.Writers.BatchSize = DefaultBatchSize
	}
	if c.Writers.FlushInterval == 0 {
		c.Writers.FlushInterval = DefaultFlushInterval
	}
	if c.Writers.BufferSize == 0 {
		c.Writers.BufferSize = DefaultBufferSize
	}

	// Poller defaults
	if c.Poller.Interval == 0 {
		c.Poller.Interval = DefaultPollInterval
	}
	if c.Poller.Concurrency == 0 {
		c.Poller.Concurrency = DefaultPollConcurrency
	}
	if c.Poller.Timeout == 0 {
		c.Poller.Timeout = DefaultPollTimeout
	}

	// Cache defaults
	if c.Cache.TTL == 0 {
		c.Cache.TTL = DefaultCacheTTL
	}

	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}

	// Metrics defaults
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
