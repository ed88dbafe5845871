package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultCatalogExchange    = "NFO"
	DefaultCatalogFreshness   = 24 * time.Hour
	DefaultCatalogTimeout     = 30 * time.Second
	DefaultCatalogMaxRetries  = 3
	DefaultReconnectBaseDelay = 1 * time.Second
	DefaultReconnectMaxDelay  = 30 * time.Second
	DefaultBackoffFactor      = 1.5
	DefaultWriteTimeout       = 5 * time.Second
	DefaultHandshakeTimeout   = 10 * time.Second
	DefaultPingInterval       = 30 * time.Second
	DefaultCacheKey           = "marketdata:instruments"
	DefaultDBPort             = 5432
	DefaultDBSSLMode          = "prefer"
	DefaultMaxConns           = 10
	DefaultMinConns           = 2
	DefaultHealthPort         = 8080
	DefaultHealthPath         = "/health"
)

// DefaultUnderlyings is the whitelist of option underlyings kept by the store.
var DefaultUnderlyings = []string{"NIFTY", "BANKNIFTY", "FINNIFTY", "MIDCPNIFTY"}

func (c *Config) applyDefaults() {
	// Catalog defaults
	if c.Catalog.Exchange == "" {
		c.Catalog.Exchange = DefaultCatalogExchange
	}
	if len(c.Catalog.Underlyings) == 0 {
		c.Catalog.Underlyings = append([]string(nil), DefaultUnderlyings...)
	}
	if c.Catalog.Freshness == 0 {
		c.Catalog.Freshness = DefaultCatalogFreshness
	}
	if c.Catalog.Timeout == 0 {
		c.Catalog.Timeout = DefaultCatalogTimeout
	}
	if c.Catalog.MaxRetries == 0 {
		c.Catalog.MaxRetries = DefaultCatalogMaxRetries
	}

	// Feed defaults
	if c.Feed.ReconnectBaseDelay == 0 {
		c.Feed.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Feed.ReconnectMaxDelay == 0 {
		c.Feed.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.Feed.BackoffFactor == 0 {
		c.Feed.BackoffFactor = DefaultBackoffFactor
	}
	if c.Feed.WriteTimeout == 0 {
		c.Feed.WriteTimeout = DefaultWriteTimeout
	}
	if c.Feed.HandshakeTimeout == 0 {
		c.Feed.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Feed.PingInterval == 0 {
		c.Feed.PingInterval = DefaultPingInterval
	}

	// Cache defaults
	if c.Cache.Key == "" {
		c.Cache.Key = DefaultCacheKey
	}

	// History defaults (only meaningful when enabled)
	if c.History.Port == 0 {
		c.History.Port = DefaultDBPort
	}
	if c.History.SSLMode == "" {
		c.History.SSLMode = DefaultDBSSLMode
	}
	if c.History.MaxConns == 0 {
		c.History.MaxConns = DefaultMaxConns
	}
	if c.History.MinConns == 0 {
		c.History.MinConns = DefaultMinConns
	}

	// Health defaults
	if c.Health.Port == 0 {
		c.Health.Port = DefaultHealthPort
	}
	if c.Health.Path == "" {
		c.Health.Path = DefaultHealthPath
	}
}
