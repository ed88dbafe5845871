package config

import "time"

// Config is the root configuration for the market-data service.
type Config struct {
	Instance InstanceConfig `yaml:"instance"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Feed     FeedConfig     `yaml:"feed"`
	Cache    CacheConfig    `yaml:"cache"`
	History  DBConfig       `yaml:"history"`
	Health   HealthConfig   `yaml:"health"`
}

// InstanceConfig identifies this service instance.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// CatalogConfig holds instrument catalog source settings.
type CatalogConfig struct {
	URL             string        `yaml:"url"`              // Catalog REST base URL
	APIToken        string        `yaml:"api_token"`        // Bearer token, optional
	Exchange        string        `yaml:"exchange"`         // Exchange segment to fetch (e.g., "NFO")
	Underlyings     []string      `yaml:"underlyings"`
	Freshness       time.Duration `yaml:"freshness"`        // Max age of a cached catalog
	RefreshInterval time.Duration `yaml:"refresh_interval"` // Periodic re-fetch, 0 disables
	Timeout         time.Duration `yaml:"timeout"`
	MaxRetries      int           `yaml:"max_retries"`
}

// FeedConfig holds streaming connection settings.
type FeedConfig struct {
	URL                string        `yaml:"url"`   // WebSocket base URL
	Token              string        `yaml:"token"` // Bearer token appended on connect, optional
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
	BackoffFactor      float64       `yaml:"backoff_factor"`
	WriteTimeout       time.Duration `yaml:"write_timeout"`
	HandshakeTimeout   time.Duration `yaml:"handshake_timeout"`
	PingInterval       time.Duration `yaml:"ping_interval"`
}

// CacheConfig holds the persisted instrument cache settings.
// Redis is used when addr is set, otherwise a local file when path is set.
type CacheConfig struct {
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	FilePath      string `yaml:"file_path"`
	Key           string `yaml:"key"`
}

// DBConfig holds the Postgres connection for daily candle history.
// An empty host disables the history-backed reference price tier.
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

// Enabled reports whether a history database is configured.
func (db DBConfig) Enabled() bool { return db.Host != "" }

// HealthConfig holds health endpoint settings.
type HealthConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}
