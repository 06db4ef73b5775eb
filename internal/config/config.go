package config

import "time"

// Config is the root configuration for a chainboard client instance.
type Config struct {
	WS        WSConfig        `yaml:"ws"`
	API       APIConfig       `yaml:"api"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Database  DatabaseConfig  `yaml:"database"`
	Recorder  RecorderConfig  `yaml:"recorder"`
}

// WSConfig holds event-channel settings.
type WSConfig struct {
	URL                  string        `yaml:"url"`
	ReconnectInterval    time.Duration `yaml:"reconnect_interval"`     // backoff base
	ReconnectCap         time.Duration `yaml:"reconnect_cap"`          // backoff ceiling
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"` // 1-50
	HeartbeatInterval    time.Duration `yaml:"heartbeat_interval"`
	ConnectTimeout       time.Duration `yaml:"connect_timeout"`
	WriteTimeout         time.Duration `yaml:"write_timeout"`
}

// APIConfig holds request-gateway settings.
type APIConfig struct {
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`     // default per-request timeout, 1s-60s
	CSRFHeader string        `yaml:"csrf_header"` // anti-forgery header name; empty disables
	CSRFToken  string        `yaml:"csrf_token"`
}

// DashboardConfig holds consumer-side settings.
type DashboardConfig struct {
	ActivityLimit int `yaml:"activity_limit"` // entries retained in the feed
}

// DatabaseConfig holds the optional Postgres connection for activity history.
type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// RecorderConfig holds activity batch-writer settings.
type RecorderConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}
