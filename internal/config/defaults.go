package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultWSURL                = "ws://localhost:8090/ws"
	DefaultReconnectInterval    = 5 * time.Second
	DefaultReconnectCap         = 30 * time.Second
	DefaultMaxReconnectAttempts = 10
	DefaultHeartbeatInterval    = 15 * time.Second
	DefaultConnectTimeout       = 10 * time.Second
	DefaultWriteTimeout         = 5 * time.Second

	// Gateway callers pass full paths ("/api/stats"), so the base URL
	// carries no path component.
	DefaultAPIBaseURL = "http://localhost:8090"
	DefaultAPITimeout = 30 * time.Second

	DefaultActivityLimit = 200

	DefaultDBPort    = 5432
	DefaultDBSSLMode = "prefer"
	DefaultMaxConns  = 10
	DefaultMinConns  = 2

	DefaultBatchSize     = 100
	DefaultFlushInterval = 5 * time.Second
	DefaultBufferSize    = 1000
)

func (c *Config) applyDefaults() {
	if c.WS.URL == "" {
		c.WS.URL = DefaultWSURL
	}
	if c.WS.ReconnectInterval == 0 {
		c.WS.ReconnectInterval = DefaultReconnectInterval
	}
	if c.WS.ReconnectCap == 0 {
		c.WS.ReconnectCap = DefaultReconnectCap
	}
	if c.WS.MaxReconnectAttempts == 0 {
		c.WS.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if c.WS.HeartbeatInterval == 0 {
		c.WS.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.WS.ConnectTimeout == 0 {
		c.WS.ConnectTimeout = DefaultConnectTimeout
	}
	if c.WS.WriteTimeout == 0 {
		c.WS.WriteTimeout = DefaultWriteTimeout
	}

	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultAPIBaseURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}

	if c.Dashboard.ActivityLimit == 0 {
		c.Dashboard.ActivityLimit = DefaultActivityLimit
	}

	if c.Database.Port == 0 {
		c.Database.Port = DefaultDBPort
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = DefaultDBSSLMode
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = DefaultMaxConns
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = DefaultMinConns
	}

	if c.Recorder.BatchSize == 0 {
		c.Recorder.BatchSize = DefaultBatchSize
	}
	if c.Recorder.FlushInterval == 0 {
		c.Recorder.FlushInterval = DefaultFlushInterval
	}
	if c.Recorder.BufferSize == 0 {
		c.Recorder.BufferSize = DefaultBufferSize
	}
}
