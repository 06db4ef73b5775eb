package config

import (
	"errors"
	"fmt"
	"time"
)

// Bounds enforced by Validate.
const (
	MinReconnectInterval = 1 * time.Second
	MinReconnectAttempts = 1
	MaxReconnectAttempts = 50
	MinAPITimeout        = 1 * time.Second
	MaxAPITimeout        = 60 * time.Second
)

// Validate checks that all required fields are set and values are in range.
func (c *Config) Validate() error {
	if c.WS.URL == "" {
		return errors.New("ws.url is required")
	}
	if c.WS.ReconnectInterval < MinReconnectInterval {
		return fmt.Errorf("ws.reconnect_interval must be >= %s, got %s", MinReconnectInterval, c.WS.ReconnectInterval)
	}
	if c.WS.ReconnectCap < c.WS.ReconnectInterval {
		return fmt.Errorf("ws.reconnect_cap (%s) cannot be below ws.reconnect_interval (%s)", c.WS.ReconnectCap, c.WS.ReconnectInterval)
	}
	if c.WS.MaxReconnectAttempts < MinReconnectAttempts || c.WS.MaxReconnectAttempts > MaxReconnectAttempts {
		return fmt.Errorf("ws.max_reconnect_attempts must be between %d and %d, got %d",
			MinReconnectAttempts, MaxReconnectAttempts, c.WS.MaxReconnectAttempts)
	}
	if c.WS.HeartbeatInterval <= 0 {
		return errors.New("ws.heartbeat_interval must be > 0")
	}

	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	if c.API.Timeout < MinAPITimeout || c.API.Timeout > MaxAPITimeout {
		return fmt.Errorf("api.timeout must be between %s and %s, got %s", MinAPITimeout, MaxAPITimeout, c.API.Timeout)
	}
	if c.API.CSRFHeader != "" && c.API.CSRFToken == "" {
		return errors.New("api.csrf_token is required when api.csrf_header is set")
	}

	if c.Dashboard.ActivityLimit < 1 {
		return errors.New("dashboard.activity_limit must be >= 1")
	}

	if c.Database.Enabled {
		if err := c.Database.validate("database"); err != nil {
			return err
		}
		if c.Recorder.BatchSize < 1 {
			return errors.New("recorder.batch_size must be >= 1")
		}
		if c.Recorder.BufferSize < 1 {
			return errors.New("recorder.buffer_size must be >= 1")
		}
		if c.Recorder.FlushInterval <= 0 {
			return errors.New("recorder.flush_interval must be > 0")
		}
	}

	return nil
}

func (db *DatabaseConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
