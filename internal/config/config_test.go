package config

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	yaml := `
ws:
  url: ws://dashboard.local/ws
  reconnect_interval: 2s
api:
  base_url: http://dashboard.local/api
  timeout: 10s
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.WS.URL != "ws://dashboard.local/ws" {
		t.Errorf("WS.URL = %q, want %q", cfg.WS.URL, "ws://dashboard.local/ws")
	}
	if cfg.WS.ReconnectInterval != 2*time.Second {
		t.Errorf("WS.ReconnectInterval = %s, want 2s", cfg.WS.ReconnectInterval)
	}
	if cfg.API.Timeout != 10*time.Second {
		t.Errorf("API.Timeout = %s, want 10s", cfg.API.Timeout)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "secret123")

	yaml := `
ws:
  url: ws://dashboard.local/ws
database:
  enabled: true
  host: localhost
  name: chainboard
  user: chainboard
  password: ${TEST_DB_PASSWORD}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Password != "secret123" {
		t.Errorf("Database.Password = %q, want %q", cfg.Database.Password, "secret123")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("WS_URL", "ws://override.local/ws")
	t.Setenv("WS_RECONNECT_INTERVAL", "2500")
	t.Setenv("WS_MAX_RECONNECT_ATTEMPTS", "7")
	t.Setenv("API_BASE_URL", "http://override.local/api")
	t.Setenv("API_TIMEOUT", "4000")

	yaml := `
ws:
  url: ws://file.local/ws
  reconnect_interval: 5s
api:
  base_url: http://file.local/api
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.WS.URL != "ws://override.local/ws" {
		t.Errorf("WS.URL = %q, want env override", cfg.WS.URL)
	}
	if cfg.WS.ReconnectInterval != 2500*time.Millisecond {
		t.Errorf("WS.ReconnectInterval = %s, want 2.5s", cfg.WS.ReconnectInterval)
	}
	if cfg.WS.MaxReconnectAttempts != 7 {
		t.Errorf("WS.MaxReconnectAttempts = %d, want 7", cfg.WS.MaxReconnectAttempts)
	}
	if cfg.API.BaseURL != "http://override.local/api" {
		t.Errorf("API.BaseURL = %q, want env override", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 4*time.Second {
		t.Errorf("API.Timeout = %s, want 4s", cfg.API.Timeout)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	path := writeTempFile(t, "ws:\n  url: ws://dashboard.local/ws\n")

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.WS.ReconnectInterval != DefaultReconnectInterval {
		t.Errorf("ReconnectInterval = %s, want default %s", cfg.WS.ReconnectInterval, DefaultReconnectInterval)
	}
	if cfg.WS.MaxReconnectAttempts != DefaultMaxReconnectAttempts {
		t.Errorf("MaxReconnectAttempts = %d, want default %d", cfg.WS.MaxReconnectAttempts, DefaultMaxReconnectAttempts)
	}
	if cfg.API.Timeout != DefaultAPITimeout {
		t.Errorf("API.Timeout = %s, want default %s", cfg.API.Timeout, DefaultAPITimeout)
	}
	if cfg.Recorder.BatchSize != DefaultBatchSize {
		t.Errorf("Recorder.BatchSize = %d, want default %d", cfg.Recorder.BatchSize, DefaultBatchSize)
	}
}

// TestDefaultEndpointsUsable: a fully-defaulted config must point both
// endpoints at the same local dev server, and the API base URL must carry no
// path since callers pass full paths like /api/stats.
func TestDefaultEndpointsUsable(t *testing.T) {
	api, err := url.Parse(DefaultAPIBaseURL)
	if err != nil {
		t.Fatalf("parse DefaultAPIBaseURL: %v", err)
	}
	ws, err := url.Parse(DefaultWSURL)
	if err != nil {
		t.Fatalf("parse DefaultWSURL: %v", err)
	}

	if api.Path != "" {
		t.Errorf("DefaultAPIBaseURL path = %q, want none", api.Path)
	}
	if api.Host != ws.Host {
		t.Errorf("default hosts disagree: api %q vs ws %q", api.Host, ws.Host)
	}
}

func TestValidateBounds(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		cfg.WS.URL = "ws://dashboard.local/ws"
		cfg.applyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing ws url",
			mutate:  func(c *Config) { c.WS.URL = "" },
			wantErr: "ws.url",
		},
		{
			name:    "reconnect interval below minimum",
			mutate:  func(c *Config) { c.WS.ReconnectInterval = 500 * time.Millisecond },
			wantErr: "ws.reconnect_interval",
		},
		{
			name:    "cap below base",
			mutate:  func(c *Config) { c.WS.ReconnectCap = c.WS.ReconnectInterval / 2 },
			wantErr: "ws.reconnect_cap",
		},
		{
			name:    "zero attempts",
			mutate:  func(c *Config) { c.WS.MaxReconnectAttempts = 0 },
			wantErr: "ws.max_reconnect_attempts",
		},
		{
			name:    "too many attempts",
			mutate:  func(c *Config) { c.WS.MaxReconnectAttempts = 51 },
			wantErr: "ws.max_reconnect_attempts",
		},
		{
			name:    "api timeout below minimum",
			mutate:  func(c *Config) { c.API.Timeout = 500 * time.Millisecond },
			wantErr: "api.timeout",
		},
		{
			name:    "api timeout above maximum",
			mutate:  func(c *Config) { c.API.Timeout = 2 * time.Minute },
			wantErr: "api.timeout",
		},
		{
			name:    "csrf header without token",
			mutate:  func(c *Config) { c.API.CSRFHeader = "X-CSRF-Token" },
			wantErr: "api.csrf_token",
		},
		{
			name: "database enabled missing host",
			mutate: func(c *Config) {
				c.Database.Enabled = true
				c.Database.Name = "chainboard"
				c.Database.User = "chainboard"
				c.Database.Password = "pw"
			},
			wantErr: "database.host",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %q, want error containing %q", err, tt.wantErr)
			}
		})
	}
}
