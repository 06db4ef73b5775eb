// Package config loads and validates chainboard client configuration.
//
// Configuration is read from a YAML file with ${VAR} environment expansion,
// then overridden by the flat environment variables the deployment surface
// recognizes (WS_URL, WS_RECONNECT_INTERVAL, WS_MAX_RECONNECT_ATTEMPTS,
// API_BASE_URL, API_TIMEOUT). Interval overrides are integer milliseconds.
package config
