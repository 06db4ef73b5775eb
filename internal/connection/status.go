package connection

import "time"

// Status is the connection lifecycle state. Exactly one is active per
// Manager; transitions are the only way it changes.
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
	StatusReconnecting Status = "reconnecting"
	StatusError        Status = "error"
)

// Health is a derived, read-only snapshot of the manager's condition.
type Health struct {
	Connected            bool
	Status               Status
	ReconnectAttempts    int
	MaxReconnectAttempts int
	TimeSinceLastPong    time.Duration
}
