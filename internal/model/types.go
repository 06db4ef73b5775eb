package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// Event Channel Types
// -----------------------------------------------------------------------------

// Envelope type constants for the event channel wire contract.
const (
	TypePing       = "ping"
	TypePong       = "pong"
	TypeDisconnect = "disconnect"
	TypeConnectErr = "connect_error"
	TypeActivity   = "activity"
	TypeStats      = "stats"
	TypeMessage    = "message"
)

// MessageEnvelope wraps every payload crossing the event channel.
type MessageEnvelope struct {
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	TimestampMs int64           `json:"timestampMs"`
	ID          string          `json:"id"`
}

// NewEnvelope builds an envelope around the given payload. The ID is generated
// at send time; uniqueness is best-effort.
func NewEnvelope(msgType string, payload any) (MessageEnvelope, error) {
	env := MessageEnvelope{
		Type:        msgType,
		TimestampMs: time.Now().UnixMilli(),
		ID:          uuid.NewString(),
	}

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return MessageEnvelope{}, fmt.Errorf("marshal payload: %w", err)
		}
		env.Payload = data
	}

	return env, nil
}

// DisconnectPayload carries the server's stated reason for a disconnect.
type DisconnectPayload struct {
	Reason string `json:"reason"`
}

// ConnectErrorPayload carries a server-side connection error.
type ConnectErrorPayload struct {
	Error string `json:"error"`
}

// -----------------------------------------------------------------------------
// Dashboard Types
// -----------------------------------------------------------------------------

// ActivityItem is a single entry in the dashboard activity feed: a tool call,
// a submitted transaction, a storage upload, etc.
type ActivityItem struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`    // "tool_call", "transaction", "storage", "session"
	Summary    string `json:"summary"` // Human-readable one-liner
	Actor      string `json:"actor,omitempty"`
	TxHash     string `json:"txHash,omitempty"`
	OccurredMs int64  `json:"occurredMs"`
}

// DashboardStats is the full dashboard stats snapshot.
type DashboardStats struct {
	BlockHeight    int64  `json:"blockHeight"`
	PeerCount      int    `json:"peerCount"`
	WalletBalance  string `json:"walletBalance"`
	StorageObjects int64  `json:"storageObjects"`
	ToolCalls      int64  `json:"toolCalls"`
	ActiveSessions int    `json:"activeSessions"`
	UpdatedMs      int64  `json:"updatedMs"`
}

// StatsDelta is a partial stats update pushed over the event channel.
// Nil fields are left untouched when applied.
type StatsDelta struct {
	BlockHeight    *int64  `json:"blockHeight,omitempty"`
	PeerCount      *int    `json:"peerCount,omitempty"`
	WalletBalance  *string `json:"walletBalance,omitempty"`
	StorageObjects *int64  `json:"storageObjects,omitempty"`
	ToolCalls      *int64  `json:"toolCalls,omitempty"`
	ActiveSessions *int    `json:"activeSessions,omitempty"`
	UpdatedMs      int64   `json:"updatedMs"`
}

// Apply merges a partial update into the snapshot.
func (s *DashboardStats) Apply(d StatsDelta) {
	if d.BlockHeight != nil {
		s.BlockHeight = *d.BlockHeight
	}
	if d.PeerCount != nil {
		s.PeerCount = *d.PeerCount
	}
	if d.WalletBalance != nil {
		s.WalletBalance = *d.WalletBalance
	}
	if d.StorageObjects != nil {
		s.StorageObjects = *d.StorageObjects
	}
	if d.ToolCalls != nil {
		s.ToolCalls = *d.ToolCalls
	}
	if d.ActiveSessions != nil {
		s.ActiveSessions = *d.ActiveSessions
	}
	if d.UpdatedMs != 0 {
		s.UpdatedMs = d.UpdatedMs
	}
}

// -----------------------------------------------------------------------------
// Request Gateway Types
// -----------------------------------------------------------------------------

// APIResponse is the JSON envelope returned by the tool server.
type APIResponse struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
	RequestID string          `json:"requestId,omitempty"`
}
