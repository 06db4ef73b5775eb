package connection

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chainboard/chainboard/internal/asyncop"
	"github.com/chainboard/chainboard/internal/model"
)

// Config holds Manager settings.
type Config struct {
	URL               string
	Retry             RetryPolicy
	HeartbeatInterval time.Duration
	ConnectTimeout    time.Duration
	WriteTimeout      time.Duration
	BufferSize        int

	// Factory builds the channel for each connect attempt.
	// Defaults to NewWSChannel.
	Factory Factory
}

// Handlers is the replace-wholesale event handler registry. Unset handlers
// are no-ops; only the latest registered set is ever invoked.
type Handlers struct {
	OnConnectionChange func(Status)
	OnActivity         func(model.ActivityItem)
	OnStatsUpdate      func(model.StatsDelta)
	OnError            func(error)

	// OnMessage receives generic envelopes (heartbeat, notification, ...)
	// not covered by the dedicated handlers.
	OnMessage func(model.MessageEnvelope)
}

// Manager owns one long-lived event channel with automatic reconnection and
// heartbeat-based staleness detection. It never panics or returns errors
// across asynchronous boundaries; failures surface through status changes
// and OnError.
type Manager struct {
	cfg     Config
	factory Factory
	logger  *slog.Logger

	mu       sync.Mutex
	status   Status
	channel  Channel
	epoch    uint64 // bumped on every (re)connect and disconnect; stale goroutines check it and exit
	attempts int
	manual   bool
	lastPong time.Time
	handlers Handlers

	// notifyMu keeps status callbacks in transition order.
	// Lock order: notifyMu before mu, never the reverse.
	notifyMu sync.Mutex

	reconnectTimer asyncop.TimerSlot
	heartbeatTimer asyncop.TimerSlot
}

// NewManager creates a Manager. It starts disconnected; call Connect.
func NewManager(cfg Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	factory := cfg.Factory
	if factory == nil {
		factory = NewWSChannel
	}

	return &Manager{
		cfg:     cfg,
		factory: factory,
		logger:  logger,
		status:  StatusDisconnected,
	}
}

// SetHandlers replaces the entire handler registry. Last registration wins.
func (m *Manager) SetHandlers(h Handlers) {
	m.mu.Lock()
	m.handlers = h
	m.mu.Unlock()
}

// Status returns the current connection status.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Health returns a derived snapshot of the manager's condition.
func (m *Manager) Health() Health {
	m.mu.Lock()
	defer m.mu.Unlock()

	var sincePong time.Duration
	if !m.lastPong.IsZero() {
		sincePong = time.Since(m.lastPong)
	}

	attempts := m.attempts
	if attempts > m.cfg.Retry.MaxAttempts {
		attempts = m.cfg.Retry.MaxAttempts
	}

	return Health{
		Connected:            m.status == StatusConnected,
		Status:               m.status,
		ReconnectAttempts:    attempts,
		MaxReconnectAttempts: m.cfg.Retry.MaxAttempts,
		TimeSinceLastPong:    sincePong,
	}
}

// Connect opens the event channel. It resolves exactly once: nil once the
// channel is open, or the open failure. A failed first attempt still
// schedules automatic retries unless Disconnect is called.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	m.manual = false
	m.attempts = 0
	m.mu.Unlock()

	m.reconnectTimer.Cancel()

	return m.attempt(ctx, true)
}

// Disconnect marks the closure as manual, cancels all timers, and releases
// the channel. No reconnect is scheduled until Connect is called again.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.manual = true
	m.epoch++
	ch := m.channel
	m.channel = nil
	m.attempts = 0
	m.mu.Unlock()

	m.reconnectTimer.Cancel()
	m.heartbeatTimer.Cancel()

	if ch != nil {
		ch.Close()
	}

	m.setStatus(StatusDisconnected)
}

// Reconnect is Disconnect followed by Connect with the manual flag cleared.
// It is the only way out of StatusError.
func (m *Manager) Reconnect(ctx context.Context) error {
	m.Disconnect()
	return m.Connect(ctx)
}

// Send wraps payload in a MessageEnvelope and transmits it. Returns false
// without error if not currently connected or if the write fails; it never
// blocks and never panics.
func (m *Manager) Send(msgType string, payload any) bool {
	m.mu.Lock()
	ch := m.channel
	connected := m.status == StatusConnected
	m.mu.Unlock()

	if !connected || ch == nil {
		return false
	}

	env, err := model.NewEnvelope(msgType, payload)
	if err != nil {
		m.logger.Warn("drop unencodable message", "type", msgType, "error", err)
		return false
	}

	data, err := json.Marshal(env)
	if err != nil {
		return false
	}

	if err := ch.Send(data); err != nil {
		m.logger.Warn("send failed", "type", msgType, "error", err)
		return false
	}

	return true
}

// attempt opens a fresh channel, replacing any leftover from a previous
// attempt. initial marks a caller-initiated connect (first failure reports
// StatusError before falling into the retry loop).
func (m *Manager) attempt(ctx context.Context, initial bool) error {
	m.mu.Lock()
	old := m.channel
	m.epoch++
	epoch := m.epoch
	ch := m.factory(ChannelConfig{
		URL:              m.cfg.URL,
		HandshakeTimeout: m.cfg.ConnectTimeout,
		WriteTimeout:     m.cfg.WriteTimeout,
		BufferSize:       m.cfg.BufferSize,
	}, m.logger)
	m.channel = ch
	m.mu.Unlock()

	if old != nil {
		old.Close()
	}

	m.setStatus(StatusConnecting)

	dialCtx := ctx
	if m.cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, m.cfg.ConnectTimeout)
		defer cancel()
	}

	err := ch.Connect(dialCtx)

	m.mu.Lock()
	if epoch != m.epoch {
		m.mu.Unlock()
		ch.Close()
		return ErrSuperseded
	}
	if err != nil {
		m.channel = nil
		m.mu.Unlock()
		m.emitError(fmt.Errorf("open event channel: %w", err))
		m.scheduleRetry(initial)
		return err
	}
	m.attempts = 0
	m.lastPong = time.Now()
	m.mu.Unlock()

	m.setStatus(StatusConnected)

	go m.pump(ch, epoch)
	m.heartbeatTimer.Schedule(m.cfg.HeartbeatInterval, func() { m.heartbeatTick(epoch) })

	m.logger.Info("event channel connected", "url", m.cfg.URL)

	return nil
}

// scheduleRetry books the next reconnect attempt, or parks in StatusError
// once the retry budget is spent. At most one timer is ever pending.
func (m *Manager) scheduleRetry(initial bool) {
	m.mu.Lock()
	if m.manual {
		m.mu.Unlock()
		return
	}
	m.attempts++
	attempts := m.attempts
	m.mu.Unlock()

	if attempts > m.cfg.Retry.MaxAttempts {
		m.setStatus(StatusError)
		m.emitError(ErrMaxRetriesExceeded)
		m.logger.Error("reconnect budget exhausted", "attempts", attempts-1)
		return
	}

	if initial {
		// A failed caller-initiated connect surfaces as an error state
		// before the retry loop takes over.
		m.setStatus(StatusError)
	}
	m.setStatus(StatusReconnecting)

	delay := m.cfg.Retry.Delay(attempts)
	m.logger.Info("scheduling reconnect", "attempt", attempts, "delay", delay)

	m.reconnectTimer.Schedule(delay, func() {
		m.mu.Lock()
		manual := m.manual
		m.mu.Unlock()
		if manual {
			return
		}
		m.attempt(context.Background(), false)
	})
}

// pump consumes one channel's inbound stream until it closes, then routes
// the shutdown. Epoch guards make a superseded pump exit silently.
func (m *Manager) pump(ch Channel, epoch uint64) {
	for msg := range ch.Messages() {
		m.handleMessage(epoch, msg)
	}
	m.handleChannelDown(ch, epoch)
}

// handleChannelDown processes an unexpected channel shutdown.
func (m *Manager) handleChannelDown(ch Channel, epoch uint64) {
	m.mu.Lock()
	if epoch != m.epoch {
		// Already replaced by a newer connect or a manual disconnect.
		m.mu.Unlock()
		return
	}
	m.epoch++
	m.channel = nil
	manual := m.manual
	m.mu.Unlock()

	m.heartbeatTimer.Cancel()

	if manual {
		return
	}

	err := ch.Err()
	if err == nil {
		err = ErrChannelClosed
	}
	m.logger.Warn("event channel down", "error", err)

	m.setStatus(StatusDisconnected)
	m.scheduleRetry(false)
}

// heartbeatTick sends one liveness probe and checks staleness. While the
// connection stays healthy it reschedules itself.
func (m *Manager) heartbeatTick(epoch uint64) {
	m.mu.Lock()
	if epoch != m.epoch || m.status != StatusConnected {
		m.mu.Unlock()
		return
	}
	ch := m.channel
	sincePong := time.Since(m.lastPong)
	m.mu.Unlock()

	if sincePong > 2*m.cfg.HeartbeatInterval {
		m.logger.Warn("heartbeat stale, forcing close",
			"since_pong", sincePong,
			"threshold", 2*m.cfg.HeartbeatInterval,
		)
		m.emitError(ErrStaleConnection)
		// Closing the channel drains into the unexpected-close path.
		ch.Close()
		return
	}

	env, err := model.NewEnvelope(model.TypePing, nil)
	if err == nil {
		data, _ := json.Marshal(env)
		if err := ch.Send(data); err != nil {
			m.logger.Debug("ping send failed", "error", err)
		}
	}

	m.heartbeatTimer.Schedule(m.cfg.HeartbeatInterval, func() { m.heartbeatTick(epoch) })
}

// handleMessage decodes one inbound envelope and routes it to the latest
// registered handler.
func (m *Manager) handleMessage(epoch uint64, msg InboundMessage) {
	m.mu.Lock()
	stale := epoch != m.epoch
	m.mu.Unlock()
	if stale {
		return
	}

	var env model.MessageEnvelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		m.logger.Warn("drop malformed envelope", "error", err)
		return
	}

	switch env.Type {
	case model.TypePong:
		m.mu.Lock()
		m.lastPong = time.Now()
		m.mu.Unlock()

	case model.TypeDisconnect:
		var p model.DisconnectPayload
		json.Unmarshal(env.Payload, &p)
		m.logger.Info("server requested disconnect", "reason", p.Reason)

		m.mu.Lock()
		ch := m.channel
		m.mu.Unlock()
		if ch != nil {
			// Treated exactly like an unexpected close; pump will route it.
			ch.Close()
		}

	case model.TypeConnectErr:
		var p model.ConnectErrorPayload
		json.Unmarshal(env.Payload, &p)
		m.emitError(fmt.Errorf("server connect error: %s", p.Error))

	case model.TypeActivity:
		var item model.ActivityItem
		if err := json.Unmarshal(env.Payload, &item); err != nil {
			m.logger.Warn("drop malformed activity", "error", err)
			return
		}
		if h := m.currentHandlers().OnActivity; h != nil {
			h(item)
		}

	case model.TypeStats:
		var delta model.StatsDelta
		if err := json.Unmarshal(env.Payload, &delta); err != nil {
			m.logger.Warn("drop malformed stats", "error", err)
			return
		}
		if h := m.currentHandlers().OnStatsUpdate; h != nil {
			h(delta)
		}

	default:
		if h := m.currentHandlers().OnMessage; h != nil {
			h(env)
		}
	}
}

// setStatus applies a transition and notifies exactly once per actual
// change. A transition to the status already held is a no-op.
func (m *Manager) setStatus(s Status) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	if m.status == s {
		m.mu.Unlock()
		return
	}
	prev := m.status
	m.status = s
	h := m.handlers.OnConnectionChange
	m.mu.Unlock()

	m.logger.Debug("status change", "from", prev, "to", s)

	if h != nil {
		h(s)
	}
}

func (m *Manager) currentHandlers() Handlers {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handlers
}

func (m *Manager) emitError(err error) {
	if h := m.currentHandlers().OnError; h != nil {
		h(err)
	}
}
