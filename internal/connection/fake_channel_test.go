package connection

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/chainboard/chainboard/internal/model"
)

// fakeChannel is a scriptable Channel for deterministic manager tests.
type fakeChannel struct {
	connectErr error

	mu        sync.Mutex
	messages  chan InboundMessage
	connected bool
	closed    bool
	readErr   error
	sent      [][]byte
}

func newFakeChannel(connectErr error) *fakeChannel {
	return &fakeChannel{
		connectErr: connectErr,
		messages:   make(chan InboundMessage, 64),
	}
}

func (c *fakeChannel) Connect(ctx context.Context) error {
	if c.connectErr != nil {
		return c.connectErr
	}
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()
	return nil
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.connected = false
	close(c.messages)
	return nil
}

func (c *fakeChannel) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return ErrNotConnected
	}
	c.sent = append(c.sent, data)
	return nil
}

func (c *fakeChannel) Messages() <-chan InboundMessage { return c.messages }

func (c *fakeChannel) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readErr
}

func (c *fakeChannel) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// push injects an inbound envelope as if it arrived from the server.
func (c *fakeChannel) push(t *testing.T, msgType string, payload any) {
	t.Helper()
	env, err := model.NewEnvelope(msgType, payload)
	if err != nil {
		t.Fatalf("build envelope: %v", err)
	}
	data, _ := json.Marshal(env)
	c.messages <- InboundMessage{Data: data, ReceivedAt: time.Now()}
}

// fail simulates an unexpected transport error that kills the channel.
func (c *fakeChannel) fail(err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.connected = false
	c.readErr = err
	close(c.messages)
	c.mu.Unlock()
}

func (c *fakeChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeChannel) sentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

// fakeFactory scripts the outcome of each connect attempt in order.
// Attempts beyond the script succeed.
type fakeFactory struct {
	mu       sync.Mutex
	script   []error
	channels []*fakeChannel
}

func (f *fakeFactory) new(cfg ChannelConfig, logger *slog.Logger) Channel {
	f.mu.Lock()
	defer f.mu.Unlock()

	var connectErr error
	if len(f.channels) < len(f.script) {
		connectErr = f.script[len(f.channels)]
	}

	ch := newFakeChannel(connectErr)
	f.channels = append(f.channels, ch)
	return ch
}

func (f *fakeFactory) attemptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.channels)
}

func (f *fakeFactory) channel(i int) *fakeChannel {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i < 0 {
		i += len(f.channels)
	}
	return f.channels[i]
}

// statusRecorder collects status transitions in order.
type statusRecorder struct {
	mu       sync.Mutex
	statuses []Status
}

func (r *statusRecorder) record(s Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, s)
}

func (r *statusRecorder) all() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Status, len(r.statuses))
	copy(out, r.statuses)
	return out
}

func (r *statusRecorder) count(s Status) int {
	n := 0
	for _, got := range r.all() {
		if got == s {
			n++
		}
	}
	return n
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}
