package connection

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// TestWSChannel_CloseDuringDial: closing the channel while the handshake is
// still in flight must release the dialed socket and report the close to the
// caller, never a successful connect.
func TestWSChannel_CloseDuringDial(t *testing.T) {
	upgrader := websocket.Upgrader{}
	serverRead := make(chan error, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Hold the handshake open so Close can race the dial.
		time.Sleep(200 * time.Millisecond)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, _, err = conn.ReadMessage()
		serverRead <- err
	}))
	defer server.Close()

	ch := NewWSChannel(ChannelConfig{
		URL: "ws" + strings.TrimPrefix(server.URL, "http"),
	}, nil)

	dialDone := make(chan error, 1)
	go func() {
		dialDone <- ch.Connect(context.Background())
	}()

	time.Sleep(50 * time.Millisecond)
	if err := ch.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if err := <-dialDone; !errors.Is(err, ErrAlreadyClosed) {
		t.Errorf("Connect after close = %v, want ErrAlreadyClosed", err)
	}
	if ch.IsConnected() {
		t.Error("channel reports connected after close")
	}

	// The server's accepted socket must die promptly; a read still blocked
	// here means the dialed connection was leaked.
	select {
	case err := <-serverRead:
		if err == nil {
			t.Error("server read succeeded on a connection that should be closed")
		}
	case <-time.After(time.Second):
		t.Error("dialed socket left open after close during dial")
	}
}
