// streamd is a development event server for the dashboard client. It serves
// the WebSocket event channel (activity, stats deltas, pong replies) and the
// HTTP stats endpoint with synthetic blockchain-network data, so the client
// can be exercised end to end without a real network.
//
// Usage: go run ./cmd/streamd --addr :8090
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/chainboard/chainboard/internal/model"
	"github.com/chainboard/chainboard/internal/version"
)

func main() {
	addr := flag.String("addr", ":8090", "listen address")
	activityEvery := flag.Duration("activity-every", 2*time.Second, "synthetic activity interval")
	statsEvery := flag.Duration("stats-every", 5*time.Second, "stats delta interval")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting streamd",
		"version", version.Version,
		"addr", *addr,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sim := newSimulator()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWS(ctx, w, r, sim, *activityEvery, *statsEvery, logger)
	})
	mux.HandleFunc("/api/stats", func(w http.ResponseWriter, r *http.Request) {
		data, err := json.Marshal(sim.snapshot())
		w.Header().Set("Content-Type", "application/json")
		if err != nil {
			json.NewEncoder(w).Encode(model.APIResponse{Error: "encode stats", Timestamp: time.Now().UnixMilli()})
			return
		}
		json.NewEncoder(w).Encode(model.APIResponse{
			Success:   true,
			Data:      data,
			Timestamp: time.Now().UnixMilli(),
			RequestID: r.Header.Get("X-Request-Id"),
		})
	})

	server := &http.Server{Addr: *addr, Handler: mux}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", *addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("streamd failed", "error", err)
		os.Exit(1)
	}

	logger.Info("streamd stopped")
}

var upgrader = websocket.Upgrader{
	// Development server: accept any origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// serveWS runs one event-channel session until the client leaves or the
// server shuts down.
func serveWS(ctx context.Context, w http.ResponseWriter, r *http.Request, sim *simulator, activityEvery, statsEvery time.Duration, logger *slog.Logger) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	logger.Info("client connected", "remote", conn.RemoteAddr())

	var writeMu sync.Mutex
	send := func(msgType string, payload any) error {
		env, err := model.NewEnvelope(msgType, payload)
		if err != nil {
			return err
		}
		data, err := json.Marshal(env)
		if err != nil {
			return err
		}
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		return conn.WriteMessage(websocket.TextMessage, data)
	}

	g, ctx := errgroup.WithContext(ctx)

	// Reader: answer pings, drop everything else.
	g.Go(func() error {
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return err
			}
			var env model.MessageEnvelope
			if err := json.Unmarshal(raw, &env); err != nil {
				logger.Debug("drop malformed frame", "error", err)
				continue
			}
			if env.Type == model.TypePing {
				if err := send(model.TypePong, nil); err != nil {
					return err
				}
			}
		}
	})

	// Synthetic activity feed
	g.Go(func() error {
		ticker := time.NewTicker(activityEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := send(model.TypeActivity, sim.nextActivity()); err != nil {
					return err
				}
			}
		}
	})

	// Periodic stats deltas
	g.Go(func() error {
		ticker := time.NewTicker(statsEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := send(model.TypeStats, sim.nextDelta()); err != nil {
					return err
				}
			}
		}
	})

	err = g.Wait()
	if ctx.Err() != nil {
		// Server shutdown: tell the client before dropping the connection.
		send(model.TypeDisconnect, model.DisconnectPayload{Reason: "server shutdown"})
	}
	logger.Info("client disconnected", "remote", conn.RemoteAddr(), "error", err)
}

// simulator produces a plausible evolving view of a small blockchain network.
type simulator struct {
	mu    sync.Mutex
	stats model.DashboardStats
	seq   int64
}

func newSimulator() *simulator {
	return &simulator{
		stats: model.DashboardStats{
			BlockHeight:    1000,
			PeerCount:      8,
			WalletBalance:  "100.00",
			StorageObjects: 12,
			ActiveSessions: 1,
			UpdatedMs:      time.Now().UnixMilli(),
		},
	}
}

var activityKinds = []string{"tool_call", "transaction", "storage", "session"}

func (s *simulator) nextActivity() model.ActivityItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	s.stats.ToolCalls++
	kind := activityKinds[s.seq%int64(len(activityKinds))]

	return model.ActivityItem{
		ID:         uuid.NewString(),
		Kind:       kind,
		Summary:    fmt.Sprintf("synthetic %s #%d", kind, s.seq),
		Actor:      "streamd",
		TxHash:     fmt.Sprintf("0x%032x", s.seq),
		OccurredMs: time.Now().UnixMilli(),
	}
}

func (s *simulator) nextDelta() model.StatsDelta {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.BlockHeight++
	s.stats.UpdatedMs = time.Now().UnixMilli()

	height := s.stats.BlockHeight
	calls := s.stats.ToolCalls
	return model.StatsDelta{
		BlockHeight: &height,
		ToolCalls:   &calls,
		UpdatedMs:   s.stats.UpdatedMs,
	}
}

func (s *simulator) snapshot() model.DashboardStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
