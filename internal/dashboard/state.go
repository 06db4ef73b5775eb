package dashboard

import (
	"context"
	"log/slog"
	"sync"

	"github.com/chainboard/chainboard/internal/connection"
	"github.com/chainboard/chainboard/internal/gateway"
	"github.com/chainboard/chainboard/internal/model"
)

// DefaultActivityLimit caps the feed when no limit is configured.
const DefaultActivityLimit = 100

// Snapshot is a point-in-time copy of the dashboard state.
type Snapshot struct {
	Status   connection.Status
	Stats    model.DashboardStats
	Activity []model.ActivityItem // newest first
	LastErr  string
}

// State accumulates dashboard data from the event channel and the stats
// endpoint. All methods are safe for concurrent use.
type State struct {
	limit  int
	logger *slog.Logger

	mu      sync.RWMutex
	status  connection.Status
	stats   model.DashboardStats
	feed    []model.ActivityItem // newest first
	seen    map[string]struct{}
	lastErr string
}

// NewState creates an empty dashboard state.
func NewState(activityLimit int, logger *slog.Logger) *State {
	if activityLimit <= 0 {
		activityLimit = DefaultActivityLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &State{
		limit:  activityLimit,
		logger: logger,
		status: connection.StatusDisconnected,
		seen:   make(map[string]struct{}),
	}
}

// Handlers returns a handler set that feeds this state. Pass it to
// Manager.SetHandlers, extending it first if the caller needs its own hooks.
func (s *State) Handlers() connection.Handlers {
	return connection.Handlers{
		OnConnectionChange: s.SetStatus,
		OnActivity:         s.AddActivity,
		OnStatsUpdate:      s.ApplyStats,
		OnError:            s.NoteError,
	}
}

// SetStatus records the current connection status.
func (s *State) SetStatus(status connection.Status) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

// AddActivity prepends one item to the feed. Items replayed after a reconnect
// are deduplicated by ID.
func (s *State) AddActivity(item model.ActivityItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.seen[item.ID]; dup {
		return
	}

	s.feed = append(s.feed, model.ActivityItem{})
	copy(s.feed[1:], s.feed)
	s.feed[0] = item
	s.seen[item.ID] = struct{}{}

	if len(s.feed) > s.limit {
		evicted := s.feed[len(s.feed)-1]
		s.feed = s.feed[:len(s.feed)-1]
		delete(s.seen, evicted.ID)
	}
}

// ApplyStats merges a partial update into the stats snapshot.
func (s *State) ApplyStats(delta model.StatsDelta) {
	s.mu.Lock()
	s.stats.Apply(delta)
	s.mu.Unlock()
}

// SetStats replaces the stats snapshot wholesale, as after a full refresh.
func (s *State) SetStats(stats model.DashboardStats) {
	s.mu.Lock()
	s.stats = stats
	s.mu.Unlock()
}

// NoteError records the most recent connection-layer error for display.
func (s *State) NoteError(err error) {
	s.mu.Lock()
	s.lastErr = err.Error()
	s.mu.Unlock()
}

// RefreshStats fetches a full stats snapshot through the gateway and stores
// it on success. Cancelled refreshes leave the snapshot untouched.
func (s *State) RefreshStats(ctx context.Context, g *gateway.Gateway[model.DashboardStats]) bool {
	res := g.Get(ctx, "/api/stats")
	if !res.Success {
		if !res.Cancelled {
			s.logger.Warn("stats refresh failed", "error", res.Err)
		}
		return false
	}
	s.SetStats(res.Data)
	return true
}

// Snapshot returns a copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	feed := make([]model.ActivityItem, len(s.feed))
	copy(feed, s.feed)

	return Snapshot{
		Status:   s.status,
		Stats:    s.stats,
		Activity: feed,
		LastErr:  s.lastErr,
	}
}
