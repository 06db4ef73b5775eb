package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chainboard/chainboard/internal/connection"
	"github.com/chainboard/chainboard/internal/gateway"
	"github.com/chainboard/chainboard/internal/model"
)

func TestState_ActivityFeedOrderAndLimit(t *testing.T) {
	s := NewState(3, nil)

	for i := 1; i <= 5; i++ {
		s.AddActivity(model.ActivityItem{
			ID:      fmt.Sprintf("act-%d", i),
			Summary: fmt.Sprintf("event %d", i),
		})
	}

	feed := s.Snapshot().Activity
	if len(feed) != 3 {
		t.Fatalf("feed length = %d, want 3", len(feed))
	}

	// Newest first, oldest evicted.
	want := []string{"act-5", "act-4", "act-3"}
	for i, id := range want {
		if feed[i].ID != id {
			t.Errorf("feed[%d] = %s, want %s", i, feed[i].ID, id)
		}
	}
}

func TestState_ActivityDedup(t *testing.T) {
	s := NewState(10, nil)

	s.AddActivity(model.ActivityItem{ID: "act-1"})
	s.AddActivity(model.ActivityItem{ID: "act-1"}) // replay after reconnect
	s.AddActivity(model.ActivityItem{ID: "act-2"})

	if got := len(s.Snapshot().Activity); got != 2 {
		t.Errorf("feed length = %d, want 2", got)
	}
}

func TestState_EvictedIDAcceptedAgain(t *testing.T) {
	s := NewState(2, nil)

	s.AddActivity(model.ActivityItem{ID: "act-1"})
	s.AddActivity(model.ActivityItem{ID: "act-2"})
	s.AddActivity(model.ActivityItem{ID: "act-3"}) // evicts act-1
	s.AddActivity(model.ActivityItem{ID: "act-1"}) // no longer tracked

	feed := s.Snapshot().Activity
	if len(feed) != 2 || feed[0].ID != "act-1" {
		t.Errorf("feed = %+v, want act-1 back on top", feed)
	}
}

func TestState_StatsMerge(t *testing.T) {
	s := NewState(10, nil)

	s.SetStats(model.DashboardStats{BlockHeight: 100, PeerCount: 8})

	height := int64(101)
	s.ApplyStats(model.StatsDelta{BlockHeight: &height})

	stats := s.Snapshot().Stats
	if stats.BlockHeight != 101 {
		t.Errorf("BlockHeight = %d, want 101", stats.BlockHeight)
	}
	if stats.PeerCount != 8 {
		t.Errorf("PeerCount = %d, want 8 untouched", stats.PeerCount)
	}
}

func TestState_StatusAndError(t *testing.T) {
	s := NewState(10, nil)

	if got := s.Snapshot().Status; got != connection.StatusDisconnected {
		t.Errorf("initial status = %s, want %s", got, connection.StatusDisconnected)
	}

	h := s.Handlers()
	h.OnConnectionChange(connection.StatusConnected)
	h.OnError(errors.New("probe lost"))

	snap := s.Snapshot()
	if snap.Status != connection.StatusConnected {
		t.Errorf("status = %s, want %s", snap.Status, connection.StatusConnected)
	}
	if snap.LastErr != "probe lost" {
		t.Errorf("LastErr = %q, want probe lost", snap.LastErr)
	}
}

func TestState_RefreshStats(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/stats" {
			http.NotFound(w, r)
			return
		}
		data, _ := json.Marshal(model.DashboardStats{BlockHeight: 777, UpdatedMs: time.Now().UnixMilli()})
		json.NewEncoder(w).Encode(model.APIResponse{Success: true, Data: data})
	}))
	defer server.Close()

	s := NewState(10, nil)
	g := gateway.New[model.DashboardStats](server.URL)

	if !s.RefreshStats(context.Background(), g) {
		t.Fatal("RefreshStats failed against healthy server")
	}
	if got := s.Snapshot().Stats.BlockHeight; got != 777 {
		t.Errorf("BlockHeight = %d, want 777", got)
	}
}

func TestState_RefreshStatsFailureLeavesSnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(model.APIResponse{Success: false, Error: "stats backend down"})
	}))
	defer server.Close()

	s := NewState(10, nil)
	s.SetStats(model.DashboardStats{BlockHeight: 100})
	g := gateway.New[model.DashboardStats](server.URL)

	if s.RefreshStats(context.Background(), g) {
		t.Fatal("RefreshStats reported success on server failure")
	}
	if got := s.Snapshot().Stats.BlockHeight; got != 100 {
		t.Errorf("BlockHeight = %d, want 100 preserved", got)
	}
}
