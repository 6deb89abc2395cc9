package lifo

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStatusHealthz(t *testing.T) {
	dev := newTestDevice(t, DefaultCapacity)
	srv := httptest.NewServer(NewStatusHandler(dev))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
}

func TestStatusStats(t *testing.T) {
	dev := newTestDevice(t, 4)
	h := openHandle(t, dev)
	mustWrite(t, h, "1\n")
	mustWrite(t, h, "2\n")
	if err := dev.Subscribe("watcher", ChanNotifier(make(chan Event, 1))); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	rec := httptest.NewRecorder()
	NewStatusHandler(dev).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected application/json, got %q", ct)
	}

	var stats DeviceStats
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if stats.Name != "test" || stats.Capacity != 4 || stats.Len != 2 || stats.Handles != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
	if stats.Published != 2 {
		t.Errorf("Expected 2 published, got %d", stats.Published)
	}
	if _, ok := stats.Subscribers["watcher"]; !ok {
		t.Errorf("Expected watcher in subscribers: %+v", stats.Subscribers)
	}
}

func TestStatusUnknownRoute(t *testing.T) {
	dev := newTestDevice(t, DefaultCapacity)
	rec := httptest.NewRecorder()
	NewStatusHandler(dev).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/stats", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rec.Code)
	}
}
