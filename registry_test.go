package lifo

import (
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRegistrySubscribeIdempotent(t *testing.T) {
	r := NewRegistry(discardLogger())

	var first, second atomic.Int32
	if err := r.Subscribe("a", NotifierFunc(func(Event) error { first.Add(1); return nil })); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if err := r.Subscribe("a", NotifierFunc(func(Event) error { second.Add(1); return nil })); err != nil {
		t.Fatalf("Second Subscribe failed: %v", err)
	}
	if r.Len() != 1 {
		t.Fatalf("Expected 1 subscriber, got %d", r.Len())
	}

	r.NotifyDataAvailable()
	if first.Load() != 0 || second.Load() != 1 {
		t.Errorf("Expected only the replacement notifier to fire, got first=%d second=%d", first.Load(), second.Load())
	}
}

func TestRegistryUnsubscribe(t *testing.T) {
	r := NewRegistry(discardLogger())
	r.Unsubscribe("missing")

	ch := make(chan Event, 1)
	r.Subscribe("a", ChanNotifier(ch))
	r.Unsubscribe("a")
	r.Unsubscribe("a")

	r.NotifyDataAvailable()
	select {
	case ev := <-ch:
		t.Fatalf("Unsubscribed notifier received %v", ev)
	default:
	}
	if r.Len() != 0 {
		t.Errorf("Expected no subscribers, got %d", r.Len())
	}
}

func TestRegistryDisabledSubscriber(t *testing.T) {
	r := NewRegistry(discardLogger())
	ch := make(chan Event, 4)
	r.Subscribe("a", ChanNotifier(ch))

	if !r.SetEnabled("a", false) {
		t.Fatal("SetEnabled should find registered subscriber")
	}
	if r.SetEnabled("missing", false) {
		t.Error("SetEnabled should report unknown subscriber")
	}

	r.NotifyDataAvailable()
	if len(ch) != 0 {
		t.Fatalf("Disabled subscriber received %d events", len(ch))
	}

	r.SetEnabled("a", true)
	r.NotifyDataAvailable()
	if ev := <-ch; ev != EventDataAvailable {
		t.Errorf("Expected %v, got %v", EventDataAvailable, ev)
	}

	stats := r.Stats()
	if stats.Published != 2 {
		t.Errorf("Expected 2 published, got %d", stats.Published)
	}
	if s := stats.Subscribers["a"]; s.Sent != 1 || s.Dropped != 0 || !s.Enabled {
		t.Errorf("Unexpected stats: %+v", s)
	}
}

// TestRegistrySlowSubscriberDropped verifies delivery never blocks on a full
// subscriber.
func TestRegistrySlowSubscriberDropped(t *testing.T) {
	r := NewRegistry(discardLogger())
	slow := make(chan Event, 1)
	fast := make(chan Event, 8)
	r.Subscribe("slow", ChanNotifier(slow))
	r.Subscribe("fast", ChanNotifier(fast))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 3; i++ {
			r.NotifyDataAvailable()
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("NotifyDataAvailable blocked on a full subscriber")
	}

	stats := r.Stats()
	if s := stats.Subscribers["slow"]; s.Sent != 1 || s.Dropped != 2 {
		t.Errorf("Expected slow 1 sent / 2 dropped, got %+v", s)
	}
	if s := stats.Subscribers["fast"]; s.Sent != 3 || s.Dropped != 0 {
		t.Errorf("Expected fast 3 sent / 0 dropped, got %+v", s)
	}
}

// TestRegistryNotifierReentry verifies a notifier may modify the registry
// while it is being notified.
func TestRegistryNotifierReentry(t *testing.T) {
	r := NewRegistry(discardLogger())
	var calls atomic.Int32
	r.Subscribe("once", NotifierFunc(func(Event) error {
		calls.Add(1)
		r.Unsubscribe("once")
		return nil
	}))

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.NotifyDataAvailable()
		r.NotifyDataAvailable()
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notifier re-entering the registry deadlocked")
	}
	if calls.Load() != 1 {
		t.Errorf("Expected 1 call, got %d", calls.Load())
	}
}

func TestRegistryFailingNotifier(t *testing.T) {
	r := NewRegistry(discardLogger())
	r.Subscribe("bad", NotifierFunc(func(Event) error { return errors.New("gone") }))
	r.NotifyDataAvailable()

	if s := r.Stats().Subscribers["bad"]; s.Dropped != 1 || s.Sent != 0 {
		t.Errorf("Expected 1 dropped, got %+v", s)
	}
}

func TestRegistryNilNotifier(t *testing.T) {
	r := NewRegistry(nil)
	if err := r.Subscribe("a", nil); !errors.Is(err, ErrNilNotifier) {
		t.Errorf("Expected ErrNilNotifier, got %v", err)
	}
}
