package lifo

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

type subscription struct {
	id       string
	notifier Notifier
	enabled  bool
	sent     atomic.Uint64
	dropped  atomic.Uint64
}

// SubscriberStats tracks event delivery for one subscriber.
type SubscriberStats struct {
	Sent    uint64 `json:"sent"`
	Dropped uint64 `json:"dropped"`
	Enabled bool   `json:"enabled"`
}

// RegistryStats is a snapshot of a Registry.
type RegistryStats struct {
	Published   uint64                     `json:"published"`
	Subscribers map[string]SubscriberStats `json:"subscribers"`
}

// Registry maps subscriber ids to notifiers and fans out data-available
// events to every enabled subscriber.
//
// Registry has its own lock, independent of the Coordinator's. Delivery
// happens after that lock is released, so a notifier may call back into the
// Registry or the device.
type Registry struct {
	mu          sync.RWMutex
	subscribers map[string]*subscription
	published   atomic.Uint64
	logger      *slog.Logger
}

// NewRegistry creates an empty Registry. A nil logger uses slog.Default().
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		subscribers: make(map[string]*subscription),
		logger:      logger,
	}
}

// Subscribe registers n under id and enables it. Subscribing an id that is
// already present keeps a single entry, replaces its notifier and enables it.
func (r *Registry) Subscribe(id string, n Notifier) error {
	if n == nil {
		return ErrNilNotifier
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if sub, ok := r.subscribers[id]; ok {
		sub.notifier = n
		sub.enabled = true
		return nil
	}
	r.subscribers[id] = &subscription{id: id, notifier: n, enabled: true}
	return nil
}

// Unsubscribe removes id. Removing an absent id is a no-op.
func (r *Registry) Unsubscribe(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subscribers, id)
}

// SetEnabled turns delivery to id on or off without removing it. It reports
// whether id is registered.
func (r *Registry) SetEnabled(id string, enabled bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subscribers[id]
	if ok {
		sub.enabled = enabled
	}
	return ok
}

// Len returns the number of registered subscribers, enabled or not.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subscribers)
}

// NotifyDataAvailable delivers EventDataAvailable to every enabled
// subscriber. Delivery is fire-and-forget.
func (r *Registry) NotifyDataAvailable() {
	r.publish(EventDataAvailable)
}

func (r *Registry) publish(ev Event) {
	type target struct {
		sub      *subscription
		notifier Notifier
	}

	r.mu.RLock()
	targets := make([]target, 0, len(r.subscribers))
	for _, sub := range r.subscribers {
		if sub.enabled {
			targets = append(targets, target{sub, sub.notifier})
		}
	}
	r.mu.RUnlock()

	r.published.Add(1)

	for _, t := range targets {
		if err := t.notifier.Notify(ev); err != nil {
			t.sub.dropped.Add(1)
			r.logger.Debug("event not delivered", "subscriber", t.sub.id, "event", ev.String(), "error", err)
			continue
		}
		t.sub.sent.Add(1)
	}
}

// Stats returns delivery counters for every registered subscriber.
func (r *Registry) Stats() RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := RegistryStats{
		Published:   r.published.Load(),
		Subscribers: make(map[string]SubscriberStats, len(r.subscribers)),
	}
	for id, sub := range r.subscribers {
		stats.Subscribers[id] = SubscriberStats{
			Sent:    sub.sent.Load(),
			Dropped: sub.dropped.Load(),
			Enabled: sub.enabled,
		}
	}
	return stats
}
