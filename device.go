package lifo

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Device is a shared bounded LIFO that any number of clients open, read and
// write concurrently. Writers block while it is full, readers while it is
// empty, and subscribers are told when data arrives.
//
// Device is safe for concurrent use by multiple goroutines.
type Device struct {
	name     string
	coord    *Coordinator
	registry *Registry
	logger   *slog.Logger

	mu      sync.Mutex
	handles map[string]*Handle
	closed  bool
}

// DeviceStats is a point-in-time view of a Device.
type DeviceStats struct {
	Name        string                     `json:"name"`
	Capacity    int                        `json:"capacity"`
	Len         int                        `json:"len"`
	Handles     int                        `json:"handles"`
	Published   uint64                     `json:"published"`
	Subscribers map[string]SubscriberStats `json:"subscribers"`
}

// NewDevice creates an empty device. Only Name, Capacity and Logger are used
// from cfg; the capacity cannot change afterwards.
func NewDevice(cfg Config) (*Device, error) {
	if cfg.Capacity <= 0 {
		return nil, fmt.Errorf("capacity must be positive, got %d", cfg.Capacity)
	}
	if cfg.Name == "" {
		cfg.Name = "lifo"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("device", cfg.Name)

	d := &Device{
		name:     cfg.Name,
		registry: NewRegistry(logger),
		logger:   logger,
		handles:  make(map[string]*Handle),
	}
	d.coord = NewCoordinator(cfg.Capacity, d.registry.NotifyDataAvailable)

	logger.Info("device created", "capacity", cfg.Capacity)
	return d, nil
}

// Name returns the device name.
func (d *Device) Name() string {
	return d.name
}

// Open returns a new handle with fresh end-of-stream state.
func (d *Device) Open() (*Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrClosed
	}
	h := &Handle{id: uuid.NewString(), dev: d}
	h.done, h.cancel = context.WithCancel(context.Background())
	d.handles[h.id] = h

	d.logger.Debug("successfully opened", "handle", h.id)
	return h, nil
}

func (d *Device) release(h *Handle) {
	d.registry.Unsubscribe(h.id)

	d.mu.Lock()
	delete(d.handles, h.id)
	d.mu.Unlock()

	d.logger.Debug("successfully closed", "handle", h.id)
}

// Subscribe registers n under id for data-available events. Subscribing
// the same id twice keeps one registration.
func (d *Device) Subscribe(id string, n Notifier) error {
	return d.registry.Subscribe(id, n)
}

// Unsubscribe removes the registration for id, if any.
func (d *Device) Unsubscribe(id string) {
	d.registry.Unsubscribe(id)
}

// SetSubscriberEnabled pauses or resumes delivery to id without removing it.
func (d *Device) SetSubscriberEnabled(id string, enabled bool) bool {
	return d.registry.SetEnabled(id, enabled)
}

// Stats returns the current fill level, open handles and delivery counters.
func (d *Device) Stats() DeviceStats {
	d.mu.Lock()
	handles := len(d.handles)
	d.mu.Unlock()

	rs := d.registry.Stats()
	return DeviceStats{
		Name:        d.name,
		Capacity:    d.coord.Cap(),
		Len:         d.coord.Len(),
		Handles:     handles,
		Published:   rs.Published,
		Subscribers: rs.Subscribers,
	}
}

// Close wakes every blocked reader and writer with ErrClosed and refuses new
// handles. Values still held are discarded with the device.
func (d *Device) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	d.coord.Close()
	d.logger.Info("device closed")
	return nil
}
