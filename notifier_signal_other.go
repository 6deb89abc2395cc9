//go:build !darwin && !linux

package lifo

import (
	"errors"
	"os"
)

// ErrSignalUnsupported is returned by NewSignalNotifier on platforms without
// SIGIO delivery.
var ErrSignalUnsupported = errors.New("lifo: signal notification is not supported on this platform")

// SignalNotifier is a stub on platforms without SIGIO.
// NewSignalNotifier always fails with ErrSignalUnsupported.
type SignalNotifier struct{}

func NewSignalNotifier(pid int) (*SignalNotifier, error) {
	return nil, ErrSignalUnsupported
}

func (s *SignalNotifier) Notify(ev Event) error {
	return ErrSignalUnsupported
}

func AsyncSignals() []os.Signal {
	return nil
}
