//go:build darwin || linux

package lifo

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// ErrSignalUnsupported is returned by NewSignalNotifier on platforms without
// SIGIO delivery.
var ErrSignalUnsupported = errors.New("lifo: signal notification is not supported on this platform")

// SignalNotifier delivers SIGIO to a process, the way a character device
// notifies the owner of a file opened with O_ASYNC. The receiving process
// installs a handler with os/signal and reads the device when the signal
// arrives. Signals coalesce: several pushes may be observed as one signal.
type SignalNotifier struct {
	pid int
}

// NewSignalNotifier returns a notifier that signals pid. Use os.Getpid() to
// notify the current process.
func NewSignalNotifier(pid int) (*SignalNotifier, error) {
	if pid <= 0 {
		return nil, fmt.Errorf("invalid pid %d", pid)
	}
	return &SignalNotifier{pid: pid}, nil
}

// Notify sends SIGIO to the owning process.
func (s *SignalNotifier) Notify(ev Event) error {
	if err := unix.Kill(s.pid, unix.SIGIO); err != nil {
		return fmt.Errorf("signal pid %d: %w", s.pid, err)
	}
	return nil
}

// AsyncSignals returns the signals a SignalNotifier delivers, for use with
// signal.Notify.
func AsyncSignals() []os.Signal {
	return []os.Signal{unix.SIGIO}
}
