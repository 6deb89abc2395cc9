//go:build darwin || linux

package lifo

import (
	"os"
	"os/signal"
	"testing"
	"time"
)

func TestSignalNotifierDeliversSIGIO(t *testing.T) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, AsyncSignals()...)
	defer signal.Stop(sigCh)

	n, err := NewSignalNotifier(os.Getpid())
	if err != nil {
		t.Fatalf("NewSignalNotifier failed: %v", err)
	}
	if err := n.Notify(EventDataAvailable); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	select {
	case sig := <-sigCh:
		if sig != AsyncSignals()[0] {
			t.Errorf("Expected %v, got %v", AsyncSignals()[0], sig)
		}
	case <-time.After(time.Second):
		t.Fatal("Signal was not delivered")
	}
}

func TestSignalNotifierRejectsBadPid(t *testing.T) {
	if _, err := NewSignalNotifier(0); err == nil {
		t.Error("Expected error for pid 0")
	}
}
