package lifo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
)

// MaxWriteSize is the largest payload a single Write accepts.
const MaxWriteSize = 20

// Handle is one open reference to a Device, similar to an open file.
//
// A Handle carries its own end-of-stream state: after a Read returns a value,
// the next Read on the same handle returns 0 bytes without blocking, and the
// one after that blocks for data again. Other handles are unaffected.
//
// Write may be called concurrently. Read must be called from one goroutine at
// a time per handle. Close wakes any Read or Write blocked on the handle with
// ErrClosed.
type Handle struct {
	id     string
	dev    *Device
	closed atomic.Bool

	// done is cancelled by Close to wake calls blocked on this handle.
	done   context.Context
	cancel context.CancelFunc

	// pendingEOF is set after a successful read and cleared by the next one.
	pendingEOF bool
}

// ID returns the unique identifier of the handle. It is also the subscriber
// id used by SetNotifier.
func (h *Handle) ID() string {
	return h.id
}

// Read pops one value and copies its text form, "<value> ", into p,
// truncated to len(p). It blocks while the device is empty.
//
// Read returns 0, nil exactly once after each successful read. An empty p
// fails with ErrCopyFault before the device is touched. If ctx is done while
// waiting, the error wraps ErrInterrupted and nothing is consumed.
func (h *Handle) Read(ctx context.Context, p []byte) (int, error) {
	if h.closed.Load() {
		return 0, ErrClosed
	}
	if h.pendingEOF {
		h.pendingEOF = false
		return 0, nil
	}
	if len(p) == 0 {
		return 0, ErrCopyFault
	}

	ctx, release := h.bind(ctx)
	text, err := h.dev.coord.Read(ctx)
	release()
	if err != nil {
		return 0, h.closedErr(ctx, err)
	}
	n := copy(p, text)
	h.pendingEOF = true

	h.dev.logger.Debug("read value", "handle", h.id, "value", string(bytes.TrimSpace(text)))
	return n, nil
}

// Write parses p as a decimal integer terminated by whitespace and pushes it,
// blocking while the device is full.
//
// A payload that does not parse is logged and discarded; Write still reports
// all of p as consumed. Payloads longer than MaxWriteSize fail with
// ErrCopyFault. If ctx is done while waiting for space, the error wraps
// ErrInterrupted and nothing is pushed.
func (h *Handle) Write(ctx context.Context, p []byte) (int, error) {
	if h.closed.Load() {
		return 0, ErrClosed
	}
	if len(p) > MaxWriteSize {
		return 0, fmt.Errorf("%w: payload of %d bytes exceeds %d", ErrCopyFault, len(p), MaxWriteSize)
	}

	v, err := parseValue(p)
	if err != nil {
		h.dev.logger.Warn("wrong command format", "handle", h.id, "error", err)
		return len(p), nil
	}
	ctx, release := h.bind(ctx)
	err = h.dev.coord.Write(ctx, v)
	release()
	if err != nil {
		return 0, h.closedErr(ctx, err)
	}

	h.dev.logger.Debug("wrote value", "handle", h.id, "value", v)
	return len(p), nil
}

// SetNotifier registers n to receive data-available events for this handle,
// replacing any previous notifier.
func (h *Handle) SetNotifier(n Notifier) error {
	if h.closed.Load() {
		return ErrClosed
	}
	return h.dev.registry.Subscribe(h.id, n)
}

// ClearNotifier stops event delivery for this handle.
func (h *Handle) ClearNotifier() {
	h.dev.registry.Unsubscribe(h.id)
}

// Close releases the handle and its notifier registration. The device
// contents are not affected.
func (h *Handle) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	h.cancel()
	h.dev.release(h)
	return nil
}

// bind derives a context from ctx that is also cancelled, with cause
// ErrClosed, when the handle is closed.
func (h *Handle) bind(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancelCause(ctx)
	stop := context.AfterFunc(h.done, func() { cancel(ErrClosed) })
	return ctx, func() {
		stop()
		cancel(nil)
	}
}

// closedErr reports ErrClosed for a call interrupted by Close.
func (h *Handle) closedErr(ctx context.Context, err error) error {
	if errors.Is(err, ErrInterrupted) && errors.Is(context.Cause(ctx), ErrClosed) {
		return ErrClosed
	}
	return err
}

// parseValue reads the first whitespace-delimited token of p as a decimal int.
func parseValue(p []byte) (int, error) {
	fields := bytes.Fields(p)
	if len(fields) == 0 {
		return 0, fmt.Errorf("%w: empty payload", errMalformed)
	}
	v, err := strconv.Atoi(string(fields[0]))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", errMalformed, fields[0])
	}
	return v, nil
}
