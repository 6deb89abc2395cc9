package lifo

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
)

// Coordinator serializes access to a bounded stack and blocks producers while
// it is full and consumers while it is empty.
//
// A single lock guards the stack. It is held only while the predicate is
// checked and the stack mutated; it is released before waiting and before the
// push hook runs. Every exit path, including interruption, leaves the lock
// released.
//
// Coordinator is safe for concurrent use by multiple goroutines.
type Coordinator struct {
	lock  Semaphore
	stack *stack

	// size mirrors stack.len(); it is stored with the lock held.
	size atomic.Int64

	// spaceAvailable is broadcast after every pop, dataAvailable after every push.
	spaceAvailable *condition
	dataAvailable  *condition

	// onPush runs after a successful push, outside the lock.
	onPush func()

	closed    chan struct{}
	closeOnce sync.Once
}

// NewCoordinator creates a Coordinator around an empty stack of the given
// capacity. onPush, if not nil, is called after every successful push with no
// lock held. A non-positive capacity falls back to DefaultCapacity.
func NewCoordinator(capacity int, onPush func()) *Coordinator {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Coordinator{
		lock:           NewBinarySemaphore(),
		stack:          newStack(capacity),
		spaceAvailable: newCondition(),
		dataAvailable:  newCondition(),
		onPush:         onPush,
		closed:         make(chan struct{}),
	}
}

// Write pushes v, blocking while the stack is full.
//
// If ctx is done before space becomes available the stack is not modified and
// the returned error wraps both ErrInterrupted and ctx.Err().
func (c *Coordinator) Write(ctx context.Context, v int) error {
	if err := c.lockWhen(ctx, c.stack.full, c.spaceAvailable); err != nil {
		return err
	}
	err := c.stack.tryPush(v)
	c.size.Store(int64(c.stack.len()))
	c.unlock()
	if err != nil {
		return err
	}

	c.dataAvailable.broadcast()
	if c.onPush != nil {
		c.onPush()
	}
	return nil
}

// Pop removes and returns the most recently pushed value, blocking while the
// stack is empty. Interruption leaves the stack unmodified.
func (c *Coordinator) Pop(ctx context.Context) (int, error) {
	if err := c.lockWhen(ctx, c.stack.empty, c.dataAvailable); err != nil {
		return 0, err
	}
	v, err := c.stack.tryPop()
	c.size.Store(int64(c.stack.len()))
	c.unlock()
	if err != nil {
		return 0, err
	}

	c.spaceAvailable.broadcast()
	return v, nil
}

// Read pops a value and returns it as decimal text followed by a single space.
func (c *Coordinator) Read(ctx context.Context) ([]byte, error) {
	v, err := c.Pop(ctx)
	if err != nil {
		return nil, err
	}
	return formatValue(v), nil
}

// Len returns the number of values currently held. It does not take the
// lock, so it can be called from the push hook and after Close.
func (c *Coordinator) Len() int {
	return int(c.size.Load())
}

// Cap returns the fixed capacity.
func (c *Coordinator) Cap() int {
	return c.stack.cap()
}

// Close wakes every blocked caller with ErrClosed. Later calls to Write and
// Pop fail with ErrClosed as well. Close is idempotent.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.lock.Close()
	})
}

// lockWhen acquires the lock and keeps waiting on cond for as long as
// blocked reports true. It returns nil with the lock held, or an error with
// the lock released.
func (c *Coordinator) lockWhen(ctx context.Context, blocked func() bool, cond *condition) error {
	if err := c.acquire(ctx); err != nil {
		return err
	}
	for blocked() {
		// Take the wake channel before dropping the lock so that a
		// broadcast from the next mutation cannot be missed.
		ready := cond.wait()
		c.unlock()

		select {
		case <-ready:
		case <-ctx.Done():
			return interrupted(ctx.Err())
		case <-c.closed:
			return ErrClosed
		}

		if err := c.acquire(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (c *Coordinator) acquire(ctx context.Context) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}
	if err := c.lock.AcquireContext(ctx); err != nil {
		if errors.Is(err, ErrClosed) {
			return ErrClosed
		}
		return interrupted(err)
	}
	if err := ctx.Err(); err != nil {
		c.unlock()
		return interrupted(err)
	}
	return nil
}

// unlock releases the lock. Release fails only if the lock is not held,
// which would mean the Coordinator itself is broken.
func (c *Coordinator) unlock() {
	if err := c.lock.Release(); err != nil {
		panic(err)
	}
}

// formatValue renders v the way readers receive it: "%d ".
func formatValue(v int) []byte {
	b := strconv.AppendInt(make([]byte, 0, 12), int64(v), 10)
	return append(b, ' ')
}
