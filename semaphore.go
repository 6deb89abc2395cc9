package lifo

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Semaphore provides mutual exclusion whose acquisition can be interrupted.
// The Coordinator uses a binary Semaphore as the single lock guarding the
// stack, so that a caller waiting for the lock can give up when its context
// is cancelled instead of hanging.
//
// Example:
//
//	sem := lifo.NewBinarySemaphore()
//	defer sem.Close()
//
//	if err := sem.AcquireContext(ctx); err != nil {
//		return err
//	}
//	// critical section
//	sem.Release()
type Semaphore interface {
	// AcquireContext blocks until the semaphore can be decremented or ctx is
	// done. On failure the semaphore is not held.
	AcquireContext(ctx context.Context) error

	// Release increments the semaphore, potentially unblocking waiters.
	// Releasing a semaphore that is not held is an error.
	Release() error

	// Close makes every later acquisition fail with ErrClosed. A holder may
	// still Release after Close.
	Close() error
}

// errNotHeld is returned by Release on a semaphore nobody holds.
var errNotHeld = errors.New("lifo: semaphore released without being held")

type binarySemaphore struct {
	w         *semaphore.Weighted
	held      chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
}

// NewBinarySemaphore returns a Semaphore with a single permit.
func NewBinarySemaphore() Semaphore {
	return &binarySemaphore{
		w:      semaphore.NewWeighted(1),
		held:   make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

func (s *binarySemaphore) AcquireContext(ctx context.Context) error {
	select {
	case <-s.closed:
		return ErrClosed
	default:
	}

	if err := s.w.Acquire(ctx, 1); err != nil {
		return err
	}
	s.held <- struct{}{}
	return nil
}

func (s *binarySemaphore) Release() error {
	select {
	case <-s.held:
	default:
		return errNotHeld
	}
	s.w.Release(1)
	return nil
}

func (s *binarySemaphore) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}
