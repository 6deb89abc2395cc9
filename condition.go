package lifo

import "sync"

// condition is a broadcast wait condition that, unlike sync.Cond, can be
// waited on together with a context. Waiters take the channel from wait()
// while still holding the Coordinator lock, drop the lock, and then block on
// the channel; broadcast closes it and installs a fresh one. A broadcast that
// happens after wait() returned is therefore never lost.
type condition struct {
	mu sync.Mutex
	ch chan struct{}
}

func newCondition() *condition {
	return &condition{ch: make(chan struct{})}
}

// wait returns a channel that is closed by the next broadcast.
func (c *condition) wait() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ch
}

// broadcast wakes every current waiter.
func (c *condition) broadcast() {
	c.mu.Lock()
	close(c.ch)
	c.ch = make(chan struct{})
	c.mu.Unlock()
}
