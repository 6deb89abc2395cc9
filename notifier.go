package lifo

import "errors"

// Event is an out-of-band notification delivered to subscribers. It carries
// no value; subscribers read the device to retrieve data.
type Event uint8

const (
	// EventDataAvailable is delivered after every successful push.
	EventDataAvailable Event = iota + 1
)

func (e Event) String() string {
	switch e {
	case EventDataAvailable:
		return "data_available"
	default:
		return "unknown"
	}
}

// errDropped is returned by notifiers that discarded an event.
var errDropped = errors.New("lifo: event dropped")

// Notifier receives events from a Registry.
//
// Notify must not block for long: the Registry delivers to subscribers one
// after another and never queues or retries. Returning an error only marks
// the event as dropped for that subscriber.
type Notifier interface {
	Notify(ev Event) error
}

// NotifierFunc adapts an ordinary function to the Notifier interface.
type NotifierFunc func(ev Event) error

// Notify calls f(ev).
func (f NotifierFunc) Notify(ev Event) error {
	return f(ev)
}

// ChanNotifier delivers events on a channel without blocking. When the
// channel buffer is full the event is dropped, the same way an asynchronous
// signal is lost when the receiver is not listening.
type ChanNotifier chan<- Event

// Notify sends ev if the channel has room.
func (c ChanNotifier) Notify(ev Event) error {
	select {
	case c <- ev:
		return nil
	default:
		return errDropped
	}
}
