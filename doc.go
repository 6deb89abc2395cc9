// Package lifo provides a shared, fixed-capacity, last-in-first-out buffer
// of integers that many clients read and write concurrently, with blocking
// semantics and asynchronous "data available" notification.
//
// # Architecture Overview
//
// A Device is built from four parts:
//
//  1. A bounded stack that holds the values. Only the Coordinator touches it.
//
//  2. A Coordinator that guards the stack with a single lock and two wait
//     conditions. Writers wait while the stack is full, readers while it is
//     empty. The lock is held only while a predicate is checked and the
//     stack mutated, and is released on every exit path, including
//     cancellation.
//
//  3. A Registry of subscribers. After every push the Registry delivers
//     EventDataAvailable to each enabled subscriber, outside the
//     Coordinator's lock, fire-and-forget.
//
//  4. Handles. Each open Handle carries its own one-shot end-of-stream flag.
//
// # Reading and Writing
//
// Clients open a Handle and use it like a file:
//
//	dev, err := lifo.NewDevice(lifo.DefaultConfig())
//	h, err := dev.Open()
//	defer h.Close()
//
//	h.Write(ctx, []byte("7\n"))    // pushes 7, blocks while full
//
//	buf := make([]byte, 64)
//	n, err := h.Read(ctx, buf)     // "7 ", blocks while empty
//	n, err = h.Read(ctx, buf)      // 0: one-shot end-of-stream
//	n, err = h.Read(ctx, buf)      // blocks again
//
// Values read back as decimal text followed by a single space. A write
// payload that does not parse as an integer is logged and discarded but still
// reported as fully consumed.
//
// Blocking calls take a context.Context. Cancelling it interrupts the wait;
// the error wraps ErrInterrupted and the device is left unchanged.
//
// # Notification
//
// Consumers that cannot block register a Notifier:
//
//	events := make(chan lifo.Event, 8)
//	h.SetNotifier(lifo.ChanNotifier(events))
//
// Other notifiers deliver SIGIO to a process (SignalNotifier), publish to an
// MQTT topic (MQTTNotifier), or call a function (NotifierFunc). Events carry
// no value; the subscriber reads the device to get it. Events missed while
// a subscriber is not listening are lost.
//
// # Remote Access
//
// A Server exposes a device over any stream connection using length-prefixed
// MessagePack frames, and a Client speaks the same protocol:
//
//	srv := lifo.NewServer(dev, 16, nil)
//	go srv.Serve(listener)
//
//	client, err := lifo.Dial("unix", "/tmp/lifo.sock")
//	events, err := client.Subscribe(ctx)
//	data, err := client.Read(ctx, 64)
//
// Each connection owns one Handle. The lifod command wraps this in a daemon
// configured from YAML, with an optional HTTP status endpoint
// (NewStatusHandler). The asynctest command is an event-driven consumer.
package lifo
