package lifo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
)

// Client talks to a Server. It behaves like one open Handle on the remote
// device: the one-shot end-of-stream state belongs to the connection.
//
// Client is safe for concurrent use by multiple goroutines. Requests are
// correlated with responses by id, so a blocked Read does not hold up a
// Write issued from another goroutine. Read itself should be called from one
// goroutine at a time, as with a Handle.
type Client struct {
	transport  Transport
	serializer Serializer
	logger     *slog.Logger

	// mutex protects responseMap
	mutex       sync.Mutex
	responseMap map[uint64]chan message

	nextID atomic.Uint64
	events chan Event

	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to a Server listening on the given network address, usually
// a unix socket path.
func Dial(network, address string) (*Client, error) {
	conn, err := net.Dial(network, address)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}
	return NewClient(conn, nil), nil
}

// NewClient starts a client on an established connection. A nil logger uses
// slog.Default().
func NewClient(conn io.ReadWriteCloser, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		transport:   NewConnTransport(conn),
		serializer:  MsgpackSerializer{},
		logger:      logger,
		responseMap: make(map[uint64]chan message),
		events:      make(chan Event, 16),
		done:        make(chan struct{}),
	}
	go c.messageLoop()
	return c
}

// Read pops one value and returns at most maxLen bytes of its text form. It
// returns an empty slice once after every value, like Handle.Read.
//
// When ctx is done the server is asked to interrupt the read and Read returns
// whatever the server answers: an error matching ErrInterrupted, or the value
// if it was already taken.
func (c *Client) Read(ctx context.Context, maxLen int) ([]byte, error) {
	resp, err := c.call(ctx, message{Op: opRead, Max: maxLen})
	if err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return []byte{}, nil
	}
	return resp.Data, nil
}

// Write sends p to be parsed and pushed. It reports the number of bytes the
// device consumed.
func (c *Client) Write(ctx context.Context, p []byte) (int, error) {
	resp, err := c.call(ctx, message{Op: opWrite, Data: p})
	return resp.N, err
}

// Subscribe asks for data-available events on this connection. Events are
// delivered on the returned channel, which is shared by all calls and closed
// when the client is closed. Events that arrive while the channel is full are
// dropped.
func (c *Client) Subscribe(ctx context.Context) (<-chan Event, error) {
	if _, err := c.call(ctx, message{Op: opSubscribe}); err != nil {
		return nil, err
	}
	return c.events, nil
}

// Unsubscribe stops event delivery on this connection.
func (c *Client) Unsubscribe(ctx context.Context) error {
	_, err := c.call(ctx, message{Op: opUnsubscribe})
	return err
}

// Close disconnects from the server. Requests still waiting fail with
// ErrClosed.
func (c *Client) Close() error {
	err := c.transport.Close()
	<-c.done
	return err
}

// Done is closed when the connection to the server has ended.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// call sends a request and waits for its response. Once a request has been
// sent, call always waits for the server's answer (or a disconnect) so that
// the outcome of an interrupted request is never lost.
func (c *Client) call(ctx context.Context, req message) (message, error) {
	if err := ctx.Err(); err != nil {
		return message{}, interrupted(err)
	}

	req.ID = c.generateRequestID()
	ch := make(chan message, 1)

	c.mutex.Lock()
	c.responseMap[req.ID] = ch
	c.mutex.Unlock()

	if err := c.send(req); err != nil {
		c.forget(req.ID)
		return message{}, err
	}

	select {
	case resp := <-ch:
		return resp, remoteError(resp)
	case <-c.done:
		return message{}, ErrClosed
	case <-ctx.Done():
	}

	cancel := message{ID: c.generateRequestID(), Op: opCancel, Target: req.ID}
	if err := c.send(cancel); err != nil {
		c.forget(req.ID)
		return message{}, interrupted(ctx.Err())
	}

	select {
	case resp := <-ch:
		return resp, remoteError(resp)
	case <-c.done:
		return message{}, interrupted(ctx.Err())
	}
}

func (c *Client) send(msg message) error {
	data, err := c.serializer.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := c.transport.Send(data); err != nil {
		select {
		case <-c.done:
			return ErrClosed
		default:
		}
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

func (c *Client) forget(id uint64) {
	c.mutex.Lock()
	delete(c.responseMap, id)
	c.mutex.Unlock()
}

func (c *Client) generateRequestID() uint64 {
	return c.nextID.Add(1)
}

// messageLoop routes responses to their callers and events to the event
// channel until the connection ends.
func (c *Client) messageLoop() {
	defer c.closeOnce.Do(func() {
		close(c.done)
		close(c.events)
	})

	for {
		data, err := c.transport.Receive()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) && !errors.Is(err, io.ErrClosedPipe) {
				c.logger.Debug("receive failed", "error", err)
			}
			c.transport.Close()
			return
		}

		var msg message
		if err := c.serializer.Unmarshal(data, &msg); err != nil {
			c.logger.Warn("error decoding message", "error", err)
			continue
		}

		if msg.ID == 0 {
			select {
			case c.events <- msg.Event:
			default:
			}
			continue
		}

		c.mutex.Lock()
		ch, ok := c.responseMap[msg.ID]
		delete(c.responseMap, msg.ID)
		c.mutex.Unlock()
		if ok {
			ch <- msg
		}
	}
}
