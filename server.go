package lifo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
)

// readChunk is the largest read a server performs for a client. It holds the
// text of any int.
const readChunk = 32

// maxPendingReads bounds the reads a connection may queue behind a blocked one.
const maxPendingReads = 16

// Server exposes a Device to other processes over stream connections.
//
// Every connection owns one Handle, so end-of-stream state is per
// connection. Reads on a connection run one at a time in arrival order;
// writes run concurrently; subscribe, unsubscribe and cancel are handled as
// soon as they arrive. Closing a connection interrupts its blocked requests.
type Server struct {
	dev         *Device
	logger      *slog.Logger
	eventBuffer int

	mu        sync.Mutex
	listeners map[net.Listener]struct{}
	conns     map[*serverConn]struct{}
	closed    bool
	wg        sync.WaitGroup
}

// NewServer creates a server for dev. eventBuffer is the number of events
// queued per subscribed connection before further events are dropped.
func NewServer(dev *Device, eventBuffer int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if eventBuffer <= 0 {
		eventBuffer = 16
	}
	return &Server{
		dev:         dev,
		logger:      logger,
		eventBuffer: eventBuffer,
		listeners:   make(map[net.Listener]struct{}),
		conns:       make(map[*serverConn]struct{}),
	}
}

// Serve accepts connections on l until l fails or the server is closed.
// It returns nil after Close.
func (s *Server) Serve(l net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.listeners[l] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.listeners, l)
		s.mu.Unlock()
	}()

	for {
		conn, err := l.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		go s.ServeConn(conn)
	}
}

// ServeConn serves a single connection and returns when it is closed by
// either side. Close waits for every ServeConn in progress.
func (s *Server) ServeConn(conn net.Conn) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	h, err := s.dev.Open()
	if err != nil {
		s.logger.Warn("rejecting connection", "remote", conn.RemoteAddr(), "error", err)
		conn.Close()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &serverConn{
		srv:        s,
		transport:  NewConnTransport(conn),
		serializer: MsgpackSerializer{},
		handle:     h,
		ctx:        ctx,
		cancel:     cancel,
		reads:      make(chan pendingRequest, maxPendingReads),
		events:     make(chan Event, s.eventBuffer),
		inflight:   make(map[uint64]*request),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		h.Close()
		conn.Close()
		return
	}
	s.conns[c] = struct{}{}
	s.mu.Unlock()

	s.logger.Debug("connection opened", "handle", h.ID())
	c.run()
	s.logger.Debug("connection closed", "handle", h.ID())

	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
}

// Close stops all listeners, disconnects every client and waits for their
// requests to finish. The device itself is left open.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for l := range s.listeners {
		l.Close()
	}
	for c := range s.conns {
		c.transport.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

type pendingRequest struct {
	ctx context.Context
	msg message
}

type requestState uint8

const (
	stateQueued requestState = iota
	stateRunning
)

// request is an inflight request. It is removed from serverConn.inflight
// once it has been answered.
type request struct {
	cancel context.CancelFunc
	state  requestState
}

type serverConn struct {
	srv        *Server
	transport  Transport
	serializer Serializer
	handle     *Handle

	// ctx is cancelled when the connection goes away.
	ctx    context.Context
	cancel context.CancelFunc

	reads  chan pendingRequest
	events chan Event

	mu       sync.Mutex
	inflight map[uint64]*request

	wg sync.WaitGroup
}

func (c *serverConn) run() {
	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		c.readLoop()
	}()
	go func() {
		defer c.wg.Done()
		c.eventLoop()
	}()

	c.receiveLoop()

	c.cancel()
	c.transport.Close()
	c.wg.Wait()
	c.handle.Close()
}

// receiveLoop decodes requests until the connection fails.
func (c *serverConn) receiveLoop() {
	for {
		data, err := c.transport.Receive()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) && !errors.Is(err, io.ErrClosedPipe) {
				c.srv.logger.Debug("receive failed", "handle", c.handle.ID(), "error", err)
			}
			return
		}

		var msg message
		if err := c.serializer.Unmarshal(data, &msg); err != nil {
			c.srv.logger.Warn("undecodable request", "handle", c.handle.ID(), "error", err)
			continue
		}
		if msg.ID == 0 {
			c.srv.logger.Warn("request without id", "handle", c.handle.ID(), "op", msg.Op)
			continue
		}

		switch msg.Op {
		case opCancel:
			c.interrupt(msg.Target)
			c.reply(message{ID: msg.ID})

		case opSubscribe:
			resp := message{ID: msg.ID}
			if err := c.handle.SetNotifier(ChanNotifier(c.events)); err != nil {
				resp.setError(err)
			}
			c.reply(resp)

		case opUnsubscribe:
			c.handle.ClearNotifier()
			c.reply(message{ID: msg.ID})

		case opWrite:
			ctx := c.track(msg.ID, stateRunning)
			c.wg.Add(1)
			go func() {
				defer c.wg.Done()
				defer c.untrack(msg.ID)
				c.reply(c.write(ctx, msg))
			}()

		case opRead:
			ctx := c.track(msg.ID, stateQueued)
			select {
			case c.reads <- pendingRequest{ctx: ctx, msg: msg}:
			default:
				c.untrack(msg.ID)
				resp := message{ID: msg.ID}
				resp.setError(fmt.Errorf("%w: too many pending reads", ErrProtocol))
				c.reply(resp)
			}

		default:
			resp := message{ID: msg.ID}
			resp.setError(fmt.Errorf("%w: unknown operation %q", ErrProtocol, msg.Op))
			c.reply(resp)
		}
	}
}

// readLoop runs reads one at a time; the handle's end-of-stream state must
// not be touched concurrently.
func (c *serverConn) readLoop() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case req := <-c.reads:
			if !c.start(req.msg.ID) {
				// Cancelled and answered while queued.
				continue
			}
			resp := c.read(req.ctx, req.msg)
			c.untrack(req.msg.ID)
			c.reply(resp)
		}
	}
}

func (c *serverConn) read(ctx context.Context, msg message) message {
	resp := message{ID: msg.ID}
	buf := make([]byte, min(max(msg.Max, 0), readChunk))
	n, err := c.handle.Read(ctx, buf)
	if err != nil {
		resp.setError(err)
		return resp
	}
	resp.Data = buf[:n]
	resp.N = n
	return resp
}

func (c *serverConn) write(ctx context.Context, msg message) message {
	resp := message{ID: msg.ID}
	n, err := c.handle.Write(ctx, msg.Data)
	if err != nil {
		resp.setError(err)
	}
	resp.N = n
	return resp
}

// eventLoop forwards events queued by the registry to the client.
func (c *serverConn) eventLoop() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case ev := <-c.events:
			c.reply(message{Event: ev})
		}
	}
}

func (c *serverConn) track(id uint64, state requestState) context.Context {
	ctx, cancel := context.WithCancel(c.ctx)
	c.mu.Lock()
	c.inflight[id] = &request{cancel: cancel, state: state}
	c.mu.Unlock()
	return ctx
}

// start moves a queued request to running. It reports false if the request
// has already been answered.
func (c *serverConn) start(id uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	req, ok := c.inflight[id]
	if ok {
		req.state = stateRunning
	}
	return ok
}

func (c *serverConn) untrack(id uint64) {
	c.mu.Lock()
	req, ok := c.inflight[id]
	delete(c.inflight, id)
	c.mu.Unlock()
	if ok {
		req.cancel()
	}
}

// interrupt cancels the request with the given id. A running request answers
// for itself; a queued one is answered here and skipped by readLoop.
func (c *serverConn) interrupt(id uint64) {
	c.mu.Lock()
	req, ok := c.inflight[id]
	queued := ok && req.state == stateQueued
	if queued {
		delete(c.inflight, id)
	}
	c.mu.Unlock()
	if !ok {
		return
	}

	req.cancel()
	if queued {
		resp := message{ID: id}
		resp.setError(interrupted(context.Canceled))
		c.reply(resp)
	}
}

func (c *serverConn) reply(msg message) {
	data, err := c.serializer.Marshal(msg)
	if err != nil {
		c.srv.logger.Error("encode response", "handle", c.handle.ID(), "error", err)
		return
	}
	if err := c.transport.Send(data); err != nil {
		c.srv.logger.Debug("send failed", "handle", c.handle.ID(), "error", err)
	}
}
