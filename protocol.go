package lifo

import "errors"

// Operations a client may request.
const (
	opRead        = "read"
	opWrite       = "write"
	opSubscribe   = "subscribe"
	opUnsubscribe = "unsubscribe"
	opCancel      = "cancel"
)

// Error codes carried in responses.
const (
	codeInterrupted = "interrupted"
	codeCopyFault   = "copy_fault"
	codeClosed      = "closed"
	codeProtocol    = "protocol"
	codeInternal    = "internal"
)

// message is the single frame type exchanged by Client and Server.
//
// A request has ID > 0 and Op set. Its response has the same ID and no Op.
// An event has ID 0 and Event set.
type message struct {
	ID     uint64 `msgpack:"id"`
	Op     string `msgpack:"op,omitempty"`
	Data   []byte `msgpack:"data,omitempty"`
	Max    int    `msgpack:"max,omitempty"`
	Target uint64 `msgpack:"target,omitempty"`
	N      int    `msgpack:"n,omitempty"`
	Code   string `msgpack:"code,omitempty"`
	Err    string `msgpack:"err,omitempty"`
	Event  Event  `msgpack:"event,omitempty"`
}

func (m *message) setError(err error) {
	m.Code = errorCode(err)
	m.Err = err.Error()
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrInterrupted):
		return codeInterrupted
	case errors.Is(err, ErrCopyFault):
		return codeCopyFault
	case errors.Is(err, ErrClosed):
		return codeClosed
	case errors.Is(err, ErrProtocol):
		return codeProtocol
	default:
		return codeInternal
	}
}
