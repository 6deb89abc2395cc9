package lifo

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// MaxFrameSize bounds the body of a single frame.
const MaxFrameSize = 1 << 20

const frameHeaderSize = 4

// MsgpackSerializer encodes protocol messages with MessagePack.
type MsgpackSerializer struct{}

func (ms MsgpackSerializer) Marshal(v interface{}) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (ms MsgpackSerializer) Unmarshal(data []byte, v interface{}) error {
	return msgpack.Unmarshal(data, v)
}

// MsgpackTransport frames messages as a 4-byte big-endian length followed by
// the body.
type MsgpackTransport struct {
	reader  io.Reader
	writer  io.Writer
	closers []io.Closer

	sendMu     sync.Mutex
	bufferPool *BufferPool
	closeOnce  sync.Once
	closeErr   error
}

// NewMsgpackTransport creates a transport over a separate reader and writer,
// such as the two ends of a pair of pipes.
func NewMsgpackTransport(reader io.ReadCloser, writer io.WriteCloser) *MsgpackTransport {
	return &MsgpackTransport{
		reader:     reader,
		writer:     writer,
		closers:    []io.Closer{reader, writer},
		bufferPool: NewBufferPool(512, 10),
	}
}

// NewConnTransport creates a transport over a single bidirectional stream,
// such as a net.Conn.
func NewConnTransport(conn io.ReadWriteCloser) *MsgpackTransport {
	return &MsgpackTransport{
		reader:     conn,
		writer:     conn,
		closers:    []io.Closer{conn},
		bufferPool: NewBufferPool(512, 10),
	}
}

// Send writes the header and body with a single Write so that frames from
// concurrent senders never interleave.
func (mt *MsgpackTransport) Send(data []byte) error {
	if len(data) > MaxFrameSize {
		return fmt.Errorf("%w: frame of %d bytes exceeds %d", ErrProtocol, len(data), MaxFrameSize)
	}

	frame := mt.bufferPool.Get(frameHeaderSize + len(data))
	defer mt.bufferPool.Put(frame)

	binary.BigEndian.PutUint32(frame, uint32(len(data)))
	copy(frame[frameHeaderSize:], data)

	mt.sendMu.Lock()
	defer mt.sendMu.Unlock()

	if _, err := mt.writer.Write(frame); err != nil {
		return err
	}
	if flusher, ok := mt.writer.(interface{ Flush() error }); ok {
		return flusher.Flush()
	}
	return nil
}

// Receive returns the body of the next frame. The returned slice is owned by
// the caller.
func (mt *MsgpackTransport) Receive() ([]byte, error) {
	header := mt.bufferPool.Get(frameHeaderSize)
	if _, err := io.ReadFull(mt.reader, header); err != nil {
		mt.bufferPool.Put(header)
		return nil, err
	}
	length := binary.BigEndian.Uint32(header)
	mt.bufferPool.Put(header)

	if length > MaxFrameSize {
		return nil, fmt.Errorf("%w: frame of %d bytes exceeds %d", ErrProtocol, length, MaxFrameSize)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(mt.reader, data); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return data, nil
}

// Close closes the underlying streams once; later calls return the first
// result.
func (mt *MsgpackTransport) Close() error {
	mt.closeOnce.Do(func() {
		for _, c := range mt.closers {
			if err := c.Close(); err != nil && mt.closeErr == nil {
				mt.closeErr = err
			}
		}
	})
	return mt.closeErr
}
