package lifo

// Serializer defines the interface for message encoding and decoding.
// Implementations convert between protocol messages and byte slices.
// The default implementation uses MessagePack.
type Serializer interface {
	// Marshal encodes a Go value to bytes.
	Marshal(v interface{}) ([]byte, error)

	// Unmarshal decodes bytes into a Go value.
	Unmarshal(data []byte, v interface{}) error
}

// Transport sends and receives whole frames between a Client and a Server.
// The default implementation writes length-prefixed frames to a stream.
//
// Send may be called from several goroutines at once; Receive is called from
// a single reader goroutine.
type Transport interface {
	// Send transmits one frame to the remote endpoint.
	Send(data []byte) error

	// Receive reads one complete frame from the remote endpoint.
	Receive() ([]byte, error)

	// Close releases transport resources and closes underlying connections.
	Close() error
}
