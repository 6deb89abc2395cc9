package lifo

// BufferPool recycles fixed-size byte slices used for frame headers and
// small frame bodies. It uses a buffered channel, so Get and Put never take
// a lock.
//
// BufferPool is safe for concurrent use by multiple goroutines.
type BufferPool struct {
	pool    chan []byte
	bufSize int
}

// NewBufferPool creates a pool pre-populated with count buffers of bufSize bytes.
func NewBufferPool(bufSize, count int) *BufferPool {
	pool := make(chan []byte, count)
	for i := 0; i < count; i++ {
		pool <- make([]byte, bufSize)
	}
	return &BufferPool{
		pool:    pool,
		bufSize: bufSize,
	}
}

// Get returns a slice of length n. Requests up to the pool's buffer size are
// served from the pool, or freshly allocated when it is empty; larger
// requests are always allocated and should not be Put back.
func (bp *BufferPool) Get(n int) []byte {
	if n > bp.bufSize {
		return make([]byte, n)
	}
	select {
	case buf := <-bp.pool:
		return buf[:n]
	default:
		return make([]byte, n, bp.bufSize)
	}
}

// Put returns a buffer obtained from Get. Buffers of the wrong capacity are
// discarded, and so is any buffer that does not fit in a full pool.
func (bp *BufferPool) Put(buf []byte) {
	if cap(buf) != bp.bufSize {
		return
	}
	select {
	case bp.pool <- buf[:bp.bufSize]:
	default:
	}
}

// Size returns the size of the pooled buffers.
func (bp *BufferPool) Size() int {
	return bp.bufSize
}
