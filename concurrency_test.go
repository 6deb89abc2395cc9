package lifo

import (
	"sync"
	"testing"
)

// TestBufferPoolConcurrent tests that BufferPool is safe for concurrent access.
func TestBufferPoolConcurrent(t *testing.T) {
	pool := NewBufferPool(64, 4)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				n := 1 + (i+j)%pool.Size()
				buf := pool.Get(n)
				if len(buf) != n {
					t.Errorf("Expected buffer length %d, got %d", n, len(buf))
					return
				}
				buf[n-1] = byte(j)
				pool.Put(buf)
			}
		}(i)
	}
	wg.Wait()
}

func TestBufferPoolOversizeRequest(t *testing.T) {
	pool := NewBufferPool(16, 1)

	buf := pool.Get(100)
	if len(buf) != 100 {
		t.Fatalf("Expected length 100, got %d", len(buf))
	}
	// Oversize buffers are not kept.
	pool.Put(buf)

	small := pool.Get(4)
	if cap(small) != 16 {
		t.Errorf("Expected pooled buffer with capacity 16, got %d", cap(small))
	}
}

// TestBufferPoolWrongSizeBuffer tests that buffers with wrong capacity are discarded.
func TestBufferPoolWrongSizeBuffer(t *testing.T) {
	pool := NewBufferPool(32, 2)

	a := pool.Get(8)
	b := pool.Get(8)
	pool.Put(a)
	pool.Put(b)
	pool.Put(make([]byte, 8))

	_ = pool.Get(1)
	_ = pool.Get(1)

	// The pool is empty now, so this one is freshly allocated.
	c := pool.Get(5)
	if len(c) != 5 || cap(c) != 32 {
		t.Errorf("Expected len 5 cap 32, got len %d cap %d", len(c), cap(c))
	}
}
