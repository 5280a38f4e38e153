package tensor

import (
	"sync"
)

// TensorBufferPool keeps reusable float32 scratch buffers keyed by length
type TensorBufferPool struct {
	pools map[int]*sync.Pool // size -> pool of []float32
	mu    sync.RWMutex
}

// GlobalTensorPool is the global tensor buffer pool
var GlobalTensorPool = NewTensorBufferPool()

// NewTensorBufferPool creates an empty pool
func NewTensorBufferPool() *TensorBufferPool {
	return &TensorBufferPool{
		pools: make(map[int]*sync.Pool),
	}
}

// Get retrieves a zeroed buffer of the specified size from the pool
func (p *TensorBufferPool) Get(size int) []float32 {
	if size <= 0 {
		return nil
	}

	p.mu.RLock()
	pool, exists := p.pools[size]
	p.mu.RUnlock()

	if !exists {
		p.mu.Lock()
		// Check again after acquiring write lock
		pool, exists = p.pools[size]
		if !exists {
			pool = &sync.Pool{
				New: func() interface{} {
					return make([]float32, size)
				},
			}
			p.pools[size] = pool
		}
		p.mu.Unlock()
	}

	return pool.Get().([]float32)
}

// Put returns a buffer to the pool for reuse.
// The buffer is zeroed so the next Get never observes stale values.
func (p *TensorBufferPool) Put(buf []float32) {
	if len(buf) == 0 {
		return
	}

	size := len(buf)

	p.mu.RLock()
	pool, exists := p.pools[size]
	p.mu.RUnlock()

	if !exists {
		// Not ours, let GC handle it
		return
	}

	for i := range buf {
		buf[i] = 0
	}

	pool.Put(buf)
}

// GetTensor allocates a zeroed tensor backed by a pooled buffer.
// Return it with PutTensor when done.
func (p *TensorBufferPool) GetTensor(shape []int) *Tensor {
	size := 1
	for _, dim := range shape {
		size *= dim
	}
	if size == 0 {
		return NewTensor(shape)
	}

	return &Tensor{
		data:   p.Get(size),
		shape:  append([]int(nil), shape...),
		stride: computeStrides(shape),
		pooled: true,
	}
}

// PutTensor returns a pooled tensor's buffer back to the pool
func (p *TensorBufferPool) PutTensor(t *Tensor) {
	if t == nil || !t.pooled || t.data == nil {
		return
	}
	p.Put(t.data)
	t.data = nil // Prevent double-free
}
