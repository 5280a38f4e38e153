package tensor

import (
	"fmt"
)

// Tensor represents a dense, row-major float32 multi-dimensional array
type Tensor struct {
	data   []float32 // Underlying storage
	shape  []int     // Dimensions [batch, channel, height, width, ...]
	stride []int     // Memory layout strides for indexing
	offset int       // Offset in data array (for views)

	pooled bool // True if allocated from tensor pool (should be returned via PutTensor)
}

// NewTensor creates a new zero-filled tensor with the given shape
func NewTensor(shape []int) *Tensor {
	size := 1
	for _, dim := range shape {
		if dim < 0 {
			panic(fmt.Sprintf("negative dimension in shape %v", shape))
		}
		size *= dim
	}

	return &Tensor{
		data:   make([]float32, size),
		shape:  append([]int(nil), shape...),
		stride: computeStrides(shape),
	}
}

// NewTensorFromData wraps existing data in a tensor without copying
func NewTensorFromData(data []float32, shape []int) *Tensor {
	size := 1
	for _, dim := range shape {
		size *= dim
	}
	if size != len(data) {
		panic(fmt.Sprintf("data length %d does not match shape %v (size %d)", len(data), shape, size))
	}

	return &Tensor{
		data:   data,
		shape:  append([]int(nil), shape...),
		stride: computeStrides(shape),
	}
}

// Zeros creates a zero-initialized tensor
func Zeros(shape []int) *Tensor {
	// NewTensor already initializes to zero
	return NewTensor(shape)
}

// Ones creates a one-initialized tensor
func Ones(shape []int) *Tensor {
	return Full(shape, 1)
}

// Full creates a tensor with every element set to value
func Full(shape []int, value float32) *Tensor {
	t := NewTensor(shape)
	for i := range t.data {
		t.data[i] = value
	}
	return t
}

// Clone creates a contiguous copy of the tensor
func (t *Tensor) Clone() *Tensor {
	cloned := NewTensor(t.shape)
	copy(cloned.data, t.Float32Data())
	return cloned
}

// computeStrides calculates memory layout strides for the given shape
func computeStrides(shape []int) []int {
	strides := make([]int, len(shape))
	if len(shape) == 0 {
		return strides
	}

	// Row-major order (C-style)
	strides[len(shape)-1] = 1
	for i := len(shape) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * shape[i+1]
	}

	return strides
}

// Shape returns the tensor's shape
func (t *Tensor) Shape() []int {
	return t.shape
}

// Stride returns the tensor's strides
func (t *Tensor) Stride() []int {
	return t.stride
}

// Dim returns the size of dimension i; negative i counts from the end
func (t *Tensor) Dim(i int) int {
	if i < 0 {
		i += len(t.shape)
	}
	return t.shape[i]
}

// Size returns the total number of elements
func (t *Tensor) Size() int {
	size := 1
	for _, dim := range t.shape {
		size *= dim
	}
	return size
}

// NumDims returns the number of dimensions
func (t *Tensor) NumDims() int {
	return len(t.shape)
}

// At returns the value at the given multi-dimensional index
func (t *Tensor) At(indices ...int) float32 {
	return t.data[t.index(indices)]
}

// Set sets the value at the given multi-dimensional index
func (t *Tensor) Set(value float32, indices ...int) {
	t.data[t.index(indices)] = value
}

func (t *Tensor) index(indices []int) int {
	if len(indices) != len(t.shape) {
		panic(fmt.Sprintf("expected %d indices (shape=%v), got %d indices=%v", len(t.shape), t.shape, len(indices), indices))
	}

	idx := t.offset
	for i, index := range indices {
		if index < 0 || index >= t.shape[i] {
			panic(fmt.Sprintf("index %d out of bounds for dimension %d (size %d)", index, i, t.shape[i]))
		}
		idx += index * t.stride[i]
	}
	return idx
}

// Float32Data returns the tensor's elements in row-major order.
// The slice aliases the tensor's storage.
func (t *Tensor) Float32Data() []float32 {
	return t.data[t.offset : t.offset+t.Size()]
}

// String returns a short description of the tensor
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor{shape=%v}", t.shape)
}

// ShapesEqual reports whether two shapes are identical
func ShapesEqual(a, b []int) bool {
	return shapesMatch(a, b)
}
