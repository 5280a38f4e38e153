package tensor

import (
	"fmt"
	"math"
	"math/rand"
)

// Element-wise Operations

// Sub performs element-wise subtraction: C = A - B
func Sub(a, b *Tensor) *Tensor {
	if !shapesMatch(a.shape, b.shape) {
		panic(fmt.Sprintf("shape mismatch: %v vs %v", a.shape, b.shape))
	}

	result := NewTensor(a.shape)
	vectorSub(result.data, a.Float32Data(), b.Float32Data())
	return result
}

// Reduction Operations

// Sum adds up every element
func Sum(a *Tensor) float32 {
	return vectorSum(a.Float32Data())
}

// Mean computes the average of all elements
func Mean(a *Tensor) float32 {
	return Sum(a) / float32(a.Size())
}

// Max finds the maximum value
func Max(a *Tensor) float32 {
	return vectorMax(a.Float32Data())
}

// Min finds the minimum value
func Min(a *Tensor) float32 {
	data := a.Float32Data()
	if len(data) == 0 {
		return 0.0
	}
	minVal := data[0]
	for _, val := range data {
		if val < minVal {
			minVal = val
		}
	}
	return minVal
}

// SoftmaxRowMasked normalizes row in place with a numerically stable softmax.
// Entries whose skip flag is set receive exactly zero weight and do not take
// part in the normalization. A row with no eligible entry becomes all zeros.
func SoftmaxRowMasked(row []float32, skip []bool) {
	maxVal := float32(math.Inf(-1))
	for i, val := range row {
		if skip != nil && skip[i] {
			continue
		}
		if val > maxVal {
			maxVal = val
		}
	}

	if math.IsInf(float64(maxVal), -1) {
		for i := range row {
			row[i] = 0
		}
		return
	}

	var sumExp float32
	for i, val := range row {
		if skip != nil && skip[i] {
			row[i] = 0
			continue
		}
		expVal := float32(math.Exp(float64(val - maxVal)))
		row[i] = expVal
		sumExp += expVal
	}

	for i := range row {
		row[i] /= sumExp
	}
}

// Dropout applies inverted dropout with drop probability p.
// A nil rng or p == 0 returns the input unchanged.
func Dropout(a *Tensor, p float64, rng *rand.Rand) *Tensor {
	if rng == nil || p <= 0 {
		return a
	}
	if p >= 1 {
		return NewTensor(a.shape)
	}

	result := NewTensor(a.shape)
	scale := float32(1.0 / (1.0 - p))
	src := a.Float32Data()
	for i, v := range src {
		if rng.Float64() >= p {
			result.data[i] = v * scale
		}
	}
	return result
}

// Shape Manipulation

// Reshape changes the tensor shape without copying data
func Reshape(a *Tensor, newShape []int) *Tensor {
	newSize := 1
	for _, dim := range newShape {
		newSize *= dim
	}
	if newSize != a.Size() {
		panic(fmt.Sprintf("cannot reshape tensor of size %d to shape %v (size %d)", a.Size(), newShape, newSize))
	}

	return &Tensor{
		data:   a.data,
		shape:  append([]int(nil), newShape...),
		stride: computeStrides(newShape),
		offset: a.offset,
	}
}

// Permute reorders the axes of a tensor, returning a contiguous copy.
// Output axis i is input axis perm[i].
func Permute(a *Tensor, perm ...int) *Tensor {
	rank := len(a.shape)
	if len(perm) != rank {
		panic(fmt.Sprintf("Permute: expected %d axes, got %v", rank, perm))
	}

	seen := make([]bool, rank)
	newShape := make([]int, rank)
	srcStride := make([]int, rank)
	for i, p := range perm {
		if p < 0 || p >= rank || seen[p] {
			panic(fmt.Sprintf("Permute: invalid permutation %v", perm))
		}
		seen[p] = true
		newShape[i] = a.shape[p]
		srcStride[i] = a.stride[p]
	}

	result := NewTensor(newShape)
	if result.Size() == 0 {
		return result
	}

	// Walk the output in row-major order while tracking the source offset
	counter := make([]int, rank)
	src := a.offset
	for i := range result.data {
		result.data[i] = a.data[src]
		for ax := rank - 1; ax >= 0; ax-- {
			counter[ax]++
			src += srcStride[ax]
			if counter[ax] < newShape[ax] {
				break
			}
			src -= srcStride[ax] * newShape[ax]
			counter[ax] = 0
		}
	}

	return result
}

// Narrow returns a contiguous copy of a[..., start:start+length, ...] along axis
func Narrow(a *Tensor, axis, start, length int) *Tensor {
	if axis < 0 {
		axis += len(a.shape)
	}
	if start < 0 || length < 0 || start+length > a.shape[axis] {
		panic(fmt.Sprintf("Narrow: range [%d, %d) out of bounds for axis %d of shape %v", start, start+length, axis, a.shape))
	}

	outer := 1
	for _, dim := range a.shape[:axis] {
		outer *= dim
	}
	inner := 1
	for _, dim := range a.shape[axis+1:] {
		inner *= dim
	}

	newShape := append([]int(nil), a.shape...)
	newShape[axis] = length
	result := NewTensor(newShape)

	src := a.Float32Data()
	srcBlock := a.shape[axis] * inner
	dstBlock := length * inner
	for o := 0; o < outer; o++ {
		copy(result.data[o*dstBlock:(o+1)*dstBlock], src[o*srcBlock+start*inner:o*srcBlock+(start+length)*inner])
	}

	return result
}

// Concat joins tensors along axis. All other dimensions must match.
func Concat(axis int, ts ...*Tensor) *Tensor {
	if len(ts) == 0 {
		panic("Concat: no tensors")
	}
	rank := len(ts[0].shape)
	if axis < 0 {
		axis += rank
	}

	newShape := append([]int(nil), ts[0].shape...)
	newShape[axis] = 0
	for _, t := range ts {
		if len(t.shape) != rank {
			panic(fmt.Sprintf("Concat: rank mismatch %v vs %v", ts[0].shape, t.shape))
		}
		for i := range t.shape {
			if i != axis && t.shape[i] != ts[0].shape[i] {
				panic(fmt.Sprintf("Concat: shape mismatch %v vs %v on axis %d", ts[0].shape, t.shape, i))
			}
		}
		newShape[axis] += t.shape[axis]
	}

	outer := 1
	for _, dim := range newShape[:axis] {
		outer *= dim
	}
	inner := 1
	for _, dim := range newShape[axis+1:] {
		inner *= dim
	}

	result := NewTensor(newShape)
	dstBlock := newShape[axis] * inner
	for o := 0; o < outer; o++ {
		dst := o * dstBlock
		for _, t := range ts {
			block := t.shape[axis] * inner
			copy(result.data[dst:dst+block], t.Float32Data()[o*block:(o+1)*block])
			dst += block
		}
	}

	return result
}

// Stack joins same-shaped tensors along a new axis inserted at position axis
func Stack(axis int, ts ...*Tensor) *Tensor {
	if len(ts) == 0 {
		panic("Stack: no tensors")
	}
	rank := len(ts[0].shape)
	if axis < 0 {
		axis += rank + 1
	}

	expanded := make([]*Tensor, len(ts))
	for i, t := range ts {
		if !shapesMatch(t.shape, ts[0].shape) {
			panic(fmt.Sprintf("Stack: shape mismatch %v vs %v", ts[0].shape, t.shape))
		}
		shape := make([]int, 0, rank+1)
		shape = append(shape, t.shape[:axis]...)
		shape = append(shape, 1)
		shape = append(shape, t.shape[axis:]...)
		expanded[i] = Reshape(t, shape)
	}

	return Concat(axis, expanded...)
}

// Pad2D zero-pads the last two dimensions (height, width)
func Pad2D(a *Tensor, left, right, top, bottom int) *Tensor {
	rank := len(a.shape)
	if rank < 2 {
		panic(fmt.Sprintf("Pad2D requires at least 2 dimensions, got shape %v", a.shape))
	}
	H, W := a.shape[rank-2], a.shape[rank-1]
	newH, newW := H+top+bottom, W+left+right

	newShape := append([]int(nil), a.shape...)
	newShape[rank-2] = newH
	newShape[rank-1] = newW
	result := NewTensor(newShape)

	planes := a.Size() / max(H*W, 1)
	src := a.Float32Data()
	for p := 0; p < planes; p++ {
		for y := 0; y < H; y++ {
			srcRow := src[(p*H+y)*W : (p*H+y+1)*W]
			dst := (p*newH+y+top)*newW + left
			copy(result.data[dst:dst+W], srcRow)
		}
	}

	return result
}

// Crop2D extracts the window [top:top+h, left:left+w] of the last two dimensions
func Crop2D(a *Tensor, top, left, h, w int) *Tensor {
	rank := len(a.shape)
	if rank < 2 {
		panic(fmt.Sprintf("Crop2D requires at least 2 dimensions, got shape %v", a.shape))
	}
	H, W := a.shape[rank-2], a.shape[rank-1]
	if top < 0 || left < 0 || top+h > H || left+w > W {
		panic(fmt.Sprintf("Crop2D: window (%d,%d)+(%d,%d) outside %dx%d", top, left, h, w, H, W))
	}

	newShape := append([]int(nil), a.shape...)
	newShape[rank-2] = h
	newShape[rank-1] = w
	result := NewTensor(newShape)

	planes := a.Size() / max(H*W, 1)
	src := a.Float32Data()
	for p := 0; p < planes; p++ {
		for y := 0; y < h; y++ {
			srcOff := (p*H+y+top)*W + left
			copy(result.data[(p*h+y)*w:(p*h+y+1)*w], src[srcOff:srcOff+w])
		}
	}

	return result
}

// Helper functions

func shapesMatch(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
