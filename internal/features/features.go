// Package features resolves single and paired feature grids at the module
// boundary. A pair (for example two consecutive frames) is merged along the
// batch axis so one pass serves both, and the result is split back afterwards.
package features

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/eltociear/Ef-RAFT/internal/tensor"
)

// Kind tags the variant held by an Input or Output
type Kind int

const (
	Single Kind = iota // One grid
	Paired             // Two grids of identical shape
)

// String returns the name of the kind
func (k Kind) String() string {
	switch k {
	case Single:
		return "single"
	case Paired:
		return "paired"
	default:
		return "unknown"
	}
}

// ErrShapeMismatch reports a pair whose grids differ in shape
var ErrShapeMismatch = errors.New("paired grids must have identical shapes")

// Input is either a single grid or a pair of grids
type Input struct {
	kind   Kind
	first  *tensor.Tensor
	second *tensor.Tensor
}

// NewSingle wraps one grid
func NewSingle(x *tensor.Tensor) Input {
	return Input{kind: Single, first: x}
}

// NewPair wraps two grids of identical shape
func NewPair(a, b *tensor.Tensor) (Input, error) {
	if a == nil || b == nil {
		return Input{}, fmt.Errorf("%w: missing grid", ErrShapeMismatch)
	}
	if a.NumDims() == 0 || !tensor.ShapesEqual(a.Shape(), b.Shape()) {
		return Input{}, fmt.Errorf("%w: %v vs %v", ErrShapeMismatch, a.Shape(), b.Shape())
	}
	return Input{kind: Paired, first: a, second: b}, nil
}

// Kind returns the variant tag
func (in Input) Kind() Kind {
	return in.kind
}

// Grids returns the wrapped grids, one or two
func (in Input) Grids() []*tensor.Tensor {
	if in.kind == Paired {
		return []*tensor.Tensor{in.first, in.second}
	}
	return []*tensor.Tensor{in.first}
}

// Merge returns the tensor to run: the grid itself, or the pair
// concatenated along the batch axis
func (in Input) Merge() *tensor.Tensor {
	if in.kind == Paired {
		return tensor.Concat(0, in.first, in.second)
	}
	return in.first
}

// Split cuts a merged result back into the variant of in
func (in Input) Split(merged *tensor.Tensor) (Output, error) {
	if in.kind == Single {
		return Output{Kind: Single, First: merged}, nil
	}

	batch := in.first.Dim(0)
	if merged.NumDims() == 0 || merged.Dim(0) != 2*batch {
		return Output{}, fmt.Errorf("cannot split batch %v into two halves of %d", merged.Shape(), batch)
	}
	return Output{
		Kind:   Paired,
		First:  tensor.Narrow(merged, 0, 0, batch),
		Second: tensor.Narrow(merged, 0, batch, batch),
	}, nil
}

// Output mirrors Input for results
type Output struct {
	Kind   Kind
	First  *tensor.Tensor
	Second *tensor.Tensor // nil for Single
}

// Grids returns the result grids, one or two
func (out Output) Grids() []*tensor.Tensor {
	if out.Kind == Paired {
		return []*tensor.Tensor{out.First, out.Second}
	}
	return []*tensor.Tensor{out.First}
}

// Transform maps one merged grid to a result grid with the same batch extent
type Transform func(*tensor.Tensor) (*tensor.Tensor, error)

// Apply runs fn once over the merged input and splits the result
func Apply(in Input, fn Transform) (Output, error) {
	if in.first == nil {
		return Output{}, errors.New("empty input")
	}

	merged, err := fn(in.Merge())
	if err != nil {
		return Output{}, err
	}
	return in.Split(merged)
}

// RandomGrid draws a grid of standard normal features
func RandomGrid(rng *rand.Rand, shape []int) *tensor.Tensor {
	t := tensor.NewTensor(shape)
	data := t.Float32Data()
	for i := range data {
		data[i] = float32(rng.NormFloat64())
	}
	return t
}

// RandomInput draws a single grid, or a pair of them when paired is set
func RandomInput(rng *rand.Rand, shape []int, paired bool) Input {
	first := RandomGrid(rng, shape)
	if !paired {
		return NewSingle(first)
	}
	return Input{kind: Paired, first: first, second: RandomGrid(rng, shape)}
}
