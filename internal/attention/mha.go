package attention

import (
	"fmt"
	"math"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/eltociear/Ef-RAFT/internal/tensor"
)

// Weights holds the projection parameters of a multi-head attention layer,
// laid out as packed in-projection plus output projection.
type Weights struct {
	InProjWeight  *tensor.Tensor // [3*hidden, hidden]: query, key, value rows
	InProjBias    *tensor.Tensor // [3*hidden], nil without bias
	OutProjWeight *tensor.Tensor // [hidden, hidden]
	OutProjBias   *tensor.Tensor // [hidden], nil without bias
}

// Validate checks the weight shapes against the hidden size and bias flag
func (w *Weights) Validate(hidden int, bias bool) error {
	if w == nil || w.InProjWeight == nil || w.OutProjWeight == nil {
		return fmt.Errorf("%w: projection weights are missing", ErrWeights)
	}
	if !tensor.ShapesEqual(w.InProjWeight.Shape(), []int{3 * hidden, hidden}) {
		return fmt.Errorf("%w: in_proj_weight shape %v, expected [%d %d]", ErrWeights, w.InProjWeight.Shape(), 3*hidden, hidden)
	}
	if !tensor.ShapesEqual(w.OutProjWeight.Shape(), []int{hidden, hidden}) {
		return fmt.Errorf("%w: out_proj_weight shape %v, expected [%d %d]", ErrWeights, w.OutProjWeight.Shape(), hidden, hidden)
	}
	if !bias {
		if w.InProjBias != nil || w.OutProjBias != nil {
			return fmt.Errorf("%w: bias tensors given but bias is disabled", ErrWeights)
		}
		return nil
	}
	if w.InProjBias == nil || !tensor.ShapesEqual(w.InProjBias.Shape(), []int{3 * hidden}) {
		return fmt.Errorf("%w: in_proj_bias must have shape [%d]", ErrWeights, 3*hidden)
	}
	if w.OutProjBias == nil || !tensor.ShapesEqual(w.OutProjBias.Shape(), []int{hidden}) {
		return fmt.Errorf("%w: out_proj_bias must have shape [%d]", ErrWeights, hidden)
	}
	return nil
}

// RandomWeights draws Xavier-uniform projections with zero biases
func RandomWeights(hidden int, bias bool, rng *rand.Rand) *Weights {
	w := &Weights{
		InProjWeight:  xavierUniform(3*hidden, hidden, rng),
		OutProjWeight: xavierUniform(hidden, hidden, rng),
	}
	if bias {
		w.InProjBias = tensor.Zeros([]int{3 * hidden})
		w.OutProjBias = tensor.Zeros([]int{hidden})
	}
	return w
}

func xavierUniform(fanOut, fanIn int, rng *rand.Rand) *tensor.Tensor {
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))
	data := make([]float32, fanOut*fanIn)
	for i := range data {
		data[i] = float32((rng.Float64()*2 - 1) * bound)
	}
	return tensor.NewTensorFromData(data, []int{fanOut, fanIn})
}

// MultiHeadAttention implements scaled dot-product self-attention with an
// optional key padding mask. Weights are read-only after construction.
type MultiHeadAttention struct {
	// Projection weights, [out, in]
	wq, wk, wv, wo *tensor.Tensor
	bq, bk, bv, bo *tensor.Tensor

	// Configuration
	numHeads  int
	headDim   int
	hiddenDim int
	dropout   float64
	workers   int
}

// NewMultiHeadAttention creates an attention layer from packed weights
func NewMultiHeadAttention(w *Weights, hidden, heads int, bias bool, dropout float64, workers int) (*MultiHeadAttention, error) {
	if heads <= 0 || hidden%heads != 0 {
		return nil, fmt.Errorf("%w: hidden (%d) must be divisible by heads (%d)", ErrInvalidConfig, hidden, heads)
	}
	if err := w.Validate(hidden, bias); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	a := &MultiHeadAttention{
		wq:        tensor.Narrow(w.InProjWeight, 0, 0, hidden),
		wk:        tensor.Narrow(w.InProjWeight, 0, hidden, hidden),
		wv:        tensor.Narrow(w.InProjWeight, 0, 2*hidden, hidden),
		wo:        w.OutProjWeight.Clone(),
		numHeads:  heads,
		headDim:   hidden / heads,
		hiddenDim: hidden,
		dropout:   dropout,
		workers:   workers,
	}
	if bias {
		a.bq = tensor.Narrow(w.InProjBias, 0, 0, hidden)
		a.bk = tensor.Narrow(w.InProjBias, 0, hidden, hidden)
		a.bv = tensor.Narrow(w.InProjBias, 0, 2*hidden, hidden)
		a.bo = w.OutProjBias.Clone()
	}

	return a, nil
}

// Forward computes multi-head attention where queries and keys come from
// content and values from values.
// content, values: [lines, seq_len, hidden]
// padding: [lines * seq_len] key padding flags, nil for none
// rng: non-nil enables dropout on the attention weights
// Output: [lines, seq_len, hidden]
func (a *MultiHeadAttention) Forward(content, values *tensor.Tensor, padding []bool, rng *rand.Rand) (*tensor.Tensor, error) {
	shape := content.Shape()
	if len(shape) != 3 || shape[2] != a.hiddenDim {
		return nil, fmt.Errorf("attention expects [lines, seq, %d], got %v", a.hiddenDim, shape)
	}
	if !tensor.ShapesEqual(values.Shape(), shape) {
		return nil, fmt.Errorf("attention values shape %v != content shape %v", values.Shape(), shape)
	}
	lines, seqLen := shape[0], shape[1]
	if padding != nil && len(padding) != lines*seqLen {
		return nil, fmt.Errorf("key padding mask has %d entries, expected %d", len(padding), lines*seqLen)
	}

	// Project to Q, K, V: [lines, seq, hidden]
	q := tensor.Linear(content, a.wq, a.bq)
	k := tensor.Linear(content, a.wk, a.bk)
	v := tensor.Linear(values, a.wv, a.bv)

	// Pooled buffers come back zeroed, which the head accumulation relies on
	context := tensor.GlobalTensorPool.GetTensor(shape)
	defer tensor.GlobalTensorPool.PutTensor(context)

	var dropSeed int64
	if rng != nil && a.dropout > 0 {
		dropSeed = rng.Int63()
	} else {
		rng = nil
	}

	tasks := lines * a.numHeads
	workers := min(a.workers, tasks)
	chunk := (tasks + max(workers, 1) - 1) / max(workers, 1)

	var g errgroup.Group
	for start := 0; start < tasks; start += chunk {
		start, end := start, min(start+chunk, tasks)
		g.Go(func() error {
			scores := tensor.GlobalTensorPool.Get(seqLen * seqLen)
			defer tensor.GlobalTensorPool.Put(scores)

			for task := start; task < end; task++ {
				var taskRng *rand.Rand
				if rng != nil {
					taskRng = rand.New(rand.NewSource(dropSeed ^ int64(task)))
				}
				a.attendHead(q, k, v, context, padding, task/a.numHeads, task%a.numHeads, scores, taskRng)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Output projection
	return tensor.Linear(context, a.wo, a.bo), nil
}

// attendHead computes softmax(q·kᵀ/√d)·v for one (line, head) pair and
// writes the result into the head's slice of context
func (a *MultiHeadAttention) attendHead(q, k, v, context *tensor.Tensor, padding []bool, line, head int, scores []float32, rng *rand.Rand) {
	seqLen := q.Dim(1)
	hidden := a.hiddenDim
	d := a.headDim
	scale := float32(1.0 / math.Sqrt(float64(d)))

	qData := q.Float32Data()
	kData := k.Float32Data()
	vData := v.Float32Data()
	ctxData := context.Float32Data()

	lineOff := line * seqLen * hidden
	headOff := head * d

	var skip []bool
	if padding != nil {
		skip = padding[line*seqLen : (line+1)*seqLen]
	}

	for i := 0; i < seqLen; i++ {
		qi := qData[lineOff+i*hidden+headOff : lineOff+i*hidden+headOff+d]
		row := scores[i*seqLen : (i+1)*seqLen]

		for j := 0; j < seqLen; j++ {
			if skip != nil && skip[j] {
				continue
			}
			kj := kData[lineOff+j*hidden+headOff : lineOff+j*hidden+headOff+d]
			row[j] = tensor.Dot(qi, kj) * scale
		}

		tensor.SoftmaxRowMasked(row, skip)

		if rng != nil {
			keep := float32(1.0 / (1.0 - a.dropout))
			for j := range row {
				if rng.Float64() < a.dropout {
					row[j] = 0
				} else {
					row[j] *= keep
				}
			}
		}

		out := ctxData[lineOff+i*hidden+headOff : lineOff+i*hidden+headOff+d]
		for j, w := range row {
			if w == 0 {
				continue
			}
			vj := vData[lineOff+j*hidden+headOff : lineOff+j*hidden+headOff+d]
			tensor.AXPY(out, w, vj)
		}
	}
}
