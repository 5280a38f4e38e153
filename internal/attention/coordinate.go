package attention

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/eltociear/Ef-RAFT/internal/logging"
	"github.com/eltociear/Ef-RAFT/internal/tensor"
)

// CoordinateSetAttention augments a feature grid with an order-invariant set
// of relative position codes gathered along rows, columns and both diagonals.
//
// Each direction attends over its lines with a shared multi-head attention
// layer whose queries and keys are the cell features and whose values are
// pure positional encodings. The attended mixture is rotated back into a
// relative code, truncated to EncSize channels, and the four codes of every
// cell are sorted so the result does not depend on direction order.
//
// A module is safe for concurrent Forward calls. Train and Eval toggle
// dropout and may be called at any time.
type CoordinateSetAttention struct {
	cfg   Config
	pe    *PositionalEncoding
	mha   *MultiHeadAttention
	views *ViewBuilder
	conv  *converter
	agg   *Aggregator

	training atomic.Bool
	calls    atomic.Int64
}

// New creates a module from explicit attention weights
func New(cfg Config, weights *Weights) (*CoordinateSetAttention, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pe, err := NewPositionalEncoding(cfg.FeatureSize, cfg.MaxLen, cfg.Dropout)
	if err != nil {
		return nil, err
	}

	mha, err := NewMultiHeadAttention(weights, cfg.FeatureSize, cfg.Heads, cfg.Bias, cfg.Dropout, cfg.Workers)
	if err != nil {
		return nil, err
	}

	logging.Component("attention").Infof("coordinate set attention ready: %s", cfg)

	return &CoordinateSetAttention{
		cfg:   cfg,
		pe:    pe,
		mha:   mha,
		views: NewViewBuilder(cfg.Interpolation),
		conv:  &converter{pe: pe, interpolation: cfg.Interpolation},
		agg:   NewAggregator(cfg.EncSize),
	}, nil
}

// NewWithRandomWeights creates a module with Xavier-initialized weights drawn from rng
func NewWithRandomWeights(cfg Config, rng *rand.Rand) (*CoordinateSetAttention, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return New(cfg, RandomWeights(cfg.FeatureSize, cfg.Bias, rng))
}

// Train enables dropout
func (m *CoordinateSetAttention) Train() {
	m.training.Store(true)
}

// Eval disables dropout, making Forward deterministic
func (m *CoordinateSetAttention) Eval() {
	m.training.Store(false)
}

// Training reports whether dropout is enabled
func (m *CoordinateSetAttention) Training() bool {
	return m.training.Load()
}

// Config returns the module configuration
func (m *CoordinateSetAttention) Config() Config {
	return m.cfg
}

// Encoding returns the shared positional encoding
func (m *CoordinateSetAttention) Encoding() *PositionalEncoding {
	return m.pe
}

// Forward augments x with the relative position set.
// Input shape: [batch, feature_size, height, width]
// Output shape: [batch, feature_size + 4*enc_size, height, width]
func (m *CoordinateSetAttention) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	return m.ForwardContext(context.Background(), x)
}

// ForwardContext is Forward with cancellation between pipeline stages
func (m *CoordinateSetAttention) ForwardContext(ctx context.Context, x *tensor.Tensor) (*tensor.Tensor, error) {
	g, err := m.checkInput(x)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	training := m.training.Load()
	call := m.calls.Add(1)

	results := make([]*tensor.Tensor, len(Directions))
	eg, ctx := errgroup.WithContext(ctx)
	for i, d := range Directions {
		i, d := i, d
		var rng *rand.Rand
		if training {
			rng = rand.New(rand.NewSource(m.cfg.Seed + call*int64(len(Directions)) + int64(i)))
		}
		eg.Go(func() error {
			grid, err := m.direction(ctx, x, g, d, rng)
			if err != nil {
				return fmt.Errorf("%s pipeline: %w", d, err)
			}
			results[i] = grid
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	out, err := m.agg.Aggregate(x, results)
	if err != nil {
		return nil, err
	}

	logging.Component("attention").WithFields(logrus.Fields{
		"input":    x.Shape(),
		"output":   out.Shape(),
		"training": training,
	}).Debugf("forward pass took %v", time.Since(start))
	return out, nil
}

// direction runs one directional pipeline and returns its relative code
// in [batch, height, width, feature_size] layout
func (m *CoordinateSetAttention) direction(ctx context.Context, x *tensor.Tensor, g Geometry, d Direction, rng *rand.Rand) (*tensor.Tensor, error) {
	view := m.views.Build(x, d)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Values carry position only: the encoding of an all-zero sequence
	zeros := tensor.Zeros([]int{view.Lines(), view.Length(), m.pe.HiddenSize()})
	values, err := m.pe.Encode(zeros, rng)
	if err != nil {
		return nil, err
	}

	attended, err := m.mha.Forward(view.Seq, values, view.Padding, rng)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return m.conv.toGrid(attended, d, g)
}

// checkInput validates x and returns its geometry
func (m *CoordinateSetAttention) checkInput(x *tensor.Tensor) (Geometry, error) {
	if x == nil || x.NumDims() != 4 {
		var shape []int
		if x != nil {
			shape = x.Shape()
		}
		return Geometry{}, fmt.Errorf("%w: got shape %v", ErrRank, shape)
	}
	if x.Dim(1) != m.cfg.FeatureSize {
		return Geometry{}, fmt.Errorf("%w: got %d channels, expected %d", ErrChannels, x.Dim(1), m.cfg.FeatureSize)
	}
	if x.Dim(0) <= 0 || x.Dim(2) <= 0 || x.Dim(3) <= 0 {
		return Geometry{}, fmt.Errorf("%w: shape %v", ErrEmptyGrid, x.Shape())
	}

	g := NewGeometry(x.Shape())
	for _, d := range Directions {
		if n := g.LineLength(d); n > m.cfg.MaxLen {
			return Geometry{}, fmt.Errorf("%w: %s lines have length %d > max_len %d", ErrSequenceTooLong, d, n, m.cfg.MaxLen)
		}
	}
	return g, nil
}
