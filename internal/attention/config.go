package attention

import (
	"errors"
	"fmt"

	"github.com/eltociear/Ef-RAFT/internal/tensor"
)

// DefaultMaxLen is the default number of positions in the sinusoid table
const DefaultMaxLen = 10000

var (
	// ErrInvalidConfig reports an unusable set of hyperparameters
	ErrInvalidConfig = errors.New("invalid attention config")
	// ErrRank reports an input grid that is not 4-dimensional
	ErrRank = errors.New("input must be a 4D grid [batch, channel, height, width]")
	// ErrChannels reports an input grid whose channel count differs from FeatureSize
	ErrChannels = errors.New("input channel count does not match feature size")
	// ErrEmptyGrid reports a grid with a non-positive extent
	ErrEmptyGrid = errors.New("input grid has an empty dimension")
	// ErrSequenceTooLong reports a line longer than the positional table
	ErrSequenceTooLong = errors.New("sequence length exceeds positional table")
	// ErrWeights reports projection weights with inconsistent shapes
	ErrWeights = errors.New("invalid attention weights")
)

// Config holds the hyperparameters of a CoordinateSetAttention module
type Config struct {
	FeatureSize int     // Channels in and out of attention
	EncSize     int     // Channels retained per direction (final result adds 4*EncSize)
	Heads       int     // Attention head count
	Dropout     float64 // Attention and positional-encoding dropout, 0 disables
	Bias        bool    // Whether the projections carry an additive bias
	MaxLen      int     // Positions available in the sinusoid table

	// Interpolation used when rotating feature maps for the diagonal views.
	// Occupancy masks are always rotated with nearest-neighbour sampling.
	Interpolation tensor.Interpolation

	Seed    int64 // Seed for dropout in training mode
	Workers int   // Parallel (line, head) workers, 0 means GOMAXPROCS
}

// DefaultConfig returns the configuration used by the feature extractor
func DefaultConfig() Config {
	return Config{
		FeatureSize:   128,
		EncSize:       64,
		Heads:         4,
		Dropout:       0.0,
		Bias:          true,
		MaxLen:        DefaultMaxLen,
		Interpolation: tensor.Nearest,
	}
}

// Validate checks if the configuration is valid
func (c Config) Validate() error {
	if c.FeatureSize <= 0 {
		return fmt.Errorf("%w: feature_size must be positive, got %d", ErrInvalidConfig, c.FeatureSize)
	}
	if c.FeatureSize%2 != 0 {
		return fmt.Errorf("%w: feature_size must be even, got %d", ErrInvalidConfig, c.FeatureSize)
	}
	if c.Heads <= 0 {
		return fmt.Errorf("%w: heads must be positive, got %d", ErrInvalidConfig, c.Heads)
	}
	if c.FeatureSize%c.Heads != 0 {
		return fmt.Errorf("%w: feature_size (%d) must be divisible by heads (%d)", ErrInvalidConfig, c.FeatureSize, c.Heads)
	}
	if c.EncSize <= 0 || c.EncSize > c.FeatureSize/2 {
		return fmt.Errorf("%w: enc_size must be in [1, %d], got %d", ErrInvalidConfig, c.FeatureSize/2, c.EncSize)
	}
	if c.Dropout < 0 || c.Dropout >= 1 {
		return fmt.Errorf("%w: dropout must be in [0, 1), got %g", ErrInvalidConfig, c.Dropout)
	}
	if c.MaxLen <= 0 {
		return fmt.Errorf("%w: max_len must be positive, got %d", ErrInvalidConfig, c.MaxLen)
	}
	if c.Interpolation != tensor.Nearest && c.Interpolation != tensor.Bilinear {
		return fmt.Errorf("%w: unknown interpolation %d", ErrInvalidConfig, c.Interpolation)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalidConfig, c.Workers)
	}
	return nil
}

// HeadDim returns the channels per attention head
func (c Config) HeadDim() int {
	return c.FeatureSize / c.Heads
}

// OutputChannels returns the channel count of the augmented grid
func (c Config) OutputChannels() int {
	return c.FeatureSize + len(Directions)*c.EncSize
}

// WorkingSetBytes estimates the float32 memory a forward pass over a grid of
// the given shape holds at its peak. The four directions run concurrently, so
// their views, projections and contexts are summed.
func (c Config) WorkingSetBytes(shape []int) int64 {
	if len(shape) != 4 {
		return 0
	}
	g := NewGeometry(shape)
	var elems int64
	for _, d := range Directions {
		lines := int64(g.Batch * g.Height)
		if d == Columns {
			lines = int64(g.Batch * g.Width)
		} else if d.IsDiagonal() {
			lines = int64(g.Batch * g.CanvasHeight())
		}
		// content, values, q, k, v and context
		elems += 6 * lines * int64(g.LineLength(d)) * int64(c.FeatureSize)
	}
	elems += int64(g.Batch*g.Height*g.Width) * int64(c.OutputChannels())
	return 4 * elems
}

// String returns a human-readable representation of the config
func (c Config) String() string {
	return fmt.Sprintf(
		"Config{feature=%d, enc=%d, heads=%d, dropout=%g, bias=%t, max_len=%d, interp=%s}",
		c.FeatureSize, c.EncSize, c.Heads, c.Dropout, c.Bias, c.MaxLen, c.Interpolation,
	)
}
