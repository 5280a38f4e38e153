package attention

import (
	"fmt"

	"github.com/eltociear/Ef-RAFT/internal/tensor"
)

// Aggregator folds the per-direction relative codes into one
// order-invariant set and appends it to the input grid
type Aggregator struct {
	encSize int
}

// NewAggregator creates an aggregator keeping encSize channels per direction
func NewAggregator(encSize int) *Aggregator {
	return &Aggregator{encSize: encSize}
}

// Aggregate combines the direction results with the input grid.
// x: [batch, channels, height, width]
// results: one [batch, height, width, hidden] grid per direction
// Output: [batch, channels + len(results)*encSize, height, width]
//
// Channel c of direction slot k lands at channel channels + k*encSize + c,
// where slot order is ascending value order of the cell's direction codes.
func (a *Aggregator) Aggregate(x *tensor.Tensor, results []*tensor.Tensor) (*tensor.Tensor, error) {
	if len(results) == 0 {
		return nil, fmt.Errorf("aggregate: no direction results")
	}
	g := NewGeometry(x.Shape())

	truncated := make([]*tensor.Tensor, len(results))
	for i, r := range results {
		if r.NumDims() != 4 || r.Dim(0) != g.Batch || r.Dim(1) != g.Height || r.Dim(2) != g.Width {
			return nil, fmt.Errorf("aggregate: result %d has shape %v, expected [%d %d %d ...]", i, r.Shape(), g.Batch, g.Height, g.Width)
		}
		if r.Dim(3) < a.encSize {
			return nil, fmt.Errorf("aggregate: result %d has %d channels, need %d", i, r.Dim(3), a.encSize)
		}
		truncated[i] = tensor.Narrow(r, 3, 0, a.encSize)
	}

	// [B, H, W, K, enc], sorted per (cell, channel) across the K directions
	set := tensor.SortAxis(tensor.Stack(3, truncated...), 3)
	flat := tensor.Reshape(set, []int{g.Batch, g.Height, g.Width, len(results) * a.encSize})
	channelFirst := tensor.Permute(flat, 0, 3, 1, 2)

	return tensor.Concat(1, x, channelFirst), nil
}
