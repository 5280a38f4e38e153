package attention

import (
	"fmt"

	"github.com/eltociear/Ef-RAFT/internal/tensor"
)

// converter maps the attention output of a view back onto the original grid,
// rewriting each cell's absolute positional mixture as a relative code
type converter struct {
	pe            *PositionalEncoding
	interpolation tensor.Interpolation
}

// toGrid converts an attended view [lines, length, hidden] into the
// channel-last grid layout [batch, height, width, hidden]
func (c *converter) toGrid(attended *tensor.Tensor, d Direction, g Geometry) (*tensor.Tensor, error) {
	relative, err := c.pe.ToRelative(attended)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d, err)
	}
	hidden := relative.Dim(-1)

	switch d {
	case Rows:
		return tensor.Reshape(relative, []int{g.Batch, g.Height, g.Width, hidden}), nil

	case Columns:
		cols := tensor.Reshape(relative, []int{g.Batch, g.Width, g.Height, hidden})
		return tensor.Permute(cols, 0, 2, 1, 3), nil

	default:
		canvas := tensor.Reshape(relative, []int{g.Batch, g.CanvasHeight(), g.CanvasWidth(), hidden})
		canvas = tensor.Permute(canvas, 0, 3, 1, 2)

		// Undo the view rotation, then cut the original window out of the canvas
		unrotated := tensor.Rotate(canvas, -d.Angle(), c.interpolation)
		cropped := tensor.Crop2D(unrotated, g.PadH, g.PadW, g.Height, g.Width)
		return tensor.Permute(cropped, 0, 2, 3, 1), nil
	}
}
