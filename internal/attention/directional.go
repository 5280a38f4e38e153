package attention

import (
	"github.com/eltociear/Ef-RAFT/internal/tensor"
)

// Direction identifies one of the four directional pipelines
type Direction int

const (
	Rows          Direction = iota // One sequence per row
	Columns                        // One sequence per column
	Diagonal                       // Strips of the +45° rotated canvas
	AntiDiagonal                   // Strips of the -45° rotated canvas
)

// Directions lists every pipeline in evaluation order
var Directions = [...]Direction{Rows, Columns, Diagonal, AntiDiagonal}

// String returns the name of the direction
func (d Direction) String() string {
	switch d {
	case Rows:
		return "rows"
	case Columns:
		return "columns"
	case Diagonal:
		return "diagonal"
	case AntiDiagonal:
		return "anti-diagonal"
	default:
		return "unknown"
	}
}

// Angle returns the rotation applied to the padded canvas, in degrees
func (d Direction) Angle() float64 {
	switch d {
	case Diagonal:
		return 45
	case AntiDiagonal:
		return -45
	default:
		return 0
	}
}

// IsDiagonal reports whether the direction works on the rotated canvas
func (d Direction) IsDiagonal() bool {
	return d == Diagonal || d == AntiDiagonal
}

// Geometry describes the grid and the padded canvas used by the diagonals
type Geometry struct {
	Batch, Channels int
	Height, Width   int
	PadH, PadW      int // Padding on each side: Height/2 and Width/2
}

// NewGeometry derives the geometry of a [batch, channel, height, width] grid
func NewGeometry(shape []int) Geometry {
	return Geometry{
		Batch:    shape[0],
		Channels: shape[1],
		Height:   shape[2],
		Width:    shape[3],
		PadH:     shape[2] / 2,
		PadW:     shape[3] / 2,
	}
}

// CanvasHeight returns the padded canvas height
func (g Geometry) CanvasHeight() int {
	return g.Height + 2*g.PadH
}

// CanvasWidth returns the padded canvas width
func (g Geometry) CanvasWidth() int {
	return g.Width + 2*g.PadW
}

// LineLength returns the sequence length of a direction's lines
func (g Geometry) LineLength(d Direction) int {
	switch d {
	case Rows:
		return g.Width
	case Columns:
		return g.Height
	default:
		return g.CanvasWidth()
	}
}

// View is one directional sequence view of the grid
type View struct {
	Direction Direction
	Seq       *tensor.Tensor // [lines, length, channels]
	Padding   []bool         // [lines * length], true marks synthetic cells; nil when none
}

// Lines returns the number of sequences in the view
func (v View) Lines() int {
	return v.Seq.Dim(0)
}

// Length returns the sequence length of the view
func (v View) Length() int {
	return v.Seq.Dim(1)
}

// ViewBuilder derives the four directional views of a grid
type ViewBuilder struct {
	interpolation tensor.Interpolation
}

// NewViewBuilder creates a builder rotating features with the given interpolation
func NewViewBuilder(interpolation tensor.Interpolation) *ViewBuilder {
	return &ViewBuilder{interpolation: interpolation}
}

// Build returns the view of x for direction d.
// Input shape: [batch, channels, height, width]
func (vb *ViewBuilder) Build(x *tensor.Tensor, d Direction) View {
	g := NewGeometry(x.Shape())

	switch d {
	case Rows:
		// [B, H, W, C]: each row is a sequence over W
		seq := tensor.Permute(x, 0, 2, 3, 1)
		return View{Direction: d, Seq: tensor.Reshape(seq, []int{g.Batch * g.Height, g.Width, g.Channels})}

	case Columns:
		// [B, W, H, C]: each column is a sequence over H
		seq := tensor.Permute(x, 0, 3, 2, 1)
		return View{Direction: d, Seq: tensor.Reshape(seq, []int{g.Batch * g.Width, g.Height, g.Channels})}

	default:
		return vb.buildDiagonal(x, g, d)
	}
}

func (vb *ViewBuilder) buildDiagonal(x *tensor.Tensor, g Geometry, d Direction) View {
	padded := tensor.Pad2D(x, g.PadW, g.PadW, g.PadH, g.PadH)
	occupancy := tensor.Pad2D(tensor.Ones([]int{g.Batch, g.Height, g.Width}), g.PadW, g.PadW, g.PadH, g.PadH)

	rotated := tensor.Rotate(padded, d.Angle(), vb.interpolation)
	rotatedMask := tensor.Rotate(occupancy, d.Angle(), tensor.Nearest)

	canvasH, canvasW := g.CanvasHeight(), g.CanvasWidth()
	seq := tensor.Permute(rotated, 0, 2, 3, 1)
	seq = tensor.Reshape(seq, []int{g.Batch * canvasH, canvasW, g.Channels})

	maskData := rotatedMask.Float32Data()
	padding := make([]bool, len(maskData))
	for i, v := range maskData {
		padding[i] = v < 0.5
	}

	return View{Direction: d, Seq: seq, Padding: padding}
}
