package attention

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/eltociear/Ef-RAFT/internal/tensor"
)

func TestConverter_RowsAndColumns(t *testing.T) {
	pe, _ := NewPositionalEncoding(4, 32, 0)
	conv := &converter{pe: pe, interpolation: tensor.Bilinear}
	g := NewGeometry([]int{2, 4, 3, 5})
	rng := rand.New(rand.NewSource(1))

	t.Run("rows", func(t *testing.T) {
		attended := randomTensor(rng, []int{g.Batch * g.Height, g.Width, 4})
		relative, _ := pe.ToRelative(attended)

		grid, err := conv.toGrid(attended, Rows, g)
		if err != nil {
			t.Fatalf("toGrid failed: %v", err)
		}
		if !tensor.ShapesEqual(grid.Shape(), []int{2, 3, 5, 4}) {
			t.Fatalf("shape = %v, want [2 3 5 4]", grid.Shape())
		}
		for b := 0; b < 2; b++ {
			for h := 0; h < 3; h++ {
				for w := 0; w < 5; w++ {
					for c := 0; c < 4; c++ {
						if got, want := grid.At(b, h, w, c), relative.At(b*3+h, w, c); got != want {
							t.Fatalf("grid[%d,%d,%d,%d] = %f, want %f", b, h, w, c, got, want)
						}
					}
				}
			}
		}
	})

	t.Run("columns", func(t *testing.T) {
		attended := randomTensor(rng, []int{g.Batch * g.Width, g.Height, 4})
		relative, _ := pe.ToRelative(attended)

		grid, err := conv.toGrid(attended, Columns, g)
		if err != nil {
			t.Fatalf("toGrid failed: %v", err)
		}
		if !tensor.ShapesEqual(grid.Shape(), []int{2, 3, 5, 4}) {
			t.Fatalf("shape = %v, want [2 3 5 4]", grid.Shape())
		}
		for b := 0; b < 2; b++ {
			for h := 0; h < 3; h++ {
				for w := 0; w < 5; w++ {
					for c := 0; c < 4; c++ {
						if got, want := grid.At(b, h, w, c), relative.At(b*5+w, h, c); got != want {
							t.Fatalf("grid[%d,%d,%d,%d] = %f, want %f", b, h, w, c, got, want)
						}
					}
				}
			}
		}
	})
}

func TestConverter_DiagonalOfOwnPositionIsIdentityCode(t *testing.T) {
	pe, _ := NewPositionalEncoding(6, 32, 0)
	g := NewGeometry([]int{1, 6, 4, 4})

	for _, mode := range []tensor.Interpolation{tensor.Nearest, tensor.Bilinear} {
		conv := &converter{pe: pe, interpolation: mode}

		for _, d := range []Direction{Diagonal, AntiDiagonal} {
			t.Run(d.String()+"/"+mode.String(), func(t *testing.T) {
				// Every canvas cell holds its own absolute encoding, which
				// converts to the constant (0, 1) relative code
				attended, _ := pe.Encode(tensor.Zeros([]int{g.CanvasHeight(), g.CanvasWidth(), 6}), nil)

				grid, err := conv.toGrid(attended, d, g)
				if err != nil {
					t.Fatalf("toGrid failed: %v", err)
				}
				if !tensor.ShapesEqual(grid.Shape(), []int{1, 4, 4, 6}) {
					t.Fatalf("shape = %v, want [1 4 4 6]", grid.Shape())
				}

				data := grid.Float32Data()
				for i := 0; i < len(data); i += 2 {
					if math.Abs(float64(data[i])) > 1e-4 || math.Abs(float64(data[i+1])-1) > 1e-4 {
						t.Fatalf("pair %d = (%f, %f), want (0, 1)", i/2, data[i], data[i+1])
					}
				}
			})
		}
	}
}

func TestConverter_DiagonalRoundTrip(t *testing.T) {
	// Each nearest step moves a sample by at most half a cell per axis, so a
	// cell comes back as itself or one of its eight neighbours. Border cells
	// may also read the zero padding.
	sizes := [][2]int{{4, 4}, {5, 7}, {8, 8}}
	vb := NewViewBuilder(tensor.Nearest)

	for _, size := range sizes {
		height, width := size[0], size[1]
		x := sequentialGrid(1, 2, height, width)
		g := NewGeometry(x.Shape())

		for _, d := range []Direction{Diagonal, AntiDiagonal} {
			t.Run(fmt.Sprintf("%dx%d/%s", height, width, d), func(t *testing.T) {
				view := vb.Build(x, d)
				canvas := tensor.Reshape(view.Seq, []int{1, g.CanvasHeight(), g.CanvasWidth(), 2})
				canvas = tensor.Permute(canvas, 0, 3, 1, 2)

				back := tensor.Rotate(canvas, -d.Angle(), tensor.Nearest)
				cropped := tensor.Crop2D(back, g.PadH, g.PadW, g.Height, g.Width)
				if !tensor.ShapesEqual(cropped.Shape(), x.Shape()) {
					t.Fatalf("cropped shape = %v, want %v", cropped.Shape(), x.Shape())
				}

				exact := 0
				for c := 0; c < 2; c++ {
					for h := 0; h < height; h++ {
						for w := 0; w < width; w++ {
							got := cropped.At(0, c, h, w)
							if got == x.At(0, c, h, w) {
								exact++
							}
							border := h == 0 || w == 0 || h == height-1 || w == width-1
							if got == 0 && border {
								continue
							}
							if !isNeighbour(x, c, h, w, got) {
								t.Errorf("cell (%d,%d,%d) = %v, not the input value or a neighbour", c, h, w, got)
							}
						}
					}
				}
				if total := 2 * height * width; 2*exact < total {
					t.Errorf("only %d of %d cells recovered exactly", exact, total)
				}
			})
		}
	}
}

// isNeighbour reports whether v is x[0, c] at (h, w) or one of its 8 neighbours
func isNeighbour(x *tensor.Tensor, c, h, w int, v float32) bool {
	for dh := -1; dh <= 1; dh++ {
		for dw := -1; dw <= 1; dw++ {
			hh, ww := h+dh, w+dw
			if hh < 0 || ww < 0 || hh >= x.Dim(2) || ww >= x.Dim(3) {
				continue
			}
			if x.At(0, c, hh, ww) == v {
				return true
			}
		}
	}
	return false
}
