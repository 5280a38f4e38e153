package tensor

import (
	"fmt"
	"math"
	"strings"
)

// Interpolation selects how Rotate samples between grid points
type Interpolation int

const (
	Nearest  Interpolation = iota // Nearest neighbour, rounds half to even
	Bilinear                      // Bilinear, zero outside the canvas
)

// String returns the name of the interpolation mode
func (m Interpolation) String() string {
	switch m {
	case Nearest:
		return "nearest"
	case Bilinear:
		return "bilinear"
	default:
		return "unknown"
	}
}

// ParseInterpolation maps a configuration name to an Interpolation
func ParseInterpolation(name string) (Interpolation, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "nearest":
		return Nearest, nil
	case "bilinear", "linear":
		return Bilinear, nil
	default:
		return Nearest, fmt.Errorf("unknown interpolation %q", name)
	}
}

// Rotate rotates every plane spanned by the last two dimensions (height, width)
// by angle degrees about the plane centre ((W-1)/2, (H-1)/2). Positive angles
// turn the content counter-clockwise as displayed with rows growing downward.
// The output keeps the input extent; samples falling outside read zero.
func Rotate(a *Tensor, angle float64, mode Interpolation) *Tensor {
	rank := len(a.shape)
	if rank < 2 {
		panic(fmt.Sprintf("Rotate requires at least 2 dimensions, got shape %v", a.shape))
	}
	H, W := a.shape[rank-2], a.shape[rank-1]
	result := NewTensor(a.shape)
	if H == 0 || W == 0 {
		return result
	}

	rad := angle * math.Pi / 180
	cos, sin := snapUnit(math.Cos(rad)), snapUnit(math.Sin(rad))
	cx, cy := float64(W-1)*0.5, float64(H-1)*0.5

	// Inverse map: output pixel -> source coordinate, shared by every plane
	srcX := make([]float64, H*W)
	srcY := make([]float64, H*W)
	for y := 0; y < H; y++ {
		dy := float64(y) - cy
		for x := 0; x < W; x++ {
			dx := float64(x) - cx
			srcX[y*W+x] = cx + cos*dx - sin*dy
			srcY[y*W+x] = cy + sin*dx + cos*dy
		}
	}

	planes := a.Size() / (H * W)
	src := a.Float32Data()
	for p := 0; p < planes; p++ {
		in := src[p*H*W : (p+1)*H*W]
		out := result.data[p*H*W : (p+1)*H*W]
		for i := range out {
			switch mode {
			case Nearest:
				out[i] = sampleNearest(in, H, W, srcX[i], srcY[i])
			default:
				out[i] = sampleBilinear(in, H, W, srcX[i], srcY[i])
			}
		}
	}

	return result
}

func sampleNearest(plane []float32, H, W int, x, y float64) float32 {
	ix := int(math.RoundToEven(x))
	iy := int(math.RoundToEven(y))
	if ix < 0 || ix >= W || iy < 0 || iy >= H {
		return 0
	}
	return plane[iy*W+ix]
}

func sampleBilinear(plane []float32, H, W int, x, y float64) float32 {
	x0 := math.Floor(x)
	y0 := math.Floor(y)
	wx := float32(x - x0)
	wy := float32(y - y0)
	ix, iy := int(x0), int(y0)

	var sum float32
	add := func(px, py int, weight float32) {
		if weight == 0 || px < 0 || px >= W || py < 0 || py >= H {
			return
		}
		sum += plane[py*W+px] * weight
	}

	add(ix, iy, (1-wx)*(1-wy))
	add(ix+1, iy, wx*(1-wy))
	add(ix, iy+1, (1-wx)*wy)
	add(ix+1, iy+1, wx*wy)
	return sum
}

// snapUnit removes the rounding residue of cos/sin at multiples of 90 degrees
func snapUnit(v float64) float64 {
	const eps = 1e-12
	switch {
	case math.Abs(v) < eps:
		return 0
	case math.Abs(v-1) < eps:
		return 1
	case math.Abs(v+1) < eps:
		return -1
	}
	return v
}
