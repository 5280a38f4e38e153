package tensor

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

// general views a contiguous 2D tensor as a BLAS matrix
func general(t *Tensor) blas32.General {
	rows, cols := t.shape[0], t.shape[1]
	return blas32.General{
		Rows:   rows,
		Cols:   cols,
		Stride: cols,
		Data:   t.Float32Data(),
	}
}

// Linear applies an affine map to the last dimension of x:
// y = x @ weight^T + bias
// x: [..., in], weight: [out x in], bias: [out] or nil -> y: [..., out]
func Linear(x, weight, bias *Tensor) *Tensor {
	if len(weight.shape) != 2 {
		panic(fmt.Sprintf("Linear weight must be 2D, got shape %v", weight.shape))
	}
	out, in := weight.shape[0], weight.shape[1]
	if x.Dim(-1) != in {
		panic(fmt.Sprintf("Linear input dim %d does not match weight %v", x.Dim(-1), weight.shape))
	}
	if bias != nil && (len(bias.shape) != 1 || bias.shape[0] != out) {
		panic(fmt.Sprintf("Linear bias shape %v does not match %d outputs", bias.shape, out))
	}

	rows := x.Size() / max(in, 1)
	outShape := append([]int(nil), x.shape...)
	outShape[len(outShape)-1] = out
	result := NewTensor(outShape)
	if rows == 0 || out == 0 {
		return result
	}

	c := blas32.General{Rows: rows, Cols: out, Stride: out, Data: result.data}
	var beta float32
	if bias != nil {
		// Seed every row with the bias so sgemm accumulates on top of it
		b := bias.Float32Data()
		for r := 0; r < rows; r++ {
			copy(result.data[r*out:(r+1)*out], b)
		}
		beta = 1
	}

	a := blas32.General{Rows: rows, Cols: in, Stride: in, Data: x.Float32Data()}
	blas32.Gemm(blas.NoTrans, blas.Trans, 1, a, general(weight), beta, c)
	return result
}
