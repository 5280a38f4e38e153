package tensor

import (
	"fmt"
	"math"
)

// SortAxis returns a copy of a with every fiber along axis sorted ascending.
//
// The order is total so the result never depends on the order of the input:
// -0 sorts before +0 and NaN sorts after every number.
func SortAxis(a *Tensor, axis int) *Tensor {
	if axis < 0 {
		axis += len(a.shape)
	}
	if axis < 0 || axis >= len(a.shape) {
		panic(fmt.Sprintf("SortAxis: axis out of range for shape %v", a.shape))
	}

	result := a.Clone()
	n := a.shape[axis]
	if n <= 1 {
		return result
	}

	outer := 1
	for _, dim := range a.shape[:axis] {
		outer *= dim
	}
	inner := 1
	for _, dim := range a.shape[axis+1:] {
		inner *= dim
	}

	fiber := make([]float32, n)
	data := result.data
	for o := 0; o < outer; o++ {
		base := o * n * inner
		for i := 0; i < inner; i++ {
			for k := 0; k < n; k++ {
				fiber[k] = data[base+k*inner+i]
			}
			insertionSort(fiber)
			for k := 0; k < n; k++ {
				data[base+k*inner+i] = fiber[k]
			}
		}
	}

	return result
}

// insertionSort sorts short fibers in place
func insertionSort(data []float32) {
	for i := 1; i < len(data); i++ {
		key := data[i]
		j := i - 1
		for j >= 0 && totalLess(key, data[j]) {
			data[j+1] = data[j]
			j--
		}
		data[j+1] = key
	}
}

func totalLess(a, b float32) bool {
	aNaN, bNaN := a != a, b != b
	switch {
	case aNaN:
		return false
	case bNaN:
		return true
	case a < b:
		return true
	case a > b:
		return false
	}
	// Equal values: only the zero sign can differ
	return math.Signbit(float64(a)) && !math.Signbit(float64(b))
}
