package tensor

// Vector kernels over contiguous float32 slices.
// Loops are kept branch-free and dependency-free so the compiler can unroll them.

func vectorSub(dst, a, b []float32) {
	for i := range dst {
		dst[i] = a[i] - b[i]
	}
}

// vectorAXPY accumulates dst += alpha * x
func vectorAXPY(dst []float32, alpha float32, x []float32) {
	for i := range dst {
		dst[i] += alpha * x[i]
	}
}

// vectorDotProduct uses 4 independent accumulators
func vectorDotProduct(a, b []float32) float32 {
	sum0, sum1, sum2, sum3 := float32(0), float32(0), float32(0), float32(0)

	i := 0
	for ; i+3 < len(a); i += 4 {
		sum0 += a[i+0] * b[i+0]
		sum1 += a[i+1] * b[i+1]
		sum2 += a[i+2] * b[i+2]
		sum3 += a[i+3] * b[i+3]
	}

	for ; i < len(a); i++ {
		sum0 += a[i] * b[i]
	}

	return sum0 + sum1 + sum2 + sum3
}

func vectorSum(a []float32) float32 {
	sum0, sum1, sum2, sum3 := float32(0), float32(0), float32(0), float32(0)

	i := 0
	for ; i+3 < len(a); i += 4 {
		sum0 += a[i+0]
		sum1 += a[i+1]
		sum2 += a[i+2]
		sum3 += a[i+3]
	}

	for ; i < len(a); i++ {
		sum0 += a[i]
	}

	return sum0 + sum1 + sum2 + sum3
}

func vectorMax(a []float32) float32 {
	if len(a) == 0 {
		return 0
	}

	maxVal := a[0]
	for _, v := range a[1:] {
		if v > maxVal {
			maxVal = v
		}
	}
	return maxVal
}

// Dot returns the inner product of two equal-length slices
func Dot(a, b []float32) float32 {
	return vectorDotProduct(a, b)
}

// AXPY accumulates dst += alpha * x
func AXPY(dst []float32, alpha float32, x []float32) {
	vectorAXPY(dst, alpha, x)
}
