package tensor

import (
	"math"
	"math/rand"
	"testing"
)

func sequence(shape ...int) *Tensor {
	t := NewTensor(shape)
	for i := range t.data {
		t.data[i] = float32(i)
	}
	return t
}

func TestSub(t *testing.T) {
	a := NewTensorFromData([]float32{5, 7, 9}, []int{3})
	b := NewTensorFromData([]float32{1, 2, 3}, []int{3})

	c := Sub(a, b)
	expected := []float32{4, 5, 6}
	for i, val := range expected {
		if c.Float32Data()[i] != val {
			t.Errorf("Sub[%d]: expected %f, got %f", i, val, c.Float32Data()[i])
		}
	}
}

func TestSubPanicsOnShapeMismatch(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic on shape mismatch")
		}
	}()

	Sub(NewTensor([]int{3}), NewTensor([]int{4}))
}

func TestReductions(t *testing.T) {
	a := NewTensorFromData([]float32{3, -1, 4, 1, 5}, []int{5})

	if Sum(a) != 12 {
		t.Errorf("Sum: expected 12, got %f", Sum(a))
	}
	if math.Abs(float64(Mean(a)-2.4)) > 1e-6 {
		t.Errorf("Mean: expected 2.4, got %f", Mean(a))
	}
	if Max(a) != 5 {
		t.Errorf("Max: expected 5, got %f", Max(a))
	}
	if Min(a) != -1 {
		t.Errorf("Min: expected -1, got %f", Min(a))
	}
}

func TestSoftmaxRowMasked(t *testing.T) {
	t.Run("masked entries", func(t *testing.T) {
		row := []float32{1, 100, 1, 1}
		SoftmaxRowMasked(row, []bool{false, true, false, false})

		if row[1] != 0 {
			t.Errorf("masked entry: expected exactly 0, got %f", row[1])
		}
		for _, i := range []int{0, 2, 3} {
			if math.Abs(float64(row[i])-1.0/3) > 1e-6 {
				t.Errorf("row[%d]: expected 1/3, got %f", i, row[i])
			}
		}
	})

	t.Run("all masked", func(t *testing.T) {
		row := []float32{1, 2}
		SoftmaxRowMasked(row, []bool{true, true})

		if row[0] != 0 || row[1] != 0 {
			t.Errorf("expected zero row, got %v", row)
		}
	})

	t.Run("large values stay finite", func(t *testing.T) {
		row := []float32{1000, 1000}
		SoftmaxRowMasked(row, nil)

		if row[0] != 0.5 || row[1] != 0.5 {
			t.Errorf("expected [0.5 0.5], got %v", row)
		}
	})
}

func TestDropout(t *testing.T) {
	a := Ones([]int{1000})

	if Dropout(a, 0.5, nil) != a {
		t.Error("Dropout without rng should return the input")
	}

	out := Dropout(a, 0.25, rand.New(rand.NewSource(1)))
	kept := 0
	for _, v := range out.Float32Data() {
		switch {
		case v == 0:
		case math.Abs(float64(v)-1/0.75) < 1e-6:
			kept++
		default:
			t.Fatalf("unexpected value %f", v)
		}
	}
	if kept < 650 || kept > 850 {
		t.Errorf("expected about 750 kept entries, got %d", kept)
	}

	for _, v := range Dropout(a, 1, rand.New(rand.NewSource(1))).Float32Data() {
		if v != 0 {
			t.Fatal("Dropout with p=1 should zero everything")
		}
	}
}

func TestReshape(t *testing.T) {
	a := NewTensorFromData([]float32{1, 2, 3, 4, 5, 6}, []int{2, 3})

	c := Reshape(a, []int{3, 2})

	if len(c.Shape()) != 2 || c.Shape()[0] != 3 || c.Shape()[1] != 2 {
		t.Errorf("Reshape: expected shape [3, 2], got %v", c.Shape())
	}

	// Verify data is shared (not copied)
	if &a.Float32Data()[0] != &c.Float32Data()[0] {
		t.Error("Reshape should share data, not copy")
	}
}

func TestReshapePanicsOnSizeMismatch(t *testing.T) {
	a := NewTensorFromData([]float32{1, 2, 3, 4}, []int{2, 2})

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic on size mismatch")
		}
	}()

	Reshape(a, []int{3, 3})
}

func TestPermute(t *testing.T) {
	a := sequence(2, 3, 4)

	p := Permute(a, 2, 0, 1)
	if !ShapesEqual(p.Shape(), []int{4, 2, 3}) {
		t.Fatalf("Permute: expected shape [4 2 3], got %v", p.Shape())
	}

	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 4; k++ {
				if p.At(k, i, j) != a.At(i, j, k) {
					t.Fatalf("Permute[%d,%d,%d] = %f, want %f", k, i, j, p.At(k, i, j), a.At(i, j, k))
				}
			}
		}
	}

	// Transpose of a 2D matrix
	m := NewTensorFromData([]float32{1, 2, 3, 4, 5, 6}, []int{2, 3})
	tr := Permute(m, 1, 0)
	expected := []float32{1, 4, 2, 5, 3, 6}
	for i, val := range expected {
		if tr.Float32Data()[i] != val {
			t.Errorf("Transpose[%d]: expected %f, got %f", i, val, tr.Float32Data()[i])
		}
	}
}

func TestPermutePanicsOnInvalidPerm(t *testing.T) {
	tests := []struct {
		name string
		perm []int
	}{
		{"too few axes", []int{0, 1}},
		{"repeated axis", []int{0, 0, 1}},
		{"out of range", []int{0, 1, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if r := recover(); r == nil {
					t.Error("expected panic")
				}
			}()
			Permute(sequence(2, 3, 4), tt.perm...)
		})
	}
}

func TestNarrow(t *testing.T) {
	a := sequence(2, 3, 4)

	n := Narrow(a, 2, 1, 2)
	if !ShapesEqual(n.Shape(), []int{2, 3, 2}) {
		t.Fatalf("Narrow: expected shape [2 3 2], got %v", n.Shape())
	}
	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 2; k++ {
				if n.At(i, j, k) != a.At(i, j, k+1) {
					t.Fatalf("Narrow[%d,%d,%d] = %f, want %f", i, j, k, n.At(i, j, k), a.At(i, j, k+1))
				}
			}
		}
	}

	rows := Narrow(a, 0, 1, 1)
	if rows.At(0, 0, 0) != 12 {
		t.Errorf("Narrow axis 0: expected 12, got %f", rows.At(0, 0, 0))
	}

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic on out of range window")
		}
	}()
	Narrow(a, 1, 2, 2)
}

func TestConcatAndStack(t *testing.T) {
	a := sequence(2, 2)
	b := Full([]int{2, 1}, -1)

	c := Concat(1, a, b)
	expected := []float32{0, 1, -1, 2, 3, -1}
	if !ShapesEqual(c.Shape(), []int{2, 3}) {
		t.Fatalf("Concat: expected shape [2 3], got %v", c.Shape())
	}
	for i, val := range expected {
		if c.Float32Data()[i] != val {
			t.Errorf("Concat[%d]: expected %f, got %f", i, val, c.Float32Data()[i])
		}
	}

	s := Stack(1, sequence(2, 3), Full([]int{2, 3}, 9))
	if !ShapesEqual(s.Shape(), []int{2, 2, 3}) {
		t.Fatalf("Stack: expected shape [2 2 3], got %v", s.Shape())
	}
	if s.At(1, 0, 2) != 5 || s.At(1, 1, 2) != 9 {
		t.Errorf("Stack: got %f and %f", s.At(1, 0, 2), s.At(1, 1, 2))
	}

	last := Stack(-1, sequence(2), Full([]int{2}, 7))
	if !ShapesEqual(last.Shape(), []int{2, 2}) || last.At(1, 1) != 7 || last.At(1, 0) != 1 {
		t.Errorf("Stack on new last axis: got %v %v", last.Shape(), last.Float32Data())
	}
}

func TestConcatPanicsOnMismatch(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic on shape mismatch")
		}
	}()

	Concat(0, NewTensor([]int{2, 3}), NewTensor([]int{2, 4}))
}

func TestPadCrop2D(t *testing.T) {
	a := sequence(2, 2, 3)

	p := Pad2D(a, 1, 2, 3, 0)
	if !ShapesEqual(p.Shape(), []int{2, 5, 6}) {
		t.Fatalf("Pad2D: expected shape [2 5 6], got %v", p.Shape())
	}
	if Sum(p) != Sum(a) {
		t.Errorf("Pad2D changed the sum: %f vs %f", Sum(p), Sum(a))
	}
	if p.At(1, 3, 1) != a.At(1, 0, 0) {
		t.Errorf("Pad2D: expected %f at (1,3,1), got %f", a.At(1, 0, 0), p.At(1, 3, 1))
	}
	if p.At(0, 0, 0) != 0 || p.At(0, 4, 5) != 0 {
		t.Error("Pad2D border should be zero")
	}

	// Cropping the original window recovers the input
	c := Crop2D(p, 3, 1, 2, 3)
	for i, val := range a.Float32Data() {
		if c.Float32Data()[i] != val {
			t.Fatalf("Crop2D[%d]: expected %f, got %f", i, val, c.Float32Data()[i])
		}
	}

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic on window outside the plane")
		}
	}()
	Crop2D(p, 4, 0, 2, 2)
}

func BenchmarkPermute(b *testing.B) {
	a := sequence(1, 128, 64, 64)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Permute(a, 0, 2, 3, 1)
	}
}
