package tensor

import (
	"testing"
)

func TestNewTensor(t *testing.T) {
	tests := []struct {
		name  string
		shape []int
	}{
		{"1D", []int{10}},
		{"2D", []int{3, 4}},
		{"3D", []int{2, 3, 4}},
		{"4D grid", []int{1, 8, 4, 4}},
		{"empty dim", []int{0, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tensor := NewTensor(tt.shape)

			if len(tensor.Shape()) != len(tt.shape) {
				t.Errorf("expected %d dimensions, got %d", len(tt.shape), len(tensor.Shape()))
			}

			for i, dim := range tt.shape {
				if tensor.Shape()[i] != dim {
					t.Errorf("dimension %d: expected %d, got %d", i, dim, tensor.Shape()[i])
				}
			}

			expectedSize := 1
			for _, dim := range tt.shape {
				expectedSize *= dim
			}
			if tensor.Size() != expectedSize {
				t.Errorf("expected size %d, got %d", expectedSize, tensor.Size())
			}
			for i, v := range tensor.Float32Data() {
				if v != 0 {
					t.Fatalf("element %d not zero: %f", i, v)
				}
			}
		})
	}
}

func TestNewTensorPanicsOnNegativeDim(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic on negative dimension")
		}
	}()

	NewTensor([]int{2, -1})
}

func TestComputeStrides(t *testing.T) {
	tests := []struct {
		name     string
		shape    []int
		expected []int
	}{
		{"1D", []int{5}, []int{1}},
		{"2D", []int{3, 4}, []int{4, 1}},
		{"3D", []int{2, 3, 4}, []int{12, 4, 1}},
		{"4D", []int{2, 3, 4, 5}, []int{60, 20, 5, 1}},
		{"scalar", []int{}, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			strides := computeStrides(tt.shape)
			if !ShapesEqual(strides, tt.expected) {
				t.Errorf("expected strides %v, got %v", tt.expected, strides)
			}
		})
	}
}

func TestFillConstructors(t *testing.T) {
	for _, v := range Ones([]int{2, 3}).Float32Data() {
		if v != 1 {
			t.Fatalf("Ones: expected 1, got %f", v)
		}
	}
	for _, v := range Full([]int{4}, 2.5).Float32Data() {
		if v != 2.5 {
			t.Fatalf("Full: expected 2.5, got %f", v)
		}
	}
	for _, v := range Zeros([]int{3, 3}).Float32Data() {
		if v != 0 {
			t.Fatalf("Zeros: expected 0, got %f", v)
		}
	}
}

func TestAtSet(t *testing.T) {
	tensor := NewTensor([]int{2, 3, 4})

	tensor.Set(42, 1, 2, 3)
	if got := tensor.At(1, 2, 3); got != 42 {
		t.Errorf("At(1,2,3): expected 42, got %f", got)
	}

	// Row-major position of (1,2,3) in [2,3,4]
	if got := tensor.Float32Data()[1*12+2*4+3]; got != 42 {
		t.Errorf("flat index: expected 42, got %f", got)
	}
}

func TestDimNegative(t *testing.T) {
	tensor := NewTensor([]int{2, 3, 5})

	if tensor.Dim(-1) != 5 || tensor.Dim(-3) != 2 || tensor.Dim(1) != 3 {
		t.Errorf("Dim: got %d %d %d", tensor.Dim(-1), tensor.Dim(-3), tensor.Dim(1))
	}
	if tensor.NumDims() != 3 {
		t.Errorf("NumDims: expected 3, got %d", tensor.NumDims())
	}
}

func TestNewTensorFromData(t *testing.T) {
	data := []float32{1, 2, 3, 4, 5, 6}
	tensor := NewTensorFromData(data, []int{2, 3})

	if tensor.At(1, 0) != 4 {
		t.Errorf("expected 4, got %f", tensor.At(1, 0))
	}

	// Storage is shared with the caller
	data[0] = 9
	if tensor.At(0, 0) != 9 {
		t.Error("NewTensorFromData should not copy")
	}

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic on length mismatch")
		}
	}()
	NewTensorFromData(data, []int{4, 2})
}

func TestClone(t *testing.T) {
	a := NewTensorFromData([]float32{1, 2, 3, 4}, []int{2, 2})
	b := a.Clone()

	b.Set(10, 0, 0)
	if a.At(0, 0) != 1 {
		t.Error("Clone should not share storage")
	}
	if !ShapesEqual(a.Shape(), b.Shape()) {
		t.Errorf("Clone shape %v != %v", b.Shape(), a.Shape())
	}
}

func TestAtSetPanicsOnInvalidIndices(t *testing.T) {
	tensor := NewTensor([]int{2, 3})

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic on wrong number of indices")
		}
	}()

	tensor.At(0)
}

func TestSetPanicsOnOutOfBounds(t *testing.T) {
	tensor := NewTensor([]int{2, 3})

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic on out of bounds index")
		}
	}()

	tensor.Set(1.0, 2, 0)
}

func BenchmarkNewTensor(b *testing.B) {
	shape := []int{128, 64, 64}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		NewTensor(shape)
	}
}
