package database

import (
	"math"
	"testing"
)

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0, 0}, []float32{1, 0, 0}, 0},
		{"identical scaled", []float32{1, 2, 3}, []float32{2, 4, 6}, 0},
		{"orthogonal", []float32{1, 0, 0}, []float32{0, 1, 0}, 1},
		{"opposite", []float32{1, 0, 0}, []float32{-1, 0, 0}, 2},
		{"zero vector", []float32{0, 0, 0}, []float32{1, 0, 0}, 2},
		{"dimension mismatch", []float32{1, 0}, []float32{1, 0, 0}, 2},
		{"both empty", []float32{}, []float32{}, 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := CosineDistance(tc.a, tc.b)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("CosineDistance = %v; want %v", got, tc.want)
			}
		})
	}
}

func TestCosineDistanceRange(t *testing.T) {
	a := []float32{0.12, -0.34, 0.56, 0.78}
	b := []float32{-0.9, 0.1, 0.2, -0.3}

	d := CosineDistance(a, b)
	if d < 0 || d > 2 {
		t.Errorf("CosineDistance = %v; want within [0, 2]", d)
	}
	if CosineDistance(a, b) != CosineDistance(b, a) {
		t.Error("CosineDistance is not symmetric")
	}
}
