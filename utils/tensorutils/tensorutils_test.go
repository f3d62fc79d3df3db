package tensorutils

import (
	"math"
	"testing"

	"gorgonia.org/tensor"
)

const tolerance float64 = 1e-12

func TestL2Norm(t *testing.T) {
	vec := tensor.New(
		tensor.WithBacking([]float64{3.0, 4.0}),
		tensor.WithShape(2),
	)
	if norm := L2Norm(vec); math.Abs(norm-5.0) > tolerance {
		t.Errorf("incorrect norm \n\twant(%v) \n\thave(%v)", 5.0, norm)
	}
}

func TestInvertGradientMidpoint(t *testing.T) {
	// Gradients of parameters at the midpoint of the bounds should be
	// left unchanged, regardless of their direction
	grad := tensor.New(
		tensor.WithBacking([]float64{-0.25, 0.25}),
		tensor.WithShape(2),
	)
	value := tensor.New(
		tensor.WithBacking([]float64{0.0, 0.0}),
		tensor.WithShape(2),
	)

	if err := InvertGradient(grad, value, -1.0, 1.0); err != nil {
		t.Fatal(err)
	}

	expected := []float64{-0.25, 0.25}
	data := grad.Data().([]float64)
	for i := range expected {
		if math.Abs(data[i]-expected[i]) > tolerance {
			t.Errorf("gradient %d changed at midpoint \n\twant(%v) "+
				"\n\thave(%v)", i, expected[i], data[i])
		}
	}
}

func TestInvertGradientAtBounds(t *testing.T) {
	// A parameter at a bound should receive no further push outward
	// and double the push back toward the opposite bound. Descent
	// increases parameters with negative gradients.
	grad := tensor.New(
		tensor.WithBacking([]float64{-1.0, 1.0, 1.0, -1.0}),
		tensor.WithShape(4),
	)
	value := tensor.New(
		tensor.WithBacking([]float64{1.0, 1.0, -1.0, -1.0}),
		tensor.WithShape(4),
	)

	if err := InvertGradient(grad, value, -1.0, 1.0); err != nil {
		t.Fatal(err)
	}

	expected := []float64{0.0, 2.0, 0.0, -2.0}
	data := grad.Data().([]float64)
	for i := range expected {
		if math.Abs(data[i]-expected[i]) > tolerance {
			t.Errorf("incorrect inverted gradient %d \n\twant(%v) "+
				"\n\thave(%v)", i, expected[i], data[i])
		}
	}
}

func TestInvertGradientClipsValues(t *testing.T) {
	// Parameter values outside the bounds are treated as sitting at
	// the bound they exceed
	grad := tensor.New(
		tensor.WithBacking([]float64{-1.0}),
		tensor.WithShape(1),
	)
	value := tensor.New(
		tensor.WithBacking([]float64{2.5}),
		tensor.WithShape(1),
	)

	if err := InvertGradient(grad, value, -1.0, 1.0); err != nil {
		t.Fatal(err)
	}

	if data := grad.Data().([]float64); data[0] != 0.0 {
		t.Errorf("incorrect inverted gradient \n\twant(%v) \n\thave(%v)",
			0.0, data[0])
	}
}

func TestInvertGradientSizeMismatch(t *testing.T) {
	grad := tensor.New(
		tensor.WithBacking([]float64{1.0, 1.0}),
		tensor.WithShape(2),
	)
	value := tensor.New(
		tensor.WithBacking([]float64{0.0}),
		tensor.WithShape(1),
	)

	if err := InvertGradient(grad, value, -1.0, 1.0); err == nil {
		t.Error("expected error for mismatched gradient and value sizes")
	}
}
