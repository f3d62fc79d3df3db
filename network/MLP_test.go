package network

import (
	"math"
	"testing"

	G "gorgonia.org/gorgonia"
)

// newTestMLP returns a small single-head MLP with constant weights
func newTestMLP(t *testing.T, value float64, batch int) NeuralNet {
	g := G.NewGraph()
	net, err := NewMLP(
		2,
		batch,
		1,
		g,
		"test",
		[]int{3},
		[]bool{true},
		G.ValuesOf(value),
		[]*Activation{ReLU()},
	)
	if err != nil {
		t.Fatal(err)
	}
	return net
}

// weights returns the flattened data of every learnable in the network
func weights(net NeuralNet) [][]float64 {
	out := make([][]float64, 0, len(net.Learnables()))
	for _, node := range net.Learnables() {
		data := node.Value().Data().([]float64)
		copied := make([]float64, len(data))
		copy(copied, data)
		out = append(out, copied)
	}
	return out
}

func TestMLPArchitecture(t *testing.T) {
	net := newTestMLP(t, 1.0, 4)

	if net.BatchSize() != 4 {
		t.Errorf("incorrect batch size \n\twant(%v) \n\thave(%v)", 4,
			net.BatchSize())
	}
	if net.Features() != 2 {
		t.Errorf("incorrect features \n\twant(%v) \n\thave(%v)", 2,
			net.Features())
	}
	if net.Outputs() != 1 {
		t.Errorf("incorrect outputs \n\twant(%v) \n\thave(%v)", 1,
			net.Outputs())
	}
	if len(net.Inputs()) != 1 {
		t.Errorf("incorrect number of input heads \n\twant(%v) "+
			"\n\thave(%v)", 1, len(net.Inputs()))
	}

	// One hidden layer and the final linear layer, each with a weight
	// matrix and a bias vector
	if len(net.Learnables()) != 4 {
		t.Errorf("incorrect number of learnables \n\twant(%v) \n\thave(%v)",
			4, len(net.Learnables()))
	}
}

func TestStateActionMLPArchitecture(t *testing.T) {
	g := G.NewGraph()
	net, err := NewStateActionMLP(
		3,
		2,
		4,
		g,
		"critic",
		[]int{8},
		[]bool{true},
		G.GlorotU(1.0),
		[]*Activation{ReLU()},
	)
	if err != nil {
		t.Fatal(err)
	}

	if len(net.Inputs()) != 2 {
		t.Fatalf("incorrect number of input heads \n\twant(%v) "+
			"\n\thave(%v)", 2, len(net.Inputs()))
	}
	if net.Features() != 5 {
		t.Errorf("incorrect features \n\twant(%v) \n\thave(%v)", 5,
			net.Features())
	}
	if net.Outputs() != 1 {
		t.Errorf("incorrect outputs \n\twant(%v) \n\thave(%v)", 1,
			net.Outputs())
	}
	if shape := net.Prediction().Shape(); shape[0] != 4 || shape[1] != 1 {
		t.Errorf("incorrect prediction shape \n\twant(%v) \n\thave(%v)",
			[]int{4, 1}, shape)
	}

	// The first layer holds one weight matrix per input head and a
	// bias, the output layer a weight matrix and a bias
	if len(net.Learnables()) != 5 {
		t.Errorf("incorrect number of learnables \n\twant(%v) \n\thave(%v)",
			5, len(net.Learnables()))
	}
}

func TestComposedGradient(t *testing.T) {
	// Clone a state-action network so that its action head is fed by
	// the prediction of an upstream network, then differentiate the
	// composed output with respect to the upstream weights. The
	// gradient must flow through the cloned network's first layer back
	// to the upstream learnables.
	batch := 4
	g := G.NewGraph()

	upstream, err := NewMLP(
		3,
		batch,
		2,
		g,
		"upstream",
		[]int{6},
		[]bool{true},
		G.GlorotU(1.0),
		[]*Activation{TanH()},
	)
	if err != nil {
		t.Fatal(err)
	}

	valuer, err := NewStateActionMLP(
		3,
		2,
		batch,
		G.NewGraph(),
		"valuer",
		[]int{8},
		[]bool{true},
		G.GlorotU(1.0),
		[]*Activation{ReLU()},
	)
	if err != nil {
		t.Fatal(err)
	}

	composed, err := valuer.CloneWithInputsTo(
		[]*G.Node{upstream.Inputs()[0], upstream.Prediction()}, g)
	if err != nil {
		t.Fatal(err)
	}

	loss := G.Must(G.Mean(composed.Prediction()))
	if _, err := G.Grad(loss, upstream.Learnables()...); err != nil {
		t.Fatalf("could not differentiate composed networks: %v", err)
	}

	vm := G.NewTapeMachine(g, G.BindDualValues(upstream.Learnables()...))
	defer vm.Close()

	input := make([]float64, batch*3)
	for i := range input {
		input[i] = 1.0
	}
	if err := upstream.SetInput(input); err != nil {
		t.Fatal(err)
	}
	if err := vm.RunAll(); err != nil {
		t.Fatalf("could not run composed networks: %v", err)
	}

	for _, node := range upstream.Learnables() {
		grad, err := node.Grad()
		if err != nil {
			t.Fatalf("no gradient for %v: %v", node.Name(), err)
		}
		if grad == nil {
			t.Fatalf("nil gradient for %v", node.Name())
		}
	}
}

func TestMLPInvalidConfig(t *testing.T) {
	g := G.NewGraph()
	_, err := NewMLP(2, 1, 1, g, "test", []int{3}, []bool{true, false},
		G.ValuesOf(1.0), []*Activation{ReLU()})
	if err == nil {
		t.Error("expected error for mismatched hidden sizes and biases")
	}

	g = G.NewGraph()
	_, err = NewMLP(2, 1, 1, g, "test", []int{3}, []bool{true},
		G.ValuesOf(1.0), []*Activation{ReLU(), TanH()})
	if err == nil {
		t.Error("expected error for mismatched hidden sizes and activations")
	}
}

func TestSetInput(t *testing.T) {
	net := newTestMLP(t, 1.0, 2)

	if err := net.SetInput([]float64{1, 2, 3, 4}); err != nil {
		t.Errorf("could not set input: %v", err)
	}

	if err := net.SetInput([]float64{1, 2, 3}); err == nil {
		t.Error("expected error for invalid input size")
	}

	if err := net.SetInput([]float64{1, 2}, []float64{3, 4}); err == nil {
		t.Error("expected error for invalid number of input heads")
	}
}

func TestCloneWithBatchCopiesWeights(t *testing.T) {
	net := newTestMLP(t, 0.5, 1)

	cloned, err := net.CloneWithBatch(8)
	if err != nil {
		t.Fatal(err)
	}

	if cloned.BatchSize() != 8 {
		t.Errorf("incorrect cloned batch size \n\twant(%v) \n\thave(%v)", 8,
			cloned.BatchSize())
	}
	if cloned.Graph() == net.Graph() {
		t.Error("clone should live on a new graph")
	}

	original, copied := weights(net), weights(cloned)
	for i := range original {
		for j := range original[i] {
			if original[i][j] != copied[i][j] {
				t.Fatalf("weights of learnable %d not copied", i)
			}
		}
	}
}

func TestSet(t *testing.T) {
	dest := newTestMLP(t, 0.0, 1)
	source := newTestMLP(t, 1.0, 1)

	if err := dest.Set(source); err != nil {
		t.Fatal(err)
	}

	sourceWeights, destWeights := weights(source), weights(dest)
	for i := range sourceWeights {
		for j := range sourceWeights[i] {
			if destWeights[i][j] != sourceWeights[i][j] {
				t.Fatalf("weights of learnable %d not set", i)
			}
		}
	}
}

func TestPolyak(t *testing.T) {
	tau := 0.25
	dest := newTestMLP(t, 0.0, 1)
	source := newTestMLP(t, 1.0, 1)

	if err := dest.Polyak(source, tau); err != nil {
		t.Fatal(err)
	}

	// Biases are zero in both networks, weight matrices blend from 0
	// toward 1
	destNet := dest.(*mlp)
	for _, layer := range destNet.layers {
		data := layer.Weights().Value().Data().([]float64)
		for _, value := range data {
			if math.Abs(value-tau) > 1e-12 {
				t.Fatalf("incorrect blended weight \n\twant(%v) "+
					"\n\thave(%v)", tau, value)
			}
		}
	}
}
