package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Layer implements a single layer of a neural network
type Layer interface {
	fwd(*G.Node) (*G.Node, error)
	CloneTo(g *G.ExprGraph) Layer
	Weights() *G.Node
	Bias() *G.Node
	Activation() *Activation
}

// fcLayer implements a fully connected layer of a feed forward neural
// network
type fcLayer struct {
	weights *G.Node
	bias    *G.Node
	act     *Activation
}

// fwd adds the forward pass of the fcLayer to the computational graph
func (f *fcLayer) fwd(x *G.Node) (*G.Node, error) {
	if f.Weights() != nil {
		x = G.Must(G.Mul(x, f.Weights()))
	}
	if f.Bias() != nil {
		// Broadcast the bias weights to all samples along the batch
		// dimension
		x = G.Must(G.BroadcastAdd(x, f.Bias(), nil, []byte{0}))
	}
	if f.Activation() == nil || f.Activation().IsNil() ||
		f.Activation().IsIdentity() {
		return x, nil
	}
	return f.Activation().fwd(x)
}

// CloneTo clones an fcLayer to a new computational graph
func (f *fcLayer) CloneTo(g *G.ExprGraph) Layer {
	var newWeights, newBias *G.Node

	if f.Weights() != nil {
		newWeights = f.Weights().CloneTo(g)
	}
	if f.Bias() != nil {
		newBias = f.Bias().CloneTo(g)
	}

	return &fcLayer{
		weights: newWeights,
		bias:    newBias,
		act:     f.act,
	}
}

func (f *fcLayer) Activation() *Activation {
	return f.act
}

func (f *fcLayer) Bias() *G.Node {
	return f.bias
}

func (f *fcLayer) Weights() *G.Node {
	return f.weights
}

// multiHeadFCLayer implements a fully connected layer with one weight
// matrix per input head. The layer computes
// x_0*W_0 + x_1*W_1 + ... + bias, which is identical to concatenating
// the input heads along the feature dimension and multiplying by the
// vertically stacked weight matrices, but keeps the backward pass of
// each head an ordinary matrix multiplication. Gorgonia cannot
// differentiate a matrix multiplication through a Concat node toward
// upstream learnables, so layers fed by the output of another network
// must take this form.
type multiHeadFCLayer struct {
	heads []*G.Node // One weight matrix per input head
	bias  *G.Node
	act   *Activation
}

// newMultiHeadFCLayer returns a new multiHeadFCLayer with size output
// units and one weight matrix per entry of inputDims, added to the
// graph g. The layer always takes index 0 in its network's node names.
func newMultiHeadFCLayer(g *G.ExprGraph, inputDims []int, size int,
	bias bool, act *Activation, init G.InitWFn, prefix string) Layer {
	heads := make([]*G.Node, len(inputDims))
	for i, in := range inputDims {
		heads[i] = G.NewMatrix(
			g,
			tensor.Float64,
			G.WithShape(in, size),
			G.WithName(fmt.Sprintf("%vL0W%d", prefix, i)),
			G.WithInit(init),
		)
	}

	var b *G.Node
	if bias {
		b = G.NewVector(
			g,
			tensor.Float64,
			G.WithShape(size),
			G.WithName(fmt.Sprintf("%vL0B", prefix)),
			G.WithInit(G.Zeroes()),
		)
	}

	return &multiHeadFCLayer{heads: heads, bias: b, act: act}
}

// fwd computes the forward pass when the layer has exactly one input
// head
func (m *multiHeadFCLayer) fwd(x *G.Node) (*G.Node, error) {
	return m.fwdHeads([]*G.Node{x})
}

// fwdHeads adds the forward pass of the layer to the computational
// graph, projecting each input head through its weight matrix and
// summing the projections before the bias and activation
func (m *multiHeadFCLayer) fwdHeads(inputs []*G.Node) (*G.Node, error) {
	if len(inputs) != len(m.heads) {
		return nil, fmt.Errorf("fwdheads: invalid number of input heads"+
			"\n\twant(%d)\n\thave(%d)", len(m.heads), len(inputs))
	}

	x := G.Must(G.Mul(inputs[0], m.heads[0]))
	for i := 1; i < len(inputs); i++ {
		x = G.Must(G.Add(x, G.Must(G.Mul(inputs[i], m.heads[i]))))
	}
	if m.Bias() != nil {
		x = G.Must(G.BroadcastAdd(x, m.Bias(), nil, []byte{0}))
	}
	if m.Activation() == nil || m.Activation().IsNil() ||
		m.Activation().IsIdentity() {
		return x, nil
	}
	return m.Activation().fwd(x)
}

// CloneTo clones a multiHeadFCLayer to a new computational graph
func (m *multiHeadFCLayer) CloneTo(g *G.ExprGraph) Layer {
	heads := make([]*G.Node, len(m.heads))
	for i := range m.heads {
		heads[i] = m.heads[i].CloneTo(g)
	}

	var newBias *G.Node
	if m.Bias() != nil {
		newBias = m.Bias().CloneTo(g)
	}

	return &multiHeadFCLayer{heads: heads, bias: newBias, act: m.act}
}

func (m *multiHeadFCLayer) Activation() *Activation {
	return m.act
}

func (m *multiHeadFCLayer) Bias() *G.Node {
	return m.bias
}

// Weights returns nil; the weight matrices of a multi-head layer are
// held per head
func (m *multiHeadFCLayer) Weights() *G.Node {
	return nil
}

// addFCLayers adds fully connected layers to the graph g, returning
// the layers in order. For index i, sizes[i] is the number of hidden
// units of layer i, biases[i] determines whether layer i has a bias
// unit, and activations[i] is its activation. The features parameter
// is the number of input features to the first layer, and prefix is
// prepended to the names of the weight nodes so that networks sharing
// a graph have distinct node names. The start parameter offsets the
// layer indices in node names when earlier layers were added through
// another constructor.
func addFCLayers(g *G.ExprGraph, sizes []int, biases []bool,
	activations []*Activation, init G.InitWFn, features int,
	prefix string, start int) []Layer {
	layers := make([]Layer, 0, len(sizes))

	in := features
	for i, size := range sizes {
		weights := G.NewMatrix(
			g,
			tensor.Float64,
			G.WithShape(in, size),
			G.WithName(fmt.Sprintf("%vL%dW", prefix, start+i)),
			G.WithInit(init),
		)

		var bias *G.Node
		if biases[i] {
			bias = G.NewVector(
				g,
				tensor.Float64,
				G.WithShape(size),
				G.WithName(fmt.Sprintf("%vL%dB", prefix, start+i)),
				G.WithInit(G.Zeroes()),
			)
		}

		layers = append(layers, &fcLayer{
			weights: weights,
			bias:    bias,
			act:     activations[i],
		})
		in = size
	}

	return layers
}
