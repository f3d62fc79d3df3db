package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// mlp implements a multi-layered perceptron with one or more input
// heads and a single output head. A network with multiple input heads
// projects each head through its own weight matrix in the first layer
// and sums the projections, which is equivalent to concatenating the
// heads along the feature (column) dimension before a single fully
// connected layer.
type mlp struct {
	g      *G.ExprGraph
	layers []Layer

	inputs    []*G.Node // One node per input head
	inputDims []int     // Feature dimension of each input head
	prefix    string    // Node name prefix

	numOutputs int
	batchSize  int

	hiddenSizes []int
	biases      []bool
	activations []*Activation

	learnables G.Nodes
	model      []G.ValueGrad

	prediction *G.Node
	predVal    G.Value
}

// NewMLP creates and returns a new multi-layered perceptron with a
// single input head of size features and outputs output units,
// populating the graph g with the network. The prefix parameter is
// prepended to all node names so that multiple networks may share a
// graph without name collisions.
//
// The MLP has len(hiddenSizes) + 1 layers: for index i, hiddenSizes[i]
// is the number of units in hidden layer i, biases[i] determines
// whether hidden layer i has a bias unit, and activations[i] is the
// activation of hidden layer i. A final linear layer with a bias unit
// and no activation is always appended so that the network predicts
// outputs values per sample. The init parameter determines the weight
// initialization scheme.
func NewMLP(features, batch, outputs int, g *G.ExprGraph, prefix string,
	hiddenSizes []int, biases []bool, init G.InitWFn,
	activations []*Activation) (NeuralNet, error) {
	input := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(batch, features),
		G.WithName(prefix+"state"),
		G.WithInit(G.Zeroes()),
	)

	return newMLPFromInputs([]*G.Node{input}, []int{features}, outputs, g,
		prefix, hiddenSizes, biases, init, activations)
}

// NewStateActionMLP creates and returns a new multi-layered perceptron
// with two named input heads -- a state head of size stateFeatures and
// an action head of size actionFeatures -- and a single scalar output
// per sample. The first layer projects each input head through its own
// weight matrix and sums the projections, equivalent to concatenating
// the heads along the feature dimension. This is the network
// architecture of an action-value function approximator.
//
// See NewMLP for the meaning of the remaining parameters.
func NewStateActionMLP(stateFeatures, actionFeatures, batch int,
	g *G.ExprGraph, prefix string, hiddenSizes []int, biases []bool,
	init G.InitWFn, activations []*Activation) (NeuralNet, error) {
	state := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(batch, stateFeatures),
		G.WithName(prefix+"state"),
		G.WithInit(G.Zeroes()),
	)
	action := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(batch, actionFeatures),
		G.WithName(prefix+"action"),
		G.WithInit(G.Zeroes()),
	)

	return newMLPFromInputs([]*G.Node{state, action},
		[]int{stateFeatures, actionFeatures}, 1, g, prefix, hiddenSizes,
		biases, init, activations)
}

// newMLPFromInputs returns a new MLP that computes its forward pass
// starting from the argument input nodes, which must all be matrix
// nodes in g sharing the same batch dimension.
func newMLPFromInputs(inputs []*G.Node, inputDims []int, outputs int,
	g *G.ExprGraph, prefix string, hiddenSizes []int, biases []bool,
	init G.InitWFn, activations []*Activation) (NeuralNet, error) {
	// Ensure we have one activation per layer
	if len(hiddenSizes) != len(activations) {
		msg := "newmlp: invalid number of activations\n\twant(%d)" +
			"\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(activations))
	}

	// Ensure one bias bool per layer
	if len(hiddenSizes) != len(biases) {
		msg := "newmlp: invalid number of biases\n\twant(%d)\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(biases))
	}

	if len(inputs) != len(inputDims) {
		msg := "newmlp: one feature dimension required per input head" +
			"\n\twant(%d)\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(inputs), len(inputDims))
	}

	features := 0
	for i, input := range inputs {
		if !input.IsMatrix() {
			return nil, fmt.Errorf("newmlp: input %d must be a matrix", i)
		}
		if input.Shape()[1] != inputDims[i] {
			msg := "newmlp: input %d has %d features\n\twant(%d)"
			return nil, fmt.Errorf(msg, i, input.Shape()[1], inputDims[i])
		}
		if input.Shape()[0] != inputs[0].Shape()[0] {
			return nil, fmt.Errorf("newmlp: input heads must share the " +
				"same batch dimension")
		}
		features += inputDims[i]
	}
	batch := inputs[0].Shape()[0]

	// Add a final linear layer with a bias unit and no activation so
	// that the network always predicts outputs values per sample
	sizes := make([]int, len(hiddenSizes), len(hiddenSizes)+1)
	copy(sizes, hiddenSizes)
	sizes = append(sizes, outputs)

	layerBiases := make([]bool, len(biases), len(biases)+1)
	copy(layerBiases, biases)
	layerBiases = append(layerBiases, true)

	layerActivations := make([]*Activation, len(activations),
		len(activations)+1)
	copy(layerActivations, activations)
	layerActivations = append(layerActivations, Identity())

	var layers []Layer
	if len(inputs) > 1 {
		// Multiple input heads are projected and summed by a dedicated
		// first layer; the remaining layers are ordinary fully
		// connected layers
		layers = make([]Layer, 0, len(sizes))
		layers = append(layers, newMultiHeadFCLayer(g, inputDims, sizes[0],
			layerBiases[0], layerActivations[0], init, prefix))
		layers = append(layers, addFCLayers(g, sizes[1:], layerBiases[1:],
			layerActivations[1:], init, sizes[0], prefix, 1)...)
	} else {
		layers = addFCLayers(g, sizes, layerBiases, layerActivations, init,
			features, prefix, 0)
	}

	net := mlp{
		g:           g,
		layers:      layers,
		inputs:      inputs,
		inputDims:   inputDims,
		prefix:      prefix,
		numOutputs:  outputs,
		batchSize:   batch,
		hiddenSizes: sizes,
		biases:      layerBiases,
		activations: layerActivations,
	}
	if _, err := net.fwd(); err != nil {
		return nil, fmt.Errorf("newmlp: could not compute forward pass: %v",
			err)
	}

	return &net, nil
}

// Graph returns the computational graph of the MLP
func (e *mlp) Graph() *G.ExprGraph {
	return e.g
}

// Clone clones the MLP to a new graph with the same batch size
func (e *mlp) Clone() (NeuralNet, error) {
	return e.CloneWithBatch(e.batchSize)
}

// CloneWithBatch clones the MLP to a new graph with a new input batch
// size
func (e *mlp) CloneWithBatch(batchSize int) (NeuralNet, error) {
	graph := G.NewGraph()

	inputs := make([]*G.Node, len(e.inputs))
	for i := range e.inputs {
		inputs[i] = G.NewMatrix(
			graph,
			tensor.Float64,
			G.WithShape(batchSize, e.inputDims[i]),
			G.WithName(e.inputs[i].Name()),
			G.WithInit(G.Zeroes()),
		)
	}

	return e.CloneWithInputsTo(inputs, graph)
}

// CloneWithInputsTo clones the MLP onto the graph, computing its
// forward pass from the argument input nodes. The weight values are
// copied to the new graph.
func (e *mlp) CloneWithInputsTo(inputs []*G.Node,
	graph *G.ExprGraph) (NeuralNet, error) {
	if len(inputs) != len(e.inputs) {
		msg := "clonewithinputsto: invalid number of input heads" +
			"\n\twant(%d)\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(e.inputs), len(inputs))
	}

	for i, input := range inputs {
		if input.Graph() != graph {
			return nil, fmt.Errorf("clonewithinputsto: not all inputs " +
				"are on the argument graph")
		}
		if !input.IsMatrix() {
			return nil, fmt.Errorf("clonewithinputsto: input %d must be "+
				"a matrix node", i)
		}
		if input.Shape()[1] != e.inputDims[i] {
			msg := "clonewithinputsto: input %d has %d features\n\twant(%d)"
			return nil, fmt.Errorf(msg, i, input.Shape()[1], e.inputDims[i])
		}
	}

	layers := make([]Layer, len(e.layers))
	for i := range e.layers {
		layers[i] = e.layers[i].CloneTo(graph)
	}

	net := mlp{
		g:           graph,
		layers:      layers,
		inputs:      inputs,
		inputDims:   e.inputDims,
		prefix:      e.prefix,
		numOutputs:  e.numOutputs,
		batchSize:   inputs[0].Shape()[0],
		hiddenSizes: e.hiddenSizes,
		biases:      e.biases,
		activations: e.activations,
	}
	if _, err := net.fwd(); err != nil {
		return nil, fmt.Errorf("clonewithinputsto: could not compute "+
			"forward pass: %v", err)
	}

	return &net, nil
}

// BatchSize returns the number of samples in an input batch to the
// network
func (e *mlp) BatchSize() int {
	return e.batchSize
}

// Features returns the total number of input features, summed over
// input heads
func (e *mlp) Features() int {
	features := 0
	for _, dim := range e.inputDims {
		features += dim
	}
	return features
}

// Outputs returns the number of outputs predicted per sample
func (e *mlp) Outputs() int {
	return e.numOutputs
}

// Inputs returns the input nodes of the network, one per head
func (e *mlp) Inputs() []*G.Node {
	return e.inputs
}

// SetInput sets the values of the network's input nodes before running
// the forward pass. One data slice must be given per input head, in
// row major order.
func (e *mlp) SetInput(data ...[]float64) error {
	if len(data) != len(e.inputs) {
		return fmt.Errorf("setinput: invalid number of input heads"+
			"\n\twant(%d)\n\thave(%d)", len(e.inputs), len(data))
	}

	for i, input := range data {
		if len(input) != e.inputDims[i]*e.batchSize {
			return fmt.Errorf("setinput: invalid number of inputs for "+
				"head %d\n\twant(%v)\n\thave(%v)", i,
				e.inputDims[i]*e.batchSize, len(input))
		}
		inputTensor := tensor.New(
			tensor.WithBacking(input),
			tensor.WithShape(e.inputs[i].Shape()...),
		)
		if err := G.Let(e.inputs[i], inputTensor); err != nil {
			return fmt.Errorf("setinput: could not set input head %d: %v",
				i, err)
		}
	}
	return nil
}

// Set sets the weights of the MLP to be equal to the weights of source
func (dest *mlp) Set(source NeuralNet) error {
	sourceNodes := source.Learnables()
	nodes := dest.Learnables()
	if len(sourceNodes) != len(nodes) {
		return fmt.Errorf("set: source has %d learnables\n\twant(%d)",
			len(sourceNodes), len(nodes))
	}

	for i, destLearnable := range nodes {
		sourceLearnable := sourceNodes[i].Clone()
		err := G.Let(destLearnable, sourceLearnable.(*G.Node).Value())
		if err != nil {
			return err
		}
	}
	return nil
}

// Polyak sets the weights of the MLP to a polyak average between its
// existing weights and the weights of source
func (dest *mlp) Polyak(source NeuralNet, tau float64) error {
	sourceNodes := source.Learnables()
	nodes := dest.Learnables()
	if len(sourceNodes) != len(nodes) {
		return fmt.Errorf("polyak: source has %d learnables\n\twant(%d)",
			len(sourceNodes), len(nodes))
	}

	for i := range nodes {
		weights := nodes[i].Value().(*tensor.Dense)
		sourceWeights := sourceNodes[i].Value().(*tensor.Dense)

		weights, err := weights.MulScalar(1-tau, true)
		if err != nil {
			return err
		}

		sourceWeights, err = sourceWeights.MulScalar(tau, true)
		if err != nil {
			return err
		}

		var newWeights *tensor.Dense
		newWeights, err = weights.Add(sourceWeights)
		if err != nil {
			return err
		}

		if err := G.Let(nodes[i], newWeights); err != nil {
			return err
		}
	}
	return nil
}

// Learnables returns the learnable nodes in the MLP
func (e *mlp) Learnables() G.Nodes {
	// Lazy instantiation
	if e.learnables == nil {
		e.learnables = e.computeLearnables()
	}
	return e.learnables
}

// computeLearnables computes all the learnables for the network
func (e *mlp) computeLearnables() G.Nodes {
	learnables := make([]*G.Node, 0, 2*len(e.layers))

	for i := range e.layers {
		if multi, ok := e.layers[i].(*multiHeadFCLayer); ok {
			learnables = append(learnables, multi.heads...)
		} else {
			learnables = append(learnables, e.layers[i].Weights())
		}
		if bias := e.layers[i].Bias(); bias != nil {
			learnables = append(learnables, bias)
		}
	}
	return G.Nodes(learnables)
}

// Model returns the learnable nodes with their gradients.
func (e *mlp) Model() []G.ValueGrad {
	// Lazy instantiation
	if e.model == nil {
		e.model = e.computeModel()
	}
	return e.model
}

// computeModel computes the model for the network
func (e *mlp) computeModel() []G.ValueGrad {
	model := make([]G.ValueGrad, 0, 2*len(e.layers))
	for _, node := range e.Learnables() {
		model = append(model, node)
	}
	return model
}

// fwd adds the forward pass of the MLP to the computational graph. A
// network with multiple input heads feeds them all to its first layer;
// a single input head flows through the layers in order.
func (e *mlp) fwd() (*G.Node, error) {
	var pred *G.Node
	var err error

	layers := e.layers
	if multi, ok := layers[0].(*multiHeadFCLayer); ok {
		if pred, err = multi.fwdHeads(e.inputs); err != nil {
			return nil, fmt.Errorf("fwd: could not compute forward pass "+
				"of layer 0: %v", err)
		}
		layers = layers[1:]
	} else if len(e.inputs) > 1 {
		return nil, fmt.Errorf("fwd: %d input heads but first layer "+
			"takes 1", len(e.inputs))
	} else {
		pred = e.inputs[0]
	}

	for i, l := range layers {
		if pred, err = l.fwd(pred); err != nil {
			msg := "fwd: could not compute forward pass of layer %v: %v"
			return nil, fmt.Errorf(msg, i, err)
		}
	}

	e.prediction = pred
	G.Read(e.prediction, &e.predVal)

	return pred, nil
}

// Output returns the value of the network prediction after the graph
// has been run
func (e *mlp) Output() G.Value {
	return e.predVal
}

// Prediction returns the node of the computational graph that stores
// the output of the MLP
func (e *mlp) Prediction() *G.Node {
	return e.prediction
}
