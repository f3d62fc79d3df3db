// Package network implements neural network function approximators
// as Gorgonia computational graphs.
package network

import (
	G "gorgonia.org/gorgonia"
)

// NeuralNet is a neural network function approximator. A NeuralNet may
// have one or more input heads (e.g. a state-value network has a single
// state input, while an action-value network has a state input and an
// action input), which are concatenated along the feature dimension
// before the first layer.
//
// A NeuralNet can be cloned to a fresh graph, to a new batch size, or
// onto existing nodes of another graph so that networks can be
// composed (e.g. feeding one network's prediction into another's input
// while keeping a single differentiable graph).
type NeuralNet interface {
	// Graph returns the computational graph the network is built on
	Graph() *G.ExprGraph

	// Clone clones the network to a new graph with the same batch size
	Clone() (NeuralNet, error)

	// CloneWithBatch clones the network to a new graph with a new
	// input batch size
	CloneWithBatch(int) (NeuralNet, error)

	// CloneWithInputsTo clones the network onto graph g, using the
	// argument nodes as its input heads. The number of input nodes
	// and their feature dimensions must match those of the network.
	CloneWithInputsTo(inputs []*G.Node, g *G.ExprGraph) (NeuralNet, error)

	// BatchSize returns the number of samples in an input batch
	BatchSize() int

	// Features returns the total number of input features, summed
	// over input heads
	Features() int

	// Outputs returns the number of outputs predicted per sample
	Outputs() int

	// Inputs returns the input nodes of the network, one per head
	Inputs() []*G.Node

	// SetInput sets the values of the input nodes before running the
	// forward pass. One data slice must be given per input head.
	SetInput(data ...[]float64) error

	// Set overwrites the network weights with those of source
	Set(source NeuralNet) error

	// Polyak sets the network weights to an exponential blend between
	// its existing weights and the weights of source:
	// w = (1 - tau) * w + tau * w_source
	Polyak(source NeuralNet, tau float64) error

	// Learnables returns the learnable (weight) nodes of the network
	Learnables() G.Nodes

	// Model returns the learnable nodes with their gradients
	Model() []G.ValueGrad

	// Output returns the value of the network prediction after the
	// graph has been run
	Output() G.Value

	// Prediction returns the node holding the network prediction
	Prediction() *G.Node
}
