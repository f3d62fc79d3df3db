// Package checkpointer implements checkpointing of agent state during
// an experiment
package checkpointer

import (
	ts "github.com/gradfield/godeep/timestep"
)

// Serializable is an object whose state can be saved to disk
type Serializable interface {
	SaveWeights(path string) error
}

// Checkpointer checkpoints/saves serializable objects based on
// timestep.TimeSteps
type Checkpointer interface {
	Checkpoint(ts.TimeStep) error
}
