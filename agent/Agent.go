// Package agent defines an agent interface
package agent

import (
	"gonum.org/v1/gonum/mat"

	"github.com/gradfield/godeep/environment"
	"github.com/gradfield/godeep/timestep"
)

// Agent determines the implementation details of an agent or algorithm
//
// An Agent is composed of a Learner, which learns weights, and a Policy
// which chooses actions in each state. The Policy chooses which actions
// are taken, and the Learner uses these actions to update the Policy.
type Agent interface {
	Learner
	Policy
}

// Learner implements a learning algorithm that defines how weights are
// updated.
type Learner interface {
	// ObserveFirst records the first timestep in an episode
	ObserveFirst(timestep.TimeStep)

	// Observe records that an action led to some timestep
	Observe(action mat.Vector, nextStep timestep.TimeStep)

	// Step performs a single update to the learner
	Step() error

	// EndEpisode performs cleanup at the end of an episode
	EndEpisode()
}

// Policy represents a policy that an agent can have.
//
// Policies determine how agents select actions. The Policy and Learner
// of an agent share weights so that any changes the Learner makes to
// the weights are reflected in the actions the Policy chooses.
type Policy interface {
	SelectAction(t timestep.TimeStep) *mat.VecDense
	Eval()        // Set policy to evaluation mode
	Train()       // Set policy to training mode
	IsEval() bool // Indicates if in evaluation mode
}

// Config represents a configuration of an agent. Configs are plain
// structs that can be serialized into configuration files and later
// materialized into the agents they describe.
type Config interface {
	// Validate returns an error describing why the Config is not a
	// valid configuration of its agent, or nil
	Validate() error

	// ValidAgent returns whether the argument agent can be constructed
	// from the Config
	ValidAgent(Agent) bool

	// CreateAgent creates the agent described by the Config
	CreateAgent(env environment.Environment, seed uint64) (Agent, error)
}
