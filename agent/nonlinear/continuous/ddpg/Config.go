package ddpg

import (
	"fmt"
	"math"

	G "gorgonia.org/gorgonia"

	"github.com/gradfield/godeep/agent"
	env "github.com/gradfield/godeep/environment"
	"github.com/gradfield/godeep/expreplay"
	"github.com/gradfield/godeep/initwfn"
	"github.com/gradfield/godeep/network"
	"github.com/gradfield/godeep/noise"
	"github.com/gradfield/godeep/solver"
	"github.com/gradfield/godeep/summary"
)

// Config implements a configuration for a DDPG agent
type Config struct {
	// Actor and Critic are optional network prototypes. When set, the
	// layer size, bias, and activation fields below are ignored and
	// the agent's networks are cloned from the prototypes instead. The
	// actor must have a single state input head; the critic must have
	// a state input head and an action input head and predict a single
	// value per sample. The two prototypes must use distinct weight
	// name prefixes.
	Actor  network.NeuralNet
	Critic network.NeuralNet

	ActorLayers      []int                 // Hidden layer sizes in actor net
	ActorBiases      []bool                // Whether each layer has a bias
	ActorActivations []*network.Activation // Activation of each layer
	ActorSolver      *solver.Solver        // Adapts the actor weights

	CriticLayers      []int
	CriticBiases      []bool
	CriticActivations []*network.Activation
	CriticSolver      *solver.Solver

	// Initialization algorithm for weights
	InitWFn *initwfn.InitWFn

	// Experience replay parameters
	ExpReplay expreplay.Config

	Gamma float64 // Discount factor

	// DeltaClip is the residual scale beyond which the critic's Huber
	// loss switches from quadratic to linear. Use math.Inf(1) for a
	// purely quadratic loss.
	DeltaClip float64

	// Training cadence. Transitions are recorded every MemoryInterval
	// training steps and the networks are fit every TrainInterval
	// training steps, once their respective warm-up period has passed.
	MemoryInterval int
	TrainInterval  int
	WarmupActor    int
	WarmupCritic   int

	// Gradient descent iterations per fit, defaulting to 1 when 0
	ActorIterations  int
	CriticIterations int

	// Target net updates. Values ≥ 1 denote a hard update period in
	// training steps, values in [0, 1) a soft update (Polyak
	// averaging) coefficient.
	TargetActorUpdate  float64
	TargetCriticUpdate float64

	// Gradient inversion scales the policy gradient down as actions
	// approach the bounds [GradientInverterMin, GradientInverterMax]
	InvertGradients     bool
	GradientInverterMin float64
	GradientInverterMax float64

	// ResetOnCollapse restores the actor from its earliest checkpoint
	// when the actor gradient norm falls to ActorResetThreshold or
	// below on an episode boundary
	ResetOnCollapse     bool
	ActorResetThreshold float64

	Noise     noise.Process // Exploration noise, optional
	Summaries summary.Sink  // Diagnostic metrics sink, optional
}

// BatchSize returns the batch size of the agent constructed using this
// Config
func (c Config) BatchSize() int {
	return c.ExpReplay.BatchSize
}

// Validate checks a Config to ensure it is a valid configuration of a
// DDPG agent.
func (c Config) Validate() error {
	if c.Actor != nil {
		if len(c.Actor.Inputs()) != 1 {
			return fmt.Errorf("new: actor must have a single state input "+
				"\n\twant(1) \n\thave(%v)", len(c.Actor.Inputs()))
		}
	} else {
		if len(c.ActorLayers) != len(c.ActorBiases) {
			return fmt.Errorf("new: invalid number of actor biases "+
				"\n\twant(%v) \n\thave(%v)", len(c.ActorLayers),
				len(c.ActorBiases))
		}
		if len(c.ActorLayers) != len(c.ActorActivations) {
			return fmt.Errorf("new: invalid number of actor activations "+
				"\n\twant(%v) \n\thave(%v)", len(c.ActorLayers),
				len(c.ActorActivations))
		}
	}

	if c.Critic != nil {
		if len(c.Critic.Inputs()) != 2 {
			return fmt.Errorf("new: critic must have a state input and an "+
				"action input \n\twant(2) \n\thave(%v)",
				len(c.Critic.Inputs()))
		}
		if c.Critic.Outputs() != 1 {
			return fmt.Errorf("new: critic must predict a single value "+
				"\n\twant(1) \n\thave(%v)", c.Critic.Outputs())
		}
	} else {
		if len(c.CriticLayers) != len(c.CriticBiases) {
			return fmt.Errorf("new: invalid number of critic biases "+
				"\n\twant(%v) \n\thave(%v)", len(c.CriticLayers),
				len(c.CriticBiases))
		}
		if len(c.CriticLayers) != len(c.CriticActivations) {
			return fmt.Errorf("new: invalid number of critic activations "+
				"\n\twant(%v) \n\thave(%v)", len(c.CriticLayers),
				len(c.CriticActivations))
		}
	}

	if (c.Actor == nil || c.Critic == nil) && c.InitWFn == nil {
		return fmt.Errorf("new: no weight initialization algorithm")
	}

	if c.ActorSolver == nil || c.CriticSolver == nil {
		return fmt.Errorf("new: no solver for learning weights")
	}

	if c.Gamma < 0 || c.Gamma > 1 {
		return fmt.Errorf("new: discount must be in [0, 1] \n\thave(%v)",
			c.Gamma)
	}

	if c.DeltaClip <= 0 && !math.IsInf(c.DeltaClip, 1) {
		return fmt.Errorf("new: delta clip must be positive \n\thave(%v)",
			c.DeltaClip)
	}

	if c.MemoryInterval < 1 {
		return fmt.Errorf("new: transitions must be recorded at positive "+
			"timestep intervals \n\twant(>0) \n\thave(%v)", c.MemoryInterval)
	}
	if c.TrainInterval < 1 {
		return fmt.Errorf("new: networks must be fit at positive timestep "+
			"intervals \n\twant(>0) \n\thave(%v)", c.TrainInterval)
	}

	if c.WarmupActor < 0 || c.WarmupCritic < 0 {
		return fmt.Errorf("new: warm-up periods cannot be negative "+
			"\n\thave(%v, %v)", c.WarmupActor, c.WarmupCritic)
	}

	if c.ActorIterations < 0 || c.CriticIterations < 0 {
		return fmt.Errorf("new: gradient descent iterations cannot be "+
			"negative \n\thave(%v, %v)", c.ActorIterations,
			c.CriticIterations)
	}

	if _, err := NewTargetUpdate(c.TargetActorUpdate); err != nil {
		return fmt.Errorf("new: invalid target actor update: %v", err)
	}
	if _, err := NewTargetUpdate(c.TargetCriticUpdate); err != nil {
		return fmt.Errorf("new: invalid target critic update: %v", err)
	}

	if c.InvertGradients &&
		c.GradientInverterMin >= c.GradientInverterMax {
		return fmt.Errorf("new: invalid gradient inversion bounds "+
			"\n\twant(min < max) \n\thave([%v, %v])", c.GradientInverterMin,
			c.GradientInverterMax)
	}

	if c.ResetOnCollapse && c.ActorResetThreshold < 0 {
		return fmt.Errorf("new: actor reset threshold cannot be negative "+
			"\n\thave(%v)", c.ActorResetThreshold)
	}

	if c.ExpReplay.BatchSize < 1 {
		return fmt.Errorf("new: replay buffer batch size must be positive "+
			"\n\twant(>0) \n\thave(%v)", c.ExpReplay.BatchSize)
	}

	return nil
}

// ValidAgent returns whether the agent is valid for the configuration.
// That is, whether Agent a can be constructed with Config c.
func (c Config) ValidAgent(a agent.Agent) bool {
	_, ok := a.(*DDPG)
	return ok
}

// CreateAgent creates a new DDPG agent based on the configuration. If
// the Config does not carry actor and critic network prototypes, they
// are constructed as multilayer perceptrons from the Config's layer
// size, bias, and activation fields.
func (c Config) CreateAgent(e env.Environment, s uint64) (agent.Agent,
	error) {
	seed := int64(s)

	obsDims := e.ObservationSpec().Shape.Len()
	actionDims := e.ActionSpec().Shape.Len()

	if c.Actor == nil {
		g := G.NewGraph()
		actor, err := network.NewMLP(
			obsDims,
			1,
			actionDims,
			g,
			"actor",
			c.ActorLayers,
			c.ActorBiases,
			c.InitWFn.InitWFn(),
			c.ActorActivations,
		)
		if err != nil {
			return &DDPG{}, fmt.Errorf("createagent: could not create "+
				"actor: %v", err)
		}
		c.Actor = actor
	}

	if c.Critic == nil {
		g := G.NewGraph()
		critic, err := network.NewStateActionMLP(
			obsDims,
			actionDims,
			1,
			g,
			"critic",
			c.CriticLayers,
			c.CriticBiases,
			c.InitWFn.InitWFn(),
			c.CriticActivations,
		)
		if err != nil {
			return &DDPG{}, fmt.Errorf("createagent: could not create "+
				"critic: %v", err)
		}
		c.Critic = critic
	}

	return New(e, c, seed)
}
