// Package pointmass implements the point mass classic control
// environment
package pointmass

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"

	"github.com/gradfield/godeep/environment"
	"github.com/gradfield/godeep/timestep"
	"github.com/gradfield/godeep/utils/floatutils"
)

// default physical constants
const (
	PositionBound float64 = 1.0 // +/- Position bounds
	SpeedBound    float64 = 2.0 // +/- Speed bounds
	ForceBound    float64 = 1.0 // +/- Force bounds

	MaxContinuousAction float64 = ForceBound
	MinContinuousAction float64 = -MaxContinuousAction

	dt         float64 = 0.1
	GoalRadius float64 = 0.05
	MaxSteps   int     = 200
)

// PointMass implements a frictionless point mass control environment.
// A unit mass particle moves on a line segment. The agent applies a
// bounded force to the particle each step, accelerating it, and must
// bring it to rest at the origin. An episode ends when the particle is
// within GoalRadius of the origin or after MaxSteps steps.
//
// State features consist of the position and velocity of the particle
// in each spatial dimension, bounded by the PositionBound and
// SpeedBound constants in this package. The particle stops dead when
// it hits a position bound.
//
// Actions are continuous with one dimension per spatial dimension,
// bounded by [MinContinuousAction, MaxContinuousAction]. Actions
// outside this region are clipped to stay within the bounds.
//
// PointMass implements the environment.Environment interface
type PointMass struct {
	environment.Starter
	dims     int
	discount float64
	lastStep timestep.TimeStep
}

// New creates and returns a new PointMass environment with dims
// spatial dimensions, drawing starting states from s
func New(dims int, s environment.Starter, discount float64) (*PointMass,
	timestep.TimeStep, error) {
	if dims < 1 {
		return nil, timestep.TimeStep{}, fmt.Errorf("pointmass: dimensions "+
			"must be positive \n\twant(>0) \n\thave(%v)", dims)
	}

	state := s.Start()
	if state.Len() != 2*dims {
		return nil, timestep.TimeStep{}, fmt.Errorf("pointmass: starter "+
			"must sample positions and velocities \n\twant(%v) "+
			"\n\thave(%v)", 2*dims, state.Len())
	}

	firstStep := timestep.New(timestep.First, 0.0, discount, state, 0)
	p := &PointMass{s, dims, discount, firstStep}

	return p, firstStep, nil
}

// NewDefaultStarter returns a Starter that draws starting positions
// uniformly from the position bounds and starting velocities of zero
func NewDefaultStarter(dims int, seed uint64) environment.Starter {
	bounds := make([]r1.Interval, 2*dims)
	for i := 0; i < dims; i++ {
		bounds[i] = r1.Interval{Min: -PositionBound, Max: PositionBound}
		bounds[dims+i] = r1.Interval{Min: 0, Max: 0}
	}
	return environment.NewUniformStarter(bounds, seed)
}

// Reset resets the environment and returns a starting state drawn from
// the Starter
func (p *PointMass) Reset() timestep.TimeStep {
	state := p.Start()
	startStep := timestep.New(timestep.First, 0, p.discount, state, 0)
	p.lastStep = startStep

	return startStep
}

// Step takes one environmental step given the argument action,
// returning the next timestep and whether it was the last in the
// episode. The action is clipped to the legal force bounds before it
// is applied.
func (p *PointMass) Step(action mat.Vector) (timestep.TimeStep, bool) {
	if action.Len() != p.dims {
		panic(fmt.Sprintf("step: invalid action dimensions \n\twant(%v) "+
			"\n\thave(%v)", p.dims, action.Len()))
	}

	obs := p.lastStep.Observation
	position := make([]float64, p.dims)
	velocity := make([]float64, p.dims)

	for i := 0; i < p.dims; i++ {
		force := floatutils.Clip(action.AtVec(i), MinContinuousAction,
			MaxContinuousAction)

		velocity[i] = floatutils.Clip(obs.AtVec(p.dims+i)+force*dt,
			-SpeedBound, SpeedBound)
		position[i] = obs.AtVec(i) + velocity[i]*dt

		// The particle stops dead at the position bounds
		if position[i] <= -PositionBound || position[i] >= PositionBound {
			position[i] = floatutils.Clip(position[i], -PositionBound,
				PositionBound)
			velocity[i] = 0
		}
	}

	state := mat.NewVecDense(2*p.dims, append(position, velocity...))
	distance := floats.Norm(position, 2)
	reward := -math.Pow(distance, 2)

	number := p.lastStep.Number + 1
	stepType := timestep.Mid
	discount := p.discount
	if distance < GoalRadius || number >= MaxSteps {
		stepType = timestep.Last
		discount = 0
	}

	step := timestep.New(stepType, reward, discount, state, number)
	p.lastStep = step

	return step, step.Last()
}

// ObservationSpec returns the observation specification of the
// environment
func (p *PointMass) ObservationSpec() environment.Spec {
	shape := mat.NewVecDense(2*p.dims, nil)

	lowerBound := make([]float64, 2*p.dims)
	upperBound := make([]float64, 2*p.dims)
	for i := 0; i < p.dims; i++ {
		lowerBound[i] = -PositionBound
		upperBound[i] = PositionBound
		lowerBound[p.dims+i] = -SpeedBound
		upperBound[p.dims+i] = SpeedBound
	}

	return environment.Spec{
		Shape:       shape,
		Type:        environment.Observation,
		LowerBound:  mat.NewVecDense(2*p.dims, lowerBound),
		UpperBound:  mat.NewVecDense(2*p.dims, upperBound),
		Cardinality: environment.Continuous,
	}
}

// ActionSpec returns the action specification of the environment
func (p *PointMass) ActionSpec() environment.Spec {
	shape := mat.NewVecDense(p.dims, nil)

	lowerBound := make([]float64, p.dims)
	upperBound := make([]float64, p.dims)
	for i := range lowerBound {
		lowerBound[i] = MinContinuousAction
		upperBound[i] = MaxContinuousAction
	}

	return environment.Spec{
		Shape:       shape,
		Type:        environment.Action,
		LowerBound:  mat.NewVecDense(p.dims, lowerBound),
		UpperBound:  mat.NewVecDense(p.dims, upperBound),
		Cardinality: environment.Continuous,
	}
}
