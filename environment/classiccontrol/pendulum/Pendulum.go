// Package pendulum implements the pendulum classic control environment
package pendulum

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"

	"github.com/gradfield/godeep/environment"
	"github.com/gradfield/godeep/timestep"
	"github.com/gradfield/godeep/utils/floatutils"
)

// default physical constants
const (
	AngleBound  float64 = math.Pi // +/- Angle bounds
	SpeedBound  float64 = 8.0     // +/- Speed bounds
	TorqueBound float64 = 2.0     // +/- Torque bounds

	MaxContinuousAction float64 = TorqueBound
	MinContinuousAction float64 = -MaxContinuousAction

	dt      float64 = 0.05
	Gravity float64 = 9.8
	Mass    float64 = 1.0
	Length  float64 = 1.0

	ActionDims      int = 1
	ObservationDims int = 2

	MaxSteps int = 200
)

// Pendulum implements the pendulum swing-up environment. A pendulum is
// attached to a fixed base. An agent can swing the pendulum back and
// forth, but the swinging torque is underpowered. In order to be able
// to swing the pendulum straight up, it must first be rocked back and
// forth, using the momentum to gradually climb higher until the
// pendulum can point straight up or rotate fully around its fixed base.
//
// State features consist of the angle of the pendulum from the positive
// y-axis and the angular velocity of the pendulum. Both state features
// are bounded by the AngleBound and SpeedBound constants in this
// package. The sign of the angular velocity indicates direction, with
// negative sign indicating counter clockwise rotation and positive sign
// indicating clockwise rotation. The angular velocity is clipped to
// [-SpeedBound, SpeedBound]. Angles are normalized to stay within
// [-AngleBound, AngleBound] = [-π, π].
//
// Actions are continuous and 1-dimensional. Actions determine the
// torque to apply to the pendulum at its fixed base and are bounded
// by [MinContinuousAction, MaxContinuousAction] = [-2, 2]. Actions
// outside of this region are clipped to stay within these bounds.
//
// Rewards are the cosine of the pendulum angle measured from the
// positive y-axis, so that holding the pendulum straight up earns a
// reward of 1.0 on each timestep. Episodes last MaxSteps steps.
//
// Pendulum implements the environment.Environment interface
type Pendulum struct {
	environment.Starter
	discount float64
	lastStep timestep.TimeStep
}

// New creates and returns a new Pendulum environment, drawing starting
// states from s
func New(s environment.Starter, discount float64) (*Pendulum,
	timestep.TimeStep, error) {
	state := s.Start()
	if state.Len() != ObservationDims {
		return nil, timestep.TimeStep{}, fmt.Errorf("pendulum: starter "+
			"must sample an angle and angular velocity \n\twant(%v) "+
			"\n\thave(%v)", ObservationDims, state.Len())
	}
	if err := validateState(state); err != nil {
		return nil, timestep.TimeStep{}, fmt.Errorf("pendulum: %v", err)
	}

	firstStep := timestep.New(timestep.First, 0.0, discount, state, 0)
	p := &Pendulum{s, discount, firstStep}

	return p, firstStep, nil
}

// NewDefaultStarter returns a Starter that draws starting angles
// uniformly from the angle bounds and starting angular velocities
// uniformly from [-1, 1]
func NewDefaultStarter(seed uint64) environment.Starter {
	bounds := []r1.Interval{
		{Min: -AngleBound, Max: AngleBound},
		{Min: -1.0, Max: 1.0},
	}
	return environment.NewUniformStarter(bounds, seed)
}

// Reset resets the environment and returns a starting state drawn from
// the Starter
func (p *Pendulum) Reset() timestep.TimeStep {
	state := p.Start()
	if err := validateState(state); err != nil {
		panic(fmt.Sprintf("reset: %v", err))
	}
	startStep := timestep.New(timestep.First, 0, p.discount, state, 0)
	p.lastStep = startStep

	return startStep
}

// Step takes one environmental step given the argument action,
// returning the next timestep and whether it was the last in the
// episode. The action is clipped to the legal torque bounds before it
// is applied.
func (p *Pendulum) Step(action mat.Vector) (timestep.TimeStep, bool) {
	if action.Len() != ActionDims {
		panic(fmt.Sprintf("step: invalid action dimensions \n\twant(%v) "+
			"\n\thave(%v)", ActionDims, action.Len()))
	}

	torque := floatutils.Clip(action.AtVec(0), MinContinuousAction,
		MaxContinuousAction)

	obs := p.lastStep.Observation
	th, thdot := obs.AtVec(0), obs.AtVec(1)

	newthdot := thdot + (-3*Gravity/(2*Length)*math.Sin(th+math.Pi)+
		3.0/(Mass*math.Pow(Length, 2))*torque)*dt
	newth := th + (newthdot * dt)

	// Clip the angular velocity and normalize the angle
	newthdot = floatutils.Clip(newthdot, -SpeedBound, SpeedBound)
	newth = normalizeAngle(newth)

	state := mat.NewVecDense(ObservationDims, []float64{newth, newthdot})
	reward := math.Cos(newth)

	number := p.lastStep.Number + 1
	stepType := timestep.Mid
	discount := p.discount
	if number >= MaxSteps {
		stepType = timestep.Last
		discount = 0
	}

	step := timestep.New(stepType, reward, discount, state, number)
	p.lastStep = step

	return step, step.Last()
}

// ObservationSpec returns the observation specification of the
// environment
func (p *Pendulum) ObservationSpec() environment.Spec {
	shape := mat.NewVecDense(ObservationDims, nil)

	lowerBound := mat.NewVecDense(ObservationDims,
		[]float64{-AngleBound, -SpeedBound})
	upperBound := mat.NewVecDense(ObservationDims,
		[]float64{AngleBound, SpeedBound})

	return environment.Spec{
		Shape:       shape,
		Type:        environment.Observation,
		LowerBound:  lowerBound,
		UpperBound:  upperBound,
		Cardinality: environment.Continuous,
	}
}

// ActionSpec returns the action specification of the environment
func (p *Pendulum) ActionSpec() environment.Spec {
	shape := mat.NewVecDense(ActionDims, nil)

	lowerBound := mat.NewVecDense(ActionDims,
		[]float64{MinContinuousAction})
	upperBound := mat.NewVecDense(ActionDims,
		[]float64{MaxContinuousAction})

	return environment.Spec{
		Shape:       shape,
		Type:        environment.Action,
		LowerBound:  lowerBound,
		UpperBound:  upperBound,
		Cardinality: environment.Continuous,
	}
}

// normalizeAngle normalizes the pendulum angle to [-π, π]
func normalizeAngle(th float64) float64 {
	if th > AngleBound {
		divisor := int(th / AngleBound)
		return -math.Pi + th - (AngleBound * float64(divisor))
	} else if th < -AngleBound {
		divisor := int(th / -AngleBound)
		return math.Pi + th + (AngleBound * float64(divisor))
	}
	return th
}

// validateState ensures that the angle and angular velocity are within
// the environmental limits
func validateState(obs mat.Vector) error {
	th, thdot := obs.AtVec(0), obs.AtVec(1)
	if th < -AngleBound || th > AngleBound {
		return fmt.Errorf("angle is not within bounds \n\twant([%v, %v]) "+
			"\n\thave(%v)", -AngleBound, AngleBound, th)
	}
	if thdot < -SpeedBound || thdot > SpeedBound {
		return fmt.Errorf("angular velocity is not within bounds "+
			"\n\twant([%v, %v]) \n\thave(%v)", -SpeedBound, SpeedBound, thdot)
	}
	return nil
}
