package pendulum

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

const tolerance float64 = 1e-12

// fixedStarter always starts episodes from the same state
type fixedStarter struct {
	state []float64
}

func (f fixedStarter) Start() mat.Vector {
	state := make([]float64, len(f.state))
	copy(state, f.state)
	return mat.NewVecDense(len(state), state)
}

func TestNewInvalidStarter(t *testing.T) {
	starter := fixedStarter{state: []float64{0.0}}
	if _, _, err := New(starter, 0.99); err == nil {
		t.Error("expected error for starter with invalid dimensions")
	}

	starter = fixedStarter{state: []float64{2 * math.Pi, 0.0}}
	if _, _, err := New(starter, 0.99); err == nil {
		t.Error("expected error for starting angle out of bounds")
	}
}

func TestReset(t *testing.T) {
	env, firstStep, err := New(NewDefaultStarter(14), 0.99)
	if err != nil {
		t.Fatal(err)
	}

	if !firstStep.First() {
		t.Error("first timestep should have step type First")
	}

	for i := 0; i < 10; i++ {
		step := env.Reset()
		if !step.First() {
			t.Error("reset should return a timestep with step type First")
		}

		angle := step.Observation.AtVec(0)
		if angle < -AngleBound || angle > AngleBound {
			t.Errorf("starting angle out of bounds \n\thave(%v)", angle)
		}
		speed := step.Observation.AtVec(1)
		if speed < -1.0 || speed > 1.0 {
			t.Errorf("starting angular velocity out of bounds \n\thave(%v)",
				speed)
		}
	}
}

func TestStepDynamics(t *testing.T) {
	// Start hanging straight down with no angular velocity
	starter := fixedStarter{state: []float64{math.Pi, 0.0}}
	env, _, err := New(starter, 0.99)
	if err != nil {
		t.Fatal(err)
	}

	step, last := env.Step(mat.NewVecDense(1, []float64{1.0}))
	if last {
		t.Error("episode should not end on the first step")
	}

	// With θ = π, sin(θ + π) = 0 so gravity exerts no torque and the
	// applied torque alone accelerates the pendulum
	wantSpeed := 3.0 / (Mass * Length * Length) * 1.0 * dt
	wantAngle := normalizeAngle(math.Pi + wantSpeed*dt)

	if v := step.Observation.AtVec(1); math.Abs(v-wantSpeed) > tolerance {
		t.Errorf("incorrect angular velocity \n\twant(%v) \n\thave(%v)",
			wantSpeed, v)
	}
	if a := step.Observation.AtVec(0); math.Abs(a-wantAngle) > tolerance {
		t.Errorf("incorrect angle \n\twant(%v) \n\thave(%v)", wantAngle, a)
	}

	wantReward := math.Cos(wantAngle)
	if math.Abs(step.Reward-wantReward) > tolerance {
		t.Errorf("incorrect reward \n\twant(%v) \n\thave(%v)", wantReward,
			step.Reward)
	}
}

func TestStepClipsActions(t *testing.T) {
	starter := fixedStarter{state: []float64{math.Pi, 0.0}}
	env, _, err := New(starter, 0.99)
	if err != nil {
		t.Fatal(err)
	}

	// An oversized torque is clipped to the torque bound before it is
	// applied
	step, _ := env.Step(mat.NewVecDense(1, []float64{100.0}))
	wantSpeed := 3.0 / (Mass * Length * Length) * MaxContinuousAction * dt
	if v := step.Observation.AtVec(1); math.Abs(v-wantSpeed) > tolerance {
		t.Errorf("action not clipped \n\twant(%v) \n\thave(%v)", wantSpeed, v)
	}
}

func TestUprightRewardIsMaximal(t *testing.T) {
	// Balanced upright with no angular velocity, gravity exerts no
	// torque at θ = 0 and a zero action keeps the pendulum still
	starter := fixedStarter{state: []float64{0.0, 0.0}}
	env, _, err := New(starter, 0.99)
	if err != nil {
		t.Fatal(err)
	}

	step, _ := env.Step(mat.NewVecDense(1, []float64{0.0}))
	if math.Abs(step.Reward-1.0) > tolerance {
		t.Errorf("upright reward should be 1 \n\thave(%v)", step.Reward)
	}
}

func TestStepLimitTerminatesEpisode(t *testing.T) {
	starter := fixedStarter{state: []float64{math.Pi, 0.0}}
	env, _, err := New(starter, 0.99)
	if err != nil {
		t.Fatal(err)
	}

	action := mat.NewVecDense(1, []float64{0.0})
	for i := 0; i < MaxSteps-1; i++ {
		step, last := env.Step(action)
		if last || step.Last() {
			t.Fatalf("episode ended early at step %d", i+1)
		}
	}

	step, last := env.Step(action)
	if !last || !step.Last() {
		t.Error("episode should end at the step limit")
	}
	if step.Discount != 0.0 {
		t.Errorf("terminal discount should be 0 \n\thave(%v)", step.Discount)
	}
}

func TestNormalizeAngle(t *testing.T) {
	inputs := []float64{0.0, math.Pi / 2, -math.Pi / 2, math.Pi + 0.5,
		-math.Pi - 0.5, 3 * math.Pi}
	for _, th := range inputs {
		normalized := normalizeAngle(th)
		if normalized < -AngleBound || normalized > AngleBound {
			t.Errorf("angle not normalized \n\thave(%v) -> (%v)", th,
				normalized)
		}
		// The normalized angle points in the same direction
		if math.Abs(math.Cos(normalized)-math.Cos(th)) > 1e-9 ||
			math.Abs(math.Sin(normalized)-math.Sin(th)) > 1e-9 {
			t.Errorf("normalization changed direction \n\thave(%v) -> (%v)",
				th, normalized)
		}
	}
}
