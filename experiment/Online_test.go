package experiment

import (
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/gradfield/godeep/environment"
	"github.com/gradfield/godeep/experiment/tracker"
	ts "github.com/gradfield/godeep/timestep"
)

// chainEnv is a deterministic environment whose episodes last a fixed
// number of steps and whose reward equals the timestep number
type chainEnv struct {
	episodeLength int
	lastStep      ts.TimeStep
}

func (c *chainEnv) Reset() ts.TimeStep {
	obs := mat.NewVecDense(1, []float64{0.0})
	c.lastStep = ts.New(ts.First, 0.0, 1.0, obs, 0)
	return c.lastStep
}

func (c *chainEnv) Step(_ mat.Vector) (ts.TimeStep, bool) {
	number := c.lastStep.Number + 1
	stepType := ts.Mid
	discount := 1.0
	if number >= c.episodeLength {
		stepType = ts.Last
		discount = 0.0
	}

	obs := mat.NewVecDense(1, []float64{float64(number)})
	c.lastStep = ts.New(stepType, float64(number), discount, obs, number)
	return c.lastStep, c.lastStep.Last()
}

func (c *chainEnv) ObservationSpec() environment.Spec {
	bound := mat.NewVecDense(1, []float64{1.0})
	shape := mat.NewVecDense(1, []float64{1.0})
	return environment.Spec{
		Shape:       shape,
		Type:        environment.Observation,
		LowerBound:  bound,
		UpperBound:  bound,
		Cardinality: environment.Continuous,
	}
}

func (c *chainEnv) ActionSpec() environment.Spec {
	bound := mat.NewVecDense(1, []float64{1.0})
	shape := mat.NewVecDense(1, []float64{1.0})
	return environment.Spec{
		Shape:       shape,
		Type:        environment.Action,
		LowerBound:  bound,
		UpperBound:  bound,
		Cardinality: environment.Continuous,
	}
}

// countingAgent records how often each of its methods is called
type countingAgent struct {
	observedFirst int
	observed      int
	stepped       int
	episodesEnded int
	eval          bool
}

func (c *countingAgent) ObserveFirst(ts.TimeStep)           { c.observedFirst++ }
func (c *countingAgent) Observe(mat.Vector, ts.TimeStep)    { c.observed++ }
func (c *countingAgent) Step() error                        { c.stepped++; return nil }
func (c *countingAgent) EndEpisode()                        { c.episodesEnded++ }
func (c *countingAgent) Eval()                              { c.eval = true }
func (c *countingAgent) Train()                             { c.eval = false }
func (c *countingAgent) IsEval() bool                       { return c.eval }
func (c *countingAgent) SelectAction(ts.TimeStep) *mat.VecDense {
	return mat.NewVecDense(1, []float64{0.0})
}

// TestOnlineRun ensures that an online experiment runs complete
// episodes until the timestep limit is reached and steps the agent on
// every environmental step
func TestOnlineRun(t *testing.T) {
	env := &chainEnv{episodeLength: 4}
	agent := &countingAgent{}

	// 10 steps with episodes of length 4: two full episodes, then a
	// partial episode of 2 steps
	exp := NewOnline(env, agent, 10, nil, nil)
	if err := exp.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}

	if agent.observedFirst != 3 {
		t.Errorf("expected 3 episode starts \n\twant(3) \n\thave(%v)",
			agent.observedFirst)
	}
	if agent.stepped != 10 {
		t.Errorf("expected agent to be stepped each timestep "+
			"\n\twant(10) \n\thave(%v)", agent.stepped)
	}
	if agent.observed != agent.stepped {
		t.Errorf("expected one observation per step \n\twant(%v) "+
			"\n\thave(%v)", agent.stepped, agent.observed)
	}
	if agent.episodesEnded != 2 {
		t.Errorf("expected 2 completed episodes \n\twant(2) \n\thave(%v)",
			agent.episodesEnded)
	}
}

// TestOnlineTracksReturns ensures that returns tracked during an online
// experiment can be saved and loaded back from disk
func TestOnlineTracksReturns(t *testing.T) {
	env := &chainEnv{episodeLength: 3}
	agent := &countingAgent{}

	file := filepath.Join(t.TempDir(), "returns.bin")
	trackers := []tracker.Tracker{tracker.NewReturn(file)}

	exp := NewOnline(env, agent, 6, trackers, nil)
	if err := exp.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	exp.Save()

	if _, err := os.Stat(file); err != nil {
		t.Fatalf("expected tracked data to be saved: %v", err)
	}

	data := tracker.LoadData(file)
	if len(data) != 2 {
		t.Fatalf("expected 2 episodic returns \n\twant(2) \n\thave(%v)",
			len(data))
	}

	// Rewards are the timestep numbers, so each episode of length 3
	// returns 1 + 2 + 3 = 6
	for i, episodeReturn := range data {
		if episodeReturn != 6.0 {
			t.Errorf("incorrect return for episode %d \n\twant(6) "+
				"\n\thave(%v)", i, episodeReturn)
		}
	}
}
