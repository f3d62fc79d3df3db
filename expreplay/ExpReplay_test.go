package expreplay

import (
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/gradfield/godeep/timestep"
)

// newTransition returns a transition whose state features all equal id
func newTransition(id float64, terminal bool) timestep.Transition {
	return timestep.Transition{
		State:     mat.NewVecDense(2, []float64{id, id}),
		Action:    mat.NewVecDense(1, []float64{id}),
		Reward:    id,
		NextState: mat.NewVecDense(2, []float64{id + 1, id + 1}),
		Terminal:  terminal,
	}
}

func TestSampleEmptyBuffer(t *testing.T) {
	replay, err := New(1, 4, 1, 2, 1, 14)
	if err != nil {
		t.Fatal(err)
	}

	_, _, _, _, _, err = replay.Sample()
	if !IsEmptyBuffer(err) {
		t.Errorf("expected empty buffer error \n\thave(%v)", err)
	}
}

func TestSampleInsufficientSamples(t *testing.T) {
	replay, err := New(3, 4, 1, 2, 1, 14)
	if err != nil {
		t.Fatal(err)
	}

	if err := replay.Add(newTransition(1.0, false)); err != nil {
		t.Fatal(err)
	}

	_, _, _, _, _, err = replay.Sample()
	if !IsInsufficientSamples(err) {
		t.Errorf("expected insufficient samples error \n\thave(%v)", err)
	}
}

func TestAddInvalidSizes(t *testing.T) {
	replay, err := New(1, 4, 1, 3, 2, 14)
	if err != nil {
		t.Fatal(err)
	}

	// The buffer stores 3 state features and 2 action features, so a
	// transition with 2 state features and 1 action feature must be
	// rejected
	if err := replay.Add(newTransition(1.0, false)); err == nil {
		t.Error("expected error for invalid transition sizes")
	}
}

func TestSample(t *testing.T) {
	replay, err := New(1, 4, 2, 2, 1, 14)
	if err != nil {
		t.Fatal(err)
	}

	// All stored transitions are identical, so any sampled batch is
	// fully determined
	for i := 0; i < 3; i++ {
		if err := replay.Add(newTransition(7.0, true)); err != nil {
			t.Fatal(err)
		}
	}

	state, action, reward, nextState, terminal, err := replay.Sample()
	if err != nil {
		t.Fatal(err)
	}

	if len(state) != 4 || len(nextState) != 4 {
		t.Fatalf("incorrect state batch sizes \n\twant(%v) \n\thave(%v, %v)",
			4, len(state), len(nextState))
	}
	if len(action) != 2 || len(reward) != 2 || len(terminal) != 2 {
		t.Fatalf("incorrect batch sizes \n\twant(%v) \n\thave(%v, %v, %v)",
			2, len(action), len(reward), len(terminal))
	}

	for i := 0; i < 2; i++ {
		if state[2*i] != 7.0 || state[2*i+1] != 7.0 {
			t.Errorf("incorrect sampled state \n\twant(%v) \n\thave(%v)",
				7.0, state[2*i:2*i+2])
		}
		if nextState[2*i] != 8.0 || nextState[2*i+1] != 8.0 {
			t.Errorf("incorrect sampled next state \n\twant(%v) "+
				"\n\thave(%v)", 8.0, nextState[2*i:2*i+2])
		}
		if action[i] != 7.0 {
			t.Errorf("incorrect sampled action \n\twant(%v) \n\thave(%v)",
				7.0, action[i])
		}
		if reward[i] != 7.0 {
			t.Errorf("incorrect sampled reward \n\twant(%v) \n\thave(%v)",
				7.0, reward[i])
		}
		if terminal[i] != 1.0 {
			t.Errorf("incorrect sampled terminal flag \n\twant(%v) "+
				"\n\thave(%v)", 1.0, terminal[i])
		}
	}
}

func TestFifoOverwrite(t *testing.T) {
	replay, err := New(1, 3, 1, 2, 1, 14)
	if err != nil {
		t.Fatal(err)
	}
	buffer := replay.(*cache)

	for i := 0; i < 4; i++ {
		if err := replay.Add(newTransition(float64(i), false)); err != nil {
			t.Fatal(err)
		}
	}

	if replay.Capacity() != 3 {
		t.Errorf("incorrect capacity \n\twant(%v) \n\thave(%v)", 3,
			replay.Capacity())
	}

	// The fourth transition overwrites the oldest, stored at index 0
	if buffer.stateCache[0] != 3.0 {
		t.Errorf("oldest transition not overwritten \n\twant(%v) "+
			"\n\thave(%v)", 3.0, buffer.stateCache[0])
	}
	if buffer.stateCache[2] != 1.0 || buffer.stateCache[4] != 2.0 {
		t.Error("newer transitions should not be overwritten")
	}

	// The next added transition overwrites index 1
	if err := replay.Add(newTransition(4.0, false)); err != nil {
		t.Fatal(err)
	}
	if buffer.stateCache[2] != 4.0 {
		t.Errorf("ring index did not advance \n\twant(%v) \n\thave(%v)",
			4.0, buffer.stateCache[2])
	}
}

func TestNewInvalidConfig(t *testing.T) {
	if _, err := New(0, 4, 1, 2, 1, 14); err == nil {
		t.Error("expected error for non-positive minimum capacity")
	}
	if _, err := New(1, 0, 1, 2, 1, 14); err == nil {
		t.Error("expected error for non-positive maximum capacity")
	}
	if _, err := New(1, 2, 4, 2, 1, 14); err == nil {
		t.Error("expected error for batch size exceeding capacity")
	}
}
