package ddpg

import (
	"testing"

	G "gorgonia.org/gorgonia"

	"github.com/gradfield/godeep/network"
)

// newSyncNet returns a small network with all weights set to value
func newSyncNet(t *testing.T, value float64) network.NeuralNet {
	g := G.NewGraph()
	net, err := network.NewMLP(
		2,
		1,
		1,
		g,
		"sync",
		[]int{3},
		[]bool{true},
		G.ValuesOf(value),
		[]*network.Activation{network.ReLU()},
	)
	if err != nil {
		t.Fatal(err)
	}
	return net
}

// netWeights returns the flattened weight data of every learnable
func netWeights(net network.NeuralNet) [][]float64 {
	out := make([][]float64, 0, len(net.Learnables()))
	for _, node := range net.Learnables() {
		data := node.Value().Data().([]float64)
		copied := make([]float64, len(data))
		copy(copied, data)
		out = append(out, copied)
	}
	return out
}

func TestNewTargetUpdateNegative(t *testing.T) {
	if _, err := NewTargetUpdate(-0.1); err == nil {
		t.Error("expected error for negative target update")
	}
}

func TestNewTargetUpdateHardTruncates(t *testing.T) {
	// A non-integral update ≥ 1 is truncated to its integer floor and
	// used as a hard update period
	update, err := NewTargetUpdate(2.9)
	if err != nil {
		t.Fatal(err)
	}

	if update.Soft() {
		t.Error("update ≥ 1 should select hard updates")
	}
	if !update.HardAt(0) || !update.HardAt(2) || !update.HardAt(4) {
		t.Error("hard update should be due on steps divisible by the period")
	}
	if update.HardAt(1) || update.HardAt(3) {
		t.Error("hard update should not be due between periods")
	}
}

func TestNewTargetUpdateSoft(t *testing.T) {
	update, err := NewTargetUpdate(0.3)
	if err != nil {
		t.Fatal(err)
	}

	if !update.Soft() {
		t.Error("update in [0, 1) should select soft updates")
	}
	if update.HardAt(0) || update.HardAt(1) {
		t.Error("soft updates are never due as hard updates")
	}
}

func TestSyncSoft(t *testing.T) {
	tau := 0.25
	update, err := NewTargetUpdate(tau)
	if err != nil {
		t.Fatal(err)
	}

	target := newSyncNet(t, 0.0)
	live := newSyncNet(t, 1.0)

	if err := update.Sync(target, live, false); err != nil {
		t.Fatal(err)
	}

	// target = (1 - τ) * 0 + τ * live
	liveWeights, targetWeights := netWeights(live), netWeights(target)
	for i := range liveWeights {
		for j := range liveWeights[i] {
			if targetWeights[i][j] != tau*liveWeights[i][j] {
				t.Fatalf("incorrect blended weight in learnable %d "+
					"\n\twant(%v) \n\thave(%v)", i, tau*liveWeights[i][j],
					targetWeights[i][j])
			}
		}
	}
}

func TestSyncHardEveryStep(t *testing.T) {
	// τ = 1 hard updates on every training step, making target and
	// live weights identical after each fit
	update, err := NewTargetUpdate(1.0)
	if err != nil {
		t.Fatal(err)
	}
	if update.Soft() {
		t.Fatal("τ = 1 should select hard updates")
	}

	target := newSyncNet(t, 0.0)
	live := newSyncNet(t, 0.75)

	for step := 0; step < 3; step++ {
		if !update.HardAt(step) {
			t.Fatalf("hard update not due at step %d with period 1", step)
		}
	}

	if err := update.Sync(target, live, update.HardAt(0)); err != nil {
		t.Fatal(err)
	}

	liveWeights, targetWeights := netWeights(live), netWeights(target)
	for i := range liveWeights {
		for j := range liveWeights[i] {
			if targetWeights[i][j] != liveWeights[i][j] {
				t.Fatalf("target weights not identical to live weights "+
					"in learnable %d", i)
			}
		}
	}
}

func TestSyncHardFrozenBetweenUpdates(t *testing.T) {
	update, err := NewTargetUpdate(2.0)
	if err != nil {
		t.Fatal(err)
	}

	target := newSyncNet(t, 0.0)
	live := newSyncNet(t, 1.0)

	// Steps not divisible by the period leave the target frozen
	if err := update.Sync(target, live, update.HardAt(1)); err != nil {
		t.Fatal(err)
	}

	for i, learnable := range netWeights(target) {
		for _, value := range learnable {
			if value != 0.0 {
				t.Fatalf("target learnable %d changed between hard "+
					"updates", i)
			}
		}
	}
}
