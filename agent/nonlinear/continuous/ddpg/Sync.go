package ddpg

import (
	"fmt"

	"github.com/gradfield/godeep/network"
)

// TargetUpdate determines how a target network tracks its live
// counterpart. A single parameter selects between the two update
// modes:
//
//	update ≥ 1:        hard mode. The target weights are overwritten
//	                   with the live weights every int(update) training
//	                   steps and are frozen between overwrites.
//	0 ≤ update < 1:    soft mode. After every fit the target weights
//	                   are blended toward the live weights:
//	                   target = (1 - update) * target + update * live
type TargetUpdate struct {
	period int
	tau    float64
	soft   bool
}

// NewTargetUpdate validates and interprets the target update parameter
// update. Values in [0, 1) select soft updates with blend coefficient
// update. Values ≥ 1 are truncated to their integer floor and select
// hard updates with that period. Negative values are invalid.
func NewTargetUpdate(update float64) (TargetUpdate, error) {
	if update < 0 {
		err := fmt.Errorf("newtargetupdate: update must be non-negative "+
			"\n\thave(%v)", update)
		return TargetUpdate{}, err
	}

	if update >= 1.0 {
		return TargetUpdate{period: int(update)}, nil
	}
	return TargetUpdate{tau: update, soft: true}, nil
}

// Soft returns whether the target network tracks its live counterpart
// with soft updates
func (t TargetUpdate) Soft() bool {
	return t.soft
}

// HardAt returns whether a hard target network overwrite is due at the
// argument training step. Always false in soft mode.
func (t TargetUpdate) HardAt(step int) bool {
	return !t.soft && step%t.period == 0
}

// Sync propagates the live network's weights to the target network.
// In soft mode the target is blended toward the live weights on every
// call. In hard mode the target is overwritten only when hard is true
// and is left frozen otherwise.
func (t TargetUpdate) Sync(target, live network.NeuralNet, hard bool) error {
	if t.soft {
		return target.Polyak(live, t.tau)
	}
	if hard {
		return target.Set(live)
	}
	return nil
}
