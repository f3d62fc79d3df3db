package ddpg

import (
	"fmt"

	"github.com/gradfield/godeep/summary"
	"github.com/gradfield/godeep/utils/tensorutils"
)

// fitActor fits the live actor on a sampled batch of states, adjusting
// its weights to maximize the mean value the critic assigns to the
// actor's actions. The critic copy embedded in the actor's graph is
// refreshed from the live critic first and held fixed during the fit.
//
// When the most recent actor gradient norm has collapsed to the reset
// threshold or below and canReset is true, the actor is restored from
// the earliest checkpoint after fitting.
func (d *DDPG) fitActor(state []float64, canReset bool) error {
	if err := d.policyCritic.Set(d.critic); err != nil {
		return fmt.Errorf("fitactor: could not refresh critic copy: %v", err)
	}

	if err := d.actor.SetInput(state); err != nil {
		panic(fmt.Sprintf("fitactor: could not set actor input: %v", err))
	}

	for i := 0; i < d.actorIterations; i++ {
		if err := d.actorVM.RunAll(); err != nil {
			return fmt.Errorf("fitactor: could not run actor: %v", err)
		}

		if d.invertGradients {
			if err := d.invertActorGradients(); err != nil {
				return fmt.Errorf("fitactor: %v", err)
			}
		}

		if i == 0 {
			loss := (*d.actorLossVal).Data().(float64)
			snapshot := netSnapshot(summary.Actor, d.trainingStep, loss,
				d.actor, true)
			d.lastActorGradNorm = snapshot.GradientNorm
			d.summaries.Write(snapshot)
			d.summaries.Write(netSnapshot(summary.TargetActor,
				d.trainingStep, 0, d.targetActor, false))
		}

		if err := d.actorSolver.Step(d.actor.Model()); err != nil {
			return fmt.Errorf("fitactor: could not step actor solver: %v",
				err)
		}
		d.actorVM.Reset()
	}

	// Keep the action selection network in step with the learned
	// weights
	if err := d.behaviourActor.Set(d.actor); err != nil {
		return fmt.Errorf("fitactor: could not update behaviour actor: %v",
			err)
	}

	if canReset && d.lastActorGradNorm <= d.actorResetThreshold {
		if err := d.restoreCheckpoint(0, true, false); err != nil {
			return fmt.Errorf("fitactor: %v", err)
		}
	}

	return nil
}

// invertActorGradients scales down the actor's gradients for weights
// whose values approach the gradient inversion bounds, preventing
// updates that would saturate the policy
func (d *DDPG) invertActorGradients() error {
	for _, node := range d.actor.Learnables() {
		grad, err := node.Grad()
		if err != nil {
			return fmt.Errorf("invertactorgradients: no gradient for "+
				"%v: %v", node.Name(), err)
		}

		err = tensorutils.InvertGradient(grad, node.Value(), d.inverterMin,
			d.inverterMax)
		if err != nil {
			return fmt.Errorf("invertactorgradients: could not invert "+
				"gradient of %v: %v", node.Name(), err)
		}
	}
	return nil
}
