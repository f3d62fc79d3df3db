package ddpg

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/gradfield/godeep/network"
	"github.com/gradfield/godeep/summary"
	"github.com/gradfield/godeep/utils/op"
	"github.com/gradfield/godeep/utils/tensorutils"
)

// criticFit adds the critic's training loss to the critic's graph: the
// mean Huber loss between the critic's predictions and a target input
// node. The target node and the value of the loss, populated on each
// graph run, are returned.
func criticFit(critic network.NeuralNet, deltaClip float64) (*G.Node,
	*G.Node, *G.Value, error) {
	targets := G.NewMatrix(
		critic.Graph(),
		tensor.Float64,
		G.WithShape(critic.BatchSize(), 1),
		G.WithName("criticTargets"),
		G.WithInit(G.Zeroes()),
	)

	losses, err := op.Huber(critic.Prediction(), targets, deltaClip)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("criticfit: could not compute "+
			"Huber loss: %v", err)
	}
	loss := G.Must(G.Mean(losses))

	lossVal := new(G.Value)
	G.Read(loss, lossVal)

	return loss, targets, lossVal, nil
}

// tdTargets computes the temporal difference regression targets for
// the critic:
//
//	y = reward + γ * (1 - terminal) * targetQ
//
// The bootstrapped value of a terminal next state is zeroed since no
// further reward follows it.
func tdTargets(rewards, terminals, targetQ []float64,
	gamma float64) []float64 {
	targets := make([]float64, len(rewards))
	for i := range targets {
		targets[i] = rewards[i] + gamma*(1-terminals[i])*targetQ[i]
	}
	return targets
}

// fitCritic fits the live critic on a sampled batch of transitions.
// The regression targets are bootstrapped from the target networks:
// the target actor predicts the next actions and the target critic
// values them. A diagnostic snapshot is captured before the first
// gradient step.
func (d *DDPG) fitCritic(state, action, reward, nextState,
	terminal []float64) error {
	// Predict the next actions π'(s') with the target actor
	if err := d.targetActor.SetInput(nextState); err != nil {
		panic(fmt.Sprintf("fitcritic: could not set target actor "+
			"input: %v", err))
	}
	if err := d.targetActorVM.RunAll(); err != nil {
		panic(fmt.Sprintf("fitcritic: could not run target actor: %v", err))
	}
	nextAction := copyValue(d.targetActor.Output())
	d.targetActorVM.Reset()
	if len(nextAction) != d.batchSize*d.actionDims {
		panic(fmt.Sprintf("fitcritic: invalid target actor output "+
			"\n\twant(%v) \n\thave(%v)", d.batchSize*d.actionDims,
			len(nextAction)))
	}

	// Value the next actions Q'(s', π'(s')) with the target critic
	if err := d.targetCritic.SetInput(nextState, nextAction); err != nil {
		panic(fmt.Sprintf("fitcritic: could not set target critic "+
			"input: %v", err))
	}
	if err := d.targetCriticVM.RunAll(); err != nil {
		panic(fmt.Sprintf("fitcritic: could not run target critic: %v", err))
	}
	targetQ := copyValue(d.targetCritic.Output())
	d.targetCriticVM.Reset()
	if len(targetQ) != d.batchSize {
		panic(fmt.Sprintf("fitcritic: invalid target critic output "+
			"\n\twant(%v) \n\thave(%v)", d.batchSize, len(targetQ)))
	}

	targets := tdTargets(reward, terminal, targetQ, d.gamma)
	targetTensor := tensor.New(
		tensor.WithBacking(targets),
		tensor.WithShape(d.batchSize, 1),
	)
	if err := G.Let(d.criticTargets, targetTensor); err != nil {
		return fmt.Errorf("fitcritic: could not set regression "+
			"targets: %v", err)
	}

	if err := d.critic.SetInput(state, action); err != nil {
		panic(fmt.Sprintf("fitcritic: could not set critic input: %v", err))
	}

	for i := 0; i < d.criticIterations; i++ {
		if err := d.criticVM.RunAll(); err != nil {
			return fmt.Errorf("fitcritic: could not run critic: %v", err)
		}

		if i == 0 {
			loss := (*d.criticLossVal).Data().(float64)
			d.summaries.Write(netSnapshot(summary.Critic, d.trainingStep,
				loss, d.critic, true))
			d.summaries.Write(netSnapshot(summary.TargetCritic,
				d.trainingStep, 0, d.targetCritic, false))
		}

		if err := d.criticSolver.Step(d.critic.Model()); err != nil {
			return fmt.Errorf("fitcritic: could not step critic "+
				"solver: %v", err)
		}
		d.criticVM.Reset()
	}

	return nil
}

// netSnapshot captures the diagnostic metrics of a network:
// per-parameter and aggregate weight norms, and for differentiated
// networks the loss and gradient norms as well. Must be called after
// the network's graph has been run and before the solver steps, so
// that the captured gradients are those of the current weights.
func netSnapshot(role summary.Role, step int, loss float64,
	net network.NeuralNet, gradients bool) summary.Snapshot {
	snapshot := summary.Snapshot{
		Role: role,
		Step: step,
		Loss: loss,
	}

	for _, node := range net.Learnables() {
		param := summary.ParamNorm{
			Name:       node.Name(),
			WeightNorm: tensorutils.L2Norm(node.Value()),
		}

		if gradients {
			grad, err := node.Grad()
			if err != nil {
				panic(fmt.Sprintf("netsnapshot: no gradient for %v: %v",
					node.Name(), err))
			}
			param.GradientNorm = tensorutils.L2Norm(grad)
		}

		snapshot.WeightNorm += param.WeightNorm
		snapshot.GradientNorm += param.GradientNorm
		snapshot.Params = append(snapshot.Params, param)
	}

	return snapshot
}

// copyValue copies the backing data of a graph value, which may be
// overwritten by later graph runs
func copyValue(value G.Value) []float64 {
	data := value.Data().([]float64)
	out := make([]float64, len(data))
	copy(out, data)
	return out
}
