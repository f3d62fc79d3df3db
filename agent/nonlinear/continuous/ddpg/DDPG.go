// Package ddpg implements the Deep Deterministic Policy Gradient
// algorithm:
//
//	https://arxiv.org/abs/1509.02971
//
// A deterministic actor network is trained to maximize the value
// predicted by a critic network, while the critic is regressed toward
// bootstrapped temporal difference targets computed from lagged target
// copies of both networks. Exploration is driven by an additive noise
// process on the actor's actions. For bounded action spaces, the
// policy gradient may be scaled down near the action bounds (gradient
// inversion):
//
//	https://arxiv.org/abs/1511.04143
package ddpg

import (
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/gradfield/godeep/agent"
	"github.com/gradfield/godeep/environment"
	"github.com/gradfield/godeep/expreplay"
	"github.com/gradfield/godeep/network"
	"github.com/gradfield/godeep/noise"
	"github.com/gradfield/godeep/summary"
	ts "github.com/gradfield/godeep/timestep"
	"github.com/gradfield/godeep/utils/floatutils"
)

// DDPG implements the Deep Deterministic Policy Gradient algorithm.
// The agent owns four networks: a live actor and critic whose weights
// are learned, and a lagged target copy of each used to compute stable
// critic regression targets. A fifth, batch-1 copy of the actor
// selects single actions and is kept in step with the live actor after
// every actor fit.
type DDPG struct {
	// Action selection
	behaviourActor   network.NeuralNet
	behaviourActorVM G.VM

	// Live actor together with a copy of the critic, composed on a
	// single graph so that the policy objective
	// mean(critic(state, actor(state))) can be differentiated with
	// respect to the actor weights. The critic copy's weights are
	// overwritten with the live critic weights before every actor fit
	// and are never differentiated.
	actor        network.NeuralNet
	policyCritic network.NeuralNet
	actorVM      G.VM
	actorSolver  G.Solver
	actorLossVal *G.Value

	// Live critic, fit to the TD regression targets
	critic        network.NeuralNet
	criticTargets *G.Node
	criticVM      G.VM
	criticSolver  G.Solver
	criticLossVal *G.Value

	// Lagged target networks
	targetActor    network.NeuralNet
	targetActorVM  G.VM
	targetCritic   network.NeuralNet
	targetCriticVM G.VM

	targetActorUpdate  TargetUpdate
	targetCriticUpdate TargetUpdate

	replay expreplay.ExperienceReplayer
	noise  noise.Process

	// Environmental action bounds for clipping selected actions
	actionDims int
	lowerBound []float64
	upperBound []float64

	gamma            float64
	batchSize        int
	memoryInterval   int
	trainInterval    int
	warmupActor      int
	warmupCritic     int
	actorIterations  int
	criticIterations int

	invertGradients bool
	inverterMin     float64
	inverterMax     float64

	resetOnCollapse     bool
	actorResetThreshold float64
	lastActorGradNorm   float64
	checkpoints         []checkpoint

	summaries summary.Sink

	// Keep track of previous states and actions to add to replay buffer
	prevStep   ts.TimeStep
	prevAction mat.Vector
	nextStep   ts.TimeStep

	trainingStep int
	episode      int
	eval         bool
}

// checkpoint is a snapshot of the live actor and critic weights,
// stored for gradient-collapse rollback
type checkpoint struct {
	actor  []*tensor.Dense
	critic []*tensor.Dense
}

// New creates and returns a new DDPG agent
func New(env environment.Environment, config Config,
	seed int64) (*DDPG, error) {
	// Ensure environment has continuous actions
	if env.ActionSpec().Cardinality != environment.Continuous {
		return &DDPG{}, fmt.Errorf("ddpg: cannot use non-continuous " +
			"actions")
	}

	// Ensure the configuration is valid
	if err := config.Validate(); err != nil {
		return &DDPG{}, err
	}
	if config.Actor == nil || config.Critic == nil {
		return &DDPG{}, fmt.Errorf("new: no actor or critic network, " +
			"use Config.CreateAgent to construct the networks")
	}

	batchSize := config.BatchSize()
	obsDims := env.ObservationSpec().Shape.Len()
	actionDims := env.ActionSpec().Shape.Len()

	// Ensure the networks fit the environment
	if config.Actor.Outputs() != actionDims {
		return &DDPG{}, fmt.Errorf("new: invalid actor output dimensions "+
			"\n\twant(%v) \n\thave(%v)", actionDims, config.Actor.Outputs())
	}
	if config.Actor.Features() != obsDims {
		return &DDPG{}, fmt.Errorf("new: invalid actor input dimensions "+
			"\n\twant(%v) \n\thave(%v)", obsDims, config.Actor.Features())
	}
	if config.Critic.Features() != obsDims+actionDims {
		return &DDPG{}, fmt.Errorf("new: invalid critic input dimensions "+
			"\n\twant(%v) \n\thave(%v)", obsDims+actionDims,
			config.Critic.Features())
	}

	// Behaviour network for selecting single actions
	behaviourActor, err := config.Actor.CloneWithBatch(1)
	if err != nil {
		return &DDPG{}, fmt.Errorf("new: could not create behaviour "+
			"actor: %v", err)
	}
	behaviourActorVM := G.NewTapeMachine(behaviourActor.Graph())

	// Live actor and the embedded critic copy share one graph: the
	// critic copy consumes the actor's prediction as its action input,
	// so gradients of the policy objective flow back into the actor
	// weights
	gActor := G.NewGraph()
	states := G.NewMatrix(
		gActor,
		tensor.Float64,
		G.WithShape(batchSize, obsDims),
		G.WithName("ddpgStates"),
		G.WithInit(G.Zeroes()),
	)
	actor, err := config.Actor.CloneWithInputsTo([]*G.Node{states}, gActor)
	if err != nil {
		return &DDPG{}, fmt.Errorf("new: could not create actor: %v", err)
	}
	policyCritic, err := config.Critic.CloneWithInputsTo(
		[]*G.Node{states, actor.Prediction()},
		gActor,
	)
	if err != nil {
		return &DDPG{}, fmt.Errorf("new: could not create policy "+
			"critic: %v", err)
	}

	// The actor maximizes the mean predicted action value, so its loss
	// is the negated policy objective
	actorLoss := G.Must(G.Neg(G.Must(G.Mean(policyCritic.Prediction()))))
	actorLossVal := new(G.Value)
	G.Read(actorLoss, actorLossVal)

	// Compute gradients with respect to the actor weights only. The
	// embedded critic copy's weights are treated as constants.
	if _, err := G.Grad(actorLoss, actor.Learnables()...); err != nil {
		panic(fmt.Sprintf("new: could not compute actor gradient: %v", err))
	}
	actorVM := G.NewTapeMachine(
		gActor,
		G.BindDualValues(actor.Learnables()...),
	)

	// Live critic, regressed toward the TD targets with a Huber loss
	criticClone, err := config.Critic.CloneWithBatch(batchSize)
	if err != nil {
		return &DDPG{}, fmt.Errorf("new: could not create critic: %v", err)
	}
	critic := criticClone
	criticLoss, criticTargets, criticLossVal, err := criticFit(critic,
		config.DeltaClip)
	if err != nil {
		return &DDPG{}, fmt.Errorf("new: could not create critic loss: %v",
			err)
	}
	if _, err := G.Grad(criticLoss, critic.Learnables()...); err != nil {
		panic(fmt.Sprintf("new: could not compute critic gradient: %v", err))
	}
	criticVM := G.NewTapeMachine(
		critic.Graph(),
		G.BindDualValues(critic.Learnables()...),
	)

	// Lagged target networks start as exact copies of the live
	// networks
	targetActor, err := actor.Clone()
	if err != nil {
		return &DDPG{}, fmt.Errorf("new: could not create target "+
			"actor: %v", err)
	}
	targetActorVM := G.NewTapeMachine(targetActor.Graph())
	targetCritic, err := critic.Clone()
	if err != nil {
		return &DDPG{}, fmt.Errorf("new: could not create target "+
			"critic: %v", err)
	}
	targetCriticVM := G.NewTapeMachine(targetCritic.Graph())

	targetActorUpdate, err := NewTargetUpdate(config.TargetActorUpdate)
	if err != nil {
		return &DDPG{}, err
	}
	targetCriticUpdate, err := NewTargetUpdate(config.TargetCriticUpdate)
	if err != nil {
		return &DDPG{}, err
	}

	replay, err := config.ExpReplay.Create(obsDims, actionDims, seed)
	if err != nil {
		return &DDPG{}, fmt.Errorf("new: could not create experience "+
			"replay buffer: %v", err)
	}

	actorIterations := config.ActorIterations
	if actorIterations == 0 {
		actorIterations = 1
	}
	criticIterations := config.CriticIterations
	if criticIterations == 0 {
		criticIterations = 1
	}

	summaries := config.Summaries
	if summaries == nil {
		summaries = summary.Discard{}
	}

	lowerBound := vecData(env.ActionSpec().LowerBound)
	upperBound := vecData(env.ActionSpec().UpperBound)

	d := &DDPG{
		behaviourActor:   behaviourActor,
		behaviourActorVM: behaviourActorVM,

		actor:        actor,
		policyCritic: policyCritic,
		actorVM:      actorVM,
		actorSolver:  config.ActorSolver,
		actorLossVal: actorLossVal,

		critic:        critic,
		criticTargets: criticTargets,
		criticVM:      criticVM,
		criticSolver:  config.CriticSolver,
		criticLossVal: criticLossVal,

		targetActor:    targetActor,
		targetActorVM:  targetActorVM,
		targetCritic:   targetCritic,
		targetCriticVM: targetCriticVM,

		targetActorUpdate:  targetActorUpdate,
		targetCriticUpdate: targetCriticUpdate,

		replay: replay,
		noise:  config.Noise,

		actionDims: actionDims,
		lowerBound: lowerBound,
		upperBound: upperBound,

		gamma:            config.Gamma,
		batchSize:        batchSize,
		memoryInterval:   config.MemoryInterval,
		trainInterval:    config.TrainInterval,
		warmupActor:      config.WarmupActor,
		warmupCritic:     config.WarmupCritic,
		actorIterations:  actorIterations,
		criticIterations: criticIterations,

		invertGradients: config.InvertGradients,
		inverterMin:     config.GradientInverterMin,
		inverterMax:     config.GradientInverterMax,

		resetOnCollapse:     config.ResetOnCollapse,
		actorResetThreshold: config.ActorResetThreshold,

		summaries: summaries,

		prevStep: ts.TimeStep{},
		nextStep: ts.TimeStep{},
	}

	// First checkpoint: the starting weights are the rollback point
	// for early gradient collapse
	d.Checkpoint()

	// Record the starting weight norms of every network so that the
	// diagnostic stream covers the agent from before its first update
	d.summaries.Write(netSnapshot(summary.Actor, 0, 0, d.actor, false))
	d.summaries.Write(netSnapshot(summary.Critic, 0, 0, d.critic, false))
	d.summaries.Write(netSnapshot(summary.TargetActor, 0, 0, d.targetActor,
		false))
	d.summaries.Write(netSnapshot(summary.TargetCritic, 0, 0, d.targetCritic,
		false))

	return d, nil
}

// ObserveFirst observes and records the first episodic timestep
func (d *DDPG) ObserveFirst(t ts.TimeStep) {
	if !t.First() {
		fmt.Fprintf(os.Stderr, "Warning: ObserveFirst() should only be "+
			"called on the first timestep (current timestep = %d)", t.Number)
	}
	d.prevStep = ts.TimeStep{}
	d.nextStep = t
}

// Observe observes and records any timestep other than the first
// timestep
func (d *DDPG) Observe(action mat.Vector, nextStep ts.TimeStep) {
	if action.Len() != d.actionDims {
		fmt.Fprintf(os.Stderr, "Warning: invalid action dimensions "+
			"(action dim = %d)", action.Len())
	}

	d.prevStep = d.nextStep
	d.prevAction = action
	d.nextStep = nextStep
}

// EndEpisode performs cleanup at the end of an episode
func (d *DDPG) EndEpisode() {
	d.episode++
	if d.noise != nil {
		d.noise.Reset()
	}
}

// Step updates the weights of the agent's networks using the Config's
// warm-up periods
func (d *DDPG) Step() error {
	return d.Backward(d.warmupActor, d.warmupCritic)
}

// Backward performs a single training step. Every call counts one
// training step. The most recently observed transition is added to the
// replay buffer on steps divisible by the memory interval. On steps
// divisible by the train interval, the critic is fit once its warm-up
// period warmupCritic has passed and the actor once warmupActor has
// passed, after which the target networks are synchronized. Backward
// is a no-op in evaluation mode.
func (d *DDPG) Backward(warmupActor, warmupCritic int) error {
	if d.eval {
		return nil
	}

	if d.trainingStep%d.memoryInterval == 0 && !d.nextStep.First() {
		transition := ts.NewTransition(d.prevStep, d.prevAction, d.nextStep)
		if err := d.replay.Add(transition); err != nil {
			return fmt.Errorf("backward: could not add transition to "+
				"replay buffer: %v", err)
		}
	}

	if d.trainingStep%d.trainInterval == 0 {
		fitCritic := d.trainingStep > warmupCritic
		fitActor := d.trainingStep > warmupActor
		if err := d.fit(fitActor, fitCritic); err != nil {
			return fmt.Errorf("backward: %v", err)
		}
	}

	d.trainingStep++
	return nil
}

// BackwardOffline performs a single training step from the replay
// buffer without recording any new transition, for training from a
// pre-populated buffer. The caller decides which networks to fit; the
// warm-up periods do not apply. The train interval cadence still does.
func (d *DDPG) BackwardOffline(fitActor, fitCritic bool) error {
	if d.eval {
		return nil
	}

	if d.trainingStep%d.trainInterval == 0 {
		if err := d.fit(fitActor, fitCritic); err != nil {
			return fmt.Errorf("backwardoffline: %v", err)
		}
	}

	d.trainingStep++
	return nil
}

// fit samples a batch from the replay buffer, fits the requested
// networks on it, and synchronizes the target networks. Called only on
// training steps aligned with the train interval.
func (d *DDPG) fit(fitActor, fitCritic bool) error {
	if !fitActor && !fitCritic {
		return nil
	}

	state, action, reward, nextState, terminal, err := d.replay.Sample()
	if expreplay.IsEmptyBuffer(err) || expreplay.IsInsufficientSamples(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("fit: could not sample replay buffer: %v", err)
	}

	if fitCritic {
		err := d.fitCritic(state, action, reward, nextState, terminal)
		if err != nil {
			return fmt.Errorf("fit: %v", err)
		}
	}

	canResetActor := d.resetOnCollapse && d.nextStep.Last() &&
		d.episode%5 == 0
	if fitActor {
		if err := d.fitActor(state, canResetActor); err != nil {
			return fmt.Errorf("fit: %v", err)
		}
	}

	// Propagate the updated weights to the target networks. Soft
	// updates run on every fit; hard updates only on steps aligned
	// with their period.
	err = d.targetActorUpdate.Sync(d.targetActor, d.actor,
		d.targetActorUpdate.HardAt(d.trainingStep))
	if err != nil {
		return fmt.Errorf("fit: could not sync target actor: %v", err)
	}
	err = d.targetCriticUpdate.Sync(d.targetCritic, d.critic,
		d.targetCriticUpdate.HardAt(d.trainingStep))
	if err != nil {
		return fmt.Errorf("fit: could not sync target critic: %v", err)
	}

	return nil
}

// SelectAction runs the behaviour actor on the timestep's observation
// and returns the predicted action, perturbed by exploration noise
// when training, and clipped to the environmental action bounds
func (d *DDPG) SelectAction(t ts.TimeStep) *mat.VecDense {
	obs := vecData(t.Observation)
	if err := d.behaviourActor.SetInput(obs); err != nil {
		panic(fmt.Sprintf("selectaction: %v", err))
	}

	if err := d.behaviourActorVM.RunAll(); err != nil {
		panic(fmt.Sprintf("selectaction: could not run behaviour "+
			"actor: %v", err))
	}
	output := d.behaviourActor.Output().Data().([]float64)
	action := make([]float64, len(output))
	copy(action, output)
	d.behaviourActorVM.Reset()

	if len(action) != d.actionDims {
		panic(fmt.Sprintf("selectaction: invalid action dimensions "+
			"\n\twant(%v) \n\thave(%v)", d.actionDims, len(action)))
	}

	if !d.eval && d.noise != nil {
		sample := d.noise.Sample()
		if len(sample) != d.actionDims {
			panic(fmt.Sprintf("selectaction: invalid noise dimensions "+
				"\n\twant(%v) \n\thave(%v)", d.actionDims, len(sample)))
		}
		for i := range action {
			action[i] += sample[i]
		}
	}

	floatutils.ClipSlice(action, d.lowerBound, d.upperBound)

	return mat.NewVecDense(d.actionDims, action)
}

// Forward selects an action for the timestep's observation. Forward is
// a thin wrapper around SelectAction.
func (d *DDPG) Forward(t ts.TimeStep) *mat.VecDense {
	return d.SelectAction(t)
}

// Checkpoint appends a snapshot of the current live actor and critic
// weights to the agent's checkpoint log. Checkpoints are never removed
// and are indexed by insertion order.
func (d *DDPG) Checkpoint() {
	d.checkpoints = append(d.checkpoints, checkpoint{
		actor:  cloneWeights(d.actor),
		critic: cloneWeights(d.critic),
	})
}

// restoreCheckpoint overwrites the live, target, and behaviour weights
// of the requested networks with checkpoint id's weights, discarding
// all learning progress since the checkpoint was taken
func (d *DDPG) restoreCheckpoint(id int, actor, critic bool) error {
	if id < 0 || id >= len(d.checkpoints) {
		return fmt.Errorf("restorecheckpoint: no checkpoint %v "+
			"\n\thave(%v checkpoints)", id, len(d.checkpoints))
	}
	ckpt := d.checkpoints[id]

	if actor {
		fmt.Fprintf(os.Stderr, "Warning: restoring actor weights from "+
			"checkpoint %d\n", id)
		for _, net := range []network.NeuralNet{d.actor, d.targetActor,
			d.behaviourActor} {
			if err := setWeights(net, ckpt.actor); err != nil {
				return fmt.Errorf("restorecheckpoint: %v", err)
			}
		}
	}

	if critic {
		fmt.Fprintf(os.Stderr, "Warning: restoring critic weights from "+
			"checkpoint %d\n", id)
		for _, net := range []network.NeuralNet{d.critic, d.targetCritic,
			d.policyCritic} {
			if err := setWeights(net, ckpt.critic); err != nil {
				return fmt.Errorf("restorecheckpoint: %v", err)
			}
		}
	}

	return nil
}

// Eval sets the agent into evaluation mode
func (d *DDPG) Eval() {
	d.eval = true
}

// Train sets the agent into training mode
func (d *DDPG) Train() {
	d.eval = false
}

// IsEval returns whether the agent is in evaluation mode
func (d *DDPG) IsEval() bool {
	return d.eval
}

// TrainingStep returns the number of training steps taken
func (d *DDPG) TrainingStep() int {
	return d.trainingStep
}

// Episode returns the number of completed episodes
func (d *DDPG) Episode() int {
	return d.episode
}

// LoadMemory fills the replay buffer with externally generated
// transitions, for offline training with BackwardOffline
func (d *DDPG) LoadMemory(transitions []ts.Transition) error {
	for i, transition := range transitions {
		if err := d.replay.Add(transition); err != nil {
			return fmt.Errorf("loadmemory: could not add transition %v: %v",
				i, err)
		}
	}
	return nil
}

// cloneWeights copies the weight tensors of a network
func cloneWeights(net network.NeuralNet) []*tensor.Dense {
	weights := make([]*tensor.Dense, 0, len(net.Learnables()))
	for _, node := range net.Learnables() {
		value := node.Value().(*tensor.Dense)
		weights = append(weights, value.Clone().(*tensor.Dense))
	}
	return weights
}

// setWeights overwrites a network's weight tensors
func setWeights(net network.NeuralNet, weights []*tensor.Dense) error {
	nodes := net.Learnables()
	if len(nodes) != len(weights) {
		return fmt.Errorf("setweights: invalid number of weight tensors"+
			"\n\twant(%v)\n\thave(%v)", len(nodes), len(weights))
	}

	for i, node := range nodes {
		err := G.Let(node, weights[i].Clone().(*tensor.Dense))
		if err != nil {
			return fmt.Errorf("setweights: could not set %v: %v",
				node.Name(), err)
		}
	}
	return nil
}

// vecData returns the backing data of a vector
func vecData(v mat.Vector) []float64 {
	if dense, ok := v.(*mat.VecDense); ok && dense.RawVector().Inc == 1 {
		data := make([]float64, dense.Len())
		copy(data, dense.RawVector().Data)
		return data
	}

	data := make([]float64, v.Len())
	for i := range data {
		data[i] = v.AtVec(i)
	}
	return data
}

// Compile-time interface checks
var _ agent.Agent = (*DDPG)(nil)
var _ agent.Config = Config{}
