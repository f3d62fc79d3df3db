package main

import (
	"fmt"
	"os"

	"github.com/gradfield/godeep/agent/nonlinear/continuous/ddpg"
	"github.com/gradfield/godeep/environment/classiccontrol/pointmass"
	"github.com/gradfield/godeep/experiment"
	"github.com/gradfield/godeep/experiment/checkpointer"
	"github.com/gradfield/godeep/experiment/tracker"
	"github.com/gradfield/godeep/expreplay"
	"github.com/gradfield/godeep/initwfn"
	"github.com/gradfield/godeep/network"
	"github.com/gradfield/godeep/noise"
	"github.com/gradfield/godeep/solver"
	"github.com/gradfield/godeep/utils/progressbar"
)

func main() {
	var seed uint64 = 192382

	// Create the environment
	starter := pointmass.NewDefaultStarter(1, seed)
	env, _, err := pointmass.New(1, starter, 0.99)
	if err != nil {
		panic(err)
	}

	// Create the solvers and weight initializer
	actorSolver, err := solver.NewDefaultAdam(0.0001, 32)
	if err != nil {
		panic(err)
	}
	criticSolver, err := solver.NewDefaultAdam(0.001, 32)
	if err != nil {
		panic(err)
	}
	initWFn, err := initwfn.NewGlorotU(1.0)
	if err != nil {
		panic(err)
	}

	// Create the learning algorithm
	conf := ddpg.Config{
		ActorLayers:      []int{64, 64},
		ActorBiases:      []bool{true, true},
		ActorActivations: []*network.Activation{
			network.ReLU(),
			network.ReLU(),
		},
		ActorSolver: actorSolver,

		CriticLayers:      []int{64, 64},
		CriticBiases:      []bool{true, true},
		CriticActivations: []*network.Activation{
			network.ReLU(),
			network.ReLU(),
		},
		CriticSolver: criticSolver,

		InitWFn: initWFn,

		ExpReplay: expreplay.Config{
			MinReplayCapacity: 100,
			MaxReplayCapacity: 100000,
			BatchSize:         32,
		},

		Gamma:     0.99,
		DeltaClip: 1.0,

		MemoryInterval: 1,
		TrainInterval:  1,
		WarmupActor:    100,
		WarmupCritic:   100,

		TargetActorUpdate:  0.01,
		TargetCriticUpdate: 0.01,

		InvertGradients:     true,
		GradientInverterMin: pointmass.MinContinuousAction,
		GradientInverterMax: pointmass.MaxContinuousAction,

		ResetOnCollapse:     true,
		ActorResetThreshold: 1e-8,

		Noise: noise.NewOrnsteinUhlenbeck(1, 0, 0.15, 0.2, 0.1, seed),
	}

	a, err := conf.CreateAgent(env, seed)
	if err != nil {
		panic(err)
	}

	// Track episodic returns and periodically save the network weights
	trackers := []tracker.Tracker{tracker.NewReturn("returns.bin")}
	checkpointers := []checkpointer.Checkpointer{
		checkpointer.NewNStep(
			100,
			a.(*ddpg.DDPG),
			checkpointer.FilenameEnumerator(0, "weights", ".bin"),
		),
	}

	// Run the experiment episode by episode, drawing a progress bar
	// between episodes, then save the tracked data
	numSteps := 20_000
	exp := experiment.NewOnline(env, a, uint(numSteps), trackers,
		checkpointers)

	bar := progressbar.New(os.Stderr, 40, numSteps)
	bar.Display()
	for ended := false; !ended; {
		var err error
		if ended, err = exp.RunEpisode(); err != nil {
			panic(err)
		}
		bar.Set(int(exp.Steps()))
		bar.Display()
	}
	bar.Close()
	exp.Save()

	for i, episodeReturn := range tracker.LoadData("returns.bin") {
		fmt.Printf("Episode %d return: %v\n", i, episodeReturn)
	}
}
