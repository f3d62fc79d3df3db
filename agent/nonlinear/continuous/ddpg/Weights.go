package ddpg

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorgonia.org/tensor"

	"github.com/gradfield/godeep/network"
)

// SaveWeights saves the live actor and critic weights to two files
// derived from path by suffixing the role before the file extension:
// weights.bin becomes weights_actor.bin and weights_critic.bin.
func (d *DDPG) SaveWeights(path string) error {
	actorPath, criticPath := weightPaths(path)

	if err := saveNetWeights(actorPath, d.actor); err != nil {
		return fmt.Errorf("saveweights: could not save actor: %v", err)
	}
	if err := saveNetWeights(criticPath, d.critic); err != nil {
		return fmt.Errorf("saveweights: could not save critic: %v", err)
	}
	return nil
}

// LoadWeights loads actor and critic weights previously saved with
// SaveWeights from the two files derived from path. The target
// networks are hard synchronized to the freshly loaded live networks.
func (d *DDPG) LoadWeights(path string) error {
	actorPath, criticPath := weightPaths(path)

	actorWeights, err := loadNetWeights(actorPath)
	if err != nil {
		return fmt.Errorf("loadweights: could not load actor: %v", err)
	}
	criticWeights, err := loadNetWeights(criticPath)
	if err != nil {
		return fmt.Errorf("loadweights: could not load critic: %v", err)
	}

	actorNets := []network.NeuralNet{d.actor, d.targetActor,
		d.behaviourActor}
	for _, net := range actorNets {
		if err := setWeights(net, actorWeights); err != nil {
			return fmt.Errorf("loadweights: could not set actor "+
				"weights: %v", err)
		}
	}

	criticNets := []network.NeuralNet{d.critic, d.targetCritic,
		d.policyCritic}
	for _, net := range criticNets {
		if err := setWeights(net, criticWeights); err != nil {
			return fmt.Errorf("loadweights: could not set critic "+
				"weights: %v", err)
		}
	}

	return nil
}

// weightPaths derives the per-role weight file paths from a base path
func weightPaths(path string) (string, string) {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	return base + "_actor" + ext, base + "_critic" + ext
}

// saveNetWeights gob encodes a network's weight tensors to a file
func saveNetWeights(path string, net network.NeuralNet) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("savenetweights: could not create %v: %v", path,
			err)
	}
	defer file.Close()

	learnables := net.Learnables()
	enc := gob.NewEncoder(file)
	if err := enc.Encode(len(learnables)); err != nil {
		return fmt.Errorf("savenetweights: could not encode number of "+
			"weight tensors: %v", err)
	}

	for _, node := range learnables {
		weights := node.Value().(*tensor.Dense)
		if err := enc.Encode(weights); err != nil {
			return fmt.Errorf("savenetweights: could not encode %v: %v",
				node.Name(), err)
		}
	}
	return nil
}

// loadNetWeights decodes weight tensors previously encoded by
// saveNetWeights
func loadNetWeights(path string) ([]*tensor.Dense, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loadnetweights: could not open %v: %v",
			path, err)
	}
	defer file.Close()

	dec := gob.NewDecoder(file)
	var numTensors int
	if err := dec.Decode(&numTensors); err != nil {
		return nil, fmt.Errorf("loadnetweights: could not decode number "+
			"of weight tensors: %v", err)
	}

	weights := make([]*tensor.Dense, numTensors)
	for i := range weights {
		weights[i] = &tensor.Dense{}
		if err := dec.Decode(weights[i]); err != nil {
			return nil, fmt.Errorf("loadnetweights: could not decode "+
				"weight tensor %v: %v", i, err)
		}
	}
	return weights, nil
}
