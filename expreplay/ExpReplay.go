// Package expreplay implements experience replay buffers
package expreplay

import (
	"fmt"
	"math/rand"

	"github.com/gradfield/godeep/timestep"
)

// Config implements a specific configuration of an ExperienceReplayer
type Config struct {
	MinReplayCapacity int // Samples needed in the buffer before sampling
	MaxReplayCapacity int
	BatchSize         int // Samples per sampled batch
}

// Create creates and returns the ExperienceReplayer with the specified
// Config. The featureSize and actionSize parameters define the sizes
// of the state and action vectors stored in the buffer.
func (c Config) Create(featureSize, actionSize int,
	seed int64) (ExperienceReplayer, error) {
	return New(c.MinReplayCapacity, c.MaxReplayCapacity, c.BatchSize,
		featureSize, actionSize, seed)
}

// ExperienceReplayer implements an experience replay buffer of
// environmental transitions
type ExperienceReplayer interface {
	// Add adds a transition to the buffer, removing the oldest
	// transition first if the buffer is full
	Add(t timestep.Transition) error

	// Sample samples a batch of transitions from the buffer uniformly
	// randomly with replacement, returning the batch as parallel
	// row major slices (state, action, reward, nextState, terminal).
	// Terminal flags are stored as 1.0 (terminal) or 0.0.
	Sample() ([]float64, []float64, []float64, []float64, []float64, error)

	// Capacity returns the current number of samples in the buffer
	Capacity() int

	// MaxCapacity returns the maximum allowable samples in the buffer
	MaxCapacity() int

	// MinCapacity returns the number of samples required to be in
	// the buffer before the buffer can be sampled
	MinCapacity() int

	// BatchSize returns the number of samples returned by Sample()
	BatchSize() int
}

// cache implements a concrete ExperienceReplayer. Transitions are
// removed first-in-first-out once the buffer is full and are sampled
// uniformly randomly with replacement.
type cache struct {
	stateCache     []float64
	actionCache    []float64
	rewardCache    []float64
	nextStateCache []float64
	terminalCache  []float64

	// next is the index at which the next transition is stored. Since
	// removal is FiFo, the buffer is a ring and next wraps around once
	// size == maxCapacity.
	next int
	size int

	rng *rand.Rand

	minCapacity int
	maxCapacity int
	batchSize   int
	featureSize int
	actionSize  int
}

// New creates and returns a new ExperienceReplayer. The featureSize
// and actionSize parameters define the size of the state and action
// vectors. Pixel observations should be flattened before adding to the
// buffer.
func New(minCapacity, maxCapacity, batchSize, featureSize, actionSize int,
	seed int64) (ExperienceReplayer, error) {
	if minCapacity <= 0 {
		return &cache{}, fmt.Errorf("new: minCapacity must be > 0")
	}
	if maxCapacity < 1 {
		return &cache{}, fmt.Errorf("new: maxCapacity must be >= 1")
	}
	if maxCapacity < batchSize {
		return &cache{}, fmt.Errorf("new: cannot have batch size(%v) > max "+
			"buffer capacity (%v)", batchSize, maxCapacity)
	}

	source := rand.NewSource(seed)

	return &cache{
		stateCache:     make([]float64, maxCapacity*featureSize),
		actionCache:    make([]float64, maxCapacity*actionSize),
		rewardCache:    make([]float64, maxCapacity),
		nextStateCache: make([]float64, maxCapacity*featureSize),
		terminalCache:  make([]float64, maxCapacity),

		rng: rand.New(source),

		minCapacity: minCapacity,
		maxCapacity: maxCapacity,
		batchSize:   batchSize,
		featureSize: featureSize,
		actionSize:  actionSize,
	}, nil
}

// Add adds a transition to the buffer, overwriting the oldest stored
// transition if the buffer is full
func (c *cache) Add(t timestep.Transition) error {
	if t.State.Len() != c.featureSize || t.NextState.Len() != c.featureSize {
		return &ExpReplayError{
			Op: "add",
			Err: fmt.Errorf("invalid state size \n\twant(%v) \n\thave(%v)",
				c.featureSize, t.State.Len()),
		}
	}
	if t.Action.Len() != c.actionSize {
		return &ExpReplayError{
			Op: "add",
			Err: fmt.Errorf("invalid action size \n\twant(%v) \n\thave(%v)",
				c.actionSize, t.Action.Len()),
		}
	}

	pos := c.next
	for i := 0; i < c.featureSize; i++ {
		c.stateCache[pos*c.featureSize+i] = t.State.AtVec(i)
		c.nextStateCache[pos*c.featureSize+i] = t.NextState.AtVec(i)
	}
	for i := 0; i < c.actionSize; i++ {
		c.actionCache[pos*c.actionSize+i] = t.Action.AtVec(i)
	}
	c.rewardCache[pos] = t.Reward
	if t.Terminal {
		c.terminalCache[pos] = 1.0
	} else {
		c.terminalCache[pos] = 0.0
	}

	c.next = (c.next + 1) % c.maxCapacity
	if c.size < c.maxCapacity {
		c.size++
	}
	return nil
}

// Sample samples and returns a batch of transitions from the buffer
func (c *cache) Sample() ([]float64, []float64, []float64, []float64,
	[]float64, error) {
	if c.size == 0 {
		return nil, nil, nil, nil, nil, &ExpReplayError{
			Op:  "sample",
			Err: errEmptyCache,
		}
	}
	if c.size < c.minCapacity {
		return nil, nil, nil, nil, nil, &ExpReplayError{
			Op:  "sample",
			Err: errInsufficientSamples,
		}
	}

	states := make([]float64, c.batchSize*c.featureSize)
	actions := make([]float64, c.batchSize*c.actionSize)
	rewards := make([]float64, c.batchSize)
	nextStates := make([]float64, c.batchSize*c.featureSize)
	terminals := make([]float64, c.batchSize)

	for i := 0; i < c.batchSize; i++ {
		index := c.rng.Intn(c.size)

		copy(states[i*c.featureSize:(i+1)*c.featureSize],
			c.stateCache[index*c.featureSize:(index+1)*c.featureSize])
		copy(nextStates[i*c.featureSize:(i+1)*c.featureSize],
			c.nextStateCache[index*c.featureSize:(index+1)*c.featureSize])
		copy(actions[i*c.actionSize:(i+1)*c.actionSize],
			c.actionCache[index*c.actionSize:(index+1)*c.actionSize])
		rewards[i] = c.rewardCache[index]
		terminals[i] = c.terminalCache[index]
	}

	return states, actions, rewards, nextStates, terminals, nil
}

// Capacity returns the current number of samples in the buffer
func (c *cache) Capacity() int {
	return c.size
}

// MaxCapacity returns the maximum allowable samples in the buffer
func (c *cache) MaxCapacity() int {
	return c.maxCapacity
}

// MinCapacity returns the number of samples required to be in the
// buffer before the buffer can be sampled
func (c *cache) MinCapacity() int {
	return c.minCapacity
}

// BatchSize returns the number of samples returned by Sample()
func (c *cache) BatchSize() int {
	return c.batchSize
}
