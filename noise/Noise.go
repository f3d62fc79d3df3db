// Package noise implements exploration noise processes for
// continuous-action policies
package noise

import (
	"math"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/stat/distuv"
)

// Process is a source of exploration noise. A Process generates noise
// vectors matching the dimensionality of the environmental actions it
// was constructed for, which are added to the actions selected by a
// deterministic policy to drive exploration.
type Process interface {
	// Reset resets the internal state of the process between episodes
	Reset()

	// Sample returns the next noise vector of the process
	Sample() []float64
}

// Gaussian is a Process that produces temporally uncorrelated noise
// drawn from a normal distribution independently per action dimension.
type Gaussian struct {
	dims int
	dist distuv.Normal
}

// NewGaussian returns a new Gaussian noise process over dims action
// dimensions with the given standard deviation.
func NewGaussian(dims int, stdDev float64, seed uint64) *Gaussian {
	source := rand.NewSource(seed)
	dist := distuv.Normal{Mu: 0.0, Sigma: stdDev, Src: source}

	return &Gaussian{dims: dims, dist: dist}
}

// Reset implements the Process interface. Gaussian noise is stateless,
// so Reset is a no-op.
func (g *Gaussian) Reset() {}

// Sample returns the next noise vector of the process
func (g *Gaussian) Sample() []float64 {
	sample := make([]float64, g.dims)
	for i := range sample {
		sample[i] = g.dist.Rand()
	}
	return sample
}

// OrnsteinUhlenbeck is a Process that produces temporally correlated
// noise by integrating an Ornstein-Uhlenbeck process:
//
//	x ← x + θ(μ - x)Δt + σ√Δt · N(0, 1)
//
// independently per action dimension. Correlated noise suits physical
// control tasks, where successive exploration perturbations should not
// cancel each other out.
type OrnsteinUhlenbeck struct {
	mu    float64
	theta float64
	sigma float64
	dt    float64

	state []float64
	dist  distuv.Normal
}

// NewOrnsteinUhlenbeck returns a new Ornstein-Uhlenbeck noise process
// over dims action dimensions. The process reverts toward mu at rate
// theta with diffusion sigma, integrated at timescale dt.
func NewOrnsteinUhlenbeck(dims int, mu, theta, sigma, dt float64,
	seed uint64) *OrnsteinUhlenbeck {
	source := rand.NewSource(seed)
	dist := distuv.Normal{Mu: 0.0, Sigma: 1.0, Src: source}

	// A fresh process starts at its mean, as it would after Reset()
	state := make([]float64, dims)
	for i := range state {
		state[i] = mu
	}

	return &OrnsteinUhlenbeck{
		mu:    mu,
		theta: theta,
		sigma: sigma,
		dt:    dt,
		state: state,
		dist:  dist,
	}
}

// Reset resets the process state to its mean
func (o *OrnsteinUhlenbeck) Reset() {
	for i := range o.state {
		o.state[i] = o.mu
	}
}

// Sample advances the process by one timestep and returns the new
// process state
func (o *OrnsteinUhlenbeck) Sample() []float64 {
	sqrtDt := math.Sqrt(o.dt)

	sample := make([]float64, len(o.state))
	for i := range o.state {
		o.state[i] += o.theta*(o.mu-o.state[i])*o.dt +
			o.sigma*sqrtDt*o.dist.Rand()
		sample[i] = o.state[i]
	}
	return sample
}
