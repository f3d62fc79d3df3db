package noise

import (
	"math"
	"testing"
)

func TestGaussianDims(t *testing.T) {
	process := NewGaussian(3, 0.5, 14)

	sample := process.Sample()
	if len(sample) != 3 {
		t.Errorf("incorrect sample dimensions \n\twant(%v) \n\thave(%v)",
			3, len(sample))
	}
}

func TestGaussianZeroStdDev(t *testing.T) {
	process := NewGaussian(2, 0.0, 14)

	for _, value := range process.Sample() {
		if value != 0.0 {
			t.Errorf("zero standard deviation should produce zero noise "+
				"\n\thave(%v)", value)
		}
	}
}

func TestOrnsteinUhlenbeckReset(t *testing.T) {
	mu := 0.25
	process := NewOrnsteinUhlenbeck(2, mu, 0.15, 0.2, 0.1, 14)

	// Drift the process state away from its mean, then reset it
	for i := 0; i < 10; i++ {
		process.Sample()
	}
	process.Reset()

	for i, state := range process.state {
		if state != mu {
			t.Errorf("state %d not reset to mean \n\twant(%v) \n\thave(%v)",
				i, mu, state)
		}
	}
}

func TestOrnsteinUhlenbeckStartsAtMean(t *testing.T) {
	// A fresh process with zero diffusion should already sit at its
	// mean, so the mean-reversion term contributes nothing and every
	// sample equals the mean exactly
	mu := 0.5
	process := NewOrnsteinUhlenbeck(2, mu, 0.15, 0.0, 0.1, 14)

	for i, value := range process.Sample() {
		if value != mu {
			t.Errorf("fresh process state %d not at mean \n\twant(%v) "+
				"\n\thave(%v)", i, mu, value)
		}
	}
}

func TestOrnsteinUhlenbeckCorrelation(t *testing.T) {
	// With zero diffusion the process is deterministic and decays
	// toward its mean from a perturbed state
	theta, dt := 0.5, 0.1
	process := NewOrnsteinUhlenbeck(1, 1.0, theta, 0.0, dt, 14)
	process.state[0] = 0.0

	previous := 0.0
	for i := 0; i < 5; i++ {
		sample := process.Sample()
		expected := previous + theta*(1.0-previous)*dt
		if math.Abs(sample[0]-expected) > 1e-12 {
			t.Fatalf("incorrect process state at step %d \n\twant(%v) "+
				"\n\thave(%v)", i, expected, sample[0])
		}
		previous = sample[0]
	}
}
