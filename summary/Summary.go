// Package summary implements diagnostic metric snapshots emitted by
// learning agents.
//
// Agents capture Snapshots of scalar diagnostics (losses, gradient and
// weight norms) before each gradient step and hand them to a Sink.
// Snapshots are keyed by the statically known Role of the network they
// describe rather than by free-form metric name strings, so consumers
// never pay for string lookups in the training path. Consumption of
// the snapshots (logging, dashboards) is outside the agents' scope.
package summary

import (
	"fmt"
	"io"
)

// Role identifies which network of an agent a Snapshot describes
type Role int

const (
	Actor Role = iota
	Critic
	TargetActor
	TargetCritic
)

// String returns the namespace prefix under which the Role's metrics
// are reported
func (r Role) String() string {
	switch r {
	case Actor:
		return "actor"
	case Critic:
		return "critic"
	case TargetActor:
		return "target_actor"
	case TargetCritic:
		return "target_critic"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// ParamNorm holds the diagnostic norms of a single network parameter
// tensor. GradientNorm is 0 for networks that are never differentiated
// (target networks).
type ParamNorm struct {
	Name         string
	WeightNorm   float64
	GradientNorm float64
}

// Snapshot is a point-in-time capture of the scalar diagnostics of one
// network. Snapshots are captured before the gradient step they
// describe is applied and are never used to alter control flow.
type Snapshot struct {
	Role Role
	Step int

	// Loss is the scalar training loss of the network. For an actor
	// this is the negated policy objective; target networks have no
	// loss.
	Loss float64

	// GradientNorm is the aggregate gradient norm over all parameters,
	// computed as the sum of the per-parameter L2 norms
	GradientNorm float64

	// WeightNorm is the aggregate weight norm over all parameters
	WeightNorm float64

	Params []ParamNorm
}

// Sink consumes diagnostic Snapshots
type Sink interface {
	Write(Snapshot)
}

// Discard is a Sink that drops all Snapshots
type Discard struct{}

// Write implements the Sink interface
func (Discard) Write(Snapshot) {}

// Logger is a Sink that writes each scalar of a Snapshot as a
// tab-separated "step  role/name  value" line
type Logger struct {
	w io.Writer
}

// NewLogger returns a Logger writing to w
func NewLogger(w io.Writer) *Logger {
	return &Logger{w: w}
}

// Write implements the Sink interface
func (l *Logger) Write(s Snapshot) {
	if s.Role == Actor || s.Role == Critic {
		fmt.Fprintf(l.w, "%d\t%v/loss\t%g\n", s.Step, s.Role, s.Loss)
		fmt.Fprintf(l.w, "%d\t%v/gradient_norm\t%g\n", s.Step, s.Role,
			s.GradientNorm)
	}
	fmt.Fprintf(l.w, "%d\t%v/norm\t%g\n", s.Step, s.Role, s.WeightNorm)

	for _, param := range s.Params {
		fmt.Fprintf(l.w, "%d\t%v/%v/norm\t%g\n", s.Step, s.Role, param.Name,
			param.WeightNorm)
		if s.Role == Actor || s.Role == Critic {
			fmt.Fprintf(l.w, "%d\t%v/%v/gradient_norm\t%g\n", s.Step, s.Role,
				param.Name, param.GradientNorm)
		}
	}
}
