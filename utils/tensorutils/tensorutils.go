// Package tensorutils provides utilities for working with tensors and
// the values they back.
package tensorutils

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/gradfield/godeep/utils/floatutils"
)

// Valuer is any value backed by flat data, such as a gorgonia Value or
// a dense tensor.
type Valuer interface {
	Data() interface{}
}

// L2Norm returns the L2 norm of the flattened data backing v. Values
// backed by a single scalar have their absolute value returned.
func L2Norm(v Valuer) float64 {
	switch data := v.Data().(type) {
	case []float64:
		return floats.Norm(data, 2)
	case float64:
		return floatutils.Max(data, -data)
	default:
		panic(fmt.Sprintf("l2norm: cannot compute norm of %T", data))
	}
}

// InvertGradient scales the gradient components in grad down based on
// how close their associated parameter values in value are to the
// bounds [min, max]. Gradient components that would push a parameter
// toward a bound are scaled by the parameter's remaining normalized
// headroom to that bound, so that a parameter sitting at a bound
// receives no further push outward, while a parameter at the midpoint
// of [min, max] keeps its gradient unchanged.
//
// The gradient data is modified in place. Both grad and value must be
// backed by float64 data of the same length.
//
// Note that the sign convention follows gradient descent: a negative
// gradient component pushes its parameter up toward max, a positive
// component pushes it down toward min.
func InvertGradient(grad, value Valuer, min, max float64) error {
	g, ok := grad.Data().([]float64)
	if !ok {
		return fmt.Errorf("invertgradient: gradient must be backed by "+
			"[]float64 but got %T", grad.Data())
	}
	v, ok := value.Data().([]float64)
	if !ok {
		return fmt.Errorf("invertgradient: value must be backed by "+
			"[]float64 but got %T", value.Data())
	}
	if len(g) != len(v) {
		return fmt.Errorf("invertgradient: gradient and value sizes "+
			"differ \n\twant(%v) \n\thave(%v)", len(v), len(g))
	}

	halfWidth := (max - min) / 2
	if halfWidth <= 0 {
		return fmt.Errorf("invertgradient: invalid bounds [%v, %v]", min, max)
	}

	for i := range g {
		p := floatutils.Clip(v[i], min, max)
		if g[i] < 0 {
			// Descent will increase the parameter, so scale by the
			// headroom to the upper bound
			g[i] *= (max - p) / halfWidth
		} else {
			g[i] *= (p - min) / halfWidth
		}
	}
	return nil
}
