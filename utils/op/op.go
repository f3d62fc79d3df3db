// Package op provides extended Gorgonia graph operations.
package op

import (
	"fmt"
	"math"

	G "gorgonia.org/gorgonia"
)

// Huber adds the elementwise Huber loss between pred and target to the
// computational graph and returns the node holding the loss:
//
//	L(x) = 0.5 * x²               if |x| < delta
//	L(x) = delta * |x| - 0.5 * delta²   otherwise
//
// where x = pred - target. The loss is quadratic for small residuals
// and linear beyond delta, clipping the gradient of large residuals to
// ±delta. A delta of +Inf degenerates to the plain squared error
// 0.5 * x².
//
// The returned node has the same shape as pred; reduce it with G.Mean
// to obtain a scalar cost.
func Huber(pred, target *G.Node, delta float64) (*G.Node, error) {
	if pred.Graph() != target.Graph() {
		return nil, fmt.Errorf("huber: pred and target must share a graph")
	}
	if delta <= 0 {
		return nil, fmt.Errorf("huber: delta must be positive \n\thave(%v)",
			delta)
	}

	diff, err := G.Sub(pred, target)
	if err != nil {
		return nil, fmt.Errorf("huber: could not compute residual: %v", err)
	}

	half := G.NewConstant(0.5, G.WithName("huber_half"))
	quadratic := G.Must(G.Square(diff))
	quadratic = G.Must(G.HadamardProd(quadratic, half))

	if math.IsInf(delta, 1) {
		return quadratic, nil
	}

	deltaNode := G.NewConstant(delta, G.WithName("huber_delta"))
	offset := G.NewConstant(0.5*delta*delta, G.WithName("huber_offset"))

	absDiff := G.Must(G.Abs(diff))
	linear := G.Must(G.HadamardProd(absDiff, deltaNode))
	linear = G.Must(G.Sub(linear, offset))

	// Select the quadratic branch where |x| < delta and the linear
	// branch elsewhere
	ltMask, err := G.Lt(absDiff, deltaNode, true)
	if err != nil {
		return nil, fmt.Errorf("huber: could not compute mask: %v", err)
	}
	gteMask, err := G.Gte(absDiff, deltaNode, true)
	if err != nil {
		return nil, fmt.Errorf("huber: could not compute mask: %v", err)
	}

	quadratic = G.Must(G.HadamardProd(ltMask, quadratic))
	linear = G.Must(G.HadamardProd(gteMask, linear))

	return G.Add(quadratic, linear)
}
