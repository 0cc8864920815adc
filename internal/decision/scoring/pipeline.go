// Package scoring turns a FeatureVector into an authenticity confidence.
package scoring

import (
	"fmt"
	"math"
)

// PolynomialFeatures expands an input vector into all monomials up to
// Degree, ordered by degree and then lexicographically by feature index.
type PolynomialFeatures struct {
	Degree      int  `cbor:"degree"`
	InputSize   int  `cbor:"input_size"`
	IncludeBias bool `cbor:"include_bias"`
}

// OutputSize is the number of expanded terms.
func (p PolynomialFeatures) OutputSize() int {
	total := 0
	start := 1
	if p.IncludeBias {
		start = 0
	}
	for d := start; d <= p.Degree; d++ {
		total += binomial(p.InputSize+d-1, d)
	}
	return total
}

func (p PolynomialFeatures) Transform(x []float64) ([]float64, error) {
	if len(x) != p.InputSize {
		return nil, fmt.Errorf("polynomial expansion expects %d inputs, got %d", p.InputSize, len(x))
	}
	out := make([]float64, 0, p.OutputSize())
	if p.IncludeBias {
		out = append(out, 1)
	}
	for d := 1; d <= p.Degree; d++ {
		out = appendMonomials(out, x, d, 0, 1)
	}
	return out, nil
}

// appendMonomials emits every product of d factors drawn with replacement
// from x[from:], in non-decreasing index order.
func appendMonomials(out, x []float64, d, from int, acc float64) []float64 {
	if d == 0 {
		return append(out, acc)
	}
	for i := from; i < len(x); i++ {
		out = appendMonomials(out, x, d-1, i, acc*x[i])
	}
	return out
}

func binomial(n, k int) int {
	if k < 0 || k > n {
		return 0
	}
	r := 1
	for i := 1; i <= k; i++ {
		r = r * (n - k + i) / i
	}
	return r
}

// StandardScaler centres and scales each column: (x - Mean) / Scale.
type StandardScaler struct {
	Mean  []float64 `cbor:"mean"`
	Scale []float64 `cbor:"scale"`
}

func (s StandardScaler) Transform(x []float64) ([]float64, error) {
	if len(x) != len(s.Mean) || len(x) != len(s.Scale) {
		return nil, fmt.Errorf("scaler expects %d columns, got %d", len(s.Mean), len(x))
	}
	out := make([]float64, len(x))
	for i, v := range x {
		scale := s.Scale[i]
		if scale == 0 {
			scale = 1
		}
		out[i] = (v - s.Mean[i]) / scale
	}
	return out, nil
}

const (
	ActivationLinear  = "linear"
	ActivationReLU    = "relu"
	ActivationSigmoid = "sigmoid"
	ActivationTanh    = "tanh"
)

// Dense is a fully connected layer. Weights are indexed [input][output].
type Dense struct {
	Weights    [][]float64 `cbor:"weights"`
	Bias       []float64   `cbor:"bias"`
	Activation string      `cbor:"activation"`
}

func (l Dense) forward(x []float64) ([]float64, error) {
	if len(x) != len(l.Weights) {
		return nil, fmt.Errorf("dense layer expects %d inputs, got %d", len(l.Weights), len(x))
	}
	out := make([]float64, len(l.Bias))
	copy(out, l.Bias)
	for i, xi := range x {
		row := l.Weights[i]
		if len(row) != len(out) {
			return nil, fmt.Errorf("dense layer row %d has %d outputs, want %d", i, len(row), len(out))
		}
		for j, w := range row {
			out[j] += xi * w
		}
	}
	for j, v := range out {
		switch l.Activation {
		case ActivationReLU:
			out[j] = math.Max(0, v)
		case ActivationSigmoid:
			out[j] = 1 / (1 + math.Exp(-v))
		case ActivationTanh:
			out[j] = math.Tanh(v)
		case ActivationLinear, "":
		default:
			return nil, fmt.Errorf("unknown activation %q", l.Activation)
		}
	}
	return out, nil
}

// Network is a feed-forward binary classifier with a single output unit.
type Network struct {
	Layers []Dense `cbor:"layers"`
}

func (n Network) Predict(x []float64) (float64, error) {
	if len(n.Layers) == 0 {
		return 0, fmt.Errorf("network has no layers")
	}
	out := x
	var err error
	for i, l := range n.Layers {
		if out, err = l.forward(out); err != nil {
			return 0, fmt.Errorf("layer %d: %w", i, err)
		}
	}
	if len(out) != 1 {
		return 0, fmt.Errorf("network produced %d outputs, want 1", len(out))
	}
	if math.IsNaN(out[0]) {
		return 0, fmt.Errorf("network produced NaN")
	}
	return math.Min(1, math.Max(0, out[0])), nil
}

// Classifier is anything producing a confidence in [0,1] from scaled features.
type Classifier interface {
	Predict(x []float64) (float64, error)
}

// Pipeline chains expansion, scaling and classification. It is immutable
// after construction and safe for concurrent use.
type Pipeline struct {
	Poly    PolynomialFeatures
	Scaler  StandardScaler
	Model   Classifier
	Version string
}

func (p *Pipeline) Predict(features []float64) (float64, error) {
	expanded, err := p.Poly.Transform(features)
	if err != nil {
		return 0, err
	}
	scaled, err := p.Scaler.Transform(expanded)
	if err != nil {
		return 0, err
	}
	return p.Model.Predict(scaled)
}
