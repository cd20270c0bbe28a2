package model

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

const (
	activationReLU   = "relu"
	activationLinear = "linear"
)

// layerSpec describes one dense layer of the regression network.
type layerSpec struct {
	units      int
	activation string
	dropout    float64
}

// architecture is input → 128 → 64 → 32 → 1.
var architecture = []layerSpec{
	{128, activationReLU, 0.3},
	{64, activationReLU, 0.2},
	{32, activationReLU, 0.2},
	{1, activationLinear, 0},
}

// Layer is a dense layer. Weights are indexed [output][input].
type Layer struct {
	Weights    [][]float64 `json:"weights"`
	Bias       []float64   `json:"bias"`
	Activation string      `json:"activation"`
	Dropout    float64     `json:"dropout"`
}

func (l *Layer) inputs() int  { return len(l.Weights[0]) }
func (l *Layer) outputs() int { return len(l.Weights) }

// Network is a feed-forward regression network with a single output.
type Network struct {
	Inputs int      `json:"inputs"`
	Layers []*Layer `json:"layers"`
}

// newNetwork builds the network with Glorot-uniform weights and zero biases.
func newNetwork(inputs int, rng *rand.Rand) *Network {
	n := &Network{Inputs: inputs}
	in := inputs
	for _, ls := range architecture {
		limit := math.Sqrt(6 / float64(in+ls.units))
		l := &Layer{
			Weights:    make([][]float64, ls.units),
			Bias:       make([]float64, ls.units),
			Activation: ls.activation,
			Dropout:    ls.dropout,
		}
		for o := range l.Weights {
			row := make([]float64, in)
			for i := range row {
				row[i] = (rng.Float64()*2 - 1) * limit
			}
			l.Weights[o] = row
		}
		n.Layers = append(n.Layers, l)
		in = ls.units
	}
	return n
}

func (n *Network) validate() error {
	if len(n.Layers) == 0 {
		return fmt.Errorf("network has no layers")
	}
	in := n.Inputs
	for i, l := range n.Layers {
		if len(l.Weights) == 0 || len(l.Bias) != len(l.Weights) {
			return fmt.Errorf("layer %d: malformed weights", i)
		}
		for _, row := range l.Weights {
			if len(row) != in {
				return fmt.Errorf("layer %d: expected %d inputs, got %d", i, in, len(row))
			}
		}
		in = l.outputs()
	}
	if in != 1 {
		return fmt.Errorf("network has %d outputs, expected 1", in)
	}
	return nil
}

// Predict runs inference. Dropout is inactive.
func (n *Network) Predict(x []float64) float64 {
	a := x
	for _, l := range n.Layers {
		out := make([]float64, l.outputs())
		for o, w := range l.Weights {
			out[o] = activate(l.Activation, floats.Dot(w, a)+l.Bias[o])
		}
		a = out
	}
	return a[0]
}

func activate(kind string, z float64) float64 {
	if kind == activationReLU && z < 0 {
		return 0
	}
	return z
}

// clone deep-copies the weights.
func (n *Network) clone() *Network {
	c := &Network{Inputs: n.Inputs, Layers: make([]*Layer, len(n.Layers))}
	for i, l := range n.Layers {
		cl := &Layer{
			Weights:    make([][]float64, len(l.Weights)),
			Bias:       append([]float64(nil), l.Bias...),
			Activation: l.Activation,
			Dropout:    l.Dropout,
		}
		for o, row := range l.Weights {
			cl.Weights[o] = append([]float64(nil), row...)
		}
		c.Layers[i] = cl
	}
	return c
}

// gradients has the same shape as the network's parameters.
type gradients struct {
	w [][][]float64
	b [][]float64
}

func newGradients(n *Network) *gradients {
	g := &gradients{w: make([][][]float64, len(n.Layers)), b: make([][]float64, len(n.Layers))}
	for i, l := range n.Layers {
		g.w[i] = make([][]float64, l.outputs())
		for o := range g.w[i] {
			g.w[i][o] = make([]float64, l.inputs())
		}
		g.b[i] = make([]float64, l.outputs())
	}
	return g
}

func (g *gradients) reset() {
	for i := range g.w {
		for o := range g.w[i] {
			floats.Scale(0, g.w[i][o])
		}
		floats.Scale(0, g.b[i])
	}
}

// trace holds the per-layer state of one training forward pass.
type trace struct {
	inputs [][]float64 // input to each layer
	pre    [][]float64 // pre-activation outputs
	masks  [][]float64 // dropout multipliers, nil when the layer has none
}

// forwardTrain runs a forward pass with inverted dropout and records what
// backward needs.
func (n *Network) forwardTrain(x []float64, rng *rand.Rand) (float64, *trace) {
	t := &trace{
		inputs: make([][]float64, len(n.Layers)),
		pre:    make([][]float64, len(n.Layers)),
		masks:  make([][]float64, len(n.Layers)),
	}
	a := x
	for li, l := range n.Layers {
		t.inputs[li] = a
		z := make([]float64, l.outputs())
		out := make([]float64, l.outputs())
		for o, w := range l.Weights {
			z[o] = floats.Dot(w, a) + l.Bias[o]
			out[o] = activate(l.Activation, z[o])
		}
		if l.Dropout > 0 {
			keep := 1 - l.Dropout
			mask := make([]float64, len(out))
			for o := range mask {
				if rng.Float64() < keep {
					mask[o] = 1 / keep
				}
			}
			floats.Mul(out, mask)
			t.masks[li] = mask
		}
		t.pre[li] = z
		a = out
	}
	return a[0], t
}

// backward accumulates the gradient of the loss for one sample into g, given
// dLoss/dOutput.
func (n *Network) backward(t *trace, dOut float64, g *gradients) {
	delta := []float64{dOut}
	for li := len(n.Layers) - 1; li >= 0; li-- {
		l := n.Layers[li]
		in := t.inputs[li]
		for o, d := range delta {
			if d == 0 {
				continue
			}
			floats.AddScaled(g.w[li][o], d, in)
			g.b[li][o] += d
		}
		if li == 0 {
			return
		}

		prev := n.Layers[li-1]
		next := make([]float64, l.inputs())
		for o, d := range delta {
			if d != 0 {
				floats.AddScaled(next, d, l.Weights[o])
			}
		}
		mask, pre := t.masks[li-1], t.pre[li-1]
		for i := range next {
			if prev.Activation == activationReLU && pre[i] <= 0 {
				next[i] = 0
				continue
			}
			if mask != nil {
				next[i] *= mask[i]
			}
		}
		delta = next
	}
}

// adam is the Adam optimizer state.
type adam struct {
	beta1, beta2, epsilon float64
	step                  int
	m, v                  *gradients
}

func newAdam(n *Network) *adam {
	return &adam{beta1: 0.9, beta2: 0.999, epsilon: 1e-7, m: newGradients(n), v: newGradients(n)}
}

// apply updates the weights with the averaged gradients g.
func (a *adam) apply(n *Network, g *gradients, lr float64) {
	a.step++
	c1 := 1 - math.Pow(a.beta1, float64(a.step))
	c2 := 1 - math.Pow(a.beta2, float64(a.step))
	alpha := lr * math.Sqrt(c2) / c1

	update := func(param, grad, m, v []float64) {
		for k, gk := range grad {
			m[k] = a.beta1*m[k] + (1-a.beta1)*gk
			v[k] = a.beta2*v[k] + (1-a.beta2)*gk*gk
			param[k] -= alpha * m[k] / (math.Sqrt(v[k]) + a.epsilon)
		}
	}

	for li, l := range n.Layers {
		for o := range l.Weights {
			update(l.Weights[o], g.w[li][o], a.m.w[li][o], a.v.w[li][o])
		}
		update(l.Bias, g.b[li], a.m.b[li], a.v.b[li])
	}
}
