package rl

import (
	"math"
	"math/rand"
)

// Network is a single-hidden-layer feed-forward net with ReLU activation
// and a linear output of one Q-value per action. Forward and backward
// passes are written out by hand; one trainer instance owns one network.
type Network struct {
	inputSize  int
	hiddenSize int
	outputSize int

	w1 [][]float64 // inputSize x hiddenSize
	b1 []float64
	w2 [][]float64 // hiddenSize x outputSize
	b2 []float64
}

// NewNetwork builds a network with He-initialized weights and zero biases.
func NewNetwork(inputSize, hiddenSize, outputSize int, rng *rand.Rand) *Network {
	n := &Network{
		inputSize:  inputSize,
		hiddenSize: hiddenSize,
		outputSize: outputSize,
		w1:         heMatrix(inputSize, hiddenSize, rng),
		b1:         make([]float64, hiddenSize),
		w2:         heMatrix(hiddenSize, outputSize, rng),
		b2:         make([]float64, outputSize),
	}
	return n
}

func heMatrix(fanIn, fanOut int, rng *rand.Rand) [][]float64 {
	scale := math.Sqrt(2.0 / float64(fanIn))
	m := make([][]float64, fanIn)
	for i := range m {
		m[i] = make([]float64, fanOut)
		for j := range m[i] {
			m[i][j] = rng.NormFloat64() * scale
		}
	}
	return m
}

// Forward computes Q-values for one state. The hidden activations are
// returned alongside so the backward pass can reuse them.
func (n *Network) Forward(x []float64) (q, hidden []float64) {
	hidden = make([]float64, n.hiddenSize)
	for h := 0; h < n.hiddenSize; h++ {
		z := n.b1[h]
		for i := 0; i < n.inputSize && i < len(x); i++ {
			z += x[i] * n.w1[i][h]
		}
		if z > 0 {
			hidden[h] = z
		}
	}
	q = make([]float64, n.outputSize)
	for o := 0; o < n.outputSize; o++ {
		z := n.b2[o]
		for h := 0; h < n.hiddenSize; h++ {
			z += hidden[h] * n.w2[h][o]
		}
		q[o] = z
	}
	return q, hidden
}

// Predict returns Q-values only.
func (n *Network) Predict(x []float64) []float64 {
	q, _ := n.Forward(x)
	return q
}

// Backward applies one SGD step for a minibatch given d_loss/d_z2 per
// sample. Weight gradients are accumulated over the batch, clipped
// elementwise to [-1, 1], then applied as W -= lr * grad / batchSize.
func (n *Network) Backward(states [][]float64, dZ2 [][]float64, lr float64) {
	batch := len(states)
	if batch == 0 {
		return
	}

	gW1 := make([][]float64, n.inputSize)
	for i := range gW1 {
		gW1[i] = make([]float64, n.hiddenSize)
	}
	gB1 := make([]float64, n.hiddenSize)
	gW2 := make([][]float64, n.hiddenSize)
	for h := range gW2 {
		gW2[h] = make([]float64, n.outputSize)
	}
	gB2 := make([]float64, n.outputSize)

	for s := 0; s < batch; s++ {
		x := states[s]
		_, hidden := n.Forward(x)

		for o := 0; o < n.outputSize; o++ {
			d := dZ2[s][o]
			if d == 0 {
				continue
			}
			gB2[o] += d
			for h := 0; h < n.hiddenSize; h++ {
				gW2[h][o] += hidden[h] * d
			}
		}

		for h := 0; h < n.hiddenSize; h++ {
			if hidden[h] <= 0 {
				continue // ReLU gate
			}
			dH := 0.0
			for o := 0; o < n.outputSize; o++ {
				dH += dZ2[s][o] * n.w2[h][o]
			}
			gB1[h] += dH
			for i := 0; i < n.inputSize && i < len(x); i++ {
				gW1[i][h] += x[i] * dH
			}
		}
	}

	scale := lr / float64(batch)
	for i := range n.w1 {
		for h := range n.w1[i] {
			n.w1[i][h] -= scale * clip(gW1[i][h])
		}
	}
	for h := range n.b1 {
		n.b1[h] -= scale * gB1[h]
	}
	for h := range n.w2 {
		for o := range n.w2[h] {
			n.w2[h][o] -= scale * clip(gW2[h][o])
		}
	}
	for o := range n.b2 {
		n.b2[o] -= scale * gB2[o]
	}
}

func clip(g float64) float64 {
	if g > 1 {
		return 1
	}
	if g < -1 {
		return -1
	}
	return g
}

// Weights is a read-only snapshot of the learned parameters, exported as
// a standalone policy artifact at training end.
type Weights struct {
	W1 [][]float64 `json:"w1"`
	B1 []float64   `json:"b1"`
	W2 [][]float64 `json:"w2"`
	B2 []float64   `json:"b2"`
}

// Snapshot deep-copies the current parameters.
func (n *Network) Snapshot() Weights {
	return Weights{
		W1: copyMatrix(n.w1),
		B1: append([]float64(nil), n.b1...),
		W2: copyMatrix(n.w2),
		B2: append([]float64(nil), n.b2...),
	}
}

func copyMatrix(m [][]float64) [][]float64 {
	out := make([][]float64, len(m))
	for i := range m {
		out[i] = append([]float64(nil), m[i]...)
	}
	return out
}
