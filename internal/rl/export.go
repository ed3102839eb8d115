package rl

import (
	"fmt"
	"strconv"
	"strings"
)

// ExportPolicy serializes learned weights into standalone Go source that
// the strategy sandbox can evaluate. The artifact reconstructs the same
// forward pass and picks actions by argmax. Feature extraction is a hook:
// the exported policy does not retain the training environment's feature
// code, so GetState ships as a stub the user adapts to their data.
func ExportPolicy(w Weights) string {
	var b strings.Builder

	b.WriteString("// Trained DQN policy export.\n")
	b.WriteString("// Act maps a feature vector to 0 (hold), 1 (buy) or 2 (sell).\n")
	b.WriteString("// GetState must reproduce the feature extraction used in training;\n")
	b.WriteString("// the default environment used [rsi/100, (smaFast-smaSlow)/close*1000, positionSign].\n\n")

	b.WriteString("import \"tradeapi\"\n\n")

	writeMatrix(&b, "policyW1", w.W1)
	writeVector(&b, "policyB1", w.B1)
	writeMatrix(&b, "policyW2", w.W2)
	writeVector(&b, "policyB2", w.B2)

	b.WriteString(`
// GetState is the feature-extraction hook. Replace the body to match the
// features this policy was trained on.
func GetState(candles []tradeapi.Candle, position int) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	_ = closes // TODO: compute the training features from closes
	return []float64{0, 0, float64(position)}
}

func Act(state []float64) int {
	hidden := make([]float64, len(policyB1))
	for h := range hidden {
		z := policyB1[h]
		for i := range state {
			if i < len(policyW1) {
				z += state[i] * policyW1[i][h]
			}
		}
		if z > 0 {
			hidden[h] = z
		}
	}
	best, bestQ := 0, 0.0
	for o := range policyB2 {
		q := policyB2[o]
		for h := range hidden {
			q += hidden[h] * policyW2[h][o]
		}
		if o == 0 || q > bestQ {
			best, bestQ = o, q
		}
	}
	return best
}
`)
	return b.String()
}

func writeMatrix(b *strings.Builder, name string, m [][]float64) {
	fmt.Fprintf(b, "var %s = [][]float64{\n", name)
	for _, row := range m {
		b.WriteString("\t{")
		for j, v := range row {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(formatFloat(v))
		}
		b.WriteString("},\n")
	}
	b.WriteString("}\n\n")
}

func writeVector(b *strings.Builder, name string, v []float64) {
	fmt.Fprintf(b, "var %s = []float64{", name)
	for i, x := range v {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(formatFloat(x))
	}
	b.WriteString("}\n\n")
}

func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	// Keep the literal a float even for round values so the slice type
	// stays []float64 under the interpreter.
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
