package rl

import (
	"testing"

	"backtest-core/internal/market"
)

const testEnvCode = `
import "tradeapi"

type countEnv struct {
	n    int
	step int
}

func (e *countEnv) Reset() []float64        { e.step = 0; return e.GetState() }
func (e *countEnv) GetState() []float64     { return []float64{float64(e.step)} }
func (e *countEnv) Step(action int) ([]float64, float64, bool) {
	e.step++
	return e.GetState(), 1, e.step >= e.n
}

func NewEnvironment(candles []tradeapi.Candle) tradeapi.Environment {
	return &countEnv{n: len(candles)}
}
`

func TestLoadEnvironment(t *testing.T) {
	candles := testCandles(4)
	env, err := LoadEnvironment(testEnvCode, candles)
	if err != nil {
		t.Fatalf("LoadEnvironment failed: %v", err)
	}

	state := env.Reset()
	if len(state) != 1 || state[0] != 0 {
		t.Fatalf("reset state=%v, expected [0]", state)
	}

	var done bool
	steps := 0
	for !done {
		_, _, done = env.Step(ActionHold)
		steps++
		if steps > 10 {
			t.Fatal("environment never signalled done")
		}
	}
	if steps != 4 {
		t.Fatalf("episode ran %d steps, expected 4", steps)
	}
}

func TestLoadEnvironmentFallbackName(t *testing.T) {
	code := `
import "tradeapi"

type e struct{}

func (e) Reset() []float64    { return []float64{0} }
func (e) GetState() []float64 { return []float64{0} }
func (e) Step(action int) ([]float64, float64, bool) {
	return []float64{0}, 0, true
}

func NewEnv(candles []tradeapi.Candle) tradeapi.Environment { return e{} }
`
	if _, err := LoadEnvironment(code, testCandles(2)); err != nil {
		t.Fatalf("NewEnv fallback not accepted: %v", err)
	}
}

func TestLoadEnvironmentErrors(t *testing.T) {
	cases := []struct {
		name string
		code string
	}{
		{"syntax error", `func NewEnvironment(`},
		{"no constructor", `func helper() int { return 1 }`},
		{"wrong signature", `func NewEnvironment() int { return 1 }`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := LoadEnvironment(c.code, []market.Candle{}); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}
