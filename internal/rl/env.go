// Package rl implements the Q-learning side of the engine: the trading
// environment contract, a from-scratch feed-forward network, experience
// replay and the training loop.
package rl

import (
	"math"

	"backtest-core/internal/indicators"
	"backtest-core/internal/market"
	"backtest-core/internal/tradeapi"
)

// Actions understood by every environment.
const (
	ActionHold = 0
	ActionBuy  = 1
	ActionSell = 2
)

// Tuning constants carried over unchanged for behavioral parity. They have
// no derivation; retuning them changes trained policies.
const (
	stepPenalty     = -0.1
	pointValueProxy = 200.0
	rewardScale     = 1000.0
	rsiPeriod       = 14
)

// DefaultEnvironment drives training from indicator features over candle
// closes: state is [rsi/100, (smaFast-smaSlow)/close*1000, positionSign].
type DefaultEnvironment struct {
	closes  []float64
	rsi     []float64
	smaFast []float64
	smaSlow []float64

	step     int
	position int // -1 short, 0 flat, 1 long
	entry    float64
}

// NewDefaultEnvironment precomputes the feature series. Leading indicator
// gaps are backward-filled, remaining NaNs zeroed.
func NewDefaultEnvironment(candles []market.Candle, fastPeriod, slowPeriod int) *DefaultEnvironment {
	if fastPeriod <= 0 {
		fastPeriod = 5
	}
	if slowPeriod <= 0 {
		slowPeriod = 20
	}
	closes := market.Closes(candles)
	return &DefaultEnvironment{
		closes:  closes,
		rsi:     indicators.RSISeries(closes, rsiPeriod),
		smaFast: indicators.SMASeries(closes, fastPeriod),
		smaSlow: indicators.SMASeries(closes, slowPeriod),
	}
}

var _ tradeapi.Environment = (*DefaultEnvironment)(nil)

func (e *DefaultEnvironment) Reset() []float64 {
	e.step = 0
	e.position = 0
	e.entry = 0
	return e.GetState()
}

func (e *DefaultEnvironment) GetState() []float64 {
	i := e.step
	if i >= len(e.closes) {
		i = len(e.closes) - 1
	}
	if i < 0 {
		return []float64{0, 0, 0}
	}
	maSpread := 0.0
	if e.closes[i] != 0 {
		maSpread = (e.smaFast[i] - e.smaSlow[i]) / e.closes[i] * 1000
	}
	return []float64{
		zeroNaN(e.rsi[i] / 100),
		zeroNaN(maSpread),
		float64(e.position),
	}
}

// Step applies one action at the current bar. Reversing an open position
// realizes its PnL into the reward before flipping; opening from flat sets
// the entry price. The episode ends at the last-but-one candle, at which
// point any open position is force-realized. Rewards are scaled down by
// rewardScale before being returned.
func (e *DefaultEnvironment) Step(action int) ([]float64, float64, bool) {
	reward := stepPenalty
	price := e.closes[e.step]

	switch action {
	case ActionBuy:
		if e.position < 0 {
			reward += (e.entry - price) * pointValueProxy
			e.position = 1
			e.entry = price
		} else if e.position == 0 {
			e.position = 1
			e.entry = price
		}
	case ActionSell:
		if e.position > 0 {
			reward += (price - e.entry) * pointValueProxy
			e.position = -1
			e.entry = price
		} else if e.position == 0 {
			e.position = -1
			e.entry = price
		}
	}

	e.step++
	done := e.step >= len(e.closes)-1

	if done && e.position != 0 {
		last := e.closes[len(e.closes)-1]
		if e.position > 0 {
			reward += (last - e.entry) * pointValueProxy
		} else {
			reward += (e.entry - last) * pointValueProxy
		}
		e.position = 0
		e.entry = 0
	}

	return e.GetState(), zeroNaN(reward / rewardScale), done
}

func zeroNaN(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
