// Package tradeapi is the surface exposed to sandboxed strategy code. User
// code runs inside an embedded interpreter, imports "tradeapi" and talks to
// the engine exclusively through these types.
package tradeapi

import (
	"backtest-core/internal/indicators"
	"backtest-core/internal/market"
)

// Re-exported market types so user code never imports engine internals.
type (
	Candle    = market.Candle
	OrderBook = market.OrderBook
	BookLevel = market.BookLevel
)

// Params carries the numeric strategy parameters supplied with a task.
type Params = map[string]float64

// Signal actions.
const (
	ActionBuy      = "BUY"
	ActionSell     = "SELL"
	ActionCloseAll = "CLOSE_ALL"
	ActionCancel   = "CANCEL"
)

// Order types.
const (
	OrderMarket = "MARKET"
	OrderLimit  = "LIMIT"
)

// Signal is one trade intent emitted by strategy code. Signals form an
// append-only log per run, ordered by bar then emission order.
type Signal struct {
	Time       int64   `json:"time"`
	Action     string  `json:"action"`
	Price      float64 `json:"price"`
	Size       float64 `json:"size"`
	Reason     string  `json:"reason,omitempty"`
	OrderID    string  `json:"orderId,omitempty"`
	OrderType  string  `json:"orderType,omitempty"`
	LimitPrice float64 `json:"limitPrice,omitempty"`
}

// Strategy is the instance form of user code: a constructor named
// NewStrategy returns one of these and OnTick is invoked per bar.
type Strategy interface {
	OnTick(candles []Candle)
}

// Environment is the reinforcement-learning contract. Step takes an action
// (0=hold, 1=buy, 2=sell) and returns the next state, the reward and
// whether the episode ended.
type Environment interface {
	Reset() []float64
	Step(action int) ([]float64, float64, bool)
	GetState() []float64
}

// SMA returns a sliding-window mean series, length-matched to the input.
// Inputs shorter than period yield a constant series of the full-input
// mean; strategies depend on this leading-edge behavior.
func SMA(series []float64, period int) []float64 {
	return indicators.SMASeries(series, period)
}
