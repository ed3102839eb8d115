package tradeapi

import "reflect"

// symbols is the table shared by both registrations below.
var symbols = map[string]reflect.Value{
	// function, constant and variable definitions
	"ActionBuy":      reflect.ValueOf(ActionBuy),
	"ActionSell":     reflect.ValueOf(ActionSell),
	"ActionCloseAll": reflect.ValueOf(ActionCloseAll),
	"ActionCancel":   reflect.ValueOf(ActionCancel),
	"OrderMarket":    reflect.ValueOf(OrderMarket),
	"OrderLimit":     reflect.ValueOf(OrderLimit),
	"NewContext":     reflect.ValueOf(NewContext),
	"SMA":            reflect.ValueOf(SMA),

	// type definitions
	"BookLevel":   reflect.ValueOf((*BookLevel)(nil)),
	"Candle":      reflect.ValueOf((*Candle)(nil)),
	"Context":     reflect.ValueOf((*Context)(nil)),
	"Environment": reflect.ValueOf((*Environment)(nil)),
	"OrderBook":   reflect.ValueOf((*OrderBook)(nil)),
	"Params":      reflect.ValueOf((*Params)(nil)),
	"Signal":      reflect.ValueOf((*Signal)(nil)),
	"Strategy":    reflect.ValueOf((*Strategy)(nil)),

	// interface wrapper definitions
	"_Environment": reflect.ValueOf((*_tradeapi_Environment)(nil)),
	"_Strategy":    reflect.ValueOf((*_tradeapi_Strategy)(nil)),
}

// Symbols exposes this package inside the interpreter under the import
// path "tradeapi". Layout follows yaegi's extract convention, including
// the interface wrapper types that let interpreted code implement host
// interfaces. The table is registered under the short import path user
// code writes AND under this package's canonical path: yaegi resolves
// binary interface wrappers (Strategy, Environment return values) via
// the type's canonical package path, so without the second key any
// interpreted function returning one of these interfaces crashes the
// eval.
var Symbols = map[string]map[string]reflect.Value{
	"tradeapi/tradeapi":                        symbols,
	"backtest-core/internal/tradeapi/tradeapi": symbols,
}

// _tradeapi_Environment is an interface wrapper for Environment type
type _tradeapi_Environment struct {
	IValue    interface{}
	WGetState func() []float64
	WReset    func() []float64
	WStep     func(action int) ([]float64, float64, bool)
}

func (W _tradeapi_Environment) GetState() []float64 { return W.WGetState() }
func (W _tradeapi_Environment) Reset() []float64    { return W.WReset() }
func (W _tradeapi_Environment) Step(action int) ([]float64, float64, bool) {
	return W.WStep(action)
}

// _tradeapi_Strategy is an interface wrapper for Strategy type
type _tradeapi_Strategy struct {
	IValue  interface{}
	WOnTick func(candles []Candle)
}

func (W _tradeapi_Strategy) OnTick(candles []Candle) { W.WOnTick(candles) }
