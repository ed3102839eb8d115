package rl

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"backtest-core/internal/market"
	"backtest-core/internal/tradeapi"
)

var errNoEnvConstructor = errors.New("no NewEnvironment constructor found")

// LoadEnvironment evaluates user environment code and constructs it from
// the raw candle series. The code must expose
//
//	func NewEnvironment(candles []tradeapi.Candle) tradeapi.Environment
//
// ("NewEnv" is accepted as a fallback name). Errors here are not fatal to
// training: the caller logs them and falls back to the default environment.
func LoadEnvironment(code string, candles []market.Candle) (env tradeapi.Environment, err error) {
	defer func() {
		if r := recover(); r != nil {
			env = nil
			err = fmt.Errorf("environment init: %v\n%s", r, debug.Stack())
		}
	}()

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("environment init: %w", err)
	}
	if err := i.Use(tradeapi.Symbols); err != nil {
		return nil, fmt.Errorf("environment init: %w", err)
	}

	if _, err := i.Eval(code); err != nil {
		return nil, fmt.Errorf("environment load: %w", err)
	}

	for _, name := range []string{"NewEnvironment", "NewEnv"} {
		v, evalErr := i.Eval(name)
		if evalErr != nil || !v.IsValid() || !v.CanInterface() {
			continue
		}
		ctor, ok := v.Interface().(func([]tradeapi.Candle) tradeapi.Environment)
		if !ok {
			continue
		}
		env := ctor(candles)
		if env == nil {
			return nil, fmt.Errorf("%s returned nil", name)
		}
		return env, nil
	}
	return nil, errNoEnvConstructor
}
