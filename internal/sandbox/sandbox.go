// Package sandbox hosts one piece of user strategy code for one task. It
// loads the source into an isolated interpreter, resolves which of the
// supported entry-point shapes the code implements, and replays a candle
// series through it with a bounded lookback window.
package sandbox

import (
	"errors"
	"fmt"
	"log"
	"reflect"
	"runtime/debug"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"backtest-core/internal/market"
	"backtest-core/internal/tradeapi"
)

// ErrNoStrategy is returned when user code defines none of the supported
// entry points. The message is part of the API surface; callers and the
// dashboard match on it.
var ErrNoStrategy = errors.New("No strategy class found.")

// Kind tags the entry-point shape resolved at load time. Resolution
// happens exactly once per task, never per bar.
type Kind int

const (
	KindFuncNoCtx Kind = iota
	KindFuncWithCtx
	KindInstance
)

func (k Kind) String() string {
	switch k {
	case KindFuncNoCtx:
		return "function"
	case KindFuncWithCtx:
		return "function+ctx"
	case KindInstance:
		return "instance"
	}
	return "unknown"
}

// DefaultLookback bounds the rolling window when a task does not set one.
const DefaultLookback = 200

// Sandbox replays candles through user code.
type Sandbox struct {
	MaxLookback int
}

func New(maxLookback int) *Sandbox {
	if maxLookback <= 0 {
		maxLookback = DefaultLookback
	}
	return &Sandbox{MaxLookback: maxLookback}
}

// program is the resolved handle for one piece of user code: the kind tag
// plus exactly one populated entry point.
type program struct {
	kind      Kind
	tickPlain func([]tradeapi.Candle)
	tickCtx   func([]tradeapi.Candle, *tradeapi.Context)
	instance  tradeapi.Strategy

	startPlain func()
	startCtx   func(*tradeapi.Context)
}

// Run evaluates code, resolves its entry point, replays candles through it
// and returns the accumulated signal log. Any failure at any stage aborts
// the run and discards prior signals; a run never returns a partial log
// alongside an error.
func (s *Sandbox) Run(code string, candles []market.Candle, params tradeapi.Params) ([]tradeapi.Signal, error) {
	ctx := tradeapi.NewContext()

	prog, err := s.load(code, params, ctx)
	if err != nil {
		return nil, err
	}

	if err := s.replay(prog, candles, ctx); err != nil {
		return nil, err
	}

	signals := ctx.Signals()
	if signals == nil {
		signals = []tradeapi.Signal{}
	}
	return signals, nil
}

// load evaluates the source in a fresh interpreter and resolves the entry
// point into a program.
func (s *Sandbox) load(code string, params tradeapi.Params, ctx *tradeapi.Context) (*program, error) {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("sandbox init: %w", err)
	}
	if err := i.Use(tradeapi.Symbols); err != nil {
		return nil, fmt.Errorf("sandbox init: %w", err)
	}
	// Emitters bound to this run's context, importable as "sandboxapi".
	// This is what lets the bare OnTick(candles) shape place orders
	// without receiving a context argument.
	if err := i.Use(interp.Exports{
		"sandboxapi/sandboxapi": {
			"Order":    reflect.ValueOf(ctx.Order),
			"Cancel":   reflect.ValueOf(ctx.Cancel),
			"CloseAll": reflect.ValueOf(ctx.CloseAll),
			"SMA":      reflect.ValueOf(tradeapi.SMA),
		},
	}); err != nil {
		return nil, fmt.Errorf("sandbox init: %w", err)
	}

	if err := guard("load", func() error {
		_, evalErr := i.Eval(code)
		return evalErr
	}); err != nil {
		return nil, err
	}

	prog, err := resolve(i, params, ctx)
	if err != nil {
		return nil, err
	}
	log.Printf("sandbox: resolved %s entry point", prog.kind)
	return prog, nil
}

// resolve picks the entry point in priority order: a free OnTick function,
// a free Strategy function, then a NewStrategy constructor. The shape is
// fixed here via one type assertion per candidate.
func resolve(i *interp.Interpreter, params tradeapi.Params, ctx *tradeapi.Context) (*program, error) {
	prog := &program{}

	for _, name := range []string{"OnTick", "Strategy"} {
		v, err := i.Eval(name)
		if err != nil || !v.IsValid() || !v.CanInterface() {
			continue
		}
		switch fn := v.Interface().(type) {
		case func([]tradeapi.Candle):
			prog.kind = KindFuncNoCtx
			prog.tickPlain = fn
		case func([]tradeapi.Candle, *tradeapi.Context):
			prog.kind = KindFuncWithCtx
			prog.tickCtx = fn
		default:
			continue
		}
		resolveStart(i, prog)
		return prog, nil
	}

	if v, err := i.Eval("NewStrategy"); err == nil && v.IsValid() && v.CanInterface() {
		inst, err := construct(v.Interface(), params, ctx)
		if err != nil {
			return nil, err
		}
		if inst != nil {
			prog.kind = KindInstance
			prog.instance = inst
			resolveStart(i, prog)
			return prog, nil
		}
	}

	return nil, ErrNoStrategy
}

// construct calls the user constructor. Accepted shapes form a closed set;
// when the params-taking shape panics on its arguments, the zero-argument
// shape is retried, mirroring the keyword-then-bare fallback strategies
// already depend on.
func construct(ctor any, params tradeapi.Params, ctx *tradeapi.Context) (tradeapi.Strategy, error) {
	var inst tradeapi.Strategy

	call := func(f func() tradeapi.Strategy) error {
		return guard("init", func() error {
			inst = f()
			return nil
		})
	}

	switch f := ctor.(type) {
	case func(tradeapi.Params, *tradeapi.Context) tradeapi.Strategy:
		if err := call(func() tradeapi.Strategy { return f(params, ctx) }); err != nil {
			return nil, err
		}
	case func(tradeapi.Params) tradeapi.Strategy:
		if err := call(func() tradeapi.Strategy { return f(params) }); err != nil {
			return nil, err
		}
	case func(*tradeapi.Context) tradeapi.Strategy:
		if err := call(func() tradeapi.Strategy { return f(ctx) }); err != nil {
			return nil, err
		}
	case func() tradeapi.Strategy:
		if err := call(f); err != nil {
			return nil, err
		}
	default:
		return nil, nil
	}
	return inst, nil
}

// resolveStart binds the optional OnStart hook, either bare or taking the
// context. Missing is fine.
func resolveStart(i *interp.Interpreter, prog *program) {
	v, err := i.Eval("OnStart")
	if err != nil || !v.IsValid() || !v.CanInterface() {
		return
	}
	switch fn := v.Interface().(type) {
	case func():
		prog.startPlain = fn
	case func(*tradeapi.Context):
		prog.startCtx = fn
	}
}

// replay feeds candles one at a time into the resolved entry point,
// keeping at most MaxLookback bars visible.
func (s *Sandbox) replay(prog *program, candles []market.Candle, ctx *tradeapi.Context) error {
	if prog.startPlain != nil || prog.startCtx != nil {
		if err := guard("start", func() error {
			if prog.startCtx != nil {
				prog.startCtx(ctx)
			} else {
				prog.startPlain()
			}
			return nil
		}); err != nil {
			return err
		}
	}

	window := make([]tradeapi.Candle, 0, s.MaxLookback)
	for _, c := range candles {
		window = append(window, c)
		if len(window) > s.MaxLookback {
			window = window[1:]
		}
		ctx.SetCurrent(c)

		if err := guard("tick", func() error {
			switch prog.kind {
			case KindFuncNoCtx:
				prog.tickPlain(window)
			case KindFuncWithCtx:
				prog.tickCtx(window, ctx)
			case KindInstance:
				prog.instance.OnTick(window)
			}
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}

// guard runs fn, converting panics from interpreted code into errors that
// carry the stage name and a trace. Errors pass through with the stage
// prefix only.
func guard(stage string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: %v\n%s", stage, r, debug.Stack())
		}
	}()
	if ferr := fn(); ferr != nil {
		return fmt.Errorf("%s: %w", stage, ferr)
	}
	return nil
}
