// Package dispatch fans a batch of independent sandbox and trainer tasks
// over a bounded worker pool, streaming progress and preserving request
// order in the results.
package dispatch

import (
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"backtest-core/internal/events"
	"backtest-core/internal/market"
	"backtest-core/internal/rl"
	"backtest-core/internal/sandbox"
	"backtest-core/internal/tradeapi"
)

// Task kinds.
type Kind string

const (
	KindRunStrategy Kind = "RUN_STRATEGY"
	KindTrainRL     Kind = "TRAIN_RL"
)

// ErrCanceled marks tasks that were never started because cancellation
// was observed first.
var ErrCanceled = errors.New("task canceled before start")

// Task is one unit of work. Payload fields are kind-dependent.
type Task struct {
	ID      string
	Kind    Kind
	Candles []market.Candle

	// RUN_STRATEGY payload
	Code        string
	Params      tradeapi.Params
	MaxLookback int

	// TRAIN_RL payload
	RL            *rl.Config
	CustomEnvCode string

	// OnEpisode, when set, receives this task's per-episode records.
	OnEpisode func(rl.EpisodeStats)
}

// Result is the outcome for one task, at the task's submission index.
type Result struct {
	TaskID   string            `json:"taskId"`
	Signals  []tradeapi.Signal `json:"signals,omitempty"`
	Training *rl.Result        `json:"training,omitempty"`
	Err      error             `json:"-"`
}

// Dispatcher runs task batches. Workers share nothing but the next-index
// counter; every sandbox, network and buffer is owned by exactly one
// worker for the task's lifetime.
type Dispatcher struct {
	Bus             *events.Bus
	DefaultLookback int
}

func New(bus *events.Bus, defaultLookback int) *Dispatcher {
	return &Dispatcher{Bus: bus, DefaultLookback: defaultLookback}
}

// Run executes tasks on min(poolSize, len(tasks)) workers and returns one
// result per task in input order. onProgress fires after each task
// finishes, success or failure, with a monotonically increasing completed
// count. shouldCancel is checked between tasks only: a worker observing it
// claims nothing further but never aborts an in-flight task.
func (d *Dispatcher) Run(tasks []Task, poolSize int, onProgress func(completed, total int), shouldCancel func() bool) []Result {
	total := len(tasks)
	results := make([]Result, total)
	started := make([]bool, total)
	if total == 0 {
		return results
	}

	workers := poolSize
	if workers <= 0 {
		workers = 1
	}
	if workers > total {
		workers = total
	}

	var next int64
	var mu sync.Mutex // guards completed count and progress callback order
	completed := 0

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if shouldCancel != nil && shouldCancel() {
					return
				}
				idx := int(atomic.AddInt64(&next, 1)) - 1
				if idx >= total {
					return
				}
				started[idx] = true
				results[idx] = d.runTask(tasks[idx])

				mu.Lock()
				completed++
				done := completed
				if onProgress != nil {
					onProgress(done, total)
				}
				mu.Unlock()

				if d.Bus != nil {
					d.Bus.Publish(events.EventBatchProgress, struct {
						Completed int    `json:"completed"`
						Total     int    `json:"total"`
						TaskID    string `json:"taskId"`
					}{done, total, tasks[idx].ID})
				}
			}
		}()
	}
	wg.Wait()

	// One entry per submitted task, always: unclaimed slots report the
	// cancellation instead of a zero value.
	for i := range results {
		if !started[i] {
			results[i] = Result{TaskID: tasks[i].ID, Err: ErrCanceled}
		}
	}
	return results
}

// runTask executes a single task with full error containment: a failure
// here never crosses to sibling tasks or the pool.
func (d *Dispatcher) runTask(task Task) (res Result) {
	res.TaskID = task.ID
	defer func() {
		if r := recover(); r != nil {
			res = Result{
				TaskID: task.ID,
				Err:    fmt.Errorf("task panic: %v\n%s", r, debug.Stack()),
			}
		}
	}()

	switch task.Kind {
	case KindRunStrategy:
		lookback := task.MaxLookback
		if lookback <= 0 {
			lookback = d.DefaultLookback
		}
		sb := sandbox.New(lookback)
		signals, err := sb.Run(task.Code, task.Candles, task.Params)
		if err != nil {
			res.Err = err
			d.publishTaskEvent(events.EventTaskFailed, task.ID, err.Error())
			return res
		}
		res.Signals = signals
		d.publishTaskEvent(events.EventTaskCompleted, task.ID, "")
		return res

	case KindTrainRL:
		res.Training, res.Err = d.train(task)
		if res.Err != nil {
			d.publishTaskEvent(events.EventTaskFailed, task.ID, res.Err.Error())
		} else {
			d.publishTaskEvent(events.EventTaskCompleted, task.ID, "")
		}
		return res

	default:
		res.Err = fmt.Errorf("unknown task kind %q", task.Kind)
		return res
	}
}

func (d *Dispatcher) train(task Task) (*rl.Result, error) {
	if len(task.Candles) == 0 {
		return nil, errors.New("no candles supplied for training")
	}

	cfg := rl.DefaultConfig()
	if task.RL != nil {
		cfg = *task.RL
	}

	var env tradeapi.Environment
	if task.CustomEnvCode != "" {
		loaded, err := rl.LoadEnvironment(task.CustomEnvCode, task.Candles)
		if err != nil {
			// Custom environment failures are not fatal; fall back.
			log.Printf("task %s: custom environment rejected, using default: %v", task.ID, err)
		} else {
			env = loaded
		}
	}
	if env == nil {
		env = rl.NewDefaultEnvironment(task.Candles, cfg.FastPeriod, cfg.SlowPeriod)
	}

	stateSize := len(env.Reset())
	if stateSize == 0 {
		return nil, errors.New("environment produced an empty state")
	}

	trainer := rl.NewTrainer(cfg, env, stateSize, len(task.Candles)+100)
	trainer.OnEpisode = func(stats rl.EpisodeStats) {
		if task.OnEpisode != nil {
			task.OnEpisode(stats)
		}
		if d.Bus != nil {
			d.Bus.Publish(events.EventTrainingEpisode, struct {
				TaskID string `json:"taskId"`
				rl.EpisodeStats
			}{task.ID, stats})
			d.Bus.Publish(events.TaskTopic(events.EventTrainingEpisode, task.ID), stats)
		}
	}
	return trainer.Train()
}

func (d *Dispatcher) publishTaskEvent(e events.Event, taskID, msg string) {
	if d.Bus == nil {
		return
	}
	d.Bus.Publish(e, struct {
		TaskID string `json:"taskId"`
		Error  string `json:"error,omitempty"`
	}{taskID, msg})
}
