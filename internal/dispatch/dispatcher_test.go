package dispatch

import (
	"fmt"
	"strings"
	"testing"

	"backtest-core/internal/events"
	"backtest-core/internal/market"
	"backtest-core/internal/rl"
)

const quietStrategy = `
import "tradeapi"

func OnTick(candles []tradeapi.Candle) {}
`

const buyEveryBar = `
import "tradeapi"

func OnTick(candles []tradeapi.Candle, ctx *tradeapi.Context) {
	ctx.Order("BUY", 1, nil, "every bar")
}
`

func strategyTasks(n int) []Task {
	candles := market.GenerateSeries(1, 10, market.SyntheticConfig{})
	tasks := make([]Task, n)
	for i := range tasks {
		tasks[i] = Task{
			ID:      fmt.Sprintf("task-%d", i),
			Kind:    KindRunStrategy,
			Candles: candles,
			Code:    buyEveryBar,
		}
	}
	return tasks
}

func TestRunPreservesOrder(t *testing.T) {
	d := New(nil, 50)
	tasks := strategyTasks(5)

	results := d.Run(tasks, 2, nil, nil)
	if len(results) != 5 {
		t.Fatalf("got %d results, expected 5", len(results))
	}
	for i, res := range results {
		if res.TaskID != tasks[i].ID {
			t.Fatalf("slot %d holds %q, expected %q", i, res.TaskID, tasks[i].ID)
		}
		if res.Err != nil {
			t.Fatalf("task %d failed: %v", i, res.Err)
		}
		if len(res.Signals) != 10 {
			t.Fatalf("task %d produced %d signals, expected 10", i, len(res.Signals))
		}
	}
}

func TestRunIsolatesFailures(t *testing.T) {
	d := New(nil, 50)
	tasks := strategyTasks(5)
	tasks[2].Code = `func OnTick(` // load error

	var progress []int
	onProgress := func(completed, total int) {
		if total != 5 {
			t.Errorf("total=%d, expected 5", total)
		}
		progress = append(progress, completed)
	}

	results := d.Run(tasks, 2, onProgress, nil)

	if results[2].Err == nil {
		t.Fatal("broken task reported no error")
	}
	for i, res := range results {
		if i == 2 {
			continue
		}
		if res.Err != nil {
			t.Fatalf("healthy task %d failed: %v", i, res.Err)
		}
	}

	// Progress fires once per task, failures included, counting up.
	if len(progress) != 5 {
		t.Fatalf("onProgress fired %d times, expected 5", len(progress))
	}
	for i, p := range progress {
		if p != i+1 {
			t.Fatalf("progress sequence %v is not monotonic", progress)
		}
	}
}

func TestRunCooperativeCancellation(t *testing.T) {
	d := New(nil, 50)
	tasks := strategyTasks(5)

	canceled := false
	onProgress := func(completed, total int) {
		if completed >= 2 {
			canceled = true
		}
	}
	shouldCancel := func() bool { return canceled }

	// One worker makes the interleaving deterministic: two tasks finish,
	// then the flag is observed before the third claim.
	results := d.Run(tasks, 1, onProgress, shouldCancel)

	if len(results) != 5 {
		t.Fatalf("got %d results, expected one per submitted task", len(results))
	}
	done, skipped := 0, 0
	for i, res := range results {
		switch res.Err {
		case nil:
			done++
		case ErrCanceled:
			skipped++
		default:
			t.Fatalf("task %d: unexpected error %v", i, res.Err)
		}
		if res.TaskID != tasks[i].ID {
			t.Fatalf("slot %d holds %q, expected %q", i, res.TaskID, tasks[i].ID)
		}
	}
	if done != 2 || skipped != 3 {
		t.Fatalf("done=%d skipped=%d, expected 2 completed and 3 canceled", done, skipped)
	}
}

func TestRunUnknownKind(t *testing.T) {
	d := New(nil, 50)
	results := d.Run([]Task{{ID: "x", Kind: Kind("NOPE")}}, 1, nil, nil)
	if results[0].Err == nil {
		t.Fatal("unknown kind accepted")
	}
}

func TestRunEmptyBatch(t *testing.T) {
	if got := New(nil, 50).Run(nil, 4, nil, nil); len(got) != 0 {
		t.Fatalf("empty batch produced %d results", len(got))
	}
}

func TestTrainTask(t *testing.T) {
	d := New(events.NewBus(), 50)
	cfg := rl.Config{Episodes: 5, BatchSize: 4, BufferSize: 64, Seed: 2}

	var episodes []rl.EpisodeStats
	task := Task{
		ID:        "train-1",
		Kind:      KindTrainRL,
		Candles:   market.GenerateSeries(3, 40, market.SyntheticConfig{}),
		RL:        &cfg,
		OnEpisode: func(s rl.EpisodeStats) { episodes = append(episodes, s) },
	}

	results := d.Run([]Task{task}, 1, nil, nil)
	res := results[0]
	if res.Err != nil {
		t.Fatalf("training task failed: %v", res.Err)
	}
	if res.Training == nil || res.Training.PolicyCode == "" {
		t.Fatal("no training artifact produced")
	}
	if len(episodes) == 0 {
		t.Fatal("no per-episode records delivered")
	}
	if last := episodes[len(episodes)-1]; last.Episode != cfg.Episodes {
		t.Fatalf("last record for episode %d, expected %d", last.Episode, cfg.Episodes)
	}
}

func TestTrainTaskRejectsEmptySeries(t *testing.T) {
	d := New(nil, 50)
	res := d.Run([]Task{{ID: "empty", Kind: KindTrainRL}}, 1, nil, nil)[0]
	if res.Err == nil {
		t.Fatal("training with no candles reported no error")
	}
	// A validation error, not a contained panic.
	if strings.Contains(res.Err.Error(), "panic") {
		t.Fatalf("empty series surfaced as a panic: %v", res.Err)
	}
	if !strings.Contains(res.Err.Error(), "no candles") {
		t.Fatalf("unexpected error: %v", res.Err)
	}
}

func TestTrainTaskCustomEnvFallback(t *testing.T) {
	d := New(nil, 50)
	cfg := rl.Config{Episodes: 2, BatchSize: 4, BufferSize: 64, Seed: 2}
	task := Task{
		ID:            "train-2",
		Kind:          KindTrainRL,
		Candles:       market.GenerateSeries(3, 30, market.SyntheticConfig{}),
		RL:            &cfg,
		CustomEnvCode: `func NewEnvironment(`, // broken: falls back to the default env
	}

	res := d.Run([]Task{task}, 1, nil, nil)[0]
	if res.Err != nil {
		t.Fatalf("fallback did not rescue the task: %v", res.Err)
	}
	if res.Training == nil {
		t.Fatal("no training result after fallback")
	}
}

func TestRunStrategyTaskDefaultsLookback(t *testing.T) {
	d := New(nil, 3)
	candles := market.GenerateSeries(1, 6, market.SyntheticConfig{})
	probe := `
import (
	"sandboxapi"
	"tradeapi"
)

func OnTick(candles []tradeapi.Candle) {
	sandboxapi.Order("BUY", float64(len(candles)), nil, "")
}
`
	res := d.Run([]Task{{ID: "t", Kind: KindRunStrategy, Candles: candles, Code: probe}}, 1, nil, nil)[0]
	if res.Err != nil {
		t.Fatalf("task failed: %v", res.Err)
	}
	for _, sig := range res.Signals {
		if sig.Size > 3 {
			t.Fatalf("window grew to %v bars, dispatcher default lookback 3 not applied", sig.Size)
		}
	}
}
