package rl

import (
	"math"
	"math/rand"
	"time"

	"backtest-core/internal/tradeapi"
)

// Config holds the trainer hyperparameters.
type Config struct {
	Episodes     int     `json:"episodes" yaml:"episodes"`
	Gamma        float64 `json:"gamma" yaml:"gamma"`
	Epsilon      float64 `json:"epsilon" yaml:"epsilon"`
	EpsilonDecay float64 `json:"epsilonDecay" yaml:"epsilon_decay"`
	EpsilonMin   float64 `json:"epsilonMin" yaml:"epsilon_min"`
	LearningRate float64 `json:"learningRate" yaml:"learning_rate"`
	HiddenSize   int     `json:"hiddenSize" yaml:"hidden_size"`
	BatchSize    int     `json:"batchSize" yaml:"batch_size"`
	BufferSize   int     `json:"bufferSize" yaml:"buffer_size"`
	FastPeriod   int     `json:"fastPeriod" yaml:"fast_period"`
	SlowPeriod   int     `json:"slowPeriod" yaml:"slow_period"`
	Seed         int64   `json:"seed" yaml:"seed"`
}

// DefaultConfig returns sane trainer defaults.
func DefaultConfig() Config {
	return Config{
		Episodes:     50,
		Gamma:        0.95,
		Epsilon:      1.0,
		EpsilonDecay: 0.995,
		EpsilonMin:   0.01,
		LearningRate: 0.001,
		HiddenSize:   24,
		BatchSize:    32,
		BufferSize:   2000,
		FastPeriod:   5,
		SlowPeriod:   20,
	}
}

// merged fills zero-valued fields from defaults.
func (c Config) merged() Config {
	d := DefaultConfig()
	if c.Episodes <= 0 {
		c.Episodes = d.Episodes
	}
	if c.Gamma == 0 {
		c.Gamma = d.Gamma
	}
	if c.Epsilon == 0 {
		c.Epsilon = d.Epsilon
	}
	if c.EpsilonDecay == 0 {
		c.EpsilonDecay = d.EpsilonDecay
	}
	if c.EpsilonMin == 0 {
		c.EpsilonMin = d.EpsilonMin
	}
	if c.LearningRate == 0 {
		c.LearningRate = d.LearningRate
	}
	if c.HiddenSize <= 0 {
		c.HiddenSize = d.HiddenSize
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.BufferSize <= 0 {
		c.BufferSize = d.BufferSize
	}
	if c.FastPeriod <= 0 {
		c.FastPeriod = d.FastPeriod
	}
	if c.SlowPeriod <= 0 {
		c.SlowPeriod = d.SlowPeriod
	}
	return c
}

// EpisodeStats is one progress record, emitted every fifth episode and for
// the final one.
type EpisodeStats struct {
	Episode     int     `json:"episode"`
	TotalReward float64 `json:"totalReward"` // rescaled back up for display
	Epsilon     float64 `json:"epsilon"`
	WinRate     float64 `json:"winRate"`
	Progress    float64 `json:"progressPercent"`
}

// Result is the final training artifact.
type Result struct {
	History    []EpisodeStats `json:"history"`
	PolicyCode string         `json:"exportedPolicyCode"`
	Weights    Weights        `json:"-"`
}

// Trainer runs Q-learning with experience replay against an environment.
// One trainer owns its network, buffer and RNG exclusively.
type Trainer struct {
	cfg     Config
	env     tradeapi.Environment
	net     *Network
	buffer  *ReplayBuffer
	rng     *rand.Rand
	epsilon float64
	stepCap int

	// OnEpisode, when set, receives each emitted progress record.
	OnEpisode func(EpisodeStats)
}

// NewTrainer wires a trainer for the given environment. stateSize is the
// environment's feature vector length; stepCap bounds one episode's steps
// (the caller passes series length + 100).
func NewTrainer(cfg Config, env tradeapi.Environment, stateSize, stepCap int) *Trainer {
	cfg = cfg.merged()
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	return &Trainer{
		cfg:     cfg,
		env:     env,
		net:     NewNetwork(stateSize, cfg.HiddenSize, 3, rng),
		buffer:  NewReplayBuffer(cfg.BufferSize),
		rng:     rng,
		epsilon: cfg.Epsilon,
		stepCap: stepCap,
	}
}

// SelectAction is epsilon-greedy over the network's Q-values.
func (t *Trainer) SelectAction(state []float64) int {
	if t.rng.Float64() < t.epsilon {
		return t.rng.Intn(3)
	}
	return argmax(t.net.Predict(state))
}

// Learn performs one replay step. It is a strict no-op, returning zero
// loss and touching no weights, until the buffer holds a full batch.
// There is no separate target network: the same net produces both the
// prediction and the Bellman target. Changing that changes trained
// policies, so it stays.
func (t *Trainer) Learn() float64 {
	if t.buffer.Len() < t.cfg.BatchSize {
		return 0
	}

	batch := t.buffer.Sample(t.cfg.BatchSize, t.rng)
	states := make([][]float64, len(batch))
	dZ2 := make([][]float64, len(batch))
	loss := 0.0

	for i, tr := range batch {
		q := t.net.Predict(tr.State)
		target := tr.Reward
		if !tr.Done {
			target += t.cfg.Gamma * maxOf(t.net.Predict(tr.NextState))
		}
		if math.IsNaN(target) || math.IsInf(target, 0) {
			target = 0
		}

		// Only the taken action's slot differs from the prediction, so
		// only it contributes gradient.
		diff := q[tr.Action] - target
		loss += diff * diff

		d := make([]float64, len(q))
		d[tr.Action] = diff
		states[i] = tr.State
		dZ2[i] = d
	}

	t.net.Backward(states, dZ2, t.cfg.LearningRate)
	return loss / float64(len(batch))
}

// Train runs the full training loop and returns history plus the exported
// policy.
func (t *Trainer) Train() (*Result, error) {
	res := &Result{}

	for ep := 0; ep < t.cfg.Episodes; ep++ {
		state := t.env.Reset()
		total := 0.0
		wins := 0
		trades := 0

		for step := 0; step < t.stepCap; step++ {
			action := t.SelectAction(state)
			next, reward, done := t.env.Step(action)

			t.buffer.Add(Transition{
				State:     state,
				Action:    action,
				Reward:    reward,
				NextState: next,
				Done:      done,
			})
			t.Learn()

			total += reward
			if action != ActionHold {
				trades++
			}
			if reward > 0 {
				wins++
			}

			state = next
			if done {
				break
			}
		}

		t.epsilon *= t.cfg.EpsilonDecay
		if t.epsilon < t.cfg.EpsilonMin {
			t.epsilon = t.cfg.EpsilonMin
		}

		last := ep == t.cfg.Episodes-1
		if (ep+1)%5 == 0 || last {
			winRate := 0.0
			if trades > 0 {
				winRate = float64(wins) / float64(trades)
			}
			stats := EpisodeStats{
				Episode:     ep + 1,
				TotalReward: total * rewardScale,
				Epsilon:     t.epsilon,
				WinRate:     winRate,
				Progress:    float64(ep+1) / float64(t.cfg.Episodes) * 100,
			}
			res.History = append(res.History, stats)
			if t.OnEpisode != nil {
				t.OnEpisode(stats)
			}
		}
	}

	res.Weights = t.net.Snapshot()
	res.PolicyCode = ExportPolicy(res.Weights)
	return res, nil
}

func argmax(q []float64) int {
	best := 0
	for i := 1; i < len(q); i++ {
		if q[i] > q[best] {
			best = i
		}
	}
	return best
}

func maxOf(q []float64) float64 {
	m := q[0]
	for _, v := range q[1:] {
		if v > m {
			m = v
		}
	}
	if math.IsNaN(m) || math.IsInf(m, 0) {
		return 0
	}
	return m
}
