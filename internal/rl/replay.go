package rl

import "math/rand"

// Transition is one unit of experience.
type Transition struct {
	State     []float64
	Action    int
	Reward    float64
	NextState []float64
	Done      bool
}

// ReplayBuffer is a fixed-capacity circular store of transitions, evicting
// the oldest entry once full.
type ReplayBuffer struct {
	buf  []Transition
	next int
	full bool
}

func NewReplayBuffer(capacity int) *ReplayBuffer {
	if capacity <= 0 {
		capacity = 1000
	}
	return &ReplayBuffer{buf: make([]Transition, capacity)}
}

func (b *ReplayBuffer) Add(t Transition) {
	b.buf[b.next] = t
	b.next++
	if b.next == len(b.buf) {
		b.next = 0
		b.full = true
	}
}

func (b *ReplayBuffer) Len() int {
	if b.full {
		return len(b.buf)
	}
	return b.next
}

// Sample draws n transitions uniformly at random without replacement.
// Callers must not ask for more than Len().
func (b *ReplayBuffer) Sample(n int, rng *rand.Rand) []Transition {
	size := b.Len()
	out := make([]Transition, 0, n)
	for _, idx := range rng.Perm(size)[:n] {
		out = append(out, b.buf[idx])
	}
	return out
}
