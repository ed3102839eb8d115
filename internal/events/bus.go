package events

import "sync"

// Bus is the in-process broker carrying task and training progress from
// workers to API consumers. Delivery is best-effort: a subscriber that
// stops draining loses messages rather than stalling a worker.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	topics map[Event]map[int]chan any
}

func NewBus() *Bus {
	return &Bus{topics: make(map[Event]map[int]chan any)}
}

// Subscribe opens a buffered stream for one topic. The returned function
// removes the subscription and closes the stream; it is safe to call more
// than once.
func (b *Bus) Subscribe(e Event, buffer int) (<-chan any, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan any, buffer)
	if b.topics[e] == nil {
		b.topics[e] = make(map[int]chan any)
	}
	id := b.nextID
	b.nextID++
	b.topics[e][id] = ch

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.topics[e], id)
			close(ch)
		})
	}
	return ch, unsub
}

// Publish fans payload out to the topic's current subscribers. A full
// subscriber buffer drops the message for that subscriber only.
func (b *Bus) Publish(e Event, payload any) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.topics[e] {
		select {
		case ch <- payload:
		default:
		}
	}
}
