package events

import "testing"

func TestPublishSubscribe(t *testing.T) {
	bus := NewBus()
	ch, unsub := bus.Subscribe(EventBatchProgress, 4)
	defer unsub()

	bus.Publish(EventBatchProgress, 1)
	bus.Publish(EventTaskCompleted, "wrong topic")

	select {
	case got := <-ch:
		if got != 1 {
			t.Fatalf("received %v, expected 1", got)
		}
	default:
		t.Fatal("no message delivered")
	}
	select {
	case got := <-ch:
		t.Fatalf("received %v from an unsubscribed topic", got)
	default:
	}
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	bus := NewBus()
	ch, unsub := bus.Subscribe(EventTrainingEpisode, 1)
	defer unsub()

	// Second publish overflows the buffer and must be dropped, not block.
	bus.Publish(EventTrainingEpisode, "a")
	bus.Publish(EventTrainingEpisode, "b")

	if got := <-ch; got != "a" {
		t.Fatalf("received %v, expected the first message", got)
	}
	select {
	case got := <-ch:
		t.Fatalf("received %v, expected the overflow to be dropped", got)
	default:
	}
}

func TestUnsubscribeClosesStream(t *testing.T) {
	bus := NewBus()
	ch, unsub := bus.Subscribe(EventTaskFailed, 1)

	unsub()
	unsub() // idempotent

	if _, open := <-ch; open {
		t.Fatal("stream still open after unsubscribe")
	}
	bus.Publish(EventTaskFailed, "late") // must not panic on a closed stream
}

func TestTaskTopic(t *testing.T) {
	got := TaskTopic(EventTrainingEpisode, "abc-123")
	if got != Event("training.episode:abc-123") {
		t.Fatalf("TaskTopic=%q", got)
	}
}
