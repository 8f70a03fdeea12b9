package events_test

import (
	"sync"
	"testing"
	"time"

	"pulse/internal/events"
)

func TestBusDeliversInPublishOrder(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()

	var mu sync.Mutex
	var got []int
	bus.Subscribe(events.KindTimerTick, func(e events.Event) {
		mu.Lock()
		got = append(got, e.Seconds)
		mu.Unlock()
	})

	for i := 10; i > 0; i-- {
		bus.Publish(events.Event{Kind: events.KindTimerTick, Seconds: i})
	}
	bus.Sync()

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 10 {
		t.Fatalf("expected 10 events, got %d", len(got))
	}
	for i, seconds := range got {
		if seconds != 10-i {
			t.Fatalf("event %d out of order: %v", i, got)
		}
	}
}

func TestBusSubscribeReplacesHandler(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()

	first, second := 0, 0
	bus.Subscribe(events.KindNewDay, func(events.Event) { first++ })
	bus.Subscribe(events.KindNewDay, func(events.Event) { second++ })

	bus.Publish(events.Event{Kind: events.KindNewDay})
	bus.Sync()

	if first != 0 || second != 1 {
		t.Fatalf("expected only the latest handler to run, got first=%d second=%d", first, second)
	}
}

func TestBusHandlerMayPublish(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()

	done := make(chan struct{})
	bus.Subscribe(events.KindWorkSessionEnded, func(events.Event) {
		bus.Publish(events.Event{Kind: events.KindBreakEnded})
	})
	bus.Subscribe(events.KindBreakEnded, func(events.Event) { close(done) })

	bus.Publish(events.Event{Kind: events.KindWorkSessionEnded})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("nested publish was not delivered")
	}
}

func TestBusWatch(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()

	ch, cancel := bus.Watch(4)
	bus.Publish(events.Event{Kind: events.KindSnoozeEnded})

	select {
	case e := <-ch:
		if e.Kind != events.KindSnoozeEnded {
			t.Fatalf("unexpected kind %s", e.Kind)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not receive event")
	}

	cancel()
	if _, ok := <-ch; ok {
		t.Fatal("expected watcher channel to be closed")
	}
	cancel()
}
