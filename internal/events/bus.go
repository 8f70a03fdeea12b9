// Package events delivers engine and scheduler notifications to subscribers.
// Publish never blocks; a single goroutine delivers events in publish order,
// so handlers never run under the publisher's locks.
package events

import (
	"sync"
	"time"

	"pulse/internal/model"
)

type Kind string

const (
	KindPromptTriggered  Kind = "prompt_triggered"
	KindNewDay           Kind = "new_day"
	KindTimerTick        Kind = "timer_tick"
	KindWorkSessionEnded Kind = "work_session_ended"
	KindBreakEnded       Kind = "break_ended"
	KindSnoozeEnded      Kind = "snooze_ended"
	KindBreakSnoozeEnded Kind = "break_snooze_ended"
)

type Event struct {
	Kind    Kind                   `json:"kind"`
	At      time.Time              `json:"at"`
	Seconds int                    `json:"seconds"`
	Phase   model.Phase            `json:"phase,omitempty"`
	Session *model.PomodoroSession `json:"session,omitempty"`

	barrier chan struct{}
}

type Handler func(Event)

type Bus struct {
	mu       sync.Mutex
	queue    []Event
	handlers map[Kind]Handler
	watchers map[int]chan Event
	nextID   int
	closed   bool

	notify chan struct{}
	done   chan struct{}
}

func NewBus() *Bus {
	b := &Bus{
		handlers: make(map[Kind]Handler),
		watchers: make(map[int]chan Event),
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go b.run()
	return b
}

// Subscribe registers the handler for kind, replacing any previous one.
func (b *Bus) Subscribe(kind Kind, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if h == nil {
		delete(b.handlers, kind)
		return
	}
	b.handlers[kind] = h
}

func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.queue = append(b.queue, e)
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}
}

// Watch returns a channel receiving a copy of every event. Slow watchers drop
// events rather than stall delivery. The returned func detaches the watcher.
func (b *Bus) Watch(buffer int) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.watchers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if w, ok := b.watchers[id]; ok {
				delete(b.watchers, id)
				close(w)
			}
		})
	}
}

// Sync blocks until every event published before the call was delivered.
func (b *Bus) Sync() {
	barrier := make(chan struct{})
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.queue = append(b.queue, Event{barrier: barrier})
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}
	select {
	case <-barrier:
	case <-b.done:
	}
}

func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.done)
	for id, w := range b.watchers {
		delete(b.watchers, id)
		close(w)
	}
}

func (b *Bus) run() {
	for {
		select {
		case <-b.notify:
		case <-b.done:
			return
		}
		b.drain()
	}
}

func (b *Bus) drain() {
	for {
		b.mu.Lock()
		if len(b.queue) == 0 || b.closed {
			b.mu.Unlock()
			return
		}
		e := b.queue[0]
		b.queue = b.queue[1:]
		if e.barrier != nil {
			b.mu.Unlock()
			close(e.barrier)
			continue
		}
		h := b.handlers[e.Kind]
		for _, w := range b.watchers {
			select {
			case w <- e:
			default:
			}
		}
		b.mu.Unlock()

		if h != nil {
			h(e)
		}
	}
}
