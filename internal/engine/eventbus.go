package engine

import (
	"context"
	"sync"
	"time"
)

type EventType string

const (
	EventInstanceStarted      EventType = "instance.started"
	EventInstanceTransitioned EventType = "instance.transitioned"
	EventInstanceCompleted    EventType = "instance.completed"
)

// Event describes one change to an instance. FromState, ToState and the
// transition fields are empty for EventInstanceStarted.
type Event struct {
	Type           EventType `json:"type"`
	InstanceID     string    `json:"instance_id"`
	DefinitionID   string    `json:"definition_id"`
	TransitionID   string    `json:"transition_id,omitempty"`
	TransitionName string    `json:"transition_name,omitempty"`
	FromState      string    `json:"from_state,omitempty"`
	ToState        string    `json:"to_state"`
	Timestamp      time.Time `json:"timestamp"`
}

type EventHandler func(Event)

// EventBus fans events out to subscribers synchronously, in subscription
// order.
type EventBus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]EventHandler
	order    []int
}

func NewEventBus() *EventBus {
	return &EventBus{handlers: make(map[int]EventHandler)}
}

// Subscribe registers handler and returns a function that removes it.
func (b *EventBus) Subscribe(handler EventHandler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = handler
	b.order = append(b.order, id)
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers, id)
		for i, v := range b.order {
			if v == id {
				b.order = append(b.order[:i], b.order[i+1:]...)
				break
			}
		}
	}
}

func (b *EventBus) Publish(event Event) {
	b.mu.RLock()
	handlers := make([]EventHandler, 0, len(b.order))
	for _, id := range b.order {
		handlers = append(handlers, b.handlers[id])
	}
	b.mu.RUnlock()
	for _, h := range handlers {
		h(event)
	}
}

// Channel subscribes a buffered channel that is closed when ctx ends. Events
// are dropped when the buffer is full.
func (b *EventBus) Channel(ctx context.Context, bufSize int) <-chan Event {
	ch := make(chan Event, bufSize)
	var mu sync.Mutex
	closed := false
	unsubscribe := b.Subscribe(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- e:
		default:
		}
	})
	go func() {
		<-ctx.Done()
		unsubscribe()
		mu.Lock()
		closed = true
		close(ch)
		mu.Unlock()
	}()
	return ch
}
