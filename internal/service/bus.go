package service

import "sync"

// Event kinds.
const (
	KindDataset = "dataset"
	KindGrid    = "grid"
	KindSession = "session"
)

// Event reports a data load or a session change.
type Event struct {
	Kind   string `json:"kind"`   // dataset, grid, session
	ID     string `json:"id"`     // dataset or session ID
	Action string `json:"action"` // loaded, created, expired
	Count  int    `json:"count"`  // features or layers loaded
}

// EventBus is a simple fan-out pub/sub for explorer events.
type EventBus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

// NewEventBus creates a new event bus.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[chan Event]struct{})}
}

// Publish sends an event to all subscribers (non-blocking).
func (b *EventBus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			// subscriber too slow, skip
		}
	}
}

// Subscribe returns a buffered channel that receives events.
func (b *EventBus) Subscribe() chan Event {
	ch := make(chan Event, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *EventBus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
	close(ch)
}

// OnLoad adapts the bus to a feature.Loader hook.
func (b *EventBus) OnLoad(kind, id string, count int) {
	b.Publish(Event{Kind: kind, ID: id, Action: "loaded", Count: count})
}
