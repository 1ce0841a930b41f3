// Package broadcast fans occupancy and queue state-change events out to
// all currently connected observers. The broadcaster is a process-scoped
// registry created at service start and injected into every component
// that publishes; publishing is fire-and-forget and never fails the
// triggering operation.
package broadcast

import (
	"encoding/json"
	"log"
	"sync"
)

// Event kinds carried on the bus.
const (
	EventSlotOccupied = "slot_occupied"
	EventSlotReleased = "slot_released"
	EventQueueChanged = "queue_changed"
)

// Event is one state-change notification. On the wire it is flattened
// to {"event": <kind>, ...payload}.
type Event struct {
	Kind    string
	Payload map[string]any
}

// MarshalJSON flattens the payload next to the event kind.
func (e Event) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Payload)+1)
	for k, v := range e.Payload {
		out[k] = v
	}
	out["event"] = e.Kind
	return json.Marshal(out)
}

// Subscription is one observer's handle on the broadcaster. Events
// arrive on C; Done is closed when the subscription is removed, either
// by Close or because the observer could not keep up.
type Subscription struct {
	C    chan Event
	done chan struct{}
	once sync.Once
	b    *Broadcaster
}

// Done reports subscription removal.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Close removes the subscription. Safe to call multiple times.
func (s *Subscription) Close() {
	s.b.Unsubscribe(s)
}

// Broadcaster is a concurrency-safe observer registry.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	buffer int
}

// New creates an empty broadcaster.
func New() *Broadcaster {
	return &Broadcaster{
		subs:   make(map[*Subscription]struct{}),
		buffer: 16,
	}
}

// Subscribe registers a new observer.
func (b *Broadcaster) Subscribe() *Subscription {
	s := &Subscription{
		C:    make(chan Event, b.buffer),
		done: make(chan struct{}),
		b:    b,
	}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return s
}

// Unsubscribe removes an observer. Idempotent.
func (b *Broadcaster) Unsubscribe(s *Subscription) {
	b.mu.Lock()
	delete(b.subs, s)
	b.mu.Unlock()
	s.once.Do(func() { close(s.done) })
}

// Len returns the number of current subscribers.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Publish fans an event out to every subscriber, best-effort. The
// subscriber set is snapshotted under the lock and sends happen outside
// it, so a slow broadcast never blocks new subscriptions. A subscriber
// whose buffer is full is dropped rather than waited on.
func (b *Broadcaster) Publish(kind string, payload map[string]any) {
	b.mu.Lock()
	snapshot := make([]*Subscription, 0, len(b.subs))
	for s := range b.subs {
		snapshot = append(snapshot, s)
	}
	b.mu.Unlock()

	ev := Event{Kind: kind, Payload: payload}
	var dead []*Subscription
	for _, s := range snapshot {
		select {
		case s.C <- ev:
		default:
			dead = append(dead, s)
		}
	}

	for _, s := range dead {
		log.Printf("broadcast: dropping subscriber that cannot keep up (event %s)", kind)
		b.Unsubscribe(s)
	}
}

// Close removes all subscribers. Used at shutdown.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	subs := make([]*Subscription, 0, len(b.subs))
	for s := range b.subs {
		subs = append(subs, s)
	}
	b.subs = make(map[*Subscription]struct{})
	b.mu.Unlock()

	for _, s := range subs {
		s.once.Do(func() { close(s.done) })
	}
}
