package broadcast

import "sync"

// DefaultHistorySize is the number of events a Bus retains.
const DefaultHistorySize = 100

// Publisher accepts events for delivery. Publish never fails from the
// caller's point of view; delivery problems are the publisher's concern.
type Publisher interface {
	Publish(e Event)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(e Event)

// Publish implements Publisher.
func (f PublisherFunc) Publish(e Event) { f(e) }

// Bus is the in-process fan-out publisher.
//
// Subscribers are called synchronously, in subscription order, on the
// publishing goroutine. Subscribers must not block; a display that needs
// to do I/O should hand the event to its own goroutine.
//
// Thread-safety: Bus is safe for concurrent use. The engine publishes from
// one goroutine while display handlers read history from others.
type Bus struct {
	mu      sync.RWMutex
	subs    []subscription
	nextID  int
	history []Event
	limit   int
}

type subscription struct {
	id int
	fn func(Event)
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithHistorySize sets how many events the bus retains.
// Values below 1 are ignored.
func WithHistorySize(n int) BusOption {
	return func(b *Bus) {
		if n > 0 {
			b.limit = n
		}
	}
}

// NewBus creates an empty bus.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{limit: DefaultHistorySize}
	for _, opt := range opts {
		opt(b)
	}
	b.history = make([]Event, 0, b.limit)
	return b
}

// Publish records the event and delivers it to every subscriber.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	if len(b.history) == b.limit {
		// Shift in place so the backing array never grows past limit.
		copy(b.history, b.history[1:])
		b.history[len(b.history)-1] = e
	} else {
		b.history = append(b.history, e)
	}
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		s.fn(e)
	}
}

// Subscribe registers fn for every future event.
// The returned function removes the subscription; calling it twice is safe.
func (b *Bus) Subscribe(fn func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.subs = append(b.subs, subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subs {
				if s.id == id {
					b.subs = append(b.subs[:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// SubscriberCount returns the number of active subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// LastEvent returns the most recent retained event of a type.
func (b *Bus) LastEvent(t EventType) (Event, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for i := len(b.history) - 1; i >= 0; i-- {
		if b.history[i].Type == t {
			return b.history[i], true
		}
	}
	return Event{}, false
}

// Recent returns up to n of the most recent retained events of a type,
// oldest first. An empty type matches every event.
func (b *Bus) Recent(t EventType, n int) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []Event
	for i := len(b.history) - 1; i >= 0 && len(out) < n; i-- {
		if t == "" || b.history[i].Type == t {
			out = append(out, b.history[i])
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// History returns a copy of every retained event, oldest first.
func (b *Bus) History() []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Event, len(b.history))
	copy(out, b.history)
	return out
}

// Snapshot returns what a late-joining display needs to render: the latest
// athlete_up followed by the latest attempt_order_update, when present.
func (b *Bus) Snapshot() []Event {
	var out []Event
	if e, ok := b.LastEvent(AthleteUp); ok {
		out = append(out, e)
	}
	if e, ok := b.LastEvent(AttemptOrderUpdate); ok {
		out = append(out, e)
	}
	return out
}

// Tee publishes every event to each publisher in order.
func Tee(publishers ...Publisher) Publisher {
	return PublisherFunc(func(e Event) {
		for _, p := range publishers {
			p.Publish(e)
		}
	})
}

// Discard is a Publisher that drops every event.
var Discard Publisher = PublisherFunc(func(Event) {})
