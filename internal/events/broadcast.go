package events

import (
	"sync"
)

// Broadcaster fans every event out to all current subscribers, in the order
// Emit was called. A subscriber whose buffer is full is dropped so it can
// never reorder or stall delivery to the others.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	buffer int
}

// Subscription is one receiver of broadcast events.
type Subscription struct {
	ch     chan Event
	b      *Broadcaster
	closed bool
}

// NewBroadcaster creates a Broadcaster whose subscribers buffer up to buffer events.
func NewBroadcaster(buffer int) *Broadcaster {
	if buffer <= 0 {
		buffer = 1024
	}
	return &Broadcaster{
		subs:   make(map[*Subscription]struct{}),
		buffer: buffer,
	}
}

// Subscribe registers a new receiver.
func (b *Broadcaster) Subscribe() *Subscription {
	s := &Subscription{ch: make(chan Event, b.buffer), b: b}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return s
}

func (b *Broadcaster) Emit(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.subs {
		select {
		case s.ch <- e:
		default:
			// Slow consumer.
			b.removeLocked(s)
		}
	}
}

// Len returns the number of live subscribers.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// CloseAll drops every subscriber.
func (b *Broadcaster) CloseAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.subs {
		b.removeLocked(s)
	}
}

func (b *Broadcaster) removeLocked(s *Subscription) {
	if s.closed {
		return
	}
	s.closed = true
	delete(b.subs, s)
	close(s.ch)
}

// C returns the receive channel. It is closed when the subscription ends.
func (s *Subscription) C() <-chan Event {
	return s.ch
}

// Close unsubscribes.
func (s *Subscription) Close() {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.b.removeLocked(s)
}
