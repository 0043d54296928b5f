// Package events provides the in-process pub/sub bus carrying price
// updates, checkpoint and migration notifications to feed subscribers.
package events

import (
	"sync"

	"github.com/nervelabs/nerve/pkg/market"
)

// subscriberBuffer bounds each subscriber channel. A subscriber whose
// buffer is full is considered dead and removed on the next publish.
const subscriberBuffer = 64

// Bus fans events out to subscribers. Publishing never blocks.
type Bus struct {
	mu   sync.Mutex
	subs map[int]chan market.Event
	next int
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan market.Event)}
}

// Subscribe registers a new subscriber. The returned cancel func must be
// called when the consumer goes away; the channel is closed by the bus.
func (b *Bus) Subscribe() (<-chan market.Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	ch := make(chan market.Event, subscriberBuffer)
	b.subs[id] = ch
	return ch, func() { b.unsubscribe(id) }
}

func (b *Bus) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// Publish delivers an event to every live subscriber. Subscribers that
// cannot keep up are dropped rather than back-pressuring the publisher.
func (b *Bus) Publish(ev market.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			delete(b.subs, id)
			close(ch)
		}
	}
}

// SubscriberCount returns the number of live subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
