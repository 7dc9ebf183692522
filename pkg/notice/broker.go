// Package notice delivers non-fatal notices, such as registry version
// upgrades, to interested subscribers.
package notice

import (
	"fmt"
	"sync"
)

// DefaultHistory is the number of notices a broker retains.
const DefaultHistory = 100

// Broker fans notices out to subscriber channels and keeps a history.
// subscribers maps subscriber IDs to the channels receiving notices.
type Broker struct {
	subscribers map[string]chan<- Notice
	history     *History
	mu          sync.RWMutex
}

// NewBroker creates a new notice broker.
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[string]chan<- Notice),
		history:     NewHistory(DefaultHistory),
	}
}

// Publish records a notice and sends it to every subscriber. Sends never
// block; a subscriber with a full channel misses the notice and an error
// naming it is returned.
func (b *Broker) Publish(n Notice) error {
	b.history.Store(n)

	b.mu.RLock()
	defer b.mu.RUnlock()

	var full []string
	for id, ch := range b.subscribers {
		select {
		case ch <- n:
		default:
			full = append(full, id)
		}
	}
	if len(full) > 0 {
		return fmt.Errorf("subscriber channels full: %v", full)
	}
	return nil
}

// Subscribe registers a channel to receive notices.
func (b *Broker) Subscribe(id string, ch chan<- Notice) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[id]; exists {
		return fmt.Errorf("%s is already subscribed", id)
	}

	b.subscribers[id] = ch
	return nil
}

// Unsubscribe removes a subscription.
func (b *Broker) Unsubscribe(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[id]; !exists {
		return fmt.Errorf("%s is not subscribed", id)
	}

	delete(b.subscribers, id)
	return nil
}

// History returns the notices published so far.
func (b *Broker) History() []Notice {
	return b.history.All()
}

// Reset drops all subscriptions and the history.
func (b *Broker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = make(map[string]chan<- Notice)
	b.history.Reset()
}
