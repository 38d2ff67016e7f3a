package events

import (
	"fmt"
	"sync"
)

// registry maps a topic to the channels subscribed to it. It holds
// channels for lookup only; their lifetime belongs to the Subscription.
type registry struct {
	mu     sync.RWMutex
	topics map[string]map[*channel]struct{}
	limit  int
}

func newRegistry(limit int) *registry {
	return &registry{
		topics: make(map[string]map[*channel]struct{}),
		limit:  limit,
	}
}

// register adds ch under topic. Registering the same pair twice is a no-op.
func (r *registry) register(topic string, ch *channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs := r.topics[topic]
	if _, exists := subs[ch]; exists {
		return nil
	}
	if r.limit > 0 && len(subs) >= r.limit {
		return fmt.Errorf("%w: topic %q is limited to %d", ErrTooManySubscribers, topic, r.limit)
	}
	if subs == nil {
		subs = make(map[*channel]struct{})
		r.topics[topic] = subs
	}
	subs[ch] = struct{}{}
	return nil
}

// unregister removes ch from topic and drops the topic once it is empty.
func (r *registry) unregister(topic string, ch *channel) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs, ok := r.topics[topic]
	if !ok {
		return
	}
	delete(subs, ch)
	if len(subs) == 0 {
		delete(r.topics, topic)
	}
}

// subscribersOf returns a snapshot of the channels registered for topic.
func (r *registry) subscribersOf(topic string) []*channel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := r.topics[topic]
	if len(subs) == 0 {
		return nil
	}
	snapshot := make([]*channel, 0, len(subs))
	for ch := range subs {
		snapshot = append(snapshot, ch)
	}
	return snapshot
}

func (r *registry) count(topic string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.topics[topic])
}

func (r *registry) size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.topics)
}
