package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
)

// Message is one published payload as seen by a subscriber
type Message struct {
	Topic       string
	Payload     any
	PublishedAt time.Time
}

// Publisher is what producers depend on. Publishing to a topic without
// subscribers succeeds and has no effect.
type Publisher interface {
	Publish(topic string, payload any) error
}

// Subscriber is what consumers depend on.
type Subscriber interface {
	Subscribe(ctx context.Context, topics ...string) (*Subscription, error)
}

var (
	_ Publisher  = (*EventBus)(nil)
	_ Subscriber = (*EventBus)(nil)
)

// Options tunes an EventBus
type Options struct {
	BufferSize             int
	Policy                 OverflowPolicy
	MaxSubscribersPerTopic int
}

type Option func(*Options)

// WithBufferSize sets the queue depth of each subscription.
func WithBufferSize(n int) Option {
	return func(o *Options) { o.BufferSize = n }
}

// WithOverflowPolicy sets what a full subscription queue does.
func WithOverflowPolicy(p OverflowPolicy) Option {
	return func(o *Options) { o.Policy = p }
}

// WithMaxSubscribersPerTopic caps subscribers per topic; 0 means no cap.
func WithMaxSubscribersPerTopic(n int) Option {
	return func(o *Options) { o.MaxSubscribersPerTopic = n }
}

// EventBus fans published payloads out to every subscription registered
// for the topic. It is safe for concurrent use.
type EventBus struct {
	log  hclog.Logger
	opts Options
	reg  *registry

	mutex  sync.RWMutex
	closed bool
	subs   map[*Subscription]struct{}
}

func NewEventBus(logger hclog.Logger, opts ...Option) *EventBus {
	o := Options{BufferSize: DefaultBufferSize, Policy: DropOldest}
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	return &EventBus{
		log:  logger,
		opts: o,
		reg:  newRegistry(o.MaxSubscribersPerTopic),
		subs: make(map[*Subscription]struct{}),
	}
}

// Publish pushes payload to every current subscriber of topic without
// waiting for any of them. Ordering is FIFO per subscriber only.
func (bus *EventBus) Publish(topic string, payload any) error {
	if topic == "" {
		return ErrEmptyTopic
	}
	if err := checkEvent(topic, payload); err != nil {
		return err
	}

	bus.mutex.RLock()
	closed := bus.closed
	bus.mutex.RUnlock()
	if closed {
		return ErrBusClosed
	}

	publishedTotal.WithLabelValues(topic).Inc()

	subscribers := bus.reg.subscribersOf(topic)
	if len(subscribers) == 0 {
		bus.log.Trace("Published event with no subscribers", "topic", topic)
		return nil
	}

	msg := Message{Topic: topic, Payload: payload, PublishedAt: time.Now()}
	for _, ch := range subscribers {
		// a channel closed after the snapshot ignores the push
		queued, dropped := ch.push(msg)
		if queued {
			deliveredTotal.WithLabelValues(topic).Inc()
		}
		if dropped {
			droppedTotal.WithLabelValues(topic).Inc()
			bus.log.Warn("Subscriber queue full, dropped event",
				"topic", topic,
				"policy", bus.opts.Policy.String())
		}
	}

	bus.log.Debug("Event published", "topic", topic, "subscribers", len(subscribers))
	return nil
}

// Subscribe registers one new subscription for all of topics. If any
// registration fails, the ones already made are rolled back. When ctx is
// done the subscription is cancelled.
func (bus *EventBus) Subscribe(ctx context.Context, topics ...string) (*Subscription, error) {
	if len(topics) == 0 {
		return nil, ErrNoTopics
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unique := make([]string, 0, len(topics))
	seen := make(map[string]struct{}, len(topics))
	for _, t := range topics {
		if t == "" {
			return nil, ErrEmptyTopic
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		unique = append(unique, t)
	}

	sub := &Subscription{
		id:     uuid.NewString(),
		topics: unique,
		ch:     newChannel(bus.opts.BufferSize, bus.opts.Policy),
		bus:    bus,
	}

	if err := bus.attach(sub); err != nil {
		bus.log.Debug("Subscription rejected", "topics", unique, "error", err)
		return nil, err
	}

	stop := context.AfterFunc(ctx, sub.Cancel)
	sub.mu.Lock()
	sub.stop = stop
	sub.mu.Unlock()

	bus.log.Debug("Subscribed", "subscription", sub.id, "topics", unique)
	return sub, nil
}

func (bus *EventBus) attach(sub *Subscription) error {
	bus.mutex.Lock()
	defer bus.mutex.Unlock()

	if bus.closed {
		return ErrBusClosed
	}

	for i, topic := range sub.topics {
		if err := bus.reg.register(topic, sub.ch); err != nil {
			for _, registered := range sub.topics[:i] {
				bus.reg.unregister(registered, sub.ch)
			}
			sub.ch.close()
			return err
		}
	}

	bus.subs[sub] = struct{}{}
	sub.registered.Store(true)
	activeSubscriptions.Inc()
	return nil
}

// release removes sub from the registry and closes its channel.
func (bus *EventBus) release(sub *Subscription) {
	bus.mutex.Lock()
	_, attached := bus.subs[sub]
	if attached {
		delete(bus.subs, sub)
		for _, topic := range sub.topics {
			bus.reg.unregister(topic, sub.ch)
		}
	}
	bus.mutex.Unlock()

	sub.ch.close()
	if attached {
		activeSubscriptions.Dec()
		bus.log.Debug("Unsubscribed", "subscription", sub.id, "dropped", sub.ch.droppedCount())
	}
}

// SubscriberCount returns how many subscriptions are registered for topic.
func (bus *EventBus) SubscriberCount(topic string) int {
	return bus.reg.count(topic)
}

// TopicCount returns how many topics have at least one subscriber.
func (bus *EventBus) TopicCount() int {
	return bus.reg.size()
}

// Close cancels every subscription and rejects further Publish and
// Subscribe calls. Every subscription is cancelled even when ctx is
// already done; ctx.Err() is then returned. Calling it again is a no-op.
func (bus *EventBus) Close(ctx context.Context) error {
	bus.mutex.Lock()
	if bus.closed {
		bus.mutex.Unlock()
		return nil
	}
	bus.closed = true
	subs := make([]*Subscription, 0, len(bus.subs))
	for sub := range bus.subs {
		subs = append(subs, sub)
	}
	bus.mutex.Unlock()

	bus.log.Info("Closing event bus", "subscriptions", len(subs))
	for _, sub := range subs {
		sub.Cancel()
	}
	return ctx.Err()
}
