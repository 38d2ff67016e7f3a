package events

import (
	"context"
	"iter"
	"sync"
	"sync/atomic"
)

// State is where a Subscription is in its lifecycle.
type State int

const (
	StateCreated State = iota
	StateSubscribed
	StateIdle
	StateDelivering
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateSubscribed:
		return "subscribed"
	case StateIdle:
		return "idle"
	case StateDelivering:
		return "delivering"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Subscription is a consumer's lazy, cancellable view of one or more topics.
// It is not restartable; subscribe again for a fresh one.
type Subscription struct {
	id     string
	topics []string
	ch     *channel
	bus    *EventBus

	registered atomic.Bool
	waiting    atomic.Int32

	mu   sync.Mutex
	stop func() bool
	once sync.Once
}

func (s *Subscription) ID() string { return s.id }

// Topics returns the distinct topics the subscription listens on.
func (s *Subscription) Topics() []string {
	return append([]string(nil), s.topics...)
}

// Dropped returns how many events overflowed this subscription's queue.
func (s *Subscription) Dropped() uint64 {
	return s.ch.droppedCount()
}

// Done is closed once the subscription is cancelled.
func (s *Subscription) Done() <-chan struct{} {
	return s.ch.done
}

// Next blocks until an event arrives, the subscription is cancelled
// (ErrSubscriptionClosed) or ctx is done.
func (s *Subscription) Next(ctx context.Context) (Message, error) {
	s.waiting.Add(1)
	defer s.waiting.Add(-1)
	return s.ch.pull(ctx)
}

// All yields events until the subscription is cancelled or ctx is done.
// Breaking out of the loop does not cancel the subscription.
func (s *Subscription) All(ctx context.Context) iter.Seq[Message] {
	return func(yield func(Message) bool) {
		for {
			msg, err := s.Next(ctx)
			if err != nil {
				return
			}
			if !yield(msg) {
				return
			}
		}
	}
}

// Cancel unregisters the subscription from every topic and wakes any
// pending Next. It is safe to call more than once.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.mu.Lock()
		stop := s.stop
		s.mu.Unlock()
		if stop != nil {
			stop()
		}
		s.bus.release(s)
	})
}

func (s *Subscription) State() State {
	select {
	case <-s.ch.done:
		return StateClosed
	default:
	}
	if !s.registered.Load() {
		return StateCreated
	}
	if s.ch.len() > 0 {
		return StateDelivering
	}
	if s.waiting.Load() > 0 {
		return StateIdle
	}
	return StateSubscribed
}
