package events

import (
	"context"
	"sync"
)

// DefaultBufferSize is the per-subscription queue depth.
const DefaultBufferSize = 64

// OverflowPolicy decides what a full subscriber queue does with a new message.
type OverflowPolicy int

const (
	// DropOldest evicts the head of the queue to make room.
	DropOldest OverflowPolicy = iota
	// DropNewest discards the incoming message.
	DropNewest
)

func (p OverflowPolicy) String() string {
	if p == DropNewest {
		return "drop-newest"
	}
	return "drop-oldest"
}

// channel is the bounded FIFO behind one subscription. push never blocks
// the publisher; pull suspends the consumer until there is something to read.
type channel struct {
	mu      sync.Mutex
	queue   []Message
	size    int
	policy  OverflowPolicy
	closed  bool
	dropped uint64

	notify chan struct{}
	done   chan struct{}
}

func newChannel(size int, policy OverflowPolicy) *channel {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &channel{
		queue:  make([]Message, 0, size),
		size:   size,
		policy: policy,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// push enqueues msg. It reports whether msg was queued and whether a
// message was dropped to honour the size bound. Pushing to a closed
// channel is a no-op.
func (c *channel) push(msg Message) (queued, dropped bool) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false, false
	}

	if len(c.queue) >= c.size {
		c.dropped++
		dropped = true
		if c.policy == DropNewest {
			c.mu.Unlock()
			return false, true
		}
		c.queue[0] = Message{}
		c.queue = c.queue[1:]
	}
	c.queue = append(c.queue, msg)
	c.mu.Unlock()

	select {
	case c.notify <- struct{}{}:
	default:
	}
	return true, dropped
}

// pull returns the oldest queued message, waiting for one if needed.
// It returns ErrSubscriptionClosed once the channel is closed, even if
// messages were still queued.
func (c *channel) pull(ctx context.Context) (Message, error) {
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return Message{}, ErrSubscriptionClosed
		}
		if len(c.queue) > 0 {
			msg := c.queue[0]
			c.queue[0] = Message{}
			c.queue = c.queue[1:]
			c.mu.Unlock()
			return msg, nil
		}
		c.mu.Unlock()

		select {
		case <-c.notify:
		case <-c.done:
		case <-ctx.Done():
			return Message{}, ctx.Err()
		}
	}
}

// close wakes every pending pull and discards the queue. It reports
// whether this call did the closing.
func (c *channel) close() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	c.closed = true
	c.queue = nil
	close(c.done)
	return true
}

func (c *channel) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

func (c *channel) droppedCount() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}
