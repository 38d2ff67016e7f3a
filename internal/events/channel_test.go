package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func msg(v int) Message { return Message{Topic: "t", Payload: v} }

func TestChannelFIFO(t *testing.T) {
	ch := newChannel(8, DropOldest)
	for i := 0; i < 5; i++ {
		queued, dropped := ch.push(msg(i))
		require.True(t, queued)
		require.False(t, dropped)
	}

	for i := 0; i < 5; i++ {
		m, err := ch.pull(context.Background())
		require.NoError(t, err)
		assert.Equal(t, i, m.Payload)
	}
}

func TestChannelDropOldest(t *testing.T) {
	ch := newChannel(2, DropOldest)
	ch.push(msg(1))
	ch.push(msg(2))
	queued, dropped := ch.push(msg(3))

	assert.True(t, queued)
	assert.True(t, dropped)
	assert.Equal(t, uint64(1), ch.droppedCount())

	m, _ := ch.pull(context.Background())
	assert.Equal(t, 2, m.Payload)
	m, _ = ch.pull(context.Background())
	assert.Equal(t, 3, m.Payload)
}

func TestChannelDropNewest(t *testing.T) {
	ch := newChannel(1, DropNewest)
	ch.push(msg(1))
	queued, dropped := ch.push(msg(2))

	assert.False(t, queued)
	assert.True(t, dropped)

	m, _ := ch.pull(context.Background())
	assert.Equal(t, 1, m.Payload)
	assert.Equal(t, 0, ch.len())
}

func TestChannelPullWaitsForPush(t *testing.T) {
	ch := newChannel(1, DropOldest)
	got := make(chan Message)

	go func() {
		m, err := ch.pull(context.Background())
		if err == nil {
			got <- m
		}
		close(got)
	}()

	time.Sleep(10 * time.Millisecond)
	ch.push(msg(7))

	select {
	case m := <-got:
		assert.Equal(t, 7, m.Payload)
	case <-time.After(time.Second):
		t.Fatal("pull did not wake up on push")
	}
}

func TestChannelCloseWakesPull(t *testing.T) {
	ch := newChannel(1, DropOldest)
	errs := make(chan error, 1)

	go func() {
		_, err := ch.pull(context.Background())
		errs <- err
	}()

	time.Sleep(10 * time.Millisecond)
	assert.True(t, ch.close())

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, ErrSubscriptionClosed)
	case <-time.After(time.Second):
		t.Fatal("pull did not wake up on close")
	}
}

func TestChannelClosedIsTerminal(t *testing.T) {
	ch := newChannel(4, DropOldest)
	ch.push(msg(1))

	assert.True(t, ch.close())
	assert.False(t, ch.close())

	queued, _ := ch.push(msg(2))
	assert.False(t, queued)

	_, err := ch.pull(context.Background())
	assert.ErrorIs(t, err, ErrSubscriptionClosed)
}

func TestChannelPullHonoursContext(t *testing.T) {
	ch := newChannel(1, DropOldest)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := ch.pull(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
