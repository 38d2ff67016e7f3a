package events

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/hashicorp/go-hclog"
	"github.com/kahvecikaan/photo-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	topics   []string
	payloads []any
}

func (p *recordingPublisher) Publish(topic string, payload any) error {
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, payload)
	return nil
}

func TestEncodeEventRoundTrip(t *testing.T) {
	event := UserAdded{User: &domain.User{GithubLogin: "u1", Name: "User One"}}

	data, err := encodeEvent(TopicUserAdded, event)
	require.NoError(t, err)

	decoded, err := Decode(TopicUserAdded, data)
	require.NoError(t, err)
	assert.Equal(t, "u1", decoded.(UserAdded).User.GithubLogin)
}

func TestEncodeEventRejectsPlainPayloads(t *testing.T) {
	_, err := encodeEvent(TopicUserAdded, "u1")
	assert.ErrorIs(t, err, ErrInvalidEvent)
}

func TestRelayRepublishesLocally(t *testing.T) {
	local := &recordingPublisher{}
	relay := NewRedisRelay(nil, local, hclog.NewNullLogger())

	data, err := encodeEvent(TopicPhotoAdded, PhotoAdded{Photo: &domain.Photo{ID: "abc"}})
	require.NoError(t, err)

	relay.relay(redisChannel(TopicPhotoAdded), data)
	relay.relay(redisChannel("unknown"), data)
	relay.relay(redisChannel(TopicPhotoAdded), []byte("{not json"))

	require.Len(t, local.payloads, 1)
	assert.Equal(t, TopicPhotoAdded, local.topics[0])
	assert.Equal(t, "abc", local.payloads[0].(PhotoAdded).Photo.ID)
}

func TestRedisChannelName(t *testing.T) {
	assert.Equal(t, "photoshare:photo-added", redisChannel(TopicPhotoAdded))
}

type relayInstance struct {
	bus   *EventBus
	relay *RedisRelay
	done  chan error
}

func startRelayInstance(ctx context.Context, t *testing.T, addr string) relayInstance {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })

	bus := NewEventBus(nil)
	t.Cleanup(func() { _ = bus.Close(context.Background()) })

	inst := relayInstance{
		bus:   bus,
		relay: NewRedisRelay(client, bus, hclog.NewNullLogger()),
		done:  make(chan error, 1),
	}
	go func() { inst.done <- inst.relay.Run(ctx) }()
	return inst
}

func TestRedisRelayDeliversToEveryInstanceOnce(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := startRelayInstance(ctx, t, mr.Addr())
	b := startRelayInstance(ctx, t, mr.Addr())

	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(redisChannel(TopicUserAdded))[redisChannel(TopicUserAdded)] == 2
	}, 2*time.Second, 5*time.Millisecond)

	subA, err := a.bus.Subscribe(ctx, TopicUserAdded)
	require.NoError(t, err)
	subB, err := b.bus.Subscribe(ctx, TopicUserAdded)
	require.NoError(t, err)

	require.NoError(t, a.relay.Publish(TopicUserAdded, UserAdded{User: &domain.User{GithubLogin: "u1"}}))

	for _, sub := range []*Subscription{subA, subB} {
		msg := next(t, sub)
		assert.Equal(t, "u1", msg.Payload.(UserAdded).User.GithubLogin)

		quiet, stop := context.WithTimeout(context.Background(), 50*time.Millisecond)
		_, err := sub.Next(quiet)
		stop()
		assert.ErrorIs(t, err, context.DeadlineExceeded, "event delivered more than once")
	}

	// plain payloads never reach redis
	assert.ErrorIs(t, a.relay.Publish(TopicUserAdded, "u1"), ErrInvalidEvent)

	cancel()
	for _, inst := range []relayInstance{a, b} {
		select {
		case err := <-inst.done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("relay did not stop")
		}
	}
}

func TestRedisRelayPublishFailsWithoutServer(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	client := redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1})
	defer client.Close()

	relay := NewRedisRelay(client, NewEventBus(nil), hclog.NewNullLogger())
	err = relay.Publish(TopicPhotoAdded, PhotoAdded{Photo: &domain.Photo{ID: "abc"}})
	assert.Error(t, err)
}
