package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hashicorp/go-hclog"
)

const redisChannelPrefix = "photoshare:"

// RedisRelay publishes events through Redis so every API instance sees
// them. Run feeds what arrives from Redis into the local EventBus; local
// subscribers therefore receive events from all instances, including
// this one, exactly once.
type RedisRelay struct {
	client  *redis.Client
	local   Publisher
	log     hclog.Logger
	timeout time.Duration
}

var _ Publisher = (*RedisRelay)(nil)

func NewRedisRelay(client *redis.Client, local Publisher, logger hclog.Logger) *RedisRelay {
	return &RedisRelay{
		client:  client,
		local:   local,
		log:     logger,
		timeout: 5 * time.Second,
	}
}

// Publish encodes payload, which must be an Event, onto the topic's
// Redis channel.
func (r *RedisRelay) Publish(topic string, payload any) error {
	data, err := encodeEvent(topic, payload)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.client.Publish(ctx, redisChannel(topic), data).Err(); err != nil {
		r.log.Error("Unable to publish event to redis", "topic", topic, "error", err)
		return fmt.Errorf("publishing %s to redis: %w", topic, err)
	}
	return nil
}

// Run relays Redis messages into the local bus until ctx is done.
func (r *RedisRelay) Run(ctx context.Context) error {
	channels := make([]string, 0, len(Topics))
	for _, t := range Topics {
		channels = append(channels, redisChannel(t))
	}

	pubsub := r.client.Subscribe(ctx, channels...)
	defer pubsub.Close()

	// wait for the subscription to be confirmed
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribing to redis: %w", err)
	}
	r.log.Info("Relaying events from redis", "channels", channels)

	messages := pubsub.Channel()
	for {
		select {
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			r.relay(msg.Channel, []byte(msg.Payload))
		case <-ctx.Done():
			r.log.Info("Redis relay received shutdown signal")
			return nil
		}
	}
}

func (r *RedisRelay) relay(channel string, data []byte) {
	topic := strings.TrimPrefix(channel, redisChannelPrefix)

	e, err := Decode(topic, data)
	if err != nil {
		r.log.Error("Dropping undecodable event", "channel", channel, "error", err)
		return
	}

	if err := r.local.Publish(topic, e); err != nil {
		r.log.Error("Unable to publish relayed event", "topic", topic, "error", err)
	}
}

func redisChannel(topic string) string {
	return redisChannelPrefix + topic
}

func encodeEvent(topic string, payload any) ([]byte, error) {
	if _, ok := payload.(Event); !ok {
		return nil, fmt.Errorf("%w: %T is not an event", ErrInvalidEvent, payload)
	}
	if err := checkEvent(topic, payload); err != nil {
		return nil, err
	}
	return json.Marshal(payload)
}
