// Package events publishes eviction notifications to other processes.
package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/darkodi/link-shortener/internal/eviction"
	"github.com/darkodi/link-shortener/internal/logger"
)

// DefaultChannel carries one JSON message per evicted link
const DefaultChannel = "shortlinks:evicted"

// RedisPublisher sends eviction notifications over redis pub/sub
type RedisPublisher struct {
	client  *redis.Client
	channel string
	log     *logger.Logger
}

// NewRedisPublisher creates a publisher on channel (DefaultChannel if empty)
func NewRedisPublisher(client *redis.Client, channel string, log *logger.Logger) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	if log == nil {
		log = logger.Nop()
	}
	return &RedisPublisher{client: client, channel: channel, log: log}
}

// Notify publishes n. Failures are logged; eviction has already happened.
func (p *RedisPublisher) Notify(ctx context.Context, n eviction.Notification) {
	payload, err := json.Marshal(n)
	if err != nil {
		p.log.Error("encode eviction event", "token", n.Token, "error", err.Error())
		return
	}

	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		p.log.Warn("publish eviction event",
			"channel", p.channel,
			"token", n.Token,
			"error", err.Error())
	}
}

// Subscribe decodes notifications from channel until ctx is done. The
// returned channel is closed when the subscription ends.
func Subscribe(ctx context.Context, client *redis.Client, channel string) (<-chan eviction.Notification, error) {
	if channel == "" {
		channel = DefaultChannel
	}

	sub := client.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, err
	}

	out := make(chan eviction.Notification)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var n eviction.Notification
				if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
					continue
				}
				select {
				case out <- n:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
