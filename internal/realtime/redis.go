package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/HussamZG/shakaoy-650/internal/domain"
)

// RedisBroker shares change events between instances over one Redis
// pub/sub channel. Events are JSON-encoded ChangeEvents.
type RedisBroker struct {
	client  *redis.Client
	channel string
	buffer  int
	closed  atomic.Bool
}

// NewRedisBroker publishes on "<prefix>:changes".
func NewRedisBroker(client *redis.Client, prefix string, buffer int) *RedisBroker {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	prefix = strings.TrimSuffix(prefix, ":")
	if prefix == "" {
		prefix = "complaints"
	}
	return &RedisBroker{client: client, channel: prefix + ":changes", buffer: buffer}
}

// Channel returns the Redis channel name in use.
func (b *RedisBroker) Channel() string { return b.channel }

// Publish sends ev to every instance subscribed to the channel.
func (b *RedisBroker) Publish(ctx context.Context, ev domain.ChangeEvent) error {
	if b.closed.Load() {
		return ErrClosed
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode change event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	eventsPublished.WithLabelValues(ev.Table, string(ev.Event)).Inc()
	return nil
}

// Subscribe opens a dedicated Redis subscription and waits for the server to
// confirm it before returning.
func (b *RedisBroker) Subscribe(ctx context.Context, f Filter) (*Subscription, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}
	ps := b.client.Subscribe(ctx, b.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", b.channel, err)
	}

	out := make(chan domain.ChangeEvent, b.buffer)
	sub := newSubscription(out, func() { _ = ps.Close() })
	msgs := ps.Channel()

	go func() {
		defer close(out)
		for {
			select {
			case <-sub.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev domain.ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					log.Warn().Err(err).Str("channel", b.channel).Msg("realtime: bad payload")
					continue
				}
				if !f.Accepts(ev) {
					continue
				}
				select {
				case out <- ev:
				default:
					eventsDropped.Inc()
				}
			}
		}
	}()
	sub.watch(ctx)
	return sub, nil
}

// Close marks the broker closed and closes the Redis client.
func (b *RedisBroker) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	return b.client.Close()
}
