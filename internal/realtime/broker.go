// Package realtime delivers row-change notifications from the gateway to
// subscribers. A Broker fans ChangeEvents out to Subscriptions; each
// Subscription is a cancellable handle whose Events channel yields the
// events accepted by its Filter.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/HussamZG/shakaoy-650/internal/config"
	"github.com/HussamZG/shakaoy-650/internal/domain"
)

// ErrClosed is returned when publishing to or subscribing on a closed broker.
var ErrClosed = errors.New("realtime: broker closed")

var (
	eventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_events_total",
			Help: "Change events published, by table and event kind.",
		},
		[]string{"table", "event"},
	)
	eventsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "realtime_dropped_total",
			Help: "Change events dropped because a subscriber was not keeping up.",
		},
	)
)

func init() {
	prometheus.MustRegister(eventsPublished, eventsDropped)
}

// Broker publishes change events and hands out subscriptions.
type Broker interface {
	Publish(ctx context.Context, ev domain.ChangeEvent) error
	Subscribe(ctx context.Context, f Filter) (*Subscription, error)
	Close() error
}

// Filter selects events by table, event kind and an optional predicate.
// Empty fields match everything.
type Filter struct {
	Table string
	Event domain.EventKind
	Match func(domain.ChangeEvent) bool
}

// Accepts reports whether ev passes the filter.
func (f Filter) Accepts(ev domain.ChangeEvent) bool {
	if f.Table != "" && f.Table != ev.Table {
		return false
	}
	if f.Event != "" && f.Event != ev.Event {
		return false
	}
	return f.Match == nil || f.Match(ev)
}

// ForComplaint matches events whose row belongs to the given complaint.
func ForComplaint(id string) func(domain.ChangeEvent) bool {
	return func(ev domain.ChangeEvent) bool { return ev.ComplaintKey() == id }
}

// Subscription is a live stream of change events. Close is idempotent; the
// context passed to Subscribe closes it too. Events is closed once the
// subscription or its broker shuts down.
type Subscription struct {
	events  <-chan domain.ChangeEvent
	done    chan struct{}
	once    sync.Once
	closeFn func()
}

func newSubscription(events <-chan domain.ChangeEvent, closeFn func()) *Subscription {
	return &Subscription{events: events, done: make(chan struct{}), closeFn: closeFn}
}

// Events returns the receive side of the stream.
func (s *Subscription) Events() <-chan domain.ChangeEvent { return s.events }

// Done is closed when Close has been called.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Close tears the subscription down.
func (s *Subscription) Close() {
	s.once.Do(func() {
		close(s.done)
		if s.closeFn != nil {
			s.closeFn()
		}
	})
}

func (s *Subscription) watch(ctx context.Context) {
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.done:
		}
	}()
}

// New builds the broker selected by cfg. The redis driver pings the server
// before returning.
func New(ctx context.Context, cfg config.RealtimeConfig) (Broker, error) {
	switch cfg.Driver {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		return NewRedisBroker(client, cfg.ChannelPrefix, cfg.Buffer), nil
	case "", "memory":
		return NewMemoryBroker(cfg.Buffer), nil
	default:
		return nil, fmt.Errorf("unsupported realtime driver %q", cfg.Driver)
	}
}
