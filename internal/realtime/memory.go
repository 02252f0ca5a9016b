package realtime

import (
	"context"
	"sync"

	"github.com/HussamZG/shakaoy-650/internal/domain"
)

const defaultBuffer = 64

// MemoryBroker fans events out within one process. A subscriber whose
// buffer is full misses the event; publishers never block.
type MemoryBroker struct {
	mu     sync.RWMutex
	subs   map[*memSub]struct{}
	buffer int
	closed bool
}

type memSub struct {
	filter Filter
	ch     chan domain.ChangeEvent
}

// NewMemoryBroker returns a broker with the given per-subscriber buffer.
func NewMemoryBroker(buffer int) *MemoryBroker {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &MemoryBroker{subs: make(map[*memSub]struct{}), buffer: buffer}
}

// Publish delivers ev to every matching subscriber.
func (b *MemoryBroker) Publish(_ context.Context, ev domain.ChangeEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	eventsPublished.WithLabelValues(ev.Table, string(ev.Event)).Inc()
	for s := range b.subs {
		if !s.filter.Accepts(ev) {
			continue
		}
		select {
		case s.ch <- ev:
		default:
			eventsDropped.Inc()
		}
	}
	return nil
}

// Subscribe registers a new subscriber.
func (b *MemoryBroker) Subscribe(ctx context.Context, f Filter) (*Subscription, error) {
	s := &memSub{filter: f, ch: make(chan domain.ChangeEvent, b.buffer)}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	sub := newSubscription(s.ch, func() { b.remove(s) })
	sub.watch(ctx)
	return sub, nil
}

func (b *MemoryBroker) remove(s *memSub) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[s]; ok {
		delete(b.subs, s)
		close(s.ch)
	}
}

// Subscribers reports how many subscriptions are registered.
func (b *MemoryBroker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close ends every subscription and rejects further use.
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for s := range b.subs {
		delete(b.subs, s)
		close(s.ch)
	}
	return nil
}
