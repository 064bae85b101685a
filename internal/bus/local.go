// Package bus provides an in-process implementation of domain.SignalBus for
// single-instance deployments where Redis is not configured. Subscribers get
// a buffered channel; slow subscribers drop messages rather than blocking
// publishers.
package bus

import (
	"context"
	"sync"
)

const subscriberBuffer = 128

// Local is an in-process pub/sub bus.
type Local struct {
	mu   sync.RWMutex
	subs map[string][]chan []byte
}

// NewLocal creates an empty Local bus.
func NewLocal() *Local {
	return &Local{subs: make(map[string][]chan []byte)}
}

// Publish delivers payload to every subscriber of the channel. Delivery is
// best-effort: a subscriber whose buffer is full misses the message.
func (b *Local) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs[channel] {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

// Subscribe registers a subscriber for the channel. The returned channel is
// closed when ctx is cancelled.
func (b *Local) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte, subscriberBuffer)

	b.mu.Lock()
	b.subs[channel] = append(b.subs[channel], ch)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		subs := b.subs[channel]
		for i, c := range subs {
			if c == ch {
				b.subs[channel] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		b.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}
