// Package pubsub provides a small typed publish/subscribe topic. It replaces
// ad-hoc broadcast events: subscribers receive published values directly on
// their own channel instead of re-fetching state blindly.
package pubsub

import (
	"context"
	"sync"
)

// Topic fans published values out to all current subscribers.
//
// Publish never blocks: each subscriber channel is buffered, and when a
// subscriber is slow the oldest pending value is dropped so the latest value
// always gets through.
type Topic[T any] struct {
	mu     sync.Mutex
	subs   map[uint64]chan T
	nextID uint64
	closed bool
}

// NewTopic creates an empty topic.
func NewTopic[T any]() *Topic[T] {
	return &Topic[T]{subs: make(map[uint64]chan T)}
}

// Subscribe registers a new subscriber. The returned channel is closed when
// ctx is cancelled or the topic is closed.
func (t *Topic[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, 1)

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		close(ch)
		return ch
	}
	id := t.nextID
	t.nextID++
	t.subs[id] = ch
	t.mu.Unlock()

	go func() {
		<-ctx.Done()
		t.unsubscribe(id)
	}()

	return ch
}

func (t *Topic[T]) unsubscribe(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if ch, ok := t.subs[id]; ok {
		delete(t.subs, id)
		close(ch)
	}
}

// Publish delivers v to every subscriber without blocking. Slow subscribers
// lose intermediate values but always observe the most recent one.
func (t *Topic[T]) Publish(v T) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	for _, ch := range t.subs {
		select {
		case ch <- v:
		default:
			// Buffer full: drop the stale value, keep the latest.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- v:
			default:
			}
		}
	}
}

// Close shuts the topic down and closes all subscriber channels. Publishing
// after Close is a no-op.
func (t *Topic[T]) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	t.closed = true
	for id, ch := range t.subs {
		delete(t.subs, id)
		close(ch)
	}
}
