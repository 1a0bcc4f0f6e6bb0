// ABOUTME: Generic fan-out hub delivering every published value to all subscribers in order.
// ABOUTME: Each subscriber gets an unbounded queue so publishers never block on slow readers.
package pubsub

import (
	"context"
	"sync"
)

// Hub broadcasts values of type T to any number of subscribers. Values are
// delivered to each subscriber in publish order.
type Hub[T any] struct {
	mu     sync.Mutex
	subs   map[uint64]*subscriber[T]
	nextID uint64
	closed bool
}

// New creates an empty hub.
func New[T any]() *Hub[T] {
	return &Hub[T]{subs: make(map[uint64]*subscriber[T])}
}

// Subscribe registers a subscriber whose channel first yields the replay
// values, then every value published afterwards. The channel is closed when
// ctx is done or the hub is closed. Subscribing to a closed hub yields the
// replay values and then a closed channel.
func (h *Hub[T]) Subscribe(ctx context.Context, replay ...T) <-chan T {
	return h.SubscribeWith(ctx, func() []T { return replay })
}

// SubscribeWith runs seed under the hub lock and subscribes with its result
// as the replay. Nothing can be published between seed and registration, so
// the subscriber observes a gap-free sequence.
func (h *Hub[T]) SubscribeWith(ctx context.Context, seed func() []T) <-chan T {
	sub := newSubscriber[T]()

	h.mu.Lock()
	for _, v := range seed() {
		sub.push(v)
	}
	if h.closed {
		h.mu.Unlock()
		sub.finish()
		go sub.run(ctx, func() {})
		return sub.out
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = sub
	h.mu.Unlock()

	go sub.run(ctx, func() { h.remove(id) })
	return sub.out
}

// Publish enqueues v for every current subscriber. It never blocks on
// subscriber consumption.
func (h *Hub[T]) Publish(v T) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for _, sub := range h.subs {
		sub.push(v)
	}
}

// PublishWith runs update under the hub lock and publishes its result. It
// pairs with SubscribeWith so state changes and subscriptions are ordered.
func (h *Hub[T]) PublishWith(update func() T) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v := update()
	if h.closed {
		return
	}
	for _, sub := range h.subs {
		sub.push(v)
	}
}

// Close stops accepting values. Subscribers drain what is already queued and
// then see their channel closed.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subs {
		sub.finish()
		delete(h.subs, id)
	}
}

// Len returns the number of active subscribers.
func (h *Hub[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub[T]) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, id)
}

type subscriber[T any] struct {
	mu    sync.Mutex
	queue []T
	done  bool
	wake  chan struct{}
	out   chan T
}

func newSubscriber[T any]() *subscriber[T] {
	return &subscriber[T]{
		wake: make(chan struct{}, 1),
		out:  make(chan T),
	}
}

func (s *subscriber[T]) push(v T) {
	s.mu.Lock()
	s.queue = append(s.queue, v)
	s.mu.Unlock()
	s.signal()
}

func (s *subscriber[T]) finish() {
	s.mu.Lock()
	s.done = true
	s.mu.Unlock()
	s.signal()
}

func (s *subscriber[T]) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber[T]) run(ctx context.Context, unregister func()) {
	defer close(s.out)
	defer unregister()

	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			done := s.done
			s.mu.Unlock()
			if done {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-s.wake:
				continue
			}
		}
		next := s.queue[0]
		var zero T
		s.queue[0] = zero
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- next:
		case <-ctx.Done():
			return
		}
	}
}
