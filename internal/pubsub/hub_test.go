// ABOUTME: Tests for the generic broadcast hub.
// ABOUTME: Covers replay, ordering across subscribers, cancellation, and close semantics.
package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "channel closed unexpectedly")
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for value")
	}
	var zero T
	return zero
}

func TestHubReplayThenLive(t *testing.T) {
	h := New[int]()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := h.Subscribe(ctx, 1)
	h.Publish(2)
	h.Publish(3)

	assert.Equal(t, 1, recv(t, ch))
	assert.Equal(t, 2, recv(t, ch))
	assert.Equal(t, 3, recv(t, ch))
}

func TestHubSameOrderForAllSubscribers(t *testing.T) {
	h := New[int]()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := h.Subscribe(ctx)
	b := h.Subscribe(ctx)
	for i := 0; i < 100; i++ {
		h.Publish(i)
	}

	for i := 0; i < 100; i++ {
		require.Equal(t, i, recv(t, a))
	}
	for i := 0; i < 100; i++ {
		require.Equal(t, i, recv(t, b))
	}
}

func TestHubPublishDoesNotBlockOnIdleSubscriber(t *testing.T) {
	h := New[int]()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_ = h.Subscribe(ctx)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			h.Publish(i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a subscriber that never reads")
	}
}

func TestHubCancelUnsubscribes(t *testing.T) {
	h := New[int]()
	ctx, cancel := context.WithCancel(context.Background())

	ch := h.Subscribe(ctx)
	require.Equal(t, 1, h.Len())

	cancel()
	for range ch {
	}
	require.Eventually(t, func() bool { return h.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubCloseDrainsThenCloses(t *testing.T) {
	h := New[string]()
	ch := h.Subscribe(context.Background())

	h.Publish("a")
	h.Publish("b")
	h.Close()
	h.Publish("ignored")

	var got []string
	for v := range ch {
		got = append(got, v)
	}
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestHubSubscribeAfterCloseGetsReplayOnly(t *testing.T) {
	h := New[int]()
	h.Close()

	var got []int
	for v := range h.Subscribe(context.Background(), 7) {
		got = append(got, v)
	}
	assert.Equal(t, []int{7}, got)
}
