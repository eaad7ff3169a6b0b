package events_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librisapp/libris-server/internal/events"
)

func receive(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "channel closed before delivering")
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return ""
	}
}

func assertNoEvent(t *testing.T, ch <-chan string) {
	t.Helper()
	select {
	case v, ok := <-ch:
		if ok {
			t.Fatalf("unexpected event: %q", v)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_DeliversToActiveSubscriber(t *testing.T) {
	bus := events.NewBus[string](nil)
	defer bus.Close()

	ch := bus.Subscribe(context.Background())
	bus.Publish("first")

	assert.Equal(t, "first", receive(t, ch))
}

func TestBus_NoReplayForLateSubscriber(t *testing.T) {
	bus := events.NewBus[string](nil)
	defer bus.Close()

	early := bus.Subscribe(context.Background())
	bus.Publish("before")

	late := bus.Subscribe(context.Background())

	assert.Equal(t, "before", receive(t, early))
	assertNoEvent(t, late)
}

func TestBus_PerSubscriberOrdering(t *testing.T) {
	bus := events.NewBus[string](nil)
	defer bus.Close()

	ch := bus.Subscribe(context.Background())

	bus.Publish("a")
	bus.Publish("b")
	bus.Publish("c")

	assert.Equal(t, "a", receive(t, ch))
	assert.Equal(t, "b", receive(t, ch))
	assert.Equal(t, "c", receive(t, ch))
}

func TestBus_IndependentSubscribers(t *testing.T) {
	bus := events.NewBus[string](nil)
	defer bus.Close()

	first := bus.Subscribe(context.Background())
	second := bus.Subscribe(context.Background())

	bus.Publish("shared")

	assert.Equal(t, "shared", receive(t, first))
	assert.Equal(t, "shared", receive(t, second))
}

func TestBus_ContextCancelUnsubscribes(t *testing.T) {
	bus := events.NewBus[string](nil)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch := bus.Subscribe(ctx)
	require.Equal(t, 1, bus.SubscriberCount())

	cancel()

	// The channel closes once the unsubscribe goroutine runs.
	require.Eventually(t, func() bool {
		return bus.SubscriberCount() == 0
	}, time.Second, 5*time.Millisecond)

	_, ok := <-ch
	assert.False(t, ok)
}

func TestBus_CloseClosesSubscribers(t *testing.T) {
	bus := events.NewBus[string](nil)

	ch := bus.Subscribe(context.Background())
	bus.Close()

	_, ok := <-ch
	assert.False(t, ok)

	// Publishing after close is a no-op, not a panic.
	assert.NotPanics(t, func() { bus.Publish("late") })

	// Subscribing after close yields a closed channel.
	closedCh := bus.Subscribe(context.Background())
	_, ok = <-closedCh
	assert.False(t, ok)
}

func TestBus_SlowSubscriberDropsNotBlocks(t *testing.T) {
	bus := events.NewBus[string](nil)
	defer bus.Close()

	ch := bus.Subscribe(context.Background())

	// Overfill the buffer; Publish must never block.
	done := make(chan struct{})
	go func() {
		for range 100 {
			bus.Publish("burst")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}

	// The subscriber still receives the buffered prefix, in order.
	assert.Equal(t, "burst", receive(t, ch))
}
