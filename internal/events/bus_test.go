package events_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/letscook/internal/events"
)

func TestPublishDeliversToSubscribers(t *testing.T) {
	bus := events.NewBus(zaptest.NewLogger(t), 8)
	defer bus.Shutdown(context.Background())

	var mu sync.Mutex
	var got []string
	done := make(chan struct{}, 2)
	bus.SubscribeFunc(events.NoticeRaised, func(_ context.Context, e events.Event) error {
		mu.Lock()
		got = append(got, e.(events.NoticeEvent).Message)
		mu.Unlock()
		done <- struct{}{}
		return nil
	})

	events.Notify(bus, events.NoticeSuccess, "buy", events.MsgSuccess)
	require.NoError(t, bus.Publish(events.NewSubmission("buy", "sauce", "confirmed", "sig", nil)))
	events.Notify(bus, events.NoticeError, "buy", events.MsgFailed)

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("notice not delivered")
		}
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{events.MsgSuccess, events.MsgFailed}, got)
}

func TestPublishSyncCollectsErrors(t *testing.T) {
	bus := events.NewBus(zaptest.NewLogger(t), 1)
	defer bus.Shutdown(context.Background())

	boom := errors.New("boom")
	sub := bus.SubscribeFunc(events.SnapshotUpdated, func(context.Context, events.Event) error {
		return boom
	})

	err := bus.PublishSync(context.Background(), events.NewSnapshot("launch", "addr", true))
	assert.ErrorIs(t, err, boom)

	sub.Unsubscribe()
	assert.NoError(t, bus.PublishSync(context.Background(), events.NewSnapshot("launch", "addr", true)))
}

func TestPublishAfterShutdown(t *testing.T) {
	bus := events.NewBus(zaptest.NewLogger(t), 1)
	require.NoError(t, bus.Shutdown(context.Background()))
	assert.ErrorIs(t, bus.Publish(events.NewDirectory(1, nil)), events.ErrBusClosed)
}

func TestNotifyNilPublisher(t *testing.T) {
	assert.NotPanics(t, func() {
		events.Notify(nil, events.NoticeInfo, "buy", events.MsgPending)
	})
}

func TestQueuedEventsKeepPublishOrder(t *testing.T) {
	bus := events.NewBus(zaptest.NewLogger(t), 64)

	var got []string
	var order []string
	bus.SubscribeFunc(events.SubmissionChanged, func(_ context.Context, e events.Event) error {
		got = append(got, e.(events.SubmissionEvent).Status)
		order = append(order, "first")
		return nil
	})
	bus.SubscribeFunc(events.SubmissionChanged, func(context.Context, events.Event) error {
		order = append(order, "second")
		return nil
	})

	want := []string{"signing", "submitted", "confirmed", "signing", "submitted", "failed"}
	for _, status := range want {
		require.NoError(t, bus.Publish(events.NewSubmission("buy", "owner", status, "", nil)))
	}
	// Shutdown drains the queue before returning.
	require.NoError(t, bus.Shutdown(context.Background()))

	assert.Equal(t, want, got)
	require.Len(t, order, 2*len(want))
	for i := 0; i < len(order); i += 2 {
		assert.Equal(t, []string{"first", "second"}, order[i:i+2])
	}
}

func TestBusStats(t *testing.T) {
	bus := events.NewBus(zaptest.NewLogger(t), 4)

	boom := errors.New("boom")
	sub := bus.SubscribeFunc(events.NoticeRaised, func(context.Context, events.Event) error { return boom })
	bus.SubscribeFunc(events.NoticeRaised, func(context.Context, events.Event) error { return nil })

	assert.Error(t, bus.PublishSync(context.Background(), events.NewNotice(events.NoticeInfo, "buy", "x")))

	stats := bus.Stats()
	assert.Equal(t, 4, stats.Capacity)
	assert.Equal(t, uint64(1), stats.Published)
	assert.Equal(t, uint64(1), stats.Failed)
	assert.Equal(t, 2, stats.Handlers[events.NoticeRaised])

	sub.Unsubscribe()
	assert.Equal(t, 1, bus.Stats().Handlers[events.NoticeRaised])

	require.NoError(t, bus.Shutdown(context.Background()))
	assert.NoError(t, bus.Shutdown(context.Background()), "second shutdown is a no-op")
	assert.NoError(t, bus.PublishSync(context.Background(), events.NewNotice(events.NoticeInfo, "buy", "y")))
}
