package broker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/casualjim/roost/subscribers"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNATSBroker(t *testing.T) {
	t.Run("builds subjects from the prefix", func(t *testing.T) {
		b := NATS(nil, subscribers.New[Sink](), WithSubjectPrefix("flock"))
		assert.Equal(t, "flock.orders", b.Subject("orders"))

		b = NATS(nil, subscribers.New[Sink]())
		assert.Equal(t, "roost.orders", b.Subject("orders"))
	})

	t.Run("watches a topic once", func(t *testing.T) {
		nc := connectNATS(t)
		b := NATS(nc, subscribers.New[Sink](), WithSubjectPrefix("roost-watch"))
		t.Cleanup(func() { _ = b.Close() })

		require.NoError(t, b.Watch(context.Background(), "orders"))
		require.NoError(t, b.Watch(context.Background(), "orders"))
		assert.Equal(t, 1, b.watches.Len())

		w, ok := b.watches.Get("orders")
		require.True(t, ok)
		assert.True(t, w.sub.IsValid())
	})

	t.Run("drops invalid messages", func(t *testing.T) {
		nc := connectNATS(t)
		b := NATS(nc, subscribers.New[Sink](), WithSubjectPrefix("roost-invalid"))
		t.Cleanup(func() { _ = b.Close() })

		var wg sync.WaitGroup
		wg.Add(1)
		sink := &recordingSink{wg: &wg}
		subscribe(t, b, "orders", "s1", sink)

		require.NoError(t, nc.Publish(b.Subject("orders"), []byte("invalid json")))
		_, err := b.Publish(context.Background(), "orders", message(t, "orders", 1))
		require.NoError(t, err)

		waitGroup(t, &wg, 2*time.Second)
		assert.Equal(t, 1, sink.count())
	})

	t.Run("close unsubscribes and refuses work", func(t *testing.T) {
		nc := connectNATS(t)
		b := NATS(nc, subscribers.New[Sink](), WithSubjectPrefix("roost-close"))

		require.NoError(t, b.Watch(context.Background(), "orders"))
		w, ok := b.watches.Get("orders")
		require.True(t, ok)
		sub := w.sub

		require.NoError(t, b.Close())
		require.NoError(t, b.Close())
		assert.False(t, sub.IsValid())
		assert.False(t, w.watching)

		_, err := b.Publish(context.Background(), "orders", message(t, "orders", 1))
		assert.ErrorIs(t, err, ErrClosed)
		assert.ErrorIs(t, b.Watch(context.Background(), "orders"), ErrClosed)
	})

	t.Run("failed watch can be retried", func(t *testing.T) {
		b := NATS(nil, subscribers.New[Sink]())
		errUnavailable := errors.New("server unavailable")
		attempts := 0
		b.subscribe = func(subject string, _ nats.MsgHandler) (*nats.Subscription, error) {
			attempts++
			assert.Equal(t, "roost.orders", subject)
			if attempts == 1 {
				return nil, errUnavailable
			}
			return nil, nil
		}

		err := b.Watch(context.Background(), "orders")
		require.ErrorIs(t, err, errUnavailable)
		assert.Contains(t, err.Error(), "roost.orders")

		require.NoError(t, b.Watch(context.Background(), "orders"))
		require.NoError(t, b.Watch(context.Background(), "orders"))
		assert.Equal(t, 2, attempts)
		assert.Equal(t, 1, b.watches.Len())

		require.NoError(t, b.Close())
		assert.ErrorIs(t, b.Watch(context.Background(), "orders"), ErrClosed)
		assert.Equal(t, 2, attempts)
	})

	t.Run("concurrent watches subscribe once", func(t *testing.T) {
		b := NATS(nil, subscribers.New[Sink]())
		var attempts atomic.Int32
		b.subscribe = func(string, nats.MsgHandler) (*nats.Subscription, error) {
			attempts.Add(1)
			return nil, nil
		}

		var wg sync.WaitGroup
		wg.Add(16)
		for i := 0; i < 16; i++ {
			go func() {
				defer wg.Done()
				assert.NoError(t, b.Watch(context.Background(), "orders"))
			}()
		}
		wg.Wait()
		assert.EqualValues(t, 1, attempts.Load())
	})

	t.Run("cancelled context is not published", func(t *testing.T) {
		nc := connectNATS(t)
		b := NATS(nc, subscribers.New[Sink](), WithSubjectPrefix("roost-cancel"))
		t.Cleanup(func() { _ = b.Close() })

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := b.Publish(ctx, "orders", message(t, "orders", 1))
		assert.ErrorIs(t, err, context.Canceled)
	})
}
