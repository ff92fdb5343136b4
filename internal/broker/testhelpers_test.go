package broker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/casualjim/roost/events"
	"github.com/casualjim/roost/subscribers"
	"github.com/stretchr/testify/require"
)

// recordingSink records every delivered message.
type recordingSink struct {
	mu       sync.Mutex
	wg       *sync.WaitGroup
	delay    time.Duration
	err      error
	received []events.Message
}

func (r *recordingSink) Deliver(ctx context.Context, msg events.Message) error {
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	r.received = append(r.received, msg)
	r.mu.Unlock()
	if r.wg != nil {
		r.wg.Done()
	}
	return nil
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.received)
}

func subscribe(t *testing.T, b Broker, topic, id string, sink Sink) {
	t.Helper()
	require.NoError(t, b.Registry().Subscribe(topic, subscribers.Subscriber[Sink]{ID: id, Target: sink}))
	require.NoError(t, b.Watch(context.Background(), topic))
}

func message(t *testing.T, topic string, payload any) events.Message {
	t.Helper()
	msg, err := events.NewMessage(topic, payload)
	require.NoError(t, err)
	return msg
}

func waitGroup(t *testing.T, wg *sync.WaitGroup, timeout time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatal("timeout waiting for messages to be processed")
	}
}
