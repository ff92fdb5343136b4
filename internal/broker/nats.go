package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/casualjim/roost/events"
	"github.com/casualjim/roost/internal/registry"
	"github.com/casualjim/roost/pkg/slogx"
	"github.com/casualjim/roost/subscribers"
	"github.com/fogfish/opts"
	"github.com/nats-io/nats.go"
)

type natsBroker struct {
	local     *localBroker
	client    *nats.Conn
	prefix    string
	watches   registry.Registry[*natsWatch]
	subscribe func(subject string, handler nats.MsgHandler) (*nats.Subscription, error)
	logger    *slog.Logger
	closed    atomic.Bool
}

// NATS creates a broker that publishes through NATS subjects named
// "<prefix>.<topic>". Messages arriving on a watched subject are fanned out to
// the topic's local subscribers, including the ones published by this process.
// The connection stays owned by the caller.
func NATS(client *nats.Conn, reg *subscribers.Registry[Sink], options ...opts.Option[config]) *natsBroker {
	c := newConfig(options)
	b := &natsBroker{
		local:   newLocal(reg, c),
		client:  client,
		prefix:  c.subjectPrefix,
		watches: registry.New[*natsWatch](),
		logger:  c.logger.With(slogx.LoggerName("broker.nats")),
	}
	b.subscribe = func(subject string, handler nats.MsgHandler) (*nats.Subscription, error) {
		return b.client.Subscribe(subject, handler)
	}
	return b
}

// natsWatch is the subject subscription of one topic. Entries stay in the
// index for the life of the broker, a failed subscribe is retried by the next
// Watch on the same entry.
type natsWatch struct {
	mu       sync.Mutex
	watching bool
	sub      *nats.Subscription
}

func (b *natsBroker) Registry() *subscribers.Registry[Sink] {
	return b.local.registry
}

func (b *natsBroker) Subject(topic string) string {
	return b.prefix + "." + topic
}

// Watch subscribes to the topic's subject once per broker. A failed attempt
// leaves the topic unwatched, so calling Watch again retries it.
func (b *natsBroker) Watch(ctx context.Context, topic string) error {
	if b.closed.Load() {
		return ErrClosed
	}
	if err := validateTopic(topic); err != nil {
		return err
	}

	w, _ := b.watches.GetOrAdd(topic, func() *natsWatch { return &natsWatch{} })
	w.mu.Lock()
	defer w.mu.Unlock()

	if b.closed.Load() {
		return ErrClosed
	}
	if w.watching {
		return nil
	}

	sub, err := b.subscribe(b.Subject(topic), func(msg *nats.Msg) {
		b.receive(topic, msg)
	})
	if err != nil {
		return fmt.Errorf("watch %s: %w", b.Subject(topic), err)
	}
	w.sub, w.watching = sub, true
	return nil
}

func (b *natsBroker) receive(topic string, msg *nats.Msg) {
	event, err := events.FromJSON(msg.Data)
	if err != nil {
		b.logger.Error("failed to unmarshal message", slogx.Error(err), slogx.Topic(topic))
		return
	}

	delivery, err := b.local.fanOut(context.Background(), topic, event)
	if err != nil {
		b.logger.Error("failed to deliver message", slogx.Error(err), slogx.Topic(topic))
	}

	if msg.Reply != "" {
		if nerr := msg.Ack(); nerr != nil {
			b.logger.Error("failed to ack message", slogx.Error(nerr), slogx.Topic(topic))
			return
		}
	}
	b.logger.Debug("delivered message",
		slogx.Topic(topic),
		slog.Int("delivered", delivery.Delivered),
		slog.Int("failed", delivery.Failed),
	)
}

// Publish sends msg to the topic's subject. Local subscribers receive it once
// it comes back from the server, so the returned Delivery is always empty.
func (b *natsBroker) Publish(ctx context.Context, topic string, msg events.Message) (Delivery, error) {
	if b.closed.Load() {
		return Delivery{}, ErrClosed
	}
	if err := validateTopic(topic); err != nil {
		return Delivery{}, err
	}
	if err := ctx.Err(); err != nil {
		return Delivery{}, err
	}

	data, err := events.ToJSON(stamp(topic, msg))
	if err != nil {
		return Delivery{}, err
	}
	return Delivery{}, b.client.Publish(b.Subject(topic), data)
}

// Close unsubscribes every watched subject. The NATS connection is left open.
func (b *natsBroker) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	b.local.Close()

	var errs []error
	b.watches.ForEach(func(_ string, w *natsWatch) bool {
		w.mu.Lock()
		defer w.mu.Unlock()

		sub := w.sub
		w.sub, w.watching = nil, false
		if sub == nil {
			return true
		}
		if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			errs = append(errs, err)
		}
		return true
	})
	return errors.Join(errs...)
}
