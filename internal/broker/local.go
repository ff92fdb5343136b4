package broker

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/casualjim/roost/events"
	"github.com/casualjim/roost/pkg/slogx"
	"github.com/casualjim/roost/pkg/uuidx"
	"github.com/casualjim/roost/subscribers"
	"github.com/fogfish/opts"
	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
)

type localBroker struct {
	registry              *subscribers.Registry[Sink]
	slowSubscriberTimeout time.Duration
	logger                *slog.Logger
	closed                atomic.Bool
}

// Local creates a broker that delivers published messages in process.
func Local(reg *subscribers.Registry[Sink], options ...opts.Option[config]) Broker {
	return newLocal(reg, newConfig(options))
}

func newLocal(reg *subscribers.Registry[Sink], c config) *localBroker {
	return &localBroker{
		registry:              reg,
		slowSubscriberTimeout: c.slowSubscriberTimeout,
		logger:                c.logger.With(slogx.LoggerName("broker")),
	}
}

func (b *localBroker) Registry() *subscribers.Registry[Sink] {
	return b.registry
}

func (b *localBroker) Watch(_ context.Context, topic string) error {
	if b.closed.Load() {
		return ErrClosed
	}
	return validateTopic(topic)
}

func (b *localBroker) Publish(ctx context.Context, topic string, msg events.Message) (Delivery, error) {
	if b.closed.Load() {
		return Delivery{}, ErrClosed
	}
	if err := validateTopic(topic); err != nil {
		return Delivery{}, err
	}
	return b.fanOut(ctx, topic, stamp(topic, msg))
}

func (b *localBroker) Close() error {
	b.closed.Store(true)
	return nil
}

// fanOut delivers msg to a snapshot of the topic's subscribers. Sinks that
// fail are evicted from the topic.
func (b *localBroker) fanOut(ctx context.Context, topic string, msg events.Message) (Delivery, error) {
	var (
		delivery Delivery
		err      error
	)

	b.registry.Range(topic, func(sub subscribers.Subscriber[Sink]) bool {
		if err = ctx.Err(); err != nil {
			return false
		}

		if IsNilSink(sub.Target) {
			delivery.Failed++
			b.evict(topic, sub, fmt.Errorf("subscriber has no sink"))
			return true
		}

		dctx, cancel := context.WithTimeout(ctx, b.slowSubscriberTimeout)
		derr := sub.Target.Deliver(dctx, msg)
		cancel()

		if derr == nil {
			delivery.Delivered++
			return true
		}
		if err = ctx.Err(); err != nil {
			return false
		}

		delivery.Failed++
		b.evict(topic, sub, derr)
		return true
	})

	return delivery, err
}

// evict removes sub unless it was replaced by a re-subscribe since the
// snapshot was taken.
func (b *localBroker) evict(topic string, sub subscribers.Subscriber[Sink], cause error) {
	removed, err := b.registry.UnsubscribeIf(topic, sub.ID, subscribers.Is(sub))
	if err != nil {
		b.logger.Error("failed to evict subscriber", slogx.Error(err), slogx.Topic(topic), slogx.Subscriber(sub.ID))
		return
	}
	if !removed {
		return
	}
	b.logger.Warn("evicted subscriber",
		slogx.Error(cause),
		slogx.Topic(topic),
		slogx.Subscriber(sub.ID),
		slogx.Connection(sub.Connection),
	)
}

func validateTopic(topic string) error {
	if topic == "" {
		return fmt.Errorf("%w: topic is required", subscribers.ErrInvalidInput)
	}
	return nil
}

// stamp fills in the envelope fields a publisher may leave empty.
func stamp(topic string, msg events.Message) events.Message {
	msg.Topic = topic
	if msg.ID == uuid.Nil {
		msg.ID = uuidx.New()
	}
	if time.Time(msg.Timestamp).IsZero() {
		msg.Timestamp = strfmt.DateTime(time.Now())
	}
	if msg.Payload == nil {
		msg.Payload = []byte("null")
	}
	return msg
}
