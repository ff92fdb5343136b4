package broker

import (
	"context"
	"errors"
	"reflect"

	"github.com/casualjim/roost/events"
	"github.com/casualjim/roost/subscribers"
)

var (
	// ErrClosed is returned when publishing through a closed broker.
	ErrClosed = errors.New("broker closed")
	// ErrInboxClosed is returned when delivering to a closed inbox.
	ErrInboxClosed = errors.New("inbox closed")
	// ErrSlowSubscriber is returned when a sink did not accept a message in time.
	ErrSlowSubscriber = errors.New("slow subscriber")
)

type Broker interface {
	// Registry returns the registry the broker reads fan-out targets from.
	Registry() *subscribers.Registry[Sink]
	// Watch prepares the broker to deliver messages published on topic to the
	// topic's local subscribers. It is safe to call repeatedly.
	Watch(ctx context.Context, topic string) error
	Publish(ctx context.Context, topic string, msg events.Message) (Delivery, error)
	Close() error
}

// Sink receives the messages delivered to one subscriber.
type Sink interface {
	Deliver(ctx context.Context, msg events.Message) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(ctx context.Context, msg events.Message) error

func (f SinkFunc) Deliver(ctx context.Context, msg events.Message) error {
	return f(ctx, msg)
}

// IsNilSink reports whether s is nil or an interface holding a nil pointer,
// func, map or channel.
func IsNilSink(s Sink) bool {
	if s == nil {
		return true
	}
	v := reflect.ValueOf(s)
	switch v.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Map, reflect.Chan, reflect.Slice, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}

// Delivery counts the outcome of a local fan-out.
type Delivery struct {
	Delivered int
	Failed    int
}
