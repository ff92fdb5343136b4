package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/casualjim/roost/events"
)

// DefaultInboxSize is the buffer used by NewInbox for sizes below one.
const DefaultInboxSize = 50

// Inbox is a buffered Sink read through C. After Close every delivery fails
// with ErrInboxClosed; the channel itself is never closed so a late delivery
// cannot panic, readers select on Done instead.
type Inbox struct {
	channel   chan events.Message
	done      chan struct{}
	closeOnce sync.Once
}

func NewInbox(size int) *Inbox {
	if size < 1 {
		size = DefaultInboxSize
	}
	return &Inbox{
		channel: make(chan events.Message, size),
		done:    make(chan struct{}),
	}
}

func (i *Inbox) C() <-chan events.Message {
	return i.channel
}

func (i *Inbox) Done() <-chan struct{} {
	return i.done
}

func (i *Inbox) Close() {
	i.closeOnce.Do(func() { close(i.done) })
}

func (i *Inbox) Deliver(ctx context.Context, msg events.Message) error {
	if i == nil {
		return ErrInboxClosed
	}
	select {
	case <-i.done:
		return ErrInboxClosed
	default:
	}

	select {
	case <-i.done:
		return ErrInboxClosed
	case i.channel <- msg:
		return nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: inbox full", ErrSlowSubscriber)
		}
		return ctx.Err()
	}
}
