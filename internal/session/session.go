package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/casualjim/roost/internal/broker"
	"github.com/casualjim/roost/pkg/slogx"
	"github.com/casualjim/roost/pkg/uuidx"
	"github.com/casualjim/roost/subscribers"
)

// ErrSessionClosed is returned by operations on a closed session.
var ErrSessionClosed = errors.New("session closed")

// Session is one client connection.
type Session struct {
	id     string
	broker broker.Broker
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

func newSession(id string, b broker.Broker, logger *slog.Logger) *Session {
	return &Session{
		id:     id,
		broker: b,
		logger: logger.With(slogx.Connection(id)),
	}
}

func (s *Session) ID() string {
	return s.id
}

// Subscribe registers sink on topic under a generated subscriber id and
// returns that id.
func (s *Session) Subscribe(ctx context.Context, topic string, sink broker.Sink) (string, error) {
	id := uuidx.Prefixed("sub")
	if err := s.SubscribeAs(ctx, topic, id, sink); err != nil {
		return "", err
	}
	return id, nil
}

// SubscribeAs registers sink on topic under the given subscriber id. An
// existing subscription with that id on topic is replaced.
func (s *Session) SubscribeAs(ctx context.Context, topic, id string, sink broker.Sink) error {
	if broker.IsNilSink(sink) {
		return fmt.Errorf("%w: sink is required", subscribers.ErrInvalidInput)
	}

	// the read lock keeps Close from sweeping between the check and the write
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSessionClosed
	}

	err := s.broker.Registry().Subscribe(topic, subscribers.Subscriber[broker.Sink]{
		ID:         id,
		Connection: s.id,
		Target:     sink,
	})
	if err != nil {
		return err
	}

	if err := s.broker.Watch(ctx, topic); err != nil {
		if _, uerr := s.broker.Registry().UnsubscribeIf(topic, id, subscribers.ByConnection[broker.Sink](s.id)); uerr != nil {
			s.logger.Error("failed to roll back subscription", slogx.Error(uerr), slogx.Topic(topic))
		}
		return fmt.Errorf("watch topic %q: %w", topic, err)
	}
	return nil
}

// Unsubscribe removes the subscription with the given id from topic. Only
// subscriptions made through this session are removed.
func (s *Session) Unsubscribe(topic, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, ErrSessionClosed
	}

	return s.broker.Registry().UnsubscribeIf(topic, id, subscribers.ByConnection[broker.Sink](s.id))
}

// Subscriptions returns, per topic, the ids of the subscriptions this session holds.
func (s *Session) Subscriptions() map[string][]string {
	reg := s.broker.Registry()
	owned := subscribers.ByConnection[broker.Sink](s.id)

	result := make(map[string][]string)
	for _, topic := range reg.Topics() {
		for _, sub := range reg.SubscribersOf(topic) {
			if owned(sub) {
				result[topic] = append(result[topic], sub.ID)
			}
		}
	}
	return result
}

// Close removes every subscription of the session and returns how many were
// removed. Closing twice is a no-op.
func (s *Session) Close() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0
	}
	s.closed = true

	removed := s.broker.Registry().RemoveAll(subscribers.ByConnection[broker.Sink](s.id))
	s.logger.Debug("closed session", slog.Int("removed", removed))
	return removed
}

func (s *Session) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}
