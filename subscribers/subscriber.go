package subscribers

import "time"

// Subscriber is one subscription endpoint registered on a topic.
type Subscriber[T any] struct {
	// ID identifies the subscriber within a topic.
	ID string
	// Connection is the id of the connection that owns the subscription, empty
	// for subscribers that live inside the process.
	Connection string
	// Target is the delivery target. The registry only holds it.
	Target T
	// Since is set by the registry when the record is stored.
	Since time.Time

	rev uint64
}

// Predicate selects subscribers for bulk removal.
type Predicate[T any] func(Subscriber[T]) bool

// ByConnection matches every subscriber owned by the given connection.
func ByConnection[T any](connection string) Predicate[T] {
	return func(s Subscriber[T]) bool {
		return connection != "" && s.Connection == connection
	}
}

// ByID matches subscribers with the given id on any topic.
func ByID[T any](id string) Predicate[T] {
	return func(s Subscriber[T]) bool {
		return s.ID == id
	}
}

// Is matches the exact record sub was read from. A record stored later under
// the same id, even with identical fields, does not match.
func Is[T any](sub Subscriber[T]) Predicate[T] {
	return func(s Subscriber[T]) bool {
		return s.ID == sub.ID && s.rev != 0 && s.rev == sub.rev
	}
}
