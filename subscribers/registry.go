package subscribers

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/casualjim/roost/internal/registry"
	"github.com/casualjim/roost/pkg/slogx"
	"github.com/fogfish/opts"
)

// Registry maps topic names to the subscribers registered on them. All methods
// are safe for concurrent use. The zero value is not usable, create one with New.
type Registry[T any] struct {
	topics registry.Registry[*topic[T]]
	revs   atomic.Uint64
	logger *slog.Logger
}

// New creates an empty registry.
func New[T any](options ...opts.Option[config]) *Registry[T] {
	o := config{logger: slog.Default()}
	if err := opts.Apply(&o, options); err != nil {
		panic(err)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	var topics registry.Registry[*topic[T]]
	if o.sizeHint > 0 {
		topics = registry.New[*topic[T]](o.sizeHint)
	} else {
		topics = registry.New[*topic[T]]()
	}

	return &Registry[T]{
		topics: topics,
		logger: o.logger.With(slogx.LoggerName("subscribers")),
	}
}

// Subscribe registers sub on the named topic, creating the topic when it has
// never been seen. A subscriber with the same id on the same topic is replaced.
func (r *Registry[T]) Subscribe(name string, sub Subscriber[T]) error {
	if err := validate(name, sub.ID); err != nil {
		return err
	}
	sub.Since = time.Now()
	sub.rev = r.revs.Add(1)

	t, _ := r.topics.GetOrAdd(name, newTopic[T])

	t.mu.Lock()
	_, replaced := t.subs[sub.ID]
	t.subs[sub.ID] = sub
	t.mu.Unlock()

	r.logger.Debug("subscribed",
		slogx.Topic(name),
		slogx.Subscriber(sub.ID),
		slogx.Connection(sub.Connection),
		slog.Bool("replaced", replaced),
	)
	return nil
}

// Unsubscribe removes the subscriber with the given id from the named topic.
// It reports whether a record was removed.
func (r *Registry[T]) Unsubscribe(name, id string) (bool, error) {
	return r.unsubscribe(name, id, nil)
}

// UnsubscribeIf removes the subscriber with the given id from the named topic
// only when the stored record matches cond. The check and the removal happen
// under the topic's write lock. A nil cond removes nothing.
func (r *Registry[T]) UnsubscribeIf(name, id string, cond Predicate[T]) (bool, error) {
	if cond == nil {
		return false, validate(name, id)
	}
	return r.unsubscribe(name, id, cond)
}

func (r *Registry[T]) unsubscribe(name, id string, cond Predicate[T]) (bool, error) {
	if err := validate(name, id); err != nil {
		return false, err
	}

	t, ok := r.topics.Get(name)
	if !ok {
		return false, nil
	}

	t.mu.Lock()
	current, ok := t.subs[id]
	if !ok || (cond != nil && !cond(current)) {
		t.mu.Unlock()
		return false, nil
	}
	delete(t.subs, id)
	t.mu.Unlock()

	r.logger.Debug("unsubscribed", slogx.Topic(name), slogx.Subscriber(id))
	return true, nil
}

// SubscribersOf returns a snapshot of the subscribers registered on the named
// topic. The result is empty for unknown topics. Order is unspecified.
func (r *Registry[T]) SubscribersOf(name string) []Subscriber[T] {
	t, ok := r.topics.Get(name)
	if !ok {
		return []Subscriber[T]{}
	}
	return t.snapshot()
}

// Range calls fn for each subscriber in a snapshot of the named topic until fn
// returns false. No lock is held while fn runs.
func (r *Registry[T]) Range(name string, fn func(Subscriber[T]) bool) {
	for _, sub := range r.SubscribersOf(name) {
		if !fn(sub) {
			return
		}
	}
}

// Lookup returns the subscriber with the given id on the named topic.
func (r *Registry[T]) Lookup(name, id string) (Subscriber[T], bool) {
	t, ok := r.topics.Get(name)
	if !ok {
		var zero Subscriber[T]
		return zero, false
	}
	return t.lookup(id)
}

// SubscriberCount returns the number of subscribers on the named topic.
func (r *Registry[T]) SubscriberCount(name string) int {
	t, ok := r.topics.Get(name)
	if !ok {
		return 0
	}
	return t.len()
}

// TopicCount returns the number of topics with at least one subscriber.
func (r *Registry[T]) TopicCount() int {
	count := 0
	r.topics.ForEach(func(_ string, t *topic[T]) bool {
		if t.len() > 0 {
			count++
		}
		return true
	})
	return count
}

// Topics returns the sorted names of the topics with at least one subscriber.
func (r *Registry[T]) Topics() []string {
	names := r.topics.Names()
	result := names[:0]
	for _, name := range names {
		if r.SubscriberCount(name) > 0 {
			result = append(result, name)
		}
	}
	return result
}

// RemoveAll removes every subscriber matching pred from every topic and
// returns how many records were removed. Each topic is updated atomically, a
// concurrent reader sees either all or none of a topic's matching subscribers.
// The operation as a whole is not atomic across topics.
func (r *Registry[T]) RemoveAll(pred Predicate[T]) int {
	if pred == nil {
		return 0
	}

	var entries []*topic[T]
	r.topics.ForEach(func(_ string, t *topic[T]) bool {
		entries = append(entries, t)
		return true
	})

	removed := 0
	for _, t := range entries {
		removed += r.removeMatching(t, pred)
	}

	if removed > 0 {
		r.logger.Debug("removed subscribers", slog.Int("count", removed))
	}
	return removed
}

func (r *Registry[T]) removeMatching(t *topic[T], pred Predicate[T]) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for id, sub := range t.subs {
		if pred(sub) {
			delete(t.subs, id)
			removed++
		}
	}
	return removed
}
