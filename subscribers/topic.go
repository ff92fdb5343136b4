package subscribers

import "sync"

// topic holds the subscribers of one topic.
type topic[T any] struct {
	mu   sync.RWMutex
	subs map[string]Subscriber[T]
}

func newTopic[T any]() *topic[T] {
	return &topic[T]{
		subs: make(map[string]Subscriber[T]),
	}
}

func (t *topic[T]) snapshot() []Subscriber[T] {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make([]Subscriber[T], 0, len(t.subs))
	for _, sub := range t.subs {
		result = append(result, sub)
	}
	return result
}

func (t *topic[T]) lookup(id string) (Subscriber[T], bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	sub, ok := t.subs[id]
	return sub, ok
}

func (t *topic[T]) len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.subs)
}
