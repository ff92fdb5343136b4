// Package registry provides a lock-free, string keyed index used wherever the
// broker needs to find a long lived object by name: topic entries, open
// sessions and bridged NATS subscriptions.
package registry

import (
	"sort"

	"github.com/alphadose/haxmap"
)

type Registry[T any] interface {
	Get(name string) (T, bool)
	Add(name string, value T)
	// GetOrAdd returns the value stored under name, creating it with valueFn
	// when absent. The second result reports whether the value already existed.
	// Concurrent callers racing on the same absent name all observe the same value.
	GetOrAdd(name string, valueFn func() T) (T, bool)
	// Del and Take remove lazily: a GetOrAdd racing on the same name can store
	// into the entry being removed and be lost. Only remove names that are
	// never added again, such as generated ids.
	Del(name string)
	// Take removes name and returns the value it held.
	Take(name string) (T, bool)
	Len() int
	ForEach(fn func(name string, value T) bool)
	Names() []string
}

type registry[T any] struct {
	values *haxmap.Map[string, T]
}

// New creates an empty registry. An optional size hint pre-sizes the
// underlying map.
func New[T any](sizeHint ...uintptr) Registry[T] {
	return &registry[T]{
		values: haxmap.New[string, T](sizeHint...),
	}
}

func (r *registry[T]) Get(name string) (T, bool) {
	return r.values.Get(name)
}

func (r *registry[T]) Add(name string, value T) {
	r.values.Set(name, value)
}

func (r *registry[T]) GetOrAdd(name string, valueFn func() T) (T, bool) {
	return r.values.GetOrCompute(name, valueFn)
}

func (r *registry[T]) Del(name string) {
	r.values.Del(name)
}

func (r *registry[T]) Take(name string) (T, bool) {
	return r.values.GetAndDel(name)
}

func (r *registry[T]) Len() int {
	return int(r.values.Len())
}

func (r *registry[T]) ForEach(fn func(name string, value T) bool) {
	r.values.ForEach(fn)
}

// Names returns a sorted snapshot of the keys present at the time of the call.
func (r *registry[T]) Names() []string {
	names := make([]string, 0, r.values.Len())
	r.values.ForEach(func(name string, _ T) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}
