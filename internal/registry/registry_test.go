package registry

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	t.Run("add and get", func(t *testing.T) {
		r := New[int]()
		r.Add("a", 1)

		v, ok := r.Get("a")
		require.True(t, ok)
		assert.Equal(t, 1, v)

		_, ok = r.Get("missing")
		assert.False(t, ok)
	})

	t.Run("get or add reuses existing value", func(t *testing.T) {
		r := New[*int]()
		one := 1
		v, loaded := r.GetOrAdd("a", func() *int { return &one })
		assert.False(t, loaded)
		assert.Same(t, &one, v)

		two := 2
		v, loaded = r.GetOrAdd("a", func() *int { return &two })
		assert.True(t, loaded)
		assert.Same(t, &one, v)
	})

	t.Run("take removes value", func(t *testing.T) {
		r := New[string]()
		r.Add("a", "alpha")

		v, ok := r.Take("a")
		require.True(t, ok)
		assert.Equal(t, "alpha", v)
		assert.Equal(t, 0, r.Len())

		_, ok = r.Take("a")
		assert.False(t, ok)
	})

	t.Run("names are sorted", func(t *testing.T) {
		r := New[int](8)
		r.Add("c", 3)
		r.Add("a", 1)
		r.Add("b", 2)
		r.Del("c")

		assert.Equal(t, []string{"a", "b"}, r.Names())
		assert.Equal(t, 2, r.Len())
	})

	t.Run("concurrent get or add converges on one value", func(t *testing.T) {
		r := New[*atomic.Int64]()
		const workers = 32

		var wg sync.WaitGroup
		results := make([]*atomic.Int64, workers)
		wg.Add(workers)
		for i := 0; i < workers; i++ {
			go func(i int) {
				defer wg.Done()
				v, _ := r.GetOrAdd("shared", func() *atomic.Int64 { return new(atomic.Int64) })
				v.Add(1)
				results[i] = v
			}(i)
		}
		wg.Wait()

		for _, v := range results {
			assert.Same(t, results[0], v)
		}
		assert.EqualValues(t, workers, results[0].Load())
	})
}
