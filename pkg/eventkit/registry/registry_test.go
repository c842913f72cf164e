package registry

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	r := New[string, int]()
	assert.NotNil(t, r)
	assert.Equal(t, 0, r.Len())
}

func TestGetMissing(t *testing.T) {
	r := New[string, int]()

	v, ok := r.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, 0, v) // zero value
}

func TestInsertFirstWriterWins(t *testing.T) {
	r := New[string, string]()

	stored, ok := r.Insert("key", "first")
	assert.True(t, ok)
	assert.Equal(t, "first", stored)

	stored, ok = r.Insert("key", "second")
	assert.False(t, ok)
	assert.Equal(t, "first", stored)

	v, _ := r.Get("key")
	assert.Equal(t, "first", v)
}

func TestDelete(t *testing.T) {
	r := New[string, int]()
	r.Insert("key", 1)

	assert.True(t, r.Delete("key"))
	assert.False(t, r.Delete("key"))
	assert.Equal(t, 0, r.Len())
}

func TestCompareAndDelete(t *testing.T) {
	r := New[string, int]()
	r.Insert("key", 1)

	assert.False(t, r.CompareAndDelete("key", func(v int) bool { return v == 2 }))
	assert.Equal(t, 1, r.Len())

	assert.True(t, r.CompareAndDelete("key", func(v int) bool { return v == 1 }))
	assert.Equal(t, 0, r.Len())

	assert.False(t, r.CompareAndDelete("key", func(int) bool { return true }))
}

func TestGetOrCreate(t *testing.T) {
	r := New[string, int]()
	calls := 0
	factory := func() int {
		calls++
		return 42
	}

	v, created := r.GetOrCreate("key", factory)
	assert.True(t, created)
	assert.Equal(t, 42, v)

	v, created = r.GetOrCreate("key", factory)
	assert.False(t, created)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls)
}

func TestAllAllowsMutation(t *testing.T) {
	r := New[int, int]()
	for i := range 5 {
		r.Insert(i, i*10)
	}

	seen := 0
	for k := range r.All() {
		r.Delete(k)
		seen++
	}

	assert.Equal(t, 5, seen)
	assert.Equal(t, 0, r.Len())
}

func TestAllEarlyStop(t *testing.T) {
	r := New[int, int]()
	for i := range 10 {
		r.Insert(i, i)
	}

	seen := 0
	for range r.All() {
		seen++
		if seen == 3 {
			break
		}
	}
	assert.Equal(t, 3, seen)
}

func TestStructKeys(t *testing.T) {
	type key struct {
		owner string
		name  string
	}
	r := New[key, string]()
	r.Insert(key{"Spam", "egged"}, "a")
	r.Insert(key{"Spam", "fried"}, "b")

	v, ok := r.Get(key{"Spam", "egged"})
	require.True(t, ok)
	assert.Equal(t, "a", v)
	assert.Equal(t, 2, r.Len())
}

func TestConcurrentGetOrCreate(t *testing.T) {
	r := New[string, *int]()
	var wg sync.WaitGroup
	n := 100
	var callCount atomic.Int32

	factory := func() *int {
		callCount.Add(1)
		v := 42
		return &v
	}

	results := make([]*int, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = r.GetOrCreate("key", factory)
		}()
	}

	wg.Wait()

	// Factory should only be called once and everyone sees the same value
	assert.Equal(t, int32(1), callCount.Load())
	assert.Equal(t, 1, r.Len())
	for _, p := range results {
		assert.Same(t, results[0], p)
	}
}

func TestConcurrentInsertAndDelete(t *testing.T) {
	r := New[int, int]()
	var wg sync.WaitGroup

	for i := range 100 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.Insert(i, i)
		}()
		go func() {
			defer wg.Done()
			for range r.All() {
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, r.Len())

	for i := range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Delete(i)
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, r.Len())
}
