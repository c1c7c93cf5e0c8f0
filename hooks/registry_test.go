package hooks

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_SnapshotIsIndependentCopy(t *testing.T) {
	var r Registry[func()]
	calls := 0
	r.Register(func() { calls++ })

	snap := r.Snapshot()
	r.Register(func() { calls += 10 }) // registered after snapshot taken

	for _, f := range snap {
		f()
	}
	assert.Equal(t, 1, calls, "snapshot must not observe listeners registered afterward")
}

func TestRegistry_ReentrantRegistrationDuringIteration(t *testing.T) {
	var r Registry[func(*Registry[func()])]
	r.Register(func(self *Registry[func()]) {})

	snap := r.Snapshot()
	for range snap {
		r.Register(func(self *Registry[func()]) {}) // must not race or panic
	}
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_Clear(t *testing.T) {
	var r Registry[func()]
	r.Register(func() {})
	r.Clear()
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Snapshot())
}

func TestRegistry_ConcurrentRegisterAndSnapshot(t *testing.T) {
	var r Registry[int]
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			r.Register(n)
			_ = r.Snapshot()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 50, r.Len())
}
