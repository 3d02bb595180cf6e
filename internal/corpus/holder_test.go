package corpus

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHolder_NeverNil(t *testing.T) {
	h := NewHolder(nil)
	assert.NotNil(t, h.Load())
	assert.True(t, h.Load().IsEmpty())

	var zero Holder
	assert.NotNil(t, zero.Load())
}

func TestHolder_SwapReturnsPrevious(t *testing.T) {
	first := New([]*Module{{Name: "A"}})
	second := New([]*Module{{Name: "B"}})
	h := NewHolder(first)

	prev := h.Swap(second)

	assert.Same(t, first, prev)
	assert.Same(t, second, h.Load())
}

func TestHolder_ConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	a := New([]*Module{{Name: "A"}, {Name: "A2"}})
	b := New([]*Module{{Name: "B"}})
	h := NewHolder(a)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				c := h.Load()
				n := len(c.Modules)
				assert.True(t, n == 2 || n == 1)
				assert.Equal(t, c.Stats().Modules, n)
			}
		}()
	}
	for j := 0; j < 100; j++ {
		if j%2 == 0 {
			h.Store(b)
		} else {
			h.Store(a)
		}
	}
	wg.Wait()
}
