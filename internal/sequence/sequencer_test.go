package sequence

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextIsStrictlyMonotonicFromStart(t *testing.T) {
	s := New(0)
	assert.EqualValues(t, 1, s.Next())
	assert.EqualValues(t, 2, s.Next())
	assert.EqualValues(t, 3, s.Next())
	assert.EqualValues(t, 3, s.Current())
}

func TestResetRestartsTheSequence(t *testing.T) {
	s := New(0)
	s.Next()
	s.Next()

	s.Reset(0)
	assert.EqualValues(t, 1, s.Next())
}

func TestDifferentStartConventions(t *testing.T) {
	uidSeq := New(0) // first UID is 1
	assert.EqualValues(t, 1, uidSeq.Next())

	frameSeq := New(^uint64(0)) // wraps to 0 on first Next, matching outbound frames starting at 0
	assert.EqualValues(t, 0, frameSeq.Next())
}

func TestConcurrentNextCallsNeverRepeatAValue(t *testing.T) {
	s := New(0)
	const n = 1000
	seen := make(chan uint64, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- s.Next()
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[uint64]bool, n)
	for v := range seen {
		assert.False(t, unique[v], "value %d issued twice", v)
		unique[v] = true
	}
	assert.Len(t, unique, n)
}
