package state

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncrementRequestCount(t *testing.T) {
	s := New()

	assert.Equal(t, uint64(1), s.IncrementRequestCount())
	assert.Equal(t, uint64(2), s.IncrementRequestCount())
	assert.Equal(t, uint64(2), s.RequestCount())
}

func TestIncrementRequestCountConcurrent(t *testing.T) {
	s := New()

	const goroutines = 50
	const perGoroutine = 100

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				s.IncrementRequestCount()
			}
		}()
	}
	wg.Wait()

	// N concurrent increments must land on exactly N.
	assert.Equal(t, uint64(goroutines*perGoroutine), s.RequestCount())
}

func TestAppendToPool(t *testing.T) {
	s := New()

	count, total := s.PoolSnapshot()
	require.Zero(t, count)
	require.Zero(t, total)

	s.AppendToPool(make([]byte, 1024), make([]byte, 2048))

	count, total = s.PoolSnapshot()
	assert.Equal(t, 2, count)
	assert.Equal(t, uint64(3072), total)

	// Pool never shrinks.
	s.AppendToPool(make([]byte, 1))
	count2, total2 := s.PoolSnapshot()
	assert.Greater(t, count2, count)
	assert.Greater(t, total2, total)
}

func TestAppendToPoolConcurrent(t *testing.T) {
	s := New()

	const goroutines = 20
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AppendToPool(make([]byte, 512))
		}()
	}
	wg.Wait()

	count, total := s.PoolSnapshot()
	assert.Equal(t, goroutines, count)
	assert.Equal(t, uint64(goroutines*512), total)
}
