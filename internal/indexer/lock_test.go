package indexer

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndexLock(t *testing.T) {
	var lock IndexLock

	assert.False(t, lock.Held())
	assert.True(t, lock.TryAcquire())
	assert.True(t, lock.Held())
	assert.False(t, lock.TryAcquire())

	lock.Release()
	assert.False(t, lock.Held())
	assert.True(t, lock.TryAcquire())
}

func TestIndexLock_SingleWinner(t *testing.T) {
	var lock IndexLock
	var winners atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if lock.TryAcquire() {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
}
