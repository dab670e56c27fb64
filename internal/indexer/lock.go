package indexer

import "sync/atomic"

// IndexLock is a non-blocking mutual exclusion flag. Ingestion uses it to
// reject a second run instead of queueing behind the first.
type IndexLock struct {
	state atomic.Int32 // 0 = free, 1 = held
}

// TryAcquire takes the lock if it is free and reports whether it did.
func (l *IndexLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Held reports whether a run currently owns the lock.
func (l *IndexLock) Held() bool {
	return l.state.Load() == 1
}

// Release frees the lock. Only the owner that acquired it may call Release.
func (l *IndexLock) Release() {
	l.state.Store(0)
}
