// Package state holds the mutable process state shared by all request
// handlers.
package state

import "sync"

// ServiceState is the process-lifetime shared state: a monotonic request
// counter and the persistent demo memory pool. Both fields live under a
// single mutex because the status page reads them as one consistent
// snapshot.
type ServiceState struct {
	mu           sync.Mutex
	requestCount uint64
	memoryPool   [][]byte
	poolBytes    uint64
}

// New creates an empty ServiceState.
func New() *ServiceState {
	return &ServiceState{}
}

// IncrementRequestCount bumps the request counter and returns the
// post-increment value. Called exactly once per accepted request.
func (s *ServiceState) IncrementRequestCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requestCount++
	return s.requestCount
}

// RequestCount returns the current request counter.
func (s *ServiceState) RequestCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requestCount
}

// AppendToPool adds buffers to the persistent pool. Callers allocate the
// buffers before calling so the lock is only held to append references.
// The pool is append-only; it is released at process exit.
func (s *ServiceState) AppendToPool(bufs ...[]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range bufs {
		s.memoryPool = append(s.memoryPool, b)
		s.poolBytes += uint64(len(b))
	}
}

// PoolSnapshot returns the number of pooled buffers and their total size
// in bytes, read atomically with respect to all other state operations.
func (s *ServiceState) PoolSnapshot() (count int, totalBytes uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.memoryPool), s.poolBytes
}
