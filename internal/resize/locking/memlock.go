package locking

import "sync"

// MemLock is a Group implementation backed by in-process mutexes. It only
// guards against races within a single process; deployments running several
// imgctrl processes over one cache tree should use FileLock instead.
type MemLock struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewMemLock returns an empty in-process lock group.
func NewMemLock() *MemLock {
	return &MemLock{
		locks: make(map[string]*sync.Mutex),
	}
}

// DoWithLock runs fn while holding the mutex associated with key.
func (m *MemLock) DoWithLock(key string, fn func() error) error {
	m.mu.Lock()
	lock, ok := m.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[key] = lock
	}
	m.mu.Unlock()
	lock.Lock()
	defer lock.Unlock()
	return fn()
}
