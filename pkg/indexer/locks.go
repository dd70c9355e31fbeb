package indexer

import "sync"

// keyedMutex serializes critical sections per document id. Two ingests
// of the same document run one at a time; different documents never
// contend.
type keyedMutex struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{m: make(map[string]*sync.Mutex)}
}

// lock acquires the mutex for key and returns the matching unlock.
func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	m, ok := k.m[key]
	if !ok {
		m = &sync.Mutex{}
		k.m[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
