package service

import (
	"hash/fnv"
	"sync"

	"github.com/google/uuid"
)

const lockStripes = 64

// stripedLock serializes operations per uuid key without holding one mutex
// per live entity. Two keys may share a stripe; that only costs contention,
// never correctness.
type stripedLock struct {
	stripes [lockStripes]sync.Mutex
}

// acquire locks the stripe for the key and returns the mutex for deferred
// unlock.
func (l *stripedLock) acquire(key uuid.UUID) *sync.Mutex {
	h := fnv.New32a()
	h.Write(key[:])
	mu := &l.stripes[h.Sum32()%lockStripes]
	mu.Lock()
	return mu
}
