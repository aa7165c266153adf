package session

import (
	"sync"
	"time"
)

// KeyLocks serializes message processing per session key: two concurrent
// messages for the same participant must not interleave their
// read-modify-write on the store. Different keys proceed in parallel.
//
// Idle entries are evicted lazily so the map does not grow with the
// participant population.
type KeyLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry

	// idleAfter controls lazy eviction of unused entries.
	idleAfter time.Duration
	lastSweep time.Time
}

type lockEntry struct {
	mu       sync.Mutex
	refs     int
	lastUsed time.Time
}

// NewKeyLocks creates a lock table. idleAfter <= 0 defaults to 10 minutes.
func NewKeyLocks(idleAfter time.Duration) *KeyLocks {
	if idleAfter <= 0 {
		idleAfter = 10 * time.Minute
	}
	return &KeyLocks{
		entries:   make(map[string]*lockEntry),
		idleAfter: idleAfter,
		lastSweep: time.Now(),
	}
}

// Acquire locks the entry for key and returns the release function.
func (k *KeyLocks) Acquire(key string) func() {
	k.mu.Lock()
	entry, ok := k.entries[key]
	if !ok {
		entry = &lockEntry{}
		k.entries[key] = entry
	}
	entry.refs++
	k.maybeSweepLocked()
	k.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		k.mu.Lock()
		entry.refs--
		entry.lastUsed = time.Now()
		k.mu.Unlock()
	}
}

// maybeSweepLocked drops idle entries. Caller holds k.mu.
func (k *KeyLocks) maybeSweepLocked() {
	now := time.Now()
	if now.Sub(k.lastSweep) < k.idleAfter {
		return
	}
	k.lastSweep = now
	for key, entry := range k.entries {
		if entry.refs == 0 && now.Sub(entry.lastUsed) > k.idleAfter {
			delete(k.entries, key)
		}
	}
}

// Len reports the current number of tracked keys.
func (k *KeyLocks) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
