// Package lock provides per-game locking. Turn processing reads and
// writes several rows per request; the lock serializes requests racing
// on the same game so two near-simultaneous placements cannot
// interleave their validate/place/advance steps.
package lock

import (
	"sync"
)

// gameMutex wraps a mutex with reference counting for cleanup.
type gameMutex struct {
	mu       sync.Mutex
	refCount int
}

// GameLock provides per-game mutual exclusion. Construct one per
// process and inject it; there is no package-level instance.
type GameLock struct {
	locks sync.Map // map[int64]*gameMutex
	pool  sync.Pool
}

// NewGameLock creates a new GameLock instance.
func NewGameLock() *GameLock {
	return &GameLock{
		pool: sync.Pool{
			New: func() any {
				return &gameMutex{}
			},
		},
	}
}

// getLock retrieves or creates a mutex for the given game ID.
func (gl *GameLock) getLock(gameID int64) *gameMutex {
	if v, ok := gl.locks.Load(gameID); ok {
		return v.(*gameMutex)
	}

	newLock := gl.pool.Get().(*gameMutex)
	newLock.refCount = 0

	actual, loaded := gl.locks.LoadOrStore(gameID, newLock)
	if loaded {
		// Another goroutine created the lock first, return ours to pool
		gl.pool.Put(newLock)
	}
	return actual.(*gameMutex)
}

// Lock acquires the lock for a game.
func (gl *GameLock) Lock(gameID int64) {
	lock := gl.getLock(gameID)
	lock.mu.Lock()
	lock.refCount++
}

// Unlock releases the lock for a game.
func (gl *GameLock) Unlock(gameID int64) {
	if v, ok := gl.locks.Load(gameID); ok {
		lock := v.(*gameMutex)
		lock.refCount--
		lock.mu.Unlock()
	}
}

// TryLock attempts to acquire the lock without blocking.
// Returns true if the lock was acquired, false otherwise.
func (gl *GameLock) TryLock(gameID int64) bool {
	lock := gl.getLock(gameID)
	if lock.mu.TryLock() {
		lock.refCount++
		return true
	}
	return false
}

// WithLock executes a function while holding the game's lock.
func (gl *GameLock) WithLock(gameID int64, fn func() error) error {
	gl.Lock(gameID)
	defer gl.Unlock(gameID)
	return fn()
}
