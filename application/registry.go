package application

import (
	"crypto/rand"
	"fmt"
	"sync"
)

// codeAlphabet excludes characters that read ambiguously when a
// player relays a code out loud or copies it by hand (0/O, 1/I).
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Registry serializes all work on a single room. Every boundary
// operation takes the room's lock before opening its unit of work, so
// two requests for the same room never interleave while requests for
// different rooms proceed in parallel.
type Registry struct {
	mu    sync.Mutex
	locks map[string]*roomLock

	codeLength int
}

type roomLock struct {
	sync.Mutex
	refs int
}

// NewRegistry creates a registry generating codes of the given length
func NewRegistry(codeLength int) *Registry {
	return &Registry{
		locks:      make(map[string]*roomLock),
		codeLength: codeLength,
	}
}

// WithRoomLock runs fn while holding the lock for code. Locks are
// created on demand and dropped once no caller references them.
func (r *Registry) WithRoomLock(code string, fn func() error) error {
	r.mu.Lock()
	lock, ok := r.locks[code]
	if !ok {
		lock = &roomLock{}
		r.locks[code] = lock
	}
	lock.refs++
	r.mu.Unlock()

	lock.Lock()
	defer func() {
		lock.Unlock()
		r.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(r.locks, code)
		}
		r.mu.Unlock()
	}()

	return fn()
}

// GenerateCode returns a fresh random room code. Uniqueness is
// enforced by the rooms table; callers retry on a duplicate.
func (r *Registry) GenerateCode() (string, error) {
	buf := make([]byte, r.codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
