// ABOUTME: Per-user mutexes serializing free-text turns
// ABOUTME: Locks are reference counted and dropped once nobody holds or waits on them

package bot

import "sync"

type userLock struct {
	mu   sync.Mutex
	refs int
}

// userLocks serializes work per user; different users run in parallel.
type userLocks struct {
	mu    sync.Mutex
	locks map[int64]*userLock
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[int64]*userLock)}
}

// withLock runs fn while holding userID's lock.
func (l *userLocks) withLock(userID int64, fn func()) {
	l.mu.Lock()
	ul, ok := l.locks[userID]
	if !ok {
		ul = &userLock{}
		l.locks[userID] = ul
	}
	ul.refs++
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.locks, userID)
		}
		l.mu.Unlock()
	}()

	ul.mu.Lock()
	defer ul.mu.Unlock()
	fn()
}

func (l *userLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
