package procstate

import (
	"context"
	"sync"
)

// unitLocks serializes state mutations per unit. SQLite offers no row-level
// locking, so exclusivity is enforced in-process; the daemon is the only
// writer of the database.
type unitLocks struct {
	mu   sync.Mutex
	held map[int64]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func (l *unitLocks) acquire(unitID int64) func() {
	l.mu.Lock()
	if l.held == nil {
		l.held = make(map[int64]*lockEntry)
	}
	entry, ok := l.held[unitID]
	if !ok {
		entry = &lockEntry{}
		l.held[unitID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.held, unitID)
		}
		l.mu.Unlock()
	}
}

// WithUnitLock runs fn while holding the unit's exclusive processing lock.
// Every mutation of a unit's processing state must go through this.
func (s *Store) WithUnitLock(ctx context.Context, unitID int64, fn func(ctx context.Context) error) error {
	ctx = ensureContext(ctx)
	if err := ctx.Err(); err != nil {
		return err
	}
	release := s.locks.acquire(unitID)
	defer release()
	return fn(ctx)
}
