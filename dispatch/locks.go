package dispatch

import "sync"

// reportLocks hands out one mutex per report id so the store commit and the
// broadcast that follows it are serialized per report. Contention stays on
// the single report being fought over; other reports proceed untouched.
// Entries are reference counted and removed once the last holder releases.
type reportLocks struct {
	mu    sync.Mutex
	locks map[string]*reportLock
}

type reportLock struct {
	mu   sync.Mutex
	refs int
}

func newReportLocks() *reportLocks {
	return &reportLocks{locks: make(map[string]*reportLock)}
}

// lock acquires the mutex for id and returns the matching release func.
func (l *reportLocks) lock(id string) func() {
	l.mu.Lock()
	entry, ok := l.locks[id]
	if !ok {
		entry = &reportLock{}
		l.locks[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
