package service

import "sync"

// ticketLocks serializes mutating operations per ticket. Request-driven
// transitions and the scheduler's escalate can race on the same ticket;
// the per-ticket mutex plus the repository version check keep writes
// single-writer.
type ticketLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newTicketLocks() *ticketLocks {
	return &ticketLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the mutex for the given ticket and returns its unlock.
func (l *ticketLocks) acquire(ticketID string) func() {
	l.mu.Lock()
	lock, ok := l.locks[ticketID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[ticketID] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
