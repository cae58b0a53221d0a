package search

import "sync"

// Ticket identifies one issued search.
type Ticket struct {
	Seq   uint64
	Query string
}

// Tracker remembers the latest issued search. Responses for any older
// ticket are stale and must be dropped.
type Tracker struct {
	mu      sync.Mutex
	seq     uint64
	current Ticket
	active  bool
}

// Begin issues a new ticket, superseding every earlier one.
func (t *Tracker) Begin(query string) Ticket {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	t.current = Ticket{Seq: t.seq, Query: query}
	t.active = true
	return t.current
}

// Current reports whether tk is still the latest ticket.
func (t *Tracker) Current(tk Ticket) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active && tk == t.current
}

// Cancel invalidates the outstanding ticket, if any.
func (t *Tracker) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	t.active = false
}

// Pending returns the latest ticket while it is active.
func (t *Tracker) Pending() (Ticket, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current, t.active
}

// Done marks tk finished if it is still current.
func (t *Tracker) Done(tk Ticket) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.active || tk != t.current {
		return false
	}
	t.active = false
	return true
}
