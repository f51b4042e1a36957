package tables

import (
	"sync"
	"time"
)

// presence is the guest set of one table. A removed presence is marked dead so a
// concurrent AddGuest that loaded it before removal retries on a fresh one.
type presence struct {
	mu       sync.Mutex
	sessions map[string]time.Time // session ID -> last seen
	dead     bool
}

func (p *presence) count(now time.Time, ttl time.Duration) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ttl <= 0 {
		return len(p.sessions)
	}
	n := 0
	for _, seen := range p.sessions {
		if now.Sub(seen) < ttl {
			n++
		}
	}
	return n
}

// AddGuest attaches a guest session to a table, or refreshes it if already present.
// It returns the table's live guest count.
func (t *Tracker) AddGuest(tableID int64, sessionID string) int {
	for {
		value, _ := t.guests.LoadOrStore(tableID, &presence{sessions: make(map[string]time.Time)})
		p := value.(*presence)

		p.mu.Lock()
		if p.dead {
			p.mu.Unlock()
			continue
		}
		now := t.now()
		p.sessions[sessionID] = now
		p.mu.Unlock()

		return p.count(now, t.ttl)
	}
}

// Touch is a heartbeat: it refreshes a known session's last-seen time. It returns
// false when the session is not attached to the table or has outlived the TTL, even
// if no sweep has evicted it yet; the guest must join again.
func (t *Tracker) Touch(tableID int64, sessionID string) bool {
	value, ok := t.guests.Load(tableID)
	if !ok {
		return false
	}
	p := value.(*presence)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dead {
		return false
	}
	seen, ok := p.sessions[sessionID]
	if !ok {
		return false
	}
	now := t.now()
	if t.ttl > 0 && now.Sub(seen) >= t.ttl {
		return false
	}
	p.sessions[sessionID] = now
	return true
}

// RemoveGuest detaches a guest session. It returns false if the session was not
// attached to the table.
func (t *Tracker) RemoveGuest(tableID int64, sessionID string) bool {
	value, ok := t.guests.Load(tableID)
	if !ok {
		return false
	}
	p := value.(*presence)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dead {
		return false
	}
	if _, ok := p.sessions[sessionID]; !ok {
		return false
	}
	delete(p.sessions, sessionID)
	if len(p.sessions) == 0 {
		p.dead = true
		t.guests.CompareAndDelete(tableID, p)
	}
	return true
}

// GuestCount returns the number of live guest sessions at a table.
func (t *Tracker) GuestCount(tableID int64) int {
	value, ok := t.guests.Load(tableID)
	if !ok {
		return 0
	}
	return value.(*presence).count(t.now(), t.ttl)
}

// Sweep evicts guest sessions idle for longer than the TTL and returns how many were
// removed. It is a no-op when no TTL is configured.
func (t *Tracker) Sweep() int {
	if t.ttl <= 0 {
		return 0
	}
	now := t.now()
	evicted := 0
	t.guests.Range(func(key, value any) bool {
		p := value.(*presence)
		p.mu.Lock()
		for id, seen := range p.sessions {
			if now.Sub(seen) >= t.ttl {
				delete(p.sessions, id)
				evicted++
			}
		}
		if len(p.sessions) == 0 && !p.dead {
			p.dead = true
			t.guests.CompareAndDelete(key, p)
		}
		p.mu.Unlock()
		return true
	})
	return evicted
}
