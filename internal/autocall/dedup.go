// Package autocall runs the automatic call cycle: it periodically selects
// eligible leads, resolves an assistant, and dispatches calls.
package autocall

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Dedup is an in-memory set of recently dialed (lead, phone) pairs. It keeps
// back-to-back engine cycles from redialing a lead whose outcome has not
// landed yet. Process-local; it starts empty after a restart and that is
// acceptable because the attempt bookkeeping in the database still gates
// dialing.
type Dedup struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]time.Time
	now     func() time.Time
}

// NewDedup creates a dedup set with the given entry TTL.
func NewDedup(ttl time.Duration) *Dedup {
	return &Dedup{
		ttl:     ttl,
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// MarkDialed records that a call was just placed to this lead and number.
func (d *Dedup) MarkDialed(leadID uuid.UUID, phoneNumber string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.purgeLocked()
	d.entries[dedupKey(leadID, phoneNumber)] = d.now().Add(d.ttl)
}

// Contains reports whether the pair was dialed within the TTL window.
func (d *Dedup) Contains(leadID uuid.UUID, phoneNumber string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	expiry, ok := d.entries[dedupKey(leadID, phoneNumber)]
	if !ok {
		return false
	}
	if d.now().After(expiry) {
		delete(d.entries, dedupKey(leadID, phoneNumber))
		return false
	}
	return true
}

// Len returns the number of live entries.
func (d *Dedup) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.purgeLocked()
	return len(d.entries)
}

func (d *Dedup) purgeLocked() {
	now := d.now()
	for key, expiry := range d.entries {
		if now.After(expiry) {
			delete(d.entries, key)
		}
	}
}

func dedupKey(leadID uuid.UUID, phoneNumber string) string {
	return leadID.String() + "|" + phoneNumber
}
