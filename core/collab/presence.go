package collab

import "sync"

// Tracker maintains the deduplicated presence roster of one channel. It is
// fed two ways: transport-level presence events, and application-level
// user_join broadcasts carrying a full identity payload (raw transport events
// may only carry an opaque id). Both paths converge to the same roster.
type Tracker struct {
	mu      sync.RWMutex
	localID string
	entries map[string]Identity
	order   []string // arrival order
	focus   map[string]string // user id -> selected slide id (advisory)
}

func NewTracker(localID string) *Tracker {
	return &Tracker{
		localID: localID,
		entries: make(map[string]Identity),
		focus:   make(map[string]string),
	}
}

// Join adds an identity to the roster. Idempotent: a duplicate join refreshes
// the stored identity (a user_join broadcast may fill in display info a bare
// transport event lacked) but never duplicates the entry. Reports whether the
// roster changed: a new user, or a bare entry enriched with display info.
func (t *Tracker) Join(identity Identity) bool {
	if identity.ID == "" {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	prev, present := t.entries[identity.ID]
	if !present {
		t.order = append(t.order, identity.ID)
		t.entries[identity.ID] = identity
		return true
	}
	if identity.Name == "" {
		// keep the richer entry
		return false
	}
	t.entries[identity.ID] = identity
	return prev.Name == ""
}

// Leave removes a user from the roster. Idempotent.
func (t *Tracker) Leave(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[id]; !ok {
		return
	}
	delete(t.entries, id)
	delete(t.focus, id)
	for i, uid := range t.order {
		if uid == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// SetFocus records which slide a roster member is looking at. Advisory only;
// unknown users are ignored.
func (t *Tracker) SetFocus(userID, slideID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[userID]; !ok {
		return
	}
	t.focus[userID] = slideID
}

func (t *Tracker) Focus(userID string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.focus[userID]
}

// Snapshot returns the roster for display: the local user first, others in
// arrival order.
func (t *Tracker) Snapshot() []Identity {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Identity, 0, len(t.entries))
	if local, ok := t.entries[t.localID]; ok {
		out = append(out, local)
	}
	for _, id := range t.order {
		if id == t.localID {
			continue
		}
		out = append(out, t.entries[id])
	}
	return out
}

func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
