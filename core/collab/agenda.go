package collab

import "sync"

// AgendaStore is the meeting-agenda counterpart of DeckStore: same
// whole-array-replace synchronization, same silent no-op policy on unknown
// ids.
type AgendaStore struct {
	mu    sync.RWMutex
	items []AgendaItem
}

func NewAgendaStore() *AgendaStore {
	return &AgendaStore{}
}

func (s *AgendaStore) Load(items []AgendaItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]AgendaItem(nil), items...)
}

func (s *AgendaStore) Items() []AgendaItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]AgendaItem(nil), s.items...)
}

// CreateItem appends a new item and returns the full resulting order for the
// caller to broadcast.
func (s *AgendaStore) CreateItem(title string) []AgendaItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, NewAgendaItem(title))
	return append([]AgendaItem(nil), s.items...)
}

// MoveItem removes the item at from and reinserts it at to, returning the
// full resulting order to broadcast. Out-of-range indices are a no-op
// returning nil.
func (s *AgendaStore) MoveItem(from, to int) []AgendaItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	if from < 0 || from >= len(s.items) || to < 0 || to >= len(s.items) {
		return nil
	}
	out := make([]AgendaItem, 0, len(s.items))
	out = append(out, s.items[:from]...)
	out = append(out, s.items[from+1:]...)
	out = append(out[:to], append([]AgendaItem{s.items[from]}, out[to:]...)...)
	s.items = out
	return append([]AgendaItem(nil), out...)
}

// ReplaceItems reconciles a remote whole-array broadcast.
func (s *AgendaStore) ReplaceItems(remote []AgendaItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]AgendaItem(nil), remote...)
}

// DeleteItem removes an item by id. Reports whether anything was removed.
func (s *AgendaStore) DeleteItem(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return true
		}
	}
	return false
}
