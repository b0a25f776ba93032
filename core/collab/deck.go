package collab

import (
	"sync"
	"time"
)

// DeckStore is the sole owner of the in-memory slide deck replica. Every
// other component mutates it only through its methods, never by direct field
// assignment, so that every mutation can be paired with a broadcast. Local
// and remote changes land on the same mutators.
//
// Mutators referencing an unknown slide, comment or reaction id are silent
// no-ops, not errors: the transport delivers unordered and at-most-once, so a
// stale reference is routine, and every delete must be safe to replay.
type DeckStore struct {
	mu       sync.RWMutex
	slides   []Slide
	selected string // active slide id; empty when none
	reorder  ReorderPolicy
	onChange func()
}

func NewDeckStore(reorder ReorderPolicy, onChange func()) *DeckStore {
	if reorder == nil {
		reorder = LastWriterWins()
	}
	return &DeckStore{reorder: reorder, onChange: onChange}
}

func (s *DeckStore) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}

// Load replaces the replica with the initial full-state fetch.
func (s *DeckStore) Load(slides []Slide) {
	s.mu.Lock()
	s.slides = append([]Slide(nil), slides...)
	s.selected = ""
	s.mu.Unlock()
	s.changed()
}

// Slides returns a copy of the deck in authoritative order.
func (s *DeckStore) Slides() []Slide {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Slide(nil), s.slides...)
}

func (s *DeckStore) SelectedID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// Select marks a slide as the active selection. Unknown ids are ignored.
func (s *DeckStore) Select(slideID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index(slideID) < 0 {
		return
	}
	s.selected = slideID
}

// CreateSlide appends a new slide to the end of the deck, selects it and
// returns it for the caller to broadcast.
func (s *DeckStore) CreateSlide(title, noteContent string) Slide {
	sl := NewSlide(title, noteContent)
	s.mu.Lock()
	s.slides = append(s.slides, sl)
	s.selected = sl.ID
	s.mu.Unlock()
	s.changed()
	return sl
}

// ApplySlideCreated appends a remotely created slide if its id is not already
// present.
func (s *DeckStore) ApplySlideCreated(sl Slide) {
	s.mu.Lock()
	if s.index(sl.ID) >= 0 {
		s.mu.Unlock()
		return
	}
	s.slides = append(s.slides, sl)
	s.mu.Unlock()
	s.changed()
}

// MoveSlide removes the slide at from and reinserts it at to, and returns the
// full resulting order for the caller to broadcast. Out-of-range indices are
// a no-op returning nil.
func (s *DeckStore) MoveSlide(from, to int) []Slide {
	s.mu.Lock()
	moved := s.reorder.Move(s.slides, from, to)
	if moved == nil {
		s.mu.Unlock()
		return nil
	}
	s.slides = moved
	out := append([]Slide(nil), moved...)
	s.mu.Unlock()
	s.changed()
	return out
}

// ReplaceSlides reconciles a remote whole-array broadcast.
func (s *DeckStore) ReplaceSlides(remote []Slide) {
	s.mu.Lock()
	s.slides = s.reorder.Apply(s.slides, remote)
	if s.selected != "" && s.index(s.selected) < 0 {
		s.selected = ""
	}
	s.mu.Unlock()
	s.changed()
}

// DeleteSlide removes a slide by id; if it was the active selection the
// selection is cleared. Reports whether anything was removed.
func (s *DeckStore) DeleteSlide(slideID string) bool {
	s.mu.Lock()
	i := s.index(slideID)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.slides = append(s.slides[:i], s.slides[i+1:]...)
	if s.selected == slideID {
		s.selected = ""
	}
	s.mu.Unlock()
	s.changed()
	return true
}

// RenameSlide updates a slide title in place. Local-only: slide structural
// changes and comments/reactions are synchronized, continuous text edits are
// not.
func (s *DeckStore) RenameSlide(slideID, title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(slideID)
	if i < 0 {
		return
	}
	s.slides[i].Title = title
}

// EditNote updates a note's content in place. Local-only, same scope boundary
// as RenameSlide.
func (s *DeckStore) EditNote(slideID, noteID, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(slideID)
	if i < 0 {
		return
	}
	for j := range s.slides[i].Notes {
		if s.slides[i].Notes[j].ID == noteID {
			s.slides[i].Notes[j].Content = content
			return
		}
	}
}

// AddComment appends a comment to the named slide. A duplicate comment id is
// rejected silently so replayed text messages cannot duplicate the thread.
// Reports whether the comment was appended.
func (s *DeckStore) AddComment(slideID string, c Comment) bool {
	s.mu.Lock()
	i := s.index(slideID)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	for _, existing := range s.slides[i].Comments {
		if existing.ID == c.ID {
			s.mu.Unlock()
			return false
		}
	}
	s.slides[i].Comments = append(s.slides[i].Comments, c)
	s.mu.Unlock()
	s.changed()
	return true
}

// DeleteComment removes a comment by id from the named slide's thread.
func (s *DeckStore) DeleteComment(slideID, commentID string) {
	s.mu.Lock()
	i := s.index(slideID)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	comments := s.slides[i].Comments
	for j := range comments {
		if comments[j].ID == commentID {
			s.slides[i].Comments = append(comments[:j], comments[j+1:]...)
			s.mu.Unlock()
			s.changed()
			return
		}
	}
	s.mu.Unlock()
}

// AddReaction appends a reaction to the named comment. Uniqueness is by
// reaction id only; the same user reacting twice with different ids is
// accepted.
func (s *DeckStore) AddReaction(commentID, slideID string, r Reaction) {
	s.mu.Lock()
	c := s.comment(slideID, commentID)
	if c == nil {
		s.mu.Unlock()
		return
	}
	for _, existing := range c.Reactions {
		if existing.ID == r.ID {
			s.mu.Unlock()
			return
		}
	}
	c.Reactions = append(c.Reactions, r)
	c.UpdatedAt = time.Now().UTC()
	s.mu.Unlock()
	s.changed()
}

// RemoveReaction removes a reaction by id from the named comment.
func (s *DeckStore) RemoveReaction(slideID, commentID, reactionID string) {
	s.mu.Lock()
	c := s.comment(slideID, commentID)
	if c == nil {
		s.mu.Unlock()
		return
	}
	for j := range c.Reactions {
		if c.Reactions[j].ID == reactionID {
			c.Reactions = append(c.Reactions[:j], c.Reactions[j+1:]...)
			c.UpdatedAt = time.Now().UTC()
			s.mu.Unlock()
			s.changed()
			return
		}
	}
	s.mu.Unlock()
}

// index returns the position of a slide id, or -1. Callers hold s.mu.
func (s *DeckStore) index(slideID string) int {
	for i := range s.slides {
		if s.slides[i].ID == slideID {
			return i
		}
	}
	return -1
}

// comment returns a pointer into the replica, or nil. Callers hold s.mu.
func (s *DeckStore) comment(slideID, commentID string) *Comment {
	i := s.index(slideID)
	if i < 0 {
		return nil
	}
	for j := range s.slides[i].Comments {
		if s.slides[i].Comments[j].ID == commentID {
			return &s.slides[i].Comments[j]
		}
	}
	return nil
}
