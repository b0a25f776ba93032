package collab

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func slide(id, title string) Slide {
	return Slide{ID: id, Title: title}
}

func slideIDs(slides []Slide) []string {
	ids := make([]string, 0, len(slides))
	for _, sl := range slides {
		ids = append(ids, sl.ID)
	}
	return ids
}

func newTestDeck(slides ...Slide) *DeckStore {
	s := NewDeckStore(nil, nil)
	s.Load(slides)
	return s
}

func Test_DeckStore_createSlide(t *testing.T) {
	s := newTestDeck(slide("A", "intro"))

	sl := s.CreateSlide("outro", "closing thoughts")

	assert.NotEmpty(t, sl.ID)
	assert.Equal(t, "outro", sl.Title)
	if assert.Len(t, sl.Notes, 1) {
		assert.Equal(t, "closing thoughts", sl.Notes[0].Content)
		assert.Equal(t, NoteTypeText, sl.Notes[0].Type)
	}
	assert.Equal(t, []string{"A", sl.ID}, slideIDs(s.Slides()))
	assert.Equal(t, sl.ID, s.SelectedID(), "a new slide becomes the active selection")
}

func Test_DeckStore_deleteSlide_idempotent(t *testing.T) {
	s := newTestDeck(slide("A", ""), slide("B", ""))

	assert.True(t, s.DeleteSlide("A"))
	first := slideIDs(s.Slides())

	// replayed delete
	assert.False(t, s.DeleteSlide("A"))
	assert.Equal(t, first, slideIDs(s.Slides()))
	assert.Equal(t, []string{"B"}, first)
}

func Test_DeckStore_deleteSlide_clearsSelection(t *testing.T) {
	s := newTestDeck(slide("A", ""), slide("B", ""))
	s.Select("A")

	s.DeleteSlide("A")

	assert.Empty(t, s.SelectedID())
}

func Test_DeckStore_deleteSlide_neverSeen(t *testing.T) {
	// slide_deleted for X may arrive before slide_created for X ever did
	s := newTestDeck(slide("A", ""), slide("B", ""))

	assert.False(t, s.DeleteSlide("X"))
	assert.Equal(t, []string{"A", "B"}, slideIDs(s.Slides()))
}

func Test_DeckStore_replaceSlides_convergence(t *testing.T) {
	s := newTestDeck(slide("A", ""), slide("B", ""), slide("C", ""))

	s.ReplaceSlides([]Slide{slide("B", ""), slide("A", ""), slide("C", "")})

	assert.Equal(t, []string{"B", "A", "C"}, slideIDs(s.Slides()))
}

func Test_DeckStore_replaceSlides_clearsStaleSelection(t *testing.T) {
	s := newTestDeck(slide("A", ""), slide("B", ""))
	s.Select("B")

	s.ReplaceSlides([]Slide{slide("A", "")})

	assert.Empty(t, s.SelectedID())
}

func Test_DeckStore_moveSlide(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
		want     []string // nil means no-op
	}{
		{name: "first to last", from: 0, to: 2, want: []string{"B", "C", "A"}},
		{name: "last to first", from: 2, to: 0, want: []string{"C", "A", "B"}},
		{name: "middle up", from: 1, to: 0, want: []string{"B", "A", "C"}},
		{name: "same position", from: 1, to: 1, want: []string{"A", "B", "C"}},
		{name: "from out of range", from: 3, to: 0},
		{name: "to out of range", from: 0, to: 3},
		{name: "negative", from: -1, to: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestDeck(slide("A", ""), slide("B", ""), slide("C", ""))
			got := s.MoveSlide(tt.from, tt.to)
			if tt.want == nil {
				assert.Nil(t, got)
				assert.Equal(t, []string{"A", "B", "C"}, slideIDs(s.Slides()))
				return
			}
			assert.Equal(t, tt.want, slideIDs(got), "returned order is broadcast wholesale")
			assert.Equal(t, tt.want, slideIDs(s.Slides()))
		})
	}
}

func Test_DeckStore_applySlideCreated_idempotent(t *testing.T) {
	s := newTestDeck(slide("A", ""))

	s.ApplySlideCreated(slide("B", "remote"))
	s.ApplySlideCreated(slide("B", "remote replay"))

	assert.Equal(t, []string{"A", "B"}, slideIDs(s.Slides()))
}

func Test_DeckStore_addComment_idempotent(t *testing.T) {
	s := newTestDeck(slide("A", ""))
	c := NewComment("A", "first!", Identity{ID: "u1", Name: "Asha"})

	assert.True(t, s.AddComment("A", c))
	// replayed text message, same comment id
	assert.False(t, s.AddComment("A", c))

	assert.Len(t, s.Slides()[0].Comments, 1)
}

func Test_DeckStore_addComment_unknownSlide(t *testing.T) {
	s := newTestDeck(slide("A", ""))

	assert.False(t, s.AddComment("X", NewComment("X", "hello", Identity{ID: "u1"})))
	assert.Empty(t, s.Slides()[0].Comments)
}

func Test_DeckStore_deleteComment(t *testing.T) {
	s := newTestDeck(slide("A", ""))
	c := NewComment("A", "bye", Identity{ID: "u1"})
	s.AddComment("A", c)

	s.DeleteComment("A", c.ID)
	s.DeleteComment("A", c.ID) // replay

	assert.Empty(t, s.Slides()[0].Comments)
}

func Test_DeckStore_addReaction_sameUserTwice(t *testing.T) {
	// uniqueness is by reaction id, not (user, emoji): the same user reacting
	// twice is accepted
	s := newTestDeck(slide("A", ""))
	c := NewComment("A", "nice", Identity{ID: "u1"})
	s.AddComment("A", c)
	user := Identity{ID: "u2", Name: "Ben"}

	s.AddReaction(c.ID, "A", NewReaction("🔥", user))
	s.AddReaction(c.ID, "A", NewReaction("🔥", user))

	assert.Len(t, s.Slides()[0].Comments[0].Reactions, 2)
}

func Test_DeckStore_addReaction_duplicateID(t *testing.T) {
	s := newTestDeck(slide("A", ""))
	c := NewComment("A", "nice", Identity{ID: "u1"})
	s.AddComment("A", c)
	r := NewReaction("👍", Identity{ID: "u2"})

	s.AddReaction(c.ID, "A", r)
	s.AddReaction(c.ID, "A", r) // replay

	assert.Len(t, s.Slides()[0].Comments[0].Reactions, 1)
}

func Test_DeckStore_removeReaction(t *testing.T) {
	s := newTestDeck(slide("A", ""))
	c := NewComment("A", "nice", Identity{ID: "u1"})
	s.AddComment("A", c)
	r := NewReaction("👍", Identity{ID: "u2"})
	s.AddReaction(c.ID, "A", r)

	s.RemoveReaction("A", c.ID, r.ID)
	s.RemoveReaction("A", c.ID, r.ID) // replay

	assert.Empty(t, s.Slides()[0].Comments[0].Reactions)
}

func Test_DeckStore_reactions_staleReferences(t *testing.T) {
	s := newTestDeck(slide("A", ""))

	// comment never seen locally: routine with unordered delivery, not an error
	s.AddReaction("nope", "A", NewReaction("👍", Identity{ID: "u2"}))
	s.RemoveReaction("A", "nope", "r1")
	s.RemoveReaction("X", "nope", "r1")

	assert.Equal(t, []string{"A"}, slideIDs(s.Slides()))
}

func Test_DeckStore_localOnlyEdits(t *testing.T) {
	s := newTestDeck()
	sl := s.CreateSlide("draft", "wip")

	s.RenameSlide(sl.ID, "final")
	s.EditNote(sl.ID, sl.Notes[0].ID, "done")
	s.RenameSlide("X", "ignored")
	s.EditNote(sl.ID, "X", "ignored")

	got := s.Slides()[0]
	assert.Equal(t, "final", got.Title)
	assert.Equal(t, "done", got.Notes[0].Content)
}

func Test_DeckStore_onChange(t *testing.T) {
	var calls int
	s := NewDeckStore(nil, func() { calls++ })

	s.Load([]Slide{slide("A", "")})
	s.CreateSlide("B", "")
	s.DeleteSlide("A")
	s.DeleteSlide("A") // no-op, no notification

	assert.Equal(t, 3, calls)
}
