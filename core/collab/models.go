package collab

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Note types
const (
	NoteTypeText    = "text"
	NoteTypeHeading = "heading"
)

var ErrDeckNotFound = errors.New("deck not found")

type (
	// Identity is a denormalized snapshot of the acting user, embedded in
	// messages and comments as a value. It is intentionally not a live
	// reference to a platform account: peers may never have seen the account.
	Identity struct {
		ID    string `json:"id" validate:"required"`
		Name  string `json:"name"`
		Image string `json:"image"`
		Email string `json:"email" validate:"omitempty,email"`
	}

	// Note holds one block of serialized rich content. Owned by its Slide.
	Note struct {
		ID      string `json:"id"`
		Content string `json:"content"`
		Type    string `json:"type"`
	}

	// Reaction is owned by exactly one Comment. Uniqueness is by ID, not by
	// (user, emoji): the same user may react more than once.
	Reaction struct {
		ID    string   `json:"id"`
		Emoji string   `json:"emoji"`
		User  Identity `json:"user"`
	}

	// Comment is never mutated after creation except for reaction membership.
	Comment struct {
		ID        string     `json:"id"`
		Text      string     `json:"text"`
		Sender    Identity   `json:"sender"`
		Reactions []Reaction `json:"reactions"`
		SlideID   string     `json:"slide"` // back-reference, not ownership
		CreatedAt time.Time  `json:"created_at"` // UTC
		UpdatedAt time.Time  `json:"updated_at"` // UTC
	}

	// Slide's position in the deck slice is its authoritative ordering;
	// no secondary ordering key exists.
	Slide struct {
		ID       string    `json:"id"`
		Title    string    `json:"title"`
		Notes    []Note    `json:"notes"`
		Comments []Comment `json:"comments"`
	}

	// AgendaItem belongs to the sibling meeting-agenda collaboration family.
	AgendaItem struct {
		ID    string `json:"id"`
		Title string `json:"title"`
		Done  bool   `json:"done"`
	}

	// DeckRepository loads and saves persisted decks. The collaboration core
	// never calls it; the surrounding application fetches the initial state
	// and triggers saves.
	DeckRepository interface {
		FetchDeck(ctx context.Context, lessonID string) ([]Slide, error)
		SaveDeck(ctx context.Context, lessonID string, slides []Slide) error
	}
)

func NewSlide(title, noteContent string) Slide {
	return Slide{
		ID:    uuid.New().String(),
		Title: title,
		Notes: []Note{
			{ID: uuid.New().String(), Content: noteContent, Type: NoteTypeText},
		},
	}
}

func NewComment(slideID, text string, sender Identity) Comment {
	now := time.Now().UTC()
	return Comment{
		ID:        uuid.New().String(),
		Text:      text,
		Sender:    sender,
		SlideID:   slideID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func NewReaction(emoji string, user Identity) Reaction {
	return Reaction{
		ID:    uuid.New().String(),
		Emoji: emoji,
		User:  user,
	}
}

func NewAgendaItem(title string) AgendaItem {
	return AgendaItem{
		ID:    uuid.New().String(),
		Title: title,
	}
}
