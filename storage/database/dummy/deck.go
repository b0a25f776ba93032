package dummydb

import (
	"context"
	"sync"

	"github.com/trezcool/darasa/core/collab"
)

type (
	DB struct {
		deck *deckTable
	}

	deckTable struct {
		sync.RWMutex
		table map[string][]collab.Slide
	}

	deckRepository struct {
		db *DB
	}
)

var _ collab.DeckRepository = (*deckRepository)(nil)

func Open() (*DB, error) {
	db := &DB{
		deck: &deckTable{table: make(map[string][]collab.Slide)},
	}
	return db, nil
}

func NewDeckRepository(db *DB) *deckRepository {
	return &deckRepository{db: db}
}

func (repo deckRepository) FetchDeck(_ context.Context, lessonID string) ([]collab.Slide, error) {
	repo.db.deck.RLock()
	defer repo.db.deck.RUnlock()
	slides, ok := repo.db.deck.table[lessonID]
	if !ok {
		return nil, collab.ErrDeckNotFound
	}
	return append([]collab.Slide(nil), slides...), nil
}

func (repo deckRepository) SaveDeck(_ context.Context, lessonID string, slides []collab.Slide) error {
	repo.db.deck.Lock()
	defer repo.db.deck.Unlock()
	repo.db.deck.table[lessonID] = append([]collab.Slide(nil), slides...)
	return nil
}
