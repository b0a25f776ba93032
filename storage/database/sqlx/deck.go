package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/collab"
)

const deckSchema = `
CREATE TABLE IF NOT EXISTS lesson_deck (
    lesson_id  text PRIMARY KEY,
    slides     jsonb NOT NULL,
    updated_at timestamptz NOT NULL
);`

type deckRepository struct {
	db *sqlx.DB
}

var _ collab.DeckRepository = (*deckRepository)(nil)

func NewDeckRepository(db *sqlx.DB) (*deckRepository, error) {
	if _, err := db.Exec(deckSchema); err != nil {
		return nil, errors.Wrap(err, "creating lesson_deck table")
	}
	return &deckRepository{db: db}, nil
}

func (repo deckRepository) FetchDeck(ctx context.Context, lessonID string) ([]collab.Slide, error) {
	var raw []byte
	err := repo.db.QueryRowContext(ctx, "SELECT slides FROM lesson_deck WHERE lesson_id = $1", lessonID).Scan(&raw)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, collab.ErrDeckNotFound
		}
		return nil, errors.Wrap(err, "fetching deck")
	}

	var slides []collab.Slide
	if err := json.Unmarshal(raw, &slides); err != nil {
		return nil, errors.Wrap(err, "unmarshalling deck")
	}
	return slides, nil
}

func (repo deckRepository) SaveDeck(ctx context.Context, lessonID string, slides []collab.Slide) error {
	raw, err := json.Marshal(slides)
	if err != nil {
		return errors.Wrap(err, "marshalling deck")
	}

	_, err = repo.db.ExecContext(ctx, `
INSERT INTO lesson_deck (lesson_id, slides, updated_at) VALUES ($1, $2, $3)
ON CONFLICT (lesson_id) DO UPDATE SET slides = EXCLUDED.slides, updated_at = EXCLUDED.updated_at`,
		lessonID, raw, time.Now().UTC(),
	)
	return errors.Wrap(err, "saving deck")
}
