package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/skillbase/skillbase-backend/internal/model"
)

// QuestionRepository handles deck/question reads for the session engine.
// Question authoring lives in the content service; the engine only needs
// deck membership and the authoritative correct option.
type QuestionRepository struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool, timeout time.Duration) *QuestionRepository {
	return &QuestionRepository{pool: pool, timeout: timeout}
}

// ListIDsByDeck returns the IDs of every question in a deck, in authored order.
func (r *QuestionRepository) ListIDsByDeck(ctx context.Context, deckID uuid.UUID) ([]uuid.UUID, error) {
	ctx, cancel := bound(ctx, r.timeout)
	defer cancel()

	rows, err := r.pool.Query(ctx,
		`SELECT id FROM questions WHERE deck_id = $1 ORDER BY order_num, id`, deckID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetCorrectIndex returns the authoritative correct option index for a
// question. Clients never supply correctness; it is always looked up here.
func (r *QuestionRepository) GetCorrectIndex(ctx context.Context, questionID uuid.UUID) (int, error) {
	ctx, cancel := bound(ctx, r.timeout)
	defer cancel()

	var idx int
	err := r.pool.QueryRow(ctx,
		`SELECT correct_index FROM questions WHERE id = $1`, questionID,
	).Scan(&idx)
	return idx, err
}

// ListByIDs retrieves full questions for the given IDs. Order of the result
// follows the database; callers reorder by the session's question order.
func (r *QuestionRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Question, error) {
	ctx, cancel := bound(ctx, r.timeout)
	defer cancel()

	rows, err := r.pool.Query(ctx,
		`SELECT id, deck_id, prompt, options, correct_index, order_num
		 FROM questions WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.DeckID, &q.Prompt, &q.Options, &q.CorrectIndex, &q.OrderNum); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// CountByDeck returns how many questions a deck holds, used at publish time
// to warn when the deck is smaller than the configured question count.
func (r *QuestionRepository) CountByDeck(ctx context.Context, deckID uuid.UUID) (int, error) {
	ctx, cancel := bound(ctx, r.timeout)
	defer cancel()

	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM questions WHERE deck_id = $1`, deckID,
	).Scan(&n)
	return n, err
}
