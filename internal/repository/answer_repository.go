package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/skillbase/skillbase-backend/internal/model"
)

// AnswerRepository handles the per-question answer ledger. Rows are created
// once by SessionRepository.CreateWithAnswers and only ever updated after
// that; the set of question IDs for a session never changes.
type AnswerRepository struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewAnswerRepository creates a new AnswerRepository.
func NewAnswerRepository(pool *pgxpool.Pool, timeout time.Duration) *AnswerRepository {
	return &AnswerRepository{pool: pool, timeout: timeout}
}

// ListBySession retrieves a session's full answer ledger. Callers order the
// rows by the session's frozen question order where display order matters.
func (r *AnswerRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.AssessmentAnswer, error) {
	ctx, cancel := bound(ctx, r.timeout)
	defer cancel()

	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, question_id, selected_index, is_correct,
		        answered_at, time_spent_seconds
		 FROM assessment_answers
		 WHERE session_id = $1`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []model.AssessmentAnswer
	for rows.Next() {
		var a model.AssessmentAnswer
		if err := rows.Scan(
			&a.ID, &a.SessionID, &a.QuestionID, &a.SelectedIndex, &a.IsCorrect,
			&a.AnsweredAt, &a.TimeSpentSeconds,
		); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// Record fills in (or overwrites; last write wins) the placeholder row for
// one question. No row is ever inserted here; a missing row means the
// question is outside the session's universe, which callers reject first.
func (r *AnswerRepository) Record(ctx context.Context, sessionID, questionID uuid.UUID, selectedIndex int, isCorrect bool, answeredAt time.Time, timeSpentSeconds *int) error {
	ctx, cancel := bound(ctx, r.timeout)
	defer cancel()

	_, err := r.pool.Exec(ctx,
		`UPDATE assessment_answers
		 SET selected_index = $1, is_correct = $2, answered_at = $3,
		     time_spent_seconds = COALESCE($4, time_spent_seconds)
		 WHERE session_id = $5 AND question_id = $6`,
		selectedIndex, isCorrect, answeredAt, timeSpentSeconds, sessionID, questionID)
	return err
}

// CountAnswered returns how many questions in a session carry an answer.
// Placeholder rows make this a simple non-null count.
func (r *AnswerRepository) CountAnswered(ctx context.Context, sessionID uuid.UUID) (int, error) {
	ctx, cancel := bound(ctx, r.timeout)
	defer cancel()

	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM assessment_answers
		 WHERE session_id = $1 AND selected_index IS NOT NULL`,
		sessionID,
	).Scan(&n)
	return n, err
}
