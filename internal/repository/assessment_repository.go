package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/skillbase/skillbase-backend/internal/model"
)

const assessmentColumns = `id, org_id, deck_id, title, skill_domain, time_limit_minutes,
	pass_score, question_count, shuffle_questions, max_attempts, cooldown_minutes,
	start_date, end_date, access_code, status, created_at, updated_at`

// AssessmentRepository handles assessment configuration data access.
type AssessmentRepository struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewAssessmentRepository creates a new AssessmentRepository.
func NewAssessmentRepository(pool *pgxpool.Pool, timeout time.Duration) *AssessmentRepository {
	return &AssessmentRepository{pool: pool, timeout: timeout}
}

func scanAssessment(row interface{ Scan(dest ...any) error }) (*model.Assessment, error) {
	a := &model.Assessment{}
	err := row.Scan(
		&a.ID, &a.OrgID, &a.DeckID, &a.Title, &a.SkillDomain, &a.TimeLimitMinutes,
		&a.PassScore, &a.QuestionCount, &a.ShuffleQuestions, &a.MaxAttempts, &a.CooldownMinutes,
		&a.StartDate, &a.EndDate, &a.AccessCode, &a.Status, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetByID retrieves an assessment by its UUID.
func (r *AssessmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Assessment, error) {
	ctx, cancel := bound(ctx, r.timeout)
	defer cancel()

	row := r.pool.QueryRow(ctx,
		`SELECT `+assessmentColumns+` FROM assessments WHERE id = $1`, id)
	return scanAssessment(row)
}

// Create inserts a new assessment draft.
func (r *AssessmentRepository) Create(ctx context.Context, a *model.Assessment) error {
	ctx, cancel := bound(ctx, r.timeout)
	defer cancel()

	return r.pool.QueryRow(ctx,
		`INSERT INTO assessments (
			org_id, deck_id, title, skill_domain, time_limit_minutes, pass_score,
			question_count, shuffle_questions, max_attempts, cooldown_minutes,
			start_date, end_date, access_code, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at`,
		a.OrgID, a.DeckID, a.Title, a.SkillDomain, a.TimeLimitMinutes, a.PassScore,
		a.QuestionCount, a.ShuffleQuestions, a.MaxAttempts, a.CooldownMinutes,
		a.StartDate, a.EndDate, a.AccessCode, a.Status,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

// UpdateStatus transitions an assessment's lifecycle status.
func (r *AssessmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.AssessmentStatus) error {
	ctx, cancel := bound(ctx, r.timeout)
	defer cancel()

	_, err := r.pool.Exec(ctx,
		`UPDATE assessments SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id)
	return err
}

// ListByOrg retrieves an organization's assessments, newest first.
func (r *AssessmentRepository) ListByOrg(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]model.Assessment, int, error) {
	ctx, cancel := bound(ctx, r.timeout)
	defer cancel()

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM assessments WHERE org_id = $1`, orgID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+assessmentColumns+`
		 FROM assessments
		 WHERE org_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`, orgID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var assessments []model.Assessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, 0, err
		}
		assessments = append(assessments, *a)
	}
	return assessments, total, rows.Err()
}
