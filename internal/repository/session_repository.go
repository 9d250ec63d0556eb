package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/skillbase/skillbase-backend/internal/model"
)

// StaleSession is an expired in-progress session joined with the slice of
// assessment configuration the sweeper needs to score and dispatch it.
type StaleSession struct {
	Session         model.AssessmentSession
	PassScore       int
	SkillDomain     string
	AssessmentTitle string
}

// SessionRepository handles assessment session data access. It is the only
// writer of session state; all lifecycle transitions go through it. Every
// call runs under the store timeout.
type SessionRepository struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool, timeout time.Duration) *SessionRepository {
	return &SessionRepository{pool: pool, timeout: timeout}
}

const sessionColumns = `id, assessment_id, user_id, question_order, status, started_at,
	completed_at, time_remaining_seconds, score, passed, tab_switch_count, ip_address`

func scanSession(row interface{ Scan(dest ...any) error }) (*model.AssessmentSession, error) {
	s := &model.AssessmentSession{}
	var orderRaw []byte
	err := row.Scan(
		&s.ID, &s.AssessmentID, &s.UserID, &orderRaw, &s.Status, &s.StartedAt,
		&s.CompletedAt, &s.TimeRemainingSeconds, &s.Score, &s.Passed,
		&s.TabSwitchCount, &s.IPAddress,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(orderRaw, &s.QuestionOrder); err != nil {
		return nil, fmt.Errorf("decode question order: %w", err)
	}
	return s, nil
}

// CreateWithAnswers inserts a session row together with one placeholder
// answer row per question in its frozen order, as one transaction; a
// failure creating answers must not leave an orphaned session behind.
//
// The insert relies on the partial unique index on
// (assessment_id, user_id) WHERE status = 'in_progress': a concurrent
// start loses the conflict, gets pgx.ErrNoRows back, and the caller
// returns the winner's session instead.
func (r *SessionRepository) CreateWithAnswers(ctx context.Context, s *model.AssessmentSession) error {
	orderRaw, err := json.Marshal(s.QuestionOrder)
	if err != nil {
		return fmt.Errorf("encode question order: %w", err)
	}

	ctx, cancel := bound(ctx, r.timeout)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO assessment_sessions (
			id, assessment_id, user_id, question_order, status,
			time_remaining_seconds, ip_address
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (assessment_id, user_id) WHERE status = 'in_progress' DO NOTHING
		RETURNING id, started_at`,
		s.ID, s.AssessmentID, s.UserID, orderRaw, model.SessionStatusInProgress,
		s.TimeRemainingSeconds, s.IPAddress,
	).Scan(&s.ID, &s.StartedAt)
	if err != nil {
		// pgx.ErrNoRows here means a concurrent start won the insert.
		return err
	}

	if len(s.QuestionOrder) > 0 {
		sessionIDs := make([]uuid.UUID, len(s.QuestionOrder))
		for i := range sessionIDs {
			sessionIDs[i] = s.ID
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO assessment_answers (session_id, question_id)
			 SELECT u.session_id, u.question_id
			 FROM UNNEST($1::uuid[], $2::uuid[]) AS u (session_id, question_id)`,
			sessionIDs, s.QuestionOrder,
		)
		if err != nil {
			return fmt.Errorf("create answer placeholders: %w", err)
		}
	}

	s.Status = model.SessionStatusInProgress
	return tx.Commit(ctx)
}

// GetByID retrieves a session by its UUID.
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.AssessmentSession, error) {
	ctx, cancel := bound(ctx, r.timeout)
	defer cancel()

	row := r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM assessment_sessions WHERE id = $1`, id)
	return scanSession(row)
}

// GetActive retrieves the single in-progress session for an
// (assessment, user) pair, or pgx.ErrNoRows.
func (r *SessionRepository) GetActive(ctx context.Context, assessmentID, userID uuid.UUID) (*model.AssessmentSession, error) {
	ctx, cancel := bound(ctx, r.timeout)
	defer cancel()

	row := r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+`
		 FROM assessment_sessions
		 WHERE assessment_id = $1 AND user_id = $2 AND status = 'in_progress'`,
		assessmentID, userID)
	return scanSession(row)
}

// ListByUser retrieves a user's full attempt history for one assessment,
// ordered by completion time newest first, with unfinished attempts last,
// the order the eligibility gate expects.
func (r *SessionRepository) ListByUser(ctx context.Context, assessmentID, userID uuid.UUID) ([]model.AssessmentSession, error) {
	ctx, cancel := bound(ctx, r.timeout)
	defer cancel()

	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+`
		 FROM assessment_sessions
		 WHERE assessment_id = $1 AND user_id = $2
		 ORDER BY completed_at DESC NULLS LAST`,
		assessmentID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.AssessmentSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// UpdateTimerHint persists the client-reported remaining seconds as a
// resume hint on an in-progress session. Advisory only; expiry always
// recomputes the deadline from started_at.
func (r *SessionRepository) UpdateTimerHint(ctx context.Context, id uuid.UUID, seconds int) error {
	ctx, cancel := bound(ctx, r.timeout)
	defer cancel()

	_, err := r.pool.Exec(ctx,
		`UPDATE assessment_sessions
		 SET time_remaining_seconds = $1
		 WHERE id = $2 AND status = 'in_progress'`,
		seconds, id)
	return err
}

// IncrementTabSwitch bumps the proctoring telemetry counter.
func (r *SessionRepository) IncrementTabSwitch(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := bound(ctx, r.timeout)
	defer cancel()

	_, err := r.pool.Exec(ctx,
		`UPDATE assessment_sessions
		 SET tab_switch_count = tab_switch_count + 1
		 WHERE id = $1 AND status = 'in_progress'`,
		id)
	return err
}

// Finish performs the terminal transition: status, score, passed and
// completed_at written in one conditional update. The status guard makes
// the write race-safe; a session completed by the candidate between a
// sweeper's scan and write is left untouched, and a double completion
// reports false.
func (r *SessionRepository) Finish(ctx context.Context, id uuid.UUID, status model.SessionStatus, res model.SessionResult, completedAt time.Time) (bool, error) {
	var query string
	if status == model.SessionStatusTimedOut {
		// Expired sessions have no time left by definition.
		query = `UPDATE assessment_sessions
			 SET status = $1, score = $2, passed = $3, completed_at = $4,
			     time_remaining_seconds = 0
			 WHERE id = $5 AND status = 'in_progress'`
	} else {
		query = `UPDATE assessment_sessions
			 SET status = $1, score = $2, passed = $3, completed_at = $4
			 WHERE id = $5 AND status = 'in_progress'`
	}

	ctx, cancel := bound(ctx, r.timeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, query, status, res.Score, res.Passed, completedAt, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListStale returns in-progress sessions whose server-side deadline has
// passed, joined with the assessment fields the sweeper needs. orgID
// bounds the scan to one tenant; uuid.Nil scans all.
func (r *SessionRepository) ListStale(ctx context.Context, orgID uuid.UUID, now time.Time, limit int) ([]StaleSession, error) {
	query := `
		SELECT ` + prefixColumns("s", sessionColumns) + `,
		       a.pass_score, a.skill_domain, a.title
		FROM assessment_sessions s
		JOIN assessments a ON s.assessment_id = a.id
		WHERE s.status = 'in_progress'
		  AND s.started_at + make_interval(mins => a.time_limit_minutes) < $1
	`
	args := []any{now}
	if orgID != uuid.Nil {
		args = append(args, orgID)
		query += fmt.Sprintf(" AND a.org_id = $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY s.started_at LIMIT $%d", len(args))

	ctx, cancel := bound(ctx, r.timeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stale []StaleSession
	for rows.Next() {
		var st StaleSession
		var orderRaw []byte
		s := &st.Session
		if err := rows.Scan(
			&s.ID, &s.AssessmentID, &s.UserID, &orderRaw, &s.Status, &s.StartedAt,
			&s.CompletedAt, &s.TimeRemainingSeconds, &s.Score, &s.Passed,
			&s.TabSwitchCount, &s.IPAddress,
			&st.PassScore, &st.SkillDomain, &st.AssessmentTitle,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(orderRaw, &s.QuestionOrder); err != nil {
			return nil, fmt.Errorf("decode question order: %w", err)
		}
		stale = append(stale, st)
	}
	return stale, rows.Err()
}

// ScoresByAssessment returns the scores of every terminal session of an
// assessment, the input of the percentile ranker.
func (r *SessionRepository) ScoresByAssessment(ctx context.Context, assessmentID uuid.UUID) ([]int, error) {
	ctx, cancel := bound(ctx, r.timeout)
	defer cancel()

	rows, err := r.pool.Query(ctx,
		`SELECT score FROM assessment_sessions
		 WHERE assessment_id = $1 AND score IS NOT NULL
		   AND status IN ('completed', 'timed_out')`,
		assessmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scores []int
	for rows.Next() {
		var s int
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		scores = append(scores, s)
	}
	return scores, rows.Err()
}

// ListResultsByAssessment retrieves terminal sessions of an assessment for
// the admin results view, newest first, paginated.
func (r *SessionRepository) ListResultsByAssessment(ctx context.Context, assessmentID uuid.UUID, limit, offset int) ([]model.AssessmentSession, int, error) {
	ctx, cancel := bound(ctx, r.timeout)
	defer cancel()

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM assessment_sessions
		 WHERE assessment_id = $1 AND status IN ('completed', 'timed_out')`,
		assessmentID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+`
		 FROM assessment_sessions
		 WHERE assessment_id = $1 AND status IN ('completed', 'timed_out')
		 ORDER BY completed_at DESC
		 LIMIT $2 OFFSET $3`,
		assessmentID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var sessions []model.AssessmentSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, 0, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, total, rows.Err()
}

// prefixColumns qualifies each column in a comma-separated list with a
// table alias, for use in JOIN queries.
func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

// IsNotFound reports whether err is the store's no-rows result.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
