package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/skillbase/skillbase-backend/internal/auth"
	"github.com/skillbase/skillbase-backend/internal/config"
	"github.com/skillbase/skillbase-backend/internal/engine"
	"github.com/skillbase/skillbase-backend/internal/model"
	"github.com/skillbase/skillbase-backend/internal/repository"
)

// State errors: client and server disagree about where the session is
// (stale page, replayed request). The client is expected to refresh.
var (
	ErrAssessmentNotFound   = errors.New("assessment not found")
	ErrSessionNotFound      = errors.New("session not found")
	ErrAlreadyCompleted     = errors.New("session is already finished")
	ErrQuestionNotInSession = errors.New("question is not part of this session")
	ErrNotScored            = errors.New("session has no score yet")
	ErrEmptyDeck            = errors.New("assessment deck has no questions")
)

// AssessmentStore is the slice of assessment access the engine needs.
type AssessmentStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Assessment, error)
}

// SessionStore is the authoritative record of session state; every
// lifecycle transition goes through it.
type SessionStore interface {
	CreateWithAnswers(ctx context.Context, s *model.AssessmentSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.AssessmentSession, error)
	GetActive(ctx context.Context, assessmentID, userID uuid.UUID) (*model.AssessmentSession, error)
	ListByUser(ctx context.Context, assessmentID, userID uuid.UUID) ([]model.AssessmentSession, error)
	UpdateTimerHint(ctx context.Context, id uuid.UUID, seconds int) error
	IncrementTabSwitch(ctx context.Context, id uuid.UUID) error
	Finish(ctx context.Context, id uuid.UUID, status model.SessionStatus, res model.SessionResult, completedAt time.Time) (bool, error)
	ListStale(ctx context.Context, orgID uuid.UUID, now time.Time, limit int) ([]repository.StaleSession, error)
	ScoresByAssessment(ctx context.Context, assessmentID uuid.UUID) ([]int, error)
}

// AnswerStore is the per-session answer ledger.
type AnswerStore interface {
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.AssessmentAnswer, error)
	Record(ctx context.Context, sessionID, questionID uuid.UUID, selectedIndex int, isCorrect bool, answeredAt time.Time, timeSpentSeconds *int) error
}

// QuestionStore supplies deck membership and authoritative answers.
type QuestionStore interface {
	ListIDsByDeck(ctx context.Context, deckID uuid.UUID) ([]uuid.UUID, error)
	GetCorrectIndex(ctx context.Context, questionID uuid.UUID) (int, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Question, error)
	CountByDeck(ctx context.Context, deckID uuid.UUID) (int, error)
}

// SessionService drives the assessment session lifecycle: eligibility,
// initiation, answer capture, completion, expiry and ranking.
type SessionService struct {
	assessments AssessmentStore
	sessions    SessionStore
	answers     AnswerStore
	questions   QuestionStore
	dispatcher  Dispatcher
	rdb         *redis.Client // optional fast path; nil in tests
	log         zerolog.Logger
	now         func() time.Time
	staleBatch  int
}

// NewSessionService creates a SessionService.
func NewSessionService(
	assessments AssessmentStore,
	sessions SessionStore,
	answers AnswerStore,
	questions QuestionStore,
	dispatcher Dispatcher,
	rdb *redis.Client,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		assessments: assessments,
		sessions:    sessions,
		answers:     answers,
		questions:   questions,
		dispatcher:  dispatcher,
		rdb:         rdb,
		log:         log.With().Str("component", "session_service").Logger(),
		now:         time.Now,
		staleBatch:  500,
	}
}

// getOwnedAssessment fetches an assessment, hiding other tenants' behind
// not-found.
func (s *SessionService) getOwnedAssessment(ctx context.Context, actor auth.Actor, id uuid.UUID) (*model.Assessment, error) {
	a, err := s.assessments.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("get assessment: %w", err)
	}
	if a.OrgID != actor.OrgID {
		return nil, ErrAssessmentNotFound
	}
	return a, nil
}

// getOwnedSession fetches a session and verifies it belongs to the caller.
// Admins of the owning org may read candidates' sessions.
func (s *SessionService) getOwnedSession(ctx context.Context, actor auth.Actor, id uuid.UUID) (*model.AssessmentSession, error) {
	sess, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess.UserID != actor.UserID && actor.Role != auth.RoleOrgAdmin {
		// Not the owner: hide existence rather than reveal it.
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// StartSession begins (or resumes) an attempt. Eligibility is checked
// against server time and the caller's full attempt history; if an
// in-progress session already exists it is returned unchanged, so starting
// is safe to call repeatedly; a page reload never duplicates an attempt.
func (s *SessionService) StartSession(ctx context.Context, actor auth.Actor, assessmentID uuid.UUID, accessCode, clientIP string) (*model.AssessmentSession, error) {
	a, err := s.getOwnedAssessment(ctx, actor, assessmentID)
	if err != nil {
		return nil, err
	}

	attempts, err := s.sessions.ListByUser(ctx, assessmentID, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}

	now := s.now()
	if err := engine.CheckEligibility(a, attempts, accessCode, now); err != nil {
		return nil, err
	}

	// Idempotency: resume the active attempt if one exists.
	existing, err := s.sessions.GetActive(ctx, assessmentID, actor.UserID)
	if err != nil && !repository.IsNotFound(err) {
		return nil, fmt.Errorf("check active session: %w", err)
	}
	if existing != nil {
		s.cacheStartTime(ctx, existing, a.TimeLimitMinutes)
		return existing, nil
	}

	pool, err := s.questions.ListIDsByDeck(ctx, a.DeckID)
	if err != nil {
		return nil, fmt.Errorf("list deck questions: %w", err)
	}
	if len(pool) == 0 {
		return nil, ErrEmptyDeck
	}

	order, err := engine.DrawQuestions(pool, a.ShuffleQuestions, a.QuestionCount)
	if err != nil {
		return nil, fmt.Errorf("draw questions: %w", err)
	}

	budget := a.TimeLimitMinutes * 60
	session := &model.AssessmentSession{
		ID:                   uuid.New(),
		AssessmentID:         assessmentID,
		UserID:               actor.UserID,
		QuestionOrder:        order,
		Status:               model.SessionStatusInProgress,
		TimeRemainingSeconds: &budget,
	}
	if clientIP != "" {
		session.IPAddress = &clientIP
	}

	if err := s.sessions.CreateWithAnswers(ctx, session); err != nil {
		if repository.IsNotFound(err) {
			// Concurrent start: the partial unique index let exactly one
			// insert through. Return the winner's session.
			winner, fetchErr := s.sessions.GetActive(ctx, assessmentID, actor.UserID)
			if fetchErr != nil {
				return nil, fmt.Errorf("concurrent start detected, fetch failed: %w", fetchErr)
			}
			return winner, nil
		}
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.cacheStartTime(ctx, session, a.TimeLimitMinutes)
	s.dispatcher.Dispatch(SessionEvent{
		Type:            "session_started",
		SessionID:       session.ID,
		AssessmentID:    assessmentID,
		AssessmentTitle: a.Title,
		UserID:          actor.UserID,
		Status:          session.Status,
		OccurredAt:      now,
	})

	s.log.Info().
		Str("session_id", session.ID.String()).
		Str("assessment_id", assessmentID.String()).
		Int("questions", len(order)).
		Msg("session started")

	return session, nil
}

// SubmitAnswer records the candidate's selection for one question of an
// in-progress session. Correctness is judged against the stored question,
// never a client-supplied flag; re-answering overwrites (last write wins).
func (s *SessionService) SubmitAnswer(ctx context.Context, actor auth.Actor, sessionID uuid.UUID, req *model.SubmitAnswerRequest) (bool, error) {
	sess, err := s.getOwnedSession(ctx, actor, sessionID)
	if err != nil {
		return false, err
	}
	if sess.Status != model.SessionStatusInProgress {
		return false, ErrAlreadyCompleted
	}
	if !sess.HasQuestion(req.QuestionID) {
		return false, ErrQuestionNotInSession
	}

	correctIndex, err := s.questions.GetCorrectIndex(ctx, req.QuestionID)
	if err != nil {
		return false, fmt.Errorf("get correct index: %w", err)
	}
	isCorrect := *req.SelectedIndex == correctIndex

	if err := s.answers.Record(ctx, sessionID, req.QuestionID, *req.SelectedIndex, isCorrect, s.now(), req.TimeSpentSeconds); err != nil {
		return false, fmt.Errorf("record answer: %w", err)
	}

	// Persist the client's timer snapshot as a resume hint. Advisory only;
	// the deadline stays startedAt + timeLimitMinutes regardless.
	if req.TimeRemainingSeconds != nil && *req.TimeRemainingSeconds >= 0 {
		if err := s.sessions.UpdateTimerHint(ctx, sessionID, *req.TimeRemainingSeconds); err != nil {
			s.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("persist timer hint failed")
		}
	}

	return isCorrect, nil
}

// CompleteSession scores the ledger and performs the terminal transition to
// completed. Calling it again afterwards fails with ErrAlreadyCompleted;
// a session is never re-scored. Side effects fire only after the terminal
// write commits and can neither block nor revert it.
func (s *SessionService) CompleteSession(ctx context.Context, actor auth.Actor, sessionID uuid.UUID) (*model.SessionResult, error) {
	sess, err := s.getOwnedSession(ctx, actor, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != model.SessionStatusInProgress {
		return nil, ErrAlreadyCompleted
	}

	a, err := s.assessments.GetByID(ctx, sess.AssessmentID)
	if err != nil {
		return nil, fmt.Errorf("get assessment: %w", err)
	}

	answers, err := s.answers.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}

	res := engine.Score(answers, a.PassScore)
	now := s.now()

	ok, err := s.sessions.Finish(ctx, sessionID, model.SessionStatusCompleted, res, now)
	if err != nil {
		return nil, fmt.Errorf("finish session: %w", err)
	}
	if !ok {
		// Lost a race against the sweeper or a duplicate submit.
		return nil, ErrAlreadyCompleted
	}

	s.dispatchTerminal(sess, a.Title, a.SkillDomain, model.SessionStatusCompleted, res, now)

	s.log.Info().
		Str("session_id", sessionID.String()).
		Int("score", res.Score).
		Bool("passed", res.Passed).
		Msg("session completed")

	return &res, nil
}

// RecordTabSwitch bumps the proctoring telemetry counter on an in-progress
// session. Telemetry is stored, never scored.
func (s *SessionService) RecordTabSwitch(ctx context.Context, actor auth.Actor, sessionID uuid.UUID) error {
	sess, err := s.getOwnedSession(ctx, actor, sessionID)
	if err != nil {
		return err
	}
	if sess.Status != model.SessionStatusInProgress {
		return ErrAlreadyCompleted
	}
	return s.sessions.IncrementTabSwitch(ctx, sessionID)
}

// SessionState is the resume view of an attempt: the session, its ledger in
// question order, the questions without answers, and the server-computed
// remaining time.
type SessionState struct {
	Session          *model.AssessmentSession `json:"session"`
	Answers          []model.AssessmentAnswer `json:"answers"`
	Questions        []model.Question         `json:"questions"`
	RemainingSeconds int                      `json:"remaining_seconds"`
}

// GetState returns everything a client needs to render or resume a
// session. Remaining time is recomputed from startedAt and the assessment's
// time limit; the stored client hint is never trusted for this.
func (s *SessionService) GetState(ctx context.Context, actor auth.Actor, sessionID uuid.UUID) (*SessionState, error) {
	sess, err := s.getOwnedSession(ctx, actor, sessionID)
	if err != nil {
		return nil, err
	}

	a, err := s.assessments.GetByID(ctx, sess.AssessmentID)
	if err != nil {
		return nil, fmt.Errorf("get assessment: %w", err)
	}

	answers, err := s.answers.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}

	questions, err := s.questions.ListByIDs(ctx, sess.QuestionOrder)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	remaining := 0
	if sess.Status == model.SessionStatusInProgress {
		// Prefer the cached start time; fall back to the session row and
		// re-warm the cache when the entry is missing or unreadable.
		startedAt, ok := s.cachedStartTime(ctx, sess.ID)
		if !ok {
			startedAt = sess.StartedAt
			s.cacheStartTime(ctx, sess, a.TimeLimitMinutes)
		}
		deadline := startedAt.Add(time.Duration(a.TimeLimitMinutes) * time.Minute)
		if until := deadline.Sub(s.now()); until > 0 {
			remaining = int(until.Seconds())
		}
	}

	return &SessionState{
		Session:          sess,
		Answers:          orderLedger(answers, sess.QuestionOrder),
		Questions:        orderQuestions(questions, sess.QuestionOrder),
		RemainingSeconds: remaining,
	}, nil
}

// GetPercentile ranks a scored session among all terminal sessions of the
// same assessment.
func (s *SessionService) GetPercentile(ctx context.Context, actor auth.Actor, sessionID uuid.UUID) (*model.SessionPercentile, error) {
	sess, err := s.getOwnedSession(ctx, actor, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.Status.Terminal() || sess.Score == nil {
		return nil, ErrNotScored
	}

	scores, err := s.sessions.ScoresByAssessment(ctx, sess.AssessmentID)
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}

	p := engine.Percentile(scores, *sess.Score)
	return &p, nil
}

// ExpireStale force-completes every in-progress session whose time budget
// has elapsed, scoring whatever answers exist. Safe to invoke repeatedly
// and concurrently: racing sweeps compute the same score and the
// conditional terminal write lets only one transition through. orgID
// bounds the scan to one tenant; uuid.Nil sweeps all.
func (s *SessionService) ExpireStale(ctx context.Context, orgID uuid.UUID) (int, error) {
	now := s.now()
	stale, err := s.sessions.ListStale(ctx, orgID, now, s.staleBatch)
	if err != nil {
		return 0, fmt.Errorf("list stale sessions: %w", err)
	}

	expired := 0
	for i := range stale {
		st := &stale[i]

		answers, err := s.answers.ListBySession(ctx, st.Session.ID)
		if err != nil {
			s.log.Error().Err(err).Str("session_id", st.Session.ID.String()).Msg("sweep: list answers failed")
			continue
		}

		res := engine.Score(answers, st.PassScore)

		ok, err := s.sessions.Finish(ctx, st.Session.ID, model.SessionStatusTimedOut, res, now)
		if err != nil {
			s.log.Error().Err(err).Str("session_id", st.Session.ID.String()).Msg("sweep: finish failed")
			continue
		}
		if !ok {
			// Completed by the candidate between scan and write.
			continue
		}

		expired++
		s.dispatchTerminal(&st.Session, st.AssessmentTitle, st.SkillDomain, model.SessionStatusTimedOut, res, now)
	}

	if expired > 0 {
		s.log.Info().Int("expired", expired).Msg("stale sessions expired")
	}
	return expired, nil
}

func (s *SessionService) dispatchTerminal(sess *model.AssessmentSession, title, domain string, status model.SessionStatus, res model.SessionResult, at time.Time) {
	score, passed := res.Score, res.Passed
	evtType := "session_completed"
	if status == model.SessionStatusTimedOut {
		evtType = "session_timed_out"
	}
	s.dispatcher.Dispatch(SessionEvent{
		Type:            evtType,
		SessionID:       sess.ID,
		AssessmentID:    sess.AssessmentID,
		AssessmentTitle: title,
		SkillDomain:     domain,
		UserID:          sess.UserID,
		Status:          status,
		Score:           &score,
		Passed:          &passed,
		OccurredAt:      at,
	})
}

// cacheStartTime keeps the session start in Redis so state fetches during
// an attempt can compute remaining time without trusting stale rows. Best
// effort; PostgreSQL stays the source of truth. The entry outlives the
// time budget by an hour and then expires on its own.
func (s *SessionService) cacheStartTime(ctx context.Context, sess *model.AssessmentSession, timeLimitMinutes int) {
	if s.rdb == nil {
		return
	}
	ttl := time.Duration(timeLimitMinutes)*time.Minute + time.Hour
	key := config.CacheKey.SessionStartKey(sess.ID.String())
	if err := s.rdb.Set(ctx, key, sess.StartedAt.Unix(), ttl).Err(); err != nil {
		s.log.Warn().Err(err).Msg("cache session start failed")
	}
}

// cachedStartTime reads the cached start time back. A miss, a Redis error
// or a corrupt entry all report false and send the caller to the session
// row.
func (s *SessionService) cachedStartTime(ctx context.Context, sessionID uuid.UUID) (time.Time, bool) {
	if s.rdb == nil {
		return time.Time{}, false
	}
	raw, err := s.rdb.Get(ctx, config.CacheKey.SessionStartKey(sessionID.String())).Result()
	if err != nil {
		if err != redis.Nil {
			s.log.Warn().Err(err).Msg("read cached session start failed")
		}
		return time.Time{}, false
	}
	return parseUnixSeconds(raw)
}

// parseUnixSeconds decodes the cached start value, Unix seconds as a
// decimal string.
func parseUnixSeconds(raw string) (time.Time, bool) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(n, 0), true
}

func orderLedger(answers []model.AssessmentAnswer, order []uuid.UUID) []model.AssessmentAnswer {
	byQuestion := make(map[uuid.UUID]model.AssessmentAnswer, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}
	ordered := make([]model.AssessmentAnswer, 0, len(order))
	for _, qid := range order {
		if a, ok := byQuestion[qid]; ok {
			ordered = append(ordered, a)
		}
	}
	return ordered
}

func orderQuestions(questions []model.Question, order []uuid.UUID) []model.Question {
	byID := make(map[uuid.UUID]model.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	ordered := make([]model.Question, 0, len(order))
	for _, qid := range order {
		if q, ok := byID[qid]; ok {
			ordered = append(ordered, q)
		}
	}
	return ordered
}
