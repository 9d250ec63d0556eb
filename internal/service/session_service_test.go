package service

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillbase/skillbase-backend/internal/auth"
	"github.com/skillbase/skillbase-backend/internal/engine"
	"github.com/skillbase/skillbase-backend/internal/model"
	"github.com/skillbase/skillbase-backend/internal/repository"
)

// In-memory stores backing the service under test. They mimic the
// PostgreSQL layer's contract, including pgx.ErrNoRows for misses and for
// the unique-index loss on concurrent session creation.

type fakeAssessmentStore struct {
	items map[uuid.UUID]*model.Assessment
}

func (f *fakeAssessmentStore) GetByID(_ context.Context, id uuid.UUID) (*model.Assessment, error) {
	a, ok := f.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

type fakeSessionStore struct {
	items map[uuid.UUID]*model.AssessmentSession
	limit map[uuid.UUID]int // assessment -> time limit minutes, for ListStale
	now   func() time.Time
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		items: make(map[uuid.UUID]*model.AssessmentSession),
		limit: make(map[uuid.UUID]int),
		now:   time.Now,
	}
}

func (f *fakeSessionStore) CreateWithAnswers(_ context.Context, s *model.AssessmentSession) error {
	for _, existing := range f.items {
		if existing.AssessmentID == s.AssessmentID &&
			existing.UserID == s.UserID &&
			existing.Status == model.SessionStatusInProgress {
			return pgx.ErrNoRows
		}
	}
	// The real store scans started_at back from the insert.
	s.StartedAt = f.now()
	cp := *s
	f.items[s.ID] = &cp
	return nil
}

func (f *fakeSessionStore) GetByID(_ context.Context, id uuid.UUID) (*model.AssessmentSession, error) {
	s, ok := f.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessionStore) GetActive(_ context.Context, assessmentID, userID uuid.UUID) (*model.AssessmentSession, error) {
	for _, s := range f.items {
		if s.AssessmentID == assessmentID && s.UserID == userID && s.Status == model.SessionStatusInProgress {
			cp := *s
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeSessionStore) ListByUser(_ context.Context, assessmentID, userID uuid.UUID) ([]model.AssessmentSession, error) {
	var out []model.AssessmentSession
	for _, s := range f.items {
		if s.AssessmentID == assessmentID && s.UserID == userID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ci, cj := out[i].CompletedAt, out[j].CompletedAt
		if ci == nil {
			return cj != nil
		}
		if cj == nil {
			return false
		}
		return ci.After(*cj)
	})
	return out, nil
}

func (f *fakeSessionStore) UpdateTimerHint(_ context.Context, id uuid.UUID, seconds int) error {
	if s, ok := f.items[id]; ok && s.Status == model.SessionStatusInProgress {
		s.TimeRemainingSeconds = &seconds
	}
	return nil
}

func (f *fakeSessionStore) IncrementTabSwitch(_ context.Context, id uuid.UUID) error {
	s, ok := f.items[id]
	if !ok {
		return pgx.ErrNoRows
	}
	s.TabSwitchCount++
	return nil
}

func (f *fakeSessionStore) Finish(_ context.Context, id uuid.UUID, status model.SessionStatus, res model.SessionResult, completedAt time.Time) (bool, error) {
	s, ok := f.items[id]
	if !ok || s.Status != model.SessionStatusInProgress {
		return false, nil
	}
	s.Status = status
	s.Score = &res.Score
	s.Passed = &res.Passed
	s.CompletedAt = &completedAt
	return true, nil
}

func (f *fakeSessionStore) ListStale(_ context.Context, orgID uuid.UUID, now time.Time, limit int) ([]repository.StaleSession, error) {
	var out []repository.StaleSession
	for _, s := range f.items {
		if s.Status != model.SessionStatusInProgress {
			continue
		}
		mins := f.limit[s.AssessmentID]
		if s.Deadline(mins).Before(now) {
			out = append(out, repository.StaleSession{Session: *s, PassScore: 70})
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeSessionStore) ScoresByAssessment(_ context.Context, assessmentID uuid.UUID) ([]int, error) {
	var scores []int
	for _, s := range f.items {
		if s.AssessmentID == assessmentID && s.Status.Terminal() && s.Score != nil {
			scores = append(scores, *s.Score)
		}
	}
	return scores, nil
}

type fakeAnswerStore struct {
	rows map[uuid.UUID]map[uuid.UUID]*model.AssessmentAnswer // session -> question -> row
}

func newFakeAnswerStore() *fakeAnswerStore {
	return &fakeAnswerStore{rows: make(map[uuid.UUID]map[uuid.UUID]*model.AssessmentAnswer)}
}

func (f *fakeAnswerStore) seed(sessionID uuid.UUID, order []uuid.UUID) {
	m := make(map[uuid.UUID]*model.AssessmentAnswer, len(order))
	for _, qid := range order {
		m[qid] = &model.AssessmentAnswer{ID: uuid.New(), SessionID: sessionID, QuestionID: qid}
	}
	f.rows[sessionID] = m
}

func (f *fakeAnswerStore) ListBySession(_ context.Context, sessionID uuid.UUID) ([]model.AssessmentAnswer, error) {
	var out []model.AssessmentAnswer
	for _, row := range f.rows[sessionID] {
		out = append(out, *row)
	}
	return out, nil
}

func (f *fakeAnswerStore) Record(_ context.Context, sessionID, questionID uuid.UUID, selectedIndex int, isCorrect bool, answeredAt time.Time, timeSpentSeconds *int) error {
	row, ok := f.rows[sessionID][questionID]
	if !ok {
		return pgx.ErrNoRows
	}
	row.SelectedIndex = &selectedIndex
	row.IsCorrect = &isCorrect
	row.AnsweredAt = &answeredAt
	if timeSpentSeconds != nil {
		row.TimeSpentSeconds = timeSpentSeconds
	}
	return nil
}

type fakeQuestionStore struct {
	decks   map[uuid.UUID][]uuid.UUID
	correct map[uuid.UUID]int
}

func (f *fakeQuestionStore) ListIDsByDeck(_ context.Context, deckID uuid.UUID) ([]uuid.UUID, error) {
	return append([]uuid.UUID(nil), f.decks[deckID]...), nil
}

func (f *fakeQuestionStore) GetCorrectIndex(_ context.Context, questionID uuid.UUID) (int, error) {
	idx, ok := f.correct[questionID]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	return idx, nil
}

func (f *fakeQuestionStore) ListByIDs(_ context.Context, ids []uuid.UUID) ([]model.Question, error) {
	out := make([]model.Question, 0, len(ids))
	for _, id := range ids {
		if _, ok := f.correct[id]; ok {
			out = append(out, model.Question{ID: id})
		}
	}
	return out, nil
}

func (f *fakeQuestionStore) CountByDeck(_ context.Context, deckID uuid.UUID) (int, error) {
	return len(f.decks[deckID]), nil
}

// racingSessionStore makes the first active-session lookup miss, replaying
// the window between the idempotency check and the insert.
type racingSessionStore struct {
	*fakeSessionStore
	missOnce bool
}

func (r *racingSessionStore) GetActive(ctx context.Context, assessmentID, userID uuid.UUID) (*model.AssessmentSession, error) {
	if r.missOnce {
		r.missOnce = false
		return nil, pgx.ErrNoRows
	}
	return r.fakeSessionStore.GetActive(ctx, assessmentID, userID)
}

type fakeDispatcher struct {
	events []SessionEvent
}

func (f *fakeDispatcher) Dispatch(evt SessionEvent) {
	f.events = append(f.events, evt)
}

// harness wires the fakes into a SessionService with a controllable clock.

type harness struct {
	svc        *SessionService
	asm        *fakeAssessmentStore
	sessions   *fakeSessionStore
	answers    *fakeAnswerStore
	questions  *fakeQuestionStore
	dispatcher *fakeDispatcher
	clock      time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		asm:        &fakeAssessmentStore{items: make(map[uuid.UUID]*model.Assessment)},
		sessions:   newFakeSessionStore(),
		answers:    newFakeAnswerStore(),
		questions:  &fakeQuestionStore{decks: make(map[uuid.UUID][]uuid.UUID), correct: make(map[uuid.UUID]int)},
		dispatcher: &fakeDispatcher{},
		clock:      time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	}
	h.sessions.now = func() time.Time { return h.clock }
	h.svc = NewSessionService(h.asm, h.sessions, h.answers, h.questions, h.dispatcher, nil, zerolog.Nop())
	h.svc.now = func() time.Time { return h.clock }
	return h
}

func (h *harness) advance(d time.Duration) {
	h.clock = h.clock.Add(d)
}

// addAssessment registers a published assessment with a deck of n questions
// whose correct answer is always option 0.
func (h *harness) addAssessment(n int, mutate func(*model.Assessment)) *model.Assessment {
	deckID := uuid.New()
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
		h.questions.correct[ids[i]] = 0
	}
	h.questions.decks[deckID] = ids

	a := &model.Assessment{
		ID:               uuid.New(),
		OrgID:            uuid.New(),
		DeckID:           deckID,
		Title:            "Go Fundamentals",
		SkillDomain:      "golang",
		TimeLimitMinutes: 10,
		PassScore:        70,
		QuestionCount:    n,
		Status:           model.AssessmentStatusPublished,
	}
	if mutate != nil {
		mutate(a)
	}
	h.asm.items[a.ID] = a
	h.sessions.limit[a.ID] = a.TimeLimitMinutes
	return a
}

func (h *harness) candidate(a *model.Assessment) auth.Actor {
	return auth.Actor{UserID: uuid.New(), OrgID: a.OrgID, Role: auth.RoleCandidate}
}

func (h *harness) start(t *testing.T, a *model.Assessment, actor auth.Actor) *model.AssessmentSession {
	t.Helper()
	sess, err := h.svc.StartSession(context.Background(), actor, a.ID, "", "")
	require.NoError(t, err)
	// Placeholder rows exist from the moment the session does.
	h.answers.seed(sess.ID, sess.QuestionOrder)
	return sess
}

func TestStartSession(t *testing.T) {
	t.Run("creates session with frozen question order", func(t *testing.T) {
		h := newHarness(t)
		a := h.addAssessment(5, nil)
		actor := h.candidate(a)

		sess := h.start(t, a, actor)

		assert.Equal(t, model.SessionStatusInProgress, sess.Status)
		assert.Len(t, sess.QuestionOrder, 5)
		seen := make(map[uuid.UUID]bool)
		for _, qid := range sess.QuestionOrder {
			assert.False(t, seen[qid], "question repeated in order")
			seen[qid] = true
		}
		assert.Len(t, h.dispatcher.events, 1)
		assert.Equal(t, "session_started", h.dispatcher.events[0].Type)
	})

	t.Run("second start resumes the same session", func(t *testing.T) {
		h := newHarness(t)
		a := h.addAssessment(3, nil)
		actor := h.candidate(a)

		first := h.start(t, a, actor)
		second, err := h.svc.StartSession(context.Background(), actor, a.ID, "", "")

		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, first.QuestionOrder, second.QuestionOrder)
		assert.Len(t, h.dispatcher.events, 1, "resume must not re-dispatch")
	})

	t.Run("unpublished assessment is rejected", func(t *testing.T) {
		h := newHarness(t)
		a := h.addAssessment(3, func(a *model.Assessment) {
			a.Status = model.AssessmentStatusDraft
		})

		_, err := h.svc.StartSession(context.Background(), h.candidate(a), a.ID, "", "")
		assert.ErrorIs(t, err, engine.ErrNotPublished)
	})

	t.Run("wrong access code is rejected", func(t *testing.T) {
		h := newHarness(t)
		a := h.addAssessment(3, func(a *model.Assessment) {
			a.AccessCode = "s3cret"
		})

		_, err := h.svc.StartSession(context.Background(), h.candidate(a), a.ID, "guess", "")
		assert.ErrorIs(t, err, engine.ErrInvalidAccessCode)
	})

	t.Run("cross-org assessment is hidden", func(t *testing.T) {
		h := newHarness(t)
		a := h.addAssessment(3, nil)
		outsider := auth.Actor{UserID: uuid.New(), OrgID: uuid.New(), Role: auth.RoleCandidate}

		_, err := h.svc.StartSession(context.Background(), outsider, a.ID, "", "")
		assert.ErrorIs(t, err, ErrAssessmentNotFound)
	})

	t.Run("empty deck is rejected", func(t *testing.T) {
		h := newHarness(t)
		a := h.addAssessment(0, func(a *model.Assessment) {
			a.QuestionCount = 5
		})

		_, err := h.svc.StartSession(context.Background(), h.candidate(a), a.ID, "", "")
		assert.ErrorIs(t, err, ErrEmptyDeck)
	})

	t.Run("deck smaller than question count uses whole deck", func(t *testing.T) {
		h := newHarness(t)
		a := h.addAssessment(3, func(a *model.Assessment) {
			a.QuestionCount = 10
		})

		sess := h.start(t, a, h.candidate(a))
		assert.Len(t, sess.QuestionOrder, 3)
	})

	t.Run("max attempts counts only terminal sessions", func(t *testing.T) {
		h := newHarness(t)
		one := 1
		a := h.addAssessment(3, func(a *model.Assessment) {
			a.MaxAttempts = &one
		})
		actor := h.candidate(a)

		sess := h.start(t, a, actor)
		_, err := h.svc.CompleteSession(context.Background(), actor, sess.ID)
		require.NoError(t, err)

		_, err = h.svc.StartSession(context.Background(), actor, a.ID, "", "")
		assert.ErrorIs(t, err, engine.ErrMaxAttemptsReached)
	})

	t.Run("cooldown blocks then lapses", func(t *testing.T) {
		h := newHarness(t)
		cooldown := 30
		a := h.addAssessment(3, func(a *model.Assessment) {
			a.CooldownMinutes = &cooldown
		})
		actor := h.candidate(a)

		sess := h.start(t, a, actor)
		_, err := h.svc.CompleteSession(context.Background(), actor, sess.ID)
		require.NoError(t, err)

		_, err = h.svc.StartSession(context.Background(), actor, a.ID, "", "")
		var ce *engine.CooldownError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, 30, ce.MinutesLeft)

		h.advance(31 * time.Minute)
		_, err = h.svc.StartSession(context.Background(), actor, a.ID, "", "")
		assert.NoError(t, err)
	})

	t.Run("concurrent start returns the winner", func(t *testing.T) {
		h := newHarness(t)
		a := h.addAssessment(3, nil)
		actor := h.candidate(a)
		winner := h.start(t, a, actor)

		// Loser of the insert race: the idempotency lookup misses because
		// the winner committed in between, then the unique index rejects
		// the insert and the service falls back to fetching the winner.
		racing := &racingSessionStore{fakeSessionStore: h.sessions, missOnce: true}
		svc := NewSessionService(h.asm, racing, h.answers, h.questions, h.dispatcher, nil, zerolog.Nop())
		svc.now = func() time.Time { return h.clock }

		got, err := svc.StartSession(context.Background(), actor, a.ID, "", "")
		require.NoError(t, err)
		assert.Equal(t, winner.ID, got.ID)
	})
}

func TestSubmitAnswer(t *testing.T) {
	h := newHarness(t)
	a := h.addAssessment(2, nil)
	actor := h.candidate(a)
	sess := h.start(t, a, actor)
	q0, q1 := sess.QuestionOrder[0], sess.QuestionOrder[1]

	idx := func(i int) *int { return &i }

	t.Run("correctness judged server side", func(t *testing.T) {
		correct, err := h.svc.SubmitAnswer(context.Background(), actor, sess.ID, &model.SubmitAnswerRequest{
			QuestionID:    q0,
			SelectedIndex: idx(0),
		})
		require.NoError(t, err)
		assert.True(t, correct)

		correct, err = h.svc.SubmitAnswer(context.Background(), actor, sess.ID, &model.SubmitAnswerRequest{
			QuestionID:    q1,
			SelectedIndex: idx(2),
		})
		require.NoError(t, err)
		assert.False(t, correct)
	})

	t.Run("re-answering overwrites", func(t *testing.T) {
		_, err := h.svc.SubmitAnswer(context.Background(), actor, sess.ID, &model.SubmitAnswerRequest{
			QuestionID:    q1,
			SelectedIndex: idx(0),
		})
		require.NoError(t, err)

		row := h.answers.rows[sess.ID][q1]
		require.NotNil(t, row.SelectedIndex)
		assert.Equal(t, 0, *row.SelectedIndex)
		assert.True(t, *row.IsCorrect)
	})

	t.Run("question outside the frozen order is rejected", func(t *testing.T) {
		_, err := h.svc.SubmitAnswer(context.Background(), actor, sess.ID, &model.SubmitAnswerRequest{
			QuestionID:    uuid.New(),
			SelectedIndex: idx(0),
		})
		assert.ErrorIs(t, err, ErrQuestionNotInSession)
	})

	t.Run("timer hint is persisted", func(t *testing.T) {
		remaining := 321
		_, err := h.svc.SubmitAnswer(context.Background(), actor, sess.ID, &model.SubmitAnswerRequest{
			QuestionID:           q0,
			SelectedIndex:        idx(0),
			TimeRemainingSeconds: &remaining,
		})
		require.NoError(t, err)

		stored := h.sessions.items[sess.ID]
		require.NotNil(t, stored.TimeRemainingSeconds)
		assert.Equal(t, 321, *stored.TimeRemainingSeconds)
	})

	t.Run("finished session rejects answers", func(t *testing.T) {
		_, err := h.svc.CompleteSession(context.Background(), actor, sess.ID)
		require.NoError(t, err)

		_, err = h.svc.SubmitAnswer(context.Background(), actor, sess.ID, &model.SubmitAnswerRequest{
			QuestionID:    q0,
			SelectedIndex: idx(0),
		})
		assert.ErrorIs(t, err, ErrAlreadyCompleted)
	})
}

func TestCompleteSession(t *testing.T) {
	t.Run("scores the ledger and dispatches once", func(t *testing.T) {
		h := newHarness(t)
		a := h.addAssessment(2, nil)
		actor := h.candidate(a)
		sess := h.start(t, a, actor)
		idx0 := 0

		for _, qid := range sess.QuestionOrder {
			_, err := h.svc.SubmitAnswer(context.Background(), actor, sess.ID, &model.SubmitAnswerRequest{
				QuestionID:    qid,
				SelectedIndex: &idx0,
			})
			require.NoError(t, err)
		}

		res, err := h.svc.CompleteSession(context.Background(), actor, sess.ID)
		require.NoError(t, err)
		assert.Equal(t, 100, res.Score)
		assert.True(t, res.Passed)
		assert.Equal(t, 2, res.Correct)

		// session_started plus exactly one terminal event.
		require.Len(t, h.dispatcher.events, 2)
		evt := h.dispatcher.events[1]
		assert.Equal(t, "session_completed", evt.Type)
		require.NotNil(t, evt.Score)
		assert.Equal(t, 100, *evt.Score)
	})

	t.Run("unanswered questions count as wrong", func(t *testing.T) {
		h := newHarness(t)
		a := h.addAssessment(4, nil)
		actor := h.candidate(a)
		sess := h.start(t, a, actor)
		idx0 := 0

		_, err := h.svc.SubmitAnswer(context.Background(), actor, sess.ID, &model.SubmitAnswerRequest{
			QuestionID:    sess.QuestionOrder[0],
			SelectedIndex: &idx0,
		})
		require.NoError(t, err)

		res, err := h.svc.CompleteSession(context.Background(), actor, sess.ID)
		require.NoError(t, err)
		assert.Equal(t, 25, res.Score)
		assert.False(t, res.Passed)
	})

	t.Run("second completion fails", func(t *testing.T) {
		h := newHarness(t)
		a := h.addAssessment(2, nil)
		actor := h.candidate(a)
		sess := h.start(t, a, actor)

		_, err := h.svc.CompleteSession(context.Background(), actor, sess.ID)
		require.NoError(t, err)

		_, err = h.svc.CompleteSession(context.Background(), actor, sess.ID)
		assert.ErrorIs(t, err, ErrAlreadyCompleted)
		assert.Len(t, h.dispatcher.events, 2, "no second terminal event")
	})

	t.Run("other users' sessions are hidden", func(t *testing.T) {
		h := newHarness(t)
		a := h.addAssessment(2, nil)
		actor := h.candidate(a)
		sess := h.start(t, a, actor)

		other := h.candidate(a)
		_, err := h.svc.CompleteSession(context.Background(), other, sess.ID)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})
}

func TestGetState(t *testing.T) {
	h := newHarness(t)
	a := h.addAssessment(3, nil)
	actor := h.candidate(a)
	sess := h.start(t, a, actor)

	h.advance(4 * time.Minute)

	state, err := h.svc.GetState(context.Background(), actor, sess.ID)
	require.NoError(t, err)
	assert.Len(t, state.Answers, 3)
	assert.Len(t, state.Questions, 3)
	// 10 minute budget, 4 elapsed: the server clock decides, not the client.
	assert.Equal(t, 6*60, state.RemainingSeconds)

	h.advance(7 * time.Minute)
	state, err = h.svc.GetState(context.Background(), actor, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, state.RemainingSeconds, "never negative")
}

func TestStartTimeCache(t *testing.T) {
	t.Run("decodes unix seconds", func(t *testing.T) {
		at, ok := parseUnixSeconds("1748772000")
		require.True(t, ok)
		assert.Equal(t, time.Unix(1748772000, 0), at)
	})

	t.Run("rejects corrupt entries", func(t *testing.T) {
		_, ok := parseUnixSeconds("yesterday")
		assert.False(t, ok)

		_, ok = parseUnixSeconds("")
		assert.False(t, ok)
	})

	t.Run("falls back to the session row without a cache client", func(t *testing.T) {
		h := newHarness(t)
		a := h.addAssessment(2, nil)
		actor := h.candidate(a)
		sess := h.start(t, a, actor)

		_, ok := h.svc.cachedStartTime(context.Background(), sess.ID)
		assert.False(t, ok)

		h.advance(time.Minute)
		state, err := h.svc.GetState(context.Background(), actor, sess.ID)
		require.NoError(t, err)
		assert.Equal(t, 9*60, state.RemainingSeconds)
	})
}

func TestExpireStale(t *testing.T) {
	t.Run("expires only past-deadline sessions", func(t *testing.T) {
		h := newHarness(t)
		a := h.addAssessment(2, nil) // 10 minute limit
		early := h.candidate(a)
		late := h.candidate(a)

		lateSess := h.start(t, a, late)
		h.advance(11 * time.Minute)
		earlySess := h.start(t, a, early)

		n, err := h.svc.ExpireStale(context.Background(), uuid.Nil)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		assert.Equal(t, model.SessionStatusTimedOut, h.sessions.items[lateSess.ID].Status)
		assert.Equal(t, model.SessionStatusInProgress, h.sessions.items[earlySess.ID].Status)
	})

	t.Run("expired session is scored from its partial ledger", func(t *testing.T) {
		h := newHarness(t)
		a := h.addAssessment(2, nil)
		actor := h.candidate(a)
		sess := h.start(t, a, actor)
		idx0 := 0

		_, err := h.svc.SubmitAnswer(context.Background(), actor, sess.ID, &model.SubmitAnswerRequest{
			QuestionID:    sess.QuestionOrder[0],
			SelectedIndex: &idx0,
		})
		require.NoError(t, err)

		h.advance(11 * time.Minute)
		n, err := h.svc.ExpireStale(context.Background(), uuid.Nil)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		stored := h.sessions.items[sess.ID]
		require.NotNil(t, stored.Score)
		assert.Equal(t, 50, *stored.Score)
		assert.Equal(t, "session_timed_out", h.dispatcher.events[len(h.dispatcher.events)-1].Type)
	})

	t.Run("repeated sweeps are a no-op", func(t *testing.T) {
		h := newHarness(t)
		a := h.addAssessment(2, nil)
		h.start(t, a, h.candidate(a))

		h.advance(11 * time.Minute)
		n, err := h.svc.ExpireStale(context.Background(), uuid.Nil)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		n, err = h.svc.ExpireStale(context.Background(), uuid.Nil)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})
}

func TestGetPercentile(t *testing.T) {
	t.Run("in-progress session has no rank", func(t *testing.T) {
		h := newHarness(t)
		a := h.addAssessment(2, nil)
		actor := h.candidate(a)
		sess := h.start(t, a, actor)

		_, err := h.svc.GetPercentile(context.Background(), actor, sess.ID)
		assert.ErrorIs(t, err, ErrNotScored)
	})

	t.Run("single session ranks at the top", func(t *testing.T) {
		h := newHarness(t)
		a := h.addAssessment(2, nil)
		actor := h.candidate(a)
		sess := h.start(t, a, actor)

		_, err := h.svc.CompleteSession(context.Background(), actor, sess.ID)
		require.NoError(t, err)

		p, err := h.svc.GetPercentile(context.Background(), actor, sess.ID)
		require.NoError(t, err)
		assert.Equal(t, 100, p.Percentile)
		assert.Equal(t, 1, p.Rank)
		assert.Equal(t, 1, p.TotalSessions)
	})
}

func TestRecordTabSwitch(t *testing.T) {
	h := newHarness(t)
	a := h.addAssessment(2, nil)
	actor := h.candidate(a)
	sess := h.start(t, a, actor)

	require.NoError(t, h.svc.RecordTabSwitch(context.Background(), actor, sess.ID))
	require.NoError(t, h.svc.RecordTabSwitch(context.Background(), actor, sess.ID))
	assert.Equal(t, 2, h.sessions.items[sess.ID].TabSwitchCount)

	_, err := h.svc.CompleteSession(context.Background(), actor, sess.ID)
	require.NoError(t, err)
	err = h.svc.RecordTabSwitch(context.Background(), actor, sess.ID)
	assert.ErrorIs(t, err, ErrAlreadyCompleted)
}

func TestSessionNotFound(t *testing.T) {
	h := newHarness(t)
	actor := auth.Actor{UserID: uuid.New(), OrgID: uuid.New(), Role: auth.RoleCandidate}

	_, err := h.svc.GetState(context.Background(), actor, uuid.New())
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}
