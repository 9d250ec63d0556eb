package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/skillbase/skillbase-backend/internal/auth"
	"github.com/skillbase/skillbase-backend/internal/model"
	"github.com/skillbase/skillbase-backend/internal/repository"
)

var ErrNotDraft = errors.New("assessment is not a draft")

// AssessmentAdminStore is the write-side assessment access used by admins.
type AssessmentAdminStore interface {
	AssessmentStore
	Create(ctx context.Context, a *model.Assessment) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.AssessmentStatus) error
	ListByOrg(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]model.Assessment, int, error)
}

// ResultStore is the read-side session access used for admin reporting.
type ResultStore interface {
	ListResultsByAssessment(ctx context.Context, assessmentID uuid.UUID, limit, offset int) ([]model.AssessmentSession, int, error)
}

// AssessmentService handles the admin lifecycle of assessments: drafting,
// publishing, archiving and reviewing results. Candidates never touch it.
type AssessmentService struct {
	assessments AssessmentAdminStore
	questions   QuestionStore
	results     ResultStore
	log         zerolog.Logger
}

// NewAssessmentService creates an AssessmentService.
func NewAssessmentService(
	assessments AssessmentAdminStore,
	questions QuestionStore,
	results ResultStore,
	log zerolog.Logger,
) *AssessmentService {
	return &AssessmentService{
		assessments: assessments,
		questions:   questions,
		results:     results,
		log:         log.With().Str("component", "assessment_service").Logger(),
	}
}

// Create stores a new assessment as a draft in the caller's organization.
func (s *AssessmentService) Create(ctx context.Context, actor auth.Actor, req *model.CreateAssessmentRequest) (*model.Assessment, error) {
	a := &model.Assessment{
		ID:               uuid.New(),
		OrgID:            actor.OrgID,
		DeckID:           req.DeckID,
		Title:            req.Title,
		SkillDomain:      req.SkillDomain,
		TimeLimitMinutes: req.TimeLimitMinutes,
		PassScore:        req.PassScore,
		QuestionCount:    req.QuestionCount,
		ShuffleQuestions: req.ShuffleQuestions,
		MaxAttempts:      req.MaxAttempts,
		CooldownMinutes:  req.CooldownMinutes,
		StartDate:        req.StartDate,
		EndDate:          req.EndDate,
		AccessCode:       req.AccessCode,
		Status:           model.AssessmentStatusDraft,
	}

	if err := s.assessments.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create assessment: %w", err)
	}

	s.log.Info().
		Str("assessment_id", a.ID.String()).
		Str("org_id", actor.OrgID.String()).
		Msg("assessment drafted")

	return a, nil
}

// GetByID returns one assessment of the caller's organization.
func (s *AssessmentService) GetByID(ctx context.Context, actor auth.Actor, id uuid.UUID) (*model.Assessment, error) {
	return s.getOwned(ctx, actor, id)
}

// List returns the caller organization's assessments, newest first.
func (s *AssessmentService) List(ctx context.Context, actor auth.Actor, limit, offset int) ([]model.Assessment, int, error) {
	items, total, err := s.assessments.ListByOrg(ctx, actor.OrgID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list assessments: %w", err)
	}
	return items, total, nil
}

// Publish opens a draft to candidates. A deck with no questions cannot be
// published; a deck smaller than the configured question count can, since
// sessions then simply take the whole deck.
func (s *AssessmentService) Publish(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	a, err := s.getOwned(ctx, actor, id)
	if err != nil {
		return err
	}
	if a.Status != model.AssessmentStatusDraft {
		return ErrNotDraft
	}

	deckSize, err := s.questions.CountByDeck(ctx, a.DeckID)
	if err != nil {
		return fmt.Errorf("count deck questions: %w", err)
	}
	if deckSize == 0 {
		return ErrEmptyDeck
	}
	if deckSize < a.QuestionCount {
		s.log.Warn().
			Str("assessment_id", a.ID.String()).
			Int("deck_size", deckSize).
			Int("question_count", a.QuestionCount).
			Msg("deck smaller than question count, sessions will use the whole deck")
	}

	if err := s.assessments.UpdateStatus(ctx, id, model.AssessmentStatusPublished); err != nil {
		return fmt.Errorf("publish assessment: %w", err)
	}

	s.log.Info().Str("assessment_id", a.ID.String()).Msg("assessment published")
	return nil
}

// Archive closes an assessment to new session starts. Running sessions keep
// going until they complete or time out.
func (s *AssessmentService) Archive(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	a, err := s.getOwned(ctx, actor, id)
	if err != nil {
		return err
	}
	if a.Status == model.AssessmentStatusArchived {
		return nil
	}

	if err := s.assessments.UpdateStatus(ctx, id, model.AssessmentStatusArchived); err != nil {
		return fmt.Errorf("archive assessment: %w", err)
	}

	s.log.Info().Str("assessment_id", a.ID.String()).Msg("assessment archived")
	return nil
}

// Results lists an assessment's sessions for admin review, newest finishers
// first.
func (s *AssessmentService) Results(ctx context.Context, actor auth.Actor, id uuid.UUID, limit, offset int) ([]model.AssessmentSession, int, error) {
	if _, err := s.getOwned(ctx, actor, id); err != nil {
		return nil, 0, err
	}

	sessions, total, err := s.results.ListResultsByAssessment(ctx, id, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list results: %w", err)
	}
	return sessions, total, nil
}

func (s *AssessmentService) getOwned(ctx context.Context, actor auth.Actor, id uuid.UUID) (*model.Assessment, error) {
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
