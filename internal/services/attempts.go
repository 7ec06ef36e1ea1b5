package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"quizgen-backend/internal/metrics"
	"quizgen-backend/internal/models"
	"quizgen-backend/internal/repository"
	"quizgen-backend/internal/scoring"
)

const maxAnswers = 1000

// TokenRedeemer validates an access code without consuming it.
type TokenRedeemer interface {
	Redeem(ctx context.Context, code string) (*models.AccessToken, error)
}

type AttemptConfig struct {
	SecondsPerQuestion int
	Policy             scoring.Policy
}

// AttemptService runs a participant's single attempt: start shows the
// questions, submit grades them and consumes the code.
type AttemptService struct {
	redeemer     TokenRedeemer
	sets         QuestionSetStore
	tokens       AccessTokenStore
	attempts     AttemptStore
	participants ParticipantStore
	metrics      *metrics.Metrics
	cfg          AttemptConfig
	now          func() time.Time
}

func NewAttemptService(
	redeemer TokenRedeemer,
	sets QuestionSetStore,
	tokens AccessTokenStore,
	attempts AttemptStore,
	participants ParticipantStore,
	m *metrics.Metrics,
	cfg AttemptConfig,
) *AttemptService {
	if cfg.SecondsPerQuestion <= 0 {
		cfg.SecondsPerQuestion = 60
	}
	return &AttemptService{
		redeemer:     redeemer,
		sets:         sets,
		tokens:       tokens,
		attempts:     attempts,
		participants: participants,
		metrics:      m,
		cfg:          cfg,
		now:          time.Now,
	}
}

// Start returns the questions without their answers. It does not consume the
// code, so an abandoned attempt can be resumed until the code expires.
func (s *AttemptService) Start(ctx context.Context, code string) (*models.AttemptSession, error) {
	tok, err := s.redeemer.Redeem(ctx, code)
	if err != nil {
		return nil, err
	}

	set, err := s.readySet(ctx, tok.QuestionSetID)
	if err != nil {
		return nil, err
	}

	done, err := s.attempts.HasResult(ctx, tok.ParticipantID, tok.QuestionSetID)
	if err != nil {
		return nil, fmt.Errorf("failed to check previous attempt: %w", err)
	}
	if done {
		return nil, &AlreadySubmittedError{Message: "This quiz has already been submitted"}
	}

	questions, err := s.sets.ListQuestions(ctx, set.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	public := make([]models.PublicQuestion, len(questions))
	for i, q := range questions {
		public[i] = q.Public()
	}

	session := &models.AttemptSession{
		Code:             tok.Code,
		QuestionSetID:    set.ID,
		Name:             set.Name,
		Description:      set.Description,
		TotalQuestions:   len(public),
		Questions:        public,
		TimeLimitSeconds: len(public) * s.cfg.SecondsPerQuestion,
		ExpiresAt:        tok.ExpiresAt,
	}
	if p, err := s.participants.GetByID(ctx, tok.ParticipantID); err == nil {
		session.Participant = p
	}
	return session, nil
}

// Submit grades the answers and records the result. The code is consumed in
// the same transaction that writes the result; of two concurrent submissions
// exactly one succeeds.
func (s *AttemptService) Submit(ctx context.Context, req models.SubmitAttemptRequest) (*models.AttemptOutcome, error) {
	if req.TimeSpentSeconds == nil {
		return nil, invalid("time_spent", "Time spent is required")
	}
	if *req.TimeSpentSeconds < 0 {
		return nil, invalid("time_spent", "Time spent must not be negative")
	}
	if len(req.Answers) > maxAnswers {
		return nil, invalid("answers", "Too many answers")
	}

	tok, err := s.redeemer.Redeem(ctx, req.Code)
	if err != nil {
		return nil, err
	}

	set, err := s.readySet(ctx, tok.QuestionSetID)
	if err != nil {
		return nil, err
	}

	questions, err := s.sets.ListQuestions(ctx, set.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	items := make([]scoring.Item, len(questions))
	for i, q := range questions {
		items[i] = scoring.Item{ID: q.ID.String(), CorrectLabel: q.CorrectLabel}
	}

	graded := s.cfg.Policy.Grade(items, req.Answers, *req.TimeSpentSeconds)

	answers := make(map[string]string, len(graded.Items))
	for _, it := range graded.Items {
		if it.Given != "" {
			answers[it.ID] = it.Given
		}
	}

	record := &models.AttemptResult{
		ParticipantID:    tok.ParticipantID,
		QuestionSetID:    set.ID,
		OwnerID:          set.OwnerID,
		CorrectCount:     graded.Correct,
		WrongCount:       graded.Wrong,
		UnattemptedCount: graded.Unattempted,
		TotalQuestions:   graded.Total,
		RawScore:         graded.RawScore.InexactFloat64(),
		FinalScore:       graded.FinalScore.InexactFloat64(),
		ScorePercent:     graded.Percentage,
		Grade:            graded.Grade,
		Passed:           graded.Passed,
		TimeSpentSeconds: graded.TimeSpentSeconds,
		Answers:          answers,
	}

	err = s.attempts.ConsumeAndRecord(ctx, tok.Code, record, s.now())
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, &NotFoundError{Message: "Invalid access code"}
	case errors.Is(err, repository.ErrTokenConsumed):
		return nil, &AlreadyUsedError{Message: "This access code has already been used"}
	case errors.Is(err, repository.ErrTokenExpired):
		return nil, &ExpiredError{Message: "This access code has expired"}
	case errors.Is(err, repository.ErrResultExists):
		return nil, &AlreadySubmittedError{Message: "This quiz has already been submitted"}
	case err != nil:
		return nil, fmt.Errorf("failed to record attempt: %w", err)
	}

	s.metrics.AttemptSubmitted(graded.Passed, graded.Percentage)
	log.Printf("Attempt %s recorded for set %s: %d%% (%s)", record.ID, set.ID, graded.Percentage, graded.Grade)

	return s.outcome(record.ID, graded), nil
}

// Results lists every attempt and every issued code for an owner's set.
func (s *AttemptService) Results(ctx context.Context, ownerID, setID uuid.UUID) (*models.SetResults, error) {
	set, err := ownedSet(ctx, s.sets, ownerID, setID)
	if err != nil {
		return nil, err
	}

	attempts, err := s.attempts.ListBySet(ctx, set.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	tokens, err := s.tokens.ListBySet(ctx, set.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list access codes: %w", err)
	}

	res := &models.SetResults{
		QuestionSetID: set.ID,
		Name:          set.Name,
		Attempts:      attempts,
		Invitations:   make([]models.InvitationStatus, len(tokens)),
	}
	if res.Attempts == nil {
		res.Attempts = []models.AttemptResult{}
	}
	for i, t := range tokens {
		res.Invitations[i] = models.InvitationStatus{
			ParticipantID: t.ParticipantID,
			Code:          t.Code,
			Consumed:      t.Consumed,
			UsedAt:        t.UsedAt,
			ExpiresAt:     t.ExpiresAt,
		}
	}
	return res, nil
}

func (s *AttemptService) readySet(ctx context.Context, setID uuid.UUID) (*models.QuestionSet, error) {
	set, err := s.sets.GetByID(ctx, setID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Message: "Quiz not found"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load question set: %w", err)
	}
	if set.Status != models.StatusCompleted {
		return nil, &NotReadyError{Message: "This quiz is not ready yet"}
	}
	return set, nil
}

func (s *AttemptService) outcome(id uuid.UUID, r scoring.Result) *models.AttemptOutcome {
	out := &models.AttemptOutcome{
		AttemptID:        id,
		CorrectCount:     r.Correct,
		WrongCount:       r.Wrong,
		UnattemptedCount: r.Unattempted,
		TotalQuestions:   r.Total,
		RawScore:         r.RawScore.String(),
		FinalScore:       r.FinalScore.StringFixed(2),
		ScorePercent:     r.Percentage,
		Grade:            r.Grade,
		Passed:           r.Passed,
		TimeSpentSeconds: r.TimeSpentSeconds,
		NegativeMarking:  fmt.Sprintf("-%s per wrong answer", s.cfg.Policy.WrongPenalty),
		Breakdown: models.ScoreBreakdown{
			Correct:     r.Breakdown.Correct,
			Wrong:       r.Breakdown.Wrong,
			Unattempted: r.Breakdown.Unattempted,
			Total:       r.Breakdown.Total,
		},
		Details: make([]models.QuestionOutcome, len(r.Items)),
	}
	for i, it := range r.Items {
		out.Details[i] = models.QuestionOutcome{
			QuestionID:    it.ID,
			Given:         it.Given,
			CorrectAnswer: it.CorrectLabel,
			Status:        string(it.Outcome),
		}
	}
	return out
}
