package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"quizgen-backend/internal/metrics"
	"quizgen-backend/internal/models"
	"quizgen-backend/internal/repository"
)

const (
	codeBytes         = 16
	maxShareBatch     = 200
	notifyConcurrency = 5
)

type AccessConfig struct {
	FrontendURL        string
	DefaultTTL         time.Duration
	MaxTTL             time.Duration
	SecondsPerQuestion int
}

// AccessService issues and validates single-use quiz access codes.
type AccessService struct {
	sets         QuestionSetStore
	tokens       AccessTokenStore
	participants ParticipantStore
	notifier     Notifier
	metrics      *metrics.Metrics
	cfg          AccessConfig
	now          func() time.Time
	newCode      func() (string, error)
}

func NewAccessService(
	sets QuestionSetStore,
	tokens AccessTokenStore,
	participants ParticipantStore,
	notifier Notifier,
	m *metrics.Metrics,
	cfg AccessConfig,
) *AccessService {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = 7 * 24 * time.Hour
	}
	if cfg.MaxTTL < cfg.DefaultTTL {
		cfg.MaxTTL = 30 * 24 * time.Hour
	}
	if cfg.SecondsPerQuestion <= 0 {
		cfg.SecondsPerQuestion = 60
	}
	return &AccessService{
		sets:         sets,
		tokens:       tokens,
		participants: participants,
		notifier:     notifier,
		metrics:      m,
		cfg:          cfg,
		now:          time.Now,
		newCode:      func() (string, error) { return generateToken(codeBytes) },
	}
}

// Issue hands a participant an access code for a completed set, reusing the
// active one if it exists. A failed notification is reported on the
// invitation and does not fail issuance.
func (s *AccessService) Issue(ctx context.Context, ownerID, setID, participantID uuid.UUID, ttl time.Duration) (*models.Invitation, error) {
	ttl, err := s.resolveTTL(ttl)
	if err != nil {
		return nil, err
	}
	set, err := s.completedSet(ctx, ownerID, setID)
	if err != nil {
		return nil, err
	}
	p, err := s.ownedParticipant(ctx, ownerID, participantID)
	if err != nil {
		return nil, err
	}

	inv, err := s.issue(ctx, set, p, ttl)
	if err != nil {
		return nil, err
	}
	s.notify(set, inv)
	return inv, nil
}

// Share issues codes to several participants at once. Unknown participants
// are skipped and listed in the result.
func (s *AccessService) Share(ctx context.Context, ownerID, setID uuid.UUID, req models.ShareRequest) (*models.ShareResult, error) {
	if len(req.ParticipantIDs) == 0 {
		return nil, invalid("participant_ids", "At least one participant is required")
	}
	if len(req.ParticipantIDs) > maxShareBatch {
		return nil, invalid("participant_ids", fmt.Sprintf("At most %d participants per request", maxShareBatch))
	}
	if req.TTLHours < 0 {
		return nil, invalid("ttl_hours", "Must not be negative")
	}
	ttl, err := s.resolveTTL(time.Duration(req.TTLHours) * time.Hour)
	if err != nil {
		return nil, err
	}

	set, err := s.completedSet(ctx, ownerID, setID)
	if err != nil {
		return nil, err
	}

	result := &models.ShareResult{
		QuestionSetID: set.ID,
		Invitations:   []models.Invitation{},
		Skipped:       []uuid.UUID{},
	}

	seen := make(map[uuid.UUID]bool, len(req.ParticipantIDs))
	for _, pid := range req.ParticipantIDs {
		if seen[pid] {
			continue
		}
		seen[pid] = true

		p, err := s.ownedParticipant(ctx, ownerID, pid)
		var nf *NotFoundError
		if errors.As(err, &nf) {
			result.Skipped = append(result.Skipped, pid)
			continue
		}
		if err != nil {
			return nil, err
		}

		inv, err := s.issue(ctx, set, p, ttl)
		if err != nil {
			return nil, err
		}
		result.Invitations = append(result.Invitations, *inv)
	}

	// Each goroutine only touches its own invitation.
	var g errgroup.Group
	g.SetLimit(notifyConcurrency)
	for i := range result.Invitations {
		inv := &result.Invitations[i]
		g.Go(func() error {
			s.notify(set, inv)
			return nil
		})
	}
	g.Wait()

	return result, nil
}

// Redeem validates a code without consuming it.
func (s *AccessService) Redeem(ctx context.Context, code string) (*models.AccessToken, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, &NotFoundError{Message: "Invalid access code"}
	}

	tok, err := s.tokens.GetByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Message: "Invalid access code"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up access code: %w", err)
	}

	if tok.Consumed {
		return nil, &AlreadyUsedError{Message: "This access code has already been used"}
	}
	if tok.Expired(s.now()) {
		return nil, &ExpiredError{Message: "This access code has expired"}
	}
	return tok, nil
}

func (s *AccessService) issue(ctx context.Context, set *models.QuestionSet, p *models.Participant, ttl time.Duration) (*models.Invitation, error) {
	code, err := s.newCode()
	if err != nil {
		return nil, err
	}

	now := s.now()
	candidate := &models.AccessToken{
		Code:          code,
		ParticipantID: p.ID,
		QuestionSetID: set.ID,
		ExpiresAt:     now.Add(ttl),
	}
	tok, reused, err := s.tokens.IssueOrReuse(ctx, candidate, now)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access code: %w", err)
	}
	s.metrics.TokenIssued(reused)

	return &models.Invitation{
		ParticipantID:    p.ID,
		ParticipantName:  p.Name,
		ParticipantEmail: p.Email,
		Code:             tok.Code,
		ExpiresAt:        tok.ExpiresAt,
		Reused:           reused,
	}, nil
}

func (s *AccessService) notify(set *models.QuestionSet, inv *models.Invitation) {
	if s.notifier == nil {
		inv.NotificationError = "no notifier configured"
		return
	}
	if inv.ParticipantEmail == "" {
		inv.NotificationError = "participant has no email address"
		s.metrics.NotificationFailed()
		return
	}

	subject, body := InvitationEmail(QuizInvitation{
		ParticipantName: inv.ParticipantName,
		QuizName:        set.Name,
		Description:     set.Description,
		Code:            inv.Code,
		AttemptURL:      s.attemptURL(inv.Code),
		Questions:       set.TotalQuestions,
		TimeLimit:       s.timeLimit(set.TotalQuestions),
		ExpiresAt:       inv.ExpiresAt,
	})
	if err := s.notifier.Send(inv.ParticipantEmail, subject, body); err != nil {
		log.Printf("✗ Invitation to %s for set %s not delivered: %v", inv.ParticipantEmail, set.ID, err)
		s.metrics.NotificationFailed()
		inv.NotificationError = err.Error()
		return
	}
	inv.Notified = true
}

func (s *AccessService) completedSet(ctx context.Context, ownerID, setID uuid.UUID) (*models.QuestionSet, error) {
	set, err := ownedSet(ctx, s.sets, ownerID, setID)
	if err != nil {
		return nil, err
	}
	if set.Status != models.StatusCompleted {
		return nil, &NotReadyError{Message: "Questions have not been generated for this set yet"}
	}
	return set, nil
}

func (s *AccessService) ownedParticipant(ctx context.Context, ownerID, participantID uuid.UUID) (*models.Participant, error) {
	p, err := s.participants.GetByID(ctx, participantID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && p.OwnerID != ownerID) {
		return nil, &NotFoundError{Message: "Participant not found"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load participant: %w", err)
	}
	return p, nil
}

func (s *AccessService) resolveTTL(ttl time.Duration) (time.Duration, error) {
	if ttl == 0 {
		return s.cfg.DefaultTTL, nil
	}
	if ttl < 0 || ttl > s.cfg.MaxTTL {
		return 0, invalid("ttl_hours", fmt.Sprintf("Must be between 1 and %d hours", int(s.cfg.MaxTTL.Hours())))
	}
	return ttl, nil
}

func (s *AccessService) attemptURL(code string) string {
	return strings.TrimRight(s.cfg.FrontendURL, "/") + "/quiz/attempt/" + code
}

func (s *AccessService) timeLimit(questions int) time.Duration {
	return time.Duration(questions*s.cfg.SecondsPerQuestion) * time.Second
}

func ownedSet(ctx context.Context, sets QuestionSetStore, ownerID, setID uuid.UUID) (*models.QuestionSet, error) {
	set, err := sets.GetByID(ctx, setID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Message: "Question set not found"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load question set: %w", err)
	}
	if set.OwnerID != ownerID {
		return nil, &ForbiddenError{Message: "You do not own this question set"}
	}
	return set, nil
}

func generateToken(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
