package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"quizgen-backend/internal/models"
)

// QuestionSetStore persists question sets. Every method that changes status is
// a compare-and-set and reports whether it applied.
type QuestionSetStore interface {
	Create(ctx context.Context, s *models.QuestionSet) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.QuestionSet, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.QuestionSet, error)
	// Delete removes a set that is not generating, with everything hanging off it.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	ListQuestions(ctx context.Context, setID uuid.UUID) ([]models.Question, error)
	CountQuestions(ctx context.Context, setID uuid.UUID) (int, error)
	ClaimDispatch(ctx context.Context, id uuid.UUID, from models.SetStatus, fromJobID *string, jobID string) (bool, error)
	RevertDispatch(ctx context.Context, id uuid.UUID, jobID string, to models.SetStatus, toJobID, toReason *string) (bool, error)
	CompleteGeneration(ctx context.Context, id uuid.UUID, jobID string, questions []models.Question) (bool, error)
	FailGeneration(ctx context.Context, id uuid.UUID, jobID string, reason string) (bool, error)
}

type AccessTokenStore interface {
	IssueOrReuse(ctx context.Context, candidate *models.AccessToken, now time.Time) (*models.AccessToken, bool, error)
	GetByCode(ctx context.Context, code string) (*models.AccessToken, error)
	ListBySet(ctx context.Context, setID uuid.UUID) ([]models.AccessToken, error)
}

type AttemptStore interface {
	HasResult(ctx context.Context, participantID, setID uuid.UUID) (bool, error)
	ConsumeAndRecord(ctx context.Context, code string, res *models.AttemptResult, now time.Time) error
	ListBySet(ctx context.Context, setID uuid.UUID) ([]models.AttemptResult, error)
}

type ParticipantStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Participant, error)
}

// JobSubmitter is the external job worker.
type JobSubmitter interface {
	SubmitJob(ctx context.Context, job models.GenerationJob) error
	JobStatus(ctx context.Context, jobID string) (models.LiveStatus, error)
}

// DocumentLocator turns a stored source reference into a URL the worker can
// download.
type DocumentLocator interface {
	DownloadURL(sourceRef string) (string, error)
}

type Notifier interface {
	Send(to, subject, htmlBody string) error
}

type UpdatePublisher interface {
	Publish(ctx context.Context, userID uuid.UUID, msg models.WSMessage)
}
