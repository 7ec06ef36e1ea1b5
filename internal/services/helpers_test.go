package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"quizgen-backend/internal/models"
	"quizgen-backend/internal/repository/memory"
	"quizgen-backend/internal/scoring"
)

type fakeWorker struct {
	mu        sync.Mutex
	jobs      []models.GenerationJob
	submitErr error
	live      models.LiveStatus
	liveErr   error
	// onSubmit runs before the job is recorded.
	onSubmit func(job models.GenerationJob)
}

func (w *fakeWorker) SubmitJob(ctx context.Context, job models.GenerationJob) error {
	if w.onSubmit != nil {
		w.onSubmit(job)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.submitErr != nil {
		return w.submitErr
	}
	w.jobs = append(w.jobs, job)
	return nil
}

func (w *fakeWorker) JobStatus(ctx context.Context, jobID string) (models.LiveStatus, error) {
	return w.live, w.liveErr
}

func (w *fakeWorker) submitted() []models.GenerationJob {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]models.GenerationJob(nil), w.jobs...)
}

type sentEmail struct {
	to, subject, body string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (n *fakeNotifier) Send(to, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentEmail{to, subject, body})
	return nil
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []models.WSMessage
}

func (p *fakePublisher) Publish(ctx context.Context, userID uuid.UUID, msg models.WSMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
}

type fixture struct {
	store     *memory.Store
	worker    *fakeWorker
	notifier  *fakeNotifier
	publisher *fakePublisher
	gen       *GenerationService
	access    *AccessService
	attempts  *AttemptService
	clock     *clock
	ownerID   uuid.UUID
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:     memory.New(),
		worker:    &fakeWorker{live: models.LiveRunning},
		notifier:  &fakeNotifier{},
		publisher: &fakePublisher{},
		clock:     &clock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)},
		ownerID:   uuid.New(),
	}

	sets := f.store.QuestionSets()
	f.gen = NewGenerationService(sets, f.worker, URLLocator{BaseURL: "http://api.test"}, f.publisher, nil, GenerationConfig{
		PublicURL:       "http://api.test",
		DispatchTimeout: time.Second,
		MaxQuestions:    50,
	})
	f.gen.now = f.clock.Now

	f.access = NewAccessService(sets, f.store.AccessTokens(), f.store.Participants(), f.notifier, nil, AccessConfig{
		FrontendURL: "http://app.test",
	})
	f.access.now = f.clock.Now

	f.attempts = NewAttemptService(f.access, sets, f.store.AccessTokens(), f.store.Attempts(), f.store.Participants(), nil, AttemptConfig{
		Policy: scoring.DefaultPolicy(),
	})
	f.attempts.now = f.clock.Now

	return f
}

func (f *fixture) createSet(t *testing.T) *models.QuestionSet {
	t.Helper()
	set, err := f.gen.CreateSet(context.Background(), f.ownerID, models.CreateSetRequest{
		Name:      "Photosynthesis",
		SourceRef: "uploads/bio/photosynthesis.pdf",
	})
	require.NoError(t, err)
	return set
}

func candidates(n int) []models.CandidateQuestion {
	out := make([]models.CandidateQuestion, n)
	for i := range out {
		out[i] = models.CandidateQuestion{
			Question:     fmt.Sprintf("Question %d?", i+1),
			Options:      []string{"alpha", "beta", "gamma", "delta"},
			CorrectLabel: "A",
		}
	}
	return out
}

// completedSet runs a set through dispatch and a successful webhook.
func (f *fixture) completedSet(t *testing.T, questions int) *models.QuestionSet {
	t.Helper()
	ctx := context.Background()

	set := f.createSet(t)
	d, err := f.gen.Dispatch(ctx, f.ownerID, set.ID, questions)
	require.NoError(t, err)

	_, err = f.gen.HandleWebhook(ctx, &models.WebhookDelivery{
		SetID:   set.ID,
		JobID:   d.JobID,
		Outcome: models.GenerationSucceeded{Candidates: candidates(questions)},
	})
	require.NoError(t, err)

	got, err := f.store.QuestionSets().GetByID(ctx, set.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, got.Status)
	return got
}

func (f *fixture) participant(t *testing.T) models.Participant {
	t.Helper()
	return f.store.AddParticipant(models.Participant{
		OwnerID: f.ownerID,
		Name:    "Ada",
		Email:   "ada@example.com",
	})
}

func requireErrorType[T error](t *testing.T, err error) T {
	t.Helper()
	var target T
	require.Error(t, err)
	require.True(t, errors.As(err, &target), "expected %T, got %T: %v", target, err, err)
	return target
}
