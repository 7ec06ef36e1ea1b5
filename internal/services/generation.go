package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"quizgen-backend/internal/metrics"
	"quizgen-backend/internal/models"
	"quizgen-backend/internal/repository"
)

type GenerationConfig struct {
	PublicURL         string
	DispatchTimeout   time.Duration
	LiveStatusTimeout time.Duration
	MaxQuestions      int
}

// GenerationService drives a question set through
// pending -> generating -> completed | failed.
//
// Only Dispatch and HandleWebhook write status, and only through the
// store's compare-and-set methods. Status never writes.
type GenerationService struct {
	sets      QuestionSetStore
	worker    JobSubmitter
	documents DocumentLocator
	publisher UpdatePublisher
	metrics   *metrics.Metrics
	cfg       GenerationConfig
	now       func() time.Time
}

func NewGenerationService(
	sets QuestionSetStore,
	worker JobSubmitter,
	documents DocumentLocator,
	publisher UpdatePublisher,
	m *metrics.Metrics,
	cfg GenerationConfig,
) *GenerationService {
	if cfg.DispatchTimeout <= 0 {
		cfg.DispatchTimeout = 10 * time.Second
	}
	if cfg.LiveStatusTimeout <= 0 {
		cfg.LiveStatusTimeout = 3 * time.Second
	}
	if cfg.MaxQuestions <= 0 {
		cfg.MaxQuestions = 100
	}
	return &GenerationService{
		sets:      sets,
		worker:    worker,
		documents: documents,
		publisher: publisher,
		metrics:   m,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *GenerationService) CreateSet(ctx context.Context, ownerID uuid.UUID, req models.CreateSetRequest) (*models.QuestionSet, error) {
	fields := map[string]string{}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		fields["name"] = "Name is required"
	} else if len(name) > 200 {
		fields["name"] = "Name must be 200 characters or less"
	}
	sourceRef := strings.TrimSpace(req.SourceRef)
	if sourceRef == "" {
		fields["source_ref"] = "Source document is required"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	set := &models.QuestionSet{
		OwnerID:     ownerID,
		SourceRef:   sourceRef,
		Name:        name,
		Description: strings.TrimSpace(req.Description),
	}
	if err := s.sets.Create(ctx, set); err != nil {
		return nil, fmt.Errorf("failed to create question set: %w", err)
	}
	return set, nil
}

func (s *GenerationService) GetSet(ctx context.Context, ownerID, setID uuid.UUID) (*models.QuestionSetDetail, error) {
	set, err := s.loadOwned(ctx, ownerID, setID)
	if err != nil {
		return nil, err
	}
	questions, err := s.sets.ListQuestions(ctx, set.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	if questions == nil {
		questions = []models.Question{}
	}
	return &models.QuestionSetDetail{QuestionSet: *set, Questions: questions}, nil
}

func (s *GenerationService) ListSets(ctx context.Context, ownerID uuid.UUID) ([]models.QuestionSet, error) {
	sets, err := s.sets.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list question sets: %w", err)
	}
	if sets == nil {
		sets = []models.QuestionSet{}
	}
	return sets, nil
}

// DeleteSet removes one of the owner's sets together with its questions,
// invitations and results. A set with a job in flight cannot be deleted.
func (s *GenerationService) DeleteSet(ctx context.Context, ownerID, setID uuid.UUID) error {
	set, err := s.loadOwned(ctx, ownerID, setID)
	if err != nil {
		return err
	}
	if set.Status == models.StatusGenerating {
		return &ConflictError{Message: "Question set cannot be deleted while generation is in progress"}
	}

	deleted, err := s.sets.Delete(ctx, set.ID)
	if err != nil {
		return fmt.Errorf("failed to delete question set: %w", err)
	}
	if !deleted {
		// Lost to a concurrent dispatch or delete.
		if _, err := s.sets.GetByID(ctx, set.ID); errors.Is(err, repository.ErrNotFound) {
			return &NotFoundError{Message: "Question set not found"}
		}
		return &ConflictError{Message: "Question set cannot be deleted while generation is in progress"}
	}

	log.Printf("Deleted question set %s", set.ID)
	return nil
}

// Dispatch claims the set for a new job id, then submits the job. If the
// worker does not accept the job the claim is reverted to exactly what was
// read, so the set ends where it started.
func (s *GenerationService) Dispatch(ctx context.Context, ownerID, setID uuid.UUID, numQuestions int) (*models.DispatchResult, error) {
	if numQuestions < 1 || numQuestions > s.cfg.MaxQuestions {
		return nil, invalid("num_questions", fmt.Sprintf("Must be between 1 and %d", s.cfg.MaxQuestions))
	}

	set, err := s.loadOwned(ctx, ownerID, setID)
	if err != nil {
		return nil, err
	}

	switch set.Status {
	case models.StatusGenerating:
		s.metrics.Dispatch("conflict")
		return nil, &ConflictError{Message: "Question generation is already in progress"}
	case models.StatusCompleted:
		s.metrics.Dispatch("conflict")
		return nil, &ConflictError{Message: "Questions have already been generated for this set"}
	}

	downloadURL, err := s.documents.DownloadURL(set.SourceRef)
	if err != nil {
		return nil, invalid("source_ref", "Source document is not available")
	}

	jobID := fmt.Sprintf("mcq-generation-%s-%d", set.ID, s.now().UnixMilli())

	claimed, err := s.sets.ClaimDispatch(ctx, set.ID, set.Status, set.JobID, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to claim question set: %w", err)
	}
	if !claimed {
		s.metrics.Dispatch("conflict")
		return nil, &ConflictError{Message: "Question set changed while dispatching; generation may already be in progress"}
	}

	job := models.GenerationJob{
		JobID:        jobID,
		SetID:        set.ID,
		DownloadURL:  downloadURL,
		NumQuestions: numQuestions,
		CallbackURL:  s.callbackURL(jobID),
		SubmittedAt:  s.now().UTC(),
	}

	submitCtx, cancel := context.WithTimeout(ctx, s.cfg.DispatchTimeout)
	err = s.worker.SubmitJob(submitCtx, job)
	cancel()
	if err != nil {
		reverted, rerr := s.sets.RevertDispatch(context.WithoutCancel(ctx), set.ID, jobID, set.Status, set.JobID, set.FailureReason)
		if rerr != nil || !reverted {
			log.Printf("✗ Failed to revert dispatch of %s (job %s): reverted=%t err=%v", set.ID, jobID, reverted, rerr)
		}
		s.metrics.Dispatch("upstream_error")
		return nil, &UpstreamError{Message: "Job worker is unavailable, please retry", Err: err}
	}

	s.metrics.Dispatch("accepted")
	log.Printf("Dispatched generation job %s for set %s (%d questions)", jobID, set.ID, numQuestions)

	s.publish(ctx, set.OwnerID, models.GenerationUpdate{
		SetID:   set.ID,
		JobID:   jobID,
		Status:  models.StatusGenerating,
		Message: "Question generation started",
	})

	return &models.DispatchResult{SetID: set.ID, JobID: jobID, Status: models.StatusGenerating}, nil
}

// HandleWebhook applies a worker outcome. Duplicate, late and stale
// deliveries are acknowledged without changing anything.
func (s *GenerationService) HandleWebhook(ctx context.Context, d *models.WebhookDelivery) (*models.WebhookResult, error) {
	set, err := s.sets.GetByID(ctx, d.SetID)
	if errors.Is(err, repository.ErrNotFound) {
		s.metrics.Webhook("not_found")
		return nil, &NotFoundError{Message: "Question set not found"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load question set: %w", err)
	}

	res := &models.WebhookResult{SetID: set.ID, Status: set.Status}

	switch {
	case set.Status.Terminal():
		s.metrics.Webhook("duplicate")
		res.Message = "Already processed"
		return res, nil
	case set.Status != models.StatusGenerating:
		s.metrics.Webhook("ignored")
		res.Message = "Question set is not generating"
		return res, nil
	case set.JobID == nil || *set.JobID != d.JobID:
		s.metrics.Webhook("stale")
		log.Printf("Ignoring stale webhook for set %s: job %s is not current", set.ID, d.JobID)
		res.Message = "Job is no longer current"
		return res, nil
	}

	switch o := d.Outcome.(type) {
	case models.GenerationFailed:
		return s.fail(ctx, set, d.JobID, o.Reason, res)

	case models.GenerationSucceeded:
		valid, discarded := ValidateCandidates(set.ID, o.Candidates)
		discarded += o.Undecodable
		res.Discarded = discarded
		if discarded > 0 {
			log.Printf("Discarded %d invalid questions for set %s", discarded, set.ID)
		}
		if len(valid) == 0 {
			return s.fail(ctx, set, d.JobID, "No valid questions were generated", res)
		}

		applied, err := s.sets.CompleteGeneration(ctx, set.ID, d.JobID, valid)
		if err != nil {
			log.Printf("✗ Failed to store questions for set %s: %v", set.ID, err)
			failed, ferr := s.fail(context.WithoutCancel(ctx), set, d.JobID, "Failed to store generated questions", res)
			if ferr != nil {
				return nil, errors.Join(err, ferr)
			}
			return failed, nil
		}
		if !applied {
			return s.lostRace(ctx, res)
		}

		s.metrics.Webhook("completed")
		res.Applied = true
		res.Accepted = len(valid)
		res.Status = models.StatusCompleted
		res.Message = fmt.Sprintf("Stored %d questions", len(valid))
		s.publish(ctx, set.OwnerID, models.GenerationUpdate{
			SetID:          set.ID,
			JobID:          d.JobID,
			Status:         models.StatusCompleted,
			TotalQuestions: len(valid),
			Message:        "Questions are ready",
		})
		return res, nil

	default:
		return nil, fmt.Errorf("unsupported generation outcome %T", d.Outcome)
	}
}

func (s *GenerationService) fail(ctx context.Context, set *models.QuestionSet, jobID, reason string, res *models.WebhookResult) (*models.WebhookResult, error) {
	applied, err := s.sets.FailGeneration(ctx, set.ID, jobID, reason)
	if err != nil {
		return nil, fmt.Errorf("failed to mark question set failed: %w", err)
	}
	if !applied {
		return s.lostRace(ctx, res)
	}

	s.metrics.Webhook("failed")
	log.Printf("Generation failed for set %s (job %s): %s", set.ID, jobID, reason)
	res.Applied = true
	res.Status = models.StatusFailed
	res.Message = reason
	s.publish(ctx, set.OwnerID, models.GenerationUpdate{
		SetID:   set.ID,
		JobID:   jobID,
		Status:  models.StatusFailed,
		Message: reason,
	})
	return res, nil
}

// lostRace reports the state left by whichever write won.
func (s *GenerationService) lostRace(ctx context.Context, res *models.WebhookResult) (*models.WebhookResult, error) {
	s.metrics.Webhook("duplicate")
	res.Message = "Already processed"
	if current, err := s.sets.GetByID(ctx, res.SetID); err == nil {
		res.Status = current.Status
	}
	return res, nil
}

// Status is a read-only projection. While generating it adds the worker's own
// view of the job, which is advisory and never written back.
func (s *GenerationService) Status(ctx context.Context, ownerID, setID uuid.UUID) (*models.GenerationStatus, error) {
	set, err := s.loadOwned(ctx, ownerID, setID)
	if err != nil {
		return nil, err
	}

	stored, err := s.sets.CountQuestions(ctx, set.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count questions: %w", err)
	}

	st := &models.GenerationStatus{
		SetID:           set.ID,
		Status:          set.Status,
		JobID:           set.JobID,
		TotalQuestions:  set.TotalQuestions,
		QuestionsStored: stored,
		FailureReason:   set.FailureReason,
		UpdatedAt:       set.UpdatedAt,
	}

	if set.Status == models.StatusGenerating && set.JobID != nil {
		st.Live = s.liveStatus(ctx, *set.JobID)
	}
	return st, nil
}

func (s *GenerationService) liveStatus(ctx context.Context, jobID string) models.LiveStatus {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.LiveStatusTimeout)
	defer cancel()

	live, err := s.worker.JobStatus(ctx, jobID)
	if err != nil {
		log.Printf("Live status for job %s unavailable: %v", jobID, err)
		return models.LiveUnknown
	}
	return live
}

func (s *GenerationService) loadOwned(ctx context.Context, ownerID, setID uuid.UUID) (*models.QuestionSet, error) {
	return ownedSet(ctx, s.sets, ownerID, setID)
}

func (s *GenerationService) callbackURL(jobID string) string {
	return strings.TrimRight(s.cfg.PublicURL, "/") + "/api/v1/webhooks/generation?job_id=" + url.QueryEscape(jobID)
}

func (s *GenerationService) publish(ctx context.Context, ownerID uuid.UUID, update models.GenerationUpdate) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, ownerID, models.WSMessage{Type: "status_update", Payload: update})
}
