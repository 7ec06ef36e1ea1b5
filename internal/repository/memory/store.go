// Package memory is an in-process store with the same contracts as the
// postgres repositories. One mutex guards all state, so every method is
// atomic in the way the SQL transactions are.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"quizgen-backend/internal/models"
	"quizgen-backend/internal/repository"
)

type resultKey struct {
	participantID uuid.UUID
	setID         uuid.UUID
}

type Store struct {
	mu           sync.Mutex
	sets         map[uuid.UUID]models.QuestionSet
	questions    map[uuid.UUID][]models.Question
	tokens       map[string]models.AccessToken
	results      map[resultKey]models.AttemptResult
	participants map[uuid.UUID]models.Participant
}

func New() *Store {
	return &Store{
		sets:         make(map[uuid.UUID]models.QuestionSet),
		questions:    make(map[uuid.UUID][]models.Question),
		tokens:       make(map[string]models.AccessToken),
		results:      make(map[resultKey]models.AttemptResult),
		participants: make(map[uuid.UUID]models.Participant),
	}
}

func (s *Store) QuestionSets() *QuestionSets { return &QuestionSets{s} }
func (s *Store) AccessTokens() *AccessTokens { return &AccessTokens{s} }
func (s *Store) Attempts() *Attempts         { return &Attempts{s} }
func (s *Store) Participants() *Participants { return &Participants{s} }

// AddParticipant seeds a participant. A zero id is replaced with a new one.
func (s *Store) AddParticipant(p models.Participant) models.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	s.participants[p.ID] = p
	return p
}

func sameJobID(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func copyString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

type QuestionSets struct{ s *Store }

func (r *QuestionSets) Create(_ context.Context, set *models.QuestionSet) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := time.Now()
	set.ID = uuid.New()
	set.Status = models.StatusPending
	set.TotalQuestions = 0
	set.JobID = nil
	set.CreatedAt = now
	set.UpdatedAt = now
	r.s.sets[set.ID] = *set
	return nil
}

func (r *QuestionSets) GetByID(_ context.Context, id uuid.UUID) (*models.QuestionSet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	set, ok := r.s.sets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	set.JobID = copyString(set.JobID)
	set.FailureReason = copyString(set.FailureReason)
	return &set, nil
}

func (r *QuestionSets) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]models.QuestionSet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []models.QuestionSet
	for _, set := range r.s.sets {
		if set.OwnerID != ownerID {
			continue
		}
		set.JobID = copyString(set.JobID)
		set.FailureReason = copyString(set.FailureReason)
		out = append(out, set)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// Delete drops the set with its questions, tokens and results.
func (r *QuestionSets) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	set, ok := r.s.sets[id]
	if !ok || set.Status == models.StatusGenerating {
		return false, nil
	}
	delete(r.s.sets, id)
	delete(r.s.questions, id)
	for code, t := range r.s.tokens {
		if t.QuestionSetID == id {
			delete(r.s.tokens, code)
		}
	}
	for key := range r.s.results {
		if key.setID == id {
			delete(r.s.results, key)
		}
	}
	return true, nil
}

func (r *QuestionSets) ListQuestions(_ context.Context, setID uuid.UUID) ([]models.Question, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]models.Question(nil), r.s.questions[setID]...), nil
}

func (r *QuestionSets) CountQuestions(_ context.Context, setID uuid.UUID) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.questions[setID]), nil
}

func (r *QuestionSets) ClaimDispatch(_ context.Context, id uuid.UUID, from models.SetStatus, fromJobID *string, jobID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	set, ok := r.s.sets[id]
	if !ok || set.Status != from || !sameJobID(set.JobID, fromJobID) {
		return false, nil
	}
	set.Status = models.StatusGenerating
	set.JobID = &jobID
	set.FailureReason = nil
	set.UpdatedAt = time.Now()
	r.s.sets[id] = set
	return true, nil
}

func (r *QuestionSets) RevertDispatch(_ context.Context, id uuid.UUID, jobID string, to models.SetStatus, toJobID, toReason *string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	set, ok := r.s.sets[id]
	if !ok || set.Status != models.StatusGenerating || !sameJobID(set.JobID, &jobID) {
		return false, nil
	}
	set.Status = to
	set.JobID = copyString(toJobID)
	set.FailureReason = copyString(toReason)
	set.UpdatedAt = time.Now()
	r.s.sets[id] = set
	return true, nil
}

func (r *QuestionSets) CompleteGeneration(_ context.Context, id uuid.UUID, jobID string, questions []models.Question) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	set, ok := r.s.sets[id]
	if !ok || set.Status != models.StatusGenerating || !sameJobID(set.JobID, &jobID) {
		return false, nil
	}
	stored := make([]models.Question, len(questions))
	for i, q := range questions {
		q.QuestionSetID = id
		stored[i] = q
	}
	r.s.questions[id] = stored

	set.Status = models.StatusCompleted
	set.TotalQuestions = len(stored)
	set.FailureReason = nil
	set.UpdatedAt = time.Now()
	r.s.sets[id] = set
	return true, nil
}

func (r *QuestionSets) FailGeneration(_ context.Context, id uuid.UUID, jobID string, reason string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	set, ok := r.s.sets[id]
	if !ok || set.Status != models.StatusGenerating || !sameJobID(set.JobID, &jobID) {
		return false, nil
	}
	set.Status = models.StatusFailed
	set.FailureReason = &reason
	set.UpdatedAt = time.Now()
	r.s.sets[id] = set
	return true, nil
}

type AccessTokens struct{ s *Store }

func (r *AccessTokens) IssueOrReuse(_ context.Context, candidate *models.AccessToken, now time.Time) (*models.AccessToken, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var active *models.AccessToken
	for _, t := range r.s.tokens {
		if t.ParticipantID != candidate.ParticipantID || t.QuestionSetID != candidate.QuestionSetID {
			continue
		}
		if t.Consumed || now.After(t.ExpiresAt) {
			continue
		}
		if active == nil || t.CreatedAt.After(active.CreatedAt) {
			t := t
			active = &t
		}
	}
	if active != nil {
		return active, true, nil
	}

	tok := models.AccessToken{
		ID:            uuid.New(),
		Code:          candidate.Code,
		ParticipantID: candidate.ParticipantID,
		QuestionSetID: candidate.QuestionSetID,
		ExpiresAt:     candidate.ExpiresAt,
		CreatedAt:     now,
	}
	r.s.tokens[tok.Code] = tok
	return &tok, false, nil
}

func (r *AccessTokens) GetByCode(_ context.Context, code string) (*models.AccessToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tokens[code]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (r *AccessTokens) ListBySet(_ context.Context, setID uuid.UUID) ([]models.AccessToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []models.AccessToken
	for _, t := range r.s.tokens {
		if t.QuestionSetID == setID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type Attempts struct{ s *Store }

func (r *Attempts) HasResult(_ context.Context, participantID, setID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.results[resultKey{participantID, setID}]
	return ok, nil
}

func (r *Attempts) ConsumeAndRecord(_ context.Context, code string, res *models.AttemptResult, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	tok, ok := r.s.tokens[code]
	switch {
	case !ok:
		return repository.ErrNotFound
	case tok.Consumed:
		return repository.ErrTokenConsumed
	case now.After(tok.ExpiresAt):
		return repository.ErrTokenExpired
	}

	key := resultKey{tok.ParticipantID, tok.QuestionSetID}
	if _, exists := r.s.results[key]; exists {
		return repository.ErrResultExists
	}

	usedAt := now
	tok.Consumed = true
	tok.UsedAt = &usedAt
	r.s.tokens[code] = tok

	res.ID = uuid.New()
	res.ParticipantID = tok.ParticipantID
	res.QuestionSetID = tok.QuestionSetID
	res.CreatedAt = now

	stored := *res
	stored.Answers = make(map[string]string, len(res.Answers))
	for k, v := range res.Answers {
		stored.Answers[k] = v
	}
	r.s.results[key] = stored
	return nil
}

func (r *Attempts) ListBySet(_ context.Context, setID uuid.UUID) ([]models.AttemptResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []models.AttemptResult
	for key, res := range r.s.results {
		if key.setID == setID {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type Participants struct{ s *Store }

func (r *Participants) GetByID(_ context.Context, id uuid.UUID) (*models.Participant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.participants[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}
