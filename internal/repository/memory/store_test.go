package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"quizgen-backend/internal/models"
	"quizgen-backend/internal/repository"
	"quizgen-backend/internal/repository/memory"
)

func TestQuestionSets_CompareAndSet(t *testing.T) {
	ctx := context.Background()
	sets := memory.New().QuestionSets()

	set := &models.QuestionSet{OwnerID: uuid.New(), Name: "Cells", SourceRef: "docs/cells.pdf"}
	require.NoError(t, sets.Create(ctx, set))
	require.Equal(t, models.StatusPending, set.Status)

	ok, err := sets.ClaimDispatch(ctx, set.ID, models.StatusPending, nil, "job-1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = sets.ClaimDispatch(ctx, set.ID, models.StatusPending, nil, "job-2")
	require.NoError(t, err)
	require.False(t, ok, "second claim from the same read must lose")

	ok, err = sets.FailGeneration(ctx, set.ID, "job-2", "stale")
	require.NoError(t, err)
	require.False(t, ok, "failure for another job id must not apply")

	questions := []models.Question{{ID: uuid.New(), Position: 1, Text: "q", Options: [4]string{"a", "b", "c", "d"}, CorrectLabel: "A"}}
	ok, err = sets.CompleteGeneration(ctx, set.ID, "job-1", questions)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = sets.CompleteGeneration(ctx, set.ID, "job-1", questions)
	require.NoError(t, err)
	require.False(t, ok)

	got, err := sets.GetByID(ctx, set.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, got.Status)
	require.Equal(t, 1, got.TotalQuestions)

	n, err := sets.CountQuestions(ctx, set.ID)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	_, err = sets.GetByID(ctx, uuid.New())
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestQuestionSets_RevertRestoresPreviousJob(t *testing.T) {
	ctx := context.Background()
	sets := memory.New().QuestionSets()

	set := &models.QuestionSet{OwnerID: uuid.New(), Name: "Cells", SourceRef: "docs/cells.pdf"}
	require.NoError(t, sets.Create(ctx, set))

	_, _ = sets.ClaimDispatch(ctx, set.ID, models.StatusPending, nil, "job-1")
	_, _ = sets.FailGeneration(ctx, set.ID, "job-1", "boom")

	prev := "job-1"
	ok, err := sets.ClaimDispatch(ctx, set.ID, models.StatusFailed, &prev, "job-2")
	require.NoError(t, err)
	require.True(t, ok)

	claimed, err := sets.GetByID(ctx, set.ID)
	require.NoError(t, err)
	require.Nil(t, claimed.FailureReason, "a claim clears the old failure reason")

	reason := "boom"
	ok, err = sets.RevertDispatch(ctx, set.ID, "job-2", models.StatusFailed, &prev, &reason)
	require.NoError(t, err)
	require.True(t, ok)

	got, err := sets.GetByID(ctx, set.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusFailed, got.Status)
	require.Equal(t, "job-1", *got.JobID)
	require.NotNil(t, got.FailureReason)
	require.Equal(t, "boom", *got.FailureReason)
}

func TestQuestionSets_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	sets := store.QuestionSets()
	now := time.Now()

	owner := uuid.New()
	keep := &models.QuestionSet{OwnerID: owner, Name: "Keep", SourceRef: "docs/a.pdf"}
	drop := &models.QuestionSet{OwnerID: owner, Name: "Drop", SourceRef: "docs/b.pdf"}
	other := &models.QuestionSet{OwnerID: uuid.New(), Name: "Other", SourceRef: "docs/c.pdf"}
	for _, s := range []*models.QuestionSet{keep, drop, other} {
		require.NoError(t, sets.Create(ctx, s))
	}

	listed, err := sets.ListByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	for _, s := range listed {
		require.Equal(t, owner, s.OwnerID)
	}

	_, _ = sets.ClaimDispatch(ctx, drop.ID, models.StatusPending, nil, "job-1")
	ok, err := sets.Delete(ctx, drop.ID)
	require.NoError(t, err)
	require.False(t, ok, "a generating set cannot be deleted")

	questions := []models.Question{{ID: uuid.New(), Position: 1, Text: "q", Options: [4]string{"a", "b", "c", "d"}, CorrectLabel: "A"}}
	_, _ = sets.CompleteGeneration(ctx, drop.ID, "job-1", questions)

	pid := uuid.New()
	_, _, err = store.AccessTokens().IssueOrReuse(ctx, &models.AccessToken{
		Code: "c1", ParticipantID: pid, QuestionSetID: drop.ID, ExpiresAt: now.Add(time.Hour),
	}, now)
	require.NoError(t, err)
	require.NoError(t, store.Attempts().ConsumeAndRecord(ctx, "c1", &models.AttemptResult{}, now))

	ok, err = sets.Delete(ctx, drop.ID)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = sets.GetByID(ctx, drop.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)
	n, err := sets.CountQuestions(ctx, drop.ID)
	require.NoError(t, err)
	require.Zero(t, n)
	_, err = store.AccessTokens().GetByCode(ctx, "c1")
	require.ErrorIs(t, err, repository.ErrNotFound)
	has, err := store.Attempts().HasResult(ctx, pid, drop.ID)
	require.NoError(t, err)
	require.False(t, has)

	ok, err = sets.Delete(ctx, drop.ID)
	require.NoError(t, err)
	require.False(t, ok)

	listed, err = sets.ListByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, keep.ID, listed[0].ID)
}

func TestAccessTokens_IssueOrReuse(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	tokens := store.AccessTokens()
	now := time.Now()

	pid, sid := uuid.New(), uuid.New()
	first, reused, err := tokens.IssueOrReuse(ctx, &models.AccessToken{
		Code: "c1", ParticipantID: pid, QuestionSetID: sid, ExpiresAt: now.Add(time.Hour),
	}, now)
	require.NoError(t, err)
	require.False(t, reused)

	second, reused, err := tokens.IssueOrReuse(ctx, &models.AccessToken{
		Code: "c2", ParticipantID: pid, QuestionSetID: sid, ExpiresAt: now.Add(time.Hour),
	}, now)
	require.NoError(t, err)
	require.True(t, reused)
	require.Equal(t, first.Code, second.Code)

	later := now.Add(2 * time.Hour)
	third, reused, err := tokens.IssueOrReuse(ctx, &models.AccessToken{
		Code: "c3", ParticipantID: pid, QuestionSetID: sid, ExpiresAt: later.Add(time.Hour),
	}, later)
	require.NoError(t, err)
	require.False(t, reused, "an expired token is not reused")
	require.Equal(t, "c3", third.Code)
}

func TestAttempts_ConsumeAndRecord(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	now := time.Now()

	pid, sid := uuid.New(), uuid.New()
	_, _, err := store.AccessTokens().IssueOrReuse(ctx, &models.AccessToken{
		Code: "c1", ParticipantID: pid, QuestionSetID: sid, ExpiresAt: now.Add(time.Hour),
	}, now)
	require.NoError(t, err)

	attempts := store.Attempts()
	require.ErrorIs(t, attempts.ConsumeAndRecord(ctx, "nope", &models.AttemptResult{}, now), repository.ErrNotFound)
	require.ErrorIs(t, attempts.ConsumeAndRecord(ctx, "c1", &models.AttemptResult{}, now.Add(2*time.Hour)), repository.ErrTokenExpired)

	res := &models.AttemptResult{Answers: map[string]string{"q": "A"}}
	require.NoError(t, attempts.ConsumeAndRecord(ctx, "c1", res, now))
	require.Equal(t, pid, res.ParticipantID)
	require.NotEqual(t, uuid.Nil, res.ID)

	require.ErrorIs(t, attempts.ConsumeAndRecord(ctx, "c1", &models.AttemptResult{}, now), repository.ErrTokenConsumed)

	tok, err := store.AccessTokens().GetByCode(ctx, "c1")
	require.NoError(t, err)
	require.True(t, tok.Consumed)
	require.NotNil(t, tok.UsedAt)

	has, err := attempts.HasResult(ctx, pid, sid)
	require.NoError(t, err)
	require.True(t, has)
}
