package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"quizgen-backend/internal/models"
)

// QuestionSetRepo owns question_sets and questions. Every status change is a
// conditional UPDATE so that dispatch, webhook and polling never race on a
// stale read.
type QuestionSetRepo struct {
	pool *pgxpool.Pool
}

func NewQuestionSetRepo(pool *pgxpool.Pool) *QuestionSetRepo {
	return &QuestionSetRepo{pool: pool}
}

const questionSetColumns = `id, owner_id, source_ref, name, description, status, total_questions,
	job_id, failure_reason, created_at, updated_at`

func (r *QuestionSetRepo) Create(ctx context.Context, s *models.QuestionSet) error {
	s.ID = uuid.New()
	s.Status = models.StatusPending
	s.TotalQuestions = 0
	s.JobID = nil

	query := `INSERT INTO question_sets (id, owner_id, source_ref, name, description, status)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		s.ID, s.OwnerID, s.SourceRef, s.Name, s.Description, string(s.Status),
	).Scan(&s.CreatedAt, &s.UpdatedAt)
}

func (r *QuestionSetRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.QuestionSet, error) {
	query := `SELECT ` + questionSetColumns + ` FROM question_sets WHERE id = $1`

	s, err := scanQuestionSet(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get question set %s: %w", id, err)
	}
	return s, nil
}

// ListByOwner returns the owner's sets, newest first.
func (r *QuestionSetRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.QuestionSet, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionSetColumns+` FROM question_sets WHERE owner_id = $1 ORDER BY created_at DESC, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list question sets: %w", err)
	}
	defer rows.Close()

	var sets []models.QuestionSet
	for rows.Next() {
		s, err := scanQuestionSet(rows)
		if err != nil {
			return nil, err
		}
		sets = append(sets, *s)
	}
	return sets, rows.Err()
}

// Delete removes the set unless a generation job is in flight. Questions,
// access tokens and attempt results go with it through ON DELETE CASCADE.
func (r *QuestionSetRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM question_sets WHERE id = $1 AND status <> 'generating'`, id)
	if err != nil {
		return false, fmt.Errorf("delete question set %s: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

func scanQuestionSet(row pgx.Row) (*models.QuestionSet, error) {
	s := &models.QuestionSet{}
	var status string
	err := row.Scan(
		&s.ID, &s.OwnerID, &s.SourceRef, &s.Name, &s.Description, &status, &s.TotalQuestions,
		&s.JobID, &s.FailureReason, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Status = models.SetStatus(status)
	return s, nil
}

// ClaimDispatch moves the set to generating under jobID, but only while its
// status and job id still match what the caller read.
func (r *QuestionSetRepo) ClaimDispatch(ctx context.Context, id uuid.UUID, from models.SetStatus, fromJobID *string, jobID string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE question_sets
		 SET status = 'generating', job_id = $1, failure_reason = NULL, updated_at = NOW()
		 WHERE id = $2 AND status = $3 AND job_id IS NOT DISTINCT FROM $4`,
		jobID, id, string(from), fromJobID,
	)
	if err != nil {
		return false, fmt.Errorf("claim dispatch for %s: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

// RevertDispatch undoes a claim whose job never reached the worker, restoring
// the status, job id and failure reason the claim replaced.
func (r *QuestionSetRepo) RevertDispatch(ctx context.Context, id uuid.UUID, jobID string, to models.SetStatus, toJobID, toReason *string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE question_sets SET status = $1, job_id = $2, failure_reason = $3, updated_at = NOW()
		 WHERE id = $4 AND status = 'generating' AND job_id = $5`,
		string(to), toJobID, toReason, id, jobID,
	)
	if err != nil {
		return false, fmt.Errorf("revert dispatch for %s: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

// CompleteGeneration stores the questions and flips the set to completed in
// one transaction. It returns false without writing anything when the set is
// no longer generating under jobID.
func (r *QuestionSetRepo) CompleteGeneration(ctx context.Context, id uuid.UUID, jobID string, questions []models.Question) (applied bool, err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil || !applied {
			err = errors.Join(err, ignoreClosed(tx.Rollback(ctx)))
		}
	}()

	tag, err := tx.Exec(ctx,
		`UPDATE question_sets SET status = 'completed', total_questions = $1, failure_reason = NULL, updated_at = NOW()
		 WHERE id = $2 AND status = 'generating' AND job_id = $3`,
		len(questions), id, jobID,
	)
	if err != nil {
		return false, fmt.Errorf("mark completed: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return false, nil
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"questions"},
		[]string{"id", "question_set_id", "position", "question", "option_a", "option_b", "option_c", "option_d", "correct_label"},
		pgx.CopyFromSlice(len(questions), func(i int) ([]any, error) {
			q := questions[i]
			return []any{q.ID, id, q.Position, q.Text, q.Options[0], q.Options[1], q.Options[2], q.Options[3], q.CorrectLabel}, nil
		}),
	)
	if err != nil {
		return false, fmt.Errorf("insert questions: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit completion: %w", err)
	}
	return true, nil
}

func (r *QuestionSetRepo) FailGeneration(ctx context.Context, id uuid.UUID, jobID string, reason string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE question_sets SET status = 'failed', failure_reason = $1, updated_at = NOW()
		 WHERE id = $2 AND status = 'generating' AND job_id = $3`,
		reason, id, jobID,
	)
	if err != nil {
		return false, fmt.Errorf("mark failed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *QuestionSetRepo) ListQuestions(ctx context.Context, setID uuid.UUID) ([]models.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, question_set_id, position, question, option_a, option_b, option_c, option_d, correct_label
		 FROM questions WHERE question_set_id = $1 ORDER BY position`, setID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var questions []models.Question
	for rows.Next() {
		var q models.Question
		if err := rows.Scan(&q.ID, &q.QuestionSetID, &q.Position, &q.Text,
			&q.Options[0], &q.Options[1], &q.Options[2], &q.Options[3], &q.CorrectLabel); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (r *QuestionSetRepo) CountQuestions(ctx context.Context, setID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM questions WHERE question_set_id = $1", setID).Scan(&n)
	return n, err
}

func ignoreClosed(err error) error {
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}
