package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"quizgen-backend/internal/models"
)

type AttemptRepo struct {
	pool *pgxpool.Pool
}

func NewAttemptRepo(pool *pgxpool.Pool) *AttemptRepo {
	return &AttemptRepo{pool: pool}
}

func (r *AttemptRepo) HasResult(ctx context.Context, participantID, setID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM attempt_results WHERE participant_id = $1 AND question_set_id = $2)",
		participantID, setID,
	).Scan(&exists)
	return exists, err
}

// ConsumeAndRecord locks the token row, re-checks it, marks it consumed and
// inserts the result. Either all of it commits or none of it does.
func (r *AttemptRepo) ConsumeAndRecord(ctx context.Context, code string, res *models.AttemptResult, now time.Time) (err error) {
	answers, err := json.Marshal(res.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, ignoreClosed(tx.Rollback(ctx)))
		}
	}()

	var (
		tokenID       uuid.UUID
		participantID uuid.UUID
		setID         uuid.UUID
		expiresAt     time.Time
		consumed      bool
	)
	err = tx.QueryRow(ctx,
		`SELECT id, participant_id, question_set_id, expires_at, consumed
		 FROM access_tokens WHERE code = $1 FOR UPDATE`, code,
	).Scan(&tokenID, &participantID, &setID, &expiresAt, &consumed)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock access token: %w", err)
	}

	switch {
	case consumed:
		return ErrTokenConsumed
	case now.After(expiresAt):
		return ErrTokenExpired
	}

	var exists bool
	err = tx.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM attempt_results WHERE participant_id = $1 AND question_set_id = $2)",
		participantID, setID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check existing result: %w", err)
	}
	if exists {
		return ErrResultExists
	}

	if _, err = tx.Exec(ctx,
		"UPDATE access_tokens SET consumed = TRUE, used_at = $1 WHERE id = $2",
		now, tokenID,
	); err != nil {
		return fmt.Errorf("consume access token: %w", err)
	}

	res.ID = uuid.New()
	res.ParticipantID = participantID
	res.QuestionSetID = setID
	err = tx.QueryRow(ctx,
		`INSERT INTO attempt_results (id, participant_id, question_set_id, owner_id, correct_count, wrong_count,
			unattempted_count, total_questions, raw_score, final_score, score_percent, grade, passed,
			time_spent_seconds, answers_json)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 RETURNING created_at`,
		res.ID, res.ParticipantID, res.QuestionSetID, res.OwnerID, res.CorrectCount, res.WrongCount,
		res.UnattemptedCount, res.TotalQuestions, res.RawScore, res.FinalScore, res.ScorePercent, res.Grade, res.Passed,
		res.TimeSpentSeconds, answers,
	).Scan(&res.CreatedAt)
	if isUniqueViolation(err) {
		return ErrResultExists
	}
	if err != nil {
		return fmt.Errorf("insert attempt result: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit attempt: %w", err)
	}
	return nil
}

func (r *AttemptRepo) ListBySet(ctx context.Context, setID uuid.UUID) ([]models.AttemptResult, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, participant_id, question_set_id, owner_id, correct_count, wrong_count, unattempted_count,
			total_questions, raw_score, final_score, score_percent, grade, passed, time_spent_seconds,
			answers_json, created_at
		 FROM attempt_results WHERE question_set_id = $1 ORDER BY created_at DESC`, setID)
	if err != nil {
		return nil, fmt.Errorf("list attempt results: %w", err)
	}
	defer rows.Close()

	var results []models.AttemptResult
	for rows.Next() {
		var (
			a       models.AttemptResult
			answers []byte
		)
		if err := rows.Scan(&a.ID, &a.ParticipantID, &a.QuestionSetID, &a.OwnerID, &a.CorrectCount, &a.WrongCount,
			&a.UnattemptedCount, &a.TotalQuestions, &a.RawScore, &a.FinalScore, &a.ScorePercent, &a.Grade, &a.Passed,
			&a.TimeSpentSeconds, &answers, &a.CreatedAt); err != nil {
			return nil, err
		}
		if len(answers) > 0 {
			if err := json.Unmarshal(answers, &a.Answers); err != nil {
				return nil, fmt.Errorf("decode answers for %s: %w", a.ID, err)
			}
		}
		results = append(results, a)
	}
	return results, rows.Err()
}
