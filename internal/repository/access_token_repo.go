package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"quizgen-backend/internal/models"
)

type AccessTokenRepo struct {
	pool *pgxpool.Pool
}

func NewAccessTokenRepo(pool *pgxpool.Pool) *AccessTokenRepo {
	return &AccessTokenRepo{pool: pool}
}

const accessTokenColumns = `id, code, participant_id, question_set_id, expires_at, used_at, consumed, created_at`

func scanAccessToken(row pgx.Row) (*models.AccessToken, error) {
	t := &models.AccessToken{}
	err := row.Scan(&t.ID, &t.Code, &t.ParticipantID, &t.QuestionSetID, &t.ExpiresAt, &t.UsedAt, &t.Consumed, &t.CreatedAt)
	return t, err
}

// IssueOrReuse returns the active token for the candidate's (participant, set)
// pair, or inserts the candidate when there is none. Issuance for a pair is
// serialised with a transaction-scoped advisory lock.
func (r *AccessTokenRepo) IssueOrReuse(ctx context.Context, candidate *models.AccessToken, now time.Time) (tok *models.AccessToken, reused bool, err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, ignoreClosed(tx.Rollback(ctx)))
		}
	}()

	key := candidate.ParticipantID.String() + ":" + candidate.QuestionSetID.String()
	if _, err = tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtextextended($1, 0))", key); err != nil {
		return nil, false, fmt.Errorf("lock issuance: %w", err)
	}

	existing, err := scanAccessToken(tx.QueryRow(ctx,
		`SELECT `+accessTokenColumns+` FROM access_tokens
		 WHERE participant_id = $1 AND question_set_id = $2 AND consumed = FALSE AND expires_at >= $3
		 ORDER BY created_at DESC LIMIT 1`,
		candidate.ParticipantID, candidate.QuestionSetID, now,
	))
	switch {
	case err == nil:
		if err = tx.Commit(ctx); err != nil {
			return nil, false, fmt.Errorf("commit issuance: %w", err)
		}
		return existing, true, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, false, fmt.Errorf("find active token: %w", err)
	}

	tok = &models.AccessToken{
		ID:            uuid.New(),
		Code:          candidate.Code,
		ParticipantID: candidate.ParticipantID,
		QuestionSetID: candidate.QuestionSetID,
		ExpiresAt:     candidate.ExpiresAt,
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO access_tokens (id, code, participant_id, question_set_id, expires_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING created_at`,
		tok.ID, tok.Code, tok.ParticipantID, tok.QuestionSetID, tok.ExpiresAt,
	).Scan(&tok.CreatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("insert access token: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("commit issuance: %w", err)
	}
	return tok, false, nil
}

func (r *AccessTokenRepo) GetByCode(ctx context.Context, code string) (*models.AccessToken, error) {
	t, err := scanAccessToken(r.pool.QueryRow(ctx,
		`SELECT `+accessTokenColumns+` FROM access_tokens WHERE code = $1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get access token: %w", err)
	}
	return t, nil
}

func (r *AccessTokenRepo) ListBySet(ctx context.Context, setID uuid.UUID) ([]models.AccessToken, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+accessTokenColumns+` FROM access_tokens WHERE question_set_id = $1 ORDER BY created_at DESC`, setID)
	if err != nil {
		return nil, fmt.Errorf("list access tokens: %w", err)
	}
	defer rows.Close()

	var tokens []models.AccessToken
	for rows.Next() {
		t, err := scanAccessToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, *t)
	}
	return tokens, rows.Err()
}
