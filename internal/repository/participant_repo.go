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

// ParticipantRepo is read-only: participants are managed elsewhere.
type ParticipantRepo struct {
	pool *pgxpool.Pool
}

func NewParticipantRepo(pool *pgxpool.Pool) *ParticipantRepo {
	return &ParticipantRepo{pool: pool}
}

func (r *ParticipantRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Participant, error) {
	p := &models.Participant{}
	err := r.pool.QueryRow(ctx,
		"SELECT id, owner_id, name, email FROM participants WHERE id = $1", id,
	).Scan(&p.ID, &p.OwnerID, &p.Name, &p.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get participant %s: %w", id, err)
	}
	return p, nil
}
