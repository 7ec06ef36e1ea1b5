package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrTokenConsumed = errors.New("access token already consumed")
	ErrTokenExpired  = errors.New("access token expired")
	ErrResultExists  = errors.New("attempt result already recorded")
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
