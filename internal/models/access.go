package models

import (
	"time"

	"github.com/google/uuid"
)

type Participant struct {
	ID      uuid.UUID `json:"id"`
	OwnerID uuid.UUID `json:"owner_id"`
	Name    string    `json:"name"`
	Email   string    `json:"email"`
}

type AccessToken struct {
	ID            uuid.UUID  `json:"id"`
	Code          string     `json:"code"`
	ParticipantID uuid.UUID  `json:"participant_id"`
	QuestionSetID uuid.UUID  `json:"question_set_id"`
	ExpiresAt     time.Time  `json:"expires_at"`
	UsedAt        *time.Time `json:"used_at"`
	Consumed      bool       `json:"consumed"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Expired reports whether now is past the expiry instant.
func (t *AccessToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// Active tokens can still be redeemed and are reused on re-issue.
func (t *AccessToken) Active(now time.Time) bool {
	return !t.Consumed && !t.Expired(now)
}

type ShareRequest struct {
	ParticipantIDs []uuid.UUID `json:"participant_ids"`
	TTLHours       int         `json:"ttl_hours"`
}

type Invitation struct {
	ParticipantID     uuid.UUID `json:"participant_id"`
	ParticipantName   string    `json:"participant_name"`
	ParticipantEmail  string    `json:"participant_email"`
	Code              string    `json:"code"`
	ExpiresAt         time.Time `json:"expires_at"`
	Reused            bool      `json:"reused"`
	Notified          bool      `json:"notified"`
	NotificationError string    `json:"notification_error,omitempty"`
}

type ShareResult struct {
	QuestionSetID uuid.UUID    `json:"question_set_id"`
	Invitations   []Invitation `json:"invitations"`
	Skipped       []uuid.UUID  `json:"skipped"`
}
