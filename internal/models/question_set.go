package models

import (
	"time"

	"github.com/google/uuid"
)

type SetStatus string

const (
	StatusPending    SetStatus = "pending"
	StatusGenerating SetStatus = "generating"
	StatusCompleted  SetStatus = "completed"
	StatusFailed     SetStatus = "failed"
)

// Terminal reports whether no webhook may change the status any more.
func (s SetStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// OptionLabels are the only accepted correct-answer labels, in option order.
var OptionLabels = [4]string{"A", "B", "C", "D"}

func IsOptionLabel(label string) bool {
	for _, l := range OptionLabels {
		if l == label {
			return true
		}
	}
	return false
}

type QuestionSet struct {
	ID             uuid.UUID `json:"id"`
	OwnerID        uuid.UUID `json:"owner_id"`
	SourceRef      string    `json:"source_ref"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Status         SetStatus `json:"status"`
	TotalQuestions int       `json:"total_questions"`
	JobID          *string   `json:"job_id"`
	FailureReason  *string   `json:"failure_reason,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type Question struct {
	ID            uuid.UUID `json:"id"`
	QuestionSetID uuid.UUID `json:"question_set_id"`
	Position      int       `json:"position"`
	Text          string    `json:"question"`
	Options       [4]string `json:"options"`
	CorrectLabel  string    `json:"correct_label"`
}

// PublicQuestion is what a participant sees: no correct label.
type PublicQuestion struct {
	ID       uuid.UUID `json:"id"`
	Position int       `json:"position"`
	Text     string    `json:"question"`
	Options  [4]string `json:"options"`
}

func (q Question) Public() PublicQuestion {
	return PublicQuestion{
		ID:       q.ID,
		Position: q.Position,
		Text:     q.Text,
		Options:  q.Options,
	}
}

type CreateSetRequest struct {
	SourceRef   string `json:"source_ref"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type StartGenerationRequest struct {
	NumQuestions int `json:"num_questions"`
}

type QuestionSetDetail struct {
	QuestionSet
	Questions []Question `json:"questions"`
}

type DispatchResult struct {
	SetID  uuid.UUID `json:"question_set_id"`
	JobID  string    `json:"job_id"`
	Status SetStatus `json:"status"`
}

// GenerationStatus is the read-only projection returned by status polling.
// Live is advisory and never written back.
type GenerationStatus struct {
	SetID           uuid.UUID  `json:"question_set_id"`
	Status          SetStatus  `json:"status"`
	JobID           *string    `json:"job_id"`
	TotalQuestions  int        `json:"total_questions"`
	QuestionsStored int        `json:"questions_stored"`
	FailureReason   *string    `json:"failure_reason,omitempty"`
	Live            LiveStatus `json:"live_status,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
