package models

import (
	"time"

	"github.com/google/uuid"
)

type AttemptResult struct {
	ID               uuid.UUID         `json:"id"`
	ParticipantID    uuid.UUID         `json:"participant_id"`
	QuestionSetID    uuid.UUID         `json:"question_set_id"`
	OwnerID          uuid.UUID         `json:"owner_id"`
	CorrectCount     int               `json:"correct_count"`
	WrongCount       int               `json:"wrong_count"`
	UnattemptedCount int               `json:"unattempted_count"`
	TotalQuestions   int               `json:"total_questions"`
	RawScore         float64           `json:"raw_score"`
	FinalScore       float64           `json:"final_score"`
	ScorePercent     int               `json:"score_percent"`
	Grade            string            `json:"grade"`
	Passed           bool              `json:"passed"`
	TimeSpentSeconds int               `json:"time_spent_seconds"`
	Answers          map[string]string `json:"answers"`
	CreatedAt        time.Time         `json:"created_at"`
}

// AttemptSession is returned when a participant opens a quiz with a code.
type AttemptSession struct {
	Code             string           `json:"code"`
	Participant      *Participant     `json:"participant,omitempty"`
	QuestionSetID    uuid.UUID        `json:"question_set_id"`
	Name             string           `json:"name"`
	Description      string           `json:"description"`
	TotalQuestions   int              `json:"total_questions"`
	Questions        []PublicQuestion `json:"questions"`
	TimeLimitSeconds int              `json:"time_limit_seconds"`
	ExpiresAt        time.Time        `json:"expires_at"`
}

type SubmitAttemptRequest struct {
	Code             string            `json:"-"`
	Answers          map[string]string `json:"answers"`
	TimeSpentSeconds *int              `json:"time_spent"`
}

type ScoreBreakdown struct {
	Correct     string `json:"correct"`
	Wrong       string `json:"wrong"`
	Unattempted string `json:"unattempted"`
	Total       string `json:"total"`
}

type QuestionOutcome struct {
	QuestionID    string `json:"question_id"`
	Given         string `json:"user_answer,omitempty"`
	CorrectAnswer string `json:"correct_answer"`
	Status        string `json:"status"`
}

type AttemptOutcome struct {
	AttemptID        uuid.UUID         `json:"attempt_id"`
	CorrectCount     int               `json:"score"`
	WrongCount       int               `json:"wrong_answers"`
	UnattemptedCount int               `json:"unattempted"`
	TotalQuestions   int               `json:"total_questions"`
	RawScore         string            `json:"raw_score"`
	FinalScore       string            `json:"final_score"`
	ScorePercent     int               `json:"score_percentage"`
	Grade            string            `json:"grade"`
	Passed           bool              `json:"passed"`
	TimeSpentSeconds int               `json:"time_spent"`
	NegativeMarking  string            `json:"negative_marking"`
	Breakdown        ScoreBreakdown    `json:"breakdown"`
	Details          []QuestionOutcome `json:"detailed_results"`
}

type InvitationStatus struct {
	ParticipantID uuid.UUID  `json:"participant_id"`
	Code          string     `json:"code"`
	Consumed      bool       `json:"is_used"`
	UsedAt        *time.Time `json:"used_at"`
	ExpiresAt     time.Time  `json:"expires_at"`
}

type SetResults struct {
	QuestionSetID uuid.UUID          `json:"question_set_id"`
	Name          string             `json:"name"`
	Attempts      []AttemptResult    `json:"attempts"`
	Invitations   []InvitationStatus `json:"invitations"`
}

// ResultRow is one attempt joined with who made it.
type ResultRow struct {
	ParticipantName  string
	ParticipantEmail string
	Attempt          AttemptResult
}

// ResultsReport is the flat, exportable view of a set's attempts.
type ResultsReport struct {
	QuestionSetID uuid.UUID
	Name          string
	Rows          []ResultRow
}
