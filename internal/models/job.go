package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerationJob is the envelope handed to the external job worker.
type GenerationJob struct {
	JobID        string    `json:"job_id"`
	SetID        uuid.UUID `json:"mcq_set_id"`
	DownloadURL  string    `json:"url"`
	NumQuestions int       `json:"num_questions"`
	CallbackURL  string    `json:"webhook_url"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// LiveStatus is the engine's closed view of the worker's own job state.
type LiveStatus string

const (
	LiveUnknown   LiveStatus = "unknown"
	LiveQueued    LiveStatus = "queued"
	LiveRunning   LiveStatus = "running"
	LiveCompleted LiveStatus = "completed"
	LiveFailed    LiveStatus = "failed"
)

// ParseLiveStatus maps whatever status string a worker reports onto LiveStatus.
func ParseLiveStatus(raw string) LiveStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "queued", "pending", "scheduled":
		return LiveQueued
	case "running", "started", "processing":
		return LiveRunning
	case "completed", "succeeded", "success", "done":
		return LiveCompleted
	case "failed", "error", "terminated", "timed_out", "canceled", "cancelled":
		return LiveFailed
	default:
		return LiveUnknown
	}
}

// WebhookPayload is the raw JSON body posted by the worker. Everything past
// the identifiers is kept raw so one bad field cannot sink the whole callback.
// Workers echo the job envelope, so mcq_set_id is accepted as well as set_id.
type WebhookPayload struct {
	SetID     string          `json:"set_id"`
	MCQSetID  string          `json:"mcq_set_id"`
	JobID     string          `json:"job_id"`
	Success   json.RawMessage `json:"success"`
	Questions json.RawMessage `json:"questions"`
	Error     json.RawMessage `json:"error"`
}

type CandidateQuestion struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectLabel string   `json:"correct_label"`
	Answer       string   `json:"answer"`
}

// GenerationOutcome is either GenerationSucceeded or GenerationFailed.
type GenerationOutcome interface {
	isGenerationOutcome()
}

type GenerationSucceeded struct {
	Candidates []CandidateQuestion
	// Undecodable counts array items that were not question objects at all.
	Undecodable int
}

type GenerationFailed struct {
	Reason string
}

func (GenerationSucceeded) isGenerationOutcome() {}
func (GenerationFailed) isGenerationOutcome()    {}

// WebhookDelivery is a parsed webhook call.
type WebhookDelivery struct {
	SetID   uuid.UUID
	JobID   string
	Outcome GenerationOutcome
}

type WebhookResult struct {
	SetID     uuid.UUID `json:"question_set_id"`
	Status    SetStatus `json:"status"`
	Applied   bool      `json:"applied"`
	Accepted  int       `json:"accepted"`
	Discarded int       `json:"discarded"`
	Message   string    `json:"message"`
}

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type GenerationUpdate struct {
	SetID          uuid.UUID `json:"question_set_id"`
	JobID          string    `json:"job_id,omitempty"`
	Status         SetStatus `json:"status"`
	TotalQuestions int       `json:"total_questions,omitempty"`
	Message        string    `json:"message,omitempty"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
