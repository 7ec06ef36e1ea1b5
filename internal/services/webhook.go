package services

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"quizgen-backend/internal/models"
)

// ParseWebhook turns a raw worker callback into a WebhookDelivery. The job id
// may come from the callback query string, the body, or both; when both are
// present they must agree. Only a body that does not name a set and a job is
// rejected. Once both are known, a missing success flag or a questions value
// that is not an array becomes a failed outcome, and question items that do
// not decode are counted rather than failing the rest.
func ParseWebhook(body []byte, queryJobID string) (*models.WebhookDelivery, error) {
	var p models.WebhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, invalid("body", "Invalid JSON payload")
	}

	fields := map[string]string{}

	rawSetID := strings.TrimSpace(p.SetID)
	aliasSetID := strings.TrimSpace(p.MCQSetID)
	switch {
	case rawSetID == "":
		rawSetID = aliasSetID
	case aliasSetID != "" && aliasSetID != rawSetID:
		fields["set_id"] = "set_id and mcq_set_id do not match"
	}
	setID, err := uuid.Parse(rawSetID)
	if err != nil && fields["set_id"] == "" {
		fields["set_id"] = "A valid question set id is required"
	}

	queryJobID = strings.TrimSpace(queryJobID)
	bodyJobID := strings.TrimSpace(p.JobID)
	jobID := queryJobID
	switch {
	case jobID == "" && bodyJobID == "":
		fields["job_id"] = "Job id is required"
	case jobID == "":
		jobID = bodyJobID
	case bodyJobID != "" && bodyJobID != jobID:
		fields["job_id"] = "Job id in body does not match callback"
	}

	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	return &models.WebhookDelivery{SetID: setID, JobID: jobID, Outcome: webhookOutcome(p)}, nil
}

func webhookOutcome(p models.WebhookPayload) models.GenerationOutcome {
	var success bool
	if !isJSONValue(p.Success) || json.Unmarshal(p.Success, &success) != nil {
		return models.GenerationFailed{Reason: "Malformed callback: success flag missing or not a boolean"}
	}

	if !success {
		var reason string
		if isJSONValue(p.Error) {
			if json.Unmarshal(p.Error, &reason) != nil {
				reason = string(p.Error)
			}
		}
		reason = strings.TrimSpace(reason)
		if reason == "" {
			reason = "Generation failed"
		}
		return models.GenerationFailed{Reason: reason}
	}

	var items []json.RawMessage
	if !isJSONValue(p.Questions) || json.Unmarshal(p.Questions, &items) != nil {
		return models.GenerationFailed{Reason: "Malformed callback: questions is not an array"}
	}

	out := models.GenerationSucceeded{Candidates: make([]models.CandidateQuestion, 0, len(items))}
	for _, item := range items {
		var c models.CandidateQuestion
		if err := json.Unmarshal(item, &c); err != nil {
			out.Undecodable++
			continue
		}
		out.Candidates = append(out.Candidates, c)
	}
	return out
}

// isJSONValue reports whether raw holds something other than absent or null.
func isJSONValue(raw json.RawMessage) bool {
	v := strings.TrimSpace(string(raw))
	return v != "" && v != "null"
}

// ValidateCandidates keeps the well-formed candidates, in order, as questions
// for setID. A candidate needs a non-empty stem, exactly four non-empty
// options and a correct label in A-D (case and surrounding space ignored).
func ValidateCandidates(setID uuid.UUID, candidates []models.CandidateQuestion) (valid []models.Question, discarded int) {
	for _, c := range candidates {
		q, ok := validCandidate(c)
		if !ok {
			discarded++
			continue
		}
		q.ID = uuid.New()
		q.QuestionSetID = setID
		q.Position = len(valid) + 1
		valid = append(valid, q)
	}
	return valid, discarded
}

func validCandidate(c models.CandidateQuestion) (models.Question, bool) {
	var q models.Question

	q.Text = strings.TrimSpace(c.Question)
	if q.Text == "" || len(c.Options) != len(q.Options) {
		return q, false
	}
	for i, opt := range c.Options {
		opt = strings.TrimSpace(opt)
		if opt == "" {
			return q, false
		}
		q.Options[i] = opt
	}

	label := c.CorrectLabel
	if strings.TrimSpace(label) == "" {
		label = c.Answer
	}
	q.CorrectLabel = strings.ToUpper(strings.TrimSpace(label))
	if !models.IsOptionLabel(q.CorrectLabel) {
		return q, false
	}
	return q, true
}
