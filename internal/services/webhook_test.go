package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"quizgen-backend/internal/models"
)

func TestParseWebhook(t *testing.T) {
	setID := uuid.New()

	tests := map[string]struct {
		body       string
		queryJobID string
		wantFields []string
		check      func(t *testing.T, d *models.WebhookDelivery)
	}{
		"success with questions": {
			body:       `{"set_id":"` + setID.String() + `","success":true,"questions":[{"question":"Q?","options":["a","b","c","d"],"correct_label":"b"}]}`,
			queryJobID: "job-1",
			check: func(t *testing.T, d *models.WebhookDelivery) {
				require.Equal(t, setID, d.SetID)
				require.Equal(t, "job-1", d.JobID)
				ok, isSuccess := d.Outcome.(models.GenerationSucceeded)
				require.True(t, isSuccess)
				require.Len(t, ok.Candidates, 1)
			},
		},
		"failure without reason": {
			body: `{"set_id":"` + setID.String() + `","job_id":"job-2","success":false}`,
			check: func(t *testing.T, d *models.WebhookDelivery) {
				require.Equal(t, "job-2", d.JobID)
				require.Equal(t, models.GenerationFailed{Reason: "Generation failed"}, d.Outcome)
			},
		},
		"matching job ids": {
			body:       `{"set_id":"` + setID.String() + `","job_id":"job-3","success":false,"error":"boom"}`,
			queryJobID: "job-3",
			check: func(t *testing.T, d *models.WebhookDelivery) {
				require.Equal(t, models.GenerationFailed{Reason: "boom"}, d.Outcome)
			},
		},
		"invalid json": {
			body:       `{`,
			wantFields: []string{"body"},
		},
		"missing everything": {
			body:       `{}`,
			wantFields: []string{"set_id", "job_id"},
		},
		"not an object": {
			body:       `[1,2]`,
			wantFields: []string{"body"},
		},
		"conflicting set ids": {
			body:       `{"set_id":"` + setID.String() + `","mcq_set_id":"` + uuid.NewString() + `","success":true}`,
			queryJobID: "job-1",
			wantFields: []string{"set_id"},
		},
		"set id from the job envelope field": {
			body:       `{"mcq_set_id":"` + setID.String() + `","success":false,"error":"out of credits"}`,
			queryJobID: "job-4",
			check: func(t *testing.T, d *models.WebhookDelivery) {
				require.Equal(t, setID, d.SetID)
				require.Equal(t, models.GenerationFailed{Reason: "out of credits"}, d.Outcome)
			},
		},
		"missing success flag fails the job": {
			body:       `{"set_id":"` + setID.String() + `","questions":[]}`,
			queryJobID: "job-5",
			check: func(t *testing.T, d *models.WebhookDelivery) {
				require.Equal(t, "job-5", d.JobID)
				failed, ok := d.Outcome.(models.GenerationFailed)
				require.True(t, ok)
				require.Contains(t, failed.Reason, "success flag")
			},
		},
		"non boolean success fails the job": {
			body:       `{"set_id":"` + setID.String() + `","success":"yes"}`,
			queryJobID: "job-6",
			check: func(t *testing.T, d *models.WebhookDelivery) {
				_, ok := d.Outcome.(models.GenerationFailed)
				require.True(t, ok)
			},
		},
		"questions not an array fails the job": {
			body:       `{"set_id":"` + setID.String() + `","success":true,"questions":{"question":"Q?"}}`,
			queryJobID: "job-7",
			check: func(t *testing.T, d *models.WebhookDelivery) {
				failed, ok := d.Outcome.(models.GenerationFailed)
				require.True(t, ok)
				require.Contains(t, failed.Reason, "questions")
			},
		},
		"non string error is kept as the reason": {
			body:       `{"set_id":"` + setID.String() + `","success":false,"error":{"code":500}}`,
			queryJobID: "job-8",
			check: func(t *testing.T, d *models.WebhookDelivery) {
				require.Equal(t, models.GenerationFailed{Reason: `{"code":500}`}, d.Outcome)
			},
		},
		"undecodable items are counted": {
			body: `{"set_id":"` + setID.String() + `","success":true,"questions":[` +
				`{"question":"Q1?","options":["a","b","c","d"],"correct_label":"A"},` +
				`{"question":"Q2?","options":"a,b,c,d","correct_label":"A"},` +
				`"just text",` +
				`{"question":"Q3?","options":["a","b","c","d"],"answer":"d"}]}`,
			queryJobID: "job-9",
			check: func(t *testing.T, d *models.WebhookDelivery) {
				ok, isSuccess := d.Outcome.(models.GenerationSucceeded)
				require.True(t, isSuccess)
				require.Len(t, ok.Candidates, 2)
				require.Equal(t, 2, ok.Undecodable)
				require.Equal(t, "Q3?", ok.Candidates[1].Question)
			},
		},
		"conflicting job ids": {
			body:       `{"set_id":"` + setID.String() + `","job_id":"job-a","success":true}`,
			queryJobID: "job-b",
			wantFields: []string{"job_id"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			d, err := ParseWebhook([]byte(tc.body), tc.queryJobID)
			if tc.wantFields != nil {
				verr := requireErrorType[*ValidationError](t, err)
				for _, f := range tc.wantFields {
					require.Contains(t, verr.Fields, f)
				}
				return
			}
			require.NoError(t, err)
			tc.check(t, d)
		})
	}
}

func TestValidateCandidates(t *testing.T) {
	setID := uuid.New()
	good := models.CandidateQuestion{Question: " What? ", Options: []string{" a", "b ", "c", "d"}, CorrectLabel: " c "}

	cands := []models.CandidateQuestion{
		good,
		{Question: "", Options: good.Options, CorrectLabel: "A"},
		{Question: "Q", Options: []string{"a", "b", "c"}, CorrectLabel: "A"},
		{Question: "Q", Options: []string{"a", "b", "c", "d", "e"}, CorrectLabel: "A"},
		{Question: "Q", Options: []string{"a", "", "c", "d"}, CorrectLabel: "A"},
		{Question: "Q", Options: good.Options, CorrectLabel: ""},
		{Question: "Q", Options: good.Options, CorrectLabel: "AB"},
		good,
		{Question: "Q", Options: good.Options, Answer: "b"},
	}

	valid, discarded := ValidateCandidates(setID, cands)
	require.Equal(t, 6, discarded)
	require.Len(t, valid, 3)
	require.Equal(t, "B", valid[2].CorrectLabel, "answer is accepted in place of correct_label")

	q := valid[0]
	require.Equal(t, "What?", q.Text)
	require.Equal(t, [4]string{"a", "b", "c", "d"}, q.Options)
	require.Equal(t, "C", q.CorrectLabel)
	require.Equal(t, setID, q.QuestionSetID)
	require.Equal(t, 1, q.Position)
	require.Equal(t, 2, valid[1].Position)
	require.NotEqual(t, valid[0].ID, valid[1].ID)
}
