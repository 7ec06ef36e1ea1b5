package jobworker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"quizgen-backend/internal/models"
)

// HTTPClient talks to a worker that exposes POST /jobs and GET /jobs/{id}.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) SubmitJob(ctx context.Context, job models.GenerationJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job %s: %w", job.JobID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/jobs", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("submit job %s: %w", job.JobID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("worker rejected job %s: %s: %s", job.JobID, resp.Status, strings.TrimSpace(string(msg)))
	}
	return nil
}

func (c *HTTPClient) JobStatus(ctx context.Context, jobID string) (models.LiveStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/jobs/"+url.PathEscape(jobID), nil)
	if err != nil {
		return models.LiveUnknown, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return models.LiveUnknown, fmt.Errorf("describe job %s: %w", jobID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return models.LiveUnknown, nil
	}
	if resp.StatusCode != http.StatusOK {
		return models.LiveUnknown, fmt.Errorf("describe job %s: %s", jobID, resp.Status)
	}

	var out struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&out); err != nil {
		return models.LiveUnknown, fmt.Errorf("decode status of job %s: %w", jobID, err)
	}
	return models.ParseLiveStatus(out.Status), nil
}
