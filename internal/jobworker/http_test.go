package jobworker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"quizgen-backend/internal/models"
)

func TestHTTPClient_SubmitJob(t *testing.T) {
	var received models.GenerationJob
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/jobs", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL+"/", 0)
	require.NoError(t, c.SubmitJob(context.Background(), models.GenerationJob{JobID: "job-1", NumQuestions: 3}))
	require.Equal(t, "job-1", received.JobID)
	require.Equal(t, 3, received.NumQuestions)
}

func TestHTTPClient_SubmitJobRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "queue full", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := NewHTTPClient(srv.URL, 0).SubmitJob(context.Background(), models.GenerationJob{JobID: "job-1"})
	require.ErrorContains(t, err, "queue full")
}

func TestHTTPClient_JobStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/jobs/running-job":
			w.Write([]byte(`{"status":"RUNNING"}`))
		case "/jobs/broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, 0)
	ctx := context.Background()

	status, err := c.JobStatus(ctx, "running-job")
	require.NoError(t, err)
	require.Equal(t, models.LiveRunning, status)

	status, err = c.JobStatus(ctx, "gone")
	require.NoError(t, err)
	require.Equal(t, models.LiveUnknown, status)

	_, err = c.JobStatus(ctx, "broken")
	require.Error(t, err)
}
