package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"svasr/internal/model"
	"svasr/internal/pipeline"
	"svasr/internal/pipeline/contextprofiles"
	"svasr/internal/pipeline/diarizer"
	"svasr/internal/pipeline/gatewayclient"
	"svasr/internal/pipeline/jobstore"
	"svasr/internal/pipeline/queue"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store, err := jobstore.Open(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)

	q := queue.New(1)
	t.Cleanup(q.Shutdown)

	profiles := contextprofiles.NewRegistry("")
	gwClient := gatewayclient.New("http://unused", time.Second, 1, time.Millisecond)

	runner := pipeline.New(pipeline.Config{
		CasingProfile: model.CasingVerbatim,
	}, store, q, profiles, gwClient, diarizer.NoOp{}, nil)

	return New(runner, store)
}

func TestHandleSubmit_RejectsEmptySegments(t *testing.T) {
	srv := newTestServer(t)
	body, _ := json.Marshal(model.JobInput{Language: "sv"})

	req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSubmit_ThenGet_TransitionsToCompleted(t *testing.T) {
	srv := newTestServer(t)
	input := model.JobInput{Segments: []model.Segment{{Text: "hej", Start: 0, End: 1}}, Language: "sv"}
	body, _ := json.Marshal(input)

	req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var submitted struct {
		JobID string `json:"job_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submitted))
	require.NotEmpty(t, submitted.JobID)

	require.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/jobs/"+submitted.JobID, nil)
		srv.Router().ServeHTTP(rec, req)
		var status jobStatusBody
		json.Unmarshal(rec.Body.Bytes(), &status)
		return status.Status == string(model.JobCompleted)
	}, 2*time.Second, 20*time.Millisecond)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/jobs/"+submitted.JobID+"/result", nil)
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var result model.InterpretationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result.Segments, 1)
	assert.Equal(t, "hej", result.Segments[0].Text)
}

func TestHandleGet_UnknownJobReturns404(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/jobs/does-not-exist", nil)
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleResult_NotCompletedReturns409(t *testing.T) {
	srv := newTestServer(t)
	// Directly craft a pending job via the store, bypassing the queue so it
	// never transitions past "pending".
	id, err := srv.store.Create(`{}`)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/jobs/"+id+"/result", nil)
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// An unknown job ID is a 404, not a 409.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/jobs/does-not-exist/result", nil)
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
