// Package client holds the Ingest Orchestrator's outbound HTTP clients
// against the Transcription Gateway (transcribe) and the Pipeline Runner
// (submit job), adapted from whisper_client.py / batch_client.py.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"svasr/internal/model"
)

// GatewayClient calls the Transcription Gateway's /transcribe endpoint.
type GatewayClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewGatewayClient(baseURL string, timeout time.Duration) *GatewayClient {
	return &GatewayClient{baseURL: baseURL, httpClient: &http.Client{Timeout: timeout}}
}

// Transcribe uploads raw audio bytes and returns the Gateway's transcript.
func (c *GatewayClient) Transcribe(ctx context.Context, audio []byte, filename, profile, language string) (*model.TranscriptResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(audio); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/transcribe?profile=%s&language=%s", c.baseURL, profile, language)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway transcribe request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway transcribe error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result model.TranscriptResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode transcribe response: %w", err)
	}
	return &result, nil
}

// PipelineClient submits post-processing jobs to the Pipeline Runner.
type PipelineClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewPipelineClient(baseURL string, timeout time.Duration) *PipelineClient {
	return &PipelineClient{baseURL: baseURL, httpClient: &http.Client{Timeout: timeout}}
}

type submitResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// SubmitJob posts a job input to POST /jobs and returns the assigned job ID.
func (c *PipelineClient) SubmitJob(ctx context.Context, input model.JobInput) (string, error) {
	payload, err := input.Marshal()
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/jobs", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit job request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("submit job error (status %d): %s", resp.StatusCode, string(body))
	}

	var out submitResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode submit job response: %w", err)
	}
	return out.JobID, nil
}
