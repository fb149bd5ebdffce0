// Package gatewayclient is the pipeline runner's outbound HTTP client
// against the Transcription Gateway's /transcribe/retry endpoint. Transient
// failures are retried with exponential backoff per the runner's own
// http_retries/http_retry_backoff knobs, independent of the Gateway's own
// internal adapter retries.
package gatewayclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"svasr/internal/model"
	"svasr/pkg/logger"
)

// Client talks to one Gateway base URL.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	retries        int
	retryBackoff   time.Duration
}

func New(baseURL string, timeout time.Duration, retries int, retryBackoff time.Duration) *Client {
	return &Client{
		baseURL:      baseURL,
		httpClient:   &http.Client{Timeout: timeout},
		retries:      retries,
		retryBackoff: retryBackoff,
	}
}

type retryRequestBody struct {
	AudioBase64 string  `json:"audio_base64"`
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	BeamSize    int     `json:"beam_size"`
	Model       string  `json:"model"`
	Language    string  `json:"language"`
}

// Retry calls POST /transcribe/retry, retrying up to c.retries times with
// exponential backoff (retryBackoff * 2^attempt) on transport/HTTP errors.
func (c *Client) Retry(ctx context.Context, audioBase64 string, start, end float64, beamSize int, modelName, language string) (*model.RetryResult, error) {
	payload, err := json.Marshal(retryRequestBody{
		AudioBase64: audioBase64, Start: start, End: end,
		BeamSize: beamSize, Model: modelName, Language: language,
	})
	if err != nil {
		return nil, err
	}

	var lastErr error
	attempts := c.retries
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcribe/retry", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err == nil && resp.StatusCode == http.StatusOK {
			defer resp.Body.Close()
			body, readErr := io.ReadAll(resp.Body)
			if readErr != nil {
				return nil, readErr
			}
			var result model.RetryResult
			if err := json.Unmarshal(body, &result); err != nil {
				return nil, fmt.Errorf("decode retry response: %w", err)
			}
			return &result, nil
		}

		if err != nil {
			lastErr = err
		} else {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			lastErr = fmt.Errorf("gateway retry error (status %d): %s", resp.StatusCode, string(body))
		}

		if attempt < attempts-1 {
			wait := c.retryBackoff * time.Duration(1<<uint(attempt))
			logger.Warn("retry attempt failed, backing off", "attempt", attempt+1, "wait", wait, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
	}
	return nil, lastErr
}
