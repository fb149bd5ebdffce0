// Package adapters implements the Gateway's two outbound ASR backend
// clients (primary, accelerator) as uniform HTTP adapters, grounded on the
// retry/logging shape of the teacher's OpenAI Whisper adapter.
package adapters

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"svasr/internal/model"
	"svasr/pkg/logger"
)

// Request describes one transcription call against a backend.
type Request struct {
	AudioPath         string
	Language          string
	IncludeTimestamps bool
	Model             string
	BeamSize          int
	JobID             string
	LogDir            string
}

// Adapter is implemented by each ASR backend client.
type Adapter interface {
	// Name reports the backend tag ("primary" or "accelerator").
	Name() string
	Transcribe(ctx context.Context, req Request) (*model.TranscriptResult, error)
}

// BaseAdapter holds the HTTP plumbing shared by both backend clients:
// the endpoint URL, a configured client, and per-job log-file writing.
type BaseAdapter struct {
	name       string
	endpoint   string
	httpClient *http.Client
	maxRetries int
}

func NewBaseAdapter(name, endpoint string, timeout time.Duration) *BaseAdapter {
	return &BaseAdapter{
		name:       name,
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: 3,
	}
}

func (a *BaseAdapter) Name() string { return a.name }

// writeLog appends a timestamped line to transcription.log inside the job's
// output directory, mirroring the teacher's per-job log-file convention.
func (a *BaseAdapter) writeLog(logDir, format string, args ...interface{}) {
	if logDir == "" {
		return
	}
	logPath := filepath.Join(logDir, "transcription.log")
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		logger.Error("failed to open adapter log file", "path", logPath, "error", err)
		return
	}
	defer f.Close()

	msg := fmt.Sprintf(format, args...)
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(f, "[%s] %s\n", timestamp, msg)
}

// postMultipartWithRetry uploads the file at audioPath plus form fields to
// endpoint, retrying on transient network errors with the same backoff
// shape as the teacher's OpenAI adapter.
func (a *BaseAdapter) postMultipartWithRetry(ctx context.Context, endpoint string, audioPath string, fields map[string]string, logDir string) ([]byte, error) {
	buildRequest := func() (*http.Request, error) {
		file, err := os.Open(audioPath)
		if err != nil {
			return nil, fmt.Errorf("open audio file: %w", err)
		}
		defer file.Close()

		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
		if err != nil {
			return nil, fmt.Errorf("create form file: %w", err)
		}
		if _, err := io.Copy(part, file); err != nil {
			return nil, fmt.Errorf("copy file content: %w", err)
		}
		for k, v := range fields {
			_ = writer.WriteField(k, v)
		}
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("close multipart writer: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", writer.FormDataContentType())
		return req, nil
	}

	var lastErr error
	for attempt := 1; attempt <= a.maxRetries; attempt++ {
		req, err := buildRequest()
		if err != nil {
			return nil, err
		}

		a.writeLog(logDir, "attempt %d/%d: posting to %s", attempt, a.maxRetries, endpoint)
		resp, err := a.httpClient.Do(req)
		if err == nil {
			defer resp.Body.Close()
			respBody, readErr := io.ReadAll(resp.Body)
			if readErr != nil {
				return nil, fmt.Errorf("read response body: %w", readErr)
			}
			if resp.StatusCode != http.StatusOK {
				return nil, fmt.Errorf("%s backend error (status %d): %s", a.name, resp.StatusCode, string(respBody))
			}
			return respBody, nil
		}

		lastErr = err
		if !isRetryableNetErr(err) || attempt == a.maxRetries {
			a.writeLog(logDir, "request failed after %d attempts: %v", attempt, err)
			return nil, fmt.Errorf("%s backend request failed: %w", a.name, err)
		}

		backoff := time.Duration(attempt*attempt) * 500 * time.Millisecond
		a.writeLog(logDir, "attempt %d/%d failed: %v, retrying in %v", attempt, a.maxRetries, err, backoff)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return nil, lastErr
}

func isRetryableNetErr(err error) bool {
	s := err.Error()
	for _, marker := range []string{"EOF", "connection reset", "timeout", "connection refused", "network is unreachable", "broken pipe", "connection closed"} {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}
