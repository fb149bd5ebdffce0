// Package llm implements a minimal OpenAI-compatible chat-completion client,
// used by the summary pipeline stage. Grounded on the request/retry shape
// of the gateway's backend adapters, scaled down to a single JSON POST.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ChatMessage is one turn in a chat-completion request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Service is a client against any OpenAI-compatible chat-completions
// endpoint (hosted API, Ollama, vLLM).
type Service struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewService builds a client against baseURL (e.g. "https://api.openai.com/v1"
// or a local Ollama/vLLM endpoint). apiKey may be empty for endpoints that
// don't require auth.
func NewService(baseURL, apiKey string) *Service {
	return &Service{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
}

// ChatCompletion posts one chat-completion request and returns the first
// choice's message content. The LLM call has a fixed 30 s timeout
// regardless of any other HTTP timeout configuration.
func (s *Service) ChatCompletion(ctx context.Context, model string, messages []ChatMessage, temperature float64) (string, error) {
	if s.baseURL == "" {
		return "", fmt.Errorf("llm: no endpoint configured")
	}

	payload, err := json.Marshal(chatRequest{Model: model, Messages: messages, Temperature: temperature})
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read chat response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm endpoint error (status %d): %s", resp.StatusCode, string(body))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("llm response had no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}
