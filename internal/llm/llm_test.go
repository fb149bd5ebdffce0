package llm

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatCompletion_ReturnsFirstChoiceContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(chatResponse{Choices: []struct {
			Message ChatMessage `json:"message"`
		}{{Message: ChatMessage{Role: "assistant", Content: `{"summary":"kort","action_items":[]}`}}}})
	}))
	defer srv.Close()

	svc := NewService(srv.URL, "secret")
	content, err := svc.ChatCompletion(t.Context(), "gpt", []ChatMessage{{Role: "user", Content: "hej"}}, 0.3)
	require.NoError(t, err)
	assert.Equal(t, `{"summary":"kort","action_items":[]}`, content)
}

func TestChatCompletion_NoEndpointConfiguredFailsFast(t *testing.T) {
	svc := NewService("", "")
	_, err := svc.ChatCompletion(t.Context(), "gpt", []ChatMessage{{Role: "user", Content: "hej"}}, 0.3)
	assert.Error(t, err)
}

func TestChatCompletion_NonOKStatusReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	svc := NewService(srv.URL, "")
	_, err := svc.ChatCompletion(t.Context(), "gpt", []ChatMessage{{Role: "user", Content: "hej"}}, 0.3)
	assert.Error(t, err)
}

func TestChatCompletion_NoChoicesReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse{})
	}))
	defer srv.Close()

	svc := NewService(srv.URL, "")
	_, err := svc.ChatCompletion(t.Context(), "gpt", []ChatMessage{{Role: "user", Content: "hej"}}, 0.3)
	assert.Error(t, err)
}
