package diarizer

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoOp_AlwaysUnavailable(t *testing.T) {
	d := NoOp{}
	assert.False(t, d.Available())
	_, err := d.Diarize(t.Context(), "/tmp/a.wav")
	assert.Error(t, err)
}

func TestHTTPDiarizer_AvailableOnlyWithBaseURL(t *testing.T) {
	d := NewHTTPDiarizer("", time.Second)
	assert.False(t, d.Available())

	d = NewHTTPDiarizer("http://localhost:9999", time.Second)
	assert.True(t, d.Available())
}

func TestHTTPDiarizer_DiarizeDecodesTurns(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/diarize", r.URL.Path)
		json.NewEncoder(w).Encode([]Turn{{Start: 0, End: 1, Speaker: "A"}})
	}))
	defer srv.Close()

	d := NewHTTPDiarizer(srv.URL, 5*time.Second)
	turns, err := d.Diarize(t.Context(), "/tmp/a.wav")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "A", turns[0].Speaker)
}

func TestHTTPDiarizer_NonOKStatusReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := NewHTTPDiarizer(srv.URL, 5*time.Second)
	_, err := d.Diarize(t.Context(), "/tmp/a.wav")
	assert.Error(t, err)
}
