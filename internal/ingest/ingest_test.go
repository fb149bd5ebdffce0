package ingest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"svasr/internal/ingest/audio"
	"svasr/internal/ingest/client"
	"svasr/internal/ingest/session"
	"svasr/internal/model"
	"svasr/pkg/wav"
)

func requireFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not available on PATH")
	}
}

// wavChunk returns a real WAV container, so the ffmpeg concat step inside
// session persistence can actually read it.
func wavChunk(t *testing.T, dataBytes int) []byte {
	t.Helper()
	data, err := wav.EncodePCM16(make([]byte, dataBytes))
	require.NoError(t, err)
	return data
}

func newTestService(t *testing.T, gatewayHandler, pipelineHandler http.HandlerFunc) (*Service, *session.Store) {
	t.Helper()
	gwSrv := httptest.NewServer(gatewayHandler)
	t.Cleanup(gwSrv.Close)
	plSrv := httptest.NewServer(pipelineHandler)
	t.Cleanup(plSrv.Close)

	canon := audio.NewCanonicalizer(t.TempDir())
	sessions := session.NewStore(t.TempDir())
	gwClient := client.NewGatewayClient(gwSrv.URL, 5*time.Second)
	plClient := client.NewPipelineClient(plSrv.URL, 5*time.Second)

	return NewService(canon, sessions, gwClient, plClient), sessions
}

func transcribeHandler(text, language string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(model.TranscriptResult{
			Text:     text,
			Language: language,
			Segments: []model.Segment{{Text: text, Start: 0, End: 1}},
		})
	}
}

func submitJobHandler(jobID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"job_id": jobID, "status": "queued"})
	}
}

func TestIngestFile_TranscribesPersistsAndSubmitsJob(t *testing.T) {
	requireFFmpeg(t)

	svc, sessions := newTestService(t, transcribeHandler("hej där", "sv"), submitJobHandler("job-1"))

	result, err := svc.IngestFile(t.Context(), wavChunk(t, 1600), "upload.wav", "accurate", "meeting", "web")
	require.NoError(t, err)
	assert.Equal(t, "hej där", result.Text)
	assert.Equal(t, "sv", result.Language)
	assert.Equal(t, "job-1", result.JobID)
	assert.Equal(t, "/jobs/job-1", result.PollURL)
	assert.Equal(t, 1, result.SegmentCount)

	got, err := sessions.Get(result.SessionID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "job-1", got["job_id"])
}

func TestRealtimeAccumulator_DropsShortChunks(t *testing.T) {
	svc, _ := newTestService(t, transcribeHandler("hej", "sv"), submitJobHandler("job-2"))
	acc := svc.NewRealtimeAccumulator("fast")

	text, segments, err := acc.AcceptChunk(t.Context(), make([]byte, 100))
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Nil(t, segments)
}

func TestRealtimeAccumulator_FiltersNoiseTranscripts(t *testing.T) {
	svc, _ := newTestService(t, transcribeHandler("...", "sv"), submitJobHandler("job-3"))
	acc := svc.NewRealtimeAccumulator("fast")

	text, segments, err := acc.AcceptChunk(t.Context(), make([]byte, 1000))
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Nil(t, segments)
}

func TestRealtimeAccumulator_AcceptsAndAccumulatesText(t *testing.T) {
	svc, _ := newTestService(t, transcribeHandler("hej där", "sv"), submitJobHandler("job-4"))
	acc := svc.NewRealtimeAccumulator("fast")

	text, segments, err := acc.AcceptChunk(t.Context(), make([]byte, 1000))
	require.NoError(t, err)
	assert.Equal(t, "hej där", text)
	assert.Len(t, segments, 1)
}

func TestRealtimeAccumulator_FinalizeNoChunksReturnsEmptySessionID(t *testing.T) {
	svc, _ := newTestService(t, transcribeHandler("hej", "sv"), submitJobHandler("job-5"))
	acc := svc.NewRealtimeAccumulator("fast")

	sessionID, err := acc.Finalize(t.Context(), "raw")
	require.NoError(t, err)
	assert.Empty(t, sessionID)
}

func TestRealtimeAccumulator_FinalizePersistsSessionAndSubmitsJob(t *testing.T) {
	requireFFmpeg(t)

	svc, sessions := newTestService(t, transcribeHandler("hej där", "sv"), submitJobHandler("job-6"))
	acc := svc.NewRealtimeAccumulator("fast")

	_, _, err := acc.AcceptChunk(t.Context(), wavChunk(t, 1000))
	require.NoError(t, err)

	sessionID, err := acc.Finalize(t.Context(), "raw")
	require.NoError(t, err)
	require.NotEmpty(t, sessionID)

	got, err := sessions.Get(sessionID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "job-6", got["job_id"])
}

func TestReinterpret_SubmitsExistingSegmentsUnderNewContext(t *testing.T) {
	svc, sessions := newTestService(t, transcribeHandler("hej", "sv"), submitJobHandler("job-7"))

	meta := model.SessionMetadata{
		SessionID: "sess-x",
		Segments:  []model.Segment{{Text: "hej", Start: 0, End: 1}},
	}
	_, err := sessions.Create(meta)
	require.NoError(t, err)

	jobID, pollURL, err := svc.Reinterpret(t.Context(), "sess-x", "tech_notes")
	require.NoError(t, err)
	assert.Equal(t, "job-7", jobID)
	assert.Equal(t, "/jobs/job-7", pollURL)
}

func TestReinterpret_UnknownSessionErrors(t *testing.T) {
	svc, _ := newTestService(t, transcribeHandler("hej", "sv"), submitJobHandler("job-8"))
	_, _, err := svc.Reinterpret(t.Context(), "does-not-exist", "raw")
	assert.Error(t, err)
}

func TestReinterpret_NoSegmentsErrors(t *testing.T) {
	svc, sessions := newTestService(t, transcribeHandler("hej", "sv"), submitJobHandler("job-9"))
	_, err := sessions.Create(model.SessionMetadata{SessionID: "sess-empty"})
	require.NoError(t, err)

	_, _, err = svc.Reinterpret(t.Context(), "sess-empty", "raw")
	assert.Error(t, err)
}
