// Package ingest implements the Ingest Orchestrator's core operations:
// turning a file upload or a live chunk stream into a persisted session
// and a submitted pipeline job, plus re-interpretation of an existing
// session under a different context profile. Grounded on
// original_source/backend/services/ingest_service.py.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"svasr/internal/ingest/audio"
	"svasr/internal/ingest/client"
	"svasr/internal/ingest/session"
	"svasr/internal/model"
	"svasr/pkg/logger"
)

// ErrSessionNotFound and ErrSessionNoSegments let callers (the HTTP layer)
// distinguish "session unknown" (404) from "session has nothing to
// reinterpret" (400) rather than collapsing both into a generic error.
var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionNoSegments = errors.New("Sessionen har inga segment")
)

// minChunkBytes is the realtime short-chunk floor: blobs smaller than this
// are dropped before transcription, too small to carry meaningful audio.
const minChunkBytes = 500

// noiseRe matches text made up entirely of punctuation/whitespace — a
// transcript consisting only of this is treated as ASR noise and neither
// surfaced to the caller nor buffered as a transcript.
var noiseRe = regexp.MustCompile(`^[\s.!?,;:\-—–…'"«»()\[\]]*$`)

// Service wires audio canonicalization, session persistence, and the
// Gateway/Pipeline Runner HTTP clients into the ingest operations.
type Service struct {
	canon     *audio.Canonicalizer
	sessions  *session.Store
	gateway   *client.GatewayClient
	pipeline  *client.PipelineClient
}

func NewService(canon *audio.Canonicalizer, sessions *session.Store, gw *client.GatewayClient, pl *client.PipelineClient) *Service {
	return &Service{canon: canon, sessions: sessions, gateway: gw, pipeline: pl}
}

// IngestResult is the response shape of IngestFile/FinalizeRealtime.
type IngestResult struct {
	SessionID    string `json:"session_id"`
	JobID        string `json:"job_id,omitempty"`
	PollURL      string `json:"poll_url,omitempty"`
	Text         string `json:"text"`
	Language     string `json:"language"`
	SegmentCount int    `json:"segment_count"`
}

// IngestFile transcribes a single uploaded file, persists it as a session,
// and submits a pipeline job over the raw segments.
func (s *Service) IngestFile(ctx context.Context, audioBytes []byte, filename, profile, contextProfile, source string) (*IngestResult, error) {
	result, err := s.gateway.Transcribe(ctx, audioBytes, filename, profile, "sv")
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}

	now := time.Now().UTC()
	startedAt := now.Format(time.RFC3339)
	sessionID := session.NewSessionID(profile, now)

	dir, err := s.persistAudioAndMetadata(ctx, sessionID, [][]byte{audioBytes}, profile, startedAt, startedAt, result.Text, result.Segments, source)
	if err != nil {
		return nil, err
	}
	_ = dir

	jobID, pollURL := s.submitJob(ctx, sessionID, result.Segments, result.Language, filepathAudioWAV(s.sessions, sessionID), contextProfile)

	return &IngestResult{
		SessionID:    sessionID,
		JobID:        jobID,
		PollURL:      pollURL,
		Text:         result.Text,
		Language:     result.Language,
		SegmentCount: len(result.Segments),
	}, nil
}

// RealtimeAccumulator buffers chunks and transcripts for one live session,
// transcribing each accepted chunk individually as it arrives.
type RealtimeAccumulator struct {
	svc       *Service
	profile   string
	startedAt time.Time
	chunks    [][]byte
	segments  []model.Segment
	texts     []string
}

func (s *Service) NewRealtimeAccumulator(profile string) *RealtimeAccumulator {
	return &RealtimeAccumulator{svc: s, profile: profile, startedAt: time.Now().UTC()}
}

// AcceptChunk drops chunks under 500 bytes; otherwise buffers the chunk and
// transcribes it immediately, returning the transcript text to send to the
// caller (empty string if the chunk was dropped or the transcript is noise).
func (r *RealtimeAccumulator) AcceptChunk(ctx context.Context, data []byte) (string, []model.Segment, error) {
	if len(data) < minChunkBytes {
		return "", nil, nil
	}

	r.chunks = append(r.chunks, data)

	result, err := r.svc.gateway.Transcribe(ctx, data, "chunk.wav", r.profile, "sv")
	if err != nil {
		return "", nil, fmt.Errorf("transcribe chunk: %w", err)
	}

	text := strings.TrimSpace(result.Text)
	if text == "" || noiseRe.MatchString(text) {
		return "", nil, nil
	}

	r.texts = append(r.texts, text)
	r.segments = append(r.segments, result.Segments...)
	return text, result.Segments, nil
}

// Finalize persists the accumulated chunks as a session and submits a
// pipeline job, returning the session ID, or "" if no chunks were ever
// accepted.
func (r *RealtimeAccumulator) Finalize(ctx context.Context, contextProfile string) (string, error) {
	if len(r.chunks) == 0 {
		logger.Info("no audio chunks accumulated, skipping session save")
		return "", nil
	}

	endedAt := time.Now().UTC().Format(time.RFC3339)
	startedAt := r.startedAt.Format(time.RFC3339)
	sessionID := session.NewSessionID(r.profile, r.startedAt)

	fullText := strings.Join(r.texts, " ")
	if _, err := r.svc.persistAudioAndMetadata(ctx, sessionID, r.chunks, r.profile, startedAt, endedAt, fullText, r.segments, ""); err != nil {
		return "", err
	}

	jobID, _ := r.svc.submitJob(ctx, sessionID, r.segments, "sv", filepathAudioWAV(r.svc.sessions, sessionID), contextProfile)
	if jobID != "" {
		logger.Info("post-processing job submitted for realtime session", "job_id", jobID, "session_id", sessionID)
	}
	return sessionID, nil
}

// Reinterpret resubmits an existing session's raw segments under a new
// context profile, without re-reading the audio (unless a future
// diarization-enabled profile needs it, which the pipeline runner itself
// decides from audio_path).
func (s *Service) Reinterpret(ctx context.Context, sessionID, contextProfile string) (string, string, error) {
	data, err := s.sessions.Get(sessionID)
	if err != nil {
		return "", "", err
	}
	if data == nil {
		return "", "", fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	segmentsRaw, _ := data["segments"]
	segments, err := coerceSegments(segmentsRaw)
	if err != nil || len(segments) == 0 {
		return "", "", ErrSessionNoSegments
	}

	language, _ := data["text"].(string)
	_ = language

	audioPath, _ := s.sessions.AudioPath(sessionID)

	jobID, pollURL := s.submitJob(ctx, sessionID, segments, "sv", audioPath, contextProfile)
	return jobID, pollURL, nil
}

func (s *Service) persistAudioAndMetadata(ctx context.Context, sessionID string, chunks [][]byte, profile, startedAt, endedAt, text string, segments []model.Segment, source string) (string, error) {
	wavPath := fmt.Sprintf("%s/audio.wav", s.sessions.Dir(sessionID))
	if err := s.canon.Concatenate(ctx, chunks, wavPath); err != nil {
		return "", fmt.Errorf("canonicalize audio: %w", err)
	}

	duration := audio.ProbeDuration(ctx, wavPath)

	meta := model.SessionMetadata{
		SessionID:   sessionID,
		Profile:     profile,
		StartedAt:   startedAt,
		EndedAt:     endedAt,
		Duration:    duration,
		Chunks:      len(chunks),
		Text:        text,
		Segments:    segments,
		AudioFile:   "audio.wav",
		AudioFormat: "wav",
		SampleRate:  16000,
		Channels:    1,
		Source:      source,
	}

	dir, err := s.sessions.Create(meta)
	if err != nil {
		return "", fmt.Errorf("persist session: %w", err)
	}
	return dir, nil
}

func (s *Service) submitJob(ctx context.Context, sessionID string, segments []model.Segment, language, audioPath, contextProfile string) (string, string) {
	input := model.JobInput{
		Segments:       segments,
		Language:       language,
		AudioPath:      audioPath,
		SessionID:      sessionID,
		ContextProfile: contextProfile,
	}

	jobID, err := s.pipeline.SubmitJob(ctx, input)
	if err != nil {
		logger.Error("failed to submit pipeline job", "session_id", sessionID, "error", err)
		return "", ""
	}

	if err := s.sessions.UpdateMetadata(sessionID, map[string]interface{}{
		"job_id":            jobID,
		"processing_status": "submitted",
	}); err != nil {
		logger.Warn("failed to stamp job_id onto session", "session_id", sessionID, "error", err)
	}

	return jobID, fmt.Sprintf("/jobs/%s", jobID)
}

func filepathAudioWAV(s *session.Store, sessionID string) string {
	p, ok := s.AudioPath(sessionID)
	if !ok {
		return ""
	}
	return p
}

// coerceSegments re-marshals a generic JSON value (as decoded from
// session.json) back into typed segments.
func coerceSegments(v interface{}) ([]model.Segment, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var segments []model.Segment
	if err := json.Unmarshal(raw, &segments); err != nil {
		return nil, err
	}
	return segments, nil
}
