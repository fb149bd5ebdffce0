// Package gateway implements the Transcription Gateway: dual-backend
// dispatch, the confidence heuristic, noise filtering, and the targeted
// retry operation, behind one profile-driven contract.
package gateway

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"svasr/internal/gateway/adapters"
	"svasr/internal/model"
	"svasr/pkg/logger"
	"svasr/pkg/wav"
)

// Config holds the gateway's tunables, sourced from environment/config.
type Config struct {
	PrimaryURL     string
	AcceleratorURL string
	HTTPTimeout    time.Duration
	TempDir        string
}

// Service is the Gateway's in-process implementation, shared by the HTTP
// and WebSocket handlers.
type Service struct {
	cfg         Config
	primary     *adapters.PrimaryAdapter
	accelerator *adapters.AcceleratorAdapter
	cache       *ModelCache

	acceleratorAvailable bool
	acceleratorProbed    bool
}

func NewService(cfg Config) *Service {
	return &Service{
		cfg:         cfg,
		primary:     adapters.NewPrimaryAdapter(cfg.PrimaryURL, cfg.HTTPTimeout),
		accelerator: adapters.NewAcceleratorAdapter(cfg.AcceleratorURL, cfg.HTTPTimeout),
		cache:       NewModelCache(),
	}
}

// probeAccelerator runs the capability probe exactly once; subsequent calls
// reuse the cached result so a transient failure cannot later be confused
// with "still loading".
func (s *Service) probeAccelerator(ctx context.Context) bool {
	if s.acceleratorProbed {
		return s.acceleratorAvailable
	}
	s.acceleratorAvailable = s.cfg.AcceleratorURL != "" && s.accelerator.Probe(ctx)
	s.acceleratorProbed = true
	return s.acceleratorAvailable
}

// resolveBackend returns the backend tag a profile will actually run on,
// falling back transparently from accelerator to primary when unavailable.
func (s *Service) resolveBackend(ctx context.Context, profile model.Profile) string {
	if profile.Backend == model.BackendAccelerator && !s.probeAccelerator(ctx) {
		logger.Warn("accelerator backend unavailable, falling back to primary", "profile", profile.Name)
		return model.BackendPrimary
	}
	return profile.Backend
}

// TranscribeRequest is the input to Transcribe.
type TranscribeRequest struct {
	AudioPath         string
	ProfileName       string
	Language          string
	IncludeTimestamps bool
	JobID             string
}

// Transcribe dispatches to the right backend per profile, derives
// confidence flags, and (for the accelerator backend, which lacks VAD)
// filters noise segments.
func (s *Service) Transcribe(ctx context.Context, req TranscribeRequest) (*model.TranscriptResult, error) {
	profile, fellBackToDefault := model.ResolveProfile(req.ProfileName)
	if fellBackToDefault && req.ProfileName != "" {
		logger.Warn("unknown profile, falling back to default", "requested", req.ProfileName, "default", model.DefaultProfile)
	}

	backend := s.resolveBackend(ctx, profile)
	language := req.Language
	if language == "" {
		language = "sv"
	}

	logDir := s.jobLogDir(req.JobID)
	start := time.Now()

	var result *model.TranscriptResult
	var err error
	adapterReq := adapters.Request{
		AudioPath: req.AudioPath,
		Language:  language,
		Model:     profile.Model,
		BeamSize:  profile.BeamSize,
		JobID:     req.JobID,
		LogDir:    logDir,
	}

	if err := s.cache.EnsureLoaded(backendModelKey(backend, profile.Model), func() error { return nil }); err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}

	switch backend {
	case model.BackendAccelerator:
		result, err = s.accelerator.Transcribe(ctx, adapterReq)
	default:
		result, err = s.primary.Transcribe(ctx, adapterReq)
	}
	if err != nil {
		return nil, err
	}

	ApplyConfidence(result.Segments)
	if backend == model.BackendAccelerator {
		result.Segments = FilterNoise(result.Segments)
	}
	RoundSegments(result.Segments)

	result.Backend = backend
	result.Profile = profile.Name
	result.InferenceTime = round(time.Since(start).Seconds(), 4)
	if len(result.Segments) > 0 {
		d := result.Segments[len(result.Segments)-1].End
		result.Duration = &d
	}

	return result, nil
}

// RetryRequest is the input to Retry.
type RetryRequest struct {
	AudioBase64 string
	Start       float64
	End         float64
	BeamSize    int
	Model       string
	Language    string
	JobID       string
}

// Retry always uses the primary backend: it runs the requested model at the
// requested beam width over the entire blob (no pre-slicing), then keeps
// only segments whose interval overlaps [start, end].
func (s *Service) Retry(ctx context.Context, req RetryRequest) (*model.RetryResult, error) {
	raw, err := base64.StdEncoding.DecodeString(req.AudioBase64)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 audio: %w", err)
	}

	tmpFile, err := os.CreateTemp(s.cfg.TempDir, "retry-*.wav")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmpFile.Name())
	defer tmpFile.Close()
	if _, err := tmpFile.Write(raw); err != nil {
		return nil, fmt.Errorf("write temp audio: %w", err)
	}
	tmpFile.Close()

	language := req.Language
	if language == "" {
		language = "sv"
	}

	result, err := s.primary.Transcribe(ctx, adapters.Request{
		AudioPath: tmpFile.Name(),
		Language:  language,
		Model:     req.Model,
		BeamSize:  req.BeamSize,
		JobID:     req.JobID,
		LogDir:    s.jobLogDir(req.JobID),
	})
	if err != nil {
		return nil, err
	}

	ApplyConfidence(result.Segments)
	RoundSegments(result.Segments)

	var kept []model.Segment
	for _, seg := range result.Segments {
		if seg.End < req.Start {
			continue
		}
		if seg.Start > req.End {
			break
		}
		kept = append(kept, seg)
	}

	return &model.RetryResult{
		Segments:            kept,
		Language:             result.Language,
		LanguageProbability:  languageProbabilityOf(result),
		Model:                req.Model,
		BeamSize:             req.BeamSize,
	}, nil
}

func languageProbabilityOf(r *model.TranscriptResult) float64 {
	if r.LanguageProbability != nil {
		return *r.LanguageProbability
	}
	return 0
}

// Warmup forces model materialization by transcribing a synthesized 100 ms
// silent WAV. For accelerator backends this is the only way to force actual
// graph construction ahead of the first real request.
func (s *Service) Warmup(ctx context.Context, profileName string) model.WarmupResult {
	profile, _ := model.ResolveProfile(profileName)
	backend := s.resolveBackend(ctx, profile)

	silentPath, err := wav.SilentWAVPath(s.cfg.TempDir)
	if err != nil {
		return model.WarmupResult{Status: "error", Detail: fmt.Sprintf("failed to generate warmup audio: %v", err)}
	}

	start := time.Now()
	var transcribeErr error
	switch backend {
	case model.BackendAccelerator:
		_, transcribeErr = s.accelerator.Transcribe(ctx, adapters.Request{AudioPath: silentPath, Language: "sv"})
	default:
		_, transcribeErr = s.primary.Transcribe(ctx, adapters.Request{AudioPath: silentPath, Language: "sv"})
	}

	if transcribeErr != nil {
		return model.WarmupResult{
			Status:  "error",
			Profile: profile.Name,
			Detail:  fmt.Sprintf("modell saknas: %v", transcribeErr),
		}
	}

	return model.WarmupResult{
		Status:   "ok",
		Profile:  profile.Name,
		Model:    profile.Model,
		Backend:  backend,
		LoadTime: round(time.Since(start).Seconds(), 4),
	}
}

func (s *Service) jobLogDir(jobID string) string {
	if jobID == "" || s.cfg.TempDir == "" {
		return ""
	}
	dir := filepath.Join(s.cfg.TempDir, "jobs", jobID)
	_ = os.MkdirAll(dir, 0755)
	return dir
}

func backendModelKey(backend, modelID string) string {
	return backend + ":" + modelID
}
