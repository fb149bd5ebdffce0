// Package pipeline wires the job store, the bounded-concurrency queue, the
// context-profile registry, and the seven transcript-enrichment stages
// into the single `Runner` that processes a job end to end, replacing the
// original batch worker's runner.py + job_queue.py pair.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"svasr/internal/llm"
	"svasr/internal/model"
	"svasr/internal/pipeline/contextprofiles"
	"svasr/internal/pipeline/diarizer"
	"svasr/internal/pipeline/gatewayclient"
	"svasr/internal/pipeline/jobstore"
	"svasr/internal/pipeline/queue"
	"svasr/internal/pipeline/stages"
	"svasr/pkg/logger"
)

// Config carries every feature flag and tunable the runner consults.
// RetryEnabled, RetryLargeEnabled and LanguageDetectEnabled are pure config
// values, never overridden by a context profile; the summary/pii/diarization/
// text_processing flags are resolved per job against the profile first (see
// effectiveFlag).
type Config struct {
	RetryEnabled         bool
	RetryBeamSize        int
	RetryLargeEnabled    bool
	LanguageDetectEnabled bool
	TextProcessingEnabled bool
	CasingProfile        string
	PIIEnabled           bool
	SummaryEnabled       bool
	DiarizationEnabled   bool

	LLMModel     string
	SessionsDir  string
}

// Runner owns every collaborator needed to carry a job from "pending"
// through every enrichment stage to "completed" or "failed".
type Runner struct {
	cfg       Config
	store     *jobstore.Store
	queue     *queue.Queue
	profiles  *contextprofiles.Registry
	gwClient  *gatewayclient.Client
	diarizer  diarizer.Diarizer
	llm       *llm.Service
	langDet   *stages.LanguageDetector
}

// New builds a Runner from its collaborators. llmSvc may be nil when no LLM
// endpoint is configured; the summary stage is then always skipped.
func New(cfg Config, store *jobstore.Store, q *queue.Queue, profiles *contextprofiles.Registry, gwClient *gatewayclient.Client, d diarizer.Diarizer, llmSvc *llm.Service) *Runner {
	return &Runner{
		cfg:      cfg,
		store:    store,
		queue:    q,
		profiles: profiles,
		gwClient: gwClient,
		diarizer: d,
		llm:      llmSvc,
		langDet:  stages.NewLanguageDetector(),
	}
}

// Submit persists a new job row in "pending" and enqueues it for
// processing, setting status to "queued" before the item ever reaches the
// dispatcher so a racing GET /jobs/{id} never observes a gap.
func (r *Runner) Submit(ctx context.Context, input model.JobInput) (string, error) {
	raw, err := input.Marshal()
	if err != nil {
		return "", fmt.Errorf("marshal job input: %w", err)
	}

	id, err := r.store.Create(string(raw))
	if err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}

	if err := r.store.Update(id, jobstore.Update{
		Status:      strp(string(model.JobQueued)),
		CurrentStep: strp(model.StepQueued),
	}); err != nil {
		return "", fmt.Errorf("mark job queued: %w", err)
	}

	r.queue.Enqueue(queue.Item{
		JobID: id,
		Run: func(ctx context.Context) {
			r.run(ctx, id, input)
		},
	})

	return id, nil
}

// run executes every stage in sequence for one job, persisting current_step
// as it goes and marking the job completed or failed at the end.
func (r *Runner) run(ctx context.Context, jobID string, input model.JobInput) {
	if err := r.store.Update(jobID, jobstore.Update{
		Status:      strp(string(model.JobRunning)),
		CurrentStep: strp(model.StepStarting),
	}); err != nil {
		logger.Error("failed to mark job running", "job_id", jobID, "error", err)
	}

	result, err := r.process(ctx, jobID, input)
	if err != nil {
		logger.Error("job failed", "job_id", jobID, "error", err)
		_ = r.store.Update(jobID, jobstore.Update{
			Status: strp(string(model.JobFailed)),
			Error:  strp(err.Error()),
		})
		if input.SessionID != "" {
			r.markSessionFailed(input.SessionID, err)
		}
		return
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		logger.Error("failed to marshal job result", "job_id", jobID, "error", err)
		_ = r.store.Update(jobID, jobstore.Update{Status: strp(string(model.JobFailed)), Error: strp(err.Error())})
		return
	}

	// Session artifacts must land on disk before status flips to completed,
	// so a poller that observes "completed" is guaranteed to find them.
	if input.SessionID != "" {
		r.writeSessionOutputs(jobID, input, result)
	}

	if err := r.store.Update(jobID, jobstore.Update{
		Status:      strp(string(model.JobCompleted)),
		CurrentStep: strp(model.StepDone),
		ResultData:  strp(string(resultJSON)),
	}); err != nil {
		logger.Error("failed to mark job completed", "job_id", jobID, "error", err)
	}
}

// process runs the seven stages in the exact order the original batch
// worker's runner does, honoring which flags are profile-overridable and
// which are pure config.
func (r *Runner) process(ctx context.Context, jobID string, input model.JobInput) (*model.InterpretationResult, error) {
	profile, hasProfile := r.resolveProfile(input.ContextProfile)

	segments := input.Segments

	r.setStep(jobID, model.StepConfidence)
	segments = stages.Confidence(segments)

	if r.cfg.RetryEnabled {
		r.setStep(jobID, model.StepRetry)
		if r.cfg.RetryLargeEnabled {
			segments = stages.RetryLowConfidenceWithLarge(ctx, segments, input.AudioBase64, r.gwClient, r.cfg.RetryBeamSize)
		} else {
			segments = stages.RetryLowConfidence(ctx, segments, input.AudioBase64, r.gwClient, r.cfg.RetryBeamSize)
		}
	}

	if r.effectiveFlag(hasProfile, profile.Diarization, r.cfg.DiarizationEnabled) {
		r.setStep(jobID, model.StepDiarization)
		segments = stages.Diarize(ctx, segments, input.AudioPath, r.diarizer)
	}

	if r.cfg.LanguageDetectEnabled {
		r.setStep(jobID, model.StepLanguageDetect)
		segments = r.langDet.DetectSegmentLanguages(segments, input.Language)
	}

	casing := r.cfg.CasingProfile
	if hasProfile && profile.Casing != "" {
		casing = profile.Casing
	}
	if r.effectiveFlag(hasProfile, profile.TextProcessing, r.cfg.TextProcessingEnabled) {
		r.setStep(jobID, model.StepTextProcessing)
		segments = stages.ProcessText(segments, casing)
	}

	if r.effectiveFlag(hasProfile, profile.PII, r.cfg.PIIEnabled) {
		r.setStep(jobID, model.StepPIIFlagging)
		segments = stages.FlagPII(segments)
	}

	result := &model.InterpretationResult{
		Language:       input.Language,
		ContextProfile: input.ContextProfile,
		Segments:       segments,
	}

	if r.llm != nil && r.effectiveFlag(hasProfile, profile.Summary, r.cfg.SummaryEnabled) {
		r.setStep(jobID, model.StepSummary)
		result.Summary = stages.GenerateSummary(ctx, segments, r.llm, r.cfg.LLMModel, profile.PromptTemplate)
	}

	return result, nil
}

// effectiveFlag applies the profile's explicit value when a profile is
// present, else falls back to the config default. Only summary, pii,
// diarization and text_processing are profile-overridable; retry_enabled
// and language_detect_enabled are always pure config and never call this.
func (r *Runner) effectiveFlag(hasProfile bool, profileValue, configDefault bool) bool {
	if hasProfile {
		return profileValue
	}
	return configDefault
}

func (r *Runner) resolveProfile(name string) (model.ContextProfile, bool) {
	if name == "" {
		return model.ContextProfile{}, false
	}
	p, ok := r.profiles.Get(name)
	if !ok {
		logger.Warn("unknown context profile, using config defaults", "profile", name)
		return model.ContextProfile{}, false
	}
	return p, true
}

func (r *Runner) setStep(jobID, step string) {
	if err := r.store.SetStep(jobID, step); err != nil {
		logger.Warn("failed to persist current_step", "job_id", jobID, "step", step, "error", err)
	}
}

// writeSessionOutputs writes the result into the session directory, as
// interpreted_{context}.json when the job names a context profile and as
// processed.json otherwise, and merges job_id/processing_status/
// processed_at into session.json, matching the original runner's
// side-effects for session-linked jobs.
func (r *Runner) writeSessionOutputs(jobID string, input model.JobInput, result *model.InterpretationResult) {
	sessionDir := filepath.Join(r.cfg.SessionsDir, input.SessionID)
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		logger.Error("failed to create session dir", "session_id", input.SessionID, "error", err)
		return
	}

	raw, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.Error("failed to marshal interpretation result", "session_id", input.SessionID, "error", err)
		return
	}

	outputName := "processed.json"
	if input.ContextProfile != "" {
		outputName = fmt.Sprintf("interpreted_%s.json", input.ContextProfile)
	}
	if err := os.WriteFile(filepath.Join(sessionDir, outputName), raw, 0o644); err != nil {
		logger.Error("failed to write interpretation output", "session_id", input.SessionID, "error", err)
		return
	}

	r.mergeSessionMetadata(input.SessionID, func(meta map[string]interface{}) {
		meta["job_id"] = jobID
		meta["processing_status"] = string(model.JobCompleted)
		meta["processed_at"] = time.Now().UTC().Format(time.RFC3339)
	})
}

func (r *Runner) markSessionFailed(sessionID string, procErr error) {
	r.mergeSessionMetadata(sessionID, func(meta map[string]interface{}) {
		meta["processing_status"] = string(model.JobFailed)
		meta["processing_error"] = procErr.Error()
	})
}

// mergeSessionMetadata reads session.json as a generic map, applies mutate,
// and writes it back, avoiding a round-trip through model.SessionMetadata
// that would clobber fields this package doesn't own.
func (r *Runner) mergeSessionMetadata(sessionID string, mutate func(map[string]interface{})) {
	path := filepath.Join(r.cfg.SessionsDir, sessionID, "session.json")
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("failed to read session.json for merge", "session_id", sessionID, "error", err)
		return
	}

	var meta map[string]interface{}
	if err := json.Unmarshal(data, &meta); err != nil {
		logger.Warn("failed to parse session.json for merge", "session_id", sessionID, "error", err)
		return
	}

	mutate(meta)

	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		logger.Warn("failed to marshal merged session.json", "session_id", sessionID, "error", err)
		return
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		logger.Warn("failed to write merged session.json", "session_id", sessionID, "error", err)
	}
}

func strp(s string) *string { return &s }
