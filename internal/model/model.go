// Package model holds the domain types shared by the Transcription Gateway,
// the Pipeline Runner, and the Ingest Orchestrator: words, segments,
// transcription profiles, context profiles, and session metadata.
package model

import "encoding/json"

// Word is a single word-level alignment within a Segment.
type Word struct {
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Word        string  `json:"word"`
	Probability float64 `json:"probability"`
}

// Segment is a timestamped utterance produced by ASR, progressively
// enriched by pipeline stages. Fields are pointers/omitempty so that
// enrichment only ever adds keys, never removes them, when round-tripped
// through JSON.
type Segment struct {
	Start            float64 `json:"start"`
	End              float64 `json:"end"`
	Text             string  `json:"text"`
	Words            []Word  `json:"words,omitempty"`
	AvgLogprob       float64 `json:"avg_logprob"`
	CompressionRatio float64 `json:"compression_ratio"`
	NoSpeechProb     float64 `json:"no_speech_prob"`
	LowConfidence    bool    `json:"low_confidence"`

	// Enrichment fields added by pipeline stages. Never removed once set.
	DetectedLanguage   *string  `json:"detected_language,omitempty"`
	LanguageConfidence *float64 `json:"language_confidence,omitempty"`
	LanguageSwitch     *bool    `json:"language_switch,omitempty"`

	ProcessedText *string  `json:"processed_text,omitempty"`
	SubtitleLines []string `json:"subtitle_lines,omitempty"`

	PIIFlags []PIIFlag `json:"pii_flags,omitempty"`
	HasPII   *bool     `json:"has_pii,omitempty"`

	SpeakerID *string `json:"speaker_id,omitempty"`

	WordConfidenceAvg  *float64 `json:"word_confidence_avg,omitempty"`
	WordConfidenceMin  *float64 `json:"word_confidence_min,omitempty"`
	LowConfidenceWords []Word   `json:"low_confidence_words,omitempty"`

	Retried    *bool   `json:"retried,omitempty"`
	RetryModel *string `json:"retry_model,omitempty"`

	// Language carries the per-segment language hint a retry response may
	// echo back; distinct from DetectedLanguage, which is the stage-4 output.
	Language *string `json:"language,omitempty"`
}

// PIIFlag is one regex hit from the pii_flagging stage.
type PIIFlag struct {
	Type      string `json:"type"`
	StartChar int    `json:"start_char"`
	EndChar   int    `json:"end_char"`
	Text      string `json:"text"`
}

// Profile is the static configuration identifying a transcription tuple:
// backend, model, compute precision, beam width, chunking hint.
type Profile struct {
	Name       string
	Backend    string // "primary" | "accelerator"
	Model      string
	Precision  string // e.g. "int8", "float16"
	BeamSize   int
	ChunkHint  string
}

const (
	BackendPrimary     = "primary"
	BackendAccelerator = "accelerator"
)

// Recognized profile names.
const (
	ProfileUltraRealtime = "ultra_realtime"
	ProfileFast          = "fast"
	ProfileAccurate      = "accurate"
	ProfileHighestQuality = "highest_quality"
)

// DefaultProfile is used whenever an unknown profile name is requested.
const DefaultProfile = ProfileAccurate

// Profiles is the static table of recognized transcription profiles.
var Profiles = map[string]Profile{
	ProfileUltraRealtime: {
		Name: ProfileUltraRealtime, Backend: BackendAccelerator,
		Model: "KBLab/kb-whisper-tiny", Precision: "float16", BeamSize: 1, ChunkHint: "streaming",
	},
	ProfileFast: {
		Name: ProfileFast, Backend: BackendAccelerator,
		Model: "KBLab/kb-whisper-base", Precision: "float16", BeamSize: 1, ChunkHint: "short",
	},
	ProfileAccurate: {
		Name: ProfileAccurate, Backend: BackendPrimary,
		Model: "KBLab/kb-whisper-medium", Precision: "int8", BeamSize: 5, ChunkHint: "batch",
	},
	ProfileHighestQuality: {
		Name: ProfileHighestQuality, Backend: BackendPrimary,
		Model: "KBLab/kb-whisper-large", Precision: "int8", BeamSize: 10, ChunkHint: "batch",
	},
}

// ResolveProfile returns the named profile, or the default profile if the
// name is unrecognized, plus a bool reporting whether a fallback occurred.
func ResolveProfile(name string) (Profile, bool) {
	if p, ok := Profiles[name]; ok {
		return p, false
	}
	return Profiles[DefaultProfile], true
}

// ContextProfile is the interpretation-variant configuration: which pipeline
// stages run and which summary prompt template is used.
type ContextProfile struct {
	Name            string `json:"name" yaml:"-"`
	Label           string `json:"label" yaml:"label"`
	Description     string `json:"description" yaml:"description"`
	Summary         bool   `json:"summary" yaml:"summary"`
	PII             bool   `json:"pii" yaml:"pii"`
	Diarization     bool   `json:"diarization" yaml:"diarization"`
	TextProcessing  bool   `json:"text_processing" yaml:"text_processing"`
	Casing          string `json:"casing,omitempty" yaml:"casing,omitempty"`
	PromptTemplate  string `json:"-" yaml:"prompt,omitempty"`
}

// Casing profiles recognized by the text_processing stage.
const (
	CasingVerbatim         = "verbatim"
	CasingMeetingNotes     = "meeting_notes"
	CasingSubtitleFriendly = "subtitle_friendly"
)

// Recognized context-profile names.
const (
	ContextRaw        = "raw"
	ContextMeeting     = "meeting"
	ContextBrainstorm  = "brainstorm"
	ContextJournal     = "journal"
	ContextTechNotes   = "tech_notes"
)

// TranscriptResult is the Gateway's response shape for transcribe/retry.
type TranscriptResult struct {
	Text                string    `json:"text"`
	Language            string    `json:"language,omitempty"`
	LanguageProbability *float64  `json:"language_probability,omitempty"`
	Segments            []Segment `json:"segments"`
	Duration            *float64  `json:"duration,omitempty"`
	Backend             string    `json:"backend,omitempty"`
	Profile             string    `json:"profile,omitempty"`
	InferenceTime       float64   `json:"inference_time,omitempty"`
}

// RetryResult is the response shape of transcribe_retry.
type RetryResult struct {
	Segments  []Segment `json:"segments"`
	Language  string    `json:"language"`
	LanguageProbability float64 `json:"language_probability"`
	Model     string    `json:"model"`
	BeamSize  int       `json:"beam_size"`
}

// WarmupResult is the response shape of warmup.
type WarmupResult struct {
	Status    string  `json:"status"`
	Profile   string  `json:"profile,omitempty"`
	Model     string  `json:"model,omitempty"`
	Backend   string  `json:"backend,omitempty"`
	LoadTime  float64 `json:"load_time,omitempty"`
	Detail    string  `json:"detail,omitempty"`
}

// SessionMetadata is the persisted content of session.json.
type SessionMetadata struct {
	SessionID   string    `json:"session_id"`
	Profile     string    `json:"profile"`
	StartedAt   string    `json:"started_at"`
	EndedAt     string    `json:"ended_at"`
	Duration    float64   `json:"duration"`
	Chunks      int       `json:"chunks"`
	Text        string    `json:"text"`
	Segments    []Segment `json:"segments"`
	AudioFile   string    `json:"audio_file"`
	AudioFormat string    `json:"audio_format"`
	SampleRate  int       `json:"sample_rate"`
	Channels    int       `json:"channels"`

	// Pipeline tracking fields, owned exclusively by the Pipeline Runner.
	JobID             string `json:"job_id,omitempty"`
	ProcessingStatus  string `json:"processing_status,omitempty"`
	ProcessedAt       string `json:"processed_at,omitempty"`
	ProcessingError   string `json:"processing_error,omitempty"`

	// Source is supplemented from original_source's ingest service, recording
	// which client channel submitted the session (web, cli, desktop, api).
	Source string `json:"source,omitempty"`
}

// Summary is the LLM output shape for processed/interpreted results.
type Summary struct {
	Summary     string   `json:"summary"`
	ActionItems []string `json:"action_items"`
}

// InterpretationResult is the content of processed.json / interpreted_*.json.
type InterpretationResult struct {
	Language       string    `json:"language"`
	ContextProfile string    `json:"context_profile,omitempty"`
	Segments       []Segment `json:"segments"`
	Summary        *Summary  `json:"summary,omitempty"`
}

// JobStatus enumerates the Job lifecycle of spec.md §3.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobQueued     JobStatus = "queued"
	JobRunning    JobStatus = "running"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Pipeline stage names used as Job.current_step.
const (
	StepInit            = "init"
	StepConfidence      = "confidence"
	StepRetry           = "retry"
	StepDiarization     = "diarization"
	StepLanguageDetect  = "language_detect"
	StepTextProcessing  = "text_processing"
	StepPIIFlagging     = "pii_flagging"
	StepSummary         = "summary"
	StepDone            = "done"
	StepQueued          = "queued"
	StepStarting        = "starting"
)

// JobInput is the payload a caller submits to POST /jobs.
type JobInput struct {
	Segments       []Segment `json:"segments"`
	Language       string    `json:"language"`
	AudioBase64    string    `json:"audio_base64,omitempty"`
	AudioPath      string    `json:"audio_path,omitempty"`
	SessionID      string    `json:"session_id,omitempty"`
	ContextProfile string    `json:"context_profile,omitempty"`
}

// Marshal encodes JobInput as plain JSON, the form stored as the job's input
// blob in the jobstore and sent over HTTP by the ingest client.
func (j JobInput) Marshal() ([]byte, error) { return json.Marshal(j) }
