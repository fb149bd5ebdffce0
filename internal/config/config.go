// Package config loads runtime configuration for all three services
// (Gateway, Pipeline Runner, Ingest Orchestrator) from environment
// variables, with an optional .env file loaded first via godotenv and
// every key given a default through viper, mirroring the original batch
// worker's config.py field-by-field.
package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"svasr/pkg/logger"
)

// Config holds every tunable consumed across the three services. Not every
// service reads every field; each cmd/ entry point pulls the subset it
// needs.
type Config struct {
	// Feature flags (pipeline stages).
	FeatureRetry          bool
	RetryBeamSize         int
	FeatureRetryLarge     bool
	FeatureLangDetect     bool
	FeatureTextProcessing bool
	CasingProfile         string
	FeaturePII            bool
	FeatureSummary        bool
	FeatureDiarization    bool

	// Upstream endpoints.
	WhisperAPIURL string
	LLMURL        string
	LLMModel      string
	DiarizerURL   string

	// HTTP client tuning shared by every outbound caller.
	HTTPTimeout      time.Duration
	HTTPRetries      int
	HTTPRetryBackoff time.Duration

	// Pipeline runner concurrency and storage.
	MaxConcurrentJobs int64
	SessionsDir       string
	JobsDBPath        string

	// Context-profile override bundle (fsnotify-watched).
	ContextProfilesPath string

	// Server binding.
	ListenAddr string

	// Logging.
	LogLevel string
	LogJSON  bool
}

// Load reads .env (if present, never required), then environment
// variables, applying the same defaults as the original config.py.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file loaded", "error", err)
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("FEATURE_RETRY", true)
	v.SetDefault("RETRY_BEAM_SIZE", 10)
	v.SetDefault("FEATURE_RETRY_LARGE", false)
	v.SetDefault("FEATURE_LANG_DETECT", true)
	v.SetDefault("FEATURE_TEXT_PROCESSING", true)
	v.SetDefault("CASING_PROFILE", "verbatim")
	v.SetDefault("FEATURE_PII", true)
	v.SetDefault("FEATURE_SUMMARY", false)
	v.SetDefault("FEATURE_DIARIZATION", false)

	v.SetDefault("WHISPER_API_URL", "http://localhost:8123")
	v.SetDefault("LLM_URL", "")
	v.SetDefault("LLM_MODEL", "")
	v.SetDefault("DIARIZER_URL", "")

	v.SetDefault("HTTP_TIMEOUT", 60.0)
	v.SetDefault("HTTP_RETRIES", 3)
	v.SetDefault("HTTP_RETRY_BACKOFF", 1.0)

	v.SetDefault("MAX_CONCURRENT_JOBS", 1)
	v.SetDefault("SESSIONS_DIR", "/app/transcriptions/sessions")
	v.SetDefault("JOBS_DB_PATH", "/app/data/jobs.db")
	v.SetDefault("CONTEXT_PROFILES_PATH", "")

	v.SetDefault("LISTEN_ADDR", ":8000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_JSON", false)

	return &Config{
		FeatureRetry:          v.GetBool("FEATURE_RETRY"),
		RetryBeamSize:         v.GetInt("RETRY_BEAM_SIZE"),
		FeatureRetryLarge:     v.GetBool("FEATURE_RETRY_LARGE"),
		FeatureLangDetect:     v.GetBool("FEATURE_LANG_DETECT"),
		FeatureTextProcessing: v.GetBool("FEATURE_TEXT_PROCESSING"),
		CasingProfile:         v.GetString("CASING_PROFILE"),
		FeaturePII:            v.GetBool("FEATURE_PII"),
		FeatureSummary:        v.GetBool("FEATURE_SUMMARY"),
		FeatureDiarization:    v.GetBool("FEATURE_DIARIZATION"),

		WhisperAPIURL: v.GetString("WHISPER_API_URL"),
		LLMURL:        v.GetString("LLM_URL"),
		LLMModel:      v.GetString("LLM_MODEL"),
		DiarizerURL:   v.GetString("DIARIZER_URL"),

		HTTPTimeout:      time.Duration(v.GetFloat64("HTTP_TIMEOUT") * float64(time.Second)),
		HTTPRetries:      v.GetInt("HTTP_RETRIES"),
		HTTPRetryBackoff: time.Duration(v.GetFloat64("HTTP_RETRY_BACKOFF") * float64(time.Second)),

		MaxConcurrentJobs: v.GetInt64("MAX_CONCURRENT_JOBS"),
		SessionsDir:       v.GetString("SESSIONS_DIR"),
		JobsDBPath:        v.GetString("JOBS_DB_PATH"),

		ContextProfilesPath: v.GetString("CONTEXT_PROFILES_PATH"),

		ListenAddr: v.GetString("LISTEN_ADDR"),
		LogLevel:   v.GetString("LOG_LEVEL"),
		LogJSON:    v.GetBool("LOG_JSON"),
	}
}
