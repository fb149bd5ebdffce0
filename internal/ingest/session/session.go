// Package session persists and retrieves ingest sessions: the
// {UTC-timestamp}_{profile} directories holding audio.wav, session.json,
// processed.json and interpreted_*.json. Grounded on
// original_source/backend/services/session_storage.py, with the Ingest
// Orchestrator's writes restricted to session.json's base metadata keys —
// processed/interpreted artifacts are owned exclusively by the Pipeline
// Runner.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"svasr/internal/model"
	"svasr/pkg/logger"
)

// Store reads and writes sessions under a configured root directory.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

// NewSessionID derives the deterministic session directory name, sampling
// the timestamp once per session.
func NewSessionID(profile string, now time.Time) string {
	return fmt.Sprintf("%s_%s", now.UTC().Format("2006-01-02_15-04-05"), profile)
}

// Dir returns the absolute path of a session's directory.
func (s *Store) Dir(sessionID string) string {
	return filepath.Join(s.root, sessionID)
}

// Create writes session.json and returns the session directory path. The
// caller has already produced audio.wav at Dir(sessionID)/audio.wav.
func (s *Store) Create(meta model.SessionMetadata) (string, error) {
	dir := s.Dir(meta.SessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create session dir: %w", err)
	}

	if err := s.writeMetadata(meta.SessionID, meta); err != nil {
		return "", err
	}
	return dir, nil
}

func (s *Store) writeMetadata(sessionID string, meta interface{}) error {
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session metadata: %w", err)
	}
	path := filepath.Join(s.Dir(sessionID), "session.json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write session metadata: %w", err)
	}
	return os.Rename(tmp, path)
}

// Get reads session.json and merges in processed.json and any
// interpreted_*.json found alongside it, mirroring get_session's response
// shape.
func (s *Store) Get(sessionID string) (map[string]interface{}, error) {
	path := filepath.Join(s.Dir(sessionID), "session.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse session metadata: %w", err)
	}

	if processed, ok := s.readJSONIfExists(sessionID, "processed.json"); ok {
		out["processed"] = processed
	}

	interpretations := s.Interpretations(sessionID)
	if len(interpretations) > 0 {
		out["interpretations"] = interpretations
	}

	return out, nil
}

func (s *Store) readJSONIfExists(sessionID, filename string) (interface{}, bool) {
	data, err := os.ReadFile(filepath.Join(s.Dir(sessionID), filename))
	if err != nil {
		return nil, false
	}
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, false
	}
	return v, true
}

// Interpretations discovers every interpreted_*.json file for a session,
// keyed by context name.
func (s *Store) Interpretations(sessionID string) map[string]interface{} {
	dir := s.Dir(sessionID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	out := map[string]interface{}{}
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "interpreted_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		context := strings.TrimSuffix(strings.TrimPrefix(name, "interpreted_"), ".json")
		if v, ok := s.readJSONIfExists(sessionID, name); ok {
			out[context] = v
		}
	}
	return out
}

// summaryEntry is the trimmed row List returns for session listings.
type summaryEntry struct {
	SessionID        string  `json:"session_id"`
	Profile          string  `json:"profile"`
	StartedAt        string  `json:"started_at"`
	Duration         float64 `json:"duration"`
	Text             string  `json:"text"`
	Chunks           int     `json:"chunks"`
	JobID            string  `json:"job_id,omitempty"`
	ProcessingStatus string  `json:"processing_status,omitempty"`
}

// List returns session summaries, newest first, honoring limit/offset
// (default 50/0, max 200 per the original's pagination contract).
func (s *Store) List(limit, offset int) ([]summaryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	if offset >= len(names) {
		return []summaryEntry{}, nil
	}
	end := offset + limit
	if end > len(names) {
		end = len(names)
	}

	out := make([]summaryEntry, 0, end-offset)
	for _, name := range names[offset:end] {
		var meta model.SessionMetadata
		data, err := os.ReadFile(filepath.Join(s.root, name, "session.json"))
		if err != nil {
			continue
		}
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		text := meta.Text
		if len(text) > 200 {
			text = text[:200]
		}
		out = append(out, summaryEntry{
			SessionID:        meta.SessionID,
			Profile:          meta.Profile,
			StartedAt:        meta.StartedAt,
			Duration:         meta.Duration,
			Text:             text,
			Chunks:           meta.Chunks,
			JobID:            meta.JobID,
			ProcessingStatus: meta.ProcessingStatus,
		})
	}
	return out, nil
}

// UpdateMetadata merges updates into an existing session.json.
func (s *Store) UpdateMetadata(sessionID string, updates map[string]interface{}) error {
	path := filepath.Join(s.Dir(sessionID), "session.json")
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("cannot update metadata, session not found", "session_id", sessionID)
		return err
	}

	var meta map[string]interface{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return err
	}
	for k, v := range updates {
		meta[k] = v
	}

	return s.writeMetadata(sessionID, meta)
}

// AudioPath returns the session's canonical WAV path if present.
func (s *Store) AudioPath(sessionID string) (string, bool) {
	p := filepath.Join(s.Dir(sessionID), "audio.wav")
	if _, err := os.Stat(p); err != nil {
		return "", false
	}
	return p, true
}
