// Package contextprofiles holds the five interpretation-variant
// configurations (raw, meeting, brainstorm, journal, tech_notes), each
// naming which pipeline stages run and what summary prompt to use.
//
// The original batch worker hardcodes this table as a Python dict literal.
// Here it's compiled in as defaults, but an operator can override labels,
// descriptions, flags and prompts via a watched YAML file without a
// redeploy.
package contextprofiles

import (
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"svasr/internal/model"
	"svasr/pkg/logger"
)

func defaultProfiles() map[string]model.ContextProfile {
	return map[string]model.ContextProfile{
		model.ContextRaw: {
			Name: model.ContextRaw, Label: "Rätt transkript",
			Description: "Ingen efterbearbetning, rätt text från ASR",
		},
		model.ContextMeeting: {
			Name: model.ContextMeeting, Label: "Möte",
			Description:    "Mötesanteckningar med beslut och actions",
			Summary:        true,
			PII:            true,
			Diarization:    true,
			TextProcessing: true,
			Casing:         model.CasingMeetingNotes,
			PromptTemplate: "Du är en assistent som sammanfattar mötesanteckningar på svenska.\n\n" +
				"Identifiera:\n1. Viktiga beslut som fattades\n2. Action items (vem ska göra vad)\n3. Nästa steg\n\n" +
				"Ge en kort sammanfattning (max 5 meningar) och lista alla action items.\n\n" +
				"Transkription:\n{text}\n\n" +
				`Svara i JSON-format: {"summary": "...", "action_items": ["..."]}`,
		},
		model.ContextBrainstorm: {
			Name: model.ContextBrainstorm, Label: "Brainstorm",
			Description:    "Lista och gruppera idéer från brainstorming",
			Summary:        true,
			PII:            false,
			Diarization:    false,
			TextProcessing: true,
			Casing:         model.CasingMeetingNotes,
			PromptTemplate: "Du är en assistent som sammanfattar brainstorming-sessioner på svenska.\n\n" +
				"Identifiera alla idéer som diskuterats och gruppera dem i kategorier.\n" +
				"Lista varje idé kort och koncist.\n\n" +
				"Transkription:\n{text}\n\n" +
				`Svara i JSON-format: {"summary": "...", "action_items": ["idé 1", "idé 2", ...]}`,
		},
		model.ContextJournal: {
			Name: model.ContextJournal, Label: "Dagbok",
			Description:    "Dagboksanteckningar och reflektioner",
			Summary:        true,
			PII:            true,
			Diarization:    false,
			TextProcessing: true,
			Casing:         model.CasingMeetingNotes,
			PromptTemplate: "Du är en assistent som sammanfattar dagboksanteckningar på svenska.\n\n" +
				"Fånga:\n1. Huvudsakliga reflektioner och känslor\n2. Viktiga händelser\n3. Insikter och lärdomar\n\n" +
				"Skriv sammanfattningen i första person.\n\n" +
				"Transkription:\n{text}\n\n" +
				`Svara i JSON-format: {"summary": "...", "action_items": []}`,
		},
		model.ContextTechNotes: {
			Name: model.ContextTechNotes, Label: "Tekniska anteckningar",
			Description:    "Teknisk dokumentation, bevara facktermer",
			Summary:        true,
			PII:            false,
			Diarization:    false,
			TextProcessing: false,
			Casing:         model.CasingVerbatim,
			PromptTemplate: "Du är en assistent som sammanfattar tekniska anteckningar på svenska.\n\n" +
				"Bevara alla tekniska termer, kodnamn och akronymer exakt som de nämnts.\n" +
				"Strukturera sammanfattningen med tydliga punkter.\n\n" +
				"Transkription:\n{text}\n\n" +
				`Svara i JSON-format: {"summary": "...", "action_items": []}`,
		},
	}
}

// Registry holds the live context-profile table, optionally kept in sync
// with an on-disk override file via fsnotify.
type Registry struct {
	mu       sync.RWMutex
	profiles map[string]model.ContextProfile
	path     string
	watcher  *fsnotify.Watcher
}

// NewRegistry builds a registry seeded with the compiled-in defaults. If
// path is non-empty and the file exists, its contents override the
// defaults immediately and on every subsequent write.
func NewRegistry(path string) *Registry {
	r := &Registry{profiles: defaultProfiles(), path: path}
	if path != "" {
		r.loadFromFile()
		r.watch()
	}
	return r
}

// Get returns the named profile and whether it was found.
func (r *Registry) Get(name string) (model.ContextProfile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[name]
	return p, ok
}

// List returns every known context profile, sorted by insertion order of
// the defaults (raw, meeting, brainstorm, journal, tech_notes) since Go map
// iteration order is unspecified.
func (r *Registry) List() []model.ContextProfile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	order := []string{model.ContextRaw, model.ContextMeeting, model.ContextBrainstorm, model.ContextJournal, model.ContextTechNotes}
	out := make([]model.ContextProfile, 0, len(order))
	seen := make(map[string]bool)
	for _, name := range order {
		if p, ok := r.profiles[name]; ok {
			out = append(out, p)
			seen[name] = true
		}
	}
	for name, p := range r.profiles {
		if !seen[name] {
			out = append(out, p)
		}
	}
	return out
}

func (r *Registry) loadFromFile() {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("failed to read context profile overrides", "path", r.path, "error", err)
		}
		return
	}

	var overrides map[string]model.ContextProfile
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		logger.Warn("failed to parse context profile overrides", "path", r.path, "error", err)
		return
	}

	merged := defaultProfiles()
	for name, p := range overrides {
		p.Name = name
		merged[name] = p
	}

	r.mu.Lock()
	r.profiles = merged
	r.mu.Unlock()
	logger.Info("loaded context profile overrides", "path", r.path, "count", len(overrides))
}

func (r *Registry) watch() {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("failed to start context profile watcher", "error", err)
		return
	}
	r.watcher = watcher

	dir := dirOf(r.path)
	if err := watcher.Add(dir); err != nil {
		logger.Warn("failed to watch context profile directory", "dir", dir, "error", err)
		return
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name == r.path && (event.Op&(fsnotify.Write|fsnotify.Create) != 0) {
					r.loadFromFile()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("context profile watcher error", "error", err)
			}
		}
	}()
}

func (r *Registry) Close() {
	if r.watcher != nil {
		_ = r.watcher.Close()
	}
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}
