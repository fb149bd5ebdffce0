package contextprofiles

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"svasr/internal/model"
)

func TestNewRegistry_SeedsAllFiveDefaults(t *testing.T) {
	r := NewRegistry("")
	for _, name := range []string{
		model.ContextRaw, model.ContextMeeting, model.ContextBrainstorm,
		model.ContextJournal, model.ContextTechNotes,
	} {
		_, ok := r.Get(name)
		assert.True(t, ok, "expected default profile %q", name)
	}
}

func TestGet_UnknownProfileNotFound(t *testing.T) {
	r := NewRegistry("")
	_, ok := r.Get("nonexistent")
	assert.False(t, ok)
}

func TestMeetingProfile_EnablesAllStages(t *testing.T) {
	r := NewRegistry("")
	p, ok := r.Get(model.ContextMeeting)
	require.True(t, ok)
	assert.True(t, p.Summary)
	assert.True(t, p.PII)
	assert.True(t, p.Diarization)
	assert.True(t, p.TextProcessing)
	assert.Equal(t, model.CasingMeetingNotes, p.Casing)
}

func TestRawProfile_DisablesEverything(t *testing.T) {
	r := NewRegistry("")
	p, ok := r.Get(model.ContextRaw)
	require.True(t, ok)
	assert.False(t, p.Summary)
	assert.False(t, p.PII)
	assert.False(t, p.Diarization)
	assert.False(t, p.TextProcessing)
	assert.Equal(t, "", p.Casing)
}

func TestList_ReturnsDefaultOrderFirst(t *testing.T) {
	r := NewRegistry("")
	list := r.List()
	require.Len(t, list, 5)
	assert.Equal(t, model.ContextRaw, list[0].Name)
	assert.Equal(t, model.ContextMeeting, list[1].Name)
}

func TestNewRegistry_LoadsOverridesFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "overrides.yaml")
	yamlContent := []byte(`
meeting:
  label: "Anpassat möte"
  summary: false
  pii: true
  diarization: true
  text_processing: true
  casing: verbatim
`)
	require.NoError(t, os.WriteFile(path, yamlContent, 0o644))

	r := NewRegistry(path)
	defer r.Close()

	p, ok := r.Get(model.ContextMeeting)
	require.True(t, ok)
	assert.Equal(t, "Anpassat möte", p.Label)
	assert.False(t, p.Summary)
	assert.Equal(t, model.CasingVerbatim, p.Casing)

	// Non-overridden defaults remain untouched.
	raw, ok := r.Get(model.ContextRaw)
	require.True(t, ok)
	assert.Equal(t, "Rätt transkript", raw.Label)
}

func TestNewRegistry_MissingOverrideFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	r := NewRegistry(filepath.Join(dir, "missing.yaml"))
	defer r.Close()

	p, ok := r.Get(model.ContextMeeting)
	require.True(t, ok)
	assert.Equal(t, "Möte", p.Label)
}

func TestRegistry_WatchPicksUpLaterWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "overrides.yaml")

	r := NewRegistry(path)
	defer r.Close()

	p, ok := r.Get(model.ContextJournal)
	require.True(t, ok)
	assert.Equal(t, "Dagbok", p.Label)

	require.NoError(t, os.WriteFile(path, []byte("journal:\n  label: \"Ny dagbok\"\n"), 0o644))

	require.Eventually(t, func() bool {
		p, ok := r.Get(model.ContextJournal)
		return ok && p.Label == "Ny dagbok"
	}, 2*time.Second, 20*time.Millisecond)
}
