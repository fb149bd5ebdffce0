package stages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"svasr/internal/model"
)

func TestFlagPII_UsesTextWhenPresent(t *testing.T) {
	processed := "inget alls"
	segments := []model.Segment{{Text: "ring 070-123 45 67", ProcessedText: &processed}}
	out := FlagPII(segments)
	require.NotNil(t, out[0].HasPII)
	assert.True(t, *out[0].HasPII)
	assert.Len(t, out[0].PIIFlags, 1)
}

func TestFlagPII_FallsBackToProcessedTextWhenTextEmpty(t *testing.T) {
	processed := "nå mig på anna@example.com"
	segments := []model.Segment{{Text: "", ProcessedText: &processed}}
	out := FlagPII(segments)
	require.NotNil(t, out[0].HasPII)
	assert.True(t, *out[0].HasPII)
}

func TestFlagPII_NoHitsSetsFalse(t *testing.T) {
	segments := []model.Segment{{Text: "helt vanlig mening"}}
	out := FlagPII(segments)
	require.NotNil(t, out[0].HasPII)
	assert.False(t, *out[0].HasPII)
	assert.Empty(t, out[0].PIIFlags)
}
