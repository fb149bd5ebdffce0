package stages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"svasr/internal/model"
)

func TestDetectSegmentLanguages_ShortTextInheritsFileLanguage(t *testing.T) {
	det := NewLanguageDetector()
	segments := []model.Segment{{Text: "hej där"}} // 7 chars, below the 10-char floor
	out := det.DetectSegmentLanguages(segments, "sv")

	require.NotNil(t, out[0].DetectedLanguage)
	assert.Equal(t, "sv", *out[0].DetectedLanguage)
	require.NotNil(t, out[0].LanguageConfidence)
	assert.Equal(t, 1.0, *out[0].LanguageConfidence)
	require.NotNil(t, out[0].LanguageSwitch)
	assert.False(t, *out[0].LanguageSwitch)
}

func TestDetectSegmentLanguages_BoundaryAtTenChars(t *testing.T) {
	det := NewLanguageDetector()
	// exactly 9 trimmed chars still counts as short.
	segments := []model.Segment{{Text: "hej hejsan"[:9]}}
	out := det.DetectSegmentLanguages(segments, "sv")
	require.NotNil(t, out[0].LanguageConfidence)
	assert.Equal(t, 1.0, *out[0].LanguageConfidence)
}

func TestDetectSegmentLanguages_LongTextDetectsAndFlagsSwitch(t *testing.T) {
	det := NewLanguageDetector()
	segments := []model.Segment{{Text: "This is a reasonably long sentence written entirely in English."}}
	out := det.DetectSegmentLanguages(segments, "sv")

	require.NotNil(t, out[0].DetectedLanguage)
	assert.Equal(t, "en", *out[0].DetectedLanguage)
	require.NotNil(t, out[0].LanguageSwitch)
	assert.True(t, *out[0].LanguageSwitch)
}
