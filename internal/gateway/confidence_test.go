package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"svasr/internal/model"
)

func wordsWithProbabilities(probs ...float64) []model.Word {
	words := make([]model.Word, len(probs))
	for i, p := range probs {
		words[i] = model.Word{Word: "w", Probability: p}
	}
	return words
}

func TestLowConfidence_AvgLogprobThreshold(t *testing.T) {
	assert.True(t, LowConfidence(model.Segment{AvgLogprob: -1.2}))
	assert.False(t, LowConfidence(model.Segment{AvgLogprob: -1.0}))
}

func TestLowConfidence_CompressionRatioBoundary(t *testing.T) {
	assert.False(t, LowConfidence(model.Segment{CompressionRatio: 2.4}))
	assert.True(t, LowConfidence(model.Segment{CompressionRatio: 2.41}))
}

func TestLowConfidence_NoSpeechProb(t *testing.T) {
	assert.False(t, LowConfidence(model.Segment{NoSpeechProb: 0.6}))
	assert.True(t, LowConfidence(model.Segment{NoSpeechProb: 0.61}))
}

func TestLowConfidence_WordRatioBoundary(t *testing.T) {
	// 3 of 10 words below 0.3 -> ratio 0.3, not low-confidence (must exceed).
	probs := []float64{0.1, 0.2, 0.25, 0.9, 0.9, 0.9, 0.9, 0.9, 0.9, 0.9}
	assert.False(t, LowConfidence(model.Segment{Words: wordsWithProbabilities(probs...)}))

	// 4 of 10 -> ratio 0.4, triggers.
	probs = []float64{0.1, 0.2, 0.25, 0.29, 0.9, 0.9, 0.9, 0.9, 0.9, 0.9}
	assert.True(t, LowConfidence(model.Segment{Words: wordsWithProbabilities(probs...)}))
}

func TestLowConfidence_MissingFieldsDoNotTrigger(t *testing.T) {
	assert.False(t, LowConfidence(model.Segment{}))
}

func TestIsNoiseText(t *testing.T) {
	assert.True(t, IsNoiseText("..."))
	assert.True(t, IsNoiseText(" . , "))
	assert.True(t, IsNoiseText(""))
	assert.False(t, IsNoiseText("hej"))
}

func TestIsNoise_AllWordsBelowMinimumProbability(t *testing.T) {
	seg := model.Segment{Text: "hej hopp", Words: wordsWithProbabilities(0.001, 0.005)}
	assert.True(t, IsNoise(seg))
}

func TestApplyConfidence(t *testing.T) {
	segments := []model.Segment{{AvgLogprob: -2.0}, {AvgLogprob: 0}}
	ApplyConfidence(segments)
	assert.True(t, segments[0].LowConfidence)
	assert.False(t, segments[1].LowConfidence)
}

func TestFilterNoise(t *testing.T) {
	segments := []model.Segment{
		{Text: "hej"},
		{Text: "..."},
		{Text: "  "},
		{Text: "hopp"},
	}
	out := FilterNoise(segments)
	assert.Len(t, out, 2)
	assert.Equal(t, "hej", out[0].Text)
	assert.Equal(t, "hopp", out[1].Text)
}
