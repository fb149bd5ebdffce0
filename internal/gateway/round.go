package gateway

import (
	"math"

	"svasr/internal/model"
)

func round(v float64, places int) float64 {
	mul := math.Pow(10, float64(places))
	return math.Round(v*mul) / mul
}

// RoundSegments rounds start/end to 3 decimal places and avg_logprob,
// compression_ratio, no_speech_prob, and word probabilities to 4, matching
// the result-shape rounding rule.
func RoundSegments(segments []model.Segment) {
	for i := range segments {
		segments[i].Start = round(segments[i].Start, 3)
		segments[i].End = round(segments[i].End, 3)
		segments[i].AvgLogprob = round(segments[i].AvgLogprob, 4)
		segments[i].CompressionRatio = round(segments[i].CompressionRatio, 4)
		segments[i].NoSpeechProb = round(segments[i].NoSpeechProb, 4)
		for j := range segments[i].Words {
			segments[i].Words[j].Start = round(segments[i].Words[j].Start, 3)
			segments[i].Words[j].End = round(segments[i].Words[j].End, 3)
			segments[i].Words[j].Probability = round(segments[i].Words[j].Probability, 4)
		}
	}
}
