// Package stages implements the seven ordered, feature-flag-gated
// pipeline stages of the Pipeline Runner: confidence, retry, diarization,
// language_detect, text_processing, pii_flagging, and summary.
package stages

import (
	"math"

	"svasr/internal/gateway"
	"svasr/internal/model"
)

// Confidence recomputes low_confidence per segment and adds
// word_confidence_avg/min and low_confidence_words. Always runs.
func Confidence(segments []model.Segment) []model.Segment {
	for i := range segments {
		seg := &segments[i]
		seg.LowConfidence = gateway.LowConfidence(*seg)

		if len(seg.Words) == 0 {
			continue
		}
		sum := 0.0
		min := seg.Words[0].Probability
		var low []model.Word
		for _, w := range seg.Words {
			sum += w.Probability
			if w.Probability < min {
				min = w.Probability
			}
			if w.Probability < 0.3 {
				low = append(low, w)
			}
		}
		avg := round4(sum / float64(len(seg.Words)))
		minR := round4(min)
		seg.WordConfidenceAvg = &avg
		seg.WordConfidenceMin = &minR
		seg.LowConfidenceWords = low
	}
	return segments
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
