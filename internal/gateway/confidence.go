package gateway

import (
	"regexp"
	"strings"

	"svasr/internal/model"
)

// LowConfidence applies the exact disjunction of the confidence heuristic:
// a segment is low-confidence iff any of avg_logprob < -1.0,
// compression_ratio > 2.4, no_speech_prob > 0.6, or (words non-empty and
// more than 30% of words have probability < 0.3). Missing fields never
// trigger on their own.
func LowConfidence(seg model.Segment) bool {
	if seg.AvgLogprob < -1.0 {
		return true
	}
	if seg.CompressionRatio > 2.4 {
		return true
	}
	if seg.NoSpeechProb > 0.6 {
		return true
	}
	if len(seg.Words) > 0 {
		low := 0
		for _, w := range seg.Words {
			if w.Probability < 0.3 {
				low++
			}
		}
		if float64(low)/float64(len(seg.Words)) > 0.3 {
			return true
		}
	}
	return false
}

// noisePunctuation matches text made up entirely of punctuation/whitespace
// from the accelerator noise-filter character set.
var noisePunctuation = regexp.MustCompile(`^[\s.!?,;:\-—–…'"«»()\[\]]*$`)

// IsNoise reports whether an accelerator-backend segment should be dropped:
// empty after trim, all-punctuation, or every word has probability < 0.01.
func IsNoise(seg model.Segment) bool {
	trimmed := strings.TrimSpace(seg.Text)
	if trimmed == "" {
		return true
	}
	if noisePunctuation.MatchString(trimmed) {
		return true
	}
	if len(seg.Words) > 0 {
		allLow := true
		for _, w := range seg.Words {
			if w.Probability >= 0.01 {
				allLow = false
				break
			}
		}
		if allLow {
			return true
		}
	}
	return false
}

// IsNoiseText applies the noise regex to a bare string, used by the ingest
// realtime handler to decide whether to buffer or forward a transcript.
func IsNoiseText(text string) bool {
	trimmed := strings.TrimSpace(text)
	return trimmed == "" || noisePunctuation.MatchString(trimmed)
}

// ApplyConfidence recomputes low_confidence for every segment in place,
// matching the gateway's per-segment scoring used both at transcribe time
// and by the pipeline's confidence stage.
func ApplyConfidence(segments []model.Segment) {
	for i := range segments {
		segments[i].LowConfidence = LowConfidence(segments[i])
	}
}

// FilterNoise removes accelerator-backend segments matching the noise
// filter, preserving order.
func FilterNoise(segments []model.Segment) []model.Segment {
	out := make([]model.Segment, 0, len(segments))
	for _, seg := range segments {
		if !IsNoise(seg) {
			out = append(out, seg)
		}
	}
	return out
}
