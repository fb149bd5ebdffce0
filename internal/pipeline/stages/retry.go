package stages

import (
	"context"

	"svasr/internal/pipeline/gatewayclient"
	"svasr/pkg/logger"

	"svasr/internal/model"
)

// RetryLowConfidence re-transcribes each low-confidence segment.
//
// Strategy A: same medium-size model at the elevated retry beam; if the
// replacement is no longer low-confidence, it's kept.
// Strategy B (only if retryWithLarge): large model at the same beam,
// unconditionally replacing regardless of its own confidence.
//
// audioBase64 is threaded in explicitly as a parameter rather than stashed
// on a shared config object — the original source's config._audio_base64
// attribute-injection is a named smell this redesign avoids.
func RetryLowConfidence(ctx context.Context, segments []model.Segment, audioBase64 string, client *gatewayclient.Client, retryBeamSize int) []model.Segment {
	return retryLowConfidence(ctx, segments, audioBase64, client, retryBeamSize, false)
}

// RetryLowConfidenceWithLarge is RetryLowConfidence with strategy B enabled.
func RetryLowConfidenceWithLarge(ctx context.Context, segments []model.Segment, audioBase64 string, client *gatewayclient.Client, retryBeamSize int) []model.Segment {
	return retryLowConfidence(ctx, segments, audioBase64, client, retryBeamSize, true)
}

func retryLowConfidence(ctx context.Context, segments []model.Segment, audioBase64 string, client *gatewayclient.Client, retryBeamSize int, retryWithLarge bool) []model.Segment {
	if audioBase64 == "" {
		logger.Warn("no audio available, skipping retry stage")
		return segments
	}

	for i := range segments {
		seg := &segments[i]
		if !seg.LowConfidence {
			continue
		}

		language := "sv"
		if seg.Language != nil && *seg.Language != "" {
			language = *seg.Language
		}

		result, err := client.Retry(ctx, audioBase64, seg.Start, seg.End, retryBeamSize, "KBLab/kb-whisper-medium", language)
		if err == nil && len(result.Segments) > 0 {
			best := result.Segments[0]
			if !best.LowConfidence {
				merged := mergeRetried(*seg, best, "medium")
				segments[i] = merged
				continue
			}
		} else if err != nil {
			logger.Error("retry strategy A failed", "segment_index", i, "error", err)
		}

		if !retryWithLarge {
			continue
		}

		result, err = client.Retry(ctx, audioBase64, seg.Start, seg.End, retryBeamSize, "KBLab/kb-whisper-large", language)
		if err != nil {
			logger.Error("retry strategy B (large) failed", "segment_index", i, "error", err)
			continue
		}
		if len(result.Segments) > 0 {
			segments[i] = mergeRetried(*seg, result.Segments[0], "large")
		}
	}

	return segments
}

// mergeRetried overlays the retry response's ASR-output fields onto a copy
// of the original segment, rather than replacing it outright, so enrichment
// already added by earlier stages (word_confidence_avg/min,
// low_confidence_words) is kept rather than dropped.
func mergeRetried(seg, best model.Segment, modelName string) model.Segment {
	merged := seg
	merged.Start = best.Start
	merged.End = best.End
	merged.Text = best.Text
	merged.Words = best.Words
	merged.AvgLogprob = best.AvgLogprob
	merged.CompressionRatio = best.CompressionRatio
	merged.NoSpeechProb = best.NoSpeechProb
	merged.LowConfidence = best.LowConfidence
	if best.Language != nil {
		merged.Language = best.Language
	}
	merged.Retried = boolp(true)
	merged.RetryModel = strp(modelName)
	return merged
}

func boolp(b bool) *bool    { return &b }
func strp(s string) *string { return &s }
