package stages

import (
	"context"

	"svasr/internal/model"
	"svasr/internal/pipeline/diarizer"
	"svasr/pkg/logger"
)

// Diarize runs the configured diarizer and assigns each segment the
// speaker with the largest overlapping time window. Ties resolve to
// whichever speaker turn was encountered first while scanning.
//
// If audioPath is empty, every segment is stamped speaker_id="UNKNOWN" and
// the omission is logged rather than treated as an error.
func Diarize(ctx context.Context, segments []model.Segment, audioPath string, d diarizer.Diarizer) []model.Segment {
	if audioPath == "" {
		logger.Warn("no audio path for diarization, skipping")
		return assignUnknown(segments)
	}
	if !d.Available() {
		logger.Warn("diarizer unavailable, skipping")
		return assignUnknown(segments)
	}

	turns, err := d.Diarize(ctx, audioPath)
	if err != nil {
		logger.Error("diarization failed", "error", err)
		return assignUnknown(segments)
	}

	for i := range segments {
		seg := &segments[i]
		bestSpeaker := "UNKNOWN"
		bestOverlap := 0.0

		for _, turn := range turns {
			overlapStart := max(seg.Start, turn.Start)
			overlapEnd := min(seg.End, turn.End)
			overlap := overlapEnd - overlapStart
			if overlap < 0 {
				overlap = 0
			}
			// Strict >: first encountered wins on a tie.
			if overlap > bestOverlap {
				bestOverlap = overlap
				bestSpeaker = turn.Speaker
			}
		}
		seg.SpeakerID = strp(bestSpeaker)
	}

	return segments
}

func assignUnknown(segments []model.Segment) []model.Segment {
	for i := range segments {
		segments[i].SpeakerID = strp("UNKNOWN")
	}
	return segments
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
