package stages

import (
	"svasr/internal/model"
	"svasr/internal/pii"
)

// FlagPII scans each segment's text (falling back to processed_text only
// when text is empty, matching the original scanner's precedence) for PII
// and profanity, setting pii_flags and has_pii without masking anything.
func FlagPII(segments []model.Segment) []model.Segment {
	for i := range segments {
		seg := &segments[i]
		text := seg.Text
		if text == "" && seg.ProcessedText != nil {
			text = *seg.ProcessedText
		}

		flags := pii.Scan(text)
		seg.PIIFlags = flags
		seg.HasPII = boolp(len(flags) > 0)
	}
	return segments
}
