package stages

import (
	"strings"
	"unicode/utf8"

	"github.com/pemistahl/lingua-go"

	"svasr/internal/model"
)

const minTextLength = 10

// LanguageDetector wraps the statistical detector, built once per process
// against every language lingua-go ships support for.
type LanguageDetector struct {
	detector lingua.LanguageDetector
}

func NewLanguageDetector() *LanguageDetector {
	languages := lingua.AllLanguages()
	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(languages...).
		WithPreloadedLanguageModels().
		Build()
	return &LanguageDetector{detector: detector}
}

// DetectSegmentLanguages detects per-segment language. Segments whose
// trimmed text is shorter than 10 characters inherit the file-level
// language with confidence 1.0 and language_switch=false; longer segments
// get a real text-based detection, with language_switch set whenever the
// detected language differs from the file-level language.
func (d *LanguageDetector) DetectSegmentLanguages(segments []model.Segment, fileLanguage string) []model.Segment {
	for i := range segments {
		seg := &segments[i]
		text := strings.TrimSpace(seg.Text)

		if utf8.RuneCountInString(text) < minTextLength {
			seg.DetectedLanguage = strp(fileLanguage)
			conf := 1.0
			seg.LanguageConfidence = &conf
			seg.LanguageSwitch = boolp(false)
			continue
		}

		confidences := d.detector.ComputeLanguageConfidenceValues(text)
		if len(confidences) == 0 {
			seg.DetectedLanguage = strp(fileLanguage)
			conf := 0.0
			seg.LanguageConfidence = &conf
			seg.LanguageSwitch = boolp(false)
			continue
		}

		best := confidences[0]
		detected := isoCode(best.Language())
		conf := round4(best.Value())
		seg.DetectedLanguage = strp(detected)
		seg.LanguageConfidence = &conf
		seg.LanguageSwitch = boolp(detected != fileLanguage)
	}
	return segments
}

// isoCode maps a lingua.Language to its lowercase ISO 639-1 code, matching
// the two-letter codes langdetect returns in the original implementation.
func isoCode(l lingua.Language) string {
	return strings.ToLower(l.IsoCode639_1().String())
}
