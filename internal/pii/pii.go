// Package pii implements the pii_flagging pipeline stage's pattern set:
// Swedish personnummer, email, phone number, and a profanity word list.
// Detection only, never masking.
package pii

import (
	"regexp"

	"svasr/internal/model"
)

var patterns = []struct {
	kind string
	re   *regexp.Regexp
}{
	{"personnummer", regexp.MustCompile(`\d{6,8}[-\s]?\d{4}`)},
	{"email", regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)},
	{"telefon", regexp.MustCompile(`(?:\+46|0)\s*[1-9]\d{0,2}[\s-]?\d{2,3}[\s-]?\d{2}[\s-]?\d{2}`)},
}

var profanityWords = []string{
	"fan", "jävla", "jävlar", "helvete", "skit", "skita", "förbannad",
	"förbannade", "satan", "satans", "jävel", "jävligt", "faen", "fy fan",
}

var profanityRe = regexp.MustCompile(`(?i)\b(` + joinAlternatives(profanityWords) + `)\b`)

func joinAlternatives(words []string) string {
	out := ""
	for i, w := range words {
		if i > 0 {
			out += "|"
		}
		out += regexp.QuoteMeta(w)
	}
	return out
}

// Scan runs every pattern over text and returns flags in the order they
// appear in the input for each pattern family, concatenated in pattern
// declaration order (personnummer, email, telefon, profanity).
func Scan(text string) []model.PIIFlag {
	var flags []model.PIIFlag
	for _, p := range patterns {
		flags = append(flags, matchAll(text, p.kind, p.re)...)
	}
	flags = append(flags, matchAll(text, "profanity", profanityRe)...)
	return flags
}

func matchAll(text, kind string, re *regexp.Regexp) []model.PIIFlag {
	var flags []model.PIIFlag
	for _, loc := range re.FindAllStringIndex(text, -1) {
		flags = append(flags, model.PIIFlag{
			Type:      kind,
			StartChar: loc[0],
			EndChar:   loc[1],
			Text:      text[loc[0]:loc[1]],
		})
	}
	return flags
}

// HasPII reports whether text contains PII, without allocating flags.
func HasPII(text string) bool {
	for _, p := range patterns {
		if p.re.MatchString(text) {
			return true
		}
	}
	return profanityRe.MatchString(text)
}
