package stages

import (
	"regexp"
	"strings"

	"svasr/internal/model"
)

var unicodePunctuation = strings.NewReplacer(
	"‘", "'",
	"’", "'",
	"“", `"`,
	"”", `"`,
	"–", "-",
	"—", "-",
	"…", "...",
	" ", " ",
)

var sentenceStartRe = regexp.MustCompile(`(^|[.!?]\s+)([\p{L}\p{N}_])`)

// ProcessText applies text normalization per the effective casing:
//   - verbatim: no-op.
//   - meeting_notes: normalize unicode punctuation, then capitalize the
//     first letter of each sentence (start-of-string or after .!? + whitespace).
//   - subtitle_friendly: meeting_notes normalization plus subtitle_lines[]
//     limited to 42 chars / 2 lines, with overflow folded into the last line.
func ProcessText(segments []model.Segment, casingProfile string) []model.Segment {
	if casingProfile == model.CasingVerbatim || casingProfile == "" {
		return segments
	}

	for i := range segments {
		seg := &segments[i]
		text := unicodePunctuation.Replace(seg.Text)

		switch casingProfile {
		case model.CasingMeetingNotes:
			text = capitalizeSentences(text)
		case model.CasingSubtitleFriendly:
			text = capitalizeSentences(text)
			lines := splitSubtitleLines(text, 42, 2)
			seg.SubtitleLines = lines
		}

		seg.ProcessedText = strp(text)
	}
	return segments
}

func capitalizeSentences(text string) string {
	result := sentenceStartRe.ReplaceAllStringFunc(text, func(m string) string {
		loc := sentenceStartRe.FindStringSubmatchIndex(m)
		prefix := m[loc[2]:loc[3]]
		letter := m[loc[4]:loc[5]]
		return prefix + strings.ToUpper(letter)
	})
	if result != "" {
		r := []rune(result)
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		result = string(r)
	}
	return result
}

func splitSubtitleLines(text string, maxChars, maxLines int) []string {
	words := strings.Fields(text)
	var lines []string
	current := ""

	for idx, word := range words {
		test := word
		if current != "" {
			test = current + " " + word
		}
		if len(test) <= maxChars {
			current = test
			continue
		}

		if current != "" {
			lines = append(lines, current)
		}
		current = word

		if len(lines) >= maxLines {
			lines[len(lines)-1] = lines[len(lines)-1] + " " + current
			current = ""
			remaining := strings.Join(words[idx+1:], " ")
			if remaining != "" {
				lines[len(lines)-1] = lines[len(lines)-1] + " " + remaining
			}
			return lines[:maxLines]
		}
	}

	if current != "" {
		if len(lines) >= maxLines {
			lines[len(lines)-1] = lines[len(lines)-1] + " " + current
		} else {
			lines = append(lines, current)
		}
	}

	if len(lines) > maxLines {
		return lines[:maxLines]
	}
	return lines
}
