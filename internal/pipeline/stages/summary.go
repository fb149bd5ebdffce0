package stages

import (
	"context"
	"encoding/json"
	"strings"

	"svasr/internal/llm"
	"svasr/internal/model"
	"svasr/pkg/logger"
)

const maxSummaryTextLength = 8000

const defaultSummaryPrompt = "Du är en assistent som sammanfattar transkriptioner på svenska.\n\n" +
	"Ge en kort sammanfattning (max 3 meningar) och lista eventuella action items.\n\n" +
	"Transkription:\n{text}\n\n" +
	`Svara i JSON-format: {"summary": "...", "action_items": ["..."]}`

// GenerateSummary truncates the concatenated segment text to 8,000 chars,
// renders the prompt template (or the default) with {text}, and asks the
// configured LLM for a JSON {summary, action_items[]} object. If the
// response isn't valid JSON, it's wrapped verbatim as {summary: <content>,
// action_items: []}. Any HTTP error is logged and yields a nil result —
// the summary stage is never mandatory.
func GenerateSummary(ctx context.Context, segments []model.Segment, svc *llm.Service, modelName, promptTemplate string) *model.Summary {
	var b strings.Builder
	for i, seg := range segments {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(seg.Text)
	}
	fullText := strings.TrimSpace(b.String())
	if fullText == "" {
		return nil
	}

	truncated := b.String()
	if runes := []rune(truncated); len(runes) > maxSummaryTextLength {
		truncated = string(runes[:maxSummaryTextLength])
	}

	template := promptTemplate
	if template == "" {
		template = defaultSummaryPrompt
	}
	prompt := strings.ReplaceAll(template, "{text}", truncated)

	content, err := svc.ChatCompletion(ctx, modelName, []llm.ChatMessage{{Role: "user", Content: prompt}}, 0.3)
	if err != nil {
		logger.Error("llm summary failed", "error", err)
		return nil
	}

	var parsed model.Summary
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return &model.Summary{Summary: content, ActionItems: []string{}}
	}
	if parsed.ActionItems == nil {
		parsed.ActionItems = []string{}
	}
	return &parsed
}
