package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/reviewlens/reviewlens/internal/llm"
	"github.com/reviewlens/reviewlens/internal/observability"
)

type InsightSynthesizer struct {
	generator llm.Generator
}

func NewInsightSynthesizer(generator llm.Generator) *InsightSynthesizer {
	return &InsightSynthesizer{generator: generator}
}

// Summarize makes one model call and scrubs the reply of conversational
// filler before returning it.
func (s *InsightSynthesizer) Summarize(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	reply, err := s.generator.Generate(ctx, prompt)
	observability.ObserveModelCall("insight", time.Since(start))
	if err != nil {
		return "", fmt.Errorf("summarize results: %w", err)
	}
	return CleanReply(reply), nil
}

// CleanReply strips Markdown fence markers, then drops any conversational
// preamble: everything before the first line that looks like structured
// output (bold marker or numbered list). Lines saying "okay" or "ready"
// before that point are skipped. With no structured line at all the
// cleaned text is returned verbatim.
func CleanReply(text string) string {
	cleaned := strings.ReplaceAll(text, "```markdown", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	lines := strings.Split(cleaned, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "**") || strings.HasPrefix(trimmed, "1.") || strings.Contains(trimmed, "**") {
			return strings.TrimSpace(strings.Join(lines[i:], "\n"))
		}
		lowered := strings.ToLower(line)
		if strings.Contains(lowered, "okay") || strings.Contains(lowered, "ready") {
			continue
		}
	}
	return cleaned
}
