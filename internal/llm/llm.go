// Package llm exposes the text-generation capability the pipelines consume.
// Replies are untrusted free text: every caller is responsible for
// extracting what it needs and tolerating conversational noise.
package llm

import "context"

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
