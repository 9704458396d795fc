package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/reviewlens/reviewlens/internal/llm"
	"github.com/reviewlens/reviewlens/internal/observability"
)

type Intent string

const (
	IntentDataQuery       Intent = "data_query"
	IntentGeneralQuestion Intent = "general_question"
)

// RefusalMessage is the fixed reply for out-of-domain questions.
const RefusalMessage = "I'm sorry, I can only answer questions related to our product reviews and complaint data. Please ask a question about that topic."

type Classifier struct {
	generator llm.Generator
	logger    *slog.Logger
}

func NewClassifier(generator llm.Generator, logger *slog.Logger) *Classifier {
	return &Classifier{generator: generator, logger: logger}
}

// Classify labels the question. Matching is substring based to tolerate
// verbose replies: "general" anywhere means out of domain. A model error
// lets the question through as a data query; the later stages will reject
// it on their own terms if it is nonsense.
func (c *Classifier) Classify(ctx context.Context, question string) Intent {
	prompt := fmt.Sprintf("Classify the user's question as 'data_query' or 'general_question'. User Question: %q. Respond with only the category name.", question)

	start := time.Now()
	reply, err := c.generator.Generate(ctx, prompt)
	observability.ObserveModelCall("classify", time.Since(start))
	if err != nil {
		if c.logger != nil {
			c.logger.WarnContext(ctx, "intent classification degraded to data_query", slog.Any("error", err))
		}
		return IntentDataQuery
	}
	if strings.Contains(strings.ToLower(reply), "general") {
		return IntentGeneralQuestion
	}
	return IntentDataQuery
}
