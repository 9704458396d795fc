// Package chat implements the question-to-answer pipeline: routing a free
// text question to a table, classifying intent, synthesizing and executing
// SQL, and summarizing the results.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/reviewlens/reviewlens/internal/llm"
	"github.com/reviewlens/reviewlens/internal/observability"
	"github.com/reviewlens/reviewlens/internal/schema"
)

// RoutingDecision carries the chosen table plus the raw reply that
// produced it, for diagnostics.
type RoutingDecision struct {
	TableID  string
	RawReply string
}

type Router struct {
	registry  *schema.Registry
	generator llm.Generator
	logger    *slog.Logger
}

func NewRouter(registry *schema.Registry, generator llm.Generator, logger *slog.Logger) *Router {
	return &Router{registry: registry, generator: generator, logger: logger}
}

// Route maps a question to one of the known tables. It never fails: an
// unclear reply, an unknown table name, or a model error all resolve to
// the default reviews table.
func (r *Router) Route(ctx context.Context, question string) RoutingDecision {
	start := time.Now()
	reply, err := r.generator.Generate(ctx, r.prompt(question))
	observability.ObserveModelCall("route", time.Since(start))
	if err != nil {
		if r.logger != nil {
			r.logger.WarnContext(ctx, "table routing degraded to default", slog.Any("error", err))
		}
		return RoutingDecision{TableID: schema.DefaultTable, RawReply: ""}
	}

	normalized := strings.ToLower(strings.TrimSpace(reply))
	normalized = strings.NewReplacer(`"`, "", "'", "").Replace(normalized)

	tableID := schema.DefaultTable
	switch {
	case strings.Contains(normalized, "product") || strings.Contains(normalized, "review"):
		tableID = schema.TableProcessedReviews
	case strings.Contains(normalized, "format"):
		tableID = schema.TableFormattedReviews
	case strings.Contains(normalized, "complaint"):
		tableID = schema.TableComplaints
	}
	if _, ok := r.registry.Lookup(tableID); !ok {
		tableID = schema.DefaultTable
	}
	return RoutingDecision{TableID: tableID, RawReply: reply}
}

func (r *Router) prompt(question string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze this question: %q\nAvailable tables:\n", question)
	for i, table := range r.registry.Routable() {
		fmt.Fprintf(&b, "%d. %s - %s\n", i+1, table.ID, table.RoutingHint)
	}
	b.WriteString("\nWhich table should be used? Respond with ONLY the table name. If unsure, choose the most relevant table.")
	return b.String()
}
