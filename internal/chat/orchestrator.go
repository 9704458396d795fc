package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/reviewlens/reviewlens/internal/format"
	"github.com/reviewlens/reviewlens/internal/llm"
	"github.com/reviewlens/reviewlens/internal/observability"
	"github.com/reviewlens/reviewlens/internal/schema"
	"github.com/reviewlens/reviewlens/internal/sqltext"
	"github.com/reviewlens/reviewlens/internal/store"
)

// promptRowLimit caps how many result rows feed the insight prompt.
const promptRowLimit = 10

// Response is the tri-state pipeline outcome: results plus insights,
// insights only (refusal or empty result), or an error.
type Response struct {
	ResultsHTML string `json:"results_html,omitempty"`
	Insights    string `json:"insights,omitempty"`
	Error       string `json:"error,omitempty"`
}

// SQLExecutor is the execution capability the orchestrator depends on.
// Execution is fail-soft: a broken query comes back as an empty set.
type SQLExecutor interface {
	Execute(ctx context.Context, sqlText string) store.ResultSet
}

type Orchestrator struct {
	registry   *schema.Registry
	router     *Router
	classifier *Classifier
	sql        *Synthesizer
	insights   *InsightSynthesizer
	executor   SQLExecutor
	logger     *slog.Logger
}

func NewOrchestrator(registry *schema.Registry, generator llm.Generator, executor SQLExecutor, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		registry:   registry,
		router:     NewRouter(registry, generator, logger),
		classifier: NewClassifier(generator, logger),
		sql:        NewSynthesizer(registry, generator),
		insights:   NewInsightSynthesizer(generator),
		executor:   executor,
		logger:     logger,
	}
}

// Ask drives one question through the full pipeline. No fault escapes:
// anything unexpected is recovered here and reported on the error branch.
func (o *Orchestrator) Ask(ctx context.Context, question string) (response Response) {
	defer func() {
		if r := recover(); r != nil {
			if o.logger != nil {
				o.logger.ErrorContext(ctx, "chat pipeline panic", slog.Any("panic", r))
			}
			observability.IncrementChatOutcome("unexpected_fault")
			response = Response{Error: fmt.Sprintf("An unexpected error occurred: %v", r)}
		}
	}()

	decision := o.router.Route(ctx, question)

	if o.classifier.Classify(ctx, question) == IntentGeneralQuestion {
		observability.IncrementChatOutcome("rejected")
		return Response{Insights: RefusalMessage}
	}

	generatedSQL, err := o.sql.Synthesize(ctx, question, decision.TableID)
	if err == nil {
		err = sqltext.Validate(generatedSQL)
	}
	if err != nil {
		if o.logger != nil {
			o.logger.WarnContext(ctx, "sql generation failed",
				slog.String("question", question),
				slog.String("table", decision.TableID),
				slog.String("generated_sql", generatedSQL),
				slog.Any("error", err),
			)
		}
		observability.IncrementChatOutcome("sql_rejected")
		return Response{Error: synthesisGuidance(question)}
	}

	results := o.executor.Execute(ctx, generatedSQL)
	if o.logger != nil {
		o.logger.DebugContext(ctx, "chat query executed",
			slog.String("question", question),
			slog.String("table", decision.TableID),
			slog.String("generated_sql", generatedSQL),
			slog.Int("rows", len(results.Rows)),
		)
	}

	if results.Empty() {
		observability.IncrementChatOutcome("empty_result")
		return Response{Insights: emptyResultMessage(decision.TableID)}
	}

	resultsHTML := format.ToHTML(results)
	resultsText := format.ToText(results.Limit(promptRowLimit))

	insightText, err := o.insights.Summarize(ctx, o.insightPrompt(question, decision.TableID, resultsText))
	if err != nil {
		if o.logger != nil {
			o.logger.ErrorContext(ctx, "insight synthesis failed", slog.Any("error", err))
		}
		observability.IncrementChatOutcome("unexpected_fault")
		return Response{Error: fmt.Sprintf("An unexpected error occurred: %v", err)}
	}

	observability.IncrementChatOutcome("answered")
	return Response{ResultsHTML: resultsHTML, Insights: insightText}
}

func (o *Orchestrator) insightPrompt(question, tableID, resultsText string) string {
	tableSchema := ""
	if table, ok := o.registry.Lookup(tableID); ok {
		tableSchema = table.Schema()
	}
	return fmt.Sprintf(`You are a helpful data analyst assistant.

The user asked: %q

The database returned: %s

Schema of %s: %s

Provide:
1. **Insight & Recommendation:** One concise insight with an actionable recommendation.
2. Two newlines.
3. **Suggested Questions:** Three simple follow-up questions as bullets.

CRITICAL: Questions must only use columns from the schema and be answerable with simple SQL.`,
		question, resultsText, tableID, tableSchema)
}

// synthesisGuidance builds the rejection text, adding hints keyed to the
// question's wording.
func synthesisGuidance(question string) string {
	lowered := strings.ToLower(question)
	var b strings.Builder
	b.WriteString("I was unable to generate a valid query. Try rephrasing by:\n")
	if strings.Contains(lowered, "month") || strings.Contains(lowered, "year") {
		b.WriteString("- Using simpler date references (e.g., 'by date' or 'over time')\n")
	}
	if strings.Contains(lowered, "aggregate") || strings.Contains(lowered, "sum") {
		b.WriteString("- Breaking down the aggregation request into simpler parts\n")
	}
	b.WriteString("- Specifying exactly which columns you want to group or filter by")
	return b.String()
}

func emptyResultMessage(tableID string) string {
	return fmt.Sprintf("The query ran successfully, but returned no results.\n\nThis could mean:\n1. No data matches your search criteria\n2. The keyword might be spelled differently in the database\n3. Try searching for related terms\n\n**Debug Info:** Table: %s", tableID)
}
