package chat

import (
	"context"
	"strings"
	"testing"

	"github.com/reviewlens/reviewlens/internal/schema"
	"github.com/reviewlens/reviewlens/internal/store"
)

func newTestOrchestrator(gen *scriptedGenerator, exec *fakeExecutor) *Orchestrator {
	return NewOrchestrator(schema.NewRegistry(), gen, exec, testLogger())
}

func TestAskDeliveryQuestionUsesOverrideWithoutSynthesisCall(t *testing.T) {
	gen := &scriptedGenerator{replies: map[string]string{
		"Which table should be used?": "complaints",
		"Classify":                    "data_query",
		"data analyst":                "**Insight & Recommendation:** Delivery complaints dominate.",
	}}
	exec := &fakeExecutor{result: store.ResultSet{
		Columns: []string{"delivery_complaints", "returns_complaints"},
		Rows:    [][]any{{int64(12), int64(4)}},
	}}

	resp := newTestOrchestrator(gen, exec).Ask(context.Background(), "how many complaints are about delivery")
	if resp.Error != "" {
		t.Fatalf("unexpected error: %q", resp.Error)
	}
	if resp.ResultsHTML == "" || resp.Insights == "" {
		t.Fatalf("expected results and insights, got %+v", resp)
	}
	if got := gen.promptsContaining("Postgres Expert"); got != 0 {
		t.Fatalf("synthesis model called %d times on override path", got)
	}
	if len(exec.executed) != 1 || !strings.Contains(exec.executed[0], "delivery_complaints") {
		t.Fatalf("executed sql = %v", exec.executed)
	}
}

func TestAskGeneralQuestionShortCircuitsWithRefusal(t *testing.T) {
	gen := &scriptedGenerator{replies: map[string]string{
		"Which table should be used?": "processed_product_reviews3",
		"Classify":                    "general_question",
	}}
	exec := &fakeExecutor{}

	resp := newTestOrchestrator(gen, exec).Ask(context.Background(), "what is the weather today")
	if resp.Insights != RefusalMessage {
		t.Fatalf("Insights = %q, want fixed refusal", resp.Insights)
	}
	if resp.ResultsHTML != "" || resp.Error != "" {
		t.Fatalf("refusal response carries extra branches: %+v", resp)
	}
	if len(exec.executed) != 0 {
		t.Fatal("SQL executed for a general question")
	}
	if got := gen.promptsContaining("Postgres Expert"); got != 0 {
		t.Fatal("synthesis attempted for a general question")
	}
}

func TestAskSynthesisErrorSentinelYieldsGuidance(t *testing.T) {
	gen := &scriptedGenerator{replies: map[string]string{
		"Which table should be used?": "processed_product_reviews3",
		"Classify":                    "data_query",
		"Postgres Expert":             "ERROR",
	}}
	exec := &fakeExecutor{}

	resp := newTestOrchestrator(gen, exec).Ask(context.Background(), "count reviews by category")
	if resp.Error == "" {
		t.Fatalf("expected error branch, got %+v", resp)
	}
	if !strings.Contains(resp.Error, "Specifying exactly which columns") {
		t.Fatalf("guidance text = %q", resp.Error)
	}
	if len(exec.executed) != 0 {
		t.Fatal("rejected SQL reached the executor")
	}
}

func TestAskGuidanceMentionsDateHintForMonthQuestions(t *testing.T) {
	gen := &scriptedGenerator{replies: map[string]string{
		"Which table should be used?": "processed_product_reviews3",
		"Classify":                    "data_query",
		"Postgres Expert":             "I cannot answer that",
	}}
	resp := newTestOrchestrator(gen, &fakeExecutor{}).Ask(context.Background(), "scores by month")
	if !strings.Contains(resp.Error, "simpler date references") {
		t.Fatalf("guidance missing date hint: %q", resp.Error)
	}
}

func TestAskEmptyResultNamesRoutedTable(t *testing.T) {
	gen := &scriptedGenerator{replies: map[string]string{
		"Which table should be used?": "the formatted dataset",
		"Classify":                    "data_query",
		"Postgres Expert":             `SELECT "Attribute" FROM "Formatted_Review_dataset" WHERE LOWER("Reason") LIKE '%teleport%'`,
	}}
	exec := &fakeExecutor{result: store.ResultSet{Columns: []string{"Attribute"}}}

	resp := newTestOrchestrator(gen, exec).Ask(context.Background(), "reviews that mention format teleport")
	if resp.Error != "" || resp.ResultsHTML != "" {
		t.Fatalf("expected informational response, got %+v", resp)
	}
	if !strings.Contains(resp.Insights, "returned no results") {
		t.Fatalf("Insights = %q", resp.Insights)
	}
	if !strings.Contains(resp.Insights, schema.TableFormattedReviews) {
		t.Fatalf("empty-result message does not name the routed table: %q", resp.Insights)
	}
}

func TestAskSuccessCarriesResultsAndCleanedInsights(t *testing.T) {
	gen := &scriptedGenerator{replies: map[string]string{
		"Which table should be used?": "processed_product_reviews3",
		"Classify":                    "data_query",
		"Postgres Expert":             `SELECT "Category", COUNT(*) AS count FROM processed_product_reviews3 GROUP BY "Category"`,
		"data analyst":                "Okay, ready to help!\n**Insight & Recommendation:** Dresses lead review volume.",
	}}
	exec := &fakeExecutor{result: store.ResultSet{
		Columns: []string{"Category", "count"},
		Rows:    [][]any{{"Dresses", int64(120)}, {"Tops", int64(80)}},
	}}

	resp := newTestOrchestrator(gen, exec).Ask(context.Background(), "count reviews by category")
	if resp.Error != "" {
		t.Fatalf("unexpected error: %q", resp.Error)
	}
	if !strings.Contains(resp.ResultsHTML, "<table") {
		t.Fatalf("ResultsHTML = %q", resp.ResultsHTML)
	}
	if !strings.HasPrefix(resp.Insights, "**Insight & Recommendation:**") {
		t.Fatalf("Insights not cleaned of preamble: %q", resp.Insights)
	}
}

func TestAskInsightPromptCapsRowsAtTen(t *testing.T) {
	rows := make([][]any, 25)
	for i := range rows {
		rows[i] = []any{"Dresses", int64(i)}
	}
	gen := &scriptedGenerator{replies: map[string]string{
		"Which table should be used?": "processed_product_reviews3",
		"Classify":                    "data_query",
		"Postgres Expert":             `SELECT "Category", COUNT(*) AS count FROM processed_product_reviews3 GROUP BY "Category"`,
		"data analyst":                "**Insight & Recommendation:** fine.",
	}}
	exec := &fakeExecutor{result: store.ResultSet{Columns: []string{"Category", "count"}, Rows: rows}}

	resp := newTestOrchestrator(gen, exec).Ask(context.Background(), "count reviews by category")
	if resp.Error != "" {
		t.Fatalf("unexpected error: %q", resp.Error)
	}
	var insightPrompt string
	for _, prompt := range gen.prompts {
		if strings.Contains(prompt, "data analyst") {
			insightPrompt = prompt
		}
	}
	// Header line plus at most ten data lines inside the prompt block.
	dataLines := 0
	for _, line := range strings.Split(insightPrompt, "\n") {
		if strings.HasPrefix(line, "Dresses | ") {
			dataLines++
		}
	}
	if dataLines != promptRowLimit {
		t.Fatalf("insight prompt carries %d rows, want %d", dataLines, promptRowLimit)
	}
	// Display output still renders every row.
	if got := strings.Count(resp.ResultsHTML, "<tr style='background:#"); got != len(rows) {
		t.Fatalf("html rows = %d, want %d", got, len(rows))
	}
}

func TestAskRecoversFromPanic(t *testing.T) {
	gen := &scriptedGenerator{replies: map[string]string{
		"Which table should be used?": "processed_product_reviews3",
		"Classify":                    "data_query",
		"Postgres Expert":             "SELECT 1",
	}}
	orch := newTestOrchestrator(gen, &fakeExecutor{})
	orch.executor = panickyExecutor{}

	resp := orch.Ask(context.Background(), "count reviews")
	if !strings.Contains(resp.Error, "An unexpected error occurred") {
		t.Fatalf("Error = %q", resp.Error)
	}
}

type panickyExecutor struct{}

func (panickyExecutor) Execute(context.Context, string) store.ResultSet {
	panic("connection pool exhausted")
}
