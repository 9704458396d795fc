package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/reviewlens/reviewlens/internal/schema"
	"github.com/reviewlens/reviewlens/internal/store"
)

// scriptedGenerator answers each prompt by matching a marker substring,
// recording every prompt it sees.
type scriptedGenerator struct {
	replies map[string]string
	err     error
	prompts []string
}

func (g *scriptedGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	for marker, reply := range g.replies {
		if strings.Contains(prompt, marker) {
			return reply, nil
		}
	}
	return "", errors.New("no scripted reply for prompt")
}

func (g *scriptedGenerator) promptsContaining(marker string) int {
	count := 0
	for _, prompt := range g.prompts {
		if strings.Contains(prompt, marker) {
			count++
		}
	}
	return count
}

type fakeExecutor struct {
	result   store.ResultSet
	executed []string
}

func (f *fakeExecutor) Execute(_ context.Context, sqlText string) store.ResultSet {
	f.executed = append(f.executed, sqlText)
	return f.result
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestRouterKeywordNormalization(t *testing.T) {
	cases := []struct {
		reply string
		want  string
	}{
		{"processed_product_reviews3", schema.TableProcessedReviews},
		{"The product reviews table fits best.", schema.TableProcessedReviews},
		// "review" wins over "format": the literal reply for the formatted
		// table still lands on the primary reviews table.
		{"Formatted_Review_dataset", schema.TableProcessedReviews},
		{"use the formatted dataset", schema.TableFormattedReviews},
		{"complaints", schema.TableComplaints},
		{`"complaints"`, schema.TableComplaints},
		{"orders", schema.DefaultTable},
		{"", schema.DefaultTable},
	}
	for _, tc := range cases {
		gen := &scriptedGenerator{replies: map[string]string{"Which table should be used?": tc.reply}}
		router := NewRouter(schema.NewRegistry(), gen, testLogger())
		decision := router.Route(context.Background(), "some question")
		if decision.TableID != tc.want {
			t.Fatalf("Route() with reply %q = %q, want %q", tc.reply, decision.TableID, tc.want)
		}
	}
}

func TestRouterDefaultsOnModelError(t *testing.T) {
	gen := &scriptedGenerator{err: errors.New("model unavailable")}
	router := NewRouter(schema.NewRegistry(), gen, testLogger())
	decision := router.Route(context.Background(), "anything")
	if decision.TableID != schema.DefaultTable {
		t.Fatalf("Route() = %q, want default", decision.TableID)
	}
}

func TestClassifierSubstringMatch(t *testing.T) {
	gen := &scriptedGenerator{replies: map[string]string{"Classify": "That is clearly a GENERAL_QUESTION."}}
	classifier := NewClassifier(gen, testLogger())
	if got := classifier.Classify(context.Background(), "what is the weather today"); got != IntentGeneralQuestion {
		t.Fatalf("Classify() = %q, want general_question", got)
	}
}

func TestClassifierLetsDataQueriesThrough(t *testing.T) {
	gen := &scriptedGenerator{replies: map[string]string{"Classify": "data_query"}}
	classifier := NewClassifier(gen, testLogger())
	if got := classifier.Classify(context.Background(), "count reviews by category"); got != IntentDataQuery {
		t.Fatalf("Classify() = %q, want data_query", got)
	}
}

func TestSynthesizerDeliveryOverrideSkipsModel(t *testing.T) {
	gen := &scriptedGenerator{}
	synth := NewSynthesizer(schema.NewRegistry(), gen)
	sql, err := synth.Synthesize(context.Background(), "how many complaints are about delivery", schema.TableComplaints)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if !strings.Contains(sql, "delivery_complaints") || !strings.Contains(sql, "returns_complaints") {
		t.Fatalf("override sql = %q", sql)
	}
	if len(gen.prompts) != 0 {
		t.Fatalf("model called %d times for override path", len(gen.prompts))
	}
}

func TestSynthesizerModelPathSanitizesReply(t *testing.T) {
	gen := &scriptedGenerator{replies: map[string]string{
		"Postgres Expert": "```sql\nSELECT \"Category\", COUNT(*) AS count FROM processed_product_reviews3 GROUP BY \"Category\"\n```",
	}}
	synth := NewSynthesizer(schema.NewRegistry(), gen)
	sql, err := synth.Synthesize(context.Background(), "count reviews by category", schema.TableProcessedReviews)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if strings.Contains(sql, "```") {
		t.Fatalf("sql still fenced: %q", sql)
	}
	if !strings.HasPrefix(sql, "SELECT") {
		t.Fatalf("sql = %q", sql)
	}
}

func TestSynthesizerPromptCarriesTableRules(t *testing.T) {
	gen := &scriptedGenerator{replies: map[string]string{"Postgres Expert": "SELECT 1"}}
	synth := NewSynthesizer(schema.NewRegistry(), gen)
	if _, err := synth.Synthesize(context.Background(), "anything", schema.TableComplaints); err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	prompt := gen.prompts[0]
	if !strings.Contains(prompt, "- Table: complaints") {
		t.Fatalf("prompt missing complaints rules:\n%s", prompt)
	}
	if !strings.Contains(prompt, "respond with 'ERROR'") {
		t.Fatalf("prompt missing ERROR mandate:\n%s", prompt)
	}
}

func TestCleanReplyStripsPreamble(t *testing.T) {
	raw := "Okay, here is the analysis you asked for.\n\n**Insight & Recommendation:** Comfort dominates.\n- follow up"
	got := CleanReply(raw)
	if !strings.HasPrefix(got, "**Insight & Recommendation:**") {
		t.Fatalf("CleanReply() = %q", got)
	}
}

func TestCleanReplyStripsFences(t *testing.T) {
	raw := "```markdown\n1. First insight\n```"
	if got := CleanReply(raw); got != "1. First insight" {
		t.Fatalf("CleanReply() = %q", got)
	}
}

func TestCleanReplyReturnsVerbatimWithoutStructure(t *testing.T) {
	raw := "nothing structured here\njust plain text"
	if got := CleanReply(raw); got != raw {
		t.Fatalf("CleanReply() = %q", got)
	}
}
