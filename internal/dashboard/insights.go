package dashboard

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/reviewlens/reviewlens/internal/format"
	"github.com/reviewlens/reviewlens/internal/store"
)

// Summarizer turns one analyst prompt into narrative text.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

const (
	socialPage1Prompt = "System: Senior Product Manager. Analyze Social Data (Raw Reviews + Formatted Data): Total: %v, Pie: %s, Bar: %s, Age: %s, Scatter: %s, Matrix: %s. Task: 3 Key Insights."
	socialPage2Prompt = "System: Customer Experience Manager. Analyze: Reviews: %v, Text: %s, Perf: %s. Task: Key Insights linking feedback to performance."
	trendPage1Prompt  = "System: Market Trend Analyst. Analyze the monthly sentiment trends data provided. Task: Identify seasonal trends, anomalies, and patterns. Provide 2-3 key insights with actionable recommendations."
	trendPage2Prompt  = "System: Strategic Analyst. Analyze the quarterly performance data provided. Task: Identify trajectory changes, attribute performance gaps, and strategic opportunities. Provide 2-3 key insights."
	complaintPrompt   = "System: Senior CX Manager. Analyze Complaints Data: %s, %s. Task: Identify Critical Clusters."
)

type InsightComposer struct {
	summarizer Summarizer
}

func NewInsightComposer(summarizer Summarizer) *InsightComposer {
	return &InsightComposer{summarizer: summarizer}
}

// Compose renders the bundle into one or two analyst prompts and joins the
// summaries into a single labelled narrative. Two-page dashboards run their
// summaries concurrently; one model failure fails the whole composition.
func (c *InsightComposer) Compose(ctx context.Context, bundle Bundle) (string, error) {
	switch bundle.Dashboard {
	case Social:
		page1 := fmt.Sprintf(socialPage1Prompt,
			bundle.Total,
			toJSON(pieWithShares(bundle)),
			toJSON(rowsAsMaps(bundle.Metrics["bar"])),
			toJSON(rowsAsMaps(bundle.Metrics["age"])),
			toJSON(rowsAsMaps(bundle.Metrics["scatter"])),
			toJSON(rowsAsMaps(bundle.Metrics["matrix"])),
		)
		page2 := fmt.Sprintf(socialPage2Prompt,
			bundle.Total,
			toJSON(rowsAsMaps(bundle.Metrics["text"])),
			toJSON(rowsAsMaps(bundle.Metrics["perf"])),
		)
		return c.pair(ctx, "**Page 1:**", page1, "**Page 2:**", page2)
	case Trend:
		page1 := fmt.Sprintf("%s\n\nMonthly Sentiment Trends Data:\n%s\n\nProvide analysis starting with key insights.",
			trendPage1Prompt, textOrPlaceholder(bundle.Metrics["line"]))
		page2 := fmt.Sprintf("%s\n\nQuarterly Performance Data:\n%s\n\nProvide analysis starting with key insights.",
			trendPage2Prompt, textOrPlaceholder(bundle.Metrics["pivot"]))
		return c.pair(ctx, "**Monthly:**", page1, "**Quarterly:**", page2)
	case Complaint:
		prompt := fmt.Sprintf(complaintPrompt,
			toJSON(rowsAsMaps(bundle.Metrics["top"])),
			toJSON(rowsAsMaps(bundle.Metrics["matrix"])),
		)
		return c.summarizer.Summarize(ctx, prompt)
	default:
		return "", fmt.Errorf("unknown dashboard %q", bundle.Dashboard)
	}
}

// pair runs two summaries concurrently and joins them under their labels
// with a horizontal divider.
func (c *InsightComposer) pair(ctx context.Context, label1, prompt1, label2, prompt2 string) (string, error) {
	var first, second string
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		first, err = c.summarizer.Summarize(groupCtx, prompt1)
		return err
	})
	group.Go(func() error {
		var err error
		second, err = c.summarizer.Summarize(groupCtx, prompt2)
		return err
	})
	if err := group.Wait(); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s\n%s\n\n---\n\n%s\n%s", label1, first, label2, second), nil
}

// pieWithShares re-attaches the derived percentage to each pie row so the
// model sees the distribution the way the dashboard renders it.
func pieWithShares(bundle Bundle) []map[string]any {
	rows := rowsAsMaps(bundle.Metrics["pie"])
	for i := range rows {
		if i < len(bundle.Shares) {
			rows[i]["percentage"] = bundle.Shares[i].Percent
		}
	}
	return rows
}

func rowsAsMaps(rs store.ResultSet) []map[string]any {
	out := make([]map[string]any, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		entry := make(map[string]any, len(rs.Columns))
		for i, column := range rs.Columns {
			entry[column] = row[i]
		}
		out = append(out, entry)
	}
	return out
}

func toJSON(rows []map[string]any) string {
	encoded, err := json.Marshal(rows)
	if err != nil {
		return "[]"
	}
	return string(encoded)
}

func textOrPlaceholder(rs store.ResultSet) string {
	if rs.Empty() {
		return "No data available"
	}
	return format.ToText(rs)
}
