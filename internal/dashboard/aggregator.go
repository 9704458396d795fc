// Package dashboard builds the fixed analytic bundles behind the three
// built-in summary views and turns them into narrative insights.
package dashboard

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/reviewlens/reviewlens/internal/observability"
	"github.com/reviewlens/reviewlens/internal/store"
)

const (
	Social    = "social"
	Trend     = "trend"
	Complaint = "complaint"
)

// Executor is the query capability the aggregator runs its battery on.
type Executor interface {
	Execute(ctx context.Context, sqlText string) store.ResultSet
}

// Share is the one statistic derived outside SQL: a category's percentage
// of the bundle total, rounded to one decimal.
type Share struct {
	Category string  `json:"category"`
	Count    float64 `json:"count"`
	Percent  float64 `json:"percentage"`
}

// Bundle holds the raw and derived results for one dashboard identity.
// Built fresh on every request, never cached.
type Bundle struct {
	Dashboard string
	Total     float64
	Metrics   map[string]store.ResultSet
	Shares    []Share
}

// Queries per dashboard. Hand-authored; the two LEFT JOIN patterns over
// Review_id are the only joins the system performs.
const (
	socialPieSQL     = `SELECT "Attribute", COUNT(*) as count FROM "Formatted_Review_dataset" WHERE "Attribute" IS NOT NULL GROUP BY 1 ORDER BY 2 DESC`
	socialBarSQL     = `SELECT "Score", "Attribute", COUNT(*) as count FROM "Formatted_Review_dataset" WHERE "Attribute" IS NOT NULL AND "Score" IS NOT NULL GROUP BY 1, 2 ORDER BY 1 DESC, 3 DESC`
	socialAgeSQL     = `SELECT CASE WHEN "Age" BETWEEN 18 AND 25 THEN '18-25' WHEN "Age" BETWEEN 26 AND 35 THEN '26-35' WHEN "Age" BETWEEN 36 AND 50 THEN '36-50' ELSE '51+' END AS age_group, f."Attribute", AVG(f."Score") AS score FROM "Formatted_Review_dataset" f LEFT JOIN raw_product_reviews r ON f."Review_id" = r."Review_id" WHERE f."Attribute" IS NOT NULL AND f."Score" IS NOT NULL GROUP BY 1, 2`
	socialScatterSQL = `SELECT COALESCE(r."Department_Name", 'Unknown') AS department, COUNT(f."Review_id") AS num_reviews, AVG(f."Score") AS avg_score FROM "Formatted_Review_dataset" f LEFT JOIN raw_product_reviews r ON f."Review_id" = r."Review_id" WHERE f."Score" IS NOT NULL GROUP BY 1`
	socialMatrixSQL  = `SELECT COALESCE(r."Department_Name", 'Unknown') as "Department", f."Attribute", AVG(f."Score") as "Sentiment_Score", COUNT(f."Review_id") as "Volume" FROM "Formatted_Review_dataset" f LEFT JOIN raw_product_reviews r ON f."Review_id" = r."Review_id" WHERE f."Score" IS NOT NULL GROUP BY 1, 2 HAVING COUNT(f."Review_id") > 3 ORDER BY "Department", "Sentiment_Score" ASC`
	socialTextSQL    = `SELECT f."Attribute", COALESCE(r."Review_Text", 'No text') AS "Review_Text", f."Score" FROM "Formatted_Review_dataset" f LEFT JOIN raw_product_reviews r ON f."Review_id" = r."Review_id" WHERE f."Score" IS NOT NULL ORDER BY f."Score" DESC LIMIT 10`
	socialPerfSQL    = `SELECT COALESCE(r."Department_Name", 'Unknown') AS "Department", COUNT(f."Review_id") AS num_reviews, ROUND(AVG(f."Score"), 2) AS "Average_Score" FROM "Formatted_Review_dataset" f LEFT JOIN raw_product_reviews r ON f."Review_id" = r."Review_id" WHERE f."Score" IS NOT NULL GROUP BY 1 ORDER BY 2 DESC`

	trendLineSQL  = `SELECT TO_CHAR("ReviewTime", 'YYYY-MM') AS date, "Attribute", AVG("Score") AS score FROM processed_product_reviews3 WHERE "ReviewTime" IS NOT NULL GROUP BY 1, 2 ORDER BY 1, 2`
	trendPivotSQL = `SELECT CAST(EXTRACT(YEAR FROM "ReviewTime") AS VARCHAR) || '/Q' || CAST(EXTRACT(QUARTER FROM "ReviewTime") AS VARCHAR) AS "Quarter", AVG(CASE WHEN LOWER("Attribute") LIKE '%comfort%' THEN "Score" ELSE NULL END) AS "Comfort", AVG(CASE WHEN LOWER("Attribute") LIKE '%design%' THEN "Score" ELSE NULL END) AS "Design", AVG(CASE WHEN LOWER("Attribute") LIKE '%durability%' THEN "Score" ELSE NULL END) AS "Durability", AVG(CASE WHEN LOWER("Attribute") LIKE '%price%' THEN "Score" ELSE NULL END) AS "Price" FROM processed_product_reviews3 WHERE "ReviewTime" IS NOT NULL GROUP BY 1 ORDER BY 1`

	complaintCategorySQL  = `SELECT predicted_category, COUNT(*) as count FROM complaints GROUP BY 1 ORDER BY 2 DESC`
	complaintIntensitySQL = `SELECT predicted_intensity_label, COUNT(*) as count FROM complaints GROUP BY 1 ORDER BY 2 DESC`
	complaintTopSQL       = `SELECT predicted_category as "Category", complaint_text as "Issue", predicted_intensity_label as "Severity" FROM complaints ORDER BY prediction_timestamp DESC LIMIT 5`
	complaintMatrixSQL    = `SELECT predicted_category, predicted_intensity_label, COUNT(*) as count FROM complaints GROUP BY 1, 2 ORDER BY 1, 2`
)

var batteries = map[string]map[string]string{
	Social: {
		"pie":     socialPieSQL,
		"bar":     socialBarSQL,
		"age":     socialAgeSQL,
		"scatter": socialScatterSQL,
		"matrix":  socialMatrixSQL,
		"text":    socialTextSQL,
		"perf":    socialPerfSQL,
	},
	Trend: {
		"line":  trendLineSQL,
		"pivot": trendPivotSQL,
	},
	Complaint: {
		"cat_dist": complaintCategorySQL,
		"int_dist": complaintIntensitySQL,
		"top":      complaintTopSQL,
		"matrix":   complaintMatrixSQL,
	},
}

type Aggregator struct {
	executor Executor
}

func NewAggregator(executor Executor) *Aggregator {
	return &Aggregator{executor: executor}
}

// Build runs the dashboard's query battery and computes the derived
// statistics. The queries are independent and run concurrently, bounded
// only by the database pool.
func (a *Aggregator) Build(ctx context.Context, dashboard string) (Bundle, error) {
	battery, ok := batteries[dashboard]
	if !ok {
		return Bundle{}, fmt.Errorf("unknown dashboard %q", dashboard)
	}

	start := time.Now()
	defer func() { observability.ObserveDashboardBuild(dashboard, time.Since(start)) }()

	bundle := Bundle{Dashboard: dashboard, Metrics: make(map[string]store.ResultSet, len(battery))}

	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	for key, sqlText := range battery {
		group.Go(func() error {
			result := a.executor.Execute(groupCtx, sqlText)
			mu.Lock()
			bundle.Metrics[key] = result
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return Bundle{}, err
	}

	switch dashboard {
	case Social:
		bundle.Total = sumCounts(bundle.Metrics["pie"], "count")
		bundle.Shares = shares(bundle.Metrics["pie"], "Attribute", "count")
	case Complaint:
		bundle.Total = sumCounts(bundle.Metrics["cat_dist"], "count")
		bundle.Shares = shares(bundle.Metrics["cat_dist"], "predicted_category", "count")
	}
	return bundle, nil
}

// shares computes each category's percentage of the column total, rounded
// to one decimal. A zero total yields 0 for every category rather than a
// division fault.
func shares(rs store.ResultSet, categoryColumn, countColumn string) []Share {
	categoryIdx := columnIndex(rs, categoryColumn)
	countIdx := columnIndex(rs, countColumn)
	if categoryIdx < 0 || countIdx < 0 {
		return nil
	}

	total := sumCounts(rs, countColumn)
	out := make([]Share, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		count := asFloat(row[countIdx])
		percent := 0.0
		if total > 0 {
			percent = math.Round(count/total*1000) / 10
		}
		out = append(out, Share{
			Category: fmt.Sprintf("%v", row[categoryIdx]),
			Count:    count,
			Percent:  percent,
		})
	}
	return out
}

func sumCounts(rs store.ResultSet, countColumn string) float64 {
	idx := columnIndex(rs, countColumn)
	if idx < 0 {
		return 0
	}
	total := 0.0
	for _, row := range rs.Rows {
		total += asFloat(row[idx])
	}
	return total
}

func columnIndex(rs store.ResultSet, name string) int {
	for i, column := range rs.Columns {
		if column == name {
			return i
		}
	}
	return -1
}

func asFloat(value any) float64 {
	switch v := value.(type) {
	case int64:
		return float64(v)
	case float64:
		return v
	default:
		return 0
	}
}
