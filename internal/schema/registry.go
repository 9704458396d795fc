// Package schema holds the static catalog of analytic tables the service
// knows how to query. The registry is built once at process start and is
// read-only afterwards.
package schema

import (
	"fmt"
	"strings"
)

// Table identifiers. These match the physical Postgres table names,
// including the historical mixed-case ones that must stay quoted in SQL.
const (
	TableProcessedReviews = "processed_product_reviews3"
	TableFormattedReviews = "Formatted_Review_dataset"
	TableComplaints       = "complaints"
	TableAmazonReviews    = "amazon_reviews"
	TableRawReviews       = "raw_product_reviews"
)

// DefaultTable is where ambiguous questions are routed.
const DefaultTable = TableProcessedReviews

type Column struct {
	Name string
	Type string
}

type TableDescriptor struct {
	ID          string
	DisplayName string
	Columns     []Column
	// RoutingHint is the one-line purpose shown to the router model.
	RoutingHint string
	// Rules is the hand-authored SQL synthesis guidance for this table.
	// Empty for tables that are never routed to directly.
	Rules string
}

// Schema renders the column list the way the insight prompt expects it.
func (d TableDescriptor) Schema() string {
	parts := make([]string, 0, len(d.Columns))
	for _, col := range d.Columns {
		parts = append(parts, fmt.Sprintf("%q (%s)", col.Name, col.Type))
	}
	return strings.Join(parts, ", ")
}

type Registry struct {
	tables []TableDescriptor
	byID   map[string]TableDescriptor
}

func NewRegistry() *Registry {
	tables := []TableDescriptor{
		{
			ID:          TableProcessedReviews,
			DisplayName: "Processed Product Reviews",
			Columns: []Column{
				{Name: "reviewerID", Type: "TEXT"},
				{Name: "ReviewTime", Type: "TIMESTAMP"},
				{Name: "Category", Type: "TEXT"},
				{Name: "Attribute", Type: "TEXT"},
				{Name: "Score", Type: "INTEGER"},
				{Name: "Reason", Type: "TEXT"},
				{Name: "Sortable Date", Type: "INTEGER"},
			},
			RoutingHint: "For product reviews and feedback",
			Rules: `- Table: processed_product_reviews3
- Key columns: "Category" (product category), "Attribute" (product feature), "Score" (rating), "Reason" (review text), "reviewerID", "ReviewTime" (TIMESTAMP)
- For text search about features (e.g., color, design, quality): Use WHERE LOWER("Reason") LIKE '%keyword%'
- For category grouping: Use GROUP BY "Category"
- For counting: Use COUNT(*) AS count
- For date grouping (month/year): Cast EXTRACT results to integers to avoid decimals: CAST(EXTRACT(YEAR FROM "ReviewTime") AS INTEGER), CAST(EXTRACT(MONTH FROM "ReviewTime") AS INTEGER)
- Example for month/year: SELECT CAST(EXTRACT(YEAR FROM "ReviewTime") AS INTEGER) AS year, CAST(EXTRACT(MONTH FROM "ReviewTime") AS INTEGER) AS month, "Attribute", COUNT(*) AS count FROM "processed_product_reviews3" GROUP BY CAST(EXTRACT(YEAR FROM "ReviewTime") AS INTEGER), CAST(EXTRACT(MONTH FROM "ReviewTime") AS INTEGER), "Attribute" ORDER BY year, month, "Attribute"
- IMPORTANT: When searching for words with spelling variations (e.g., color vs colour), search for both: LOWER("Reason") LIKE '%color%' OR LOWER("Reason") LIKE '%colour%'`,
		},
		{
			ID:          TableFormattedReviews,
			DisplayName: "Formatted Review Dataset",
			Columns: []Column{
				{Name: "Review_id", Type: "INTEGER"},
				{Name: "Attribute", Type: "TEXT"},
				{Name: "Score", Type: "INTEGER"},
				{Name: "Reason", Type: "TEXT"},
			},
			RoutingHint: "For detailed review analysis",
			Rules: `- Table: Formatted_Review_dataset
- Key columns: "Review_id", "Attribute" (product feature), "Score" (rating), "Reason" (review text)
- For text search: Use WHERE LOWER("Reason") LIKE '%keyword%'
- For grouping by attributes: Use GROUP BY "Attribute"
- For counting by attribute: SELECT "Attribute", COUNT(*) AS count FROM "Formatted_Review_dataset" GROUP BY "Attribute"
- IMPORTANT: When searching for words with spelling variations, search for both spellings`,
		},
		{
			ID:          TableComplaints,
			DisplayName: "Complaints Data",
			Columns: []Column{
				{Name: "complaint_text", Type: "TEXT"},
				{Name: "predicted_category", Type: "TEXT"},
				{Name: "predicted_intensity_label", Type: "TEXT"},
				{Name: "predicted_intensity_score", Type: "INTEGER"},
				{Name: "prediction_timestamp", Type: "TIMESTAMP"},
				{Name: "customer_id", Type: "TEXT"},
				{Name: "order_id", Type: "TEXT"},
				{Name: "email_id", Type: "TEXT"},
			},
			RoutingHint: "For customer complaints data",
			Rules: `- Table: complaints
- Key columns: complaint_text (review text), predicted_category, predicted_intensity_label, predicted_intensity_score, prediction_timestamp (TIMESTAMP)
- For text search: Use WHERE LOWER(complaint_text) LIKE '%keyword%'
- For category analysis: Use GROUP BY predicted_category
- For date grouping: Cast EXTRACT results to integers: CAST(EXTRACT(YEAR FROM prediction_timestamp) AS INTEGER), CAST(EXTRACT(MONTH FROM prediction_timestamp) AS INTEGER)
- IMPORTANT: When searching for words with spelling variations, search for both spellings`,
		},
		{
			ID:          TableAmazonReviews,
			DisplayName: "Amazon Reviews",
			Columns: []Column{
				{Name: "reviewerID", Type: "TEXT"},
				{Name: "asin", Type: "TEXT"},
				{Name: "reviewText", Type: "TEXT"},
				{Name: "overall", Type: "INTEGER"},
				{Name: "summary", Type: "TEXT"},
				{Name: "reviewTime", Type: "TIMESTAMP"},
			},
		},
		{
			ID:          TableRawReviews,
			DisplayName: "Raw Reviews",
			Columns: []Column{
				{Name: "Review_id", Type: "INTEGER"},
				{Name: "Review_Text", Type: "TEXT"},
				{Name: "Division Name", Type: "TEXT"},
				{Name: "Department_Name", Type: "TEXT"},
				{Name: "Class Name", Type: "TEXT"},
				{Name: "Rating", Type: "INTEGER"},
				{Name: "Age", Type: "INTEGER"},
			},
		},
	}

	byID := make(map[string]TableDescriptor, len(tables))
	for _, table := range tables {
		byID[table.ID] = table
	}
	return &Registry{tables: tables, byID: byID}
}

// All returns descriptors in registration order.
func (r *Registry) All() []TableDescriptor {
	out := make([]TableDescriptor, len(r.tables))
	copy(out, r.tables)
	return out
}

func (r *Registry) Lookup(id string) (TableDescriptor, bool) {
	table, ok := r.byID[id]
	return table, ok
}

// Routable returns the subset of tables offered to the question router.
func (r *Registry) Routable() []TableDescriptor {
	out := make([]TableDescriptor, 0, len(r.tables))
	for _, table := range r.tables {
		if table.RoutingHint != "" {
			out = append(out, table)
		}
	}
	return out
}

// RuleSet returns the synthesis guidance for a table, falling back to a
// generic schema listing when no hand-authored rules exist.
func (r *Registry) RuleSet(id string) string {
	table, ok := r.byID[id]
	if !ok {
		return ""
	}
	if table.Rules != "" {
		return table.Rules
	}
	return fmt.Sprintf("- Table: %s\n- Schema: %s", table.ID, table.Schema())
}
