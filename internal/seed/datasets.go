package seed

import (
	"strconv"
	"strings"
	"time"
)

// FieldGetter returns the first non-empty value among column name variants.
type FieldGetter func(names ...string) string

// Dataset binds one CSV file to its target table. MapRow coerces one
// record into insert parameters; ok=false skips the record.
type Dataset struct {
	Table  string
	File   string
	Insert string
	MapRow func(get FieldGetter) (values []any, ok bool)
}

const (
	insertRawReviews = `INSERT INTO raw_product_reviews ("Review_id", "Clothing ID", "Age", "Review_Text",
	"Division Name", "Department_Name", "Class Name", "Title", "Rating")
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT ("Review_id") DO NOTHING`

	insertFormattedReviews = `INSERT INTO "Formatted_Review_dataset" ("Review_id", "Attribute", "Score", "Reason")
VALUES ($1, $2, $3, $4)`

	insertProcessedReviews = `INSERT INTO processed_product_reviews3 ("reviewerID", "ReviewTime", "Category",
	"Attribute", "Score", "Reason", "Sortable Date")
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	insertComplaints = `INSERT INTO complaints (complaint_text, predicted_category, predicted_intensity_label,
	predicted_intensity_score, prediction_timestamp, customer_id, order_id, email_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	insertAmazonReviews = `INSERT INTO amazon_reviews ("reviewerID", asin, "reviewerName", helpful, "reviewText",
	overall, summary, "unixReviewTime", "reviewTime")
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
)

func datasets(now func() time.Time) []Dataset {
	return []Dataset{
		{
			Table:  "raw_product_reviews",
			File:   "raw_product_reviews.csv",
			Insert: insertRawReviews,
			MapRow: func(get FieldGetter) ([]any, bool) {
				id := safeInt(get("Review_id", "Review ID", "id"))
				if id == nil {
					return nil, false
				}
				return []any{
					id,
					safeInt(get("Clothing ID", "Clothing Id")),
					safeInt(get("Age", "age")),
					get("Review_Text", "Review Text", "text"),
					get("Division Name", "Division"),
					get("Department_Name", "Department Name", "department"),
					get("Class Name", "Class"),
					get("Title", "title"),
					safeInt(get("Rating", "rating")),
				}, true
			},
		},
		{
			Table:  "Formatted_Review_dataset",
			File:   "Formatted_Review_dataset.csv",
			Insert: insertFormattedReviews,
			MapRow: func(get FieldGetter) ([]any, bool) {
				id := safeInt(get("Review_id", "Review ID"))
				if id == nil {
					return nil, false
				}
				return []any{
					id,
					get("Attribute", "attribute"),
					safeInt(get("Score", "score")),
					get("Reason", "reason"),
				}, true
			},
		},
		{
			Table:  "processed_product_reviews3",
			File:   "processed_product_reviews3.csv",
			Insert: insertProcessedReviews,
			MapRow: func(get FieldGetter) ([]any, bool) {
				return []any{
					get("reviewerID", "Review_id"),
					parseDate(get("ReviewTime", "Review Time", "time"), now),
					get("Category", "category"),
					get("Attribute", "attribute"),
					safeInt(get("Score", "score")),
					get("Reason", "reason"),
					safeInt(get("Sortable Date", "sortable_date")),
				}, true
			},
		},
		{
			Table:  "complaints",
			File:   "complaints.csv",
			Insert: insertComplaints,
			MapRow: func(get FieldGetter) ([]any, bool) {
				return []any{
					get("complaint_text", "Complaint Text"),
					get("predicted_category", "Category"),
					get("predicted_intensity_label", "Intensity Label"),
					safeInt(get("predicted_intensity_score", "Score")),
					parseDate(get("prediction_timestamp", "Timestamp"), now),
					get("customer_id", "Customer ID"),
					get("order_id", "Order ID"),
					get("email_id", "Email ID"),
				}, true
			},
		},
		{
			Table:  "amazon_reviews",
			File:   "amazon_reviews.csv",
			Insert: insertAmazonReviews,
			MapRow: func(get FieldGetter) ([]any, bool) {
				return []any{
					get("reviewerID", "Reviewer ID"),
					get("asin", "ASIN"),
					get("reviewerName", "Reviewer Name"),
					get("helpful", "Helpful"),
					get("reviewText", "Review Text"),
					safeInt(get("overall", "Overall", "Rating")),
					get("summary", "Summary"),
					safeInt(get("unixReviewTime", "Unix Time")),
					parseDate(get("reviewTime", "Review Time", "time"), now),
				}, true
			},
		},
	}
}

// safeInt converts through float so "4.0" still lands as 4. Unparseable
// values become NULL rather than failing the row.
func safeInt(raw string) any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return int64(parsed)
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01 2, 2006",
	"1/2/2006",
}

// parseDate falls back to the current time when the value is missing or
// unreadable, keeping the timestamp columns non-null.
func parseDate(raw string, now func() time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now()
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed
		}
	}
	return now()
}
