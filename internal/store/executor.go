// Package store runs generated SQL against Postgres and owns the single
// serialization boundary between driver-native values and the portable
// scalars the rest of the pipeline sees.
package store

import (
	"context"
	"database/sql"
	"log/slog"
	"strconv"
	"time"

	"github.com/reviewlens/reviewlens/internal/observability"
)

// isoLayout matches the text form dates take everywhere downstream.
const isoLayout = "2006-01-02T15:04:05"

// ResultSet is an ordered row set. All rows share the column list in the
// same order; it may be empty.
type ResultSet struct {
	Columns []string
	Rows    [][]any
}

func (rs ResultSet) Empty() bool {
	return len(rs.Rows) == 0
}

// Limit returns a copy capped to the first n rows.
func (rs ResultSet) Limit(n int) ResultSet {
	if n < 0 || n >= len(rs.Rows) {
		return rs
	}
	return ResultSet{Columns: rs.Columns, Rows: rs.Rows[:n]}
}

type Executor struct {
	db      *sql.DB
	logger  *slog.Logger
	timeout time.Duration
}

func NewExecutor(db *sql.DB, logger *slog.Logger, timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Executor{db: db, logger: logger, timeout: timeout}
}

// Execute runs one statement on a pooled connection scoped to this call.
// Execution faults are expected (the SQL comes from best-effort synthesis):
// they are logged and degraded to an empty result set, never returned as
// errors. Every scalar is normalized before the set leaves this package.
func (e *Executor) Execute(ctx context.Context, sqlText string) ResultSet {
	queryCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	rows, err := e.db.QueryContext(queryCtx, sqlText)
	if err != nil {
		e.failSoft(ctx, sqlText, err)
		return ResultSet{}
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		e.failSoft(ctx, sqlText, err)
		return ResultSet{}
	}
	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		e.failSoft(ctx, sqlText, err)
		return ResultSet{}
	}
	typeNames := make([]string, len(columns))
	for i, ct := range columnTypes {
		typeNames[i] = ct.DatabaseTypeName()
	}

	result := ResultSet{Columns: columns, Rows: make([][]any, 0)}
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			e.failSoft(ctx, sqlText, err)
			return ResultSet{}
		}
		for i, value := range values {
			values[i] = normalizeValue(value, typeNames[i])
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		e.failSoft(ctx, sqlText, err)
		return ResultSet{}
	}
	return result
}

func (e *Executor) failSoft(ctx context.Context, sqlText string, err error) {
	observability.IncrementSQLExecutionFailure()
	if e.logger != nil {
		e.logger.WarnContext(ctx, "sql execution degraded to empty result",
			slog.String("sql", sqlText),
			slog.Any("error", err),
		)
	}
}

// normalizeValue maps driver-native values onto the portable scalar set
// {string, int64, float64, bool, nil, ISO-8601 text}. Numeric/decimal
// columns arrive as []byte from the pgx stdlib driver and become float64;
// []byte from text columns stays text even when it parses as a number.
// Timestamps become ISO text. The mapping is stable across runs.
func normalizeValue(value any, typeName string) any {
	switch v := value.(type) {
	case nil:
		return nil
	case time.Time:
		return v.Format(isoLayout)
	case []byte:
		text := string(v)
		if numericTypes[typeName] {
			if f, err := strconv.ParseFloat(text, 64); err == nil {
				return f
			}
		}
		return text
	case float32:
		return float64(v)
	case int:
		return int64(v)
	case int32:
		return int64(v)
	default:
		return v
	}
}

// numericTypes lists the Postgres type names whose values may be delivered
// as raw bytes by the stdlib driver.
var numericTypes = map[string]bool{
	"NUMERIC": true,
	"DECIMAL": true,
	"FLOAT4":  true,
	"FLOAT8":  true,
	"INT2":    true,
	"INT4":    true,
	"INT8":    true,
	"MONEY":   true,
}
