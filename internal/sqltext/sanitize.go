// Package sqltext cleans model-produced text into an executable SELECT
// statement and enforces the invariants generated SQL must satisfy before
// it is allowed near the database.
package sqltext

import (
	"errors"
	"regexp"
	"strings"
)

// ErrNoSelect marks replies that contain no SELECT statement at all.
var ErrNoSelect = errors.New("generated text contains no SELECT statement")

// ErrModelRefused marks replies carrying the literal ERROR sentinel the
// synthesis prompt instructs the model to emit when no valid query exists.
var ErrModelRefused = errors.New("model declined to generate a query")

var (
	fencePattern  = regexp.MustCompile("(?i)```sql\n?")
	selectPattern = regexp.MustCompile(`(?is)(SELECT\s.*)`)
)

// Sanitize strips Markdown code fences and extracts the first substring
// starting at a SELECT token through the end of the text. Chatty prose
// before the statement is discarded. When no SELECT exists the stripped
// original is returned unchanged; Validate rejects it afterwards.
func Sanitize(raw string) string {
	cleaned := fencePattern.ReplaceAllString(raw, "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	if match := selectPattern.FindStringSubmatch(cleaned); match != nil {
		return strings.TrimSpace(match[1])
	}
	return strings.TrimSpace(cleaned)
}

// Validate enforces the generated-SQL contract: the text must begin with a
// SELECT token and must not carry the ERROR sentinel. SQL failing either
// check must never reach the executor.
func Validate(sql string) error {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return ErrNoSelect
	}
	if strings.Contains(trimmed, "ERROR") {
		return ErrModelRefused
	}
	if !strings.HasPrefix(strings.ToLower(trimmed), "select") {
		return ErrNoSelect
	}
	return nil
}
