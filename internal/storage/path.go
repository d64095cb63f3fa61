package storage

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// StatementPrefix is the object key prefix under which every ticker's
// quarterly statement files are written.
const StatementPrefix = "financials/quarterly"

var pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// BuildStatementFilePath returns the object key for one ticker's statements
// written by an ingest run, for example
// financials/quarterly/ticker=AAPL/part-<run>.parquet.
func BuildStatementFilePath(ticker, runID string) (string, error) {
	if err := validatePathComponent(ticker, "ticker"); err != nil {
		return "", err
	}
	if err := validatePathComponent(runID, "run id"); err != nil {
		return "", err
	}
	return path.Join(
		TickerPrefix(ticker),
		fmt.Sprintf("part-%s.parquet", runID),
	), nil
}

func TickerPrefix(ticker string) string {
	return path.Join(StatementPrefix, "ticker="+ticker)
}

// TickerFromPath extracts the ticker from a key produced by
// BuildStatementFilePath.
func TickerFromPath(key string) (string, bool) {
	rest, ok := strings.CutPrefix(key, StatementPrefix+"/ticker=")
	if !ok {
		return "", false
	}
	ticker, _, ok := strings.Cut(rest, "/")
	if !ok || ticker == "" {
		return "", false
	}
	return ticker, true
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) || strings.Contains(value, "..") {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
