// Package tickers reads the ticker list that drives ingestion.
package tickers

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Parse reads one ticker per line. The first line is a header and is
// skipped; surrounding whitespace is trimmed and blank lines are dropped.
func Parse(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	out := make([]string, 0)
	header := true
	for scanner.Scan() {
		if header {
			header = false
			continue
		}
		ticker := strings.TrimSpace(scanner.Text())
		if ticker == "" {
			continue
		}
		out = append(out, ticker)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read tickers: %w", err)
	}
	return out, nil
}

func ReadFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open tickers file: %w", err)
	}
	defer func() { _ = file.Close() }()
	return Parse(file)
}
