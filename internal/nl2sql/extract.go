package nl2sql

import (
	"slices"
	"strings"
)

type ExtractOptions struct {
	// StripFences removes a surrounding markdown code fence, with or without
	// a language tag, before the SQL is returned.
	StripFences bool
}

// Extract returns the trimmed content of the first choice. It does not touch
// markdown fences; see ExtractWith.
func Extract(resp CompletionResponse) (string, error) {
	return ExtractWith(resp, ExtractOptions{})
}

func ExtractWith(resp CompletionResponse, opts ExtractOptions) (string, error) {
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == nil {
		return "", newError(ErrNoQueryGenerated, StageExtraction, nil)
	}
	sql := strings.TrimSpace(*resp.Choices[0].Message.Content)
	if opts.StripFences {
		sql = stripMarkdownFence(sql)
	}
	if sql == "" {
		return "", newError(ErrNoQueryGenerated, StageExtraction, nil)
	}
	return sql, nil
}

func stripMarkdownFence(value string) string {
	trimmed := strings.TrimSpace(value)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := strings.TrimPrefix(trimmed, "```")
	newline := strings.IndexByte(body, '\n')
	if newline < 0 {
		// Single line such as ```SELECT 1```.
		return strings.TrimSpace(strings.TrimSuffix(body, "```"))
	}
	if tag := strings.TrimSpace(body[:newline]); tag == "" || isFenceTag(tag) {
		body = body[newline+1:]
	}
	body = strings.TrimSpace(body)
	body = strings.TrimSuffix(body, "```")
	return strings.TrimSpace(body)
}

// fenceTags are the language tags recognized after an opening fence,
// compared case-insensitively. Any other first line is kept as SQL.
var fenceTags = []string{"sql", "duckdb", "postgres", "postgresql", "psql", "pgsql", "sqlite", "mysql", "ansi"}

func isFenceTag(value string) bool {
	return slices.ContainsFunc(fenceTags, func(tag string) bool {
		return strings.EqualFold(tag, value)
	})
}
