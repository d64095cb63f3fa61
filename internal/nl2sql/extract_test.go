package nl2sql

import (
	"errors"
	"testing"
)

func response(contents ...*string) CompletionResponse {
	resp := CompletionResponse{}
	for _, content := range contents {
		resp.Choices = append(resp.Choices, Choice{Message: ChoiceMessage{Content: content}})
	}
	return resp
}

func text(value string) *string {
	return &value
}

func TestExtractTrimsFirstChoice(t *testing.T) {
	got, err := Extract(response(text("\n  SELECT ticker FROM financials.quarterly  \n"), text("SELECT 2")))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got != "SELECT ticker FROM financials.quarterly" {
		t.Fatalf("Extract() = %q", got)
	}
}

func TestExtractNoQueryGenerated(t *testing.T) {
	cases := map[string]CompletionResponse{
		"no choices":      {},
		"nil content":     response(nil),
		"empty content":   response(text("")),
		"whitespace only": response(text("   \n\t  ")),
	}
	for name, resp := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Extract(resp)
			if !errors.Is(err, ErrNoQueryGenerated) {
				t.Fatalf("Extract() error = %v, want ErrNoQueryGenerated", err)
			}
		})
	}
}

func TestExtractLeavesFencesByDefault(t *testing.T) {
	got, err := Extract(response(text("```sql\nSELECT 1;\n```")))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got != "```sql\nSELECT 1;\n```" {
		t.Fatalf("Extract() = %q", got)
	}
}

func TestExtractWithStripFences(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"```sql\nSELECT 1;\n```", "SELECT 1;"},
		{"```SQL\nSELECT 1\n```", "SELECT 1"},
		{"```duckdb\nSELECT 1\n```", "SELECT 1"},
		{"```\nSELECT 1\n```", "SELECT 1"},
		{"```SELECT 1```", "SELECT 1"},
		{"SELECT 1", "SELECT 1"},
		{"```sql\nSELECT a,\n  b\nFROM t\n```", "SELECT a,\n  b\nFROM t"},
		{"```PostgreSQL\nSELECT 1\n```", "SELECT 1"},
		{"```SELECT\n  ticker\nFROM financials.quarterly\n```", "SELECT\n  ticker\nFROM financials.quarterly"},
		{"```WITH\nq AS (SELECT 1)\nSELECT * FROM q\n```", "WITH\nq AS (SELECT 1)\nSELECT * FROM q"},
	}
	for _, tc := range cases {
		got, err := ExtractWith(response(text(tc.in)), ExtractOptions{StripFences: true})
		if err != nil {
			t.Fatalf("ExtractWith(%q) error = %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ExtractWith(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestExtractWithEmptyFence(t *testing.T) {
	_, err := ExtractWith(response(text("```sql\n```")), ExtractOptions{StripFences: true})
	if !errors.Is(err, ErrNoQueryGenerated) {
		t.Fatalf("ExtractWith() error = %v", err)
	}
}
