package nl2sql

import (
	"strings"
	"testing"

	"github.com/tickerql/tickerql/internal/schema"
)

func TestBuildPromptIsDeterministic(t *testing.T) {
	desc := DefaultDescriptor()
	first := BuildPrompt(desc, "What AI stocks have the highest revenue")
	second := BuildPrompt(desc, "What AI stocks have the highest revenue")
	if first != second {
		t.Fatal("BuildPrompt() differs across calls")
	}
}

func TestBuildPromptListsEveryField(t *testing.T) {
	prompt := BuildPrompt(DefaultDescriptor(), "q")
	for _, field := range schema.Quarterly() {
		entry := `{"name": "` + field.Name + `", "type": "` + string(field.Type) + `"}`
		if !strings.Contains(prompt.System, entry) {
			t.Fatalf("system prompt missing %s", entry)
		}
	}
}

func TestBuildPromptContract(t *testing.T) {
	prompt := BuildPrompt(DefaultDescriptor(), "Which company had the largest net income?")

	for _, want := range []string{
		"You are an expert at writing DuckDB SQL queries.",
		"# Table Schema (`financials.quarterly`)",
		"The database has a table called 'financials.quarterly' with the above columns.",
		"Respond only with the SQL query, no explanation.",
		"The query should be valid DuckDB SQL.",
	} {
		if !strings.Contains(prompt.System, want) {
			t.Fatalf("system prompt missing %q", want)
		}
	}
	if prompt.User.Sender != SenderUser {
		t.Fatalf("Sender = %q", prompt.User.Sender)
	}
	if prompt.User.Content != "Convert this question to a SQL query: Which company had the largest net income?" {
		t.Fatalf("Content = %q", prompt.User.Content)
	}
}

func TestBuildPromptAcceptsEmptyQuestion(t *testing.T) {
	prompt := BuildPrompt(DefaultDescriptor(), "")
	if prompt.User.Content != "Convert this question to a SQL query: " {
		t.Fatalf("Content = %q", prompt.User.Content)
	}
}

func TestBuildPromptUsesDescriptor(t *testing.T) {
	desc := Descriptor{
		Table:   schema.TableRef{Table: "prices"},
		Dialect: "BigQuery",
		Fields:  []schema.Field{{Name: "close", Type: schema.Float}},
	}
	prompt := BuildPrompt(desc, "q")
	want := "You are an expert at writing BigQuery SQL queries.\n\n" +
		"# Table Schema (`prices`)\n\n" +
		"[\n  {\"name\": \"close\", \"type\": \"FLOAT\"}\n]\n\n" +
		"The database has a table called 'prices' with the above columns.\n" +
		"Respond only with the SQL query, no explanation. The query should be valid BigQuery SQL."
	if prompt.System != want {
		t.Fatalf("System = %q, want %q", prompt.System, want)
	}
}
