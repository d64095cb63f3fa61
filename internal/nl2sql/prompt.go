package nl2sql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tickerql/tickerql/internal/schema"
)

const defaultDialect = "DuckDB"

// Descriptor is everything the prompt needs to know about the target table.
type Descriptor struct {
	Table   schema.TableRef
	Dialect string
	Fields  []schema.Field
}

func DefaultDescriptor() Descriptor {
	return Descriptor{
		Table:   schema.QuarterlyTable,
		Dialect: defaultDialect,
		Fields:  schema.Quarterly(),
	}
}

type Prompt struct {
	System string
	User   Message
}

// BuildPrompt renders the system instructions and the user turn for one
// question. The output depends only on its arguments.
func BuildPrompt(desc Descriptor, question string) Prompt {
	dialect := desc.Dialect
	if dialect == "" {
		dialect = defaultDialect
	}
	table := desc.Table.Qualified()

	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert at writing %s SQL queries.\n\n", dialect)
	fmt.Fprintf(&b, "# Table Schema (`%s`)\n\n", table)
	writeFields(&b, desc.Fields)
	fmt.Fprintf(&b, "\n\nThe database has a table called '%s' with the above columns.\n", table)
	fmt.Fprintf(&b, "Respond only with the SQL query, no explanation. The query should be valid %s SQL.", dialect)

	return Prompt{
		System: b.String(),
		User: Message{
			Sender:  SenderUser,
			Content: "Convert this question to a SQL query: " + question,
		},
	}
}

func writeFields(b *strings.Builder, fields []schema.Field) {
	if len(fields) == 0 {
		b.WriteString("[]")
		return
	}
	b.WriteString("[\n")
	for i, field := range fields {
		fmt.Fprintf(b, "  {\"name\": %s, \"type\": %s}", strconv.Quote(field.Name), strconv.Quote(string(field.Type)))
		if i < len(fields)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("]")
}
