// Package schema holds the static description of the analytic table that
// natural-language questions are translated against.
//
// The descriptor is maintained by hand. Nothing checks it against the live
// table, so a column added to the store without a matching entry here is
// invisible to generated SQL.
package schema

import "fmt"

// Version identifies the revision of the column list embedded in prompts.
const Version = 1

type FieldType string

const (
	String    FieldType = "STRING"
	Timestamp FieldType = "TIMESTAMP"
	Float     FieldType = "FLOAT"
)

func (t FieldType) Valid() bool {
	switch t {
	case String, Timestamp, Float:
		return true
	default:
		return false
	}
}

type Field struct {
	Name string    `json:"name"`
	Type FieldType `json:"type"`
}

type TableRef struct {
	Schema string
	Table  string
}

func (r TableRef) Qualified() string {
	if r.Schema == "" {
		return r.Table
	}
	return fmt.Sprintf("%s.%s", r.Schema, r.Table)
}

// QuarterlyTable is where ingested quarterly statements are exposed.
var QuarterlyTable = TableRef{Schema: "financials", Table: "quarterly"}

// Quarterly returns the ordered quarterly column list. The slice is a copy.
func Quarterly() []Field {
	out := make([]Field, len(quarterlyFields))
	copy(out, quarterlyFields[:])
	return out
}

// Lookup reports the type of a quarterly column.
func Lookup(name string) (FieldType, bool) {
	for _, field := range quarterlyFields {
		if field.Name == name {
			return field.Type, true
		}
	}
	return "", false
}
