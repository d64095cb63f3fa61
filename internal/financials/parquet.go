package financials

import (
	"bytes"
	"fmt"
	"reflect"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/tickerql/tickerql/internal/schema"
)

// rowLayout is a Go struct type generated from the quarterly descriptor so
// the parquet columns follow descriptor order.
type rowLayout struct {
	typ    reflect.Type
	schema *parquet.Schema
	index  map[string]int
}

var quarterlyLayout = mustRowLayout(schema.Quarterly())

func mustRowLayout(fields []schema.Field) rowLayout {
	layout, err := newRowLayout(fields)
	if err != nil {
		panic(err)
	}
	return layout
}

func newRowLayout(fields []schema.Field) (rowLayout, error) {
	structFields := make([]reflect.StructField, 0, len(fields))
	index := make(map[string]int, len(fields))
	for i, field := range fields {
		var (
			typ reflect.Type
			tag string
		)
		switch field.Type {
		case schema.String:
			typ, tag = reflect.TypeOf(""), field.Name
		case schema.Timestamp:
			typ, tag = reflect.TypeOf(time.Time{}), field.Name+",timestamp(millisecond)"
		case schema.Float:
			typ, tag = reflect.TypeOf((*float64)(nil)), field.Name
		default:
			return rowLayout{}, fmt.Errorf("column %q has unsupported type %q", field.Name, field.Type)
		}
		structFields = append(structFields, reflect.StructField{
			Name: fmt.Sprintf("C%03d", i),
			Type: typ,
			Tag:  reflect.StructTag(fmt.Sprintf(`parquet:%q`, tag)),
		})
		index[field.Name] = i
	}
	typ := reflect.StructOf(structFields)
	return rowLayout{
		typ:    typ,
		schema: parquet.SchemaOf(reflect.New(typ).Elem().Interface()),
		index:  index,
	}, nil
}

func (l rowLayout) row(statement Statement) any {
	value := reflect.New(l.typ).Elem()
	set := func(name string, v reflect.Value) {
		if i, ok := l.index[name]; ok {
			value.Field(i).Set(v)
		}
	}
	set("ticker", reflect.ValueOf(statement.Ticker))
	set("symbol", reflect.ValueOf(statement.Symbol))
	set("date", reflect.ValueOf(statement.Date.UTC()))
	for name, number := range statement.Values {
		i, ok := l.index[name]
		if !ok || value.Field(i).Type() != reflect.TypeOf((*float64)(nil)) {
			continue
		}
		n := number
		value.Field(i).Set(reflect.ValueOf(&n))
	}
	return value.Interface()
}

type EncodeResult struct {
	Data        []byte
	RecordCount int64
	MinDate     time.Time
	MaxDate     time.Time
}

// EncodeParquet writes statements as a single parquet file whose columns
// are the quarterly table columns in order.
func EncodeParquet(statements []Statement) (EncodeResult, error) {
	if len(statements) == 0 {
		return EncodeResult{}, fmt.Errorf("no statements to encode")
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewWriter(buf, quarterlyLayout.schema)
	result := EncodeResult{RecordCount: int64(len(statements))}
	for i, statement := range statements {
		if statement.Date.IsZero() {
			return EncodeResult{}, fmt.Errorf("statement %d for %s has no date", i, statement.Ticker)
		}
		if err := writer.Write(quarterlyLayout.row(statement)); err != nil {
			return EncodeResult{}, fmt.Errorf("write statement row: %w", err)
		}
		if result.MinDate.IsZero() || statement.Date.Before(result.MinDate) {
			result.MinDate = statement.Date
		}
		if statement.Date.After(result.MaxDate) {
			result.MaxDate = statement.Date
		}
	}
	if err := writer.Close(); err != nil {
		return EncodeResult{}, fmt.Errorf("close parquet writer: %w", err)
	}
	result.Data = buf.Bytes()
	return result, nil
}
