package financials

import (
	"bytes"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/tickerql/tickerql/internal/schema"
)

func TestEncodeParquetFollowsQuarterlyColumns(t *testing.T) {
	statements := []Statement{
		{Ticker: "NVDA", Symbol: "NVDA.US", Date: time.Date(2024, 4, 28, 0, 0, 0, 0, time.UTC), Values: map[string]float64{"totalRevenue": 26044e6, "netIncome": 14881e6}},
		{Ticker: "NVDA", Symbol: "NVDA.US", Date: time.Date(2024, 1, 28, 0, 0, 0, 0, time.UTC), Values: map[string]float64{"totalRevenue": 22103e6}},
	}

	result, err := EncodeParquet(statements)
	if err != nil {
		t.Fatalf("EncodeParquet() error = %v", err)
	}
	if result.RecordCount != 2 {
		t.Fatalf("RecordCount = %d", result.RecordCount)
	}
	if !result.MinDate.Equal(statements[1].Date) || !result.MaxDate.Equal(statements[0].Date) {
		t.Fatalf("date range = %s..%s", result.MinDate, result.MaxDate)
	}

	file, err := parquet.OpenFile(bytes.NewReader(result.Data), int64(len(result.Data)))
	if err != nil {
		t.Fatalf("parquet.OpenFile() error = %v", err)
	}
	if file.NumRows() != 2 {
		t.Fatalf("NumRows() = %d", file.NumRows())
	}

	fields := file.Schema().Fields()
	want := schema.Quarterly()
	if len(fields) != len(want) {
		t.Fatalf("columns = %d, want %d", len(fields), len(want))
	}
	for i, field := range want {
		if fields[i].Name() != field.Name {
			t.Fatalf("column %d = %q, want %q", i, fields[i].Name(), field.Name)
		}
		if field.Type == schema.Float && !fields[i].Optional() {
			t.Fatalf("column %q should be optional", field.Name)
		}
	}
}

func TestEncodeParquetRejectsEmptyInput(t *testing.T) {
	if _, err := EncodeParquet(nil); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestEncodeParquetRejectsUndatedStatement(t *testing.T) {
	if _, err := EncodeParquet([]Statement{{Ticker: "AAPL"}}); err == nil {
		t.Fatal("expected error for statement without date")
	}
}
