package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/pterm/pterm"

	"github.com/tickerql/tickerql/internal/ingest"
	"github.com/tickerql/tickerql/internal/nl2sql"
)

func renderAnswer(w io.Writer, answer nl2sql.Answer, showSQL bool) error {
	if showSQL {
		_, _ = fmt.Fprintln(w, pterm.FgGray.Sprint(answer.SQL))
		_, _ = fmt.Fprintln(w)
	}
	if len(answer.Result.Columns) == 0 {
		_, _ = fmt.Fprintln(w, "(no columns)")
		return nil
	}

	data := make(pterm.TableData, 0, len(answer.Result.Rows)+1)
	data = append(data, answer.Result.Columns)
	for _, row := range answer.Result.Rows {
		cells := make([]string, len(answer.Result.Columns))
		for i := range cells {
			if i < len(row) {
				cells[i] = formatCell(row[i])
			}
		}
		data = append(data, cells)
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Srender()
	if err != nil {
		return fmt.Errorf("render result table: %w", err)
	}
	_, _ = fmt.Fprintln(w, table)
	_, _ = fmt.Fprintf(w, "%d row(s) in %s\n", len(answer.Result.Rows), answer.Result.Duration.Round(time.Millisecond))
	return nil
}

type answerJSON struct {
	SQL     string           `json:"sql"`
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

func writeAnswerJSON(w io.Writer, answer nl2sql.Answer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(answerJSON{
		SQL:     answer.SQL,
		Columns: answer.Result.Columns,
		Rows:    answer.Result.Records(),
	})
}

func renderSummary(w io.Writer, summary ingest.Summary) {
	_, _ = fmt.Fprintf(w, "run %s (%s): %s, %d ticker(s), %d succeeded, %d skipped, %d failed, %d statement(s) in %s\n",
		summary.RunID,
		summary.Trigger,
		summary.Status,
		summary.Tickers,
		summary.Succeeded,
		summary.Skipped,
		summary.Failed,
		summary.Statements,
		summary.Duration.Round(time.Millisecond),
	)
	for _, result := range summary.Results {
		switch {
		case result.Error != "":
			_, _ = fmt.Fprintf(w, "  %s %s: %s\n", pterm.FgRed.Sprint("failed "), result.Ticker, result.Error)
		case result.Skipped:
			_, _ = fmt.Fprintf(w, "  %s %s: no statements\n", pterm.FgYellow.Sprint("skipped"), result.Ticker)
		}
	}
}

func formatCell(value any) string {
	switch v := value.(type) {
	case nil:
		return "NULL"
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case time.Time:
		if v.Hour() == 0 && v.Minute() == 0 && v.Second() == 0 && v.Nanosecond() == 0 {
			return v.Format(time.DateOnly)
		}
		return v.Format(time.RFC3339)
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}
