package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/tickerql/tickerql/internal/catalog"
	"github.com/tickerql/tickerql/internal/config"
	"github.com/tickerql/tickerql/internal/ingest"
	"github.com/tickerql/tickerql/internal/nl2sql"
	"github.com/tickerql/tickerql/internal/query"
)

func TestAskPrintsTable(t *testing.T) {
	answerer := &fakeAnswerer{answer: sampleAnswer()}
	stdout, _, code := runCLI(t, &Backend{Answerer: answerer}, "ask", "Which", "AI", "stocks?")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if answerer.question != "Which AI stocks?" {
		t.Fatalf("question = %q", answerer.question)
	}
	for _, want := range []string{"SELECT ticker", "NVDA", "130497000000", "2 row(s)"} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("stdout missing %q:\n%s", want, stdout)
		}
	}
}

func TestAskJSON(t *testing.T) {
	stdout, _, code := runCLI(t, &Backend{Answerer: &fakeAnswerer{answer: sampleAnswer()}}, "ask", "--json", "q")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	var payload answerJSON
	if err := json.Unmarshal([]byte(stdout), &payload); err != nil {
		t.Fatalf("json.Unmarshal() error = %v\n%s", err, stdout)
	}
	if payload.SQL == "" || len(payload.Rows) != 2 || payload.Rows[0]["ticker"] != "NVDA" {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestAskReportsPipelineError(t *testing.T) {
	failure := &nl2sql.Error{Kind: nl2sql.ErrNoQueryGenerated, Stage: nl2sql.StageExtraction}
	_, stderr, code := runCLI(t, &Backend{Answerer: &fakeAnswerer{err: failure}}, "ask", "q")
	if code != 1 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(stderr, "no SQL query generated") {
		t.Fatalf("stderr = %s", stderr)
	}
}

func TestAskWithoutCompletionKey(t *testing.T) {
	_, stderr, code := runCLI(t, &Backend{}, "ask", "q")
	if code != 1 || !strings.Contains(stderr, "TICKERQL_AI_API_KEY") {
		t.Fatalf("code = %d stderr = %s", code, stderr)
	}
}

func TestIngestTickerArgs(t *testing.T) {
	ingester := &fakeIngester{summary: ingest.Summary{RunID: "run-1", Trigger: ingest.TriggerManual, Status: catalog.IngestRunSucceeded, Tickers: 2, Succeeded: 2, Statements: 24}}
	stdout, _, code := runCLI(t, &Backend{Ingester: ingester}, "ingest", "NVDA", "MSFT")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if strings.Join(ingester.tickers, ",") != "NVDA,MSFT" || ingester.fileRuns != 0 {
		t.Fatalf("ingester = %+v", ingester)
	}
	if !strings.Contains(stdout, "run run-1") || !strings.Contains(stdout, "24 statement(s)") {
		t.Fatalf("stdout = %s", stdout)
	}
}

func TestIngestTickersFileAndPrune(t *testing.T) {
	ingester := &fakeIngester{summary: ingest.Summary{RunID: "run-1"}, pruned: 3}
	stdout, _, code := runCLI(t, &Backend{Ingester: ingester}, "ingest", "--prune")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if ingester.fileRuns != 1 || ingester.prunes != 1 {
		t.Fatalf("ingester = %+v", ingester)
	}
	if !strings.Contains(stdout, "pruned 3 orphaned file(s)") {
		t.Fatalf("stdout = %s", stdout)
	}
}

func TestIngestFailureReturnsError(t *testing.T) {
	ingester := &fakeIngester{
		summary: ingest.Summary{RunID: "run-1", Status: catalog.IngestRunPartial, Tickers: 2, Succeeded: 1, Failed: 1, Results: []ingest.TickerResult{{Ticker: "BAD", Error: "upstream 500"}}},
		err:     errors.New("ticker BAD: upstream 500"),
	}
	stdout, stderr, code := runCLI(t, &Backend{Ingester: ingester}, "ingest", "NVDA", "BAD")
	if code != 1 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(stdout, "BAD: upstream 500") || !strings.Contains(stderr, "ticker BAD") {
		t.Fatalf("stdout = %s stderr = %s", stdout, stderr)
	}
}

func TestIngestWatchRejectsTickerArgs(t *testing.T) {
	_, _, code := runCLI(t, &Backend{Ingester: &fakeIngester{}}, "ingest", "--watch", "NVDA")
	if code != 1 {
		t.Fatalf("exit code = %d", code)
	}
}

func TestIngestWatchRunsUntilWatcherReturns(t *testing.T) {
	ingester := &fakeIngester{summary: ingest.Summary{RunID: "run-1"}}
	_, _, code := runCLI(t, &Backend{Ingester: ingester}, "ingest", "--watch")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if ingester.fileRuns != 1 || ingester.watches != 1 {
		t.Fatalf("ingester = %+v", ingester)
	}
}

func TestSmokeIngestsThenAsks(t *testing.T) {
	answerer := &fakeAnswerer{answer: sampleAnswer()}
	ingester := &fakeIngester{summary: ingest.Summary{RunID: "run-1", Succeeded: 2}}
	stdout, _, code := runCLI(t, &Backend{Answerer: answerer, Ingester: ingester}, "smoke")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if ingester.fileRuns != 1 {
		t.Fatalf("fileRuns = %d", ingester.fileRuns)
	}
	if answerer.question != smokeQuestion {
		t.Fatalf("question = %q", answerer.question)
	}
	if !strings.Contains(stdout, "MSFT") {
		t.Fatalf("stdout = %s", stdout)
	}
}

func TestSmokeSkipIngest(t *testing.T) {
	answerer := &fakeAnswerer{answer: sampleAnswer()}
	_, _, code := runCLI(t, &Backend{Answerer: answerer}, "smoke", "--skip-ingest")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if answerer.calls != 1 {
		t.Fatalf("calls = %d", answerer.calls)
	}
}

func TestSchemaDoesNotOpenBackend(t *testing.T) {
	opened := false
	opts := Options{
		Lookup: mapLookup(nil),
		Open: func(context.Context, config.Config, *slog.Logger) (*Backend, error) {
			opened = true
			return &Backend{}, nil
		},
	}
	var stdout bytes.Buffer
	opts.Stdout = &stdout
	opts.Stderr = &bytes.Buffer{}
	if code := Execute(context.Background(), []string{"schema"}, opts); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if opened {
		t.Fatal("schema should not open the backend")
	}
	if !strings.Contains(stdout.String(), "financials.quarterly") || !strings.Contains(stdout.String(), "totalRevenue") {
		t.Fatalf("stdout = %s", stdout.String())
	}
}

func TestInvalidConfigFails(t *testing.T) {
	opts := Options{
		Stdout: &bytes.Buffer{},
		Stderr: &bytes.Buffer{},
		Lookup: mapLookup(map[string]string{"TICKERQL_PROFILE": "oops"}),
		Open: func(context.Context, config.Config, *slog.Logger) (*Backend, error) {
			t.Fatal("Open should not be called")
			return nil, nil
		},
	}
	if code := Execute(context.Background(), []string{"ask", "q"}, opts); code != 1 {
		t.Fatalf("exit code = %d", code)
	}
}

func TestFormatCell(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "NULL"},
		{"NVDA", "NVDA"},
		{1.5e9, "1500000000"},
		{int64(7), "7"},
		{time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), "2024-06-30"},
		{time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC), "2024-06-30T12:00:00Z"},
	}
	for _, tt := range tests {
		if got := formatCell(tt.in); got != tt.want {
			t.Fatalf("formatCell(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func runCLI(t *testing.T, backend *Backend, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	closed := false
	backend.Close = func() error {
		closed = true
		return nil
	}
	opts := Options{
		Stdout: &stdout,
		Stderr: &stderr,
		Lookup: mapLookup(nil),
		Open: func(context.Context, config.Config, *slog.Logger) (*Backend, error) {
			return backend, nil
		},
	}
	code := Execute(context.Background(), args, opts)
	if args[0] != "schema" && !closed && code == 0 {
		t.Fatal("backend was not closed")
	}
	return stdout.String(), stderr.String(), code
}

func sampleAnswer() nl2sql.Answer {
	return nl2sql.Answer{
		SQL: "SELECT ticker, max(totalRevenue) AS revenue FROM financials.quarterly GROUP BY ticker ORDER BY revenue DESC",
		Result: query.Result{
			Columns:  []string{"ticker", "revenue"},
			Rows:     [][]any{{"NVDA", 130497000000.0}, {"MSFT", 65585000000.0}},
			Duration: 12 * time.Millisecond,
		},
	}
}

func mapLookup(values map[string]string) config.LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}

type fakeAnswerer struct {
	answer   nl2sql.Answer
	err      error
	calls    int
	question string
}

func (f *fakeAnswerer) Process(_ context.Context, question string) (nl2sql.Answer, error) {
	f.calls++
	f.question = question
	if f.err != nil {
		return nl2sql.Answer{}, f.err
	}
	return f.answer, nil
}

type fakeIngester struct {
	summary  ingest.Summary
	err      error
	pruned   int
	tickers  []string
	fileRuns int
	prunes   int
	watches  int
}

func (f *fakeIngester) Run(_ context.Context, _ string, tickers []string) (ingest.Summary, error) {
	f.tickers = tickers
	return f.summary, f.err
}

func (f *fakeIngester) RunTickersFile(context.Context, string) (ingest.Summary, error) {
	f.fileRuns++
	return f.summary, f.err
}

func (f *fakeIngester) WatchTickersFile(context.Context) error {
	f.watches++
	return nil
}

func (f *fakeIngester) PruneOrphans(context.Context) (int, error) {
	f.prunes++
	return f.pruned, nil
}
