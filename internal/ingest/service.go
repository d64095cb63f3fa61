// Package ingest downloads quarterly statements for a ticker list and
// publishes one parquet file per ticker.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tickerql/tickerql/internal/catalog"
	"github.com/tickerql/tickerql/internal/financials"
	"github.com/tickerql/tickerql/internal/observability"
	"github.com/tickerql/tickerql/internal/schema"
	"github.com/tickerql/tickerql/internal/storage"
	"github.com/tickerql/tickerql/internal/tickers"
)

const (
	TriggerManual      = "manual"
	TriggerSchedule    = "schedule"
	TriggerTickersFile = "tickers_file"

	maxErrorText = 4000
)

// Catalog is the subset of catalog.Repository ingestion needs.
type Catalog interface {
	CreateIngestRun(ctx context.Context, in catalog.CreateIngestRunInput) (catalog.IngestRun, error)
	CompleteIngestRun(ctx context.Context, in catalog.CompleteIngestRunInput) (catalog.IngestRun, error)
	UpsertStatementFile(ctx context.Context, in catalog.UpsertStatementFileInput) (catalog.UpsertStatementFileResult, error)
	ListStatementFiles(ctx context.Context) ([]catalog.StatementFile, error)
}

type Config struct {
	TickersFile string
	Concurrency int

	// PruneSafetyAge keeps unreferenced objects younger than this out of
	// PruneOrphans, so files a concurrent run has put but not yet
	// registered survive.
	PruneSafetyAge time.Duration
}

type Service struct {
	source      financials.Source
	store       storage.ObjectStore
	catalog     Catalog
	tickersFile string
	concurrency int
	safetyAge   time.Duration
	logger      *slog.Logger
	newRunID    func() string
	now         func() time.Time
}

func NewService(source financials.Source, store storage.ObjectStore, repo Catalog, cfg Config, logger *slog.Logger) (*Service, error) {
	if source == nil {
		return nil, fmt.Errorf("financials source is required")
	}
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if repo == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if logger == nil {
		logger = observability.DiscardLogger()
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Service{
		source:      source,
		store:       store,
		catalog:     repo,
		tickersFile: cfg.TickersFile,
		concurrency: concurrency,
		safetyAge:   cfg.PruneSafetyAge,
		logger:      logger,
		newRunID:    uuid.NewString,
		now:         time.Now,
	}, nil
}

type TickerResult struct {
	Ticker     string `json:"ticker"`
	Path       string `json:"path,omitempty"`
	Statements int    `json:"statements"`
	Skipped    bool   `json:"skipped,omitempty"`
	Error      string `json:"error,omitempty"`
}

type Summary struct {
	RunID      string                  `json:"run_id"`
	Trigger    string                  `json:"trigger"`
	Status     catalog.IngestRunStatus `json:"status"`
	Tickers    int                     `json:"tickers"`
	Succeeded  int                     `json:"succeeded"`
	Failed     int                     `json:"failed"`
	Skipped    int                     `json:"skipped"`
	Statements int64                   `json:"statements"`
	Duration   time.Duration           `json:"duration_ns"`
	Results    []TickerResult          `json:"results"`
}

// UpdateAllFinancials ingests every ticker in the configured tickers file.
func (s *Service) UpdateAllFinancials(ctx context.Context) (Summary, error) {
	return s.RunTickersFile(ctx, TriggerSchedule)
}

// RunTickersFile ingests the tickers currently listed in the configured
// tickers file under trigger.
func (s *Service) RunTickersFile(ctx context.Context, trigger string) (Summary, error) {
	if s.tickersFile == "" {
		return Summary{}, fmt.Errorf("tickers file is not configured")
	}
	list, err := tickers.ReadFile(s.tickersFile)
	if err != nil {
		return Summary{}, err
	}
	return s.Run(ctx, trigger, list)
}

// DownloadFinancials ingests a single ticker as its own run.
func (s *Service) DownloadFinancials(ctx context.Context, ticker string) (TickerResult, error) {
	summary, err := s.Run(ctx, TriggerManual, []string{ticker})
	if len(summary.Results) == 0 {
		return TickerResult{Ticker: ticker}, err
	}
	return summary.Results[0], err
}

func (s *Service) DownloadFinancialsForTickerList(ctx context.Context, list []string) (Summary, error) {
	return s.Run(ctx, TriggerManual, list)
}

// Run ingests list under one ingest run. A failing ticker does not stop
// the others; all ticker failures are joined into the returned error and
// the summary is returned either way.
func (s *Service) Run(ctx context.Context, trigger string, list []string) (Summary, error) {
	list = dedupe(list)
	if len(list) == 0 {
		return Summary{}, fmt.Errorf("no tickers to ingest")
	}

	start := s.now()
	runID := s.newRunID()
	if _, err := s.catalog.CreateIngestRun(ctx, catalog.CreateIngestRunInput{
		RunID:        runID,
		Trigger:      trigger,
		TickersTotal: len(list),
	}); err != nil {
		return Summary{}, err
	}
	logger := s.logger.With(slog.String("run_id", runID), slog.String("trigger", trigger))
	logger.InfoContext(ctx, "ingest run started", slog.Int("tickers", len(list)))

	results := make([]TickerResult, len(list))
	errs := make([]error, len(list))
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, ticker := range list {
		g.Go(func() error {
			result, err := s.ingestTicker(ctx, logger, runID, ticker)
			observability.ObserveIngestTicker(err == nil, result.Statements)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Error = err.Error()
				errs[i] = fmt.Errorf("ticker %s: %w", ticker, err)
			}
			results[i] = result
			return nil
		})
	}
	_ = g.Wait()

	summary := Summary{RunID: runID, Trigger: trigger, Tickers: len(list), Results: results}
	for _, result := range results {
		switch {
		case result.Error != "":
			summary.Failed++
		case result.Skipped:
			summary.Skipped++
		default:
			summary.Succeeded++
			summary.Statements += int64(result.Statements)
		}
	}
	summary.Status = runStatus(summary)
	joined := errors.Join(errs...)

	finishedAt := s.now()
	summary.Duration = finishedAt.Sub(start)
	observability.ObserveIngestRun(summary.Duration, summary.Failed, finishedAt)

	completeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if _, err := s.catalog.CompleteIngestRun(completeCtx, catalog.CompleteIngestRunInput{
		RunID:             runID,
		Status:            summary.Status,
		TickersSucceeded:  summary.Succeeded,
		TickersFailed:     summary.Failed,
		TickersSkipped:    summary.Skipped,
		StatementsWritten: summary.Statements,
		ErrorText:         errorText(joined),
	}); err != nil {
		joined = errors.Join(joined, err)
	}

	logger.InfoContext(ctx, "ingest run finished",
		slog.String("status", string(summary.Status)),
		slog.Int("succeeded", summary.Succeeded),
		slog.Int("failed", summary.Failed),
		slog.Int("skipped", summary.Skipped),
		slog.Int64("statements", summary.Statements),
		slog.Duration("duration", summary.Duration),
	)
	return summary, joined
}

func (s *Service) ingestTicker(ctx context.Context, logger *slog.Logger, runID, ticker string) (TickerResult, error) {
	result := TickerResult{Ticker: ticker}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	statements, err := s.source.Fetch(ctx, ticker)
	if err != nil {
		return result, err
	}
	if len(statements) == 0 {
		result.Skipped = true
		logger.WarnContext(ctx, "no quarterly statements", slog.String("ticker", ticker))
		return result, nil
	}

	encoded, err := financials.EncodeParquet(statements)
	if err != nil {
		return result, err
	}
	path, err := storage.BuildStatementFilePath(ticker, runID)
	if err != nil {
		return result, err
	}
	if _, err := s.store.Put(ctx, path, bytes.NewReader(encoded.Data), int64(len(encoded.Data)), storage.PutOptions{
		ContentType: storage.ParquetContentType,
		Metadata:    map[string]string{storage.MetaTicker: ticker, storage.MetaRunID: runID},
	}); err != nil {
		return result, err
	}

	minDate, maxDate := encoded.MinDate, encoded.MaxDate
	upserted, err := s.catalog.UpsertStatementFile(ctx, catalog.UpsertStatementFileInput{
		Ticker:        ticker,
		Path:          path,
		RunID:         runID,
		RecordCount:   encoded.RecordCount,
		FileSizeBytes: int64(len(encoded.Data)),
		SchemaVersion: schema.Version,
		MinDate:       &minDate,
		MaxDate:       &maxDate,
	})
	if err != nil {
		if deleteErr := s.store.Delete(context.WithoutCancel(ctx), path); deleteErr != nil {
			logger.WarnContext(ctx, "delete unregistered statement file", slog.String("path", path), slog.String("error", deleteErr.Error()))
		}
		return result, err
	}
	if upserted.SupersededPath != "" {
		if err := s.store.Delete(ctx, upserted.SupersededPath); err != nil {
			logger.WarnContext(ctx, "delete superseded statement file", slog.String("path", upserted.SupersededPath), slog.String("error", err.Error()))
		}
	}

	result.Path = path
	result.Statements = len(statements)
	logger.DebugContext(ctx, "ticker ingested",
		slog.String("ticker", ticker),
		slog.String("path", path),
		slog.Int("statements", len(statements)),
		slog.Int("bytes", len(encoded.Data)),
	)
	return result, nil
}

// PruneOrphans deletes statement objects that are not the current file of
// any ticker, such as leftovers from runs that crashed mid-ticker. Objects
// modified within the safety age are kept.
func (s *Service) PruneOrphans(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.safetyAge)
	files, err := s.catalog.ListStatementFiles(ctx)
	if err != nil {
		return 0, err
	}
	current := make(map[string]struct{}, len(files))
	for _, file := range files {
		current[file.Path] = struct{}{}
	}

	objects, err := s.store.List(ctx, storage.StatementPrefix)
	if err != nil {
		return 0, err
	}
	deleted, recent := 0, 0
	for _, object := range objects {
		if _, ok := current[object.Key]; ok {
			continue
		}
		if object.LastModified.After(cutoff) {
			recent++
			continue
		}
		if _, ok := storage.TickerFromPath(object.Key); !ok {
			continue
		}
		if err := s.store.Delete(ctx, object.Key); err != nil {
			return deleted, err
		}
		deleted++
	}
	if deleted > 0 || recent > 0 {
		s.logger.InfoContext(ctx, "pruned orphan statement files", slog.Int("deleted", deleted), slog.Int("kept_recent", recent))
	}
	return deleted, nil
}

func runStatus(summary Summary) catalog.IngestRunStatus {
	switch {
	case summary.Failed == 0:
		return catalog.IngestRunSucceeded
	case summary.Succeeded == 0 && summary.Skipped == 0:
		return catalog.IngestRunFailed
	default:
		return catalog.IngestRunPartial
	}
}

func dedupe(list []string) []string {
	seen := make(map[string]struct{}, len(list))
	out := make([]string, 0, len(list))
	for _, ticker := range list {
		ticker = strings.TrimSpace(ticker)
		if ticker == "" {
			continue
		}
		if _, ok := seen[ticker]; ok {
			continue
		}
		seen[ticker] = struct{}{}
		out = append(out, ticker)
	}
	return out
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	text := err.Error()
	if len(text) <= maxErrorText {
		return text
	}
	cut := maxErrorText
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
