package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tickerql/tickerql/internal/catalog"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) HealthCheck(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping catalog db: %w", err)
	}
	return nil
}

func (r *Repository) CreateIngestRun(ctx context.Context, in catalog.CreateIngestRunInput) (catalog.IngestRun, error) {
	if in.RunID == "" {
		return catalog.IngestRun{}, fmt.Errorf("run id is required")
	}
	trigger := in.Trigger
	if trigger == "" {
		trigger = "manual"
	}

	query := `
INSERT INTO ingest_run (run_id, trigger_source, status, tickers_total)
VALUES ($1, $2, 'running', $3)
RETURNING started_at`
	var startedAt time.Time
	if err := r.db.QueryRowContext(ctx, query, in.RunID, trigger, in.TickersTotal).Scan(&startedAt); err != nil {
		return catalog.IngestRun{}, fmt.Errorf("create ingest run: %w", err)
	}
	return catalog.IngestRun{
		RunID:        in.RunID,
		Trigger:      trigger,
		Status:       catalog.IngestRunRunning,
		TickersTotal: in.TickersTotal,
		StartedAt:    startedAt,
	}, nil
}

func (r *Repository) CompleteIngestRun(ctx context.Context, in catalog.CompleteIngestRunInput) (catalog.IngestRun, error) {
	switch in.Status {
	case catalog.IngestRunSucceeded, catalog.IngestRunPartial, catalog.IngestRunFailed:
	default:
		return catalog.IngestRun{}, fmt.Errorf("invalid final ingest run status %q", in.Status)
	}

	query := `
UPDATE ingest_run
SET status = $2,
    tickers_succeeded = $3,
    tickers_failed = $4,
    tickers_skipped = $5,
    statements_written = $6,
    error_text = $7,
    finished_at = NOW()
WHERE run_id = $1
RETURNING run_id, trigger_source, status, tickers_total, tickers_succeeded, tickers_failed, tickers_skipped, statements_written, error_text, started_at, finished_at`
	run, err := scanIngestRun(r.db.QueryRowContext(ctx, query,
		in.RunID,
		string(in.Status),
		in.TickersSucceeded,
		in.TickersFailed,
		in.TickersSkipped,
		in.StatementsWritten,
		in.ErrorText,
	))
	if err != nil {
		return catalog.IngestRun{}, fmt.Errorf("complete ingest run: %w", err)
	}
	return run, nil
}

func (r *Repository) GetIngestRun(ctx context.Context, runID string) (catalog.IngestRun, error) {
	query := `
SELECT run_id, trigger_source, status, tickers_total, tickers_succeeded, tickers_failed, tickers_skipped, statements_written, error_text, started_at, finished_at
FROM ingest_run
WHERE run_id = $1`
	run, err := scanIngestRun(r.db.QueryRowContext(ctx, query, runID))
	if err != nil {
		return catalog.IngestRun{}, fmt.Errorf("get ingest run: %w", err)
	}
	return run, nil
}

func (r *Repository) ListIngestRuns(ctx context.Context, limit int) ([]catalog.IngestRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT run_id, trigger_source, status, tickers_total, tickers_succeeded, tickers_failed, tickers_skipped, statements_written, error_text, started_at, finished_at
FROM ingest_run
ORDER BY started_at DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list ingest runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	runs := make([]catalog.IngestRun, 0)
	for rows.Next() {
		run, err := scanIngestRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list ingest runs: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ingest runs: %w", err)
	}
	return runs, nil
}

func (r *Repository) ListStatementFiles(ctx context.Context) ([]catalog.StatementFile, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT ticker, path, run_id, record_count, file_size_bytes, schema_version, min_date, max_date, updated_at
FROM statement_file
ORDER BY ticker ASC`)
	if err != nil {
		return nil, fmt.Errorf("list statement files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	files := make([]catalog.StatementFile, 0)
	for rows.Next() {
		var file catalog.StatementFile
		if err := rows.Scan(
			&file.Ticker,
			&file.Path,
			&file.RunID,
			&file.RecordCount,
			&file.FileSizeBytes,
			&file.SchemaVersion,
			&file.MinDate,
			&file.MaxDate,
			&file.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan statement file: %w", err)
		}
		files = append(files, file)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate statement files: %w", err)
	}
	return files, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIngestRun(row rowScanner) (catalog.IngestRun, error) {
	var (
		run    catalog.IngestRun
		status string
	)
	if err := row.Scan(
		&run.RunID,
		&run.Trigger,
		&status,
		&run.TickersTotal,
		&run.TickersSucceeded,
		&run.TickersFailed,
		&run.TickersSkipped,
		&run.StatementsWritten,
		&run.ErrorText,
		&run.StartedAt,
		&run.FinishedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return catalog.IngestRun{}, catalog.ErrNotFound
		}
		return catalog.IngestRun{}, fmt.Errorf("scan ingest run: %w", err)
	}
	run.Status = catalog.IngestRunStatus(status)
	return run, nil
}
