package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tickerql/tickerql/internal/catalog"
)

// UpsertStatementFile makes in.Path the current file for in.Ticker. The row
// is locked while it is replaced so concurrent runs for the same ticker see
// a consistent superseded path.
func (r *Repository) UpsertStatementFile(ctx context.Context, in catalog.UpsertStatementFileInput) (catalog.UpsertStatementFileResult, error) {
	if in.Ticker == "" {
		return catalog.UpsertStatementFileResult{}, fmt.Errorf("ticker is required")
	}
	if in.Path == "" {
		return catalog.UpsertStatementFileResult{}, fmt.Errorf("path is required")
	}
	if in.RunID == "" {
		return catalog.UpsertStatementFileResult{}, fmt.Errorf("run id is required")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return catalog.UpsertStatementFileResult{}, fmt.Errorf("begin statement file tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var previousPath string
	if err := tx.QueryRowContext(ctx, `
SELECT path
FROM statement_file
WHERE ticker = $1
FOR UPDATE`, in.Ticker).Scan(&previousPath); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return catalog.UpsertStatementFileResult{}, fmt.Errorf("select current statement file: %w", err)
	}

	file := catalog.StatementFile{
		Ticker:        in.Ticker,
		Path:          in.Path,
		RunID:         in.RunID,
		RecordCount:   in.RecordCount,
		FileSizeBytes: in.FileSizeBytes,
		SchemaVersion: in.SchemaVersion,
		MinDate:       in.MinDate,
		MaxDate:       in.MaxDate,
	}
	if err := tx.QueryRowContext(ctx, `
INSERT INTO statement_file (ticker, path, run_id, record_count, file_size_bytes, schema_version, min_date, max_date)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (ticker)
DO UPDATE SET path = EXCLUDED.path,
    run_id = EXCLUDED.run_id,
    record_count = EXCLUDED.record_count,
    file_size_bytes = EXCLUDED.file_size_bytes,
    schema_version = EXCLUDED.schema_version,
    min_date = EXCLUDED.min_date,
    max_date = EXCLUDED.max_date,
    updated_at = NOW()
RETURNING updated_at`,
		in.Ticker, in.Path, in.RunID, in.RecordCount, in.FileSizeBytes, in.SchemaVersion, in.MinDate, in.MaxDate,
	).Scan(&file.UpdatedAt); err != nil {
		return catalog.UpsertStatementFileResult{}, fmt.Errorf("upsert statement file: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return catalog.UpsertStatementFileResult{}, fmt.Errorf("commit statement file tx: %w", err)
	}

	result := catalog.UpsertStatementFileResult{File: file}
	if previousPath != in.Path {
		result.SupersededPath = previousPath
	}
	return result, nil
}
