package catalog

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("catalog: not found")

// Repository tracks ingest runs and the parquet file currently holding each
// ticker's statements. Statement data itself lives in object storage.
type Repository interface {
	HealthCheck(ctx context.Context) error
	CreateIngestRun(ctx context.Context, in CreateIngestRunInput) (IngestRun, error)
	CompleteIngestRun(ctx context.Context, in CompleteIngestRunInput) (IngestRun, error)
	GetIngestRun(ctx context.Context, runID string) (IngestRun, error)
	UpsertStatementFile(ctx context.Context, in UpsertStatementFileInput) (UpsertStatementFileResult, error)
	ListStatementFiles(ctx context.Context) ([]StatementFile, error)
}

type IngestRunStatus string

const (
	IngestRunRunning   IngestRunStatus = "running"
	IngestRunSucceeded IngestRunStatus = "succeeded"
	IngestRunPartial   IngestRunStatus = "partial"
	IngestRunFailed    IngestRunStatus = "failed"
)

type IngestRun struct {
	RunID             string
	Trigger           string
	Status            IngestRunStatus
	TickersTotal      int
	TickersSucceeded  int
	TickersFailed     int
	TickersSkipped    int
	StatementsWritten int64
	ErrorText         string
	StartedAt         time.Time
	FinishedAt        *time.Time
}

type StatementFile struct {
	Ticker        string
	Path          string
	RunID         string
	RecordCount   int64
	FileSizeBytes int64
	SchemaVersion int
	MinDate       *time.Time
	MaxDate       *time.Time
	UpdatedAt     time.Time
}

type CreateIngestRunInput struct {
	RunID        string
	Trigger      string
	TickersTotal int
}

type CompleteIngestRunInput struct {
	RunID             string
	Status            IngestRunStatus
	TickersSucceeded  int
	TickersFailed     int
	TickersSkipped    int
	StatementsWritten int64
	ErrorText         string
}

type UpsertStatementFileInput struct {
	Ticker        string
	Path          string
	RunID         string
	RecordCount   int64
	FileSizeBytes int64
	SchemaVersion int
	MinDate       *time.Time
	MaxDate       *time.Time
}

type UpsertStatementFileResult struct {
	File StatementFile
	// SupersededPath is the object that was current for the ticker before
	// this upsert, or empty when the ticker is new or the path is unchanged.
	SupersededPath string
}
